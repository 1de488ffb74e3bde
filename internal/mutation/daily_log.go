package mutation

import (
	"fmt"
	"time"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
)

// UpsertDailyLog replaces the log with the same id in place, or prepends a
// new one. No date ordering is imposed. A log the parent has already seen
// stays seen, and a submitted quiz score is kept.
func UpsertDailyLog(studentID string, entry model.DailyLog) Mutation {
	return updateStudent(studentID, func(st *model.Student) error {
		entry = entry.Clone()
		entry.ID = ensureID(entry.ID)
		i := st.LogIndex(entry.ID)
		if i >= 0 {
			prev := st.Logs[i]
			if prev.SeenByParent {
				entry.SeenByParent = true
				entry.SeenAt = prev.SeenAt
			}
			if entry.IsAdab && prev.IsAdab && entry.ParentQuizScore == nil {
				entry.ParentQuizScore = prev.ParentQuizScore
				entry.ParentQuizMax = prev.ParentQuizMax
			}
		}
		if err := entry.Validate(); err != nil {
			return err
		}
		if i >= 0 {
			st.Logs[i] = entry
			return nil
		}
		st.Logs = append([]model.DailyLog{entry}, st.Logs...)
		return nil
	})
}

// UpsertDailyLogByDate keeps one ordinary session log per calendar day: a
// session log dated on a day that already has one takes over that log's id.
// Absence and adab logs go through UpsertDailyLog unchanged.
func UpsertDailyLogByDate(studentID string, entry model.DailyLog, loc *time.Location) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		entry := entry
		if entry.IsSession() {
			st, ok := s.Students.Get(studentID)
			if !ok {
				return Result{}, notFound("student", studentID)
			}
			for _, existing := range st.Logs {
				if existing.IsSession() && model.SameDay(existing.Date, entry.Date, loc) {
					entry.ID = existing.ID
					break
				}
			}
		}
		return UpsertDailyLog(studentID, entry)(s)
	}
}

func DeleteDailyLog(studentID, logID string) Mutation {
	return updateStudent(studentID, func(st *model.Student) error {
		i := st.LogIndex(logID)
		if i < 0 {
			return notFound("log", logID)
		}
		st.Logs = append(st.Logs[:i], st.Logs[i+1:]...)
		return nil
	})
}

// MarkLogsSeen flags the given logs as seen by the parent. Unknown and
// already-seen ids are skipped; when nothing changes no write is produced.
func MarkLogsSeen(studentID string, logIDs []string, at time.Time) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		st, err := student(s, studentID)
		if err != nil {
			return Result{}, err
		}
		want := make(map[string]bool, len(logIDs))
		for _, id := range logIDs {
			want[id] = true
		}
		changed := false
		for i := range st.Logs {
			l := &st.Logs[i]
			if want[l.ID] && !l.SeenByParent {
				seenAt := at
				l.SeenByParent = true
				l.SeenAt = &seenAt
				changed = true
			}
		}
		if !changed {
			return unchanged(s), nil
		}
		return putStudent(s, st), nil
	}
}

// RecordQuizAnswer stores the parent's quiz result on an adab log and marks
// it seen. Logs without a quiz, or with an answer already recorded, are
// rejected.
func RecordQuizAnswer(studentID, logID string, score, maxScore int, at time.Time) Mutation {
	return updateStudent(studentID, func(st *model.Student) error {
		i := st.LogIndex(logID)
		if i < 0 {
			return notFound("log", logID)
		}
		l := &st.Logs[i]
		if !l.HasQuiz() {
			return model.NewInvalidStateError(fmt.Sprintf("log %s has no adab quiz", logID))
		}
		if l.QuizAnswered() {
			return model.NewInvalidStateError(fmt.Sprintf("quiz of log %s is already answered", logID))
		}
		if maxScore != len(l.AdabSession.Questions) || score < 0 || score > maxScore {
			return model.NewValidationError("invalid quiz result",
				model.FieldError{Field: "score", Error: fmt.Sprintf("must be between 0 and %d", len(l.AdabSession.Questions))})
		}
		l.ParentQuizScore = &score
		l.ParentQuizMax = &maxScore
		if !l.SeenByParent {
			seenAt := at
			l.SeenByParent = true
			l.SeenAt = &seenAt
		}
		return nil
	})
}
