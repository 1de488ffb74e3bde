package mutation

import (
	"strings"
	"time"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
)

// ArchiveAdabSession creates or edits an archived adab session. Logs that
// already carry a copy are not touched; see RepushAdabSession.
func ArchiveAdabSession(session model.AdabSession, at time.Time) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		session := session.Clone()
		session.ID = ensureID(session.ID)
		session.Title = strings.TrimSpace(session.Title)
		for i := range session.Questions {
			session.Questions[i].ID = ensureID(session.Questions[i].ID)
		}
		session.CreatedAt = at
		if cur, ok := s.AdabArchive.Get(session.ID); ok {
			session.CreatedAt = cur.CreatedAt
		}
		session.UpdatedAt = at
		if err := session.Validate(); err != nil {
			return Result{}, err
		}
		return Result{
			Snapshot: s.WithAdabArchive(s.AdabArchive.With(session)),
			Writes:   []Write{upsert(model.CollectionAdabArchive, session)},
		}, nil
	}
}

// DeleteAdabSession removes a session from the archive only.
func DeleteAdabSession(id string) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		if !s.AdabArchive.Has(id) {
			return Result{}, notFound("adab session", id)
		}
		return Result{
			Snapshot: s.WithAdabArchive(s.AdabArchive.Without(id)),
			Writes:   []Write{remove(model.CollectionAdabArchive, id)},
		}, nil
	}
}

// Author identifies who publishes a log.
type Author struct {
	ID   string
	Name string
}

// PublishAdabSession delivers a value copy of an archived session to each
// student as a new adab log.
func PublishAdabSession(sessionID string, studentIDs []string, by Author, date time.Time) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		session, ok := s.AdabArchive.Get(sessionID)
		if !ok {
			return Result{}, notFound("adab session", sessionID)
		}
		if len(studentIDs) == 0 {
			return Result{}, model.NewValidationError("nothing to publish", model.FieldError{Field: "studentIds", Error: "at least one student is required"})
		}
		students := s.Students
		writes := make([]Write, 0, len(studentIDs))
		seen := make(map[string]bool, len(studentIDs))
		for _, id := range studentIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			st, err := student(s, id)
			if err != nil {
				return Result{}, err
			}
			copied := session.Clone()
			entry := model.DailyLog{
				ID:          model.NewID(),
				TeacherID:   by.ID,
				TeacherName: by.Name,
				Date:        date,
				IsAdab:      true,
				AdabSession: &copied,
			}
			if err := entry.Validate(); err != nil {
				return Result{}, err
			}
			st.Logs = append([]model.DailyLog{entry}, st.Logs...)
			students = students.With(st)
			writes = append(writes, upsert(model.CollectionStudents, st))
		}
		return Result{Snapshot: s.WithStudents(students), Writes: writes}, nil
	}
}

// RepushAdabSession refreshes the embedded copy of an archived session in
// every log that still waits for the parent's answer. Answered logs keep
// the version that was answered.
func RepushAdabSession(sessionID string) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		session, ok := s.AdabArchive.Get(sessionID)
		if !ok {
			return Result{}, notFound("adab session", sessionID)
		}
		students := s.Students
		var writes []Write
		for _, orig := range s.Students.All() {
			st := orig
			touched := false
			for i, l := range orig.Logs {
				if !l.IsAdab || l.AdabSession == nil || l.AdabSession.ID != sessionID || l.QuizAnswered() {
					continue
				}
				if !touched {
					st = orig.Clone()
					touched = true
				}
				copied := session.Clone()
				st.Logs[i].AdabSession = &copied
			}
			if touched {
				students = students.With(st)
				writes = append(writes, upsert(model.CollectionStudents, st))
			}
		}
		if len(writes) == 0 {
			return unchanged(s), nil
		}
		return Result{Snapshot: s.WithStudents(students), Writes: writes}, nil
	}
}
