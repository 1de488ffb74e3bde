package service

import (
	"context"
	"sync"

	"hifz_backend/internal/model"
	"hifz_backend/internal/progress"
	"hifz_backend/internal/util"
)

// AttemptView is what a parent sees of an attempt in progress.
type AttemptView struct {
	State    progress.AttemptState `json:"state"`
	Current  int                   `json:"current"`
	Total    int                   `json:"total"`
	Question string                `json:"question,omitempty"`
	Choices  []string              `json:"choices,omitempty"`
	Selected string                `json:"selected,omitempty"`
	Correct  *bool                 `json:"correct,omitempty"`
	Answer   string                `json:"correctAnswer,omitempty"`
	Score    *int                  `json:"score,omitempty"`
}

type quizAttempt struct {
	*progress.Attempt
	choices []string
}

func (a *quizAttempt) shuffle() {
	a.choices = a.Choices()
}

func (a *quizAttempt) view() AttemptView {
	v := AttemptView{State: a.State, Current: a.Current, Total: len(a.Items), Selected: a.Selected}
	if a.Finished() {
		score, _ := a.Score()
		v.Score = &score
		return v
	}
	q := a.Question()
	v.Question = q.Question
	v.Choices = a.choices
	if a.State == progress.AttemptResult {
		correct := a.Correct
		v.Correct = &correct
		v.Answer = q.CorrectAnswer
	}
	return v
}

// QuizAttemptService keeps parents' quiz attempts between requests. An
// attempt lives in memory only; the finished score is written to the log.
type QuizAttemptService struct {
	school *SchoolService

	mu       sync.Mutex
	attempts map[string]*quizAttempt
}

func NewQuizAttemptService(school *SchoolService) *QuizAttemptService {
	return &QuizAttemptService{school: school, attempts: make(map[string]*quizAttempt)}
}

func attemptKey(studentID, logID string) string {
	return studentID + "/" + logID
}

// Start begins (or restarts) an attempt at the quiz of an adab log.
func (s *QuizAttemptService) Start(p model.Principal, studentID, logID string) (AttemptView, error) {
	st, ok := s.school.Snapshot().Students.Get(studentID)
	if !ok {
		return AttemptView{}, notFound("student", studentID)
	}
	if !p.CanManageStudent(st.ID, st.TeacherID) {
		return AttemptView{}, util.ErrPermissionDenied
	}
	i := st.LogIndex(logID)
	if i < 0 {
		return AttemptView{}, notFound("log", logID)
	}
	l := st.Logs[i]
	if !l.HasQuiz() {
		return AttemptView{}, model.NewInvalidStateError("log " + logID + " has no adab quiz")
	}
	if l.QuizAnswered() {
		return AttemptView{}, model.NewInvalidStateError("quiz of log " + logID + " is already answered")
	}
	att, err := progress.NewAttempt(l.AdabSession.Clone().Questions)
	if err != nil {
		return AttemptView{}, err
	}
	qa := &quizAttempt{Attempt: att}
	qa.shuffle()

	s.mu.Lock()
	s.attempts[attemptKey(studentID, logID)] = qa
	s.mu.Unlock()
	return qa.view(), nil
}

func (s *QuizAttemptService) with(p model.Principal, studentID, logID string, fn func(a *quizAttempt) error) (AttemptView, error) {
	if p.Role == model.RoleParent && p.StudentID != studentID {
		return AttemptView{}, util.ErrPermissionDenied
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptKey(studentID, logID)]
	if !ok {
		return AttemptView{}, util.ErrNoAttempt
	}
	if err := fn(a); err != nil {
		return AttemptView{}, err
	}
	return a.view(), nil
}

func (s *QuizAttemptService) Current(p model.Principal, studentID, logID string) (AttemptView, error) {
	return s.with(p, studentID, logID, func(*quizAttempt) error { return nil })
}

func (s *QuizAttemptService) Select(p model.Principal, studentID, logID, answer string) (AttemptView, error) {
	return s.with(p, studentID, logID, func(a *quizAttempt) error { return a.Select(answer) })
}

func (s *QuizAttemptService) Cancel(p model.Principal, studentID, logID string) (AttemptView, error) {
	return s.with(p, studentID, logID, func(a *quizAttempt) error { return a.Cancel() })
}

func (s *QuizAttemptService) Confirm(p model.Principal, studentID, logID string) (AttemptView, error) {
	return s.with(p, studentID, logID, func(a *quizAttempt) error {
		_, err := a.Confirm()
		return err
	})
}

// Next moves on to the following question. After the last one the score
// is recorded on the log, which also marks it seen.
func (s *QuizAttemptService) Next(ctx context.Context, p model.Principal, studentID, logID string) (AttemptView, error) {
	var (
		finished     *quizAttempt
		score, total int
	)
	view, err := s.with(p, studentID, logID, func(a *quizAttempt) error {
		if err := a.Next(); err != nil {
			return err
		}
		if !a.Finished() {
			a.shuffle()
			return nil
		}
		finished = a
		score, total = a.Score()
		return nil
	})
	if err != nil || finished == nil {
		return view, err
	}

	if _, err := s.school.RecordQuizAnswer(ctx, p, studentID, logID, score, total); err != nil {
		return view, err
	}
	s.forget(attemptKey(studentID, logID), finished)
	return view, nil
}

// forget drops the attempt stored under key if it is still a.
func (s *QuizAttemptService) forget(key string, a *quizAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts[key] == a {
		delete(s.attempts, key)
	}
}

// Submit grades a whole answer list at once, for clients that run the
// attempt themselves.
func (s *QuizAttemptService) Submit(ctx context.Context, p model.Principal, studentID, logID string, answers []string) (AttemptView, error) {
	st, ok := s.school.Snapshot().Students.Get(studentID)
	if !ok {
		return AttemptView{}, notFound("student", studentID)
	}
	i := st.LogIndex(logID)
	if i < 0 {
		return AttemptView{}, notFound("log", logID)
	}
	l := st.Logs[i]
	if !l.HasQuiz() {
		return AttemptView{}, model.NewInvalidStateError("log " + logID + " has no adab quiz")
	}
	score, total := progress.GradeQuiz(l.AdabSession.Questions, answers)
	if _, err := s.school.RecordQuizAnswer(ctx, p, studentID, logID, score, total); err != nil {
		return AttemptView{}, err
	}
	s.mu.Lock()
	delete(s.attempts, attemptKey(studentID, logID))
	s.mu.Unlock()
	return AttemptView{State: progress.AttemptFinished, Current: total - 1, Total: total, Score: &score}, nil
}
