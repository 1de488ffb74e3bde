package progress

import (
	"math/rand/v2"

	"hifz_backend/internal/model"
)

// GradeQuiz counts the answers that equal the correct answer at the same
// position. Missing answers count as wrong.
func GradeQuiz(items []model.QuizItem, answers []string) (score, total int) {
	for i, item := range items {
		if i < len(answers) && answers[i] == item.CorrectAnswer {
			score++
		}
	}
	return score, len(items)
}

type AttemptState string

const (
	AttemptIdle       AttemptState = "IDLE"
	AttemptConfirming AttemptState = "CONFIRMING"
	AttemptResult     AttemptState = "RESULT"
	AttemptFinished   AttemptState = "FINISHED"
)

// Attempt is a parent's walk through a quiz, one question at a time:
// select an answer, confirm it (which locks it and shows whether it was
// right), then move on. After the last question the attempt is finished.
type Attempt struct {
	Items    []model.QuizItem `json:"-"`
	State    AttemptState     `json:"state"`
	Current  int              `json:"current"`
	Selected string           `json:"selected,omitempty"`
	Answers  []string         `json:"answers"`
	Correct  bool             `json:"correct"`
}

func NewAttempt(items []model.QuizItem) (*Attempt, error) {
	if len(items) == 0 {
		return nil, model.NewInvalidStateError("quiz has no questions")
	}
	return &Attempt{
		Items:   items,
		State:   AttemptIdle,
		Answers: make([]string, 0, len(items)),
	}, nil
}

// Question returns the question being answered.
func (a *Attempt) Question() model.QuizItem {
	return a.Items[a.Current]
}

// Choices returns the answers of the current question in random order.
func (a *Attempt) Choices() []string {
	q := a.Question()
	choices := append([]string{q.CorrectAnswer}, q.WrongAnswers...)
	rand.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
	return choices
}

// Select picks an answer. The choice may change until it is confirmed.
func (a *Attempt) Select(answer string) error {
	if a.State != AttemptIdle && a.State != AttemptConfirming {
		return model.NewInvalidStateError("answer already locked")
	}
	if !a.isChoice(answer) {
		return model.NewValidationError("invalid answer", model.FieldError{Field: "answer", Error: "not one of the choices"})
	}
	a.Selected = answer
	a.State = AttemptConfirming
	return nil
}

// Cancel drops the selection before it is confirmed.
func (a *Attempt) Cancel() error {
	if a.State != AttemptConfirming {
		return model.NewInvalidStateError("nothing to cancel")
	}
	a.Selected = ""
	a.State = AttemptIdle
	return nil
}

// Confirm locks the selected answer and reports whether it is correct.
// A confirmed answer cannot be changed.
func (a *Attempt) Confirm() (bool, error) {
	if a.State != AttemptConfirming {
		return false, model.NewInvalidStateError("no answer selected")
	}
	a.Answers = append(a.Answers, a.Selected)
	a.Correct = a.Selected == a.Question().CorrectAnswer
	a.State = AttemptResult
	return a.Correct, nil
}

// Next moves to the following question, or finishes after the last one.
func (a *Attempt) Next() error {
	if a.State != AttemptResult {
		return model.NewInvalidStateError("current answer not confirmed")
	}
	a.Selected = ""
	a.Correct = false
	if a.Current+1 >= len(a.Items) {
		a.State = AttemptFinished
		return nil
	}
	a.Current++
	a.State = AttemptIdle
	return nil
}

func (a *Attempt) Finished() bool {
	return a.State == AttemptFinished
}

// Score grades the confirmed answers.
func (a *Attempt) Score() (score, total int) {
	return GradeQuiz(a.Items, a.Answers)
}

func (a *Attempt) isChoice(answer string) bool {
	q := a.Question()
	if answer == q.CorrectAnswer {
		return true
	}
	for _, w := range q.WrongAnswers {
		if answer == w {
			return true
		}
	}
	return false
}
