package model

import (
	"fmt"
	"strings"
	"time"
)

// QuizItem is one multiple-choice question of an Adab quiz.
type QuizItem struct {
	ID            string   `json:"id"`
	Question      string   `json:"question" validate:"required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	WrongAnswers  []string `json:"wrongAnswers"`
}

// AdabSession is a character-education lesson with its quiz. The archive
// keeps the original; logs embed a copy taken at publish time.
type AdabSession struct {
	ID        string     `json:"id" validate:"required"`
	Title     string     `json:"title" validate:"required"`
	Questions []QuizItem `json:"questions" validate:"dive"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (s AdabSession) EntityID() string { return s.ID }

func (s AdabSession) Validate() error {
	var flds []FieldError
	if err := ValidateStruct(s); err != nil {
		if !IsValidation(err) {
			return err
		}
		flds = append(flds, err.(*ValidationError).Fields...)
	}
	if len(s.Questions) == 0 {
		flds = append(flds, FieldError{Field: "questions", Error: "at least one question is required"})
	}
	for i, q := range s.Questions {
		seen := make(map[string]bool, len(q.WrongAnswers))
		for _, w := range q.WrongAnswers {
			w = strings.TrimSpace(w)
			switch {
			case w == "":
				flds = append(flds, FieldError{Field: fmt.Sprintf("questions[%d].wrongAnswers", i), Error: "empty answer"})
			case w == strings.TrimSpace(q.CorrectAnswer):
				flds = append(flds, FieldError{Field: fmt.Sprintf("questions[%d].wrongAnswers", i), Error: "repeats the correct answer"})
			case seen[w]:
				flds = append(flds, FieldError{Field: fmt.Sprintf("questions[%d].wrongAnswers", i), Error: "duplicate answer " + w})
			}
			seen[w] = true
		}
	}
	if len(flds) > 0 {
		return NewValidationError("invalid adab session", flds...)
	}
	return nil
}

// Clone returns a deep copy, used for copy-on-publish.
func (s AdabSession) Clone() AdabSession {
	if s.Questions != nil {
		qs := make([]QuizItem, len(s.Questions))
		for i, q := range s.Questions {
			if q.WrongAnswers != nil {
				q.WrongAnswers = append([]string(nil), q.WrongAnswers...)
			}
			qs[i] = q
		}
		s.Questions = qs
	}
	return s
}
