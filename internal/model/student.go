package model

import (
	"fmt"
	"time"
)

type Student struct {
	ID          string         `json:"id" validate:"required"`
	Name        string         `json:"name" validate:"required"`
	ParentCode  string         `json:"parentCode" validate:"required"`
	ParentPhone string         `json:"parentPhone"`
	TeacherID   string         `json:"teacherId" validate:"required"`
	Logs        []DailyLog     `json:"logs"`
	Schedule    WeeklySchedule `json:"schedule"`
	Payments    []Payment      `json:"payments"`
	NextPlan    *NextPlan      `json:"nextPlan" validate:"-"`
	FeeReminder *FeeReminder   `json:"feeReminder"`
	Badges      []Badge        `json:"badges"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (s Student) EntityID() string { return s.ID }

func (s Student) Validate() error {
	errs := []error{ValidateStruct(s), s.Schedule.Validate()}
	seen := make(map[string]bool, len(s.Logs))
	for i, l := range s.Logs {
		if seen[l.ID] {
			errs = append(errs, NewValidationError("invalid student", FieldError{Field: fmt.Sprintf("logs[%d].id", i), Error: "duplicate log id"}))
		}
		seen[l.ID] = true
		if err := l.Validate(); err != nil {
			errs = append(errs, prefixFields(err, fmt.Sprintf("logs[%d]", i)))
		}
	}
	for i, p := range s.Payments {
		if err := ValidateStruct(p); err != nil {
			errs = append(errs, prefixFields(err, fmt.Sprintf("payments[%d]", i)))
		}
	}
	for i, b := range s.Badges {
		if err := ValidateStruct(b); err != nil {
			errs = append(errs, prefixFields(err, fmt.Sprintf("badges[%d]", i)))
		}
	}
	if s.NextPlan != nil {
		if err := s.NextPlan.Validate(); err != nil {
			errs = append(errs, prefixFields(err, "nextPlan"))
		}
	}
	return mergeValidation(errs...)
}

// LogIndex returns the position of the log with the given id, or -1.
func (s Student) LogIndex(logID string) int {
	for i, l := range s.Logs {
		if l.ID == logID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy the mutation layer can change freely.
func (s Student) Clone() Student {
	if s.Logs != nil {
		logs := make([]DailyLog, len(s.Logs))
		for i, l := range s.Logs {
			logs[i] = l.Clone()
		}
		s.Logs = logs
	}
	if s.Schedule != nil {
		s.Schedule = s.Schedule.Clone()
	}
	if s.Payments != nil {
		s.Payments = append([]Payment(nil), s.Payments...)
	}
	if s.Badges != nil {
		s.Badges = append([]Badge(nil), s.Badges...)
	}
	if s.NextPlan != nil {
		p := s.NextPlan.Clone()
		s.NextPlan = &p
	}
	if s.FeeReminder != nil {
		r := *s.FeeReminder
		s.FeeReminder = &r
	}
	return s
}
