package model

import (
	"fmt"
	"time"
)

type Weekday string

const (
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
)

// Weekdays in school order.
var Weekdays = []Weekday{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayTime = map[Weekday]time.Weekday{
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
}

func (d Weekday) Valid() bool {
	_, ok := weekdayTime[d]
	return ok
}

func (d Weekday) Time() time.Weekday {
	return weekdayTime[d]
}

func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

type WeeklyEvent struct {
	ID    string `json:"id"`
	Title string `json:"title" validate:"required"`
	Time  string `json:"time"`
	Note  string `json:"note"`
}

// WeeklySchedule holds the events of each of the seven weekdays.
type WeeklySchedule map[Weekday][]WeeklyEvent

func NewWeeklySchedule() WeeklySchedule {
	s := make(WeeklySchedule, len(Weekdays))
	for _, d := range Weekdays {
		s[d] = []WeeklyEvent{}
	}
	return s
}

// Normalize returns a copy that has an entry for every weekday.
func (s WeeklySchedule) Normalize() WeeklySchedule {
	out := s.Clone()
	for _, d := range Weekdays {
		if out[d] == nil {
			out[d] = []WeeklyEvent{}
		}
	}
	return out
}

func (s WeeklySchedule) Validate() error {
	var flds []FieldError
	for day, events := range s {
		if !day.Valid() {
			flds = append(flds, FieldError{Field: "schedule." + string(day), Error: "unknown weekday"})
			continue
		}
		for i, ev := range events {
			if err := ValidateStruct(ev); err != nil {
				flds = append(flds, FieldError{Field: fmt.Sprintf("schedule.%s[%d]", day, i), Error: err.Error()})
			}
		}
	}
	if len(flds) > 0 {
		return NewValidationError("invalid schedule", flds...)
	}
	return nil
}

func (s WeeklySchedule) Clone() WeeklySchedule {
	out := make(WeeklySchedule, len(s))
	for d, events := range s {
		if events == nil {
			out[d] = nil
			continue
		}
		out[d] = append([]WeeklyEvent{}, events...)
	}
	return out
}
