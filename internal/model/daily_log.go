package model

import (
	"fmt"
	"time"
)

type AttendanceKind string

const (
	AttendanceArrival   AttendanceKind = "arrival"
	AttendanceDeparture AttendanceKind = "departure"
)

type AttendanceRecord struct {
	Kind AttendanceKind `json:"kind" validate:"oneof=arrival departure"`
	Time string         `json:"time" validate:"required"`
}

type LogKind string

const (
	LogSession LogKind = "session"
	LogAbsence LogKind = "absence"
	LogAdab    LogKind = "adab"
)

// DailyLog is one entry of a student's record. IsAbsent and IsAdab are
// mutually exclusive; with neither set it is an ordinary session.
type DailyLog struct {
	ID              string             `json:"id" validate:"required"`
	TeacherID       string             `json:"teacherId"`
	TeacherName     string             `json:"teacherName"`
	Date            time.Time          `json:"date"`
	IsAbsent        bool               `json:"isAbsent"`
	IsAdab          bool               `json:"isAdab"`
	Attendance      []AttendanceRecord `json:"attendance" validate:"dive"`
	Jadeed          *QuranAssignment   `json:"jadeed"`
	Murajaah        []QuranAssignment  `json:"murajaah"`
	Notes           string             `json:"notes"`
	AdabSession     *AdabSession       `json:"adabSession" validate:"-"`
	ParentQuizScore *int               `json:"parentQuizScore"`
	ParentQuizMax   *int               `json:"parentQuizMax"`
	SeenByParent    bool               `json:"seenByParent"`
	SeenAt          *time.Time         `json:"seenAt"`
}

func (l DailyLog) Kind() LogKind {
	switch {
	case l.IsAbsent:
		return LogAbsence
	case l.IsAdab:
		return LogAdab
	}
	return LogSession
}

func (l DailyLog) IsSession() bool {
	return l.Kind() == LogSession
}

func (l DailyLog) HasQuiz() bool {
	return l.IsAdab && l.AdabSession != nil && len(l.AdabSession.Questions) > 0
}

func (l DailyLog) QuizAnswered() bool {
	return l.ParentQuizScore != nil
}

func (l DailyLog) Validate() error {
	var errs []error
	if err := ValidateStruct(l); err != nil {
		errs = append(errs, err)
	}

	var flds []FieldError
	if l.IsAbsent && l.IsAdab {
		flds = append(flds, FieldError{Field: "isAdab", Error: "a log cannot be both absent and adab"})
	}
	if l.Date.IsZero() {
		flds = append(flds, FieldError{Field: "date", Error: "is required"})
	}
	if l.IsAdab && l.AdabSession == nil {
		flds = append(flds, FieldError{Field: "adabSession", Error: "is required for adab logs"})
	}
	if !l.IsAdab && (l.AdabSession != nil || l.ParentQuizScore != nil) {
		flds = append(flds, FieldError{Field: "adabSession", Error: "only allowed on adab logs"})
	}
	if (l.ParentQuizScore == nil) != (l.ParentQuizMax == nil) {
		flds = append(flds, FieldError{Field: "parentQuizScore", Error: "score and max go together"})
	} else if l.ParentQuizScore != nil && (*l.ParentQuizScore < 0 || *l.ParentQuizScore > *l.ParentQuizMax) {
		flds = append(flds, FieldError{Field: "parentQuizScore", Error: "must be between 0 and max"})
	}
	if len(flds) > 0 {
		errs = append(errs, NewValidationError("invalid daily log", flds...))
	}

	if l.Jadeed != nil {
		if err := l.Jadeed.Validate(); err != nil {
			errs = append(errs, prefixFields(err, "jadeed"))
		}
	}
	for i, m := range l.Murajaah {
		if err := m.Validate(); err != nil {
			errs = append(errs, prefixFields(err, fmt.Sprintf("murajaah[%d]", i)))
		}
	}
	if l.AdabSession != nil {
		if err := l.AdabSession.Validate(); err != nil {
			errs = append(errs, prefixFields(err, "adabSession"))
		}
	}
	return mergeValidation(errs...)
}

func (l DailyLog) Clone() DailyLog {
	if l.Attendance != nil {
		l.Attendance = append([]AttendanceRecord(nil), l.Attendance...)
	}
	if l.Jadeed != nil {
		j := l.Jadeed.Clone()
		l.Jadeed = &j
	}
	if l.Murajaah != nil {
		ms := make([]QuranAssignment, len(l.Murajaah))
		for i, m := range l.Murajaah {
			ms[i] = m.Clone()
		}
		l.Murajaah = ms
	}
	if l.AdabSession != nil {
		s := l.AdabSession.Clone()
		l.AdabSession = &s
	}
	l.ParentQuizScore = cloneInt(l.ParentQuizScore)
	l.ParentQuizMax = cloneInt(l.ParentQuizMax)
	if l.SeenAt != nil {
		t := *l.SeenAt
		l.SeenAt = &t
	}
	return l
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SameDay reports whether two instants fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
