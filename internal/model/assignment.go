package model

import (
	"fmt"
	"strings"
)

type AssignmentType string

const (
	AssignmentSurah AssignmentType = "SURAH"
	AssignmentRange AssignmentType = "RANGE"
	AssignmentJuz   AssignmentType = "JUZ"
	AssignmentMulti AssignmentType = "MULTI"
)

// SurahItem is one graded entry of a multi-surah assignment.
type SurahItem struct {
	Name  string `json:"name"`
	Grade Grade  `json:"grade"`
}

// QuranAssignment is a jadeed or murajaah portion. Which fields are used
// depends on Type:
//
//	SURAH  Name, AyahFrom, AyahTo
//	RANGE  Name/AyahFrom to EndName/AyahTo
//	JUZ    Juz
//	MULTI  Surahs (graded one by one)
//
// An ayah of zero means "not given".
type QuranAssignment struct {
	Type     AssignmentType `json:"type"`
	Name     string         `json:"name"`
	EndName  string         `json:"endName"`
	AyahFrom int            `json:"ayahFrom"`
	AyahTo   int            `json:"ayahTo"`
	Juz      int            `json:"juz"`
	Surahs   []SurahItem    `json:"surahs"`
	Grade    Grade          `json:"grade"`
}

const (
	LabelCompleteSurah = "(كاملة)"
	LabelCompleteJuz   = "(كامل)"
	LabelMultiSurah    = "عدة سور"
)

func (a QuranAssignment) Validate() error {
	var flds []FieldError
	add := func(field, msg string) { flds = append(flds, FieldError{Field: field, Error: msg}) }

	if a.AyahFrom < 0 {
		add("ayahFrom", "must not be negative")
	}
	if a.AyahTo < 0 {
		add("ayahTo", "must not be negative")
	}
	if a.Grade != "" && !a.Grade.Valid() {
		add("grade", "unknown grade")
	}

	switch a.Type {
	case AssignmentSurah:
		if strings.TrimSpace(a.Name) == "" {
			add("name", "is required")
		}
		if a.AyahFrom > 0 && a.AyahTo > 0 && a.AyahFrom > a.AyahTo {
			add("ayahTo", "must not be before ayahFrom")
		}
		if s, ok := LookupSurah(a.Name); ok && a.AyahTo > s.AyahCount {
			add("ayahTo", fmt.Sprintf("surah %s has only %d ayahs", s.Name, s.AyahCount))
		}
	case AssignmentRange:
		if strings.TrimSpace(a.Name) == "" {
			add("name", "is required")
		}
		if strings.TrimSpace(a.EndName) == "" {
			add("endName", "is required")
		}
		if normalizeSurahName(a.Name) == normalizeSurahName(a.EndName) &&
			a.AyahFrom > 0 && a.AyahTo > 0 && a.AyahFrom > a.AyahTo {
			add("ayahTo", "must not be before ayahFrom")
		}
	case AssignmentJuz:
		if a.Juz < 1 || a.Juz > JuzCount {
			add("juz", fmt.Sprintf("must be between 1 and %d", JuzCount))
		}
	case AssignmentMulti:
		if len(a.Surahs) == 0 {
			add("surahs", "at least one surah is required")
		}
		for i, item := range a.Surahs {
			if strings.TrimSpace(item.Name) == "" {
				add(fmt.Sprintf("surahs[%d].name", i), "is required")
			}
			if item.Grade != "" && !item.Grade.Valid() {
				add(fmt.Sprintf("surahs[%d].grade", i), "unknown grade")
			}
		}
		if a.Grade != "" {
			add("grade", "multi-surah assignments are graded per surah")
		}
	default:
		add("type", "unknown assignment type")
	}

	if a.Type != AssignmentMulti && len(a.Surahs) > 0 {
		add("surahs", "only allowed for multi-surah assignments")
	}

	if len(flds) > 0 {
		return NewValidationError("invalid assignment", flds...)
	}
	return nil
}

// EffectiveGrade is the grade of the whole assignment. A multi-surah
// assignment takes its weakest item and is ungraded until every item is.
func (a QuranAssignment) EffectiveGrade() Grade {
	if a.Type != AssignmentMulti {
		return a.Grade
	}
	if len(a.Surahs) == 0 {
		return ""
	}
	lowest := GradeExcellent
	for _, item := range a.Surahs {
		if !item.Grade.Valid() {
			return ""
		}
		if CompareGrades(item.Grade, lowest) < 0 {
			lowest = item.Grade
		}
	}
	return lowest
}

// IsCompleteSurah reports a SURAH assignment covering the whole surah.
func (a QuranAssignment) IsCompleteSurah() bool {
	if a.Type != AssignmentSurah || a.AyahFrom != 1 {
		return false
	}
	s, ok := LookupSurah(a.Name)
	return ok && a.AyahTo >= s.AyahCount
}

// AssignmentDisplay is the display-ready form of an assignment.
type AssignmentDisplay struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

func FormatAssignment(a QuranAssignment) AssignmentDisplay {
	switch a.Type {
	case AssignmentSurah:
		d := AssignmentDisplay{Title: "سورة " + strings.TrimSpace(a.Name)}
		switch {
		case a.IsCompleteSurah():
			d.Subtitle = LabelCompleteSurah
		case a.AyahFrom > 0 && a.AyahTo > 0:
			d.Subtitle = ayahSpan(a.AyahFrom, a.AyahTo)
		case a.AyahFrom > 0:
			d.Subtitle = fmt.Sprintf("من الآية %d", a.AyahFrom)
		case a.AyahTo > 0:
			d.Subtitle = fmt.Sprintf("إلى الآية %d", a.AyahTo)
		}
		return d
	case AssignmentRange:
		d := AssignmentDisplay{
			Title: fmt.Sprintf("من سورة %s إلى سورة %s", strings.TrimSpace(a.Name), strings.TrimSpace(a.EndName)),
		}
		if a.AyahFrom > 0 && a.AyahTo > 0 {
			d.Subtitle = ayahSpan(a.AyahFrom, a.AyahTo)
		}
		return d
	case AssignmentJuz:
		return AssignmentDisplay{Title: fmt.Sprintf("الجزء %d", a.Juz), Subtitle: LabelCompleteJuz}
	case AssignmentMulti:
		names := make([]string, 0, len(a.Surahs))
		for _, item := range a.Surahs {
			names = append(names, strings.TrimSpace(item.Name))
		}
		return AssignmentDisplay{Title: LabelMultiSurah, Subtitle: strings.Join(names, "، ")}
	}
	return AssignmentDisplay{Title: strings.TrimSpace(a.Name)}
}

func ayahSpan(from, to int) string {
	return fmt.Sprintf("من الآية %d إلى الآية %d", from, to)
}

func (a QuranAssignment) Clone() QuranAssignment {
	if a.Surahs != nil {
		a.Surahs = append([]SurahItem(nil), a.Surahs...)
	}
	return a
}
