package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	out := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestCompareGrades(t *testing.T) {
	order := []Grade{GradeExcellent, GradeVeryGood, GradeGood, GradeAcceptable, GradeNeedsWork, ""}
	for i := 0; i < len(order)-1; i++ {
		assert.Positive(t, CompareGrades(order[i], order[i+1]), "%s > %s", order[i], order[i+1])
		assert.Negative(t, CompareGrades(order[i+1], order[i]))
	}
	assert.Zero(t, CompareGrades(GradeGood, GradeGood))
	assert.False(t, Grade("").Valid())
	assert.Equal(t, "ممتاز", GradeExcellent.Label())
}

func TestLookupSurah(t *testing.T) {
	tests := []struct {
		name   string
		number int
		ok     bool
	}{
		{name: "الفاتحة", number: 1, ok: true},
		{name: "سورة البقرة", number: 2, ok: true},
		{name: "  الناس ", number: 114, ok: true},
		{name: "الاخلاص", number: 112, ok: true},
		{name: "الإخلاص", number: 112, ok: true},
		{name: "unknown", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := LookupSurah(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.number, s.Number)
		})
	}

	total := 0
	for n := 1; n <= 114; n++ {
		s, ok := SurahByNumber(n)
		require.True(t, ok)
		total += s.AyahCount
	}
	assert.Equal(t, 6236, total)
	_, ok := SurahByNumber(115)
	assert.False(t, ok)
}

func TestQuranAssignmentValidate(t *testing.T) {
	tests := []struct {
		name   string
		a      QuranAssignment
		fields []string
	}{
		{name: "surah range", a: QuranAssignment{Type: AssignmentSurah, Name: "الفاتحة", AyahFrom: 1, AyahTo: 7, Grade: GradeGood}},
		{name: "from after to", a: QuranAssignment{Type: AssignmentSurah, Name: "البقرة", AyahFrom: 10, AyahTo: 5}, fields: []string{"ayahTo"}},
		{name: "past the last ayah", a: QuranAssignment{Type: AssignmentSurah, Name: "الفاتحة", AyahFrom: 1, AyahTo: 8}, fields: []string{"ayahTo"}},
		{name: "missing name", a: QuranAssignment{Type: AssignmentSurah}, fields: []string{"name"}},
		{name: "cross surah", a: QuranAssignment{Type: AssignmentRange, Name: "الملك", EndName: "القلم", AyahFrom: 20, AyahTo: 5}},
		{name: "cross surah needs end", a: QuranAssignment{Type: AssignmentRange, Name: "الملك"}, fields: []string{"endName"}},
		{name: "juz", a: QuranAssignment{Type: AssignmentJuz, Juz: 30}},
		{name: "juz out of range", a: QuranAssignment{Type: AssignmentJuz, Juz: 31}, fields: []string{"juz"}},
		{name: "multi", a: QuranAssignment{Type: AssignmentMulti, Surahs: []SurahItem{{Name: "الناس", Grade: GradeGood}, {Name: "الفلق"}}}},
		{name: "multi empty", a: QuranAssignment{Type: AssignmentMulti}, fields: []string{"surahs"}},
		{name: "multi with whole grade", a: QuranAssignment{Type: AssignmentMulti, Surahs: []SurahItem{{Name: "الناس"}}, Grade: GradeGood}, fields: []string{"grade"}},
		{name: "surahs on single", a: QuranAssignment{Type: AssignmentJuz, Juz: 1, Surahs: []SurahItem{{Name: "الناس"}}}, fields: []string{"surahs"}},
		{name: "unknown grade", a: QuranAssignment{Type: AssignmentJuz, Juz: 1, Grade: "GREAT"}, fields: []string{"grade"}},
		{name: "unknown type", a: QuranAssignment{Type: "PAGE"}, fields: []string{"type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.fields, fieldsOf(t, err))
		})
	}
}

func TestEffectiveGrade(t *testing.T) {
	multi := QuranAssignment{Type: AssignmentMulti, Surahs: []SurahItem{
		{Name: "الناس", Grade: GradeExcellent},
		{Name: "الفلق", Grade: GradeAcceptable},
	}}
	assert.Equal(t, GradeAcceptable, multi.EffectiveGrade())

	multi.Surahs[1].Grade = ""
	assert.Equal(t, Grade(""), multi.EffectiveGrade())

	single := QuranAssignment{Type: AssignmentSurah, Name: "الناس", Grade: GradeVeryGood}
	assert.Equal(t, GradeVeryGood, single.EffectiveGrade())
}

func TestFormatAssignment(t *testing.T) {
	tests := []struct {
		name string
		a    QuranAssignment
		want AssignmentDisplay
	}{
		{
			name: "complete surah",
			a:    QuranAssignment{Type: AssignmentSurah, Name: "الفاتحة", AyahFrom: 1, AyahTo: 7},
			want: AssignmentDisplay{Title: "سورة الفاتحة", Subtitle: LabelCompleteSurah},
		},
		{
			name: "partial surah",
			a:    QuranAssignment{Type: AssignmentSurah, Name: "الفاتحة", AyahFrom: 1, AyahTo: 5},
			want: AssignmentDisplay{Title: "سورة الفاتحة", Subtitle: "من الآية 1 إلى الآية 5"},
		},
		{
			name: "only start ayah",
			a:    QuranAssignment{Type: AssignmentSurah, Name: "البقرة", AyahFrom: 30},
			want: AssignmentDisplay{Title: "سورة البقرة", Subtitle: "من الآية 30"},
		},
		{
			name: "cross surah",
			a:    QuranAssignment{Type: AssignmentRange, Name: "الملك", EndName: "القلم", AyahFrom: 20, AyahTo: 5},
			want: AssignmentDisplay{Title: "من سورة الملك إلى سورة القلم", Subtitle: "من الآية 20 إلى الآية 5"},
		},
		{
			name: "juz",
			a:    QuranAssignment{Type: AssignmentJuz, Juz: 30},
			want: AssignmentDisplay{Title: "الجزء 30", Subtitle: LabelCompleteJuz},
		},
		{
			name: "multi",
			a:    QuranAssignment{Type: AssignmentMulti, Surahs: []SurahItem{{Name: "الناس"}, {Name: "الفلق"}}},
			want: AssignmentDisplay{Title: LabelMultiSurah, Subtitle: "الناس، الفلق"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAssignment(tt.a))
		})
	}
}

func TestDailyLogValidate(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	quiz := &AdabSession{ID: "q", Title: "Manners", Questions: []QuizItem{{Question: "?", CorrectAnswer: "a", WrongAnswers: []string{"b"}}}}
	two, three := 2, 3

	tests := []struct {
		name    string
		log     DailyLog
		wantErr bool
	}{
		{name: "session", log: DailyLog{ID: "l", Date: day, Jadeed: &QuranAssignment{Type: AssignmentJuz, Juz: 1}}},
		{name: "absence", log: DailyLog{ID: "l", Date: day, IsAbsent: true}},
		{name: "adab", log: DailyLog{ID: "l", Date: day, IsAdab: true, AdabSession: quiz}},
		{name: "absent and adab", log: DailyLog{ID: "l", Date: day, IsAbsent: true, IsAdab: true, AdabSession: quiz}, wantErr: true},
		{name: "adab without quiz", log: DailyLog{ID: "l", Date: day, IsAdab: true}, wantErr: true},
		{name: "quiz on a session", log: DailyLog{ID: "l", Date: day, AdabSession: quiz}, wantErr: true},
		{name: "score without max", log: DailyLog{ID: "l", Date: day, IsAdab: true, AdabSession: quiz, ParentQuizScore: &two}, wantErr: true},
		{name: "score above max", log: DailyLog{ID: "l", Date: day, IsAdab: true, AdabSession: quiz, ParentQuizScore: &three, ParentQuizMax: &two}, wantErr: true},
		{name: "missing date", log: DailyLog{ID: "l"}, wantErr: true},
		{name: "bad jadeed", log: DailyLog{ID: "l", Date: day, Jadeed: &QuranAssignment{Type: AssignmentJuz}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.log.Validate()
			if tt.wantErr {
				assert.True(t, IsValidation(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	err := DailyLog{ID: "l", Date: day, Jadeed: &QuranAssignment{Type: AssignmentJuz}}.Validate()
	assert.Equal(t, []string{"jadeed.juz"}, fieldsOf(t, err))
}

func TestAdabSessionValidate(t *testing.T) {
	ok := AdabSession{ID: "a", Title: "Honesty", Questions: []QuizItem{
		{Question: "q", CorrectAnswer: "yes", WrongAnswers: []string{"no", "maybe"}},
	}}
	assert.NoError(t, ok.Validate())

	noQuestions := AdabSession{ID: "a", Title: "Honesty"}
	assert.Equal(t, []string{"questions"}, fieldsOf(t, noQuestions.Validate()))

	repeated := ok.Clone()
	repeated.Questions[0].WrongAnswers = []string{"yes", "no", "no", " "}
	assert.Len(t, fieldsOf(t, repeated.Validate()), 3)
	assert.Equal(t, []string{"no", "maybe"}, ok.Questions[0].WrongAnswers)
}

func TestStudentValidateDuplicateLogs(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	st := Student{ID: "s", Name: "S", ParentCode: "p", TeacherID: "t", Logs: []DailyLog{
		{ID: "l1", Date: day},
		{ID: "l1", Date: day, IsAbsent: true},
	}}
	assert.Contains(t, fieldsOf(t, st.Validate()), "logs[1].id")
}

func TestStudentCloneIsDeep(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	st := Student{ID: "s", Logs: []DailyLog{{ID: "l1", Date: day, Jadeed: &QuranAssignment{Type: AssignmentJuz, Juz: 1}}}}
	c := st.Clone()
	c.Logs[0].Jadeed.Juz = 2
	c.Logs[0].Notes = "changed"
	assert.Equal(t, 1, st.Logs[0].Jadeed.Juz)
	assert.Empty(t, st.Logs[0].Notes)
}

func TestAnnouncementVisibility(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)
	a := Announcement{ID: "a", AuthorID: "t1", Target: "t1", Kind: AnnouncementGeneral, Content: "x", CreatedAt: now.Add(-time.Hour), ExpiresAt: &expires}
	assert.True(t, a.IsActive(now))
	assert.False(t, a.IsActive(expires))
	assert.True(t, a.VisibleTo("t1"))
	assert.False(t, a.VisibleTo("t2"))

	a.Target = AnnouncementTargetGeneral
	assert.True(t, a.VisibleTo("t2"))
	assert.NoError(t, a.Validate())

	exam := Announcement{ID: "e", AuthorID: AdminAuthorID, Target: AnnouncementTargetGeneral, Kind: AnnouncementExamSchedule}
	assert.Equal(t, []string{"examSchedule"}, fieldsOf(t, exam.Validate()))
}

func TestWeeklySchedule(t *testing.T) {
	s := WeeklySchedule{Monday: {{Title: "Tajweed", Time: "17:00"}}}.Normalize()
	assert.Len(t, s, 7)
	assert.NotNil(t, s[Friday])
	assert.NoError(t, s.Validate())

	s[Weekday("someday")] = nil
	assert.True(t, IsValidation(s.Validate()))

	d, err := ParseWeekday("saturday")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d.Time())
	_, err = ParseWeekday("Samedi")
	assert.Error(t, err)
}
