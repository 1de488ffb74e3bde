package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifz_backend/internal/model"
)

var utcSaturday = Calendar{FirstWeekday: time.Saturday, Location: time.UTC}

func TestWeekStart(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*3600)
	tests := []struct {
		name string
		cal  Calendar
		now  time.Time
		want time.Time
	}{
		{
			name: "midweek",
			cal:  utcSaturday,
			now:  time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC), // wednesday
			want: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "on the first weekday",
			cal:  utcSaturday,
			now:  time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "last day of the week",
			cal:  utcSaturday,
			now:  time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC), // friday
			want: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday weeks",
			cal:  Calendar{FirstWeekday: time.Sunday, Location: time.UTC},
			now:  time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), // saturday
			want: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "local midnight in school timezone",
			cal:  Calendar{FirstWeekday: time.Saturday, Location: riyadh},
			now:  time.Date(2024, 3, 8, 22, 0, 0, 0, time.UTC), // saturday 01:00 in riyadh
			want: time.Date(2024, 3, 9, 0, 0, 0, 0, riyadh),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cal.WeekStart(tt.now)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func session(date time.Time, jadeed *model.QuranAssignment) model.DailyLog {
	return model.DailyLog{ID: model.NewID(), Date: date, Jadeed: jadeed}
}

func TestScoreWeekExample(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	excellent := &model.QuranAssignment{Type: model.AssignmentSurah, Name: "الملك", AyahFrom: 1, AyahTo: 10, Grade: model.GradeExcellent}
	good := &model.QuranAssignment{Type: model.AssignmentSurah, Name: "الملك", AyahFrom: 11, AyahTo: 20, Grade: model.GradeGood}

	st := model.Student{
		ID:   "s1",
		Name: "Yusuf",
		Logs: []model.DailyLog{
			session(time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC), excellent),
			session(time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC), good),
			session(time.Date(2024, 3, 12, 16, 0, 0, 0, time.UTC), nil),
			{ID: "absent", Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), IsAbsent: true},
			session(time.Date(2024, 3, 8, 16, 0, 0, 0, time.UTC), excellent), // last week
		},
		Badges: []model.Badge{
			{ID: "b1", Title: "Juz Amma", Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
			{ID: "b0", Title: "old", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	start, end := utcSaturday.Week(now)
	got := ScoreWeek(st, start, end)
	assert.Equal(t, 55, got.Score)
	assert.Equal(t, 3, got.Sessions)
	assert.Equal(t, 1, got.Excellent)
	assert.Equal(t, 1, got.Badges)
}

func adabLog(date time.Time) model.DailyLog {
	return model.DailyLog{
		ID:     model.NewID(),
		Date:   date,
		IsAdab: true,
		AdabSession: &model.AdabSession{ID: "a1", Title: "Honesty", Questions: []model.QuizItem{
			{ID: "q1", Question: "Is lying allowed?", CorrectAnswer: "No", WrongAnswers: []string{"Yes"}},
		}},
	}
}

func TestScoreWeekCountsAdabLessons(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	start, end := utcSaturday.Week(now)
	tests := []struct {
		name     string
		logs     []model.DailyLog
		want     int
		sessions int
	}{
		{name: "adab only", logs: []model.DailyLog{adabLog(now)}, want: 10, sessions: 1},
		{name: "adab and session", logs: []model.DailyLog{adabLog(now), session(now.AddDate(0, 0, -1), nil)}, want: 20, sessions: 2},
		{name: "adab last week", logs: []model.DailyLog{adabLog(start.AddDate(0, 0, -1))}, want: 0, sessions: 0},
		{name: "absent", logs: []model.DailyLog{{ID: "x", Date: now, IsAbsent: true}}, want: 0, sessions: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreWeek(model.Student{ID: "s", Logs: tt.logs}, start, end)
			assert.Equal(t, tt.want, got.Score)
			assert.Equal(t, tt.sessions, got.Sessions)
			assert.Zero(t, got.Excellent)
		})
	}
}

func TestScoreWeekMultiSurahUsesWeakestGrade(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	start, end := utcSaturday.Week(now)
	multi := func(grades ...model.Grade) *model.QuranAssignment {
		a := &model.QuranAssignment{Type: model.AssignmentMulti}
		for _, g := range grades {
			a.Surahs = append(a.Surahs, model.SurahItem{Name: "الناس", Grade: g})
		}
		return a
	}
	tests := []struct {
		name   string
		jadeed *model.QuranAssignment
		want   int
	}{
		{name: "all excellent", jadeed: multi(model.GradeExcellent, model.GradeExcellent), want: 15},
		{name: "one weaker", jadeed: multi(model.GradeExcellent, model.GradeGood), want: 10},
		{name: "partly ungraded", jadeed: multi(model.GradeExcellent, ""), want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := model.Student{ID: "s", Logs: []model.DailyLog{session(now, tt.jadeed)}}
			assert.Equal(t, tt.want, ScoreWeek(st, start, end).Score)
		})
	}
}

func TestWeeklyLeaderboard(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	withSessions := func(id string, n int) model.Student {
		st := model.Student{ID: id, Name: id}
		for i := 0; i < n; i++ {
			st.Logs = append(st.Logs, session(now.AddDate(0, 0, -i), nil))
		}
		return st
	}
	students := []model.Student{
		withSessions("a", 1),
		withSessions("b", 3),
		withSessions("c", 1),
		withSessions("d", 2),
		withSessions("e", 0),
		withSessions("f", 1),
		withSessions("g", 4),
	}

	board := WeeklyLeaderboard(students, utcSaturday, now, 5)
	require.Len(t, board, 5)
	var ids []string
	for _, e := range board {
		ids = append(ids, e.StudentID)
	}
	assert.Equal(t, []string{"g", "b", "d", "a", "c"}, ids)
	assert.Equal(t, 40, board[0].Score)

	assert.Len(t, WeeklyLeaderboard(students[:2], utcSaturday, now, 0), 2)
}

func TestAttendanceStats(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	st := model.Student{Logs: []model.DailyLog{
		session(time.Date(2024, 3, 12, 16, 0, 0, 0, time.UTC), nil),
		session(time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC), nil),
		session(time.Date(2024, 3, 2, 16, 0, 0, 0, time.UTC), nil),
		{ID: "x", Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), IsAbsent: true},
		session(time.Date(2024, 2, 28, 16, 0, 0, 0, time.UTC), nil),
	}}
	got := AttendanceStats(st, utcSaturday, now)
	assert.Equal(t, Attendance{Week: 2, Month: 3}, got)

	st.Logs = append(st.Logs, adabLog(time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC)))
	got = AttendanceStats(st, utcSaturday, now)
	assert.Equal(t, Attendance{Week: 3, Month: 4}, got)
}

func quiz() []model.QuizItem {
	return []model.QuizItem{
		{ID: "q1", Question: "Greeting?", CorrectAnswer: "As-salamu alaykum", WrongAnswers: []string{"Hello", "Bye"}},
		{ID: "q2", Question: "Before eating?", CorrectAnswer: "Bismillah", WrongAnswers: []string{"Alhamdulillah"}},
		{ID: "q3", Question: "After eating?", CorrectAnswer: "Alhamdulillah", WrongAnswers: []string{"Bismillah"}},
	}
}

func TestGradeQuiz(t *testing.T) {
	score, total := GradeQuiz(quiz(), []string{"As-salamu alaykum", "Alhamdulillah", "Alhamdulillah"})
	assert.Equal(t, 2, score)
	assert.Equal(t, 3, total)

	score, total = GradeQuiz(quiz(), []string{"As-salamu alaykum"})
	assert.Equal(t, 1, score)
	assert.Equal(t, 3, total)
}

func TestAttemptStateMachine(t *testing.T) {
	a, err := NewAttempt(quiz())
	require.NoError(t, err)
	assert.Equal(t, AttemptIdle, a.State)

	_, err = a.Confirm()
	assert.True(t, model.IsInvalidState(err))
	assert.True(t, model.IsInvalidState(a.Next()))
	assert.True(t, model.IsValidation(a.Select("not offered")))

	require.NoError(t, a.Select("Hello"))
	assert.Equal(t, AttemptConfirming, a.State)
	require.NoError(t, a.Cancel())
	assert.Equal(t, AttemptIdle, a.State)

	require.NoError(t, a.Select("Hello"))
	require.NoError(t, a.Select("As-salamu alaykum"))
	correct, err := a.Confirm()
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, AttemptResult, a.State)

	// a locked answer cannot change
	assert.True(t, model.IsInvalidState(a.Select("Hello")))
	assert.True(t, model.IsInvalidState(a.Cancel()))

	require.NoError(t, a.Next())
	assert.Equal(t, 1, a.Current)
	require.NoError(t, a.Select("Alhamdulillah"))
	correct, err = a.Confirm()
	require.NoError(t, err)
	assert.False(t, correct)
	require.NoError(t, a.Next())

	assert.ElementsMatch(t, []string{"Alhamdulillah", "Bismillah"}, a.Choices())
	require.NoError(t, a.Select("Alhamdulillah"))
	_, err = a.Confirm()
	require.NoError(t, err)
	require.NoError(t, a.Next())
	assert.True(t, a.Finished())
	assert.True(t, model.IsInvalidState(a.Select("Bismillah")))

	score, total := a.Score()
	assert.Equal(t, 2, score)
	assert.Equal(t, 3, total)
}

func TestNewAttemptNeedsQuestions(t *testing.T) {
	_, err := NewAttempt(nil)
	assert.True(t, model.IsInvalidState(err))
}

func TestParseCalendar(t *testing.T) {
	cal, err := ParseCalendar(" Sunday ", "UTC")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, cal.FirstWeekday)
	assert.Equal(t, time.UTC, cal.Location)

	cal, err = ParseCalendar("saturday", "")
	require.NoError(t, err)
	assert.Equal(t, time.Local, cal.Location)

	_, err = ParseCalendar("someday", "UTC")
	assert.Error(t, err)
	_, err = ParseCalendar("monday", "Mars/Olympus")
	assert.Error(t, err)
}
