package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifz_backend/internal/model"
	"hifz_backend/internal/progress"
	"hifz_backend/internal/util"
)

func progressService(t *testing.T) (*ProgressService, *SchoolService) {
	t.Helper()
	svc, _, _ := school(t)
	ps := NewProgressService(svc, progress.Calendar{FirstWeekday: time.Saturday, Location: time.UTC}, 5)
	ps.now = func() time.Time { return day }
	return ps, svc
}

func TestProgressLeaderboardScopes(t *testing.T) {
	ps, svc := progressService(t)
	ctx := context.Background()
	excellent := &model.QuranAssignment{Type: model.AssignmentSurah, Name: "الفاتحة", AyahFrom: 1, AyahTo: 7, Grade: model.GradeExcellent}
	_, _, err := svc.SaveDailyLog(ctx, ali, "s2", model.DailyLog{Date: day, Jadeed: excellent}, false)
	require.NoError(t, err)
	_, _, err = svc.SaveDailyLog(ctx, omar, "s3", model.DailyLog{Date: day}, false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		p       model.Principal
		teacher string
		want    []string
		err     error
	}{
		{"admin sees the school", admin, "", []string{"s2", "s3", "s1"}, nil},
		{"admin filters by teacher", admin, "t2", []string{"s3"}, nil},
		{"teacher sees own class", ali, "", []string{"s2", "s1"}, nil},
		{"parent sees the class", yusufDad, "", []string{"s2", "s1"}, nil},
		{"teacher cannot peek", ali, "t2", nil, util.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, err := ps.LeaderboardFor(tt.p, tt.teacher)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			ids := make([]string, len(board))
			for i, e := range board {
				ids[i] = e.StudentID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestProgressStudentDashboard(t *testing.T) {
	ps, svc := progressService(t)
	ctx := context.Background()
	logID := publishedQuiz(t, svc)
	_, _, err := svc.SaveDailyLog(ctx, ali, "s1", model.DailyLog{Date: day}, false)
	require.NoError(t, err)
	_, _, err = svc.PublishAnnouncement(ctx, ali, model.Announcement{Content: "for t1"})
	require.NoError(t, err)
	_, _, err = svc.PublishAnnouncement(ctx, omar, model.Announcement{Content: "for t2"})
	require.NoError(t, err)

	dash, err := ps.Student(yusufDad, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ali", dash.TeacherName)
	assert.Equal(t, 2, dash.Unseen)
	assert.Equal(t, []string{logID}, dash.PendingQuiz)
	// the delivered adab lesson counts as attendance
	assert.Equal(t, progress.Attendance{Week: 2, Month: 2}, dash.Attendance)
	assert.Equal(t, 2, dash.Week.Sessions)
	require.Len(t, dash.Announcements, 1)
	assert.Equal(t, "for t1", dash.Announcements[0].Content)

	_, err = ps.Student(yusufDad, "s2")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = ps.Student(admin, "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProgressViewFiltersByRole(t *testing.T) {
	ps, _ := progressService(t)

	tests := []struct {
		name     string
		p        model.Principal
		students []string
		codes    map[string]string
	}{
		{"admin", admin, []string{"s1", "s2", "s3"}, map[string]string{"t1": "1111", "t2": "2222"}},
		{"teacher", ali, []string{"s1", "s2"}, map[string]string{"t1": "1111", "t2": ""}},
		{"parent", yusufDad, []string{"s1"}, map[string]string{"t1": "", "t2": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ps.CurrentView(tt.p)
			ids := make([]string, len(v.Students))
			for i, st := range v.Students {
				ids[i] = st.ID
			}
			assert.ElementsMatch(t, tt.students, ids)
			for _, teacher := range v.Teachers {
				assert.Equal(t, tt.codes[teacher.ID], teacher.LoginCode, teacher.ID)
			}
			assert.Equal(t, tt.p.Role, v.Role)
		})
	}
}

func TestProgressSetCalendar(t *testing.T) {
	ps, _ := progressService(t)
	cal, err := progress.ParseCalendar("monday", "UTC")
	require.NoError(t, err)
	ps.SetCalendar(cal, 1)
	assert.Equal(t, time.Monday, ps.Calendar().FirstWeekday)
	assert.Len(t, ps.Leaderboard(""), 1)
}
