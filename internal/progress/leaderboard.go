package progress

import (
	"sort"
	"time"

	"hifz_backend/internal/model"
)

const (
	PointsPerSession   = 10
	PointsPerExcellent = 5
	PointsPerBadge     = 20

	DefaultLeaderboardSize = 5
)

type LeaderboardEntry struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	TeacherID string `json:"teacherId"`
	Score     int    `json:"score"`
	Sessions  int    `json:"sessions"`
	Excellent int    `json:"excellent"`
	Badges    int    `json:"badges"`
}

// ScoreWeek scores one student over [start, end). Every log that is not
// an absence counts, adab lessons included. The jadeed bonus uses the
// assignment's effective grade.
func ScoreWeek(st model.Student, start, end time.Time) LeaderboardEntry {
	e := LeaderboardEntry{StudentID: st.ID, Name: st.Name, TeacherID: st.TeacherID}
	for _, l := range st.Logs {
		if l.IsAbsent || !within(l.Date, start, end) {
			continue
		}
		e.Sessions++
		if l.Jadeed != nil && l.Jadeed.EffectiveGrade() == model.GradeExcellent {
			e.Excellent++
		}
	}
	for _, b := range st.Badges {
		if within(b.Date, start, end) {
			e.Badges++
		}
	}
	e.Score = e.Sessions*PointsPerSession + e.Excellent*PointsPerExcellent + e.Badges*PointsPerBadge
	return e
}

// WeeklyLeaderboard ranks students by their score for the week containing
// now and returns the best limit of them. Equal scores keep input order.
func WeeklyLeaderboard(students []model.Student, cal Calendar, now time.Time, limit int) []LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	start, end := cal.Week(now)
	entries := make([]LeaderboardEntry, len(students))
	for i, st := range students {
		entries[i] = ScoreWeek(st, start, end)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
