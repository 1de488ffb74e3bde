package progress

import (
	"time"

	"hifz_backend/internal/model"
)

type Attendance struct {
	Week  int `json:"week"`
	Month int `json:"month"`
}

// AttendanceStats counts the logs of the current week and month that are
// not absences.
func AttendanceStats(st model.Student, cal Calendar, now time.Time) Attendance {
	weekStart, weekEnd := cal.Week(now)
	monthStart, monthEnd := cal.Month(now)
	var a Attendance
	for _, l := range st.Logs {
		if l.IsAbsent {
			continue
		}
		if within(l.Date, weekStart, weekEnd) {
			a.Week++
		}
		if within(l.Date, monthStart, monthEnd) {
			a.Month++
		}
	}
	return a
}
