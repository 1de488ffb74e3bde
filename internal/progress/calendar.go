// Package progress computes the derived views of a snapshot: the weekly
// leaderboard, attendance counts and quiz grading. Everything here is a
// pure function of its inputs.
package progress

import (
	"fmt"
	"strings"
	"time"

	"hifz_backend/internal/model"
)

// Calendar fixes what "this week" means for the school.
type Calendar struct {
	FirstWeekday time.Weekday
	Location     *time.Location
}

func DefaultCalendar() Calendar {
	return Calendar{FirstWeekday: time.Saturday, Location: time.Local}
}

// ParseCalendar builds a calendar from a weekday name such as "saturday"
// and an IANA zone name. An empty zone means the process zone.
func ParseCalendar(firstWeekday, timezone string) (Calendar, error) {
	day, err := model.ParseWeekday(strings.ToLower(strings.TrimSpace(firstWeekday)))
	if err != nil {
		return Calendar{}, err
	}
	loc := time.Local
	if timezone != "" {
		if loc, err = time.LoadLocation(timezone); err != nil {
			return Calendar{}, fmt.Errorf("school timezone: %w", err)
		}
	}
	return Calendar{FirstWeekday: day.Time(), Location: loc}, nil
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Calendar) midnight(t time.Time) time.Time {
	t = t.In(c.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc())
}

// WeekStart is local midnight of the most recent first weekday, which is
// today when today is the first weekday.
func (c Calendar) WeekStart(now time.Time) time.Time {
	day := c.midnight(now)
	back := (int(day.Weekday()) - int(c.FirstWeekday) + 7) % 7
	return day.AddDate(0, 0, -back)
}

// Week returns [start, end) of the week containing now.
func (c Calendar) Week(now time.Time) (time.Time, time.Time) {
	start := c.WeekStart(now)
	return start, start.AddDate(0, 0, 7)
}

// Month returns [start, end) of the calendar month containing now.
func (c Calendar) Month(now time.Time) (time.Time, time.Time) {
	now = now.In(c.loc())
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, c.loc())
	return start, start.AddDate(0, 1, 0)
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
