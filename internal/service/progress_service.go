package service

import (
	"sort"
	"sync"
	"time"

	"hifz_backend/internal/model"
	"hifz_backend/internal/progress"
	"hifz_backend/internal/snapshot"
	"hifz_backend/internal/util"
)

// SchoolView is the part of the snapshot a principal may see.
type SchoolView struct {
	Version       uint64               `json:"version"`
	Role          model.UserRole       `json:"role"`
	Teachers      []model.Teacher      `json:"teachers"`
	Students      []model.Student      `json:"students"`
	Announcements []model.Announcement `json:"announcements"`
	AdabArchive   []model.AdabSession  `json:"adabArchive,omitempty"`
	Settings      model.Settings       `json:"settings"`
}

// StudentProgress is the dashboard of one student.
type StudentProgress struct {
	Student       model.Student             `json:"student"`
	TeacherName   string                    `json:"teacherName"`
	Attendance    progress.Attendance       `json:"attendance"`
	Unseen        int                       `json:"unseen"`
	PendingQuiz   []string                  `json:"pendingQuiz"`
	Announcements []model.Announcement      `json:"announcements"`
	Week          progress.LeaderboardEntry `json:"week"`
}

// ProgressService derives read models from the current snapshot.
type ProgressService struct {
	source SnapshotSource
	now    func() time.Time

	mu       sync.RWMutex
	calendar progress.Calendar
	size     int
}

func NewProgressService(source SnapshotSource, cal progress.Calendar, leaderboardSize int) *ProgressService {
	return &ProgressService{source: source, now: time.Now, calendar: cal, size: leaderboardSize}
}

// SetCalendar swaps the school calendar, typically after a config reload.
func (s *ProgressService) SetCalendar(cal progress.Calendar, leaderboardSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendar = cal
	s.size = leaderboardSize
}

func (s *ProgressService) Calendar() progress.Calendar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calendar
}

// Location is the school time zone.
func (s *ProgressService) Location() *time.Location {
	cal := s.Calendar()
	if cal.Location == nil {
		return time.Local
	}
	return cal.Location
}

func (s *ProgressService) leaderboardSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Leaderboard ranks the students of one teacher, or of the whole school
// when teacherID is empty, for the current week.
func (s *ProgressService) Leaderboard(teacherID string) []progress.LeaderboardEntry {
	snap := s.source.Snapshot()
	students := snap.Students.All()
	if teacherID != "" {
		students = snap.StudentsOf(teacherID)
	}
	return progress.WeeklyLeaderboard(students, s.Calendar(), s.now(), s.leaderboardSize())
}

// LeaderboardFor picks the board a principal is shown: a teacher and a
// parent see their class, the admin the whole school.
func (s *ProgressService) LeaderboardFor(p model.Principal, teacherID string) ([]progress.LeaderboardEntry, error) {
	switch p.Role {
	case model.RoleAdmin:
		return s.Leaderboard(teacherID), nil
	case model.RoleTeacher, model.RoleParent:
		if teacherID != "" && teacherID != p.TeacherID {
			return nil, util.ErrPermissionDenied
		}
		return s.Leaderboard(p.TeacherID), nil
	}
	return nil, util.ErrPermissionDenied
}

// AnnouncementsFor lists the active announcements students of teacherID
// see, newest first.
func (s *ProgressService) AnnouncementsFor(teacherID string) []model.Announcement {
	return activeAnnouncements(s.source.Snapshot(), s.now(), func(a model.Announcement) bool {
		return a.VisibleTo(teacherID)
	})
}

func activeAnnouncements(snap *snapshot.Snapshot, now time.Time, keep func(model.Announcement) bool) []model.Announcement {
	list := snap.Announcements.Filter(func(a model.Announcement) bool {
		return a.IsActive(now) && keep(a)
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Student builds the dashboard of one student.
func (s *ProgressService) Student(p model.Principal, studentID string) (StudentProgress, error) {
	snap := s.source.Snapshot()
	st, ok := snap.Students.Get(studentID)
	if !ok {
		return StudentProgress{}, notFound("student", studentID)
	}
	if !p.CanManageStudent(st.ID, st.TeacherID) {
		return StudentProgress{}, util.ErrPermissionDenied
	}
	now := s.now()
	cal := s.Calendar()
	out := StudentProgress{
		Student:     st,
		Attendance:  progress.AttendanceStats(st, cal, now),
		PendingQuiz: []string{},
		Announcements: activeAnnouncements(snap, now, func(a model.Announcement) bool {
			return a.VisibleTo(st.TeacherID)
		}),
	}
	if t, ok := snap.Teachers.Get(st.TeacherID); ok {
		out.TeacherName = t.Name
	}
	for _, l := range st.Logs {
		if !l.SeenByParent {
			out.Unseen++
		}
		if l.HasQuiz() && !l.QuizAnswered() {
			out.PendingQuiz = append(out.PendingQuiz, l.ID)
		}
	}
	start, end := cal.Week(now)
	out.Week = progress.ScoreWeek(st, start, end)
	return out, nil
}

// View filters a snapshot down to what p may read. Login and parent codes
// of other people are blanked.
func (s *ProgressService) View(p model.Principal, snap *snapshot.Snapshot) SchoolView {
	now := s.now()
	v := SchoolView{Version: snap.Version, Role: p.Role, Settings: snap.Settings}
	switch p.Role {
	case model.RoleAdmin:
		v.Teachers = snap.Teachers.All()
		v.Students = snap.Students.All()
		v.Announcements = activeAnnouncements(snap, now, func(model.Announcement) bool { return true })
		v.AdabArchive = snap.AdabArchive.All()
	case model.RoleTeacher:
		v.Teachers = publicTeachers(snap, p.TeacherID)
		v.Students = snap.StudentsOf(p.TeacherID)
		v.Announcements = activeAnnouncements(snap, now, func(a model.Announcement) bool {
			return a.VisibleTo(p.TeacherID) || a.AuthorID == p.TeacherID
		})
		v.AdabArchive = snap.AdabArchive.All()
	case model.RoleParent:
		v.Teachers = publicTeachers(snap, "")
		if st, ok := snap.Students.Get(p.StudentID); ok {
			v.Students = []model.Student{st}
			v.Announcements = activeAnnouncements(snap, now, func(a model.Announcement) bool {
				return a.VisibleTo(st.TeacherID)
			})
		}
	}
	if v.Students == nil {
		v.Students = []model.Student{}
	}
	if v.Announcements == nil {
		v.Announcements = []model.Announcement{}
	}
	return v
}

// CurrentView is View over the latest snapshot.
func (s *ProgressService) CurrentView(p model.Principal) SchoolView {
	return s.View(p, s.source.Snapshot())
}

func publicTeachers(snap *snapshot.Snapshot, self string) []model.Teacher {
	all := snap.Teachers.All()
	out := make([]model.Teacher, len(all))
	for i, t := range all {
		if t.ID != self {
			t.LoginCode = ""
		}
		out[i] = t
	}
	return out
}
