// Package snapshot holds the merged, immutable application state shared by
// every consumer. A Snapshot is never modified after it is published; each
// change produces a new one.
package snapshot

import "hifz_backend/internal/model"

type Snapshot struct {
	Version       uint64
	Students      Collection[model.Student]
	Teachers      Collection[model.Teacher]
	Announcements Collection[model.Announcement]
	AdabArchive   Collection[model.AdabSession]
	Settings      model.Settings
}

func Empty() *Snapshot {
	return &Snapshot{
		Students:      NewCollection[model.Student](nil),
		Teachers:      NewCollection[model.Teacher](nil),
		Announcements: NewCollection[model.Announcement](nil),
		AdabArchive:   NewCollection[model.AdabSession](nil),
		Settings:      model.Settings{ID: model.SettingsDocID},
	}
}

// Copy returns a shallow copy; collections are immutable so sharing them
// is safe.
func (s *Snapshot) Copy() *Snapshot {
	c := *s
	return &c
}

func (s *Snapshot) WithStudents(c Collection[model.Student]) *Snapshot {
	n := s.Copy()
	n.Students = c
	return n
}

func (s *Snapshot) WithTeachers(c Collection[model.Teacher]) *Snapshot {
	n := s.Copy()
	n.Teachers = c
	return n
}

func (s *Snapshot) WithAnnouncements(c Collection[model.Announcement]) *Snapshot {
	n := s.Copy()
	n.Announcements = c
	return n
}

func (s *Snapshot) WithAdabArchive(c Collection[model.AdabSession]) *Snapshot {
	n := s.Copy()
	n.AdabArchive = c
	return n
}

func (s *Snapshot) WithSettings(st model.Settings) *Snapshot {
	n := s.Copy()
	n.Settings = st
	return n
}

// StudentsOf lists the students owned by a teacher.
func (s *Snapshot) StudentsOf(teacherID string) []model.Student {
	return s.Students.Filter(func(st model.Student) bool { return st.TeacherID == teacherID })
}

func (s *Snapshot) TeacherByLoginCode(code string) (model.Teacher, bool) {
	for _, t := range s.Teachers.items {
		if t.LoginCode == code {
			return t, true
		}
	}
	return model.Teacher{}, false
}

func (s *Snapshot) StudentByParentCode(code string) (model.Student, bool) {
	for _, st := range s.Students.items {
		if st.ParentCode == code {
			return st, true
		}
	}
	return model.Student{}, false
}
