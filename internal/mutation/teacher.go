package mutation

import (
	"strings"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
)

func loginCodeTaken(s *snapshot.Snapshot, code, exceptID string) bool {
	for _, t := range s.Teachers.All() {
		if t.ID != exceptID && t.LoginCode == code {
			return true
		}
	}
	return false
}

// AddTeacher creates a teacher. The login code must be unique among teachers.
func AddTeacher(t model.Teacher) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		t.ID = ensureID(t.ID)
		t.Name = strings.TrimSpace(t.Name)
		t.LoginCode = strings.TrimSpace(t.LoginCode)
		t.Phone = strings.TrimSpace(t.Phone)
		if err := t.Validate(); err != nil {
			return Result{}, err
		}
		if s.Teachers.Has(t.ID) {
			return Result{}, duplicate("id", "teacher already exists")
		}
		if loginCodeTaken(s, t.LoginCode, "") {
			return Result{}, duplicate("loginCode", "login code already used by another teacher")
		}
		return Result{
			Snapshot: s.WithTeachers(s.Teachers.With(t)),
			Writes:   []Write{upsert(model.CollectionTeachers, t)},
		}, nil
	}
}

// UpdateTeacher replaces a teacher's profile, keeping its creation time.
func UpdateTeacher(t model.Teacher) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		cur, ok := s.Teachers.Get(t.ID)
		if !ok {
			return Result{}, notFound("teacher", t.ID)
		}
		t.Name = strings.TrimSpace(t.Name)
		t.LoginCode = strings.TrimSpace(t.LoginCode)
		t.Phone = strings.TrimSpace(t.Phone)
		t.CreatedAt = cur.CreatedAt
		if err := t.Validate(); err != nil {
			return Result{}, err
		}
		if loginCodeTaken(s, t.LoginCode, t.ID) {
			return Result{}, duplicate("loginCode", "login code already used by another teacher")
		}
		return Result{
			Snapshot: s.WithTeachers(s.Teachers.With(t)),
			Writes:   []Write{upsert(model.CollectionTeachers, t)},
		}, nil
	}
}

// DeleteTeacher removes a teacher together with every student it owns.
// Both removals land in the same snapshot.
func DeleteTeacher(id string) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		if !s.Teachers.Has(id) {
			return Result{}, notFound("teacher", id)
		}
		owned := s.StudentsOf(id)
		ids := make([]string, 0, len(owned))
		writes := make([]Write, 0, len(owned)+1)
		writes = append(writes, remove(model.CollectionTeachers, id))
		for _, st := range owned {
			ids = append(ids, st.ID)
			writes = append(writes, remove(model.CollectionStudents, st.ID))
		}
		next := s.WithTeachers(s.Teachers.Without(id)).WithStudents(s.Students.Without(ids...))
		return Result{Snapshot: next, Writes: writes}, nil
	}
}
