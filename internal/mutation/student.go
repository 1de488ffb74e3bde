package mutation

import (
	"strings"
	"time"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
)

func parentCodeTaken(s *snapshot.Snapshot, code, exceptID string) bool {
	for _, st := range s.Students.All() {
		if st.ID != exceptID && st.ParentCode == code {
			return true
		}
	}
	return false
}

func unknownTeacher(s *snapshot.Snapshot, teacherID string) error {
	if s.Teachers.Has(teacherID) {
		return nil
	}
	return model.NewValidationError("invalid student", model.FieldError{Field: "teacherId", Error: "unknown teacher"})
}

// canonical fills empty collections so a stored student survives a JSON
// round trip unchanged.
func canonical(st model.Student) model.Student {
	if st.Logs == nil {
		st.Logs = []model.DailyLog{}
	}
	if st.Payments == nil {
		st.Payments = []model.Payment{}
	}
	if st.Badges == nil {
		st.Badges = []model.Badge{}
	}
	st.Schedule = st.Schedule.Normalize()
	return st
}

// StudentProfile carries the editable identity fields of a student.
type StudentProfile struct {
	Name        string
	ParentCode  string
	ParentPhone string
	TeacherID   string
}

func (p StudentProfile) trimmed() StudentProfile {
	return StudentProfile{
		Name:        strings.TrimSpace(p.Name),
		ParentCode:  strings.TrimSpace(p.ParentCode),
		ParentPhone: strings.TrimSpace(p.ParentPhone),
		TeacherID:   strings.TrimSpace(p.TeacherID),
	}
}

// AddStudent creates a student owned by an existing teacher. The parent
// code must be unique among students.
func AddStudent(p StudentProfile, id string, at time.Time) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		p = p.trimmed()
		st := canonical(model.Student{
			ID:          ensureID(id),
			Name:        p.Name,
			ParentCode:  p.ParentCode,
			ParentPhone: p.ParentPhone,
			TeacherID:   p.TeacherID,
			CreatedAt:   at,
		})
		if err := st.Validate(); err != nil {
			return Result{}, err
		}
		if s.Students.Has(st.ID) {
			return Result{}, duplicate("id", "student already exists")
		}
		if err := unknownTeacher(s, st.TeacherID); err != nil {
			return Result{}, err
		}
		if parentCodeTaken(s, st.ParentCode, "") {
			return Result{}, duplicate("parentCode", "parent code already used by another student")
		}
		return putStudent(s, st), nil
	}
}

// UpdateStudentProfile edits name, codes and owning teacher.
func UpdateStudentProfile(id string, p StudentProfile) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		st, err := student(s, id)
		if err != nil {
			return Result{}, err
		}
		p = p.trimmed()
		st.Name, st.ParentCode, st.ParentPhone, st.TeacherID = p.Name, p.ParentCode, p.ParentPhone, p.TeacherID
		if err := model.ValidateStruct(st); err != nil {
			return Result{}, err
		}
		if err := unknownTeacher(s, st.TeacherID); err != nil {
			return Result{}, err
		}
		if parentCodeTaken(s, st.ParentCode, st.ID) {
			return Result{}, duplicate("parentCode", "parent code already used by another student")
		}
		return putStudent(s, canonical(st)), nil
	}
}

// DeleteStudent removes a student permanently.
func DeleteStudent(id string) Mutation {
	return func(s *snapshot.Snapshot) (Result, error) {
		if !s.Students.Has(id) {
			return Result{}, notFound("student", id)
		}
		return Result{
			Snapshot: s.WithStudents(s.Students.Without(id)),
			Writes:   []Write{remove(model.CollectionStudents, id)},
		}, nil
	}
}

func UpdateParentPhone(id, phone string) Mutation {
	return updateStudent(id, func(st *model.Student) error {
		st.ParentPhone = strings.TrimSpace(phone)
		return nil
	})
}

func UpdateSchedule(id string, schedule model.WeeklySchedule) Mutation {
	return updateStudent(id, func(st *model.Student) error {
		if err := schedule.Validate(); err != nil {
			return err
		}
		next := schedule.Normalize()
		for day, events := range next {
			for i := range events {
				events[i].ID = ensureID(events[i].ID)
			}
			next[day] = events
		}
		st.Schedule = next
		return nil
	})
}

func SetNextPlan(id string, plan model.NextPlan, at time.Time) Mutation {
	return updateStudent(id, func(st *model.Student) error {
		if err := plan.Validate(); err != nil {
			return err
		}
		p := plan.Clone()
		p.UpdatedAt = at
		st.NextPlan = &p
		return nil
	})
}

func ClearNextPlan(id string) Mutation {
	return updateStudent(id, func(st *model.Student) error {
		st.NextPlan = nil
		return nil
	})
}

func SetFeeReminder(id, note string, at time.Time) Mutation {
	return updateStudent(id, func(st *model.Student) error {
		st.FeeReminder = &model.FeeReminder{Note: strings.TrimSpace(note), CreatedAt: at}
		return nil
	})
}

func ClearFeeReminder(id string) Mutation {
	return updateStudent(id, func(st *model.Student) error {
		st.FeeReminder = nil
		return nil
	})
}

// AddPayment records a payment. Recorded payments are never edited.
func AddPayment(id string, p model.Payment) Mutation {
	return updateStudent(id, func(st *model.Student) error {
		p.ID = ensureID(p.ID)
		p.Title = strings.TrimSpace(p.Title)
		if err := model.ValidateStruct(p); err != nil {
			return err
		}
		for _, existing := range st.Payments {
			if existing.ID == p.ID {
				return model.NewInvalidStateError("payment " + p.ID + " is already recorded")
			}
		}
		st.Payments = append(st.Payments, p)
		return nil
	})
}

func AwardBadge(id string, b model.Badge) Mutation {
	return updateStudent(id, func(st *model.Student) error {
		b.ID = ensureID(b.ID)
		b.Title = strings.TrimSpace(b.Title)
		if err := model.ValidateStruct(b); err != nil {
			return err
		}
		st.Badges = append(st.Badges, b)
		return nil
	})
}
