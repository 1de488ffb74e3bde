package model

import "time"

// AnnouncementTargetGeneral addresses every student of the school.
const AnnouncementTargetGeneral = "GENERAL"

type AnnouncementKind string

const (
	AnnouncementGeneral      AnnouncementKind = "GENERAL"
	AnnouncementExamSchedule AnnouncementKind = "EXAM_SCHEDULE"
)

type ExamEntry struct {
	Date        string `json:"date" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type ExamSchedule struct {
	Entries           []ExamEntry `json:"entries" validate:"dive"`
	ExaminerTeacherID string      `json:"examinerTeacherId"`
	ExaminerName      string      `json:"examinerName"`
}

// Announcement is written by a teacher (or AdminAuthorID) for one teacher's
// students or, with Target GENERAL, for everybody.
type Announcement struct {
	ID           string           `json:"id" validate:"required"`
	AuthorID     string           `json:"authorId" validate:"required"`
	AuthorName   string           `json:"authorName"`
	Target       string           `json:"target" validate:"required"`
	Kind         AnnouncementKind `json:"kind" validate:"oneof=GENERAL EXAM_SCHEDULE"`
	Title        string           `json:"title"`
	Content      string           `json:"content"`
	CreatedAt    time.Time        `json:"createdAt"`
	ExpiresAt    *time.Time       `json:"expiresAt"`
	ExamSchedule *ExamSchedule    `json:"examSchedule"`
}

func (a Announcement) EntityID() string { return a.ID }

func (a Announcement) Validate() error {
	errs := []error{ValidateStruct(a)}
	var flds []FieldError
	if a.Kind == AnnouncementExamSchedule && (a.ExamSchedule == nil || len(a.ExamSchedule.Entries) == 0) {
		flds = append(flds, FieldError{Field: "examSchedule", Error: "exam schedule announcements need at least one entry"})
	}
	if a.Kind == AnnouncementGeneral && a.Content == "" && a.Title == "" {
		flds = append(flds, FieldError{Field: "content", Error: "is required"})
	}
	if a.ExpiresAt != nil && !a.CreatedAt.IsZero() && !a.ExpiresAt.After(a.CreatedAt) {
		flds = append(flds, FieldError{Field: "expiresAt", Error: "must be after createdAt"})
	}
	if len(flds) > 0 {
		errs = append(errs, NewValidationError("invalid announcement", flds...))
	}
	return mergeValidation(errs...)
}

func (a Announcement) IsActive(now time.Time) bool {
	return a.ExpiresAt == nil || now.Before(*a.ExpiresAt)
}

// VisibleTo reports whether students of the given teacher see a.
func (a Announcement) VisibleTo(teacherID string) bool {
	return a.Target == AnnouncementTargetGeneral || a.Target == teacherID
}
