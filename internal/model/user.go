package model

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleParent  UserRole = "parent"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent:
		return true
	}
	return false
}

// Principal is who a session acts for. TeacherID is set for teachers,
// StudentID for parents.
type Principal struct {
	Role      UserRole `json:"role"`
	Name      string   `json:"name"`
	TeacherID string   `json:"teacherId,omitempty"`
	StudentID string   `json:"studentId,omitempty"`
}

// CanManageStudent reports whether p may act on a student owned by
// teacherID.
func (p Principal) CanManageStudent(studentID, teacherID string) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleTeacher:
		return p.TeacherID == teacherID
	case RoleParent:
		return p.StudentID == studentID
	}
	return false
}
