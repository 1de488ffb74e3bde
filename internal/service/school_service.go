package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hifz_backend/internal/model"
	"hifz_backend/internal/mutation"
	"hifz_backend/internal/notify"
	"hifz_backend/internal/snapshot"
	"hifz_backend/internal/syncengine"
	"hifz_backend/internal/util"
	"hifz_backend/pkg/logger"
)

// SnapshotSource serves the current merged snapshot.
type SnapshotSource interface {
	Snapshot() *snapshot.Snapshot
}

// Applier runs mutations against the shared snapshot.
type Applier interface {
	SnapshotSource
	Apply(ctx context.Context, m mutation.Mutation) (*syncengine.Pending, error)
}

// SchoolService is the entry point for every user-triggered change. It
// checks that the acting principal may touch the target entity inside the
// same event-loop task that applies the change.
type SchoolService struct {
	engine Applier
	push   notify.Sender
	now    func() time.Time
	loc    func() *time.Location
}

func NewSchoolService(engine Applier, push notify.Sender, loc func() *time.Location) *SchoolService {
	if push == nil {
		push = notify.NoopSender{}
	}
	if loc == nil {
		loc = func() *time.Location { return time.Local }
	}
	return &SchoolService{engine: engine, push: push, now: time.Now, loc: loc}
}

func (s *SchoolService) Snapshot() *snapshot.Snapshot {
	return s.engine.Snapshot()
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
}

// forStudent guards m with an ownership check on the student.
func forStudent(p model.Principal, studentID string, m mutation.Mutation) mutation.Mutation {
	return func(snap *snapshot.Snapshot) (mutation.Result, error) {
		st, ok := snap.Students.Get(studentID)
		if !ok {
			return mutation.Result{}, notFound("student", studentID)
		}
		if !p.CanManageStudent(st.ID, st.TeacherID) {
			return mutation.Result{}, util.ErrPermissionDenied
		}
		return m(snap)
	}
}

func (s *SchoolService) apply(ctx context.Context, m mutation.Mutation) (*syncengine.Pending, error) {
	return s.engine.Apply(ctx, m)
}

func (s *SchoolService) AddTeacher(ctx context.Context, t model.Teacher) (model.Teacher, *syncengine.Pending, error) {
	t.ID = model.NewID()
	t.CreatedAt = s.now()
	pending, err := s.apply(ctx, mutation.AddTeacher(t))
	if err != nil {
		return model.Teacher{}, nil, err
	}
	created, _ := s.Snapshot().Teachers.Get(t.ID)
	return created, pending, nil
}

func (s *SchoolService) UpdateTeacher(ctx context.Context, t model.Teacher) (*syncengine.Pending, error) {
	return s.apply(ctx, mutation.UpdateTeacher(t))
}

func (s *SchoolService) DeleteTeacher(ctx context.Context, id string) (*syncengine.Pending, error) {
	return s.apply(ctx, mutation.DeleteTeacher(id))
}

// AddStudent creates a student. Teachers always own the students they add.
func (s *SchoolService) AddStudent(ctx context.Context, p model.Principal, profile mutation.StudentProfile) (model.Student, *syncengine.Pending, error) {
	if p.Role == model.RoleTeacher {
		profile.TeacherID = p.TeacherID
	}
	id := model.NewID()
	pending, err := s.apply(ctx, mutation.AddStudent(profile, id, s.now()))
	if err != nil {
		return model.Student{}, nil, err
	}
	created, _ := s.Snapshot().Students.Get(id)
	return created, pending, nil
}

// UpdateStudent edits a student's profile. Only the admin may move a
// student to another teacher.
func (s *SchoolService) UpdateStudent(ctx context.Context, p model.Principal, id string, profile mutation.StudentProfile) (*syncengine.Pending, error) {
	if p.Role == model.RoleTeacher {
		if profile.TeacherID == "" {
			profile.TeacherID = p.TeacherID
		}
		if profile.TeacherID != p.TeacherID {
			return nil, util.ErrPermissionDenied
		}
	}
	return s.apply(ctx, forStudent(p, id, mutation.UpdateStudentProfile(id, profile)))
}

func (s *SchoolService) DeleteStudent(ctx context.Context, p model.Principal, id string) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, id, mutation.DeleteStudent(id)))
}

func (s *SchoolService) UpdateParentPhone(ctx context.Context, p model.Principal, id, phone string) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, id, mutation.UpdateParentPhone(id, phone)))
}

func (s *SchoolService) UpdateSchedule(ctx context.Context, p model.Principal, id string, schedule model.WeeklySchedule) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, id, mutation.UpdateSchedule(id, schedule)))
}

func (s *SchoolService) SetNextPlan(ctx context.Context, p model.Principal, id string, plan model.NextPlan) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, id, mutation.SetNextPlan(id, plan, s.now())))
}

func (s *SchoolService) ClearNextPlan(ctx context.Context, p model.Principal, id string) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, id, mutation.ClearNextPlan(id)))
}

func (s *SchoolService) SetFeeReminder(ctx context.Context, p model.Principal, id, note string) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, id, mutation.SetFeeReminder(id, note, s.now())))
}

func (s *SchoolService) ClearFeeReminder(ctx context.Context, p model.Principal, id string) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, id, mutation.ClearFeeReminder(id)))
}

func (s *SchoolService) AddPayment(ctx context.Context, p model.Principal, id string, pay model.Payment) (*syncengine.Pending, error) {
	if pay.Date.IsZero() {
		pay.Date = s.now()
	}
	if pay.RecordedBy == "" {
		pay.RecordedBy = p.Name
	}
	return s.apply(ctx, forStudent(p, id, mutation.AddPayment(id, pay)))
}

func (s *SchoolService) AwardBadge(ctx context.Context, p model.Principal, id string, b model.Badge) (*syncengine.Pending, error) {
	if b.Date.IsZero() {
		b.Date = s.now()
	}
	if b.AwardedBy == "" {
		b.AwardedBy = p.Name
	}
	return s.apply(ctx, forStudent(p, id, mutation.AwardBadge(id, b)))
}

// SaveDailyLog stamps the log with its author and stores it. With byDate
// an ordinary session replaces the one already recorded on the same day.
func (s *SchoolService) SaveDailyLog(ctx context.Context, p model.Principal, studentID string, l model.DailyLog, byDate bool) (model.DailyLog, *syncengine.Pending, error) {
	if l.Date.IsZero() {
		l.Date = s.now()
	}
	if l.TeacherID == "" {
		l.TeacherID = p.TeacherID
		l.TeacherName = p.Name
	}
	if l.ID == "" {
		l.ID = model.NewID()
	}
	m := mutation.UpsertDailyLog(studentID, l)
	if byDate {
		m = mutation.UpsertDailyLogByDate(studentID, l, s.loc())
	}
	pending, err := s.apply(ctx, forStudent(p, studentID, m))
	if err != nil {
		return model.DailyLog{}, nil, err
	}
	st, _ := s.Snapshot().Students.Get(studentID)
	if i := st.LogIndex(l.ID); i >= 0 {
		return st.Logs[i], pending, nil
	}
	// the log took over the id of an earlier session on the same day
	for _, saved := range st.Logs {
		if byDate && saved.IsSession() && model.SameDay(saved.Date, l.Date, s.loc()) {
			return saved, pending, nil
		}
	}
	return l, pending, nil
}

func (s *SchoolService) DeleteDailyLog(ctx context.Context, p model.Principal, studentID, logID string) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, studentID, mutation.DeleteDailyLog(studentID, logID)))
}

func (s *SchoolService) MarkLogsSeen(ctx context.Context, p model.Principal, studentID string, logIDs []string) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, studentID, mutation.MarkLogsSeen(studentID, logIDs, s.now())))
}

func (s *SchoolService) RecordQuizAnswer(ctx context.Context, p model.Principal, studentID, logID string, score, maxScore int) (*syncengine.Pending, error) {
	return s.apply(ctx, forStudent(p, studentID, mutation.RecordQuizAnswer(studentID, logID, score, maxScore, s.now())))
}

// PublishAnnouncement stores an announcement and pushes it to the parents
// it targets. Teachers address their own students or the whole school and
// may only edit what they wrote.
func (s *SchoolService) PublishAnnouncement(ctx context.Context, p model.Principal, a model.Announcement) (model.Announcement, *syncengine.Pending, error) {
	a.Target = strings.TrimSpace(a.Target)
	switch p.Role {
	case model.RoleAdmin:
		a.AuthorID = model.AdminAuthorID
		if a.Target == "" {
			a.Target = model.AnnouncementTargetGeneral
		}
	case model.RoleTeacher:
		a.AuthorID = p.TeacherID
		if a.Target == "" {
			a.Target = p.TeacherID
		}
		if a.Target != p.TeacherID && a.Target != model.AnnouncementTargetGeneral {
			return model.Announcement{}, nil, util.ErrPermissionDenied
		}
	default:
		return model.Announcement{}, nil, util.ErrPermissionDenied
	}
	if a.AuthorName == "" {
		a.AuthorName = p.Name
	}
	if a.ID == "" {
		a.ID = model.NewID()
	}
	a.CreatedAt = s.now()

	m := mutation.PublishAnnouncement(a)
	guarded := func(snap *snapshot.Snapshot) (mutation.Result, error) {
		if cur, ok := snap.Announcements.Get(a.ID); ok && p.Role != model.RoleAdmin && cur.AuthorID != p.TeacherID {
			return mutation.Result{}, util.ErrPermissionDenied
		}
		return m(snap)
	}
	pending, err := s.apply(ctx, guarded)
	if err != nil {
		return model.Announcement{}, nil, err
	}
	saved, _ := s.Snapshot().Announcements.Get(a.ID)
	go s.announce(saved)
	return saved, pending, nil
}

func (s *SchoolService) announce(a model.Announcement) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.push.Send(ctx, notify.AnnouncementMessage(a)); err != nil {
		logger.Log.Warn("Announcement push failed", zap.String("announcement", a.ID), zap.Error(err))
	}
}

func (s *SchoolService) DeleteAnnouncement(ctx context.Context, p model.Principal, id string) (*syncengine.Pending, error) {
	m := mutation.DeleteAnnouncement(id)
	return s.apply(ctx, func(snap *snapshot.Snapshot) (mutation.Result, error) {
		cur, ok := snap.Announcements.Get(id)
		if !ok {
			return mutation.Result{}, notFound("announcement", id)
		}
		if p.Role != model.RoleAdmin && cur.AuthorID != p.TeacherID {
			return mutation.Result{}, util.ErrPermissionDenied
		}
		return m(snap)
	})
}

// PurgeExpiredAnnouncements removes announcements past their expiry and
// reports how many were due. Write failures surface through the engine.
func (s *SchoolService) PurgeExpiredAnnouncements(ctx context.Context) (int, error) {
	now := s.now()
	due := len(s.Snapshot().Announcements.Filter(func(a model.Announcement) bool { return !a.IsActive(now) }))
	if due == 0 {
		return 0, nil
	}
	if _, err := s.apply(ctx, mutation.PurgeExpiredAnnouncements(now)); err != nil {
		return 0, err
	}
	return due, nil
}

func (s *SchoolService) ArchiveAdabSession(ctx context.Context, p model.Principal, session model.AdabSession) (model.AdabSession, *syncengine.Pending, error) {
	if session.ID == "" {
		session.ID = model.NewID()
		session.CreatedBy = p.Name
	}
	pending, err := s.apply(ctx, mutation.ArchiveAdabSession(session, s.now()))
	if err != nil {
		return model.AdabSession{}, nil, err
	}
	saved, _ := s.Snapshot().AdabArchive.Get(session.ID)
	return saved, pending, nil
}

func (s *SchoolService) DeleteAdabSession(ctx context.Context, id string) (*syncengine.Pending, error) {
	return s.apply(ctx, mutation.DeleteAdabSession(id))
}

// PublishAdabSession delivers an archived session to students. Teachers
// may only publish to their own students.
func (s *SchoolService) PublishAdabSession(ctx context.Context, p model.Principal, sessionID string, studentIDs []string) (*syncengine.Pending, error) {
	m := mutation.PublishAdabSession(sessionID, studentIDs, mutation.Author{ID: p.TeacherID, Name: p.Name}, s.now())
	return s.apply(ctx, func(snap *snapshot.Snapshot) (mutation.Result, error) {
		for _, id := range studentIDs {
			st, ok := snap.Students.Get(id)
			if !ok {
				return mutation.Result{}, notFound("student", id)
			}
			if !p.CanManageStudent(st.ID, st.TeacherID) {
				return mutation.Result{}, util.ErrPermissionDenied
			}
		}
		return m(snap)
	})
}

func (s *SchoolService) RepushAdabSession(ctx context.Context, sessionID string) (*syncengine.Pending, error) {
	return s.apply(ctx, mutation.RepushAdabSession(sessionID))
}

func (s *SchoolService) UpdateSettings(ctx context.Context, st model.Settings) (*syncengine.Pending, error) {
	return s.apply(ctx, mutation.UpdateSettings(st))
}
