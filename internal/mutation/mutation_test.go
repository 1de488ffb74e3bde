package mutation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
)

var (
	day  = time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC)
	next = day.AddDate(0, 0, 1)
)

func run(t *testing.T, s *snapshot.Snapshot, m Mutation) Result {
	t.Helper()
	res, err := m(s)
	require.NoError(t, err)
	return res
}

func seed(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	s := snapshot.Empty()
	s = run(t, s, AddTeacher(model.Teacher{ID: "t1", Name: "Ali", LoginCode: "1111"})).Snapshot
	s = run(t, s, AddTeacher(model.Teacher{ID: "t2", Name: "Omar", LoginCode: "2222"})).Snapshot
	s = run(t, s, AddStudent(StudentProfile{Name: "Yusuf", ParentCode: "p1", TeacherID: "t1"}, "s1", day)).Snapshot
	s = run(t, s, AddStudent(StudentProfile{Name: "Maryam", ParentCode: "p2", TeacherID: "t1"}, "s2", day)).Snapshot
	s = run(t, s, AddStudent(StudentProfile{Name: "Huda", ParentCode: "p3", TeacherID: "t2"}, "s3", day)).Snapshot
	return s
}

func quiz(id string) model.AdabSession {
	return model.AdabSession{ID: id, Title: "Honesty", Questions: []model.QuizItem{
		{ID: "q1", Question: "Is lying allowed?", CorrectAnswer: "No", WrongAnswers: []string{"Yes"}},
		{ID: "q2", Question: "Keep promises?", CorrectAnswer: "Always", WrongAnswers: []string{"Sometimes"}},
	}}
}

func TestAddTeacherLoginCodesStayUnique(t *testing.T) {
	s := seed(t)
	_, err := AddTeacher(model.Teacher{Name: "Copy", LoginCode: " 1111 "})(s)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	_, err = AddTeacher(model.Teacher{Name: "", LoginCode: "3333"})(s)
	assert.True(t, model.IsValidation(err))

	res := run(t, s, AddTeacher(model.Teacher{Name: "Zaid", LoginCode: "3333"}))
	require.Len(t, res.Writes, 1)
	assert.Equal(t, model.CollectionTeachers, res.Writes[0].Collection)
	assert.NotEmpty(t, res.Writes[0].DocID)

	codes := map[string]bool{}
	for _, tt := range res.Snapshot.Teachers.All() {
		assert.False(t, codes[tt.LoginCode], "duplicate login code %s", tt.LoginCode)
		codes[tt.LoginCode] = true
	}
	assert.Equal(t, 2, s.Teachers.Len())
}

func TestUpdateTeacherKeepsOwnCode(t *testing.T) {
	s := seed(t)
	res := run(t, s, UpdateTeacher(model.Teacher{ID: "t1", Name: "Ali Hasan", LoginCode: "1111"}))
	got, _ := res.Snapshot.Teachers.Get("t1")
	assert.Equal(t, "Ali Hasan", got.Name)

	_, err := UpdateTeacher(model.Teacher{ID: "t1", Name: "Ali", LoginCode: "2222"})(s)
	assert.True(t, model.IsValidation(err))
	_, err = UpdateTeacher(model.Teacher{ID: "nope", Name: "x", LoginCode: "9"})(s)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteTeacherCascades(t *testing.T) {
	s := seed(t)
	res := run(t, s, DeleteTeacher("t1"))

	assert.False(t, res.Snapshot.Teachers.Has("t1"))
	assert.Empty(t, res.Snapshot.StudentsOf("t1"))
	assert.True(t, res.Snapshot.Students.Has("s3"))

	var keys []string
	for _, w := range res.Writes {
		assert.Equal(t, OpDelete, w.Op)
		keys = append(keys, w.Key())
	}
	assert.ElementsMatch(t, []string{"teachers/t1", "students/s1", "students/s2"}, keys)

	// the input snapshot is untouched
	assert.True(t, s.Teachers.Has("t1"))
	assert.Len(t, s.StudentsOf("t1"), 2)
}

func TestAddStudentChecks(t *testing.T) {
	s := seed(t)
	_, err := AddStudent(StudentProfile{Name: "A", ParentCode: "p1", TeacherID: "t1"}, "", day)(s)
	assert.True(t, model.IsValidation(err))

	_, err = AddStudent(StudentProfile{Name: "A", ParentCode: "p9", TeacherID: "ghost"}, "", day)(s)
	assert.True(t, model.IsValidation(err))

	res := run(t, s, AddStudent(StudentProfile{Name: "A", ParentCode: "p9", TeacherID: "t2"}, "", day))
	require.Len(t, res.Writes, 1)
	st, ok := res.Snapshot.Students.Get(res.Writes[0].DocID)
	require.True(t, ok)
	assert.NotNil(t, st.Logs)
	assert.Len(t, st.Schedule, 7)
}

func TestUpsertDailyLog(t *testing.T) {
	s := seed(t)
	for _, id := range []string{"a", "b", "c"} {
		s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: id, Date: day})).Snapshot
	}
	st, _ := s.Students.Get("s1")
	require.Equal(t, []string{"c", "b", "a"}, logIDs(st))

	edited := model.DailyLog{ID: "b", Date: day, Notes: "revised", Jadeed: &model.QuranAssignment{Type: model.AssignmentJuz, Juz: 30}}
	res := run(t, s, UpsertDailyLog("s1", edited))
	require.Len(t, res.Writes, 1)
	got, _ := res.Snapshot.Students.Get("s1")
	assert.Equal(t, []string{"c", "b", "a"}, logIDs(got))
	assert.Equal(t, "revised", got.Logs[1].Notes)

	before, _ := s.Students.Get("s1")
	assert.Empty(t, before.Logs[1].Notes)

	_, err := UpsertDailyLog("s1", model.DailyLog{ID: "x", Date: day, IsAbsent: true, IsAdab: true})(s)
	assert.True(t, model.IsValidation(err))
	_, err = UpsertDailyLog("ghost", model.DailyLog{ID: "x", Date: day})(s)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpsertDailyLogKeepsSeenAndScore(t *testing.T) {
	s := seed(t)
	session := quiz("adab1")
	s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: "l1", Date: day, IsAdab: true, AdabSession: &session})).Snapshot
	s = run(t, s, RecordQuizAnswer("s1", "l1", 1, 2, next)).Snapshot

	edit := model.DailyLog{ID: "l1", Date: day, IsAdab: true, AdabSession: &session, Notes: "edited"}
	s = run(t, s, UpsertDailyLog("s1", edit)).Snapshot
	st, _ := s.Students.Get("s1")
	l := st.Logs[0]
	assert.True(t, l.SeenByParent)
	require.NotNil(t, l.SeenAt)
	assert.True(t, next.Equal(*l.SeenAt))
	require.NotNil(t, l.ParentQuizScore)
	assert.Equal(t, 1, *l.ParentQuizScore)
	assert.Equal(t, "edited", l.Notes)
}

func TestUpsertDailyLogByDate(t *testing.T) {
	s := seed(t)
	s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: "morning", Date: day})).Snapshot
	s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: "absent", Date: next, IsAbsent: true})).Snapshot

	res := run(t, s, UpsertDailyLogByDate("s1", model.DailyLog{Date: day.Add(2 * time.Hour), Notes: "later"}, time.UTC))
	st, _ := res.Snapshot.Students.Get("s1")
	assert.Len(t, st.Logs, 2)
	i := st.LogIndex("morning")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "later", st.Logs[i].Notes)

	res = run(t, s, UpsertDailyLogByDate("s1", model.DailyLog{Date: next}, time.UTC))
	st, _ = res.Snapshot.Students.Get("s1")
	assert.Len(t, st.Logs, 3)
}

func TestMarkLogsSeenIsIdempotent(t *testing.T) {
	s := seed(t)
	s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: "l1", Date: day})).Snapshot
	s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: "l2", Date: day})).Snapshot

	first := run(t, s, MarkLogsSeen("s1", []string{"l1", "missing"}, day))
	require.Len(t, first.Writes, 1)
	st, _ := first.Snapshot.Students.Get("s1")
	l1 := st.Logs[st.LogIndex("l1")]
	assert.True(t, l1.SeenByParent)
	assert.False(t, st.Logs[st.LogIndex("l2")].SeenByParent)

	second := run(t, first.Snapshot, MarkLogsSeen("s1", []string{"l1"}, next))
	assert.Empty(t, second.Writes)
	assert.Same(t, first.Snapshot, second.Snapshot)
	again, _ := second.Snapshot.Students.Get("s1")
	assert.Equal(t, l1, again.Logs[again.LogIndex("l1")])
}

func TestRecordQuizAnswer(t *testing.T) {
	s := seed(t)
	session := quiz("adab1")
	s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: "plain", Date: day})).Snapshot
	s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: "adab", Date: day, IsAdab: true, AdabSession: &session})).Snapshot

	_, err := RecordQuizAnswer("s1", "plain", 1, 2, day)(s)
	assert.True(t, model.IsInvalidState(err))

	_, err = RecordQuizAnswer("s1", "adab", 3, 2, day)(s)
	assert.True(t, model.IsValidation(err))
	_, err = RecordQuizAnswer("s1", "adab", 1, 5, day)(s)
	assert.True(t, model.IsValidation(err))

	res := run(t, s, RecordQuizAnswer("s1", "adab", 2, 2, day))
	st, _ := res.Snapshot.Students.Get("s1")
	l := st.Logs[st.LogIndex("adab")]
	assert.Equal(t, 2, *l.ParentQuizScore)
	assert.Equal(t, 2, *l.ParentQuizMax)
	assert.True(t, l.SeenByParent)

	_, err = RecordQuizAnswer("s1", "adab", 1, 2, day)(res.Snapshot)
	assert.True(t, model.IsInvalidState(err))
}

func TestPublishAdabSessionCopiesTheSession(t *testing.T) {
	s := seed(t)
	s = run(t, s, ArchiveAdabSession(quiz("adab1"), day)).Snapshot

	res := run(t, s, PublishAdabSession("adab1", []string{"s1", "s2", "s1"}, Author{ID: "t1", Name: "Ali"}, day))
	assert.Len(t, res.Writes, 2)
	s = res.Snapshot

	edited := quiz("adab1")
	edited.Title = "Honesty, revised"
	s = run(t, s, ArchiveAdabSession(edited, next)).Snapshot

	st, _ := s.Students.Get("s1")
	require.Len(t, st.Logs, 1)
	assert.True(t, st.Logs[0].IsAdab)
	assert.Equal(t, "Honesty", st.Logs[0].AdabSession.Title)
	archived, _ := s.AdabArchive.Get("adab1")
	assert.True(t, day.Equal(archived.CreatedAt))
	assert.True(t, next.Equal(archived.UpdatedAt))

	_, err := PublishAdabSession("adab1", []string{"ghost"}, Author{}, day)(s)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = PublishAdabSession("adab1", nil, Author{}, day)(s)
	assert.True(t, model.IsValidation(err))
}

func TestRepushAdabSessionSkipsAnsweredQuizzes(t *testing.T) {
	s := seed(t)
	s = run(t, s, ArchiveAdabSession(quiz("adab1"), day)).Snapshot
	s = run(t, s, PublishAdabSession("adab1", []string{"s1", "s2"}, Author{ID: "t1"}, day)).Snapshot

	answered, _ := s.Students.Get("s2")
	s = run(t, s, RecordQuizAnswer("s2", answered.Logs[0].ID, 1, 2, day)).Snapshot

	edited := quiz("adab1")
	edited.Title = "v2"
	s = run(t, s, ArchiveAdabSession(edited, next)).Snapshot

	res := run(t, s, RepushAdabSession("adab1"))
	require.Len(t, res.Writes, 1)
	assert.Equal(t, "s1", res.Writes[0].DocID)

	s1, _ := res.Snapshot.Students.Get("s1")
	s2, _ := res.Snapshot.Students.Get("s2")
	assert.Equal(t, "v2", s1.Logs[0].AdabSession.Title)
	assert.Equal(t, "Honesty", s2.Logs[0].AdabSession.Title)

	again := run(t, res.Snapshot, RepushAdabSession("adab1"))
	assert.Len(t, again.Writes, 1)
}

func TestDeleteAdabSessionKeepsDeliveredCopies(t *testing.T) {
	s := seed(t)
	s = run(t, s, ArchiveAdabSession(quiz("adab1"), day)).Snapshot
	s = run(t, s, PublishAdabSession("adab1", []string{"s1"}, Author{ID: "t1"}, day)).Snapshot
	res := run(t, s, DeleteAdabSession("adab1"))
	assert.False(t, res.Snapshot.AdabArchive.Has("adab1"))
	st, _ := res.Snapshot.Students.Get("s1")
	assert.NotNil(t, st.Logs[0].AdabSession)
}

func TestAnnouncements(t *testing.T) {
	s := seed(t)
	expired := day.Add(time.Hour)
	s = run(t, s, PublishAnnouncement(model.Announcement{ID: "a1", AuthorID: "t1", Target: "t1", Content: "Exam on Sunday", CreatedAt: day, ExpiresAt: &expired})).Snapshot
	s = run(t, s, PublishAnnouncement(model.Announcement{ID: "a2", AuthorID: model.AdminAuthorID, Target: model.AnnouncementTargetGeneral, Content: "Holiday", CreatedAt: day})).Snapshot

	a1, _ := s.Announcements.Get("a1")
	assert.Equal(t, model.AnnouncementGeneral, a1.Kind)

	res := run(t, s, PurgeExpiredAnnouncements(day.Add(2*time.Hour)))
	require.Len(t, res.Writes, 1)
	assert.Equal(t, "announcements/a1", res.Writes[0].Key())
	assert.True(t, res.Snapshot.Announcements.Has("a2"))

	none := run(t, res.Snapshot, PurgeExpiredAnnouncements(day.Add(2*time.Hour)))
	assert.Empty(t, none.Writes)

	_, err := DeleteAnnouncement("a1")(res.Snapshot)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStudentRecordOperations(t *testing.T) {
	s := seed(t)
	s = run(t, s, AddPayment("s1", model.Payment{ID: "pay1", Amount: 100, Title: "March", Date: day, RecordedBy: "Ali"})).Snapshot
	_, err := AddPayment("s1", model.Payment{ID: "pay1", Amount: 100, Title: "March"})(s)
	assert.True(t, model.IsInvalidState(err))
	_, err = AddPayment("s1", model.Payment{Amount: 0, Title: "zero"})(s)
	assert.True(t, model.IsValidation(err))

	s = run(t, s, AwardBadge("s1", model.Badge{Title: "Juz Amma", Date: day})).Snapshot
	s = run(t, s, SetFeeReminder("s1", " April fees ", day)).Snapshot
	s = run(t, s, SetNextPlan("s1", model.NextPlan{Jadeed: &model.QuranAssignment{Type: model.AssignmentSurah, Name: "الملك", AyahFrom: 1, AyahTo: 10}}, day)).Snapshot
	s = run(t, s, UpdateParentPhone("s1", " 0555 ")).Snapshot
	s = run(t, s, UpdateSchedule("s1", model.WeeklySchedule{model.Monday: {{Title: "Tajweed", Time: "17:00"}}})).Snapshot

	st, _ := s.Students.Get("s1")
	assert.Len(t, st.Payments, 1)
	assert.Len(t, st.Badges, 1)
	assert.Equal(t, "April fees", st.FeeReminder.Note)
	require.NotNil(t, st.NextPlan)
	assert.True(t, day.Equal(st.NextPlan.UpdatedAt))
	assert.Equal(t, "0555", st.ParentPhone)
	require.Len(t, st.Schedule[model.Monday], 1)
	assert.NotEmpty(t, st.Schedule[model.Monday][0].ID)
	assert.NotNil(t, st.Schedule[model.Friday])

	_, err = SetNextPlan("s1", model.NextPlan{}, day)(s)
	assert.True(t, model.IsValidation(err))

	s = run(t, s, ClearNextPlan("s1")).Snapshot
	s = run(t, s, ClearFeeReminder("s1")).Snapshot
	st, _ = s.Students.Get("s1")
	assert.Nil(t, st.NextPlan)
	assert.Nil(t, st.FeeReminder)

	s = run(t, s, UpsertDailyLog("s1", model.DailyLog{ID: "l1", Date: day})).Snapshot
	s = run(t, s, DeleteDailyLog("s1", "l1")).Snapshot
	st, _ = s.Students.Get("s1")
	assert.Empty(t, st.Logs)
	_, err = DeleteDailyLog("s1", "l1")(s)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateStudentProfileReassigns(t *testing.T) {
	s := seed(t)
	res := run(t, s, UpdateStudentProfile("s1", StudentProfile{Name: "Yusuf A.", ParentCode: "p1", TeacherID: "t2"}))
	assert.Len(t, res.Snapshot.StudentsOf("t2"), 2)

	_, err := UpdateStudentProfile("s1", StudentProfile{Name: "Yusuf", ParentCode: "p2", TeacherID: "t1"})(s)
	assert.True(t, model.IsValidation(err))

	res = run(t, s, DeleteStudent("s1"))
	assert.False(t, res.Snapshot.Students.Has("s1"))
	assert.Equal(t, OpDelete, res.Writes[0].Op)
}

func TestUpdateSettings(t *testing.T) {
	res := run(t, snapshot.Empty(), UpdateSettings(model.Settings{SchoolName: " Dar Al Quran ", Theme: "green"}))
	assert.Equal(t, "Dar Al Quran", res.Snapshot.Settings.SchoolName)
	assert.Equal(t, "settings/app", res.Writes[0].Key())
}

func logIDs(st model.Student) []string {
	ids := make([]string, 0, len(st.Logs))
	for _, l := range st.Logs {
		ids = append(ids, l.ID)
	}
	return ids
}
