package controller

import (
	"sort"

	"github.com/gin-gonic/gin"

	"hifz_backend/internal/model"
	"hifz_backend/internal/mutation"
	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

type StudentController struct {
	School   *service.SchoolService
	Progress *service.ProgressService
}

func NewStudentController(school *service.SchoolService, progress *service.ProgressService) *StudentController {
	return &StudentController{School: school, Progress: progress}
}

type StudentRequest struct {
	Name        string `json:"name" binding:"required"`
	ParentCode  string `json:"parentCode" binding:"required"`
	ParentPhone string `json:"parentPhone"`
	TeacherID   string `json:"teacherId"`
}

func (r StudentRequest) profile() mutation.StudentProfile {
	return mutation.StudentProfile{Name: r.Name, ParentCode: r.ParentCode, ParentPhone: r.ParentPhone, TeacherID: r.TeacherID}
}

// List returns the caller's students: a teacher's class, or for the admin
// every student, optionally filtered by ?teacherId.
func (c *StudentController) List(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	snap := c.School.Snapshot()
	var students []model.Student
	switch {
	case p.Role == model.RoleTeacher:
		students = snap.StudentsOf(p.TeacherID)
	case ctx.Query("teacherId") != "":
		students = snap.StudentsOf(ctx.Query("teacherId"))
	default:
		students = snap.Students.All()
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	util.Success(ctx, students)
}

// Get godoc
// @Summary Student dashboard
// @Description The student record with attendance, unseen logs, pending quizzes and visible announcements
// @Tags students
// @Produce json
// @Param id path string true "student id"
// @Success 200 {object} util.Response{data=service.StudentProgress}
// @Router /api/students/{id} [get]
func (c *StudentController) Get(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	dash, err := c.Progress.Student(p, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dash)
}

func (c *StudentController) saved(ctx *gin.Context) model.Student {
	st, _ := c.School.Snapshot().Students.Get(ctx.Param("id"))
	return st
}

func (c *StudentController) Create(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req StudentRequest
	if !bind(ctx, &req) {
		return
	}
	st, pending, err := c.School.AddStudent(ctx.Request.Context(), p, req.profile())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respondCreated(ctx, st, pending)
}

func (c *StudentController) Update(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req StudentRequest
	if !bind(ctx, &req) {
		return
	}
	profile := req.profile()
	if profile.TeacherID == "" && p.Role == model.RoleAdmin {
		profile.TeacherID = c.saved(ctx).TeacherID
	}
	pending, err := c.School.UpdateStudent(ctx.Request.Context(), p, ctx.Param("id"), profile)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, c.saved(ctx), pending)
}

func (c *StudentController) Delete(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	pending, err := c.School.DeleteStudent(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}

type PhoneRequest struct {
	ParentPhone string `json:"parentPhone"`
}

func (c *StudentController) UpdateParentPhone(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req PhoneRequest
	if !bind(ctx, &req) {
		return
	}
	pending, err := c.School.UpdateParentPhone(ctx.Request.Context(), p, ctx.Param("id"), req.ParentPhone)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, c.saved(ctx), pending)
}

func (c *StudentController) UpdateSchedule(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var schedule model.WeeklySchedule
	if !bind(ctx, &schedule) {
		return
	}
	pending, err := c.School.UpdateSchedule(ctx.Request.Context(), p, ctx.Param("id"), schedule)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, c.saved(ctx).Schedule, pending)
}

func (c *StudentController) SetNextPlan(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var plan model.NextPlan
	if !bind(ctx, &plan) {
		return
	}
	pending, err := c.School.SetNextPlan(ctx.Request.Context(), p, ctx.Param("id"), plan)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, c.saved(ctx).NextPlan, pending)
}

func (c *StudentController) ClearNextPlan(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	pending, err := c.School.ClearNextPlan(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}

type FeeReminderRequest struct {
	Note string `json:"note"`
}

func (c *StudentController) SetFeeReminder(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req FeeReminderRequest
	if !bind(ctx, &req) {
		return
	}
	pending, err := c.School.SetFeeReminder(ctx.Request.Context(), p, ctx.Param("id"), req.Note)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, c.saved(ctx).FeeReminder, pending)
}

func (c *StudentController) ClearFeeReminder(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	pending, err := c.School.ClearFeeReminder(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}

type PaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Title  string  `json:"title" binding:"required"`
	Date   string  `json:"date"`
}

// AddPayment records a payment. Payments cannot be edited afterwards.
func (c *StudentController) AddPayment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req PaymentRequest
	if !bind(ctx, &req) {
		return
	}
	date, ok := parseDate(ctx, req.Date, c.Progress.Location())
	if !ok {
		return
	}
	pay := model.Payment{ID: model.NewID(), Amount: req.Amount, Title: req.Title, Date: date}
	pending, err := c.School.AddPayment(ctx.Request.Context(), p, ctx.Param("id"), pay)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respondCreated(ctx, c.saved(ctx).Payments, pending)
}

type BadgeRequest struct {
	Title string `json:"title" binding:"required"`
	Date  string `json:"date"`
}

func (c *StudentController) AwardBadge(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req BadgeRequest
	if !bind(ctx, &req) {
		return
	}
	date, ok := parseDate(ctx, req.Date, c.Progress.Location())
	if !ok {
		return
	}
	b := model.Badge{ID: model.NewID(), Title: req.Title, Date: date}
	pending, err := c.School.AwardBadge(ctx.Request.Context(), p, ctx.Param("id"), b)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respondCreated(ctx, c.saved(ctx).Badges, pending)
}
