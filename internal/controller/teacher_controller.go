package controller

import (
	"sort"

	"github.com/gin-gonic/gin"

	"hifz_backend/internal/model"
	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

type TeacherController struct {
	School *service.SchoolService
}

func NewTeacherController(school *service.SchoolService) *TeacherController {
	return &TeacherController{School: school}
}

type TeacherRequest struct {
	Name      string `json:"name" binding:"required"`
	LoginCode string `json:"loginCode" binding:"required"`
	Phone     string `json:"phone"`
}

func (r TeacherRequest) teacher(id string) model.Teacher {
	return model.Teacher{ID: id, Name: r.Name, LoginCode: r.LoginCode, Phone: r.Phone}
}

func (c *TeacherController) List(ctx *gin.Context) {
	teachers := c.School.Snapshot().Teachers.All()
	sort.SliceStable(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	util.Success(ctx, teachers)
}

func (c *TeacherController) Get(ctx *gin.Context) {
	t, ok := c.School.Snapshot().Teachers.Get(ctx.Param("id"))
	if !ok {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, t)
}

// Create godoc
// @Summary Add a teacher
// @Tags teachers
// @Accept json
// @Produce json
// @Param body body TeacherRequest true "teacher"
// @Success 201 {object} util.Response{data=model.Teacher}
// @Failure 400 {object} util.Response "duplicate login code"
// @Router /api/admin/teachers [post]
func (c *TeacherController) Create(ctx *gin.Context) {
	var req TeacherRequest
	if !bind(ctx, &req) {
		return
	}
	t, pending, err := c.School.AddTeacher(ctx.Request.Context(), req.teacher(""))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respondCreated(ctx, t, pending)
}

func (c *TeacherController) Update(ctx *gin.Context) {
	var req TeacherRequest
	if !bind(ctx, &req) {
		return
	}
	id := ctx.Param("id")
	pending, err := c.School.UpdateTeacher(ctx.Request.Context(), req.teacher(id))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	t, _ := c.School.Snapshot().Teachers.Get(id)
	respond(ctx, t, pending)
}

// Delete removes the teacher together with their students.
func (c *TeacherController) Delete(ctx *gin.Context) {
	pending, err := c.School.DeleteTeacher(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}
