package controller

import (
	"sort"

	"github.com/gin-gonic/gin"

	"hifz_backend/internal/model"
	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

// AdabController manages the archive of adab sessions and their delivery
// to students.
type AdabController struct {
	School *service.SchoolService
}

func NewAdabController(school *service.SchoolService) *AdabController {
	return &AdabController{School: school}
}

type AdabRequest struct {
	Title     string           `json:"title" binding:"required"`
	Questions []model.QuizItem `json:"questions"`
}

func (c *AdabController) List(ctx *gin.Context) {
	sessions := c.School.Snapshot().AdabArchive.All()
	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	util.Success(ctx, sessions)
}

func (c *AdabController) Get(ctx *gin.Context) {
	session, ok := c.School.Snapshot().AdabArchive.Get(ctx.Param("id"))
	if !ok {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, session)
}

func (c *AdabController) Create(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req AdabRequest
	if !bind(ctx, &req) {
		return
	}
	saved, pending, err := c.School.ArchiveAdabSession(ctx.Request.Context(), p,
		model.AdabSession{Title: req.Title, Questions: req.Questions})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respondCreated(ctx, saved, pending)
}

// Update edits the archived session. Copies already delivered to logs
// keep the old content until the session is pushed again.
func (c *AdabController) Update(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	cur, found := c.School.Snapshot().AdabArchive.Get(ctx.Param("id"))
	if !found {
		util.NotFound(ctx)
		return
	}
	var req AdabRequest
	if !bind(ctx, &req) {
		return
	}
	cur.Title = req.Title
	cur.Questions = req.Questions
	saved, pending, err := c.School.ArchiveAdabSession(ctx.Request.Context(), p, cur)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, saved, pending)
}

func (c *AdabController) Delete(ctx *gin.Context) {
	pending, err := c.School.DeleteAdabSession(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}

type PublishAdabRequest struct {
	StudentIDs []string `json:"studentIds" binding:"required,min=1"`
}

// Publish godoc
// @Summary Deliver an adab session to students
// @Description Adds an adab log carrying a copy of the session to each student
// @Tags adab
// @Accept json
// @Produce json
// @Param id path string true "session id"
// @Param body body PublishAdabRequest true "students"
// @Success 200 {object} util.Response
// @Router /api/adab/{id}/publish [post]
func (c *AdabController) Publish(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req PublishAdabRequest
	if !bind(ctx, &req) {
		return
	}
	pending, err := c.School.PublishAdabSession(ctx.Request.Context(), p, ctx.Param("id"), req.StudentIDs)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}

// Repush refreshes the session copy in every log that carries it.
func (c *AdabController) Repush(ctx *gin.Context) {
	pending, err := c.School.RepushAdabSession(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}
