package controller

import (
	"github.com/gin-gonic/gin"

	"hifz_backend/internal/model"
	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

type SchoolController struct {
	School   *service.SchoolService
	Progress *service.ProgressService
}

func NewSchoolController(school *service.SchoolService, progress *service.ProgressService) *SchoolController {
	return &SchoolController{School: school, Progress: progress}
}

// View godoc
// @Summary Everything the caller may read
// @Description The merged snapshot filtered by role; codes of other people are blanked
// @Tags school
// @Produce json
// @Success 200 {object} util.Response{data=service.SchoolView}
// @Router /api/school [get]
func (c *SchoolController) View(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	util.Success(ctx, c.Progress.CurrentView(p))
}

func (c *SchoolController) Settings(ctx *gin.Context) {
	util.Success(ctx, c.School.Snapshot().Settings)
}

type SettingsRequest struct {
	SchoolName string `json:"schoolName" binding:"required"`
	Theme      string `json:"theme"`
}

func (c *SchoolController) UpdateSettings(ctx *gin.Context) {
	var req SettingsRequest
	if !bind(ctx, &req) {
		return
	}
	pending, err := c.School.UpdateSettings(ctx.Request.Context(), model.Settings{SchoolName: req.SchoolName, Theme: req.Theme})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, c.School.Snapshot().Settings, pending)
}

// Leaderboard returns the weekly ranking of one class. Teachers and parents
// see their own class; the admin picks one with ?teacherId.
func (c *SchoolController) Leaderboard(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	entries, err := c.Progress.LeaderboardFor(p, ctx.Query("teacherId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
