package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"hifz_backend/internal/model"
	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

type AnnouncementController struct {
	School   *service.SchoolService
	Progress *service.ProgressService
}

func NewAnnouncementController(school *service.SchoolService, progress *service.ProgressService) *AnnouncementController {
	return &AnnouncementController{School: school, Progress: progress}
}

// AnnouncementRequest leaves Target empty to address the author's own
// class, or the whole school when the admin writes it.
type AnnouncementRequest struct {
	Target       string              `json:"target"`
	Kind         string              `json:"kind" binding:"omitempty,oneof=GENERAL EXAM_SCHEDULE"`
	Title        string              `json:"title"`
	Content      string              `json:"content"`
	ExpiresAt    *time.Time          `json:"expiresAt"`
	ExamSchedule *model.ExamSchedule `json:"examSchedule"`
}

func (r AnnouncementRequest) announcement(id string) model.Announcement {
	return model.Announcement{
		ID:           id,
		Target:       r.Target,
		Kind:         model.AnnouncementKind(r.Kind),
		Title:        r.Title,
		Content:      r.Content,
		ExpiresAt:    r.ExpiresAt,
		ExamSchedule: r.ExamSchedule,
	}
}

// List returns the active announcements the caller can see.
func (c *AnnouncementController) List(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	util.Success(ctx, c.Progress.CurrentView(p).Announcements)
}

// Create godoc
// @Summary Publish an announcement
// @Description Parents of the targeted class are notified by push
// @Tags announcements
// @Accept json
// @Produce json
// @Param body body AnnouncementRequest true "announcement"
// @Success 201 {object} util.Response{data=model.Announcement}
// @Failure 403 {object} util.Response "target outside the teacher's class"
// @Router /api/announcements [post]
func (c *AnnouncementController) Create(ctx *gin.Context) {
	c.publish(ctx, "", respondCreated)
}

func (c *AnnouncementController) Update(ctx *gin.Context) {
	if _, ok := c.School.Snapshot().Announcements.Get(ctx.Param("id")); !ok {
		util.NotFound(ctx)
		return
	}
	c.publish(ctx, ctx.Param("id"), respond)
}

func (c *AnnouncementController) publish(ctx *gin.Context, id string, reply func(*gin.Context, interface{}, *syncPending)) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req AnnouncementRequest
	if !bind(ctx, &req) {
		return
	}
	saved, pending, err := c.School.PublishAnnouncement(ctx.Request.Context(), p, req.announcement(id))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	reply(ctx, saved, pending)
}

func (c *AnnouncementController) Delete(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	pending, err := c.School.DeleteAnnouncement(ctx.Request.Context(), p, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}
