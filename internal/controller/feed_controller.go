package controller

import (
	"github.com/gin-gonic/gin"

	"hifz_backend/internal/service"
)

// FeedController upgrades to a websocket that streams the caller's view of
// the school on every change.
type FeedController struct {
	Hub *service.SnapshotHub
}

func NewFeedController(hub *service.SnapshotHub) *FeedController {
	return &FeedController{Hub: hub}
}

func (c *FeedController) Connect(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, p)
}
