package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hifz_backend/internal/util"
)

// ConnectivityReporter tells whether the remote store is reachable.
type ConnectivityReporter interface {
	Connected() bool
}

type HealthController struct {
	Engine ConnectivityReporter
	DB     *gorm.DB
}

// NewHealthController takes a nil db when no SQL cache is configured.
func NewHealthController(engine ConnectivityReporter, db *gorm.DB) *HealthController {
	return &HealthController{Engine: engine, DB: db}
}

// @Summary Health check
// @Description Reports remote store connectivity and the state of the local cache
// @Tags system
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	components := gin.H{"remote": "up", "cache": "memory"}
	// offline is degraded, not down: changes queue until the store is back
	if !c.Engine.Connected() {
		components["remote"] = "offline"
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			util.InternalServerError(ctx)
			return
		}
		pctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pctx); err != nil {
			util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		components["cache"] = "up"
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
