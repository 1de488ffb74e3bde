package controller

import (
	"github.com/gin-gonic/gin"

	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

type BackupController struct {
	Backups *service.BackupService
}

func NewBackupController(backups *service.BackupService) *BackupController {
	return &BackupController{Backups: backups}
}

// Export godoc
// @Summary Export the current snapshot
// @Description Writes one JSON file per collection plus a manifest to object storage
// @Tags admin
// @Produce json
// @Success 201 {object} util.Response{data=service.BackupManifest}
// @Router /api/admin/backups [post]
func (c *BackupController) Export(ctx *gin.Context) {
	m, err := c.Backups.Export(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, m)
}

func (c *BackupController) List(ctx *gin.Context) {
	list, err := c.Backups.List(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
