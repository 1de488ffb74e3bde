package controller

import (
	"github.com/gin-gonic/gin"

	"hifz_backend/internal/model"
	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

type LoginRequest struct {
	Role   string `json:"role" binding:"required,oneof=admin teacher parent"`
	Secret string `json:"secret" binding:"required"`
}

// Login godoc
// @Summary Log in with a shared secret
// @Description Teachers use their login code, parents the parent code, the admin the admin password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "credentials"
// @Success 200 {object} util.Response{data=service.LoginResult}
// @Failure 401 {object} util.Response
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if !bind(ctx, &req) {
		return
	}

	res, err := c.AuthService.Login(ctx.Request.Context(), model.UserRole(req.Role), req.Secret)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Me returns the principal of the current session.
func (c *AuthController) Me(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	util.Success(ctx, p)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// ChangeAdminPassword godoc
// @Summary Change the admin password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body ChangePasswordRequest true "passwords"
// @Success 200 {object} util.Response
// @Router /api/admin/password [put]
func (c *AuthController) ChangeAdminPassword(ctx *gin.Context) {
	var req ChangePasswordRequest
	if !bind(ctx, &req) {
		return
	}
	if err := c.AuthService.ChangeAdminPassword(ctx.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
