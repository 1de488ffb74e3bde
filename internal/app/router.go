package app

import (
	"github.com/gin-gonic/gin"

	"hifz_backend/internal/config"
	"hifz_backend/internal/middleware"
	"hifz_backend/internal/model"
	"hifz_backend/pkg/monitoring"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 1. public routes
	a.registerPublicRoutes(router, c, cfg)

	// 2. every signed-in role
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerCommonRoutes(authGroup, c)

		// 3. one student, reached by its teacher or its parent
		a.registerStudentRoutes(authGroup, c)

		// 4. teacher routes; the admin passes every role check
		a.registerTeacherRoutes(authGroup, c)

		// 5. admin only
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/login", a.limiter("login", cfg.RateLimit.LoginMaxRequests, cfg).Middleware(), c.auth.Login)
	}
}

func (a *App) registerCommonRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/auth/me", c.auth.Me)
	rg.GET("/school", c.school.View)
	rg.GET("/settings", c.school.Settings)
	rg.GET("/leaderboard", c.school.Leaderboard)
	rg.GET("/announcements", c.announcement.List)
	rg.GET("/ws", c.feed.Connect)
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("/students/:id")
	student.Use(middleware.OwnStudent())
	{
		student.GET("", c.student.Get)
		student.PUT("/parent-phone", c.student.UpdateParentPhone)
		student.PUT("/schedule", c.student.UpdateSchedule)

		student.GET("/logs", c.log.List)
		student.POST("/logs/seen", c.log.MarkSeen)

		quiz := student.Group("/logs/:logId/quiz")
		{
			quiz.POST("/start", c.quiz.Start)
			quiz.GET("", c.quiz.Current)
			quiz.POST("/select", c.quiz.Select)
			quiz.POST("/cancel", c.quiz.Cancel)
			quiz.POST("/confirm", c.quiz.Confirm)
			quiz.POST("/next", c.quiz.Next)
			quiz.POST("/submit", c.quiz.Submit)
		}
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("")
	teacher.Use(middleware.RoleMiddleware(model.RoleTeacher))
	{
		teacher.GET("/students", c.student.List)
		teacher.POST("/students", c.student.Create)

		student := teacher.Group("/students/:id")
		{
			student.PUT("", c.student.Update)
			student.DELETE("", c.student.Delete)
			student.PUT("/next-plan", c.student.SetNextPlan)
			student.DELETE("/next-plan", c.student.ClearNextPlan)
			student.PUT("/fee-reminder", c.student.SetFeeReminder)
			student.DELETE("/fee-reminder", c.student.ClearFeeReminder)
			student.POST("/payments", c.student.AddPayment)
			student.POST("/badges", c.student.AwardBadge)

			student.POST("/logs", c.log.Create)
			student.PUT("/logs/:logId", c.log.Update)
			student.DELETE("/logs/:logId", c.log.Delete)
		}

		teacher.POST("/announcements", c.announcement.Create)
		teacher.PUT("/announcements/:id", c.announcement.Update)
		teacher.DELETE("/announcements/:id", c.announcement.Delete)

		teacher.GET("/adab", c.adab.List)
		teacher.GET("/adab/:id", c.adab.Get)
		teacher.POST("/adab", c.adab.Create)
		teacher.PUT("/adab/:id", c.adab.Update)
		teacher.POST("/adab/:id/publish", c.adab.Publish)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.PUT("/password", c.auth.ChangeAdminPassword)

		admin.GET("/teachers", c.teacher.List)
		admin.GET("/teachers/:id", c.teacher.Get)
		admin.POST("/teachers", c.teacher.Create)
		admin.PUT("/teachers/:id", c.teacher.Update)
		admin.DELETE("/teachers/:id", c.teacher.Delete)

		admin.DELETE("/adab/:id", c.adab.Delete)
		admin.POST("/adab/:id/repush", c.adab.Repush)

		admin.PUT("/settings", c.school.UpdateSettings)

		admin.GET("/backups", c.backup.List)
		admin.POST("/backups", c.backup.Export)
	}
}
