package app

import (
	"unicodeprep_backend/docs"
	"unicodeprep_backend/internal/config"
	"unicodeprep_backend/internal/middleware"
	"unicodeprep_backend/internal/model"
	"unicodeprep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		// 公共接口
		api.GET("/health", c.health.HealthCheck)
		api.POST("/register/student", c.auth.RegisterStudent)
		api.POST("/register/professor", c.auth.RegisterProfessor)
		api.POST("/login", c.auth.Login)
		api.POST("/password/forgot", c.auth.ForgotPassword)
		api.POST("/password/reset", c.auth.ResetPassword)

		// 需登录接口
		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(cfg))
		{
			authed.GET("/profile", c.auth.GetProfile)

			authed.GET("/progress", c.progress.GetProgress)
			authed.DELETE("/progress", c.progress.ClearProgress)
			authed.GET("/progress/summary", c.progress.GetProgressSummary)

			authed.POST("/problems/:problemId/submissions", c.progress.SubmitSolution)
			authed.GET("/problems/:problemId/submissions", c.progress.GetProblemSubmissions)
			authed.GET("/submissions", c.progress.GetAllSubmissions)

			authed.POST("/interviews", c.progress.CompleteInterview)
			authed.GET("/attendance", c.progress.GetAttendance)
			authed.GET("/leaderboard", c.progress.GetLeaderboard)

			// 教师端
			professor := authed.Group("/students")
			professor.Use(middleware.RoleMiddleware(model.Professor))
			{
				professor.GET("", c.progress.GetStudents)
				professor.GET("/:id/progress", c.progress.GetStudentProgress)
			}
		}
	}
}
