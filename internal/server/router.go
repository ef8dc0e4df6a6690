package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/teachbridge/backend/internal/handlers"
	"github.com/teachbridge/backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	UserHandler    *handlers.UserHandler
	CourseHandler  *handlers.CourseHandler
	BatchHandler   *handlers.BatchHandler
	ContentHandler *handlers.ContentHandler
	QuizHandler    *handlers.QuizHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// User
	protected.GET("/user", cfg.UserHandler.GetProfile)
	protected.PATCH("/user", cfg.UserHandler.UpdateProfile)
	// Courses (read)
	protected.GET("/courses", cfg.CourseHandler.List)
	protected.GET("/courses/:courseId", cfg.CourseHandler.Get)
	// Week content for the calling teacher
	protected.GET("/weeks/:weekId/content", cfg.ContentHandler.WeekContentStatus)
	protected.POST("/content/:fileId/viewed", cfg.ContentHandler.MarkViewed)
	// Quizzes
	protected.POST("/content/:fileId/quiz/generate", cfg.QuizHandler.Generate)
	protected.GET("/content/:fileId/quiz", cfg.QuizHandler.GetActive)
	protected.POST("/content/:fileId/quiz/regenerate", cfg.QuizHandler.Regenerate)
	protected.GET("/content/:fileId/quiz/history", cfg.QuizHandler.History)
	protected.POST("/quiz/:generationId/submit", cfg.QuizHandler.Submit)
	protected.GET("/weeks/:weekId/checkpoint", cfg.QuizHandler.Checkpoint)

	// ===============
	// || Authoring ||
	// ===============
	authoring := router.Group("/")
	authoring.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAuthor())
	// Courses
	authoring.POST("/courses", cfg.CourseHandler.Create)
	authoring.PATCH("/courses/:courseId", cfg.CourseHandler.Update)
	authoring.DELETE("/courses/:courseId", cfg.CourseHandler.Delete)
	// Weeks
	authoring.POST("/courses/:courseId/weeks", cfg.CourseHandler.AddWeek)
	authoring.POST("/courses/:courseId/weeks/reorder", cfg.CourseHandler.ReorderWeeks)
	authoring.PATCH("/weeks/:weekId", cfg.CourseHandler.RenameWeek)
	authoring.DELETE("/weeks/:weekId", cfg.CourseHandler.DeleteWeek)
	// Files
	authoring.POST("/weeks/:weekId/files", cfg.ContentHandler.UploadDeck)
	authoring.GET("/weeks/:weekId/files", cfg.ContentHandler.ListWeekFiles)
	authoring.DELETE("/content/:fileId", cfg.ContentHandler.DeleteFile)
	authoring.POST("/content/:fileId/quiz/warm", cfg.QuizHandler.Warm)
	// Batches
	authoring.POST("/batches", cfg.BatchHandler.Create)
	authoring.GET("/batches", cfg.BatchHandler.List)
	authoring.GET("/batches/:batchId", cfg.BatchHandler.Get)
	authoring.POST("/batches/:batchId/members", cfg.BatchHandler.AddMember)
	authoring.DELETE("/batches/:batchId", cfg.BatchHandler.Delete)

	return router
}
