package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/teachbridge/backend/internal/db"
	"github.com/teachbridge/backend/internal/handlers"
	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/middleware"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/server"
	"github.com/teachbridge/backend/internal/services"
	"github.com/teachbridge/backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, relying on process environment")
	}
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	quizCacheTTL := utils.GetEnvAsInt("QUIZ_CACHE_TTL", 86400, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis
	redisClient, err := db.NewRedisClient(log)
	if err != nil {
		log.Warn("Redis init failed, quiz cache disabled", "error", err)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	weekRepo := repos.NewTrainingWeekRepo(thePG, log)
	fileRepo := repos.NewContentFileRepo(thePG, log)
	progressRepo := repos.NewContentProgressRepo(thePG, log)
	genRepo := repos.NewQuizGenerationRepo(thePG, log)
	questionRepo := repos.NewQuizQuestionRepo(thePG, log)
	attemptRepo := repos.NewQuizAttemptRepo(thePG, log)
	batchRepo := repos.NewBatchRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	var quizCache services.QuizCacheService
	if redisClient != nil {
		quizCache = services.NewQuizCacheService(log, redisClient, time.Duration(quizCacheTTL)*time.Second)
	}
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(thePG, log, userRepo)
	progressService := services.NewProgressService(thePG, log, userRepo, weekRepo, fileRepo, progressRepo)
	quizService := services.NewQuizService(thePG, log, weekRepo, fileRepo, genRepo, questionRepo, attemptRepo, progressService, openaiClient, quizCache)
	fileService := services.NewFileService(thePG, log, weekRepo, fileRepo, progressRepo, genRepo, questionRepo, attemptRepo, bucketService, services.ExtractDeckText, quizService, quizCache)
	courseService := services.NewCourseService(thePG, log, courseRepo, weekRepo, fileRepo, fileService, quizCache)
	batchService := services.NewBatchService(thePG, log, batchRepo, userRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	courseHandler := handlers.NewCourseHandler(courseService)
	batchHandler := handlers.NewBatchHandler(batchService)
	contentHandler := handlers.NewContentHandler(fileService, progressService)
	quizHandler := handlers.NewQuizHandler(quizService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		UserHandler:    userHandler,
		CourseHandler:  courseHandler,
		BatchHandler:   batchHandler,
		ContentHandler: contentHandler,
		QuizHandler:    quizHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
