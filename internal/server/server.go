package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/classmate/classroom-assistant/internal/ai"
	"github.com/classmate/classroom-assistant/internal/config"
	"github.com/classmate/classroom-assistant/internal/handler"
	"github.com/classmate/classroom-assistant/internal/middleware"
	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/processor"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/internal/service"
	"github.com/classmate/classroom-assistant/pkg/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine    *gin.Engine
	cfg       *config.Config
	processor *processor.Processor
	llm       *ai.LLMClient
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	ctx := context.Background()

	userRepo := repository.NewUserRepository(db)
	lectureRepo := repository.NewLectureRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	chatRepo := repository.NewChatRepository(db)

	blobStorage, err := storage.NewS3Storage(ctx)
	if err != nil {
		log.Printf("blob storage disabled: %v", err)
		blobStorage = nil
	}

	var searchSvc service.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliClient := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = service.NewSearchService(meiliClient)
	} else {
		log.Println("MEILISEARCH_HOST not set, lecture search disabled")
	}

	speechClient := ai.NewSpeechClient()
	if !speechClient.Available() {
		log.Println("RAPIDAPI_KEY not set, transcription disabled")
	}

	llmClient, err := ai.NewLLMClient(ctx)
	if err != nil {
		log.Printf("language model disabled: %v", err)
		llmClient = nil
	}

	notificationSvc := service.NewNotificationService(notificationRepo, redisClient)
	authSvc := service.NewAuthService(userRepo, blobStorage)
	userSvc := service.NewUserService(userRepo)
	lectureSvc := service.NewLectureService(lectureRepo, userRepo, notificationSvc, searchSvc, blobStorage)
	taskSvc := service.NewTaskService(taskRepo, lectureRepo, userRepo, notificationSvc)
	chatSvc := service.NewChatService(chatRepo, userRepo, blobStorage, redisClient, cfg.RateLimitMessage)

	proc := processor.New(
		lectureRepo, taskRepo, userRepo,
		notificationSvc, searchSvc,
		speechClient, llmClient,
		cfg.ProcessingInterval, cfg.ProcessingBatch,
	)
	if err := proc.Start(); err != nil {
		log.Printf("failed to start lecture processor: %v", err)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	lectureHandler := handler.NewLectureHandler(lectureSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, redisClient)
	chatHandler := handler.NewChatHandler(chatSvc, redisClient)
	aiHandler := handler.NewAIHandler(speechClient, llmClient)
	processingHandler := handler.NewProcessingHandler(proc, lectureRepo)
	healthHandler := handler.NewHealthHandler(db, blobStorage, speechClient, llmClient)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	setupCORS(router, cfg.AllowedOrigins)

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"service": "classroom-assistant", "status": "running"})
	})

	api := router.Group("/api")
	api.GET("/health", healthHandler.Check)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(userRepo))
	{
		protected.GET("/auth/me", authHandler.GetProfile)
		protected.PUT("/auth/me", authHandler.UpdateProfile)
		protected.POST("/auth/me/avatar", authHandler.UploadAvatar)

		protected.GET("/users", userHandler.ListUsers)
		protected.GET("/users/:id", userHandler.GetUser)

		protected.GET("/lectures", lectureHandler.ListLectures)
		protected.GET("/lectures/search", lectureHandler.SearchLectures)
		protected.GET("/lectures/:id", lectureHandler.GetLecture)

		teacherOnly := protected.Group("")
		teacherOnly.Use(middleware.RequireRole(model.RoleTeacher))
		{
			teacherOnly.POST("/lectures", lectureHandler.CreateLecture)
			teacherOnly.PUT("/lectures/:id", lectureHandler.UpdateLecture)
			teacherOnly.DELETE("/lectures/:id", lectureHandler.DeleteLecture)
			teacherOnly.POST("/lectures/:id/upload-audio", lectureHandler.UploadAudio)
			teacherOnly.POST("/tasks", taskHandler.CreateTask)
			teacherOnly.DELETE("/tasks/:id", taskHandler.DeleteTask)

			teacherOnly.GET("/process/status", processingHandler.GetStatus)
			teacherOnly.POST("/process/start", processingHandler.Start)
			teacherOnly.POST("/process/stop", processingHandler.Stop)
			teacherOnly.POST("/process/lecture/:id", processingHandler.ProcessLecture)
			teacherOnly.GET("/process/unprocessed", processingHandler.ListUnprocessed)
			teacherOnly.POST("/process/retry-failed", processingHandler.RetryFailed)
		}

		protected.GET("/tasks", taskHandler.ListTasks)
		protected.GET("/tasks/:id", taskHandler.GetTask)
		protected.PUT("/tasks/:id", taskHandler.UpdateTask)

		protected.POST("/notifications", notificationHandler.CreateNotification)
		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		chat := protected.Group("/chat")
		{
			chat.POST("/rooms", chatHandler.CreateRoom)
			chat.GET("/rooms", chatHandler.ListRooms)
			chat.GET("/rooms/:id", chatHandler.GetRoom)
			chat.DELETE("/rooms/:id", chatHandler.DeleteRoom)
			chat.POST("/rooms/:id/messages", chatHandler.SendMessage)
			chat.GET("/rooms/:id/messages", chatHandler.ListMessages)
			chat.POST("/rooms/:id/documents", chatHandler.SendDocument)
			chat.PUT("/rooms/:id/read", chatHandler.MarkMessagesRead)
			chat.DELETE("/messages/:messageId", chatHandler.DeleteMessage)
			chat.GET("/rooms/:id/ws", chatHandler.HandleWebSocket)
		}

		aiGroup := protected.Group("/ai")
		{
			aiGroup.POST("/transcribe", aiHandler.Transcribe)
			aiGroup.POST("/summarize", aiHandler.Summarize)
			aiGroup.POST("/key-points", aiHandler.KeyPoints)
			aiGroup.POST("/extract-tasks", aiHandler.ExtractTasks)
			aiGroup.POST("/quiz", aiHandler.GenerateQuiz)
		}
	}

	return &Server{
		engine:    router,
		cfg:       cfg,
		processor: proc,
		llm:       llmClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Shutdown stops the background processor and releases the LLM client.
func (s *Server) Shutdown() {
	if s.processor != nil {
		s.processor.Stop()
	}
	if s.llm != nil {
		s.llm.Close()
	}
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	origins := []string{"http://localhost:3000"}
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
