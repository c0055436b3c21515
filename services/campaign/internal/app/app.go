package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mao-amiga/pkg/cache"
	"mao-amiga/pkg/config"
	"mao-amiga/pkg/database"
	"mao-amiga/pkg/jwt"
	"mao-amiga/pkg/logger"
	"mao-amiga/pkg/middleware"
	"mao-amiga/pkg/queue"
	"mao-amiga/pkg/s3"
	campaignHTTP "mao-amiga/services/campaign/internal/controller/http"
	"mao-amiga/services/campaign/internal/repo/persistent"
	"mao-amiga/services/campaign/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "mao-amiga/services/campaign/docs" // Swagger docs
)

const (
	apiRateLimit       = 100
	ledgerTaskTimeout  = 30 * time.Second
	maxMultipartMemory = 8 << 20
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	s3Client    *s3.Client
	jwtService  *jwt.Service
	queueClient *queue.Client
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.NewWithEnv(cfg.AppEnv).With("service", "campaign")

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v (continuing without cache and rate limiting)", err)
		redisClient = nil
	}

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create S3 client: %v", err)
		return nil, err
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		queueClient: queueClient,
	}, nil
}

func (a *App) Run() error {
	if !a.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize repositories
	campaignRepo := persistent.NewCampaignRepository(a.db)

	// A nil *queue.Client must not end up inside a non-nil interface.
	var publisher usecase.TaskPublisher
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	// Initialize use cases
	campaignUseCase := usecase.NewCampaignUseCase(campaignRepo, a.s3Client, a.redisClient, a.cfg.PlaceholderImageURL, a.log)
	donationUseCase := usecase.NewDonationUseCase(campaignRepo, a.s3Client, publisher, a.redisClient, a.log)

	// Initialize HTTP handlers
	campaignHandler := campaignHTTP.NewCampaignHandler(campaignUseCase, donationUseCase, a.log)

	if a.queueClient != nil {
		err := a.queueClient.ConsumeTasks(queue.LedgerQueueName, func(task queue.Task) error {
			ctx, cancel := context.WithTimeout(context.Background(), ledgerTaskTimeout)
			defer cancel()
			return donationUseCase.HandleLedgerTask(ctx, task)
		})
		if err != nil {
			a.log.Error("Failed to start ledger consumer: %v", err)
		}
	}

	router := NewRouter(a.cfg, a.jwtService, a.redisClient, campaignHandler)

	// Create HTTP server
	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		a.log.Info("Campaign service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func NewRouter(cfg *config.Config, jwtService *jwt.Service, redisClient *redis.Client, campaignHandler *campaignHTTP.CampaignHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())
	r.MaxMultipartMemory = maxMultipartMemory

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		api.GET("/campaigns", campaignHandler.ListCampaigns)
		api.GET("/campaigns/:id", campaignHandler.GetCampaign)
		api.GET("/campaigns/:id/supporters", campaignHandler.ListSupporters)

		donations := api.Group("")
		donations.Use(middleware.OptionalAuthMiddleware(jwtService))
		donations.Use(middleware.RateLimitMiddleware(redisClient, cfg.DonationRateLimit, time.Minute))
		{
			donations.POST("/campaigns/:id/donations", campaignHandler.Donate)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		protected.Use(middleware.RateLimitMiddleware(redisClient, apiRateLimit, time.Minute))
		{
			protected.POST("/campaigns", campaignHandler.CreateCampaign)
			protected.PUT("/campaigns/:id", campaignHandler.UpdateCampaign)
			protected.DELETE("/campaigns/:id", campaignHandler.DeleteCampaign)
			protected.POST("/campaigns/:id/finalize", campaignHandler.FinalizeCampaign)
			protected.POST("/campaigns/:id/reconcile", campaignHandler.ReconcileCampaign)
			protected.GET("/dashboard/campaigns", campaignHandler.Dashboard)
			protected.GET("/dashboard/campaigns/:id", campaignHandler.GetOwnerCampaign)
		}
	}

	return r
}

func (a *App) Wait() {
	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down campaign service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown server
	var shutdownErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.log.Error("Server forced to shutdown: %v", err)
			shutdownErr = err
		}
	}

	if a.queueClient != nil {
		a.queueClient.Close()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	sqlDB, err := a.db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("Error closing database: %v", err)
		}
	}

	a.log.Info("Campaign service exited")
	return shutdownErr
}
