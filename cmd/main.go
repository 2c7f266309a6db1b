package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"pageguard/docs/swagger"
	"pageguard/internal/api"
	"pageguard/internal/cache"
	"pageguard/internal/config"
	"pageguard/internal/db"
	"pageguard/internal/events"
	"pageguard/internal/ledger"
	"pageguard/internal/models"
	"pageguard/internal/notify"
	"pageguard/internal/permissions"
	"pageguard/internal/resolver"
	"pageguard/internal/services"
	"pageguard/internal/tasks"
	"pageguard/internal/tasks/rate"
	"pageguard/internal/utils"
	"pageguard/internal/utils/logger"
)

// @title pageguard API
// @version 1.0
// @description Page level access control with audited comments.
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logger := logger.New("pageguard")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		logger.Info("No .env file found, skipping environment variable loading")
	} else {
		logger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setLogLevel(cfg.Log.Level)

	// Connect to database
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			_ = logger.Error("Failed to close database connection", err)
		}
	}()
	dbInstance := db.GetDB()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Permission stack
	var permCache cache.PermissionCache
	switch cfg.Cache.Backend {
	case "redis":
		permCache = cache.NewRedis(redisClient, cfg.Cache.TTL)
	default:
		permCache = cache.NewMemory(cfg.Cache.TTL)
	}
	store := permissions.NewStore(dbInstance)
	permResolver := resolver.New(dbInstance, store, permCache)
	commentLedger := ledger.New(dbInstance)

	// Archives of deleted users, optionally offloaded to S3
	var uploader services.ObjectUploader
	if cfg.Audit.Offload && cfg.Storage.S3.Enabled() {
		s3Service, err := services.NewS3Service(context.Background(), cfg.Storage.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		uploader = s3Service
	} else if cfg.Audit.Offload {
		logger.Warn("Archive offload requested but S3 storage is not configured")
	}
	archiver := services.NewHistoryArchiver(cfg.Audit.SigningKey, uploader)

	// Background tasks
	taskClient := tasks.NewTaskClient(cfg.Redis)
	defer taskClient.Close()

	otpLimiter := rate.NewOTPLimiter(redisClient, rate.RateLimit{
		Window:      cfg.OTP.Window,
		MaxRequests: cfg.OTP.MaxRequests,
	})
	issuer := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	adminService, err := services.NewAdminService(dbInstance, store, permResolver, archiver)
	if err != nil {
		log.Fatalf("Failed to initialize admin service: %v", err)
	}
	commentService := services.NewCommentService(dbInstance, permResolver, commentLedger)
	authService := services.NewAuthService(dbInstance, issuer, otpLimiter, taskClient, cfg.OTP)

	registerEventLogging(logger)

	taskHandler := tasks.NewTaskHandler(dbInstance, notify.NewMailer(cfg.SMTP))
	taskServer := tasks.NewServer(cfg.Redis, cfg.Worker.Concurrency, taskHandler)

	// Start task server
	go func() {
		if err := taskServer.Start(); err != nil {
			_ = logger.Error("Task server error", err)
		}
	}()

	// Start task scheduler
	taskScheduler := tasks.NewScheduler(cfg.Redis, cfg.Worker.PurgeSchedule)
	go func() {
		if err := taskScheduler.Start(); err != nil {
			_ = logger.Error("Task scheduler error", err)
		}
	}()

	// Initialize API server
	apiServer, err := api.NewServer(cfg, api.Dependencies{
		DB:       dbInstance,
		Auth:     authService,
		Comments: commentService,
		Admin:    adminService,
		Resolver: permResolver,
	})
	if err != nil {
		log.Fatalf("Failed to initialize API server: %v", err)
	}

	go func() {
		// Swagger documentation
		swagger.SwaggerInfo.Title = "pageguard API Documentation"
		swagger.SwaggerInfo.Description = "Page level access control with audited comments"
		swagger.SwaggerInfo.Version = "1.0"
		if cfg.Server.PublicURL != "" {
			swagger.SwaggerInfo.Host = cfg.Server.PublicURL
		}

		logger.Success("API server started on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := apiServer.Start(); err != nil {
			_ = logger.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	taskScheduler.Stop()
	taskServer.Shutdown()

	if err := apiServer.Shutdown(ctx); err != nil {
		_ = logger.Error("Failed to shutdown API server", err)
	}
	events.Wait()

	logger.Info("Servers shutdown gracefully")
}

func setLogLevel(level string) {
	logger.SetLevel(logger.ParseLevel(level))
}

// registerEventLogging writes an audit line for each domain event.
func registerEventLogging(l *logger.Logger) {
	events.On(events.UserCreated, func(data interface{}) {
		l.Info("User created: %v", data)
	})
	events.On(events.UserDeleted, func(data interface{}) {
		if r, ok := data.(*services.DeletionReport); ok {
			l.Info("User %s deleted: %d grants, %d comments, %d history entries removed",
				r.UserID, r.Grants, r.Comments, r.History)
		}
	})
	events.On(events.GrantUpdated, func(data interface{}) {
		if p, ok := data.(*models.PagePermission); ok {
			l.Info("Permission of %s on page %s updated", p.UserID, p.PageID)
		}
	})
	events.On(events.PasswordReset, func(data interface{}) {
		l.Info("Password reset for user %v", data)
	})
	events.On(events.ArchiveRecorded, func(data interface{}) {
		if a, ok := data.(*models.UserArchive); ok {
			l.Info("Archive %s recorded for %s", a.ID, a.Email)
		}
	})
}
