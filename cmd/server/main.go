package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ducnx/licgate/internal/chat"
	"github.com/ducnx/licgate/internal/clock"
	"github.com/ducnx/licgate/internal/config"
	"github.com/ducnx/licgate/internal/handler"
	"github.com/ducnx/licgate/internal/middleware"
	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/ducnx/licgate/internal/service"
	"github.com/ducnx/licgate/migrations"
	"github.com/ducnx/licgate/pkg/auth"
	"github.com/ducnx/licgate/pkg/mailer"
	"github.com/ducnx/licgate/pkg/notification"
	"github.com/ducnx/licgate/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           LicGate API
// @version         1.0
// @description     License validation, device registry and expiry notification service.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@licgate.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting LicGate API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		// Fallback to AutoMigrate if migration files fail
		if err := db.AutoMigrate(
			&model.Subscription{},
			&model.DeviceBinding{},
			&model.NotificationRule{},
			&model.AuditLog{},
			&model.SessionCredential{},
			&model.Operator{},
			&model.OperatorDevice{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Email (SMTP / Mailpit) ====================
	mailClient := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	log.Printf("📧 SMTP configured: %s:%s", cfg.SMTP.Host, cfg.SMTP.Port)

	// ==================== Initialize Layers ====================
	// JWT Manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	subRepo := repository.NewSubscriptionRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	credRepo := repository.NewCredentialRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)

	// MinIO Storage (hosts pairing challenge images)
	minioStorage, err := storage.NewMinIO(storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		log.Printf("⚠️  MinIO not available: %v (pairing challenges shown as raw state only)", err)
	}
	if minioStorage != nil {
		log.Println("✅ Connected to MinIO")
	}

	// Firebase (pairing alerts to operator devices)
	alertService, err := notification.NewAlertService(cfg.Firebase.CredentialsFile, operatorRepo)
	if err != nil {
		log.Printf("⚠️  Firebase not available: %v (pairing alerts disabled)", err)
	}
	if alertService != nil {
		log.Println("✅ Firebase messaging initialized")
	}

	// Messaging session (chat gateway connection)
	transport := chat.NewWSTransport(cfg.Gateway.URL, cfg.Gateway.Token, cfg.Gateway.ConnectTimeout)
	var challenges chat.ChallengePublisher
	if minioStorage != nil {
		challenges = minioStorage
	}
	session := chat.NewSession(transport, credRepo, challenges, cfg.Gateway.SendTimeout, cfg.Gateway.RetryDelay)

	session.OnStateChange(func(state chat.State, challengeURL string) {
		payload, _ := json.Marshal(chat.Status{State: state, ChallengeURL: challengeURL})
		if err := rdb.Publish(context.Background(), "licgate:session:state", payload).Err(); err != nil {
			log.Printf("⚠️  Failed to publish session state: %v", err)
		}

		if state == chat.StatePairing && alertService != nil {
			if err := alertService.SendPairingAlert(context.Background(), challengeURL); err != nil {
				log.Printf("⚠️  Failed to send pairing alert: %v", err)
			}
		}
	})

	// Services
	clk := clock.New()
	licenseService := service.NewLicenseService(subRepo, auditRepo, clk)
	subService := service.NewSubscriptionService(subRepo)
	heartbeat := service.NewHeartbeatAggregator(subRepo, clk, cfg.Heartbeat.FlushInterval)
	notifier := service.NewNotifier(subRepo, ruleRepo, auditRepo, session, mailClient, clk, cfg.Notify.Hour)
	adminService := service.NewAdminService(operatorRepo, jwtManager, rdb)

	// Background loops
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go session.Run(bgCtx)
	go heartbeat.Run(bgCtx)
	go notifier.Run(bgCtx)

	// Handlers
	validateHandler := handler.NewValidateHandler(licenseService, heartbeat)
	subHandler := handler.NewSubscriptionHandler(subService, licenseService)
	sessionHandler := handler.NewSessionHandler(session, heartbeat, auditRepo, cfg.Heartbeat.ActiveWindow)
	ruleHandler := handler.NewRuleHandler(ruleRepo)
	auditHandler := handler.NewAuditHandler(auditRepo)
	authHandler := handler.NewAuthHandler(adminService)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger configuration
	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")

	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "licgate-api",
			"session": session.StatusSnapshot().State,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Client routes (public, hit by licensed installs)
		api.POST("/validate", validateHandler.Validate)
		api.POST("/heartbeat", validateHandler.Heartbeat)

		// Auth routes (public)
		api.POST("/auth/login", authHandler.Login)

		// Protected admin routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, rdb))
		{
			// Auth
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/profile", authHandler.GetProfile)
			protected.POST("/admin/devices", authHandler.RegisterDevice)

			// Subscriptions
			protected.GET("/subscriptions", subHandler.List)
			protected.POST("/subscriptions", subHandler.Create)
			protected.GET("/subscriptions/:id", subHandler.Get)
			protected.PUT("/subscriptions/:id", subHandler.Update)
			protected.DELETE("/subscriptions/:id", subHandler.Delete)
			protected.POST("/subscriptions/:id/devices/remove", subHandler.RemoveDevice)
			protected.POST("/subscriptions/:id/devices/reset", subHandler.ResetDevices)
			protected.PUT("/subscriptions/:id/capacity", subHandler.SetCapacity)

			// Messaging session
			protected.GET("/messaging/status", sessionHandler.Status)
			protected.POST("/messaging/logout", sessionHandler.Logout)
			protected.GET("/stats", sessionHandler.Stats)

			// Notification settings
			protected.GET("/settings/notifications", ruleHandler.Get)
			protected.PUT("/settings/notifications", ruleHandler.Update)

			// Audit log
			protected.GET("/audit", auditHandler.List)
		}
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 LicGate API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 Chat gateway: %s", cfg.Gateway.URL)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	bgCancel()
	log.Println("✅ Server exited gracefully")
}
