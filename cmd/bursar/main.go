package main

import (
	"context"
	"os"
	"time"

	"github.com/pringgosatmoko/Creativestudio/internal/generate"
	"github.com/pringgosatmoko/Creativestudio/internal/handlers"
	"github.com/pringgosatmoko/Creativestudio/internal/keypool"
	"github.com/pringgosatmoko/Creativestudio/internal/ledger"
	"github.com/pringgosatmoko/Creativestudio/internal/notify"
	"github.com/pringgosatmoko/Creativestudio/internal/pricing"
	"github.com/pringgosatmoko/Creativestudio/internal/provider/gemini"
	"github.com/pringgosatmoko/Creativestudio/pkg/auth"
	"github.com/pringgosatmoko/Creativestudio/pkg/config"
	"github.com/pringgosatmoko/Creativestudio/pkg/database"
	"github.com/pringgosatmoko/Creativestudio/pkg/kafka"
	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
	"github.com/pringgosatmoko/Creativestudio/pkg/monitoring"
	"github.com/pringgosatmoko/Creativestudio/pkg/redis"
	"github.com/pringgosatmoko/Creativestudio/pkg/server"
	"github.com/pringgosatmoko/Creativestudio/pkg/version"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("bursar")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Bursar (Credits & Generation API)")

	dbURL := config.RequireEnv("DATABASE_URL")
	jwtSecret := config.RequireEnv("JWT_SECRET")

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	// Credential pool: ordered slots, empty ones kept so numbering is stable
	pool := keypool.New([]string{
		os.Getenv("GEMINI_API_KEY_1"),
		os.Getenv("GEMINI_API_KEY_2"),
		os.Getenv("GEMINI_API_KEY_3"),
	})
	if !pool.HasCredentials() {
		logger.Warn("No Gemini credentials configured, generation requests will be refused")
	}

	// Optional Redis price cache
	var cache goredis.UniversalClient
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       config.GetEnvInt("REDIS_DB", 0),
		})
		cancel()
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, price cache disabled")
		} else {
			cache = client
			defer cache.Close()
		}
	}

	// Optional Kafka usage event producer
	var events generate.EventSink
	var producer *kafka.Producer
	if brokers := config.GetEnvList("KAFKA_BROKERS", nil); len(brokers) > 0 {
		p, err := kafka.NewProducer(brokers, "bursar", config.GetEnv("KAFKA_USAGE_TOPIC", "usage-events"), logger)
		if err != nil {
			logger.WithError(err).Warn("Kafka unavailable, usage events disabled")
		} else {
			producer = p
			events = p
			defer producer.Close()
		}
	}

	// Domain services
	adminEmails := config.GetEnvList("ADMIN_EMAILS", nil)
	store := ledger.New(db, logger, adminEmails)
	prices := pricing.New(db, cache, logger)
	notifier := notify.NewTelegram(
		os.Getenv("TELEGRAM_BOT_TOKEN"),
		os.Getenv("TELEGRAM_CHAT_ID"),
		logger,
	)

	provider := gemini.NewClient(gemini.Config{
		BaseURL:     os.Getenv("GEMINI_BASE_URL"),
		ImageModel:  os.Getenv("GEMINI_IMAGE_MODEL"),
		VideoModel:  os.Getenv("GEMINI_VIDEO_MODEL"),
		VoiceModel:  os.Getenv("GEMINI_VOICE_MODEL"),
		StudioModel: os.Getenv("GEMINI_STUDIO_MODEL"),
	})

	invokerCfg := generate.DefaultInvokerConfig()
	invokerCfg.MaxRetries = config.GetEnvInt("GENERATE_MAX_RETRIES", invokerCfg.MaxRetries)
	invokerCfg.Backoff = config.GetEnvDuration("GENERATE_BACKOFF", invokerCfg.Backoff)
	invokerCfg.PollInterval = config.GetEnvDuration("GENERATE_POLL_INTERVAL", invokerCfg.PollInterval)
	invokerCfg.Timeout = config.GetEnvDuration("GENERATE_TIMEOUT", invokerCfg.Timeout)
	invoker := generate.NewInvoker(provider, pool, invokerCfg, logger)

	coordinator := generate.NewCoordinator(
		store, prices, invoker, notifier, events, logger,
		config.GetEnvBool("REFUND_ON_TERMINAL_FAILURE", false),
	)

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("bursar", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("bursar", version.Version, version.GitCommit)

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(cache))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":     dbURL,
		"JWT_SECRET":       jwtSecret,
		"GEMINI_API_KEY_1": os.Getenv("GEMINI_API_KEY_1"),
	}))

	metrics := handlers.NewBursarMetrics(metricsCollector)

	// Initialize handlers
	handlers.Init(db, logger, store, prices, coordinator, pool, metrics)

	// Background jobs: presence hygiene and topup reminders
	jobManager := handlers.NewJobManager(logger, notifier)
	jobManager.Start()
	defer jobManager.Stop()

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "bursar", healthChecker, metricsCollector)

	protected := router.Group("")
	protected.Use(auth.JWTAuthMiddleware([]byte(jwtSecret)))
	{
		protected.POST("/generate", handlers.Generate)
		protected.GET("/credits", handlers.GetCredits)
		protected.GET("/settings/prices", handlers.GetPrices)
		protected.POST("/topups", handlers.CreateTopup)
		protected.POST("/presence", handlers.Heartbeat)

		admin := protected.Group("/admin")
		admin.Use(handlers.RequireAdmin())
		{
			admin.GET("/members", handlers.ListMembers)
			admin.PUT("/members/:email/credits", handlers.SetMemberCredits)
			admin.GET("/topups", handlers.ListPendingTopups)
			admin.POST("/topups/:id/approve", handlers.ApproveTopup)
			admin.POST("/topups/:id/reject", handlers.RejectTopup)
			admin.PUT("/settings/prices", handlers.SetPrice)
			admin.GET("/keys", handlers.GetKeyAudit)
		}
	}

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("bursar", "18010")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
