package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/sport-slots-booker/internal/di"
	"github.com/prohmpiriya/sport-slots-booker/internal/metrics"
	"github.com/prohmpiriya/sport-slots-booker/internal/service"
	"github.com/prohmpiriya/sport-slots-booker/internal/worker"
	"github.com/prohmpiriya/sport-slots-booker/pkg/config"
	"github.com/prohmpiriya/sport-slots-booker/pkg/database"
	"github.com/prohmpiriya/sport-slots-booker/pkg/kafka"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
	"github.com/prohmpiriya/sport-slots-booker/pkg/middleware"
	pkgredis "github.com/prohmpiriya/sport-slots-booker/pkg/redis"
	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting sport slots booker...", zap.String("version", cfg.App.Version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing and metrics
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Telemetry disabled", zap.Error(err))
	}
	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to register metrics", zap.Error(err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.Pool(), appLog); err != nil {
			appLog.Fatal("Migration failed", zap.Error(err))
		}
	}

	// Redis backs the catalog cache and idempotency keys; both degrade without it
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
	})
	if err != nil {
		appLog.Warn("Redis connection failed, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	// Initialize Kafka event publisher and the relay that feeds the local hub
	var eventPublisher service.EventPublisher
	var feedSource worker.RecordSource
	kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.SlotTopic,
		ServiceName: cfg.App.Name,
		ClientID:    cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Warn("Kafka connection failed, using local feed only", zap.Error(err))
	} else {
		consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			GroupID:       cfg.Kafka.ConsumerGroup,
			Topics:        []string{cfg.Kafka.SlotTopic},
			ClientID:      cfg.Kafka.ClientID + "-feed",
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err != nil {
			// Without the relay, events published to Kafka would never reach local subscribers
			appLog.Warn("Kafka consumer failed, using local feed only", zap.Error(err))
			_ = kafkaPublisher.Close()
		} else {
			defer consumer.Close()
			eventPublisher = kafkaPublisher
			feedSource = consumer
			appLog.Info("Kafka event publisher connected", zap.String("topic", cfg.Kafka.SlotTopic))
		}
	}

	// Build dependency injection container
	containerCfg := &di.ContainerConfig{
		DB:              db,
		Log:             appLog,
		EventPublisher:  eventPublisher,
		FeedSource:      feedSource,
		Location:        cfg.Booking.Location(),
		DefaultPrice:    cfg.Booking.DefaultPrice,
		CatalogCacheTTL: cfg.Booking.CatalogCacheTTL,
		FeedBufferSize:  cfg.Booking.FeedBufferSize,
	}
	if redisClient != nil {
		containerCfg.Redis = redisClient
	}
	container := di.NewContainer(containerCfg)

	if container.FeedRelayWorker != nil {
		go container.FeedRelayWorker.Start(ctx)
	}

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware())
	router.Use(middleware.Logger(appLog))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/slots/:ref", container.SlotHandler.GetSlot)
		v1.GET("/slots/:ref/availability", container.SlotHandler.GetSlotAvailability)
		v1.GET("/availability", container.SlotHandler.CheckAvailability)
		v1.GET("/feed", container.FeedHandler.Stream)

		bookings := v1.Group("/bookings")
		bookings.Use(middleware.Auth(&middleware.AuthConfig{
			Secret:      cfg.JWT.Secret,
			Issuer:      cfg.JWT.Issuer,
			AllowHeader: cfg.JWT.AllowHeaderUser,
		}))
		{
			if redisClient != nil {
				bookings.POST("", middleware.Idempotency(&middleware.IdempotencyConfig{
					Redis: redisClient.Client(),
					TTL:   cfg.Booking.IdempotencyTTL,
				}), container.BookingHandler.CreateBooking)
			} else {
				bookings.POST("", container.BookingHandler.CreateBooking)
			}
			bookings.GET("/:id", container.BookingHandler.GetBooking)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Sport slots booker listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Stop the relay and close feed streams before draining requests
	cancel()
	if err := container.Close(); err != nil {
		appLog.Warn("Failed to close event publisher", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Failed to flush traces", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
