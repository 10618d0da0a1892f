package di

import (
	"context"
	"time"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/feed"
	"github.com/prohmpiriya/sport-slots-booker/internal/handler"
	"github.com/prohmpiriya/sport-slots-booker/internal/metrics"
	"github.com/prohmpiriya/sport-slots-booker/internal/repository"
	"github.com/prohmpiriya/sport-slots-booker/internal/service"
	"github.com/prohmpiriya/sport-slots-booker/internal/tariff"
	"github.com/prohmpiriya/sport-slots-booker/internal/worker"
	"github.com/prohmpiriya/sport-slots-booker/pkg/database"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
	"github.com/prohmpiriya/sport-slots-booker/pkg/redis"
)

// Container holds all dependencies for the slots service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client
	Hub   *feed.Hub

	// Repositories
	BookingRepo repository.BookingRepository
	SlotRepo    repository.SlotRepository
	CatalogRepo repository.CatalogRepository

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	AvailabilityService service.AvailabilityService
	SlotService         service.SlotService
	BookingService      service.BookingService

	// Handlers
	HealthHandler  *handler.HealthHandler
	SlotHandler    *handler.SlotHandler
	BookingHandler *handler.BookingHandler
	FeedHandler    *handler.FeedHandler

	// Workers
	FeedRelayWorker *worker.FeedRelayWorker
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB    *database.PostgresDB
	Redis *redis.Client
	Log   *logger.Logger

	// EventPublisher is nil when Kafka is unreachable; events then go straight
	// to the local hub
	EventPublisher service.EventPublisher
	// FeedSource relays the shared topic into the local hub; nil disables the relay
	FeedSource worker.RecordSource

	Location        *time.Location
	DefaultPrice    int64
	CatalogCacheTTL time.Duration
	FeedBufferSize  int
	FeedHeartbeat   time.Duration
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	// Feed hub
	c.Hub = feed.NewHub(cfg.FeedBufferSize, log)
	c.Hub.OnDrop = func(event domain.SlotEvent) {
		metrics.RecordFeedDropped(context.Background(), string(event.Type))
	}

	// Initialize repositories
	c.BookingRepo = repository.NewPostgresBookingRepository(c.DB.Pool())
	c.SlotRepo = repository.NewPostgresSlotRepository(c.DB.Pool())
	var catalog repository.CatalogRepository = repository.NewPostgresCatalogRepository(c.DB.Pool())
	if c.Redis != nil {
		catalog = repository.NewCachedCatalogRepository(catalog, c.Redis, cfg.CatalogCacheTTL, log)
	}
	c.CatalogRepo = catalog

	// Publisher
	c.EventPublisher = cfg.EventPublisher
	if c.EventPublisher == nil {
		c.EventPublisher = service.NewLocalEventPublisher(c.Hub)
	}

	// Initialize services
	c.AvailabilityService = service.NewAvailabilityService(c.BookingRepo, c.SlotRepo, c.Hub)
	c.SlotService = service.NewSlotService(
		c.SlotRepo,
		c.CatalogRepo,
		c.AvailabilityService,
		tariff.NewResolver(cfg.DefaultPrice, log),
		log,
		&service.SlotServiceConfig{Location: cfg.Location},
	)
	c.BookingService = service.NewBookingService(
		c.BookingRepo,
		c.SlotRepo,
		c.SlotService,
		c.AvailabilityService,
		c.EventPublisher,
		log,
		nil,
	)

	// Initialize handlers
	checks := map[string]handler.HealthChecker{"database": c.DB}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(checks)
	c.SlotHandler = handler.NewSlotHandler(c.SlotService, c.AvailabilityService)
	c.BookingHandler = handler.NewBookingHandler(c.BookingService)
	c.FeedHandler = handler.NewFeedHandler(c.AvailabilityService, cfg.FeedHeartbeat)

	// Workers
	if cfg.FeedSource != nil {
		c.FeedRelayWorker = worker.NewFeedRelayWorker(nil, cfg.FeedSource, c.Hub, log)
	}

	return c
}

// Close releases the publisher and ends feed subscriptions
func (c *Container) Close() error {
	err := c.EventPublisher.Close()
	c.Hub.Close()
	return err
}
