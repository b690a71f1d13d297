package main

import (
	"context"

	"lodgeworks/internal/availability/events"
	"lodgeworks/internal/availability/handler"
	"lodgeworks/internal/availability/repository"
	"lodgeworks/internal/availability/service"
	"lodgeworks/internal/availability/sweeper"
	"lodgeworks/internal/availability/validator"
	"lodgeworks/pkg/app"
	"lodgeworks/pkg/cache"
	"lodgeworks/pkg/config"
	"lodgeworks/pkg/kafka"
	kafka_config "lodgeworks/pkg/kafka/config"
	kafka_middleware "lodgeworks/pkg/kafka/middleware"
	"lodgeworks/pkg/retry"
)

const ServiceName = "availability"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Availability service")
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	probe := retry.NewProbe(cfg.Log, func(ctx context.Context) error {
		return cfg.Client.Mongo.Ping(ctx, nil)
	}, cfg.HealthProbeInterval)

	retryer := retry.New(cfg.Log, retry.Options{
		MaxAttempts:     cfg.RetryMaxAttempts,
		BackoffBase:     cfg.RetryBackoffBase,
		SlowOpThreshold: cfg.SlowOpThreshold,
		Health:          probe,
	})

	availabilityCache := newCache(cfg)
	publisher := newPublisher(cfg)

	bookingRepo := repository.NewMongoBookingRepository(cfg)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	resourceRepo := repository.NewMongoResourceRepository(cfg)
	queryValidator := validator.NewQueryValidator(cfg.Log)

	// The raw engine serves the transactional re-checks inside writes; the
	// cached decorator serves reads.
	engine := service.NewEngine(bookingRepo, reservationRepo, resourceRepo, retryer, queryValidator, cfg)
	cachedEngine := service.NewCachedAvailability(engine, availabilityCache)

	holdService := service.NewHoldService(
		reservationRepo, engine, availabilityCache, publisher, retryer, queryValidator, cfg)
	bookingService := service.NewBookingService(
		bookingRepo, reservationRepo, engine, availabilityCache, publisher, retryer, queryValidator, cfg)

	holdSweeper := sweeper.New(reservationRepo, availabilityCache, retryer, cfg)

	appHandler := handler.NewAvailabilityHandler(cachedEngine, holdService, bookingService, holdSweeper, cfg.Log)
	healthHandler := handler.NewHealthHandler(cfg.Client.Mongo, availabilityCache, probe, cfg.Log)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, appHandler, healthHandler)
	serverApp.AddWorker(probe)
	serverApp.AddWorker(holdSweeper)
	serverApp.Run()
}

func newCache(cfg *config.Config) *cache.AvailabilityCache {
	if cfg.Client.Redis == nil {
		cfg.Log.Warn("Redis not configured, availability reads will not be cached")
		return nil
	}
	return cache.New(cache.NewRedisStore(cfg.Client.Redis), cfg.Log, cache.Options{
		TTL:            cfg.CacheTTL,
		TagTTL:         cfg.CacheTagTTL,
		ErrorThreshold: cfg.CacheErrorThreshold,
	})
}

func newPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()

	bookings, err := kafka.NewProducer(kafkaCfg, cfg.Log, events.TopicBookings, events.TopicBookings+".dlq")
	if err != nil {
		cfg.Log.Warn("Kafka unavailable, domain events disabled", "error", err)
		return events.NopPublisher{}
	}
	reservations, err := kafka.NewProducer(kafkaCfg, cfg.Log, events.TopicReservations, events.TopicReservations+".dlq")
	if err != nil {
		cfg.Log.Warn("Kafka unavailable, domain events disabled", "error", err)
		return events.NopPublisher{}
	}

	if kafkaCfg.EnableMiddleware {
		for _, p := range []*kafka.Producer{bookings, reservations} {
			p.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
			p.Use(kafka_middleware.MetricsProducerMiddleware())
		}
	}

	return events.NewKafkaPublisher(bookings, reservations, cfg.Log, ServiceName)
}
