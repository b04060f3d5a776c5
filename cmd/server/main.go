package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/backoffice/backend/internal/application/archival"
	appconfiguration "github.com/backoffice/backend/internal/application/configuration"
	appvertical "github.com/backoffice/backend/internal/application/vertical"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/vertical"
	"github.com/backoffice/backend/internal/infrastructure/cache"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/backoffice/backend/internal/infrastructure/event"
	"github.com/backoffice/backend/internal/infrastructure/logger"
	"github.com/backoffice/backend/internal/infrastructure/persistence"
	"github.com/backoffice/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting backoffice core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Configuration cache with sliding expiration
	entryCache := cache.NewInMemoryEntryCache(
		cache.WithSlidingTTL(cfg.Cache.SlidingTTL),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithEvictionPercent(cfg.Cache.EvictionPercent),
		cache.WithCleanupInterval(cfg.Cache.CleanupInterval),
		cache.WithLogger(log.Named("cache")),
	)
	defer func() {
		_ = entryCache.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cross-instance cache invalidation over Redis Pub/Sub, when configured
	var broadcaster appconfiguration.InvalidationBroadcaster = appconfiguration.NopBroadcaster{}
	if cfg.Redis.Enabled {
		invalidator, err := cache.NewRedisInvalidator(
			fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			cfg.Redis.Password,
			cfg.Redis.DB,
			cache.WithInvalidatorChannel(cfg.Redis.Channel),
			cache.WithInvalidatorLogger(log.Named("invalidator")),
		)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = invalidator.Close()
		}()

		go func() {
			if err := invalidator.Listen(ctx, entryCache); err != nil && ctx.Err() == nil {
				log.Error("Invalidation listener stopped", zap.Error(err))
			}
		}()

		broadcaster = cache.NewBroadcast(invalidator)
		log.Info("Redis cache invalidation enabled", zap.String("channel", cfg.Redis.Channel))
	}

	// Event bus with the administrator alert handler
	bus := event.NewInMemoryEventBus(log.Named("events"))
	bus.Subscribe(&integrityAlertHandler{logger: log.Named("alerts")})

	// Repositories
	entryRepo := persistence.NewGormConfigurationEntryRepository(db.DB)
	activationRepo := persistence.NewGormVerticalActivationRepository(db.DB)
	archiveRepo := persistence.NewGormArchiveRepository(db.DB)
	policyRepo := persistence.NewGormRetentionPolicyRepository(db.DB)
	entitySource := persistence.NewVerticalEntitySource(db.DB)

	// Configuration resolver
	configService := appconfiguration.NewService(entryRepo, entryCache, broadcaster, log.Named("configuration"))

	// Vertical composition
	registry := vertical.NewRegistry()
	validators := vertical.NewValidatorRegistry()
	if err := appvertical.RegisterBuiltins(registry, validators); err != nil {
		log.Fatal("Failed to register built-in verticals", zap.Error(err))
	}
	subscriptions := appvertical.NewConfigurationSubscriptionChecker(configService)
	composition := appvertical.NewCompositionService(registry, validators, activationRepo, subscriptions, log.Named("vertical"))

	// Archival engine
	engine := archival.NewEngine(
		entitySource,
		archiveRepo,
		policyRepo,
		archival.NewConfigurationCategoryResolver(configService),
		archival.NewEventNotifier(bus),
		cfg.Archival,
		log.Named("archival"),
	)

	announceReady(log, registry, composition, engine)

	// Background archival scans
	sched := scheduler.NewArchivalScheduler(engine, cfg.Scheduler, log.Named("scheduler"))
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start archival scheduler", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		log.Error("Scheduler shutdown failed", zap.Error(err))
	}

	stats := configService.CacheStats()
	log.Info("Shutting down",
		zap.Int64("cache_hits", stats.Hits),
		zap.Int64("cache_misses", stats.Misses),
	)
}

// announceReady logs the wired services once the composition root is built
func announceReady(log *zap.Logger, registry *vertical.Registry, composition *appvertical.CompositionService, engine *archival.Engine) {
	if composition == nil || engine == nil {
		log.Fatal("Composition root incomplete")
		return
	}
	log.Info("Services initialized",
		zap.Strings("verticals", registry.List()),
	)
}

// integrityAlertHandler surfaces archive integrity breaches in the logs.
// Deployments route these to their paging channel of choice.
type integrityAlertHandler struct {
	logger *zap.Logger
}

func (h *integrityAlertHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	breach, ok := evt.(*archival.IntegrityBreachEvent)
	if !ok {
		return nil
	}
	h.logger.Error("ALERT: archive integrity below threshold",
		zap.String("entity_type", breach.Report.EntityType),
		zap.Int("sampled", breach.Report.Sampled),
		zap.Int("corrupted", breach.Report.Corrupted),
		zap.Float64("integrity_percent", breach.Report.IntegrityPercent),
		zap.Float64("threshold", breach.Report.Threshold),
	)
	return nil
}

func (h *integrityAlertHandler) EventTypes() []string {
	return []string{archival.EventTypeIntegrityBreach}
}

// gormLogLevel maps the application log level onto gorm's logger levels
func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "info", "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}
