// Package main provides the main entry point for the campfire campaign fire engine
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	businessflow "github.com/ariacomm/campfire/business_flow"
	"github.com/ariacomm/campfire/config"
	"github.com/ariacomm/campfire/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"

	"github.com/ariacomm/campfire/app/scheduler"
	"github.com/ariacomm/campfire/app/services"
)

// Application represents the main application structure
type Application struct {
	config        *config.ProductionConfig
	db            *gorm.DB
	metricsServer *http.Server
	stopFuncs     []func()
}

func main() {
	log.Println("Starting campfire fire engine...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	if app.metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during metrics server shutdown: %v", err)
		}
	}

	log.Println("Fire engine stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s", cfg.RedisURL)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeFlowEngine initializes the flow engine client
func initializeFlowEngine(cfg *config.ProductionConfig) services.FlowEngineService {
	switch cfg.FlowEngine.Provider {
	case "mock":
		return services.NewMockFlowEngineService()
	default:
		return services.NewFlowEngineService(&cfg.FlowEngine)
	}
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	// Locks fall back to process memory when Redis is disabled. That is only
	// safe with a single engine node.
	var locker businessflow.EventLocker
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval)
		stopFuncs = append(stopFuncs, cancel)

		locker = businessflow.NewRedisEventLocker(rc, utils.EventFiresLockPrefix)
	} else {
		log.Println("Redis disabled, using in-process locks")
		locker = businessflow.NewMemoryEventLocker()
	}

	// Initialize repositories
	orgRepo := repository.NewOrgRepository(db)
	contactRepo := repository.NewContactRepository(db)
	fieldRepo := repository.NewContactFieldRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	eventRepo := repository.NewCampaignEventRepository(db)
	fireRepo := repository.NewEventFireRepository(db)

	// Initialize services
	flowEngine := initializeFlowEngine(cfg)

	logPath := workerLogPath(cfg.Logging)

	// Initialize workers
	fireScheduler := scheduler.NewFireScheduler(
		eventRepo,
		campaignRepo,
		contactRepo,
		fieldRepo,
		fireRepo,
		orgRepo,
		locker,
		scheduler.NewWorkerLogger("scheduler", logPath),
	)

	queueLogger := scheduler.NewWorkerLogger("materialize", logPath)
	queue := scheduler.NewMaterializeQueue(
		fireScheduler,
		cfg.Engine.MaterializeWorkers,
		services.NewLogErrorReporter(queueLogger),
		queueLogger,
	)
	stopFuncs = append(stopFuncs, queue.Start(context.Background()))

	executor := scheduler.NewFireExecutor(
		fireRepo,
		flowEngine,
		scheduler.NewWorkerLogger("executor", logPath),
		cfg.Engine.ExecutorInterval,
	)
	stopFuncs = append(stopFuncs, executor.Start(context.Background()))

	trim := scheduler.NewTrimWorker(
		fireRepo,
		locker,
		scheduler.NewWorkerLogger("trim", logPath),
		cfg.Engine.TrimInterval,
		cfg.Engine.FireRetention,
	)
	stopFuncs = append(stopFuncs, trim.Start(context.Background()))

	// Recompute every active event on startup so fires missed while the
	// engine was down are restored.
	if err := enqueueActiveEvents(eventRepo, queue); err != nil {
		return nil, err
	}

	application := &Application{
		config:    cfg,
		db:        db,
		stopFuncs: stopFuncs,
	}

	if cfg.Metrics.Enabled {
		application.metricsServer = startMetricsServer(cfg.Metrics)
	}

	return application, nil
}

func enqueueActiveEvents(eventRepo repository.CampaignEventRepository, queue *scheduler.MaterializeQueue) error {
	events, err := eventRepo.ByFilter(context.Background(), models.CampaignEventFilter{
		IsActive: utils.ToPtr(true),
	}, "id ASC", 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list active events: %w", err)
	}

	for _, event := range events {
		queue.ScheduleEvent(event.ID)
	}

	log.Printf("Enqueued %d active events for materialization", len(events))
	return nil
}

func startMetricsServer(cfg config.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server listening on %s%s", server.Addr, cfg.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()

	return server
}

// workerLogPath resolves the rotated log file path, empty when file logging
// is disabled
func workerLogPath(cfg config.LoggingConfig) string {
	if cfg.Output == "stdout" {
		return ""
	}
	return cfg.FilePath
}
