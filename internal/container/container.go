package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/application/dispatcher"
	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/application/service"
	"github.com/civicportal/lifecycle-engine/internal/config"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/export"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/metrics"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/notification"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/persistence/sqlite"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/worker"
	"github.com/civicportal/lifecycle-engine/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.TxManager
	repositories *RepositoryBundle

	// Domain
	engines *EngineBundle

	// Infrastructure - Observability and delivery
	metrics    *metrics.Metrics
	dispatcher dispatcher.Dispatcher
	notifier   port.Notifier
	outbox     *notification.Outbox
	exporter   *export.WaitlistExporter

	// Application
	services *ServiceBundle

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Application  port.ApplicationRepository
	History      port.HistoryRepository
	Document     port.DocumentRepository
	Beneficiary  port.BeneficiaryRepository
	Waitlist     port.WaitlistRepository
	Notification port.NotificationRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Lifecycle service.LifecycleService
	Documents service.DocumentService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Status graphs and rule engines
// 3. Metrics, event dispatcher and notification outbox
// 4. Application services
// 5. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Build rule engines from policy configuration
	engines, err := ProvideEngines(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize engines: %w", err)
	}
	c.engines = engines
	c.logger.Info("Rule engines initialized",
		zap.String("policy_version", c.config.Policy.Version),
		zap.Int("programs", len(c.config.Policy.Programs)))

	// Step 3: Initialize metrics, dispatcher and outbox
	if err := c.initDelivery(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.logger.Info("Dispatcher and notification outbox initialized")

	// Step 4: Initialize application services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 5: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started", zap.Int("count", c.workers.Count()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop workers so no ranking refresh races the teardown
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Drain async notifications before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close database
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	notInitialized := func(name string) {
		status.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	// Check database
	if c.db != nil {
		if err := c.db.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		notInitialized("database")
	}

	// Check engines
	if c.engines != nil {
		status.Components["engines"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("policy version: %s", c.config.Policy.Version),
		}
	} else {
		notInitialized("engines")
	}

	// Check workers
	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		}
		if !c.workers.IsRunning() {
			status.Overall = false
		}
	} else {
		notInitialized("workers")
	}

	// Check dispatcher
	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		notInitialized("dispatcher")
	}

	// Check repositories
	if c.repositories != nil {
		status.Components["repositories"] = ComponentHealth{Healthy: true}
	} else {
		notInitialized("repositories")
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.db = dbBundle.DB
	c.txManager = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db.DB, c.logger)
	if err != nil {
		_ = c.db.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initDelivery creates the metrics registry, the dispatcher with the
// notification outbox subscribed, and the waitlist exporter.
func (c *Container) initDelivery() error {
	c.metrics = metrics.New()
	c.exporter = export.NewWaitlistExporter(c.logger.Named("export"))

	disp, err := ProvideDispatcher(c.config.Engine.AsyncTimeout, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	notifier, outbox, err := ProvideNotifier(disp, c.repositories.Notification, c.logger.Named("notification"))
	if err != nil {
		return err
	}
	c.notifier = notifier
	c.outbox = outbox
	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:              c.repositories,
		TxManager:          c.txManager,
		Engines:            c.engines,
		Notifier:           c.notifier,
		Metrics:            c.metrics,
		MaxConflictRetries: c.config.Engine.MaxConflictRetries,
		Logger:             c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// initWorkers initializes and starts all background workers using providers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(c.config, c.services.Lifecycle, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

// Getters for accessing container components

// TxManager returns the transaction manager.
func (c *Container) TxManager() port.TransactionManager {
	return c.txManager
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Engines returns the configured rule engines.
func (c *Container) Engines() *EngineBundle {
	return c.engines
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Metrics returns the Prometheus metrics.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Exporter returns the waitlist spreadsheet exporter.
func (c *Container) Exporter() *export.WaitlistExporter {
	return c.exporter
}

// Outbox returns the notification outbox that feeds the delivery service.
func (c *Container) Outbox() *notification.Outbox {
	return c.outbox
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
