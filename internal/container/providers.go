// Package container provides dependency injection and lifecycle management
// for the lifecycle engine.
package container

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/application/dispatcher"
	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/application/service"
	"github.com/civicportal/lifecycle-engine/internal/config"
	"github.com/civicportal/lifecycle-engine/internal/domain/eligibility"
	"github.com/civicportal/lifecycle-engine/internal/domain/ranking"
	"github.com/civicportal/lifecycle-engine/internal/domain/screening"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/metrics"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/notification"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/persistence/repository"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/persistence/sqlite"
	"github.com/civicportal/lifecycle-engine/internal/infrastructure/worker"
	"github.com/civicportal/lifecycle-engine/migrations"
	"github.com/civicportal/lifecycle-engine/pkg/database"
	"github.com/civicportal/lifecycle-engine/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.TxManager
}

// EngineBundle holds the configured rule engines.
type EngineBundle struct {
	Registry   *workflow.Registry
	Duplicates *screening.DuplicateDetector
	Readiness  *screening.ReadinessChecker
	Evaluator  *eligibility.Evaluator
	Policies   *eligibility.PolicySet
	Ranker     *ranking.Engine
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(migrations.Files); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewTxManager(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Application:  repository.NewApplicationRepository(sqlDB, logger),
		History:      repository.NewHistoryRepository(sqlDB, logger),
		Document:     repository.NewDocumentRepository(sqlDB, logger),
		Beneficiary:  repository.NewBeneficiaryRepository(sqlDB, logger),
		Waitlist:     repository.NewWaitlistRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ProvideEngines builds the status graphs and rule engines from the policy config.
// Any inconsistency surfaces here as a configuration error, before serving.
func ProvideEngines(cfg *config.Config) (*EngineBundle, error) {
	registry := workflow.DefaultRegistry()

	manifests, err := cfg.ToManifests()
	if err != nil {
		return nil, err
	}
	readiness, err := screening.NewReadinessChecker(manifests)
	if err != nil {
		return nil, err
	}

	policies, err := eligibility.NewPolicySet(cfg.ToEligibilityPolicies())
	if err != nil {
		return nil, err
	}

	ranker, err := ranking.NewEngine(cfg.ToRankingWeights())
	if err != nil {
		return nil, err
	}

	return &EngineBundle{
		Registry:   registry,
		Duplicates: screening.NewDuplicateDetector(registry, nil),
		Readiness:  readiness,
		Evaluator:  eligibility.NewEvaluator(nil),
		Policies:   policies,
		Ranker:     ranker,
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(asyncTimeout time.Duration, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher")))}
	if asyncTimeout > 0 {
		opts = append(opts, dispatcher.WithAsyncTimeout(asyncTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// ProvideNotifier wires the notification outbox onto the dispatcher and
// returns the notifier the services publish through, along with the outbox
// the delivery feed reads from.
func ProvideNotifier(disp dispatcher.Dispatcher, repo port.NotificationRepository, logger *zap.Logger) (port.Notifier, *notification.Outbox, error) {
	if disp == nil {
		return nil, nil, fmt.Errorf("dispatcher is required")
	}
	if repo == nil {
		return nil, nil, fmt.Errorf("notification repository is required")
	}

	outbox := notification.NewOutbox(repo, logger.Named("outbox"))
	outbox.Register(disp)
	return notification.NewDispatchNotifier(disp, logger), outbox, nil
}

// ServiceDeps groups what the application services need.
type ServiceDeps struct {
	Repos              *RepositoryBundle
	TxManager          port.TransactionManager
	Engines            *EngineBundle
	Notifier           port.Notifier
	Metrics            *metrics.Metrics
	MaxConflictRetries int
	Logger             *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Engines == nil {
		return nil, fmt.Errorf("repositories and engines are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	logger := utils.NewKVLogger(deps.Logger.Named("service"))

	lifecycle := service.NewLifecycleService(service.LifecycleDeps{
		Applications:       deps.Repos.Application,
		History:            deps.Repos.History,
		Documents:          deps.Repos.Document,
		Beneficiaries:      deps.Repos.Beneficiary,
		Waitlist:           deps.Repos.Waitlist,
		TxManager:          deps.TxManager,
		Notifier:           deps.Notifier,
		Metrics:            deps.Metrics,
		Registry:           deps.Engines.Registry,
		Duplicates:         deps.Engines.Duplicates,
		Readiness:          deps.Engines.Readiness,
		Evaluator:          deps.Engines.Evaluator,
		Policies:           deps.Engines.Policies,
		Ranker:             deps.Engines.Ranker,
		Logger:             logger,
		MaxConflictRetries: deps.MaxConflictRetries,
	})

	documents := service.NewDocumentService(
		deps.Repos.Application,
		deps.Repos.Document,
		deps.TxManager,
		logger,
	)

	return &ServiceBundle{
		Lifecycle: lifecycle,
		Documents: documents,
	}, nil
}

// ProvideWorkers creates the background workers. The ranking refresher is
// only registered when a refresh interval is configured.
func ProvideWorkers(cfg *config.Config, lifecycle service.LifecycleService, logger *zap.Logger) (*worker.Manager, error) {
	if lifecycle == nil {
		return nil, fmt.Errorf("lifecycle service is required")
	}

	manager := worker.NewManager(logger)
	if cfg.Engine.RankingRefreshInterval > 0 && len(cfg.ProgramIDs()) > 0 {
		manager.Register(worker.NewRankingRefresher(
			lifecycle,
			cfg.ProgramIDs(),
			cfg.Engine.RankingRefreshInterval,
			logger.Named("ranking"),
		))
	}
	return manager, nil
}
