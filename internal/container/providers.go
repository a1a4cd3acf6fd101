package container

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/factura-chat/internal/application/conversation"
	"github.com/garyjia/factura-chat/internal/application/dispatcher"
	"github.com/garyjia/factura-chat/internal/application/port"
	"github.com/garyjia/factura-chat/internal/application/service"
	"github.com/garyjia/factura-chat/internal/infrastructure/external/billing"
	"github.com/garyjia/factura-chat/internal/infrastructure/persistence/repository"
	"github.com/garyjia/factura-chat/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/factura-chat/internal/infrastructure/worker"
	"github.com/garyjia/factura-chat/internal/invoice"
	"github.com/garyjia/factura-chat/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies the bundled migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(sqlDB, logger).Migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          sqlDB,
		TransactionMgr: sqlite.NewDB(sqlDB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of db.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &RepositoryBundle{
		Invoices: repository.NewIssuedInvoiceRepository(db, logger),
	}, nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Billing   *BillingConfig
	Logger    *zap.Logger
}

// ProvideServices creates the billing backend services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil || deps.Billing == nil {
		return nil, fmt.Errorf("service dependencies are incomplete")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}

	issuer := service.NewIssuingService(
		deps.Repos.Invoices,
		deps.TxManager,
		logger,
		service.WithPointOfSale(deps.Billing.PointOfSale),
		service.WithEnvironment(deps.Billing.Environment),
	)

	return &ServiceBundle{
		Issuer:   issuer,
		Exporter: service.NewExportService(deps.Repos.Invoices, logger),
		Activity: service.NewActivityService(logger),
	}, nil
}

// ProvideInvoicing picks what chat sessions submit to: the in-process issuer or
// the remote billing backend.
func ProvideInvoicing(cfg *BillingConfig, issuer service.IssuingService, logger *zap.Logger) (port.InvoicingService, error) {
	switch cfg.Mode {
	case BillingModeLocal:
		return service.NewLocalInvoicing(issuer), nil
	case BillingModeRemote:
		client, err := billing.New(cfg.URL, cfg.Timeout, logger.Named("billing"))
		if err != nil {
			return nil, fmt.Errorf("failed to create billing client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown billing mode: %q", cfg.Mode)
	}
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
	), nil
}

// SessionDeps holds dependencies for the session manager.
type SessionDeps struct {
	Invoicing     port.InvoicingService
	Dispatcher    dispatcher.Dispatcher
	Config        *ConversationConfig
	SubmitTimeout time.Duration
	Logger        *zap.Logger
}

// ProvideSessions creates the chat session manager.
func ProvideSessions(deps *SessionDeps) (*conversation.Manager, error) {
	if deps == nil || deps.Invoicing == nil || deps.Dispatcher == nil || deps.Config == nil {
		return nil, fmt.Errorf("session dependencies are incomplete")
	}

	logger := deps.Logger.Named("conversation")
	opts := conversation.Options{
		TestModeDefaults: deps.Config.TestModeDefaults,
		SubmitTimeout:    deps.SubmitTimeout,
	}

	factory := conversation.NewFactory(conversation.Dependencies{
		Extractor: invoice.NewExtractor(logger),
		Invoicing: deps.Invoicing,
		Publisher: deps.Dispatcher,
		Logger:    logger,
		Options:   opts,
	})

	return conversation.NewManager(factory, logger,
		conversation.WithSessionTTL(deps.Config.SessionTTL),
		conversation.WithManagerPublisher(deps.Dispatcher),
	), nil
}

// ProvideWorkers creates the worker manager with the session sweeper registered.
func ProvideWorkers(sessions *conversation.Manager, cfg *ConversationConfig, logger *zap.Logger) (*worker.Manager, error) {
	if sessions == nil || cfg == nil {
		return nil, fmt.Errorf("worker dependencies are incomplete")
	}

	workers := worker.NewManager(logger)
	if cfg.SessionTTL > 0 {
		workers.Register(worker.NewSessionSweeper(sessions, cfg.SweepInterval, logger))
	}
	return workers, nil
}
