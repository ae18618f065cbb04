package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/attachment"
	"github.com/frahmantamala/expense-reimbursement/internal/core/events"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-reimbursement/internal/expense/postgres"
	"github.com/frahmantamala/expense-reimbursement/internal/reconciliation"
	reconciliationPostgres "github.com/frahmantamala/expense-reimbursement/internal/reconciliation/postgres"
	"github.com/frahmantamala/expense-reimbursement/pkg/logger"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// Dependencies are the pieces every long running command shares.
type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Logger *slog.Logger
	Bus    *events.EventBus

	Files      attachment.Store
	closeFiles func() error
	Cleaner    *attachment.Cleaner

	Expense        *expense.Service
	Reconciliation *reconciliation.Service
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, gormDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	files, closeFiles, err := attachment.New(ctx, config.Storage, lg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize attachment store: %w", err)
	}

	bus := events.NewEventBus(lg)
	bus.SubscribeAll(events.DomainEventTypes, events.LogHandler(lg))

	cleaner := attachment.NewCleaner(files, attachment.CleanerConfig{
		MaxWorkers:   config.Storage.CleanerWorkers,
		JobQueueSize: config.Storage.CleanerQueue,
	}, lg)
	cleaner.RegisterEventHandlers(bus)

	timeout := config.Reconciliation.StoreTimeout
	if timeout <= 0 {
		timeout = internal.DefaultStoreTimeout
	}

	return &Dependencies{
		Config:     config,
		DB:         db,
		Gorm:       gormDB,
		Logger:     lg,
		Bus:        bus,
		Files:      files,
		closeFiles: closeFiles,
		Cleaner:    cleaner,
		Expense: expense.NewService(expensePostgres.NewExpenseRepository(gormDB), files, bus, lg,
			expense.WithTimeout(timeout)),
		Reconciliation: reconciliation.NewService(reconciliationPostgres.NewBankTransactionRepository(gormDB), bus, lg,
			reconciliation.WithTimeout(timeout)),
	}, nil
}

// Close waits for in-flight event handlers, drains background work and releases connections.
func (d *Dependencies) Close() {
	d.Bus.Wait()
	d.Cleaner.Shutdown()
	if err := d.closeFiles(); err != nil {
		d.Logger.Error("attachment store close error", "error", err)
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
}
