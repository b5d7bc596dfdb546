package main

import (
	"context"
	"fmt"

	"github.com/tihomirborovcak/radni-nalozi/internal/config"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/events"
	corenumerator "github.com/tihomirborovcak/radni-nalozi/internal/core/numerator"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/tx"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/audit"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/invoicing"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	v1 "github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/invoicing/minimax"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/metrics"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/numerator"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/memory"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres/catalog_repo"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres/document_repo"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres/register_repo"
)

// repositories is one storage backend's implementation of every port.
type repositories struct {
	materials material.Repository
	stock     stock.Repository
	orders    workorder.Repository
	reminders reminder.Repository
	customers invoicing.CustomerRefs
	numerator corenumerator.Generator
	audit     audit.Recorder
	publisher events.Publisher
	txManager tx.Manager
}

// app holds the wired services and the resources to release on exit.
type app struct {
	pool     *postgres.Pool
	txm      *postgres.TxManager
	metrics  *metrics.Metrics
	services v1.Services
}

// newApp wires services over the configured storage driver.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{metrics: metrics.New()}

	var repos repositories
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := a.openPool(ctx, cfg); err != nil {
			return nil, err
		}
		auditSvc, err := postgres.NewAuditService(a.txm)
		if err != nil {
			a.close()
			return nil, err
		}
		repos = repositories{
			materials: catalog_repo.NewMaterialRepo(a.txm),
			stock:     register_repo.NewStockRepo(a.txm),
			orders:    document_repo.NewWorkOrderRepo(a.txm),
			reminders: document_repo.NewReminderRepo(a.txm),
			customers: catalog_repo.NewCustomerRefRepo(a.txm),
			numerator: numerator.New(func(ctx context.Context) numerator.Querier { return a.txm.GetQuerier(ctx) }),
			audit:     auditSvc,
			publisher: postgres.NewOutboxPublisher(a.txm),
			txManager: a.txm,
		}
		a.metrics.RegisterPool(a.pool)
	default:
		store := memory.New()
		repos = repositories{
			materials: store.Materials(),
			stock:     store.Stock(),
			orders:    store.WorkOrders(),
			reminders: store.Reminders(),
			customers: store,
			numerator: store,
			audit:     store,
			publisher: store,
			txManager: store.TxManager(),
		}
	}

	st := stock.NewService(repos.stock, repos.materials, repos.txManager, repos.publisher)
	st.SetObserver(a.metrics)

	orders := workorder.NewService(workorder.Deps{
		Repo:      repos.orders,
		Reminders: repos.reminders,
		Stock:     st,
		Numerator: repos.numerator,
		Audit:     repos.audit,
		Publisher: repos.publisher,
		TxManager: repos.txManager,
	})

	a.services = v1.Services{
		Materials: material.NewService(repos.materials, repos.txManager, st),
		Stock:     st,
		Orders:    orders,
		Reminders: reminder.NewService(repos.reminders, repos.txManager),
	}

	if cfg.Minimax.Enabled() {
		vat, err := cfg.Invoicing.VAT()
		if err != nil {
			a.close()
			return nil, err
		}
		client := minimax.New(minimax.Config{
			BaseURL:      cfg.Minimax.BaseURL,
			TokenURL:     cfg.Minimax.TokenURL,
			ClientID:     cfg.Minimax.ClientID,
			ClientSecret: cfg.Minimax.ClientSecret,
			Username:     cfg.Minimax.Username,
			Password:     cfg.Minimax.Password,
			Timeout:      cfg.Minimax.Timeout,
		})
		a.services.Invoicing = invoicing.NewService(orders, repos.customers, client, vat)
	}

	return a, nil
}

func (a *app) openPool(ctx context.Context, cfg *config.Config) error {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.pool = pool
	a.txm = postgres.NewTxManager(pool)
	return nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
