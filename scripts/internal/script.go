package internal

import (
	"fmt"

	"github.com/netbill/netbill/internal/cache"
	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/metrics"
	"github.com/netbill/netbill/internal/pdf"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/receipt"
	postgresRepo "github.com/netbill/netbill/internal/repository/postgres"
	"github.com/netbill/netbill/internal/sentry"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/storage"
	"github.com/netbill/netbill/internal/typst"
)

// scriptDeps is the dependency graph of cmd/server built by hand for one-off scripts
type scriptDeps struct {
	cfg    *config.Configuration
	log    *logger.Logger
	db     *postgres.DB
	params service.ServiceParams
}

func newScriptDeps() (*scriptDeps, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	documents, err := storage.NewDocumentStore(cfg, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open receipt store: %w", err)
	}

	m := metrics.NewNoopMetrics()
	issuer := receipt.NewReceiptIssuer(receipt.NewIssuer(receipt.IssuerParams{
		Generator: pdf.NewGenerator(typst.NewCompilerFromConfig(cfg, log)),
		Store:     documents,
		Config:    cfg,
		Logger:    log,
		Metrics:   m,
	}))

	sentryService := sentry.NewSentryService(cfg, log)
	params := service.NewServiceParams(
		log,
		cfg,
		postgres.NewClient(db, sentryService, log),
		cache.NewCache(cfg),
		sentryService,
		m,
		postgresRepo.NewCustomerRepository(db, log),
		postgresRepo.NewPlanRepository(db, log),
		postgresRepo.NewSubscriptionRepository(db, log),
		postgresRepo.NewInvoiceRepository(db, log),
		postgresRepo.NewPaymentRepository(db, log),
		postgresRepo.NewSettingsRepository(db, log),
		issuer,
	)

	return &scriptDeps{cfg: cfg, log: log, db: db, params: params}, nil
}

func (d *scriptDeps) Close() {
	d.db.Close()
}
