package postgres

import (
	"context"

	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/logger"
	sentryService "github.com/netbill/netbill/internal/sentry"
	"go.uber.org/fx"
)

// IClient defines the transaction boundary used by the billing services
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// Module provides the postgres pool and the transaction client
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDBWithLifecycle,
			NewClient,
		),
	)
}

// NewDBWithLifecycle opens the pool, applies migrations when configured and closes the pool on stop
func NewDBWithLifecycle(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*DB, error) {
	db, err := NewDB(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.AutoMigrate {
		if err := Migrate(context.Background(), db); err != nil {
			db.Close()
			return nil, err
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
	return db, nil
}

// NewClient exposes the pool as a sentry instrumented IClient
func NewClient(db *DB, sentry *sentryService.Service, log *logger.Logger) IClient {
	return NewSentryClient(db, sentry, log)
}
