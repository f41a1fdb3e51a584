package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api"
	"github.com/netbill/netbill/internal/cache"
	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/metrics"
	"github.com/netbill/netbill/internal/pdf"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/receipt"
	"github.com/netbill/netbill/internal/repository"
	"github.com/netbill/netbill/internal/scheduler"
	"github.com/netbill/netbill/internal/sentry"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/storage"
	"github.com/netbill/netbill/internal/temporal"
	"github.com/netbill/netbill/internal/types"
	"github.com/netbill/netbill/internal/typst"
	"github.com/netbill/netbill/internal/validator"
	"go.uber.org/fx"
)

// @title NetBill API
// @version 1.0
// @description Recurring billing triggers, payment reconciliation and invoice review
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewCache,

			// Receipts
			typst.NewCompilerFromConfig,
			pdf.NewGenerator,
			storage.NewDocumentStore,
			receipt.NewIssuer,
			receipt.NewReceiptIssuer,
		),
		sentry.Module(),
		metrics.Module(),
		postgres.Module(),
		repository.Module(),
	)

	// Service layer
	opts = append(opts, service.Module())

	// Triggers
	opts = append(opts,
		temporal.Module(),
		scheduler.Module(),
		api.Module(),
		fx.Invoke(
			validator.NewValidator,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, r *gin.Engine, log *logger.Logger) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		log.Info("worker mode, HTTP triggers not served")
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(lc fx.Lifecycle, r *gin.Engine, cfg *config.Configuration, log *logger.Logger) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
