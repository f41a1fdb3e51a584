package api

import (
	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api/cron"
	v1 "github.com/netbill/netbill/internal/api/v1"
	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/metrics"
	"github.com/netbill/netbill/internal/rest/middleware"
	"github.com/netbill/netbill/internal/types"
	"go.uber.org/fx"
)

type Handlers struct {
	Health   *v1.HealthHandler
	Payment  *v1.PaymentHandler
	Invoice  *v1.InvoiceHandler
	Settings *v1.SettingsHandler

	CronBilling *cron.BillingHandler
}

type handlersParams struct {
	fx.In

	Health      *v1.HealthHandler
	Payment     *v1.PaymentHandler
	Invoice     *v1.InvoiceHandler
	Settings    *v1.SettingsHandler
	CronBilling *cron.BillingHandler
}

// Module provides the handlers and the gin engine
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			v1.NewHealthHandler,
			v1.NewPaymentHandler,
			v1.NewInvoiceHandler,
			v1.NewSettingsHandler,
			cron.NewBillingHandler,
			func(p handlersParams) Handlers {
				return Handlers{
					Health:      p.Health,
					Payment:     p.Payment,
					Invoice:     p.Invoice,
					Settings:    p.Settings,
					CronBilling: p.CronBilling,
				}
			},
			NewRouter,
		),
	)
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, m *metrics.Metrics) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.RequestLogger(logger, m),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)
	router.HEAD("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers, cfg)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, cfg *config.Configuration) {
	payments := router.Group("/payments")
	{
		payments.POST("/reconcile", handlers.Payment.ReconcilePayment)
	}

	invoices := router.Group("/invoices")
	{
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.POST("/:id/proof", handlers.Invoice.SubmitPaymentProof)
		invoices.POST("/:id/approve", handlers.Invoice.ApproveInvoiceReview)
		invoices.POST("/:id/reject", handlers.Invoice.RejectInvoiceReview)
		invoices.POST("/:id/cancel", handlers.Invoice.CancelInvoice)
		invoices.GET("/:id/receipt", handlers.Invoice.GetReceipt)
		invoices.GET("/:id/receipt/pdf", handlers.Invoice.DownloadReceipt)
	}

	settings := router.Group("/settings")
	{
		settings.GET("", handlers.Settings.ListSettings)
		settings.GET("/:key", handlers.Settings.GetSetting)
		settings.PUT("/:key", handlers.Settings.SetSetting)
	}

	// Cron routes
	// TODO: protect with a shared secret once the cron runner supports custom headers
	cronGroup := router.Group("/cron")
	cronGroup.Use(middleware.RateLimit(cfg.Server.CronRateLimit))
	{
		cronGroup.POST("/invoices/generate", handlers.CronBilling.GenerateInvoices)
		cronGroup.POST("/invoices/overdue", handlers.CronBilling.ProcessOverdue)
	}
}
