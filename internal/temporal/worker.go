package temporal

import (
	"context"

	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/types"
	"go.temporal.io/sdk/worker"
	"go.uber.org/fx"
)

// Worker manages the Temporal worker instance.
type Worker struct {
	worker worker.Worker
	log    *logger.Logger
}

// NewWorker creates a new Temporal worker and registers workflows and activities.
// Without a connected client, or in API mode, the worker is inert.
func NewWorker(client *TemporalClient, cfg *config.Configuration, billing service.BillingService, log *logger.Logger) *Worker {
	if !client.Enabled() || cfg.Deployment.Mode == types.ModeAPI {
		return &Worker{log: log}
	}

	w := worker.New(client.Client, cfg.Temporal.TaskQueue, worker.Options{})
	RegisterWorkflowsAndActivities(w, billing)

	return &Worker{
		worker: w,
		log:    log,
	}
}

// Start starts the Temporal worker.
func (w *Worker) Start() error {
	if w.worker == nil {
		return nil
	}
	w.log.Info("Starting temporal worker...")
	return w.worker.Start()
}

// Stop stops the Temporal worker.
func (w *Worker) Stop() {
	if w.worker == nil {
		return
	}
	w.log.Info("Stopping temporal worker...")
	w.worker.Stop()
}

// RegisterWithLifecycle registers the worker with the fx lifecycle.
func (w *Worker) RegisterWithLifecycle(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return w.Start()
		},
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				w.Stop()
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				w.log.Error("Timeout while stopping temporal worker")
			}
			return nil
		},
	})
}
