package temporal

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/netbill/netbill/internal/config"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/temporal/models"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/fx"
)

// APIKeyProvider provides headers for API key authentication
type APIKeyProvider struct {
	APIKey    string
	Namespace string
}

// GetHeaders implements client.HeadersProvider
func (a *APIKeyProvider) GetHeaders(_ context.Context) (map[string]string, error) {
	if a.APIKey == "" {
		return map[string]string{}, nil
	}
	return map[string]string{
		"Authorization":      "Bearer " + a.APIKey,
		"temporal-namespace": a.Namespace,
	}, nil
}

// TemporalClient wraps the Temporal SDK client. Client is nil when temporal is disabled.
type TemporalClient struct {
	Client    client.Client
	taskQueue string
	log       *logger.Logger
}

// Module provides the temporal client and worker
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewTemporalClient, NewWorker),
		fx.Invoke(func(lc fx.Lifecycle, c *TemporalClient, w *Worker) {
			w.RegisterWithLifecycle(lc)
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					c.Close()
					return nil
				},
			})
		}),
	)
}

// NewTemporalClient creates a new Temporal client using the given configuration.
func NewTemporalClient(cfg *config.Configuration, log *logger.Logger) (*TemporalClient, error) {
	tc := &TemporalClient{taskQueue: cfg.Temporal.TaskQueue, log: log}
	if !cfg.Temporal.Enabled {
		log.Info("Temporal disabled, billing jobs run in process")
		return tc, nil
	}

	clientOptions := client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		Logger:    log.GetTemporalLogger(),
		HeadersProvider: &APIKeyProvider{
			APIKey:    cfg.Temporal.APIKey,
			Namespace: cfg.Temporal.Namespace,
		},
	}

	if cfg.Temporal.TLS {
		clientOptions.ConnectionOptions.TLS = &tls.Config{}
	}

	c, err := client.Dial(clientOptions)
	if err != nil {
		log.Errorw("failed to create temporal client", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Could not connect to temporal").
			Mark(ierr.ErrHTTPClient)
	}

	log.Infow("temporal client created", "address", cfg.Temporal.Address, "namespace", cfg.Temporal.Namespace)
	tc.Client = c
	return tc, nil
}

func (c *TemporalClient) Enabled() bool {
	return c != nil && c.Client != nil
}

func (c *TemporalClient) Close() {
	if c.Enabled() {
		c.Client.Close()
	}
}

// StartBillingCycle starts a billing cycle workflow. The workflow id is derived from
// the input so that a duplicate trigger for a running cycle attaches to it.
func (c *TemporalClient) StartBillingCycle(ctx context.Context, input models.BillingCycleInput) (string, error) {
	if !c.Enabled() {
		return "", ierr.NewError("temporal is not enabled").
			WithHint("Enable temporal to dispatch billing workflows").
			Mark(ierr.ErrInvalidOperation)
	}

	run, err := c.Client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       workflowID(input),
		TaskQueue:                                c.taskQueue,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: false,
	}, models.BillingCycleWorkflowName, input)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Could not start billing workflow").
			Mark(ierr.ErrHTTPClient)
	}

	c.log.Infow("started billing cycle workflow",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
		"period", input.Period,
		"today", input.Today)
	return run.GetID(), nil
}

func workflowID(input models.BillingCycleInput) string {
	switch {
	case input.GenerateStep && !input.OverdueStep:
		return fmt.Sprintf("invoice-generation-%s", input.Period)
	case input.OverdueStep && !input.GenerateStep:
		return fmt.Sprintf("overdue-processing-%s", input.Today)
	default:
		return fmt.Sprintf("billing-cycle-%s-%s", input.Period, input.Today)
	}
}
