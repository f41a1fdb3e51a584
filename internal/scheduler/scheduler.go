package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/netbill/netbill/internal/config"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/metrics"
	"github.com/netbill/netbill/internal/sentry"
	"github.com/netbill/netbill/internal/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

const (
	JobGenerateInvoices = "generate_invoices"
	JobProcessOverdue   = "process_overdue"
)

// Scheduler triggers the billing jobs on cron schedules
type Scheduler struct {
	cron    *cron.Cron
	enabled bool
	runner  Runner
	config  config.BillingConfig
	log     *logger.Logger
	metrics *metrics.Metrics
	sentry  *sentry.Service

	mu       sync.Mutex
	entryIDs map[string]cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

type Params struct {
	fx.In

	Config  *config.Configuration
	Runner  Runner
	Logger  *logger.Logger
	Metrics *metrics.Metrics `optional:"true"`
	Sentry  *sentry.Service  `optional:"true"`
}

func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewRunner, New),
		fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return s.Start()
				},
				OnStop: func(ctx context.Context) error {
					return s.Stop(ctx)
				},
			})
		}),
	)
}

func New(p Params) *Scheduler {
	loc, err := p.Config.Billing.Location()
	if err != nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := &cronLogger{log: p.Logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		// API only processes leave scheduling to the workers
		enabled:  p.Config.Billing.SchedulerEnabled && p.Config.Deployment.Mode != types.ModeAPI,
		runner:   p.Runner,
		config:   p.Config.Billing,
		log:      p.Logger,
		metrics:  p.Metrics,
		sentry:   p.Sentry,
		entryIDs: make(map[string]cron.EntryID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the billing jobs and starts the cron loop.
// Nothing is scheduled when the scheduler is disabled.
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.log.Info("billing scheduler disabled by config")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.register(JobGenerateInvoices, s.config.InvoiceSchedule, s.runner.GenerateInvoices); err != nil {
		return err
	}
	if err := s.register(JobProcessOverdue, s.config.OverdueSchedule, s.runner.ProcessOverdue); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Infow("billing scheduler started",
		"invoice_schedule", s.config.InvoiceSchedule,
		"overdue_schedule", s.config.OverdueSchedule)
	return nil
}

// Stop cancels running jobs and waits for them until ctx expires. Safe to call more than once.
func (s *Scheduler) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		stopped := s.cron.Stop()
		select {
		case <-stopped.Done():
			s.log.Info("billing scheduler stopped")
		case <-ctx.Done():
			err = ierr.WithError(ctx.Err()).
				WithHint("Billing jobs did not finish before shutdown").
				Mark(ierr.ErrSystem)
		}
	})
	return err
}

// Entries lists the registered jobs and their next run
func (s *Scheduler) Entries() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]time.Time, len(s.entryIDs))
	for name, id := range s.entryIDs {
		next[name] = s.cron.Entry(id).Next
	}
	return next
}

func (s *Scheduler) register(name, schedule string, job func(ctx context.Context) error) error {
	if schedule == "" {
		s.log.Infow("no schedule configured, job not registered", "job", name)
		return nil
	}

	id, err := s.cron.AddFunc(schedule, func() {
		s.run(name, job)
	})
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Invalid cron expression %q for job %s", schedule, name).
			Mark(ierr.ErrConfiguration)
	}
	s.entryIDs[name] = id
	return nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) {
	start := time.Now()
	defer s.metrics.ObserveJob(name, start)

	s.log.Infow("running scheduled billing job", "job", name)
	s.sentry.AddBreadcrumb("scheduler", "running "+name, nil)
	if err := job(s.ctx); err != nil {
		s.log.Errorw("scheduled billing job failed",
			"job", name,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		s.sentry.CaptureException(err)
		return
	}
	s.log.Infow("scheduled billing job done",
		"job", name,
		"duration_ms", time.Since(start).Milliseconds())
}

// cronLogger routes cron's own logging to zap
type cronLogger struct {
	log *logger.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
