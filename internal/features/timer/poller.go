package timer

import (
	"context"
	"time"

	"go-fundadmin/internal/features/automation"
	"go-fundadmin/internal/features/recurring"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Poller owns the clock the engine deliberately does not: every minute it
// revives due delayed actions and fires due recurring jobs.
type Poller struct {
	executor  automation.ActionExecutor
	recurring recurring.RecurringJobService
	logger    *zap.Logger

	scheduler *cron.Cron
}

func NewPoller(lc fx.Lifecycle, executor automation.ActionExecutor, recurringService recurring.RecurringJobService, logger *zap.Logger) *Poller {
	p := &Poller{
		executor:  executor,
		recurring: recurringService,
		logger:    logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Start()
		},
		OnStop: func(ctx context.Context) error {
			p.Stop()
			return nil
		},
	})
	return p
}

func (p *Poller) Start() error {
	p.scheduler = cron.New()
	if _, err := p.scheduler.AddFunc("* * * * *", p.Tick); err != nil {
		return err
	}
	p.scheduler.Start()
	p.logger.Info("timer poller started")
	return nil
}

func (p *Poller) Stop() {
	if p.scheduler != nil {
		ctx := p.scheduler.Stop()
		<-ctx.Done()
	}
	p.logger.Info("timer poller stopped")
}

// Tick runs one polling pass. Exported so a run-now can be triggered outside
// the cron cadence.
func (p *Poller) Tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
	defer cancel()
	now := time.Now()

	if err := p.executor.ReviveDue(ctx, now); err != nil {
		p.logger.Error("delayed action revival failed", zap.Error(err))
	}
	if err := p.recurring.RunDue(ctx, now); err != nil {
		p.logger.Error("recurring job pass failed", zap.Error(err))
	}
}
