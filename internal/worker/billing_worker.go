package worker

import (
	"context"
	"time"

	"bookline/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// UsageResetter zeroes every provider's monthly booking counter.
type UsageResetter interface {
	ResetAllMonthlyBookings(ctx context.Context) (int64, error)
}

// BillingWorker runs the scheduled billing-cycle maintenance: demoting
// lapsed subscriptions daily and resetting monthly usage counters on the
// first day of each month.
type BillingWorker struct {
	cron     *cron.Cron
	subs     *service.SubscriptionService
	resetter UsageResetter
	schedule string
	logger   *zerolog.Logger
}

func NewBillingWorker(subs *service.SubscriptionService, resetter UsageResetter, schedule string, logger *zerolog.Logger) *BillingWorker {
	if schedule == "" {
		schedule = "5 0 * * *"
	}
	return &BillingWorker{
		cron:     cron.New(),
		subs:     subs,
		resetter: resetter,
		schedule: schedule,
		logger:   logger,
	}
}

func (w *BillingWorker) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, w.run); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info().Str("schedule", w.schedule).Msg("billing worker started")
	return nil
}

// Stop halts the scheduler and waits for a running cycle to finish.
func (w *BillingWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info().Msg("billing worker stopped")
}

// Run executes one billing cycle immediately. Exposed for the scheduler and
// for manual triggering.
func (w *BillingWorker) Run() {
	w.run()
}

func (w *BillingWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now()
	if now.Day() == 1 {
		count, err := w.resetter.ResetAllMonthlyBookings(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("monthly usage reset error")
		} else {
			w.logger.Info().Int64("providers", count).Msg("monthly usage counters reset")
		}
	}

	changed, err := w.subs.SweepLapsed(ctx, now)
	if err != nil {
		w.logger.Error().Err(err).Msg("subscription sweep error")
		return
	}
	if changed > 0 {
		w.logger.Info().Int("changed", changed).Msg("lapsed subscriptions demoted")
	}
}
