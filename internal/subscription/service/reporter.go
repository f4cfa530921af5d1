package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"priceoracle/internal/metrics"
	"priceoracle/internal/subscription"
	"priceoracle/pkg/logger"
)

type StateCounter interface {
	CountByState(ctx context.Context, now uint64) (map[subscription.State]int, error)
}

// Reporter refreshes the subscriptions{state} gauge on a cron schedule.
type Reporter struct {
	repo StateCounter
	cron *cron.Cron
	now  func() time.Time
	log  *logger.Logger
}

// NewReporter accepts any schedule understood by cron, including "@every 1m".
func NewReporter(repo StateCounter, schedule string, log *logger.Logger) (*Reporter, error) {
	if log == nil {
		log = logger.NewDefault("subscription-reporter")
	}
	r := &Reporter{repo: repo, cron: cron.New(), now: time.Now, log: log}
	if _, err := r.cron.AddFunc(schedule, func() { r.Report(context.Background()) }); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Reporter) Report(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	counts, err := r.repo.CountByState(ctx, uint64(r.now().Unix()))
	if err != nil {
		r.log.WithError(err).Warn("failed to count subscriptions")
		return
	}
	for state, n := range counts {
		metrics.Subscriptions.WithLabelValues(string(state)).Set(float64(n))
	}
	r.log.WithField("active", counts[subscription.StateActive]).
		WithField("expired", counts[subscription.StateExpired]).
		Debug("subscription gauges refreshed")
}
