package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/folio-api/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Janitor periodically prunes activity events older than the retention window.
type Janitor struct {
	events    services.EventServiceProvider
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// NewJanitor creates a Janitor running on a standard cron spec or descriptor
// such as "@hourly".
func NewJanitor(events services.EventServiceProvider, schedule string, retention time.Duration) (*Janitor, error) {
	j := &Janitor{
		events:    events,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, j.runOnce); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() {
	log.Info().Dur("retention", j.retention).Msg("Starting background janitor...")
	j.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("Stopped background janitor.")
}

func (j *Janitor) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := j.Prune(ctx); err != nil {
		log.Error().Err(err).Msg("Janitor: failed to prune events")
	}
}

// Prune deletes events older than the retention window.
func (j *Janitor) Prune(ctx context.Context) (int64, error) {
	if j.retention <= 0 {
		return 0, nil
	}
	n, err := j.events.PruneBefore(ctx, j.now().Add(-j.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("Janitor: pruned old events")
	}
	return n, nil
}
