package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"storefront-service/internal/store"
)

// Janitor periodically deletes cart slots that have not been written within
// the retention window. Carts are treated as disposable data, so a sweep that
// discards stale state is acceptable by the same rule that lets the fail-soft
// load path discard old formats.
type Janitor struct {
	storer    store.CartStorer
	scheduler *cron.Cron
	retention time.Duration
}

// NewJanitor creates a janitor running on the given cron spec (with seconds
// granularity, e.g. "0 0 * * * *" for hourly).
func NewJanitor(storer store.CartStorer, spec string, retention time.Duration) (*Janitor, error) {
	j := &Janitor{
		storer:    storer,
		scheduler: cron.New(cron.WithSeconds()),
		retention: retention,
	}
	if _, err := j.scheduler.AddFunc(spec, j.sweep); err != nil {
		return nil, fmt.Errorf("cart: invalid janitor spec %q: %w", spec, err)
	}
	return j, nil
}

// Start begins the scheduled sweeps.
func (j *Janitor) Start() {
	j.scheduler.Start()
	log.Infof("cart: janitor started, retention %v", j.retention)
}

// Stop halts the scheduler; a running sweep finishes on its own.
func (j *Janitor) Stop() {
	j.scheduler.Stop()
}

func (j *Janitor) sweep() {
	deleted, err := j.storer.DeleteStaleCarts(context.Background(), j.retention)
	if err != nil {
		log.WithError(err).Error("cart: janitor sweep failed")
		return
	}
	if deleted > 0 {
		log.Infof("cart: janitor removed %d stale cart(s)", deleted)
	}
}
