package reconciler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreylabs/drey/pkg/log"
	"github.com/dreylabs/drey/pkg/manager"
	"github.com/dreylabs/drey/pkg/metrics"
)

// DefaultInterval is the period between reconciliation cycles.
const DefaultInterval = 10 * time.Second

// Reconciler folds remote worker state back into the manager's view.
type Reconciler struct {
	manager  *manager.Manager
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// New creates a reconciler over the manager.
func New(mgr *manager.Manager) *Reconciler {
	return &Reconciler{
		manager:  mgr,
		interval: DefaultInterval,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

// run is the main reconciliation loop.
func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Msg("Reconciler started")

	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stopCh:
			r.logger.Info().Msg("Reconciler stopped")
			return
		}
	}
}

// reconcile performs one cycle. A failure against one worker never stops
// the sweep of the others.
func (r *Reconciler) reconcile() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconcileDuration)
		metrics.ReconcileCyclesTotal.Inc()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	r.manager.CheckWorkers(ctx)

	if err := r.manager.UpdateTasks(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Reconciliation cycle finished with errors")
	}
}
