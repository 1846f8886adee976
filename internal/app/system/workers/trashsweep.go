// internal/app/system/workers/trashsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Purger is the backend capability the sweeper needs. Backends that keep
// trashed items forever simply do not implement it.
type Purger interface {
	PurgeTrashed(ctx context.Context, cutoff time.Time) (int, error)
}

// TrashSweep is a background worker that permanently removes trashed files
// and folders once they have sat in the trash past the retention window.
// Soft delete stays reversible until the sweeper gets to it.
type TrashSweep struct {
	backend   Purger
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewTrashSweep creates a trash sweeper.
//
// Parameters:
//   - backend: a storage backend that supports permanent removal
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 hour)
//   - retention: how long trashed items are kept before removal (e.g., 30 days)
func NewTrashSweep(backend Purger, logger *zap.Logger, interval, retention time.Duration) *TrashSweep {
	return &TrashSweep{
		backend:   backend,
		log:       logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *TrashSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("trash sweep worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *TrashSweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("trash sweep worker stopped")
}

func (w *TrashSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *TrashSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.backend.PurgeTrashed(ctx, time.Now().Add(-w.retention))
	if err != nil {
		w.log.Error("trash sweep failed", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("purged trashed items", zap.Int("count", count))
	}
}
