package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	businessflow "github.com/ariacomm/campfire/business_flow"
	"github.com/ariacomm/campfire/metrics"
	"github.com/ariacomm/campfire/repository"
	"github.com/ariacomm/campfire/utils"
)

// trimLockTTL bounds a trim run; a crashed holder frees the lock after this
const trimLockTTL = time.Hour

// TrimWorker enforces the retention policy on the event_fires table. Each
// run first removes pending fires orphaned by deactivated events, then fills
// the remaining budget with handled fires older than the retention window.
type TrimWorker struct {
	fireRepo  repository.EventFireRepository
	locker    businessflow.EventLocker
	logger    *log.Logger
	interval  time.Duration
	retention time.Duration
	limit     int
	now       func() time.Time
}

// NewTrimWorker creates a new trim worker
func NewTrimWorker(
	fireRepo repository.EventFireRepository,
	locker businessflow.EventLocker,
	logger *log.Logger,
	interval time.Duration,
	retention time.Duration,
) *TrimWorker {
	if interval <= 0 {
		interval = utils.TrimInterval
	}
	if retention <= 0 {
		retention = utils.FireRetention
	}
	if logger == nil {
		logger = NewWorkerLogger("trim", "")
	}
	return &TrimWorker{
		fireRepo:  fireRepo,
		locker:    locker,
		logger:    logger,
		interval:  interval,
		retention: retention,
		limit:     utils.TrimBatchLimit,
		now:       utils.UTCNow,
	}
}

// Start launches the trim loop in a background goroutine and returns a stop
// function
func (w *TrimWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.TrimEventFires(ctx); err != nil {
					w.logger.Printf("trim: run failed: %v", err)
				}
			}
		}
	}()

	return cancel
}

// TrimEventFires performs one bounded trim pass. Only one node runs it at a
// time; the rest yield until the next tick.
func (w *TrimWorker) TrimEventFires(ctx context.Context) error {
	ok, err := w.locker.Acquire(ctx, utils.TrimLockKey, trimLockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire trim lock: %w", err)
	}
	if !ok {
		metrics.LockContention.WithLabelValues("trim").Inc()
		return businessflow.ErrLockBusy
	}
	defer func() {
		if err := w.locker.Release(ctx, utils.TrimLockKey); err != nil {
			w.logger.Printf("trim: release lock failed: %v", err)
		}
	}()

	budget := w.limit

	orphaned, err := w.fireRepo.OrphanedPendingIDs(ctx, budget)
	if err != nil {
		return fmt.Errorf("failed to list orphaned fires: %w", err)
	}
	deleted, err := w.deleteInBatches(ctx, orphaned)
	if err != nil {
		return err
	}
	if deleted > 0 {
		metrics.FiresTrimmed.WithLabelValues("orphaned").Add(float64(deleted))
	}
	budget -= int(deleted)

	var expired int64
	if budget > 0 {
		cutoff := w.now().Add(-w.retention)
		handled, err := w.fireRepo.HandledBeforeIDs(ctx, cutoff, budget)
		if err != nil {
			return fmt.Errorf("failed to list expired fires: %w", err)
		}
		expired, err = w.deleteInBatches(ctx, handled)
		if err != nil {
			return err
		}
		if expired > 0 {
			metrics.FiresTrimmed.WithLabelValues("expired").Add(float64(expired))
		}
	}

	w.logger.Printf("trim: deleted orphaned=%d expired=%d", deleted, expired)
	return nil
}

func (w *TrimWorker) deleteInBatches(ctx context.Context, ids []uint) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += utils.TrimSubBatchSize {
		end := min(start+utils.TrimSubBatchSize, len(ids))

		n, err := w.fireRepo.DeleteByIDs(ctx, ids[start:end])
		if err != nil {
			return total, fmt.Errorf("failed to delete fire batch: %w", err)
		}
		total += n

		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
	return total, nil
}
