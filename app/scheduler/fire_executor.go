package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/ariacomm/campfire/metrics"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	"github.com/ariacomm/campfire/utils"
)

// FlowStarter is the minimal surface of the flow-execution engine the
// executor needs. This keeps the executor independent and easy to test.
type FlowStarter interface {
	StartFlow(ctx context.Context, contactID, flowID uint, mode models.StartMode) error
}

// FireExecutor periodically claims due fires and hands them to the flow
// engine. A fire is claimed exactly once: the atomic transition of the fired
// column decides ownership, and the outcome is recorded before any downstream
// call so a crash never replays a fire.
type FireExecutor struct {
	fireRepo repository.EventFireRepository
	starter  FlowStarter
	logger   *log.Logger
	interval time.Duration
	batch    int
	now      func() time.Time
}

// NewFireExecutor creates a new fire executor
func NewFireExecutor(
	fireRepo repository.EventFireRepository,
	starter FlowStarter,
	logger *log.Logger,
	interval time.Duration,
) *FireExecutor {
	if interval <= 0 {
		interval = utils.ExecutorInterval
	}
	if logger == nil {
		logger = NewWorkerLogger("executor", "")
	}
	return &FireExecutor{
		fireRepo: fireRepo,
		starter:  starter,
		logger:   logger,
		interval: interval,
		batch:    utils.ExecutorBatchSize,
		now:      utils.UTCNow,
	}
}

// Start launches the executor loop in a background goroutine and returns a
// stop function
func (e *FireExecutor) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		e.RunDueFires(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.RunDueFires(ctx)
			}
		}
	}()

	return cancel
}

// RunDueFires drains the currently due fires in batches
func (e *FireExecutor) RunDueFires(ctx context.Context) {
	for {
		fires, err := e.fireRepo.ListDue(ctx, e.now(), e.batch)
		if err != nil {
			e.logger.Printf("executor: list due fires failed: %v", err)
			return
		}
		if len(fires) == 0 {
			return
		}

		claimedAny := false
		for _, fire := range fires {
			if ctx.Err() != nil {
				return
			}
			if e.handleFire(ctx, fire) {
				claimedAny = true
			}
		}

		if len(fires) < e.batch {
			return
		}
		if !claimedAny {
			// A full batch where every claim failed or lost its race would
			// be re-listed unchanged; leave it for the next tick
			return
		}
	}
}

func (e *FireExecutor) handleFire(ctx context.Context, fire *models.EventFire) bool {
	result := models.FireResultFired
	if !e.shouldStart(fire) {
		result = models.FireResultSkipped
	}

	claimed, err := e.fireRepo.Claim(ctx, fire.ID, e.now(), result)
	if err != nil {
		e.logger.Printf("executor: claim fire id=%d failed: %v", fire.ID, err)
		return false
	}
	if !claimed {
		metrics.FireClaimConflicts.Inc()
		return false
	}

	metrics.FiresHandled.WithLabelValues(result.String()).Inc()

	if result == models.FireResultSkipped {
		return true
	}

	// The fire is already recorded as handled: a downstream failure is
	// logged, never retried.
	if err := e.starter.StartFlow(ctx, fire.ContactID, fire.Event.FlowID, fire.Event.StartMode); err != nil {
		e.logger.Printf("executor: start flow id=%d for contact id=%d failed: %v", fire.Event.FlowID, fire.ContactID, err)
	}
	return true
}

// shouldStart checks whether the fire's event chain is still live
func (e *FireExecutor) shouldStart(fire *models.EventFire) bool {
	event := fire.Event
	if event == nil || !utils.IsTrue(event.IsActive) {
		return false
	}
	if event.Campaign == nil || !event.Campaign.IsSchedulable() {
		return false
	}
	if event.Flow != nil && !utils.IsTrue(event.Flow.IsActive) {
		return false
	}
	return true
}
