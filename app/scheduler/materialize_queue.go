package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	businessflow "github.com/ariacomm/campfire/business_flow"
	"github.com/ariacomm/campfire/metrics"
	"github.com/ariacomm/campfire/utils"
)

// materializeTask is one unit of scheduling work. A nil ContactID means a
// full pass over the event's group.
type materializeTask struct {
	EventID   uint
	ContactID *uint
}

var errQueueFull = errors.New("materialize queue full")

func (t materializeTask) String() string {
	if t.ContactID == nil {
		return fmt.Sprintf("event=%d", t.EventID)
	}
	return fmt.Sprintf("event=%d contact=%d", t.EventID, *t.ContactID)
}

// ErrorReporter is notified when a task is dropped after exhausting its
// retries. Implementations typically page or post to an ops channel.
type ErrorReporter interface {
	ReportError(ctx context.Context, subject string, err error)
}

// enqueueWait bounds how long a trigger keeps waiting for queue space before
// the drop is surfaced
const enqueueWait = 30 * time.Second

// MaterializeQueue decouples business flows from materialization work. Flows
// enqueue and return; a pool of workers drains the queue with retries.
type MaterializeQueue struct {
	scheduler *FireScheduler
	tasks     chan materializeTask
	workers   int
	policy    retryPolicy
	reporter  ErrorReporter
	logger    *log.Logger
	wait      time.Duration
}

// NewMaterializeQueue creates a queue with the given worker count. A nil
// reporter disables failure reporting.
func NewMaterializeQueue(scheduler *FireScheduler, workers int, reporter ErrorReporter, logger *log.Logger) *MaterializeQueue {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = NewWorkerLogger("materialize", "")
	}
	return &MaterializeQueue{
		scheduler: scheduler,
		tasks:     make(chan materializeTask, utils.MaterializeQueueSize),
		workers:   workers,
		policy:    defaultRetryPolicy(),
		reporter:  reporter,
		logger:    logger,
		wait:      enqueueWait,
	}
}

// ScheduleEvent enqueues a full pass over the event's group
func (q *MaterializeQueue) ScheduleEvent(eventID uint) {
	q.enqueue(materializeTask{EventID: eventID})
}

// ScheduleContactEvent enqueues a single-contact recompute
func (q *MaterializeQueue) ScheduleContactEvent(eventID, contactID uint) {
	q.enqueue(materializeTask{EventID: eventID, ContactID: &contactID})
}

func (q *MaterializeQueue) enqueue(task materializeTask) {
	select {
	case q.tasks <- task:
		metrics.MaterializeQueueDepth.Set(float64(len(q.tasks)))
	default:
		// The queue is saturated. Keep waiting off the request path; a
		// trigger that still cannot be queued is surfaced like a failed
		// task, never lost quietly.
		go func() {
			select {
			case q.tasks <- task:
			case <-time.After(q.wait):
				metrics.MaterializationFailures.Inc()
				q.logger.Printf("materialize: queue full, dropped task %s after %s", task, q.wait)
				if q.reporter != nil {
					q.reporter.ReportError(context.Background(), fmt.Sprintf("materialization dropped (%s)", task), errQueueFull)
				}
			}
		}()
	}
}

// Start launches the worker pool and returns a stop function
func (q *MaterializeQueue) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	for i := 0; i < q.workers; i++ {
		go q.worker(ctx)
	}

	return cancel
}

func (q *MaterializeQueue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			metrics.MaterializeQueueDepth.Set(float64(len(q.tasks)))
			q.process(ctx, task)
		}
	}
}

func (q *MaterializeQueue) process(ctx context.Context, task materializeTask) {
	var err error
	for attempt := 1; attempt <= q.policy.MaxAttempts; attempt++ {
		err = q.runOnce(ctx, task)
		if err == nil {
			return
		}

		if attempt == q.policy.MaxAttempts {
			break
		}

		delay := q.policy.NextDelay(attempt)
		if errors.Is(err, businessflow.ErrLockBusy) {
			// Another worker is already recomputing the event. Back off and
			// retry so our trigger is not lost.
			delay = q.policy.NextDelay(attempt + 1)
		} else {
			q.logger.Printf("materialize: task %s attempt %d failed: %v", task, attempt, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	metrics.MaterializationFailures.Inc()
	q.logger.Printf("materialize: task %s dropped after %d attempts: %v", task, q.policy.MaxAttempts, err)
	if q.reporter != nil {
		q.reporter.ReportError(ctx, fmt.Sprintf("materialization dropped (%s)", task), err)
	}
}

func (q *MaterializeQueue) runOnce(ctx context.Context, task materializeTask) error {
	if task.ContactID != nil {
		return q.scheduler.MaterializeContact(ctx, task.EventID, *task.ContactID)
	}
	return q.scheduler.MaterializeEvent(ctx, task.EventID)
}
