package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingReporter captures reported drops
type recordingReporter struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingReporter) ReportError(ctx context.Context, subject string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

func testQueue(reporter ErrorReporter, wait time.Duration) *MaterializeQueue {
	return &MaterializeQueue{
		tasks:    make(chan materializeTask, 1),
		workers:  1,
		policy:   defaultRetryPolicy(),
		reporter: reporter,
		logger:   NewWorkerLogger("materialize", ""),
		wait:     wait,
	}
}

func TestEnqueueWaitsForQueueSpace(t *testing.T) {
	reporter := &recordingReporter{}
	q := testQueue(reporter, time.Second)

	q.ScheduleEvent(1)
	// Queue full: this trigger parks in the background instead of vanishing
	q.ScheduleEvent(2)

	first := <-q.tasks
	assert.Equal(t, uint(1), first.EventID)

	select {
	case second := <-q.tasks:
		assert.Equal(t, uint(2), second.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("parked trigger never reached the queue")
	}

	assert.Zero(t, reporter.count())
}

func TestEnqueueReportsExhaustedWait(t *testing.T) {
	reporter := &recordingReporter{}
	q := testQueue(reporter, 20*time.Millisecond)

	q.ScheduleEvent(1)
	q.ScheduleContactEvent(2, 9)

	assert.Eventually(t, func() bool {
		return reporter.count() == 1
	}, time.Second, 10*time.Millisecond)
}
