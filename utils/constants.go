package utils

import (
	"time"
)

// Fire engine defaults
const (
	// ExecutorInterval is how often the fire executor polls for due fires
	ExecutorInterval = time.Minute

	// ExecutorBatchSize is the maximum number of due fires pulled per query
	ExecutorBatchSize = 500

	// TrimInterval is how often the trim worker runs
	TrimInterval = 24 * time.Hour

	// TrimBatchLimit is the maximum number of fire rows deleted per trim run
	TrimBatchLimit = 100000

	// TrimSubBatchSize bounds the size of each DELETE statement
	TrimSubBatchSize = 100

	// FireRetention is the default retention window for fired rows (90 days)
	FireRetention = 90 * 24 * time.Hour

	// MaterializeLockTTL is the expiry of the per-event materialization lock,
	// independent of whether the holder completes
	MaterializeLockTTL = 5 * time.Minute

	// MaterializeQueueSize is the buffer of the async materialization queue
	MaterializeQueueSize = 1024

	// MaterializeBatchSize bounds how many group members are computed per chunk
	MaterializeBatchSize = 1000
)

// Distributed lock keys. Materialization locks use the numeric event ID as
// the key, so the trim key can never collide with one.
const (
	EventFiresLockPrefix = "campfire:lock:event_fires:"
	TrimLockKey          = "trim"
)

// BaseLanguage is the language key used for single-message flow bodies when
// the org has no primary language configured
const BaseLanguage = "base"
