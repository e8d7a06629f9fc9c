package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventFirePending(t *testing.T) {
	fire := &EventFire{Scheduled: time.Now()}
	assert.True(t, fire.IsPending())

	fired := time.Now()
	fire.Fired = &fired
	assert.False(t, fire.IsPending())
}

func TestEventFireDue(t *testing.T) {
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	fire := &EventFire{Scheduled: now.Add(-time.Minute)}
	assert.True(t, fire.IsDue(now))

	fire = &EventFire{Scheduled: now}
	assert.True(t, fire.IsDue(now))

	fire = &EventFire{Scheduled: now.Add(time.Minute)}
	assert.False(t, fire.IsDue(now))

	// Handled fires are never due again
	fired := now.Add(-time.Hour)
	fire = &EventFire{Scheduled: now.Add(-time.Hour), Fired: &fired}
	assert.False(t, fire.IsDue(now))
}

func TestFireResultValid(t *testing.T) {
	assert.True(t, FireResultFired.Valid())
	assert.True(t, FireResultSkipped.Valid())
	assert.False(t, FireResult("X").Valid())
}
