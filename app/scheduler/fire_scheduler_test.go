package scheduler

import (
	"testing"
	"time"

	"github.com/ariacomm/campfire/models"
	"github.com/stretchr/testify/assert"
)

// fixed-offset zone keeps the expectations independent of the host tzdata
var tehran = time.FixedZone("UTC+3:30", 3*3600+1800)

func TestComputeScheduledTimeNegativeOffset(t *testing.T) {
	event := &models.CampaignEvent{
		Offset:       -2,
		Unit:         models.OffsetUnitDay,
		DeliveryHour: models.DeliveryHourSame,
	}

	value := time.Date(2026, 6, 10, 8, 15, 30, 0, tehran)
	got := ComputeScheduledTime(event, tehran, value)

	// Two days earlier, same wall clock, seconds truncated
	want := time.Date(2026, 6, 8, 8, 15, 0, 0, tehran).UTC()
	assert.Equal(t, want, got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestComputeScheduledTimeDeliveryHour(t *testing.T) {
	event := &models.CampaignEvent{
		Offset:       1,
		Unit:         models.OffsetUnitWeek,
		DeliveryHour: 13,
	}

	value := time.Date(2026, 6, 10, 8, 15, 30, 0, tehran)
	got := ComputeScheduledTime(event, tehran, value)

	// One week later, forced to 13:00:00 local
	want := time.Date(2026, 6, 17, 13, 0, 0, 0, tehran).UTC()
	assert.Equal(t, want, got)
}

func TestComputeScheduledTimeDeliveryHourAfterDateRollover(t *testing.T) {
	// A positive hour offset that crosses midnight moves the delivery date too
	event := &models.CampaignEvent{
		Offset:       5,
		Unit:         models.OffsetUnitHour,
		DeliveryHour: 9,
	}

	value := time.Date(2026, 6, 10, 22, 0, 0, 0, time.UTC)
	got := ComputeScheduledTime(event, time.UTC, value)

	want := time.Date(2026, 6, 11, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

func TestComputeScheduledTimeZeroOffset(t *testing.T) {
	event := &models.CampaignEvent{
		Offset:       0,
		Unit:         models.OffsetUnitMinute,
		DeliveryHour: models.DeliveryHourSame,
	}

	value := time.Date(2026, 6, 10, 8, 15, 45, 123456789, time.UTC)
	got := ComputeScheduledTime(event, time.UTC, value)

	assert.Equal(t, time.Date(2026, 6, 10, 8, 15, 0, 0, time.UTC), got)
}

func TestComputeScheduledTimeConvertsValueToOrgZone(t *testing.T) {
	event := &models.CampaignEvent{
		Offset:       1,
		Unit:         models.OffsetUnitDay,
		DeliveryHour: 10,
	}

	// 23:00 UTC is already the next day in the org's zone, so the delivery
	// date follows the org calendar, not the UTC one.
	value := time.Date(2026, 6, 10, 23, 0, 0, 0, time.UTC)
	got := ComputeScheduledTime(event, tehran, value)

	want := time.Date(2026, 6, 12, 10, 0, 0, 0, tehran).UTC()
	assert.Equal(t, want, got)
}
