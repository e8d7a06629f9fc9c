package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetUnitMinutes(t *testing.T) {
	assert.Equal(t, 1, OffsetUnitMinute.Minutes())
	assert.Equal(t, 60, OffsetUnitHour.Minutes())
	assert.Equal(t, 1440, OffsetUnitDay.Minutes())
	assert.Equal(t, 10080, OffsetUnitWeek.Minutes())
	assert.Equal(t, 0, OffsetUnit("X").Minutes())
}

func TestOffsetMinutes(t *testing.T) {
	event := &CampaignEvent{Offset: -2, Unit: OffsetUnitDay}
	assert.Equal(t, -2880, event.OffsetMinutes())

	event = &CampaignEvent{Offset: 1, Unit: OffsetUnitWeek}
	assert.Equal(t, 10080, event.OffsetMinutes())

	event = &CampaignEvent{Offset: 0, Unit: OffsetUnitHour}
	assert.Equal(t, 0, event.OffsetMinutes())
}

func TestEventTypeValid(t *testing.T) {
	assert.True(t, EventTypeFlow.Valid())
	assert.True(t, EventTypeMessage.Valid())
	assert.False(t, EventType("X").Valid())
	assert.False(t, EventType("").Valid())
}

func TestStartModeValid(t *testing.T) {
	assert.True(t, StartModeInterrupt.Valid())
	assert.True(t, StartModeSkip.Valid())
	assert.True(t, StartModePassive.Valid())
	assert.False(t, StartMode("Q").Valid())
}

func TestOffsetUnitScan(t *testing.T) {
	var unit OffsetUnit
	assert.NoError(t, unit.Scan("W"))
	assert.Equal(t, OffsetUnitWeek, unit)

	assert.NoError(t, unit.Scan([]byte("D")))
	assert.Equal(t, OffsetUnitDay, unit)

	assert.Error(t, unit.Scan(42))
}

func TestOffsetUnitValue(t *testing.T) {
	v, err := OffsetUnitHour.Value()
	assert.NoError(t, err)
	assert.Equal(t, "H", v)

	_, err = OffsetUnit("X").Value()
	assert.Error(t, err)
}
