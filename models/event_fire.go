package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// FireResult represents the outcome recorded when a fire row is handled
type FireResult string

const (
	FireResultFired   FireResult = "F"
	FireResultSkipped FireResult = "S"
)

// String returns the string representation of the fire result
func (r FireResult) String() string {
	return string(r)
}

// Valid checks if the fire result is valid
func (r FireResult) Valid() bool {
	switch r {
	case FireResultFired, FireResultSkipped:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for FireResult
func (r *FireResult) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = FireResult(v)
	case []byte:
		*r = FireResult(string(v))
	default:
		return fmt.Errorf("cannot scan %T into FireResult", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for FireResult
func (r FireResult) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid FireResult: %s", r)
	}
	return string(r), nil
}

// EventFire represents one materialized, per-contact occurrence of a campaign
// event. At most one unfired row exists per (event, contact) pair; the
// executor claims a row by atomically transitioning fired from NULL to
// non-NULL, and the scheduler never touches a row once fired is set.
type EventFire struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	EventID    uint        `gorm:"not null;index:idx_event_fires_event_id" json:"event_id"`
	ContactID  uint        `gorm:"not null;index:idx_event_fires_contact_id" json:"contact_id"`
	Scheduled  time.Time   `gorm:"not null;index:idx_event_fires_scheduled" json:"scheduled"`
	Fired      *time.Time  `gorm:"index:idx_event_fires_fired" json:"fired,omitempty"`
	FireResult *FireResult `gorm:"type:varchar(1)" json:"fire_result,omitempty"`

	// Relations
	Event *CampaignEvent `gorm:"foreignKey:EventID;references:ID" json:"event,omitempty"`
}

// TableName returns the table name for the model
func (EventFire) TableName() string {
	return "event_fires"
}

// IsPending checks whether the fire has not been handled yet
func (f *EventFire) IsPending() bool {
	return f.Fired == nil
}

// IsDue checks whether the fire is pending and scheduled at or before now
func (f *EventFire) IsDue(now time.Time) bool {
	return f.IsPending() && !f.Scheduled.After(now)
}

// EventFireFilter represents filter criteria for event fires
type EventFireFilter struct {
	ID              *uint       `json:"id,omitempty"`
	EventID         *uint       `json:"event_id,omitempty"`
	ContactID       *uint       `json:"contact_id,omitempty"`
	Pending         *bool       `json:"pending,omitempty"`
	FireResult      *FireResult `json:"fire_result,omitempty"`
	ScheduledBefore *time.Time  `json:"scheduled_before,omitempty"`
	ScheduledAfter  *time.Time  `json:"scheduled_after,omitempty"`
	FiredBefore     *time.Time  `json:"fired_before,omitempty"`
	FiredAfter      *time.Time  `json:"fired_after,omitempty"`
}
