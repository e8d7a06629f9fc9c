package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/ariacomm/campfire/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventType represents the kind of a campaign event
type EventType string

const (
	EventTypeFlow    EventType = "F"
	EventTypeMessage EventType = "M"
)

// String returns the string representation of the event type
func (t EventType) String() string {
	return string(t)
}

// Valid checks if the event type is valid
func (t EventType) Valid() bool {
	switch t {
	case EventTypeFlow, EventTypeMessage:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EventType
func (t *EventType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = EventType(v)
	case []byte:
		*t = EventType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EventType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EventType
func (t EventType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid EventType: %s", t)
	}
	return string(t), nil
}

// OffsetUnit represents the unit of a campaign event's offset
type OffsetUnit string

const (
	OffsetUnitMinute OffsetUnit = "M"
	OffsetUnitHour   OffsetUnit = "H"
	OffsetUnitDay    OffsetUnit = "D"
	OffsetUnitWeek   OffsetUnit = "W"
)

// String returns the string representation of the unit
func (u OffsetUnit) String() string {
	return string(u)
}

// Valid checks if the unit is valid
func (u OffsetUnit) Valid() bool {
	switch u {
	case OffsetUnitMinute, OffsetUnitHour, OffsetUnitDay, OffsetUnitWeek:
		return true
	default:
		return false
	}
}

// Minutes returns the number of minutes one offset step represents
func (u OffsetUnit) Minutes() int {
	switch u {
	case OffsetUnitMinute:
		return 1
	case OffsetUnitHour:
		return 60
	case OffsetUnitDay:
		return 1440
	case OffsetUnitWeek:
		return 10080
	default:
		return 0
	}
}

// Scan implements the sql.Scanner interface for OffsetUnit
func (u *OffsetUnit) Scan(value any) error {
	if value == nil {
		*u = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*u = OffsetUnit(v)
	case []byte:
		*u = OffsetUnit(string(v))
	default:
		return fmt.Errorf("cannot scan %T into OffsetUnit", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for OffsetUnit
func (u OffsetUnit) Value() (driver.Value, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("invalid OffsetUnit: %s", u)
	}
	return string(u), nil
}

// StartMode represents how firing interacts with a contact's current flow session
type StartMode string

const (
	StartModeInterrupt StartMode = "I"
	StartModeSkip      StartMode = "S"
	StartModePassive   StartMode = "P"
)

// String returns the string representation of the start mode
func (m StartMode) String() string {
	return string(m)
}

// Valid checks if the start mode is valid
func (m StartMode) Valid() bool {
	switch m {
	case StartModeInterrupt, StartModeSkip, StartModePassive:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for StartMode
func (m *StartMode) Scan(value any) error {
	if value == nil {
		*m = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*m = StartMode(v)
	case []byte:
		*m = StartMode(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StartMode", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for StartMode
func (m StartMode) Value() (driver.Value, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid StartMode: %s", m)
	}
	return string(m), nil
}

// DeliveryHourSame means "fire at the same hour as the reference value"
const DeliveryHourSame = -1

// CampaignEvent represents a time-relative scheduling rule. Events are
// immutable once created: editing deactivates the row and inserts a
// replacement, so already-materialized fires of the old row become permanent
// no-ops instead of requiring a bulk recompute.
type CampaignEvent struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_campaign_events_uuid" json:"uuid"`
	CampaignID   uint       `gorm:"not null;index:idx_campaign_events_campaign_id" json:"campaign_id"`
	EventType    EventType  `gorm:"type:varchar(1);not null" json:"event_type"`
	RelativeToID uint       `gorm:"not null;index:idx_campaign_events_relative_to_id" json:"relative_to_id"`
	Offset       int        `gorm:"not null;default:0" json:"offset"`
	Unit         OffsetUnit `gorm:"type:varchar(1);not null;default:'D'" json:"unit"`
	DeliveryHour int        `gorm:"not null;default:-1" json:"delivery_hour"`
	FlowID       uint       `gorm:"not null;index:idx_campaign_events_flow_id" json:"flow_id"`
	StartMode    StartMode  `gorm:"type:varchar(1);not null;default:'I'" json:"start_mode"`
	IsActive     *bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign   *Campaign     `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	RelativeTo *ContactField `gorm:"foreignKey:RelativeToID;references:ID" json:"relative_to,omitempty"`
	Flow       *Flow         `gorm:"foreignKey:FlowID;references:ID" json:"flow,omitempty"`
}

// TableName returns the table name for the model
func (CampaignEvent) TableName() string {
	return "campaign_events"
}

// BeforeCreate is called before creating a new record
func (e *CampaignEvent) BeforeCreate(tx *gorm.DB) error {
	if e.UUID == uuid.Nil {
		e.UUID = uuid.New()
	}
	if e.Unit == "" {
		e.Unit = OffsetUnitDay
	}
	if e.StartMode == "" {
		e.StartMode = StartModeInterrupt
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utils.UTCNow()
	}
	return nil
}

// OffsetMinutes returns the event's signed total offset in minutes
func (e *CampaignEvent) OffsetMinutes() int {
	return e.Offset * e.Unit.Minutes()
}

// CampaignEventFilter represents filter criteria for campaign events
type CampaignEventFilter struct {
	ID           *uint       `json:"id,omitempty"`
	UUID         *uuid.UUID  `json:"uuid,omitempty"`
	CampaignID   *uint       `json:"campaign_id,omitempty"`
	EventType    *EventType  `json:"event_type,omitempty"`
	RelativeToID *uint       `json:"relative_to_id,omitempty"`
	FlowID       *uint       `json:"flow_id,omitempty"`
	IsActive     *bool       `json:"is_active,omitempty"`
	Unit         *OffsetUnit `json:"unit,omitempty"`
}
