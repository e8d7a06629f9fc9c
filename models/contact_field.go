package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/ariacomm/campfire/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FieldValueType represents the value type of a contact field
type FieldValueType string

const (
	FieldValueTypeText     FieldValueType = "T"
	FieldValueTypeNumber   FieldValueType = "N"
	FieldValueTypeDatetime FieldValueType = "D"
)

// String returns the string representation of the value type
func (t FieldValueType) String() string {
	return string(t)
}

// Valid checks if the value type is valid
func (t FieldValueType) Valid() bool {
	switch t {
	case FieldValueTypeText, FieldValueTypeNumber, FieldValueTypeDatetime:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for FieldValueType
func (t *FieldValueType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = FieldValueType(v)
	case []byte:
		*t = FieldValueType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into FieldValueType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for FieldValueType
func (t FieldValueType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid FieldValueType: %s", t)
	}
	return string(t), nil
}

// ContactField represents a typed per-contact field definition
type ContactField struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_contact_fields_uuid" json:"uuid"`
	OrgID     uint           `gorm:"not null;index:idx_contact_fields_org_id" json:"org_id"`
	Key       string         `gorm:"type:varchar(36);not null" json:"key"`
	Label     string         `gorm:"type:varchar(36);not null" json:"label"`
	ValueType FieldValueType `gorm:"type:varchar(1);not null;default:'T'" json:"value_type"`
	IsActive  *bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Org *Org `gorm:"foreignKey:OrgID;references:ID" json:"org,omitempty"`
}

// TableName returns the table name for the model
func (ContactField) TableName() string {
	return "contact_fields"
}

// BeforeCreate is called before creating a new record
func (f *ContactField) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == uuid.Nil {
		f.UUID = uuid.New()
	}
	if f.ValueType == "" {
		f.ValueType = FieldValueTypeText
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	return nil
}

// IsDatetime checks if the field holds datetime values
func (f *ContactField) IsDatetime() bool {
	return f.ValueType == FieldValueTypeDatetime
}

// ContactFieldValue holds the current value of a field for a contact.
// Only the datetime column is consumed by the fire engine; other value types
// are stored for completeness.
type ContactFieldValue struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ContactID     uint       `gorm:"not null;uniqueIndex:uk_field_values_contact_field" json:"contact_id"`
	FieldID       uint       `gorm:"not null;uniqueIndex:uk_field_values_contact_field;index:idx_field_values_field_id" json:"field_id"`
	TextValue     *string    `gorm:"type:text" json:"text_value,omitempty"`
	DatetimeValue *time.Time `json:"datetime_value,omitempty"`
	UpdatedAt     time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (ContactFieldValue) TableName() string {
	return "contact_field_values"
}

// ContactFieldFilter represents filter criteria for contact fields
type ContactFieldFilter struct {
	ID        *uint           `json:"id,omitempty"`
	UUID      *uuid.UUID      `json:"uuid,omitempty"`
	OrgID     *uint           `json:"org_id,omitempty"`
	Key       *string         `json:"key,omitempty"`
	ValueType *FieldValueType `json:"value_type,omitempty"`
	IsActive  *bool           `json:"is_active,omitempty"`
}
