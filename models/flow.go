package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariacomm/campfire/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// FlowDefinition is the JSON payload attached to a flow. For event-generated
// single-message flows it carries the per-language message bodies.
type FlowDefinition struct {
	Messages     map[string]string `json:"messages,omitempty"`
	BaseLanguage string            `json:"base_language,omitempty"`
}

// Value implements the driver.Valuer interface for FlowDefinition
func (d FlowDefinition) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for FlowDefinition
func (d *FlowDefinition) Scan(value any) error {
	if value == nil {
		*d = FlowDefinition{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FlowDefinition", value)
	}

	return json.Unmarshal(bytes, d)
}

// Flow represents a runnable flow in the database. The flow-execution engine
// itself is external; this row is what campaign events reference.
type Flow struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_flows_uuid" json:"uuid"`
	OrgID      uint           `gorm:"not null;index:idx_flows_org_id" json:"org_id"`
	Name       string         `gorm:"type:varchar(64);not null" json:"name"`
	Languages  pq.StringArray `gorm:"type:text[]" json:"languages"`
	Definition FlowDefinition `gorm:"type:jsonb;not null;default:'{}'" json:"definition"`
	IsSystem   *bool          `gorm:"not null;default:false" json:"is_system"`
	IsArchived *bool          `gorm:"not null;default:false" json:"is_archived"`
	IsActive   *bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`

	// Relations
	Org *Org `gorm:"foreignKey:OrgID;references:ID" json:"org,omitempty"`
}

// TableName returns the table name for the model
func (Flow) TableName() string {
	return "flows"
}

// BeforeCreate is called before creating a new record
func (f *Flow) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == uuid.Nil {
		f.UUID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (f *Flow) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	f.UpdatedAt = &now
	return nil
}

// FlowFilter represents filter criteria for flows
type FlowFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	OrgID      *uint      `json:"org_id,omitempty"`
	Name       *string    `json:"name,omitempty"`
	IsSystem   *bool      `json:"is_system,omitempty"`
	IsArchived *bool      `json:"is_archived,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
}
