package models

import (
	"time"

	"github.com/ariacomm/campfire/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Campaign represents a group-scoped collection of time-relative events
type Campaign struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	OrgID      uint       `gorm:"not null;index:idx_campaigns_org_id" json:"org_id"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	GroupID    uint       `gorm:"not null;index:idx_campaigns_group_id" json:"group_id"`
	IsArchived *bool      `gorm:"not null;default:false" json:"is_archived"`
	IsActive   *bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`

	// Relations
	Org    *Org             `gorm:"foreignKey:OrgID;references:ID" json:"org,omitempty"`
	Group  *ContactGroup    `gorm:"foreignKey:GroupID;references:ID" json:"group,omitempty"`
	Events []*CampaignEvent `gorm:"foreignKey:CampaignID" json:"events,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsSchedulable checks whether the campaign's events may materialize fires
func (c *Campaign) IsSchedulable() bool {
	return utils.IsTrue(c.IsActive) && !utils.IsTrue(c.IsArchived)
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	OrgID         *uint      `json:"org_id,omitempty"`
	Name          *string    `json:"name,omitempty"`
	GroupID       *uint      `json:"group_id,omitempty"`
	IsArchived    *bool      `json:"is_archived,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
