package models

import (
	"time"

	"github.com/ariacomm/campfire/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contact represents a messageable person in the database
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_contacts_uuid" json:"uuid"`
	OrgID     uint      `gorm:"not null;index:idx_contacts_org_id" json:"org_id"`
	Name      string    `gorm:"type:varchar(128)" json:"name"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Org *Org `gorm:"foreignKey:OrgID;references:ID" json:"org,omitempty"`
}

// TableName returns the table name for the model
func (Contact) TableName() string {
	return "contacts"
}

// BeforeCreate is called before creating a new record
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ContactGroup represents a named set of contacts
type ContactGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_contact_groups_uuid" json:"uuid"`
	OrgID     uint      `gorm:"not null;index:idx_contact_groups_org_id" json:"org_id"`
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Org *Org `gorm:"foreignKey:OrgID;references:ID" json:"org,omitempty"`
}

// TableName returns the table name for the model
func (ContactGroup) TableName() string {
	return "contact_groups"
}

// BeforeCreate is called before creating a new record
func (g *ContactGroup) BeforeCreate(tx *gorm.DB) error {
	if g.UUID == uuid.Nil {
		g.UUID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ContactGroupMember is the membership join row between contacts and groups
type ContactGroupMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:uk_group_members_group_contact" json:"group_id"`
	ContactID uint      `gorm:"not null;uniqueIndex:uk_group_members_group_contact;index:idx_group_members_contact_id" json:"contact_id"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

// TableName returns the table name for the model
func (ContactGroupMember) TableName() string {
	return "contact_group_members"
}

// ContactFilter represents filter criteria for contacts
type ContactFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	OrgID    *uint      `json:"org_id,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
