package models

import (
	"time"

	"github.com/ariacomm/campfire/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Org represents a tenant workspace in the database
type Org struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_orgs_uuid" json:"uuid"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	Timezone        string    `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	PrimaryLanguage *string   `gorm:"type:varchar(8)" json:"primary_language,omitempty"`
	IsActive        *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

// TableName returns the table name for the model
func (Org) TableName() string {
	return "orgs"
}

// BeforeCreate is called before creating a new record
func (o *Org) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	if o.Timezone == "" {
		o.Timezone = "UTC"
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = utils.UTCNow()
	}
	return nil
}

// Location resolves the org's configured timezone, falling back to UTC
func (o *Org) Location() *time.Location {
	return utils.LocationOrUTC(o.Timezone)
}

// MessageLanguage returns the language key single-message flow bodies are
// stored under for this org
func (o *Org) MessageLanguage() string {
	if o.PrimaryLanguage != nil && *o.PrimaryLanguage != "" {
		return *o.PrimaryLanguage
	}
	return utils.BaseLanguage
}

// OrgFilter represents filter criteria for orgs
type OrgFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Name     *string    `json:"name,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
