// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/ariacomm/campfire/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// OrgRepository defines operations for orgs
type OrgRepository interface {
	Repository[models.Org, models.OrgFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Org, error)
}

// ContactRepository defines operations for contacts and group memberships
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Contact, error)
	GroupByID(ctx context.Context, groupID uint) (*models.ContactGroup, error)
	GroupByUUID(ctx context.Context, uuid string) (*models.ContactGroup, error)
	SaveGroup(ctx context.Context, group *models.ContactGroup) error
	DeactivateGroup(ctx context.Context, groupID uint) error
	AddToGroup(ctx context.Context, groupID, contactID uint) error
	RemoveFromGroup(ctx context.Context, groupID, contactID uint) error
	IsMember(ctx context.Context, groupID, contactID uint) (bool, error)
	MemberIDs(ctx context.Context, groupID uint) ([]uint, error)
}

// ContactFieldRepository defines operations for field definitions and values
type ContactFieldRepository interface {
	Repository[models.ContactField, models.ContactFieldFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ContactField, error)
	ByKey(ctx context.Context, orgID uint, key string) (*models.ContactField, error)
	SetValue(ctx context.Context, contactID, fieldID uint, textValue *string, datetimeValue *time.Time) error
	DatetimeValue(ctx context.Context, contactID, fieldID uint) (*time.Time, error)
	UpdateValueType(ctx context.Context, fieldID uint, valueType models.FieldValueType) error
}

// FlowRepository defines operations for flows
type FlowRepository interface {
	Repository[models.Flow, models.FlowFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Flow, error)
	UpdateDefinition(ctx context.Context, flowID uint, definition models.FlowDefinition) error
	SetArchived(ctx context.Context, flowID uint, archived bool) error
	Deactivate(ctx context.Context, flowID uint) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByNameInOrg(ctx context.Context, orgID uint, name string) (*models.Campaign, error)
	ListByGroup(ctx context.Context, groupID uint, activeOnly bool) ([]*models.Campaign, error)
	UpdateName(ctx context.Context, id uint, name string) error
	UpdateGroup(ctx context.Context, id uint, groupID uint) error
	UpdateArchived(ctx context.Context, id uint, archived bool) error
	Deactivate(ctx context.Context, id uint) error
}

// CampaignEventRepository defines operations for campaign events
type CampaignEventRepository interface {
	Repository[models.CampaignEvent, models.CampaignEventFilter]
	ByUUID(ctx context.Context, uuid string) (*models.CampaignEvent, error)
	ListActiveByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignEvent, error)
	ListActiveByRelativeTo(ctx context.Context, fieldID uint) ([]*models.CampaignEvent, error)
	Deactivate(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

// EventFireRepository defines operations for materialized event fires
type EventFireRepository interface {
	Repository[models.EventFire, models.EventFireFilter]
	// UpsertPending sets the scheduled time of the pending fire for
	// (eventID, contactID), inserting the row if none exists. Handled rows
	// are never touched.
	UpsertPending(ctx context.Context, eventID, contactID uint, scheduled time.Time) error
	// Claim atomically marks a pending fire as handled. Returns false when
	// the row was already handled by someone else.
	Claim(ctx context.Context, fireID uint, fired time.Time, result models.FireResult) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.EventFire, error)
	DeletePendingForEvent(ctx context.Context, eventID uint) (int64, error)
	// DeleteForEvent removes every fire of an event, handled rows included.
	DeleteForEvent(ctx context.Context, eventID uint) (int64, error)
	DeletePendingForContact(ctx context.Context, eventIDs []uint, contactID uint) (int64, error)
	// DeletePendingByIDs deletes fires by primary key unless they were
	// claimed in the meantime.
	DeletePendingByIDs(ctx context.Context, ids []uint) (int64, error)
	// OrphanedPendingIDs returns IDs of pending fires whose event is no
	// longer active, oldest first.
	OrphanedPendingIDs(ctx context.Context, limit int) ([]uint, error)
	// HandledBeforeIDs returns IDs of handled fires fired before the cutoff,
	// oldest first.
	HandledBeforeIDs(ctx context.Context, cutoff time.Time, limit int) ([]uint, error)
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
}
