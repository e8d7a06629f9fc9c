package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"
	"gorm.io/gorm"
)

// ContactRepositoryImpl implements the ContactRepository interface
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db),
	}
}

// ByUUID retrieves a contact by UUID
func (r *ContactRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Contact, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ContactFilter{UUID: &parsedUUID}
	contacts, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(contacts) == 0 {
		return nil, nil
	}

	return contacts[0], nil
}

// GroupByID retrieves a contact group by ID
func (r *ContactRepositoryImpl) GroupByID(ctx context.Context, groupID uint) (*models.ContactGroup, error) {
	db := r.getDB(ctx)

	var group models.ContactGroup
	err := db.Last(&group, groupID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &group, nil
}

// GroupByUUID retrieves a contact group by UUID
func (r *ContactRepositoryImpl) GroupByUUID(ctx context.Context, uuid string) (*models.ContactGroup, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	db := r.getDB(ctx)

	var groups []*models.ContactGroup
	err = db.Where("uuid = ?", parsedUUID).Limit(1).Find(&groups).Error
	if err != nil {
		return nil, err
	}

	if len(groups) == 0 {
		return nil, nil
	}

	return groups[0], nil
}

// SaveGroup inserts a new contact group
func (r *ContactRepositoryImpl) SaveGroup(ctx context.Context, group *models.ContactGroup) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Create(group).Error
	if err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}

	return nil
}

// DeactivateGroup soft-deletes a contact group
func (r *ContactRepositoryImpl) DeactivateGroup(ctx context.Context, groupID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.ContactGroup{}).
		Where("id = ?", groupID).
		Update("is_active", false).Error
	if err != nil {
		return err
	}

	return nil
}

// AddToGroup inserts a membership row, ignoring duplicates
func (r *ContactRepositoryImpl) AddToGroup(ctx context.Context, groupID, contactID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Exec(`
		INSERT INTO contact_group_members (group_id, contact_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (group_id, contact_id) DO NOTHING`,
		groupID, contactID, utils.UTCNow(),
	).Error
	if err != nil {
		return fmt.Errorf("failed to add contact %d to group %d: %w", contactID, groupID, err)
	}

	return nil
}

// RemoveFromGroup deletes the membership row if present
func (r *ContactRepositoryImpl) RemoveFromGroup(ctx context.Context, groupID, contactID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("group_id = ? AND contact_id = ?", groupID, contactID).
		Delete(&models.ContactGroupMember{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove contact %d from group %d: %w", contactID, groupID, err)
	}

	return nil
}

// IsMember checks whether the contact belongs to the group
func (r *ContactRepositoryImpl) IsMember(ctx context.Context, groupID, contactID uint) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.ContactGroupMember{}).
		Where("group_id = ? AND contact_id = ?", groupID, contactID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// MemberIDs returns the IDs of all contacts in the group
func (r *ContactRepositoryImpl) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	db := r.getDB(ctx)

	var ids []uint
	err := db.Model(&models.ContactGroupMember{}).
		Where("group_id = ?", groupID).
		Order("contact_id ASC").
		Pluck("contact_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// ByFilter retrieves contacts based on filter criteria
func (r *ContactRepositoryImpl) ByFilter(ctx context.Context, filter models.ContactFilter, orderBy string, limit, offset int) ([]*models.Contact, error) {
	db := r.getDB(ctx)

	var contacts []*models.Contact
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

// Count returns the number of contacts matching the filter
func (r *ContactRepositoryImpl) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var contact models.Contact
	query := r.applyFilter(db.Model(&contact), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any contact matching the filter exists
func (r *ContactRepositoryImpl) Exists(ctx context.Context, filter models.ContactFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ContactRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContactFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.OrgID != nil {
		db = db.Where("org_id = ?", *filter.OrgID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
