package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"
	"gorm.io/gorm"
)

// ContactFieldRepositoryImpl implements the ContactFieldRepository interface
type ContactFieldRepositoryImpl struct {
	*BaseRepository[models.ContactField, models.ContactFieldFilter]
}

// NewContactFieldRepository creates a new contact field repository
func NewContactFieldRepository(db *gorm.DB) ContactFieldRepository {
	return &ContactFieldRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ContactField, models.ContactFieldFilter](db),
	}
}

// ByUUID retrieves a contact field by UUID
func (r *ContactFieldRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.ContactField, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ContactFieldFilter{UUID: &parsedUUID}
	fields, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, nil
	}

	return fields[0], nil
}

// ByKey retrieves a contact field by its key within an org
func (r *ContactFieldRepositoryImpl) ByKey(ctx context.Context, orgID uint, key string) (*models.ContactField, error) {
	filter := models.ContactFieldFilter{OrgID: &orgID, Key: &key}
	fields, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, nil
	}

	return fields[0], nil
}

// SetValue upserts the value row for (contactID, fieldID)
func (r *ContactFieldRepositoryImpl) SetValue(ctx context.Context, contactID, fieldID uint, textValue *string, datetimeValue *time.Time) error {
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
		INSERT INTO contact_field_values (contact_id, field_id, text_value, datetime_value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (contact_id, field_id)
		DO UPDATE SET text_value = EXCLUDED.text_value,
		              datetime_value = EXCLUDED.datetime_value,
		              updated_at = EXCLUDED.updated_at`,
		contactID, fieldID, textValue, datetimeValue, utils.UTCNow(),
	).Error
	if err != nil {
		return fmt.Errorf("failed to set value of field %d for contact %d: %w", fieldID, contactID, err)
	}

	return nil
}

// DatetimeValue returns the datetime value of the field for the contact,
// or nil when the contact has no value
func (r *ContactFieldRepositoryImpl) DatetimeValue(ctx context.Context, contactID, fieldID uint) (*time.Time, error) {
	db := r.getDB(ctx)

	var value models.ContactFieldValue
	err := db.Where("contact_id = ? AND field_id = ?", contactID, fieldID).
		Last(&value).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return value.DatetimeValue, nil
}

// UpdateValueType updates only the value type of a field
func (r *ContactFieldRepositoryImpl) UpdateValueType(ctx context.Context, fieldID uint, valueType models.FieldValueType) error {
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

	err = db.Model(&models.ContactField{}).
		Where("id = ?", fieldID).
		Update("value_type", valueType).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves contact fields based on filter criteria
func (r *ContactFieldRepositoryImpl) ByFilter(ctx context.Context, filter models.ContactFieldFilter, orderBy string, limit, offset int) ([]*models.ContactField, error) {
	db := r.getDB(ctx)

	var fields []*models.ContactField
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

	err := query.Find(&fields).Error
	if err != nil {
		return nil, err
	}

	return fields, nil
}

// Count returns the number of contact fields matching the filter
func (r *ContactFieldRepositoryImpl) Count(ctx context.Context, filter models.ContactFieldFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var field models.ContactField
	query := r.applyFilter(db.Model(&field), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any contact field matching the filter exists
func (r *ContactFieldRepositoryImpl) Exists(ctx context.Context, filter models.ContactFieldFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ContactFieldRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContactFieldFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.OrgID != nil {
		db = db.Where("org_id = ?", *filter.OrgID)
	}
	if filter.Key != nil {
		db = db.Where("key = ?", *filter.Key)
	}
	if filter.ValueType != nil {
		db = db.Where("value_type = ?", *filter.ValueType)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
