package repository

import (
	"context"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"
	"gorm.io/gorm"
)

// FlowRepositoryImpl implements the FlowRepository interface
type FlowRepositoryImpl struct {
	*BaseRepository[models.Flow, models.FlowFilter]
}

// NewFlowRepository creates a new flow repository
func NewFlowRepository(db *gorm.DB) FlowRepository {
	return &FlowRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Flow, models.FlowFilter](db),
	}
}

// ByUUID retrieves a flow by UUID
func (r *FlowRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Flow, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.FlowFilter{UUID: &parsedUUID}
	flows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(flows) == 0 {
		return nil, nil
	}

	return flows[0], nil
}

// UpdateDefinition replaces the definition of a flow
func (r *FlowRepositoryImpl) UpdateDefinition(ctx context.Context, flowID uint, definition models.FlowDefinition) error {
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

	err = db.Model(&models.Flow{}).
		Where("id = ?", flowID).
		Updates(map[string]any{
			"definition": definition,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// SetArchived flips the archived flag of a flow
func (r *FlowRepositoryImpl) SetArchived(ctx context.Context, flowID uint, archived bool) error {
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

	err = db.Model(&models.Flow{}).
		Where("id = ?", flowID).
		Updates(map[string]any{
			"is_archived": archived,
			"updated_at":  utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// Deactivate soft-deletes a flow
func (r *FlowRepositoryImpl) Deactivate(ctx context.Context, flowID uint) error {
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

	err = db.Model(&models.Flow{}).
		Where("id = ?", flowID).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves flows based on filter criteria
func (r *FlowRepositoryImpl) ByFilter(ctx context.Context, filter models.FlowFilter, orderBy string, limit, offset int) ([]*models.Flow, error) {
	db := r.getDB(ctx)

	var flows []*models.Flow
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

	err := query.Find(&flows).Error
	if err != nil {
		return nil, err
	}

	return flows, nil
}

// Count returns the number of flows matching the filter
func (r *FlowRepositoryImpl) Count(ctx context.Context, filter models.FlowFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var flow models.Flow
	query := r.applyFilter(db.Model(&flow), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any flow matching the filter exists
func (r *FlowRepositoryImpl) Exists(ctx context.Context, filter models.FlowFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *FlowRepositoryImpl) applyFilter(db *gorm.DB, filter models.FlowFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.OrgID != nil {
		db = db.Where("org_id = ?", *filter.OrgID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.IsSystem != nil {
		db = db.Where("is_system = ?", *filter.IsSystem)
	}
	if filter.IsArchived != nil {
		db = db.Where("is_archived = ?", *filter.IsArchived)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
