package repository

import (
	"context"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"
	"gorm.io/gorm"
)

// OrgRepositoryImpl implements the OrgRepository interface
type OrgRepositoryImpl struct {
	*BaseRepository[models.Org, models.OrgFilter]
}

// NewOrgRepository creates a new org repository
func NewOrgRepository(db *gorm.DB) OrgRepository {
	return &OrgRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Org, models.OrgFilter](db),
	}
}

// ByUUID retrieves an org by UUID
func (r *OrgRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Org, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.OrgFilter{UUID: &parsedUUID}
	orgs, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(orgs) == 0 {
		return nil, nil
	}

	return orgs[0], nil
}

// ByFilter retrieves orgs based on filter criteria
func (r *OrgRepositoryImpl) ByFilter(ctx context.Context, filter models.OrgFilter, orderBy string, limit, offset int) ([]*models.Org, error) {
	db := r.getDB(ctx)

	var orgs []*models.Org
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

	err := query.Find(&orgs).Error
	if err != nil {
		return nil, err
	}

	return orgs, nil
}

// Count returns the number of orgs matching the filter
func (r *OrgRepositoryImpl) Count(ctx context.Context, filter models.OrgFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var org models.Org
	query := r.applyFilter(db.Model(&org), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any org matching the filter exists
func (r *OrgRepositoryImpl) Exists(ctx context.Context, filter models.OrgFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *OrgRepositoryImpl) applyFilter(db *gorm.DB, filter models.OrgFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
