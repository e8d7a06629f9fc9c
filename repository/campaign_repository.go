package repository

import (
	"context"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Campaign, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CampaignFilter{UUID: &parsedUUID}
	campaigns, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	return campaigns[0], nil
}

// ByNameInOrg retrieves an active campaign by name within an org,
// matching case-insensitively
func (r *CampaignRepositoryImpl) ByNameInOrg(ctx context.Context, orgID uint, name string) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	err := db.Where("org_id = ? AND LOWER(name) = LOWER(?) AND is_active = true", orgID, name).
		Limit(1).
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	return campaigns[0], nil
}

// ListByGroup retrieves campaigns referencing the group
func (r *CampaignRepositoryImpl) ListByGroup(ctx context.Context, groupID uint, activeOnly bool) ([]*models.Campaign, error) {
	filter := models.CampaignFilter{GroupID: &groupID}
	if activeOnly {
		filter.IsActive = utils.ToPtr(true)
	}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

// UpdateName updates only the name of a campaign
func (r *CampaignRepositoryImpl) UpdateName(ctx context.Context, id uint, name string) error {
	return r.updateColumns(ctx, id, map[string]any{"name": name})
}

// UpdateGroup repoints the campaign at another group
func (r *CampaignRepositoryImpl) UpdateGroup(ctx context.Context, id uint, groupID uint) error {
	return r.updateColumns(ctx, id, map[string]any{"group_id": groupID})
}

// UpdateArchived sets the archived flag of a campaign
func (r *CampaignRepositoryImpl) UpdateArchived(ctx context.Context, id uint, archived bool) error {
	return r.updateColumns(ctx, id, map[string]any{"is_archived": archived})
}

// Deactivate soft-deletes a campaign
func (r *CampaignRepositoryImpl) Deactivate(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]any{"is_active": false})
}

func (r *CampaignRepositoryImpl) updateColumns(ctx context.Context, id uint, columns map[string]any) error {
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

	columns["updated_at"] = utils.UTCNow()
	err = db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(columns).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
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

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var campaign models.Campaign
	query := r.applyFilter(db.Model(&campaign), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any campaign matching the filter exists
func (r *CampaignRepositoryImpl) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
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
	if filter.GroupID != nil {
		db = db.Where("group_id = ?", *filter.GroupID)
	}
	if filter.IsArchived != nil {
		db = db.Where("is_archived = ?", *filter.IsArchived)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
