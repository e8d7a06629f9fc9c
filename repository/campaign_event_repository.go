package repository

import (
	"context"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"
	"gorm.io/gorm"
)

// CampaignEventRepositoryImpl implements the CampaignEventRepository interface
type CampaignEventRepositoryImpl struct {
	*BaseRepository[models.CampaignEvent, models.CampaignEventFilter]
}

// NewCampaignEventRepository creates a new campaign event repository
func NewCampaignEventRepository(db *gorm.DB) CampaignEventRepository {
	return &CampaignEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignEvent, models.CampaignEventFilter](db),
	}
}

// ByUUID retrieves a campaign event by UUID
func (r *CampaignEventRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.CampaignEvent, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CampaignEventFilter{UUID: &parsedUUID}
	events, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		return nil, nil
	}

	return events[0], nil
}

// ListActiveByCampaign retrieves the active events of a campaign
func (r *CampaignEventRepositoryImpl) ListActiveByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignEvent, error) {
	filter := models.CampaignEventFilter{
		CampaignID: &campaignID,
		IsActive:   utils.ToPtr(true),
	}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListActiveByRelativeTo retrieves the active events anchored to a field
func (r *CampaignEventRepositoryImpl) ListActiveByRelativeTo(ctx context.Context, fieldID uint) ([]*models.CampaignEvent, error) {
	filter := models.CampaignEventFilter{
		RelativeToID: &fieldID,
		IsActive:     utils.ToPtr(true),
	}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// Deactivate marks an event inactive. The row itself stays, so handled fires
// keep a valid reference.
func (r *CampaignEventRepositoryImpl) Deactivate(ctx context.Context, id uint) error {
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

	err = db.Model(&models.CampaignEvent{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return err
	}

	return nil
}

// Delete removes an event row entirely. Callers must clear its fires first so
// no fire row is left pointing at a missing event.
func (r *CampaignEventRepositoryImpl) Delete(ctx context.Context, id uint) error {
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

	err = db.Where("id = ?", id).
		Delete(&models.CampaignEvent{}).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves campaign events based on filter criteria
func (r *CampaignEventRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignEventFilter, orderBy string, limit, offset int) ([]*models.CampaignEvent, error) {
	db := r.getDB(ctx)

	var events []*models.CampaignEvent
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

	query = query.Preload("RelativeTo").
		Preload("Flow")

	err := query.Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Count returns the number of campaign events matching the filter
func (r *CampaignEventRepositoryImpl) Count(ctx context.Context, filter models.CampaignEventFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var event models.CampaignEvent
	query := r.applyFilter(db.Model(&event), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any campaign event matching the filter exists
func (r *CampaignEventRepositoryImpl) Exists(ctx context.Context, filter models.CampaignEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignEventRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignEventFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.EventType != nil {
		db = db.Where("event_type = ?", *filter.EventType)
	}
	if filter.RelativeToID != nil {
		db = db.Where("relative_to_id = ?", *filter.RelativeToID)
	}
	if filter.FlowID != nil {
		db = db.Where("flow_id = ?", *filter.FlowID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Unit != nil {
		db = db.Where("unit = ?", *filter.Unit)
	}

	return db
}
