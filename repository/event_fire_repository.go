package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ariacomm/campfire/models"
	"gorm.io/gorm"
)

// EventFireRepositoryImpl implements the EventFireRepository interface
type EventFireRepositoryImpl struct {
	*BaseRepository[models.EventFire, models.EventFireFilter]
}

// NewEventFireRepository creates a new event fire repository
func NewEventFireRepository(db *gorm.DB) EventFireRepository {
	return &EventFireRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EventFire, models.EventFireFilter](db),
	}
}

// UpsertPending sets the scheduled time of the pending fire for
// (eventID, contactID), inserting the row if none exists. Relies on the
// partial unique index over unfired rows, so handled history is untouched.
func (r *EventFireRepositoryImpl) UpsertPending(ctx context.Context, eventID, contactID uint, scheduled time.Time) error {
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
		INSERT INTO event_fires (event_id, contact_id, scheduled)
		VALUES (?, ?, ?)
		ON CONFLICT (event_id, contact_id) WHERE fired IS NULL
		DO UPDATE SET scheduled = EXCLUDED.scheduled`,
		eventID, contactID, scheduled,
	).Error
	if err != nil {
		return fmt.Errorf("failed to upsert fire for event %d contact %d: %w", eventID, contactID, err)
	}

	return nil
}

// Claim atomically marks a pending fire as handled. Returns false when the
// row was already handled by a concurrent worker.
func (r *EventFireRepositoryImpl) Claim(ctx context.Context, fireID uint, fired time.Time, result models.FireResult) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
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

	res := db.Model(&models.EventFire{}).
		Where("id = ? AND fired IS NULL", fireID).
		Updates(map[string]any{
			"fired":       fired,
			"fire_result": result,
		})
	if res.Error != nil {
		err = res.Error
		return false, fmt.Errorf("failed to claim fire %d: %w", fireID, res.Error)
	}

	return res.RowsAffected == 1, nil
}

// ListDue retrieves pending fires scheduled at or before now, oldest first
func (r *EventFireRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.EventFire, error) {
	db := r.getDB(ctx)

	var fires []*models.EventFire
	query := db.Where("fired IS NULL AND scheduled <= ?", now).
		Order("scheduled ASC").
		Preload("Event").
		Preload("Event.Campaign").
		Preload("Event.Flow")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&fires).Error
	if err != nil {
		return nil, err
	}

	return fires, nil
}

// DeletePendingForEvent deletes all pending fires of an event
func (r *EventFireRepositoryImpl) DeletePendingForEvent(ctx context.Context, eventID uint) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	res := db.Where("event_id = ? AND fired IS NULL", eventID).
		Delete(&models.EventFire{})
	if res.Error != nil {
		err = res.Error
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

// DeleteForEvent deletes every fire of an event, handled history included.
// Only full event deletion goes through here.
func (r *EventFireRepositoryImpl) DeleteForEvent(ctx context.Context, eventID uint) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	res := db.Where("event_id = ?", eventID).
		Delete(&models.EventFire{})
	if res.Error != nil {
		err = res.Error
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

// DeletePendingForContact deletes the contact's pending fires of the given events
func (r *EventFireRepositoryImpl) DeletePendingForContact(ctx context.Context, eventIDs []uint, contactID uint) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	res := db.Where("event_id IN ? AND contact_id = ? AND fired IS NULL", eventIDs, contactID).
		Delete(&models.EventFire{})
	if res.Error != nil {
		err = res.Error
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

// DeletePendingByIDs deletes fires by primary key, skipping any row a
// concurrent executor claimed in the meantime
func (r *EventFireRepositoryImpl) DeletePendingByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	res := db.Where("id IN ? AND fired IS NULL", ids).Delete(&models.EventFire{})
	if res.Error != nil {
		err = res.Error
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

// OrphanedPendingIDs returns IDs of pending fires whose event is no longer
// active, oldest first
func (r *EventFireRepositoryImpl) OrphanedPendingIDs(ctx context.Context, limit int) ([]uint, error) {
	db := r.getDB(ctx)

	var ids []uint
	query := db.Model(&models.EventFire{}).
		Joins("JOIN campaign_events ON campaign_events.id = event_fires.event_id").
		Where("event_fires.fired IS NULL AND campaign_events.is_active = false").
		Order("event_fires.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Pluck("event_fires.id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// HandledBeforeIDs returns IDs of handled fires fired before the cutoff,
// oldest first
func (r *EventFireRepositoryImpl) HandledBeforeIDs(ctx context.Context, cutoff time.Time, limit int) ([]uint, error) {
	db := r.getDB(ctx)

	var ids []uint
	query := db.Model(&models.EventFire{}).
		Where("fired IS NOT NULL AND fired < ?", cutoff).
		Order("fired ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// DeleteByIDs deletes fires by primary key
func (r *EventFireRepositoryImpl) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	res := db.Where("id IN ?", ids).Delete(&models.EventFire{})
	if res.Error != nil {
		err = res.Error
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

// ByFilter retrieves event fires based on filter criteria
func (r *EventFireRepositoryImpl) ByFilter(ctx context.Context, filter models.EventFireFilter, orderBy string, limit, offset int) ([]*models.EventFire, error) {
	db := r.getDB(ctx)

	var fires []*models.EventFire
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

	err := query.Find(&fires).Error
	if err != nil {
		return nil, err
	}

	return fires, nil
}

// Count returns the number of event fires matching the filter
func (r *EventFireRepositoryImpl) Count(ctx context.Context, filter models.EventFireFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var fire models.EventFire
	query := r.applyFilter(db.Model(&fire), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any event fire matching the filter exists
func (r *EventFireRepositoryImpl) Exists(ctx context.Context, filter models.EventFireFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *EventFireRepositoryImpl) applyFilter(db *gorm.DB, filter models.EventFireFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.EventID != nil {
		db = db.Where("event_id = ?", *filter.EventID)
	}
	if filter.ContactID != nil {
		db = db.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.Pending != nil {
		if *filter.Pending {
			db = db.Where("fired IS NULL")
		} else {
			db = db.Where("fired IS NOT NULL")
		}
	}
	if filter.FireResult != nil {
		db = db.Where("fire_result = ?", *filter.FireResult)
	}
	if filter.ScheduledBefore != nil {
		db = db.Where("scheduled < ?", *filter.ScheduledBefore)
	}
	if filter.ScheduledAfter != nil {
		db = db.Where("scheduled >= ?", *filter.ScheduledAfter)
	}
	if filter.FiredBefore != nil {
		db = db.Where("fired < ?", *filter.FiredBefore)
	}
	if filter.FiredAfter != nil {
		db = db.Where("fired >= ?", *filter.FiredAfter)
	}

	return db
}
