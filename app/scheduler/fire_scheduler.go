package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	businessflow "github.com/ariacomm/campfire/business_flow"
	"github.com/ariacomm/campfire/metrics"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	"github.com/ariacomm/campfire/utils"
)

// FireScheduler turns campaign events and contact field values into pending
// fire rows. It never touches rows whose fired column is set.
type FireScheduler struct {
	eventRepo    repository.CampaignEventRepository
	campaignRepo repository.CampaignRepository
	contactRepo  repository.ContactRepository
	fieldRepo    repository.ContactFieldRepository
	fireRepo     repository.EventFireRepository
	orgRepo      repository.OrgRepository
	locker       businessflow.EventLocker
	logger       *log.Logger
	now          func() time.Time
}

// NewFireScheduler creates a new fire scheduler
func NewFireScheduler(
	eventRepo repository.CampaignEventRepository,
	campaignRepo repository.CampaignRepository,
	contactRepo repository.ContactRepository,
	fieldRepo repository.ContactFieldRepository,
	fireRepo repository.EventFireRepository,
	orgRepo repository.OrgRepository,
	locker businessflow.EventLocker,
	logger *log.Logger,
) *FireScheduler {
	if logger == nil {
		logger = NewWorkerLogger("scheduler", "")
	}
	return &FireScheduler{
		eventRepo:    eventRepo,
		campaignRepo: campaignRepo,
		contactRepo:  contactRepo,
		fieldRepo:    fieldRepo,
		fireRepo:     fireRepo,
		orgRepo:      orgRepo,
		locker:       locker,
		logger:       logger,
		now:          utils.UTCNow,
	}
}

// ComputeScheduledTime derives the fire time of an event for one reference
// value. All calendar math happens in the org's timezone: the value is
// truncated to the minute, the offset applied, and when the event carries a
// delivery hour the hour of the resulting local date is overridden with
// minutes and seconds zeroed. The result is returned in UTC.
func ComputeScheduledTime(event *models.CampaignEvent, loc *time.Location, value time.Time) time.Time {
	local := utils.TruncateToMinute(value.In(loc))
	scheduled := local.Add(time.Duration(event.OffsetMinutes()) * time.Minute)

	if event.DeliveryHour != models.DeliveryHourSame {
		scheduled = time.Date(
			scheduled.Year(), scheduled.Month(), scheduled.Day(),
			event.DeliveryHour, 0, 0, 0, loc,
		)
	}

	return scheduled.UTC()
}

// MaterializeEvent reconciles the pending fires of an event against every
// contact in its campaign's group. Existing pending rows are updated in
// place, so a failure partway through never loses rows that were correct
// before the pass. A per-event lock keeps concurrent full passes from
// interleaving.
func (s *FireScheduler) MaterializeEvent(ctx context.Context, eventID uint) error {
	lockKey := strconv.FormatUint(uint64(eventID), 10)
	ok, err := s.locker.Acquire(ctx, lockKey, utils.MaterializeLockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire lock for event %d: %w", eventID, err)
	}
	if !ok {
		metrics.LockContention.WithLabelValues("materialize").Inc()
		return businessflow.ErrLockBusy
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey); err != nil {
			s.logger.Printf("scheduler: release lock for event %d failed: %v", eventID, err)
		}
	}()

	event, campaign, org, err := s.loadSchedulable(ctx, eventID)
	if err != nil || event == nil {
		return err
	}

	existing, err := s.fireRepo.ByFilter(ctx, models.EventFireFilter{
		EventID: &event.ID,
		Pending: utils.ToPtr(true),
	}, "", 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list pending fires of event %d: %w", event.ID, err)
	}
	pendingByContact := make(map[uint]uint, len(existing))
	for _, fire := range existing {
		pendingByContact[fire.ContactID] = fire.ID
	}

	memberIDs, err := s.contactRepo.MemberIDs(ctx, campaign.GroupID)
	if err != nil {
		return fmt.Errorf("failed to list members of group %d: %w", campaign.GroupID, err)
	}

	loc := org.Location()
	now := s.now()
	upserted := 0
	keep := make(map[uint]bool, len(memberIDs))

	for _, contactID := range memberIDs {
		value, err := s.fieldRepo.DatetimeValue(ctx, contactID, event.RelativeToID)
		if err != nil {
			return fmt.Errorf("failed to read field %d of contact %d: %w", event.RelativeToID, contactID, err)
		}
		if value == nil {
			continue
		}

		scheduled := ComputeScheduledTime(event, loc, *value)
		if !scheduled.After(now) {
			// A value in the past creates no new fire, but an unfired backlog
			// row stays pending until the executor claims it
			if _, ok := pendingByContact[contactID]; ok {
				keep[contactID] = true
			}
			continue
		}

		if err := s.fireRepo.UpsertPending(ctx, event.ID, contactID, scheduled); err != nil {
			return fmt.Errorf("failed to upsert fire for event %d contact %d: %w", event.ID, contactID, err)
		}
		keep[contactID] = true
		upserted++
	}

	// Pending rows for contacts who left the group or lost their anchor value
	stale := make([]uint, 0)
	for contactID, fireID := range pendingByContact {
		if !keep[contactID] {
			stale = append(stale, fireID)
		}
	}
	for start := 0; start < len(stale); start += utils.MaterializeBatchSize {
		end := min(start+utils.MaterializeBatchSize, len(stale))
		if _, err := s.fireRepo.DeletePendingByIDs(ctx, stale[start:end]); err != nil {
			return fmt.Errorf("failed to delete stale fires of event %d: %w", event.ID, err)
		}
	}

	metrics.MaterializationsTotal.WithLabelValues("event").Inc()
	s.logger.Printf("scheduler: materialized event id=%d contacts=%d upserted=%d stale=%d", event.ID, len(memberIDs), upserted, len(stale))
	return nil
}

// MaterializeContact recomputes the pending fire of one (event, contact)
// pair. The single-row upsert makes last-write-wins safe without a lock.
func (s *FireScheduler) MaterializeContact(ctx context.Context, eventID, contactID uint) error {
	event, campaign, org, err := s.loadSchedulable(ctx, eventID)
	if err != nil || event == nil {
		return err
	}

	member, err := s.contactRepo.IsMember(ctx, campaign.GroupID, contactID)
	if err != nil {
		return fmt.Errorf("failed to check membership of contact %d: %w", contactID, err)
	}

	value, err := s.fieldRepo.DatetimeValue(ctx, contactID, event.RelativeToID)
	if err != nil {
		return fmt.Errorf("failed to read field %d of contact %d: %w", event.RelativeToID, contactID, err)
	}

	if !member || value == nil {
		_, err := s.fireRepo.DeletePendingForContact(ctx, []uint{event.ID}, contactID)
		return err
	}

	scheduled := ComputeScheduledTime(event, org.Location(), *value)
	if !scheduled.After(s.now()) {
		_, err := s.fireRepo.DeletePendingForContact(ctx, []uint{event.ID}, contactID)
		return err
	}

	if err := s.fireRepo.UpsertPending(ctx, event.ID, contactID, scheduled); err != nil {
		return err
	}

	metrics.MaterializationsTotal.WithLabelValues("contact").Inc()
	return nil
}

// loadSchedulable loads the event with its campaign and org, returning nils
// when the chain is not currently schedulable
func (s *FireScheduler) loadSchedulable(ctx context.Context, eventID uint) (*models.CampaignEvent, *models.Campaign, *models.Org, error) {
	event, err := s.eventRepo.ByID(ctx, eventID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load event %d: %w", eventID, err)
	}
	if event == nil || !utils.IsTrue(event.IsActive) {
		return nil, nil, nil, nil
	}

	campaign, err := s.campaignRepo.ByID(ctx, event.CampaignID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load campaign %d: %w", event.CampaignID, err)
	}
	if campaign == nil || !campaign.IsSchedulable() {
		return nil, nil, nil, nil
	}

	org, err := s.orgRepo.ByID(ctx, campaign.OrgID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load org %d: %w", campaign.OrgID, err)
	}
	if org == nil || !utils.IsTrue(org.IsActive) {
		return nil, nil, nil, nil
	}

	return event, campaign, org, nil
}
