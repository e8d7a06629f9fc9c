package businessflow

import (
	"context"
	"fmt"

	"github.com/ariacomm/campfire/app/dto"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	"github.com/ariacomm/campfire/utils"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CampaignFlow handles the campaign lifecycle business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CreateCampaignResponse, error)
	UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest) (*dto.UpdateCampaignResponse, error)
	ArchiveCampaign(ctx context.Context, req *dto.ArchiveCampaignRequest) (*dto.ArchiveCampaignResponse, error)
	RestoreCampaign(ctx context.Context, req *dto.ArchiveCampaignRequest) (*dto.ArchiveCampaignResponse, error)
	DeleteCampaign(ctx context.Context, req *dto.DeleteCampaignRequest) (*dto.DeleteCampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	eventRepo    repository.CampaignEventRepository
	fireRepo     repository.EventFireRepository
	contactRepo  repository.ContactRepository
	flowRepo     repository.FlowRepository
	orgRepo      repository.OrgRepository
	trigger      ScheduleTrigger
	detacher     FlowStartDetacher
	validator    *validator.Validate
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	eventRepo repository.CampaignEventRepository,
	fireRepo repository.EventFireRepository,
	contactRepo repository.ContactRepository,
	flowRepo repository.FlowRepository,
	orgRepo repository.OrgRepository,
	trigger ScheduleTrigger,
	detacher FlowStartDetacher,
	db *gorm.DB,
) CampaignFlow {
	if detacher == nil {
		detacher = NoopStartDetacher{}
	}
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		eventRepo:    eventRepo,
		fireRepo:     fireRepo,
		contactRepo:  contactRepo,
		flowRepo:     flowRepo,
		orgRepo:      orgRepo,
		trigger:      trigger,
		detacher:     detacher,
		validator:    validator.New(),
		db:           db,
	}
}

// CreateCampaign creates a campaign after checking the org-wide name uniqueness
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CreateCampaignResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	org, err := getOrg(ctx, s.orgRepo, req.OrgID)
	if err != nil {
		return nil, NewBusinessError("ORG_LOOKUP_FAILED", "Failed to lookup org", err)
	}

	group, err := s.contactRepo.GroupByUUID(ctx, req.GroupUUID)
	if err != nil {
		return nil, NewBusinessError("GROUP_LOOKUP_FAILED", "Failed to lookup group", err)
	}
	if group == nil || group.OrgID != org.ID {
		return nil, NewBusinessError("GROUP_NOT_FOUND", "Group not found", ErrGroupNotFound)
	}

	var campaign *models.Campaign

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		existing, err := s.campaignRepo.ByNameInOrg(txCtx, org.ID, req.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrCampaignNameTaken
		}

		campaign = &models.Campaign{
			OrgID:   org.ID,
			Name:    req.Name,
			GroupID: group.ID,
		}
		return s.campaignRepo.Save(txCtx, campaign)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	return &dto.CreateCampaignResponse{
		Message:  "Campaign created successfully",
		Campaign: ToCampaignDTO(campaign, group.UUID.String(), nil),
	}, nil
}

// UpdateCampaign renames a campaign or points it at another group. A group
// change recomputes the fires of every active event.
func (s *CampaignFlowImpl) UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest) (*dto.UpdateCampaignResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}
	if req.Name == nil && req.GroupUUID == nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_EMPTY", "Nothing to update", ErrCampaignUpdateEmpty)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.OrgID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	var group *models.ContactGroup
	if req.GroupUUID != nil {
		group, err = s.contactRepo.GroupByUUID(ctx, *req.GroupUUID)
		if err != nil {
			return nil, NewBusinessError("GROUP_LOOKUP_FAILED", "Failed to lookup group", err)
		}
		if group == nil || group.OrgID != campaign.OrgID {
			return nil, NewBusinessError("GROUP_NOT_FOUND", "Group not found", ErrGroupNotFound)
		}
	}

	groupChanged := group != nil && group.ID != campaign.GroupID

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if req.Name != nil && *req.Name != campaign.Name {
			existing, err := s.campaignRepo.ByNameInOrg(txCtx, campaign.OrgID, *req.Name)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != campaign.ID {
				return ErrCampaignNameTaken
			}
			if err := s.campaignRepo.UpdateName(txCtx, campaign.ID, *req.Name); err != nil {
				return err
			}
			campaign.Name = *req.Name
		}

		if groupChanged {
			if err := s.campaignRepo.UpdateGroup(txCtx, campaign.ID, group.ID); err != nil {
				return err
			}
			campaign.GroupID = group.ID
		}

		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Campaign update failed", err)
	}

	if groupChanged {
		s.scheduleAllEvents(ctx, campaign.ID)
	}

	groupUUID := ""
	if group != nil {
		groupUUID = group.UUID.String()
	}

	return &dto.UpdateCampaignResponse{
		Message:  "Campaign updated successfully",
		Campaign: ToCampaignDTO(campaign, groupUUID, nil),
	}, nil
}

// ArchiveCampaign archives a campaign and recreates each active event. The
// recreate cycle deactivates every current event row, so pending fires stay
// in storage but can only ever resolve to skips. Cheaper than deleting and
// rebuilding them on restore.
func (s *CampaignFlowImpl) ArchiveCampaign(ctx context.Context, req *dto.ArchiveCampaignRequest) (*dto.ArchiveCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.OrgID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.campaignRepo.UpdateArchived(txCtx, campaign.ID, true); err != nil {
			return err
		}

		events, err := s.eventRepo.ListActiveByCampaign(txCtx, campaign.ID)
		if err != nil {
			return err
		}
		for _, event := range events {
			if _, err := recreateEvent(txCtx, s.eventRepo, event); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_ARCHIVE_FAILED", "Campaign archive failed", err)
	}

	return &dto.ArchiveCampaignResponse{Message: "Campaign archived successfully"}, nil
}

// RestoreCampaign unarchives a campaign, revives flows archived along with
// it, and recomputes the fires of every active event
func (s *CampaignFlowImpl) RestoreCampaign(ctx context.Context, req *dto.ArchiveCampaignRequest) (*dto.ArchiveCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.OrgID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.campaignRepo.UpdateArchived(txCtx, campaign.ID, false); err != nil {
			return err
		}

		events, err := s.eventRepo.ListActiveByCampaign(txCtx, campaign.ID)
		if err != nil {
			return err
		}
		for _, event := range events {
			if event.EventType != models.EventTypeFlow {
				continue
			}
			flow, err := s.flowRepo.ByID(txCtx, event.FlowID)
			if err != nil {
				return err
			}
			if flow != nil && utils.IsTrue(flow.IsArchived) {
				if err := s.flowRepo.SetArchived(txCtx, flow.ID, false); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RESTORE_FAILED", "Campaign restore failed", err)
	}

	s.scheduleAllEvents(ctx, campaign.ID)

	return &dto.ArchiveCampaignResponse{Message: "Campaign restored successfully"}, nil
}

// DeleteCampaign fully releases every event of a campaign, fires and event
// rows included, then soft-deletes the campaign itself
func (s *CampaignFlowImpl) DeleteCampaign(ctx context.Context, req *dto.DeleteCampaignRequest) (*dto.DeleteCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.OrgID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Superseded rows left behind by edit and archive cycles go too, not
		// just the currently active events
		events, err := s.eventRepo.ByFilter(txCtx, models.CampaignEventFilter{CampaignID: &campaign.ID}, "", 0, 0)
		if err != nil {
			return err
		}

		for _, event := range events {
			if err := releaseEvent(txCtx, s.eventRepo, s.fireRepo, s.flowRepo, s.detacher, event, true); err != nil {
				return err
			}
		}

		return s.campaignRepo.Deactivate(txCtx, campaign.ID)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_DELETE_FAILED", "Campaign delete failed", err)
	}

	return &dto.DeleteCampaignResponse{Message: "Campaign deleted successfully"}, nil
}

// ListCampaigns returns the active campaigns of an org with their events
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	filter := models.CampaignFilter{
		OrgID:    &req.OrgID,
		IsActive: utils.ToPtr(true),
	}
	if !req.IncludeArchived {
		filter.IsArchived = utils.ToPtr(false)
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	resp := &dto.ListCampaignsResponse{Total: total}
	for _, campaign := range campaigns {
		events, err := s.eventRepo.ListActiveByCampaign(ctx, campaign.ID)
		if err != nil {
			return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaign events", err)
		}

		groupUUID := ""
		if group, err := s.contactRepo.GroupByID(ctx, campaign.GroupID); err == nil && group != nil {
			groupUUID = group.UUID.String()
		}

		resp.Campaigns = append(resp.Campaigns, ToCampaignDTO(campaign, groupUUID, events))
	}

	return resp, nil
}

func (s *CampaignFlowImpl) scheduleAllEvents(ctx context.Context, campaignID uint) {
	events, err := s.eventRepo.ListActiveByCampaign(ctx, campaignID)
	if err != nil {
		return
	}
	for _, event := range events {
		s.trigger.ScheduleEvent(event.ID)
	}
}

// recreateEvent deactivates an event row and inserts an identical active
// replacement. Fires of the old row turn into permanent no-ops without being
// touched.
func recreateEvent(
	ctx context.Context,
	eventRepo repository.CampaignEventRepository,
	event *models.CampaignEvent,
) (*models.CampaignEvent, error) {
	if err := eventRepo.Deactivate(ctx, event.ID); err != nil {
		return nil, fmt.Errorf("failed to deactivate event %d: %w", event.ID, err)
	}

	replacement := &models.CampaignEvent{
		CampaignID:   event.CampaignID,
		EventType:    event.EventType,
		RelativeToID: event.RelativeToID,
		Offset:       event.Offset,
		Unit:         event.Unit,
		DeliveryHour: event.DeliveryHour,
		FlowID:       event.FlowID,
		StartMode:    event.StartMode,
	}
	if err := eventRepo.Save(ctx, replacement); err != nil {
		return nil, fmt.Errorf("failed to recreate event %d: %w", event.ID, err)
	}

	return replacement, nil
}

// releaseEvent deactivates an event, detaches queued flow starts referencing
// it, discards its pending fires, and releases the synthesized flow of
// message events. A full delete additionally drops the handled fires and the
// event row itself.
func releaseEvent(
	ctx context.Context,
	eventRepo repository.CampaignEventRepository,
	fireRepo repository.EventFireRepository,
	flowRepo repository.FlowRepository,
	detacher FlowStartDetacher,
	event *models.CampaignEvent,
	forFullDelete bool,
) error {
	if err := eventRepo.Deactivate(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to deactivate event %d: %w", event.ID, err)
	}

	if err := detacher.DetachStartsForEvent(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to detach starts of event %d: %w", event.ID, err)
	}

	if event.EventType == models.EventTypeMessage {
		if err := flowRepo.Deactivate(ctx, event.FlowID); err != nil {
			return fmt.Errorf("failed to release flow %d of event %d: %w", event.FlowID, event.ID, err)
		}
	}

	if forFullDelete {
		if _, err := fireRepo.DeleteForEvent(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to delete fires of event %d: %w", event.ID, err)
		}
		if err := eventRepo.Delete(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to delete event %d: %w", event.ID, err)
		}
		return nil
	}

	if _, err := fireRepo.DeletePendingForEvent(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to delete pending fires of event %d: %w", event.ID, err)
	}

	return nil
}
