package businessflow

import (
	"context"
	"fmt"

	"github.com/ariacomm/campfire/app/dto"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	"github.com/ariacomm/campfire/utils"
	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CampaignEventFlow handles the campaign event lifecycle business logic.
// Events are immutable: an update deactivates the old row and inserts a
// replacement, so fires already handled against the old row stay consistent.
type CampaignEventFlow interface {
	CreateFlowEvent(ctx context.Context, req *dto.CreateFlowEventRequest) (*dto.CreateEventResponse, error)
	CreateMessageEvent(ctx context.Context, req *dto.CreateMessageEventRequest) (*dto.CreateEventResponse, error)
	UpdateEvent(ctx context.Context, req *dto.UpdateEventRequest) (*dto.UpdateEventResponse, error)
	DeleteEvent(ctx context.Context, req *dto.DeleteEventRequest) (*dto.DeleteEventResponse, error)
}

// CampaignEventFlowImpl implements the campaign event business flow
type CampaignEventFlowImpl struct {
	campaignRepo repository.CampaignRepository
	eventRepo    repository.CampaignEventRepository
	fireRepo     repository.EventFireRepository
	fieldRepo    repository.ContactFieldRepository
	flowRepo     repository.FlowRepository
	orgRepo      repository.OrgRepository
	trigger      ScheduleTrigger
	detacher     FlowStartDetacher
	validator    *validator.Validate
	db           *gorm.DB
}

// NewCampaignEventFlow creates a new campaign event flow instance
func NewCampaignEventFlow(
	campaignRepo repository.CampaignRepository,
	eventRepo repository.CampaignEventRepository,
	fireRepo repository.EventFireRepository,
	fieldRepo repository.ContactFieldRepository,
	flowRepo repository.FlowRepository,
	orgRepo repository.OrgRepository,
	trigger ScheduleTrigger,
	detacher FlowStartDetacher,
	db *gorm.DB,
) CampaignEventFlow {
	if detacher == nil {
		detacher = NoopStartDetacher{}
	}
	return &CampaignEventFlowImpl{
		campaignRepo: campaignRepo,
		eventRepo:    eventRepo,
		fireRepo:     fireRepo,
		fieldRepo:    fieldRepo,
		flowRepo:     flowRepo,
		orgRepo:      orgRepo,
		trigger:      trigger,
		detacher:     detacher,
		validator:    validator.New(),
		db:           db,
	}
}

// CreateFlowEvent adds an event starting an existing flow
func (s *CampaignEventFlowImpl) CreateFlowEvent(ctx context.Context, req *dto.CreateFlowEventRequest) (*dto.CreateEventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("EVENT_VALIDATION_FAILED", "Event validation failed", err)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.CampaignUUID, req.OrgID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	field, err := s.resolveDatetimeField(ctx, campaign.OrgID, req.RelativeTo)
	if err != nil {
		return nil, err
	}

	flow, err := s.flowRepo.ByUUID(ctx, req.FlowUUID)
	if err != nil {
		return nil, NewBusinessError("FLOW_LOOKUP_FAILED", "Failed to lookup flow", err)
	}
	if flow == nil || flow.OrgID != campaign.OrgID || !utils.IsTrue(flow.IsActive) {
		return nil, NewBusinessError("FLOW_NOT_FOUND", "Flow not found", ErrFlowNotFound)
	}

	event := &models.CampaignEvent{
		CampaignID:   campaign.ID,
		EventType:    models.EventTypeFlow,
		RelativeToID: field.ID,
		Offset:       req.Offset,
		Unit:         models.OffsetUnit(req.Unit),
		DeliveryHour: req.DeliveryHour,
		FlowID:       flow.ID,
		StartMode:    models.StartMode(req.StartMode),
	}

	if err := s.eventRepo.Save(ctx, event); err != nil {
		return nil, NewBusinessError("EVENT_CREATION_FAILED", "Event creation failed", err)
	}

	s.trigger.ScheduleEvent(event.ID)

	event.RelativeTo = field
	event.Flow = flow

	return &dto.CreateEventResponse{
		Message: "Event created successfully",
		Event:   ToCampaignEventDTO(event),
	}, nil
}

// CreateMessageEvent adds an event sending a message. A single-message system
// flow is synthesized so the executor can treat both event types alike. The
// base language defaults to the org's primary language, or "base" when none
// is configured.
func (s *CampaignEventFlowImpl) CreateMessageEvent(ctx context.Context, req *dto.CreateMessageEventRequest) (*dto.CreateEventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("EVENT_VALIDATION_FAILED", "Event validation failed", err)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.CampaignUUID, req.OrgID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	org, err := getOrg(ctx, s.orgRepo, campaign.OrgID)
	if err != nil {
		return nil, NewBusinessError("ORG_LOOKUP_FAILED", "Failed to lookup org", err)
	}

	baseLanguage := req.BaseLanguage
	if baseLanguage == "" {
		baseLanguage = org.MessageLanguage()
	}
	if _, ok := req.Messages[baseLanguage]; !ok {
		return nil, NewBusinessError("BASE_LANGUAGE_MISSING", "Messages must include the base language", ErrBaseLanguageMissing)
	}

	field, err := s.resolveDatetimeField(ctx, campaign.OrgID, req.RelativeTo)
	if err != nil {
		return nil, err
	}

	var event *models.CampaignEvent
	var flow *models.Flow

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		flow = synthesizeMessageFlow(campaign, req.Messages, baseLanguage)
		if err := s.flowRepo.Save(txCtx, flow); err != nil {
			return fmt.Errorf("failed to save message flow: %w", err)
		}

		event = &models.CampaignEvent{
			CampaignID:   campaign.ID,
			EventType:    models.EventTypeMessage,
			RelativeToID: field.ID,
			Offset:       req.Offset,
			Unit:         models.OffsetUnit(req.Unit),
			DeliveryHour: req.DeliveryHour,
			FlowID:       flow.ID,
			StartMode:    models.StartMode(req.StartMode),
		}
		return s.eventRepo.Save(txCtx, event)
	})
	if err != nil {
		return nil, NewBusinessError("EVENT_CREATION_FAILED", "Event creation failed", err)
	}

	s.trigger.ScheduleEvent(event.ID)

	event.RelativeTo = field
	event.Flow = flow

	return &dto.CreateEventResponse{
		Message: "Event created successfully",
		Event:   ToCampaignEventDTO(event),
	}, nil
}

// UpdateEvent replaces an event with a modified copy. Pending fires of the
// old row are discarded and the replacement is scheduled from scratch.
func (s *CampaignEventFlowImpl) UpdateEvent(ctx context.Context, req *dto.UpdateEventRequest) (*dto.UpdateEventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("EVENT_VALIDATION_FAILED", "Event validation failed", err)
	}

	old, campaign, err := s.getEvent(ctx, req.UUID, req.OrgID)
	if err != nil {
		return nil, err
	}

	field := old.RelativeTo
	if req.RelativeTo != nil {
		field, err = s.resolveDatetimeField(ctx, campaign.OrgID, *req.RelativeTo)
		if err != nil {
			return nil, err
		}
	}

	flowID := old.FlowID
	if old.EventType == models.EventTypeFlow && req.FlowUUID != nil {
		flow, err := s.flowRepo.ByUUID(ctx, *req.FlowUUID)
		if err != nil {
			return nil, NewBusinessError("FLOW_LOOKUP_FAILED", "Failed to lookup flow", err)
		}
		if flow == nil || flow.OrgID != campaign.OrgID || !utils.IsTrue(flow.IsActive) {
			return nil, NewBusinessError("FLOW_NOT_FOUND", "Flow not found", ErrFlowNotFound)
		}
		flowID = flow.ID
	}

	replacement := &models.CampaignEvent{
		CampaignID:   old.CampaignID,
		EventType:    old.EventType,
		RelativeToID: field.ID,
		Offset:       old.Offset,
		Unit:         old.Unit,
		DeliveryHour: old.DeliveryHour,
		FlowID:       flowID,
		StartMode:    old.StartMode,
	}
	if req.Offset != nil {
		replacement.Offset = *req.Offset
	}
	if req.Unit != nil {
		replacement.Unit = models.OffsetUnit(*req.Unit)
	}
	if req.DeliveryHour != nil {
		replacement.DeliveryHour = *req.DeliveryHour
	}
	if req.StartMode != nil {
		replacement.StartMode = models.StartMode(*req.StartMode)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.eventRepo.Deactivate(txCtx, old.ID); err != nil {
			return err
		}
		if _, err := s.fireRepo.DeletePendingForEvent(txCtx, old.ID); err != nil {
			return err
		}

		if old.EventType == models.EventTypeMessage && req.Messages != nil {
			base := utils.BaseLanguage
			if old.Flow != nil && old.Flow.Definition.BaseLanguage != "" {
				base = old.Flow.Definition.BaseLanguage
			}
			if req.BaseLanguage != nil {
				base = *req.BaseLanguage
			}
			if _, ok := (*req.Messages)[base]; !ok {
				return ErrBaseLanguageMissing
			}
			definition := models.FlowDefinition{
				Messages:     *req.Messages,
				BaseLanguage: base,
			}
			if err := s.flowRepo.UpdateDefinition(txCtx, flowID, definition); err != nil {
				return err
			}
		}

		return s.eventRepo.Save(txCtx, replacement)
	})
	if err != nil {
		return nil, NewBusinessError("EVENT_UPDATE_FAILED", "Event update failed", err)
	}

	s.trigger.ScheduleEvent(replacement.ID)

	replacement.RelativeTo = field
	replacement.Flow = old.Flow

	return &dto.UpdateEventResponse{
		Message: "Event updated successfully",
		Event:   ToCampaignEventDTO(replacement),
	}, nil
}

// DeleteEvent removes an event from its campaign
func (s *CampaignEventFlowImpl) DeleteEvent(ctx context.Context, req *dto.DeleteEventRequest) (*dto.DeleteEventResponse, error) {
	event, _, err := s.getEvent(ctx, req.UUID, req.OrgID)
	if err != nil {
		return nil, err
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return releaseEvent(txCtx, s.eventRepo, s.fireRepo, s.flowRepo, s.detacher, event, false)
	})
	if err != nil {
		return nil, NewBusinessError("EVENT_DELETE_FAILED", "Event delete failed", err)
	}

	return &dto.DeleteEventResponse{Message: "Event deleted successfully"}, nil
}

func (s *CampaignEventFlowImpl) getEvent(ctx context.Context, uuid string, orgID uint) (*models.CampaignEvent, *models.Campaign, error) {
	event, err := s.eventRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to lookup event", err)
	}
	if event == nil || !utils.IsTrue(event.IsActive) {
		return nil, nil, NewBusinessError("EVENT_NOT_FOUND", "Event not found", ErrEventNotFound)
	}

	campaign, err := s.campaignRepo.ByID(ctx, event.CampaignID)
	if err != nil {
		return nil, nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil || campaign.OrgID != orgID {
		return nil, nil, NewBusinessError("EVENT_NOT_FOUND", "Event not found", ErrOrgMismatch)
	}

	return event, campaign, nil
}

func (s *CampaignEventFlowImpl) resolveDatetimeField(ctx context.Context, orgID uint, key string) (*models.ContactField, error) {
	field, err := s.fieldRepo.ByKey(ctx, orgID, key)
	if err != nil {
		return nil, NewBusinessError("FIELD_LOOKUP_FAILED", "Failed to lookup field", err)
	}
	if field == nil || !utils.IsTrue(field.IsActive) {
		return nil, NewBusinessError("FIELD_NOT_FOUND", "Field not found", ErrFieldNotFound)
	}
	if !field.IsDatetime() {
		return nil, NewBusinessError("FIELD_NOT_DATETIME", "Field must hold datetimes", ErrFieldNotDatetime)
	}

	return field, nil
}

// synthesizeMessageFlow builds the hidden single-message flow behind a
// message event
func synthesizeMessageFlow(campaign *models.Campaign, messages map[string]string, baseLanguage string) *models.Flow {
	languages := make(pq.StringArray, 0, len(messages))
	for lang := range messages {
		languages = append(languages, lang)
	}

	name := fmt.Sprintf("Single Message (%s)", campaign.Name)
	if len(name) > 64 {
		name = name[:64]
	}

	return &models.Flow{
		OrgID:     campaign.OrgID,
		Name:      name,
		Languages: languages,
		Definition: models.FlowDefinition{
			Messages:     messages,
			BaseLanguage: baseLanguage,
		},
		IsSystem: utils.ToPtr(true),
	}
}
