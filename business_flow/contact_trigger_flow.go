package businessflow

import (
	"context"

	"github.com/ariacomm/campfire/app/dto"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	"github.com/ariacomm/campfire/utils"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ContactTriggerFlow handles the contact-side changes that feed the fire
// engine: field value writes, field type changes, and group membership.
type ContactTriggerFlow interface {
	SetFieldValue(ctx context.Context, req *dto.SetFieldValueRequest) (*dto.SetFieldValueResponse, error)
	UpdateFieldType(ctx context.Context, req *dto.UpdateFieldTypeRequest) (*dto.UpdateFieldTypeResponse, error)
	AddToGroup(ctx context.Context, req *dto.GroupMembershipRequest) (*dto.GroupMembershipResponse, error)
	RemoveFromGroup(ctx context.Context, req *dto.GroupMembershipRequest) (*dto.GroupMembershipResponse, error)
	DeleteGroup(ctx context.Context, req *dto.DeleteGroupRequest) (*dto.DeleteGroupResponse, error)
}

// ContactTriggerFlowImpl implements the contact trigger business flow
type ContactTriggerFlowImpl struct {
	contactRepo  repository.ContactRepository
	fieldRepo    repository.ContactFieldRepository
	eventRepo    repository.CampaignEventRepository
	campaignRepo repository.CampaignRepository
	fireRepo     repository.EventFireRepository
	trigger      ScheduleTrigger
	validator    *validator.Validate
	db           *gorm.DB
}

// NewContactTriggerFlow creates a new contact trigger flow instance
func NewContactTriggerFlow(
	contactRepo repository.ContactRepository,
	fieldRepo repository.ContactFieldRepository,
	eventRepo repository.CampaignEventRepository,
	campaignRepo repository.CampaignRepository,
	fireRepo repository.EventFireRepository,
	trigger ScheduleTrigger,
	db *gorm.DB,
) ContactTriggerFlow {
	return &ContactTriggerFlowImpl{
		contactRepo:  contactRepo,
		fieldRepo:    fieldRepo,
		eventRepo:    eventRepo,
		campaignRepo: campaignRepo,
		fireRepo:     fireRepo,
		trigger:      trigger,
		validator:    validator.New(),
		db:           db,
	}
}

// SetFieldValue writes a field value on a contact. Writing a datetime field
// recomputes the contact's fires of every event anchored to it.
func (s *ContactTriggerFlowImpl) SetFieldValue(ctx context.Context, req *dto.SetFieldValueRequest) (*dto.SetFieldValueResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("FIELD_VALIDATION_FAILED", "Field validation failed", err)
	}

	contact, err := s.getContact(ctx, req.ContactUUID, req.OrgID)
	if err != nil {
		return nil, err
	}

	field, err := s.fieldRepo.ByKey(ctx, req.OrgID, req.FieldKey)
	if err != nil {
		return nil, NewBusinessError("FIELD_LOOKUP_FAILED", "Failed to lookup field", err)
	}
	if field == nil || !utils.IsTrue(field.IsActive) {
		return nil, NewBusinessError("FIELD_NOT_FOUND", "Field not found", ErrFieldNotFound)
	}

	if err := s.fieldRepo.SetValue(ctx, contact.ID, field.ID, req.TextValue, req.DatetimeValue); err != nil {
		return nil, NewBusinessError("FIELD_VALUE_SET_FAILED", "Failed to set field value", err)
	}

	if field.IsDatetime() {
		events, err := s.eventRepo.ListActiveByRelativeTo(ctx, field.ID)
		if err == nil {
			for _, event := range events {
				s.trigger.ScheduleContactEvent(event.ID, contact.ID)
			}
		}
	}

	return &dto.SetFieldValueResponse{Message: "Field value set successfully"}, nil
}

// UpdateFieldType changes a field's value type. A field anchoring active
// campaign events cannot move away from datetime.
func (s *ContactTriggerFlowImpl) UpdateFieldType(ctx context.Context, req *dto.UpdateFieldTypeRequest) (*dto.UpdateFieldTypeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("FIELD_VALIDATION_FAILED", "Field validation failed", err)
	}

	field, err := s.fieldRepo.ByKey(ctx, req.OrgID, req.FieldKey)
	if err != nil {
		return nil, NewBusinessError("FIELD_LOOKUP_FAILED", "Failed to lookup field", err)
	}
	if field == nil || !utils.IsTrue(field.IsActive) {
		return nil, NewBusinessError("FIELD_NOT_FOUND", "Field not found", ErrFieldNotFound)
	}

	valueType := models.FieldValueType(req.ValueType)
	if field.IsDatetime() && valueType != models.FieldValueTypeDatetime {
		events, err := s.eventRepo.ListActiveByRelativeTo(ctx, field.ID)
		if err != nil {
			return nil, NewBusinessError("FIELD_LOOKUP_FAILED", "Failed to check field usage", err)
		}
		if len(events) > 0 {
			return nil, NewBusinessError("FIELD_IN_USE", "Field anchors active campaign events", ErrFieldInUse)
		}
	}

	if err := s.fieldRepo.UpdateValueType(ctx, field.ID, valueType); err != nil {
		return nil, NewBusinessError("FIELD_UPDATE_FAILED", "Failed to update field type", err)
	}

	return &dto.UpdateFieldTypeResponse{Message: "Field type updated successfully"}, nil
}

// AddToGroup adds a contact to a group and schedules the contact against
// every event of the group's campaigns
func (s *ContactTriggerFlowImpl) AddToGroup(ctx context.Context, req *dto.GroupMembershipRequest) (*dto.GroupMembershipResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("MEMBERSHIP_VALIDATION_FAILED", "Membership validation failed", err)
	}

	group, contact, err := s.getGroupAndContact(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.contactRepo.AddToGroup(ctx, group.ID, contact.ID); err != nil {
		return nil, NewBusinessError("MEMBERSHIP_ADD_FAILED", "Failed to add contact to group", err)
	}

	events, err := s.groupEvents(ctx, group.ID)
	if err == nil {
		for _, event := range events {
			s.trigger.ScheduleContactEvent(event.ID, contact.ID)
		}
	}

	return &dto.GroupMembershipResponse{Message: "Contact added to group"}, nil
}

// RemoveFromGroup removes a contact from a group and discards the contact's
// pending fires of the group's campaigns
func (s *ContactTriggerFlowImpl) RemoveFromGroup(ctx context.Context, req *dto.GroupMembershipRequest) (*dto.GroupMembershipResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("MEMBERSHIP_VALIDATION_FAILED", "Membership validation failed", err)
	}

	group, contact, err := s.getGroupAndContact(ctx, req)
	if err != nil {
		return nil, err
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.contactRepo.RemoveFromGroup(txCtx, group.ID, contact.ID); err != nil {
			return err
		}

		events, err := s.groupEvents(txCtx, group.ID)
		if err != nil {
			return err
		}

		eventIDs := make([]uint, 0, len(events))
		for _, event := range events {
			eventIDs = append(eventIDs, event.ID)
		}

		_, err = s.fireRepo.DeletePendingForContact(txCtx, eventIDs, contact.ID)
		return err
	})
	if err != nil {
		return nil, NewBusinessError("MEMBERSHIP_REMOVE_FAILED", "Failed to remove contact from group", err)
	}

	return &dto.GroupMembershipResponse{Message: "Contact removed from group"}, nil
}

// DeleteGroup deactivates a contact group. Groups still referenced by an
// active campaign cannot be deleted.
func (s *ContactTriggerFlowImpl) DeleteGroup(ctx context.Context, req *dto.DeleteGroupRequest) (*dto.DeleteGroupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewBusinessError("GROUP_VALIDATION_FAILED", "Group validation failed", err)
	}

	group, err := s.contactRepo.GroupByUUID(ctx, req.GroupUUID)
	if err != nil {
		return nil, NewBusinessError("GROUP_LOOKUP_FAILED", "Failed to lookup group", err)
	}
	if group == nil || group.OrgID != req.OrgID {
		return nil, NewBusinessError("GROUP_NOT_FOUND", "Group not found", ErrGroupNotFound)
	}

	campaigns, err := s.campaignRepo.ListByGroup(ctx, group.ID, true)
	if err != nil {
		return nil, NewBusinessError("GROUP_LOOKUP_FAILED", "Failed to check group usage", err)
	}
	if len(campaigns) > 0 {
		return nil, NewBusinessError("GROUP_IN_USE", "Group is used by active campaigns", ErrGroupInUse)
	}

	if err := s.contactRepo.DeactivateGroup(ctx, group.ID); err != nil {
		return nil, NewBusinessError("GROUP_DELETE_FAILED", "Failed to delete group", err)
	}

	return &dto.DeleteGroupResponse{Message: "Group deleted successfully"}, nil
}

func (s *ContactTriggerFlowImpl) getContact(ctx context.Context, uuid string, orgID uint) (*models.Contact, error) {
	contact, err := s.contactRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, NewBusinessError("CONTACT_LOOKUP_FAILED", "Failed to lookup contact", err)
	}
	if contact == nil || contact.OrgID != orgID || !utils.IsTrue(contact.IsActive) {
		return nil, NewBusinessError("CONTACT_NOT_FOUND", "Contact not found", ErrContactNotFound)
	}
	return contact, nil
}

func (s *ContactTriggerFlowImpl) getGroupAndContact(ctx context.Context, req *dto.GroupMembershipRequest) (*models.ContactGroup, *models.Contact, error) {
	group, err := s.contactRepo.GroupByUUID(ctx, req.GroupUUID)
	if err != nil {
		return nil, nil, NewBusinessError("GROUP_LOOKUP_FAILED", "Failed to lookup group", err)
	}
	if group == nil || group.OrgID != req.OrgID {
		return nil, nil, NewBusinessError("GROUP_NOT_FOUND", "Group not found", ErrGroupNotFound)
	}

	contact, err := s.getContact(ctx, req.ContactUUID, req.OrgID)
	if err != nil {
		return nil, nil, err
	}

	return group, contact, nil
}

// groupEvents returns the active events of all active campaigns on the group
func (s *ContactTriggerFlowImpl) groupEvents(ctx context.Context, groupID uint) ([]*models.CampaignEvent, error) {
	campaigns, err := s.campaignRepo.ListByGroup(ctx, groupID, true)
	if err != nil {
		return nil, err
	}

	var events []*models.CampaignEvent
	for _, campaign := range campaigns {
		campaignEvents, err := s.eventRepo.ListActiveByCampaign(ctx, campaign.ID)
		if err != nil {
			return nil, err
		}
		events = append(events, campaignEvents...)
	}

	return events, nil
}
