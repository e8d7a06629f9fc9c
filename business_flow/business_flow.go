// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ariacomm/campfire/app/dto"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
)

// ScheduleTrigger is how flows hand scheduling work to the fire engine.
// Implementations enqueue the work and return immediately; materialization
// happens on background workers.
type ScheduleTrigger interface {
	// ScheduleEvent recomputes fires of the event for every contact in the
	// campaign's group.
	ScheduleEvent(eventID uint)
	// ScheduleContactEvent recomputes the fire of the event for one contact.
	ScheduleContactEvent(eventID, contactID uint)
}

// NoopScheduleTrigger discards scheduling work. Useful in tests that only
// exercise lifecycle logic.
type NoopScheduleTrigger struct{}

func (NoopScheduleTrigger) ScheduleEvent(eventID uint)                   {}
func (NoopScheduleTrigger) ScheduleContactEvent(eventID, contactID uint) {}

// FlowStartDetacher tells the flow-execution engine to forget queued starts
// referencing a released event
type FlowStartDetacher interface {
	DetachStartsForEvent(ctx context.Context, eventID uint) error
}

// NoopStartDetacher is for deployments without a flow engine connection
type NoopStartDetacher struct{}

func (NoopStartDetacher) DetachStartsForEvent(ctx context.Context, eventID uint) error { return nil }

// UniqueCampaignName probes name, "name 2", "name 3" and so on until a name
// unused in the org is found
func UniqueCampaignName(ctx context.Context, campaignRepo repository.CampaignRepository, orgID uint, name string) (string, error) {
	candidate := name
	for i := 2; ; i++ {
		existing, err := campaignRepo.ByNameInOrg(ctx, orgID, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s %d", name, i)
	}
}

func getOrg(ctx context.Context, orgRepo repository.OrgRepository, orgID uint) (*models.Org, error) {
	org, err := orgRepo.ByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrOrgNotFound
	}
	if org.IsActive != nil && !*org.IsActive {
		return nil, ErrOrgInactive
	}
	return org, nil
}

func getCampaign(ctx context.Context, campaignRepo repository.CampaignRepository, uuid string, orgID uint) (*models.Campaign, error) {
	if uuid == "" {
		return nil, ErrCampaignUUIDRequired
	}

	campaign, err := campaignRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if campaign == nil || campaign.IsActive == nil || !*campaign.IsActive {
		return nil, ErrCampaignNotFound
	}
	if campaign.OrgID != orgID {
		return nil, ErrOrgMismatch
	}

	return campaign, nil
}

// ToCampaignDTO converts a campaign model to its response representation
func ToCampaignDTO(campaign *models.Campaign, groupUUID string, events []*models.CampaignEvent) dto.CampaignDTO {
	out := dto.CampaignDTO{
		UUID:       campaign.UUID.String(),
		Name:       campaign.Name,
		GroupUUID:  groupUUID,
		IsArchived: campaign.IsArchived != nil && *campaign.IsArchived,
		CreatedAt:  campaign.CreatedAt.Format(time.RFC3339),
	}

	for _, event := range events {
		out.Events = append(out.Events, ToCampaignEventDTO(event))
	}

	return out
}

// ToCampaignEventDTO converts a campaign event model to its response representation
func ToCampaignEventDTO(event *models.CampaignEvent) dto.CampaignEventDTO {
	out := dto.CampaignEventDTO{
		UUID:         event.UUID.String(),
		EventType:    event.EventType.String(),
		Offset:       event.Offset,
		Unit:         event.Unit.String(),
		DeliveryHour: event.DeliveryHour,
		StartMode:    event.StartMode.String(),
		CreatedAt:    event.CreatedAt.Format(time.RFC3339),
	}

	if event.RelativeTo != nil {
		out.RelativeTo = event.RelativeTo.Key
	}
	if event.Flow != nil {
		out.FlowUUID = event.Flow.UUID.String()
	}

	return out
}
