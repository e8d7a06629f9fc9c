package dto

// CreateFlowEventRequest represents the request to add a flow event to a campaign
type CreateFlowEventRequest struct {
	CampaignUUID string `json:"-"`
	OrgID        uint   `json:"-"`
	RelativeTo   string `json:"relative_to" validate:"required,max=36"`
	Offset       int    `json:"offset"`
	Unit         string `json:"unit" validate:"required,oneof=M H D W"`
	DeliveryHour int    `json:"delivery_hour" validate:"min=-1,max=23"`
	FlowUUID     string `json:"flow_uuid" validate:"required,uuid4"`
	StartMode    string `json:"start_mode" validate:"required,oneof=I S P"`
}

// CreateMessageEventRequest represents the request to add a message event to
// a campaign. A single-message system flow is synthesized behind the event.
type CreateMessageEventRequest struct {
	CampaignUUID string            `json:"-"`
	OrgID        uint              `json:"-"`
	RelativeTo   string            `json:"relative_to" validate:"required,max=36"`
	Offset       int               `json:"offset"`
	Unit         string            `json:"unit" validate:"required,oneof=M H D W"`
	DeliveryHour int               `json:"delivery_hour" validate:"min=-1,max=23"`
	Messages     map[string]string `json:"messages" validate:"required,min=1"`
	BaseLanguage string            `json:"base_language" validate:"omitempty,max=8"`
	StartMode    string            `json:"start_mode" validate:"required,oneof=I S P"`
}

// CreateEventResponse represents the response to add an event
type CreateEventResponse struct {
	Message string           `json:"message"`
	Event   CampaignEventDTO `json:"event"`
}

// UpdateEventRequest represents the request to replace an existing event.
// The old row is deactivated and a new one inserted in its place.
type UpdateEventRequest struct {
	UUID         string             `json:"-"`
	OrgID        uint               `json:"-"`
	RelativeTo   *string            `json:"relative_to,omitempty" validate:"omitempty,max=36"`
	Offset       *int               `json:"offset,omitempty"`
	Unit         *string            `json:"unit,omitempty" validate:"omitempty,oneof=M H D W"`
	DeliveryHour *int               `json:"delivery_hour,omitempty" validate:"omitempty,min=-1,max=23"`
	FlowUUID     *string            `json:"flow_uuid,omitempty" validate:"omitempty,uuid4"`
	Messages     *map[string]string `json:"messages,omitempty"`
	BaseLanguage *string            `json:"base_language,omitempty" validate:"omitempty,max=8"`
	StartMode    *string            `json:"start_mode,omitempty" validate:"omitempty,oneof=I S P"`
}

// UpdateEventResponse represents the response to replace an event
type UpdateEventResponse struct {
	Message string           `json:"message"`
	Event   CampaignEventDTO `json:"event"`
}

// DeleteEventRequest represents the request to remove an event from its campaign
type DeleteEventRequest struct {
	UUID  string `json:"-"`
	OrgID uint   `json:"-"`
}

// DeleteEventResponse represents the response to remove an event
type DeleteEventResponse struct {
	Message string `json:"message"`
}

// CampaignEventDTO represents a campaign event in responses
type CampaignEventDTO struct {
	UUID         string `json:"uuid"`
	EventType    string `json:"event_type"`
	RelativeTo   string `json:"relative_to"`
	Offset       int    `json:"offset"`
	Unit         string `json:"unit"`
	DeliveryHour int    `json:"delivery_hour"`
	FlowUUID     string `json:"flow_uuid"`
	StartMode    string `json:"start_mode"`
	CreatedAt    string `json:"created_at"`
}
