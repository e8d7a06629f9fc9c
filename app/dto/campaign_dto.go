package dto

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	OrgID     uint   `json:"-"`
	Name      string `json:"name" validate:"required,max=255"`
	GroupUUID string `json:"group_uuid" validate:"required,uuid4"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// UpdateCampaignRequest represents the request to update an existing campaign.
// Only name and group are mutable; events are replaced, never edited.
type UpdateCampaignRequest struct {
	UUID      string  `json:"-"`
	OrgID     uint    `json:"-"`
	Name      *string `json:"name,omitempty" validate:"omitempty,max=255"`
	GroupUUID *string `json:"group_uuid,omitempty" validate:"omitempty,uuid4"`
}

// UpdateCampaignResponse represents the response to update an existing campaign
type UpdateCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// ArchiveCampaignRequest represents the request to archive or restore a campaign
type ArchiveCampaignRequest struct {
	UUID  string `json:"-"`
	OrgID uint   `json:"-"`
}

// ArchiveCampaignResponse represents the response to archive or restore a campaign
type ArchiveCampaignResponse struct {
	Message string `json:"message"`
}

// DeleteCampaignRequest represents the request to delete a campaign
type DeleteCampaignRequest struct {
	UUID  string `json:"-"`
	OrgID uint   `json:"-"`
}

// DeleteCampaignResponse represents the response to delete a campaign
type DeleteCampaignResponse struct {
	Message string `json:"message"`
}

// ListCampaignsRequest represents the request to list campaigns of an org
type ListCampaignsRequest struct {
	OrgID           uint `json:"-"`
	IncludeArchived bool `json:"include_archived"`
	Page            int  `json:"page" validate:"omitempty,min=1"`
	PageSize        int  `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListCampaignsResponse represents the response to list campaigns
type ListCampaignsResponse struct {
	Campaigns []CampaignDTO `json:"campaigns"`
	Total     int64         `json:"total"`
}

// CampaignDTO represents a campaign in responses
type CampaignDTO struct {
	UUID       string             `json:"uuid"`
	Name       string             `json:"name"`
	GroupUUID  string             `json:"group_uuid,omitempty"`
	IsArchived bool               `json:"is_archived"`
	CreatedAt  string             `json:"created_at"`
	Events     []CampaignEventDTO `json:"events,omitempty"`
}
