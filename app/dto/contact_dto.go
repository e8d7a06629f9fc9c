package dto

import "time"

// SetFieldValueRequest represents the request to set a field value on a contact
type SetFieldValueRequest struct {
	OrgID         uint       `json:"-"`
	ContactUUID   string     `json:"-"`
	FieldKey      string     `json:"field_key" validate:"required,max=36"`
	TextValue     *string    `json:"text_value,omitempty"`
	DatetimeValue *time.Time `json:"datetime_value,omitempty"`
}

// SetFieldValueResponse represents the response to set a field value
type SetFieldValueResponse struct {
	Message string `json:"message"`
}

// UpdateFieldTypeRequest represents the request to change a field's value type
type UpdateFieldTypeRequest struct {
	OrgID     uint   `json:"-"`
	FieldKey  string `json:"field_key" validate:"required,max=36"`
	ValueType string `json:"value_type" validate:"required,oneof=T N D"`
}

// UpdateFieldTypeResponse represents the response to change a field's value type
type UpdateFieldTypeResponse struct {
	Message string `json:"message"`
}

// GroupMembershipRequest represents the request to add or remove a contact
// from a group
type GroupMembershipRequest struct {
	OrgID       uint   `json:"-"`
	GroupUUID   string `json:"group_uuid" validate:"required,uuid4"`
	ContactUUID string `json:"contact_uuid" validate:"required,uuid4"`
}

// GroupMembershipResponse represents the response to a membership change
type GroupMembershipResponse struct {
	Message string `json:"message"`
}

// DeleteGroupRequest represents the request to delete a contact group
type DeleteGroupRequest struct {
	OrgID     uint   `json:"-"`
	GroupUUID string `json:"-" validate:"required,uuid4"`
}

// DeleteGroupResponse represents the response to delete a contact group
type DeleteGroupResponse struct {
	Message string `json:"message"`
}
