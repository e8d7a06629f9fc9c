// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Org-related errors
	ErrOrgNotFound = errors.New("org not found")
	ErrOrgInactive = errors.New("org is inactive")
	ErrOrgMismatch = errors.New("entity belongs to another org")

	// Campaign-related errors
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrCampaignNameTaken    = errors.New("campaign name already in use")
	ErrCampaignNameRequired = errors.New("campaign name is required")
	ErrCampaignUUIDRequired = errors.New("campaign UUID is required")
	ErrCampaignArchived     = errors.New("campaign is archived")
	ErrCampaignUpdateEmpty  = errors.New("at least one field must be provided for update")

	// Group-related errors
	ErrGroupNotFound = errors.New("contact group not found")
	ErrGroupInUse    = errors.New("contact group is used by active campaigns")

	// Event-related errors
	ErrEventNotFound       = errors.New("campaign event not found")
	ErrEventInactive       = errors.New("campaign event is inactive")
	ErrFieldNotFound       = errors.New("contact field not found")
	ErrFieldNotDatetime    = errors.New("relative-to field must hold datetimes")
	ErrFieldInUse          = errors.New("contact field is used by campaign events")
	ErrFlowNotFound        = errors.New("flow not found")
	ErrMessagesRequired    = errors.New("at least one message translation is required")
	ErrBaseLanguageMissing = errors.New("messages must include the base language")

	// Contact-related errors
	ErrContactNotFound = errors.New("contact not found")

	// Lock errors
	ErrLockBusy = errors.New("another worker holds the lock")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsOrgNotFound(err error) bool {
	return errors.Is(err, ErrOrgNotFound)
}

func IsOrgInactive(err error) bool {
	return errors.Is(err, ErrOrgInactive)
}

func IsOrgMismatch(err error) bool {
	return errors.Is(err, ErrOrgMismatch)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignNameTaken(err error) bool {
	return errors.Is(err, ErrCampaignNameTaken)
}

func IsCampaignNameRequired(err error) bool {
	return errors.Is(err, ErrCampaignNameRequired)
}

func IsCampaignUUIDRequired(err error) bool {
	return errors.Is(err, ErrCampaignUUIDRequired)
}

func IsCampaignArchived(err error) bool {
	return errors.Is(err, ErrCampaignArchived)
}

func IsCampaignUpdateEmpty(err error) bool {
	return errors.Is(err, ErrCampaignUpdateEmpty)
}

func IsGroupNotFound(err error) bool {
	return errors.Is(err, ErrGroupNotFound)
}

func IsGroupInUse(err error) bool {
	return errors.Is(err, ErrGroupInUse)
}

func IsEventNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}

func IsEventInactive(err error) bool {
	return errors.Is(err, ErrEventInactive)
}

func IsFieldNotFound(err error) bool {
	return errors.Is(err, ErrFieldNotFound)
}

func IsFieldNotDatetime(err error) bool {
	return errors.Is(err, ErrFieldNotDatetime)
}

func IsFieldInUse(err error) bool {
	return errors.Is(err, ErrFieldInUse)
}

func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

func IsMessagesRequired(err error) bool {
	return errors.Is(err, ErrMessagesRequired)
}

func IsBaseLanguageMissing(err error) bool {
	return errors.Is(err, ErrBaseLanguageMissing)
}

func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}

func IsLockBusy(err error) bool {
	return errors.Is(err, ErrLockBusy)
}
