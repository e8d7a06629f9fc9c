// Package testing provides test utilities and database setup for testing the fire engine
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"
	"github.com/lib/pq"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestOrg creates a test org in the given timezone
func (tf *TestFixtures) CreateTestOrg(timezone string) (*models.Org, error) {
	if timezone == "" {
		timezone = "UTC"
	}

	org := &models.Org{
		Name:     fmt.Sprintf("Test Org %d", rand.Intn(100000)),
		Timezone: timezone,
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(org).Error; err != nil {
		return nil, fmt.Errorf("failed to create test org: %w", err)
	}

	return org, nil
}

// CreateTestContact creates a test contact in the org
func (tf *TestFixtures) CreateTestContact(orgID uint) (*models.Contact, error) {
	contact := &models.Contact{
		OrgID:    orgID,
		Name:     fmt.Sprintf("Test Contact %d", rand.Intn(100000)),
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}

	return contact, nil
}

// CreateTestGroup creates a test contact group in the org
func (tf *TestFixtures) CreateTestGroup(orgID uint) (*models.ContactGroup, error) {
	group := &models.ContactGroup{
		OrgID:    orgID,
		Name:     fmt.Sprintf("Test Group %d", rand.Intn(100000)),
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(group).Error; err != nil {
		return nil, fmt.Errorf("failed to create test group: %w", err)
	}

	return group, nil
}

// AddTestMember puts a contact into a group
func (tf *TestFixtures) AddTestMember(groupID, contactID uint) error {
	member := &models.ContactGroupMember{
		GroupID:   groupID,
		ContactID: contactID,
	}

	if err := tf.DB.DB.Create(member).Error; err != nil {
		return fmt.Errorf("failed to create test group member: %w", err)
	}

	return nil
}

// CreateTestDatetimeField creates a datetime contact field in the org
func (tf *TestFixtures) CreateTestDatetimeField(orgID uint, key string) (*models.ContactField, error) {
	field := &models.ContactField{
		OrgID:     orgID,
		Key:       key,
		Label:     key,
		ValueType: models.FieldValueTypeDatetime,
		IsActive:  utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(field).Error; err != nil {
		return nil, fmt.Errorf("failed to create test field: %w", err)
	}

	return field, nil
}

// SetTestFieldValue writes a datetime value for a contact field
func (tf *TestFixtures) SetTestFieldValue(contactID, fieldID uint, value time.Time) error {
	fv := &models.ContactFieldValue{
		ContactID:     contactID,
		FieldID:       fieldID,
		DatetimeValue: &value,
		UpdatedAt:     utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(fv).Error; err != nil {
		return fmt.Errorf("failed to create test field value: %w", err)
	}

	return nil
}

// CreateTestFlow creates a runnable test flow in the org
func (tf *TestFixtures) CreateTestFlow(orgID uint) (*models.Flow, error) {
	flow := &models.Flow{
		OrgID:     orgID,
		Name:      fmt.Sprintf("Test Flow %d", rand.Intn(100000)),
		Languages: pq.StringArray{"eng"},
		IsSystem:  utils.ToPtr(false),
		IsActive:  utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(flow).Error; err != nil {
		return nil, fmt.Errorf("failed to create test flow: %w", err)
	}

	return flow, nil
}

// CreateTestCampaign creates a test campaign on the group
func (tf *TestFixtures) CreateTestCampaign(orgID, groupID uint) (*models.Campaign, error) {
	campaign := &models.Campaign{
		OrgID:      orgID,
		Name:       fmt.Sprintf("Test Campaign %d", rand.Intn(100000)),
		GroupID:    groupID,
		IsArchived: utils.ToPtr(false),
		IsActive:   utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	return campaign, nil
}

// CreateTestFlowEvent creates an active flow event on the campaign
func (tf *TestFixtures) CreateTestFlowEvent(campaignID, fieldID, flowID uint, offset int, unit models.OffsetUnit, deliveryHour int) (*models.CampaignEvent, error) {
	event := &models.CampaignEvent{
		CampaignID:   campaignID,
		EventType:    models.EventTypeFlow,
		RelativeToID: fieldID,
		Offset:       offset,
		Unit:         unit,
		DeliveryHour: deliveryHour,
		FlowID:       flowID,
		StartMode:    models.StartModeInterrupt,
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test event: %w", err)
	}

	return event, nil
}

// CreateTestFire inserts a pending fire row
func (tf *TestFixtures) CreateTestFire(eventID, contactID uint, scheduled time.Time) (*models.EventFire, error) {
	fire := &models.EventFire{
		EventID:   eventID,
		ContactID: contactID,
		Scheduled: scheduled,
	}

	if err := tf.DB.DB.Create(fire).Error; err != nil {
		return nil, fmt.Errorf("failed to create test fire: %w", err)
	}

	return fire, nil
}
