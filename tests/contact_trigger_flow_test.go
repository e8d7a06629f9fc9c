package tests

import (
	"testing"
	"time"

	"github.com/ariacomm/campfire/app/dto"
	businessflow "github.com/ariacomm/campfire/business_flow"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	testingutil "github.com/ariacomm/campfire/testing"
	"github.com/ariacomm/campfire/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContactTriggerFlow(testDB *testingutil.TestDB, trigger businessflow.ScheduleTrigger) businessflow.ContactTriggerFlow {
	return businessflow.NewContactTriggerFlow(
		repository.NewContactRepository(testDB.DB),
		repository.NewContactFieldRepository(testDB.DB),
		repository.NewCampaignEventRepository(testDB.DB),
		repository.NewCampaignRepository(testDB.DB),
		repository.NewEventFireRepository(testDB.DB),
		trigger,
		testDB.DB,
	)
}

func TestContactTriggerSetFieldValue(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		flow := newContactTriggerFlow(testDB, trigger)
		fieldRepo := repository.NewContactFieldRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")

		t.Run("DatetimeWriteSchedulesAnchoredEvents", func(t *testing.T) {
			value := utils.UTCNow().Add(24 * time.Hour)
			_, err := flow.SetFieldValue(ctx, &dto.SetFieldValueRequest{
				OrgID:         fx.Org.ID,
				ContactUUID:   fx.Contact.UUID.String(),
				FieldKey:      "joined_on",
				DatetimeValue: &value,
			})
			require.NoError(t, err)

			stored, err := fieldRepo.DatetimeValue(ctx, fx.Contact.ID, fx.Field.ID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.WithinDuration(t, value, *stored, time.Second)

			assert.Equal(t, []uint{fx.Contact.ID}, trigger.contacts[fx.Event.ID])
		})

		t.Run("TextWriteDoesNotSchedule", func(t *testing.T) {
			textField := &models.ContactField{
				OrgID:     fx.Org.ID,
				Key:       "nickname",
				Label:     "Nickname",
				ValueType: models.FieldValueTypeText,
				IsActive:  utils.ToPtr(true),
			}
			require.NoError(t, testDB.DB.Create(textField).Error)

			before := len(trigger.contacts[fx.Event.ID])
			text := "Ari"
			_, err := flow.SetFieldValue(ctx, &dto.SetFieldValueRequest{
				OrgID:       fx.Org.ID,
				ContactUUID: fx.Contact.UUID.String(),
				FieldKey:    "nickname",
				TextValue:   &text,
			})
			require.NoError(t, err)
			assert.Len(t, trigger.contacts[fx.Event.ID], before)
		})

		t.Run("UnknownFieldRejected", func(t *testing.T) {
			value := utils.UTCNow()
			_, err := flow.SetFieldValue(ctx, &dto.SetFieldValueRequest{
				OrgID:         fx.Org.ID,
				ContactUUID:   fx.Contact.UUID.String(),
				FieldKey:      "no_such_field",
				DatetimeValue: &value,
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsFieldNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestContactTriggerUpdateFieldType(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		flow := newContactTriggerFlow(testDB, trigger)
		eventRepo := repository.NewCampaignEventRepository(testDB.DB)
		fieldRepo := repository.NewContactFieldRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")

		t.Run("AnchoredFieldCannotLeaveDatetime", func(t *testing.T) {
			_, err := flow.UpdateFieldType(ctx, &dto.UpdateFieldTypeRequest{
				OrgID:     fx.Org.ID,
				FieldKey:  "joined_on",
				ValueType: "T",
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsFieldInUse(err))
		})

		t.Run("FreeFieldCanChange", func(t *testing.T) {
			require.NoError(t, eventRepo.Deactivate(ctx, fx.Event.ID))

			_, err := flow.UpdateFieldType(ctx, &dto.UpdateFieldTypeRequest{
				OrgID:     fx.Org.ID,
				FieldKey:  "joined_on",
				ValueType: "T",
			})
			require.NoError(t, err)

			field, err := fieldRepo.ByKey(ctx, fx.Org.ID, "joined_on")
			require.NoError(t, err)
			assert.Equal(t, models.FieldValueTypeText, field.ValueType)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestContactTriggerGroupMembership(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		flow := newContactTriggerFlow(testDB, trigger)
		contactRepo := repository.NewContactRepository(testDB.DB)
		fireRepo := repository.NewEventFireRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")
		fixtures := testingutil.NewTestFixtures(testDB)

		newcomer, err := fixtures.CreateTestContact(fx.Org.ID)
		require.NoError(t, err)

		t.Run("AddSchedulesGroupEvents", func(t *testing.T) {
			_, err := flow.AddToGroup(ctx, &dto.GroupMembershipRequest{
				OrgID:       fx.Org.ID,
				GroupUUID:   fx.Group.UUID.String(),
				ContactUUID: newcomer.UUID.String(),
			})
			require.NoError(t, err)

			member, err := contactRepo.IsMember(ctx, fx.Group.ID, newcomer.ID)
			require.NoError(t, err)
			assert.True(t, member)
			assert.Equal(t, []uint{newcomer.ID}, trigger.contacts[fx.Event.ID])
		})

		t.Run("RemoveDiscardsPendingFires", func(t *testing.T) {
			require.NoError(t, fireRepo.UpsertPending(ctx, fx.Event.ID, newcomer.ID, utils.UTCNow().Add(time.Hour)))

			_, err := flow.RemoveFromGroup(ctx, &dto.GroupMembershipRequest{
				OrgID:       fx.Org.ID,
				GroupUUID:   fx.Group.UUID.String(),
				ContactUUID: newcomer.UUID.String(),
			})
			require.NoError(t, err)

			member, err := contactRepo.IsMember(ctx, fx.Group.ID, newcomer.ID)
			require.NoError(t, err)
			assert.False(t, member)

			pending := utils.ToPtr(true)
			count, err := fireRepo.Count(ctx, models.EventFireFilter{
				EventID:   &fx.Event.ID,
				ContactID: &newcomer.ID,
				Pending:   pending,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestContactTriggerDeleteGroup(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		flow := newContactTriggerFlow(testDB, trigger)
		campaignRepo := repository.NewCampaignRepository(testDB.DB)
		contactRepo := repository.NewContactRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")

		t.Run("GroupWithActiveCampaignRejected", func(t *testing.T) {
			_, err := flow.DeleteGroup(ctx, &dto.DeleteGroupRequest{
				OrgID:     fx.Org.ID,
				GroupUUID: fx.Group.UUID.String(),
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsGroupInUse(err))
		})

		t.Run("FreeGroupIsDeactivated", func(t *testing.T) {
			require.NoError(t, campaignRepo.Deactivate(ctx, fx.Campaign.ID))

			_, err := flow.DeleteGroup(ctx, &dto.DeleteGroupRequest{
				OrgID:     fx.Org.ID,
				GroupUUID: fx.Group.UUID.String(),
			})
			require.NoError(t, err)

			group, err := contactRepo.GroupByID(ctx, fx.Group.ID)
			require.NoError(t, err)
			require.NotNil(t, group)
			assert.False(t, utils.IsTrue(group.IsActive))
		})

		return nil
	})
	require.NoError(t, err)
}
