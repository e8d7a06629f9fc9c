package tests

import (
	"fmt"
	"testing"
	"time"

	"github.com/ariacomm/campfire/app/dto"
	"github.com/ariacomm/campfire/app/services"
	businessflow "github.com/ariacomm/campfire/business_flow"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	testingutil "github.com/ariacomm/campfire/testing"
	"github.com/ariacomm/campfire/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventFlow(testDB *testingutil.TestDB, trigger businessflow.ScheduleTrigger, detacher businessflow.FlowStartDetacher) businessflow.CampaignEventFlow {
	return businessflow.NewCampaignEventFlow(
		repository.NewCampaignRepository(testDB.DB),
		repository.NewCampaignEventRepository(testDB.DB),
		repository.NewEventFireRepository(testDB.DB),
		repository.NewContactFieldRepository(testDB.DB),
		repository.NewFlowRepository(testDB.DB),
		repository.NewOrgRepository(testDB.DB),
		trigger,
		detacher,
		testDB.DB,
	)
}

func TestEventFlowCreateFlowEvent(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		flow := newEventFlow(testDB, trigger, nil)
		eventRepo := repository.NewCampaignEventRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")

		t.Run("Create", func(t *testing.T) {
			resp, err := flow.CreateFlowEvent(ctx, &dto.CreateFlowEventRequest{
				CampaignUUID: fx.Campaign.UUID.String(),
				OrgID:        fx.Org.ID,
				RelativeTo:   "joined_on",
				Offset:       3,
				Unit:         "D",
				DeliveryHour: 9,
				FlowUUID:     fx.Flow.UUID.String(),
				StartMode:    "S",
			})
			require.NoError(t, err)
			assert.Equal(t, "F", resp.Event.EventType)
			assert.Equal(t, "joined_on", resp.Event.RelativeTo)
			assert.Equal(t, fx.Flow.UUID.String(), resp.Event.FlowUUID)
			assert.Equal(t, 9, resp.Event.DeliveryHour)

			created, err := eventRepo.ByUUID(ctx, resp.Event.UUID)
			require.NoError(t, err)
			require.NotNil(t, created)
			assert.Equal(t, []uint{created.ID}, trigger.events)
		})

		t.Run("NonDatetimeFieldRejected", func(t *testing.T) {
			textField := &models.ContactField{
				OrgID:     fx.Org.ID,
				Key:       "nickname",
				Label:     "Nickname",
				ValueType: models.FieldValueTypeText,
				IsActive:  utils.ToPtr(true),
			}
			require.NoError(t, testDB.DB.Create(textField).Error)

			_, err := flow.CreateFlowEvent(ctx, &dto.CreateFlowEventRequest{
				CampaignUUID: fx.Campaign.UUID.String(),
				OrgID:        fx.Org.ID,
				RelativeTo:   "nickname",
				Offset:       1,
				Unit:         "D",
				DeliveryHour: models.DeliveryHourSame,
				FlowUUID:     fx.Flow.UUID.String(),
				StartMode:    "I",
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsFieldNotDatetime(err))
		})

		t.Run("UnknownFlowRejected", func(t *testing.T) {
			_, err := flow.CreateFlowEvent(ctx, &dto.CreateFlowEventRequest{
				CampaignUUID: fx.Campaign.UUID.String(),
				OrgID:        fx.Org.ID,
				RelativeTo:   "joined_on",
				Offset:       1,
				Unit:         "D",
				DeliveryHour: models.DeliveryHourSame,
				FlowUUID:     "11111111-2222-4333-8444-555555555555",
				StartMode:    "I",
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsFlowNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestEventFlowCreateMessageEvent(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		flow := newEventFlow(testDB, trigger, nil)
		flowRepo := repository.NewFlowRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")

		t.Run("SynthesizesSystemFlow", func(t *testing.T) {
			resp, err := flow.CreateMessageEvent(ctx, &dto.CreateMessageEventRequest{
				CampaignUUID: fx.Campaign.UUID.String(),
				OrgID:        fx.Org.ID,
				RelativeTo:   "joined_on",
				Offset:       1,
				Unit:         "W",
				DeliveryHour: 13,
				Messages:     map[string]string{"eng": "Welcome aboard!", "fra": "Bienvenue!"},
				BaseLanguage: "eng",
				StartMode:    "P",
			})
			require.NoError(t, err)
			assert.Equal(t, "M", resp.Event.EventType)

			synthesized, err := flowRepo.ByUUID(ctx, resp.Event.FlowUUID)
			require.NoError(t, err)
			require.NotNil(t, synthesized)
			assert.True(t, utils.IsTrue(synthesized.IsSystem))
			assert.Equal(t, fmt.Sprintf("Single Message (%s)", fx.Campaign.Name), synthesized.Name)
			assert.Equal(t, "Welcome aboard!", synthesized.Definition.Messages["eng"])
			assert.Equal(t, "eng", synthesized.Definition.BaseLanguage)
			assert.ElementsMatch(t, []string{"eng", "fra"}, []string(synthesized.Languages))
		})

		t.Run("BaseLanguageDefaultsFromOrg", func(t *testing.T) {
			resp, err := flow.CreateMessageEvent(ctx, &dto.CreateMessageEventRequest{
				CampaignUUID: fx.Campaign.UUID.String(),
				OrgID:        fx.Org.ID,
				RelativeTo:   "joined_on",
				Offset:       2,
				Unit:         "D",
				DeliveryHour: models.DeliveryHourSame,
				Messages:     map[string]string{utils.BaseLanguage: "See you soon"},
				StartMode:    "I",
			})
			require.NoError(t, err)

			synthesized, err := flowRepo.ByUUID(ctx, resp.Event.FlowUUID)
			require.NoError(t, err)
			require.NotNil(t, synthesized)
			assert.Equal(t, fx.Org.MessageLanguage(), synthesized.Definition.BaseLanguage)
		})

		t.Run("BaseLanguageMustBeTranslated", func(t *testing.T) {
			_, err := flow.CreateMessageEvent(ctx, &dto.CreateMessageEventRequest{
				CampaignUUID: fx.Campaign.UUID.String(),
				OrgID:        fx.Org.ID,
				RelativeTo:   "joined_on",
				Offset:       1,
				Unit:         "D",
				DeliveryHour: models.DeliveryHourSame,
				Messages:     map[string]string{"fra": "Bienvenue!"},
				BaseLanguage: "eng",
				StartMode:    "I",
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsBaseLanguageMissing(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestEventFlowUpdateEvent(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		flow := newEventFlow(testDB, trigger, nil)
		eventRepo := repository.NewCampaignEventRepository(testDB.DB)
		fireRepo := repository.NewEventFireRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")

		require.NoError(t, fireRepo.UpsertPending(ctx, fx.Event.ID, fx.Contact.ID, utils.UTCNow().Add(time.Hour)))

		offset := 5
		hour := 16
		resp, err := flow.UpdateEvent(ctx, &dto.UpdateEventRequest{
			UUID:         fx.Event.UUID.String(),
			OrgID:        fx.Org.ID,
			Offset:       &offset,
			DeliveryHour: &hour,
		})
		require.NoError(t, err)
		assert.NotEqual(t, fx.Event.UUID.String(), resp.Event.UUID)
		assert.Equal(t, 5, resp.Event.Offset)
		assert.Equal(t, 16, resp.Event.DeliveryHour)

		// The old row is deactivated, never mutated
		old, err := eventRepo.ByID(ctx, fx.Event.ID)
		require.NoError(t, err)
		assert.False(t, utils.IsTrue(old.IsActive))
		assert.Equal(t, 2, old.Offset)

		// Its pending fires are gone; the replacement is rescheduled
		pending := utils.ToPtr(true)
		count, err := fireRepo.Count(ctx, models.EventFireFilter{EventID: &fx.Event.ID, Pending: pending})
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		replacement, err := eventRepo.ByUUID(ctx, resp.Event.UUID)
		require.NoError(t, err)
		require.NotNil(t, replacement)
		assert.Equal(t, []uint{replacement.ID}, trigger.events)

		// Updating the old UUID again fails: the row is inactive
		_, err = flow.UpdateEvent(ctx, &dto.UpdateEventRequest{
			UUID:   fx.Event.UUID.String(),
			OrgID:  fx.Org.ID,
			Offset: &offset,
		})
		require.Error(t, err)
		assert.True(t, businessflow.IsEventNotFound(err))

		return nil
	})
	require.NoError(t, err)
}

func TestEventFlowUpdateMessageEvent(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		flow := newEventFlow(testDB, trigger, nil)
		flowRepo := repository.NewFlowRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")

		created, err := flow.CreateMessageEvent(ctx, &dto.CreateMessageEventRequest{
			CampaignUUID: fx.Campaign.UUID.String(),
			OrgID:        fx.Org.ID,
			RelativeTo:   "joined_on",
			Offset:       1,
			Unit:         "D",
			DeliveryHour: models.DeliveryHourSame,
			Messages:     map[string]string{"eng": "Original text"},
			BaseLanguage: "eng",
			StartMode:    "I",
		})
		require.NoError(t, err)

		messages := map[string]string{"eng": "Revised text"}
		updated, err := flow.UpdateEvent(ctx, &dto.UpdateEventRequest{
			UUID:     created.Event.UUID,
			OrgID:    fx.Org.ID,
			Messages: &messages,
		})
		require.NoError(t, err)

		// The replacement keeps the same synthesized flow with the new text
		assert.Equal(t, created.Event.FlowUUID, updated.Event.FlowUUID)
		synthesized, err := flowRepo.ByUUID(ctx, created.Event.FlowUUID)
		require.NoError(t, err)
		assert.Equal(t, "Revised text", synthesized.Definition.Messages["eng"])

		// Dropping the base language translation is rejected
		badMessages := map[string]string{"fra": "Texte"}
		_, err = flow.UpdateEvent(ctx, &dto.UpdateEventRequest{
			UUID:     updated.Event.UUID,
			OrgID:    fx.Org.ID,
			Messages: &badMessages,
		})
		require.Error(t, err)
		assert.True(t, businessflow.IsBaseLanguageMissing(err))

		return nil
	})
	require.NoError(t, err)
}

func TestEventFlowDeleteEvent(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		trigger := newRecordingTrigger()
		detacher := services.NewMockFlowEngineService()
		flow := newEventFlow(testDB, trigger, detacher)
		eventRepo := repository.NewCampaignEventRepository(testDB.DB)
		fireRepo := repository.NewEventFireRepository(testDB.DB)
		flowRepo := repository.NewFlowRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")

		t.Run("FlowEventKeepsFlow", func(t *testing.T) {
			require.NoError(t, fireRepo.UpsertPending(ctx, fx.Event.ID, fx.Contact.ID, utils.UTCNow().Add(time.Hour)))

			_, err := flow.DeleteEvent(ctx, &dto.DeleteEventRequest{
				UUID:  fx.Event.UUID.String(),
				OrgID: fx.Org.ID,
			})
			require.NoError(t, err)

			event, err := eventRepo.ByID(ctx, fx.Event.ID)
			require.NoError(t, err)
			assert.False(t, utils.IsTrue(event.IsActive))

			pending := utils.ToPtr(true)
			count, err := fireRepo.Count(ctx, models.EventFireFilter{EventID: &fx.Event.ID, Pending: pending})
			require.NoError(t, err)
			assert.Equal(t, int64(0), count)

			// A user flow outlives its events
			userFlow, err := flowRepo.ByID(ctx, fx.Flow.ID)
			require.NoError(t, err)
			assert.True(t, utils.IsTrue(userFlow.IsActive))

			// Queued starts for the event were withdrawn
			assert.Equal(t, []uint{fx.Event.ID}, detacher.DetachedEvents)
		})

		t.Run("MessageEventReleasesFlow", func(t *testing.T) {
			created, err := flow.CreateMessageEvent(ctx, &dto.CreateMessageEventRequest{
				CampaignUUID: fx.Campaign.UUID.String(),
				OrgID:        fx.Org.ID,
				RelativeTo:   "joined_on",
				Offset:       1,
				Unit:         "H",
				DeliveryHour: models.DeliveryHourSame,
				Messages:     map[string]string{"eng": "Reminder"},
				BaseLanguage: "eng",
				StartMode:    "I",
			})
			require.NoError(t, err)

			_, err = flow.DeleteEvent(ctx, &dto.DeleteEventRequest{
				UUID:  created.Event.UUID,
				OrgID: fx.Org.ID,
			})
			require.NoError(t, err)

			synthesized, err := flowRepo.ByUUID(ctx, created.Event.FlowUUID)
			require.NoError(t, err)
			require.NotNil(t, synthesized)
			assert.False(t, utils.IsTrue(synthesized.IsActive))
		})

		return nil
	})
	require.NoError(t, err)
}
