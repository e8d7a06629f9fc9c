package tests

import (
	"strconv"
	"testing"
	"time"

	"github.com/ariacomm/campfire/app/scheduler"
	"github.com/ariacomm/campfire/app/services"
	businessflow "github.com/ariacomm/campfire/business_flow"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	testingutil "github.com/ariacomm/campfire/testing"
	"github.com/ariacomm/campfire/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFireScheduler(testDB *testingutil.TestDB, locker businessflow.EventLocker) *scheduler.FireScheduler {
	return scheduler.NewFireScheduler(
		repository.NewCampaignEventRepository(testDB.DB),
		repository.NewCampaignRepository(testDB.DB),
		repository.NewContactRepository(testDB.DB),
		repository.NewContactFieldRepository(testDB.DB),
		repository.NewEventFireRepository(testDB.DB),
		repository.NewOrgRepository(testDB.DB),
		locker,
		nil,
	)
}

func TestFireSchedulerMaterializeEvent(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		locker := businessflow.NewMemoryEventLocker()
		sched := newFireScheduler(testDB, locker)
		fireRepo := repository.NewEventFireRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")
		fixtures := testingutil.NewTestFixtures(testDB)

		// Three group members: one with a future anchor value, one with a
		// value already in the past, one with no value at all
		value := utils.UTCNow().Add(24 * time.Hour)
		require.NoError(t, fixtures.SetTestFieldValue(fx.Contact.ID, fx.Field.ID, value))

		pastContact, err := fixtures.CreateTestContact(fx.Org.ID)
		require.NoError(t, err)
		require.NoError(t, fixtures.AddTestMember(fx.Group.ID, pastContact.ID))
		require.NoError(t, fixtures.SetTestFieldValue(pastContact.ID, fx.Field.ID, utils.UTCNow().Add(-30*24*time.Hour)))

		emptyContact, err := fixtures.CreateTestContact(fx.Org.ID)
		require.NoError(t, err)
		require.NoError(t, fixtures.AddTestMember(fx.Group.ID, emptyContact.ID))

		t.Run("OnlyFutureValuesMaterialize", func(t *testing.T) {
			require.NoError(t, sched.MaterializeEvent(ctx, fx.Event.ID))

			fires, err := fireRepo.ByFilter(ctx, models.EventFireFilter{EventID: &fx.Event.ID}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, fires, 1)
			assert.Equal(t, fx.Contact.ID, fires[0].ContactID)

			expected := scheduler.ComputeScheduledTime(fx.Event, time.UTC, value)
			assert.Equal(t, expected.Unix(), fires[0].Scheduled.Unix())
		})

		t.Run("FullPassReplacesStalePending", func(t *testing.T) {
			stale := utils.UTCNow().Add(100 * 24 * time.Hour)
			require.NoError(t, fireRepo.UpsertPending(ctx, fx.Event.ID, fx.Contact.ID, stale))

			require.NoError(t, sched.MaterializeEvent(ctx, fx.Event.ID))

			fires, err := fireRepo.ByFilter(ctx, models.EventFireFilter{EventID: &fx.Event.ID}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, fires, 1)

			expected := scheduler.ComputeScheduledTime(fx.Event, time.UTC, value)
			assert.Equal(t, expected.Unix(), fires[0].Scheduled.Unix())
		})

		t.Run("RepeatedPassIsIdempotent", func(t *testing.T) {
			require.NoError(t, sched.MaterializeEvent(ctx, fx.Event.ID))
			before, err := fireRepo.ByFilter(ctx, models.EventFireFilter{EventID: &fx.Event.ID}, "id ASC", 0, 0)
			require.NoError(t, err)

			require.NoError(t, sched.MaterializeEvent(ctx, fx.Event.ID))
			after, err := fireRepo.ByFilter(ctx, models.EventFireFilter{EventID: &fx.Event.ID}, "id ASC", 0, 0)
			require.NoError(t, err)

			require.Len(t, after, len(before))
			for i := range before {
				assert.Equal(t, before[i].ID, after[i].ID)
				assert.Equal(t, before[i].Scheduled.Unix(), after[i].Scheduled.Unix())
			}
		})

		t.Run("DueBacklogSurvivesFullPass", func(t *testing.T) {
			// The anchor value passed while the executor was behind: its fire
			// is due but unfired, and a full pass must leave it for the
			// executor instead of erasing the backlog
			anchor := utils.UTCNow().Add(-3 * 24 * time.Hour)
			require.NoError(t, testDB.DB.Model(&models.ContactFieldValue{}).
				Where("contact_id = ? AND field_id = ?", fx.Contact.ID, fx.Field.ID).
				Update("datetime_value", anchor).Error)

			due := scheduler.ComputeScheduledTime(fx.Event, time.UTC, anchor)
			require.True(t, due.Before(utils.UTCNow()))
			require.NoError(t, fireRepo.UpsertPending(ctx, fx.Event.ID, fx.Contact.ID, due))

			require.NoError(t, sched.MaterializeEvent(ctx, fx.Event.ID))

			pending := utils.ToPtr(true)
			fires, err := fireRepo.ByFilter(ctx, models.EventFireFilter{
				EventID:   &fx.Event.ID,
				ContactID: &fx.Contact.ID,
				Pending:   pending,
			}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, fires, 1)
			assert.Equal(t, due.Unix(), fires[0].Scheduled.Unix())
		})

		t.Run("ConcurrentPassYields", func(t *testing.T) {
			lockKey := strconv.FormatUint(uint64(fx.Event.ID), 10)
			ok, err := locker.Acquire(ctx, lockKey, time.Minute)
			require.NoError(t, err)
			require.True(t, ok)
			defer func() {
				require.NoError(t, locker.Release(ctx, lockKey))
			}()

			err = sched.MaterializeEvent(ctx, fx.Event.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsLockBusy(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFireSchedulerMaterializeContact(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		sched := newFireScheduler(testDB, businessflow.NewMemoryEventLocker())
		fireRepo := repository.NewEventFireRepository(testDB.DB)
		contactRepo := repository.NewContactRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")
		fixtures := testingutil.NewTestFixtures(testDB)

		value := utils.UTCNow().Add(48 * time.Hour)
		require.NoError(t, fixtures.SetTestFieldValue(fx.Contact.ID, fx.Field.ID, value))

		pending := utils.ToPtr(true)
		pendingCount := func() int64 {
			count, err := fireRepo.Count(ctx, models.EventFireFilter{
				EventID:   &fx.Event.ID,
				ContactID: &fx.Contact.ID,
				Pending:   pending,
			})
			require.NoError(t, err)
			return count
		}

		t.Run("MemberWithFutureValueGetsFire", func(t *testing.T) {
			require.NoError(t, sched.MaterializeContact(ctx, fx.Event.ID, fx.Contact.ID))
			assert.Equal(t, int64(1), pendingCount())
		})

		t.Run("LeavingGroupRemovesFire", func(t *testing.T) {
			require.NoError(t, contactRepo.RemoveFromGroup(ctx, fx.Group.ID, fx.Contact.ID))
			require.NoError(t, sched.MaterializeContact(ctx, fx.Event.ID, fx.Contact.ID))
			assert.Equal(t, int64(0), pendingCount())

			require.NoError(t, contactRepo.AddToGroup(ctx, fx.Group.ID, fx.Contact.ID))
		})

		t.Run("PastValueRemovesFire", func(t *testing.T) {
			require.NoError(t, sched.MaterializeContact(ctx, fx.Event.ID, fx.Contact.ID))
			require.Equal(t, int64(1), pendingCount())

			past := utils.UTCNow().Add(-30 * 24 * time.Hour)
			require.NoError(t, testDB.DB.Model(&models.ContactFieldValue{}).
				Where("contact_id = ? AND field_id = ?", fx.Contact.ID, fx.Field.ID).
				Update("datetime_value", past).Error)

			require.NoError(t, sched.MaterializeContact(ctx, fx.Event.ID, fx.Contact.ID))
			assert.Equal(t, int64(0), pendingCount())
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFireExecutorAgainstDatabase(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fireRepo := repository.NewEventFireRepository(testDB.DB)
		eventRepo := repository.NewCampaignEventRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")
		fixtures := testingutil.NewTestFixtures(testDB)

		engine := services.NewMockFlowEngineService()
		executor := scheduler.NewFireExecutor(fireRepo, engine, nil, time.Minute)

		t.Run("DueFireStartsFlow", func(t *testing.T) {
			fire, err := fixtures.CreateTestFire(fx.Event.ID, fx.Contact.ID, utils.UTCNow().Add(-time.Minute))
			require.NoError(t, err)

			executor.RunDueFires(ctx)

			handled, err := fireRepo.ByID(ctx, fire.ID)
			require.NoError(t, err)
			require.NotNil(t, handled.Fired)
			require.NotNil(t, handled.FireResult)
			assert.Equal(t, models.FireResultFired, *handled.FireResult)

			require.Len(t, engine.StartedFlows, 1)
			assert.Equal(t, fx.Contact.ID, engine.StartedFlows[0].ContactID)
			assert.Equal(t, fx.Flow.ID, engine.StartedFlows[0].FlowID)
			assert.Equal(t, models.StartModeInterrupt, engine.StartedFlows[0].Mode)
		})

		t.Run("DeadEventIsSkippedNotStarted", func(t *testing.T) {
			fire, err := fixtures.CreateTestFire(fx.Event.ID, fx.Contact.ID, utils.UTCNow().Add(-time.Minute))
			require.NoError(t, err)
			require.NoError(t, eventRepo.Deactivate(ctx, fx.Event.ID))

			executor.RunDueFires(ctx)

			handled, err := fireRepo.ByID(ctx, fire.ID)
			require.NoError(t, err)
			require.NotNil(t, handled.FireResult)
			assert.Equal(t, models.FireResultSkipped, *handled.FireResult)
			assert.Len(t, engine.StartedFlows, 1)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTrimWorkerAgainstDatabase(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fireRepo := repository.NewEventFireRepository(testDB.DB)
		eventRepo := repository.NewCampaignEventRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		fx := setupEngineFixture(t, testDB, "UTC")
		fixtures := testingutil.NewTestFixtures(testDB)

		retention := 90 * 24 * time.Hour
		worker := scheduler.NewTrimWorker(fireRepo, businessflow.NewMemoryEventLocker(), nil, time.Hour, retention)

		// A recently handled fire is still inside the retention window
		recent, err := fixtures.CreateTestFire(fx.Event.ID, fx.Contact.ID, utils.UTCNow().Add(-time.Hour))
		require.NoError(t, err)
		claimed, err := fireRepo.Claim(ctx, recent.ID, utils.UTCNow(), models.FireResultFired)
		require.NoError(t, err)
		require.True(t, claimed)

		// A handled fire older than the retention window must go
		expired, err := fixtures.CreateTestFire(fx.Event.ID, fx.Contact.ID, utils.UTCNow().Add(-200*24*time.Hour))
		require.NoError(t, err)
		claimed, err = fireRepo.Claim(ctx, expired.ID, utils.UTCNow(), models.FireResultFired)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, testDB.DB.Model(&models.EventFire{}).
			Where("id = ?", expired.ID).
			Update("fired", utils.UTCNow().Add(-200*24*time.Hour)).Error)

		// A live pending fire on the active event must survive the trim. It
		// goes in last so only one unfired row per pair ever exists.
		keeper, err := fixtures.CreateTestFire(fx.Event.ID, fx.Contact.ID, utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		// A pending fire on a deactivated event is orphaned
		deadEvent, err := fixtures.CreateTestFlowEvent(fx.Campaign.ID, fx.Field.ID, fx.Flow.ID, 1, models.OffsetUnitDay, models.DeliveryHourSame)
		require.NoError(t, err)
		orphan, err := fixtures.CreateTestFire(deadEvent.ID, fx.Contact.ID, utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, eventRepo.Deactivate(ctx, deadEvent.ID))

		require.NoError(t, worker.TrimEventFires(ctx))

		surviving, err := fireRepo.ByFilter(ctx, models.EventFireFilter{}, "id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, surviving, 2)
		assert.Equal(t, recent.ID, surviving[0].ID)
		assert.Equal(t, keeper.ID, surviving[1].ID)

		for _, gone := range []uint{expired.ID, orphan.ID} {
			fire, err := fireRepo.ByID(ctx, gone)
			require.NoError(t, err)
			assert.Nil(t, fire)
		}

		return nil
	})
	require.NoError(t, err)
}
