package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/repository"
	"github.com/ariacomm/campfire/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFireRepo serves a fixed batch of due fires and records claims
type fakeFireRepo struct {
	repository.EventFireRepository

	due      []*models.EventFire
	claims   map[uint]models.FireResult
	conflict map[uint]bool
	served   bool
}

func newFakeFireRepo(due ...*models.EventFire) *fakeFireRepo {
	return &fakeFireRepo{
		due:      due,
		claims:   make(map[uint]models.FireResult),
		conflict: make(map[uint]bool),
	}
}

func (f *fakeFireRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.EventFire, error) {
	if f.served {
		return nil, nil
	}
	f.served = true
	return f.due, nil
}

func (f *fakeFireRepo) Claim(ctx context.Context, fireID uint, fired time.Time, result models.FireResult) (bool, error) {
	if f.conflict[fireID] {
		return false, nil
	}
	f.claims[fireID] = result
	return true, nil
}

// fakeStarter records flow starts
type fakeStarter struct {
	starts []uint
	err    error
}

func (s *fakeStarter) StartFlow(ctx context.Context, contactID, flowID uint, mode models.StartMode) error {
	s.starts = append(s.starts, contactID)
	return s.err
}

func liveFire(id, contactID uint) *models.EventFire {
	return &models.EventFire{
		ID:        id,
		EventID:   1,
		ContactID: contactID,
		Scheduled: utils.UTCNow().Add(-time.Minute),
		Event: &models.CampaignEvent{
			ID:        1,
			FlowID:    7,
			StartMode: models.StartModeInterrupt,
			IsActive:  utils.ToPtr(true),
			Campaign: &models.Campaign{
				ID:         1,
				IsActive:   utils.ToPtr(true),
				IsArchived: utils.ToPtr(false),
			},
			Flow: &models.Flow{
				ID:       7,
				IsActive: utils.ToPtr(true),
			},
		},
	}
}

func TestRunDueFiresStartsLiveFires(t *testing.T) {
	repo := newFakeFireRepo(liveFire(1, 10), liveFire(2, 11))
	starter := &fakeStarter{}
	executor := NewFireExecutor(repo, starter, nil, time.Minute)

	executor.RunDueFires(context.Background())

	require.Len(t, repo.claims, 2)
	assert.Equal(t, models.FireResultFired, repo.claims[1])
	assert.Equal(t, models.FireResultFired, repo.claims[2])
	assert.Equal(t, []uint{10, 11}, starter.starts)
}

func TestRunDueFiresSkipsDeadEventChain(t *testing.T) {
	inactiveEvent := liveFire(1, 10)
	inactiveEvent.Event.IsActive = utils.ToPtr(false)

	archivedCampaign := liveFire(2, 11)
	archivedCampaign.Event.Campaign.IsArchived = utils.ToPtr(true)

	deadFlow := liveFire(3, 12)
	deadFlow.Event.Flow.IsActive = utils.ToPtr(false)

	repo := newFakeFireRepo(inactiveEvent, archivedCampaign, deadFlow)
	starter := &fakeStarter{}
	executor := NewFireExecutor(repo, starter, nil, time.Minute)

	executor.RunDueFires(context.Background())

	// All three are claimed as skipped and never reach the flow engine
	require.Len(t, repo.claims, 3)
	for id := uint(1); id <= 3; id++ {
		assert.Equal(t, models.FireResultSkipped, repo.claims[id])
	}
	assert.Empty(t, starter.starts)
}

func TestRunDueFiresClaimConflict(t *testing.T) {
	repo := newFakeFireRepo(liveFire(1, 10))
	repo.conflict[1] = true
	starter := &fakeStarter{}
	executor := NewFireExecutor(repo, starter, nil, time.Minute)

	executor.RunDueFires(context.Background())

	// Lost the claim race: no start, no record
	assert.Empty(t, repo.claims)
	assert.Empty(t, starter.starts)
}

// degradedFireRepo keeps serving the same full batch and fails every claim
type degradedFireRepo struct {
	repository.EventFireRepository

	batch []*models.EventFire
	lists int
}

func (f *degradedFireRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.EventFire, error) {
	f.lists++
	return f.batch, nil
}

func (f *degradedFireRepo) Claim(ctx context.Context, fireID uint, fired time.Time, result models.FireResult) (bool, error) {
	return false, errors.New("connection reset")
}

func TestRunDueFiresStopsWhenClaimsKeepFailing(t *testing.T) {
	fires := make([]*models.EventFire, utils.ExecutorBatchSize)
	for i := range fires {
		fires[i] = liveFire(uint(i+1), uint(1000+i))
	}
	repo := &degradedFireRepo{batch: fires}
	starter := &fakeStarter{}
	executor := NewFireExecutor(repo, starter, nil, time.Minute)

	executor.RunDueFires(context.Background())

	// A degraded store would otherwise re-list the identical batch forever
	// within one invocation; the pass yields until the next tick instead
	assert.Equal(t, 1, repo.lists)
	assert.Empty(t, starter.starts)
}

func TestRunDueFiresStarterFailureDoesNotUnclaim(t *testing.T) {
	repo := newFakeFireRepo(liveFire(1, 10))
	starter := &fakeStarter{err: errors.New("engine unavailable")}
	executor := NewFireExecutor(repo, starter, nil, time.Minute)

	executor.RunDueFires(context.Background())

	// The claim stands even though the downstream call failed
	assert.Equal(t, models.FireResultFired, repo.claims[1])
	assert.Equal(t, []uint{10}, starter.starts)
}
