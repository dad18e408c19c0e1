package poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/leadflow/pkg/claim"
	"github.com/dukex/leadflow/pkg/events"
	"github.com/dukex/leadflow/pkg/mocks"
	"github.com/dukex/leadflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDriver struct {
	mock.Mock
}

func (m *mockDriver) Drive(ctx context.Context, executionID string) (*models.ExecutionInstance, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionInstance), args.Error(1)
}

type mockFirer struct {
	mock.Mock
}

func (m *mockFirer) Fire(ctx context.Context, campaign *models.RecurringCampaign) error {
	args := m.Called(ctx, campaign)

	return args.Error(0)
}

var testNow = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

func newTestPoller(t *testing.T, config Config) *Poller {
	t.Helper()

	p, err := New(config, slog.Default())
	require.NoError(t, err)

	p.now = func() time.Time { return testNow }

	return p
}

func TestNew_RejectsInvalidSchedule(t *testing.T) {
	_, err := New(Config{Schedule: "every now and then"}, slog.Default())
	assert.Error(t, err)

	p, err := New(Config{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, p.config.Schedule)
}

func TestSweepExecutions_DrivesAndPublishesOutcome(t *testing.T) {
	executions := &mocks.MockExecutionRepository{}
	driver := &mockDriver{}
	bus := &mocks.MockEventBus{}

	executions.On("DueExecutions", mock.Anything, testNow).Return([]*models.ExecutionInstance{
		{ID: "exec-1"}, {ID: "exec-2"},
	}, nil)

	driver.On("Drive", mock.Anything, "exec-1").Return(&models.ExecutionInstance{
		ID: "exec-1", FlowID: "flow-1", Status: models.ExecutionStatusCompleted,
	}, nil)
	driver.On("Drive", mock.Anything, "exec-2").Return(&models.ExecutionInstance{
		ID: "exec-2", FlowID: "flow-1", Status: models.ExecutionStatusFailed, LastError: "node not found: x",
	}, nil)

	bus.On("Publish", mock.Anything, "exec-1", mock.MatchedBy(func(e events.ExecutionCompleted) bool {
		return e.ExecutionID == "exec-1"
	})).Return(nil)
	bus.On("Publish", mock.Anything, "exec-2", mock.MatchedBy(func(e events.ExecutionFailed) bool {
		return e.Error == "node not found: x"
	})).Return(nil)

	p := newTestPoller(t, Config{
		Executions: executions,
		Driver:     driver,
		Claimer:    claim.NewMemoryClaimer(),
		Publisher:  bus,
	})

	driven, err := p.SweepExecutions(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, driven)
	driver.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestSweepExecutions_SkipsClaimedExecutions(t *testing.T) {
	executions := &mocks.MockExecutionRepository{}
	driver := &mockDriver{}
	claimer := claim.NewMemoryClaimer()

	executions.On("DueExecutions", mock.Anything, testNow).Return([]*models.ExecutionInstance{{ID: "exec-1"}}, nil)

	_, err := claimer.Acquire(t.Context(), claim.ExecutionKey("exec-1"), time.Minute)
	require.NoError(t, err)

	p := newTestPoller(t, Config{Executions: executions, Driver: driver, Claimer: claimer})

	driven, err := p.SweepExecutions(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 0, driven)
	driver.AssertNotCalled(t, "Drive", mock.Anything, mock.Anything)
}

func TestSweepExecutions_ReleasesClaimAfterDriveError(t *testing.T) {
	executions := &mocks.MockExecutionRepository{}
	driver := &mockDriver{}
	claimer := claim.NewMemoryClaimer()

	executions.On("DueExecutions", mock.Anything, testNow).Return([]*models.ExecutionInstance{{ID: "exec-1"}}, nil)
	driver.On("Drive", mock.Anything, "exec-1").Return(nil, errors.New("storage unavailable"))

	p := newTestPoller(t, Config{Executions: executions, Driver: driver, Claimer: claimer})

	driven, err := p.SweepExecutions(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, driven)

	_, err = claimer.Acquire(t.Context(), claim.ExecutionKey("exec-1"), time.Minute)
	assert.NoError(t, err)
}

func TestSweepExecutions_ListError(t *testing.T) {
	executions := &mocks.MockExecutionRepository{}
	executions.On("DueExecutions", mock.Anything, testNow).Return(nil, errors.New("db down"))

	p := newTestPoller(t, Config{Executions: executions, Driver: &mockDriver{}, Claimer: claim.NewMemoryClaimer()})

	_, err := p.SweepExecutions(t.Context())
	assert.ErrorContains(t, err, "db down")
}

func TestSweepCampaigns_FiresDueCampaigns(t *testing.T) {
	campaigns := &mocks.MockCampaignRepository{}
	firer := &mockFirer{}

	due := []*models.RecurringCampaign{{ID: "c1"}, {ID: "c2"}}
	campaigns.On("DueCampaigns", mock.Anything, testNow).Return(due, nil)
	firer.On("Fire", mock.Anything, due[0]).Return(nil)
	firer.On("Fire", mock.Anything, due[1]).Return(errors.New("publish failed"))

	p := newTestPoller(t, Config{Campaigns: campaigns, Firer: firer, Claimer: claim.NewMemoryClaimer()})

	fired, err := p.SweepCampaigns(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, fired)
	firer.AssertExpectations(t)
}

func TestStartStop(t *testing.T) {
	p := newTestPoller(t, Config{Schedule: "@every 1h", Claimer: claim.NewMemoryClaimer()})

	require.NoError(t, p.Start(t.Context()))
	require.NoError(t, p.Start(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Stop(ctx))
}
