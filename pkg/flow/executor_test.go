package flow_test

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/leadflow/pkg/actions"
	"github.com/dukex/leadflow/pkg/conditions"
	"github.com/dukex/leadflow/pkg/flow"
	"github.com/dukex/leadflow/pkg/mocks"
	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/dukex/leadflow/pkg/persistence/file"
	"github.com/dukex/leadflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

type harness struct {
	store    persistence.Persistence
	channel  *mocks.MockDispatchChannel
	clock    *testClock
	executor *flow.Executor
	runner   *flow.Runner
}

func newHarness(t *testing.T, maxSteps int) *harness {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	channel := &mocks.MockDispatchChannel{}
	clock := &testClock{now: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)}
	logger := slog.Default()

	leads := store.LeadRepository()
	executor := flow.NewExecutor(
		store.FlowRepository(),
		store.ExecutionRepository(),
		leads,
		conditions.NewEvaluator(leads, logger),
		actions.NewExecutor(leads, channel, logger, actions.WithClock(clock.Now)),
		logger,
		flow.WithClock(clock.Now),
	)

	return &harness{
		store:    store,
		channel:  channel,
		clock:    clock,
		executor: executor,
		runner:   flow.NewRunner(executor, maxSteps, logger),
	}
}

func (h *harness) seed(t *testing.T, f *models.Flow, leads ...*models.Lead) {
	t.Helper()

	require.NoError(t, h.store.FlowRepository().Save(t.Context(), f))

	for _, lead := range leads {
		require.NoError(t, h.store.LeadRepository().SaveLead(t.Context(), lead))
	}
}

func TestStart(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.QualifiedOutreachFlow("flow-1"), lead)

	execution, err := h.executor.Start(t.Context(), "flow-1", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, execution.Status)
	assert.Equal(t, "start", execution.CurrentNodeID)
	assert.NotEmpty(t, execution.ID)

	stored, err := h.store.ExecutionRepository().GetByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.CurrentNodeID, stored.CurrentNodeID)
}

func TestStart_WithoutTrigger(t *testing.T) {
	h := newHarness(t, 0)
	h.seed(t, testutil.NewFlow("no-trigger").End("done").Build())

	_, err := h.executor.Start(t.Context(), "no-trigger", "lead-1")
	require.ErrorIs(t, err, flow.ErrNoTrigger)

	_, err = h.executor.Start(t.Context(), "missing", "lead-1")
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestStep_TriggerAdvancesOneNode(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.QualifiedOutreachFlow("flow-1"), lead)

	started, err := h.executor.Start(t.Context(), "flow-1", lead.ID)
	require.NoError(t, err)

	execution, err := h.executor.Step(t.Context(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	assert.Equal(t, "is-qualified", execution.CurrentNodeID)
}

func TestStep_WaitParksThenResumesExactlyOneNode(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.NewFlow("wait-flow").
		Trigger("start").
		Wait("pause", map[string]any{"wait_type": "delay", "value": 2, "unit": "hours"}).
		Action("note", map[string]any{"action_type": "append_note", "text": "resumed"}).
		End("done").
		Edge("start", "pause").
		Edge("pause", "note").
		Edge("note", "done").
		Build(), lead)

	start := h.clock.Now()

	execution, err := h.runner.StartAndDrive(t.Context(), "wait-flow", lead.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	assert.Equal(t, "pause", execution.CurrentNodeID)
	require.NotNil(t, execution.ResumeAt)
	assert.Equal(t, start.Add(2*time.Hour), *execution.ResumeAt)

	// Before resumeAt: no-op.
	h.clock.Set(start.Add(time.Hour))

	execution, err = h.executor.Step(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	assert.Equal(t, "pause", execution.CurrentNodeID)

	// At resumeAt: exactly one node.
	h.clock.Set(start.Add(2 * time.Hour))

	execution, err = h.executor.Step(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	assert.Equal(t, "note", execution.CurrentNodeID)
	assert.Nil(t, execution.ResumeAt)

	notes, err := h.store.LeadRepository().Notes(t.Context(), lead.ID)
	require.NoError(t, err)
	assert.Empty(t, notes, "the node after the wait must not run in the resume step")

	execution, err = h.runner.Drive(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.NotNil(t, execution.CompletedAt)

	notes, err = h.store.LeadRepository().Notes(t.Context(), lead.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestStep_WaitWithBadConfigFails(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.NewFlow("bad-wait").
		Trigger("start").
		Wait("pause", map[string]any{"wait_type": "delay", "unit": "fortnights", "value": 1}).
		Edge("start", "pause").
		Build(), lead)

	execution, err := h.runner.StartAndDrive(t.Context(), "bad-wait", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.LastError, "node pause")
	assert.Contains(t, execution.LastError, "unit")
}

func TestStep_ConditionFollowsMatchingBranch(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected string
	}{
		{"true follows yes", 90, "hot"},
		{"false follows no", 10, "cold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			lead := testutil.CreateTestLead(testutil.WithField("score", tt.score))
			h.seed(t, testutil.NewFlow("branchy").
				Trigger("start").
				Condition("check", map[string]any{"field": "score", "operator": "greater_than", "value": 50}).
				End("hot").
				End("cold").
				Edge("start", "check").
				No("check", "cold").
				Yes("check", "hot").
				Build(), lead)

			started, err := h.executor.Start(t.Context(), "branchy", lead.ID)
			require.NoError(t, err)

			_, err = h.executor.Step(t.Context(), started.ID)
			require.NoError(t, err)

			execution, err := h.executor.Step(t.Context(), started.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, execution.CurrentNodeID)
			assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
		})
	}
}

func TestStep_MissingBranchFails(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead(testutil.WithStage("new"))
	h.seed(t, testutil.NewFlow("half").
		Trigger("start").
		Condition("check", map[string]any{"stage_id": "qualified", "operator": "equals"}).
		End("done").
		Edge("start", "check").
		Yes("check", "done").
		Build(), lead)

	execution, err := h.runner.StartAndDrive(t.Context(), "half", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.LastError, "stalled: no branch for result")
	assert.Contains(t, execution.LastError, `"no"`)
	assert.Equal(t, "check", execution.CurrentNodeID)
}

func TestStep_ActionConfigurationErrorFails(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.NewFlow("bad-action").
		Trigger("start").
		Action("tag", map[string]any{"action_type": "apply_tag"}).
		Edge("start", "tag").
		Build(), lead)

	execution, err := h.runner.StartAndDrive(t.Context(), "bad-action", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.LastError, "node tag")
	assert.Contains(t, execution.LastError, "tag_id")
}

func TestStep_DispatchFailureIsRecorded(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead(testutil.WithStage("qualified"))
	h.seed(t, testutil.QualifiedOutreachFlow("flow-1"), lead)

	h.channel.On("Send", mock.Anything, "whatsapp", lead.Phone, mock.Anything).
		Return(models.NewTransportError("dispatch", errors.New("connection refused")))

	execution, err := h.runner.StartAndDrive(t.Context(), "flow-1", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "send", execution.CurrentNodeID)
	assert.Contains(t, execution.LastError, "connection refused")

	// Terminal: never resumed again.
	again, err := h.executor.Step(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.LastError, again.LastError)
	h.channel.AssertNumberOfCalls(t, "Send", 1)
}

func TestStep_NodeNotFoundFails(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.QualifiedOutreachFlow("flow-1"), lead)

	require.NoError(t, h.store.ExecutionRepository().Save(t.Context(), &models.ExecutionInstance{
		ID:            "exec-ghost",
		FlowID:        "flow-1",
		LeadID:        lead.ID,
		CurrentNodeID: "deleted-node",
		Status:        models.ExecutionStatusRunning,
	}))

	execution, err := h.executor.Step(t.Context(), "exec-ghost")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.LastError, "node not found")
}

func TestStep_LeadNotFoundFails(t *testing.T) {
	h := newHarness(t, 0)
	h.seed(t, testutil.QualifiedOutreachFlow("flow-1"))

	execution, err := h.runner.StartAndDrive(t.Context(), "flow-1", "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "lead not found", execution.LastError)
}

func TestStep_NodeWithoutOutgoingEdgeCompletes(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.NewFlow("open-ended").
		Trigger("start").
		Action("tag", map[string]any{"action_type": "apply_tag", "tag_id": "seen"}).
		Edge("start", "tag").
		Build(), lead)

	execution, err := h.runner.StartAndDrive(t.Context(), "open-ended", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	has, err := h.store.LeadRepository().HasTag(t.Context(), lead.ID, "seen")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCancel(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.NewFlow("wait-flow").
		Trigger("start").
		Wait("pause", map[string]any{"wait_type": "until_field", "field": "replied_at"}).
		End("done").
		Edge("start", "pause").
		Edge("pause", "done").
		Build(), lead)

	execution, err := h.runner.StartAndDrive(t.Context(), "wait-flow", lead.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	assert.Equal(t, h.clock.Now().Add(time.Hour), *execution.ResumeAt)

	cancelled, err := h.executor.Cancel(t.Context(), execution.ID, "lead opted out")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, cancelled.Status)
	assert.Equal(t, "cancelled: lead opted out", cancelled.LastError)

	// Resuming after cancellation re-checks status and does nothing.
	h.clock.Set(h.clock.Now().Add(2 * time.Hour))

	after, err := h.executor.Step(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, after.Status)
	assert.Equal(t, "pause", after.CurrentNodeID)

	_, err = h.executor.Cancel(t.Context(), execution.ID, "again")
	assert.ErrorIs(t, err, flow.ErrExecutionTerminal)
}

func TestFail(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.NewFlow("wait-flow").
		Trigger("start").
		Wait("pause", map[string]any{"wait_type": "until_field", "field": "replied_at"}).
		End("done").
		Edge("start", "pause").
		Edge("pause", "done").
		Build(), lead)

	execution, err := h.runner.StartAndDrive(t.Context(), "wait-flow", lead.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusWaiting, execution.Status)

	failed, err := h.executor.Fail(t.Context(), execution.ID, "registry rejected number")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, failed.Status)
	assert.Equal(t, "registry rejected number", failed.LastError)

	stored, err := h.store.ExecutionRepository().GetByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	assert.Equal(t, "registry rejected number", stored.LastError)

	again, err := h.executor.Fail(t.Context(), execution.ID, "second reason")
	require.ErrorIs(t, err, flow.ErrExecutionTerminal)
	assert.Equal(t, "registry rejected number", again.LastError)
}

func TestFail_LoadErrorIsReturned(t *testing.T) {
	executions := &mocks.MockExecutionRepository{}
	executions.On("GetByID", mock.Anything, "exec-1").Return(nil, errors.New("database is down"))

	executor := flow.NewExecutor(&mocks.MockFlowRepository{}, executions, &mocks.MockLeadRepository{}, nil, nil, slog.Default())

	execution, err := executor.Fail(t.Context(), "exec-1", "stuck")
	require.Error(t, err)
	assert.Nil(t, execution)
	assert.Contains(t, err.Error(), "database is down")
	executions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestStep_LoadErrorIsReturned(t *testing.T) {
	executions := &mocks.MockExecutionRepository{}
	executions.On("GetByID", mock.Anything, "exec-1").Return(nil, errors.New("database is down"))

	executor := flow.NewExecutor(&mocks.MockFlowRepository{}, executions, &mocks.MockLeadRepository{}, nil, nil, slog.Default())

	execution, err := executor.Step(t.Context(), "exec-1")
	require.Error(t, err)
	assert.Nil(t, execution)
	assert.Contains(t, err.Error(), "database is down")
}

func TestEndToEnd_QualifiedLeadGetsExactlyOneDispatch(t *testing.T) {
	h := newHarness(t, 0)
	qualified := testutil.CreateTestLead(testutil.WithLeadID("lead-q"), testutil.WithStage("qualified"))
	qualified.Name = "Ana Lima"
	h.seed(t, testutil.QualifiedOutreachFlow("outreach"), qualified)

	h.channel.On("Send", mock.Anything, "whatsapp", qualified.Phone, "Olá Ana, tudo bem?").Return(nil).Once()

	execution, err := h.runner.StartAndDrive(t.Context(), "outreach", qualified.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Empty(t, execution.LastError)

	h.channel.AssertExpectations(t)
	h.channel.AssertNumberOfCalls(t, "Send", 1)
}

func TestEndToEnd_UnqualifiedLeadGetsNoDispatch(t *testing.T) {
	h := newHarness(t, 0)
	lead := testutil.CreateTestLead(testutil.WithLeadID("lead-u"), testutil.WithStage("contacted"))
	h.seed(t, testutil.QualifiedOutreachFlow("outreach"), lead)

	execution, err := h.runner.StartAndDrive(t.Context(), "outreach", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	h.channel.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_StepLimitFailsExecution(t *testing.T) {
	h := newHarness(t, 5)
	lead := testutil.CreateTestLead()
	h.seed(t, testutil.NewFlow("loop").
		Trigger("start").
		Action("bump", map[string]any{"action_type": "update_field", "field": "touched", "value": true}).
		Edge("start", "bump").
		Edge("bump", "bump").
		Build(), lead)

	execution, err := h.runner.StartAndDrive(t.Context(), "loop", lead.ID)
	require.ErrorIs(t, err, flow.ErrStepLimit)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "step limit exceeded: 5", execution.LastError)

	stored, err := h.store.ExecutionRepository().GetByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
}
