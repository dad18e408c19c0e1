package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionInstance_Lifecycle(t *testing.T) {
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	execution := &ExecutionInstance{ID: "exec-1", Status: ExecutionStatusPending, CurrentNodeID: "start"}

	execution.MoveTo("pause", now)
	assert.Equal(t, ExecutionStatusRunning, execution.Status)
	assert.Equal(t, "pause", execution.CurrentNodeID)
	assert.False(t, execution.IsDue(now))

	execution.Park(now.Add(time.Hour), now)
	assert.Equal(t, ExecutionStatusWaiting, execution.Status)
	assert.False(t, execution.IsDue(now.Add(59*time.Minute)))
	assert.True(t, execution.IsDue(now.Add(time.Hour)))

	execution.Fail("boom", now.Add(2*time.Hour))
	assert.True(t, execution.Status.IsTerminal())
	assert.Equal(t, "boom", execution.LastError)
	assert.Nil(t, execution.ResumeAt)
	require.NotNil(t, execution.CompletedAt)
	assert.False(t, execution.IsDue(now.Add(3*time.Hour)))
}

func TestRecurringCampaign_IsDue(t *testing.T) {
	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&RecurringCampaign{Active: true, NextRunAt: &past}).IsDue(now))
	assert.True(t, (&RecurringCampaign{Active: true, NextRunAt: &now}).IsDue(now))
	assert.False(t, (&RecurringCampaign{Active: true, NextRunAt: &future}).IsDue(now))
	assert.False(t, (&RecurringCampaign{Active: false, NextRunAt: &past}).IsDue(now))
	assert.False(t, (&RecurringCampaign{Active: true}).IsDue(now))
}

func TestFlow_Adjacency(t *testing.T) {
	flow := &Flow{
		Nodes: []*FlowNode{
			{ID: "start", Type: NodeTypeTrigger},
			{ID: "check", Type: NodeTypeCondition},
			{ID: "send", Type: NodeTypeAction},
			{ID: "done", Type: NodeTypeEnd},
		},
		Edges: []*FlowEdge{
			{Source: "start", Target: "check"},
			{Source: "check", Target: "send", Branch: BranchYes},
			{Source: "check", Target: "done", Branch: BranchNo},
			{Source: "send", Target: "done"},
		},
	}

	trigger, ok := flow.TriggerNode()
	require.True(t, ok)
	assert.Equal(t, "start", trigger.ID)

	next, ok := flow.NextNodeID("start")
	assert.True(t, ok)
	assert.Equal(t, "check", next)

	target, ok := flow.BranchTarget("check", BranchFor(true))
	assert.True(t, ok)
	assert.Equal(t, "send", target)

	target, ok = flow.BranchTarget("check", BranchFor(false))
	assert.True(t, ok)
	assert.Equal(t, "done", target)

	assert.Len(t, flow.OutgoingEdges("check"), 2)

	_, ok = flow.NextNodeID("done")
	assert.False(t, ok)

	_, ok = flow.Node("missing")
	assert.False(t, ok)
}

func TestLead_Fields(t *testing.T) {
	lead := &Lead{ID: "lead-1", Name: "Ana"}

	lead.SetField("stage_id", "qualified")
	lead.SetField("company", "Acme")
	lead.SetField("name", 42)

	assert.Equal(t, "qualified", lead.StageID)
	assert.Equal(t, "Ana", lead.Name)

	value, ok := lead.Field("company")
	assert.True(t, ok)
	assert.Equal(t, "Acme", value)

	value, ok = lead.Field("name")
	assert.True(t, ok)
	assert.Equal(t, "Ana", value)

	_, ok = lead.Field("missing")
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	configErr := NewConfigurationError("tag_id", "missing required field")
	configErr.NodeID = "tag-it"
	assert.True(t, IsConfigurationError(configErr))
	assert.Equal(t, "node tag-it: field 'tag_id': missing required field", configErr.Error())

	validationErr := &ValidationError{Input: "12", Reason: "too short"}
	assert.True(t, IsValidationError(validationErr))
	assert.False(t, IsConfigurationError(validationErr))

	cause := errors.New("deadline exceeded")
	timeout := NewTimeoutError("registry", cause)
	assert.True(t, IsTimeout(timeout))
	assert.False(t, IsTransport(timeout))
	assert.ErrorIs(t, timeout, ErrExternalService)
	assert.ErrorIs(t, timeout, cause)

	transport := NewTransportError("registry", errors.New("connection refused"))
	assert.True(t, IsTransport(transport))
	assert.False(t, IsTimeout(transport))
}
