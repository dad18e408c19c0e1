// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/google/uuid"
)

// FlowBuilder assembles a flow graph node by node.
type FlowBuilder struct {
	flow *models.Flow
}

// NewFlow starts a flow with the given id. An empty id gets a random one.
func NewFlow(id string) *FlowBuilder {
	if id == "" {
		id = uuid.New().String()
	}

	return &FlowBuilder{flow: &models.Flow{ID: id, Name: "Test Flow " + id}}
}

func (b *FlowBuilder) node(id string, nodeType models.NodeType, config map[string]any) *FlowBuilder {
	b.flow.Nodes = append(b.flow.Nodes, &models.FlowNode{ID: id, Type: nodeType, Name: id, Config: config})

	return b
}

// Trigger adds a trigger node.
func (b *FlowBuilder) Trigger(id string) *FlowBuilder {
	return b.node(id, models.NodeTypeTrigger, map[string]any{})
}

// End adds an end node.
func (b *FlowBuilder) End(id string) *FlowBuilder {
	return b.node(id, models.NodeTypeEnd, map[string]any{})
}

// Action adds an action node.
func (b *FlowBuilder) Action(id string, config map[string]any) *FlowBuilder {
	return b.node(id, models.NodeTypeAction, config)
}

// Wait adds a wait node.
func (b *FlowBuilder) Wait(id string, config map[string]any) *FlowBuilder {
	return b.node(id, models.NodeTypeWait, config)
}

// Condition adds a condition node.
func (b *FlowBuilder) Condition(id string, config map[string]any) *FlowBuilder {
	return b.node(id, models.NodeTypeCondition, config)
}

// Edge connects source to target.
func (b *FlowBuilder) Edge(source, target string) *FlowBuilder {
	b.flow.Edges = append(b.flow.Edges, &models.FlowEdge{Source: source, Target: target})

	return b
}

// Yes connects the yes branch of a condition node.
func (b *FlowBuilder) Yes(source, target string) *FlowBuilder {
	b.flow.Edges = append(b.flow.Edges, &models.FlowEdge{Source: source, Target: target, Branch: models.BranchYes})

	return b
}

// No connects the no branch of a condition node.
func (b *FlowBuilder) No(source, target string) *FlowBuilder {
	b.flow.Edges = append(b.flow.Edges, &models.FlowEdge{Source: source, Target: target, Branch: models.BranchNo})

	return b
}

// Build returns the assembled flow.
func (b *FlowBuilder) Build() *models.Flow {
	return b.flow
}

// QualifiedOutreachFlow is trigger → condition(stage equals "qualified") →
// [yes] dispatch_message → end, [no] → end.
func QualifiedOutreachFlow(id string) *models.Flow {
	return NewFlow(id).
		Trigger("start").
		Condition("is-qualified", map[string]any{"stage_id": "qualified", "operator": "equals"}).
		Action("send", map[string]any{
			"action_type": "dispatch_message",
			"channel_id":  "whatsapp",
			"phone":       "{{.Phone}}",
			"body":        "Olá {{firstName .Name}}, tudo bem?",
		}).
		End("done").
		Edge("start", "is-qualified").
		Yes("is-qualified", "send").
		No("is-qualified", "done").
		Edge("send", "done").
		Build()
}

// CreateTestLead creates a lead with default values that can be overridden.
func CreateTestLead(overrides ...func(*models.Lead)) *models.Lead {
	now := time.Now().UTC()
	lead := &models.Lead{
		ID:        uuid.New().String(),
		Name:      "Test Lead",
		Phone:     "5511987654321",
		StageID:   "new",
		Fields:    map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(lead)
	}

	return lead
}

// WithStage sets the lead stage.
func WithStage(stageID string) func(*models.Lead) {
	return func(l *models.Lead) {
		l.StageID = stageID
	}
}

// WithLeadID sets the lead id.
func WithLeadID(id string) func(*models.Lead) {
	return func(l *models.Lead) {
		l.ID = id
	}
}

// WithField sets a custom lead field.
func WithField(name string, value any) func(*models.Lead) {
	return func(l *models.Lead) {
		l.SetField(name, value)
	}
}

// CreateTestCampaign creates a daily campaign with default values that can be overridden.
func CreateTestCampaign(overrides ...func(*models.RecurringCampaign)) *models.RecurringCampaign {
	campaign := &models.RecurringCampaign{
		ID:          uuid.New().String(),
		Name:        "Test Campaign",
		Periodicity: models.PeriodicityDaily,
		SendTime:    "09:00",
		Timezone:    "America/Sao_Paulo",
		StartDate:   "2025-01-01",
		Active:      true,
	}

	for _, override := range overrides {
		override(campaign)
	}

	return campaign
}
