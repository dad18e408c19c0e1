// Package models defines the core domain models for lead outreach automation
package models

import "time"

// NodeType represents the behavior of a node inside a flow graph.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"   // Entry marker, advanced immediately
	NodeTypeAction    NodeType = "action"    // Side-effecting operation against the lead
	NodeTypeWait      NodeType = "wait"      // Parks the execution until a computed instant
	NodeTypeCondition NodeType = "condition" // Two-branch yes/no decision point
	NodeTypeEnd       NodeType = "end"       // Terminal marker
)

// Branch labels the outgoing edges of a condition node.
type Branch string

const (
	BranchNone Branch = ""
	BranchYes  Branch = "yes"
	BranchNo   Branch = "no"
)

// BranchFor returns the edge label that follows a condition result.
func BranchFor(result bool) Branch {
	if result {
		return BranchYes
	}

	return BranchNo
}

// FlowNode represents a node instance in a flow. Config shape depends on Type.
type FlowNode struct {
	ID     string         `json:"id"     validate:"required"`
	Type   NodeType       `json:"type"   validate:"required,oneof=trigger action wait condition end"`
	Name   string         `json:"name,omitempty"`
	Config map[string]any `json:"config"`
}

// FlowEdge connects two nodes by id.
type FlowEdge struct {
	Source string `json:"source"           validate:"required"`
	Target string `json:"target"           validate:"required"`
	Branch Branch `json:"branch,omitempty" validate:"omitempty,oneof=yes no"`
}

// Flow is a directed graph of nodes addressed by id, with adjacency given by the edge list.
type Flow struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"  validate:"required,min=3"`
	Nodes     []*FlowNode `json:"nodes" validate:"required,min=1,dive"`
	Edges     []*FlowEdge `json:"edges" validate:"dive"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Node returns the node with the given id.
func (f *Flow) Node(id string) (*FlowNode, bool) {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// TriggerNode returns the first trigger node of the flow.
func (f *Flow) TriggerNode() (*FlowNode, bool) {
	for _, node := range f.Nodes {
		if node.Type == NodeTypeTrigger {
			return node, true
		}
	}

	return nil, false
}

// OutgoingEdges returns every edge whose source is the given node, in definition order.
func (f *Flow) OutgoingEdges(nodeID string) []*FlowEdge {
	var edges []*FlowEdge

	for _, edge := range f.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// NextNodeID returns the target of the first edge leaving nodeID.
func (f *Flow) NextNodeID(nodeID string) (string, bool) {
	for _, edge := range f.Edges {
		if edge.Source == nodeID {
			return edge.Target, true
		}
	}

	return "", false
}

// BranchTarget returns the target of the edge leaving nodeID with the given branch label.
func (f *Flow) BranchTarget(nodeID string, branch Branch) (string, bool) {
	for _, edge := range f.Edges {
		if edge.Source == nodeID && edge.Branch == branch {
			return edge.Target, true
		}
	}

	return "", false
}
