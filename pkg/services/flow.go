package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/leadflow/pkg/actions"
	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/dukex/leadflow/pkg/schedule"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrFlowNotFound is returned when a flow is not found.
	ErrFlowNotFound = persistence.ErrFlowNotFound
)

// conditionSchema requires an operator and exactly one inspected domain.
var conditionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"operator": map[string]any{
			"type": "string",
			"enum": []string{
				"equals", "not_equals", "greater_than", "less_than",
				"contains", "not_contains", "exists", "not_exists",
			},
		},
		"field":    map[string]any{"type": "string", "minLength": 1},
		"tag_id":   map[string]any{"type": "string", "minLength": 1},
		"stage_id": map[string]any{"type": "string", "minLength": 1},
	},
	"required": []string{"operator"},
	"oneOf": []any{
		map[string]any{"required": []string{"field"}},
		map[string]any{"required": []string{"tag_id"}},
		map[string]any{"required": []string{"stage_id"}},
	},
}

type Flow struct {
	persistence persistence.Persistence
	now         func() time.Time
}

// NewFlow creates a new flow service.
func NewFlow(persistence persistence.Persistence) *Flow {
	return &Flow{
		persistence: persistence,
		now:         time.Now,
	}
}

// HealthCheck checks the health of the persistence layer.
func (f *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (f *Flow) List(ctx context.Context) ([]*models.Flow, error) {
	flows, err := f.persistence.FlowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return flows, nil
}

func (f *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	return f.persistence.FlowRepository().GetByID(ctx, id)
}

// Save validates and stores a flow definition. A missing id is generated.
func (f *Flow) Save(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	if err := ValidateFlow(flow); err != nil {
		return nil, err
	}

	now := f.now().UTC()

	if flow.ID == "" {
		flow.ID = uuid.NewString()
		flow.CreatedAt = now
	} else if existing, err := f.persistence.FlowRepository().GetByID(ctx, flow.ID); err == nil {
		flow.CreatedAt = existing.CreatedAt
	} else if !persistence.IsFlowNotFound(err) {
		return nil, fmt.Errorf("failed to load flow: %w", err)
	} else {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return flow, nil
}

func (f *Flow) Delete(ctx context.Context, id string) error {
	return f.persistence.FlowRepository().Delete(ctx, id)
}

// ValidateFlow checks the struct tags, the graph shape and every node config.
func ValidateFlow(flow *models.Flow) error {
	const op = "validate_flow"

	if flow == nil {
		return NewValidationError(op, "FLOW_NIL", "", ErrFlowNil)
	}

	if len(flow.Nodes) == 0 {
		return NewValidationError(op, "NODES_REQUIRED", "", ErrNodesRequired)
	}

	if err := structValidator().Struct(flow); err != nil {
		return NewValidationError(op, "INVALID_FLOW", validationMessage(err), ErrInvalidRequest)
	}

	if err := ValidateGraph(flow); err != nil {
		return err
	}

	for _, node := range flow.Nodes {
		if err := ValidateNodeConfig(node); err != nil {
			return err
		}
	}

	return nil
}

// ValidateGraph checks that the flow has one trigger, unique node ids, edges between
// known nodes, and yes/no branches only (and at most once each) on condition nodes.
func ValidateGraph(flow *models.Flow) error {
	const op = "validate_graph"

	nodes := make(map[string]*models.FlowNode, len(flow.Nodes))
	triggers := 0

	for _, node := range flow.Nodes {
		if _, dup := nodes[node.ID]; dup {
			return NewValidationError(op, "DUPLICATE_NODE", "node "+node.ID, ErrDuplicateNodeID)
		}

		nodes[node.ID] = node

		if node.Type == models.NodeTypeTrigger {
			triggers++
		}
	}

	if triggers != 1 {
		return NewValidationError(op, "TRIGGER_REQUIRED", fmt.Sprintf("found %d trigger nodes", triggers),
			ErrTriggerNodeRequired)
	}

	branches := make(map[string]map[models.Branch]bool)

	for _, edge := range flow.Edges {
		source, ok := nodes[edge.Source]
		if !ok {
			return NewValidationError(op, "INVALID_EDGE", "unknown source "+edge.Source, ErrInvalidEdge)
		}

		if _, ok := nodes[edge.Target]; !ok {
			return NewValidationError(op, "INVALID_EDGE", "unknown target "+edge.Target, ErrInvalidEdge)
		}

		isCondition := source.Type == models.NodeTypeCondition

		switch {
		case isCondition && edge.Branch == models.BranchNone:
			return NewValidationError(op, "INVALID_BRANCH",
				fmt.Sprintf("edge %s -> %s from condition needs a yes/no branch", edge.Source, edge.Target), ErrInvalidBranch)
		case !isCondition && edge.Branch != models.BranchNone:
			return NewValidationError(op, "INVALID_BRANCH",
				fmt.Sprintf("edge %s -> %s is labelled but %s is not a condition", edge.Source, edge.Target, edge.Source),
				ErrInvalidBranch)
		}

		if isCondition {
			if branches[edge.Source] == nil {
				branches[edge.Source] = make(map[models.Branch]bool)
			}

			if branches[edge.Source][edge.Branch] {
				return NewValidationError(op, "INVALID_BRANCH",
					fmt.Sprintf("condition %s has more than one %q edge", edge.Source, edge.Branch), ErrInvalidBranch)
			}

			branches[edge.Source][edge.Branch] = true
		}
	}

	return nil
}

// ValidateNodeConfig checks one node config against the schema of its type.
func ValidateNodeConfig(node *models.FlowNode) error {
	const op = "validate_node"

	switch node.Type {
	case models.NodeTypeAction:
		kind, _ := node.Config["action_type"].(string)

		schema := actions.Schema(actions.Kind(kind))
		if schema == nil {
			return NewValidationError(op, "INVALID_NODE_CONFIG",
				fmt.Sprintf("node %s: unsupported action type %q", node.ID, kind), ErrInvalidNodeConfig)
		}

		return validateJSONSchema(op, node, schema)
	case models.NodeTypeCondition:
		return validateJSONSchema(op, node, conditionSchema)
	case models.NodeTypeWait:
		if _, err := schedule.ParseWaitConfig(node.Config); err != nil {
			return NewValidationError(op, "INVALID_NODE_CONFIG", fmt.Sprintf("node %s: %s", node.ID, err), ErrInvalidNodeConfig)
		}
	}

	return nil
}

func validateJSONSchema(op string, node *models.FlowNode, schema map[string]any) error {
	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return NewValidationError(op, "INVALID_NODE_CONFIG", fmt.Sprintf("node %s: %s", node.ID, err), ErrInvalidNodeConfig)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return NewValidationError(op, "INVALID_NODE_CONFIG",
			fmt.Sprintf("node %s: %s", node.ID, strings.Join(messages, "; ")), ErrInvalidNodeConfig)
	}

	return nil
}
