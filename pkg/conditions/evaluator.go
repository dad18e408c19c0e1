// Package conditions evaluates the boolean predicate of condition nodes against a lead.
package conditions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/leadflow/pkg/models"
)

// Operator is a comparison applied by a condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "not_exists"
)

// Domain is the kind of lead data a condition inspects.
type Domain string

const (
	DomainUnknown Domain = ""
	DomainField   Domain = "field"
	DomainTag     Domain = "tag"
	DomainStage   Domain = "stage"
)

// TagLookup reports whether a lead carries a tag.
type TagLookup interface {
	HasTag(ctx context.Context, leadID, tagID string) (bool, error)
}

// Condition is the decoded config of a condition node.
type Condition struct {
	Domain   Domain
	Field    string
	TagID    string
	StageID  string
	Operator Operator
	Value    any
}

// Parse decodes a condition node config. The domain is chosen by the first populated
// key among field, tag_id and stage_id.
//
//	{"field": "score", "operator": "greater_than", "value": 50}
//	{"tag_id": "vip", "operator": "exists"}
//	{"stage_id": "qualified", "operator": "equals"}
func Parse(config map[string]any) Condition {
	operator, _ := config["operator"].(string)
	cond := Condition{Operator: Operator(operator), Value: config["value"]}

	if field, _ := config["field"].(string); field != "" {
		cond.Domain = DomainField
		cond.Field = field

		return cond
	}

	if tagID, _ := config["tag_id"].(string); tagID != "" {
		cond.Domain = DomainTag
		cond.TagID = tagID

		return cond
	}

	if stageID, _ := config["stage_id"].(string); stageID != "" {
		cond.Domain = DomainStage
		cond.StageID = stageID
	}

	return cond
}

// Evaluator resolves conditions. Unknown operators and domains evaluate to false.
type Evaluator struct {
	tags   TagLookup
	logger *slog.Logger
}

func NewEvaluator(tags TagLookup, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		tags:   tags,
		logger: logger.With("module", "condition_evaluator"),
	}
}

// Evaluate decodes config and evaluates it against the lead. Only tag lookup failures
// produce an error.
func (e *Evaluator) Evaluate(ctx context.Context, lead *models.Lead, config map[string]any) (bool, error) {
	return e.EvaluateCondition(ctx, lead, Parse(config))
}

func (e *Evaluator) EvaluateCondition(ctx context.Context, lead *models.Lead, cond Condition) (bool, error) {
	switch cond.Domain {
	case DomainField:
		actual, _ := lead.Field(cond.Field)

		return CompareField(cond.Operator, actual, cond.Value), nil

	case DomainTag:
		has, err := e.tags.HasTag(ctx, lead.ID, cond.TagID)
		if err != nil {
			return false, fmt.Errorf("failed to check tag %s on lead %s: %w", cond.TagID, lead.ID, err)
		}

		switch cond.Operator {
		case OperatorExists:
			return has, nil
		case OperatorNotExists:
			return !has, nil
		}

	case DomainStage:
		switch cond.Operator {
		case OperatorEquals:
			return lead.StageID == cond.StageID, nil
		case OperatorNotEquals:
			return lead.StageID != cond.StageID, nil
		}

	case DomainUnknown:
	}

	e.logger.WarnContext(ctx, "Condition evaluated to false",
		"lead_id", lead.ID,
		"domain", cond.Domain,
		"operator", cond.Operator,
		"reason", "unsupported domain or operator")

	return false, nil
}

// CompareField applies a field operator to an attribute value and the configured value.
func CompareField(op Operator, actual, expected any) bool {
	switch op {
	case OperatorExists:
		return present(actual)
	case OperatorNotExists:
		return !present(actual)
	case OperatorEquals:
		return equal(actual, expected)
	case OperatorNotEquals:
		return !equal(actual, expected)
	case OperatorGreaterThan, OperatorLessThan:
		a, okA := toNumber(actual)
		b, okB := toNumber(expected)

		if !okA || !okB {
			return false
		}

		if op == OperatorGreaterThan {
			return a > b
		}

		return a < b
	case OperatorContains:
		return contains(actual, expected)
	case OperatorNotContains:
		return !contains(actual, expected)
	default:
		return false
	}
}

func present(value any) bool {
	if value == nil {
		return false
	}

	if str, ok := value.(string); ok {
		return str != ""
	}

	return true
}

func equal(actual, expected any) bool {
	a, okA := toNumber(actual)
	b, okB := toNumber(expected)

	if okA && okB {
		return a == b
	}

	return toString(actual) == toString(expected)
}

func contains(actual, expected any) bool {
	if actual == nil {
		return false
	}

	return strings.Contains(strings.ToLower(toString(actual)), strings.ToLower(toString(expected)))
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
