// Package schedule computes wait-resume instants and recurring-campaign next runs.
// Every function takes the reference time explicitly and never reads the ambient clock.
package schedule

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dukex/leadflow/pkg/models"
)

// WaitMode selects how a wait node computes its resume instant.
type WaitMode string

const (
	WaitModeDelay      WaitMode = "delay"
	WaitModeUntilDate  WaitMode = "until_date"
	WaitModeUntilField WaitMode = "until_field"
)

// DelayUnit is the unit of a delay wait.
type DelayUnit string

const (
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
)

// DefaultFieldRecheck is the horizon after which an until_field wait is polled again.
const DefaultFieldRecheck = time.Hour

// WaitConfig is the decoded configuration of a wait node.
type WaitConfig struct {
	Mode  WaitMode
	Value float64
	Unit  DelayUnit
	Until time.Time
	Field string
}

// ParseWaitConfig decodes a wait node config map.
//
//	{"wait_type": "delay", "value": 2, "unit": "hours"}
//	{"wait_type": "until_date", "date": "2025-03-01T09:00:00Z"}
//	{"wait_type": "until_field", "field": "replied_at"}
func ParseWaitConfig(config map[string]any) (WaitConfig, error) {
	mode, _ := config["wait_type"].(string)

	switch WaitMode(mode) {
	case WaitModeDelay:
		value, ok := toFloat(config["value"])
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return WaitConfig{}, models.NewConfigurationError("value", "delay value must be a non-negative number")
		}

		unit, _ := config["unit"].(string)
		if _, err := delayDuration(value, DelayUnit(unit)); err != nil {
			return WaitConfig{}, err
		}

		return WaitConfig{Mode: WaitModeDelay, Value: value, Unit: DelayUnit(unit)}, nil

	case WaitModeUntilDate:
		raw, _ := config["date"].(string)
		if raw == "" {
			return WaitConfig{}, models.NewConfigurationError("date", "missing required field")
		}

		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return WaitConfig{}, models.NewConfigurationError("date", "must be an RFC3339 timestamp")
		}

		return WaitConfig{Mode: WaitModeUntilDate, Until: until}, nil

	case WaitModeUntilField:
		field, _ := config["field"].(string)
		if field == "" {
			return WaitConfig{}, models.NewConfigurationError("field", "missing required field")
		}

		return WaitConfig{Mode: WaitModeUntilField, Field: field}, nil

	default:
		return WaitConfig{}, models.NewConfigurationError("wait_type", fmt.Sprintf("unsupported wait type %q", mode))
	}
}

// Calculator computes resume instants for wait nodes.
type Calculator struct {
	// FieldRecheck is the coarse horizon used by until_field waits. The field is not
	// watched; the execution is simply re-polled after this duration.
	FieldRecheck time.Duration
}

// NewCalculator creates a calculator with the given until_field recheck horizon.
// A non-positive horizon falls back to DefaultFieldRecheck.
func NewCalculator(fieldRecheck time.Duration) *Calculator {
	if fieldRecheck <= 0 {
		fieldRecheck = DefaultFieldRecheck
	}

	return &Calculator{FieldRecheck: fieldRecheck}
}

// ResumeAt returns the instant at which a wait node with the given config releases.
func (c *Calculator) ResumeAt(config WaitConfig, now time.Time) (time.Time, error) {
	switch config.Mode {
	case WaitModeDelay:
		delay, err := delayDuration(config.Value, config.Unit)
		if err != nil {
			return time.Time{}, err
		}

		return now.Add(delay), nil
	case WaitModeUntilDate:
		return config.Until, nil
	case WaitModeUntilField:
		recheck := c.FieldRecheck
		if recheck <= 0 {
			recheck = DefaultFieldRecheck
		}

		return now.Add(recheck), nil
	default:
		return time.Time{}, models.NewConfigurationError("wait_type", fmt.Sprintf("unsupported wait type %q", config.Mode))
	}
}

// delayDuration converts a delay to a duration, rejecting values that do not fit.
func delayDuration(value float64, unit DelayUnit) (time.Duration, error) {
	step, err := unitDuration(unit)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(value) || value < 0 {
		return 0, models.NewConfigurationError("value", "delay value must be a non-negative number")
	}

	nanos := value * float64(step)
	if math.IsInf(nanos, 0) || nanos >= math.MaxInt64 {
		return 0, models.NewConfigurationError("value", fmt.Sprintf("delay of %g %s is too long", value, unit))
	}

	return time.Duration(nanos), nil
}

func unitDuration(unit DelayUnit) (time.Duration, error) {
	switch unit {
	case DelayUnitMinutes:
		return time.Minute, nil
	case DelayUnitHours:
		return time.Hour, nil
	case DelayUnitDays:
		return 24 * time.Hour, nil
	default:
		return 0, models.NewConfigurationError("unit", fmt.Sprintf("unsupported delay unit %q", unit))
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)

		return f, err == nil
	default:
		return 0, false
	}
}
