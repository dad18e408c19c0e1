package flow

import "errors"

var (
	// ErrNoTrigger is returned when starting a flow that has no trigger node.
	ErrNoTrigger = errors.New("flow has no trigger node")

	// ErrExecutionTerminal is returned when cancelling an execution that already finished.
	ErrExecutionTerminal = errors.New("execution already finished")

	// ErrStepLimit is returned by Runner.Drive when an execution keeps advancing past the
	// step budget without parking or finishing.
	ErrStepLimit = errors.New("step limit exceeded")
)

// Failure reasons recorded on LastError.
const (
	reasonNodeNotFound   = "node not found"
	reasonFlowNotFound   = "flow not found"
	reasonLeadNotFound   = "lead not found"
	reasonNoBranchPrefix = "stalled: no branch for result"
	reasonCancelled      = "cancelled"
	reasonMissingResume  = "waiting without resume instant"
)
