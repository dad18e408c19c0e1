package models

import "time"

// ExecutionStatus defines the possible states of an execution instance.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// IsTerminal reports whether the status can never be resumed again.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// ExecutionInstance is one lead's live progress through one flow.
// It carries the minimum shape an external poller needs to find due work.
type ExecutionInstance struct {
	ID            string          `json:"id"`
	FlowID        string          `json:"flow_id"`
	LeadID        string          `json:"lead_id"`
	CurrentNodeID string          `json:"current_node_id"`
	Status        ExecutionStatus `json:"status"`
	ResumeAt      *time.Time      `json:"resume_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// IsDue reports whether a waiting instance may be resumed at the given time.
func (e *ExecutionInstance) IsDue(now time.Time) bool {
	return e.Status == ExecutionStatusWaiting && e.ResumeAt != nil && !e.ResumeAt.After(now)
}

// Park moves the instance into the waiting state until resumeAt.
func (e *ExecutionInstance) Park(resumeAt, now time.Time) {
	e.Status = ExecutionStatusWaiting
	e.ResumeAt = &resumeAt
	e.UpdatedAt = now
}

// MoveTo positions the instance on the next node and keeps it running.
func (e *ExecutionInstance) MoveTo(nodeID string, now time.Time) {
	e.CurrentNodeID = nodeID
	e.Status = ExecutionStatusRunning
	e.ResumeAt = nil
	e.UpdatedAt = now
}

// Complete marks the instance as successfully finished.
func (e *ExecutionInstance) Complete(now time.Time) {
	e.Status = ExecutionStatusCompleted
	e.ResumeAt = nil
	e.UpdatedAt = now
	e.CompletedAt = &now
}

// Fail marks the instance as failed, keeping the reason inspectable.
func (e *ExecutionInstance) Fail(reason string, now time.Time) {
	e.Status = ExecutionStatusFailed
	e.LastError = reason
	e.ResumeAt = nil
	e.UpdatedAt = now
	e.CompletedAt = &now
}
