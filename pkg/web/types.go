// Package web provides HTTP request and response types for the lead automation API.
package web

import (
	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/validation"
)

// SaveFlowRequest represents the request body for creating or replacing a flow.
type SaveFlowRequest struct {
	Name  string             `json:"name"  validate:"required,min=3"`
	Nodes []*models.FlowNode `json:"nodes" validate:"required,min=1"`
	Edges []*models.FlowEdge `json:"edges"`
}

// TriggerFlowRequest starts a lead on a flow. With Async the execution is started by a
// worker consuming lead.triggered instead of inside the request.
type TriggerFlowRequest struct {
	LeadID string `json:"lead_id" validate:"required"`
	Async  bool   `json:"async"`
}

// CancelExecutionRequest represents the request body for cancelling an execution.
type CancelExecutionRequest struct {
	Reason string `json:"reason"`
}

// CampaignRequest represents the request body for creating a campaign.
type CampaignRequest struct {
	Name                string   `json:"name"                            validate:"required,min=3"`
	Periodicity         string   `json:"periodicity"                     validate:"required"`
	DaysOfWeek          []int    `json:"days_of_week,omitempty"`
	DayOfMonth          int      `json:"day_of_month,omitempty"`
	CustomIntervalValue int      `json:"custom_interval_value,omitempty"`
	CustomIntervalUnit  string   `json:"custom_interval_unit,omitempty"`
	SendTime            string   `json:"send_time"                       validate:"required"`
	Timezone            string   `json:"timezone"                        validate:"required"`
	StartDate           string   `json:"start_date"                      validate:"required"`
	EndDate             string   `json:"end_date,omitempty"`
	Active              *bool    `json:"active,omitempty"`
	Recipients          []string `json:"recipients,omitempty"`
}

// UpdateCampaignRequest represents the request body for updating an existing campaign.
// All fields are optional to support partial updates.
type UpdateCampaignRequest struct {
	Name                *string  `json:"name,omitempty"                  validate:"omitempty,min=3"`
	Periodicity         *string  `json:"periodicity,omitempty"`
	DaysOfWeek          []int    `json:"days_of_week,omitempty"`
	DayOfMonth          *int     `json:"day_of_month,omitempty"`
	CustomIntervalValue *int     `json:"custom_interval_value,omitempty"`
	CustomIntervalUnit  *string  `json:"custom_interval_unit,omitempty"`
	SendTime            *string  `json:"send_time,omitempty"`
	Timezone            *string  `json:"timezone,omitempty"`
	StartDate           *string  `json:"start_date,omitempty"`
	EndDate             *string  `json:"end_date,omitempty"`
	Active              *bool    `json:"active,omitempty"`
	Recipients          []string `json:"recipients,omitempty"`
}

// ContactsRequest carries a free-text number list, one "phone[,name]" per line.
type ContactsRequest struct {
	Contacts string `json:"contacts" validate:"required"`
}

// CreateLeadRequest represents the request body for creating a lead.
type CreateLeadRequest struct {
	Name    string         `json:"name"     validate:"required"`
	Phone   string         `json:"phone"    validate:"required"`
	StageID string         `json:"stage_id"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// ValidationResponse is the bucketed result of a contacts validation run.
type ValidationResponse struct {
	Total         int                       `json:"total"`
	Confirmed     []models.ReconciledResult `json:"confirmed"`
	Rejected      []models.ReconciledResult `json:"rejected"`
	Invalid       []models.Contact          `json:"invalid"`
	Duplicates    []models.Contact          `json:"duplicates"`
	Degraded      bool                      `json:"degraded"`
	RegistryCalls int                       `json:"registry_calls"`
}

// NewValidationResponse transforms a pipeline report into its API shape.
func NewValidationResponse(report *validation.Report) ValidationResponse {
	return ValidationResponse{
		Total:         report.Total(),
		Confirmed:     nonNil(report.Confirmed),
		Rejected:      nonNil(report.Rejected),
		Invalid:       nonNil(report.Invalid),
		Duplicates:    nonNil(report.Duplicates),
		Degraded:      report.Degraded,
		RegistryCalls: report.RegistryCalls,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}

func (r CampaignRequest) toModel() *models.RecurringCampaign {
	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return &models.RecurringCampaign{
		Name:                r.Name,
		Periodicity:         models.Periodicity(r.Periodicity),
		DaysOfWeek:          r.DaysOfWeek,
		DayOfMonth:          r.DayOfMonth,
		CustomIntervalValue: r.CustomIntervalValue,
		CustomIntervalUnit:  models.IntervalUnit(r.CustomIntervalUnit),
		SendTime:            r.SendTime,
		Timezone:            r.Timezone,
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		Active:              active,
		Recipients:          r.Recipients,
	}
}

// apply merges the set fields into a copy of existing.
func (r UpdateCampaignRequest) apply(existing *models.RecurringCampaign) *models.RecurringCampaign {
	merged := *existing

	if r.Name != nil {
		merged.Name = *r.Name
	}

	if r.Periodicity != nil {
		merged.Periodicity = models.Periodicity(*r.Periodicity)
	}

	if r.DaysOfWeek != nil {
		merged.DaysOfWeek = r.DaysOfWeek
	}

	if r.DayOfMonth != nil {
		merged.DayOfMonth = *r.DayOfMonth
	}

	if r.CustomIntervalValue != nil {
		merged.CustomIntervalValue = *r.CustomIntervalValue
	}

	if r.CustomIntervalUnit != nil {
		merged.CustomIntervalUnit = models.IntervalUnit(*r.CustomIntervalUnit)
	}

	if r.SendTime != nil {
		merged.SendTime = *r.SendTime
	}

	if r.Timezone != nil {
		merged.Timezone = *r.Timezone
	}

	if r.StartDate != nil {
		merged.StartDate = *r.StartDate
	}

	if r.EndDate != nil {
		merged.EndDate = *r.EndDate
	}

	if r.Active != nil {
		merged.Active = *r.Active
	}

	if r.Recipients != nil {
		merged.Recipients = r.Recipients
	}

	return &merged
}
