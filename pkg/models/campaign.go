package models

import "time"

// Periodicity defines how often a recurring campaign fires.
type Periodicity string

const (
	PeriodicityDaily    Periodicity = "daily"
	PeriodicityWeekly   Periodicity = "weekly"
	PeriodicityBiweekly Periodicity = "biweekly"
	PeriodicityMonthly  Periodicity = "monthly"
	PeriodicityCustom   Periodicity = "custom"
)

// IntervalUnit is the unit of a custom campaign interval.
type IntervalUnit string

const (
	IntervalUnitDay   IntervalUnit = "day"
	IntervalUnitWeek  IntervalUnit = "week"
	IntervalUnitMonth IntervalUnit = "month"
)

// Civil layouts used by campaign fields.
const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

// RecurringCampaign represents a bulk campaign fired on a timezone-aware cadence.
// StartDate, EndDate and SendTime are civil values interpreted in Timezone.
type RecurringCampaign struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"                            validate:"required,min=3"`
	Periodicity         Periodicity  `json:"periodicity"                     validate:"required,oneof=daily weekly biweekly monthly custom"`
	DaysOfWeek          []int        `json:"days_of_week,omitempty"          validate:"required_if=Periodicity weekly,dive,min=0,max=6"`
	DayOfMonth          int          `json:"day_of_month,omitempty"          validate:"required_if=Periodicity monthly,omitempty,min=1,max=31"`
	CustomIntervalValue int          `json:"custom_interval_value,omitempty" validate:"required_if=Periodicity custom,omitempty,min=1"`
	CustomIntervalUnit  IntervalUnit `json:"custom_interval_unit,omitempty"  validate:"required_if=Periodicity custom,omitempty,oneof=day week month"`
	SendTime            string       `json:"send_time"                       validate:"required,datetime=15:04"`
	Timezone            string       `json:"timezone"                        validate:"required,timezone"`
	StartDate           string       `json:"start_date"                      validate:"required,datetime=2006-01-02"`
	EndDate             string       `json:"end_date,omitempty"              validate:"omitempty,datetime=2006-01-02"`
	NextRunAt           *time.Time   `json:"next_run_at,omitempty"`
	LastRunAt           *time.Time   `json:"last_run_at,omitempty"`
	Active              bool         `json:"active"`
	Recipients          []string     `json:"recipients,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// IsDue checks if this campaign should fire at the given time.
func (c *RecurringCampaign) IsDue(now time.Time) bool {
	return c.Active && c.NextRunAt != nil && !c.NextRunAt.After(now)
}
