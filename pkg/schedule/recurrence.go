package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukex/leadflow/pkg/models"
)

// maxCandidates bounds the search for the next qualifying date.
const maxCandidates = 1000

var (
	// ErrNoNextRun is returned when the campaign end date has passed.
	ErrNoNextRun = errors.New("campaign has no further runs")

	// ErrInvalidCampaign is returned when the recurrence fields cannot be interpreted.
	ErrInvalidCampaign = errors.New("invalid campaign recurrence")
)

// LocationResolver maps a civil timezone id to a location.
type LocationResolver func(name string) (*time.Location, error)

// Recurrence computes the next firing instant of recurring campaigns.
type Recurrence struct {
	resolve LocationResolver
}

// NewRecurrence creates a recurrence calculator. A nil resolver uses time.LoadLocation.
func NewRecurrence(resolve LocationResolver) *Recurrence {
	if resolve == nil {
		resolve = time.LoadLocation
	}

	return &Recurrence{resolve: resolve}
}

// NextRun returns the first instant strictly after `after` at which the campaign fires.
//
// The local wall-clock instant (civil date + send time) is converted to an absolute
// instant with the timezone offset in effect on that date, so the local send time is
// stable across daylight-saving transitions while the UTC offset may change.
func (r *Recurrence) NextRun(campaign *models.RecurringCampaign, after time.Time) (time.Time, error) {
	loc, err := r.resolve(campaign.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timezone %q: %w", ErrInvalidCampaign, campaign.Timezone, err)
	}

	start, err := parseDate(campaign.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start_date: %w", ErrInvalidCampaign, err)
	}

	var end *time.Time

	if campaign.EndDate != "" {
		parsed, err := parseDate(campaign.EndDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: end_date: %w", ErrInvalidCampaign, err)
		}

		end = &parsed
	}

	sendTime, err := time.Parse(models.TimeOfDayLayout, campaign.SendTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: send_time: %w", ErrInvalidCampaign, err)
	}

	stepper, err := newStepper(campaign, start)
	if err != nil {
		return time.Time{}, err
	}

	local := after.In(loc)

	ref := civilDate(local.Year(), local.Month(), local.Day())
	if ref.Before(start) {
		ref = start
	}

	date := stepper.first(ref)

	for range maxCandidates {
		if end != nil && date.After(*end) {
			return time.Time{}, ErrNoNextRun
		}

		instant := LocalInstant(date, sendTime.Hour(), sendTime.Minute(), loc)
		if instant.After(after) {
			return instant, nil
		}

		date = stepper.next(date)
	}

	return time.Time{}, fmt.Errorf("%w: no qualifying date found", ErrInvalidCampaign)
}

// NextRun computes the next run with the system timezone database.
func NextRun(campaign *models.RecurringCampaign, after time.Time) (time.Time, error) {
	return NewRecurrence(nil).NextRun(campaign, after)
}

// LocalInstant composes a civil date and a time of day in loc. The UTC offset is the
// one in effect at that local date and time, not at the moment of the call.
func LocalInstant(date time.Time, hour, minute int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
}

// stepper enumerates qualifying civil dates. Dates are represented as UTC midnights.
type stepper interface {
	// first returns the earliest qualifying date on or after ref.
	first(ref time.Time) time.Time
	// next returns the earliest qualifying date strictly after date.
	next(date time.Time) time.Time
}

func newStepper(campaign *models.RecurringCampaign, start time.Time) (stepper, error) {
	switch campaign.Periodicity {
	case models.PeriodicityDaily:
		return fixedStepper{start: start, days: 1}, nil
	case models.PeriodicityBiweekly:
		return fixedStepper{start: start, days: 14}, nil
	case models.PeriodicityWeekly:
		if len(campaign.DaysOfWeek) == 0 {
			return nil, fmt.Errorf("%w: weekly campaign requires days_of_week", ErrInvalidCampaign)
		}

		days := make(map[time.Weekday]bool, len(campaign.DaysOfWeek))
		for _, day := range campaign.DaysOfWeek {
			if day < 0 || day > 6 {
				return nil, fmt.Errorf("%w: day of week %d out of range", ErrInvalidCampaign, day)
			}

			days[time.Weekday(day)] = true
		}

		return weeklyStepper{days: days}, nil
	case models.PeriodicityMonthly:
		if campaign.DayOfMonth < 1 || campaign.DayOfMonth > 31 {
			return nil, fmt.Errorf("%w: day_of_month must be between 1 and 31", ErrInvalidCampaign)
		}

		return monthlyStepper{day: campaign.DayOfMonth}, nil
	case models.PeriodicityCustom:
		if campaign.CustomIntervalValue < 1 {
			return nil, fmt.Errorf("%w: custom_interval_value must be positive", ErrInvalidCampaign)
		}

		switch campaign.CustomIntervalUnit {
		case models.IntervalUnitDay:
			return fixedStepper{start: start, days: campaign.CustomIntervalValue}, nil
		case models.IntervalUnitWeek:
			return fixedStepper{start: start, days: 7 * campaign.CustomIntervalValue}, nil
		case models.IntervalUnitMonth:
			return monthIntervalStepper{start: start, months: campaign.CustomIntervalValue}, nil
		default:
			return nil, fmt.Errorf("%w: unsupported interval unit %q", ErrInvalidCampaign, campaign.CustomIntervalUnit)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported periodicity %q", ErrInvalidCampaign, campaign.Periodicity)
	}
}

// fixedStepper yields start + k·days.
type fixedStepper struct {
	start time.Time
	days  int
}

func (s fixedStepper) first(ref time.Time) time.Time {
	elapsed := daysBetween(s.start, ref)
	if elapsed <= 0 {
		return s.start
	}

	k := (elapsed + s.days - 1) / s.days

	return addDays(s.start, k*s.days)
}

func (s fixedStepper) next(date time.Time) time.Time {
	return addDays(date, s.days)
}

// weeklyStepper yields every date whose weekday is in the configured set.
type weeklyStepper struct {
	days map[time.Weekday]bool
}

func (s weeklyStepper) first(ref time.Time) time.Time {
	for offset := range 7 {
		candidate := addDays(ref, offset)
		if s.days[candidate.Weekday()] {
			return candidate
		}
	}

	return ref
}

func (s weeklyStepper) next(date time.Time) time.Time {
	return s.first(addDays(date, 1))
}

// monthlyStepper yields the configured day of every month, clamped to the month length.
type monthlyStepper struct {
	day int
}

func (s monthlyStepper) first(ref time.Time) time.Time {
	candidate := monthDay(ref.Year(), ref.Month(), s.day)
	if candidate.Before(ref) {
		return monthDay(ref.Year(), ref.Month()+1, s.day)
	}

	return candidate
}

func (s monthlyStepper) next(date time.Time) time.Time {
	return monthDay(date.Year(), date.Month()+1, s.day)
}

// monthIntervalStepper yields start + k·months, keeping the start day where the month allows.
type monthIntervalStepper struct {
	start  time.Time
	months int
}

func (s monthIntervalStepper) at(k int) time.Time {
	return monthDay(s.start.Year(), s.start.Month()+time.Month(k*s.months), s.start.Day())
}

func (s monthIntervalStepper) first(ref time.Time) time.Time {
	elapsed := (ref.Year()-s.start.Year())*12 + int(ref.Month()-s.start.Month())

	k := max(elapsed/s.months-1, 0)
	for s.at(k).Before(ref) {
		k++
	}

	return s.at(k)
}

func (s monthIntervalStepper) next(date time.Time) time.Time {
	return s.first(addDays(date, 1))
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}

	return civilDate(parsed.Year(), parsed.Month(), parsed.Day()), nil
}

func civilDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func addDays(date time.Time, days int) time.Time {
	return civilDate(date.Year(), date.Month(), date.Day()+days)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// monthDay returns the given day of the (normalized) month, clamped to its last day.
func monthDay(year int, month time.Month, day int) time.Time {
	firstOfMonth := civilDate(year, month, 1)
	lastDay := firstOfMonth.AddDate(0, 1, -1).Day()

	return civilDate(firstOfMonth.Year(), firstOfMonth.Month(), min(day, lastDay))
}
