package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()

	loc, err := time.LoadLocation(name)
	require.NoError(t, err)

	return loc
}

func TestNextRun_DailyKeepsLocalTimeAcrossDST(t *testing.T) {
	loc := mustLoad(t, "America/Sao_Paulo")

	campaign := &models.RecurringCampaign{
		Periodicity: models.PeriodicityDaily,
		SendTime:    "09:00",
		Timezone:    "America/Sao_Paulo",
		StartDate:   "2018-10-29",
	}

	// Brazilian DST started on 2018-11-04 (UTC-3 -> UTC-2).
	after := time.Date(2018, 10, 29, 9, 0, 0, 0, loc)
	offsets := make(map[int]bool)

	for range 10 {
		next, err := NextRun(campaign, after)
		require.NoError(t, err)

		local := next.In(loc)
		assert.Equal(t, 9, local.Hour(), "local hour for %s", local)
		assert.Equal(t, 0, local.Minute())

		_, offset := local.Zone()
		offsets[offset] = true

		assert.Equal(t, 24*time.Hour, roundDay(next.Sub(after)), "daily cadence")
		after = next
	}

	assert.Len(t, offsets, 2, "expected both standard and daylight offsets to appear")
}

// roundDay ignores the one-hour drift of DST transition days.
func roundDay(d time.Duration) time.Duration {
	if d > 22*time.Hour && d < 26*time.Hour {
		return 24 * time.Hour
	}

	return d
}

func TestNextRun_UsesOffsetOfTargetDate(t *testing.T) {
	loc := mustLoad(t, "America/New_York")

	campaign := &models.RecurringCampaign{
		Periodicity: models.PeriodicityDaily,
		SendTime:    "09:00",
		Timezone:    "America/New_York",
		StartDate:   "2024-03-01",
	}

	// Evaluated under EST, targeting 2024-03-10 which is already EDT at 09:00.
	after := time.Date(2024, 3, 9, 9, 30, 0, 0, loc)

	next, err := NextRun(campaign, after)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC), next.UTC())
}

func TestNextRun_Periodicities(t *testing.T) {
	utc := time.UTC

	tests := []struct {
		name     string
		campaign models.RecurringCampaign
		after    time.Time
		expected time.Time
	}{
		{
			name: "daily before send time fires same day",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityDaily, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			after:    time.Date(2025, 1, 5, 8, 0, 0, 0, utc),
			expected: time.Date(2025, 1, 5, 9, 0, 0, 0, utc),
		},
		{
			name: "daily after send time fires next day",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityDaily, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			after:    time.Date(2025, 1, 5, 9, 0, 0, 0, utc),
			expected: time.Date(2025, 1, 6, 9, 0, 0, 0, utc),
		},
		{
			name: "start date in the future",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityDaily, SendTime: "10:30", Timezone: "UTC", StartDate: "2025-02-01",
			},
			after:    time.Date(2025, 1, 5, 9, 0, 0, 0, utc),
			expected: time.Date(2025, 2, 1, 10, 30, 0, 0, utc),
		},
		{
			name: "weekly picks next configured weekday",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityWeekly, DaysOfWeek: []int{1, 4}, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			// Monday 2025-01-06 at 09:00 has fired; next is Thursday.
			after:    time.Date(2025, 1, 6, 9, 0, 0, 0, utc),
			expected: time.Date(2025, 1, 9, 9, 0, 0, 0, utc),
		},
		{
			name: "weekly wraps to next week",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityWeekly, DaysOfWeek: []int{1}, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			after:    time.Date(2025, 1, 6, 12, 0, 0, 0, utc),
			expected: time.Date(2025, 1, 13, 9, 0, 0, 0, utc),
		},
		{
			name: "biweekly is anchored on start date",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityBiweekly, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			after:    time.Date(2025, 1, 1, 9, 0, 0, 0, utc),
			expected: time.Date(2025, 1, 15, 9, 0, 0, 0, utc),
		},
		{
			name: "monthly on configured day",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityMonthly, DayOfMonth: 10, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			after:    time.Date(2025, 1, 10, 9, 0, 0, 0, utc),
			expected: time.Date(2025, 2, 10, 9, 0, 0, 0, utc),
		},
		{
			name: "monthly clamps to short months",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityMonthly, DayOfMonth: 31, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			after:    time.Date(2025, 1, 31, 10, 0, 0, 0, utc),
			expected: time.Date(2025, 2, 28, 9, 0, 0, 0, utc),
		},
		{
			name: "custom every 3 days",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityCustom, CustomIntervalValue: 3, CustomIntervalUnit: models.IntervalUnitDay,
				SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			after:    time.Date(2025, 1, 4, 9, 0, 0, 0, utc),
			expected: time.Date(2025, 1, 7, 9, 0, 0, 0, utc),
		},
		{
			name: "custom every 2 weeks",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityCustom, CustomIntervalValue: 2, CustomIntervalUnit: models.IntervalUnitWeek,
				SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01",
			},
			after:    time.Date(2025, 1, 2, 0, 0, 0, 0, utc),
			expected: time.Date(2025, 1, 15, 9, 0, 0, 0, utc),
		},
		{
			name: "custom every 2 months",
			campaign: models.RecurringCampaign{
				Periodicity: models.PeriodicityCustom, CustomIntervalValue: 2, CustomIntervalUnit: models.IntervalUnitMonth,
				SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-15",
			},
			after:    time.Date(2025, 1, 15, 9, 0, 0, 0, utc),
			expected: time.Date(2025, 3, 15, 9, 0, 0, 0, utc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextRun(&tt.campaign, tt.after)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, next.UTC())
		})
	}
}

func TestNextRun_EndDate(t *testing.T) {
	campaign := &models.RecurringCampaign{
		Periodicity: models.PeriodicityDaily,
		SendTime:    "09:00",
		Timezone:    "UTC",
		StartDate:   "2025-01-01",
		EndDate:     "2025-01-03",
	}

	next, err := NextRun(campaign, time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), next)

	_, err = NextRun(campaign, next)
	assert.ErrorIs(t, err, ErrNoNextRun)
}

func TestNextRun_InvalidCampaign(t *testing.T) {
	tests := []struct {
		name     string
		campaign models.RecurringCampaign
	}{
		{"unknown timezone", models.RecurringCampaign{Periodicity: models.PeriodicityDaily, SendTime: "09:00", Timezone: "Mars/Olympus", StartDate: "2025-01-01"}},
		{"bad send time", models.RecurringCampaign{Periodicity: models.PeriodicityDaily, SendTime: "9am", Timezone: "UTC", StartDate: "2025-01-01"}},
		{"bad start date", models.RecurringCampaign{Periodicity: models.PeriodicityDaily, SendTime: "09:00", Timezone: "UTC", StartDate: "01/01/2025"}},
		{"weekly without days", models.RecurringCampaign{Periodicity: models.PeriodicityWeekly, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01"}},
		{"custom without unit", models.RecurringCampaign{Periodicity: models.PeriodicityCustom, CustomIntervalValue: 1, SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01"}},
		{"unknown periodicity", models.RecurringCampaign{Periodicity: "hourly", SendTime: "09:00", Timezone: "UTC", StartDate: "2025-01-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NextRun(&tt.campaign, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
			assert.ErrorIs(t, err, ErrInvalidCampaign)
		})
	}
}

func TestRecurrence_UsesInjectedResolver(t *testing.T) {
	fixed := time.FixedZone("UTC-3", -3*60*60)

	recurrence := NewRecurrence(func(name string) (*time.Location, error) {
		assert.Equal(t, "Custom/Zone", name)

		return fixed, nil
	})

	campaign := &models.RecurringCampaign{
		Periodicity: models.PeriodicityDaily,
		SendTime:    "09:00",
		Timezone:    "Custom/Zone",
		StartDate:   "2025-01-01",
	}

	next, err := recurrence.NextRun(campaign, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), next.UTC())
}
