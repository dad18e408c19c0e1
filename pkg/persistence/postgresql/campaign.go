package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/lib/pq"
)

// CampaignRepository handles recurring campaign database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

const campaignColumns = `
	id
  , name
  , periodicity
  , days_of_week
  , day_of_month
  , custom_interval_value
  , custom_interval_unit
  , send_time
  , timezone
  , start_date
  , end_date
  , next_run_at
  , last_run_at
  , active
  , recipients
  , created_at
  , updated_at
`

func (r *CampaignRepository) GetAll(ctx context.Context) ([]*models.RecurringCampaign, error) {
	return r.query(ctx, "GetAll", "SELECT "+campaignColumns+" FROM campaigns ORDER BY created_at")
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.RecurringCampaign, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE id = $1", id)

	campaign, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("GetByID", "campaign", id, persistence.ErrCampaignNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "campaign", id, err)
	}

	return campaign, nil
}

func (r *CampaignRepository) Save(ctx context.Context, campaign *models.RecurringCampaign) error {
	days := campaign.DaysOfWeek
	if days == nil {
		days = []int{}
	}

	daysJSON, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("failed to marshal days of week: %w", err)
	}

	recipients := campaign.Recipients
	if recipients == nil {
		recipients = []string{}
	}

	query := `
		INSERT INTO campaigns (id, name, periodicity, days_of_week, day_of_month, custom_interval_value,
			custom_interval_unit, send_time, timezone, start_date, end_date, next_run_at, last_run_at,
			active, recipients, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			periodicity = EXCLUDED.periodicity,
			days_of_week = EXCLUDED.days_of_week,
			day_of_month = EXCLUDED.day_of_month,
			custom_interval_value = EXCLUDED.custom_interval_value,
			custom_interval_unit = EXCLUDED.custom_interval_unit,
			send_time = EXCLUDED.send_time,
			timezone = EXCLUDED.timezone,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			next_run_at = EXCLUDED.next_run_at,
			last_run_at = EXCLUDED.last_run_at,
			active = EXCLUDED.active,
			recipients = EXCLUDED.recipients,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		campaign.ID,
		campaign.Name,
		string(campaign.Periodicity),
		daysJSON,
		campaign.DayOfMonth,
		campaign.CustomIntervalValue,
		nullString(string(campaign.CustomIntervalUnit)),
		campaign.SendTime,
		campaign.Timezone,
		campaign.StartDate,
		nullString(campaign.EndDate),
		nullTime(campaign.NextRunAt),
		nullTime(campaign.LastRunAt),
		campaign.Active,
		pq.Array(recipients),
		campaign.CreatedAt.UTC(),
		campaign.UpdatedAt.UTC(),
	)
	if err != nil {
		return persistence.NewRecordError("Save", "campaign", campaign.ID, err)
	}

	return nil
}

// DueCampaigns returns active campaigns whose next run is at or before now, earliest first.
func (r *CampaignRepository) DueCampaigns(ctx context.Context, now time.Time) ([]*models.RecurringCampaign, error) {
	return r.query(ctx, "DueCampaigns",
		"SELECT "+campaignColumns+` FROM campaigns
		WHERE active AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at`, now.UTC())
}

func (r *CampaignRepository) query(ctx context.Context, op, query string, args ...any) ([]*models.RecurringCampaign, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRecordError(op, "campaign", "", err)
	}

	defer closeRows(ctx, r.logger, rows)

	campaigns := make([]*models.RecurringCampaign, 0)

	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, persistence.NewRecordError(op, "campaign", "", err)
		}

		campaigns = append(campaigns, campaign)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError(op, "campaign", "", err)
	}

	return campaigns, nil
}

func scanCampaign(row scanner) (*models.RecurringCampaign, error) {
	var (
		campaign     models.RecurringCampaign
		periodicity  string
		daysJSON     []byte
		intervalUnit sql.NullString
		endDate      sql.NullString
		nextRunAt    sql.NullTime
		lastRunAt    sql.NullTime
		recipients   pq.StringArray
	)

	err := row.Scan(
		&campaign.ID,
		&campaign.Name,
		&periodicity,
		&daysJSON,
		&campaign.DayOfMonth,
		&campaign.CustomIntervalValue,
		&intervalUnit,
		&campaign.SendTime,
		&campaign.Timezone,
		&campaign.StartDate,
		&endDate,
		&nextRunAt,
		&lastRunAt,
		&campaign.Active,
		&recipients,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(daysJSON, &campaign.DaysOfWeek); err != nil {
		return nil, fmt.Errorf("failed to unmarshal days of week: %w", err)
	}

	if len(campaign.DaysOfWeek) == 0 {
		campaign.DaysOfWeek = nil
	}

	if len(recipients) > 0 {
		campaign.Recipients = recipients
	}

	campaign.Periodicity = models.Periodicity(periodicity)
	campaign.CustomIntervalUnit = models.IntervalUnit(intervalUnit.String)
	campaign.EndDate = endDate.String
	campaign.NextRunAt = timePtr(nextRunAt)
	campaign.LastRunAt = timePtr(lastRunAt)

	return &campaign, nil
}
