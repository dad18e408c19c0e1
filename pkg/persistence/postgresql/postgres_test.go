package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/dukex/leadflow/pkg/persistence/postgresql"
	"github.com/dukex/leadflow/pkg/testutil"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

var tables = []string{"flows", "leads", "lead_tags", "callbacks", "notes", "executions", "campaigns", "schema_migrations"}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range tables {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("leadflow_test"),
			postgres.WithUsername("leadflow"),
			postgres.WithPassword("leadflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	var version int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	for _, table := range tables {
		var exists bool

		err := db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)", table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}

	// Running migrations again is a no-op.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	again, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))
}

func TestFlowRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.FlowRepository()

	flow := testutil.QualifiedOutreachFlow("flow-1")
	flow.CreatedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	flow.UpdatedAt = flow.CreatedAt

	require.NoError(t, repo.Save(ctx, flow))

	stored, err := repo.GetByID(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, flow.Name, stored.Name)
	require.Len(t, stored.Nodes, 4)
	require.Len(t, stored.Edges, 4)
	assert.Equal(t, models.BranchYes, stored.Edges[1].Branch)
	assert.Equal(t, "qualified", stored.Nodes[1].Config["stage_id"])

	flow.Name = "Renamed"
	require.NoError(t, repo.Save(ctx, flow))

	flows, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "Renamed", flows[0].Name)

	require.NoError(t, repo.Delete(ctx, "flow-1"))

	_, err = repo.GetByID(ctx, "flow-1")
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestExecutionRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ExecutionRepository()

	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	early := now.Add(-time.Hour)
	late := now.Add(time.Hour)

	executions := []*models.ExecutionInstance{
		{ID: "due-late", FlowID: "f", LeadID: "l1", CurrentNodeID: "wait", Status: models.ExecutionStatusWaiting, ResumeAt: &now},
		{ID: "due-early", FlowID: "f", LeadID: "l2", CurrentNodeID: "wait", Status: models.ExecutionStatusWaiting, ResumeAt: &early},
		{ID: "future", FlowID: "f", LeadID: "l3", CurrentNodeID: "wait", Status: models.ExecutionStatusWaiting, ResumeAt: &late},
		{ID: "done", FlowID: "other", LeadID: "l4", CurrentNodeID: "end", Status: models.ExecutionStatusCompleted, CompletedAt: &early},
	}

	for _, execution := range executions {
		execution.UpdatedAt = now
		require.NoError(t, repo.Save(ctx, execution))
	}

	due, err := repo.DueExecutions(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "due-early", due[0].ID)
	assert.Equal(t, "due-late", due[1].ID)

	byFlow, err := repo.GetByFlow(ctx, "f")
	require.NoError(t, err)
	assert.Len(t, byFlow, 3)

	stored, err := repo.GetByID(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Nil(t, stored.ResumeAt)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, early.Equal(*stored.CompletedAt))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestLeadRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.LeadRepository()

	lead := testutil.CreateTestLead(testutil.WithLeadID("lead-1"), testutil.WithField("score", 42.0))
	require.NoError(t, repo.SaveLead(ctx, lead))

	stored, err := repo.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, lead.Phone, stored.Phone)
	assert.InDelta(t, 42.0, stored.Fields["score"], 0)

	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.AddTag(ctx, &models.LeadTag{LeadID: "lead-1", TagID: "vip", CreatedAt: now}))
	require.NoError(t, repo.AddTag(ctx, &models.LeadTag{LeadID: "lead-1", TagID: "vip", CreatedAt: now}))

	tags, err := repo.Tags(ctx, "lead-1")
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	hasTag, err := repo.HasTag(ctx, "lead-1", "vip")
	require.NoError(t, err)
	assert.True(t, hasTag)

	require.NoError(t, repo.AddCallback(ctx, &models.CallbackEntry{
		ID: "cb-1", LeadID: "lead-1", Priority: "high", ScheduledAt: now, Status: models.CallbackStatusPending, CreatedAt: now,
	}))

	pending, err := repo.HasPendingCallback(ctx, "lead-1")
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, repo.AppendNote(ctx, &models.Note{ID: "n-1", LeadID: "lead-1", Author: models.NoteAuthorSystem, Body: "tagged", CreatedAt: now}))

	notes, err := repo.Notes(ctx, "lead-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "tagged", notes[0].Body)

	_, err = repo.GetLead(ctx, "ghost")
	assert.True(t, persistence.IsLeadNotFound(err))
}

func TestCampaignRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.CampaignRepository()

	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	later := now.Add(24 * time.Hour)

	due := testutil.CreateTestCampaign(func(c *models.RecurringCampaign) {
		c.ID = "due"
		c.Periodicity = models.PeriodicityWeekly
		c.DaysOfWeek = []int{1, 3}
		c.NextRunAt = &now
		c.Recipients = []string{"5511987654321"}
	})
	notDue := testutil.CreateTestCampaign(func(c *models.RecurringCampaign) {
		c.ID = "not-due"
		c.NextRunAt = &later
	})
	paused := testutil.CreateTestCampaign(func(c *models.RecurringCampaign) {
		c.ID = "paused"
		c.Active = false
		c.NextRunAt = &now
	})

	for _, campaign := range []*models.RecurringCampaign{due, notDue, paused} {
		require.NoError(t, repo.Save(ctx, campaign))
	}

	dueCampaigns, err := repo.DueCampaigns(ctx, now)
	require.NoError(t, err)
	require.Len(t, dueCampaigns, 1)
	assert.Equal(t, "due", dueCampaigns[0].ID)
	assert.Equal(t, []int{1, 3}, dueCampaigns[0].DaysOfWeek)
	assert.Equal(t, []string{"5511987654321"}, dueCampaigns[0].Recipients)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsCampaignNotFound(err))
}
