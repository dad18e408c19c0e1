package mocks

import (
	"context"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockFlowRepository is a mock implementation of persistence.FlowRepository interface.
type MockFlowRepository struct {
	mock.Mock
}

func (m *MockFlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

func (m *MockFlowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionInstance), args.Error(1)
}

func (m *MockExecutionRepository) Save(ctx context.Context, execution *models.ExecutionInstance) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByFlow(ctx context.Context, flowID string) ([]*models.ExecutionInstance, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionInstance), args.Error(1)
}

func (m *MockExecutionRepository) DueExecutions(ctx context.Context, now time.Time) ([]*models.ExecutionInstance, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionInstance), args.Error(1)
}

// MockLeadRepository is a mock implementation of persistence.LeadRepository interface.
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) SaveLead(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)

	return args.Error(0)
}

func (m *MockLeadRepository) HasTag(ctx context.Context, leadID, tagID string) (bool, error) {
	args := m.Called(ctx, leadID, tagID)

	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) AddTag(ctx context.Context, tag *models.LeadTag) error {
	args := m.Called(ctx, tag)

	return args.Error(0)
}

func (m *MockLeadRepository) Tags(ctx context.Context, leadID string) ([]*models.LeadTag, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.LeadTag), args.Error(1)
}

func (m *MockLeadRepository) HasPendingCallback(ctx context.Context, leadID string) (bool, error) {
	args := m.Called(ctx, leadID)

	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) AddCallback(ctx context.Context, entry *models.CallbackEntry) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockLeadRepository) Callbacks(ctx context.Context, leadID string) ([]*models.CallbackEntry, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.CallbackEntry), args.Error(1)
}

func (m *MockLeadRepository) AppendNote(ctx context.Context, note *models.Note) error {
	args := m.Called(ctx, note)

	return args.Error(0)
}

func (m *MockLeadRepository) Notes(ctx context.Context, leadID string) ([]*models.Note, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Note), args.Error(1)
}

// MockCampaignRepository is a mock implementation of persistence.CampaignRepository interface.
type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) GetAll(ctx context.Context) ([]*models.RecurringCampaign, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.RecurringCampaign), args.Error(1)
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id string) (*models.RecurringCampaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.RecurringCampaign), args.Error(1)
}

func (m *MockCampaignRepository) Save(ctx context.Context, campaign *models.RecurringCampaign) error {
	args := m.Called(ctx, campaign)

	return args.Error(0)
}

func (m *MockCampaignRepository) DueCampaigns(ctx context.Context, now time.Time) ([]*models.RecurringCampaign, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.RecurringCampaign), args.Error(1)
}
