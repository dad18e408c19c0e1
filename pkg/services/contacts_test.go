package services

import (
	"log/slog"
	"testing"

	"github.com/dukex/leadflow/pkg/mocks"
	"github.com/dukex/leadflow/pkg/testutil"
	"github.com/dukex/leadflow/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestContacts_AddRecipientsKeepsConfirmedNumbers(t *testing.T) {
	campaigns, _, _ := newCampaignService(t)

	created, err := campaigns.Create(t.Context(), testutil.CreateTestCampaign())
	require.NoError(t, err)

	registry := &mocks.MockRegistry{}
	registry.On("Check", mock.Anything, []string{"5511987654321", "5521912345678"}).Return([]validation.RegistryRecord{
		{Number: "5511987654321", Exists: boolPtr(true), JID: "5511987654321@s.whatsapp.net"},
		{Number: "5521912345678", Exists: boolPtr(false)},
	}, nil).Once()

	pipeline := validation.NewPipeline(validation.NewPrimaryNormalizer(""), registry, slog.Default())
	service := NewContacts(pipeline, campaigns)

	report, err := service.AddRecipients(t.Context(), created.ID, "11987654321,Ana\n5521912345678\n123\n11987654321")
	require.NoError(t, err)

	assert.Len(t, report.Confirmed, 1)
	assert.Len(t, report.Rejected, 1)
	assert.Len(t, report.Invalid, 1)
	assert.Len(t, report.Duplicates, 1)

	stored, err := campaigns.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"5511987654321"}, stored.Recipients)

	registry.AssertExpectations(t)
}

func TestContacts_AddRecipientsUnknownCampaign(t *testing.T) {
	campaigns, _, _ := newCampaignService(t)

	registry := &mocks.MockRegistry{}
	service := NewContacts(validation.NewPipeline(validation.NewPrimaryNormalizer(""), registry, slog.Default()), campaigns)

	_, err := service.AddRecipients(t.Context(), "missing", "11987654321")
	require.ErrorIs(t, err, ErrCampaignNotFound)

	registry.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestContacts_RegistryFailureLeavesRecipientsUntouched(t *testing.T) {
	campaigns, _, _ := newCampaignService(t)

	created, err := campaigns.Create(t.Context(), testutil.CreateTestCampaign())
	require.NoError(t, err)

	registry := &mocks.MockRegistry{}
	registry.On("Check", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	service := NewContacts(validation.NewPipeline(validation.NewPrimaryNormalizer(""), registry, slog.Default()), campaigns)

	_, err = service.AddRecipients(t.Context(), created.ID, "11987654321")
	require.ErrorIs(t, err, assert.AnError)

	stored, err := campaigns.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Recipients)
}
