package validation_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/leadflow/pkg/mocks"
	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// echoRegistry confirms every number it is asked about, except the ones in missing.
type echoRegistry struct {
	batches [][]string
	missing map[string]bool
}

func (r *echoRegistry) Check(_ context.Context, numbers []string) ([]validation.RegistryRecord, error) {
	r.batches = append(r.batches, numbers)

	records := make([]validation.RegistryRecord, 0, len(numbers))
	for _, number := range numbers {
		exists := !r.missing[number]
		records = append(records, validation.RegistryRecord{Number: number, Exists: &exists})
	}

	return records, nil
}

func generateContacts(n int) []models.Contact {
	contacts := make([]models.Contact, n)
	for i := range n {
		contacts[i] = models.Contact{RawPhone: fmt.Sprintf("(11) 9%04d-%04d", 1000+i, i)}
	}

	return contacts
}

func newPipeline(registry validation.Registry) *validation.Pipeline {
	return validation.NewPipeline(validation.NewPrimaryNormalizer("55"), registry, slog.Default())
}

func TestPipeline_BatchesSequentially(t *testing.T) {
	registry := &echoRegistry{}

	report, err := newPipeline(registry).Validate(t.Context(), generateContacts(120))
	require.NoError(t, err)

	require.Len(t, registry.batches, 3)
	assert.Len(t, registry.batches[0], 50)
	assert.Len(t, registry.batches[1], 50)
	assert.Len(t, registry.batches[2], 20)

	assert.Equal(t, 3, report.RegistryCalls)
	assert.Len(t, report.Confirmed, 120)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, 120, report.Total())
	assert.False(t, report.Degraded)
}

func TestPipeline_CustomBatchSize(t *testing.T) {
	registry := &echoRegistry{}

	pipeline := validation.NewPipeline(validation.NewPrimaryNormalizer("55"), registry, slog.Default(),
		validation.WithBatchSize(40))

	_, err := pipeline.Validate(t.Context(), generateContacts(100))
	require.NoError(t, err)

	require.Len(t, registry.batches, 3)
	assert.Len(t, registry.batches[2], 20)
}

func TestPipeline_EveryContactInExactlyOneBucket(t *testing.T) {
	registry := &echoRegistry{missing: map[string]bool{"5521999990000": true}}

	report, err := newPipeline(registry).ValidateText(t.Context(),
		"(11) 98765-4321, Ana\n+55 11 98765-4321\n21 99999-0000\n98765-4321\n")
	require.NoError(t, err)

	require.Len(t, report.Confirmed, 1)
	assert.Equal(t, "Ana", report.Confirmed[0].Contact.Name)

	require.Len(t, report.Rejected, 1)
	assert.Equal(t, validation.ReasonNotRegistered, report.Rejected[0].Reason)

	require.Len(t, report.Invalid, 1)
	assert.Equal(t, validation.ReasonMissingAreaCode, report.Invalid[0].ValidationError)

	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, "+55 11 98765-4321", report.Duplicates[0].RawPhone)

	assert.Equal(t, 4, report.Total())
	require.Len(t, registry.batches, 1)
	assert.Equal(t, []string{"5511987654321", "5521999990000"}, registry.batches[0])
}

func TestPipeline_ExplicitNonExistentIsRejected(t *testing.T) {
	registry := &mocks.MockRegistry{}

	exists := false
	registry.On("Check", mock.Anything, []string{"5511987654321"}).
		Return([]validation.RegistryRecord{{
			Number: "5511987654321",
			JID:    "5511987654321@s.whatsapp.net",
			Exists: &exists,
		}}, nil)

	report, err := newPipeline(registry).Validate(t.Context(), []models.Contact{{RawPhone: "11987654321"}})
	require.NoError(t, err)

	assert.Empty(t, report.Confirmed)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, validation.ReasonNotRegistered, report.Rejected[0].Reason)
	registry.AssertExpectations(t)
}

func TestPipeline_UnsupportedRegistryDegradesOpen(t *testing.T) {
	registry := &mocks.MockRegistry{}
	registry.On("Check", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: status 501", models.ErrMethodNotSupported)).Once()

	report, err := newPipeline(registry).Validate(t.Context(), generateContacts(75))
	require.NoError(t, err)

	assert.True(t, report.Degraded)
	assert.Equal(t, 1, report.RegistryCalls)
	assert.Len(t, report.Confirmed, 75)
	assert.Equal(t, validation.ReasonCheckSkipped, report.Confirmed[0].Reason)
	registry.AssertNumberOfCalls(t, "Check", 1)
}

func TestPipeline_KeepsVerdictsBeforeDegrading(t *testing.T) {
	registry := &mocks.MockRegistry{}

	exists := false
	registry.On("Check", mock.Anything, mock.Anything).
		Return(func() []validation.RegistryRecord {
			records := make([]validation.RegistryRecord, 0, 50)
			for i := range 50 {
				records = append(records, validation.RegistryRecord{
					Number: fmt.Sprintf("55119%04d%04d", 1000+i, i),
					Exists: &exists,
				})
			}

			return records
		}(), nil).Once()
	registry.On("Check", mock.Anything, mock.Anything).
		Return(nil, models.ErrMethodNotSupported).Once()

	report, err := newPipeline(registry).Validate(t.Context(), generateContacts(60))
	require.NoError(t, err)

	assert.True(t, report.Degraded)
	assert.Len(t, report.Rejected, 50)
	assert.Len(t, report.Confirmed, 10)
}

func TestPipeline_OtherRegistryErrorsPropagate(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "timeout", err: models.NewTimeoutError("registry", context.DeadlineExceeded), check: models.IsTimeout},
		{name: "transport", err: models.NewTransportError("registry", errors.New("connection refused")), check: models.IsTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mocks.MockRegistry{}
			registry.On("Check", mock.Anything, mock.Anything).Return(nil, tt.err)

			report, err := newPipeline(registry).Validate(t.Context(), generateContacts(3))
			require.Error(t, err)
			assert.Nil(t, report)
			assert.True(t, tt.check(err))
			assert.NotErrorIs(t, err, models.ErrMethodNotSupported)
		})
	}
}

func TestPipeline_UnavailableRegistryDoesNotDegrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Service temporarily not available", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	registry := validation.NewHTTPRegistry(server.URL, "sales", "secret")

	report, err := newPipeline(registry).ValidateText(t.Context(), "(11) 98765-4321\n(21) 99999-0000")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, models.IsTransport(err))
	assert.NotErrorIs(t, err, models.ErrMethodNotSupported)
}

func TestPipeline_NoValidContactsSkipsRegistry(t *testing.T) {
	registry := &mocks.MockRegistry{}

	report, err := newPipeline(registry).Validate(t.Context(), []models.Contact{{RawPhone: "123"}})
	require.NoError(t, err)

	assert.Equal(t, 0, report.RegistryCalls)
	assert.Len(t, report.Invalid, 1)
	registry.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}
