package validation

import (
	"strings"
	"testing"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryNormalizer_Canonical(t *testing.T) {
	normalizer := NewPrimaryNormalizer("")

	tests := []struct {
		name     string
		raw      string
		expected string
		reason   string
	}{
		{name: "formatted mobile", raw: "(11) 98765-4321", expected: "5511987654321"},
		{name: "landline", raw: "11 3456-7890", expected: "551134567890"},
		{name: "already prefixed", raw: "+55 11 98765-4321", expected: "5511987654321"},
		{name: "prefixed landline", raw: "551134567890", expected: "551134567890"},
		{name: "empty", raw: "  ", reason: ReasonEmpty},
		{name: "eight digits", raw: "3456-7890", reason: ReasonMissingAreaCode},
		{name: "nine digits", raw: "98765-4321", reason: ReasonMissingAreaCode},
		{name: "too short", raw: "12345", reason: ReasonOutOfRange},
		{name: "too long", raw: "55119876543210", reason: ReasonOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canonical, err := normalizer.Canonical(tt.raw)
			if tt.reason != "" {
				require.Error(t, err)
				assert.True(t, models.IsValidationError(err))

				var vErr *models.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.reason, vErr.Reason)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, canonical)
		})
	}
}

func TestPrimaryNormalizer_IsIdempotent(t *testing.T) {
	normalizer := NewPrimaryNormalizer("55")

	for _, raw := range []string{"(11) 98765-4321", "11 3456-7890", "+55 21 99999-0000"} {
		first, err := normalizer.Canonical(raw)
		require.NoError(t, err)

		second, err := normalizer.Canonical(first)
		require.NoError(t, err)
		assert.Equal(t, first, second, raw)
	}
}

func TestPrimaryNormalizer_CustomCountryCode(t *testing.T) {
	canonical, err := NewPrimaryNormalizer("54").Canonical("11 4321-5678")
	require.NoError(t, err)
	assert.Equal(t, "541143215678", canonical)
}

func TestRegionalNormalizer_Canonical(t *testing.T) {
	normalizer := NewRegionalNormalizer(nil)

	tests := []struct {
		name     string
		raw      string
		expected string
		reason   string
	}{
		{name: "brazil", raw: "+55 11 98765-4321", expected: "5511987654321"},
		{name: "argentina", raw: "+54 9 11 4321-5678", expected: "5491143215678"},
		{name: "bolivia three digit code", raw: "+591 7123 4567", expected: "59171234567"},
		{name: "mexico", raw: "+52 55 1234 5678", expected: "525512345678"},
		{name: "missing plus", raw: "5511987654321", reason: ReasonMissingPlus},
		{name: "outside region", raw: "+44 20 7946 0958", reason: ReasonCountryCode},
		{name: "north america", raw: "+1 212 555 0100", reason: ReasonCountryCode},
		{name: "national part too short", raw: "+55 1234", reason: ReasonNationalLength + " for country code +55"},
		{name: "empty", raw: "", reason: ReasonEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canonical, err := normalizer.Canonical(tt.raw)
			if tt.reason != "" {
				var vErr *models.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.reason, vErr.Reason)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, canonical)
		})
	}
}

func TestRegionalNormalizer_CustomWhitelist(t *testing.T) {
	normalizer := NewRegionalNormalizer([]string{"351"})

	canonical, err := normalizer.Canonical("+351 912 345 678")
	require.NoError(t, err)
	assert.Equal(t, "351912345678", canonical)

	_, err = normalizer.Canonical("+55 11 98765-4321")
	assert.True(t, models.IsValidationError(err))
}

func TestNormalize_FlagsContact(t *testing.T) {
	normalizer := NewPrimaryNormalizer("55")

	valid := Normalize(normalizer, models.Contact{RawPhone: "(11) 98765-4321", Name: "Ana"})
	assert.True(t, valid.Valid)
	assert.Equal(t, "5511987654321", valid.NormalizedPhone)
	assert.Equal(t, "Ana", valid.Name)
	assert.Empty(t, valid.ValidationError)

	invalid := Normalize(normalizer, models.Contact{RawPhone: "98765-4321"})
	assert.False(t, invalid.Valid)
	assert.Empty(t, invalid.NormalizedPhone)
	assert.Equal(t, ReasonMissingAreaCode, invalid.ValidationError)
}

func TestParseContacts(t *testing.T) {
	contacts := ParseContacts("(11) 98765-4321, Ana Souza\n\n  21 99999-0000\n11 3456-7890,Bruno\n")

	require.Len(t, contacts, 3)
	assert.Equal(t, models.Contact{RawPhone: "(11) 98765-4321", Name: "Ana Souza"}, contacts[0])
	assert.Equal(t, models.Contact{RawPhone: "21 99999-0000"}, contacts[1])
	assert.Equal(t, models.Contact{RawPhone: "11 3456-7890", Name: "Bruno"}, contacts[2])
}

func TestParseContacts_LongLineDoesNotDropFollowingLines(t *testing.T) {
	junk := strings.Repeat("x", 70*1024)
	input := "11 98765-4321\r\n" + junk + "\n21 99999-0000, Carla\r\n11 3456-7890\n"

	contacts := ParseContacts(input)

	require.Len(t, contacts, 4)
	assert.Equal(t, models.Contact{RawPhone: "11 98765-4321"}, contacts[0])
	assert.Equal(t, junk, contacts[1].RawPhone)
	assert.Equal(t, models.Contact{RawPhone: "21 99999-0000", Name: "Carla"}, contacts[2])
	assert.Equal(t, models.Contact{RawPhone: "11 3456-7890"}, contacts[3])
}

func TestPartitionAndBatches(t *testing.T) {
	normalizer := NewPrimaryNormalizer("55")

	var contacts []models.Contact
	for _, raw := range []string{"11 98765-4321", "+55 (11) 98765-4321", "123", "21 99999-0000"} {
		contacts = append(contacts, Normalize(normalizer, models.Contact{RawPhone: raw}))
	}

	unique, invalid, duplicates := Partition(contacts)
	require.Len(t, unique, 2)
	assert.Equal(t, "11 98765-4321", unique[0].RawPhone)
	assert.Equal(t, "21 99999-0000", unique[1].RawPhone)
	require.Len(t, invalid, 1)
	assert.Equal(t, "123", invalid[0].RawPhone)
	require.Len(t, duplicates, 1)
	assert.Equal(t, "+55 (11) 98765-4321", duplicates[0].RawPhone)

	batches := Batches([]int{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, batches)
	assert.Empty(t, Batches([]int{}, 2))
}
