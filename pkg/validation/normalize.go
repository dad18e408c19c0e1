package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/leadflow/pkg/models"
)

// DefaultCountryCode is the operating-country calling code prefixed onto local numbers.
const DefaultCountryCode = "55"

// Rejection reasons reported by the normalizers.
const (
	ReasonEmpty           = "empty phone number"
	ReasonMissingAreaCode = "missing area code"
	ReasonOutOfRange      = "number must have between 10 and 13 digits"
	ReasonMissingPlus     = "international number must start with +"
	ReasonCountryCode     = "country code is not supported"
	ReasonNationalLength  = "national number has an invalid length"
)

// Normalizer turns a raw phone string into its canonical digit form.
type Normalizer interface {
	// Canonical returns the canonical number or a *models.ValidationError.
	Canonical(raw string) (string, error)
}

// Normalize applies n to a parsed contact, flagging it instead of failing.
func Normalize(n Normalizer, contact models.Contact) models.Contact {
	canonical, err := n.Canonical(contact.RawPhone)
	if err != nil {
		contact.Valid = false
		contact.NormalizedPhone = ""
		contact.ValidationError = reasonOf(err)

		return contact
	}

	contact.Valid = true
	contact.NormalizedPhone = canonical
	contact.ValidationError = ""

	return contact
}

func reasonOf(err error) string {
	if vErr, ok := err.(*models.ValidationError); ok {
		return vErr.Reason
	}

	return err.Error()
}

// PrimaryNormalizer accepts 10 to 13 digit numbers of the operating country. Bare 10/11
// digit local numbers get the country code; 12/13 digit numbers are taken as prefixed.
type PrimaryNormalizer struct {
	CountryCode string
}

func NewPrimaryNormalizer(countryCode string) *PrimaryNormalizer {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	return &PrimaryNormalizer{CountryCode: countryCode}
}

func (n *PrimaryNormalizer) Canonical(raw string) (string, error) {
	digits := Digits(raw)

	switch length := len(digits); {
	case length == 0:
		return "", &models.ValidationError{Input: raw, Reason: ReasonEmpty}
	case length == 8 || length == 9:
		return "", &models.ValidationError{Input: raw, Reason: ReasonMissingAreaCode}
	case length == 10 || length == 11:
		return n.CountryCode + digits, nil
	case length == 12 || length == 13:
		return digits, nil
	default:
		return "", &models.ValidationError{Input: raw, Reason: ReasonOutOfRange}
	}
}

// LatinAmericaCountryCodes is the default whitelist of the regional normalizer.
var LatinAmericaCountryCodes = []string{
	"54",  // Argentina
	"591", // Bolivia
	"55",  // Brazil
	"56",  // Chile
	"57",  // Colombia
	"506", // Costa Rica
	"53",  // Cuba
	"593", // Ecuador
	"503", // El Salvador
	"502", // Guatemala
	"504", // Honduras
	"52",  // Mexico
	"505", // Nicaragua
	"507", // Panama
	"595", // Paraguay
	"51",  // Peru
	"598", // Uruguay
	"58",  // Venezuela
}

// E.164 bounds for the national part of an international number.
const (
	minNationalDigits = 6
	maxNationalDigits = 12
)

// RegionalNormalizer accepts only "+"-prefixed numbers whose country code is whitelisted.
type RegionalNormalizer struct {
	countryCodes []string
}

// NewRegionalNormalizer creates a normalizer for the given country codes. An empty list
// uses LatinAmericaCountryCodes.
func NewRegionalNormalizer(countryCodes []string) *RegionalNormalizer {
	if len(countryCodes) == 0 {
		countryCodes = LatinAmericaCountryCodes
	}

	codes := slices.Clone(countryCodes)

	// Longest codes first so "591" is tried before "59".
	slices.SortStableFunc(codes, func(a, b string) int {
		return len(b) - len(a)
	})

	return &RegionalNormalizer{countryCodes: codes}
}

func (n *RegionalNormalizer) Canonical(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &models.ValidationError{Input: raw, Reason: ReasonEmpty}
	}

	if !strings.HasPrefix(trimmed, "+") {
		return "", &models.ValidationError{Input: raw, Reason: ReasonMissingPlus}
	}

	digits := Digits(trimmed)

	for _, code := range n.countryCodes {
		if !strings.HasPrefix(digits, code) {
			continue
		}

		national := len(digits) - len(code)
		if national < minNationalDigits || national > maxNationalDigits {
			return "", &models.ValidationError{
				Input:  raw,
				Reason: fmt.Sprintf("%s for country code +%s", ReasonNationalLength, code),
			}
		}

		return digits, nil
	}

	return "", &models.ValidationError{Input: raw, Reason: ReasonCountryCode}
}

// Digits strips every non-digit rune.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}

		return -1
	}, s)
}
