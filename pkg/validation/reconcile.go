package validation

import (
	"strings"

	"github.com/dukex/leadflow/pkg/models"
)

// Verdict reasons attached to reconciled results.
const (
	ReasonNotRegistered = "number is not registered on the channel"
	ReasonNotInResponse = "number missing from registry response"
	ReasonNoIndicator   = "registry record has no existence indicator"
	ReasonCheckSkipped  = "registry check unavailable, accepted without confirmation"
)

const (
	registryStatusValid  = "valid"
	registryStatusActive = "active"
)

// suffixLengths are the trailing-digit lengths used to match numbers the registry
// returned in a different format, longest first.
var suffixLengths = []int{11, 10, 9, 8}

var negativeStatuses = map[string]bool{
	"invalid":     true,
	"not_exists":  true,
	"nonexistent": true,
	"inactive":    true,
}

// Reconcile matches every contact of a batch against the registry records of that batch.
// Each contact gets exactly one verdict.
func Reconcile(contacts []models.Contact, records []RegistryRecord) []models.ReconciledResult {
	index := indexRecords(records)
	results := make([]models.ReconciledResult, 0, len(contacts))

	for _, contact := range contacts {
		match, ok := lookup(index, contact.NormalizedPhone)
		if !ok {
			results = append(results, models.ReconciledResult{
				Contact: contact,
				Reason:  ReasonNotInResponse,
			})

			continue
		}

		results = append(results, verdict(contact, match))
	}

	return results
}

type indexedRecord struct {
	number string
	record RegistryRecord
}

func indexRecords(records []RegistryRecord) map[string]indexedRecord {
	index := make(map[string]indexedRecord, len(records)*(len(suffixLengths)+1))

	numbers := make([]string, len(records))
	for i, record := range records {
		numbers[i] = recordNumber(record)
		if numbers[i] == "" {
			continue
		}

		if _, taken := index[numbers[i]]; !taken {
			index[numbers[i]] = indexedRecord{number: numbers[i], record: record}
		}
	}

	// Full numbers win over suffixes; among suffixes the first record wins.
	for i, record := range records {
		for _, n := range suffixLengths {
			if len(numbers[i]) <= n {
				continue
			}

			suffix := numbers[i][len(numbers[i])-n:]
			if _, taken := index[suffix]; !taken {
				index[suffix] = indexedRecord{number: numbers[i], record: record}
			}
		}
	}

	return index
}

func lookup(index map[string]indexedRecord, number string) (indexedRecord, bool) {
	if match, ok := index[number]; ok {
		return match, true
	}

	for _, n := range suffixLengths {
		if len(number) <= n {
			continue
		}

		if match, ok := index[number[len(number)-n:]]; ok {
			return match, true
		}
	}

	return indexedRecord{}, false
}

// recordNumber is the digit form of the record number, falling back to the JID user part.
func recordNumber(record RegistryRecord) string {
	if number := Digits(record.Number); number != "" {
		return number
	}

	user, _, _ := strings.Cut(record.JID, "@")

	return Digits(user)
}

func verdict(contact models.Contact, match indexedRecord) models.ReconciledResult {
	record := match.record
	status := strings.ToLower(strings.TrimSpace(record.Status))

	result := models.ReconciledResult{
		Contact:       contact,
		MatchedNumber: match.number,
	}

	switch {
	case isFalse(record.Exists), isFalse(record.HasWhatsApp), negativeStatuses[status]:
		result.Reason = ReasonNotRegistered
	case isTrue(record.Exists), isTrue(record.HasWhatsApp), record.JID != "",
		status == registryStatusValid, status == registryStatusActive:
		result.Confirmed = true
	default:
		result.Reason = ReasonNoIndicator
	}

	return result
}

func isTrue(value *bool) bool {
	return value != nil && *value
}

func isFalse(value *bool) bool {
	return value != nil && !*value
}
