package validation

import "github.com/dukex/leadflow/pkg/models"

// DefaultBatchSize is the maximum number of numbers sent to the registry per call.
const DefaultBatchSize = 50

// Partition splits normalized contacts into invalid ones, first occurrences of each
// canonical number (input order preserved) and later duplicates.
func Partition(contacts []models.Contact) (unique, invalid, duplicates []models.Contact) {
	seen := make(map[string]struct{}, len(contacts))

	for _, contact := range contacts {
		if !contact.Valid {
			invalid = append(invalid, contact)

			continue
		}

		if _, ok := seen[contact.NormalizedPhone]; ok {
			duplicates = append(duplicates, contact)

			continue
		}

		seen[contact.NormalizedPhone] = struct{}{}
		unique = append(unique, contact)
	}

	return unique, invalid, duplicates
}

// Batches splits items into consecutive chunks of at most size elements.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)

	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}

	return batches
}
