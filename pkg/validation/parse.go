// Package validation normalizes phone numbers and confirms their presence on a messaging
// channel through an external registry, in sequential fixed-size batches.
package validation

import (
	"strings"

	"github.com/dukex/leadflow/pkg/models"
)

// ParseContacts splits free text into contacts, one per line, each "phone[,name]".
// Blank lines are skipped; surrounding whitespace is trimmed. Lines have no length limit.
func ParseContacts(input string) []models.Contact {
	var contacts []models.Contact

	for line := range strings.SplitSeq(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		phone, name, _ := strings.Cut(line, ",")

		contacts = append(contacts, models.Contact{
			RawPhone: strings.TrimSpace(phone),
			Name:     strings.TrimSpace(name),
		})
	}

	return contacts
}
