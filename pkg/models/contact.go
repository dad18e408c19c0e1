package models

// Contact is a destination phone number produced by a normalizer.
// NormalizedPhone is the canonical, country-code-prefixed digit string.
type Contact struct {
	RawPhone        string `json:"raw_phone"`
	Name            string `json:"name,omitempty"`
	NormalizedPhone string `json:"normalized_phone,omitempty"`
	Valid           bool   `json:"valid"`
	ValidationError string `json:"validation_error,omitempty"`
}

// ReconciledResult is the registry verdict for one contact.
type ReconciledResult struct {
	Contact   Contact `json:"contact"`
	Confirmed bool    `json:"confirmed"`
	// MatchedNumber is the registry number the contact was reconciled against, if any.
	MatchedNumber string `json:"matched_number,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
