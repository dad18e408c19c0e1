package services

import (
	"context"

	"github.com/dukex/leadflow/pkg/validation"
)

// Contacts validates phone lists and stores confirmed numbers as campaign recipients.
type Contacts struct {
	pipeline  *validation.Pipeline
	campaigns *Campaign
}

func NewContacts(pipeline *validation.Pipeline, campaigns *Campaign) *Contacts {
	return &Contacts{pipeline: pipeline, campaigns: campaigns}
}

// Validate runs free text ("phone[,name]" per line) through the validation pipeline.
func (s *Contacts) Validate(ctx context.Context, input string) (*validation.Report, error) {
	return s.pipeline.ValidateText(ctx, input)
}

// AddRecipients validates the list and appends the confirmed numbers to the campaign.
func (s *Contacts) AddRecipients(ctx context.Context, campaignID, input string) (*validation.Report, error) {
	if _, err := s.campaigns.FetchByID(ctx, campaignID); err != nil {
		return nil, err
	}

	report, err := s.pipeline.ValidateText(ctx, input)
	if err != nil {
		return nil, err
	}

	phones := make([]string, 0, len(report.Confirmed))
	for _, result := range report.Confirmed {
		phones = append(phones, result.Contact.NormalizedPhone)
	}

	if _, err := s.campaigns.AddRecipients(ctx, campaignID, phones); err != nil {
		return nil, err
	}

	return report, nil
}
