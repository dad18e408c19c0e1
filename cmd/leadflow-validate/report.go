package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dukex/leadflow/pkg/validation"
)

func printReport(w io.Writer, report *validation.Report, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(report)
	case "text", "":
		return printText(w, report)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func printText(w io.Writer, report *validation.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "BUCKET\tINPUT\tNUMBER\tDETAIL\n")

	for _, result := range report.Confirmed {
		fmt.Fprintf(tw, "confirmed\t%s\t%s\t%s\n", result.Contact.RawPhone, result.Contact.NormalizedPhone, result.MatchedNumber)
	}

	for _, result := range report.Rejected {
		fmt.Fprintf(tw, "rejected\t%s\t%s\t%s\n", result.Contact.RawPhone, result.Contact.NormalizedPhone, result.Reason)
	}

	for _, contact := range report.Invalid {
		fmt.Fprintf(tw, "invalid\t%s\t\t%s\n", contact.RawPhone, contact.ValidationError)
	}

	for _, contact := range report.Duplicates {
		fmt.Fprintf(tw, "duplicate\t%s\t%s\t\n", contact.RawPhone, contact.NormalizedPhone)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d confirmed, %d rejected, %d invalid, %d duplicates\n",
		len(report.Confirmed), len(report.Rejected), len(report.Invalid), len(report.Duplicates))
	if err != nil {
		return err
	}

	if report.Degraded {
		_, err = fmt.Fprintln(w, "warning: registry check unavailable, some numbers were accepted unconfirmed")
	}

	return err
}
