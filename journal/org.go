package journal

import (
	"fmt"
	"strings"
)

// FormatEventOrg renders an EventRecord as an Org-mode block. Structured
// facts go into a PROPERTIES drawer for easy search.
func FormatEventOrg(e EventRecord) string {
	heading := fmt.Sprintf("** %s %s (%s)", strings.ToUpper(e.Type), e.Instrument, shortID(e.EventID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":EVENT_ID: %s\n", e.EventID))
	b.WriteString(fmt.Sprintf(":RUN_ID: %s\n", e.RunID))
	if e.PositionID != "" {
		b.WriteString(fmt.Sprintf(":POSITION_ID: %s\n", e.PositionID))
	}
	b.WriteString(fmt.Sprintf(":DATE: %s\n", day(e.Date)))
	if e.Instrument != "spot" {
		b.WriteString(fmt.Sprintf(":STRIKE: %.2f\n", e.Strike))
		b.WriteString(fmt.Sprintf(":EXPIRATION: %s\n", day(e.Expiration)))
	}
	b.WriteString(fmt.Sprintf(":QUANTITY: %.4f\n", e.Quantity))
	b.WriteString(fmt.Sprintf(":PRICE: %.2f\n", e.Price))
	b.WriteString(fmt.Sprintf(":SPOT: %.2f\n", e.Spot))
	b.WriteString(fmt.Sprintf(":CASH_EFFECT: %.2f\n", e.CashEffect))
	b.WriteString(fmt.Sprintf(":ASSET_EFFECT: %.4f\n", e.AssetEffect))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", e.Reason))
	b.WriteString(":END:\n")

	return b.String()
}

// FormatEventsOrg renders multiple events separated by blank lines.
func FormatEventsOrg(events []EventRecord) string {
	var b strings.Builder
	for i, e := range events {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatEventOrg(e))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
