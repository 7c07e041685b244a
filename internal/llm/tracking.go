package llm

import (
	"regexp"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// UPS tracking numbers: "1Z" followed by 16 uppercase alphanumerics.
var reTrackingNumber = regexp.MustCompile(`1Z[A-Z0-9]{16}`)

// ExtractTrackingNumber returns the first UPS tracking number found anywhere in raw,
// or constants.NoTrackingNumber.
func ExtractTrackingNumber(raw string) string {
	if m := reTrackingNumber.FindString(raw); m != "" {
		return m
	}
	return constants.NoTrackingNumber
}
