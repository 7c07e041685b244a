package llm

import (
	"testing"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

func TestExtractTrackingNumber(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"embedded in text", "Ship via UPS ground 1Z12345E0205271688 on 3/14", "1Z12345E0205271688"},
		{"first of several", "1Z999AA10123456784 then 1Z12345E0205271688", "1Z999AA10123456784"},
		{"inside json", `{"TRACKING_NUMBER": "1ZA1B2C3D4E5F6G7H8"}`, "1ZA1B2C3D4E5F6G7H8"},
		// the pattern takes exactly 16 characters after the prefix, so a longer run is cut at 18
		{"longer run is truncated", "...1Z12345D68905487401...", "1Z12345D6890548740"},
		{"absent", "no such code here", constants.NoTrackingNumber},
		{"too short", "1Z1234", constants.NoTrackingNumber},
		{"lowercase is not matched", "1z12345e0205271688", constants.NoTrackingNumber},
		{"empty", "", constants.NoTrackingNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTrackingNumber(tt.raw); got != tt.want {
				t.Errorf("ExtractTrackingNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}
