package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Client sends one instruction-plus-image message to a vision model and returns
// the raw text of the reply. Failures are reported as *common.InferenceError.
type Client interface {
	Complete(ctx context.Context, req entity.ExtractionRequest) (string, error)
}

// ResponseParser pulls the field mapping out of raw model output.
// Failures are reported as *common.ParseError.
type ResponseParser interface {
	Parse(raw string) (map[string]any, error)
}
