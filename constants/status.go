package constants

// AttemptState is the lifecycle state of one document inside the retrying pipeline.
type AttemptState string

const (
	StatePending     AttemptState = "PENDING"
	StateRasterizing AttemptState = "RASTERIZING"
	StateRequesting  AttemptState = "REQUESTING"
	StateParsing     AttemptState = "PARSING"
	StateSucceeded   AttemptState = "SUCCEEDED" // terminal
	StateFailed      AttemptState = "FAILED"    // terminal
)

// Terminal reports whether no further transitions are possible.
func (s AttemptState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
