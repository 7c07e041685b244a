package pipeline

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

type EventKind int

const (
	// EventTransition: the document entered State.
	EventTransition EventKind = iota
	// EventAttemptFailed: attempt Attempt failed with Err.
	EventAttemptFailed
	// EventRetryScheduled: attempt Attempt+1 starts after Delay.
	EventRetryScheduled
	// EventImageRemoved: the page image of attempt Attempt was deleted.
	EventImageRemoved
)

// Event describes one step of a document through the pipeline.
type Event struct {
	Kind     EventKind
	Document string
	Attempt  int
	State    constants.AttemptState
	Err      error
	Delay    time.Duration
}

// Observer receives pipeline events. With more than one worker Observe is called
// from several goroutines.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// logObserver turns events into log lines; it is always installed.
type logObserver struct {
	logger *slog.Logger
}

func (o logObserver) Observe(e Event) {
	switch e.Kind {
	case EventAttemptFailed:
		o.logger.Warn("pipeline.attempt.failed",
			"document", e.Document, "attempt", e.Attempt,
			"kind", common.ErrorKind(e.Err), "error", e.Err)
	case EventRetryScheduled:
		o.logger.Info("pipeline.attempt.retrying",
			"document", e.Document, "next_attempt", e.Attempt+1,
			"delay_ms", e.Delay.Milliseconds())
	case EventImageRemoved:
		o.logger.Debug("pipeline.image.removed", "document", e.Document, "attempt", e.Attempt)
	case EventTransition:
		switch e.State {
		case constants.StateSucceeded:
			o.logger.Info("pipeline.document.succeeded", "document", e.Document, "attempts", e.Attempt)
		case constants.StateFailed:
			o.logger.Error("pipeline.document.failed",
				"document", e.Document, "attempts", e.Attempt, "error", e.Err)
		default:
			o.logger.Debug("pipeline.document.state", "document", e.Document, "attempt", e.Attempt, "state", string(e.State))
		}
	}
}
