package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/revenue-sentinel/internal/model"
)

// Sink receives pipeline events in emission order. Emit returning an error
// stops the run's event stream; the pipeline will not retry a failed sink.
type Sink interface {
	Emit(ctx context.Context, event model.PipelineEvent) error
}

// Collector is a Sink that buffers events in memory, for tests and for the
// non-streaming CLI commands.
type Collector struct {
	events []model.PipelineEvent
}

// Emit appends the event to the buffer.
func (c *Collector) Emit(_ context.Context, event model.PipelineEvent) error {
	c.events = append(c.events, event)
	return nil
}

// Events returns the buffered events in emission order.
func (c *Collector) Events() []model.PipelineEvent {
	return c.events
}

// newEvent stamps a payload with its kind and emission time.
func newEvent(kind model.EventKind, payload map[string]any, now time.Time) model.PipelineEvent {
	return model.PipelineEvent{Kind: kind, Payload: payload, Timestamp: now}
}
