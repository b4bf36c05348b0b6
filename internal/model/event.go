package model

import "time"

// EventKind identifies a pipeline event type. Consumers must tolerate
// unknown kinds: the set may grow without a protocol version bump.
type EventKind string

const (
	EventConnected        EventKind = "connected"
	EventPhaseStart       EventKind = "phase_start"
	EventPhaseComplete    EventKind = "phase_complete"
	EventPhaseSkip        EventKind = "phase_skip"
	EventToolResult       EventKind = "tool_result"
	EventPipelineComplete EventKind = "pipeline_complete"
	EventError            EventKind = "error"
)

// PipelineEvent is one entry in a run's ordered, append-only event sequence.
// Events are transient: they exist only for the duration of one run.
type PipelineEvent struct {
	Kind      EventKind      `json:"kind"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}
