package ports

import (
	"context"
	"time"
)

// EventType names calibration lifecycle events.
type EventType string

const (
	EventRunStarted      EventType = "run.started"
	EventRunCompleted    EventType = "run.completed"
	EventRunFailed       EventType = "run.failed"
	EventRunCancelled    EventType = "run.cancelled"
	EventNodeInspected   EventType = "node.inspected"
	EventNodeCalibrating EventType = "node.calibrating"
	EventNodeCalibrated  EventType = "node.calibrated"
	EventNodeFailed      EventType = "node.failed"
)

// TopicCalibration carries every calibration event.
const TopicCalibration = "calibration.events"

// Event is a calibration lifecycle notification.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	RunID     string                 `json:"run_id"`
	Node      string                 `json:"node,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler consumes events.
type EventHandler func(ctx context.Context, event Event) error

// EventBus publishes and subscribes to events by topic.
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}
