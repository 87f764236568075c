package types

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an entry in the activity log.
type EventType string

const (
	EventStatusChange  EventType = "status_change"
	EventTaskStarted   EventType = "task_started"
	EventTaskCompleted EventType = "task_completed"
	EventTaskFailed    EventType = "task_failed"
	EventThoughtLog    EventType = "thought_log"
	EventDecisionTrace EventType = "decision_trace"
	EventAPICall       EventType = "api_call"
	EventError         EventType = "error"
	EventWarning       EventType = "warning"
	EventInfo          EventType = "info"
)

// ActivityEvent is an immutable, timestamped audit record of something that
// happened to an agent or task. Events are append-only and never mutated.
type ActivityEvent struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	TaskID    *string   `json:"task_id,omitempty"`
	Type      EventType `json:"event_type"`
	Summary   string    `json:"summary"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an activity event for an agent.
func NewEvent(agentID string, eventType EventType, summary string) *ActivityEvent {
	return &ActivityEvent{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Type:      eventType,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}
}

// WithTask associates the event with a task.
func (e *ActivityEvent) WithTask(taskID string) *ActivityEvent {
	e.TaskID = &taskID
	return e
}

// WithDetails attaches detail text to the event.
func (e *ActivityEvent) WithDetails(details string) *ActivityEvent {
	e.Details = details
	return e
}

// TaskEventType classifies a live execution notification.
type TaskEventType string

const (
	TaskEventStarted   TaskEventType = "started"
	TaskEventThought   TaskEventType = "thought"
	TaskEventProgress  TaskEventType = "progress"
	TaskEventAPICall   TaskEventType = "api_call"
	TaskEventCompleted TaskEventType = "completed"
	TaskEventFailed    TaskEventType = "failed"
)

// TaskEvent is a live notification emitted during task execution. It is a
// convenience for subscribers; the durable record is the activity log.
type TaskEvent struct {
	Type        TaskEventType `json:"type"`
	TaskID      string        `json:"task_id"`
	AgentID     string        `json:"agent_id,omitempty"`
	Message     string        `json:"message,omitempty"`
	Thought     string        `json:"thought,omitempty"`
	ProgressPct int           `json:"progress_pct,omitempty"`
	Endpoint    string        `json:"endpoint,omitempty"`
	DurationMS  int64         `json:"duration_ms,omitempty"`
	Result      string        `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// WebSocketMessage is the envelope for messages pushed to live subscribers.
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
