package types

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// TaskPriority is the scheduling priority of a task.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Task is a unit of work with a natural-language instruction, owned by one agent.
type Task struct {
	ID          string       `json:"id"`
	AgentID     string       `json:"agent_id"`
	Title       string       `json:"title"`
	Instruction string       `json:"instruction"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Result      string       `json:"result,omitempty"` // Set only when Status == TaskCompleted
	Error       string       `json:"error,omitempty"`  // Set only when Status == TaskFailed
}

// NewTask creates a pending task with a fresh id and medium priority.
func NewTask(agentID, title, instruction string) *Task {
	return &Task{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		Title:       title,
		Instruction: instruction,
		Status:      TaskPending,
		Priority:    PriorityMedium,
		CreatedAt:   time.Now().UTC(),
	}
}

// DispatchRequest asks the dispatcher to admit a new task onto an agent.
type DispatchRequest struct {
	AgentID     string        `json:"agent_id" binding:"required"`
	Title       string        `json:"title" binding:"required"`
	Instruction string        `json:"instruction"`
	Priority    *TaskPriority `json:"priority,omitempty"`
}

// DispatchResponse is returned on successful admission.
type DispatchResponse struct {
	Task    *Task  `json:"task"`
	Message string `json:"message"`
}
