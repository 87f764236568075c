// Package types provides shared type definitions for the agentdeck system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"    // Ready for work
	AgentRunning AgentStatus = "running" // Actively executing a task
	AgentPaused  AgentStatus = "paused"  // Paused by operator
	AgentError   AgentStatus = "error"   // Last task failed; needs reset or a new dispatch
)

// Agent is a managed autonomous worker to which tasks are dispatched.
type Agent struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	Framework     string       `json:"framework"` // Free-text label, e.g. "crewai", "langchain", "custom"
	Model         string       `json:"model,omitempty"`
	Status        AgentStatus  `json:"status"`
	CurrentTaskID *string      `json:"current_task_id,omitempty"` // Set only while Status == AgentRunning
	CreatedAt     time.Time    `json:"created_at"`
	LastActivity  *time.Time   `json:"last_activity,omitempty"`
	Config        AgentConfig  `json:"config"`
	Stats         AgentStats   `json:"stats"`
}

// NewAgent creates an idle agent with a fresh id.
func NewAgent(name, framework string) *Agent {
	return &Agent{
		ID:        uuid.NewString(),
		Name:      name,
		Framework: framework,
		Status:    AgentIdle,
		CreatedAt: time.Now().UTC(),
		Config:    AgentConfig{Environment: map[string]string{}},
	}
}

// AgentConfig holds per-agent configuration parameters.
type AgentConfig struct {
	Endpoint         string            `json:"endpoint,omitempty"`
	TimeoutSeconds   int               `json:"timeout_seconds,omitempty"`
	MaxRetries       int               `json:"max_retries,omitempty"`
	Environment      map[string]string `json:"environment"`
	RequiresApproval bool              `json:"requires_approval"`
	Tags             []string          `json:"tags,omitempty"`
}

// AgentStats tracks an agent's cumulative execution statistics.
type AgentStats struct {
	TasksCompleted     int   `json:"tasks_completed"`
	TasksFailed        int   `json:"tasks_failed"`
	AvgTaskDurationMS  int64 `json:"avg_task_duration_ms,omitempty"`
	TotalAPICalls      int   `json:"total_api_calls"`
	EstimatedCostCents int   `json:"estimated_cost_cents"`
}

// CreateAgentRequest is the payload for registering a new agent.
type CreateAgentRequest struct {
	Name        string       `json:"name" binding:"required"`
	Framework   string       `json:"framework" binding:"required"`
	Description string       `json:"description,omitempty"`
	Model       string       `json:"model,omitempty"`
	Config      *AgentConfig `json:"config,omitempty"`
}

// UpdateAgentRequest is a partial update; nil fields are left unchanged.
type UpdateAgentRequest struct {
	Name        *string      `json:"name,omitempty"`
	Description *string      `json:"description,omitempty"`
	Model       *string      `json:"model,omitempty"`
	Config      *AgentConfig `json:"config,omitempty"`
}
