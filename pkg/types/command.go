package types

// QuickCommandRequest is a free-form console command, optionally scoped to
// an agent.
type QuickCommandRequest struct {
	Command string  `json:"command" binding:"required"`
	AgentID *string `json:"agent_id,omitempty"`
}

// QuickCommandResponse reports the outcome of a quick command. Unknown
// verbs and missing agent selection yield Success=false, not an error.
type QuickCommandResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
