package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentdeck/agentdeck/internal/core/dispatch"
	"github.com/agentdeck/agentdeck/internal/core/pipeline"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/pkg/types"
)

// QuickHandler executes free-form console commands. Bad input degrades to
// a Success=false response so the console never sees a hard error for a
// typo.
type QuickHandler struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
}

// NewQuickHandler creates a new QuickHandler.
func NewQuickHandler(st *store.Store, dispatcher *dispatch.Dispatcher) *QuickHandler {
	return &QuickHandler{store: st, dispatcher: dispatcher}
}

// Execute parses and runs one quick command.
func (h *QuickHandler) Execute(c *gin.Context) {
	var req types.QuickCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.run(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *QuickHandler) run(req *types.QuickCommandRequest) (*types.QuickCommandResponse, error) {
	parts := strings.Fields(req.Command)
	if len(parts) == 0 {
		return failure("No command provided"), nil
	}

	verb := strings.ToLower(parts[0])
	switch verb {
	case "status", "list":
		agents, err := h.store.ListAgents()
		if err != nil {
			return nil, err
		}
		summaries := make([]string, len(agents))
		for i, a := range agents {
			summaries[i] = fmt.Sprintf("%s: %s", a.Name, a.Status)
		}
		return &types.QuickCommandResponse{
			Success: true,
			Message: fmt.Sprintf("%d agents: %s", len(agents), strings.Join(summaries, ", ")),
			Data:    agents,
		}, nil

	case "pause":
		return h.agentCommand(req, func(id string) (*types.Agent, error) {
			return h.dispatcher.Pause(id)
		}, "Agent %s paused")

	case "resume":
		return h.agentCommand(req, func(id string) (*types.Agent, error) {
			return h.dispatcher.Resume(id)
		}, "Agent %s resumed")

	case "reset":
		return h.agentCommand(req, func(id string) (*types.Agent, error) {
			return h.dispatcher.Reset(id)
		}, "Agent %s reset to idle")

	case "run", "dispatch":
		if len(parts) < 2 {
			return failure("Usage: run <task instruction>"), nil
		}
		if req.AgentID == nil {
			return failure("No agent selected"), nil
		}
		instruction := strings.Join(parts[1:], " ")
		resp, err := h.dispatcher.Dispatch(&types.DispatchRequest{
			AgentID:     *req.AgentID,
			Title:       "Quick task: " + pipeline.Truncate(instruction, 30),
			Instruction: instruction,
		})
		if err != nil {
			return nil, err
		}
		return &types.QuickCommandResponse{
			Success: true,
			Message: resp.Message,
			Data:    resp.Task,
		}, nil

	case "help":
		return &types.QuickCommandResponse{
			Success: true,
			Message: "Available commands: status, list, pause, resume, reset, run <instruction>, help",
		}, nil

	default:
		return failure(fmt.Sprintf("Unknown command: %s. Type 'help' for available commands.", verb)), nil
	}
}

// agentCommand runs an agent-scoped verb, degrading to a failure response
// when no agent is selected.
func (h *QuickHandler) agentCommand(req *types.QuickCommandRequest, op func(string) (*types.Agent, error), format string) (*types.QuickCommandResponse, error) {
	if req.AgentID == nil {
		return failure("No agent selected"), nil
	}
	agent, err := op(*req.AgentID)
	if err != nil {
		return nil, err
	}
	return &types.QuickCommandResponse{
		Success: true,
		Message: fmt.Sprintf(format, agent.Name),
		Data:    agent,
	}, nil
}

func failure(message string) *types.QuickCommandResponse {
	return &types.QuickCommandResponse{Success: false, Message: message}
}
