package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agentdeck/agentdeck/internal/core/dispatch"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/pkg/types"
)

// AgentHandler handles agent-related requests.
type AgentHandler struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(st *store.Store, dispatcher *dispatch.Dispatcher) *AgentHandler {
	return &AgentHandler{store: st, dispatcher: dispatcher}
}

// List returns all registered agents.
func (h *AgentHandler) List(c *gin.Context) {
	agents, err := h.store.ListAgents()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

// Create registers a new agent.
func (h *AgentHandler) Create(c *gin.Context) {
	var req types.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent := types.NewAgent(req.Name, req.Framework)
	agent.Description = req.Description
	agent.Model = req.Model
	if req.Config != nil {
		agent.Config = *req.Config
		if agent.Config.Environment == nil {
			agent.Config.Environment = map[string]string{}
		}
	}

	agent, err := h.store.CreateAgent(agent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, agent)
}

// Get retrieves an agent by id.
func (h *AgentHandler) Get(c *gin.Context) {
	agent, err := h.store.GetAgent(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Update applies a partial update to an agent. Status is not updatable
// here; it moves only through the dispatcher.
func (h *AgentHandler) Update(c *gin.Context) {
	var req types.UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent, err := h.store.GetAgent(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Description != nil {
		agent.Description = *req.Description
	}
	if req.Model != nil {
		agent.Model = *req.Model
	}
	if req.Config != nil {
		agent.Config = *req.Config
		if agent.Config.Environment == nil {
			agent.Config.Environment = map[string]string{}
		}
	}

	agent, err = h.store.UpdateAgent(agent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Delete removes an agent and its tasks.
func (h *AgentHandler) Delete(c *gin.Context) {
	if err := h.store.DeleteAgent(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetStatus applies an explicit status change.
func (h *AgentHandler) SetStatus(c *gin.Context) {
	var req struct {
		Status types.AgentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent, err := h.dispatcher.SetAgentStatus(c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Pause pauses an agent.
func (h *AgentHandler) Pause(c *gin.Context) {
	agent, err := h.dispatcher.Pause(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Resume resumes a paused agent.
func (h *AgentHandler) Resume(c *gin.Context) {
	agent, err := h.dispatcher.Resume(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Reset forces an agent back to idle.
func (h *AgentHandler) Reset(c *gin.Context) {
	agent, err := h.dispatcher.Reset(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// ListTasks returns the agent's tasks.
func (h *AgentHandler) ListTasks(c *gin.Context) {
	tasks, err := h.store.ListTasksForAgent(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// ListEvents returns the agent's activity events, newest first.
func (h *AgentHandler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	events, err := h.store.ListEventsForAgent(c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
