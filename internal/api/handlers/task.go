package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentdeck/agentdeck/internal/core/dispatch"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/pkg/types"
)

// TaskHandler handles task-related requests.
type TaskHandler struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(st *store.Store, dispatcher *dispatch.Dispatcher) *TaskHandler {
	return &TaskHandler{store: st, dispatcher: dispatcher}
}

// List returns all tasks.
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.store.ListTasks()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// Get retrieves a task by id.
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.store.GetTask(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Dispatch admits a new task onto an agent.
func (h *TaskHandler) Dispatch(c *gin.Context) {
	var req types.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.dispatcher.Dispatch(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Execute runs a dispatched task. With ?async=true the call returns
// immediately and execution continues in the background.
func (h *TaskHandler) Execute(c *gin.Context) {
	id := c.Param("id")

	if c.Query("async") == "true" {
		h.dispatcher.ExecuteAsync(id)
		c.JSON(http.StatusAccepted, gin.H{"task_id": id, "status": "executing"})
		return
	}

	task, err := h.dispatcher.Execute(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Cancel cancels a pending or running task.
func (h *TaskHandler) Cancel(c *gin.Context) {
	task, err := h.dispatcher.Cancel(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
