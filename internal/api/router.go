// Package api provides the REST and websocket surface for agentdeck.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/api/handlers"
	"github.com/agentdeck/agentdeck/internal/broadcast"
	"github.com/agentdeck/agentdeck/internal/core/dispatch"
	"github.com/agentdeck/agentdeck/internal/crypto"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/pkg/types"
)

// wsWriteTimeout bounds a single websocket write.
const wsWriteTimeout = 10 * time.Second

// Router holds all API dependencies and routes.
type Router struct {
	engine      *gin.Engine
	broadcaster *broadcast.Broadcaster
	logger      *zap.Logger

	agents  *handlers.AgentHandler
	tasks   *handlers.TaskHandler
	events  *handlers.EventHandler
	storage *handlers.StorageHandler
	quick   *handlers.QuickHandler

	upgrader websocket.Upgrader

	wsClientsMu sync.RWMutex
	wsClients   map[*websocket.Conn]bool
}

// NewRouter creates the API router and starts forwarding broadcast events
// to websocket clients.
func NewRouter(
	st *store.Store,
	dispatcher *dispatch.Dispatcher,
	broadcaster *broadcast.Broadcaster,
	sealer *crypto.Sealer,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		engine:      gin.Default(),
		broadcaster: broadcaster,
		logger:      logger,
		agents:      handlers.NewAgentHandler(st, dispatcher),
		tasks:       handlers.NewTaskHandler(st, dispatcher),
		events:      handlers.NewEventHandler(st),
		storage:     handlers.NewStorageHandler(st, sealer),
		quick:       handlers.NewQuickHandler(st, dispatcher),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local control surface
			},
		},
		wsClients: make(map[*websocket.Conn]bool),
	}

	r.setupRoutes()

	if broadcaster != nil {
		go r.forwardTaskEvents()
	}

	return r
}

// setupRoutes configures all API routes.
func (r *Router) setupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/api/v1")
	{
		agents := v1.Group("/agents")
		{
			agents.GET("", r.agents.List)
			agents.POST("", r.agents.Create)
			agents.GET("/:id", r.agents.Get)
			agents.PUT("/:id", r.agents.Update)
			agents.DELETE("/:id", r.agents.Delete)
			agents.PUT("/:id/status", r.agents.SetStatus)
			agents.POST("/:id/pause", r.agents.Pause)
			agents.POST("/:id/resume", r.agents.Resume)
			agents.POST("/:id/reset", r.agents.Reset)
			agents.GET("/:id/tasks", r.agents.ListTasks)
			agents.GET("/:id/events", r.agents.ListEvents)
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", r.tasks.List)
			tasks.POST("/dispatch", r.tasks.Dispatch)
			tasks.GET("/:id", r.tasks.Get)
			tasks.POST("/:id/execute", r.tasks.Execute)
			tasks.POST("/:id/cancel", r.tasks.Cancel)
		}

		events := v1.Group("/events")
		{
			events.GET("", r.events.ListRecent)
			events.DELETE("", r.events.Clear)
		}

		storage := v1.Group("/storage")
		{
			storage.GET("/stats", r.storage.Stats)
			storage.GET("/export", r.storage.Export)
			storage.POST("/import", r.storage.Import)
			storage.POST("/reset", r.storage.Reset)
		}

		v1.POST("/command", r.quick.Execute)
	}

	r.engine.GET("/ws", r.handleWebSocket)
}

// Handler returns the HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) handleWebSocket(c *gin.Context) {
	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	r.wsClientsMu.Lock()
	r.wsClients[conn] = true
	r.wsClientsMu.Unlock()

	defer func() {
		r.wsClientsMu.Lock()
		delete(r.wsClients, conn)
		r.wsClientsMu.Unlock()
		conn.Close()
	}()

	// Keep reading so pings and close frames are processed; inbound
	// payloads are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// forwardTaskEvents pushes every broadcast task event to all connected
// websocket clients.
func (r *Router) forwardTaskEvents() {
	eventCh := r.broadcaster.Subscribe("api_forwarder")
	defer r.broadcaster.Unsubscribe("api_forwarder")

	for event := range eventCh {
		msg := types.WebSocketMessage{
			Type:    "task_event",
			Payload: event,
		}
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}

		r.wsClientsMu.RLock()
		for conn := range r.wsClients {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				r.logger.Debug("websocket write failed", zap.Error(err))
			}
		}
		r.wsClientsMu.RUnlock()
	}
}
