package handlers

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/broadcast"
	"github.com/agentdeck/agentdeck/internal/core/dispatch"
	"github.com/agentdeck/agentdeck/internal/core/pipeline"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/pkg/types"
)

func newQuickHandler(t *testing.T) (*QuickHandler, *store.Store) {
	t.Helper()
	st := store.NewStore(filepath.Join(t.TempDir(), "test.db"), 0, zap.NewNop())
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })

	d := dispatch.NewDispatcher(st, broadcast.NewBroadcaster(nil), pipeline.NewSimulator(0), zap.NewNop())
	return NewQuickHandler(st, d), st
}

func TestQuickCommandStatus(t *testing.T) {
	h, st := newQuickHandler(t)

	_, err := st.CreateAgent(types.NewAgent("Reviewer", "custom"))
	require.NoError(t, err)

	resp, err := h.run(&types.QuickCommandRequest{Command: "status"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "1 agents")
	assert.Contains(t, resp.Message, "Reviewer: idle")

	t.Run("list is an alias", func(t *testing.T) {
		resp, err := h.run(&types.QuickCommandRequest{Command: "LIST"})
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})
}

func TestQuickCommandAgentVerbs(t *testing.T) {
	h, st := newQuickHandler(t)

	agent, err := st.CreateAgent(types.NewAgent("worker", "custom"))
	require.NoError(t, err)

	t.Run("pause then resume", func(t *testing.T) {
		resp, err := h.run(&types.QuickCommandRequest{Command: "pause", AgentID: &agent.ID})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "Agent worker paused", resp.Message)

		resp, err = h.run(&types.QuickCommandRequest{Command: "resume", AgentID: &agent.ID})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "Agent worker resumed", resp.Message)
	})

	t.Run("reset", func(t *testing.T) {
		resp, err := h.run(&types.QuickCommandRequest{Command: "reset", AgentID: &agent.ID})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "Agent worker reset to idle", resp.Message)
	})

	t.Run("no agent selected degrades", func(t *testing.T) {
		for _, cmd := range []string{"pause", "resume", "reset"} {
			resp, err := h.run(&types.QuickCommandRequest{Command: cmd})
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.Equal(t, "No agent selected", resp.Message)
		}
	})

	t.Run("operation errors still surface", func(t *testing.T) {
		_, err := h.run(&types.QuickCommandRequest{Command: "resume", AgentID: &agent.ID})
		assert.Equal(t, types.KindAgentNotAvailable, types.KindOf(err))
	})
}

func TestQuickCommandRun(t *testing.T) {
	h, st := newQuickHandler(t)

	agent, err := st.CreateAgent(types.NewAgent("worker", "custom"))
	require.NoError(t, err)

	t.Run("dispatches with derived title", func(t *testing.T) {
		resp, err := h.run(&types.QuickCommandRequest{
			Command: "run analyze the logs",
			AgentID: &agent.ID,
		})
		require.NoError(t, err)
		assert.True(t, resp.Success)

		task, ok := resp.Data.(*types.Task)
		require.True(t, ok)
		assert.Equal(t, "Quick task: analyze the logs", task.Title)
		assert.Equal(t, "analyze the logs", task.Instruction)
	})

	t.Run("missing instruction", func(t *testing.T) {
		resp, err := h.run(&types.QuickCommandRequest{Command: "run", AgentID: &agent.ID})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "Usage: run <task instruction>", resp.Message)
	})

	t.Run("no agent selected", func(t *testing.T) {
		resp, err := h.run(&types.QuickCommandRequest{Command: "run do something"})
		require.NoError(t, err)
		assert.False(t, resp.Success)
	})
}

func TestQuickCommandHelpAndUnknown(t *testing.T) {
	h, _ := newQuickHandler(t)

	resp, err := h.run(&types.QuickCommandRequest{Command: "help"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "run <instruction>")

	resp, err = h.run(&types.QuickCommandRequest{Command: "frobnicate now"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Unknown command: frobnicate")

	resp, err = h.run(&types.QuickCommandRequest{Command: "   "})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "No command provided", resp.Message)
}
