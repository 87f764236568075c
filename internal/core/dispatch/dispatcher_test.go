package dispatch

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/broadcast"
	"github.com/agentdeck/agentdeck/internal/core/pipeline"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/pkg/types"
)

type fixture struct {
	store       *store.Store
	broadcaster *broadcast.Broadcaster
	dispatcher  *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewStore(filepath.Join(t.TempDir(), "test.db"), 0, zap.NewNop())
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })

	bc := broadcast.NewBroadcaster(nil)
	d := NewDispatcher(st, bc, pipeline.NewSimulator(0), zap.NewNop())
	return &fixture{store: st, broadcaster: bc, dispatcher: d}
}

func (f *fixture) createAgent(t *testing.T, name string) *types.Agent {
	t.Helper()
	agent, err := f.store.CreateAgent(types.NewAgent(name, "custom"))
	require.NoError(t, err)
	return agent
}

func (f *fixture) dispatch(t *testing.T, agentID, title, instruction string) *types.Task {
	t.Helper()
	resp, err := f.dispatcher.Dispatch(&types.DispatchRequest{
		AgentID:     agentID,
		Title:       title,
		Instruction: instruction,
	})
	require.NoError(t, err)
	return resp.Task
}

func (f *fixture) eventTypes(t *testing.T, agentID string) []types.EventType {
	t.Helper()
	events, err := f.store.ListEventsForAgent(agentID, 0)
	require.NoError(t, err)
	// Newest first from the store; reverse into chronological order.
	out := make([]types.EventType, len(events))
	for i, e := range events {
		out[len(events)-1-i] = e.Type
	}
	return out
}

func TestDispatch(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")

	events := f.broadcaster.Subscribe("test")
	defer f.broadcaster.Unsubscribe("test")

	resp, err := f.dispatcher.Dispatch(&types.DispatchRequest{
		AgentID:     agent.ID,
		Title:       "T1",
		Instruction: "analyze the logs",
	})
	require.NoError(t, err)
	assert.Equal(t, "Task dispatched successfully", resp.Message)
	assert.Equal(t, types.TaskPending, resp.Task.Status)
	assert.Equal(t, types.PriorityMedium, resp.Task.Priority)

	got, err := f.store.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AgentRunning, got.Status)
	require.NotNil(t, got.CurrentTaskID)
	assert.Equal(t, resp.Task.ID, *got.CurrentTaskID)
	assert.NotNil(t, got.LastActivity)

	assert.Equal(t, []types.EventType{types.EventTaskStarted}, f.eventTypes(t, agent.ID))

	live := <-events
	assert.Equal(t, types.TaskEventStarted, live.Type)
	assert.Equal(t, resp.Task.ID, live.TaskID)
}

func TestDispatchRejections(t *testing.T) {
	f := newFixture(t)

	t.Run("missing agent", func(t *testing.T) {
		_, err := f.dispatcher.Dispatch(&types.DispatchRequest{
			AgentID: "missing", Title: "T", Instruction: "x",
		})
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})

	t.Run("running agent", func(t *testing.T) {
		agent := f.createAgent(t, "busy")
		f.dispatch(t, agent.ID, "T1", "first task")

		_, err := f.dispatcher.Dispatch(&types.DispatchRequest{
			AgentID: agent.ID, Title: "T2", Instruction: "second task",
		})
		assert.Equal(t, types.KindAgentNotAvailable, types.KindOf(err))
	})

	t.Run("blank instruction", func(t *testing.T) {
		agent := f.createAgent(t, "idle")
		_, err := f.dispatcher.Dispatch(&types.DispatchRequest{
			AgentID: agent.ID, Title: "T", Instruction: "   ",
		})
		assert.Equal(t, types.KindInvalidInput, types.KindOf(err))

		tasks, err := f.store.ListTasksForAgent(agent.ID)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("paused agent accepts work", func(t *testing.T) {
		agent := f.createAgent(t, "paused")
		_, err := f.dispatcher.Pause(agent.ID)
		require.NoError(t, err)

		f.dispatch(t, agent.ID, "T", "do it")
	})

	t.Run("error agent accepts work", func(t *testing.T) {
		agent := f.createAgent(t, "errored")
		task := f.dispatch(t, agent.ID, "T1", "doomed")
		_, err := f.dispatcher.Fail(task.ID, "boom")
		require.NoError(t, err)

		f.dispatch(t, agent.ID, "T2", "retry")
	})

	t.Run("custom priority honored", func(t *testing.T) {
		agent := f.createAgent(t, "prio")
		high := types.PriorityHigh
		resp, err := f.dispatcher.Dispatch(&types.DispatchRequest{
			AgentID: agent.ID, Title: "T", Instruction: "x", Priority: &high,
		})
		require.NoError(t, err)
		assert.Equal(t, types.PriorityHigh, resp.Task.Priority)
	})
}

func TestExecuteCompletesTask(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")
	task := f.dispatch(t, agent.ID, "T1", "analyze the request logs")

	done, err := f.dispatcher.Execute(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskCompleted, done.Status)
	assert.Contains(t, done.Result, "Analysis complete")
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)

	got, err := f.store.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AgentIdle, got.Status)
	assert.Nil(t, got.CurrentTaskID)
	assert.Equal(t, 1, got.Stats.TasksCompleted)
	assert.Equal(t, 0, got.Stats.TasksFailed)
	assert.Equal(t, 1, got.Stats.TotalAPICalls)
	assert.Equal(t, 5, got.Stats.EstimatedCostCents)

	assert.Equal(t, []types.EventType{
		types.EventTaskStarted,
		types.EventThoughtLog,
		types.EventThoughtLog,
		types.EventThoughtLog,
		types.EventThoughtLog,
		types.EventThoughtLog,
		types.EventAPICall,
		types.EventTaskCompleted,
	}, f.eventTypes(t, agent.ID))
}

func TestExecuteBroadcastsLiveEvents(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")
	task := f.dispatch(t, agent.ID, "T1", "summarize the notes")

	events := f.broadcaster.Subscribe("test")
	defer f.broadcaster.Unsubscribe("test")

	_, err := f.dispatcher.Execute(task.ID)
	require.NoError(t, err)

	var got []types.TaskEventType
	var lastProgress int
	for len(events) > 0 {
		e := <-events
		got = append(got, e.Type)
		if e.Type == types.TaskEventProgress {
			assert.Greater(t, e.ProgressPct, lastProgress)
			lastProgress = e.ProgressPct
		}
		if e.Type == types.TaskEventAPICall {
			assert.Equal(t, "/v1/chat/completions", e.Endpoint)
			assert.Equal(t, int64(1200), e.DurationMS)
		}
	}

	// Five thought/progress pairs, one API call, one completion.
	assert.Equal(t, []types.TaskEventType{
		types.TaskEventThought, types.TaskEventProgress,
		types.TaskEventThought, types.TaskEventProgress,
		types.TaskEventThought, types.TaskEventProgress,
		types.TaskEventThought, types.TaskEventProgress,
		types.TaskEventThought, types.TaskEventProgress,
		types.TaskEventAPICall,
		types.TaskEventCompleted,
	}, got)
	assert.Equal(t, 80, lastProgress)
}

func TestExecuteRejectsNonPendingTask(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")
	task := f.dispatch(t, agent.ID, "T1", "do it")

	_, err := f.dispatcher.Execute(task.ID)
	require.NoError(t, err)

	_, err = f.dispatcher.Execute(task.ID)
	assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
}

// cancellingBackend cancels the task from inside the first pacing pause,
// exercising the cooperative abort path deterministically.
type cancellingBackend struct {
	*pipeline.Simulator
	dispatcher *Dispatcher
	taskID     string
	cancelled  bool
}

func (b *cancellingBackend) StepDelay() time.Duration {
	if !b.cancelled {
		b.cancelled = true
		if _, err := b.dispatcher.Cancel(b.taskID); err != nil {
			panic(err)
		}
	}
	return 0
}

func TestExecuteAbortsWhenTaskCancelled(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")
	task := f.dispatch(t, agent.ID, "T1", "long running work")

	backend := &cancellingBackend{
		Simulator:  pipeline.NewSimulator(0),
		dispatcher: f.dispatcher,
		taskID:     task.ID,
	}
	d := NewDispatcher(f.store, f.broadcaster, backend, zap.NewNop())

	got, err := d.Execute(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskCancelled, got.Status)

	// The remaining pipeline steps did not run.
	eventTypes := f.eventTypes(t, agent.ID)
	assert.NotContains(t, eventTypes, types.EventAPICall)
	assert.NotContains(t, eventTypes, types.EventTaskCompleted)

	final, err := f.store.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AgentIdle, final.Status)
	assert.Equal(t, 0, final.Stats.TasksCompleted)
}

func TestExecuteAsync(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")
	task := f.dispatch(t, agent.ID, "T1", "verify checksums")

	f.dispatcher.ExecuteAsync(task.ID)
	f.dispatcher.Wait()

	done, err := f.store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskCompleted, done.Status)
	assert.Contains(t, done.Result, "Testing complete")
}

func TestFail(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")
	task := f.dispatch(t, agent.ID, "T1", "doomed work")

	failed, err := f.dispatcher.Fail(task.ID, "backend exploded")
	require.NoError(t, err)
	assert.Equal(t, types.TaskFailed, failed.Status)
	assert.Equal(t, "backend exploded", failed.Error)
	require.NotNil(t, failed.CompletedAt)

	got, err := f.store.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AgentError, got.Status)
	assert.Nil(t, got.CurrentTaskID)
	assert.Equal(t, 1, got.Stats.TasksFailed)

	eventTypes := f.eventTypes(t, agent.ID)
	assert.Contains(t, eventTypes, types.EventTaskFailed)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")

	t.Run("pending task frees the agent", func(t *testing.T) {
		task := f.dispatch(t, agent.ID, "T1", "work")

		cancelled, err := f.dispatcher.Cancel(task.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TaskCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CompletedAt)

		got, err := f.store.GetAgent(agent.ID)
		require.NoError(t, err)
		assert.Equal(t, types.AgentIdle, got.Status)
		assert.Nil(t, got.CurrentTaskID)
	})

	t.Run("terminal task rejected", func(t *testing.T) {
		task := f.dispatch(t, agent.ID, "T2", "work")
		_, err := f.dispatcher.Execute(task.ID)
		require.NoError(t, err)

		_, err = f.dispatcher.Cancel(task.ID)
		assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := f.dispatcher.Cancel("missing")
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})
}

func TestPauseResumeReset(t *testing.T) {
	f := newFixture(t)

	t.Run("pause from idle", func(t *testing.T) {
		agent := f.createAgent(t, "a")
		paused, err := f.dispatcher.Pause(agent.ID)
		require.NoError(t, err)
		assert.Equal(t, types.AgentPaused, paused.Status)

		// Idempotent.
		paused, err = f.dispatcher.Pause(agent.ID)
		require.NoError(t, err)
		assert.Equal(t, types.AgentPaused, paused.Status)
	})

	t.Run("pause rejected while running", func(t *testing.T) {
		agent := f.createAgent(t, "b")
		f.dispatch(t, agent.ID, "T", "work")

		_, err := f.dispatcher.Pause(agent.ID)
		assert.Equal(t, types.KindAgentNotAvailable, types.KindOf(err))
	})

	t.Run("resume requires paused", func(t *testing.T) {
		agent := f.createAgent(t, "c")
		_, err := f.dispatcher.Resume(agent.ID)
		assert.Equal(t, types.KindAgentNotAvailable, types.KindOf(err))

		_, err = f.dispatcher.Pause(agent.ID)
		require.NoError(t, err)
		resumed, err := f.dispatcher.Resume(agent.ID)
		require.NoError(t, err)
		assert.Equal(t, types.AgentIdle, resumed.Status)
	})

	t.Run("reset recovers an errored agent", func(t *testing.T) {
		agent := f.createAgent(t, "d")
		task := f.dispatch(t, agent.ID, "T", "doomed")
		_, err := f.dispatcher.Fail(task.ID, "boom")
		require.NoError(t, err)

		reset, err := f.dispatcher.Reset(agent.ID)
		require.NoError(t, err)
		assert.Equal(t, types.AgentIdle, reset.Status)
		assert.Nil(t, reset.CurrentTaskID)
	})
}

func TestSetAgentStatus(t *testing.T) {
	f := newFixture(t)
	agent := f.createAgent(t, "worker")

	t.Run("valid transition", func(t *testing.T) {
		got, err := f.dispatcher.SetAgentStatus(agent.ID, types.AgentPaused)
		require.NoError(t, err)
		assert.Equal(t, types.AgentPaused, got.Status)
	})

	t.Run("same status no-op", func(t *testing.T) {
		got, err := f.dispatcher.SetAgentStatus(agent.ID, types.AgentPaused)
		require.NoError(t, err)
		assert.Equal(t, types.AgentPaused, got.Status)
	})

	t.Run("invalid transition rejected", func(t *testing.T) {
		_, err := f.dispatcher.SetAgentStatus(agent.ID, types.AgentError)
		assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
	})
}

// Full lifecycle: register a reviewer, dispatch an analysis task, run it,
// and verify the durable trail plus agent accounting.
func TestReviewerScenario(t *testing.T) {
	f := newFixture(t)

	agent, err := f.store.CreateAgent(types.NewAgent("Reviewer", "custom"))
	require.NoError(t, err)

	resp, err := f.dispatcher.Dispatch(&types.DispatchRequest{
		AgentID:     agent.ID,
		Title:       "Quarterly review",
		Instruction: "Analyze the quarterly report",
	})
	require.NoError(t, err)

	running, err := f.store.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AgentRunning, running.Status)

	done, err := f.dispatcher.Execute(resp.Task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskCompleted, done.Status)
	assert.Contains(t, done.Result, "Analysis complete")

	idle, err := f.store.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AgentIdle, idle.Status)
	assert.Equal(t, 1, idle.Stats.TasksCompleted)
	assert.Equal(t, 5, idle.Stats.EstimatedCostCents)

	eventTypes := f.eventTypes(t, agent.ID)
	assert.Equal(t, types.EventTaskStarted, eventTypes[0])
	assert.Equal(t, types.EventTaskCompleted, eventTypes[len(eventTypes)-1])
}
