// Package lifecycle provides the pure state-machine rules for agent and
// task status transitions. It performs no I/O; callers apply the
// transitions it validates.
package lifecycle

import (
	"github.com/agentdeck/agentdeck/pkg/types"
)

// agentTransitions lists the permitted agent status transitions. An
// explicit reset to Idle is always permitted and is not listed here.
var agentTransitions = map[types.AgentStatus][]types.AgentStatus{
	types.AgentIdle:    {types.AgentRunning, types.AgentPaused},
	types.AgentPaused:  {types.AgentRunning, types.AgentIdle},
	types.AgentError:   {types.AgentRunning, types.AgentIdle},
	types.AgentRunning: {types.AgentIdle, types.AgentError},
}

// taskTransitions lists the permitted task status transitions. Terminal
// states have no outgoing edges.
var taskTransitions = map[types.TaskStatus][]types.TaskStatus{
	types.TaskPending: {types.TaskRunning, types.TaskCancelled},
	types.TaskRunning: {types.TaskCompleted, types.TaskFailed, types.TaskCancelled},
}

// ValidAgentTransition reports whether an agent may move from one status
// to another.
func ValidAgentTransition(from, to types.AgentStatus) bool {
	for _, next := range agentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidTaskTransition reports whether a task may move from one status to
// another.
func ValidTaskTransition(from, to types.TaskStatus) bool {
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalTask reports whether a task status admits no further transitions.
func IsTerminalTask(status types.TaskStatus) bool {
	return len(taskTransitions[status]) == 0
}

// CheckDispatch validates task admission against the agent's status. A
// Running agent rejects new work; an Error agent accepts it (the caller
// logs a warning).
func CheckDispatch(status types.AgentStatus) error {
	if status == types.AgentRunning {
		return types.Errorf(types.KindAgentNotAvailable, "agent is already running a task")
	}
	return nil
}

// CheckPause validates an explicit pause request. Pausing a Paused agent is
// an idempotent no-op; only an Idle agent may newly enter Paused.
func CheckPause(status types.AgentStatus) error {
	if status == types.AgentIdle || status == types.AgentPaused {
		return nil
	}
	return types.Errorf(types.KindAgentNotAvailable, "cannot pause agent in %s state", status)
}

// CheckResume validates an explicit resume request.
func CheckResume(status types.AgentStatus) error {
	if status != types.AgentPaused {
		return types.Errorf(types.KindAgentNotAvailable, "agent is not paused")
	}
	return nil
}

// CheckCancel validates task cancellation. Only pending or running tasks
// may be cancelled.
func CheckCancel(status types.TaskStatus) error {
	if status != types.TaskPending && status != types.TaskRunning {
		return types.Errorf(types.KindInvalidInput, "can only cancel pending or running tasks")
	}
	return nil
}
