// Package dispatch admits tasks onto agents and drives their execution
// through the pipeline backend. It owns every agent and task status
// transition; the store only persists what the dispatcher decides.
package dispatch

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/broadcast"
	"github.com/agentdeck/agentdeck/internal/core/pipeline"
	"github.com/agentdeck/agentdeck/internal/lifecycle"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/pkg/types"
)

// mockCostCents is attributed to each completed execution.
const mockCostCents = 5

// Backend produces the execution content for a task instruction.
type Backend interface {
	Thoughts(instruction string) []string
	Result(instruction string) string
	APICall() (endpoint string, durationMS int64, summary, details string)
	StepDelay() time.Duration
}

// Dispatcher coordinates task admission, execution, and agent control.
type Dispatcher struct {
	store       *store.Store
	broadcaster *broadcast.Broadcaster
	backend     Backend
	logger      *zap.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(st *store.Store, bc *broadcast.Broadcaster, backend Backend, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:       st,
		broadcaster: bc,
		backend:     backend,
		logger:      logger,
	}
}

// Wait blocks until all background executions have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Dispatch validates the request, creates a pending task, and moves the
// agent to Running. Execution itself is a separate step.
func (d *Dispatcher) Dispatch(req *types.DispatchRequest) (*types.DispatchResponse, error) {
	agent, err := d.store.GetAgent(req.AgentID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.CheckDispatch(agent.Status); err != nil {
		return nil, err
	}
	if agent.Status == types.AgentError {
		d.logger.Warn("dispatching to agent in error state", zap.String("agent_id", agent.ID))
	}

	if strings.TrimSpace(req.Instruction) == "" {
		return nil, types.Errorf(types.KindInvalidInput, "task instruction cannot be empty")
	}

	task := types.NewTask(req.AgentID, req.Title, req.Instruction)
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	task, err = d.store.CreateTask(task)
	if err != nil {
		return nil, err
	}

	// Admission raced against a concurrent dispatch between the first
	// load and here; re-check against a fresh record before claiming
	// the agent.
	agent, err = d.store.GetAgent(req.AgentID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CheckDispatch(agent.Status); err != nil {
		now := time.Now().UTC()
		task.Status = types.TaskCancelled
		task.CompletedAt = &now
		if _, uerr := d.store.UpdateTask(task); uerr != nil {
			d.logger.Error("failed to cancel task after lost admission race",
				zap.String("task_id", task.ID), zap.Error(uerr))
		}
		return nil, err
	}

	now := time.Now().UTC()
	agent.Status = types.AgentRunning
	agent.CurrentTaskID = &task.ID
	agent.LastActivity = &now
	if _, err := d.store.UpdateAgent(agent); err != nil {
		return nil, err
	}

	event := types.NewEvent(req.AgentID, types.EventTaskStarted, "Task started: "+req.Title).
		WithTask(task.ID).
		WithDetails(req.Instruction)
	if _, err := d.store.AddEvent(event); err != nil {
		return nil, err
	}

	d.publish(&types.TaskEvent{
		Type:    types.TaskEventStarted,
		TaskID:  task.ID,
		AgentID: req.AgentID,
	})

	d.logger.Info("task dispatched",
		zap.String("task_id", task.ID),
		zap.String("agent_id", req.AgentID))

	return &types.DispatchResponse{
		Task:    task,
		Message: "Task dispatched successfully",
	}, nil
}

// Execute runs the pipeline for a dispatched task to completion.
// Cancellation is cooperative: the task status is re-read before every
// persisted step, and a task no longer Running aborts the remainder.
func (d *Dispatcher) Execute(taskID string) (*types.Task, error) {
	task, err := d.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != types.TaskPending {
		return nil, types.Errorf(types.KindInvalidInput,
			"can only execute pending tasks, task is %s", task.Status)
	}
	agentID := task.AgentID

	startedAt := time.Now().UTC()
	task.Status = types.TaskRunning
	task.StartedAt = &startedAt
	if task, err = d.store.UpdateTask(task); err != nil {
		return nil, err
	}

	thoughts := d.backend.Thoughts(task.Instruction)
	for i, thought := range thoughts {
		if current, aborted := d.checkAborted(taskID); aborted {
			return current, nil
		}

		event := types.NewEvent(agentID, types.EventThoughtLog, thought).WithTask(taskID)
		if _, err := d.store.AddEvent(event); err != nil {
			return nil, err
		}

		d.publish(&types.TaskEvent{
			Type:    types.TaskEventThought,
			TaskID:  taskID,
			AgentID: agentID,
			Thought: thought,
		})
		d.publish(&types.TaskEvent{
			Type:        types.TaskEventProgress,
			TaskID:      taskID,
			AgentID:     agentID,
			Message:     "Processing: " + thought,
			ProgressPct: pipeline.ProgressPercent(i+1, len(thoughts)),
		})

		time.Sleep(d.backend.StepDelay())
	}

	if current, aborted := d.checkAborted(taskID); aborted {
		return current, nil
	}

	endpoint, durationMS, summary, details := d.backend.APICall()
	apiEvent := types.NewEvent(agentID, types.EventAPICall, summary).
		WithTask(taskID).
		WithDetails(details)
	if _, err := d.store.AddEvent(apiEvent); err != nil {
		return nil, err
	}
	d.publish(&types.TaskEvent{
		Type:       types.TaskEventAPICall,
		TaskID:     taskID,
		AgentID:    agentID,
		Endpoint:   endpoint,
		DurationMS: durationMS,
	})

	if current, aborted := d.checkAborted(taskID); aborted {
		return current, nil
	}

	result := d.backend.Result(task.Instruction)
	completedAt := time.Now().UTC()
	task.Status = types.TaskCompleted
	task.CompletedAt = &completedAt
	task.Result = result
	if task, err = d.store.UpdateTask(task); err != nil {
		return nil, err
	}

	agent, err := d.store.GetAgent(agentID)
	if err != nil {
		return nil, err
	}
	agent.Status = types.AgentIdle
	agent.CurrentTaskID = nil
	agent.LastActivity = &completedAt
	agent.Stats.TasksCompleted++
	agent.Stats.TotalAPICalls++
	agent.Stats.EstimatedCostCents += mockCostCents
	agent.Stats.AvgTaskDurationMS = rollAverage(
		agent.Stats.AvgTaskDurationMS,
		completedAt.Sub(startedAt).Milliseconds(),
		agent.Stats.TasksCompleted,
	)
	if _, err := d.store.UpdateAgent(agent); err != nil {
		return nil, err
	}

	doneEvent := types.NewEvent(agentID, types.EventTaskCompleted, "Task completed: "+task.Title).
		WithTask(taskID).
		WithDetails(result)
	if _, err := d.store.AddEvent(doneEvent); err != nil {
		return nil, err
	}

	d.publish(&types.TaskEvent{
		Type:    types.TaskEventCompleted,
		TaskID:  taskID,
		AgentID: agentID,
		Result:  result,
	})

	d.logger.Info("task completed", zap.String("task_id", taskID))
	return task, nil
}

// ExecuteAsync runs Execute in the background. An execution error marks
// the task failed.
func (d *Dispatcher) ExecuteAsync(taskID string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if _, err := d.Execute(taskID); err != nil {
			err = types.WrapError(types.KindExecutionFailure, err, "execution failed")
			d.logger.Error("background execution failed",
				zap.String("task_id", taskID), zap.Error(err))
			if _, ferr := d.Fail(taskID, err.Error()); ferr != nil {
				d.logger.Error("failed to record task failure",
					zap.String("task_id", taskID), zap.Error(ferr))
			}
		}
	}()
}

// Fail marks a task failed and parks its agent in the Error state. A
// missing agent is tolerated so failures can still be recorded after the
// agent was deleted.
func (d *Dispatcher) Fail(taskID, errorMessage string) (*types.Task, error) {
	task, err := d.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	agentID := task.AgentID

	now := time.Now().UTC()
	task.Status = types.TaskFailed
	task.CompletedAt = &now
	task.Error = errorMessage
	if task, err = d.store.UpdateTask(task); err != nil {
		return nil, err
	}

	agent, err := d.store.GetAgent(agentID)
	if err == nil {
		agent.Status = types.AgentError
		agent.CurrentTaskID = nil
		agent.LastActivity = &now
		agent.Stats.TasksFailed++
		if _, err := d.store.UpdateAgent(agent); err != nil {
			return nil, err
		}
	} else if !types.IsKind(err, types.KindNotFound) {
		return nil, err
	}

	event := types.NewEvent(agentID, types.EventTaskFailed, "Task failed: "+task.Title).
		WithTask(taskID).
		WithDetails(errorMessage)
	if _, err := d.store.AddEvent(event); err != nil {
		return nil, err
	}

	d.publish(&types.TaskEvent{
		Type:    types.TaskEventFailed,
		TaskID:  taskID,
		AgentID: agentID,
		Error:   errorMessage,
	})

	d.logger.Error("task failed", zap.String("task_id", taskID), zap.String("error", errorMessage))
	return task, nil
}

// Cancel moves a pending or running task to Cancelled and frees its agent
// if the agent was working on it.
func (d *Dispatcher) Cancel(taskID string) (*types.Task, error) {
	task, err := d.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.CheckCancel(task.Status); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task.Status = types.TaskCancelled
	task.CompletedAt = &now
	if task, err = d.store.UpdateTask(task); err != nil {
		return nil, err
	}

	agent, err := d.store.GetAgent(task.AgentID)
	if err != nil {
		return nil, err
	}
	if agent.CurrentTaskID != nil && *agent.CurrentTaskID == taskID {
		agent.Status = types.AgentIdle
		agent.CurrentTaskID = nil
		agent.LastActivity = &now
		if _, err := d.store.UpdateAgent(agent); err != nil {
			return nil, err
		}
	}

	event := types.NewEvent(task.AgentID, types.EventInfo, "Task cancelled: "+task.Title).
		WithTask(taskID)
	if _, err := d.store.AddEvent(event); err != nil {
		return nil, err
	}

	d.logger.Info("task cancelled", zap.String("task_id", taskID))
	return task, nil
}

// Pause moves an idle agent to Paused. Pausing an already paused agent is
// a no-op.
func (d *Dispatcher) Pause(agentID string) (*types.Agent, error) {
	agent, err := d.store.GetAgent(agentID)
	if err != nil {
		return nil, err
	}

	if agent.Status == types.AgentPaused {
		return agent, nil
	}
	if err := lifecycle.CheckPause(agent.Status); err != nil {
		return nil, err
	}

	return d.setStatus(agent, types.AgentPaused, "Agent paused")
}

// Resume moves a paused agent back to Idle.
func (d *Dispatcher) Resume(agentID string) (*types.Agent, error) {
	agent, err := d.store.GetAgent(agentID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.CheckResume(agent.Status); err != nil {
		return nil, err
	}

	return d.setStatus(agent, types.AgentIdle, "Agent resumed")
}

// Reset forces an agent back to Idle from any state, clearing its current
// task reference. The operator escape hatch for wedged agents.
func (d *Dispatcher) Reset(agentID string) (*types.Agent, error) {
	agent, err := d.store.GetAgent(agentID)
	if err != nil {
		return nil, err
	}

	agent.CurrentTaskID = nil
	return d.setStatus(agent, types.AgentIdle, "Agent reset to idle state")
}

// SetAgentStatus applies an explicit status change, subject to the
// lifecycle transition rules. Setting the current status is a no-op.
func (d *Dispatcher) SetAgentStatus(agentID string, status types.AgentStatus) (*types.Agent, error) {
	agent, err := d.store.GetAgent(agentID)
	if err != nil {
		return nil, err
	}

	if agent.Status == status {
		return agent, nil
	}
	if !lifecycle.ValidAgentTransition(agent.Status, status) {
		return nil, types.Errorf(types.KindInvalidInput,
			"invalid agent transition: %s to %s", agent.Status, status)
	}

	if status != types.AgentRunning {
		agent.CurrentTaskID = nil
	}
	return d.setStatus(agent, status, "Agent status changed to "+string(status))
}

// setStatus persists an agent status change and logs it to the activity
// stream.
func (d *Dispatcher) setStatus(agent *types.Agent, status types.AgentStatus, summary string) (*types.Agent, error) {
	now := time.Now().UTC()
	agent.Status = status
	agent.LastActivity = &now
	agent, err := d.store.UpdateAgent(agent)
	if err != nil {
		return nil, err
	}

	event := types.NewEvent(agent.ID, types.EventStatusChange, summary)
	if _, err := d.store.AddEvent(event); err != nil {
		return nil, err
	}

	d.logger.Info("agent status changed",
		zap.String("agent_id", agent.ID),
		zap.String("status", string(status)))
	return agent, nil
}

// checkAborted reloads the task and reports whether execution should stop
// because the task left the Running state, typically via Cancel.
func (d *Dispatcher) checkAborted(taskID string) (*types.Task, bool) {
	task, err := d.store.GetTask(taskID)
	if err != nil {
		d.logger.Error("lost track of executing task", zap.String("task_id", taskID), zap.Error(err))
		return nil, true
	}
	if task.Status != types.TaskRunning {
		d.logger.Info("execution aborted",
			zap.String("task_id", taskID),
			zap.String("status", string(task.Status)))
		return task, true
	}
	return task, false
}

func (d *Dispatcher) publish(event *types.TaskEvent) {
	if d.broadcaster != nil {
		d.broadcaster.Publish(event)
	}
}

// rollAverage folds one more duration sample into a running average. n is
// the sample count including the new one.
func rollAverage(avg, sample int64, n int) int64 {
	if n <= 0 {
		return avg
	}
	return avg + (sample-avg)/int64(n)
}
