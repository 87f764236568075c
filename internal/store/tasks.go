package store

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/pkg/types"
)

const taskColumns = `id, agent_id, title, instruction, status, priority,
	created_at, started_at, completed_at, result, error`

// CreateTask inserts a new task. The owning agent must exist.
func (s *Store) CreateTask(task *types.Task) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM agents WHERE id = ?", task.AgentID).Scan(&exists); err != nil {
		return nil, persistErr(err, "failed to check owning agent")
	}
	if exists == 0 {
		return nil, types.Errorf(types.KindNotFound, "agent not found: %s", task.AgentID)
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.AgentID,
		task.Title,
		task.Instruction,
		string(task.Status),
		string(task.Priority),
		formatTime(task.CreatedAt),
		formatTimePtr(task.StartedAt),
		formatTimePtr(task.CompletedAt),
		task.Result,
		task.Error,
	)
	if err != nil {
		return nil, persistErr(err, "failed to insert task")
	}

	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("agent_id", task.AgentID),
		zap.String("title", task.Title))
	return task, nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(id string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, types.Errorf(types.KindNotFound, "task not found: %s", id)
	}
	if err != nil {
		return nil, persistErr(err, "failed to scan task")
	}
	return task, nil
}

// ListTasks returns a snapshot of all tasks.
func (s *Store) ListTasks() ([]*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTasks("SELECT " + taskColumns + " FROM tasks")
}

// ListTasksForAgent returns all tasks owned by the given agent.
func (s *Store) ListTasksForAgent(agentID string) ([]*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM agents WHERE id = ?", agentID).Scan(&exists); err != nil {
		return nil, persistErr(err, "failed to check agent")
	}
	if exists == 0 {
		return nil, types.Errorf(types.KindNotFound, "agent not found: %s", agentID)
	}

	return s.queryTasks("SELECT "+taskColumns+" FROM tasks WHERE agent_id = ?", agentID)
}

// UpdateTask replaces an existing task record.
func (s *Store) UpdateTask(task *types.Task) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE tasks SET
			agent_id = ?, title = ?, instruction = ?, status = ?, priority = ?,
			created_at = ?, started_at = ?, completed_at = ?, result = ?, error = ?
		WHERE id = ?`,
		task.AgentID,
		task.Title,
		task.Instruction,
		string(task.Status),
		string(task.Priority),
		formatTime(task.CreatedAt),
		formatTimePtr(task.StartedAt),
		formatTimePtr(task.CompletedAt),
		task.Result,
		task.Error,
		task.ID,
	)
	if err != nil {
		return nil, persistErr(err, "failed to update task")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, types.Errorf(types.KindNotFound, "task not found: %s", task.ID)
	}
	return task, nil
}

func (s *Store) queryTasks(query string, args ...interface{}) ([]*types.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, persistErr(err, "failed to query tasks")
	}
	defer rows.Close()

	tasks := make([]*types.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, persistErr(err, "failed to scan task")
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*types.Task, error) {
	var task types.Task
	var createdAt string
	var startedAt, completedAt sql.NullString

	err := row.Scan(
		&task.ID,
		&task.AgentID,
		&task.Title,
		&task.Instruction,
		&task.Status,
		&task.Priority,
		&createdAt,
		&startedAt,
		&completedAt,
		&task.Result,
		&task.Error,
	)
	if err != nil {
		return nil, err
	}

	task.CreatedAt = parseTime(createdAt)
	task.StartedAt = parseTimeNull(startedAt)
	task.CompletedAt = parseTimeNull(completedAt)

	return &task, nil
}
