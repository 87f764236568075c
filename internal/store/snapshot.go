package store

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/pkg/types"
)

// Snapshot is the whole store state as one self-describing document, used
// for export/import round-tripping.
type Snapshot struct {
	Agents map[string]*types.Agent `json:"agents"`
	Tasks  map[string]*types.Task  `json:"tasks"`
	Events []*types.ActivityEvent  `json:"events"`
}

// Stats summarizes storage usage.
type Stats struct {
	AgentCount      int    `json:"agent_count"`
	TaskCount       int    `json:"task_count"`
	EventCount      int    `json:"event_count"`
	StorageLocation string `json:"storage_location"`
}

// ExportAll serializes the full store state to a JSON document.
func (s *Store) ExportAll() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, err := s.buildSnapshot()
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, types.WrapError(types.KindPersistenceFailure, err, "failed to marshal snapshot")
	}
	return data, nil
}

// ImportAll replaces the entire store state with the given snapshot
// document. The replacement is atomic: on any failure the previous state
// is left intact.
func (s *Store) ImportAll(data []byte) error {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return types.WrapError(types.KindInvalidInput, err, "failed to parse snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return persistErr(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, table := range []string{"agents", "tasks", "events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return persistErr(err, "failed to clear %s", table)
		}
	}

	for _, agent := range snapshot.Agents {
		if err := s.insertAgent(tx, agent); err != nil {
			return err
		}
	}
	for _, task := range snapshot.Tasks {
		_, err := tx.Exec(`
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.AgentID, task.Title, task.Instruction,
			string(task.Status), string(task.Priority),
			formatTime(task.CreatedAt), formatTimePtr(task.StartedAt),
			formatTimePtr(task.CompletedAt), task.Result, task.Error,
		)
		if err != nil {
			return persistErr(err, "failed to import task")
		}
	}
	// Events arrive newest-first from export; insert oldest-first so seq
	// preserves the original insertion order.
	for i := len(snapshot.Events) - 1; i >= 0; i-- {
		event := snapshot.Events[i]
		_, err := tx.Exec(`
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			event.ID, event.AgentID, event.TaskID, string(event.Type),
			event.Summary, event.Details, formatTime(event.Timestamp),
		)
		if err != nil {
			return persistErr(err, "failed to import event")
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr(err, "failed to commit import")
	}

	s.logger.Info("snapshot imported",
		zap.Int("agents", len(snapshot.Agents)),
		zap.Int("tasks", len(snapshot.Tasks)),
		zap.Int("events", len(snapshot.Events)))
	return nil
}

// Reset clears the entire store state atomically.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return persistErr(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, table := range []string{"agents", "tasks", "events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return persistErr(err, "failed to clear %s", table)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr(err, "failed to commit reset")
	}

	s.logger.Info("store reset to empty state")
	return nil
}

// GetStats returns storage statistics.
func (s *Store) GetStats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{StorageLocation: s.path}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM agents", &stats.AgentCount},
		{"SELECT COUNT(*) FROM tasks", &stats.TaskCount},
		{"SELECT COUNT(*) FROM events", &stats.EventCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, persistErr(err, "failed to count rows")
		}
	}
	return stats, nil
}

// buildSnapshot requires the caller to hold at least a read lock.
func (s *Store) buildSnapshot() (*Snapshot, error) {
	agents, err := s.queryAgents()
	if err != nil {
		return nil, err
	}
	tasks, err := s.queryTasks("SELECT " + taskColumns + " FROM tasks")
	if err != nil {
		return nil, err
	}
	events, err := s.queryEvents("SELECT " + eventColumns + " FROM events ORDER BY timestamp DESC, seq DESC")
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Agents: make(map[string]*types.Agent, len(agents)),
		Tasks:  make(map[string]*types.Task, len(tasks)),
		Events: events,
	}
	for _, agent := range agents {
		snapshot.Agents[agent.ID] = agent
	}
	for _, task := range tasks {
		snapshot.Tasks[task.ID] = task
	}
	return snapshot, nil
}
