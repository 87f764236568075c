package store

import (
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/pkg/types"
)

const agentColumns = `id, name, description, framework, model, status,
	current_task_id, created_at, last_activity, config, stats`

// CreateAgent inserts a new agent. Fresh ids never collide in practice,
// but the existence check is an explicit invariant.
func (s *Store) CreateAgent(agent *types.Agent) (*types.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM agents WHERE id = ?", agent.ID).Scan(&exists); err != nil {
		return nil, persistErr(err, "failed to check agent id")
	}
	if exists > 0 {
		return nil, types.Errorf(types.KindInvalidInput, "agent already exists: %s", agent.ID)
	}

	if err := s.insertAgent(s.db, agent); err != nil {
		return nil, err
	}

	s.logger.Info("agent created", zap.String("agent_id", agent.ID), zap.String("name", agent.Name))
	return agent, nil
}

// GetAgent retrieves an agent by id.
func (s *Store) GetAgent(id string) (*types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getAgentLocked(id)
}

// getAgentLocked requires the caller to hold at least a read lock.
func (s *Store) getAgentLocked(id string) (*types.Agent, error) {
	row := s.db.QueryRow("SELECT "+agentColumns+" FROM agents WHERE id = ?", id)
	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, types.Errorf(types.KindNotFound, "agent not found: %s", id)
	}
	if err != nil {
		return nil, persistErr(err, "failed to scan agent")
	}
	return agent, nil
}

// ListAgents returns a snapshot of all agents, in no particular order.
func (s *Store) ListAgents() ([]*types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAgents()
}

func (s *Store) queryAgents() ([]*types.Agent, error) {
	rows, err := s.db.Query("SELECT " + agentColumns + " FROM agents")
	if err != nil {
		return nil, persistErr(err, "failed to query agents")
	}
	defer rows.Close()

	agents := make([]*types.Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, persistErr(err, "failed to scan agent")
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// UpdateAgent replaces an existing agent record.
func (s *Store) UpdateAgent(agent *types.Agent) (*types.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, statsJSON, err := marshalAgentBlobs(agent)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(`
		UPDATE agents SET
			name = ?, description = ?, framework = ?, model = ?, status = ?,
			current_task_id = ?, created_at = ?, last_activity = ?, config = ?, stats = ?
		WHERE id = ?`,
		agent.Name,
		agent.Description,
		agent.Framework,
		agent.Model,
		string(agent.Status),
		agent.CurrentTaskID,
		formatTime(agent.CreatedAt),
		formatTimePtr(agent.LastActivity),
		configJSON,
		statsJSON,
		agent.ID,
	)
	if err != nil {
		return nil, persistErr(err, "failed to update agent")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, types.Errorf(types.KindNotFound, "agent not found: %s", agent.ID)
	}
	return agent, nil
}

// DeleteAgent removes an agent and cascades to its tasks. Events are kept
// for audit even though their agent reference becomes orphaned.
func (s *Store) DeleteAgent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return persistErr(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return persistErr(err, "failed to delete agent")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return types.Errorf(types.KindNotFound, "agent not found: %s", id)
	}

	if _, err := tx.Exec("DELETE FROM tasks WHERE agent_id = ?", id); err != nil {
		return persistErr(err, "failed to delete agent tasks")
	}

	if err := tx.Commit(); err != nil {
		return persistErr(err, "failed to commit agent delete")
	}

	s.logger.Info("agent deleted", zap.String("agent_id", id))
	return nil
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) insertAgent(db execer, agent *types.Agent) error {
	configJSON, statsJSON, err := marshalAgentBlobs(agent)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID,
		agent.Name,
		agent.Description,
		agent.Framework,
		agent.Model,
		string(agent.Status),
		agent.CurrentTaskID,
		formatTime(agent.CreatedAt),
		formatTimePtr(agent.LastActivity),
		configJSON,
		statsJSON,
	)
	if err != nil {
		return persistErr(err, "failed to insert agent")
	}
	return nil
}

func marshalAgentBlobs(agent *types.Agent) (string, string, error) {
	configJSON, err := json.Marshal(agent.Config)
	if err != nil {
		return "", "", types.WrapError(types.KindPersistenceFailure, err, "failed to marshal agent config")
	}
	statsJSON, err := json.Marshal(agent.Stats)
	if err != nil {
		return "", "", types.WrapError(types.KindPersistenceFailure, err, "failed to marshal agent stats")
	}
	return string(configJSON), string(statsJSON), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (*types.Agent, error) {
	var agent types.Agent
	var currentTaskID, lastActivity sql.NullString
	var createdAt, configJSON, statsJSON string

	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Description,
		&agent.Framework,
		&agent.Model,
		&agent.Status,
		&currentTaskID,
		&createdAt,
		&lastActivity,
		&configJSON,
		&statsJSON,
	)
	if err != nil {
		return nil, err
	}

	if currentTaskID.Valid {
		agent.CurrentTaskID = &currentTaskID.String
	}
	agent.CreatedAt = parseTime(createdAt)
	agent.LastActivity = parseTimeNull(lastActivity)

	if err := json.Unmarshal([]byte(configJSON), &agent.Config); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(statsJSON), &agent.Stats); err != nil {
		return nil, err
	}

	return &agent, nil
}
