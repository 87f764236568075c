package store

import (
	"database/sql"

	"github.com/agentdeck/agentdeck/pkg/types"
)

const eventColumns = `id, agent_id, task_id, event_type, summary, details, timestamp`

// AddEvent appends an activity event, then evicts the oldest events past
// the retention cap. Eviction is FIFO by insertion order, independent of
// per-agent distribution.
func (s *Store) AddEvent(event *types.ActivityEvent) (*types.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, persistErr(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.AgentID,
		event.TaskID,
		string(event.Type),
		event.Summary,
		event.Details,
		formatTime(event.Timestamp),
	)
	if err != nil {
		return nil, persistErr(err, "failed to insert event")
	}

	_, err = tx.Exec(`
		DELETE FROM events WHERE seq NOT IN (
			SELECT seq FROM events ORDER BY seq DESC LIMIT ?
		)`, s.retentionCap)
	if err != nil {
		return nil, persistErr(err, "failed to evict old events")
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr(err, "failed to commit event")
	}
	return event, nil
}

// ListEventsForAgent returns events for an agent, newest first. A limit of
// zero returns all of them.
func (s *Store) ListEventsForAgent(agentID string, limit int) ([]*types.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + eventColumns + " FROM events WHERE agent_id = ? ORDER BY timestamp DESC, seq DESC"
	args := []interface{}{agentID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryEvents(query, args...)
}

// ListRecentEvents returns events across all agents, newest first. A limit
// of zero returns all of them.
func (s *Store) ListRecentEvents(limit int) ([]*types.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + eventColumns + " FROM events ORDER BY timestamp DESC, seq DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryEvents(query, args...)
}

// ClearEvents removes all activity events.
func (s *Store) ClearEvents() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM events"); err != nil {
		return persistErr(err, "failed to clear events")
	}
	s.logger.Info("activity log cleared")
	return nil
}

func (s *Store) queryEvents(query string, args ...interface{}) ([]*types.ActivityEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, persistErr(err, "failed to query events")
	}
	defer rows.Close()

	events := make([]*types.ActivityEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, persistErr(err, "failed to scan event")
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*types.ActivityEvent, error) {
	var event types.ActivityEvent
	var taskID sql.NullString
	var timestamp string

	err := row.Scan(
		&event.ID,
		&event.AgentID,
		&taskID,
		&event.Type,
		&event.Summary,
		&event.Details,
		&timestamp,
	)
	if err != nil {
		return nil, err
	}

	if taskID.Valid {
		event.TaskID = &taskID.String
	}
	event.Timestamp = parseTime(timestamp)

	return &event, nil
}
