package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EventType represents the type of launch event
type EventType string

const (
	EventStateChange    EventType = "state_change"
	EventBackendSpawned EventType = "backend_spawned"
	EventSpawnFailed    EventType = "spawn_failed"
	EventBackendReady   EventType = "backend_ready"
	EventBackendExited  EventType = "backend_exited"
	EventWindowClosed   EventType = "window_closed"
	EventBackendKilled  EventType = "backend_killed"
	EventLaunchFailed   EventType = "launch_failed"
)

// LaunchEvent represents a launch history entry in the database
type LaunchEvent struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	EventType string `db:"event_type"`
	State     string `db:"state"`
	Timestamp int64  `db:"timestamp"` // Unix milliseconds
	PID       *int   `db:"pid"`       // Nullable for events without a backend
	Detail    string `db:"detail"`
}

// Time returns the event timestamp.
func (e LaunchEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// SessionSummary describes one launcher run.
type SessionSummary struct {
	SessionID string `db:"session_id"`
	StartedAt int64  `db:"started_at"`
	EndedAt   int64  `db:"ended_at"`
	Events    int    `db:"events"`
}

// Logger records launcher lifecycle events
type Logger struct {
	db *sqlx.DB
}

// NewLogger creates a new launch history logger
func NewLogger(db *sqlx.DB) (*Logger, error) {
	if err := DBInit(db); err != nil {
		return nil, err
	}
	return &Logger{
		db: db,
	}, nil
}

// NewSessionID returns a fresh identifier for one launcher run.
func NewSessionID() string {
	return uuid.New().String()
}

// DBInit initializes the launch events table
func DBInit(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS launch_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		pid INTEGER,
		detail TEXT NOT NULL DEFAULT ''
	)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_launch_events_timestamp ON launch_events(timestamp)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_launch_events_session_id ON launch_events(session_id)`)
	return err
}

// Record inserts an event. A pid of zero or less is stored as NULL.
func (l *Logger) Record(sessionID string, eventType EventType, state string, pid int, detail string) error {
	event := &LaunchEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		EventType: string(eventType),
		State:     state,
		Timestamp: time.Now().UTC().UnixMilli(),
		Detail:    detail,
	}
	if pid > 0 {
		event.PID = &pid
	}
	return l.insertEvent(event)
}

func (l *Logger) insertEvent(event *LaunchEvent) error {
	_, err := l.db.Exec(`
		INSERT INTO launch_events (
			id, session_id, event_type, state, timestamp, pid, detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID,
		event.SessionID,
		event.EventType,
		event.State,
		event.Timestamp,
		event.PID,
		event.Detail,
	)
	return err
}

// GetEventsBySession retrieves the events of one run in the order they happened
func (l *Logger) GetEventsBySession(sessionID string) ([]LaunchEvent, error) {
	var events []LaunchEvent
	err := l.db.Select(&events,
		"SELECT * FROM launch_events WHERE session_id = $1 ORDER BY timestamp ASC, rowid ASC",
		sessionID)
	return events, err
}

// GetRecentEvents retrieves the most recent events across all runs
func (l *Logger) GetRecentEvents(limit int) ([]LaunchEvent, error) {
	var events []LaunchEvent
	err := l.db.Select(&events,
		"SELECT * FROM launch_events ORDER BY timestamp DESC, rowid DESC LIMIT $1",
		limit)
	return events, err
}

// GetSessions summarizes the most recent runs, newest first
func (l *Logger) GetSessions(limit int) ([]SessionSummary, error) {
	var sessions []SessionSummary
	err := l.db.Select(&sessions, `
		SELECT session_id, MIN(timestamp) AS started_at, MAX(timestamp) AS ended_at, COUNT(*) AS events
		FROM launch_events
		GROUP BY session_id
		ORDER BY started_at DESC
		LIMIT $1`,
		limit)
	return sessions, err
}

// DeleteOldEvents deletes events older than the specified duration
func (l *Logger) DeleteOldEvents(olderThan time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-olderThan).UnixMilli()
	result, err := l.db.Exec("DELETE FROM launch_events WHERE timestamp < $1", threshold)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
