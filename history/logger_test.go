package history

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates a temporary test database
func setupTestDB(t *testing.T) *sqlx.DB {
	tmpDir := t.TempDir()
	dbPath := path.Join(tmpDir, "test_history.db")
	db := sqlx.MustConnect("sqlite3", dbPath)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

func TestNewLogger(t *testing.T) {
	db := setupTestDB(t)
	logger, err := NewLogger(db)
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	if logger == nil || logger.db == nil {
		t.Fatal("NewLogger returned an unusable logger")
	}
}

func TestDBInit(t *testing.T) {
	db := setupTestDB(t)
	if err := DBInit(db); err != nil {
		t.Fatalf("DBInit returned error: %v", err)
	}
	// Running it twice must be harmless.
	if err := DBInit(db); err != nil {
		t.Fatalf("second DBInit returned error: %v", err)
	}

	var tableName string
	err := db.Get(&tableName, "SELECT name FROM sqlite_master WHERE type='table' AND name='launch_events'")
	if err != nil {
		t.Fatalf("Table 'launch_events' does not exist: %v", err)
	}

	var count int
	err = db.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND tbl_name='launch_events'")
	if err != nil {
		t.Fatalf("Failed to query indexes: %v", err)
	}
	if count < 2 {
		t.Errorf("Expected at least 2 indexes, got %d", count)
	}
}

func TestRecordAndGetEventsBySession(t *testing.T) {
	logger, err := NewLogger(setupTestDB(t))
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	session := NewSessionID()
	other := NewSessionID()
	if session == other {
		t.Fatal("NewSessionID returned duplicate ids")
	}

	steps := []struct {
		eventType EventType
		state     string
		pid       int
	}{
		{EventStateChange, "Initializing", 0},
		{EventBackendSpawned, "BackendStarting", 4242},
		{EventBackendReady, "Ready", 4242},
		{EventBackendKilled, "ShuttingDown", 4242},
	}
	for _, s := range steps {
		if err := logger.Record(session, s.eventType, s.state, s.pid, ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if err := logger.Record(other, EventSpawnFailed, "BackendStarting", 0, "no such file"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, err := logger.GetEventsBySession(session)
	if err != nil {
		t.Fatalf("GetEventsBySession failed: %v", err)
	}
	if len(events) != len(steps) {
		t.Fatalf("Expected %d events, got %d", len(steps), len(events))
	}
	for i, s := range steps {
		if events[i].EventType != string(s.eventType) || events[i].State != s.state {
			t.Errorf("event %d = %+v, want %s/%s", i, events[i], s.eventType, s.state)
		}
	}
	if events[0].PID != nil {
		t.Errorf("Expected NULL pid for first event, got %d", *events[0].PID)
	}
	if events[1].PID == nil || *events[1].PID != 4242 {
		t.Errorf("Expected pid 4242, got %v", events[1].PID)
	}
	if events[0].Time().IsZero() {
		t.Error("Expected non-zero event time")
	}
}

func TestGetRecentEventsAndSessions(t *testing.T) {
	logger, err := NewLogger(setupTestDB(t))
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	first := NewSessionID()
	second := NewSessionID()
	logger.Record(first, EventStateChange, "Initializing", 0, "")
	logger.Record(first, EventStateChange, "Terminated", 0, "")
	time.Sleep(5 * time.Millisecond)
	logger.Record(second, EventStateChange, "Initializing", 0, "")

	events, err := logger.GetRecentEvents(2)
	if err != nil {
		t.Fatalf("GetRecentEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].SessionID != second {
		t.Errorf("Expected newest event first, got session %s", events[0].SessionID)
	}

	sessions, err := logger.GetSessions(10)
	if err != nil {
		t.Fatalf("GetSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != second || sessions[1].SessionID != first {
		t.Errorf("Unexpected session order: %+v", sessions)
	}
	if sessions[1].Events != 2 {
		t.Errorf("Expected 2 events in first session, got %d", sessions[1].Events)
	}
}

func TestDeleteOldEvents(t *testing.T) {
	db := setupTestDB(t)
	logger, err := NewLogger(db)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	old := &LaunchEvent{
		ID:        "old-event",
		SessionID: "old-session",
		EventType: string(EventStateChange),
		State:     "Terminated",
		Timestamp: time.Now().UTC().Add(-48 * time.Hour).UnixMilli(),
	}
	if err := logger.insertEvent(old); err != nil {
		t.Fatalf("insertEvent failed: %v", err)
	}
	if err := logger.Record("new-session", EventStateChange, "Initializing", 0, ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	deleted, err := logger.DeleteOldEvents(24 * time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldEvents failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted event, got %d", deleted)
	}

	var remaining int
	if err := db.Get(&remaining, "SELECT COUNT(*) FROM launch_events"); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if remaining != 1 {
		t.Errorf("Expected 1 remaining event, got %d", remaining)
	}
}
