// Package store persists recorder sessions, events, and record segments in
// SQLite. It is the query source that backfills the live event buffer and
// the log the daemon's event stream polls.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/timestone/timestone/internal/event"
	"github.com/timestone/timestone/internal/logger"
	"github.com/timestone/timestone/internal/schedule"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// Session is one recorder session.
type Session struct {
	SessionID    string
	StartWallMs  int64
	StartWallISO string
	OBSVideoPath string
}

// RecordSegment is one recorded video span as registered by the recorder.
type RecordSegment struct {
	ID            int64
	SessionID     string
	StartWallMs   int64
	EndWallMs     *int64
	OBSPath       string
	Processed     bool
	CreatedWallMs int64
}

// QueryOptions filters an event query.
type QueryOptions struct {
	SessionID string
	Types     []string
	Search    string
	StartMs   *int64
	EndMs     *int64
	Limit     int
}

// EventStore defines session/event persistence.
type EventStore interface {
	UpsertSession(s Session) error
	ListSessions() ([]Session, error)

	StoreEvents(events []event.Event) error
	QueryEvents(opts QueryOptions) ([]event.Event, error)
	EventsAfterID(sessionID string, afterID int64, limit int) ([]event.Event, error)

	StoreRecordSegment(seg RecordSegment) error
	RecordSegments(sessionID string, startMs, endMs *int64) ([]RecordSegment, error)

	Close() error
}

// SQLiteStore implements EventStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLiteStore opens (and creates if needed) the event database. An empty
// path uses ~/.timestone/timestone_events.sqlite3.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".timestone", "timestone_events.sqlite3")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	// WAL mode keeps the daemon's poll loop readable while the recorder writes
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug().
		Str("path", dbPath).
		Msg("Opened event store")

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		start_wall_ms INTEGER NOT NULL,
		start_wall_iso TEXT,
		obs_video_path TEXT
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		ts_wall_ms INTEGER NOT NULL,
		ts_mono_ms INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		process_name TEXT,
		window_title TEXT,
		window_class TEXT,
		mouse TEXT,
		payload TEXT
	);

	CREATE TABLE IF NOT EXISTS record_segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		start_wall_ms INTEGER NOT NULL,
		end_wall_ms INTEGER,
		obs_path TEXT,
		processed INTEGER NOT NULL DEFAULT 0,
		created_wall_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session_wall ON events(session_id, ts_wall_ms);
	CREATE INDEX IF NOT EXISTS idx_segments_session_start ON record_segments(session_id, start_wall_ms);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertSession inserts or replaces a session row.
func (s *SQLiteStore) UpsertSession(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, start_wall_ms, start_wall_iso, obs_video_path)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   start_wall_ms = excluded.start_wall_ms,
		   start_wall_iso = excluded.start_wall_iso,
		   obs_video_path = excluded.obs_video_path`,
		sess.SessionID, sess.StartWallMs, sess.StartWallISO, sess.OBSVideoPath,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// ListSessions returns all sessions, most recent first.
func (s *SQLiteStore) ListSessions() ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT session_id, start_wall_ms, start_wall_iso, obs_video_path
		 FROM sessions ORDER BY start_wall_ms DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var iso, obs sql.NullString
		if err := rows.Scan(&sess.SessionID, &sess.StartWallMs, &iso, &obs); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.StartWallISO = iso.String
		sess.OBSVideoPath = obs.String
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// StoreEvents inserts a batch of events in one transaction.
func (s *SQLiteStore) StoreEvents(events []event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO events (session_id, ts_wall_ms, ts_mono_ms, event_type, process_name, window_title, window_class, mouse, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range events {
		ev := &events[i]
		var mouseJSON, payloadJSON []byte
		if ev.Mouse != nil {
			mouseJSON, err = json.Marshal(ev.Mouse)
			if err != nil {
				return fmt.Errorf("failed to marshal mouse: %w", err)
			}
		}
		if ev.Payload != nil {
			payloadJSON, err = json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("failed to marshal payload: %w", err)
			}
		}

		result, err := stmt.Exec(
			ev.SessionID,
			ev.TsWallMs,
			ev.TsMonoMs,
			ev.EventType,
			ev.ProcessName,
			ev.WindowTitle,
			ev.WindowClass,
			nullableString(mouseJSON),
			nullableString(payloadJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			ev.ID = id
		}
	}

	return tx.Commit()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// QueryEvents returns events matching the filter, ascending by ts_wall_ms.
// The free-text filter matches window title, process name, window class, and
// payload, case insensitive.
func (s *SQLiteStore) QueryEvents(opts QueryOptions) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clauses := []string{"session_id = ?"}
	params := []any{opts.SessionID}

	if opts.StartMs != nil {
		clauses = append(clauses, "ts_wall_ms >= ?")
		params = append(params, *opts.StartMs)
	}
	if opts.EndMs != nil {
		clauses = append(clauses, "ts_wall_ms <= ?")
		params = append(params, *opts.EndMs)
	}
	if len(opts.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(opts.Types)), ", ")
		clauses = append(clauses, fmt.Sprintf("event_type IN (%s)", placeholders))
		for _, t := range opts.Types {
			params = append(params, t)
		}
	}
	if opts.Search != "" {
		clauses = append(clauses,
			"(lower(process_name) LIKE ? OR lower(window_title) LIKE ? OR lower(window_class) LIKE ? OR lower(payload) LIKE ?)")
		like := "%" + strings.ToLower(opts.Search) + "%"
		params = append(params, like, like, like, like)
	}

	query := `SELECT id, session_id, ts_wall_ms, ts_mono_ms, event_type, process_name, window_title, window_class, mouse, payload
		 FROM events WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY ts_wall_ms ASC, id ASC`
	if opts.Limit > 0 {
		query += " LIMIT ?"
		params = append(params, opts.Limit)
	}

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// EventsAfterID returns events with id greater than afterID, ascending by
// id. The daemon's stream poller uses this as its cursor.
func (s *SQLiteStore) EventsAfterID(sessionID string, afterID int64, limit int) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, ts_wall_ms, ts_mono_ms, event_type, process_name, window_title, window_class, mouse, payload
		 FROM events
		 WHERE session_id = ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		sessionID, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var events []event.Event

	for rows.Next() {
		var ev event.Event
		var process, title, class, mouseJSON, payloadJSON sql.NullString

		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.TsWallMs, &ev.TsMonoMs, &ev.EventType,
			&process, &title, &class, &mouseJSON, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev.ProcessName = process.String
		ev.WindowTitle = title.String
		ev.WindowClass = class.String

		if mouseJSON.Valid && mouseJSON.String != "" {
			ev.Mouse = event.DecodeMouse([]byte(mouseJSON.String))
			if ev.Mouse == nil {
				logger.Debug().Int64("id", ev.ID).Msg("Failed to decode mouse payload")
			}
		}
		if payloadJSON.Valid && payloadJSON.String != "" {
			ev.Payload = event.DecodePayload(ev.EventType, []byte(payloadJSON.String))
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

// StoreRecordSegment inserts a record segment row.
func (s *SQLiteStore) StoreRecordSegment(seg RecordSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO record_segments (session_id, start_wall_ms, end_wall_ms, obs_path, processed, created_wall_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		seg.SessionID, seg.StartWallMs, seg.EndWallMs, seg.OBSPath, boolToInt(seg.Processed), seg.CreatedWallMs,
	)
	if err != nil {
		return fmt.Errorf("failed to store record segment: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecordSegments returns a session's record segments ordered by start time,
// optionally bounded by wall-clock start.
func (s *SQLiteStore) RecordSegments(sessionID string, startMs, endMs *int64) ([]RecordSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clauses := []string{"session_id = ?"}
	params := []any{sessionID}
	if startMs != nil {
		clauses = append(clauses, "start_wall_ms >= ?")
		params = append(params, *startMs)
	}
	if endMs != nil {
		clauses = append(clauses, "start_wall_ms <= ?")
		params = append(params, *endMs)
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, start_wall_ms, end_wall_ms, obs_path, processed, created_wall_ms
		 FROM record_segments WHERE `+strings.Join(clauses, " AND ")+` ORDER BY start_wall_ms ASC`,
		params...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query record segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var segments []RecordSegment
	for rows.Next() {
		var seg RecordSegment
		var end sql.NullInt64
		var obs sql.NullString
		var processed int
		if err := rows.Scan(&seg.ID, &seg.SessionID, &seg.StartWallMs, &end, &obs, &processed, &seg.CreatedWallMs); err != nil {
			return nil, fmt.Errorf("failed to scan record segment: %w", err)
		}
		if end.Valid {
			v := end.Int64
			seg.EndWallMs = &v
		}
		seg.OBSPath = obs.String
		seg.Processed = processed != 0
		segments = append(segments, seg)
	}

	return segments, rows.Err()
}

// Schedule builds a segment schedule for a session from its record segments.
func (s *SQLiteStore) Schedule(sessionID string, startMs, endMs *int64) (*schedule.Schedule, error) {
	segments, err := s.RecordSegments(sessionID, startMs, endMs)
	if err != nil {
		return nil, err
	}
	raw := make([]schedule.VideoSegment, 0, len(segments))
	for _, seg := range segments {
		start := seg.StartWallMs
		raw = append(raw, schedule.VideoSegment{
			ID:          fmt.Sprintf("seg-%d", seg.ID),
			FilePath:    seg.OBSPath,
			Name:        filepath.Base(seg.OBSPath),
			StartWallMs: &start,
			EndWallMs:   seg.EndWallMs,
		})
	}
	return schedule.New(raw), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
