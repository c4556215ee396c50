// Package sqlite provides SQLite-backed persistence for the analytics
// engine.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	sqlitemigrate "github.com/maanavrajesh/Tartan-Hacks-26/internal/platform/storage/sqlitemigrate"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/storage"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed engine persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens an engine SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// UpsertSession creates or overwrites a session's metadata.
func (s *Store) UpsertSession(ctx context.Context, session storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	session.SessionID = strings.TrimSpace(session.SessionID)
	if session.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if session.Mode == "" {
		session.Mode = "team"
	}

	var playerLabel any
	if session.PlayerLabel != "" {
		playerLabel = session.PlayerLabel
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT OR REPLACE INTO sessions (session_id, started_at, mode, player_label)
VALUES (?, ?, ?, ?)
`,
		session.SessionID,
		session.StartedAt,
		session.Mode,
		playerLabel,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// AppendWindow persists one vision window row.
func (s *Store) AppendWindow(ctx context.Context, window storage.WindowRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(window.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	var pressure any
	if window.Pressure != nil {
		pressure = *window.Pressure
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO windows (session_id, t0, t1, event_type, pressure, confidence, risk_flag, note, evidence)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		window.SessionID,
		window.T0,
		window.T1,
		window.EventType,
		pressure,
		window.Confidence,
		window.RiskFlag,
		nullableText(window.Note),
		nullableText(window.Evidence),
	)
	if err != nil {
		return fmt.Errorf("append window: %w", err)
	}
	return nil
}

// AppendEvent persists one derived event.
func (s *Store) AppendEvent(ctx context.Context, event storage.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(event.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(event.Event) == "" {
		return fmt.Errorf("event name is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO events (session_id, ts, event, severity, label)
VALUES (?, ?, ?, ?, ?)
`,
		event.SessionID,
		event.Ts,
		event.Event,
		event.Severity,
		event.Label,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// AppendInsight persists one composed insight.
func (s *Store) AppendInsight(ctx context.Context, insight storage.InsightRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(insight.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if len(insight.Body) == 0 {
		return fmt.Errorf("insight body is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO insights (session_id, ts, title, json)
VALUES (?, ?, ?, ?)
`,
		insight.SessionID,
		insight.Ts,
		insight.Title,
		string(insight.Body),
	)
	if err != nil {
		return fmt.Errorf("append insight: %w", err)
	}
	return nil
}

// AppendStat persists one stat snapshot.
func (s *Store) AppendStat(ctx context.Context, stat storage.StatRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(stat.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if stat.Kind != "live" && stat.Kind != "final" {
		return fmt.Errorf("stat kind %q is not live or final", stat.Kind)
	}
	if len(stat.Payload) == 0 {
		return fmt.Errorf("stat payload is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO stats (session_id, ts, kind, json)
VALUES (?, ?, ?, ?)
`,
		stat.SessionID,
		stat.Ts,
		stat.Kind,
		string(stat.Payload),
	)
	if err != nil {
		return fmt.Errorf("append stat: %w", err)
	}
	return nil
}

// ListSessions lists every session record.
func (s *Store) ListSessions(ctx context.Context) ([]storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT session_id, started_at, mode, player_label
FROM sessions
ORDER BY started_at
`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []storage.SessionRecord
	for rows.Next() {
		var session storage.SessionRecord
		var playerLabel sql.NullString
		if err := rows.Scan(&session.SessionID, &session.StartedAt, &session.Mode, &playerLabel); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session.PlayerLabel = playerLabel.String
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ListStats lists a session's stat snapshots, newest first.
func (s *Store) ListStats(ctx context.Context, sessionID string) ([]storage.StatRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_id, ts, kind, json
FROM stats
WHERE session_id = ?
ORDER BY ts DESC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close()

	var stats []storage.StatRecord
	for rows.Next() {
		var stat storage.StatRecord
		var payload string
		if err := rows.Scan(&stat.ID, &stat.SessionID, &stat.Ts, &stat.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		stat.Payload = []byte(payload)
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// ListInsights lists a session's insights, newest first.
func (s *Store) ListInsights(ctx context.Context, sessionID string) ([]storage.InsightRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_id, ts, title, json
FROM insights
WHERE session_id = ?
ORDER BY ts DESC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var insights []storage.InsightRecord
	for rows.Next() {
		var insight storage.InsightRecord
		var body string
		if err := rows.Scan(&insight.ID, &insight.SessionID, &insight.Ts, &insight.Title, &body); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		insight.Body = []byte(body)
		insights = append(insights, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return insights, nil
}

// WindowsNear returns the session's windows whose t1 falls within radius
// seconds of ts, in insert order.
func (s *Store) WindowsNear(ctx context.Context, sessionID string, ts float64, radius float64) ([]storage.WindowRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if radius < 0 {
		return nil, fmt.Errorf("radius must not be negative")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_id, t0, t1, event_type, pressure, confidence, risk_flag, note, evidence
FROM windows
WHERE session_id = ? AND t1 >= ? AND t1 <= ?
ORDER BY id
`, sessionID, ts-radius, ts+radius)
	if err != nil {
		return nil, fmt.Errorf("list windows near %v: %w", ts, err)
	}
	defer rows.Close()

	var windows []storage.WindowRecord
	for rows.Next() {
		var window storage.WindowRecord
		var pressure sql.NullFloat64
		var note, evidence sql.NullString
		if err := rows.Scan(
			&window.ID,
			&window.SessionID,
			&window.T0,
			&window.T1,
			&window.EventType,
			&pressure,
			&window.Confidence,
			&window.RiskFlag,
			&note,
			&evidence,
		); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		if pressure.Valid {
			value := pressure.Float64
			window.Pressure = &value
		}
		window.Note = note.String
		window.Evidence = evidence.String
		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate windows: %w", err)
	}
	return windows, nil
}

func nullableText(value string) any {
	if value == "" {
		return nil
	}
	return value
}
