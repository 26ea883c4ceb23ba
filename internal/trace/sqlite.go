package trace

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"inkboard/internal/pointer"
	"inkboard/internal/stage"
)

// Schema for the decision trace.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    name        TEXT PRIMARY KEY,
    started_ns  INTEGER NOT NULL,
    ended_ns    INTEGER
);

CREATE TABLE IF NOT EXISTS samples (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session       TEXT NOT NULL REFERENCES sessions(name) ON DELETE CASCADE,
    timestamp_ns  INTEGER NOT NULL,
    source        TEXT NOT NULL,
    event         TEXT NOT NULL,
    kind          TEXT NOT NULL,
    contact_id    INTEGER NOT NULL,
    x             REAL NOT NULL,
    y             REAL NOT NULL,
    pressure      REAL,
    width         REAL NOT NULL,
    height        REAL NOT NULL,
    verdict       TEXT NOT NULL,
    reason        TEXT NOT NULL DEFAULT '',
    route         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_samples_session ON samples(session, timestamp_ns);
`

// ErrSessionNotFound is returned for an unknown session name.
var ErrSessionNotFound = errors.New("trace: session not found")

// Store is the SQLite decision trace.
type Store struct {
	db *sql.DB
}

// Open opens or creates the trace database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginSession creates a session, or reopens an existing one of the same
// name.
func (s *Store) BeginSession(name string, started time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (name, started_ns) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET ended_ns = NULL`,
		name, started.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(name string, ended time.Time) error {
	result, err := s.db.Exec(`UPDATE sessions SET ended_ns = ? WHERE name = ?`, ended.UnixNano(), name)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return nil
}

// Insert writes samples in one transaction.
func (s *Store) Insert(samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO samples (session, timestamp_ns, source, event, kind, contact_id, x, y, pressure, width, height, verdict, reason, route)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sm := range samples {
		var pressure sql.NullFloat64
		if sm.HasPressure {
			pressure = sql.NullFloat64{Float64: sm.Pressure, Valid: true}
		}
		if _, err := stmt.Exec(
			sm.Session, sm.TimestampNs, sm.Source.String(), sm.Event, sm.Kind.String(), sm.ContactID,
			sm.X, sm.Y, pressure, sm.Width, sm.Height, string(sm.Verdict), sm.Reason, string(sm.Route),
		); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Record writes a single decision.
func (s *Store) Record(session string, d stage.Decision) error {
	return s.Insert([]Sample{fromDecision(session, d)})
}

// Samples returns a session's samples in recording order.
func (s *Store) Samples(session string) ([]Sample, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM sessions WHERE name = ?`, session).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, session)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, session, timestamp_ns, source, event, kind, contact_id, x, y, pressure, width, height, verdict, reason, route
		FROM samples
		WHERE session = ?
		ORDER BY timestamp_ns ASC, id ASC`, session,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var sm Sample
		var source, kind, verdict, route string
		var pressure sql.NullFloat64
		if err := rows.Scan(&sm.ID, &sm.Session, &sm.TimestampNs, &source, &sm.Event, &kind, &sm.ContactID,
			&sm.X, &sm.Y, &pressure, &sm.Width, &sm.Height, &verdict, &sm.Reason, &route); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sm.Source = pointer.ParseSource(source)
		sm.Kind = pointer.ParseKind(kind)
		sm.Verdict = stage.Verdict(verdict)
		sm.Route = stage.Route(route)
		sm.Pressure, sm.HasPressure = pressure.Float64, pressure.Valid
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// Sessions lists every session, newest first, with sample counts.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT s.name, s.started_ns, s.ended_ns,
		       COUNT(m.id),
		       COALESCE(SUM(CASE WHEN m.verdict = ? THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN samples m ON m.session = s.name
		GROUP BY s.name
		ORDER BY s.started_ns DESC`, string(stage.VerdictPalm),
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var ss Session
		if err := rows.Scan(&ss.Name, &ss.StartedNs, &ss.EndedNs, &ss.Samples, &ss.Rejected); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// DeleteSession removes a session and its samples.
func (s *Store) DeleteSession(name string) error {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return nil
}
