// Package scanlog records scan sessions and their raw packets in SQLite so
// that a capture can be inspected or replayed later.
package scanlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrUnknownSession is returned for a session id with no record.
var ErrUnknownSession = errors.New("scanlog: unknown session")

// Store is a scan log backed by a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Session describes one recorded capture.
type Session struct {
	ID          string
	SourceKind  string
	Notes       string
	Started     time.Time
	Ended       time.Time // zero while the session is open
	PacketCount int64
}

// Record is one stored scan reading.
type Record struct {
	Seq      int64
	AngleDeg float64
	Distance float64
	Strength float64
	Time     time.Time
}

// Open opens (creating if needed) the database at path and brings its schema
// up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("scan log ready at %s", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession opens a new session and returns its id.
func (s *Store) StartSession(ctx context.Context, sourceKind, notes string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_sessions (session_id, source_kind, notes, started_ns)
		VALUES (?, ?, ?, ?)
	`, id, sourceKind, notes, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// Append stores recs at the end of the session in one transaction. Sequence
// numbers are assigned here; any Seq set by the caller is ignored.
func (s *Store) Append(ctx context.Context, sessionID string, recs ...Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int64
	err = tx.QueryRowContext(ctx,
		`SELECT packet_count FROM scan_sessions WHERE session_id = ?`, sessionID).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("append to %s: %w", sessionID, ErrUnknownSession)
	}
	if err != nil {
		return fmt.Errorf("append to %s: %w", sessionID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scan_packets (session_id, seq, angle_deg, distance, strength, ts_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, sessionID, next, r.AngleDeg, r.Distance, r.Strength, r.Time.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert packet %d: %w", next, err)
		}
		next++
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE scan_sessions SET packet_count = ? WHERE session_id = ?`, next, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_sessions SET ended_ns = ? WHERE session_id = ?`, time.Now().UnixNano(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end %s: %w", sessionID, ErrUnknownSession)
	}
	return nil
}

// Sessions lists all sessions, most recently started first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, source_kind, notes, started_ns, ended_ns, packet_count
		FROM scan_sessions
		ORDER BY started_ns DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess    Session
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&sess.ID, &sess.SourceKind, &sess.Notes, &started, &ended, &sess.PacketCount); err != nil {
			return nil, err
		}
		sess.Started = time.Unix(0, started)
		if ended.Valid {
			sess.Ended = time.Unix(0, ended.Int64)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Packets returns the session's records in sequence order.
func (s *Store) Packets(ctx context.Context, sessionID string) ([]Record, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM scan_sessions WHERE session_id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("packets of %s: %w", sessionID, ErrUnknownSession)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, angle_deg, distance, strength, ts_ns
		FROM scan_packets
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			r  Record
			ts int64
		)
		if err := rows.Scan(&r.Seq, &r.AngleDeg, &r.Distance, &r.Strength, &ts); err != nil {
			return nil, err
		}
		r.Time = time.Unix(0, ts)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
