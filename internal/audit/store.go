// Package audit persists a record of every tool dispatch in SQLite.
//
// Dispatch logging is the system's audit trail; this store is its durable
// form. Records capture what was dispatched and how it ended — never the
// tool's own state, which is not persisted anywhere.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	tetherotel "github.com/tetherhq/tether/internal/otel"
)

var tracer = tetherotel.Tracer("github.com/tetherhq/tether/internal/audit")

// Invocation is the audit record for a single tool dispatch.
type Invocation struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Tool       string    `json:"tool"`
	Mode       string    `json:"mode"`    // "strict" or "soft"
	Outcome    string    `json:"outcome"` // "success" or "failed"
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// Store persists invocation records in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the invocation database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		tool TEXT NOT NULL,
		mode TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		trace_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool);
	CREATE INDEX IF NOT EXISTS idx_invocations_timestamp ON invocations(timestamp);
	`

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record saves one invocation.
func (s *Store) Record(ctx context.Context, inv *Invocation) error {
	ctx, span := tracer.Start(ctx, "audit.record",
		trace.WithAttributes(
			attribute.String("tool.name", inv.Tool),
			attribute.String("tool.dispatch.outcome", inv.Outcome),
		))
	defer span.End()

	query := `INSERT INTO invocations (id, timestamp, tool, mode, outcome, error, duration_ms, trace_id)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		inv.ID, inv.Timestamp, inv.Tool, inv.Mode, inv.Outcome, inv.Error, inv.DurationMS, inv.TraceID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("recording invocation: %w", err)
	}
	return nil
}

// Recent returns up to limit invocations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Invocation, error) {
	query := `SELECT id, timestamp, tool, mode, outcome, error, duration_ms, trace_id
	          FROM invocations ORDER BY timestamp DESC LIMIT ?`
	return s.query(ctx, query, limit)
}

// ByTool returns up to limit invocations of the named tool, newest first.
func (s *Store) ByTool(ctx context.Context, tool string, limit int) ([]Invocation, error) {
	query := `SELECT id, timestamp, tool, mode, outcome, error, duration_ms, trace_id
	          FROM invocations WHERE tool = ? ORDER BY timestamp DESC LIMIT ?`
	return s.query(ctx, query, tool, limit)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Invocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying invocations: %w", err)
	}
	defer rows.Close()

	var out []Invocation
	for rows.Next() {
		var inv Invocation
		if err := rows.Scan(&inv.ID, &inv.Timestamp, &inv.Tool, &inv.Mode,
			&inv.Outcome, &inv.Error, &inv.DurationMS, &inv.TraceID); err != nil {
			return nil, fmt.Errorf("scanning invocation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
