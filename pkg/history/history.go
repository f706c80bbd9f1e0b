// Package history keeps a process-private SQLite audit log of alert
// evaluations and their delivery outcomes. Unlike the shared state store
// it is not an interchange format with the dashboard process, so a real
// database is appropriate here.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sipca-labs/aquasentry/pkg/alert"
	"github.com/sipca-labs/aquasentry/pkg/notify"

	_ "modernc.org/sqlite"
)

// Record is one alert evaluation with its dispatch outcome.
type Record struct {
	ID            string    `json:"id"`
	Triggered     bool      `json:"triggered"`
	Reasons       string    `json:"reasons"`
	Label         string    `json:"label"`
	PH            float64   `json:"ph_value"`
	ConfidencePct float64   `json:"confidence_pct"`
	EndpointID    string    `json:"endpoint_id,omitempty"`
	Delivered     bool      `json:"delivered"`
	Diagnostic    string    `json:"diagnostic,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// FromEvent builds a record from an evaluation and its delivery outcome.
// delivery may be nil when the event did not trigger a dispatch.
func FromEvent(event alert.Event, endpointID string, delivery *notify.Delivery) *Record {
	r := &Record{
		Triggered:     event.Triggered,
		Reasons:       strings.Join(event.Reasons, "; "),
		Label:         string(event.Sample.Label),
		PH:            event.Sample.PH,
		ConfidencePct: event.Sample.ConfidencePct,
		EndpointID:    endpointID,
	}
	if delivery != nil {
		r.Delivered = delivery.Delivered
		r.Diagnostic = delivery.Diagnostic
	}
	return r
}

// Store is an SQLite-backed history log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Append persists one record, assigning id and timestamp when absent.
func (s *Store) Append(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_events (id, triggered, reasons, label, ph_value, confidence_pct, endpoint_id, delivered, diagnostic, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Triggered, record.Reasons, record.Label,
		record.PH, record.ConfidencePct, record.EndpointID,
		record.Delivered, record.Diagnostic, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, triggered, reasons, label, ph_value, confidence_pct, endpoint_id, delivered, diagnostic, created_at
		 FROM alert_events ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alert events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Triggered, &r.Reasons, &r.Label, &r.PH,
			&r.ConfidencePct, &r.EndpointID, &r.Delivered, &r.Diagnostic, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert event row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
