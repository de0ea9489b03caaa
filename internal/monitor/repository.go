package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TriggerFiring is the audit record of one trigger firing: which monitor and
// rule fired, when, and how its statements fared.
type TriggerFiring struct {
	ID           string    `json:"id"`
	Monitor      string    `json:"monitor"`
	TriggerIndex int       `json:"trigger_index"`

	// FiredAt is when the event loop fired the trigger; EventAt is when
	// the originating value change was observed by the watcher.
	FiredAt time.Time `json:"fired_at"`
	EventAt time.Time `json:"event_at"`

	StatementsTotal  int      `json:"statements_total"`
	StatementsFailed int      `json:"statements_failed"`
	Failures         []string `json:"failures,omitempty"`
}

// FiringRepository defines the interface for firing-log persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type FiringRepository interface {
	RecordFiring(ctx context.Context, firing *TriggerFiring) error
	ListFirings(ctx context.Context, monitor string, limit int) ([]TriggerFiring, error)
}

// firingColumns is the SELECT column list for firing queries.
const firingColumns = `id, monitor, trigger_index, fired_at, event_at,
			statements_total, statements_failed, failures`

// SQLiteFiringRepository implements FiringRepository using SQLite.
type SQLiteFiringRepository struct {
	db *sql.DB
}

// NewSQLiteFiringRepository creates a SQLite-backed firing log and ensures
// its schema exists.
func NewSQLiteFiringRepository(db *sql.DB) (*SQLiteFiringRepository, error) {
	r := &SQLiteFiringRepository{db: db}
	if err := r.ensureSchema(); err != nil {
		return nil, fmt.Errorf("creating firing log schema: %w", err)
	}
	return r, nil
}

// ensureSchema creates the firing table and its lookup index if missing.
func (r *SQLiteFiringRepository) ensureSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS monitor_firings (
			id                TEXT PRIMARY KEY,
			monitor           TEXT NOT NULL,
			trigger_index     INTEGER NOT NULL,
			fired_at          TEXT NOT NULL,
			event_at          TEXT NOT NULL,
			statements_total  INTEGER NOT NULL,
			statements_failed INTEGER NOT NULL,
			failures          TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_monitor_firings_monitor
			ON monitor_firings (monitor, fired_at DESC);`

	_, err := r.db.Exec(schema)
	return err
}

// RecordFiring inserts one firing record.
func (r *SQLiteFiringRepository) RecordFiring(ctx context.Context, firing *TriggerFiring) error {
	var failuresJSON []byte
	if len(firing.Failures) > 0 {
		var err error
		failuresJSON, err = json.Marshal(firing.Failures)
		if err != nil {
			return fmt.Errorf("marshalling failures: %w", err)
		}
	}

	query := `
		INSERT INTO monitor_firings (
			id, monitor, trigger_index, fired_at, event_at,
			statements_total, statements_failed, failures
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		firing.ID,
		firing.Monitor,
		firing.TriggerIndex,
		firing.FiredAt.UTC().Format(time.RFC3339Nano),
		firing.EventAt.UTC().Format(time.RFC3339Nano),
		firing.StatementsTotal,
		firing.StatementsFailed,
		nullableString(failuresJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting firing: %w", err)
	}
	return nil
}

// ListFirings retrieves recent firings for a monitor, newest first.
func (r *SQLiteFiringRepository) ListFirings(ctx context.Context, monitor string, limit int) ([]TriggerFiring, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + firingColumns + `
		FROM monitor_firings WHERE monitor = ?
		ORDER BY fired_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, monitor, limit)
	if err != nil {
		return nil, fmt.Errorf("querying firings: %w", err)
	}
	defer rows.Close()

	var firings []TriggerFiring
	for rows.Next() {
		var (
			f        TriggerFiring
			firedAt  string
			eventAt  string
			failures sql.NullString
		)
		if scanErr := rows.Scan(
			&f.ID, &f.Monitor, &f.TriggerIndex, &firedAt, &eventAt,
			&f.StatementsTotal, &f.StatementsFailed, &failures,
		); scanErr != nil {
			return nil, fmt.Errorf("scanning firing: %w", scanErr)
		}

		f.FiredAt, err = time.Parse(time.RFC3339Nano, firedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing fired_at: %w", err)
		}
		f.EventAt, err = time.Parse(time.RFC3339Nano, eventAt)
		if err != nil {
			return nil, fmt.Errorf("parsing event_at: %w", err)
		}
		if failures.Valid && failures.String != "" {
			if jsonErr := json.Unmarshal([]byte(failures.String), &f.Failures); jsonErr != nil {
				return nil, fmt.Errorf("parsing failures: %w", jsonErr)
			}
		}

		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating firings: %w", err)
	}
	return firings, nil
}

// nullableString converts a possibly-empty byte slice to a driver value that
// stores NULL instead of an empty string.
func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
