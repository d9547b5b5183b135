// Package persistence is the Postgres layer: the append-only event log every
// emitted envelope lands in, the sale snapshot table the resident store
// restores from, and the migration runner. Settlement never blocks on any of
// it; the worker drains the emission channel asynchronously.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"launchpad/internal/event"
)

// EventRow is one row in launchpad.events, the flattened form of an emitted
// envelope.
type EventRow struct {
	Sequence  int64
	EventType string
	AssetID   string
	Actor     string
	Backend   string
	Payload   []byte
	StateHash []byte
	PrevHash  []byte
	Timestamp time.Time
}

// RowFromEnvelope flattens an envelope for storage.
func RowFromEnvelope(env event.Envelope) EventRow {
	return EventRow{
		Sequence:  env.Sequence,
		EventType: env.EventType.String(),
		AssetID:   env.AssetID,
		Actor:     env.Actor.String(),
		Backend:   env.Backend,
		Payload:   env.Payload,
		StateHash: env.StateHash[:],
		PrevHash:  env.PrevHash[:],
		Timestamp: env.Timestamp,
	}
}

// EventLogWriter batch-writes envelopes to Postgres with multi-row INSERT.
// Writes are idempotent on sequence, so a retried batch never duplicates.
type EventLogWriter struct {
	db *sql.DB
}

// NewEventLogWriter wraps a database handle.
func NewEventLogWriter(db *sql.DB) *EventLogWriter {
	return &EventLogWriter{db: db}
}

// WriteBatch writes a batch of event rows inside tx.
func (w *EventLogWriter) WriteBatch(ctx context.Context, tx *sql.Tx, rows []EventRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO launchpad.events
		(sequence, event_type, asset_id, actor, backend, payload, state_hash, prev_hash, timestamp)
		VALUES `

	values := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*9)

	for i, r := range rows {
		base := i * 9
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			r.Sequence, r.EventType, r.AssetID, r.Actor, r.Backend,
			r.Payload, r.StateHash, r.PrevHash, r.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// LoadFrom reads events from a given sequence onward, for external indexers
// catching up after a drop.
func (w *EventLogWriter) LoadFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT sequence, event_type, asset_id, actor, backend, payload, state_hash, prev_hash, timestamp
		FROM launchpad.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		if err := rows.Scan(
			&r.Sequence, &r.EventType, &r.AssetID, &r.Actor, &r.Backend,
			&r.Payload, &r.StateHash, &r.PrevHash, &r.Timestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSequence returns the highest persisted sequence, or -1 for an empty
// log.
func (w *EventLogWriter) LatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := w.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM launchpad.events`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}
