package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Snapshot is the aggregate delivery state of one run's queue records at a
// point in time.
type Snapshot struct {
	Pending int `json:"pending"`
	Success int `json:"success"`
	Fail    int `json:"fail"`
}

// Total returns the number of correlated records.
func (s Snapshot) Total() int { return s.Pending + s.Success + s.Fail }

// Store reads and mutates existing dispatch queue records. Appends go
// through Writer; Store only touches pending records, and only for the
// explicit cancel/reschedule/edit operations.
type Store struct {
	db *sql.DB
}

// NewStore creates a store client over the dispatch store handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// CountByTag aggregates record counts for one correlation tag into
// pending/success/fail buckets.
func (s *Store) CountByTag(ctx context.Context, tag string) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status_code, COUNT(*)
		FROM sms_queue
		WHERE app_etc1 = $1
		GROUP BY status_code
	`, tag)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count queue records for %s: %w", tag, err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var code, n int
		if err := rows.Scan(&code, &n); err != nil {
			return Snapshot{}, fmt.Errorf("scan status count: %w", err)
		}
		switch {
		case IsPending(code):
			snap.Pending += n
		case IsSuccess(code):
			snap.Success += n
		default:
			snap.Fail += n
		}
	}
	return snap, rows.Err()
}

// DeletePending removes every still-pending record for a run. Used by
// cancel; records the network layer already acted on are left alone.
func (s *Store) DeletePending(ctx context.Context, tag string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sms_queue
		WHERE app_etc1 = $1 AND status_code IN ($2, $3)
	`, tag, StatusQueued, StatusRetry)
	if err != nil {
		return 0, fmt.Errorf("delete pending records for %s: %w", tag, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ShiftPending moves every pending record's requested send time by delta,
// preserving split-send spacing between records.
func (s *Store) ShiftPending(ctx context.Context, tag string, delta time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sms_queue
		SET sendreq_time = sendreq_time + $2 * INTERVAL '1 second'
		WHERE app_etc1 = $1 AND status_code IN ($3, $4)
	`, tag, int64(delta.Seconds()), StatusQueued, StatusRetry)
	if err != nil {
		return 0, fmt.Errorf("shift pending records for %s: %w", tag, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// UpdatePendingBody replaces the rendered content of one recipient's
// pending record. The status guard makes the update conditional: a record
// the network layer has already picked up is not rewritten.
func (s *Store) UpdatePendingBody(ctx context.Context, tag, destNo, subject, body string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sms_queue
		SET msg_contents = $3, subject = $4
		WHERE app_etc1 = $1 AND dest_no = $2 AND status_code IN ($5, $6)
	`, tag, destNo, body, subject, StatusQueued, StatusRetry)
	if err != nil {
		return 0, fmt.Errorf("update pending body for %s/%s: %w", tag, destNo, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
