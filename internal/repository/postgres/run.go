package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/service/campaign"
)

// RunRepo implements campaign.RunRepository against PostgreSQL. It also
// carries the reconciler's ledger queries.
type RunRepo struct{ db *sql.DB }

// NewRunRepo creates a Postgres-backed run ledger.
func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

// Create inserts a run, assigning the next per-campaign run number inside
// the insert so concurrent sends can't collide on it. The assigned number
// is written back to run.RunNo.
func (r *RunRepo) Create(ctx context.Context, run *domain.CampaignRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO campaign_runs
			(id, campaign_id, run_no, filter_snapshot, target_count,
			 success_count, fail_count, pending_count, status, scheduled_at, created_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(run_no), 0) + 1 FROM campaign_runs WHERE campaign_id = $2),
			$3, $4, 0, 0, $5, $6, $7, NOW())
		RETURNING run_no
	`, run.ID, run.CampaignID, []byte(run.FilterSnapshot), run.TargetCount,
		run.PendingCount, run.Status, run.ScheduledAt).Scan(&run.RunNo)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return run.ID, nil
}

const runCols = `id, campaign_id, run_no, filter_snapshot, target_count,
	       success_count, fail_count, pending_count, status, scheduled_at,
	       created_at, completed_at`

func scanRun(row interface{ Scan(...interface{}) error }) (*domain.CampaignRun, error) {
	run := &domain.CampaignRun{}
	err := row.Scan(
		&run.ID, &run.CampaignID, &run.RunNo, &run.FilterSnapshot, &run.TargetCount,
		&run.SuccessCount, &run.FailCount, &run.PendingCount, &run.Status, &run.ScheduledAt,
		&run.CreatedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *RunRepo) LatestByCampaign(ctx context.Context, campaignID string) (*domain.CampaignRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+runCols+`
		FROM campaign_runs
		WHERE campaign_id = $1
		ORDER BY run_no DESC
		LIMIT 1
	`, campaignID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

func (r *RunRepo) UpdateStatus(ctx context.Context, id string, status domain.RunStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_runs SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *RunRepo) UpdateSchedule(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_runs SET scheduled_at = $1 WHERE id = $2
	`, at, id)
	if err != nil {
		return fmt.Errorf("update run schedule: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

// ListOpen returns every run still awaiting reconciliation (dispatched,
// not yet terminal), oldest first.
func (r *RunRepo) ListOpen(ctx context.Context) ([]domain.CampaignRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runCols+`
		FROM campaign_runs
		WHERE status = $1
		ORDER BY created_at
	`, domain.RunDispatched)
	if err != nil {
		return nil, fmt.Errorf("list open runs: %w", err)
	}
	defer rows.Close()

	var out []domain.CampaignRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// ApplyCounts writes absolute counters taken from a dispatch-store
// snapshot, plus the resulting status. Writing absolutes (not deltas)
// keeps the reconciler idempotent.
func (r *RunRepo) ApplyCounts(ctx context.Context, id string, success, fail, pending int, status domain.RunStatus, completedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_runs
		SET success_count = $1, fail_count = $2, pending_count = $3,
		    status = $4, completed_at = $5
		WHERE id = $6
	`, success, fail, pending, status, completedAt, id)
	if err != nil {
		return fmt.Errorf("apply run counts: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}
