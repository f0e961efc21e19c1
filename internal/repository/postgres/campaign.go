package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignCols = `id, company_id, name, message_type, COALESCE(subject,''), message_content,
	       target_filter, scheduled_at, status, is_ad, split_count,
	       COALESCE(callback_number,''), per_store_callback, excluded_phones,
	       target_count, sent_count, success_count, fail_count,
	       COALESCE(cancel_reason,''), COALESCE(cancelled_by_role,''), COALESCE(created_by,''),
	       sent_at, completed_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Kind, &c.Subject, &c.Content,
		&c.TargetFilter, &c.ScheduledAt, &c.Status, &c.IsAd, &c.SplitCount,
		&c.CallbackNumber, &c.PerStoreCallback, pq.Array(&c.ExcludedPhones),
		&c.TargetCount, &c.SentCount, &c.SuccessCount, &c.FailCount,
		&c.CancelReason, &c.CancelledByRole, &c.CreatedBy,
		&c.SentAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, companyID, id string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignCols+`
		FROM campaigns
		WHERE id = $1 AND company_id = $2
	`, id, companyID)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, companyID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM campaigns WHERE company_id = $1`
	countArgs := []interface{}{companyID}
	if f.Status != "" {
		countQ += " AND status = $2"
		countArgs = append(countArgs, f.Status)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `SELECT ` + campaignCols + ` FROM campaigns WHERE company_id = $1`
	args := []interface{}{companyID}
	idx := 2
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, company_id, name, message_type, subject, message_content,
			 target_filter, scheduled_at, status, is_ad, split_count,
			 callback_number, per_store_callback, excluded_phones,
			 target_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
	`, c.ID, c.CompanyID, c.Name, c.Kind, c.Subject, c.Content,
		[]byte(c.TargetFilter), c.ScheduledAt, c.Status, c.IsAd, c.SplitCount,
		c.CallbackNumber, c.PerStoreCallback, pq.Array(c.ExcludedPhones),
		c.TargetCount, c.CreatedBy)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return c.ID, nil
}

func (r *CampaignRepo) UpdateContent(ctx context.Context, companyID, id, subject, content string) error {
	return r.exec(ctx, `
		UPDATE campaigns SET subject = $1, message_content = $2, updated_at = NOW()
		WHERE id = $3 AND company_id = $4
	`, subject, content, id, companyID)
}

func (r *CampaignRepo) UpdateSchedule(ctx context.Context, companyID, id string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE campaigns SET scheduled_at = $1, updated_at = NOW()
		WHERE id = $2 AND company_id = $3
	`, at, id, companyID)
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, companyID, id string, status domain.CampaignStatus) error {
	return r.exec(ctx, `
		UPDATE campaigns SET status = $1, updated_at = NOW()
		WHERE id = $2 AND company_id = $3
	`, status, id, companyID)
}

func (r *CampaignRepo) MarkSent(ctx context.Context, companyID, id string, status domain.CampaignStatus, target, sent int, sentAt time.Time) error {
	return r.exec(ctx, `
		UPDATE campaigns
		SET status = $1, target_count = $2, sent_count = $3, sent_at = $4, updated_at = NOW()
		WHERE id = $5 AND company_id = $6
	`, status, target, sent, sentAt, id, companyID)
}

func (r *CampaignRepo) MarkCancelled(ctx context.Context, companyID, id, reason, actorRole string) error {
	return r.exec(ctx, `
		UPDATE campaigns
		SET status = $1, cancel_reason = $2, cancelled_by_role = $3, updated_at = NOW()
		WHERE id = $4 AND company_id = $5
	`, domain.CampaignCancelled, reason, actorRole, id, companyID)
}

// MarkDueSending flips every scheduled campaign whose instant has arrived
// to sending. Used by the reconciler; returns how many rows changed.
func (r *CampaignRepo) MarkDueSending(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $1, updated_at = NOW()
		WHERE status = $2 AND scheduled_at <= $3
	`, domain.CampaignSending, domain.CampaignScheduled, now)
	if err != nil {
		return 0, fmt.Errorf("mark due sending: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ApplyRunResult writes absolute outcome counters for a campaign and, when
// the run has drained, its terminal status. Absolute writes keep repeated
// reconciliation idempotent.
func (r *CampaignRepo) ApplyRunResult(ctx context.Context, id string, success, fail int, status domain.CampaignStatus, completedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET success_count = $1, fail_count = $2, status = $3, completed_at = $4, updated_at = NOW()
		WHERE id = $5
	`, success, fail, status, completedAt, id)
	if err != nil {
		return fmt.Errorf("apply run result: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

// UpdateCounters writes absolute outcome counters without touching status.
// Used while a run is still draining.
func (r *CampaignRepo) UpdateCounters(ctx context.Context, id string, success, fail int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET success_count = $1, fail_count = $2, updated_at = NOW()
		WHERE id = $3
	`, success, fail, id)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) exec(ctx context.Context, q string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}
