package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/normalize"
)

// UnsubscribeRepo manages the per-tenant suppression list. Phones are
// normalized on write so lookups against customer rows always compare the
// same representation.
type UnsubscribeRepo struct{ db *sql.DB }

// NewUnsubscribeRepo creates a Postgres-backed suppression list.
func NewUnsubscribeRepo(db *sql.DB) *UnsubscribeRepo { return &UnsubscribeRepo{db: db} }

// Add records an unsubscribe. Re-adding an existing pair is a no-op, not
// an error. Returns the normalized phone.
func (r *UnsubscribeRepo) Add(ctx context.Context, companyID, phone, reason string) (string, error) {
	p := normalize.Phone(phone)
	if p == "" {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO unsubscribes (id, company_id, phone, reason, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (company_id, phone) DO NOTHING
	`, uuid.New().String(), companyID, p, reason)
	if err != nil {
		return "", fmt.Errorf("add unsubscribe: %w", err)
	}
	return p, nil
}

// Remove re-enables dispatch to the phone. Returns true when an entry was
// actually removed.
func (r *UnsubscribeRepo) Remove(ctx context.Context, companyID, phone string) (bool, error) {
	p := normalize.Phone(phone)
	if p == "" {
		return false, fmt.Errorf("invalid phone number %q", phone)
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM unsubscribes WHERE company_id = $1 AND phone = $2
	`, companyID, p)
	if err != nil {
		return false, fmt.Errorf("remove unsubscribe: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns suppression entries newest first, plus the total count.
func (r *UnsubscribeRepo) List(ctx context.Context, companyID string, limit, offset int) ([]domain.Unsubscribe, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM unsubscribes WHERE company_id = $1`, companyID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count unsubscribes: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, phone, COALESCE(reason,''), created_at
		FROM unsubscribes
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, companyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list unsubscribes: %w", err)
	}
	defer rows.Close()

	var out []domain.Unsubscribe
	for rows.Next() {
		var u domain.Unsubscribe
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Phone, &u.Reason, &u.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan unsubscribe: %w", err)
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}
