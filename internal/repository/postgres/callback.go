package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CallbackRepo is the per-store sender-identity directory, implementing
// campaign.CallbackDirectory.
type CallbackRepo struct{ db *sql.DB }

// NewCallbackRepo creates a Postgres-backed callback directory.
func NewCallbackRepo(db *sql.DB) *CallbackRepo { return &CallbackRepo{db: db} }

// Lookup returns the store's registered callback number, or "" when the
// store has none. Absence is not an error; the caller falls back to the
// campaign or tenant default.
func (r *CallbackRepo) Lookup(ctx context.Context, companyID, storeCode string) (string, error) {
	var number string
	err := r.db.QueryRowContext(ctx, `
		SELECT callback_number FROM store_callbacks
		WHERE company_id = $1 AND store_code = $2
	`, companyID, storeCode).Scan(&number)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup callback: %w", err)
	}
	return number, nil
}

// Upsert registers or replaces a store's callback number.
func (r *CallbackRepo) Upsert(ctx context.Context, companyID, storeCode, number string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO store_callbacks (id, company_id, store_code, callback_number, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (company_id, store_code)
		DO UPDATE SET callback_number = EXCLUDED.callback_number, updated_at = NOW()
	`, uuid.New().String(), companyID, storeCode, number)
	if err != nil {
		return fmt.Errorf("upsert callback: %w", err)
	}
	return nil
}

// Delete removes a store's callback registration.
func (r *CallbackRepo) Delete(ctx context.Context, companyID, storeCode string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM store_callbacks WHERE company_id = $1 AND store_code = $2
	`, companyID, storeCode)
	if err != nil {
		return fmt.Errorf("delete callback: %w", err)
	}
	return nil
}
