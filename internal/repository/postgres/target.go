package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/filter"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/service/campaign"
)

// TargetRepo implements campaign.TargetSource against PostgreSQL.
//
// Count, CountUnsubscribed and Select all route through buildTarget, so an
// estimate and the send that follows it evaluate the same predicate — they
// can only diverge by data changing between the two calls.
type TargetRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewTargetRepo creates a Postgres-backed target resolver.
func NewTargetRepo(db *sql.DB) *TargetRepo {
	return &TargetRepo{db: db, now: time.Now}
}

// SetClock pins the reference instant used for age arithmetic. Intended
// for tests.
func (r *TargetRepo) SetClock(now func() time.Time) { r.now = now }

// buildTarget assembles the FROM/WHERE tail shared by every query.
// suppressed selects the complement: customers who match the filter but
// carry an unsubscribe entry.
func (r *TargetRepo) buildTarget(companyID string, doc *filter.Document, opts campaign.ResolveOptions, suppressed bool) (string, []interface{}) {
	q := `
		FROM customers c
		WHERE c.company_id = $1 AND c.is_active = TRUE AND c.sms_opt_in = TRUE`
	args := []interface{}{companyID}
	idx := 2

	exists := "NOT EXISTS"
	if suppressed {
		exists = "EXISTS"
	}
	q += ` AND ` + exists + ` (
			SELECT 1 FROM unsubscribes u
			WHERE u.company_id = c.company_id AND u.phone = c.phone
		)`

	if len(opts.StoreCodes) > 0 {
		q += fmt.Sprintf(" AND c.store_code = ANY($%d)", idx)
		args = append(args, pq.Array(opts.StoreCodes))
		idx++
	}
	if len(opts.ExcludePhones) > 0 {
		q += fmt.Sprintf(" AND NOT (c.phone = ANY($%d))", idx)
		args = append(args, pq.Array(opts.ExcludePhones))
		idx++
	}

	comp := filter.NewCompiler(idx, r.now()).SetTablePrefix("c.")
	q += comp.Compile(doc)
	args = append(args, comp.Args()...)
	return q, args
}

func (r *TargetRepo) Count(ctx context.Context, companyID string, doc *filter.Document, opts campaign.ResolveOptions) (int, error) {
	tail, args := r.buildTarget(companyID, doc, opts, false)
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+tail, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count targets: %w", err)
	}
	return n, nil
}

func (r *TargetRepo) CountUnsubscribed(ctx context.Context, companyID string, doc *filter.Document, opts campaign.ResolveOptions) (int, error) {
	tail, args := r.buildTarget(companyID, doc, opts, true)
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+tail, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unsubscribed: %w", err)
	}
	return n, nil
}

const customerCols = `c.id, c.company_id, COALESCE(c.name,''), c.phone, COALESCE(c.gender,''),
		c.birth_year, COALESCE(c.email,''), COALESCE(c.address,''), COALESCE(c.region,''),
		COALESCE(c.grade,''), c.points, COALESCE(c.store_code,''),
		COALESCE(c.registration_type,''), COALESCE(c.registered_store,''), COALESCE(c.store_phone,''),
		COALESCE(c.recent_purchase_store,''), c.recent_purchase_amount, c.total_purchase_amount,
		c.recent_purchase_at, c.sms_opt_in, c.is_active, c.custom_fields, c.created_at, c.updated_at`

func (r *TargetRepo) Select(ctx context.Context, companyID string, doc *filter.Document, opts campaign.ResolveOptions) ([]domain.Customer, error) {
	tail, args := r.buildTarget(companyID, doc, opts, false)
	rows, err := r.db.QueryContext(ctx, "SELECT "+customerCols+tail+" ORDER BY c.id", args...)
	if err != nil {
		return nil, fmt.Errorf("select targets: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		var custom []byte
		if err := rows.Scan(
			&c.ID, &c.CompanyID, &c.Name, &c.Phone, &c.Gender,
			&c.BirthYear, &c.Email, &c.Address, &c.Region,
			&c.Grade, &c.Points, &c.StoreCode,
			&c.RegistrationType, &c.RegisteredStore, &c.StorePhone,
			&c.RecentPurchaseStore, &c.RecentPurchaseAmount, &c.TotalPurchaseAmount,
			&c.RecentPurchaseAt, &c.SMSOptIn, &c.IsActive, &custom, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		if len(custom) > 0 {
			if err := json.Unmarshal(custom, &c.CustomFields); err != nil {
				return nil, fmt.Errorf("decode custom fields for %s: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
