package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/filter"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/service/campaign"
)

var targetRef = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func newTargetRepo(t *testing.T) (*TargetRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := NewTargetRepo(db)
	repo.SetClock(func() time.Time { return targetRef })
	return repo, mock
}

func mustParse(t *testing.T, raw string) *filter.Document {
	t.Helper()
	doc, err := filter.Parse(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	return doc
}

func TestCountAppliesMandatoryPredicate(t *testing.T) {
	repo, mock := newTargetRepo(t)
	doc := mustParse(t, `{"gender":"남"}`)

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).*FROM customers c.*`+
		`WHERE c\.company_id = \$1 AND c\.is_active = TRUE AND c\.sms_opt_in = TRUE.*`+
		`AND NOT EXISTS \(.*FROM unsubscribes u.*\).*`+
		`AND c\.gender = ANY\(\$2\)`).
		WithArgs("co1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))

	n, err := repo.Count(context.Background(), "co1", doc, campaign.ResolveOptions{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 40 {
		t.Fatalf("count = %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCountUnsubscribedFlipsExists(t *testing.T) {
	repo, mock := newTargetRepo(t)
	doc := mustParse(t, `{"gender":"남"}`)

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).*AND EXISTS \(.*FROM unsubscribes u.*\)`).
		WithArgs("co1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountUnsubscribed(context.Background(), "co1", doc, campaign.ResolveOptions{})
	if err != nil {
		t.Fatalf("count unsubscribed: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d", n)
	}
}

func TestSelectSharesPredicateWithCount(t *testing.T) {
	repo, mock := newTargetRepo(t)
	doc := mustParse(t, `{"age":{"operator":"gte","value":30}}`)

	// Same compiled fragment, same placeholder, same argument.
	predicate := `AND \(2026 - c\.birth_year\) >= \$2`

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).*` + predicate).
		WithArgs("co1", float64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`(?s)SELECT .*FROM customers c.*` + predicate + `.* ORDER BY c\.id`).
		WithArgs("co1", float64(30)).
		WillReturnRows(customerRows("cust-1", "김민준", "01011112222"))

	if _, err := repo.Count(context.Background(), "co1", doc, campaign.ResolveOptions{}); err != nil {
		t.Fatalf("count: %v", err)
	}
	customers, err := repo.Select(context.Background(), "co1", doc, campaign.ResolveOptions{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(customers) != 1 || customers[0].Name != "김민준" {
		t.Fatalf("unexpected customers: %+v", customers)
	}
	if customers[0].CustomFields["custom_1"] != "골프" {
		t.Fatalf("custom fields not decoded: %+v", customers[0].CustomFields)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSelectScopesAndExcludes(t *testing.T) {
	repo, mock := newTargetRepo(t)
	doc := mustParse(t, `{"grade":"VIP"}`)

	mock.ExpectQuery(`(?s)SELECT .*FROM customers c.*`+
		`AND c\.store_code = ANY\(\$2\).*`+
		`AND NOT \(c\.phone = ANY\(\$3\)\).*`+
		`AND c\.grade = ANY\(\$4\)`).
		WithArgs("co1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(customerRows("cust-2", "이서연", "01033334444"))

	opts := campaign.ResolveOptions{
		StoreCodes:    []string{"GN01"},
		ExcludePhones: []string{"01099998888"},
	}
	if _, err := repo.Select(context.Background(), "co1", doc, opts); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func customerRows(id, name, phone string) *sqlmock.Rows {
	now := targetRef
	return sqlmock.NewRows([]string{
		"id", "company_id", "name", "phone", "gender",
		"birth_year", "email", "address", "region",
		"grade", "points", "store_code",
		"registration_type", "registered_store", "store_phone",
		"recent_purchase_store", "recent_purchase_amount", "total_purchase_amount",
		"recent_purchase_at", "sms_opt_in", "is_active", "custom_fields", "created_at", "updated_at",
	}).AddRow(
		id, "co1", name, phone, "남",
		1990, "", "", "서울",
		"VIP", 12500, "GN01",
		"", "", "",
		"", 0.0, 0.0,
		nil, true, true, []byte(`{"custom_1":"골프"}`), now, now,
	)
}
