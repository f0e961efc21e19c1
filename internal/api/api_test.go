package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/fieldmap"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/progress"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/reconcile"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/service/campaign"
)

type stubService struct {
	sendErr   error
	cancelErr error
	estimate  *campaign.EstimateResult
}

func (s *stubService) Get(_ context.Context, companyID, id string) (*domain.Campaign, error) {
	if id != "c1" {
		return nil, campaign.ErrNotFound
	}
	return &domain.Campaign{ID: id, CompanyID: companyID, Name: "테스트"}, nil
}

func (s *stubService) List(context.Context, string, campaign.ListFilter) ([]domain.Campaign, int, error) {
	return nil, 0, nil
}

func (s *stubService) Create(_ context.Context, companyID string, input campaign.CreateInput) (*domain.Campaign, error) {
	return &domain.Campaign{ID: "new", CompanyID: companyID, Name: input.Name, Status: domain.CampaignDraft}, nil
}

func (s *stubService) Estimate(context.Context, string, json.RawMessage, campaign.ResolveOptions) (*campaign.EstimateResult, error) {
	return s.estimate, nil
}

func (s *stubService) Preview(context.Context, string, json.RawMessage, string, campaign.ResolveOptions) (string, error) {
	return "김민준님 안녕하세요", nil
}

func (s *stubService) Send(context.Context, string, string, campaign.SendOverrides) (*campaign.SendResult, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &campaign.SendResult{RunID: "r1", RunNo: 1, TargetCount: 40, Written: 40}, nil
}

func (s *stubService) Cancel(context.Context, string, string, string, string) (int, error) {
	if s.cancelErr != nil {
		return 0, s.cancelErr
	}
	return 40, nil
}

func (s *stubService) Reschedule(context.Context, string, string, time.Time) error { return nil }

func (s *stubService) EditMessage(context.Context, string, string, string, string) (int, error) {
	return 40, nil
}

func (s *stubService) EditProgress(context.Context, string, string) (progress.Progress, bool, error) {
	return progress.New(40, 16), true, nil
}

type stubReconciler struct{}

func (stubReconciler) Run(context.Context) (reconcile.Summary, error) {
	return reconcile.Summary{Reconciled: 2, Completed: 1}, nil
}

func newTestRouter(svc *stubService) http.Handler {
	return SetupRoutes(&Handlers{
		Campaigns:  svc,
		Fields:     fieldmap.Compile(nil),
		Reconciler: stubReconciler{},
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, withCompany bool) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if withCompany {
		r.Header.Set("X-Company-ID", "co1")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRequireCompanyHeader(t *testing.T) {
	h := newTestRouter(&stubService{})

	if w := doRequest(t, h, "GET", "/api/campaigns/c1", "", false); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header should be 401, got %d", w.Code)
	}
	if w := doRequest(t, h, "GET", "/api/campaigns/c1", "", true); w.Code != http.StatusOK {
		t.Fatalf("with header should be 200, got %d: %s", w.Code, w.Body)
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	h := newTestRouter(&stubService{})
	if w := doRequest(t, h, "GET", "/api/campaigns/missing", "", true); w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
}

func TestSendConflictStatuses(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{campaign.ErrTooLate, http.StatusConflict},
		{campaign.ErrInvalidTransition, http.StatusConflict},
		{campaign.ErrEmptyTarget, http.StatusBadRequest},
		{campaign.ErrNoCallback, http.StatusBadRequest},
	}
	for _, tc := range cases {
		h := newTestRouter(&stubService{sendErr: tc.err})
		w := doRequest(t, h, "POST", "/api/campaigns/c1/send", "", true)
		if w.Code != tc.code {
			t.Fatalf("%v: want %d, got %d", tc.err, tc.code, w.Code)
		}
	}
}

func TestEstimateResponse(t *testing.T) {
	h := newTestRouter(&stubService{estimate: &campaign.EstimateResult{Count: 40, Unsubscribed: 3}})
	w := doRequest(t, h, "POST", "/api/campaigns/estimate", `{"target_filter":{"gender":"남"}}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body)
	}
	var res campaign.EstimateResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Count != 40 || res.Unsubscribed != 3 {
		t.Fatalf("unexpected estimate: %+v", res)
	}
}

func TestFieldsEndpoint(t *testing.T) {
	h := newTestRouter(&stubService{})
	w := doRequest(t, h, "GET", "/api/fields", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var res struct {
		Fields []fieldmap.FieldMapping `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Fields) == 0 {
		t.Fatal("standard fields missing")
	}
}

func TestReconcileEndpoint(t *testing.T) {
	h := newTestRouter(&stubService{})
	w := doRequest(t, h, "POST", "/api/reconcile", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var sum reconcile.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Reconciled != 2 || sum.Completed != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}
