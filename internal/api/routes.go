// Package api exposes the dispatch pipeline over HTTP. Handlers depend on
// narrow interfaces so tests can run against fakes; routing, middleware
// and the JSON envelope follow internal/pkg/httputil conventions.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/fieldmap"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/httputil"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/progress"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/reconcile"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/service/campaign"
)

// CampaignService is the slice of the campaign service the API consumes.
type CampaignService interface {
	Get(ctx context.Context, companyID, id string) (*domain.Campaign, error)
	List(ctx context.Context, companyID string, f campaign.ListFilter) ([]domain.Campaign, int, error)
	Create(ctx context.Context, companyID string, input campaign.CreateInput) (*domain.Campaign, error)
	Estimate(ctx context.Context, companyID string, rawFilter json.RawMessage, opts campaign.ResolveOptions) (*campaign.EstimateResult, error)
	Preview(ctx context.Context, companyID string, rawFilter json.RawMessage, template string, opts campaign.ResolveOptions) (string, error)
	Send(ctx context.Context, companyID, id string, ov campaign.SendOverrides) (*campaign.SendResult, error)
	Cancel(ctx context.Context, companyID, id, reason, actorRole string) (int, error)
	Reschedule(ctx context.Context, companyID, id string, at time.Time) error
	EditMessage(ctx context.Context, companyID, id, subject, content string) (int, error)
	EditProgress(ctx context.Context, companyID, id string) (progress.Progress, bool, error)
}

// UnsubscribeStore manages the per-tenant suppression list.
type UnsubscribeStore interface {
	Add(ctx context.Context, companyID, phone, reason string) (string, error)
	Remove(ctx context.Context, companyID, phone string) (bool, error)
	List(ctx context.Context, companyID string, limit, offset int) ([]domain.Unsubscribe, int, error)
}

// ReconcileRunner triggers one reconciliation pass.
type ReconcileRunner interface {
	Run(ctx context.Context) (reconcile.Summary, error)
}

// Handlers bundles every dependency the HTTP layer needs.
type Handlers struct {
	Campaigns    CampaignService
	Unsubscribes UnsubscribeStore
	Fields       *fieldmap.Catalog
	Reconciler   ReconcileRunner
}

// SetupRoutes configures the router.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Company-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireCompany)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.listCampaigns)
			r.Post("/", h.createCampaign)
			r.Post("/estimate", h.estimateTargets)
			r.Post("/preview", h.previewMessage)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getCampaign)
				r.Post("/send", h.sendCampaign)
				r.Post("/cancel", h.cancelCampaign)
				r.Post("/reschedule", h.rescheduleCampaign)
				r.Put("/message", h.updateMessage)
				r.Get("/message/progress", h.messageProgress)
			})
		})

		r.Route("/unsubscribes", func(r chi.Router) {
			r.Get("/", h.listUnsubscribes)
			r.Post("/", h.addUnsubscribe)
			r.Delete("/{phone}", h.removeUnsubscribe)
		})

		r.Get("/fields", h.listFields)
		r.Post("/reconcile", h.runReconcile)
	})

	return r
}
