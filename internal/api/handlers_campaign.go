package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/httputil"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/service/campaign"
)

// writeCampaignError maps service sentinels onto HTTP statuses. Policy
// rejections and concurrency conflicts are 409s, not client mistakes.
func writeCampaignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, campaign.ErrEmptyTarget):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, campaign.ErrNoCallback):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, campaign.ErrTooLate),
		errors.Is(err, campaign.ErrEditInProgress),
		errors.Is(err, campaign.ErrInvalidTransition):
		httputil.Conflict(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

func (h *Handlers) listCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	campaigns, total, err := h.Campaigns.List(r.Context(), companyID(r), campaign.ListFilter{
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"campaigns": campaigns,
		"total":     total,
	})
}

func (h *Handlers) getCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.Campaigns.Get(r.Context(), companyID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) createCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := h.Campaigns.Create(r.Context(), companyID(r), input)
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.Created(w, c)
}

type estimateRequest struct {
	TargetFilter  json.RawMessage `json:"target_filter"`
	StoreCodes    []string        `json:"store_codes"`
	ExcludePhones []string        `json:"exclude_phones"`
}

func (h *Handlers) estimateTargets(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	res, err := h.Campaigns.Estimate(r.Context(), companyID(r), req.TargetFilter, campaign.ResolveOptions{
		StoreCodes:    req.StoreCodes,
		ExcludePhones: req.ExcludePhones,
	})
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, res)
}

type previewRequest struct {
	TargetFilter json.RawMessage `json:"target_filter"`
	Content      string          `json:"message_content"`
}

func (h *Handlers) previewMessage(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	rendered, err := h.Campaigns.Preview(r.Context(), companyID(r), req.TargetFilter, req.Content, campaign.ResolveOptions{})
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"preview": rendered})
}

func (h *Handlers) sendCampaign(w http.ResponseWriter, r *http.Request) {
	var ov campaign.SendOverrides
	if r.ContentLength > 0 && !httputil.Decode(w, r, &ov) {
		return
	}
	res, err := h.Campaigns.Send(r.Context(), companyID(r), chi.URLParam(r, "id"), ov)
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, res)
}

type cancelRequest struct {
	Reason    string `json:"reason"`
	ActorRole string `json:"actor_role"`
}

func (h *Handlers) cancelCampaign(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return
	}
	removed, err := h.Campaigns.Cancel(r.Context(), companyID(r), chi.URLParam(r, "id"), req.Reason, req.ActorRole)
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"removed": removed})
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (h *Handlers) rescheduleCampaign(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ScheduledAt.IsZero() {
		httputil.BadRequest(w, "scheduled_at is required")
		return
	}
	if err := h.Campaigns.Reschedule(r.Context(), companyID(r), chi.URLParam(r, "id"), req.ScheduledAt); err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.NoContent(w)
}

type updateMessageRequest struct {
	Subject string `json:"subject"`
	Content string `json:"message_content"`
}

func (h *Handlers) updateMessage(w http.ResponseWriter, r *http.Request) {
	var req updateMessageRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	updated, err := h.Campaigns.EditMessage(r.Context(), companyID(r), chi.URLParam(r, "id"), req.Subject, req.Content)
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"updated": updated})
}

func (h *Handlers) messageProgress(w http.ResponseWriter, r *http.Request) {
	p, ok, err := h.Campaigns.EditProgress(r.Context(), companyID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeCampaignError(w, err)
		return
	}
	if !ok {
		httputil.NotFound(w, "no edit in progress")
		return
	}
	httputil.OK(w, p)
}
