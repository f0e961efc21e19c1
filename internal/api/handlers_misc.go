package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/httputil"
)

type unsubscribeRequest struct {
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

func (h *Handlers) addUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	phone, err := h.Unsubscribes.Add(r.Context(), companyID(r), req.Phone, req.Reason)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, map[string]string{"phone": phone})
}

func (h *Handlers) removeUnsubscribe(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Unsubscribes.Remove(r.Context(), companyID(r), chi.URLParam(r, "phone"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !removed {
		httputil.NotFound(w, "no unsubscribe entry for that phone")
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) listUnsubscribes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	entries, total, err := h.Unsubscribes.List(r.Context(), companyID(r), limit, offset)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"unsubscribes": entries,
		"total":        total,
	})
}

func (h *Handlers) listFields(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"fields": h.Fields.Fields()})
}

func (h *Handlers) runReconcile(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Reconciler.Run(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, sum)
}
