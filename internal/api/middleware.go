package api

import (
	"context"
	"net/http"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/pkg/httputil"
)

type contextKey string

const companyKey contextKey = "company_id"

// RequireCompany resolves the tenant from the X-Company-ID header and
// rejects requests without one. Every /api route is tenant-scoped.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID := r.Header.Get("X-Company-ID")
		if companyID == "" {
			httputil.Error(w, http.StatusUnauthorized, "missing X-Company-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), companyKey, companyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// companyID returns the tenant resolved by RequireCompany.
func companyID(r *http.Request) string {
	id, _ := r.Context().Value(companyKey).(string)
	return id
}
