package mw

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const ownerKey ctxKey = iota

// OwnerHeader carries the caller's owner identity. Every collection
// route requires it.
const OwnerHeader = "X-Owner-ID"

// RequireOwner rejects requests without an owner identity and stores
// the identity in the request context for handlers.
func RequireOwner() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
			if owner == "" {
				http.Error(w, "missing "+OwnerHeader+" header", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
		})
	}
}

// Owner returns the owner identity stored by RequireOwner, empty when
// the middleware did not run.
func Owner(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}
