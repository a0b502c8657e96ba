package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linkstash/linkstash/internal/httpserver/deps"
	"github.com/linkstash/linkstash/internal/httpserver/mw"
)

// RefreshMetadata runs one enrichment attempt for a link on user
// request. ?reset=true zeroes the retry budget first, which is the only
// way to refetch an exhausted link.
func RefreshMetadata(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.Owner(ctx)
		id := chi.URLParam(r, "id")
		reset := r.URL.Query().Get("reset") == "true"

		if err := d.Coordinator.Refresh(ctx, owner, id, reset); err != nil {
			writeError(w, d, err)
			return
		}

		stored, err := d.Store.GetLink(ctx, owner, id)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, toLinkResponse(stored))
	}
}
