package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/httpserver/deps"
	"github.com/linkstash/linkstash/internal/httpserver/mw"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/mutation"
	"github.com/linkstash/linkstash/internal/store"
	redisstore "github.com/linkstash/linkstash/internal/store/redis"
)

type createLinkRequest struct {
	URL     string   `json:"url"`
	Note    string   `json:"note,omitempty"`
	SpaceID string   `json:"spaceId,omitempty"`
	TagIDs  []string `json:"tagIds,omitempty"`
}

type patchLinkRequest struct {
	Title   *string   `json:"title,omitempty"`
	Note    *string   `json:"note,omitempty"`
	SpaceID *string   `json:"spaceId,omitempty"`
	TagIDs  *[]string `json:"tagIds,omitempty"`
}

type windowResponse struct {
	Links     []linkResponse `json:"links"`
	PageIndex int            `json:"pageIndex"`
	Exhausted bool           `json:"exhausted"`
}

// CreateLink captures a new link. The capture is applied to the local
// window immediately; the response waits for the remote outcome so the
// caller gets a definitive status.
func CreateLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := mw.Owner(r.Context())

		var req createLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d, &domain.ValidationError{Field: "body", Message: "malformed JSON body"})
			return
		}

		tentative, done, err := d.Engine.Create(r.Context(), owner, mutation.CreateInput{
			URL:     req.URL,
			Note:    req.Note,
			SpaceID: req.SpaceID,
			TagIDs:  req.TagIDs,
		})
		if err != nil {
			writeError(w, d, err)
			return
		}

		if err := <-done; err != nil {
			writeError(w, d, err)
			return
		}

		stored, ok := d.Engine.Cache().GetByNormalized(owner, tentative.NormalizedURL)
		if !ok {
			// Confirmed remotely but evicted locally in between. Rare.
			stored = tentative
		}
		d.Logger.Info("link captured",
			logger.String("owner", owner),
			logger.String("link_id", stored.ID),
			logger.String("domain", stored.Domain))
		writeJSON(w, http.StatusCreated, toLinkResponse(stored))
	}
}

// ListLinks serves the paged collection. Without a space filter it
// drives the owner's loader; ?page=next appends the next page,
// ?refresh=true rebuilds the window. With ?space= it reads the store
// directly.
func ListLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.Owner(ctx)

		if space := r.URL.Query().Get("space"); space != "" {
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			links, err := d.Store.ListLinks(ctx, owner, store.Page{
				Index:   page,
				Size:    d.PageSize,
				SpaceID: space,
			})
			if err != nil {
				writeError(w, d, err)
				return
			}
			writeJSON(w, http.StatusOK, windowResponse{
				Links:     toLinkResponses(links),
				PageIndex: page,
				Exhausted: len(links) < d.PageSize,
			})
			return
		}

		loader := d.Pagers.For(owner)
		var err error
		switch {
		case r.URL.Query().Get("page") == "next":
			err = loader.LoadNextPage(ctx)
		case r.URL.Query().Get("refresh") == "true":
			err = loader.Refresh(ctx)
		default:
			err = loader.LoadFirstPage(ctx)
		}
		if err != nil {
			writeError(w, d, err)
			return
		}

		cursor := loader.Cursor()
		writeJSON(w, http.StatusOK, windowResponse{
			Links:     toLinkResponses(loader.Window()),
			PageIndex: cursor.PageIndex,
			Exhausted: cursor.Exhausted,
		})
	}
}

// WindowSearch filters the loaded window client-side. It never reaches
// the store; unloaded pages are invisible to it.
func WindowSearch(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := mw.Owner(r.Context())
		query := r.URL.Query().Get("q")

		loader := d.Pagers.For(owner)
		writeJSON(w, http.StatusOK, windowResponse{
			Links:     toLinkResponses(loader.Filter(query)),
			PageIndex: loader.Cursor().PageIndex,
			Exhausted: loader.Cursor().Exhausted,
		})
	}
}

// PatchLink applies a partial edit, optimistically local then remote.
func PatchLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := mw.Owner(r.Context())
		id := chi.URLParam(r, "id")

		var req patchLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d, &domain.ValidationError{Field: "body", Message: "malformed JSON body"})
			return
		}

		_, done, err := d.Engine.Update(r.Context(), owner, id, domain.LinkPatch{
			Title:   req.Title,
			Note:    req.Note,
			SpaceID: req.SpaceID,
			TagIDs:  req.TagIDs,
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		if err := <-done; err != nil {
			writeError(w, d, err)
			return
		}

		stored, ok := d.Engine.Cache().Get(owner, id)
		if !ok {
			writeError(w, d, domain.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toLinkResponse(stored))
	}
}

// DeleteLink removes a link, optimistically local then remote.
func DeleteLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := mw.Owner(r.Context())
		id := chi.URLParam(r, "id")

		done, err := d.Engine.Delete(r.Context(), owner, id)
		if err != nil {
			writeError(w, d, err)
			return
		}
		if err := <-done; err != nil {
			writeError(w, d, err)
			return
		}

		d.Logger.Info("link deleted",
			logger.String("owner", owner),
			logger.String("link_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// OpenLink records that the user opened a link. Analytics only; the
// window order never moves.
func OpenLink(d deps.Deps) http.HandlerFunc {
	opens := redisstore.NewStore(d.RedisClient)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.Owner(ctx)
		id := chi.URLParam(r, "id")

		if err := d.Engine.Open(ctx, owner, id); err != nil {
			writeError(w, d, err)
			return
		}

		// Best effort open counter.
		if err := opens.IncrementOpens(ctx, owner, id); err != nil {
			d.Logger.Debug("failed to bump open counter",
				logger.String("link_id", id),
				logger.Error(err))
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
