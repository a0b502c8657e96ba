package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/httpserver/deps"
	"github.com/linkstash/linkstash/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type metadataResponse struct {
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	Complete      bool       `json:"complete"`
	Exhausted     bool       `json:"exhausted"`
}

type linkResponse struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	NormalizedURL string           `json:"normalizedUrl"`
	Domain        string           `json:"domain"`
	Title         string           `json:"title"`
	DisplayTitle  string           `json:"displayTitle"`
	Description   string           `json:"description,omitempty"`
	ThumbnailURL  string           `json:"thumbnailUrl,omitempty"`
	Note          string           `json:"note,omitempty"`
	SpaceID       string           `json:"spaceId,omitempty"`
	TagIDs        []string         `json:"tagIds,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	OpenedAt      *time.Time       `json:"openedAt,omitempty"`
	Tentative     bool             `json:"tentative,omitempty"`
	Metadata      metadataResponse `json:"metadata"`
}

func toLinkResponse(l *domain.Link) linkResponse {
	return linkResponse{
		ID:            l.ID,
		URL:           l.URL,
		NormalizedURL: l.NormalizedURL,
		Domain:        l.Domain,
		Title:         l.Title,
		DisplayTitle:  l.DisplayTitle(),
		Description:   l.Description,
		ThumbnailURL:  l.ThumbnailURL,
		Note:          l.Note,
		SpaceID:       l.SpaceID,
		TagIDs:        l.TagIDs,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		OpenedAt:      l.OpenedAt,
		Tentative:     l.Tentative,
		Metadata: metadataResponse{
			Attempts:      l.Metadata.Attempts,
			LastAttemptAt: l.Metadata.LastAttemptAt,
			Complete:      l.Metadata.Complete,
			Exhausted:     l.Metadata.Exhausted(),
		},
	}
}

func toLinkResponses(links []*domain.Link) []linkResponse {
	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, toLinkResponse(l))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP status codes.
func writeError(w http.ResponseWriter, d deps.Deps, err error) {
	resp := errorResponse{Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExhaustedRetries):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNetwork):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		d.Logger.Error("request failed", logger.Error(err))
	}
	writeJSON(w, status, resp)
}
