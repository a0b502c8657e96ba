package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/linkstash/linkstash/internal/httpserver/deps"
	"github.com/linkstash/linkstash/internal/httpserver/mw"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/sharelink"
)

type shareResponse struct {
	Pending bool   `json:"pending"`
	URL     string `json:"url,omitempty"`
}

// ShareIngress accepts an incoming share payload, either as ?url= on a
// GET deep link or as the raw body of a POST. The extracted URL lands
// in the owner's mailbox slot, overwriting any unconsumed one.
func ShareIngress(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := mw.Owner(r.Context())

		payload := r.URL.Query().Get("url")
		if payload == "" && r.Method == http.MethodPost {
			body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
			if err == nil {
				payload = strings.TrimSpace(string(body))
			}
		}

		target, err := sharelink.ParseShare(payload)
		if err != nil {
			writeError(w, d, err)
			return
		}

		d.Mailbox.Put(owner, target)
		d.Logger.Info("share payload accepted",
			logger.String("owner", owner))
		writeJSON(w, http.StatusAccepted, shareResponse{Pending: true, URL: target})
	}
}

// SharePending peeks at the mailbox slot without clearing it.
func SharePending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := mw.Owner(r.Context())
		url, ok := d.Mailbox.Snapshot(owner)
		writeJSON(w, http.StatusOK, shareResponse{Pending: ok, URL: url})
	}
}

// ShareConsume hands out the pending share exactly once. The slot is
// cleared atomically with the read; a concurrent consumer gets nothing.
func ShareConsume(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := mw.Owner(r.Context())
		url, ok := d.Mailbox.Consume(owner)
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, shareResponse{Pending: false, URL: url})
	}
}
