package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/utils"
)

// Fetcher resolves a target URL to its page metadata through the
// configured resolver endpoint. The resolver answers
// GET <endpoint>?url=<target> with a JSON body of title, description
// and thumbnailUrl.
type Fetcher struct {
	endpoint string
	client   *http.Client
}

func NewFetcher(endpoint string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, target string) (domain.LinkMetadata, error) {
	var meta domain.LinkMetadata

	reqURL := fmt.Sprintf("%s?url=%s", f.endpoint, url.QueryEscape(target))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return meta, fmt.Errorf("failed to build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return meta, &domain.NetworkError{Op: "metadata fetch", Err: err}
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return meta, &domain.NetworkError{
			Op:  "metadata fetch",
			Err: fmt.Errorf("resolver returned status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return meta, &domain.NetworkError{Op: "metadata decode", Err: err}
	}
	return meta, nil
}
