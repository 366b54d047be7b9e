// Package fetcher polls the external activity feed and drives each new sale
// through artwork generation, metadata update and persistence, deduplicating
// by transaction signature.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/019ec6e2/dynamic-nft-generator/internal/domain"
)

// ErrFetchFailed is returned for transport failures, non-2xx statuses and
// non-JSON bodies from the activity source. The polling cycle aborts and the
// next tick retries.
var ErrFetchFailed = errors.New("activity fetch failed")

// DefaultFetchTimeout bounds one activity feed request.
const DefaultFetchTimeout = 30 * time.Second

// activityResponse is the feed's wire format.
type activityResponse struct {
	Activities []domain.Activity `json:"activities"`
}

// ActivityClient fetches sale activity batches from the configured endpoint.
type ActivityClient struct {
	endpoint string
	client   *http.Client
}

// NewActivityClient creates an activity feed client. proxyURL may be empty;
// when set, requests are routed through the HTTP proxy.
func NewActivityClient(endpoint, proxyURL string) (*ActivityClient, error) {
	transport := http.DefaultTransport
	if proxyURL != "" {
		if !strings.Contains(proxyURL, "://") {
			proxyURL = "http://" + proxyURL
		}
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
	}

	return &ActivityClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   DefaultFetchTimeout,
			Transport: transport,
		},
	}, nil
}

// Fetch retrieves the current activity batch. Any failure wraps ErrFetchFailed.
func (c *ActivityClient) Fetch(ctx context.Context) ([]domain.Activity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetchFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, fmt.Errorf("%w: unexpected content type %q", ErrFetchFailed, contentType)
	}

	var body activityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrFetchFailed, err)
	}
	return body.Activities, nil
}
