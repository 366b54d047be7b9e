// Package objectstore is a client for the Supabase-compatible storage API that
// holds generated artwork and metadata documents.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout bounds every storage API call.
const DefaultTimeout = 30 * time.Second

// Client talks to the storage service for one bucket.
type Client struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *http.Client

	ensureOnce sync.Once
	ensureErr  error
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a storage client for the given bucket.
func NewClient(baseURL, apiKey, bucket string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

type bucketInfo struct {
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

// EnsureBucket creates the configured bucket as a public bucket if it does not
// exist yet. Checked once per client lifetime; subsequent calls are no-ops.
func (c *Client) EnsureBucket(ctx context.Context) error {
	c.ensureOnce.Do(func() {
		c.ensureErr = c.ensureBucket(ctx)
	})
	return c.ensureErr
}

func (c *Client) ensureBucket(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/storage/v1/bucket", nil)
	if err != nil {
		return fmt.Errorf("create list buckets request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("list buckets: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var buckets []bucketInfo
	if err := json.NewDecoder(resp.Body).Decode(&buckets); err != nil {
		return fmt.Errorf("decode bucket list: %w", err)
	}
	for _, b := range buckets {
		if b.Name == c.bucket {
			return nil
		}
	}

	return c.createBucket(ctx)
}

func (c *Client) createBucket(ctx context.Context) error {
	payload, err := json.Marshal(bucketInfo{Name: c.bucket, Public: true})
	if err != nil {
		return fmt.Errorf("marshal bucket request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/storage/v1/bucket", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create bucket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("create bucket: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Upload stores data under key and returns its public URL. Keys are expected
// to be fresh (uuid-based); the call does not upsert.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := c.EnsureBucket(ctx); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload object: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return c.PublicURL(key), nil
}

// PublicURL builds the publicly resolvable URL for an object key.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, key)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
