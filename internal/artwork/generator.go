// Package artwork produces AI-generated artwork and persists it to object
// storage, returning a public reference.
package artwork

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// ErrGenerationFailed is returned when any step of artifact production fails.
// No partial artifact is ever referenced: the caller either gets a complete
// public URL or this error.
var ErrGenerationFailed = errors.New("artifact generation failed")

// Generation parameters mirrored from the inference service contract.
const (
	negativePrompt = "low quality"
	guidanceScale  = 7.5
	sampler        = "Euler"

	// Conditioning scale is drawn uniformly from [condScaleMin, condScaleMin+condScaleSpan)
	// per call to avoid deterministic repetition artifacts.
	condScaleMin  = 0.9
	condScaleSpan = 0.3
)

// DefaultGenerateTimeout bounds one generation call. Inference is slow; the
// serial polling cycle must still not stall on it forever.
const DefaultGenerateTimeout = 120 * time.Second

// Generator invokes the external image generation service.
type Generator struct {
	endpoint     string
	apiKey       string
	controlImage string // URL of the fixed reference control image
	client       *http.Client
	rand         func() float64
}

// GeneratorOption configures Generator.
type GeneratorOption func(*Generator)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) GeneratorOption {
	return func(g *Generator) {
		g.client = client
	}
}

// WithRand overrides the conditioning-scale randomness source. Used in tests.
func WithRand(fn func() float64) GeneratorOption {
	return func(g *Generator) {
		g.rand = fn
	}
}

// NewGenerator creates a generation service client.
func NewGenerator(endpoint, apiKey, controlImage string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		endpoint:     endpoint,
		apiKey:       apiKey,
		controlImage: controlImage,
		client:       &http.Client{Timeout: DefaultGenerateTimeout},
		rand:         rand.Float64,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type generateRequest struct {
	ControlImage                string  `json:"control_image"`
	Prompt                      string  `json:"prompt"`
	NegativePrompt              string  `json:"negative_prompt"`
	GuidanceScale               float64 `json:"guidance_scale"`
	ControlnetConditioningScale float64 `json:"controlnet_conditioning_scale"`
	ControlGuidanceStart        float64 `json:"control_guidance_start"`
	ControlGuidanceEnd          float64 `json:"control_guidance_end"`
	UpscalerStrength            float64 `json:"upscaler_strength"`
	Seed                        int64   `json:"seed"`
	Sampler                     string  `json:"sampler"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate invokes the inference service with the prompt and downloads the
// resulting image bytes.
func (g *Generator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	imageURL, err := g.requestImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return g.download(ctx, imageURL)
}

func (g *Generator) requestImage(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		ControlImage:                g.controlImage,
		Prompt:                      prompt,
		NegativePrompt:              negativePrompt,
		GuidanceScale:               guidanceScale,
		ControlnetConditioningScale: condScaleMin + g.rand()*condScaleSpan,
		ControlGuidanceStart:        0,
		ControlGuidanceEnd:          1,
		UpscalerStrength:            1,
		Seed:                        -1,
		Sampler:                     sampler,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate request: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", fmt.Errorf("no image URL in generate response")
	}
	return result.Data[0].URL, nil
}

func (g *Generator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create image download request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image bytes: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image body")
	}
	return data, nil
}
