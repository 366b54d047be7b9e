package artwork

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	data []byte
	err  error
}

func (s *stubGenerator) Generate(_ context.Context, _ string) ([]byte, error) {
	return s.data, s.err
}

type stubUploader struct {
	url     string
	err     error
	lastKey string
	calls   int
}

func (s *stubUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.calls++
	s.lastKey = key
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func TestPipeline_Produce(t *testing.T) {
	up := &stubUploader{url: "https://storage.example.com/public/abc.png"}
	p := NewPipeline(&stubGenerator{data: []byte("png-bytes")}, up, nil)

	url, err := p.Produce(context.Background(), "a prompt")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/public/abc.png", url)
	assert.True(t, strings.HasSuffix(up.lastKey, ".png"))
}

func TestPipeline_GenerateFailureSkipsUpload(t *testing.T) {
	up := &stubUploader{url: "https://storage.example.com/public/abc.png"}
	p := NewPipeline(&stubGenerator{err: errors.New("inference down")}, up, nil)

	_, err := p.Produce(context.Background(), "a prompt")
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, 0, up.calls, "no upload without complete image bytes")
}

func TestPipeline_UploadFailure(t *testing.T) {
	up := &stubUploader{err: errors.New("storage down")}
	p := NewPipeline(&stubGenerator{data: []byte("png-bytes")}, up, nil)

	_, err := p.Produce(context.Background(), "a prompt")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestPipeline_UniqueKeysPerCall(t *testing.T) {
	up := &stubUploader{url: "https://storage.example.com/public/abc.png"}
	p := NewPipeline(&stubGenerator{data: []byte("png-bytes")}, up, nil)

	_, err := p.Produce(context.Background(), "a prompt")
	require.NoError(t, err)
	first := up.lastKey

	_, err = p.Produce(context.Background(), "a prompt")
	require.NoError(t, err)
	assert.NotEqual(t, first, up.lastKey)
}

func TestGenerator_ConditioningScaleRange(t *testing.T) {
	var captured generateRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": "http://" + r.Host + "/image.png"}},
		})
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("png-bytes"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	for _, roll := range []float64{0, 0.5, 0.999} {
		g := NewGenerator(server.URL+"/generate", "key", "http://example.com/control.png",
			WithRand(func() float64 { return roll }))

		data, err := g.Generate(context.Background(), "a prompt")
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)

		assert.InDelta(t, 0.9+roll*0.3, captured.ControlnetConditioningScale, 1e-9)
		assert.GreaterOrEqual(t, captured.ControlnetConditioningScale, 0.9)
		assert.Less(t, captured.ControlnetConditioningScale, 1.2)
		assert.Equal(t, "low quality", captured.NegativePrompt)
		assert.Equal(t, 7.5, captured.GuidanceScale)
		assert.Equal(t, int64(-1), captured.Seed)
		assert.Equal(t, "Euler", captured.Sampler)
	}
}

func TestGenerator_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	g := NewGenerator(server.URL, "", "http://example.com/control.png")
	_, err := g.Generate(context.Background(), "a prompt")
	assert.Error(t, err)
}

func TestGenerator_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewGenerator(server.URL, "", "http://example.com/control.png")
	_, err := g.Generate(context.Background(), "a prompt")
	assert.Error(t, err)
}
