package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/019ec6e2/dynamic-nft-generator/internal/domain"
	"github.com/019ec6e2/dynamic-nft-generator/internal/metaplex"
	"github.com/019ec6e2/dynamic-nft-generator/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedPrompts struct{}

func (fixedPrompts) Next() string { return "test prompt" }

type fakeArtwork struct {
	url   string
	err   error
	calls int
}

func (f *fakeArtwork) Produce(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeUpdater struct {
	result metaplex.UpdateResult
	calls  []metaplex.UpdateParams
}

func (f *fakeUpdater) Update(_ context.Context, params metaplex.UpdateParams) metaplex.UpdateResult {
	f.calls = append(f.calls, params)
	return f.result
}

type testEnv struct {
	store   *memory.TransactionStore
	artwork *fakeArtwork
	updater *fakeUpdater
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   memory.NewTransactionStore(),
		artwork: &fakeArtwork{url: "https://cdn.example.com/art.png"},
		updater: &fakeUpdater{result: metaplex.UpdateResult{Success: true, Signature: "updsig"}},
	}
	env.router = NewRouter(NewHandlers(env.store, fixedPrompts{}, env.artwork, env.updater, nil))
	return env
}

func (e *testEnv) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedTransaction(t *testing.T, signature string, imageURL *string) {
	t.Helper()
	tx := &domain.SaleTransaction{
		Signature:      signature,
		Mint:           "M-" + signature,
		Buyer:          "B",
		Seller:         "S",
		Amount:         1,
		AmountLamports: 1000,
		Currency:       "SOL",
		Marketplace:    "tensor",
		SaleType:       "sale",
		OccurredAt:     time.Now().UTC(),
		ImageURL:       imageURL,
	}
	require.NoError(t, e.store.Insert(context.Background(), tx))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecentTransactions(t *testing.T) {
	env := newTestEnv(t)
	img := "https://cdn.example.com/a.png"
	env.seedTransaction(t, "SIG1", &img)
	env.seedTransaction(t, "SIG2", nil)

	w := env.request(t, http.MethodGet, "/api/recent-transactions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var views []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Contains(t, v, "transaction_id")
		assert.Contains(t, v, "mint")
		assert.Contains(t, v, "imageUrl")
	}
}

func TestGenerateImage(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodPost, "/api/generate-image", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://cdn.example.com/art.png", resp["imageUrl"])
}

func TestGenerateImage_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.artwork.err = errors.New("inference down")

	w := env.request(t, http.MethodPost, "/api/generate-image", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to generate image")
}

func TestRegenerateImage(t *testing.T) {
	env := newTestEnv(t)
	env.seedTransaction(t, "SIG1", nil)

	w := env.request(t, http.MethodPost, "/api/regenerate-image/SIG1", "")
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.store.GetBySignature(context.Background(), "SIG1")
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://cdn.example.com/art.png", *got.ImageURL)
}

func TestRegenerateImage_UnknownTransaction(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/regenerate-image/NOPE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, env.artwork.calls, "no artwork for unknown transactions")
}

func TestUpdateMetadata(t *testing.T) {
	env := newTestEnv(t)
	img := "https://cdn.example.com/a.png"
	env.seedTransaction(t, "SIG1", &img)

	w := env.request(t, http.MethodPost, "/api/update-metadata/SIG1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Metadata updated successfully")

	require.Len(t, env.updater.calls, 1)
	assert.Equal(t, "M-SIG1", env.updater.calls[0].AssetID)
	require.NotNil(t, env.updater.calls[0].NewURI)
	assert.Equal(t, img, *env.updater.calls[0].NewURI)

	got, err := env.store.GetBySignature(context.Background(), "SIG1")
	require.NoError(t, err)
	assert.True(t, got.MetadataEvolved)
}

func TestUpdateMetadata_RepeatIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedTransaction(t, "SIG1", nil)

	for i := 0; i < 2; i++ {
		w := env.request(t, http.MethodPost, "/api/update-metadata/SIG1", "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	got, err := env.store.GetBySignature(context.Background(), "SIG1")
	require.NoError(t, err)
	assert.True(t, got.MetadataEvolved)
}

func TestUpdateMetadata_UnknownTransaction(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodPost, "/api/update-metadata/NOPE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, env.updater.calls)
}

func TestUpdateMetadata_UpdaterFailureLeavesRecordUnevolved(t *testing.T) {
	env := newTestEnv(t)
	env.seedTransaction(t, "SIG1", nil)
	env.updater.result = metaplex.UpdateResult{Success: false, Err: errors.New("rpc down")}

	w := env.request(t, http.MethodPost, "/api/update-metadata/SIG1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	got, err := env.store.GetBySignature(context.Background(), "SIG1")
	require.NoError(t, err)
	assert.False(t, got.MetadataEvolved)
}
