package chain

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeypair(t *testing.T) *Keypair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	kp, err := NewKeypairFromBase58(base58.Encode(priv))
	require.NoError(t, err)
	return kp
}

func testAddress(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func rpcOK(result any) []byte {
	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result})
	return body
}

func TestClient_GetAsset(t *testing.T) {
	assetID := testAddress(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getAsset", req.Method)
		w.Write(rpcOK(map[string]any{
			"id": assetID,
			"content": map[string]any{
				"json_uri": "https://meta.example.com/1.json",
				"metadata": map[string]any{"name": "NFT #1"},
			},
		}))
	}))
	defer server.Close()

	client := NewClient(server.URL, testKeypair(t))
	asset, err := client.GetAsset(context.Background(), assetID)
	require.NoError(t, err)
	assert.Equal(t, assetID, asset.ID)
	assert.Equal(t, "https://meta.example.com/1.json", asset.URI())
	assert.Equal(t, "NFT #1", asset.Name())
}

func TestClient_GetAsset_RejectsInvalidID(t *testing.T) {
	client := NewClient("http://unused.invalid", testKeypair(t))
	_, err := client.GetAsset(context.Background(), "not-an-address")
	assert.Error(t, err)
}

func TestClient_RetriesOnRateLimit(t *testing.T) {
	assetID := testAddress(t)
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(rpcOK(map[string]any{"id": assetID}))
	}))
	defer server.Close()

	client := NewClient(server.URL, testKeypair(t), WithRetryDelay(time.Millisecond))
	asset, err := client.GetAsset(context.Background(), assetID)
	require.NoError(t, err)
	assert.Equal(t, assetID, asset.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"asset not found"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testKeypair(t), WithRetryDelay(time.Millisecond))
	_, err := client.GetAsset(context.Background(), testAddress(t))
	assert.ErrorContains(t, err, "asset not found")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SendUpdate(t *testing.T) {
	kp := testKeypair(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Method {
		case "getLatestBlockhash":
			w.Write(rpcOK(map[string]any{"value": map[string]any{
				"blockhash":            "BH1",
				"lastValidBlockHeight": 100,
			}}))
		case "sendTransaction":
			w.Write(rpcOK("TXSIG1"))
		default:
			t.Errorf("unexpected method %q", req.Method)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, kp)
	sig, err := client.SendUpdate(context.Background(), UpdateParams{
		Asset:  "ASSET1",
		NewURI: "https://meta.example.com/2.json",
	})
	require.NoError(t, err)
	assert.Equal(t, "TXSIG1", sig)
}

func TestClient_SendUpdate_EmptySignatureFallsBackToOwnSig(t *testing.T) {
	kp := testKeypair(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method == "getLatestBlockhash" {
			w.Write(rpcOK(map[string]any{"value": map[string]any{"blockhash": "BH1"}}))
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, kp)
	sig, err := client.SendUpdate(context.Background(), UpdateParams{Asset: "A", NewURI: "u"})
	require.NoError(t, err)

	raw, err := base58.Decode(sig)
	require.NoError(t, err)
	assert.Len(t, raw, ed25519.SignatureSize)
}
