package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Confirmation defaults.
const (
	DefaultConfirmTimeout = 60 * time.Second
	defaultWriteTimeout   = 10 * time.Second
)

// ConfirmationClient waits for transaction signature confirmation over the
// WebSocket endpoint. One subscription is opened per confirmation; submitted
// updates are either confirmed or reported failed within the timeout.
type ConfirmationClient struct {
	endpoint  string
	timeout   time.Duration
	dialer    *websocket.Dialer
	requestID atomic.Uint64
}

// NewConfirmationClient creates a confirmation client for the WS endpoint.
func NewConfirmationClient(endpoint string, timeout time.Duration) *ConfirmationClient {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &ConfirmationClient{
		endpoint: endpoint,
		timeout:  timeout,
		dialer:   websocket.DefaultDialer,
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	ID     uint64          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

type signatureNotification struct {
	Result struct {
		Value struct {
			Err json.RawMessage `json:"err"`
		} `json:"value"`
	} `json:"result"`
}

// WaitForConfirmation blocks until the signature is confirmed, fails on-chain,
// or the timeout expires.
func (c *ConfirmationClient) WaitForConfirmation(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial ws endpoint: %w", err)
	}
	defer conn.Close()

	// Close the connection when the context expires so the read loop unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "signatureSubscribe",
		Params:  []interface{}{signature, map[string]string{"commitment": "confirmed"}},
	}
	conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe to signature: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("confirmation timed out for %s: %w", signature, ctx.Err())
			}
			return fmt.Errorf("read ws message: %w", err)
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Error != nil {
			return fmt.Errorf("signature subscription: %w", msg.Error)
		}
		if msg.Method != "signatureNotification" {
			continue
		}

		var notif signatureNotification
		if err := json.Unmarshal(msg.Params, &notif); err != nil {
			return fmt.Errorf("decode signature notification: %w", err)
		}
		if len(notif.Result.Value.Err) > 0 && string(notif.Result.Value.Err) != "null" {
			return fmt.Errorf("transaction %s failed on-chain: %s", signature, notif.Result.Value.Err)
		}
		return nil
	}
}
