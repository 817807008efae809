package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// connectTimeout bounds the WebSocket handshake (spec.md §5 "Cancellation &
// timeouts").
const connectTimeout = 30 * time.Second

type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type subscribeResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type notification struct {
	Method string `json:"method"`
	Params struct {
		SubscriptionID string          `json:"subscription_id"`
		Result         json.RawMessage `json:"result"`
	} `json:"params"`
}

// wsConn wraps a gorilla/websocket connection with the subscribe/read
// protocol shared by the headers and events streams.
type wsConn struct {
	conn *websocket.Conn
}

func dial(ctx context.Context, url string) (*wsConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: connectTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("streams: dial %s: %w", url, err)
	}
	return &wsConn{conn: conn}, nil
}

func (c *wsConn) close() { _ = c.conn.Close() }

// subscribe sends a JSON-RPC subscribe request and returns the subscription
// id the server assigns; subsequent notifications for this stream carry
// that same id (spec.md §6 "Chain WebSocket subscription methods").
func (c *wsConn) subscribe(method string, params any) (string, error) {
	req := subscribeRequest{JSONRPC: "2.0", ID: uuid.NewString(), Method: method, Params: params}
	if err := c.conn.WriteJSON(req); err != nil {
		return "", fmt.Errorf("streams: subscribe %s: %w", method, err)
	}

	var resp subscribeResponse
	if err := c.conn.ReadJSON(&resp); err != nil {
		return "", fmt.Errorf("streams: subscribe %s: read ack: %w", method, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("streams: subscribe %s: %s", method, resp.Error.Message)
	}

	var subID string
	if err := json.Unmarshal(resp.Result, &subID); err != nil {
		return "", fmt.Errorf("streams: subscribe %s: decode subscription id: %w", method, err)
	}
	return subID, nil
}

// next reads the next notification frame from the connection.
func (c *wsConn) next() (notification, error) {
	var n notification
	if err := c.conn.ReadJSON(&n); err != nil {
		return notification{}, fmt.Errorf("streams: read notification: %w", err)
	}
	return n, nil
}
