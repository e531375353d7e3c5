// Package wsutil wraps gorilla/websocket with the behaviors both the
// gateway and voice connections need: JSON framing, a send-rate limiter,
// and translation of close frames into a typed error carrying the raw
// close code.
package wsutil

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// CloseError is returned from Recv when the peer sent a close frame. Code
// is the raw 16-bit close code as defined by the gateway or voice close
// code tables; it is zero if the peer closed without a code.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return errors.Errorf("websocket closed (code %d): %s", e.Code, e.Reason).Error()
}

// NewSendLimiter returns the default outbound-message rate limiter: 120
// messages per minute, matching the gateway's documented send limit.
func NewSendLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/120), 120)
}

// Conn is a minimal JSON-over-WebSocket connection shared by the gateway
// and voice transports. Send is safe for concurrent use: writes are
// serialized by a mutex. Recv must be called from one goroutine at a time.
type Conn struct {
	ws      *websocket.Conn
	limiter *rate.Limiter
	writeMu sync.Mutex
}

// Dial opens a WebSocket connection to addr.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            nil,
		HandshakeTimeout: 15 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, addr, http.Header{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial websocket")
	}
	if resp != nil {
		resp.Body.Close()
	}

	return &Conn{ws: conn, limiter: NewSendLimiter()}, nil
}

// Send marshals v to JSON and writes it as a single text frame, waiting on
// the send-rate limiter first.
func (c *Conn) Send(ctx context.Context, v interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "send rate limiter")
	}

	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode payload")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return errors.Wrap(err, "failed to write message")
	}

	return nil
}

// Recv blocks for the next text frame and unmarshals it into v. A close
// frame is surfaced as *CloseError.
func (c *Conn) Recv(v interface{}) error {
	_, b, err := c.ws.ReadMessage()
	if err != nil {
		if ce, ok := err.(*websocket.CloseError); ok {
			return &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		return errors.Wrap(err, "failed to read message")
	}

	return json.Unmarshal(b, v)
}

// Close sends a close frame (best-effort) and closes the underlying
// connection. It is always safe to call, including after a failed Dial
// has left c nil-adjacent state, and is meant to be deferred on every exit
// path of the connection's Run loop.
func (c *Conn) Close() error {
	if c == nil || c.ws == nil {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

	return c.ws.Close()
}
