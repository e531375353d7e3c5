package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/wrenlib/wren/connerr"
	"github.com/wrenlib/wren/id"
	"github.com/wrenlib/wren/rest"
	"github.com/wrenlib/wren/router"
)

var upgrader = websocket.Upgrader{}

// newTestGateway spins up an httptest server that upgrades to a
// WebSocket and hands the raw connection to serve, plus a REST server
// that resolves /gateway to the WebSocket's URL.
func newTestGateway(t *testing.T, serve func(*websocket.Conn)) (*Connection, *httptest.Server) {
	t.Helper()

	wsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go serve(conn)
	}))
	t.Cleanup(wsServer.Close)

	wsURL := "ws" + strings.TrimPrefix(wsServer.URL, "http")

	restServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rest.GatewayData{URL: wsURL})
	}))
	t.Cleanup(restServer.Close)

	rest.BaseURL = restServer.URL
	rst := rest.NewClient("test-token")

	rtr := router.New[id.GuildID, VoiceInfo]()
	conn := NewConnection("test-token", rst, rtr)
	return conn, restServer
}

func TestHandshakeHappyPath(t *testing.T) {
	conn, _ := newTestGateway(t, func(ws *websocket.Conn) {
		require.NoError(t, ws.WriteJSON(Payload{Op: HelloOp, D: json.RawMessage(`{"heartbeat_interval":45000}`)}))

		var identify Payload
		require.NoError(t, ws.ReadJSON(&identify))
		require.Equal(t, IdentifyOp, identify.Op)

		seq := int64(1)
		require.NoError(t, ws.WriteJSON(Payload{
			Op: DispatchOp,
			T:  "READY",
			S:  &seq,
			D:  json.RawMessage(`{"v":8,"user":{"id":"1"},"session_id":"abc","guilds":[]}`),
		}))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, conn.Connect(ctx, 8))
	require.Equal(t, Running, conn.State())
	require.Equal(t, "abc", conn.SessionID)
	require.True(t, conn.hasSeq.Load())
	require.Equal(t, int64(1), conn.seq.Load())
}

func TestUnknownDispatchReachesHandler(t *testing.T) {
	received := make(chan Event, 1)

	conn, _ := newTestGateway(t, func(ws *websocket.Conn) {
		require.NoError(t, ws.WriteJSON(Payload{Op: HelloOp, D: json.RawMessage(`{"heartbeat_interval":60000}`)}))

		var identify Payload
		require.NoError(t, ws.ReadJSON(&identify))

		seq := int64(1)
		require.NoError(t, ws.WriteJSON(Payload{
			Op: DispatchOp, T: "READY", S: &seq,
			D: json.RawMessage(`{"v":8,"user":{"id":"1"},"session_id":"abc","guilds":[]}`),
		}))

		seq = 5
		require.NoError(t, ws.WriteJSON(Payload{
			Op: DispatchOp, T: "FUTURE_EVENT", S: &seq,
			D: json.RawMessage(`{"x":1}`),
		}))

		ws.Close()
	})

	conn.Handler = func(ctx context.Context, c *Connection, ev Event, r *rest.Client) error {
		received <- ev
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, conn.Connect(ctx, 8))
	go conn.Run(ctx)

	select {
	case ev := <-received:
		unknown, ok := ev.(Unknown)
		require.True(t, ok)
		require.Equal(t, "FUTURE_EVENT", unknown.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unknown dispatch")
	}

	require.Equal(t, int64(5), conn.seq.Load())
}

func TestRunClassifiesNonReconnectableCloseCode(t *testing.T) {
	conn, _ := newTestGateway(t, func(ws *websocket.Conn) {
		require.NoError(t, ws.WriteJSON(Payload{Op: HelloOp, D: json.RawMessage(`{"heartbeat_interval":60000}`)}))

		var identify Payload
		require.NoError(t, ws.ReadJSON(&identify))

		seq := int64(1)
		require.NoError(t, ws.WriteJSON(Payload{
			Op: DispatchOp, T: "READY", S: &seq,
			D: json.RawMessage(`{"v":8,"user":{"id":"1"},"session_id":"abc","guilds":[]}`),
		}))

		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(int(CloseAuthenticationFailed), "bad token")
		require.NoError(t, ws.WriteControl(websocket.CloseMessage, msg, deadline))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, conn.Connect(ctx, 8))

	err := conn.Run(ctx)
	require.Error(t, err)

	cerr, ok := err.(*connerr.Error)
	require.True(t, ok)
	require.Equal(t, connerr.Protocol, cerr.Kind)
	require.Equal(t, int(CloseAuthenticationFailed), cerr.CloseCode)
	require.False(t, cerr.IsRecoverable())
}
