package voice

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/wrenlib/wren/connerr"
	"github.com/wrenlib/wren/gateway"
	"github.com/wrenlib/wren/id"
	"github.com/wrenlib/wren/internal/wsutil"
	"github.com/wrenlib/wren/rest"
	"github.com/wrenlib/wren/router"
	"github.com/wrenlib/wren/voice/udp"
	"github.com/wrenlib/wren/voice/voicegateway"
)

var testUpgrader = websocket.Upgrader{}

// newConnectedGateway drives a real gateway.Connection through Connect
// against a fake gateway WebSocket server, and hands back the raw
// server-side connection so a test can keep reading commands off it.
func newConnectedGateway(t *testing.T) (*gateway.Connection, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)

	wsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		go func() {
			require.NoError(t, ws.WriteJSON(gateway.Payload{
				Op: gateway.HelloOp, D: json.RawMessage(`{"heartbeat_interval":60000}`),
			}))

			var identify gateway.Payload
			require.NoError(t, ws.ReadJSON(&identify))

			seq := int64(1)
			require.NoError(t, ws.WriteJSON(gateway.Payload{
				Op: gateway.DispatchOp, T: "READY", S: &seq,
				D: json.RawMessage(`{"v":8,"user":{"id":"1"},"session_id":"abc","guilds":[]}`),
			}))

			connCh <- ws
		}()
	}))
	t.Cleanup(wsServer.Close)

	wsURL := "ws" + strings.TrimPrefix(wsServer.URL, "http")

	restServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rest.GatewayData{URL: wsURL})
	}))
	t.Cleanup(restServer.Close)

	rest.BaseURL = restServer.URL
	rst := rest.NewClient("test-token")
	rtr := router.New[id.GuildID, gateway.VoiceInfo]()
	gw := gateway.NewConnection("test-token", rst, rtr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, gw.Connect(ctx, 8))

	return gw, <-connCh
}

// newDiscoveryServer binds a loopback UDP socket that answers exactly one
// IP-discovery packet with ip/port, mirroring the voice-server side of the
// handshake.
func newDiscoveryServer(t *testing.T, ip string, port uint16) *net.UDPConn {
	t.Helper()

	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	go func() {
		buf := make([]byte, 70)
		n, clientAddr, err := server.ReadFromUDP(buf)
		if err != nil || n != 70 {
			return
		}

		resp := make([]byte, 70)
		copy(resp[4:], ip+"\x00")
		binary.LittleEndian.PutUint16(resp[68:], port)
		_, _ = server.WriteToUDP(resp, clientAddr)
	}()

	return server
}

func TestJoinCompletesHandshake(t *testing.T) {
	gw, gwConn := newConnectedGateway(t)
	defer gwConn.Close()

	guildID := id.GuildID(100)
	channelID := id.ChannelID(200)
	userID := id.UserID(300)

	discoveryServer := newDiscoveryServer(t, "127.0.0.1", 5056)
	_, discoveryPortStr, err := net.SplitHostPort(discoveryServer.LocalAddr().String())
	require.NoError(t, err)
	discoveryPort, err := strconv.Atoi(discoveryPortStr)
	require.NoError(t, err)

	var secretKey [32]byte
	for i := range secretKey {
		secretKey[i] = byte(i)
	}

	voiceConnCh := make(chan *websocket.Conn, 1)
	voiceServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		go func() {
			send := func(op voicegateway.Opcode, v interface{}) {
				d, err := json.Marshal(v)
				require.NoError(t, err)
				require.NoError(t, ws.WriteJSON(voicegateway.Payload{Op: op, D: d}))
			}

			send(voicegateway.HelloOp, voicegateway.Hello{HeartbeatIntervalMs: 40000})

			var identify voicegateway.Payload
			require.NoError(t, ws.ReadJSON(&identify))
			require.Equal(t, voicegateway.IdentifyOp, identify.Op)

			send(voicegateway.ReadyOp, voicegateway.Ready{
				SSRC: 42, IP: "127.0.0.1", Port: uint16(discoveryPort),
				Modes: []string{"xsalsa20_poly1305"},
			})

			var selectProtocol voicegateway.Payload
			require.NoError(t, ws.ReadJSON(&selectProtocol))
			require.Equal(t, voicegateway.SelectProtocolOp, selectProtocol.Op)

			send(voicegateway.SessionDescriptionOp, voicegateway.SessionDescription{
				Mode: "xsalsa20_poly1305", SecretKey: secretKey,
			})

			voiceConnCh <- ws
		}()
	}))
	defer voiceServer.Close()

	voiceWSURL := "ws" + strings.TrimPrefix(voiceServer.URL, "http")

	origDial := dialVoiceWS
	t.Cleanup(func() { dialVoiceWS = origDial })
	dialVoiceWS = func(ctx context.Context, addr string) (*wsutil.Conn, error) {
		require.True(t, strings.HasPrefix(addr, "wss://"))
		require.True(t, strings.HasSuffix(addr, "?v=3"))
		return wsutil.Dial(ctx, voiceWSURL)
	}

	type joinResult struct {
		conn *Connection
		err  error
	}
	resultCh := make(chan joinResult, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		conn, err := Join(ctx, gw, guildID, channelID, userID)
		resultCh <- joinResult{conn, err}
	}()

	var voiceStateUpdate gateway.Payload
	require.NoError(t, gwConn.ReadJSON(&voiceStateUpdate))
	require.Equal(t, gateway.VoiceStateUpdateOp, voiceStateUpdate.Op)

	require.NoError(t, gw.Router.SendEvent(guildID, gateway.VoiceInfo{
		Token:    "voice-token",
		Endpoint: voiceWSURL[len("ws://"):],
	}))

	select {
	case res := <-resultCh:
		require.NoError(t, res.err)
		require.Equal(t, uint32(42), res.conn.ssrc)
		require.Equal(t, secretKey, res.conn.secretKey)
		res.conn.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Join to complete")
	}

	select {
	case <-voiceConnCh:
	case <-time.After(time.Second):
		t.Fatal("voice server goroutine did not finish")
	}
}

// fakeAudioSource always reports end-of-stream, driving the audio task
// straight to its silence-exhaustion exit.
type fakeAudioSource struct {
	stereo bool
}

func (f *fakeAudioSource) ReadFrame(buf []byte) (int, error) { return 0, nil }
func (f *fakeAudioSource) IsStereo() bool                    { return f.stereo }
func (f *fakeAudioSource) Close() error                      { return nil }

func TestAudioTaskStopsAfterSilenceAndTogglesSpeaking(t *testing.T) {
	origFrame, origPad := frameDuration, trailingPad
	frameDuration = time.Millisecond
	trailingPad = 5 * time.Millisecond
	t.Cleanup(func() { frameDuration, trailingPad = origFrame, origPad })

	gw, gwConn := newConnectedGateway(t)
	defer gwConn.Close()

	voiceConnCh := make(chan *websocket.Conn, 1)
	speakingCh := make(chan voicegateway.SetSpeaking, 4)

	voiceServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		go func() {
			for {
				var p voicegateway.Payload
				if err := ws.ReadJSON(&p); err != nil {
					voiceConnCh <- ws
					return
				}
				if p.Op != voicegateway.SpeakingOp {
					continue
				}
				var s voicegateway.SetSpeaking
				require.NoError(t, json.Unmarshal(p.D, &s))
				speakingCh <- s
			}
		}()
	}))
	defer voiceServer.Close()

	voiceWSURL := "ws" + strings.TrimPrefix(voiceServer.URL, "http")
	ctx := context.Background()
	ws, err := wsutil.Dial(ctx, voiceWSURL)
	require.NoError(t, err)

	udpServer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer udpServer.Close()

	udpClient, err := udp.Dial(udpServer.LocalAddr().String())
	require.NoError(t, err)

	packetCh := make(chan []byte, silentFramesBeforeStop+1)
	go func() {
		buf := make([]byte, 2000)
		for {
			n, err := udpServer.Read(buf)
			if err != nil {
				return
			}
			packet := make([]byte, n)
			copy(packet, buf[:n])
			packetCh <- packet
		}
	}()

	c := &Connection{
		GuildID: id.GuildID(1),
		gw:      gw,
		ws:      ws,
		udp:     udpClient,
		ssrc:    7,
	}

	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- c.audioTask(ctx, &fakeAudioSource{}, done) }()

	select {
	case s := <-speakingCh:
		require.True(t, s.Speaking)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SetSpeaking(true)")
	}

	for i := 0; i < silentFramesBeforeStop; i++ {
		select {
		case <-packetCh:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for silence packet %d", i)
		}
	}

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audioTask to return")
	}

	select {
	case <-done:
	default:
		t.Fatal("done was not closed")
	}

	select {
	case s := <-speakingCh:
		require.False(t, s.Speaking)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SetSpeaking(false)")
	}

	var voiceStateUpdate gateway.Payload
	require.NoError(t, gwConn.ReadJSON(&voiceStateUpdate))
	require.Equal(t, gateway.VoiceStateUpdateOp, voiceStateUpdate.Op)
}

func TestAudioTaskClassifiesUDPWriteFailure(t *testing.T) {
	origFrame, origPad := frameDuration, trailingPad
	frameDuration = time.Millisecond
	trailingPad = time.Millisecond
	t.Cleanup(func() { frameDuration, trailingPad = origFrame, origPad })

	gw, gwConn := newConnectedGateway(t)
	defer gwConn.Close()

	voiceServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go func() {
			for {
				var p voicegateway.Payload
				if err := ws.ReadJSON(&p); err != nil {
					return
				}
			}
		}()
	}))
	defer voiceServer.Close()

	voiceWSURL := "ws" + strings.TrimPrefix(voiceServer.URL, "http")
	ctx := context.Background()
	ws, err := wsutil.Dial(ctx, voiceWSURL)
	require.NoError(t, err)

	udpClient, err := udp.Dial("127.0.0.1:1")
	require.NoError(t, err)
	require.NoError(t, udpClient.Close())

	c := &Connection{
		GuildID: id.GuildID(1),
		gw:      gw,
		ws:      ws,
		udp:     udpClient,
		ssrc:    7,
	}

	done := make(chan struct{})
	err = c.audioTask(ctx, &fakeAudioSource{}, done)

	cerr, ok := err.(*connerr.Error)
	require.True(t, ok)
	require.Equal(t, connerr.Transport, cerr.Kind)
	require.False(t, cerr.IsRecoverable())
}
