// Package voice implements a per-guild voice session: the handshake that
// trades a gateway voice-state update for a voice WebSocket and a UDP
// media socket, and the two tasks that keep the session alive afterward —
// audio encoding/sending and WebSocket heartbeat keepalive.
package voice

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/hraban/opus.v2"

	"github.com/wrenlib/wren/connerr"
	"github.com/wrenlib/wren/gateway"
	"github.com/wrenlib/wren/id"
	"github.com/wrenlib/wren/internal/ctxutil"
	"github.com/wrenlib/wren/internal/heart"
	"github.com/wrenlib/wren/internal/wsutil"
	"github.com/wrenlib/wren/voice/udp"
	"github.com/wrenlib/wren/voice/voicegateway"
)

// handshakeTimeout bounds the wait for a voice-server-update after the
// gateway voice-state update is sent.
const handshakeTimeout = 5 * time.Second

// dialVoiceWS opens the voice WebSocket. Overridden in tests to dial a
// plain-ws fake server instead of the production wss:// endpoint.
var dialVoiceWS = wsutil.Dial

// silenceFrame is the fixed Opus payload for a silent frame, a protocol
// convention rather than real codec output.
var silenceFrame = []byte{0xF8, 0xFF, 0xFE}

// silentFramesBeforeStop is how many consecutive empty reads from the
// audio source end the send loop.
const silentFramesBeforeStop = 5

// trailingPad is slept after the last real frame before disconnecting, to
// avoid an abrupt cut-off audible to listeners. A var rather than a const
// so tests can shrink it.
var trailingPad = 5 * time.Second

// frameDuration is the pacing interval for each audio frame. A var rather
// than a const so tests can shrink it.
var frameDuration = 20 * time.Millisecond

// ErrTimeout is returned by Join when the voice-server-update does not
// arrive within handshakeTimeout.
var ErrTimeout = errors.New("voice: timed out waiting for voice server update")

// Connection is one guild's live voice session.
type Connection struct {
	GuildID   id.GuildID
	ChannelID id.ChannelID
	UserID    id.UserID

	gw  *gateway.Connection
	ws  *wsutil.Conn
	udp *udp.Conn

	ssrc      uint32
	secretKey [32]byte

	Log zerolog.Logger
}

// Join performs the full voice handshake for the given guild and channel:
// register with the event router, ask the gateway to join the channel,
// wait for the matching voice-server-update, then complete the voice
// WebSocket and UDP handshakes.
func Join(ctx context.Context, gw *gateway.Connection, guildID id.GuildID, channelID id.ChannelID, userID id.UserID) (*Connection, error) {
	waiter := gw.Router.Register(guildID)
	defer gw.Router.Unregister(guildID, waiter)

	if err := gw.SendCommand(ctx, gateway.VoiceStateUpdate{
		GuildID:   guildID,
		ChannelID: channelID,
	}); err != nil {
		return nil, errors.Wrap(err, "voice: failed to send voice state update")
	}

	info, err := ctxutil.Await(ctx, waiter, handshakeTimeout)
	if err != nil {
		return nil, ErrTimeout
	}

	endpoint := strings.TrimSuffix(info.Endpoint, ":80")
	ws, err := dialVoiceWS(ctx, "wss://"+endpoint+"?v=3")
	if err != nil {
		return nil, errors.Wrap(err, "voice: failed to dial voice websocket")
	}

	c := &Connection{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		gw:        gw,
		ws:        ws,
	}

	if err := c.handshake(ctx, info.Token); err != nil {
		ws.Close()
		return nil, err
	}

	return c, nil
}

func (c *Connection) handshake(ctx context.Context, token string) error {
	var hello voicegateway.Payload
	if err := c.ws.Recv(&hello); err != nil {
		return errors.Wrap(err, "voice: failed to receive hello")
	}
	if hello.Op != voicegateway.HelloOp {
		return errors.Errorf("voice: expected hello, got opcode %d", hello.Op)
	}

	if err := c.sendCommand(ctx, voicegateway.Identify{
		ServerID:  c.GuildID,
		UserID:    c.UserID,
		SessionID: c.gw.SessionID,
		Token:     token,
	}); err != nil {
		return errors.Wrap(err, "voice: failed to send identify")
	}

	var readyPayload voicegateway.Payload
	if err := c.ws.Recv(&readyPayload); err != nil {
		return errors.Wrap(err, "voice: failed to receive ready")
	}
	if readyPayload.Op != voicegateway.ReadyOp {
		return errors.Errorf("voice: expected ready, got opcode %d", readyPayload.Op)
	}

	var ready voicegateway.Ready
	if err := json.Unmarshal(readyPayload.D, &ready); err != nil {
		return errors.Wrap(err, "voice: failed to decode ready")
	}
	c.ssrc = ready.SSRC

	udpConn, err := udp.Dial(ready.IP + ":" + strconv.Itoa(int(ready.Port)))
	if err != nil {
		return errors.Wrap(err, "voice: failed to dial udp")
	}
	c.udp = udpConn

	ip, port, err := udpConn.Discover(ready.SSRC)
	if err != nil {
		return errors.Wrap(err, "voice: ip discovery failed")
	}

	if err := c.sendCommand(ctx, voicegateway.SelectProtocol{
		Protocol: "udp",
		Data: voicegateway.SelectProtocolData{
			Address: ip,
			Port:    port,
			Mode:    "xsalsa20_poly1305",
		},
	}); err != nil {
		return errors.Wrap(err, "voice: failed to send select protocol")
	}

	for {
		var p voicegateway.Payload
		if err := c.ws.Recv(&p); err != nil {
			return errors.Wrap(err, "voice: failed while waiting for session description")
		}
		if p.Op != voicegateway.SessionDescriptionOp {
			continue
		}

		var desc voicegateway.SessionDescription
		if err := json.Unmarshal(p.D, &desc); err != nil {
			return errors.Wrap(err, "voice: failed to decode session description")
		}
		c.secretKey = desc.SecretKey
		return nil
	}
}

func (c *Connection) sendCommand(ctx context.Context, cmd voicegateway.Command) error {
	p, err := voicegateway.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return c.ws.Send(ctx, p)
}

// Run starts the audio sender and keepalive tasks and blocks until both
// finish. The audio task ends at end of stream, on a read, encode or UDP
// write failure, or when ctx is cancelled; the keepalive task ends when
// the audio task finishes, when its heartbeat or WebSocket fails, or when
// ctx is cancelled. A keepalive failure does not stop the audio task. Run
// returns the keepalive task's error if it has one, else the audio task's:
// nil after end of stream or cancellation, a *connerr.Error otherwise.
func (c *Connection) Run(ctx context.Context, source AudioSource, heartbeatIntervalMs float64) error {
	done := make(chan struct{})

	audioErrCh := make(chan error, 1)
	keepaliveErrCh := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		audioErrCh <- c.audioTask(ctx, source, done)
	}()

	go func() {
		defer wg.Done()
		keepaliveErrCh <- c.keepaliveTask(ctx, heartbeatIntervalMs, done)
	}()

	wg.Wait()

	if err := <-keepaliveErrCh; err != nil {
		return err
	}
	return <-audioErrCh
}

func (c *Connection) audioTask(ctx context.Context, source AudioSource, done chan<- struct{}) error {
	defer close(done)

	channels := 1
	sampleCount := 960
	if source.IsStereo() {
		channels = 2
		sampleCount = 1920
	}

	enc, err := opus.NewEncoder(48000, channels, opus.AppAudio)
	if err != nil {
		return connerr.Transportf("voice: create opus encoder", err)
	}

	_ = c.sendCommand(ctx, voicegateway.SetSpeaking{Speaking: true, SSRC: c.ssrc})

	// sampleCount already spans every channel: 2 bytes per 16-bit sample.
	pcm := make([]byte, sampleCount*2)
	opusBuf := make([]byte, 4000)

	var seq uint16
	var timestamp uint32
	var silentFrames int
	var taskErr error

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

loop:
	for {
		n, err := source.ReadFrame(pcm)
		if err != nil {
			taskErr = connerr.Transportf("voice: audio source read", err)
			break loop
		}

		var payload []byte
		if n == 0 {
			payload = silenceFrame
			silentFrames++
		} else {
			silentFrames = 0
			samples := bytesToInt16(pcm[:n])
			written, err := enc.Encode(samples, opusBuf)
			if err != nil {
				taskErr = connerr.Transportf("voice: opus encode", err)
				break loop
			}
			payload = opusBuf[:written]
		}

		header := udp.Header(seq, timestamp, c.ssrc)
		packet := udp.Seal(header, payload, &c.secretKey)

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		if err := c.udp.Write(packet); err != nil {
			taskErr = connerr.Transportf("voice: udp write", err)
			break loop
		}

		seq++
		timestamp += uint32(sampleCount / channels)

		if silentFrames >= silentFramesBeforeStop {
			break loop
		}
	}

	time.Sleep(trailingPad)

	// ctx may already be cancelled; give the disconnect courtesy commands
	// their own budget rather than failing them against a dead context.
	teardownCtx, cancel := context.WithTimeout(context.Background(), frameDuration*10)
	defer cancel()
	_ = c.sendCommand(teardownCtx, voicegateway.SetSpeaking{Speaking: false, SSRC: c.ssrc})
	_ = c.gw.SendCommand(teardownCtx, gateway.VoiceStateUpdate{GuildID: c.GuildID})

	return taskErr
}

// keepaliveTask waits on three sources until one fires: done (the audio
// task finished), the heartbeat pacemaker dying, or the next voice
// WebSocket event. The blocking Recv runs in its own goroutine so the
// select never blocks on it; on exit the socket is closed to unblock any
// Recv still in flight.
func (c *Connection) keepaliveTask(ctx context.Context, heartbeatIntervalMs float64, done <-chan struct{}) error {
	rate := time.Duration(heartbeatIntervalMs*3/4) * time.Millisecond

	pace := heart.NewPacemaker(rate, func(pctx context.Context) error {
		return c.sendCommand(pctx, voicegateway.Heartbeat{Nonce: 0})
	})
	pace.Log = c.Log

	paceErrCh := make(chan error, 1)
	go func() { paceErrCh <- pace.Run(ctx) }()

	type recvResult struct {
		p   voicegateway.Payload
		err error
	}
	recvCh := make(chan recvResult, 1)
	go func() {
		for {
			var p voicegateway.Payload
			err := c.ws.Recv(&p)
			recvCh <- recvResult{p, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			c.ws.Close()
			return nil

		case err := <-paceErrCh:
			c.ws.Close()
			if ctx.Err() != nil {
				return nil
			}
			if err == heart.ErrDead {
				return connerr.Timingf("voice: heartbeat", err)
			}
			return connerr.Transportf("voice: heartbeat", err)

		case res := <-recvCh:
			if res.err != nil {
				c.ws.Close()
				if ctx.Err() != nil {
					return nil
				}
				return classifyVoiceRecvErr("voice: keepalive", res.err)
			}

			ev, err := voicegateway.DecodeEvent(res.p)
			if err != nil {
				continue
			}

			switch ev.(type) {
			case voicegateway.HeartbeatAck:
				pace.Echo()
			case voicegateway.Speaking, voicegateway.Resumed, voicegateway.ClientDisconnect:
				c.Log.Debug().Str("event", ev.Name()).Msg("voice: received event with no handling yet")
			}
		}
	}
}

// classifyVoiceRecvErr turns a failure from wsutil.Conn.Recv on the voice
// WebSocket into a classified connection error.
func classifyVoiceRecvErr(op string, err error) error {
	if ce, ok := err.(*wsutil.CloseError); ok {
		return connerr.ProtocolClose(op, ce.Code, ce)
	}
	return connerr.Transportf(op, err)
}

// Close best-effort tears down the voice WebSocket and UDP socket.
func (c *Connection) Close() error {
	if c.udp != nil {
		_ = c.udp.Close()
	}
	return c.ws.Close()
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

