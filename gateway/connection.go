// Package gateway implements the primary JSON-over-WebSocket control
// channel: the connect handshake, heartbeat pacemaker, and the running
// loop that demultiplexes incoming dispatches to a user handler and to
// the voice-server-update router.
package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/wrenlib/wren/connerr"
	"github.com/wrenlib/wren/discord"
	"github.com/wrenlib/wren/id"
	"github.com/wrenlib/wren/internal/heart"
	"github.com/wrenlib/wren/internal/wsutil"
	"github.com/wrenlib/wren/rest"
	"github.com/wrenlib/wren/router"
)

// State is the gateway connection's lifecycle stage.
type State int

const (
	Disconnected State = iota
	AwaitHello
	Identified
	AwaitReady
	Running
	Closed
)

// VoiceInfo is the payload a voice connection waits on from the event
// router: the token and endpoint needed to open its own WebSocket.
type VoiceInfo struct {
	Token    string
	Endpoint string
}

// Handler processes a single dispatched event. Errors are logged and
// suppressed; they never tear down the connection.
type Handler func(ctx context.Context, conn *Connection, ev Event, rst *rest.Client) error

// Connection is a single gateway session.
type Connection struct {
	Token   string
	Intents Intent
	Rest    *rest.Client
	Router  *router.Router[id.GuildID, VoiceInfo]
	Handler Handler
	Log     zerolog.Logger

	ws                *wsutil.Conn
	state             atomic.Int32
	heartbeatInterval time.Duration

	seq    atomic.Int64
	hasSeq atomic.Bool

	SessionID string
	User      discord.User

	closeOnce sync.Once
}

// NewConnection constructs a Connection ready for Connect. rst and rtr may
// be shared across every guild's voice connections.
func NewConnection(token string, rst *rest.Client, rtr *router.Router[id.GuildID, VoiceInfo]) *Connection {
	c := &Connection{
		Token:   token,
		Intents: DefaultIntents,
		Rest:    rst,
		Router:  rtr,
		Log:     zerolog.Nop(),
	}
	c.state.Store(int32(Disconnected))
	return c
}

// State returns the connection's current lifecycle stage.
func (c *Connection) State() State { return State(c.state.Load()) }

// Connect performs the handshake: fetch the gateway URL, dial it, expect
// Hello, send Identify, and expect the READY dispatch. It returns once the
// connection has reached Running.
func (c *Connection) Connect(ctx context.Context, version int) error {
	url, err := c.Rest.GetGateway(ctx, version)
	if err != nil {
		return errors.Wrap(err, "gateway: failed to resolve url")
	}

	ws, err := wsutil.Dial(ctx, url)
	if err != nil {
		return errors.Wrap(err, "gateway: failed to dial")
	}
	c.ws = ws
	c.state.Store(int32(AwaitHello))

	var hello Payload
	if err := c.ws.Recv(&hello); err != nil {
		return errors.Wrap(err, "gateway: failed to receive hello")
	}
	if hello.Op != HelloOp {
		return errors.Errorf("gateway: expected hello, got opcode %d", hello.Op)
	}

	var helloData Hello
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return errors.Wrap(err, "gateway: failed to decode hello")
	}

	if err := c.sendCommand(ctx, Identify{
		Token:          c.Token,
		Properties:     DefaultIdentifyProperties,
		LargeThreshold: 250,
		Intents:        c.Intents,
	}); err != nil {
		return errors.Wrap(err, "gateway: failed to send identify")
	}
	c.state.Store(int32(Identified))
	c.state.Store(int32(AwaitReady))

	var readyPayload Payload
	if err := c.ws.Recv(&readyPayload); err != nil {
		return errors.Wrap(err, "gateway: failed to receive ready")
	}
	if readyPayload.Op != DispatchOp || readyPayload.T != "READY" {
		return errors.Errorf("gateway: expected ready dispatch, got opcode %d t=%q", readyPayload.Op, readyPayload.T)
	}
	if readyPayload.S != nil {
		c.seq.Store(*readyPayload.S)
		c.hasSeq.Store(true)
	}

	var ready Ready
	if err := json.Unmarshal(readyPayload.D, &ready); err != nil {
		return errors.Wrap(err, "gateway: failed to decode ready")
	}
	c.SessionID = ready.SessionID
	c.User = ready.User

	c.state.Store(int32(Running))

	c.heartbeatInterval = time.Duration(helloData.HeartbeatIntervalMs) * time.Millisecond

	return nil
}

// Run drives the heartbeat pacemaker and the incoming-payload loop until
// the connection closes or ctx is cancelled. It returns nil on a clean
// cancellation and a *connerr.Error, classified per the transport/
// protocol/timing taxonomy, on every other exit.
func (c *Connection) Run(ctx context.Context) error {
	defer c.Close()

	pace := heart.NewPacemaker(c.heartbeatInterval, func(pctx context.Context) error {
		return c.sendCommand(pctx, c.currentHeartbeat())
	})
	pace.Log = c.Log

	errCh := make(chan error, 1)
	go func() {
		errCh <- pace.Run(ctx)
		if ctx.Err() != nil {
			// Unblock a Recv still waiting on the peer.
			c.Close()
		}
	}()

	for {
		var p Payload
		if err := c.ws.Recv(&p); err != nil {
			c.state.Store(int32(Closed))
			if ctx.Err() != nil {
				return nil
			}
			return classifyRecvErr("gateway: connection closed", err)
		}

		if p.S != nil {
			c.seq.Store(*p.S)
			c.hasSeq.Store(true)
		}

		ev, err := decodeEvent(p)
		if err != nil {
			c.Log.Warn().Err(err).Msg("gateway: failed to decode payload")
			continue
		}

		if err := c.handleEvent(ctx, ev, pace); err != nil {
			c.state.Store(int32(Closed))
			return err
		}

		select {
		case err := <-errCh:
			c.state.Store(int32(Closed))
			if ctx.Err() != nil {
				return nil
			}
			if err == heart.ErrDead {
				return connerr.Timingf("gateway: heartbeat", err)
			}
			return connerr.Transportf("gateway: heartbeat", err)
		default:
		}
	}
}

// classifyRecvErr turns a failure from wsutil.Conn.Recv into a classified
// connection error, decoding a close frame's code through the gateway's
// close-code table when one is present.
func classifyRecvErr(op string, err error) error {
	if ce, ok := err.(*wsutil.CloseError); ok {
		cerr := connerr.ProtocolClose(op, ce.Code, ce)
		cerr.WithRecoverable(CloseCode(ce.Code).Reconnectable())
		return cerr
	}
	return connerr.Transportf(op, err)
}

func (c *Connection) handleEvent(ctx context.Context, ev Event, pace *heart.Pacemaker) error {
	switch e := ev.(type) {
	case HeartbeatAck:
		pace.Echo()
		return nil

	case HeartbeatRequest:
		if err := c.sendCommand(ctx, c.currentHeartbeat()); err != nil {
			return connerr.Transportf("gateway: heartbeat request", err)
		}
		return nil

	case Hello:
		c.Log.Warn().Msg("gateway: unexpected hello after handshake, ignoring")
		return nil

	case Reconnect:
		c.Log.Warn().Msg("gateway: service requested reconnect; no resume policy implemented, reporting to caller")
		return connerr.Protocolf("gateway: reconnect requested", errors.New("gateway: reconnect requested"))

	case InvalidSession:
		c.Log.Warn().Bool("resumable", e.Resumable).Msg("gateway: invalid session; no resume policy implemented, reporting to caller")
		return connerr.Protocolf("gateway: invalid session", errors.New("gateway: invalid session"))

	case VoiceServerUpdate:
		info := VoiceInfo{Token: e.Token, Endpoint: e.Endpoint}
		if err := c.Router.SendEvent(e.GuildID, info); err != nil {
			c.Log.Debug().Err(err).Uint64("guild_id", uint64(e.GuildID)).Msg("gateway: voice server update had no waiter")
		}
		return nil

	default:
		if c.Handler == nil {
			return nil
		}
		// Spawned so a slow handler never blocks the next Recv, including
		// the next HeartbeatAck the pacemaker is waiting on.
		go func(ev Event) {
			if err := c.Handler(ctx, c, ev, c.Rest.Clone()); err != nil {
				c.Log.Warn().Err(err).Msg("gateway: user handler returned an error")
			}
		}(ev)
		return nil
	}
}

func (c *Connection) currentHeartbeat() Heartbeat {
	if !c.hasSeq.Load() {
		return Heartbeat{}
	}
	seq := c.seq.Load()
	return Heartbeat{LastSeq: &seq}
}

// SendCommand sends a GatewayCommand immediately, bypassing the heartbeat
// pacemaker. Used by voice connections to send VoiceStateUpdate.
func (c *Connection) SendCommand(ctx context.Context, cmd Command) error {
	return c.sendCommand(ctx, cmd)
}

func (c *Connection) sendCommand(ctx context.Context, cmd Command) error {
	p, err := encodeCommand(cmd)
	if err != nil {
		return err
	}
	return c.ws.Send(ctx, p)
}

// Close best-effort closes the underlying WebSocket. Safe to call more
// than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(Closed))
		err = c.ws.Close()
	})
	return err
}
