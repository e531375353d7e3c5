package gateway

import (
	"encoding/json"

	"github.com/wrenlib/wren/discord"
	"github.com/wrenlib/wren/id"
)

// Event is an inbound gateway frame, either a protocol-level control
// message or a dispatched domain event.
type Event interface {
	eventName() string
}

// Hello is the first frame the gateway sends on connect.
type Hello struct {
	HeartbeatIntervalMs int64 `json:"heartbeat_interval"`
}

func (Hello) eventName() string { return "HELLO" }

// HeartbeatAck acknowledges a previously sent Heartbeat.
type HeartbeatAck struct{}

func (HeartbeatAck) eventName() string { return "HEARTBEAT_ACK" }

// HeartbeatRequest asks the client to send an immediate Heartbeat.
type HeartbeatRequest struct{}

func (HeartbeatRequest) eventName() string { return "HEARTBEAT" }

// Reconnect asks the client to reconnect and resume. No resume policy is
// implemented; this is surfaced to the embedder as a signal.
type Reconnect struct{}

func (Reconnect) eventName() string { return "RECONNECT" }

// InvalidSession reports that the current session is no longer valid.
// Resumable indicates whether a Resume is worth attempting; the policy of
// whether to attempt it is left to the embedder.
type InvalidSession struct {
	Resumable bool
}

func (InvalidSession) eventName() string { return "INVALID_SESSION" }

// Ready is the DISPATCH payload that completes the identify handshake.
type Ready struct {
	Version   int             `json:"v"`
	User      discord.User    `json:"user"`
	SessionID string          `json:"session_id"`
	Guilds    []discord.Guild `json:"guilds"`
}

func (Ready) eventName() string { return "READY" }

// VoiceServerUpdate carries the token and endpoint a waiting voice
// connection needs to complete its handshake.
type VoiceServerUpdate struct {
	Token    string     `json:"token"`
	GuildID  id.GuildID `json:"guild_id"`
	Endpoint string     `json:"endpoint"`
}

func (VoiceServerUpdate) eventName() string { return "VOICE_SERVER_UPDATE" }

// MessageCreate wraps a newly created message.
type MessageCreate struct {
	discord.Message
}

func (MessageCreate) eventName() string { return "MESSAGE_CREATE" }

// InteractionCreate wraps a received interaction (slash command invocation
// or message component submission).
type InteractionCreate struct {
	discord.Interaction
}

func (InteractionCreate) eventName() string { return "INTERACTION_CREATE" }

// Unknown preserves the raw payload of a dispatch whose event name the
// core does not model, so callers can decode it against their own schema.
type Unknown struct {
	Name  string
	Value json.RawMessage
}

func (u Unknown) eventName() string { return u.Name }

func decodeDispatch(name string, d json.RawMessage) (Event, error) {
	switch name {
	case "READY":
		var ev Ready
		if err := json.Unmarshal(d, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "VOICE_SERVER_UPDATE":
		var ev VoiceServerUpdate
		if err := json.Unmarshal(d, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "MESSAGE_CREATE":
		var ev MessageCreate
		if err := json.Unmarshal(d, &ev.Message); err != nil {
			return nil, err
		}
		return ev, nil

	case "INTERACTION_CREATE":
		var ev InteractionCreate
		if err := json.Unmarshal(d, &ev.Interaction); err != nil {
			return nil, err
		}
		return ev, nil

	default:
		return Unknown{Name: name, Value: d}, nil
	}
}
