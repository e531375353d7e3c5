package voicegateway

import "github.com/wrenlib/wren/id"

// Identify authenticates the voice WebSocket against a guild's voice
// server, using the token and session id the gateway's voice-state and
// voice-server-update events provided.
type Identify struct {
	ServerID  id.GuildID `json:"server_id"`
	UserID    id.UserID  `json:"user_id"`
	SessionID string     `json:"session_id"`
	Token     string     `json:"token"`
}

func (Identify) opcode() Opcode            { return IdentifyOp }
func (i Identify) commandData() interface{} { return i }

// SelectProtocolData names the UDP transport mode after IP discovery.
type SelectProtocolData struct {
	Address string `json:"address"`
	Port    uint16 `json:"port"`
	Mode    string `json:"mode"`
}

// SelectProtocol finalizes the UDP address and encryption mode.
type SelectProtocol struct {
	Protocol string             `json:"protocol"`
	Data     SelectProtocolData `json:"data"`
}

func (SelectProtocol) opcode() Opcode            { return SelectProtocolOp }
func (s SelectProtocol) commandData() interface{} { return s }

// Heartbeat carries an arbitrary nonce the server echoes back.
type Heartbeat struct {
	Nonce uint64
}

func (Heartbeat) opcode() Opcode             { return HeartbeatOp }
func (h Heartbeat) commandData() interface{} { return h.Nonce }

// SetSpeaking toggles the speaking indicator and, on first use, binds the
// SSRC to the connection.
type SetSpeaking struct {
	Speaking bool  `json:"speaking"`
	Delay    int   `json:"delay"`
	SSRC     uint32 `json:"ssrc"`
}

func (SetSpeaking) opcode() Opcode             { return SpeakingOp }
func (s SetSpeaking) commandData() interface{} { return s }

// Resume attempts to continue a prior voice session.
type Resume struct {
	ServerID  id.GuildID `json:"server_id"`
	SessionID string     `json:"session_id"`
	Token     string     `json:"token"`
}

func (Resume) opcode() Opcode            { return ResumeOp }
func (r Resume) commandData() interface{} { return r }
