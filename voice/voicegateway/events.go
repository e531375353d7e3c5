package voicegateway

// Hello is the first frame the voice WebSocket sends.
type Hello struct {
	HeartbeatIntervalMs float64 `json:"heartbeat_interval"`
}

func (Hello) Name() string { return "HELLO" }

// Ready reports the SSRC and UDP address to bind for the session.
type Ready struct {
	SSRC  uint32   `json:"ssrc"`
	IP    string   `json:"ip"`
	Port  uint16   `json:"port"`
	Modes []string `json:"modes"`
}

func (Ready) Name() string { return "READY" }

// SessionDescription carries the 32-byte SecretBox key negotiated for the
// session, once SelectProtocol has been acknowledged.
type SessionDescription struct {
	Mode      string    `json:"mode"`
	SecretKey [32]byte  `json:"secret_key"`
}

func (SessionDescription) Name() string { return "SESSION_DESCRIPTION" }

// Speaking reports another session's speaking state. Not yet acted on.
type Speaking struct{}

func (Speaking) Name() string { return "SPEAKING" }

// HeartbeatAck acknowledges a previously sent Heartbeat.
type HeartbeatAck struct{}

func (HeartbeatAck) Name() string { return "HEARTBEAT_ACK" }

// Resumed confirms a successful Resume. Not yet acted on.
type Resumed struct{}

func (Resumed) Name() string { return "RESUMED" }

// ClientDisconnect reports another session leaving the channel. Not yet
// acted on.
type ClientDisconnect struct{}

func (ClientDisconnect) Name() string { return "CLIENT_DISCONNECT" }
