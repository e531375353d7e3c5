package gateway

import "github.com/wrenlib/wren/id"

// Command is an outbound gateway frame.
type Command interface {
	opcode() Opcode
	commandData() interface{}
}

// IdentifyProperties describes the connecting client to the service.
type IdentifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

// DefaultIdentifyProperties are the connection properties sent unless the
// caller overrides them.
var DefaultIdentifyProperties = IdentifyProperties{
	OS:      "linux",
	Browser: "wren",
	Device:  "wren",
}

// Heartbeat carries the last-seen dispatch sequence number, or nil before
// the first dispatch has been observed.
type Heartbeat struct {
	LastSeq *int64
}

func (Heartbeat) opcode() Opcode            { return HeartbeatOp }
func (h Heartbeat) commandData() interface{} { return h.LastSeq }

// Identify authenticates the connection and selects intents.
type Identify struct {
	Token          string
	Properties     IdentifyProperties
	Compress       bool
	LargeThreshold int
	Shard          *[2]int
	Presence       *StatusUpdate
	Intents        Intent
}

func (Identify) opcode() Opcode { return IdentifyOp }
func (i Identify) commandData() interface{} {
	return struct {
		Token          string              `json:"token"`
		Properties     IdentifyProperties  `json:"properties"`
		Compress       bool                `json:"compress,omitempty"`
		LargeThreshold int                 `json:"large_threshold,omitempty"`
		Shard          *[2]int             `json:"shard,omitempty"`
		Presence       *StatusUpdate       `json:"presence,omitempty"`
		Intents        Intent              `json:"intents"`
	}{i.Token, i.Properties, i.Compress, i.LargeThreshold, i.Shard, i.Presence, i.Intents}
}

// StatusUpdate sets the bot's presence.
type StatusUpdate struct {
	Since  *int64 `json:"since"`
	Status string `json:"status"`
	AFK    bool   `json:"afk"`
}

func (StatusUpdate) opcode() Opcode             { return StatusUpdateOp }
func (s StatusUpdate) commandData() interface{} { return s }

// VoiceStateUpdate requests a voice-channel join, move, or leave.
// ChannelID is the zero value to disconnect.
type VoiceStateUpdate struct {
	GuildID   id.GuildID
	ChannelID id.ChannelID
	SelfMute  bool
	SelfDeaf  bool
}

func (VoiceStateUpdate) opcode() Opcode { return VoiceStateUpdateOp }
func (v VoiceStateUpdate) commandData() interface{} {
	var channelID interface{}
	if v.ChannelID.IsValid() {
		channelID = v.ChannelID
	}
	return struct {
		GuildID   id.GuildID  `json:"guild_id"`
		ChannelID interface{} `json:"channel_id"`
		SelfMute  bool        `json:"self_mute"`
		SelfDeaf  bool        `json:"self_deaf"`
	}{v.GuildID, channelID, v.SelfMute, v.SelfDeaf}
}

// Resume attempts to continue a prior session after a dropped connection.
type Resume struct {
	Token     string
	SessionID string
	Seq       int64
}

func (Resume) opcode() Opcode            { return ResumeOp }
func (r Resume) commandData() interface{} { return r }

// RequestGuildMembers asks the service to dispatch guild-member chunks.
type RequestGuildMembers struct {
	GuildID id.GuildID `json:"guild_id"`
	Query   string     `json:"query"`
	Limit   int        `json:"limit"`
}

func (RequestGuildMembers) opcode() Opcode             { return RequestGuildMembersOp }
func (r RequestGuildMembers) commandData() interface{} { return r }
