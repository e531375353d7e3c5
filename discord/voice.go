package discord

import "github.com/wrenlib/wren/id"

// VoiceState is the subset of a guild member's voice state the voice
// connector cares about: which channel (if any) they currently occupy.
type VoiceState struct {
	GuildID   id.GuildID   `json:"guild_id"`
	ChannelID id.ChannelID `json:"channel_id"`
	UserID    id.UserID    `json:"user_id"`
	SessionID string       `json:"session_id"`
	SelfMute  bool         `json:"self_mute"`
	SelfDeaf  bool         `json:"self_deaf"`
}
