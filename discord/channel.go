package discord

import "github.com/wrenlib/wren/id"

// ChannelType enumerates the channel kinds the REST client needs to tell
// apart; the full taxonomy (forum channels, media channels, ...) is left
// for a higher layer to model.
type ChannelType int

const (
	GuildText ChannelType = iota
	DM
	GuildVoice
	GroupDM
	GuildCategory
	GuildAnnouncement
	GuildStageVoice ChannelType = 13
)

// Channel is the minimal channel shape REST responses are decoded into.
type Channel struct {
	ID      id.ChannelID `json:"id"`
	Type    ChannelType  `json:"type"`
	GuildID id.GuildID   `json:"guild_id,omitempty"`
	Name    string       `json:"name,omitempty"`
}
