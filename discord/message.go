package discord

import (
	"time"

	"github.com/wrenlib/wren/id"
)

// Message is the minimal message shape the REST client decodes responses
// into and the gateway's ReceivableEvent payloads embed.
type Message struct {
	ID        id.MessageID `json:"id"`
	ChannelID id.ChannelID `json:"channel_id"`
	GuildID   id.GuildID   `json:"guild_id,omitempty"`
	Content   string       `json:"content"`
	Author    User         `json:"author"`
	Embeds    []Embed      `json:"embeds,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// MessagePosition selects the anchor for a message-history request.
type MessagePosition struct {
	Around     id.MessageID
	Before     id.MessageID
	After      id.MessageID
	MostRecent bool
}

// Query renders the position as the single query parameter Discord
// expects (around, before, or after); MostRecent sends none.
func (p MessagePosition) Query() (key, value string) {
	switch {
	case p.Around.IsValid():
		return "around", p.Around.String()
	case p.Before.IsValid():
		return "before", p.Before.String()
	case p.After.IsValid():
		return "after", p.After.String()
	default:
		return "", ""
	}
}
