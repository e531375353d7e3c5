package discord

import "github.com/wrenlib/wren/id"

// InteractionResponseType enumerates the callback types the REST client
// can send to create_interaction_response. Only the types needed to
// acknowledge and reply are modeled; modals and autocomplete choices are
// left for a higher layer.
type InteractionResponseType int

const (
	PongResponse                      InteractionResponseType = 1
	ChannelMessageWithSource          InteractionResponseType = 4
	DeferredChannelMessageWithSource  InteractionResponseType = 5
	DeferredUpdateMessage             InteractionResponseType = 6
	UpdateMessage                     InteractionResponseType = 7
)

// InteractionResponseData is the payload for a ChannelMessageWithSource
// response.
type InteractionResponseData struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
	Flags   uint    `json:"flags,omitempty"`
}

// InteractionResponse is the body of create_interaction_response.
type InteractionResponse struct {
	Type InteractionResponseType  `json:"type"`
	Data *InteractionResponseData `json:"data,omitempty"`
}

// Interaction is the minimal interaction shape the gateway forwards for
// slash commands and message components.
type Interaction struct {
	ID            id.InteractionID `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Token         string           `json:"token"`
	ChannelID     id.ChannelID     `json:"channel_id,omitempty"`
	GuildID       id.GuildID       `json:"guild_id,omitempty"`
}
