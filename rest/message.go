package rest

import "github.com/wrenlib/wren/discord"

// SendMessageData is the per-call configuration builder for sending and
// editing messages. Recognized fields are content, nonce, tts, and embed.
type SendMessageData struct {
	Content string         `json:"content,omitempty"`
	Nonce   string         `json:"nonce,omitempty"`
	TTS     bool           `json:"tts,omitempty"`
	Embed   *discord.Embed `json:"embed,omitempty"`
}

// NewMessage starts a SendMessageData builder with the given content.
func NewMessage(content string) SendMessageData {
	return SendMessageData{Content: content}
}

// WithNonce sets the deduplication nonce.
func (d SendMessageData) WithNonce(nonce string) SendMessageData {
	d.Nonce = nonce
	return d
}

// WithTTS marks the message as text-to-speech.
func (d SendMessageData) WithTTS(tts bool) SendMessageData {
	d.TTS = tts
	return d
}

// WithEmbed attaches a rich embed.
func (d SendMessageData) WithEmbed(e *discord.Embed) SendMessageData {
	d.Embed = e
	return d
}

// enforceEmbedLimits validates the attached embed, if any, against its
// size invariants.
func (d SendMessageData) enforceEmbedLimits() error {
	return d.Embed.EnforceEmbedLimits()
}
