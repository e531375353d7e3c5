package discord

import "github.com/wrenlib/wren/id"

// User is the minimal user shape the REST client and gateway dispatch
// need. The exhaustive user schema (flags, banners, presences, ...) is
// left for a higher layer to model.
type User struct {
	ID            id.UserID `json:"id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator"`
	Avatar        string    `json:"avatar,omitempty"`
	Bot           bool      `json:"bot,omitempty"`
}
