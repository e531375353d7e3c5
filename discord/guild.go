package discord

import "github.com/wrenlib/wren/id"

// Guild is the minimal guild shape returned by get_guilds and used by
// get_guild_channels. The exhaustive guild schema (roles, features,
// welcome screens, ...) is left for a higher layer to model.
type Guild struct {
	ID   id.GuildID `json:"id"`
	Name string     `json:"name"`
}
