package discord

import "github.com/wrenlib/wren/id"

// ApplicationCommandOptionType enumerates the option kinds a command
// parameter can take.
type ApplicationCommandOptionType int

const (
	SubcommandOption      ApplicationCommandOptionType = 1
	SubcommandGroupOption ApplicationCommandOptionType = 2
	StringOption          ApplicationCommandOptionType = 3
	IntegerOption         ApplicationCommandOptionType = 4
	BooleanOption         ApplicationCommandOptionType = 5
	UserOption            ApplicationCommandOptionType = 6
	ChannelOption         ApplicationCommandOptionType = 7
)

// ApplicationCommandOption describes a single command parameter.
type ApplicationCommandOption struct {
	Type        ApplicationCommandOptionType `json:"type"`
	Name        string                       `json:"name"`
	Description string                       `json:"description"`
	Required    bool                         `json:"required,omitempty"`
}

// ApplicationCommandData is the create/update payload for a slash command.
type ApplicationCommandData struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Options     []ApplicationCommandOption `json:"options,omitempty"`
}

// ApplicationCommand is the full command object returned by the CRUD
// endpoints; it embeds ApplicationCommandData plus server-assigned fields.
type ApplicationCommand struct {
	ID            id.ApplicationCommandID `json:"id"`
	ApplicationID id.ApplicationID        `json:"application_id"`
	ApplicationCommandData
}
