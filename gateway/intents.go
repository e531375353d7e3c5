package gateway

// Intent is a single bit in the Identify intents bitset, selecting which
// event categories the service will dispatch.
type Intent uint64

const (
	IntentGuilds                 Intent = 1 << 0
	IntentGuildMembers           Intent = 1 << 1
	IntentGuildBans              Intent = 1 << 2
	IntentGuildEmojis            Intent = 1 << 3
	IntentGuildIntegrations      Intent = 1 << 4
	IntentGuildWebhooks          Intent = 1 << 5
	IntentGuildInvites           Intent = 1 << 6
	IntentGuildVoiceStates       Intent = 1 << 7
	IntentGuildPresences         Intent = 1 << 8
	IntentGuildMessages          Intent = 1 << 9
	IntentGuildMessageReactions  Intent = 1 << 10
	IntentGuildMessageTyping     Intent = 1 << 11
	IntentDirectMessages         Intent = 1 << 12
	IntentDirectMessageReactions Intent = 1 << 13
	IntentDirectMessageTyping    Intent = 1 << 14
)

// PrivilegedIntents requires explicit developer-portal opt-in.
const PrivilegedIntents = IntentGuildMembers | IntentGuildPresences

// allIntents is every currently defined bit.
const allIntents = IntentGuilds | IntentGuildMembers | IntentGuildBans |
	IntentGuildEmojis | IntentGuildIntegrations | IntentGuildWebhooks |
	IntentGuildInvites | IntentGuildVoiceStates | IntentGuildPresences |
	IntentGuildMessages | IntentGuildMessageReactions | IntentGuildMessageTyping |
	IntentDirectMessages | IntentDirectMessageReactions | IntentDirectMessageTyping

// DefaultIntents is every defined bit except the two privileged ones.
const DefaultIntents = allIntents &^ PrivilegedIntents
