// Package rest implements the HTTPS JSON client: request retry on 429,
// per-route and global rate-limit discipline, and the small set of
// operations a bot runtime needs (gateway bootstrap, message CRUD, slash
// commands, interaction responses).
package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/wrenlib/wren/discord"
	"github.com/wrenlib/wren/id"
	"github.com/wrenlib/wren/rest/ratelimit"
)

// BaseURL is the REST API root.
var BaseURL = "https://discordapp.com/api/v6"

// DefaultRetryCeiling is the number of 429 responses a single request may
// receive; the response that reaches the ceiling ends the request with
// ErrTooManyRetries.
const DefaultRetryCeiling = 5

// UserAgent is sent on every request.
var UserAgent = "DiscordBot (https://github.com/wrenlib/wren, v1.0.0)"

// Client is the REST client. It is cheap to clone: a clone shares the same
// rate-limiter table and HTTP transport as the original, so a gateway
// connection can hand every dispatched event its own Client value without
// duplicating rate-limit state.
type Client struct {
	http         *resty.Client
	limiter      *ratelimit.Limiter
	token        string
	retryCeiling int
	Log          zerolog.Logger
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithRetryCeiling overrides DefaultRetryCeiling.
func WithRetryCeiling(n int) Option {
	return func(c *Client) { c.retryCeiling = n }
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.Log = log }
}

// NewClient constructs a Client authenticated with the given bot token.
// The token should not include the "Bot " prefix; NewClient adds it.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		http:         resty.New().SetBaseURL(BaseURL),
		limiter:      ratelimit.NewLimiter(),
		token:        token,
		retryCeiling: DefaultRetryCeiling,
		Log:          zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Clone returns a shallow copy of c that shares the same underlying HTTP
// transport and rate-limiter table.
func (c *Client) Clone() *Client {
	clone := *c
	return &clone
}

// do executes one logical REST operation: enforce the rate limiter, send,
// update the rate limiter from the response headers, and retry on 429 up
// to the configured ceiling.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	return c.doWithRouteKey(ctx, method, ratelimit.RouteKey(method, path), path, body, result)
}

// doWithRouteKey is do with an explicit route key, for operations whose
// HTTP verb doesn't match the verb the service bills the rate limit
// against (bulk delete is a POST billed as a DELETE).
func (c *Client) doWithRouteKey(ctx context.Context, method, routeKey, path string, body, result interface{}) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Enforce(ctx, routeKey); err != nil {
			return errors.Wrap(err, "rest: rate limiter")
		}

		req := c.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bot "+c.token).
			SetHeader("User-Agent", UserAgent)

		if body != nil {
			req = req.SetHeader("Content-Type", "application/json").SetBody(body)
		}
		if result != nil {
			req = req.SetResult(result).ForceContentType("application/json")
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return errors.Wrap(err, "rest: request failed")
		}

		c.limiter.Update(routeKey, resp.Header())

		switch {
		case resp.StatusCode() == http.StatusTooManyRequests:
			if attempt+1 >= c.retryCeiling {
				return &ErrTooManyRetries{Max: c.retryCeiling, Path: path}
			}
			c.Log.Warn().Str("path", path).Int("attempt", attempt+1).Msg("rest: 429, retrying")
			continue

		case resp.StatusCode() >= 200 && resp.StatusCode() < 300:
			return nil

		default:
			return &ErrUnsuccessfulHTTP{Status: resp.StatusCode(), Path: path, Body: string(resp.Body())}
		}
	}
}

// GatewayData is the response of GetGateway.
type GatewayData struct {
	URL string `json:"url"`
}

// GetGateway fetches the gateway WebSocket URL and appends the version and
// encoding query parameters.
func (c *Client) GetGateway(ctx context.Context, version int) (string, error) {
	var data GatewayData
	if err := c.do(ctx, http.MethodGet, "/gateway", nil, &data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s?v=%d&encoding=json", data.URL, version), nil
}

// SendMessage posts a new message to a channel.
func (c *Client) SendMessage(ctx context.Context, channelID id.ChannelID, data SendMessageData) (*discord.Message, error) {
	if err := data.enforceEmbedLimits(); err != nil {
		return nil, err
	}

	var msg discord.Message
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	if err := c.do(ctx, http.MethodPost, path, data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateMessage edits an existing message.
func (c *Client) UpdateMessage(ctx context.Context, channelID id.ChannelID, messageID id.MessageID, data SendMessageData) (*discord.Message, error) {
	if err := data.enforceEmbedLimits(); err != nil {
		return nil, err
	}

	var msg discord.Message
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	if err := c.do(ctx, http.MethodPatch, path, data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetGuilds returns the guilds the bot is a member of.
func (c *Client) GetGuilds(ctx context.Context) ([]discord.Guild, error) {
	var guilds []discord.Guild
	if err := c.do(ctx, http.MethodGet, "/users/@me/guilds", nil, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

// GetGuildChannels lists a guild's channels.
func (c *Client) GetGuildChannels(ctx context.Context, guildID id.GuildID) ([]discord.Channel, error) {
	var channels []discord.Channel
	path := fmt.Sprintf("/guilds/%s/channels", guildID)
	if err := c.do(ctx, http.MethodGet, path, nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// CreatePrivateChannel opens (or fetches) a DM channel with a user.
func (c *Client) CreatePrivateChannel(ctx context.Context, userID id.UserID) (*discord.Channel, error) {
	body := struct {
		RecipientID id.UserID `json:"recipient_id"`
	}{userID}

	var ch discord.Channel
	if err := c.do(ctx, http.MethodPost, "/users/@me/channels", body, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetMessages fetches up to limit messages anchored at pos. limit of 0
// uses Discord's default page size.
func (c *Client) GetMessages(ctx context.Context, channelID id.ChannelID, pos discord.MessagePosition, limit int) ([]discord.Message, error) {
	path := fmt.Sprintf("/channels/%s/messages", channelID)

	if key, value := pos.Query(); key != "" {
		path += "?" + key + "=" + value
		if limit > 0 {
			path += fmt.Sprintf("&limit=%d", limit)
		}
	} else if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var messages []discord.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteMessage deletes a single message. It uses the DELETE-prefixed
// route key since the service rate-limits deletes separately from the
// other verbs on the same path.
func (c *Client) DeleteMessage(ctx context.Context, channelID id.ChannelID, messageID id.MessageID) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// DeleteMessages bulk-deletes up to 100 messages in one call. It sends a
// POST but is billed against the DELETE route key, matching the delete
// path's rate limit rather than the create-message one.
func (c *Client) DeleteMessages(ctx context.Context, channelID id.ChannelID, messageIDs []id.MessageID) error {
	body := struct {
		Messages []id.MessageID `json:"messages"`
	}{messageIDs}

	path := fmt.Sprintf("/channels/%s/messages/bulk_delete", channelID)
	return c.doWithRouteKey(ctx, http.MethodPost, ratelimit.RouteKey(http.MethodDelete, path), path, body, nil)
}

// GetApplicationCommands lists an application's global slash commands.
func (c *Client) GetApplicationCommands(ctx context.Context, appID id.ApplicationID) ([]discord.ApplicationCommand, error) {
	var cmds []discord.ApplicationCommand
	path := fmt.Sprintf("/applications/%s/commands", appID)
	if err := c.do(ctx, http.MethodGet, path, nil, &cmds); err != nil {
		return nil, err
	}
	return cmds, nil
}

// CreateApplicationCommand registers a new global slash command.
func (c *Client) CreateApplicationCommand(ctx context.Context, appID id.ApplicationID, data discord.ApplicationCommandData) (*discord.ApplicationCommand, error) {
	var cmd discord.ApplicationCommand
	path := fmt.Sprintf("/applications/%s/commands", appID)
	if err := c.do(ctx, http.MethodPost, path, data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// DeleteApplicationCommand removes a global slash command.
func (c *Client) DeleteApplicationCommand(ctx context.Context, appID id.ApplicationID, cmdID id.ApplicationCommandID) error {
	path := fmt.Sprintf("/applications/%s/commands/%s", appID, cmdID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreateInteractionResponse acknowledges or replies to an interaction.
func (c *Client) CreateInteractionResponse(ctx context.Context, interactionID id.InteractionID, token string, resp discord.InteractionResponse) error {
	path := fmt.Sprintf("/interactions/%s/%s/callback", interactionID, token)
	return c.do(ctx, http.MethodPost, path, resp, nil)
}

// EditOriginalInteractionResponse edits the initial interaction reply.
func (c *Client) EditOriginalInteractionResponse(ctx context.Context, appID id.ApplicationID, token string, data SendMessageData) (*discord.Message, error) {
	if err := data.enforceEmbedLimits(); err != nil {
		return nil, err
	}

	var msg discord.Message
	path := fmt.Sprintf("/webhooks/%s/%s/messages/@original", appID, token)
	if err := c.do(ctx, http.MethodPatch, path, data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
