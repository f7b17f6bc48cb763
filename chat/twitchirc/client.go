// Package twitchirc implements the chat boundary over Twitch IRC.
package twitchirc

import (
	"context"
	"strings"
	"sync"
	"time"

	irc "github.com/gempir/go-twitch-irc/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/legumeabi/twitch-cw-command/chat"
	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
)

const connectTimeout = 15 * time.Second

// Client joins a single Twitch chat channel over IRC.
type Client struct {
	mu       sync.Mutex
	irc      *irc.Client
	handlers []chat.Handler
}

var _ chat.Client = (*Client)(nil)

// New creates an unconnected chat client.
func New() *Client {
	return &Client{}
}

// OnMessage registers a message handler. Handlers registered before Connect
// survive reconnects.
func (c *Client) OnMessage(handler chat.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Connect joins the channel with the given identity, replacing any previous
// connection. It returns once the IRC connection is established or ctx
// expires.
func (c *Client) Connect(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.AccessToken == "" || creds.Channel == "" {
		return errors.New("[Client.Connect] username, access token and channel are required")
	}

	if err := c.Disconnect(); err != nil {
		log.Warn().Err(err).Msg("disconnecting previous chat connection")
	}

	ircClient := irc.NewClient(creds.Username, "oauth:"+creds.AccessToken)

	connected := make(chan struct{})
	var once sync.Once
	ircClient.OnConnect(func() {
		once.Do(func() { close(connected) })
	})
	ircClient.OnPrivateMessage(func(message irc.PrivateMessage) {
		c.dispatch(translate(message))
	})
	ircClient.Join(creds.Channel)

	errCh := make(chan error, 1)
	go func() {
		if err := ircClient.Connect(); err != nil {
			errCh <- err
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	select {
	case <-connected:
	case err := <-errCh:
		return errors.Wrap(err, "[Client.Connect] irc connect")
	case <-ctx.Done():
		_ = ircClient.Disconnect()
		return errors.Wrap(ctx.Err(), "[Client.Connect] irc connect")
	}

	c.mu.Lock()
	c.irc = ircClient
	c.mu.Unlock()
	log.Info().Str("channel", creds.Channel).Msg("connected to chat")
	return nil
}

// Disconnect closes the active connection, if any.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	ircClient := c.irc
	c.irc = nil
	c.mu.Unlock()
	if ircClient == nil {
		return nil
	}
	if err := ircClient.Disconnect(); err != nil {
		return errors.Wrap(err, "[Client.Disconnect] irc disconnect")
	}
	return nil
}

// Say posts text to the channel.
func (c *Client) Say(channel, text string) error {
	c.mu.Lock()
	ircClient := c.irc
	c.mu.Unlock()
	if ircClient == nil {
		return apperrors.ErrNotConnected
	}
	ircClient.Say(strings.TrimPrefix(channel, "#"), text)
	return nil
}

func (c *Client) dispatch(message chat.Message) {
	c.mu.Lock()
	snapshot := make([]chat.Handler, len(c.handlers))
	copy(snapshot, c.handlers)
	c.mu.Unlock()
	for _, handler := range snapshot {
		handler(message)
	}
}

func translate(message irc.PrivateMessage) chat.Message {
	channel := strings.TrimPrefix(message.Channel, "#")
	return chat.Message{
		Channel:       channel,
		User:          message.User.Name,
		Text:          message.Message,
		IsMod:         message.User.Badges["moderator"] > 0 || message.Tags["mod"] == "1",
		IsBroadcaster: message.User.Badges["broadcaster"] > 0 || message.User.Name == channel,
	}
}

// Credentials aliases the boundary type so callers wiring this package do
// not need both imports.
type Credentials = chat.Credentials
