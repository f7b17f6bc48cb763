// Package cwcommand answers the !cw chat command: cooldown-gated for
// regular chatters, immediate for mods and the broadcaster.
package cwcommand

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/legumeabi/twitch-cw-command/chat"
)

const (
	command = "!cw"

	// courtesyDelay is how long a CW fetch may take before chat gets a
	// placeholder line so the command does not appear swallowed.
	courtesyDelay = 800 * time.Millisecond

	courtesyText = "Give me a second..."
	apologyText  = "Sorry, I couldn't fetch the content warning information. Please try again later."
)

// Sayer posts a line to a chat channel.
type Sayer interface {
	Say(channel, text string) error
}

// Fetcher retrieves the content-warning text for a channel.
type Fetcher interface {
	Fetch(ctx context.Context, channelName string) (string, error)
}

// Handler reacts to !cw messages.
type Handler struct {
	sayer         Sayer
	fetcher       Fetcher
	limiter       *rate.Limiter
	courtesyDelay time.Duration
}

// HandlerOption defines a function type to modify the Handler instance.
type HandlerOption func(*Handler)

// WithCourtesyDelay sets the placeholder delay (primarily for testing).
func WithCourtesyDelay(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.courtesyDelay = d
	}
}

// New creates a handler enforcing the given cooldown between answered
// commands. Mods and the broadcaster bypass the cooldown without consuming
// it.
func New(sayer Sayer, fetcher Fetcher, cooldown time.Duration, options ...HandlerOption) (*Handler, error) {
	if sayer == nil {
		return nil, errors.New("[cwcommand.New] sayer is required")
	}
	if fetcher == nil {
		return nil, errors.New("[cwcommand.New] fetcher is required")
	}
	if cooldown <= 0 {
		return nil, errors.New("[cwcommand.New] cooldown must be positive")
	}
	handler := &Handler{
		sayer:         sayer,
		fetcher:       fetcher,
		limiter:       rate.NewLimiter(rate.Every(cooldown), 1),
		courtesyDelay: courtesyDelay,
	}
	for _, opt := range options {
		opt(handler)
	}
	return handler, nil
}

// Bind registers the handler on a chat client.
func (h *Handler) Bind(ctx context.Context, client chat.Client) {
	client.OnMessage(func(message chat.Message) {
		h.Handle(ctx, message)
	})
}

// Handle processes one chat message, replying with the channel's content
// warning when the message is the !cw command and the cooldown allows it.
func (h *Handler) Handle(ctx context.Context, message chat.Message) {
	if strings.TrimSpace(message.Text) != command {
		return
	}

	channelName := strings.TrimPrefix(message.Channel, "#")
	log.Debug().Str("channel", channelName).Str("user", message.User).Msg("!cw command detected")

	privileged := message.IsMod || message.IsBroadcaster
	if !privileged && !h.limiter.Allow() {
		log.Debug().Str("user", message.User).Msg("!cw on cooldown")
		return
	}

	courtesy := time.AfterFunc(h.courtesyDelay, func() {
		if err := h.sayer.Say(message.Channel, courtesyText); err != nil {
			log.Warn().Err(err).Msg("failed to post courtesy message")
		}
	})
	defer courtesy.Stop()

	text, err := h.fetcher.Fetch(ctx, channelName)
	if err != nil {
		log.Error().Err(err).Str("channel", channelName).Msg("failed to fetch CW data")
		if sayErr := h.sayer.Say(message.Channel, apologyText); sayErr != nil {
			log.Warn().Err(sayErr).Msg("failed to post apology message")
		}
		return
	}

	if err := h.sayer.Say(message.Channel, text); err != nil {
		log.Warn().Err(err).Msg("failed to post CW message")
	}
}
