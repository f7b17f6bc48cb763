// Package auth drives the device-authorization token lifecycle: device-code
// issuance, interval polling, validation, refresh-on-expiry, persistence and
// invalidation-on-failure. All mutation of the persisted token record and
// the chat connection is routed through the one Service instance.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/legumeabi/twitch-cw-command/chat"
	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
	"github.com/legumeabi/twitch-cw-command/internal/utils"
	"github.com/legumeabi/twitch-cw-command/token"
	"github.com/legumeabi/twitch-cw-command/twitchid"
)

// DeviceAuthClient issues a device code and polls for its resolution.
type DeviceAuthClient interface {
	StartDeviceAuth(ctx context.Context) (*twitchid.DeviceSession, error)
	PollDeviceAuth(ctx context.Context, session *twitchid.DeviceSession) (*twitchid.TokenResponse, error)
}

// TokenValidator checks an access token's liveness and extracts its
// identity.
type TokenValidator interface {
	Validate(ctx context.Context, accessToken string) (*twitchid.Validation, error)
}

// TokenRefresher exchanges a refresh token for a new record, clearing
// storage on failure.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*token.Record, error)
}

// TokenStore persists the single token record.
type TokenStore interface {
	Save(record *token.Record) error
	Load() (*token.Record, error)
	Clear() error
}

// Deps holds all dependencies for the Service.
type Deps struct {
	Device    DeviceAuthClient
	Validator TokenValidator
	Refresher TokenRefresher
	Store     TokenStore
	Chat      chat.Client
	Channel   string
}

// Service owns the current authentication phase, the active device session
// and the chat connection trigger. It is the single writer of token storage
// in the authenticated path; concurrent flows are serialized by a flow
// generation that invalidates superseded async work.
type Service struct {
	deps     Deps
	nowTime  func() time.Time
	notifier *notifier

	mu         sync.Mutex
	state      State
	session    *twitchid.DeviceSession
	login      string
	generation uint64
	cancelPoll context.CancelFunc
}

// Option defines a function type to modify the Service instance.
type Option func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes the auth state machine with required dependencies.
func NewService(deps Deps, options ...Option) (*Service, error) {
	if deps.Device == nil {
		return nil, errors.New("[NewService] Device client is required")
	}
	if deps.Validator == nil {
		return nil, errors.New("[NewService] Validator is required")
	}
	if deps.Refresher == nil {
		return nil, errors.New("[NewService] Refresher is required")
	}
	if deps.Store == nil {
		return nil, errors.New("[NewService] Store is required")
	}
	if deps.Chat == nil {
		return nil, errors.New("[NewService] Chat client is required")
	}
	if deps.Channel == "" {
		return nil, errors.New("[NewService] Channel is required")
	}

	service := &Service{
		deps:     deps,
		nowTime:  time.Now,
		notifier: newNotifier(),
		state:    StateUnauthenticated,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// State returns the current authentication phase.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Login returns the authenticated identity, empty when unauthenticated.
func (s *Service) Login() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login
}

// Subscribe registers an event listener and returns its unsubscribe
// function.
func (s *Service) Subscribe(listener Listener) func() {
	return s.notifier.subscribe(listener)
}

// Connect starts a device authorization flow. Any pending poll loop from a
// previous flow is cancelled first, so at most one loop is ever active. The
// flow continues in the background; progress is reported through events.
func (s *Service) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.supersedeLocked()
	gen := s.generation
	s.mu.Unlock()

	session, err := s.deps.Device.StartDeviceAuth(ctx)
	if err != nil {
		s.failFlow(gen, err)
		return errors.Wrap(err, "[Service.Connect] start device auth")
	}

	pollCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.session = session
	s.cancelPoll = cancel
	s.state = StatePolling
	s.mu.Unlock()

	s.notifier.emit(
		Event{Kind: EventStateChanged, State: StateAwaitingUserCode},
		Event{Kind: EventUserCodeReady, State: StateAwaitingUserCode, Session: session},
		Event{Kind: EventStateChanged, State: StatePolling},
	)

	go s.runPollLoop(pollCtx, gen, session)
	return nil
}

// Resume restores authentication from storage on application start. A
// present record makes the service optimistically authenticated, then
// validated in the background; an expired record is refreshed first.
// Absence of a record is not an error.
func (s *Service) Resume(ctx context.Context) error {
	record, err := s.deps.Store.Load()
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNoToken) {
			return nil
		}
		return errors.Wrap(err, "[Service.Resume] load token")
	}

	s.mu.Lock()
	s.supersedeLocked()
	gen := s.generation
	s.mu.Unlock()

	if record.Expired(s.nowTime()) {
		if !s.setState(gen, StateRefreshing, "") {
			return nil
		}
		refreshed, rerr := s.deps.Refresher.Refresh(ctx, record.RefreshToken)
		if rerr != nil {
			s.failFlow(gen, rerr)
			return nil
		}
		refreshed.Login = record.Login
		if !s.saveRecord(gen, refreshed) {
			return nil
		}
		if s.setState(gen, StateAuthenticated, refreshed.Login) {
			s.connectChat(ctx, gen, refreshed.AccessToken, refreshed.Login)
		}
		return nil
	}

	if s.setState(gen, StateAuthenticated, record.Login) {
		go s.revalidate(ctx, gen, record)
	}
	return nil
}

// Disconnect resets to unauthenticated unconditionally: storage is cleared,
// the chat connection torn down, any in-flight polling cancelled, and a
// refresh that resolves later is discarded.
func (s *Service) Disconnect() {
	s.mu.Lock()
	s.supersedeLocked()
	s.login = ""
	s.state = StateUnauthenticated
	if err := s.deps.Store.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear token storage on disconnect")
	}
	s.mu.Unlock()

	if err := s.deps.Chat.Disconnect(); err != nil {
		log.Warn().Err(err).Msg("chat disconnect")
	}
	s.notifier.emit(Event{Kind: EventStateChanged, State: StateUnauthenticated})
}

// supersedeLocked invalidates all async work of the current flow. Callers
// must hold s.mu.
func (s *Service) supersedeLocked() {
	s.generation++
	s.session = nil
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
}

// runPollLoop polls the device session at its interval until the grant
// resolves, the session budget is exhausted, or the flow is superseded.
func (s *Service) runPollLoop(ctx context.Context, gen uint64, session *twitchid.DeviceSession) {
	interval := time.Duration(session.Interval) * time.Second
	deadline := s.nowTime().Add(time.Duration(session.ExpiresIn) * time.Second)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !s.nowTime().Before(deadline) {
			s.failFlow(gen, errors.Wrap(apperrors.ErrSessionExpired, "device authorization timed out"))
			return
		}

		tokens, err := s.deps.Device.PollDeviceAuth(ctx, session)
		switch {
		case err == nil:
			s.completeDeviceAuth(ctx, gen, tokens)
			return
		case apperrors.Is(err, apperrors.ErrAuthorizationPending):
			timer.Reset(interval)
		default:
			if ctx.Err() != nil {
				return
			}
			s.failFlow(gen, err)
			return
		}
	}
}

// completeDeviceAuth resolves the identity for a granted token pair,
// persists the record exactly once and triggers the chat connection.
func (s *Service) completeDeviceAuth(ctx context.Context, gen uint64, tokens *twitchid.TokenResponse) {
	accessToken := utils.Value(tokens.AccessToken)

	login := ""
	if validation, err := s.deps.Validator.Validate(ctx, accessToken); err == nil {
		login = validation.Login
	} else if identity := twitchid.DecodeIdentity(accessToken); identity != nil {
		login = identity.Login
	}
	if login == "" {
		s.failFlow(gen, errors.New("could not resolve login for granted token"))
		return
	}

	record := tokens.Record(login)
	if !s.saveRecord(gen, record) {
		return
	}
	if s.setState(gen, StateAuthenticated, login) {
		s.connectChat(ctx, gen, accessToken, login)
	}
}

// revalidate confirms a resumed token's liveness in the background. An
// invalid token is refreshed and validation retried exactly once with the
// new access token; the retry path is invisible to observers beyond the
// Refreshing sub-state.
func (s *Service) revalidate(ctx context.Context, gen uint64, record *token.Record) {
	validation, err := s.deps.Validator.Validate(ctx, record.AccessToken)
	switch {
	case err == nil:
		s.connectChat(ctx, gen, record.AccessToken, validation.Login)

	case apperrors.Is(err, apperrors.ErrTokenInvalid):
		if !s.setState(gen, StateRefreshing, "") {
			return
		}
		refreshed, rerr := s.deps.Refresher.Refresh(ctx, record.RefreshToken)
		if rerr != nil {
			s.failFlow(gen, rerr)
			return
		}
		refreshed.Login = record.Login
		if !s.saveRecord(gen, refreshed) {
			return
		}

		validation, err = s.deps.Validator.Validate(ctx, refreshed.AccessToken)
		if err != nil {
			s.clearStorage()
			s.failFlow(gen, errors.Wrap(err, "validation failed after refresh"))
			return
		}
		if s.setState(gen, StateAuthenticated, validation.Login) {
			s.connectChat(ctx, gen, refreshed.AccessToken, validation.Login)
		}

	default:
		// Network or unexpected status: surfaced via the state fallback,
		// storage left intact for the next start.
		s.failFlow(gen, err)
	}
}

// setState transitions to the given state if the flow is still current and
// emits the change. Returns false when the flow has been superseded.
func (s *Service) setState(gen uint64, state State, login string) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.state = state
	if login != "" {
		s.login = login
	}
	s.mu.Unlock()
	s.notifier.emit(Event{Kind: EventStateChanged, State: state, Login: login})
	return true
}

// saveRecord persists the record under the flow-generation guard so a save
// can never land after a disconnect has cleared storage.
func (s *Service) saveRecord(gen uint64, record *token.Record) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	err := s.deps.Store.Save(record)
	s.mu.Unlock()
	if err != nil {
		s.failFlow(gen, errors.Wrap(err, "persist token record"))
		return false
	}
	return true
}

func (s *Service) clearStorage() {
	s.mu.Lock()
	if err := s.deps.Store.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear token storage")
	}
	s.mu.Unlock()
}

// failFlow falls back to unauthenticated for the given flow, emitting the
// error event. A superseded flow's failure is discarded silently.
func (s *Service) failFlow(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.session = nil
	s.login = ""
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
	s.state = StateUnauthenticated
	s.mu.Unlock()

	log.Warn().Err(err).Msg("authentication flow failed")
	s.notifier.emit(
		Event{Kind: EventStateChanged, State: StateUnauthenticated},
		Event{Kind: EventAuthError, State: StateUnauthenticated, Err: err},
	)
}

// connectChat triggers the chat collaborator with the authenticated
// identity. Chat failures do not invalidate the token; they are logged and
// the next start retries.
func (s *Service) connectChat(ctx context.Context, gen uint64, accessToken, login string) {
	s.mu.Lock()
	current := gen == s.generation
	s.mu.Unlock()
	if !current {
		return
	}

	creds := chat.Credentials{
		Username:    login,
		AccessToken: accessToken,
		Channel:     s.deps.Channel,
	}
	if err := s.deps.Chat.Connect(ctx, creds); err != nil {
		log.Error().Err(err).Str("channel", s.deps.Channel).Msg("chat connect failed")
	}
}
