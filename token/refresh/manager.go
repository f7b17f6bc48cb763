// Package refresh exchanges a refresh token for a new token pair, with the
// observable busy window and fail-closed storage invalidation the rest of
// the app relies on.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
	"github.com/legumeabi/twitch-cw-command/token"
	"github.com/legumeabi/twitch-cw-command/twitchid"
)

// DefaultMinBusy is the floor duration of the visible refreshing window.
// Fast exchanges are padded to this so observers (a busy indicator) do not
// flicker.
const DefaultMinBusy = time.Second

// Exchanger performs the raw refresh-token grant.
type Exchanger interface {
	RefreshToken(ctx context.Context, refreshToken string) (*twitchid.TokenResponse, error)
}

// Invalidator clears the persisted token record. Satisfied by *token.Store.
type Invalidator interface {
	Clear() error
}

// Listener observes the refreshing busy state.
type Listener func(refreshing bool)

// Manager handles refresh token exchange. It notifies listeners when a
// refresh starts and ends, never ends the busy window before the minimum
// duration has elapsed, and invalidates local storage on any failure.
type Manager struct {
	exchanger Exchanger
	store     Invalidator
	minBusy   time.Duration

	mu        sync.RWMutex
	listeners map[uuid.UUID]Listener
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithMinBusy sets the floor duration of the busy window (primarily for
// testing).
func WithMinBusy(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.minBusy = d
	}
}

// NewManager creates a refresh manager.
func NewManager(exchanger Exchanger, store Invalidator, options ...ManagerOption) (*Manager, error) {
	if exchanger == nil {
		return nil, errors.New("[NewManager] exchanger is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	manager := &Manager{
		exchanger: exchanger,
		store:     store,
		minBusy:   DefaultMinBusy,
		listeners: make(map[uuid.UUID]Listener),
	}
	for _, opt := range options {
		opt(manager)
	}
	return manager, nil
}

// Subscribe registers a busy-state listener and returns its unsubscribe
// function.
func (m *Manager) Subscribe(listener Listener) func() {
	id := uuid.New()
	m.mu.Lock()
	m.listeners[id] = listener
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Refresh exchanges refreshToken for a new token record.
//
// The busy-started notification fires before the network call and the
// busy-ended one after both the call and the minimum busy floor have
// completed, on success and failure alike. On any failure the token store
// is cleared and ErrRefreshFailed returned: an unrefreshable credential
// means the user is no longer authenticated, never a transient error to
// retry silently. On success the new record is returned unpersisted;
// persistence stays with the caller.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*token.Record, error) {
	m.emit(true)
	floor := time.After(m.minBusy)

	tokens, err := m.exchanger.RefreshToken(ctx, refreshToken)

	// The floor binds the whole visible operation, not just the happy path.
	<-floor

	if err != nil {
		log.Warn().Err(err).Msg("token refresh failed, clearing stored credentials")
		if clearErr := m.store.Clear(); clearErr != nil {
			log.Error().Err(clearErr).Msg("failed to clear token storage")
		}
		m.emit(false)
		return nil, errors.Wrap(apperrors.ErrRefreshFailed, err.Error())
	}

	m.emit(false)
	return tokens.Record(""), nil
}

func (m *Manager) emit(refreshing bool) {
	m.mu.RLock()
	snapshot := make([]Listener, 0, len(m.listeners))
	for _, listener := range m.listeners {
		snapshot = append(snapshot, listener)
	}
	m.mu.RUnlock()
	for _, listener := range snapshot {
		listener(refreshing)
	}
}
