package refresh_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
	"github.com/legumeabi/twitch-cw-command/internal/utils"
	"github.com/legumeabi/twitch-cw-command/token"
	"github.com/legumeabi/twitch-cw-command/token/refresh"
	"github.com/legumeabi/twitch-cw-command/token/repofake"
	"github.com/legumeabi/twitch-cw-command/twitchid"
)

type fakeExchanger struct {
	delay  time.Duration
	tokens *twitchid.TokenResponse
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeExchanger) RefreshToken(ctx context.Context, refreshToken string) (*twitchid.TokenResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

type busyRecorder struct {
	mu     sync.Mutex
	states []bool
	times  []time.Time
}

func (b *busyRecorder) listen(refreshing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, refreshing)
	b.times = append(b.times, time.Now())
}

func (b *busyRecorder) snapshot() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.states...)
}

func (b *busyRecorder) window() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.times) < 2 {
		return 0
	}
	return b.times[len(b.times)-1].Sub(b.times[0])
}

func freshTokens() *twitchid.TokenResponse {
	return &twitchid.TokenResponse{
		AccessToken:  utils.Ptr("access-789"),
		RefreshToken: utils.Ptr("refresh-790"),
		Scope:        []string{"chat:read", "chat:edit"},
		TokenType:    "bearer",
		ExpiresIn:    14400,
	}
}

func newSeededStore(t *testing.T) (*token.Store, *repofake.FakeBackend) {
	t.Helper()
	backend := repofake.NewFakeBackend()
	store, err := token.NewStore(backend)
	require.NoError(t, err)
	require.NoError(t, store.Save(&token.Record{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		Scope:        []string{"chat:read"},
		TokenType:    "bearer",
		ExpiresIn:    3600,
		Login:        "streamer",
	}))
	return store, backend
}

func TestRefreshSuccessReturnsUnpersistedRecord(t *testing.T) {
	store, backend := newSeededStore(t)
	exchanger := &fakeExchanger{tokens: freshTokens()}
	manager, err := refresh.NewManager(exchanger, store, refresh.WithMinBusy(0))
	require.NoError(t, err)

	record, err := manager.Refresh(context.Background(), "refresh-456")
	require.NoError(t, err)
	require.Equal(t, "access-789", record.AccessToken)
	require.Equal(t, "refresh-790", record.RefreshToken)
	require.Empty(t, record.Login)

	// The caller owns persistence; storage still holds the old record.
	stored, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "access-123", stored.AccessToken)
	require.NotZero(t, backend.Len())
}

func TestRefreshFailureClearsStorage(t *testing.T) {
	store, backend := newSeededStore(t)
	exchanger := &fakeExchanger{err: errors.New("invalid refresh token")}
	manager, err := refresh.NewManager(exchanger, store, refresh.WithMinBusy(0))
	require.NoError(t, err)

	recorder := &busyRecorder{}
	manager.Subscribe(recorder.listen)

	_, err = manager.Refresh(context.Background(), "refresh-456")
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)

	require.Zero(t, backend.Len())
	_, err = store.Load()
	require.ErrorIs(t, err, apperrors.ErrNoToken)

	// The busy window brackets the failure path too.
	require.Equal(t, []bool{true, false}, recorder.snapshot())
}

func TestRefreshBusyWindowFloor(t *testing.T) {
	store, _ := newSeededStore(t)
	exchanger := &fakeExchanger{delay: 10 * time.Millisecond, tokens: freshTokens()}
	manager, err := refresh.NewManager(exchanger, store, refresh.WithMinBusy(150*time.Millisecond))
	require.NoError(t, err)

	recorder := &busyRecorder{}
	manager.Subscribe(recorder.listen)

	_, err = manager.Refresh(context.Background(), "refresh-456")
	require.NoError(t, err)

	require.Equal(t, []bool{true, false}, recorder.snapshot())
	require.GreaterOrEqual(t, recorder.window(), 150*time.Millisecond)
}

func TestRefreshSlowExchangeIsNotPadded(t *testing.T) {
	store, _ := newSeededStore(t)
	exchanger := &fakeExchanger{delay: 120 * time.Millisecond, tokens: freshTokens()}
	manager, err := refresh.NewManager(exchanger, store, refresh.WithMinBusy(10*time.Millisecond))
	require.NoError(t, err)

	recorder := &busyRecorder{}
	manager.Subscribe(recorder.listen)

	_, err = manager.Refresh(context.Background(), "refresh-456")
	require.NoError(t, err)

	window := recorder.window()
	require.GreaterOrEqual(t, window, 120*time.Millisecond)
	require.Less(t, window, 400*time.Millisecond)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	store, _ := newSeededStore(t)
	exchanger := &fakeExchanger{tokens: freshTokens()}
	manager, err := refresh.NewManager(exchanger, store, refresh.WithMinBusy(0))
	require.NoError(t, err)

	recorder := &busyRecorder{}
	unsubscribe := manager.Subscribe(recorder.listen)
	unsubscribe()

	_, err = manager.Refresh(context.Background(), "refresh-456")
	require.NoError(t, err)
	require.Empty(t, recorder.snapshot())
}

func TestNewManagerValidation(t *testing.T) {
	store, _ := newSeededStore(t)
	exchanger := &fakeExchanger{}

	_, err := refresh.NewManager(nil, store)
	require.Error(t, err)

	_, err = refresh.NewManager(exchanger, nil)
	require.Error(t, err)
}
