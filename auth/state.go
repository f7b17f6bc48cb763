package auth

import (
	"sync"

	"github.com/google/uuid"

	"github.com/legumeabi/twitch-cw-command/twitchid"
)

// State is the authentication phase the service is in.
type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateAwaitingUserCode State = "awaiting_user_code"
	StatePolling          State = "polling"
	StateAuthenticated    State = "authenticated"
	StateRefreshing       State = "refreshing"
)

// EventKind discriminates the notification payloads the service emits.
type EventKind string

const (
	// EventStateChanged fires on every state transition.
	EventStateChanged EventKind = "state_changed"

	// EventUserCodeReady fires when a device session has been obtained and
	// the user code must be shown to the user.
	EventUserCodeReady EventKind = "user_code_ready"

	// EventAuthError fires when a flow attempt fails; the service has
	// already fallen back to StateUnauthenticated.
	EventAuthError EventKind = "auth_error"
)

// Event is a typed state-change notification. UI and the chat-connection
// trigger react to these instead of polling the service.
type Event struct {
	Kind    EventKind
	State   State
	Session *twitchid.DeviceSession // set for EventUserCodeReady
	Login   string                  // set when entering StateAuthenticated
	Err     error                   // set for EventAuthError
}

// Listener observes service events. Listeners run on the goroutine that
// produced the transition and must not block.
type Listener func(Event)

// notifier is the subscription registry behind Service.Subscribe.
type notifier struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]Listener
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[uuid.UUID]Listener)}
}

func (n *notifier) subscribe(listener Listener) func() {
	id := uuid.New()
	n.mu.Lock()
	n.listeners[id] = listener
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

func (n *notifier) emit(events ...Event) {
	n.mu.RLock()
	snapshot := make([]Listener, 0, len(n.listeners))
	for _, listener := range n.listeners {
		snapshot = append(snapshot, listener)
	}
	n.mu.RUnlock()
	for _, event := range events {
		for _, listener := range snapshot {
			listener(event)
		}
	}
}
