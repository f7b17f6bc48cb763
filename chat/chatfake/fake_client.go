package chatfake

import (
	"context"
	"sync"

	"github.com/legumeabi/twitch-cw-command/chat"
)

// SaidMessage is one Say call recorded by the fake.
type SaidMessage struct {
	Channel string
	Text    string
}

// FakeClient is an in-memory chat.Client for tests. It records connections
// and posted messages and lets tests inject incoming chat lines.
type FakeClient struct {
	mu          sync.Mutex
	handlers    []chat.Handler
	connected   bool
	Credentials chat.Credentials
	Connects    int
	Disconnects int
	Said        []SaidMessage

	// ConnectErr and SayErr, when set, are returned by the corresponding
	// operation.
	ConnectErr error
	SayErr     error
}

var _ chat.Client = (*FakeClient)(nil)

// NewFakeClient creates a disconnected fake.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (f *FakeClient) Connect(_ context.Context, creds chat.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.connected = true
	f.Credentials = creds
	f.Connects++
	return nil
}

func (f *FakeClient) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.Disconnects++
	return nil
}

func (f *FakeClient) Say(channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SayErr != nil {
		return f.SayErr
	}
	f.Said = append(f.Said, SaidMessage{Channel: channel, Text: text})
	return nil
}

func (f *FakeClient) OnMessage(handler chat.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
}

// Receive injects an incoming message into every registered handler.
func (f *FakeClient) Receive(message chat.Message) {
	f.mu.Lock()
	snapshot := make([]chat.Handler, len(f.handlers))
	copy(snapshot, f.handlers)
	f.mu.Unlock()
	for _, handler := range snapshot {
		handler(message)
	}
}

// ConnectCount reports how many times Connect succeeded.
func (f *FakeClient) ConnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connects
}

// DisconnectCount reports how many times Disconnect was called.
func (f *FakeClient) DisconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Disconnects
}

// ConnectedAs returns the credentials of the last successful connection.
func (f *FakeClient) ConnectedAs() chat.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Credentials
}

// Connected reports whether the fake currently holds a connection.
func (f *FakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SaidTexts returns the texts posted so far, in order.
func (f *FakeClient) SaidTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.Said))
	for _, said := range f.Said {
		texts = append(texts, said.Text)
	}
	return texts
}
