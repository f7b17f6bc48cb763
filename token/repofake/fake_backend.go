package repofake

import (
	"sync"

	"github.com/legumeabi/twitch-cw-command/token"
)

// FakeBackend is an in-memory token.Backend for tests.
type FakeBackend struct {
	mu     sync.RWMutex
	values map[string]string

	// GetErr, SetErr and DeleteErr, when set, are returned by the
	// corresponding operation to simulate backend failures.
	GetErr    error
	SetErr    error
	DeleteErr error
}

var _ token.Backend = (*FakeBackend)(nil)

// NewFakeBackend creates an empty in-memory backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{values: make(map[string]string)}
}

func (f *FakeBackend) Get(key string) (string, error) {
	if f.GetErr != nil {
		return "", f.GetErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	value, ok := f.values[key]
	if !ok {
		return "", token.ErrKeyNotFound
	}
	return value, nil
}

func (f *FakeBackend) Set(key, value string) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *FakeBackend) Delete(key string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return token.ErrKeyNotFound
	}
	delete(f.values, key)
	return nil
}

// Put seeds a raw value, bypassing the store, for corrupt-data tests.
func (f *FakeBackend) Put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}

// Drop removes a raw value, bypassing the store.
func (f *FakeBackend) Drop(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
}

// Len reports how many keys are stored.
func (f *FakeBackend) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.values)
}
