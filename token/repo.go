package token

import "errors"

// ErrKeyNotFound is returned by a Backend when no value exists for a key.
var ErrKeyNotFound = errors.New("key not found")

// Backend is the scoped key-value storage the Store persists records into.
// Implementations must return ErrKeyNotFound (possibly wrapped) for missing
// keys so the Store can distinguish absence from IO failure.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
