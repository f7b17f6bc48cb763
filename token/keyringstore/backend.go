// Package keyringstore provides a token.Backend on top of the operating
// system keyring, falling back to an encrypted file store on platforms
// without one.
package keyringstore

import (
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"

	"github.com/legumeabi/twitch-cw-command/token"
)

const serviceName = "twitch-cw-command"

// Backend stores token fields as individual keyring items.
type Backend struct {
	ring keyring.Keyring
}

var _ token.Backend = (*Backend)(nil)

// New opens the system keyring. dataFolder is used for the file fallback on
// platforms without a native secret service.
func New(dataFolder string) (*Backend, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dataFolder, "keys"),
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName),
		LibSecretCollectionName:  serviceName,
		KWalletAppID:             serviceName,
		KWalletFolder:            serviceName,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[keyringstore.New] keyring.Open")
	}
	return &Backend{ring: ring}, nil
}

func (b *Backend) Get(key string) (string, error) {
	item, err := b.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", token.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "[Backend.Get] %s", key)
	}
	return string(item.Data), nil
}

func (b *Backend) Set(key, value string) error {
	err := b.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
	return errors.Wrapf(err, "[Backend.Set] %s", key)
}

func (b *Backend) Delete(key string) error {
	err := b.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return token.ErrKeyNotFound
	}
	return errors.Wrapf(err, "[Backend.Delete] %s", key)
}
