package token

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
)

// Storage keys, one per record field. The namespaced layout survives from
// the first release, so changing it would orphan existing installs.
const (
	keyAccessToken  = "twitch_access_token"
	keyRefreshToken = "twitch_refresh_token"
	keyTokenType    = "twitch_token_type"
	keyScope        = "twitch_scope"
	keyExpiresIn    = "twitch_expires_in"
	keyStoredAt     = "twitch_stored_at"
	keyUsername     = "twitch_username"
)

var storageKeys = []string{
	keyAccessToken,
	keyRefreshToken,
	keyTokenType,
	keyScope,
	keyExpiresIn,
	keyStoredAt,
	keyUsername,
}

// Store persists the single token record in a key-value Backend. It is the
// only writer of these keys; the orchestrator serializes all calls.
type Store struct {
	backend Backend
	nowTime func() time.Time
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// NewStore creates a token store over the given backend.
func NewStore(backend Backend, options ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, errors.New("[NewStore] backend is required")
	}
	store := &Store{
		backend: backend,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(store)
	}
	return store, nil
}

// Save persists the record. The record's StoredAt is stamped with the
// storage-write time; expiry arithmetic is always relative to that stamp.
func (s *Store) Save(record *Record) error {
	if record == nil || !record.Complete() {
		return errors.New("[Store.Save] record is incomplete")
	}

	record.StoredAt = s.nowTime()

	scopeJSON, err := json.Marshal(record.Scope)
	if err != nil {
		return errors.Wrap(err, "[Store.Save] marshal scope")
	}

	fields := map[string]string{
		keyAccessToken:  record.AccessToken,
		keyRefreshToken: record.RefreshToken,
		keyTokenType:    record.TokenType,
		keyScope:        string(scopeJSON),
		keyExpiresIn:    strconv.Itoa(record.ExpiresIn),
		keyStoredAt:     strconv.FormatInt(record.StoredAt.UnixMilli(), 10),
		keyUsername:     record.Login,
	}
	for key, value := range fields {
		if err := s.backend.Set(key, value); err != nil {
			return errors.Wrapf(err, "[Store.Save] set %s", key)
		}
	}
	return nil
}

// Load retrieves the persisted record. Missing keys, corrupt scope lists and
// non-numeric expiry values all normalize to ErrNoToken; no parse error
// escapes the store. Expiry is not an error: callers decide what to do with
// an expired record via Record.Expired.
func (s *Store) Load() (*Record, error) {
	accessToken, err := s.get(keyAccessToken)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.get(keyRefreshToken)
	if err != nil {
		return nil, err
	}
	tokenType, err := s.get(keyTokenType)
	if err != nil {
		return nil, err
	}
	scopeJSON, err := s.get(keyScope)
	if err != nil {
		return nil, err
	}
	expiresInStr, err := s.get(keyExpiresIn)
	if err != nil {
		return nil, err
	}
	storedAtStr, err := s.get(keyStoredAt)
	if err != nil {
		return nil, err
	}
	login, err := s.get(keyUsername)
	if err != nil {
		return nil, err
	}

	var scope []string
	if err := json.Unmarshal([]byte(scopeJSON), &scope); err != nil || scope == nil {
		return nil, apperrors.ErrNoToken
	}

	expiresIn, err := strconv.Atoi(expiresInStr)
	if err != nil || expiresIn < 0 {
		return nil, apperrors.ErrNoToken
	}

	storedAtMilli, err := strconv.ParseInt(storedAtStr, 10, 64)
	if err != nil {
		return nil, apperrors.ErrNoToken
	}

	record := &Record{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Scope:        scope,
		TokenType:    tokenType,
		ExpiresIn:    expiresIn,
		StoredAt:     time.UnixMilli(storedAtMilli),
		Login:        login,
	}
	if !record.Complete() {
		return nil, apperrors.ErrNoToken
	}
	return record, nil
}

// Clear removes every stored field. Missing keys are not an error, so a
// partial previous write still ends up fully absent.
func (s *Store) Clear() error {
	for _, key := range storageKeys {
		if err := s.backend.Delete(key); err != nil && !errors.Is(err, ErrKeyNotFound) {
			return errors.Wrapf(err, "[Store.Clear] delete %s", key)
		}
	}
	return nil
}

func (s *Store) get(key string) (string, error) {
	value, err := s.backend.Get(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", apperrors.ErrNoToken
		}
		return "", errors.Wrapf(err, "[Store.Load] get %s", key)
	}
	if value == "" {
		return "", apperrors.ErrNoToken
	}
	return value, nil
}
