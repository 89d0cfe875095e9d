package llm

import (
	"errors"
	"sync"

	serrors "station/internal/errors"
	"station/internal/logging"
)

// ErrNoKeys is returned when the key store holds no usable key.
var ErrNoKeys = errors.New("no model API key is configured")

// KeyStore persists the configured API keys.
type KeyStore interface {
	Keys() ([]string, error)
	Remove(key string) error
}

// KeyRing selects the API key for the next request. Quota errors rotate to
// the next key; invalid keys are removed from the store.
type KeyRing struct {
	store  KeyStore
	logger logging.Logger

	mu      sync.Mutex
	current string
}

func NewKeyRing(store KeyStore, logger logging.Logger) *KeyRing {
	return &KeyRing{store: store, logger: logging.Component(logger, "keyring")}
}

// Current returns the active key. An empty store is fatal.
func (r *KeyRing) Current() (string, error) {
	keys, err := r.keys()
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if indexOf(keys, r.current) < 0 {
		r.current = keys[0]
	}
	return r.current, nil
}

// Rotate switches to the key after the current one, wrapping around.
func (r *KeyRing) Rotate() (string, error) {
	keys, err := r.keys()
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := (indexOf(keys, r.current) + 1) % len(keys)
	if len(keys) > 1 {
		r.logger.Info("rotating to API key %d of %d", next+1, len(keys))
	}
	r.current = keys[next]
	return r.current, nil
}

// Drop removes key from the store.
func (r *KeyRing) Drop(key string) error {
	r.mu.Lock()
	if r.current == key {
		r.current = ""
	}
	r.mu.Unlock()
	r.logger.Warn("removing invalid API key %s", mask(key))
	return r.store.Remove(key)
}

func (r *KeyRing) keys() ([]string, error) {
	keys, err := r.store.Keys()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, serrors.NewFatalError(ErrNoKeys, "no model API key is configured, add one to the key store")
	}
	return keys, nil
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key && key != "" {
			return i
		}
	}
	return -1
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "…" + key[len(key)-4:]
}
