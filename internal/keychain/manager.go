// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores recordgate secrets in the OS credential store: the
// database DSN written by `recordgate connect` and the bearer token used for a
// remote gateway. Non-secret settings live in the config package.
package keychain

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "recordgate"

// Key names a stored secret.
type Key string

// Keys used for storing secrets in the OS keychain.
const (
	KeyDSN         Key = "db_dsn"
	KeyRemoteToken Key = "remote_token"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("secret not found in keychain")

var (
	globalManager *Manager
	globalMu      sync.Mutex
)

// store is the minimal set of operations both backends provide.
type store interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Manager provides thread-safe access to the OS keychain.
type Manager struct {
	mu    sync.RWMutex
	store store
}

// NewManager opens the platform credential store. On macOS the `security`
// command is preferred over the keyring library.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if backend, err := newSecurityBackend(); err == nil {
			return &Manager{store: backend}, nil
		}
	}
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewWithRing(ring), nil
}

// NewWithRing wraps an already opened keyring.
func NewWithRing(ring keyring.Keyring) *Manager {
	return &Manager{store: ringStore{ring}}
}

// GetManager returns the shared Manager, creating it on first use. A failed
// initialization is retried on the next call.
func GetManager() (*Manager, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return m, nil
}

func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on " + runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

// Save stores value under key, replacing any previous value.
func (m *Manager) Save(key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Set(string(key), value)
}

// Load returns the value stored under key. It returns ErrNotFound when the
// key is missing or empty.
func (m *Manager) Load(key Key) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, err := m.store.Get(string(key))
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Delete removes key. Missing keys are not an error.
func (m *Manager) Delete(key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(string(key))
}

// ClearAll removes every recordgate secret.
func (m *Manager) ClearAll() error {
	var errs []error
	for _, k := range []Key{KeyDSN, KeyRemoteToken} {
		if err := m.Delete(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ringStore adapts keyring.Keyring to store.
type ringStore struct{ ring keyring.Keyring }

func (r ringStore) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

func (r ringStore) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringStore) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
