package keyservice

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"xdao.co/graphwire/keys"
)

type entry struct {
	publicKey string
	owner     string
}

// Memory is an in-process Service.
type Memory struct {
	users map[string]string

	mu   sync.RWMutex
	keys map[string]entry
}

// NewMemory returns a service that accepts the given user/password pairs.
func NewMemory(users map[string]string) *Memory {
	u := make(map[string]string, len(users))
	for name, pw := range users {
		u[name] = pw
	}
	return &Memory{users: u, keys: make(map[string]entry)}
}

func (m *Memory) Fetch(ctx context.Context, identifier string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.keys[identifier]
	if !ok {
		return "", ErrNotFound
	}
	return e.publicKey, nil
}

// Upload registers publicKey for identifier. Signing keys and encryption
// keys are both accepted.
func (m *Memory) Upload(ctx context.Context, publicKey, identifier string, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.authenticate(creds); err != nil {
		return err
	}
	if identifier == "" {
		return fmt.Errorf("%w: identifier is empty", ErrInvalid)
	}
	if err := checkKey(publicKey); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[identifier]; ok {
		return ErrExists
	}
	m.keys[identifier] = entry{publicKey: publicKey, owner: creds.User}
	return nil
}

func (m *Memory) Revoke(ctx context.Context, identifier string, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.authenticate(creds); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.keys[identifier]
	if !ok {
		return ErrNotFound
	}
	if e.owner != creds.User {
		return fmt.Errorf("%w: %s did not upload %s", ErrUnauthorized, creds.User, identifier)
	}
	delete(m.keys, identifier)
	return nil
}

func (m *Memory) authenticate(c Credentials) error {
	want, ok := m.users[c.User]
	if !ok || c.User == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(c.Password)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func checkKey(publicKey string) error {
	if _, _, _, err := keys.ParsePublicKey(publicKey); err == nil {
		return nil
	}
	if _, err := keys.ParseEncryptionKey(publicKey); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %q is neither a signing nor an encryption key", ErrInvalid, publicKey)
}
