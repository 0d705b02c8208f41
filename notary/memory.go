package notary

import (
	"context"
	"sync"
	"time"

	"xdao.co/graphwire/reference"
)

type depositKey struct{ sender, identifier string }

// Memory is an in-process Store. A later deposit under the same pair
// replaces the earlier one.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	deposits map[depositKey]reference.Deposit
}

// NewMemory returns an empty store. Deposits expire ttl after they are made;
// zero keeps them until revoked.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, deposits: make(map[depositKey]reference.Deposit)}
}

func (m *Memory) Deposit(ctx context.Context, d reference.Deposit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(d); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deposits[depositKey{d.Sender, d.Identifier}] = stamp(d, m.ttl, m.now())
	return nil
}

func (m *Memory) Fetch(ctx context.Context, sender, identifier string) (reference.Deposit, error) {
	if err := ctx.Err(); err != nil {
		return reference.Deposit{}, err
	}
	k := depositKey{sender, identifier}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deposits[k]
	if !ok {
		return reference.Deposit{}, ErrNotFound
	}
	if expired(d, m.now()) {
		delete(m.deposits, k)
		return reference.Deposit{}, ErrExpired
	}
	d.EncryptedKey = append([]byte(nil), d.EncryptedKey...)
	return d, nil
}

func (m *Memory) Revoke(ctx context.Context, sender, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := depositKey{sender, identifier}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deposits[k]; !ok {
		return ErrNotFound
	}
	delete(m.deposits, k)
	return nil
}

// Len reports the number of deposits held, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deposits)
}
