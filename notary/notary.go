// Package notary keeps the wrapped payload keys of notarized references.
//
// A sender deposits the session key of a reference, wrapped for the
// recipient, under (sender, identifier). The recipient fetches it with the
// same pair and unwraps it with its own key. Deposits may expire and may be
// revoked by the operator.
package notary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xdao.co/graphwire/reference"
)

var (
	ErrNotFound = errors.New("notary: deposit not found")
	ErrExpired  = errors.New("notary: deposit expired")
	ErrInvalid  = errors.New("notary: invalid deposit")
)

// Store is a Notary whose deposits can be withdrawn.
type Store interface {
	reference.Notary
	Revoke(ctx context.Context, sender, identifier string) error
}

func validate(d reference.Deposit) error {
	switch {
	case d.Sender == "":
		return fmt.Errorf("%w: sender is empty", ErrInvalid)
	case d.Identifier == "":
		return fmt.Errorf("%w: identifier is empty", ErrInvalid)
	case d.Hash == "":
		return fmt.Errorf("%w: hash is empty", ErrInvalid)
	case len(d.EncryptedKey) == 0:
		return fmt.Errorf("%w: encrypted key is empty", ErrInvalid)
	}
	return nil
}

// stamp sets ExpiresAt from ttl unless the depositor chose one.
func stamp(d reference.Deposit, ttl time.Duration, now time.Time) reference.Deposit {
	if d.ExpiresAt.IsZero() && ttl > 0 {
		d.ExpiresAt = now.Add(ttl)
	}
	d.EncryptedKey = append([]byte(nil), d.EncryptedKey...)
	return d
}

func expired(d reference.Deposit, now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}
