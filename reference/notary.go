package reference

import (
	"context"
	"time"
)

// Deposit is what a notary keeps for one notarized reference.
type Deposit struct {
	Sender       string
	Identifier   string
	Hash         string
	EncryptedKey []byte
	Signature    string
	// ExpiresAt is set by the store; the zero value means no expiry.
	ExpiresAt time.Time
}

// Notary stores wrapped payload keys on behalf of senders.
type Notary interface {
	Deposit(ctx context.Context, d Deposit) error
	Fetch(ctx context.Context, sender, identifier string) (Deposit, error)
}

// KeyFetcher returns the public key registered for an identity.
type KeyFetcher interface {
	Fetch(ctx context.Context, identifier string) (string, error)
}
