// Package keyservice publishes the public keys of identities.
//
// Anyone may fetch a key. Uploading or revoking one requires credentials
// of a known user, and only the uploader may revoke.
package keyservice

import (
	"context"
	"errors"

	"xdao.co/graphwire/reference"
)

var (
	ErrNotFound     = errors.New("keyservice: key not found")
	ErrExists       = errors.New("keyservice: key already registered")
	ErrUnauthorized = errors.New("keyservice: unauthorized")
	ErrInvalid      = errors.New("keyservice: invalid key")
)

// Credentials identify the user performing an upload or revoke.
type Credentials struct {
	User     string
	Password string
}

// Service is a key service. Fetch satisfies reference.KeyFetcher.
type Service interface {
	reference.KeyFetcher
	Upload(ctx context.Context, publicKey, identifier string, creds Credentials) error
	Revoke(ctx context.Context, identifier string, creds Credentials) error
}
