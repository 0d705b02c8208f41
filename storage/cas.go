// Package storage archives transported reference payloads by content.
//
// The marshal engine writes every sealed payload it produces under the CID
// recorded in the reference's hash code and, when a parse finds no part for
// a reference, reads it back by that CID. Any hash algorithm cidutil
// supports may key an entry.
package storage

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/graphwire/cidutil"
)

// CAS is a content-addressable store keyed by reference hash.
//
// Put stores payload under id after checking that payload hashes to id with
// the function named inside it. Put is idempotent and stored bytes never
// change. Get returns ErrNotFound when id is absent.
type CAS interface {
	Put(id cid.Cid, payload []byte) error
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Key resolves a reference hash code into the CID it is archived under.
func Key(hash string) (cid.Cid, error) {
	c, _, err := cidutil.Decode(hash)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	return c, nil
}

// Check reports whether payload belongs under id.
func Check(id cid.Cid, payload []byte) error {
	if !id.Defined() {
		return ErrInvalidCID
	}
	if _, err := cidutil.AlgorithmOf(id); err != nil {
		return ErrInvalidCID
	}
	if err := cidutil.Verify(id.String(), payload); err != nil {
		if errors.Is(err, cidutil.ErrMismatch) {
			return ErrCIDMismatch
		}
		return ErrInvalidCID
	}
	return nil
}
