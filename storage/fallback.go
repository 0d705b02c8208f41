package storage

import (
	"github.com/ipfs/go-cid"
)

// Fallback reads from its backends in order and writes only to the first.
//
// A payload found in a later backend is copied into the first, so a local
// archive fills up from a remote one as references are hydrated.
type Fallback struct {
	Backends []CAS
	// NoCopy disables copying later hits into the first backend.
	NoCopy bool
}

var _ CAS = Fallback{}

func (f Fallback) Put(id cid.Cid, payload []byte) error {
	if len(f.Backends) == 0 {
		return ErrNoBackends
	}
	return f.Backends[0].Put(id, payload)
}

func (f Fallback) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	for i, cas := range f.Backends {
		b, err := cas.Get(id)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if i > 0 && !f.NoCopy {
			// A failed copy only costs a later refetch.
			_ = f.Backends[0].Put(id, b)
		}
		return b, nil
	}
	return nil, ErrNotFound
}

func (f Fallback) Has(id cid.Cid) bool {
	for _, cas := range f.Backends {
		if cas.Has(id) {
			return true
		}
	}
	return false
}
