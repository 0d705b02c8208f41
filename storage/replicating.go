package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// NamedCAS associates a CAS with a backend name used in errors and reports.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// Replicating archives every payload on all backends at once and reads
// from them in order.
//
// Copies is the number of backends that must accept a payload for Put to
// succeed. Zero requires every backend.
type Replicating struct {
	Backends []NamedCAS
	Copies   int
}

var _ CAS = Replicating{}

// PutAll writes payload under id on every backend and returns the names of
// the backends holding it. The error lists each backend that refused.
func (r Replicating) PutAll(id cid.Cid, payload []byte) ([]string, error) {
	if len(r.Backends) == 0 {
		return nil, ErrNoBackends
	}
	if err := Check(id, payload); err != nil {
		return nil, err
	}

	errs := make([]error, len(r.Backends))
	var g errgroup.Group
	for i, b := range r.Backends {
		g.Go(func() error {
			if b.CAS == nil {
				errs[i] = fmt.Errorf("storage: backend %s: %w", b.Name, ErrNoBackends)
				return nil
			}
			if err := b.CAS.Put(id, payload); err != nil {
				errs[i] = fmt.Errorf("storage: put to %s: %w", b.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var stored []string
	var failed error
	for i, b := range r.Backends {
		if errs[i] != nil {
			failed = multierr.Append(failed, errs[i])
			continue
		}
		stored = append(stored, b.Name)
	}
	if len(stored) < r.required() {
		return stored, failed
	}
	return stored, nil
}

func (r Replicating) required() int {
	if r.Copies <= 0 || r.Copies > len(r.Backends) {
		return len(r.Backends)
	}
	return r.Copies
}

func (r Replicating) Put(id cid.Cid, payload []byte) error {
	_, err := r.PutAll(id, payload)
	return err
}

// Get returns the first copy that still matches id. A backend holding
// corrupt bytes is skipped in favour of the next one.
func (r Replicating) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	var failed error
	for _, b := range r.Backends {
		if b.CAS == nil {
			continue
		}
		out, err := b.CAS.Get(id)
		if IsNotFound(err) {
			continue
		}
		if err == nil {
			err = Check(id, out)
		}
		if err != nil {
			failed = multierr.Append(failed, fmt.Errorf("storage: get from %s: %w", b.Name, err))
			continue
		}
		return out, nil
	}
	if failed != nil {
		return nil, failed
	}
	return nil, ErrNotFound
}

func (r Replicating) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}
