// Package testkit holds shared tests and fakes for storage.CAS
// implementations.
package testkit

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/storage"
)

// NewCAS returns a fresh, empty CAS isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

// Key returns the reference hash payload would carry under alg.
func Key(t testing.TB, payload []byte, alg cidutil.Algorithm) cid.Cid {
	t.Helper()
	id, err := cidutil.CIDv1Raw(payload, alg)
	if err != nil {
		t.Fatalf("CIDv1Raw(%s): %v", alg, err)
	}
	return id
}

// RunCASConformance checks the storage.CAS contract against newCAS.
func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	for _, alg := range []cidutil.Algorithm{cidutil.SHA2_256, cidutil.SHA2_512, cidutil.SHA3_256} {
		t.Run("PutGet/"+string(alg), func(t *testing.T) {
			cas := newCAS(t)
			want := []byte("<urn:uuid:1> a <http://smart-api.io/ontology/1.0/smartapi#Reference> .\n")
			id := Key(t, want, alg)

			if err := cas.Put(id, want); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, err := cas.Get(id)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("Get bytes mismatch")
			}
		})
	}

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("sealed:AAAA")
		id := Key(t, b, cidutil.SHA2_256)
		if err := cas.Put(id, b); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := cas.Put(id, b); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
	})

	t.Run("RejectWrongPayload", func(t *testing.T) {
		cas := newCAS(t)
		id := Key(t, []byte("declared"), cidutil.SHA2_512)
		if err := cas.Put(id, []byte("delivered")); !errors.Is(err, storage.ErrCIDMismatch) {
			t.Fatalf("Put: got %v want ErrCIDMismatch", err)
		}
		if cas.Has(id) {
			t.Fatalf("mismatched payload was stored")
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("never written")
		id := Key(t, b, cidutil.SHA3_256)

		if cas.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := cas.Get(id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
		if err := cas.Put(id, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("LargePayload", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte(strings.Repeat("<urn:a> <urn:p> \"x\" .\n", 4096))
		id := Key(t, b, cidutil.SHA2_256)
		if err := cas.Put(id, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, b) {
			t.Fatalf("Get bytes mismatch for %d-byte payload", len(b))
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if cas.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
		if err := cas.Put(undef, []byte("x")); err == nil {
			t.Fatalf("Put should fail for undefined CID")
		}
	})
}

// Memory is a map-backed CAS for tests. Gets counts successful reads and
// Fail, when set, is returned by every Put.
type Memory struct {
	mu   sync.Mutex
	m    map[cid.Cid][]byte
	Gets int
	Fail error
}

var _ storage.CAS = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{m: make(map[cid.Cid][]byte)} }

func (c *Memory) Put(id cid.Cid, payload []byte) error {
	if err := storage.Check(id, payload); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	if c.m == nil {
		c.m = make(map[cid.Cid][]byte)
	}
	c.m[id] = append([]byte(nil), payload...)
	return nil
}

func (c *Memory) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c.Gets++
	return append([]byte(nil), b...), nil
}

// Corrupt replaces the bytes stored under id without checking them.
func (c *Memory) Corrupt(id cid.Cid, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = append([]byte(nil), payload...)
}

func (c *Memory) Has(id cid.Cid) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[id]
	return ok
}
