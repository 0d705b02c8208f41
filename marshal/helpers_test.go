package marshal

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/graphwire/rdf"
	"xdao.co/graphwire/reference"
	"xdao.co/graphwire/variant"
)

const (
	ns         = "http://example.org/test#"
	tagRecord  = ns + "Record"
	predCount  = ns + "count"
	predNext   = ns + "next"
	predValues = ns + "values"
	predLeft   = ns + "left"
	predRight  = ns + "right"
)

// record is a domain type with one scalar and one object field.
type record struct {
	Obj
	Count int64
	Next  Object
}

func newRecord(id, name string, count int64) *record {
	r := &record{Count: count}
	r.ID = id
	r.Name = name
	return r
}

func (r *record) SerializeFields(w *Writer) error {
	if err := w.Add(predCount, variant.Int(r.Count)); err != nil {
		return err
	}
	return w.AddObject(predNext, r.Next)
}

func (r *record) ParseStatement(rd *Reader, st rdf.Statement) (bool, error) {
	switch st.P.Value {
	case predCount:
		n, err := st.Int()
		if err != nil {
			return true, err
		}
		r.Count = n
		return true, nil
	case predNext:
		obj, err := rd.Object(st)
		if err != nil {
			return true, err
		}
		r.Next = obj
		return true, nil
	}
	return false, nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(tagRecord, func() Object { return &record{} }))
	return r
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithRegistry(testRegistry(t))}, opts...)...)
	require.NoError(t, err)
	return e
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// fakeNotary keeps deposits in memory.
type fakeNotary struct {
	mu       sync.Mutex
	deposits map[string]reference.Deposit
	fetches  int
}

func newFakeNotary() *fakeNotary {
	return &fakeNotary{deposits: make(map[string]reference.Deposit)}
}

func (n *fakeNotary) Deposit(_ context.Context, d reference.Deposit) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deposits[d.Sender+"|"+d.Identifier] = d
	return nil
}

func (n *fakeNotary) Fetch(_ context.Context, sender, identifier string) (reference.Deposit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fetches++
	d, ok := n.deposits[sender+"|"+identifier]
	if !ok {
		return reference.Deposit{}, fmt.Errorf("no deposit for %s/%s", sender, identifier)
	}
	return d, nil
}

type staticKeys map[string]string

func (k staticKeys) Fetch(_ context.Context, id string) (string, error) {
	pub, ok := k[id]
	if !ok {
		return "", fmt.Errorf("unknown identity %s", id)
	}
	return pub, nil
}
