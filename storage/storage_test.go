package storage_test

import (
	"errors"
	"strings"
	"testing"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/storage"
	"xdao.co/graphwire/storage/testkit"
)

func TestMemory_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS { return testkit.NewMemory() })
}

func TestFallback_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.Fallback{Backends: []storage.CAS{testkit.NewMemory(), testkit.NewMemory()}}
	})
}

func TestReplicating_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.Replicating{Backends: []storage.NamedCAS{
			{Name: "a", CAS: testkit.NewMemory()},
			{Name: "b", CAS: testkit.NewMemory()},
		}}
	})
}

func TestKey(t *testing.T) {
	want := testkit.Key(t, []byte("payload"), cidutil.SHA2_512)
	got, err := storage.Key(want.String())
	if err != nil || got != want {
		t.Fatalf("Key = %s, %v", got, err)
	}
	if _, err := storage.Key("not-a-hash"); !errors.Is(err, storage.ErrInvalidCID) {
		t.Fatalf("Key: got %v want ErrInvalidCID", err)
	}
}

func TestFallback_CopiesRemoteHits(t *testing.T) {
	local, remote := testkit.NewMemory(), testkit.NewMemory()
	id := testkit.Key(t, []byte("payload"), cidutil.SHA3_256)
	if err := remote.Put(id, []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	f := storage.Fallback{Backends: []storage.CAS{local, remote}}
	if _, err := f.Get(id); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !local.Has(id) {
		t.Fatalf("remote hit was not copied into the first backend")
	}

	f.NoCopy = true
	other := testkit.Key(t, []byte("other"), cidutil.SHA2_256)
	_ = remote.Put(other, []byte("other"))
	if _, err := f.Get(other); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if local.Has(other) {
		t.Fatalf("NoCopy still copied")
	}
}

func TestFallback_NoBackends(t *testing.T) {
	var f storage.Fallback
	id := testkit.Key(t, []byte("x"), cidutil.SHA2_256)
	if err := f.Put(id, []byte("x")); !errors.Is(err, storage.ErrNoBackends) {
		t.Fatalf("Put: got %v want ErrNoBackends", err)
	}
	if _, err := f.Get(id); !storage.IsNotFound(err) {
		t.Fatalf("Get: got %v want ErrNotFound", err)
	}
}

func TestReplicating_NamesRefusingBackends(t *testing.T) {
	down := testkit.NewMemory()
	down.Fail = errors.New("disk full")
	r := storage.Replicating{Backends: []storage.NamedCAS{
		{Name: "local", CAS: testkit.NewMemory()},
		{Name: "remote", CAS: down},
	}}
	payload := []byte("payload")
	id := testkit.Key(t, payload, cidutil.SHA2_256)

	stored, err := r.PutAll(id, payload)
	if err == nil || !strings.Contains(err.Error(), "put to remote") {
		t.Fatalf("PutAll: got %v, want the remote backend named", err)
	}
	if len(stored) != 1 || stored[0] != "local" {
		t.Fatalf("stored on %v, want [local]", stored)
	}

	r.Copies = 1
	if stored, err := r.PutAll(id, payload); err != nil || len(stored) != 1 {
		t.Fatalf("PutAll with one copy required: %v %v", stored, err)
	}
}

func TestReplicating_RejectsMismatchBeforeWriting(t *testing.T) {
	a := testkit.NewMemory()
	r := storage.Replicating{Backends: []storage.NamedCAS{{Name: "a", CAS: a}}}
	id := testkit.Key(t, []byte("declared"), cidutil.SHA2_256)
	if _, err := r.PutAll(id, []byte("delivered")); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("PutAll: got %v want ErrCIDMismatch", err)
	}
	if a.Has(id) {
		t.Fatalf("mismatched payload reached a backend")
	}
}

func TestReplicating_SkipsCorruptCopy(t *testing.T) {
	bad, good := testkit.NewMemory(), testkit.NewMemory()
	payload := []byte("payload")
	id := testkit.Key(t, payload, cidutil.SHA2_512)
	r := storage.Replicating{Backends: []storage.NamedCAS{{Name: "bad", CAS: bad}, {Name: "good", CAS: good}}}
	if err := r.Put(id, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	bad.Corrupt(id, []byte("rot"))

	got, err := r.Get(id)
	if err != nil || string(got) != "payload" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	good.Corrupt(id, []byte("rot"))
	if _, err := r.Get(id); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("Get with no intact copy: got %v want ErrCIDMismatch", err)
	}
}
