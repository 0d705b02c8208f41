package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/storage"
	"xdao.co/graphwire/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		cas, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return cas
	})
}

func TestLocalFS_RequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("New(\"\") should fail")
	}
}

func TestLocalFS_DetectsCorruption(t *testing.T) {
	cas, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	orig := []byte("sealed payload")
	id := testkit.Key(t, orig, cidutil.SHA3_256)
	if err := cas.Put(id, orig); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	path := cas.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("tampered"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := cas.Get(id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get: got %v want %v", err, storage.ErrCIDMismatch)
	}
	// Put must not repair the file in place.
	if err := cas.Put(id, orig); err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}
}

func TestLocalFS_FansOutOnHashTail(t *testing.T) {
	cas, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	a := testkit.Key(t, []byte("a"), cidutil.SHA2_256)
	b := testkit.Key(t, []byte("b"), cidutil.SHA2_256)
	if filepath.Dir(cas.pathFor(a)) == filepath.Dir(cas.pathFor(b)) {
		t.Fatalf("distinct payloads share a fan-out directory: %s", cas.pathFor(a))
	}
}
