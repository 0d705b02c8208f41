package notary

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/graphwire/reference"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// clock is a settable time source shared by a store under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func sample(id string) reference.Deposit {
	return reference.Deposit{
		Sender:       "urn:sender:alice",
		Identifier:   id,
		Hash:         "bafkreihash" + id,
		EncryptedKey: []byte{1, 2, 3, 4, 5},
		Signature:    "sig-" + id,
	}
}

const ttl = time.Hour

func memoryStore(t *testing.T, c *clock) Store {
	m := NewMemory(ttl)
	m.now = c.now
	return m
}

func sqliteStore(t *testing.T, c *clock) Store {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "notary.db"), ttl)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s.now = c.now
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func grpcStore(t *testing.T, c *clock) Store {
	return dialBufconn(t, memoryStore(t, c))
}

func dialBufconn(t *testing.T, backing Store) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterNotaryServer(srv, &Server{Store: backing})
	go func() {
		_ = srv.Serve(lis)
	}()

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", 2*time.Second, grpc.WithContextDialer(dialer))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
	})
	return client
}

func TestStores(t *testing.T) {
	stores := map[string]func(*testing.T, *clock) Store{
		"memory": memoryStore,
		"sqlite": sqliteStore,
		"grpc":   grpcStore,
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("RoundTrip", func(t *testing.T) {
				c := newClock()
				s := open(t, c)
				ctx := context.Background()
				d := sample("r1")
				if err := s.Deposit(ctx, d); err != nil {
					t.Fatalf("Deposit: %v", err)
				}
				got, err := s.Fetch(ctx, d.Sender, d.Identifier)
				if err != nil {
					t.Fatalf("Fetch: %v", err)
				}
				want := d
				want.ExpiresAt = c.now().Add(ttl)
				if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
					t.Fatalf("deposit mismatch (-want +got):\n%s", diff)
				}
			})

			t.Run("Replace", func(t *testing.T) {
				s := open(t, newClock())
				ctx := context.Background()
				d := sample("r1")
				if err := s.Deposit(ctx, d); err != nil {
					t.Fatalf("Deposit: %v", err)
				}
				d.Hash = "bafkreinewer"
				if err := s.Deposit(ctx, d); err != nil {
					t.Fatalf("Deposit again: %v", err)
				}
				got, err := s.Fetch(ctx, d.Sender, d.Identifier)
				if err != nil {
					t.Fatalf("Fetch: %v", err)
				}
				if got.Hash != "bafkreinewer" {
					t.Fatalf("hash = %q, want the later deposit", got.Hash)
				}
			})

			t.Run("NotFound", func(t *testing.T) {
				s := open(t, newClock())
				ctx := context.Background()
				if _, err := s.Fetch(ctx, "urn:sender:alice", "nope"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("Fetch err = %v, want ErrNotFound", err)
				}
				if err := s.Revoke(ctx, "urn:sender:alice", "nope"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("Revoke err = %v, want ErrNotFound", err)
				}
				if err := s.Deposit(ctx, sample("r1")); err != nil {
					t.Fatalf("Deposit: %v", err)
				}
				if _, err := s.Fetch(ctx, "urn:sender:bob", "r1"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("Fetch by another sender err = %v, want ErrNotFound", err)
				}
			})

			t.Run("Expiry", func(t *testing.T) {
				c := newClock()
				s := open(t, c)
				ctx := context.Background()
				if err := s.Deposit(ctx, sample("r1")); err != nil {
					t.Fatalf("Deposit: %v", err)
				}
				c.advance(ttl - time.Second)
				if _, err := s.Fetch(ctx, "urn:sender:alice", "r1"); err != nil {
					t.Fatalf("Fetch before expiry: %v", err)
				}
				c.advance(time.Second)
				if _, err := s.Fetch(ctx, "urn:sender:alice", "r1"); !errors.Is(err, ErrExpired) {
					t.Fatalf("Fetch at expiry err = %v, want ErrExpired", err)
				}
				if _, err := s.Fetch(ctx, "urn:sender:alice", "r1"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("Fetch after purge err = %v, want ErrNotFound", err)
				}
			})

			t.Run("ExplicitExpiry", func(t *testing.T) {
				c := newClock()
				s := open(t, c)
				ctx := context.Background()
				d := sample("r1")
				d.ExpiresAt = c.now().Add(time.Minute)
				if err := s.Deposit(ctx, d); err != nil {
					t.Fatalf("Deposit: %v", err)
				}
				c.advance(2 * time.Minute)
				if _, err := s.Fetch(ctx, d.Sender, d.Identifier); !errors.Is(err, ErrExpired) {
					t.Fatalf("Fetch err = %v, want ErrExpired", err)
				}
			})

			t.Run("Revoke", func(t *testing.T) {
				s := open(t, newClock())
				ctx := context.Background()
				for _, id := range []string{"r1", "r2"} {
					if err := s.Deposit(ctx, sample(id)); err != nil {
						t.Fatalf("Deposit %s: %v", id, err)
					}
				}
				if err := s.Revoke(ctx, "urn:sender:alice", "r1"); err != nil {
					t.Fatalf("Revoke: %v", err)
				}
				if _, err := s.Fetch(ctx, "urn:sender:alice", "r1"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("Fetch revoked err = %v, want ErrNotFound", err)
				}
				if _, err := s.Fetch(ctx, "urn:sender:alice", "r2"); err != nil {
					t.Fatalf("Fetch other deposit: %v", err)
				}
			})

			t.Run("Invalid", func(t *testing.T) {
				s := open(t, newClock())
				ctx := context.Background()
				for name, mutate := range map[string]func(*reference.Deposit){
					"sender":     func(d *reference.Deposit) { d.Sender = "" },
					"identifier": func(d *reference.Deposit) { d.Identifier = "" },
					"hash":       func(d *reference.Deposit) { d.Hash = "" },
					"key":        func(d *reference.Deposit) { d.EncryptedKey = nil },
				} {
					d := sample("r1")
					mutate(&d)
					if err := s.Deposit(ctx, d); !errors.Is(err, ErrInvalid) {
						t.Fatalf("%s: err = %v, want ErrInvalid", name, err)
					}
				}
			})
		})
	}
}

func TestMemory_NoTTLKeepsDeposits(t *testing.T) {
	c := newClock()
	m := NewMemory(0)
	m.now = c.now
	ctx := context.Background()
	if err := m.Deposit(ctx, sample("r1")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	c.advance(365 * 24 * time.Hour)
	got, err := m.Fetch(ctx, "urn:sender:alice", "r1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !got.ExpiresAt.IsZero() {
		t.Fatalf("ExpiresAt = %v, want zero", got.ExpiresAt)
	}
}

func TestMemory_FetchCopiesKey(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	d := sample("r1")
	if err := m.Deposit(ctx, d); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	d.EncryptedKey[0] = 9
	got, _ := m.Fetch(ctx, d.Sender, d.Identifier)
	got.EncryptedKey[1] = 9
	again, _ := m.Fetch(ctx, d.Sender, d.Identifier)
	if again.EncryptedKey[0] != 1 || again.EncryptedKey[1] != 2 {
		t.Fatalf("stored key was aliased: %v", again.EncryptedKey)
	}
}

func TestSQLite_PurgeAndReopen(t *testing.T) {
	c := newClock()
	path := filepath.Join(t.TempDir(), "nested", "notary.db")
	s, err := OpenSQLite(path, ttl)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s.now = c.now
	ctx := context.Background()
	short := sample("short")
	short.ExpiresAt = c.now().Add(time.Minute)
	for _, d := range []reference.Deposit{short, sample("long")} {
		if err := s.Deposit(ctx, d); err != nil {
			t.Fatalf("Deposit: %v", err)
		}
	}
	c.advance(time.Hour / 2)
	n, err := s.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("Purge removed %d, want 1", n)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenSQLite(path, ttl)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	s.now = c.now
	if _, err := s.Fetch(ctx, "urn:sender:alice", "long"); err != nil {
		t.Fatalf("Fetch after reopen: %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	client := dialBufconn(t, &blockingStore{})
	client.Timeout = 50 * time.Millisecond
	_, err := client.Fetch(context.Background(), "urn:sender:alice", "r1")
	if err == nil {
		t.Fatalf("Fetch: expected a deadline error")
	}
}

// blockingStore waits for the caller to give up.
type blockingStore struct{ Memory }

func (b *blockingStore) Fetch(ctx context.Context, _, _ string) (reference.Deposit, error) {
	<-ctx.Done()
	return reference.Deposit{}, ctx.Err()
}

func TestClient_MissingStore(t *testing.T) {
	client := dialBufconn(t, nil)
	if err := client.Deposit(context.Background(), sample("r1")); err == nil {
		t.Fatalf("Deposit: expected an error from a server without a store")
	}
}
