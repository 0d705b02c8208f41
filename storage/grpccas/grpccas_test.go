package grpccas

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/storage"
	"xdao.co/graphwire/storage/localfs"
	"xdao.co/graphwire/storage/testkit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func serve(t *testing.T, backing storage.CAS) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterArchiveServer(srv, &Server{CAS: backing})
	go func() {
		_ = srv.Serve(lis)
	}()

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", DialOptions{
		Timeout: 2 * time.Second,
		Extra:   []grpc.DialOption{grpc.WithContextDialer(dialer)},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
	})
	return client
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		cas, err := localfs.New(t.TempDir())
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		return serve(t, cas)
	})
}

func TestGRPCCAS_ErrorMapping(t *testing.T) {
	client := serve(t, testkit.NewMemory())
	id := testkit.Key(t, []byte("absent"), cidutil.SHA2_256)
	if _, err := client.Get(id); err != storage.ErrNotFound {
		t.Fatalf("Get: got %v want ErrNotFound", err)
	}

	missing := serve(t, nil)
	if err := missing.Put(id, []byte("absent")); err == nil {
		t.Fatalf("Put against a server without an archive should fail")
	}
}

func TestGRPCCAS_ServerRejectsForeignHash(t *testing.T) {
	backing := testkit.NewMemory()
	client := serve(t, backing)
	id := testkit.Key(t, []byte("declared"), cidutil.SHA2_512)

	_, err := client.client.Store(context.Background(), &structpb.Struct{Fields: map[string]*structpb.Value{
		"hash":    structpb.NewStringValue(id.String()),
		"payload": structpb.NewStringValue("ZGVsaXZlcmVk"),
	}})
	if status.Code(err) != codes.DataLoss {
		t.Fatalf("Store with wrong payload: got %v want DataLoss", err)
	}
	if !errors.Is(mapRPC(err), storage.ErrCIDMismatch) {
		t.Fatalf("mapRPC(%v) did not yield ErrCIDMismatch", err)
	}

	_, err = client.client.Fetch(context.Background(), wrapperspb.String("not-a-hash"))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Fetch with bad hash: got %v want InvalidArgument", err)
	}
	if backing.Has(id) {
		t.Fatalf("server stored a payload under the wrong hash")
	}
}
