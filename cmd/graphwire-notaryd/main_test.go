package main

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/config"
	"xdao.co/graphwire/keys"
	"xdao.co/graphwire/keyservice"
	"xdao.co/graphwire/notary"
	"xdao.co/graphwire/reference"
	"xdao.co/graphwire/storage/grpccas"
)

func TestServe(t *testing.T) {
	cfg := config.Default()
	cfg.Notary.Driver = "sqlite"
	cfg.Notary.DSN = filepath.Join(t.TempDir(), "notary.db")
	cfg.KeyService.Users = map[string]string{"alice": "pw"}
	cfg.Archive.Dir = t.TempDir()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, lis, zaptest.NewLogger(t)) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Errorf("serve did not stop")
		}
	})

	rpcCtx, rpcCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer rpcCancel()

	nc, err := notary.Dial(addr, time.Second)
	require.NoError(t, err)
	defer nc.Close()
	d := reference.Deposit{Sender: "urn:a", Identifier: "urn:r", Hash: "h", EncryptedKey: []byte{1}}
	require.NoError(t, nc.Deposit(rpcCtx, d))
	got, err := nc.Fetch(rpcCtx, "urn:a", "urn:r")
	require.NoError(t, err)
	require.Equal(t, "h", got.Hash)
	require.False(t, got.ExpiresAt.IsZero(), "sqlite store should stamp the configured ttl")

	kc, err := keyservice.Dial(addr, time.Second)
	require.NoError(t, err)
	defer kc.Close()
	signer, err := keys.NewEd25519Signer(make([]byte, 32))
	require.NoError(t, err)
	require.NoError(t, kc.Upload(rpcCtx, signer.PublicKey(), "urn:a", keyservice.Credentials{User: "alice", Password: "pw"}))
	err = kc.Upload(rpcCtx, signer.PublicKey(), "urn:b", keyservice.Credentials{User: "alice", Password: "nope"})
	require.True(t, errors.Is(err, keyservice.ErrUnauthorized), "got %v", err)

	cc, err := grpccas.Dial(addr, grpccas.DialOptions{Timeout: time.Second})
	require.NoError(t, err)
	defer cc.Close()
	id, err := cidutil.CIDv1Raw([]byte("sealed"), cidutil.SHA2_512)
	require.NoError(t, err)
	require.NoError(t, cc.Put(id, []byte("sealed")))
	require.True(t, cc.Has(id))
}

func TestOpenNotary(t *testing.T) {
	s, closeFn, err := openNotary(config.Notary{Driver: "memory"})
	require.NoError(t, err)
	closeFn()
	require.IsType(t, &notary.Memory{}, s)

	s, closeFn, err = openNotary(config.Notary{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "x", "n.db")})
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &notary.SQLite{}, s)
}
