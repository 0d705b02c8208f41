package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/graphwire/codec"
	"xdao.co/graphwire/envelope"
	"xdao.co/graphwire/keys"
	"xdao.co/graphwire/marshal"
	"xdao.co/graphwire/variant"
)

const doc = `@prefix ex: <http://example.org/> .
ex:a a ex:Thing ;
  ex:name "widget" ;
  ex:size 3 .
`

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestConvertTurtleToNTriples(t *testing.T) {
	code, out, errOut := runCLI(t, doc, "convert", "--from", "turtle", "--to", "n-triples")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "<http://example.org/a> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/Thing> .")
	require.Contains(t, out, `"widget"`)

	// The output parses back to the same subject.
	code, out, errOut = runCLI(t, out, "inspect", "--format", "n-triples")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "subject: http://example.org/a")
	require.Contains(t, out, "clean")
}

func TestConvertFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ttl")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	code, out, errOut := runCLI(t, "", "convert", "--to", "json-ld", path)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "http://example.org/a")

	code, _, _ = runCLI(t, "", "convert", filepath.Join(t.TempDir(), "absent.ttl"))
	require.Equal(t, 1, code)
}

func TestInspectReportsDiagnostics(t *testing.T) {
	bad := doc + "ex:b ex:name \"unterminated .\n"
	code, out, errOut := runCLI(t, bad, "inspect")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "diagnostic: GW-")
	require.NotContains(t, out, "clean")

	code, _, _ = runCLI(t, bad, "inspect", "--strict")
	require.Equal(t, 1, code)
}

func TestUsageErrors(t *testing.T) {
	code, _, errOut := runCLI(t, doc, "convert", "--to", "yaml")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "unknown format")

	code, _, _ = runCLI(t, "", "convert", "--no-such-flag")
	require.Equal(t, 2, code)

	code, _, _ = runCLI(t, "", "key", "init")
	require.Equal(t, 2, code)
}

func TestKeyLifecycle(t *testing.T) {
	dir := t.TempDir()
	seed := strings.Repeat("ab", 32)
	code, out, errOut := runCLI(t, "", "--keys-dir", dir, "key", "init", "--name", "alice", "--seed-hex", seed)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Created root key: ")

	code, out, errOut = runCLI(t, "", "--keys-dir", dir, "key", "export", "--name", "alice")
	require.Equal(t, 0, code, errOut)
	rootKey := strings.TrimSpace(out)
	require.NotEmpty(t, rootKey)

	code, _, errOut = runCLI(t, "", "--keys-dir", dir, "key", "derive", "--from", "alice", "--role", "author")
	require.Equal(t, 0, code, errOut)
	code, _, errOut = runCLI(t, "", "--keys-dir", dir, "key", "encryption", "--name", "alice")
	require.Equal(t, 0, code, errOut)

	code, out, errOut = runCLI(t, "", "--keys-dir", dir, "key", "export", "--name", "alice", "--role", "author")
	require.Equal(t, 0, code, errOut)
	require.NotEqual(t, rootKey, strings.TrimSpace(out))

	code, out, errOut = runCLI(t, "", "--keys-dir", dir, "key", "list")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "alice\n")
	require.Contains(t, out, "  - author (ed25519)\n")
	require.Contains(t, out, "  - (encryption)\n")

	code, _, _ = runCLI(t, "", "--keys-dir", dir, "key", "export", "--name", "alice", "--role", "author", "--encryption")
	require.Equal(t, 2, code)
}

func TestKeyDeriveDilithiumRole(t *testing.T) {
	dir := t.TempDir()
	code, _, errOut := runCLI(t, "", "--keys-dir", dir, "key", "init", "--name", "bob", "--seed-hex", strings.Repeat("cd", 32))
	require.Equal(t, 0, code, errOut)
	code, out, errOut := runCLI(t, "", "--keys-dir", dir, "key", "derive", "--from", "bob", "--role", "notary", "--alg", "dilithium3")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Created notary role key: ")

	code, out, errOut = runCLI(t, "", "--keys-dir", dir, "key", "list")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "  - notary (dilithium3)\n")

	code, _, _ = runCLI(t, "", "--keys-dir", dir, "key", "derive", "--from", "bob", "--role", "x", "--alg", "rsa")
	require.Equal(t, 2, code)
}

func TestInspectDecryptsWithStoredIdentity(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	code, _, errOut := runCLI(t, "", "--keys-dir", dir, "key", "init", "--name", "carol", "--seed-hex", strings.Repeat("ef", 32))
	require.Equal(t, 0, code, errOut)
	code, _, errOut = runCLI(t, "", "--keys-dir", dir, "key", "encryption", "--name", "carol")
	require.Equal(t, 0, code, errOut)

	id, err := (&keys.KeyStore{Directory: dir}).Open("carol")
	require.NoError(t, err)
	ek, err := id.EncryptionKey()
	require.NoError(t, err)

	const ns = "http://example.org/"
	secret := &marshal.Obj{ID: "urn:secret", Types: []string{ns + "Note"}}
	secret.Set(ns+"text", variant.String("for carol"))
	secret.EncryptFor(&ek.Public)
	holder := &marshal.Obj{ID: "urn:holder", Types: []string{ns + "Holder"}}
	holder.Set(ns+"note", variant.Object(secret))

	e, err := marshal.New()
	require.NoError(t, err)
	text, parts, err := e.Serialize(ctx, holder)
	require.NoError(t, err)
	env := envelope.New()
	env.AddMain(text, codec.ContentType(e.Format()))
	for _, p := range parts.Remaining() {
		require.NoError(t, env.Add(p.ID, p.Payload, codec.ContentType(e.Format())))
	}
	msg, err := env.Message()
	require.NoError(t, err)

	code, out, errOut := runCLI(t, msg, "--keys-dir", dir, "inspect", "--message", "--as", "carol")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "decrypted: urn:secret "+ns+"Note\n")

	code, out, errOut = runCLI(t, msg, "--keys-dir", dir, "inspect", "--message")
	require.Equal(t, 0, code, errOut)
	require.NotContains(t, out, "decrypted:")

	code, _, _ = runCLI(t, msg, "--keys-dir", dir, "inspect", "--message", "--as", "nobody")
	require.NotEqual(t, 0, code)
}

func TestKeyPublishNeedsAddress(t *testing.T) {
	code, _, errOut := runCLI(t, "", "--keys-dir", t.TempDir(), "key", "publish", "--name", "alice", "--id", "urn:alice")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "keyservice.address")
}

func TestEnvelopeSplit(t *testing.T) {
	env := envelope.New()
	env.AddMain("<urn:a> <urn:p> <urn:r> .\n", "application/n-triples")
	require.NoError(t, env.Add("urn:r", "<urn:r> <urn:q> \"v\" .\n", "application/n-triples"))
	msg, err := env.Message()
	require.NoError(t, err)

	code, out, errOut := runCLI(t, msg, "envelope", "split")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Main\tapplication/n-triples")
	require.Contains(t, out, "urn:r\t")

	dir := t.TempDir()
	code, _, errOut = runCLI(t, msg, "envelope", "split", "--out", dir)
	require.Equal(t, 0, code, errOut)
	b, err := os.ReadFile(filepath.Join(dir, "urn:r"))
	require.NoError(t, err)
	require.Equal(t, "<urn:r> <urn:q> \"v\" .\n", string(b))
}
