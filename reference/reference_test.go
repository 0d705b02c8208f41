package reference

import (
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/curve25519"

	"xdao.co/graphwire/cidutil"
	"xdao.co/graphwire/rdf"
)

func TestPartsTakeExactlyOnce(t *testing.T) {
	p := NewParts()
	if err := p.Put("urn:a", "payload-a"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := p.Put("urn:b", "payload-b"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := p.Put("urn:a", "again"); !errors.Is(err, ErrPartExists) {
		t.Fatalf("duplicate Put: got %v", err)
	}

	got, err := p.Take("urn:a")
	if err != nil || got != "payload-a" {
		t.Fatalf("Take: %q, %v", got, err)
	}
	if _, err := p.Take("urn:a"); !errors.Is(err, ErrPartConsumed) {
		t.Fatalf("second Take: got %v", err)
	}
	if _, err := p.Take("urn:zzz"); !errors.Is(err, ErrPartNotFound) {
		t.Fatalf("unknown Take: got %v", err)
	}
	if err := p.Put("urn:a", "reuse"); !errors.Is(err, ErrPartExists) {
		t.Fatalf("Put after Take: got %v", err)
	}
	rest := p.Remaining()
	if len(rest) != 1 || rest[0].ID != "urn:b" || p.Len() != 1 {
		t.Fatalf("unexpected remaining parts %+v", rest)
	}
}

func TestPartsFromIsSorted(t *testing.T) {
	p := PartsFrom(map[string]string{"c": "3", "a": "1", "b": "2"})
	var ids []string
	for _, part := range p.Remaining() {
		ids = append(ids, part.ID)
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestSymmetricSealRoundTrip(t *testing.T) {
	key, err := NewSessionKey(nil)
	if err != nil {
		t.Fatalf("NewSessionKey: %v", err)
	}
	sealed, err := Seal(key, []byte("secret turtle"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	plain, err := Open(key, sealed)
	if err != nil || string(plain) != "secret turtle" {
		t.Fatalf("Open: %q, %v", plain, err)
	}

	other, _ := NewSessionKey(nil)
	if _, err := Open(other, sealed); rdf.RuleID(err) != "GW-REF-214" {
		t.Fatalf("wrong key: got %v", err)
	}
	if _, err := Open(key, "not base64!"); !rdf.IsKind(err, rdf.KindCrypto) {
		t.Fatalf("garbage: got %v", err)
	}
}

type x25519Pair struct{ Public, Private [32]byte }

func newPair(t *testing.T) *x25519Pair {
	t.Helper()
	var k x25519Pair
	if _, err := rand.Read(k.Private[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	pub, err := curve25519.X25519(k.Private[:], curve25519.Basepoint)
	if err != nil {
		t.Fatalf("X25519: %v", err)
	}
	copy(k.Public[:], pub)
	return &k
}

func TestSealForRecipient(t *testing.T) {
	recipient := newPair(t)
	payload, err := SealFor(&recipient.Public, []byte("for your eyes"))
	if err != nil {
		t.Fatalf("SealFor: %v", err)
	}
	if strings.Count(payload, "\n") != 1 {
		t.Fatalf("expected wrapped key line and body line: %q", payload)
	}
	plain, err := OpenFrom(&recipient.Public, &recipient.Private, payload)
	if err != nil || string(plain) != "for your eyes" {
		t.Fatalf("OpenFrom: %q, %v", plain, err)
	}

	stranger := newPair(t)
	if _, err := OpenFrom(&stranger.Public, &stranger.Private, payload); rdf.RuleID(err) != "GW-REF-216" {
		t.Fatalf("stranger: got %v", err)
	}
}

func TestHashVerification(t *testing.T) {
	for _, alg := range []cidutil.Algorithm{cidutil.SHA2_256, cidutil.SHA2_512, cidutil.SHA3_256} {
		h, err := Hash("payload", alg)
		if err != nil {
			t.Fatalf("%s: Hash: %v", alg, err)
		}
		if err := VerifyHash(h, "payload"); err != nil {
			t.Fatalf("%s: VerifyHash: %v", alg, err)
		}
		if err := VerifyHash(h, "payload!"); rdf.RuleID(err) != "GW-REF-201" {
			t.Fatalf("%s: tampered payload: got %v", alg, err)
		}
	}
	if err := VerifyHash("not-a-cid", "x"); rdf.RuleID(err) != "GW-REF-202" {
		t.Fatalf("invalid hash: got %v", err)
	}
}

func TestDescriptorValidate(t *testing.T) {
	cases := []struct {
		d    Descriptor
		rule string
	}{
		{Descriptor{}, "GW-REF-001"},
		{Descriptor{Identifier: "x", Notary: "n"}, "GW-REF-002"},
		{Descriptor{Identifier: "x", KeyType: KeyNotarized}, "GW-REF-003"},
		{Descriptor{Identifier: "x", KeyType: KeyAsymmetric, SessionKey: "k"}, "GW-REF-004"},
		{Descriptor{Identifier: "x", KeyType: KeySymmetric, SessionKey: "k"}, ""},
	}
	for _, c := range cases {
		if got := rdf.RuleID(c.d.Validate()); got != c.rule {
			t.Fatalf("%+v: got %q, want %q", c.d, got, c.rule)
		}
	}
	for _, k := range []KeyType{KeySymmetric, KeyAsymmetric, KeyNotarized} {
		back, ok := KeyTypeFromIRI(k.IRI())
		if !ok || back != k {
			t.Fatalf("%s did not survive its IRI", k)
		}
	}
}
