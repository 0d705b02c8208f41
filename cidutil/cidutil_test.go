package cidutil

import (
	"errors"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{
		"":         SHA2_256,
		"sha256":   SHA2_256,
		"SHA2-512": SHA2_512,
		"sha512":   SHA2_512,
		"sha3-256": SHA3_256,
	}
	for in, want := range cases {
		got, err := ParseAlgorithm(in)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseAlgorithm(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseAlgorithm("md5"); err == nil {
		t.Fatalf("expected error for md5")
	}
}

func TestVerify(t *testing.T) {
	data := []byte("payload")
	for _, alg := range []Algorithm{SHA2_256, SHA2_512, SHA3_256} {
		c, err := CIDv1Raw(data, alg)
		if err != nil {
			t.Fatalf("%s: %v", alg, err)
		}
		if err := Verify(c.String(), data); err != nil {
			t.Fatalf("%s: verify: %v", alg, err)
		}
		if err := Verify(c.String(), []byte("other")); !errors.Is(err, ErrMismatch) {
			t.Fatalf("%s: expected ErrMismatch, got %v", alg, err)
		}
	}
	if err := Verify("not-a-cid", data); err == nil {
		t.Fatalf("expected error for invalid cid")
	}
}

func TestDecodeNamesAlgorithm(t *testing.T) {
	for _, alg := range []Algorithm{SHA2_256, SHA2_512, SHA3_256} {
		c, err := CIDv1Raw([]byte("x"), alg)
		if err != nil {
			t.Fatal(err)
		}
		got, gotAlg, err := Decode(c.String())
		if err != nil {
			t.Fatalf("%s: Decode: %v", alg, err)
		}
		if got != c || gotAlg != alg {
			t.Fatalf("%s: Decode = %s/%s", alg, got, gotAlg)
		}
	}
	md5, err := multihash.Encode(make([]byte, 16), multihash.MD5)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Decode(cid.NewCidV1(cid.Raw, md5).String()); err == nil {
		t.Fatalf("md5 cid accepted")
	}
	sum, _ := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	if _, _, err := Decode(cid.NewCidV1(cid.DagCBOR, sum).String()); err == nil {
		t.Fatalf("dag-cbor cid accepted")
	}
	if _, _, err := Decode("garbage"); err == nil {
		t.Fatalf("garbage accepted")
	}
}
