// Package cidutil computes and checks the content identifiers used for
// reference payload hashes and archive keys.
package cidutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Algorithm names a multihash function accepted in configuration.
type Algorithm string

const (
	SHA2_256 Algorithm = "sha2-256"
	SHA2_512 Algorithm = "sha2-512"
	SHA3_256 Algorithm = "sha3-256"
)

// ErrMismatch reports that data does not hash to the expected CID.
var ErrMismatch = errors.New("cidutil: content does not match cid")

// ParseAlgorithm resolves an algorithm name. The empty string selects
// sha2-256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "", "sha256":
		return SHA2_256, nil
	case SHA2_256, SHA2_512, SHA3_256:
		return a, nil
	case "sha512":
		return SHA2_512, nil
	}
	return "", fmt.Errorf("unsupported hash algorithm %q", name)
}

// Code returns the multihash code for a.
func (a Algorithm) Code() (uint64, error) {
	switch a {
	case SHA2_256, "":
		return multihash.SHA2_256, nil
	case SHA2_512:
		return multihash.SHA2_512, nil
	case SHA3_256:
		return multihash.SHA3_256, nil
	}
	return 0, fmt.Errorf("unsupported hash algorithm %q", string(a))
}

// CIDv1Raw returns a CIDv1 with the "raw" multicodec over data.
func CIDv1Raw(data []byte, alg Algorithm) (cid.Cid, error) {
	code, err := alg.Code()
	if err != nil {
		return cid.Undef, err
	}
	sum, err := multihash.Sum(data, code, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Verify recomputes the hash of data with the function named inside want.
func Verify(want string, data []byte) error {
	c, err := cid.Decode(want)
	if err != nil {
		return fmt.Errorf("cidutil: invalid cid %q: %w", want, err)
	}
	prefix := c.Prefix()
	got, err := prefix.Sum(data)
	if err != nil {
		return err
	}
	if !got.Equals(c) {
		return ErrMismatch
	}
	return nil
}

// Decode parses a reference hash into the CID archives key on. The CID must
// be a CIDv1 over the raw codec with one of the supported algorithms.
func Decode(s string) (cid.Cid, Algorithm, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, "", fmt.Errorf("cidutil: invalid cid %q: %w", s, err)
	}
	alg, err := AlgorithmOf(c)
	if err != nil {
		return cid.Undef, "", err
	}
	return c, alg, nil
}

// AlgorithmOf names the hash function inside c.
func AlgorithmOf(c cid.Cid) (Algorithm, error) {
	p := c.Prefix()
	if p.Version != 1 || p.Codec != cid.Raw {
		return "", fmt.Errorf("cidutil: %s is not a raw CIDv1", c)
	}
	switch p.MhType {
	case multihash.SHA2_256:
		return SHA2_256, nil
	case multihash.SHA2_512:
		return SHA2_512, nil
	case multihash.SHA3_256:
		return SHA3_256, nil
	}
	return "", fmt.Errorf("cidutil: unsupported multihash 0x%x in %s", p.MhType, c)
}
