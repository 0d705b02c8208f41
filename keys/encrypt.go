package keys

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// EncryptionKey is an x25519 key pair used to unwrap payload keys.
type EncryptionKey struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateEncryptionKey draws a new pair from r, or crypto/rand when r is
// nil.
func GenerateEncryptionKey(r io.Reader) (*EncryptionKey, error) {
	if r == nil {
		r = rand.Reader
	}
	var k EncryptionKey
	if _, err := io.ReadFull(r, k.Private[:]); err != nil {
		return nil, err
	}
	return encryptionKeyFromPrivate(k.Private)
}

// EncryptionKeyFromSeed rebuilds a pair from its 32-byte private scalar.
func EncryptionKeyFromSeed(seed []byte) (*EncryptionKey, error) {
	if len(seed) != curve25519.ScalarSize {
		return nil, fmt.Errorf("x25519 seed must be %d bytes, got %d", curve25519.ScalarSize, len(seed))
	}
	var priv [32]byte
	copy(priv[:], seed)
	return encryptionKeyFromPrivate(priv)
}

func encryptionKeyFromPrivate(priv [32]byte) (*EncryptionKey, error) {
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	k := &EncryptionKey{Private: priv}
	copy(k.Public[:], pub)
	return k, nil
}

// PublicKeyString returns "x25519:<base64>".
func (k *EncryptionKey) PublicKeyString() string {
	return PublicKeyString(AlgX25519, k.Public[:])
}

// ParseEncryptionKey reads an "x25519:<base64>" public key.
func ParseEncryptionKey(s string) (*[32]byte, error) {
	alg, raw, _, err := ParsePublicKey(s)
	if err != nil {
		return nil, err
	}
	if alg != AlgX25519 {
		return nil, fmt.Errorf("expected an x25519 key, got %s", alg)
	}
	var out [32]byte
	copy(out[:], raw)
	return &out, nil
}
