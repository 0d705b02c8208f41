package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"xdao.co/graphwire/reference"
)

// Every key an identity uses is expanded from its root seed with
// HKDF-SHA256. The info string binds the purpose and label, so a role
// signer, the encryption key and each reference session key are unrelated.
const kdfSalt = "graphwire-keys-v1"

const (
	purposeRole       = "role"
	purposeEncryption = "encryption"
	purposeSession    = "session"
)

// Ed25519PublicKeyFromSeed returns the "ed25519:<base64>" key string for a
// seed.
func Ed25519PublicKeyFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	return PublicKeyString(AlgEd25519, priv.Public().(ed25519.PublicKey))
}

func kdf(root []byte, purpose, label string) (io.Reader, error) {
	if len(root) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	return hkdf.New(sha256.New, root, []byte(kdfSalt), []byte(purpose+"\x00"+label)), nil
}

func expand(root []byte, purpose, label string, size int) ([]byte, error) {
	r, err := kdf(root, purpose, label)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("kdf: %w", err)
	}
	return out, nil
}

// DeriveRoleSeed returns the ed25519 seed of role under root.
func DeriveRoleSeed(root []byte, role string) ([]byte, error) {
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	return expand(root, purposeRole, role, ed25519.SeedSize)
}

// DeriveRoleSigner rebuilds the signer of role. alg is ed25519 or
// dilithium3; dilithium3 keys hash with sha3-256.
func DeriveRoleSigner(root []byte, role, alg string) (Signer, error) {
	switch alg {
	case "", AlgEd25519:
		seed, err := DeriveRoleSeed(root, role)
		if err != nil {
			return nil, err
		}
		return NewEd25519Signer(seed)
	case AlgDilithium3:
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		r, err := kdf(root, purposeRole, alg+":"+role)
		if err != nil {
			return nil, err
		}
		return GenerateDilithium3Signer(r, "sha3-256")
	}
	return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
}

// DeriveEncryptionKey returns the x25519 pair that receives asymmetric and
// notarized references addressed to root's identity.
func DeriveEncryptionKey(root []byte) (*EncryptionKey, error) {
	seed, err := expand(root, purposeEncryption, AlgX25519, 32)
	if err != nil {
		return nil, err
	}
	return EncryptionKeyFromSeed(seed)
}

// DeriveSessionKey returns the symmetric key for the reference identified by
// ref. The same root and identifier always give the same key.
func DeriveSessionKey(root []byte, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("session key needs a reference identifier")
	}
	return expand(root, purposeSession, ref, reference.KeySize)
}
