package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
	AlgX25519     = "x25519"
)

// ErrBadSignature reports a signature that does not verify.
var ErrBadSignature = errors.New("keys: signature does not verify")

// Signer produces detached signatures.
type Signer interface {
	// Sign returns a base64 signature over message.
	Sign(message []byte) (string, error)
	// PublicKey returns the verifying key string.
	PublicKey() string
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// Ed25519Signer signs sha256(message).
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Sign(message []byte) (string, error) {
	return SignEd25519SHA256(message, s.key), nil
}

func (s *Ed25519Signer) PublicKey() string {
	return PublicKeyString(AlgEd25519, s.key.Public().(ed25519.PublicKey))
}

// SignEd25519SHA256 returns a base64 signature over sha256(message).
func SignEd25519SHA256(message []byte, privateKey ed25519.PrivateKey) string {
	digest := sha256.Sum256(message)
	sig := ed25519.Sign(privateKey, digest[:])
	return base64.StdEncoding.EncodeToString(sig)
}

// Dilithium3Signer signs hash(message) with a post-quantum key.
type Dilithium3Signer struct {
	pub     *mode3.PublicKey
	priv    *mode3.PrivateKey
	hashAlg string
}

// GenerateDilithium3Signer creates a fresh key. hashAlg must be one of
// sha256, sha512, sha3-256; the verifier reads it from the key string.
func GenerateDilithium3Signer(rand io.Reader, hashAlg string) (*Dilithium3Signer, error) {
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{pub: pub, priv: priv, hashAlg: hashAlg}, nil
}

func (s *Dilithium3Signer) Sign(message []byte) (string, error) {
	return SignDilithium3(message, s.hashAlg, s.priv)
}

// PublicKey encodes as "dilithium3:<base64>;<hashAlg>".
func (s *Dilithium3Signer) PublicKey() string {
	return PublicKeyString(AlgDilithium3, s.pub.Bytes()) + ";" + s.hashAlg
}

// SignDilithium3 returns a base64 dilithium3 signature over hash(message).
// hashAlg must be one of: sha256, sha512, sha3-256.
func SignDilithium3(message []byte, hashAlg string, privateKey *mode3.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("missing private key")
	}
	digest, err := digestFor(hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// PublicKeyString formats raw key bytes as "<alg>:<base64>".
func PublicKeyString(alg string, raw []byte) string {
	return alg + ":" + base64.StdEncoding.EncodeToString(raw)
}

// ParsePublicKey splits a key string into its algorithm, raw bytes and, for
// dilithium3, the digest algorithm.
func ParsePublicKey(s string) (alg string, raw []byte, hashAlg string, err error) {
	alg, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return "", nil, "", fmt.Errorf("key %q has no algorithm prefix", s)
	}
	if alg == AlgDilithium3 {
		rest, hashAlg, _ = strings.Cut(rest, ";")
		if hashAlg == "" {
			hashAlg = "sha3-256"
		}
	}
	raw, err = base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return "", nil, "", fmt.Errorf("key %q: %w", s, err)
	}
	switch alg {
	case AlgEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return "", nil, "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
	case AlgDilithium3:
		if len(raw) != mode3.PublicKeySize {
			return "", nil, "", fmt.Errorf("dilithium3 public key must be %d bytes, got %d", mode3.PublicKeySize, len(raw))
		}
	case AlgX25519:
		if len(raw) != 32 {
			return "", nil, "", fmt.Errorf("x25519 public key must be 32 bytes, got %d", len(raw))
		}
	default:
		return "", nil, "", fmt.Errorf("unsupported key algorithm %q", alg)
	}
	return alg, raw, hashAlg, nil
}

// Verify checks a base64 signature produced by a Signer whose PublicKey is
// publicKey.
func Verify(publicKey string, message []byte, signature string) error {
	alg, raw, hashAlg, err := ParsePublicKey(publicKey)
	if err != nil {
		return err
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	switch alg {
	case AlgEd25519:
		digest := sha256.Sum256(message)
		if !ed25519.Verify(ed25519.PublicKey(raw), digest[:], sig) {
			return ErrBadSignature
		}
		return nil
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return err
		}
		digest, err := digestFor(hashAlg, message)
		if err != nil {
			return err
		}
		if !mode3.Verify(&pk, digest, sig) {
			return ErrBadSignature
		}
		return nil
	}
	return fmt.Errorf("%s keys cannot verify signatures", alg)
}
