package reference

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"

	"xdao.co/graphwire/rdf"
)

// KeySize is the length of a payload session key.
const KeySize = chacha20poly1305.KeySize

func cryptoError(ruleID, msg string, cause error) *rdf.Error {
	return rdf.WrapError(rdf.KindCrypto, ruleID, msg, cause)
}

// NewSessionKey draws a fresh payload key from r, or crypto/rand when r is
// nil.
func NewSessionKey(r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, cryptoError("GW-REF-210", "cannot generate session key", err)
	}
	return key, nil
}

// Seal encrypts plaintext with XChaCha20-Poly1305 and returns
// base64(nonce || ciphertext).
func Seal(key, plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", cryptoError("GW-REF-211", "invalid session key", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", cryptoError("GW-REF-210", "cannot generate nonce", err)
	}
	return base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, plaintext, nil)), nil
}

// Open reverses Seal.
func Open(key []byte, sealed string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, cryptoError("GW-REF-211", "invalid session key", err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sealed))
	if err != nil {
		return nil, cryptoError("GW-REF-212", "ciphertext is not base64", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, cryptoError("GW-REF-213", "ciphertext too short", nil)
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
	if err != nil {
		return nil, cryptoError("GW-REF-214", "ciphertext does not authenticate", err)
	}
	return plain, nil
}

// WrapKey seals a session key so that only the holder of the recipient's
// private key can read it.
func WrapKey(recipient *[32]byte, key []byte) ([]byte, error) {
	wrapped, err := box.SealAnonymous(nil, key, recipient, rand.Reader)
	if err != nil {
		return nil, cryptoError("GW-REF-215", "cannot wrap session key", err)
	}
	return wrapped, nil
}

// UnwrapKey reverses WrapKey.
func UnwrapKey(public, private *[32]byte, wrapped []byte) ([]byte, error) {
	key, ok := box.OpenAnonymous(nil, wrapped, public, private)
	if !ok {
		return nil, cryptoError("GW-REF-216", "session key was not wrapped for this key", nil)
	}
	if len(key) != KeySize {
		return nil, cryptoError("GW-REF-216", "unwrapped session key has the wrong size", nil)
	}
	return key, nil
}

// SealFor encrypts plaintext under a fresh key wrapped for recipient. The
// result is base64(wrappedKey) + "\n" + base64(nonce || ciphertext).
func SealFor(recipient *[32]byte, plaintext []byte) (string, error) {
	key, err := NewSessionKey(nil)
	if err != nil {
		return "", err
	}
	wrapped, err := WrapKey(recipient, key)
	if err != nil {
		return "", err
	}
	body, err := Seal(key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(wrapped) + "\n" + body, nil
}

// OpenFrom reverses SealFor.
func OpenFrom(public, private *[32]byte, payload string) ([]byte, error) {
	head, body, ok := strings.Cut(strings.TrimSpace(payload), "\n")
	if !ok {
		return nil, cryptoError("GW-REF-217", "payload has no wrapped key", nil)
	}
	wrapped, err := base64.StdEncoding.DecodeString(strings.TrimSpace(head))
	if err != nil {
		return nil, cryptoError("GW-REF-212", "wrapped key is not base64", err)
	}
	key, err := UnwrapKey(public, private, wrapped)
	if err != nil {
		return nil, err
	}
	return Open(key, body)
}
