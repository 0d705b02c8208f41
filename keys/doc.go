// Package keys provides the signing and encryption keys used by reference
// payloads.
//
// Public keys travel as strings of the form "<algorithm>:<base64>", where the
// algorithm is ed25519, dilithium3 or x25519. Signatures are base64 text.
//
// KeyStore is a filesystem-backed convenience for the CLI and tests. It is
// not part of the wire contract.
package keys
