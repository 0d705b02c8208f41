// Package reference implements the pieces of the reference protocol that do
// not depend on the object model: descriptors, the side-channel part table,
// payload sealing and content hashing.
//
// A reference replaces a subtree of the object graph with a placeholder node.
// The subtree's own serialization travels as a named part next to the main
// document, optionally encrypted and signed.
package reference

import (
	"strings"

	"xdao.co/graphwire/rdf"
)

// KeyType selects how a reference payload is protected.
type KeyType uint8

const (
	KeyNone KeyType = iota
	// KeySymmetric seals with a caller key that also rides on the placeholder.
	KeySymmetric
	// KeyAsymmetric wraps an ephemeral key for the recipient inside the payload.
	KeyAsymmetric
	// KeyNotarized deposits the wrapped ephemeral key with a notary.
	KeyNotarized
)

func (k KeyType) String() string {
	switch k {
	case KeySymmetric:
		return "symmetric"
	case KeyAsymmetric:
		return "asymmetric"
	case KeyNotarized:
		return "notarized"
	}
	return "none"
}

// IRI is the value written to smartapi:encryptionKeyType.
func (k KeyType) IRI() string {
	switch k {
	case KeySymmetric:
		return rdf.SmartSymmetricKey
	case KeyAsymmetric:
		return rdf.SmartPublicKey
	case KeyNotarized:
		return rdf.SmartNotarizedSessionKey
	}
	return ""
}

// KeyTypeFromIRI is the inverse of IRI. Bare local names are accepted.
func KeyTypeFromIRI(iri string) (KeyType, bool) {
	switch strings.TrimPrefix(iri, rdf.NSSmartAPI) {
	case "", "None":
		return KeyNone, true
	case "SymmetricKey":
		return KeySymmetric, true
	case "PublicKey":
		return KeyAsymmetric, true
	case "NotarizedSessionKey":
		return KeyNotarized, true
	}
	return KeyNone, false
}

// Descriptor is the metadata carried by a placeholder node.
type Descriptor struct {
	Identifier string
	Hash       string
	Signature  string
	KeyType    KeyType
	Notary     string
	SessionKey string
}

func (d Descriptor) Encrypted() bool { return d.KeyType != KeyNone }

// Validate checks the field combinations a placeholder may carry.
func (d Descriptor) Validate() error {
	switch {
	case d.Identifier == "":
		return rdf.NewError(rdf.KindMissingPart, "GW-REF-001", "reference has no identifier")
	case d.Notary != "" && d.KeyType != KeyNotarized:
		return rdf.NewError(rdf.KindCrypto, "GW-REF-002", "notary set on a non-notarized reference").About(d.Identifier)
	case d.KeyType == KeyNotarized && d.Notary == "":
		return rdf.NewError(rdf.KindCrypto, "GW-REF-003", "notarized reference names no notary").About(d.Identifier)
	case d.SessionKey != "" && d.KeyType != KeySymmetric:
		return rdf.NewError(rdf.KindCrypto, "GW-REF-004", "session key set on a non-symmetric reference").About(d.Identifier)
	}
	return nil
}
