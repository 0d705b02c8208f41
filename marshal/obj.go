package marshal

import (
	"sort"
	"time"

	"xdao.co/graphwire/keys"
	"xdao.co/graphwire/rdf"
	"xdao.co/graphwire/reference"
	"xdao.co/graphwire/variant"
)

// Object is implemented by every domain type through an embedded Obj.
type Object interface {
	Base() *Obj
}

// FieldSerializer is implemented by types that write fields beyond Obj.
// It runs after the base fields are written.
type FieldSerializer interface {
	SerializeFields(w *Writer) error
}

// StatementParser is implemented by types that read fields beyond Obj. It is
// offered every statement the base fields did not consume, and reports
// whether it took the statement. Statements nobody takes land in Properties.
type StatementParser interface {
	ParseStatement(r *Reader, st rdf.Statement) (handled bool, err error)
}

// Obj carries the fields every serialized object shares.
type Obj struct {
	// ID is the node IRI. Empty serializes as an anonymous node.
	ID          string
	Types       []string
	Name        string
	Description string
	SameAs      []string
	GeneratedAt time.Time
	// GeneratedBy is the IRI of the producing identity.
	GeneratedBy string
	// Properties holds values keyed by predicate IRI that no typed field
	// claimed.
	Properties map[string][]variant.Variant

	// Reference metadata, set on objects read from a reference payload.
	HashCode   string
	Signature  string
	SessionKey string
	KeyType    reference.KeyType
	Notary     string

	protect *protection
}

// protection records how an object should travel when serialized.
type protection struct {
	signer    keys.Signer
	keyType   reference.KeyType
	key       []byte
	recipient *[32]byte
	notary    string
}

func (o *Obj) Base() *Obj { return o }

// AddType appends t unless already declared.
func (o *Obj) AddType(t string) {
	if !o.HasType(t) {
		o.Types = append(o.Types, t)
	}
}

func (o *Obj) HasType(t string) bool {
	for _, x := range o.Types {
		if x == t {
			return true
		}
	}
	return false
}

// Set replaces the values of predicate.
//
// The values of one predicate form a set: a value that would serialize to
// the same term as one already present is dropped. Repeated values belong
// in a list variant.
func (o *Obj) Set(predicate string, values ...variant.Variant) {
	if o.Properties == nil {
		o.Properties = make(map[string][]variant.Variant)
	}
	var vs []variant.Variant
	for _, v := range values {
		vs = appendDistinct(vs, v)
	}
	o.Properties[predicate] = vs
}

// Add appends a value to predicate unless an equal term is already there.
func (o *Obj) Add(predicate string, v variant.Variant) {
	if o.Properties == nil {
		o.Properties = make(map[string][]variant.Variant)
	}
	o.Properties[predicate] = appendDistinct(o.Properties[predicate], v)
}

func appendDistinct(vs []variant.Variant, v variant.Variant) []variant.Variant {
	for _, x := range vs {
		if sameTerm(x, v) {
			return vs
		}
	}
	return append(vs, v)
}

// sameTerm reports whether a and b serialize to one term. Maps, lists and
// nested values always get a fresh node, so they never collapse.
func sameTerm(a, b variant.Variant) bool {
	if la, ok := a.Literal(); ok {
		lb, ok := b.Literal()
		return ok && la == lb
	}
	switch a.Kind() {
	case variant.KindURI, variant.KindObject:
		return a.Equal(b)
	}
	return false
}

// Get returns the first value of predicate.
func (o *Obj) Get(predicate string) (variant.Variant, bool) {
	vs := o.Properties[predicate]
	if len(vs) == 0 {
		return variant.Variant{}, false
	}
	return vs[0], true
}

// Predicates lists the keys of Properties in sorted order.
func (o *Obj) Predicates() []string {
	out := make([]string, 0, len(o.Properties))
	for p := range o.Properties {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (o *Obj) ensureProtection() *protection {
	if o.protect == nil {
		o.protect = &protection{}
	}
	return o.protect
}

// AsReference makes the object travel as a plain side-channel part.
func (o *Obj) AsReference() { o.ensureProtection() }

// Sign makes the object travel as a reference whose hash is signed.
func (o *Obj) Sign(s keys.Signer) { o.ensureProtection().signer = s }

// Encrypt seals the reference payload with a 32-byte key. The key is also
// written on the placeholder, so anyone holding the message can read it.
func (o *Obj) Encrypt(key []byte) {
	p := o.ensureProtection()
	p.keyType = reference.KeySymmetric
	p.key = append([]byte(nil), key...)
	p.recipient = nil
}

// EncryptFor seals the reference payload for the holder of an x25519 key.
func (o *Obj) EncryptFor(recipient *[32]byte) {
	p := o.ensureProtection()
	p.keyType = reference.KeyAsymmetric
	p.recipient = recipient
	p.key = nil
}

// EncryptAndNotarize seals the payload and deposits the wrapped key with the
// engine's notary instead of shipping it. GeneratedBy names the depositor; it
// is set to sender when empty.
func (o *Obj) EncryptAndNotarize(recipient *[32]byte, sender, notary string) {
	p := o.ensureProtection()
	p.keyType = reference.KeyNotarized
	p.recipient = recipient
	p.notary = notary
	p.key = nil
	if o.GeneratedBy == "" {
		o.GeneratedBy = sender
	}
}

// IsReference reports whether the object will serialize as a reference.
func (o *Obj) IsReference() bool { return o.protect != nil }

// ClearProtection makes the object serialize inline again.
func (o *Obj) ClearProtection() { o.protect = nil }

// Descriptor returns the reference metadata held on the object.
func (o *Obj) Descriptor() reference.Descriptor {
	return reference.Descriptor{
		Identifier: o.ID,
		Hash:       o.HashCode,
		Signature:  o.Signature,
		KeyType:    o.KeyType,
		Notary:     o.Notary,
		SessionKey: o.SessionKey,
	}
}
