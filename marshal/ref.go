package marshal

import (
	"context"
	"encoding/base64"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"xdao.co/graphwire/codec"
	"xdao.co/graphwire/keys"
	"xdao.co/graphwire/metrics"
	"xdao.co/graphwire/rdf"
	"xdao.co/graphwire/reference"
	"xdao.co/graphwire/variant"
)

type RefState uint8

const (
	// RefUnresolved: no payload was available. Missing reports why.
	RefUnresolved RefState = iota
	// RefEncrypted: the ciphertext is held and Decrypt can open it.
	RefEncrypted
	RefResolved
	RefFailed
)

func (s RefState) String() string {
	switch s {
	case RefEncrypted:
		return "encrypted"
	case RefResolved:
		return "resolved"
	case RefFailed:
		return "failed"
	default:
		return "unresolved"
	}
}

// Ref is the handle a parse leaves where a reference placeholder was read.
//
// The embedded Obj carries the placeholder fields. Every holder of a Ref
// observes the same state; once resolved, Target returns the object the
// payload described.
type Ref struct {
	Obj

	e      *Engine
	format codec.Format
	parts  *reference.Parts
	refs   *refTable

	mu      sync.Mutex
	state   RefState
	missing bool
	payload string
	target  Object
	err     error
	report  *Report
}

func (r *Ref) State() RefState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Missing reports whether no part was found for the reference.
func (r *Ref) Missing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.missing
}

// Target returns the resolved object, or nil.
func (r *Ref) Target() Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// Err returns the failure that moved the reference to RefFailed.
func (r *Ref) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Report returns what Decrypt found while parsing the plaintext payload.
func (r *Ref) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// Verify checks the placeholder signature against publicKey.
func (r *Ref) Verify(publicKey string) error { return VerifySignature(r, publicKey) }

func (r *Ref) current() Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target != nil {
		return r.target
	}
	return r
}

func (r *Ref) ciphertext() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != RefEncrypted {
		return ""
	}
	return r.payload
}

func (r *Ref) markMissing() {
	r.mu.Lock()
	r.missing = true
	r.state = RefUnresolved
	r.mu.Unlock()
}

func (r *Ref) encrypted(payload string) {
	r.mu.Lock()
	r.payload = payload
	r.state = RefEncrypted
	r.mu.Unlock()
}

func (r *Ref) resolve(target Object, report *Report) {
	r.mu.Lock()
	r.target = target
	r.payload = ""
	r.state = RefResolved
	r.report = report
	r.mu.Unlock()
}

func (r *Ref) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.state = RefFailed
	r.mu.Unlock()
}

// Keys holds what Decrypt may need. Only the field matching the reference's
// key type is consulted.
type Keys struct {
	// Symmetric overrides the session key carried on the placeholder.
	Symmetric []byte
	// Encryption is the recipient key for asymmetric and notarized
	// references.
	Encryption *keys.EncryptionKey
	// Sender names the depositor for a notary fetch; GeneratedBy is used
	// when empty.
	Sender string
	// Notary overrides the engine's notary.
	Notary reference.Notary
}

// Decrypt opens an encrypted reference and parses its payload. Errors of
// kind Crypto move the reference to RefFailed; a missing key or an
// unreachable notary leaves it encrypted so the call can be retried.
func (r *Ref) Decrypt(ctx context.Context, k Keys) (Object, error) {
	r.mu.Lock()
	state, target, payload, failure := r.state, r.target, r.payload, r.err
	r.mu.Unlock()
	switch state {
	case RefResolved:
		return target, nil
	case RefFailed:
		return nil, failure
	case RefUnresolved:
		return nil, rdf.NewError(rdf.KindMissingPart, "GW-REF-131", "reference has no payload").About(r.ID)
	}

	plain, attempted, err := r.open(ctx, k, payload)
	if err != nil {
		err = aboutRef(err, r.ID)
		if attempted && rdf.IsKind(err, rdf.KindCrypto) {
			r.fail(err)
			r.e.metrics.Reference(metrics.OutcomeFailed)
		}
		return nil, err
	}

	p := &parser{
		e:      r.e,
		ctx:    ctx,
		format: r.format,
		parts:  r.parts,
		refs:   r.refs,
		report: &Report{},
	}
	obj, err := p.payload(r, normalizeNewlines(string(plain)))
	if err != nil {
		return nil, err
	}
	r.resolve(obj, p.report)
	r.e.logger.Debug("reference decrypted", zap.String("id", r.ID), zap.String("keyType", r.KeyType.String()))
	r.e.metrics.Reference(metrics.OutcomeResolved)
	return obj, nil
}

// open returns the plaintext. attempted is false when decryption never
// started for lack of a key or a reachable notary.
func (r *Ref) open(ctx context.Context, k Keys, payload string) ([]byte, bool, error) {
	if err := reference.VerifyHash(r.HashCode, payload); err != nil {
		return nil, true, err
	}
	switch r.KeyType {
	case reference.KeySymmetric:
		key := k.Symmetric
		if len(key) == 0 && r.SessionKey != "" {
			var err error
			if key, err = base64.StdEncoding.DecodeString(r.SessionKey); err != nil {
				return nil, true, rdf.WrapError(rdf.KindCrypto, "GW-REF-132", "session key is not base64", err)
			}
		}
		if len(key) == 0 {
			return nil, false, rdf.NewError(rdf.KindCrypto, "GW-REF-130", "no symmetric key")
		}
		plain, err := reference.Open(key, payload)
		return plain, true, err

	case reference.KeyAsymmetric:
		if k.Encryption == nil {
			return nil, false, rdf.NewError(rdf.KindCrypto, "GW-REF-130", "no encryption key")
		}
		plain, err := reference.OpenFrom(&k.Encryption.Public, &k.Encryption.Private, payload)
		return plain, true, err

	case reference.KeyNotarized:
		notary := k.Notary
		if notary == nil {
			notary = r.e.notary
		}
		if notary == nil {
			return nil, false, rdf.NewError(rdf.KindCrypto, "GW-REF-120", "no notary to fetch the key from")
		}
		if k.Encryption == nil {
			return nil, false, rdf.NewError(rdf.KindCrypto, "GW-REF-130", "no encryption key")
		}
		sender := k.Sender
		if sender == "" {
			sender = r.GeneratedBy
		}
		if sender == "" {
			return nil, false, rdf.NewError(rdf.KindCrypto, "GW-REF-124", "notarized reference has no sender")
		}
		dep, err := notary.Fetch(ctx, sender, r.ID)
		if err != nil {
			return nil, false, rdf.WrapError(rdf.KindCrypto, "GW-REF-133", "notary fetch failed", err)
		}
		if dep.Hash != r.HashCode {
			return nil, true, rdf.NewError(rdf.KindCrypto, "GW-REF-134", "notarized hash does not match the reference")
		}
		key, err := reference.UnwrapKey(&k.Encryption.Public, &k.Encryption.Private, dep.EncryptedKey)
		if err != nil {
			return nil, true, err
		}
		plain, err := reference.Open(key, payload)
		return plain, true, err
	}
	return nil, false, rdf.Errorf(rdf.KindCrypto, "GW-REF-125", "reference is not encrypted (key type %s)", r.KeyType)
}

// As returns v as T. v may be an Object, a variant holding one, or a *Ref,
// in which case its resolved target is converted.
func As[T Object](v any) (T, bool) {
	var zero T
	switch x := v.(type) {
	case variant.Variant:
		obj, ok := x.Object()
		if !ok {
			return zero, false
		}
		return As[T](obj)
	case *Ref:
		if t, ok := any(x).(T); ok {
			return t, true
		}
		target := x.Target()
		if target == nil {
			return zero, false
		}
		return As[T](target)
	}
	t, ok := v.(T)
	return t, ok
}

// VerifySignature checks the signature carried by obj over its hash code.
func VerifySignature(obj Object, publicKey string) error {
	b := obj.Base()
	if b.Signature == "" {
		return rdf.NewError(rdf.KindCrypto, "GW-REF-140", "object is not signed").About(b.ID)
	}
	if err := keys.Verify(publicKey, []byte(b.HashCode), b.Signature); err != nil {
		return rdf.WrapError(rdf.KindCrypto, "GW-REF-141", "signature verification failed", err).About(b.ID)
	}
	return nil
}

// VerifyGenerator fetches the public key of obj's GeneratedBy identity and
// verifies the signature with it.
func VerifyGenerator(ctx context.Context, obj Object, fetcher reference.KeyFetcher) error {
	b := obj.Base()
	if b.GeneratedBy == "" {
		return rdf.NewError(rdf.KindCrypto, "GW-REF-142", "object names no generator").About(b.ID)
	}
	pub, err := fetcher.Fetch(ctx, b.GeneratedBy)
	if err != nil {
		return rdf.WrapError(rdf.KindCrypto, "GW-REF-143", "cannot fetch generator key", err).About(b.ID)
	}
	return VerifySignature(obj, pub)
}

func isNilObject(obj Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
