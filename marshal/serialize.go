package marshal

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"go.uber.org/zap"

	"xdao.co/graphwire/codec"
	"xdao.co/graphwire/lists"
	"xdao.co/graphwire/metrics"
	"xdao.co/graphwire/rdf"
	"xdao.co/graphwire/reference"
	"xdao.co/graphwire/storage"
	"xdao.co/graphwire/variant"
)

// Serialize writes obj and everything reachable from it in the engine's
// format. Objects flagged as references are written as placeholders and
// their payloads returned in the Parts table.
func (e *Engine) Serialize(ctx context.Context, obj Object) (string, *reference.Parts, error) {
	return e.SerializeAs(ctx, obj, e.format)
}

// SerializeAs is Serialize with an explicit format.
func (e *Engine) SerializeAs(ctx context.Context, obj Object, format codec.Format) (string, *reference.Parts, error) {
	if obj == nil {
		return "", nil, rdf.NewError(rdf.KindRender, "GW-MAR-001", "nothing to serialize")
	}
	if _, ok := codec.GetFormatInfo(format); !ok {
		return "", nil, rdf.Errorf(rdf.KindRender, "GW-CODEC-001", "unsupported format %q", format)
	}
	s := &serializer{
		e:      e,
		ctx:    ctx,
		format: format,
		parts:  reference.NewParts(),
		nodes:  make(map[Object]*rdf.Resource),
		refs:   make(map[Object]*rdf.Resource),
	}
	root, err := s.encode(obj)
	if err != nil {
		return "", nil, err
	}
	text, err := s.render(root)
	if err != nil {
		return "", nil, err
	}
	return text, s.parts, nil
}

// serializer is the state of one Serialize call. nodes is the identity cache
// of the current document; a reference payload gets its own. refs holds the
// placeholders of the whole call so every document names a reference with the
// same node.
type serializer struct {
	e      *Engine
	ctx    context.Context
	format codec.Format
	parts  *reference.Parts
	nodes  map[Object]*rdf.Resource
	refs   map[Object]*rdf.Resource
}

func (s *serializer) ListEncoding() lists.Encoding { return s.e.listEncoding }

// EncodeObject implements variant.Encoder.
func (s *serializer) EncodeObject(v any) (rdf.Node, error) {
	if obj, ok := v.(Object); ok {
		if isNilObject(obj) {
			return rdf.IRI(rdf.SmartNull), nil
		}
		return s.encode(obj)
	}
	return nil, rdf.Errorf(rdf.KindRender, "GW-MAR-002", "cannot serialize %T", v)
}

func (s *serializer) render(root *rdf.Resource) (string, error) {
	g := rdf.NewGraph()
	if _, err := g.AddResource(root); err != nil {
		return "", err
	}
	text, err := codec.Serialize(g, s.format)
	if err != nil {
		return "", err
	}
	s.e.metrics.TriplesWritten(g.Len())
	return normalizeNewlines(text), nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func (s *serializer) encode(obj Object) (*rdf.Resource, error) {
	if r, ok := s.nodes[obj]; ok {
		return r, nil
	}
	if ref, ok := obj.(*Ref); ok {
		return s.encodeRef(ref)
	}
	if obj.Base().IsReference() {
		if r, ok := s.refs[obj]; ok {
			return r, nil
		}
		return s.reference(obj)
	}
	return s.inline(obj, obj.Base().ID, true)
}

// inline writes obj as a full node named id.
func (s *serializer) inline(obj Object, id string, withMeta bool) (*rdf.Resource, error) {
	r := rdf.NewResource(id)
	s.nodes[obj] = r
	if err := s.writeBase(r, obj, withMeta); err != nil {
		return nil, err
	}
	if fs, ok := obj.(FieldSerializer); ok {
		if err := fs.SerializeFields(&Writer{s: s, r: r}); err != nil {
			return nil, err
		}
	}
	b := obj.Base()
	for _, p := range b.Predicates() {
		for _, v := range b.Properties[p] {
			if err := s.add(r, p, v); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (s *serializer) add(r *rdf.Resource, predicate string, v variant.Variant) error {
	node, err := v.Serialize(s)
	if err != nil {
		var re *rdf.Error
		if errors.As(err, &re) && re.Subject == "" {
			return re.About(predicate)
		}
		return err
	}
	r.Add(predicate, node)
	return nil
}

func (s *serializer) typesOf(obj Object) []string {
	var out []string
	seen := make(map[string]bool)
	if tag, ok := s.e.registry.TagFor(obj); ok {
		out = append(out, tag)
		seen[tag] = true
	}
	for _, t := range obj.Base().Types {
		if t != "" && !seen[t] {
			out = append(out, t)
			seen[t] = true
		}
	}
	return out
}

func (s *serializer) writeBase(r *rdf.Resource, obj Object, withMeta bool) error {
	b := obj.Base()
	for _, t := range s.typesOf(obj) {
		r.AddType(t)
	}
	for _, iri := range b.SameAs {
		r.Add(rdf.OWLSameAs, rdf.IRI(iri))
	}
	if b.Name != "" {
		r.Add(rdf.RDFSLabel, rdf.Literal(b.Name, rdf.XSDString))
	}
	if b.Description != "" {
		r.Add(rdf.RDFSComment, rdf.Literal(b.Description, rdf.XSDString))
	}
	if !b.GeneratedAt.IsZero() {
		lit, _ := variant.DateTime(b.GeneratedAt).Literal()
		r.Add(rdf.SmartGeneratedAt, lit)
	}
	if b.GeneratedBy != "" {
		r.Add(rdf.SmartGeneratedBy, rdf.IRI(b.GeneratedBy))
	}
	if withMeta {
		writeDescriptor(r, b.Descriptor())
	}
	return nil
}

func writeDescriptor(r *rdf.Resource, d reference.Descriptor) {
	if d.Hash != "" {
		r.Add(rdf.SmartHashCode, rdf.Literal(d.Hash, rdf.XSDString))
	}
	if d.Signature != "" {
		r.Add(rdf.SmartSignature, rdf.Literal(d.Signature, rdf.XSDString))
	}
	if d.SessionKey != "" {
		r.Add(rdf.SmartSessionKey, rdf.Literal(d.SessionKey, rdf.XSDString))
	}
	if d.KeyType != reference.KeyNone {
		r.Add(rdf.SmartEncryptionKeyType, rdf.IRI(d.KeyType.IRI()))
	}
	if d.Notary != "" {
		r.Add(rdf.SmartNotary, rdf.Literal(d.Notary, rdf.XSDString))
	}
}

func placeholderTypes(r *rdf.Resource, types []string, encrypted bool) {
	for _, t := range types {
		r.AddType(t)
	}
	r.AddType(rdf.SmartReference)
	if encrypted {
		r.AddType(rdf.SmartEncryptedReference)
	}
	r.AddType(rdf.SmartMultipartReference)
}

// reference writes obj as a side-channel payload and returns its
// placeholder. The placeholder is registered before the payload is built so
// cycles through obj land on it.
func (s *serializer) reference(obj Object) (*rdf.Resource, error) {
	b := obj.Base()
	p := b.protect
	id := b.ID
	if id == "" {
		id = s.e.newID()
	}
	ph := rdf.NewResource(id)
	s.refs[obj] = ph
	placeholderTypes(ph, s.typesOf(obj), p.keyType != reference.KeyNone)
	if b.GeneratedBy != "" {
		ph.Add(rdf.SmartGeneratedBy, rdf.IRI(b.GeneratedBy))
	}

	sub := &serializer{
		e:      s.e,
		ctx:    s.ctx,
		format: s.format,
		parts:  s.parts,
		nodes:  make(map[Object]*rdf.Resource),
		refs:   s.refs,
	}
	root, err := sub.inline(obj, id, false)
	if err != nil {
		return nil, err
	}
	payload, err := sub.render(root)
	if err != nil {
		return nil, err
	}

	d := reference.Descriptor{Identifier: id, KeyType: p.keyType, Notary: p.notary}
	transported, wrapped, err := s.seal(p, &d, payload)
	if err != nil {
		return nil, err
	}
	if d.Hash, err = reference.Hash(transported, s.e.hashAlg); err != nil {
		return nil, err
	}
	if p.signer != nil {
		if d.Signature, err = p.signer.Sign([]byte(d.Hash)); err != nil {
			return nil, rdf.WrapError(rdf.KindCrypto, "GW-REF-121", "cannot sign reference", err).About(id)
		}
	}
	if p.keyType == reference.KeyNotarized {
		if err := s.deposit(b.GeneratedBy, d, wrapped); err != nil {
			return nil, err
		}
	}
	if err := s.parts.Put(id, transported); err != nil {
		return nil, rdf.WrapError(rdf.KindRender, "GW-REF-122", "duplicate reference identifier", err).About(id)
	}
	s.archive(d, transported)
	writeDescriptor(ph, d)

	s.e.logger.Debug("reference sealed",
		zap.String("id", id),
		zap.String("keyType", p.keyType.String()),
		zap.Int("bytes", len(transported)))
	s.e.metrics.Reference(metrics.OutcomeSealed)
	return ph, nil
}

// seal returns the text that travels in the part. For notarized references
// it also returns the wrapped session key to deposit.
func (s *serializer) seal(p *protection, d *reference.Descriptor, payload string) (string, []byte, error) {
	switch p.keyType {
	case reference.KeyNone:
		return payload, nil, nil
	case reference.KeySymmetric:
		sealed, err := reference.Seal(p.key, []byte(payload))
		if err != nil {
			return "", nil, aboutRef(err, d.Identifier)
		}
		d.SessionKey = base64.StdEncoding.EncodeToString(p.key)
		return sealed, nil, nil
	case reference.KeyAsymmetric:
		if p.recipient == nil {
			return "", nil, rdf.NewError(rdf.KindCrypto, "GW-REF-123", "no recipient key").About(d.Identifier)
		}
		sealed, err := reference.SealFor(p.recipient, []byte(payload))
		if err != nil {
			return "", nil, aboutRef(err, d.Identifier)
		}
		return sealed, nil, nil
	case reference.KeyNotarized:
		if s.e.notary == nil {
			return "", nil, rdf.NewError(rdf.KindCrypto, "GW-REF-120", "notarized reference without a notary").About(d.Identifier)
		}
		if p.recipient == nil {
			return "", nil, rdf.NewError(rdf.KindCrypto, "GW-REF-123", "no recipient key").About(d.Identifier)
		}
		key, err := reference.NewSessionKey(nil)
		if err != nil {
			return "", nil, aboutRef(err, d.Identifier)
		}
		wrapped, err := reference.WrapKey(p.recipient, key)
		if err != nil {
			return "", nil, aboutRef(err, d.Identifier)
		}
		sealed, err := reference.Seal(key, []byte(payload))
		if err != nil {
			return "", nil, aboutRef(err, d.Identifier)
		}
		return sealed, wrapped, nil
	}
	return "", nil, rdf.Errorf(rdf.KindInternal, "GW-REF-125", "unknown key type %d", p.keyType).About(d.Identifier)
}

func (s *serializer) deposit(sender string, d reference.Descriptor, wrapped []byte) error {
	if sender == "" {
		return rdf.NewError(rdf.KindCrypto, "GW-REF-124", "notarized reference has no sender").About(d.Identifier)
	}
	err := s.e.notary.Deposit(s.ctx, reference.Deposit{
		Sender:       sender,
		Identifier:   d.Identifier,
		Hash:         d.Hash,
		EncryptedKey: wrapped,
		Signature:    d.Signature,
	})
	if err != nil {
		return rdf.WrapError(rdf.KindCrypto, "GW-REF-126", "notary deposit failed", err).About(d.Identifier)
	}
	return nil
}

func (s *serializer) archive(d reference.Descriptor, payload string) {
	if s.e.archive == nil {
		return
	}
	key, err := storage.Key(d.Hash)
	if err == nil {
		err = s.e.archive.Put(key, []byte(payload))
	}
	if err != nil {
		s.e.logger.Warn("archive put failed", zap.String("id", d.Identifier), zap.Error(err))
		return
	}
	s.e.logger.Debug("reference archived", zap.String("id", d.Identifier), zap.String("hash", d.Hash))
}

// encodeRef writes a parsed reference back out. Resolved handles write their
// target; the others re-emit the placeholder and forward any ciphertext they
// hold.
func (s *serializer) encodeRef(ref *Ref) (*rdf.Resource, error) {
	if target := ref.Target(); target != nil {
		return s.encode(target)
	}
	d := ref.Descriptor()
	ph := rdf.NewResource(d.Identifier)
	s.nodes[ref] = ph
	placeholderTypes(ph, ref.Types, d.Encrypted())
	if ref.GeneratedBy != "" {
		ph.Add(rdf.SmartGeneratedBy, rdf.IRI(ref.GeneratedBy))
	}
	writeDescriptor(ph, d)
	if payload := ref.ciphertext(); payload != "" {
		if err := s.parts.Put(d.Identifier, payload); err != nil && !errors.Is(err, reference.ErrPartExists) {
			return nil, err
		}
	}
	return ph, nil
}

func aboutRef(err error, id string) error {
	var re *rdf.Error
	if errors.As(err, &re) && re.Subject == "" {
		return re.About(id)
	}
	return err
}

// Writer appends fields to the node of the object being serialized.
type Writer struct {
	s *serializer
	r *rdf.Resource
}

// Context returns the context of the Serialize call.
func (w *Writer) Context() context.Context { return w.s.ctx }

// Add writes one value under predicate.
func (w *Writer) Add(predicate string, v variant.Variant) error {
	return w.s.add(w.r, predicate, v)
}

// AddIRI writes a link to an external resource.
func (w *Writer) AddIRI(predicate, iri string) {
	if iri != "" {
		w.r.Add(predicate, rdf.IRI(iri))
	}
}

// AddObject writes a link to obj, serializing it if this call has not yet.
// A nil obj writes nothing.
func (w *Writer) AddObject(predicate string, obj Object) error {
	if isNilObject(obj) {
		return nil
	}
	return w.Add(predicate, variant.Object(obj))
}

// AddList writes items as one list in enc. Default uses the engine setting.
func (w *Writer) AddList(predicate string, enc lists.Encoding, items ...variant.Variant) error {
	return w.Add(predicate, variant.FromList(variant.List{Encoding: enc, Items: items}))
}
