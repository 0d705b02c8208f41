package marshal

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"xdao.co/graphwire/codec"
	"xdao.co/graphwire/metrics"
	"xdao.co/graphwire/rdf"
	"xdao.co/graphwire/reference"
	"xdao.co/graphwire/storage"
	"xdao.co/graphwire/variant"
)

// Parse reads text in the engine's format. parts holds the side-channel
// payloads that arrived with it and may be nil.
//
// Recoverable problems are collected in the Report and the partial result is
// returned. Under compliance.Strict the first problem is also returned as the
// error.
func (e *Engine) Parse(ctx context.Context, text string, parts *reference.Parts) (Object, *Report, error) {
	return e.ParseAs(ctx, text, e.format, parts)
}

// ParseAs is Parse with an explicit format.
func (e *Engine) ParseAs(ctx context.Context, text string, format codec.Format, parts *reference.Parts) (Object, *Report, error) {
	if parts == nil {
		parts = reference.NewParts()
	}
	g, diags, err := codec.Parse(text, format)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{
		e:       e,
		ctx:     ctx,
		format:  format,
		g:       g,
		parts:   parts,
		objects: make(map[rdf.Term]Object),
		refs:    &refTable{m: make(map[string]*Ref)},
		report:  &Report{},
	}
	for _, d := range diags {
		p.Diagnose(d)
	}
	e.metrics.TriplesRead(g.Len())

	var root Object
	if top, ok := g.TopNode(); ok {
		if root, err = p.object(top); err != nil {
			p.Diagnose(err)
		}
	} else {
		p.Diagnose(rdf.NewError(rdf.KindParse, "GW-MAR-010", "document holds no statements"))
	}
	p.finish()
	return root, p.report, e.mode.Apply(p.report.Diagnostics.Err())
}

// refTable maps reference identifiers to their handles for one call,
// including payloads parsed later by Ref.Decrypt.
type refTable struct {
	mu sync.Mutex
	m  map[string]*Ref
}

// claim registers ref under id unless a handle is already there, which is
// returned instead.
func (t *refTable) claim(id string, ref *Ref) (*Ref, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.m[id]; ok {
		return existing, false
	}
	t.m[id] = ref
	return ref, true
}

// parser is the state of one document. objects is its identity cache; refs
// and report are shared with the payload documents it opens.
type parser struct {
	e       *Engine
	ctx     context.Context
	format  codec.Format
	g       *rdf.Graph
	parts   *reference.Parts
	objects map[rdf.Term]Object
	refs    *refTable
	report  *Report
}

func (p *parser) Graph() *rdf.Graph { return p.g }

func (p *parser) PreserveListEncoding() bool { return p.e.preserveLists }

// DecodeObject implements variant.Decoder.
func (p *parser) DecodeObject(t rdf.Term) (any, error) { return p.object(t) }

// Diagnose implements variant.Decoder.
func (p *parser) Diagnose(err error) {
	if err == nil {
		return
	}
	p.report.Diagnostics.Add(err)
	d := p.report.Diagnostics[len(p.report.Diagnostics)-1]
	p.e.logger.Warn("parse diagnostic",
		zap.String("rule", d.RuleID),
		zap.String("kind", string(d.Kind)),
		zap.String("subject", d.Subject),
		zap.String("message", d.Message))
	p.e.metrics.Diagnostic(string(d.Kind))
}

// sub returns a parser for a payload document that shares p's call state.
func (p *parser) sub(g *rdf.Graph) *parser {
	return &parser{
		e:       p.e,
		ctx:     p.ctx,
		format:  p.format,
		g:       g,
		parts:   p.parts,
		objects: make(map[rdf.Term]Object),
		refs:    p.refs,
		report:  p.report,
	}
}

func (p *parser) finish() {
	for _, part := range p.parts.Remaining() {
		p.report.Unconsumed = append(p.report.Unconsumed, part.ID)
		// Encrypted payloads may still claim these parts once decrypted.
		if len(p.report.Encrypted) == 0 {
			p.Diagnose(rdf.NewError(rdf.KindParse, "GW-REF-110", "part was never referenced").About(part.ID))
		}
	}
}

func (p *parser) object(t rdf.Term) (Object, error) {
	if obj, ok := p.objects[t]; ok {
		return obj, nil
	}
	types := p.g.Types(t)
	for _, typ := range types {
		if typ == rdf.SmartMultipartReference {
			return p.reference(t, types)
		}
	}
	obj, _ := p.e.registry.Resolve(types)
	p.objects[t] = obj
	p.fill(obj, t, types)
	return obj, nil
}

func (p *parser) fill(obj Object, t rdf.Term, types []string) {
	b := obj.Base()
	if t.IsIRI() {
		b.ID = t.Value
	}
	b.Types = append([]string(nil), types...)
	r := &Reader{p: p, subject: t}
	sp, _ := obj.(StatementParser)
	for _, st := range p.g.Statements(t) {
		if st.P.Value == rdf.RDFType || p.base(b, st) {
			continue
		}
		if sp != nil {
			handled, err := sp.ParseStatement(r, st)
			if err != nil {
				p.Diagnose(aboutRef(err, st.P.Value))
				continue
			}
			if handled {
				continue
			}
		}
		v, err := variant.Parse(st, p)
		if err != nil {
			p.Diagnose(err)
			continue
		}
		b.Add(st.P.Value, v)
	}
}

// base consumes st when it carries one of the fields every object shares.
func (p *parser) base(b *Obj, st rdf.Statement) bool {
	switch st.P.Value {
	case rdf.OWLSameAs:
		if st.O.IsIRI() {
			b.SameAs = append(b.SameAs, st.O.Value)
		}
	case rdf.RDFSLabel:
		b.Name = st.O.Value
	case rdf.RDFSComment:
		b.Description = st.O.Value
	case rdf.SmartGeneratedAt:
		tm, err := st.Time()
		if err != nil {
			p.Diagnose(err)
			break
		}
		b.GeneratedAt = tm
	case rdf.SmartGeneratedBy:
		b.GeneratedBy = st.O.Value
	case rdf.SmartHashCode:
		b.HashCode = st.O.Value
	case rdf.SmartSignature:
		b.Signature = st.O.Value
	case rdf.SmartSessionKey:
		b.SessionKey = st.O.Value
	case rdf.SmartNotary:
		b.Notary = st.O.Value
	case rdf.SmartEncryptionKeyType:
		kt, ok := reference.KeyTypeFromIRI(st.O.Value)
		if !ok {
			p.Diagnose(rdf.Errorf(rdf.KindCrypto, "GW-REF-005", "unknown key type %s", st.O.Value).About(st.S.Value))
			break
		}
		b.KeyType = kt
	default:
		return false
	}
	return true
}

func stripReferenceTypes(types []string) []string {
	out := types[:0:0]
	for _, t := range types {
		switch t {
		case rdf.SmartReference, rdf.SmartEncryptedReference, rdf.SmartMultipartReference:
		default:
			out = append(out, t)
		}
	}
	return out
}

// reference hydrates a placeholder node. The returned object is the resolved
// target when the payload could be read, and the *Ref otherwise.
func (p *parser) reference(t rdf.Term, types []string) (Object, error) {
	ref := &Ref{e: p.e, format: p.format, parts: p.parts, refs: p.refs}
	if t.IsIRI() {
		ref.ID = t.Value
	}
	ref.Types = stripReferenceTypes(types)
	for _, st := range p.g.Statements(t) {
		if st.P.Value != rdf.RDFType {
			p.base(&ref.Obj, st)
		}
	}
	d := ref.Descriptor()
	if d.Identifier == "" {
		p.objects[t] = ref
		p.Diagnose(d.Validate())
		p.missing(ref)
		return ref, nil
	}
	if existing, fresh := p.refs.claim(d.Identifier, ref); !fresh {
		obj := existing.current()
		p.objects[t] = obj
		return obj, nil
	}
	p.objects[t] = ref
	if err := d.Validate(); err != nil {
		p.Diagnose(err)
	}

	payload, err := p.parts.Take(d.Identifier)
	switch {
	case errors.Is(err, reference.ErrPartConsumed):
		p.Diagnose(rdf.WrapError(rdf.KindMissingPart, "GW-REF-102", "part already consumed", err).About(d.Identifier))
		p.missing(ref)
		return ref, nil
	case err != nil:
		if payload, err = p.fromArchive(d); err != nil {
			p.Diagnose(rdf.WrapError(rdf.KindMissingPart, "GW-REF-101", "no part for reference", err).About(d.Identifier))
			p.missing(ref)
			return ref, nil
		}
	}

	if err := reference.VerifyHash(d.Hash, payload); err != nil {
		err = aboutRef(err, d.Identifier)
		ref.fail(err)
		p.report.Failed = append(p.report.Failed, d.Identifier)
		p.Diagnose(err)
		p.e.metrics.Reference(metrics.OutcomeFailed)
		return ref, nil
	}
	if d.Encrypted() {
		ref.encrypted(payload)
		p.report.Encrypted = append(p.report.Encrypted, d.Identifier)
		p.e.logger.Debug("reference encrypted", zap.String("id", d.Identifier), zap.String("keyType", d.KeyType.String()))
		p.e.metrics.Reference(metrics.OutcomeEncrypted)
		return ref, nil
	}

	target, err := p.payload(ref, payload)
	if err != nil {
		p.Diagnose(err)
		return ref, nil
	}
	p.objects[t] = target
	ref.resolve(target, nil)
	p.e.logger.Debug("reference resolved", zap.String("id", d.Identifier))
	p.e.metrics.Reference(metrics.OutcomeResolved)
	return target, nil
}

func (p *parser) missing(ref *Ref) {
	ref.markMissing()
	if ref.ID != "" {
		p.report.Missing = append(p.report.Missing, ref.ID)
	}
	p.e.metrics.Reference(metrics.OutcomeMissing)
}

// fromArchive reads a payload from the engine's archive under the CID in the
// reference's hash, whatever algorithm produced it.
func (p *parser) fromArchive(d reference.Descriptor) (string, error) {
	if p.e.archive == nil || d.Hash == "" {
		return "", reference.ErrPartNotFound
	}
	key, err := storage.Key(d.Hash)
	if err != nil {
		return "", err
	}
	data, err := p.e.archive.Get(key)
	if err != nil {
		return "", err
	}
	p.e.logger.Debug("reference hydrated from archive", zap.String("id", d.Identifier), zap.String("hash", d.Hash))
	return string(data), nil
}

// payload parses a plaintext reference payload and returns its root object
// carrying the reference metadata.
func (p *parser) payload(ref *Ref, text string) (Object, error) {
	g, diags, err := codec.Parse(text, p.format)
	if err != nil {
		return nil, err
	}
	sub := p.sub(g)
	for _, d := range diags {
		sub.Diagnose(aboutRef(d, ref.ID))
	}
	p.e.metrics.TriplesRead(g.Len())
	root := rdf.IRI(ref.ID)
	if len(g.Statements(root)) == 0 {
		var ok bool
		if root, ok = g.TopNode(); !ok {
			return nil, rdf.NewError(rdf.KindParse, "GW-REF-103", "reference payload is empty").About(ref.ID)
		}
	}
	obj, err := sub.object(root)
	if err != nil {
		return nil, err
	}
	b := obj.Base()
	b.HashCode = ref.HashCode
	b.Signature = ref.Signature
	b.SessionKey = ref.SessionKey
	b.KeyType = ref.KeyType
	b.Notary = ref.Notary
	if b.GeneratedBy == "" {
		b.GeneratedBy = ref.GeneratedBy
	}
	b.Types = stripReferenceTypes(b.Types)
	return obj, nil
}

// Reader gives StatementParser implementations access to the parse call.
type Reader struct {
	p       *parser
	subject rdf.Term
}

// Context returns the context of the Parse call.
func (r *Reader) Context() context.Context { return r.p.ctx }

// Subject is the node being read.
func (r *Reader) Subject() rdf.Term { return r.subject }

// Value decodes the object of st, dispatching nodes to registered classes.
func (r *Reader) Value(st rdf.Statement) (variant.Variant, error) {
	return variant.Parse(st, r.p)
}

// Object decodes the object of st as a domain object. The result may be a
// *Ref for references that are not yet readable.
func (r *Reader) Object(st rdf.Statement) (Object, error) {
	if !st.O.IsResource() {
		return nil, rdf.Errorf(rdf.KindConversion, "GW-MAR-020", "expected a node, got %s", st.O.Kind).About(st.P.Value)
	}
	return r.p.object(st.O)
}

// List decodes the object of st as a sequence.
func (r *Reader) List(st rdf.Statement) ([]variant.Variant, error) {
	v, err := r.Value(st)
	if err != nil {
		return nil, err
	}
	l, ok := v.List()
	if !ok {
		return nil, rdf.Errorf(rdf.KindConversion, "GW-MAR-021", "expected a list, got %s", v.Kind()).About(st.P.Value)
	}
	return l.Items, nil
}

// Diagnose records a recoverable problem in the parse report.
func (r *Reader) Diagnose(err error) { r.p.Diagnose(err) }
