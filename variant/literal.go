package variant

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"xdao.co/graphwire/lists"
	"xdao.co/graphwire/rdf"
)

// Encoder is the serializer side a Variant needs for values that are not
// plain literals.
type Encoder interface {
	// EncodeObject returns the node for a domain object, reusing the node of
	// an object already written in the same call.
	EncodeObject(obj any) (rdf.Node, error)
	// ListEncoding is used for lists whose Encoding is Default.
	ListEncoding() lists.Encoding
}

// Decoder is the parser side a Variant needs for node-valued terms.
type Decoder interface {
	Graph() *rdf.Graph
	// DecodeObject dispatches a typed node to a registered class.
	DecodeObject(node rdf.Term) (any, error)
	// PreserveListEncoding makes parsed lists re-serialize in the encoding
	// they arrived in.
	PreserveListEncoding() bool
	// Diagnose records a recoverable problem found while decoding.
	Diagnose(err error)
}

const (
	timeLayout = "15:04:05.999999999Z07:00"
	dateLayout = "2006-01-02"
)

func (v Variant) lexical() (string, string) {
	switch v.kind {
	case KindURI:
		return v.s, ""
	case KindString:
		return v.s, rdf.XSDString
	case KindInteger:
		return strconv.FormatInt(v.i, 10), rdf.XSDInteger
	case KindFloat:
		return formatDouble(v.f), rdf.XSDDouble
	case KindBoolean:
		return strconv.FormatBool(v.b), rdf.XSDBoolean
	case KindDate:
		return v.t.Format(dateLayout), rdf.XSDDate
	case KindTime:
		return v.t.Format(timeLayout), rdf.XSDTime
	case KindDateTime:
		return v.t.Format(time.RFC3339Nano), rdf.XSDDateTime
	case KindDuration:
		return v.d.String(), rdf.XSDDuration
	}
	return "", ""
}

func formatDouble(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Literal returns the typed literal for scalar kinds.
func (v Variant) Literal() (rdf.Term, bool) {
	switch v.kind {
	case KindString, KindInteger, KindFloat, KindBoolean, KindDate, KindTime, KindDateTime, KindDuration:
		lex, dt := v.lexical()
		return rdf.Literal(lex, dt), true
	}
	return rdf.Term{}, false
}

// Serialize returns the object-slot node for v. Missing yields a nil node,
// which resource builders skip.
func (v Variant) Serialize(enc Encoder) (rdf.Node, error) {
	if lit, ok := v.Literal(); ok {
		return lit, nil
	}
	switch v.kind {
	case KindNull:
		return rdf.IRI(rdf.SmartNull), nil
	case KindMissing:
		return nil, nil
	case KindURI:
		return rdf.IRI(v.s), nil
	case KindObject:
		if enc == nil {
			return nil, rdf.Errorf(rdf.KindRender, "GW-VAR-101", "no encoder for object %T", v.obj)
		}
		return enc.EncodeObject(v.obj)
	case KindNested:
		inner, err := v.in.Serialize(enc)
		if err != nil {
			return nil, err
		}
		return rdf.NewResource("").AddType(rdf.SmartVariant).Add(rdf.RDFValue, inner), nil
	case KindMap:
		node := rdf.NewResource("").AddType(rdf.SmartMap)
		for _, k := range v.Keys() {
			val, err := v.m[k].Serialize(enc)
			if err != nil {
				return nil, err
			}
			node.Add(rdf.SmartEntry, rdf.NewResource("").
				Add(rdf.SmartKey, rdf.Literal(k, rdf.XSDString)).
				Add(rdf.RDFValue, val))
		}
		return node, nil
	case KindList:
		return v.list.serialize(enc)
	}
	return nil, rdf.Errorf(rdf.KindInternal, "GW-VAR-102", "unknown variant kind %d", v.kind)
}

func (l *List) serialize(enc Encoder) (rdf.Node, error) {
	encoding := l.Encoding
	if encoding == lists.Default && enc != nil {
		encoding = enc.ListEncoding()
	}
	if encoding == lists.Default {
		encoding = lists.Indexed
	}
	items := make([]rdf.Node, len(l.Items))
	for i, it := range l.Items {
		if it.IsMissing() && encoding != lists.Indexed {
			// Only indexed lists can carry a hole.
			it = Null()
		}
		n, err := it.Serialize(enc)
		if err != nil {
			return nil, err
		}
		items[i] = n
	}
	return lists.Encode(encoding, items)
}

func convError(ruleID string, t rdf.Term, cause error) *rdf.Error {
	return rdf.WrapError(rdf.KindConversion, ruleID, "cannot decode "+t.String(), cause)
}

// FromLiteral decodes a literal by its datatype. Literals without a datatype
// are typed by rdf.InferDatatype first.
func FromLiteral(t rdf.Term) (Variant, error) {
	if !t.IsLiteral() {
		return Variant{}, convError("GW-VAR-001", t, errors.New("not a literal"))
	}
	if t.Lang != "" {
		return String(t.Value), nil
	}
	dt := t.Datatype
	if dt == "" {
		dt = rdf.InferDatatype(t.Value)
	}
	lex := strings.TrimSpace(t.Value)
	switch dt {
	case rdf.XSDString:
		return String(t.Value), nil
	case rdf.XSDAnyURI:
		return URI(lex), nil
	case rdf.XSDBoolean:
		switch lex {
		case "true", "1":
			return Bool(true), nil
		case "false", "0":
			return Bool(false), nil
		}
		return Variant{}, convError("GW-VAR-003", t, errors.New("invalid boolean"))
	case rdf.XSDDouble, rdf.XSDFloat, rdf.XSDDecimal:
		f, err := rdf.ParseXSDFloat(lex)
		if err != nil {
			return Variant{}, convError("GW-VAR-004", t, err)
		}
		return Float(f), nil
	case rdf.XSDDate, rdf.XSDTime, rdf.XSDDateTime:
		tm, err := rdf.ParseXSDTime(lex, dt)
		if err != nil {
			return Variant{}, convError("GW-VAR-005", t, err)
		}
		switch dt {
		case rdf.XSDDate:
			return Variant{kind: KindDate, t: tm}, nil
		case rdf.XSDTime:
			return Variant{kind: KindTime, t: tm}, nil
		}
		return DateTime(tm), nil
	case rdf.XSDDuration:
		d, err := ParseDuration(lex)
		if err != nil {
			return Variant{}, convError("GW-VAR-006", t, err)
		}
		return OfDuration(d), nil
	}
	if isIntegerType(dt) {
		n, err := strconv.ParseInt(lex, 10, 64)
		if err != nil {
			return Variant{}, convError("GW-VAR-002", t, err)
		}
		return Int(n), nil
	}
	// Unknown datatypes keep their lexical form.
	return String(t.Value), nil
}

func isIntegerType(dt string) bool {
	switch strings.TrimPrefix(dt, rdf.NSXSD) {
	case "integer", "int", "long", "short", "byte",
		"nonNegativeInteger", "positiveInteger", "nonPositiveInteger", "negativeInteger",
		"unsignedLong", "unsignedInt", "unsignedShort", "unsignedByte":
		return strings.HasPrefix(dt, rdf.NSXSD)
	}
	return false
}

// Parse decodes the object slot of st.
func Parse(st rdf.Statement, dec Decoder) (Variant, error) {
	v, err := ParseTerm(dec, st.O)
	if err != nil {
		var e *rdf.Error
		if errors.As(err, &e) && e.Subject == "" {
			return v, e.About(st.P.Value)
		}
	}
	return v, err
}

// ParseTerm decodes t. The zero Term decodes to Missing. With a nil Decoder
// only literals and IRIs are understood.
func ParseTerm(dec Decoder, t rdf.Term) (Variant, error) {
	p := termParser{dec: dec, active: make(map[rdf.Term]bool)}
	return p.parse(t)
}

type termParser struct {
	dec    Decoder
	active map[rdf.Term]bool
}

func (p termParser) parse(t rdf.Term) (Variant, error) {
	switch {
	case t.IsZero():
		return Missing(), nil
	case t.IsLiteral():
		return FromLiteral(t)
	case t.IsIRI() && t.Value == rdf.SmartNull:
		return Null(), nil
	}
	if p.dec == nil {
		if t.IsIRI() {
			return URI(t.Value), nil
		}
		return Null(), nil
	}
	g := p.dec.Graph()
	if _, ok := lists.Detect(g, t); ok {
		return p.guard(t, p.list)
	}
	types := g.Types(t)
	for _, typ := range types {
		switch typ {
		case rdf.SmartMap:
			return p.guard(t, p.mapValue)
		case rdf.SmartVariant:
			return p.guard(t, p.nested)
		}
	}
	if len(types) > 0 || (t.IsBlank() && len(g.Statements(t)) > 0) {
		obj, err := p.dec.DecodeObject(t)
		if err != nil {
			return Variant{}, err
		}
		return Object(obj), nil
	}
	if t.IsIRI() {
		return URI(t.Value), nil
	}
	return Null(), nil
}

func (p termParser) guard(t rdf.Term, fn func(rdf.Term) (Variant, error)) (Variant, error) {
	if p.active[t] {
		return Variant{}, rdf.Errorf(rdf.KindConversion, "GW-VAR-010", "value node %s contains itself", t)
	}
	p.active[t] = true
	defer delete(p.active, t)
	return fn(t)
}

func (p termParser) list(t rdf.Term) (Variant, error) {
	enc, terms, diags, err := lists.Decode(p.dec.Graph(), t)
	for _, d := range diags {
		p.dec.Diagnose(d)
	}
	if err != nil {
		return Variant{}, err
	}
	l := List{Detected: enc, Items: make([]Variant, len(terms))}
	if p.dec.PreserveListEncoding() {
		l.Encoding = enc
	}
	for i, term := range terms {
		item, err := p.parse(term)
		if err != nil {
			p.dec.Diagnose(err)
			item = Missing()
		}
		l.Items[i] = item
	}
	return Variant{kind: KindList, list: &l}, nil
}

func (p termParser) mapValue(t rdf.Term) (Variant, error) {
	g := p.dec.Graph()
	m := make(map[string]Variant)
	for _, e := range g.Objects(t, rdf.SmartEntry) {
		key, ok := g.Object(e, rdf.SmartKey)
		if !ok || !key.IsLiteral() {
			p.dec.Diagnose(rdf.Errorf(rdf.KindConversion, "GW-VAR-011", "map entry without key").About(t.Value))
			continue
		}
		raw, _ := g.Object(e, rdf.RDFValue)
		val, err := p.parse(raw)
		if err != nil {
			p.dec.Diagnose(err)
			continue
		}
		m[key.Value] = val
	}
	return Variant{kind: KindMap, m: m}, nil
}

func (p termParser) nested(t rdf.Term) (Variant, error) {
	raw, _ := p.dec.Graph().Object(t, rdf.RDFValue)
	inner, err := p.parse(raw)
	if err != nil {
		return Variant{}, err
	}
	return Nested(inner), nil
}
