package codec

import (
	"net/url"
	"strings"

	"xdao.co/graphwire/rdf"
)

func writeTurtle(g *rdf.Graph) string {
	p := g.Prefixes
	if p == nil {
		p = rdf.DefaultPrefixes()
	}
	var sb strings.Builder
	for _, name := range p.Names() {
		ns, _ := p.Namespace(name)
		sb.WriteString("@prefix " + name + ": <" + rdf.EscapeIRI(ns) + "> .\n")
	}
	for _, s := range g.Subjects() {
		sb.WriteByte('\n')
		sb.WriteString(turtleTerm(p, s))
		for i, st := range g.Statements(s) {
			if i == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(" ;\n    ")
			}
			if st.P.Value == rdf.RDFType {
				sb.WriteString("a")
			} else {
				sb.WriteString(turtleTerm(p, st.P))
			}
			sb.WriteByte(' ')
			sb.WriteString(turtleTerm(p, st.O))
		}
		sb.WriteString(" .\n")
	}
	return sb.String()
}

func turtleTerm(p *rdf.Prefixes, t rdf.Term) string {
	switch t.Kind {
	case rdf.TermIRI:
		if c, ok := p.Compact(t.Value); ok {
			return c
		}
		return "<" + rdf.EscapeIRI(t.Value) + ">"
	case rdf.TermLiteral:
		s := `"` + rdf.EscapeString(t.Value) + `"`
		switch {
		case t.Lang != "":
			return s + "@" + t.Lang
		case t.Datatype != "":
			return s + "^^" + turtleTerm(p, rdf.IRI(t.Datatype))
		}
		return s
	default:
		return t.String()
	}
}

type turtleParser struct {
	s        *scanner
	g        *rdf.Graph
	prefixes *rdf.Prefixes
	base     string
	blanks   *blankMap
	pending  []rdf.Triple
}

func parseTurtle(text string, g *rdf.Graph, diags *rdf.Diagnostics) {
	p := &turtleParser{
		s:        newScanner(text),
		g:        g,
		prefixes: &rdf.Prefixes{},
		blanks:   newBlankMap(g),
	}
	for {
		p.s.skipSpace()
		if p.s.eof() {
			return
		}
		if err := p.statement(); err != nil {
			diags.Add(parseError("GW-TTL-001", err))
			p.pending = nil
			p.recover()
			continue
		}
		for _, t := range p.pending {
			if err := g.Add(t.S, t.P, t.O); err != nil {
				diags.Add(err)
			}
		}
		p.pending = p.pending[:0]
	}
}

// recover skips past the next statement terminator.
func (p *turtleParser) recover() {
	s := p.s
	for !s.eof() {
		start := s.pos
		switch c := s.peek(); c {
		case '"', '\'':
			_, _ = s.readQuoted()
		case '<':
			_, _ = s.readIRIRef()
		case '.':
			s.next()
			if s.eof() || isSpace(s.peek()) {
				return
			}
		default:
			s.next()
		}
		if s.pos == start {
			s.next()
		}
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }

func (p *turtleParser) keyword(word string) bool {
	s := p.s
	if len(s.src)-s.pos < len(word) || !strings.EqualFold(s.src[s.pos:s.pos+len(word)], word) {
		return false
	}
	after := s.peekAt(len(word))
	return after == 0 || isSpace(after) || after == '<'
}

func (p *turtleParser) statement() error {
	s := p.s
	switch {
	case s.hasPrefix("@prefix"):
		s.pos += len("@prefix")
		return p.prefixDecl(true)
	case p.keyword("PREFIX"):
		s.pos += len("PREFIX")
		return p.prefixDecl(false)
	case s.hasPrefix("@base"):
		s.pos += len("@base")
		return p.baseDecl(true)
	case p.keyword("BASE"):
		s.pos += len("BASE")
		return p.baseDecl(false)
	}
	if err := p.triples(); err != nil {
		return err
	}
	s.skipSpace()
	return s.expect('.')
}

func (p *turtleParser) prefixDecl(dotted bool) error {
	s := p.s
	s.skipSpace()
	start := s.pos
	for !s.eof() && s.peek() != ':' && !isSpace(s.peek()) {
		s.next()
	}
	prefix := s.src[start:s.pos]
	if err := s.expect(':'); err != nil {
		return err
	}
	s.skipSpace()
	iri, err := s.readIRIRef()
	if err != nil {
		return err
	}
	p.prefixes.Set(prefix, p.resolve(iri))
	p.g.Prefixes.Set(prefix, p.resolve(iri))
	if dotted {
		s.skipSpace()
		return s.expect('.')
	}
	return nil
}

func (p *turtleParser) baseDecl(dotted bool) error {
	s := p.s
	s.skipSpace()
	iri, err := s.readIRIRef()
	if err != nil {
		return err
	}
	p.base = p.resolve(iri)
	if dotted {
		s.skipSpace()
		return s.expect('.')
	}
	return nil
}

func (p *turtleParser) resolve(ref string) string {
	if p.base == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	b, err := url.Parse(p.base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(u).String()
}

func (p *turtleParser) emit(s, pred, o rdf.Term) {
	p.pending = append(p.pending, rdf.Triple{S: s, P: pred, O: o})
}

func (p *turtleParser) triples() error {
	s := p.s
	if s.peek() == '[' {
		subj, err := p.blankPropertyList()
		if err != nil {
			return err
		}
		s.skipSpace()
		if s.peek() == '.' {
			return nil
		}
		return p.predicateObjectList(subj)
	}
	subj, err := p.subject()
	if err != nil {
		return err
	}
	return p.predicateObjectList(subj)
}

func (p *turtleParser) subject() (rdf.Term, error) {
	s := p.s
	switch {
	case s.peek() == '(':
		return p.collection()
	case s.hasPrefix("_:"):
		label, err := s.readBlankLabel()
		if err != nil {
			return rdf.Term{}, err
		}
		return p.blanks.get(label), nil
	}
	return p.iri()
}

func (p *turtleParser) iri() (rdf.Term, error) {
	if p.s.peek() == '<' {
		iri, err := p.s.readIRIRef()
		if err != nil {
			return rdf.Term{}, err
		}
		return rdf.IRI(p.resolve(iri)), nil
	}
	return p.prefixedName()
}

func (p *turtleParser) prefixedName() (rdf.Term, error) {
	s := p.s
	start := s.pos
	for !s.eof() && s.peek() != ':' {
		c := s.peek()
		if !isNameByte(c) && !(c == '.' && isNameByte(s.peekAt(1))) {
			return rdf.Term{}, s.errorf("unexpected %q", c)
		}
		s.next()
	}
	prefix := s.src[start:s.pos]
	if err := s.expect(':'); err != nil {
		return rdf.Term{}, err
	}
	var local strings.Builder
	for !s.eof() {
		c := s.peek()
		switch {
		case isNameByte(c) || c == ':':
			local.WriteByte(s.next())
		case c == '.' && (isNameByte(s.peekAt(1)) || s.peekAt(1) == ':'):
			local.WriteByte(s.next())
		case c == '\\' && s.peekAt(1) != 0:
			s.next()
			local.WriteByte(s.next())
		case c == '%' && s.pos+2 < len(s.src):
			local.WriteString(s.src[s.pos : s.pos+3])
			s.pos += 3
		default:
			return p.expand(prefix, local.String())
		}
	}
	return p.expand(prefix, local.String())
}

func (p *turtleParser) expand(prefix, local string) (rdf.Term, error) {
	if ns, ok := p.prefixes.Namespace(prefix); ok {
		return rdf.IRI(ns + local), nil
	}
	// Undeclared well-known prefixes are tolerated.
	if ns, ok := rdf.DefaultPrefixes().Namespace(prefix); ok {
		return rdf.IRI(ns + local), nil
	}
	return rdf.Term{}, p.s.errorf("undeclared prefix %q", prefix)
}

func (p *turtleParser) predicateObjectList(subj rdf.Term) error {
	s := p.s
	for {
		s.skipSpace()
		verb, err := p.verb()
		if err != nil {
			return err
		}
		if err := p.objectList(subj, verb); err != nil {
			return err
		}
		s.skipSpace()
		if s.peek() != ';' {
			return nil
		}
		for s.peek() == ';' {
			s.next()
			s.skipSpace()
		}
		if c := s.peek(); c == '.' || c == ']' || c == 0 {
			return nil
		}
	}
}

func (p *turtleParser) verb() (rdf.Term, error) {
	s := p.s
	if s.peek() == 'a' {
		if after := s.peekAt(1); isSpace(after) || after == '<' || after == '[' || after == '"' {
			s.next()
			return rdf.IRI(rdf.RDFType), nil
		}
	}
	return p.iri()
}

func (p *turtleParser) objectList(subj, verb rdf.Term) error {
	s := p.s
	for {
		s.skipSpace()
		o, err := p.object()
		if err != nil {
			return err
		}
		p.emit(subj, verb, o)
		s.skipSpace()
		if s.peek() != ',' {
			return nil
		}
		s.next()
	}
}

func (p *turtleParser) object() (rdf.Term, error) {
	s := p.s
	c := s.peek()
	switch {
	case c == '<':
		return p.iri()
	case s.hasPrefix("_:"):
		return p.subject()
	case c == '[':
		return p.blankPropertyList()
	case c == '(':
		return p.collection()
	case c == '"' || c == '\'':
		return p.literal()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case p.boolean("true"):
		s.pos += 4
		return rdf.Literal("true", rdf.XSDBoolean), nil
	case p.boolean("false"):
		s.pos += 5
		return rdf.Literal("false", rdf.XSDBoolean), nil
	}
	return p.prefixedName()
}

func (p *turtleParser) boolean(word string) bool {
	if !p.s.hasPrefix(word) {
		return false
	}
	after := p.s.peekAt(len(word))
	return !isNameByte(after) && after != ':'
}

func (p *turtleParser) literal() (rdf.Term, error) {
	s := p.s
	lex, err := s.readQuoted()
	if err != nil {
		return rdf.Term{}, err
	}
	switch {
	case s.peek() == '@':
		lang, err := s.readLangTag()
		if err != nil {
			return rdf.Term{}, err
		}
		return rdf.LangLiteral(lex, lang), nil
	case s.hasPrefix("^^"):
		s.pos += 2
		dt, err := p.iri()
		if err != nil {
			return rdf.Term{}, err
		}
		return rdf.Literal(lex, dt.Value), nil
	}
	return rdf.Literal(lex, ""), nil
}

func (p *turtleParser) number() (rdf.Term, error) {
	s := p.s
	start := s.pos
	if c := s.peek(); c == '+' || c == '-' {
		s.next()
	}
	digits := func() int {
		n := 0
		for c := s.peek(); c >= '0' && c <= '9'; c = s.peek() {
			s.next()
			n++
		}
		return n
	}
	datatype := rdf.XSDInteger
	intDigits := digits()
	if s.peek() == '.' && s.peekAt(1) >= '0' && s.peekAt(1) <= '9' {
		s.next()
		digits()
		datatype = rdf.XSDDecimal
	} else if intDigits == 0 {
		return rdf.Term{}, s.errorf("invalid number")
	}
	if c := s.peek(); c == 'e' || c == 'E' {
		s.next()
		if c := s.peek(); c == '+' || c == '-' {
			s.next()
		}
		if digits() == 0 {
			return rdf.Term{}, s.errorf("invalid exponent")
		}
		datatype = rdf.XSDDouble
	}
	return rdf.Literal(s.src[start:s.pos], datatype), nil
}

func (p *turtleParser) blankPropertyList() (rdf.Term, error) {
	s := p.s
	if err := s.expect('['); err != nil {
		return rdf.Term{}, err
	}
	node := p.g.NewBlank()
	s.skipSpace()
	if s.peek() != ']' {
		if err := p.predicateObjectList(node); err != nil {
			return rdf.Term{}, err
		}
		s.skipSpace()
	}
	if err := s.expect(']'); err != nil {
		return rdf.Term{}, err
	}
	return node, nil
}

func (p *turtleParser) collection() (rdf.Term, error) {
	s := p.s
	if err := s.expect('('); err != nil {
		return rdf.Term{}, err
	}
	var items []rdf.Term
	for {
		s.skipSpace()
		if s.eof() {
			return rdf.Term{}, s.errorf("unterminated collection")
		}
		if s.peek() == ')' {
			s.next()
			break
		}
		o, err := p.object()
		if err != nil {
			return rdf.Term{}, err
		}
		items = append(items, o)
	}
	head := rdf.IRI(rdf.RDFNil)
	for i := len(items) - 1; i >= 0; i-- {
		cell := p.g.NewBlank()
		p.emit(cell, rdf.IRI(rdf.RDFFirst), items[i])
		p.emit(cell, rdf.IRI(rdf.RDFRest), head)
		head = cell
	}
	return head, nil
}
