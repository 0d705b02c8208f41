package codec

import (
	"strings"

	"xdao.co/graphwire/rdf"
)

func writeNTriples(g *rdf.Graph) string {
	var sb strings.Builder
	for _, t := range g.Triples() {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func parseNTriples(text string, g *rdf.Graph, diags *rdf.Diagnostics) {
	blanks := newBlankMap(g)
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s := newScanner(line)
		s.line = i + 1
		t, err := readNTriple(s, blanks)
		if err != nil {
			diags.Add(parseError("GW-NT-001", err))
			continue
		}
		if err := g.Add(t.S, t.P, t.O); err != nil {
			diags.Add(err)
		}
	}
}

func readNTriple(s *scanner, blanks *blankMap) (rdf.Triple, error) {
	var t rdf.Triple
	var err error
	if t.S, err = readNTSubject(s, blanks); err != nil {
		return t, err
	}
	s.skipSpace()
	iri, err := s.readIRIRef()
	if err != nil {
		return t, err
	}
	t.P = rdf.IRI(iri)
	s.skipSpace()
	if t.O, err = readNTObject(s, blanks); err != nil {
		return t, err
	}
	s.skipSpace()
	if err := s.expect('.'); err != nil {
		return t, err
	}
	s.skipSpace()
	if !s.eof() {
		return t, s.errorf("trailing content after '.'")
	}
	return t, nil
}

func readNTSubject(s *scanner, blanks *blankMap) (rdf.Term, error) {
	switch s.peek() {
	case '<':
		iri, err := s.readIRIRef()
		return rdf.IRI(iri), err
	case '_':
		label, err := s.readBlankLabel()
		if err != nil {
			return rdf.Term{}, err
		}
		return blanks.get(label), nil
	}
	return rdf.Term{}, s.errorf("expected subject")
}

func readNTObject(s *scanner, blanks *blankMap) (rdf.Term, error) {
	if s.peek() != '"' {
		return readNTSubject(s, blanks)
	}
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
		dt, err := s.readIRIRef()
		if err != nil {
			return rdf.Term{}, err
		}
		return rdf.Literal(lex, dt), nil
	}
	return rdf.Literal(lex, ""), nil
}
