package rdf

import (
	"strings"
)

// TermKind distinguishes the three kinds of graph terms.
type TermKind uint8

const (
	TermInvalid TermKind = iota
	TermIRI
	TermBlank
	TermLiteral
)

func (k TermKind) String() string {
	switch k {
	case TermIRI:
		return "iri"
	case TermBlank:
		return "blank"
	case TermLiteral:
		return "literal"
	default:
		return "invalid"
	}
}

// Term is one slot of a triple.
//
// For IRIs Value holds the absolute IRI, for blank nodes the call-local
// label, and for literals the lexical form. Datatype and Lang only apply to
// literals. Term is comparable and can key maps.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Lang     string
}

// Node is anything that can fill the object slot of a Resource property:
// a Term or a nested *Resource.
type Node interface {
	node()
}

func (Term) node() {}

func IRI(v string) Term { return Term{Kind: TermIRI, Value: v} }

func Blank(label string) Term { return Term{Kind: TermBlank, Value: label} }

// Literal returns a typed literal. An empty datatype yields a plain literal.
func Literal(lexical, datatype string) Term {
	return Term{Kind: TermLiteral, Value: lexical, Datatype: datatype}
}

// LangLiteral returns a language-tagged string literal.
func LangLiteral(lexical, lang string) Term {
	return Term{Kind: TermLiteral, Value: lexical, Lang: strings.ToLower(lang)}
}

func (t Term) IsZero() bool     { return t.Kind == TermInvalid }
func (t Term) IsIRI() bool      { return t.Kind == TermIRI }
func (t Term) IsBlank() bool    { return t.Kind == TermBlank }
func (t Term) IsLiteral() bool  { return t.Kind == TermLiteral }
func (t Term) IsResource() bool { return t.Kind == TermIRI || t.Kind == TermBlank }

// String renders the term in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case TermIRI:
		return "<" + EscapeIRI(t.Value) + ">"
	case TermBlank:
		return "_:" + t.Value
	case TermLiteral:
		s := `"` + EscapeString(t.Value) + `"`
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^<" + EscapeIRI(t.Datatype) + ">"
		}
		return s
	default:
		return "<invalid>"
	}
}

// Triple is one (subject, predicate, object) fact.
type Triple struct {
	S, P, O Term
}

func (t Triple) String() string {
	return t.S.String() + " " + t.P.String() + " " + t.O.String() + " ."
}

// EscapeString escapes a literal lexical form for the quoted forms shared by
// Turtle and N-Triples.
func EscapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7F {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[r>>4])
				b.WriteByte(hexDigits[r&0xF])
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

const hexDigits = "0123456789ABCDEF"

// EscapeIRI escapes the characters that may not appear inside <...>.
func EscapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ ") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\', ' ':
			b.WriteString(`\u00`)
			b.WriteByte(hexDigits[r>>4])
			b.WriteByte(hexDigits[r&0xF])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
