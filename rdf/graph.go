package rdf

import (
	"strconv"
)

// Graph is an in-memory triple store.
//
// A Graph lives for one serialize or parse call. Blank node labels it hands
// out are only meaningful inside that Graph. Insertion order is preserved so
// that writers are deterministic. Duplicate triples are ignored.
type Graph struct {
	Prefixes *Prefixes

	triples   []Triple
	seen      map[Triple]struct{}
	bySubject map[Term][]int
	subjects  []Term
	asObject  map[Term]int
	blanks    int
}

func NewGraph() *Graph {
	return &Graph{
		Prefixes:  DefaultPrefixes(),
		seen:      make(map[Triple]struct{}),
		bySubject: make(map[Term][]int),
		asObject:  make(map[Term]int),
	}
}

// Node returns the IRI node for id, or a fresh blank node when id is empty.
func (g *Graph) Node(id string) Term {
	if id == "" {
		return g.NewBlank()
	}
	return IRI(id)
}

// NewBlank allocates a blank node label unique within g.
func (g *Graph) NewBlank() Term {
	g.blanks++
	return Blank("b" + strconv.Itoa(g.blanks))
}

// Add inserts one triple. Zero or ill-kinded slots are rejected.
func (g *Graph) Add(s, p, o Term) error {
	if !s.IsResource() {
		return Errorf(KindInternal, "GW-GRAPH-001", "invalid subject %s", s.Kind)
	}
	if !p.IsIRI() {
		return Errorf(KindInternal, "GW-GRAPH-002", "invalid predicate %s", p.Kind)
	}
	if o.IsZero() {
		return NewError(KindInternal, "GW-GRAPH-003", "missing object")
	}
	t := Triple{S: s, P: p, O: o}
	if _, dup := g.seen[t]; dup {
		return nil
	}
	g.seen[t] = struct{}{}
	if _, ok := g.bySubject[s]; !ok {
		g.subjects = append(g.subjects, s)
	}
	g.bySubject[s] = append(g.bySubject[s], len(g.triples))
	g.triples = append(g.triples, t)
	if o.IsResource() {
		g.asObject[o]++
	}
	return nil
}

func (g *Graph) Len() int { return len(g.triples) }

// Triples returns a copy of all triples in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

func (g *Graph) Has(s, p, o Term) bool {
	_, ok := g.seen[Triple{S: s, P: p, O: o}]
	return ok
}

// Subjects returns every subject in order of first appearance.
func (g *Graph) Subjects() []Term {
	out := make([]Term, len(g.subjects))
	copy(out, g.subjects)
	return out
}

// Statements returns a view of every triple whose subject is s.
func (g *Graph) Statements(s Term) []Statement {
	idx := g.bySubject[s]
	out := make([]Statement, 0, len(idx))
	for _, i := range idx {
		out = append(out, Statement{Graph: g, Triple: g.triples[i]})
	}
	return out
}

// Objects returns the objects of (s, predicate, *) in insertion order.
func (g *Graph) Objects(s Term, predicate string) []Term {
	var out []Term
	for _, i := range g.bySubject[s] {
		if t := g.triples[i]; t.P.Value == predicate {
			out = append(out, t.O)
		}
	}
	return out
}

// Object returns the first object of (s, predicate, *).
func (g *Graph) Object(s Term, predicate string) (Term, bool) {
	for _, i := range g.bySubject[s] {
		if t := g.triples[i]; t.P.Value == predicate {
			return t.O, true
		}
	}
	return Term{}, false
}

// HasPredicate reports whether s has at least one predicate edge.
func (g *Graph) HasPredicate(s Term, predicate string) bool {
	_, ok := g.Object(s, predicate)
	return ok
}

// Types returns the rdf:type IRIs declared on s, in declaration order.
func (g *Graph) Types(s Term) []string {
	var out []string
	for _, o := range g.Objects(s, RDFType) {
		if o.IsIRI() {
			out = append(out, o.Value)
		}
	}
	return out
}

// IsObject reports whether t appears in the object slot of any triple.
func (g *Graph) IsObject(t Term) bool { return g.asObject[t] > 0 }

// TopNode returns the root of a serialized object graph: the first typed
// subject that no triple points to, else the first subject of any kind that
// no triple points to. Cyclic graphs fall back to the first typed subject,
// then to the first subject.
func (g *Graph) TopNode() (Term, bool) {
	var firstTyped, firstOrphan Term
	for _, s := range g.subjects {
		orphan := !g.IsObject(s)
		if !g.HasPredicate(s, RDFType) {
			if orphan && firstOrphan.IsZero() {
				firstOrphan = s
			}
			continue
		}
		if orphan {
			return s, true
		}
		if firstTyped.IsZero() {
			firstTyped = s
		}
	}
	if !firstOrphan.IsZero() {
		return firstOrphan, true
	}
	if !firstTyped.IsZero() {
		return firstTyped, true
	}
	if len(g.subjects) > 0 {
		return g.subjects[0], true
	}
	return Term{}, false
}
