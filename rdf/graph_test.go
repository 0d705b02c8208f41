package rdf

import "testing"

func TestGraphAddRejectsInvalidSlots(t *testing.T) {
	g := NewGraph()
	s := IRI("http://example.org/a")
	p := IRI("http://example.org/p")

	if err := g.Add(Term{}, p, Literal("x", "")); !IsKind(err, KindInternal) {
		t.Fatalf("zero subject: got %v", err)
	}
	if err := g.Add(s, Literal("p", ""), Literal("x", "")); RuleID(err) != "GW-GRAPH-002" {
		t.Fatalf("literal predicate: got %v", err)
	}
	if err := g.Add(s, p, Term{}); RuleID(err) != "GW-GRAPH-003" {
		t.Fatalf("zero object: got %v", err)
	}
	if g.Len() != 0 {
		t.Fatalf("expected empty graph, got %d triples", g.Len())
	}
}

func TestGraphAddDeduplicates(t *testing.T) {
	g := NewGraph()
	s := IRI("http://example.org/a")
	p := IRI("http://example.org/p")
	for i := 0; i < 3; i++ {
		if err := g.Add(s, p, Literal("x", XSDString)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 triple, got %d", g.Len())
	}
}

func TestAddResourceSharedChildEmittedOnce(t *testing.T) {
	g := NewGraph()
	shared := NewResource("").Add(RDFSLabel, Literal("shared", XSDString))
	root := NewResource("http://example.org/root").
		Add("http://example.org/left", shared).
		Add("http://example.org/right", shared)

	if _, err := g.AddResource(root); err != nil {
		t.Fatalf("AddResource: %v", err)
	}
	// two edges from root plus one label on the shared node
	if g.Len() != 3 {
		t.Fatalf("expected 3 triples, got %d", g.Len())
	}
	left, _ := g.Object(IRI("http://example.org/root"), "http://example.org/left")
	right, _ := g.Object(IRI("http://example.org/root"), "http://example.org/right")
	if left != right {
		t.Fatalf("shared child split into %v and %v", left, right)
	}
}

func TestAddResourceTerminatesOnCycle(t *testing.T) {
	g := NewGraph()
	a := NewResource("http://example.org/a").AddType("http://example.org/Node")
	b := NewResource("http://example.org/b").AddType("http://example.org/Node")
	a.Add("http://example.org/next", b)
	b.Add("http://example.org/next", a)

	if _, err := g.AddResource(a); err != nil {
		t.Fatalf("AddResource: %v", err)
	}
	if g.Len() != 4 {
		t.Fatalf("expected 4 triples, got %d", g.Len())
	}
	top, ok := g.TopNode()
	if !ok || top != IRI("http://example.org/a") {
		t.Fatalf("cyclic TopNode: got %v", top)
	}
}

func TestTopNodePrefersOrphanTypedSubject(t *testing.T) {
	g := NewGraph()
	child := IRI("http://example.org/child")
	root := IRI("http://example.org/root")
	typ := IRI(RDFType)
	_ = g.Add(child, typ, IRI("http://example.org/Child"))
	_ = g.Add(root, typ, IRI("http://example.org/Root"))
	_ = g.Add(root, IRI("http://example.org/has"), child)

	top, ok := g.TopNode()
	if !ok || top != root {
		t.Fatalf("TopNode: got %v want %v", top, root)
	}
}

func TestTopNodeUntypedRootOverTypedChild(t *testing.T) {
	g := NewGraph()
	child := IRI("http://example.org/child")
	root := IRI("http://example.org/root")
	_ = g.Add(child, IRI(RDFType), IRI("http://example.org/Child"))
	_ = g.Add(root, IRI("http://example.org/has"), child)

	top, ok := g.TopNode()
	if !ok || top != root {
		t.Fatalf("TopNode: got %v want %v", top, root)
	}
}

func TestPrefixesCompactAndExpand(t *testing.T) {
	p := DefaultPrefixes()
	got, ok := p.Compact(SmartIndexedArray)
	if !ok || got != "smartapi:indexedArray" {
		t.Fatalf("Compact: got %q %v", got, ok)
	}
	if _, ok := p.Compact("http://example.org/x"); ok {
		t.Fatalf("Compact should fail without a namespace")
	}
	iri, ok := p.Expand("xsd:integer")
	if !ok || iri != XSDInteger {
		t.Fatalf("Expand: got %q %v", iri, ok)
	}
}
