package codec

import (
	"sort"
	"strings"
	"testing"

	"xdao.co/graphwire/rdf"
)

const ex = "http://example.org/"

func sampleGraph(t *testing.T) *rdf.Graph {
	t.Helper()
	g := rdf.NewGraph()
	s := rdf.IRI(ex + "alpha")
	add := func(p string, o rdf.Term) {
		if err := g.Add(s, rdf.IRI(p), o); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	add(rdf.RDFType, rdf.IRI(ex+"Record"))
	add(rdf.RDFSLabel, rdf.Literal("Alpha", rdf.XSDString))
	add(ex+"count", rdf.Literal("3", rdf.XSDInteger))
	add(ex+"ratio", rdf.Literal("0.25", rdf.XSDDouble))
	add(ex+"enabled", rdf.Literal("true", rdf.XSDBoolean))
	add(ex+"numeric-text", rdf.Literal("42", rdf.XSDString))
	add(ex+"quote", rdf.Literal("say \"hi\"\nline two\tTab é", rdf.XSDString))
	add(ex+"greeting", rdf.LangLiteral("hallo", "de"))
	add(ex+"plain", rdf.Literal("untyped", ""))
	add(ex+"link", rdf.IRI("http://other.example/ns/x%20y"))
	add(ex+"peer", rdf.IRI(ex+"beta"))
	if err := g.Add(rdf.IRI(ex+"beta"), rdf.IRI(rdf.RDFType), rdf.IRI(ex+"Record")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return g
}

func tripleSet(g *rdf.Graph) []string {
	var out []string
	for _, t := range g.Triples() {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}

// expectedAfter returns g as format f reads it back. JSON-LD has no untyped
// literals, so plain literals come back with their inferred datatype.
func expectedAfter(f Format, g *rdf.Graph) *rdf.Graph {
	if f != FormatJSONLD {
		return g
	}
	out := rdf.NewGraph()
	for _, t := range g.Triples() {
		o := t.O
		if o.IsLiteral() && o.Lang == "" && o.Datatype == "" {
			o = rdf.Literal(o.Value, rdf.InferDatatype(o.Value))
		}
		_ = out.Add(t.S, t.P, o)
	}
	return out
}

func TestRoundTripAllFormats(t *testing.T) {
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			g := sampleGraph(t)
			text, err := Serialize(g, f)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			back, diags, err := Parse(text, f)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(diags) != 0 {
				t.Fatalf("unexpected diagnostics: %v\n%s", diags.Err(), text)
			}
			want, got := tripleSet(expectedAfter(f, g)), tripleSet(back)
			if strings.Join(want, "\n") != strings.Join(got, "\n") {
				t.Fatalf("round trip mismatch\nwant:\n%s\ngot:\n%s\ntext:\n%s",
					strings.Join(want, "\n"), strings.Join(got, "\n"), text)
			}
		})
	}
}

func TestBlankNodesSurviveRoundTrip(t *testing.T) {
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			g := rdf.NewGraph()
			inner := rdf.NewResource("").Add(rdf.RDFSLabel, rdf.Literal("inner", rdf.XSDString))
			root := rdf.NewResource(ex+"root").Add(ex+"a", inner).Add(ex+"b", inner)
			if _, err := g.AddResource(root); err != nil {
				t.Fatalf("AddResource: %v", err)
			}
			text, err := Serialize(g, f)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			back, diags, _ := Parse(text, f)
			if len(diags) != 0 {
				t.Fatalf("diagnostics: %v", diags.Err())
			}
			a, okA := back.Object(rdf.IRI(ex+"root"), ex+"a")
			b, okB := back.Object(rdf.IRI(ex+"root"), ex+"b")
			if !okA || !okB || !a.IsBlank() || a != b {
				t.Fatalf("shared blank node not preserved: %v %v", a, b)
			}
			label, ok := back.Object(a, rdf.RDFSLabel)
			if !ok || label.Value != "inner" {
				t.Fatalf("blank node label lost: %v", label)
			}
			if back.Len() != 3 {
				t.Fatalf("expected 3 triples, got %d", back.Len())
			}
		})
	}
}

func TestTurtleRecoversFromMalformedStatement(t *testing.T) {
	text := `@prefix ex: <http://example.org/> .
ex:a ex:p "one" .
ex:b ex:p "unterminated .
ex:c ex:p "three" .
ex:d ex:p undeclared:thing .
ex:e ex:p 5 .
`
	g, diags, err := Parse(text, FormatTurtle)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(diags) == 0 {
		t.Fatalf("expected diagnostics")
	}
	for _, d := range diags {
		if d.Kind != rdf.KindParse {
			t.Fatalf("unexpected diagnostic kind %s", d.Kind)
		}
	}
	if !g.Has(rdf.IRI(ex+"a"), rdf.IRI(ex+"p"), rdf.Literal("one", "")) {
		t.Fatalf("statement before the error was lost")
	}
	if !g.Has(rdf.IRI(ex+"e"), rdf.IRI(ex+"p"), rdf.Literal("5", rdf.XSDInteger)) {
		t.Fatalf("statement after the errors was lost: %v", tripleSet(g))
	}
	if g.HasPredicate(rdf.IRI(ex+"d"), ex+"p") {
		t.Fatalf("statement with undeclared prefix should be skipped")
	}
}

func TestTurtleCollectionsAndAnonymousNodes(t *testing.T) {
	text := `PREFIX ex: <http://example.org/>
ex:s ex:items ( 1 2.5 "x" ) ;
     ex:owner [ ex:name "n" ; a ex:Person ] ;
     ex:flag false .
`
	g, diags, _ := Parse(text, FormatTurtle)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags.Err())
	}
	head, ok := g.Object(rdf.IRI(ex+"s"), ex+"items")
	if !ok {
		t.Fatalf("missing list head")
	}
	var items []rdf.Term
	for head.Value != rdf.RDFNil {
		first, _ := g.Object(head, rdf.RDFFirst)
		items = append(items, first)
		head, _ = g.Object(head, rdf.RDFRest)
	}
	if len(items) != 3 || items[1].Datatype != rdf.XSDDecimal || items[2].Value != "x" {
		t.Fatalf("unexpected collection items: %v", items)
	}
	owner, _ := g.Object(rdf.IRI(ex+"s"), ex+"owner")
	if types := g.Types(owner); len(types) != 1 || types[0] != ex+"Person" {
		t.Fatalf("anonymous node types: %v", types)
	}
	if !g.Has(rdf.IRI(ex+"s"), rdf.IRI(ex+"flag"), rdf.Literal("false", rdf.XSDBoolean)) {
		t.Fatalf("boolean literal missing")
	}
}

func TestNTriplesSkipsBadLine(t *testing.T) {
	text := "<http://example.org/a> <http://example.org/p> \"ok\" .\n" +
		"<http://example.org/b> <http://example.org/p> oops .\n" +
		"_:x <http://example.org/p> \"v\"^^<http://www.w3.org/2001/XMLSchema#string> .\n"
	g, diags, _ := Parse(text, FormatNTriples)
	if len(diags) != 1 || diags[0].RuleID != "GW-NT-001" {
		t.Fatalf("expected one GW-NT-001 diagnostic, got %v", diags)
	}
	if g.Len() != 2 {
		t.Fatalf("expected 2 triples, got %d", g.Len())
	}
}

func TestJSONLDInvalidDocument(t *testing.T) {
	g, diags, err := Parse("{not json", FormatJSONLD)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(diags) != 1 || !rdf.IsKind(diags[0], rdf.KindParse) || g.Len() != 0 {
		t.Fatalf("expected one parse diagnostic and an empty graph, got %v / %d", diags, g.Len())
	}
}

func TestJSONLDNativeValuesAndEmbeddedNodes(t *testing.T) {
	text := `{
  "@context": {"ex": "http://example.org/", "name": "http://example.org/name"},
  "@id": "ex:s",
  "@type": "ex:Thing",
  "name": "Alpha",
  "ex:count": 3,
  "ex:ratio": 1.5,
  "ex:on": true,
  "ex:child": {"ex:name": "kid"},
  "ex:seq": {"@list": [1, 2]},
  "bogus": "dropped"
}`
	g, diags, _ := Parse(text, FormatJSONLD)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags.Err())
	}
	s := rdf.IRI(ex + "s")
	if types := g.Types(s); len(types) != 1 || types[0] != ex+"Thing" {
		t.Fatalf("types: %v", types)
	}
	if !g.Has(s, rdf.IRI(ex+"count"), rdf.Literal("3", rdf.XSDInteger)) {
		t.Fatalf("integer missing: %v", tripleSet(g))
	}
	if !g.Has(s, rdf.IRI(ex+"ratio"), rdf.Literal("1.5E0", rdf.XSDDouble)) {
		t.Fatalf("double missing: %v", tripleSet(g))
	}
	if !g.Has(s, rdf.IRI(ex+"on"), rdf.Literal("true", rdf.XSDBoolean)) {
		t.Fatalf("boolean missing")
	}
	if !g.Has(s, rdf.IRI(ex+"name"), rdf.Literal("Alpha", rdf.XSDString)) {
		t.Fatalf("term-mapped property missing")
	}
	child, _ := g.Object(s, ex+"child")
	if !child.IsBlank() || !g.HasPredicate(child, ex+"name") {
		t.Fatalf("embedded node not flattened")
	}
	seq, _ := g.Object(s, ex+"seq")
	if !g.HasPredicate(seq, rdf.RDFFirst) {
		t.Fatalf("@list not converted")
	}
	for _, tr := range g.Triples() {
		if strings.Contains(tr.P.Value, "bogus") {
			t.Fatalf("unmapped key produced %s", tr)
		}
	}
}

func TestJSONLDRemoteContextIsNotFetched(t *testing.T) {
	text := `{"@context": "http://example.org/context.jsonld", "@id": "http://example.org/s", "name": "x"}`
	g, diags, _ := Parse(text, FormatJSONLD)
	if len(diags) != 1 || diags[0].RuleID != "GW-JSONLD-003" || g.Len() != 0 {
		t.Fatalf("expected one GW-JSONLD-003 diagnostic, got %v / %d", diags, g.Len())
	}
}

func TestControlCharactersInLiterals(t *testing.T) {
	lit := rdf.Literal("a\x01b\x1fc\x7f", rdf.XSDString)
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			g := rdf.NewGraph()
			if err := g.Add(rdf.IRI(ex+"s"), rdf.IRI(ex+"p"), lit); err != nil {
				t.Fatalf("Add: %v", err)
			}
			text, err := Serialize(g, f)
			if f == FormatRDFXML {
				if rdf.RuleID(err) != "GW-XML-102" {
					t.Fatalf("expected GW-XML-102, got %v\n%s", err, text)
				}
				return
			}
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			back, diags, _ := Parse(text, f)
			if len(diags) != 0 {
				t.Fatalf("diagnostics: %v\n%s", diags.Err(), text)
			}
			if !back.Has(rdf.IRI(ex+"s"), rdf.IRI(ex+"p"), lit) {
				t.Fatalf("literal changed: %v\n%s", tripleSet(back), text)
			}
		})
	}
}

func TestUntypedAndStringLiteralsStayDistinct(t *testing.T) {
	plain := rdf.Literal("42", "")
	typed := rdf.Literal("42", rdf.XSDString)
	for _, f := range []Format{FormatTurtle, FormatNTriples, FormatRDFXML} {
		t.Run(string(f), func(t *testing.T) {
			g := rdf.NewGraph()
			_ = g.Add(rdf.IRI(ex+"s"), rdf.IRI(ex+"plain"), plain)
			_ = g.Add(rdf.IRI(ex+"s"), rdf.IRI(ex+"typed"), typed)
			text, err := Serialize(g, f)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			back, _, _ := Parse(text, f)
			if !back.Has(rdf.IRI(ex+"s"), rdf.IRI(ex+"plain"), plain) || !back.Has(rdf.IRI(ex+"s"), rdf.IRI(ex+"typed"), typed) {
				t.Fatalf("literal forms merged: %v\n%s", tripleSet(back), text)
			}
		})
	}
}

func TestEscapedIRIs(t *testing.T) {
	iri := rdf.IRI("http://other.example/ns/x y")
	for _, f := range []Format{FormatTurtle, FormatNTriples, FormatRDFXML} {
		g := rdf.NewGraph()
		_ = g.Add(rdf.IRI(ex+"s"), rdf.IRI(ex+"link"), iri)
		text, err := Serialize(g, f)
		if err != nil {
			t.Fatalf("%s: Serialize: %v", f, err)
		}
		back, diags, _ := Parse(text, f)
		if len(diags) != 0 || !back.Has(rdf.IRI(ex+"s"), rdf.IRI(ex+"link"), iri) {
			t.Fatalf("%s: IRI not preserved: %v %v\n%s", f, diags, tripleSet(back), text)
		}
	}
}

func TestRDFXMLTypedNodesAndParseTypeResource(t *testing.T) {
	text := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:ex="http://example.org/">
  <ex:Record rdf:about="http://example.org/r1" ex:code="A1">
    <ex:count rdf:datatype="http://www.w3.org/2001/XMLSchema#integer">7</ex:count>
    <ex:address rdf:parseType="Resource">
      <ex:city>Espoo</ex:city>
    </ex:address>
    <ex:owner>
      <ex:Person rdf:about="http://example.org/p1"/>
    </ex:owner>
  </ex:Record>
  <rdf:Description rdf:about="http://example.org/r2">
    <unqualified>x</unqualified>
  </rdf:Description>
</rdf:RDF>`
	g, diags, _ := Parse(text, FormatRDFXML)
	if len(diags) != 1 || diags[0].RuleID != "GW-XML-011" {
		t.Fatalf("expected one GW-XML-011 diagnostic, got %v", diags)
	}
	r1 := rdf.IRI(ex + "r1")
	if types := g.Types(r1); len(types) != 1 || types[0] != ex+"Record" {
		t.Fatalf("typed node element: %v", types)
	}
	if !g.Has(r1, rdf.IRI(ex+"code"), rdf.Literal("A1", "")) {
		t.Fatalf("attribute property missing")
	}
	if !g.Has(r1, rdf.IRI(ex+"count"), rdf.Literal("7", rdf.XSDInteger)) {
		t.Fatalf("typed literal missing")
	}
	addr, _ := g.Object(r1, ex+"address")
	if city, _ := g.Object(addr, ex+"city"); city.Value != "Espoo" {
		t.Fatalf("parseType=Resource not expanded: %v", city)
	}
	if !g.Has(r1, rdf.IRI(ex+"owner"), rdf.IRI(ex+"p1")) {
		t.Fatalf("nested node element not linked")
	}
}

func TestFormatLookup(t *testing.T) {
	cases := map[string]Format{
		"text/turtle":                    FormatTurtle,
		"application/x-turtle":           FormatTurtle,
		"application/ld+json; charset=x": FormatJSONLD,
		"application/rdf+xml":            FormatRDFXML,
		"application/n-triples":          FormatNTriples,
	}
	for ct, want := range cases {
		if got, ok := FormatFor(ct); !ok || got != want {
			t.Fatalf("FormatFor(%q) = %q, %v", ct, got, ok)
		}
	}
	if _, ok := FormatFor("image/png"); ok {
		t.Fatalf("FormatFor should reject unknown types")
	}
	if f, ok := Lookup(".ttl"); !ok || f != FormatTurtle {
		t.Fatalf("Lookup(.ttl) = %q", f)
	}
	if _, err := Serialize(rdf.NewGraph(), Format("yaml")); !rdf.IsKind(err, rdf.KindRender) {
		t.Fatalf("expected render error, got %v", err)
	}
}
