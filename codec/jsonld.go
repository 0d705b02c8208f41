package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/piprate/json-gold/ld"

	"xdao.co/graphwire/rdf"
)

const (
	jsonldDefaultGraph = "@default"
	rdfLangString      = rdf.NSRDF + "langString"
)

// offlineLoader refuses every remote document. Contexts must be inline.
type offlineLoader struct{}

func (offlineLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return nil, fmt.Errorf("remote document %q is not loaded", u)
}

func jsonldOptions() *ld.JsonLdOptions {
	opts := ld.NewJsonLdOptions("")
	opts.DocumentLoader = offlineLoader{}
	return opts
}

// writeJSONLD converts g to expanded JSON-LD and compacts it against the
// graph's prefix table.
func writeJSONLD(g *rdf.Graph) (string, error) {
	p := g.Prefixes
	if p == nil {
		p = rdf.DefaultPrefixes()
	}
	ds := ld.NewRDFDataset()
	quads := make([]*ld.Quad, 0, g.Len())
	for _, t := range g.Triples() {
		quads = append(quads, ld.NewQuad(jsonldNode(t.S), ld.NewIRI(t.P.Value), jsonldNode(t.O), jsonldDefaultGraph))
	}
	ds.Graphs[jsonldDefaultGraph] = quads

	proc := ld.NewJsonLdProcessor()
	opts := jsonldOptions()
	expanded, err := proc.FromRDF(ds, opts)
	if err != nil {
		return "", rdf.WrapError(rdf.KindRender, "GW-JSONLD-101", "json-ld conversion failed", err)
	}
	ctx := make(map[string]interface{})
	for _, name := range p.Names() {
		ns, _ := p.Namespace(name)
		ctx[name] = ns
	}
	doc, err := proc.Compact(expanded, ctx, opts)
	if err != nil {
		return "", rdf.WrapError(rdf.KindRender, "GW-JSONLD-102", "json-ld compaction failed", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", rdf.WrapError(rdf.KindRender, "GW-JSONLD-103", "json-ld encode failed", err)
	}
	return buf.String(), nil
}

// jsonldNode maps a term onto the processor's dataset model. JSON-LD has no
// untyped literals, so a plain literal is written with the datatype it would
// be read as.
func jsonldNode(t rdf.Term) ld.Node {
	switch t.Kind {
	case rdf.TermBlank:
		return ld.NewBlankNode("_:" + t.Value)
	case rdf.TermIRI:
		return ld.NewIRI(t.Value)
	}
	switch {
	case t.Lang != "":
		return ld.NewLiteral(t.Value, rdfLangString, t.Lang)
	case t.Datatype == "":
		return ld.NewLiteral(t.Value, rdf.InferDatatype(t.Value), "")
	}
	return ld.NewLiteral(t.Value, t.Datatype, "")
}

func parseJSONLD(text string, g *rdf.Graph, diags *rdf.Diagnostics) {
	var doc interface{}
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&doc); err != nil {
		diags.Add(rdf.WrapError(rdf.KindParse, "GW-JSONLD-001", "invalid json: "+err.Error(), err))
		return
	}
	switch doc.(type) {
	case map[string]interface{}, []interface{}:
	default:
		diags.Add(rdf.NewError(rdf.KindParse, "GW-JSONLD-002", "document must be an object or array"))
		return
	}

	out, err := ld.NewJsonLdProcessor().ToRDF(doc, jsonldOptions())
	if err != nil {
		diags.Add(rdf.WrapError(rdf.KindParse, "GW-JSONLD-003", "json-ld processing failed: "+err.Error(), err))
		return
	}
	ds, ok := out.(*ld.RDFDataset)
	if !ok {
		diags.Add(rdf.Errorf(rdf.KindInternal, "GW-JSONLD-004", "unexpected json-ld result %T", out))
		return
	}

	blanks := newBlankMap(g)
	for _, q := range ds.Graphs[jsonldDefaultGraph] {
		s, err := jsonldTerm(q.Subject, blanks)
		if err != nil {
			diags.Add(parseError("GW-JSONLD-010", err))
			continue
		}
		pred, err := jsonldTerm(q.Predicate, blanks)
		if err != nil {
			diags.Add(parseError("GW-JSONLD-010", err))
			continue
		}
		o, err := jsonldTerm(q.Object, blanks)
		if err != nil {
			diags.Add(parseError("GW-JSONLD-010", err))
			continue
		}
		if err := g.Add(s, pred, o); err != nil {
			diags.Add(err)
		}
	}

	var named []string
	for name, quads := range ds.Graphs {
		if name != jsonldDefaultGraph && len(quads) > 0 {
			named = append(named, name)
		}
	}
	sort.Strings(named)
	for _, name := range named {
		diags.Add(rdf.Errorf(rdf.KindParse, "GW-JSONLD-011", "named graph %q is not loaded", name))
	}
}

func jsonldTerm(n ld.Node, blanks *blankMap) (rdf.Term, error) {
	switch v := n.(type) {
	case *ld.IRI:
		return rdf.IRI(v.Value), nil
	case *ld.BlankNode:
		return blanks.get(strings.TrimPrefix(v.Attribute, "_:")), nil
	case *ld.Literal:
		if v.Language != "" {
			return rdf.LangLiteral(v.Value, v.Language), nil
		}
		return rdf.Literal(v.Value, v.Datatype), nil
	}
	return rdf.Term{}, fmt.Errorf("unsupported json-ld node %T", n)
}
