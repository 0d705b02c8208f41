package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"xdao.co/graphwire/rdf"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

func writeRDFXML(g *rdf.Graph) (string, error) {
	ns := newXMLNamespaces(g.Prefixes)
	var body strings.Builder
	for _, s := range g.Subjects() {
		if err := xmlCarries(s); err != nil {
			return "", err
		}
		body.WriteString("  <rdf:Description ")
		body.WriteString(xmlNodeAttr("about", s))
		body.WriteString(">\n")
		for _, st := range g.Statements(s) {
			qname, err := ns.qname(st.P.Value)
			if err != nil {
				return "", err
			}
			if err := xmlCarries(st.O); err != nil {
				return "", err
			}
			body.WriteString("    <" + qname)
			switch o := st.O; {
			case o.IsResource():
				body.WriteString(" " + xmlNodeAttr("resource", o) + "/>\n")
				continue
			case o.Lang != "":
				body.WriteString(` xml:lang="` + xmlEscape(o.Lang) + `"`)
			case o.Datatype != "":
				body.WriteString(` rdf:datatype="` + xmlEscape(o.Datatype) + `"`)
			}
			body.WriteString(">" + xmlEscape(st.O.Value) + "</" + qname + ">\n")
		}
		body.WriteString("  </rdf:Description>\n")
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	sb.WriteString("<rdf:RDF")
	for _, prefix := range ns.order {
		sb.WriteString("\n    xmlns:" + prefix + `="` + xmlEscape(ns.byPrefix[prefix]) + `"`)
	}
	sb.WriteString(">\n")
	sb.WriteString(body.String())
	sb.WriteString("</rdf:RDF>\n")
	return sb.String(), nil
}

func xmlNodeAttr(iriAttr string, t rdf.Term) string {
	if t.IsBlank() {
		return `rdf:nodeID="` + xmlEscape(t.Value) + `"`
	}
	return "rdf:" + iriAttr + `="` + xmlEscape(t.Value) + `"`
}

// xmlCarries rejects terms holding characters outside the XML 1.0 Char
// production. xml.EscapeText would replace them with U+FFFD.
func xmlCarries(t rdf.Term) error {
	for _, v := range []string{t.Value, t.Datatype, t.Lang} {
		if !utf8.ValidString(v) {
			return rdf.Errorf(rdf.KindRender, "GW-XML-102", "%s is not valid UTF-8", t.Kind)
		}
		for i, r := range v {
			if !isXMLChar(r) {
				return rdf.Errorf(rdf.KindRender, "GW-XML-102",
					"%s holds U+%04X at byte %d, which XML 1.0 cannot carry", t.Kind, r, i)
			}
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09, r == 0x0A, r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// xmlNamespaces assigns prefixes to predicate namespaces. Known prefixes are
// reused; others get generated ns0, ns1, ... names.
type xmlNamespaces struct {
	known    *rdf.Prefixes
	byNS     map[string]string
	byPrefix map[string]string
	order    []string
}

func newXMLNamespaces(known *rdf.Prefixes) *xmlNamespaces {
	n := &xmlNamespaces{known: known, byNS: map[string]string{}, byPrefix: map[string]string{}}
	n.bind("rdf", rdf.NSRDF)
	return n
}

func (n *xmlNamespaces) bind(prefix, ns string) {
	n.byNS[ns] = prefix
	n.byPrefix[prefix] = ns
	n.order = append(n.order, prefix)
}

func (n *xmlNamespaces) qname(iri string) (string, error) {
	ns, local := rdf.SplitIRI(iri)
	if local == "" {
		return "", rdf.Errorf(rdf.KindRender, "GW-XML-101", "predicate %q has no XML local name", iri)
	}
	if prefix, ok := n.byNS[ns]; ok {
		return prefix + ":" + local, nil
	}
	prefix := ""
	for _, name := range n.known.Names() {
		if v, _ := n.known.Namespace(name); v == ns {
			if _, taken := n.byPrefix[name]; !taken && name != "xml" {
				prefix = name
			}
			break
		}
	}
	for i := 0; prefix == ""; i++ {
		candidate := "ns" + strconv.Itoa(i)
		if _, taken := n.byPrefix[candidate]; !taken {
			prefix = candidate
		}
	}
	n.bind(prefix, ns)
	return prefix + ":" + local, nil
}

type xmlElem struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*xmlElem
	text     strings.Builder
	line     int
}

func (e *xmlElem) attr(space, local string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// readXMLTree builds an element tree. A syntax error keeps whatever was read
// before it so that completed descriptions still load.
func readXMLTree(text string, diags *rdf.Diagnostics) *xmlElem {
	dec := xml.NewDecoder(strings.NewReader(text))
	var root *xmlElem
	var stack []*xmlElem
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			diags.Add(rdf.WrapError(rdf.KindParse, "GW-XML-001", "invalid xml: "+err.Error(), err))
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			el := &xmlElem{name: t.Name, attrs: t.Attr, line: line}
			if len(stack) == 0 {
				if root == nil {
					root = el
				}
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	return root
}

type rdfxmlParser struct {
	g      *rdf.Graph
	diags  *rdf.Diagnostics
	blanks *blankMap
}

func parseRDFXML(text string, g *rdf.Graph, diags *rdf.Diagnostics) {
	root := readXMLTree(text, diags)
	if root == nil {
		if len(*diags) == 0 {
			diags.Add(rdf.NewError(rdf.KindParse, "GW-XML-002", "empty document"))
		}
		return
	}
	p := &rdfxmlParser{g: g, diags: diags, blanks: newBlankMap(g)}
	if root.name.Space == rdf.NSRDF && root.name.Local == "RDF" {
		for _, child := range root.children {
			p.nodeElement(child)
		}
		return
	}
	p.nodeElement(root)
}

func (p *rdfxmlParser) fail(el *xmlElem, ruleID, format string, args ...any) {
	p.diags.Add(rdf.Errorf(rdf.KindParse, ruleID, "line %d: %s", el.line, fmt.Sprintf(format, args...)))
}

func (p *rdfxmlParser) add(s, pred, o rdf.Term) {
	if err := p.g.Add(s, pred, o); err != nil {
		p.diags.Add(err)
	}
}

func (p *rdfxmlParser) nodeElement(el *xmlElem) (rdf.Term, bool) {
	var subj rdf.Term
	if about, ok := el.attr(rdf.NSRDF, "about"); ok {
		subj = rdf.IRI(about)
	} else if id, ok := el.attr(rdf.NSRDF, "nodeID"); ok {
		subj = p.blanks.get(id)
	} else {
		subj = p.g.NewBlank()
	}
	if !(el.name.Space == rdf.NSRDF && el.name.Local == "Description") {
		if el.name.Space == "" {
			p.fail(el, "GW-XML-010", "node element %q has no namespace", el.name.Local)
			return rdf.Term{}, false
		}
		p.add(subj, rdf.IRI(rdf.RDFType), rdf.IRI(el.name.Space+el.name.Local))
	}
	for _, a := range el.attrs {
		switch a.Name.Space {
		case rdf.NSRDF, xmlNamespace, "xmlns", "":
			continue
		}
		p.add(subj, rdf.IRI(a.Name.Space+a.Name.Local), rdf.Literal(a.Value, ""))
	}
	li := 0
	for _, child := range el.children {
		pred := child.name.Space + child.name.Local
		if child.name.Space == rdf.NSRDF && child.name.Local == "li" {
			li++
			pred = rdf.NSRDF + "_" + strconv.Itoa(li)
		}
		if child.name.Space == "" {
			p.fail(child, "GW-XML-011", "property element %q has no namespace", child.name.Local)
			continue
		}
		p.propertyElement(subj, rdf.IRI(pred), child)
	}
	return subj, true
}

func (p *rdfxmlParser) propertyElement(subj, pred rdf.Term, el *xmlElem) {
	if res, ok := el.attr(rdf.NSRDF, "resource"); ok {
		p.add(subj, pred, rdf.IRI(res))
		return
	}
	if id, ok := el.attr(rdf.NSRDF, "nodeID"); ok {
		p.add(subj, pred, p.blanks.get(id))
		return
	}
	switch pt, _ := el.attr(rdf.NSRDF, "parseType"); pt {
	case "Resource":
		node := p.g.NewBlank()
		p.add(subj, pred, node)
		for _, child := range el.children {
			p.propertyElement(node, rdf.IRI(child.name.Space+child.name.Local), child)
		}
		return
	case "Collection":
		var items []rdf.Term
		for _, child := range el.children {
			if t, ok := p.nodeElement(child); ok {
				items = append(items, t)
			}
		}
		head := rdf.IRI(rdf.RDFNil)
		for i := len(items) - 1; i >= 0; i-- {
			cell := p.g.NewBlank()
			p.add(cell, rdf.IRI(rdf.RDFFirst), items[i])
			p.add(cell, rdf.IRI(rdf.RDFRest), head)
			head = cell
		}
		p.add(subj, pred, head)
		return
	case "", "Literal":
	default:
		p.fail(el, "GW-XML-012", "unsupported parseType %q", pt)
		return
	}
	switch len(el.children) {
	case 0:
	case 1:
		if obj, ok := p.nodeElement(el.children[0]); ok {
			p.add(subj, pred, obj)
		}
		return
	default:
		p.fail(el, "GW-XML-013", "property element has %d node elements", len(el.children))
		return
	}
	text := el.text.String()
	if lang, ok := el.attr(xmlNamespace, "lang"); ok && lang != "" {
		p.add(subj, pred, rdf.LangLiteral(text, lang))
		return
	}
	dt, _ := el.attr(rdf.NSRDF, "datatype")
	p.add(subj, pred, rdf.Literal(text, dt))
}
