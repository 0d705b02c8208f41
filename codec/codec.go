// Package codec converts rdf.Graph values to and from the supported textual
// graph serializations.
//
// Parsers recover locally: a malformed statement is skipped and reported as
// a KindParse diagnostic while the rest of the document is still loaded.
package codec

import (
	"mime"
	"strings"

	"xdao.co/graphwire/rdf"
)

// Format identifies a textual graph serialization.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatJSONLD   Format = "json-ld"
	FormatRDFXML   Format = "rdf/xml"
	FormatNTriples Format = "n-triples"
)

// FormatInfo provides metadata about a format.
type FormatInfo struct {
	Name Format

	// MIMEType is the canonical content type written on the wire.
	MIMEType string

	// Aliases are other content types accepted on read.
	Aliases []string

	// Extension is the file extension (with dot).
	Extension string

	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Aliases:     []string{"application/x-turtle"},
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Aliases:     []string{"application/json"},
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data",
	},
	FormatRDFXML: {
		Name:        FormatRDFXML,
		MIMEType:    "application/rdf+xml",
		Aliases:     []string{"application/xml", "text/xml"},
		Extension:   ".rdf",
		Description: "RDF/XML - XML syntax for RDF",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Aliases:     []string{"text/plain"},
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
}

// Formats lists the supported formats in a fixed order.
func Formats() []Format {
	return []Format{FormatTurtle, FormatJSONLD, FormatRDFXML, FormatNTriples}
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ContentType returns the canonical content type of format, or "".
func ContentType(format Format) string {
	return FormatRegistry[format].MIMEType
}

// Lookup resolves a format by name, short alias or file extension.
func Lookup(name string) (Format, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "ttl":
		return FormatTurtle, true
	case "jsonld", "json":
		return FormatJSONLD, true
	case "xml", "rdfxml", "rdf":
		return FormatRDFXML, true
	case "nt", "ntriples":
		return FormatNTriples, true
	}
	for _, f := range Formats() {
		info := FormatRegistry[f]
		if n == string(f) || n == info.Extension {
			return f, true
		}
	}
	return "", false
}

// FormatFor resolves a content type (parameters allowed) to a format.
func FormatFor(contentType string) (Format, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	for _, f := range Formats() {
		info := FormatRegistry[f]
		if mt == info.MIMEType {
			return f, true
		}
		for _, a := range info.Aliases {
			if mt == a {
				return f, true
			}
		}
	}
	return "", false
}

// Serialize renders g in format.
func Serialize(g *rdf.Graph, format Format) (string, error) {
	switch format {
	case FormatTurtle:
		return writeTurtle(g), nil
	case FormatNTriples:
		return writeNTriples(g), nil
	case FormatJSONLD:
		return writeJSONLD(g)
	case FormatRDFXML:
		return writeRDFXML(g)
	default:
		return "", rdf.Errorf(rdf.KindRender, "GW-CODEC-001", "unsupported format %q", format)
	}
}

// Parse reads text in format into a fresh graph.
//
// The returned error is non-nil only for an unsupported format. Problems in
// the text itself are reported through the diagnostics.
func Parse(text string, format Format) (*rdf.Graph, rdf.Diagnostics, error) {
	g := rdf.NewGraph()
	var diags rdf.Diagnostics
	switch format {
	case FormatTurtle:
		parseTurtle(text, g, &diags)
	case FormatNTriples:
		parseNTriples(text, g, &diags)
	case FormatJSONLD:
		parseJSONLD(text, g, &diags)
	case FormatRDFXML:
		parseRDFXML(text, g, &diags)
	default:
		return nil, nil, rdf.Errorf(rdf.KindParse, "GW-CODEC-002", "unsupported format %q", format)
	}
	return g, diags, nil
}

// blankMap maps document-scoped blank labels to graph-allocated ones.
type blankMap struct {
	g      *rdf.Graph
	labels map[string]rdf.Term
}

func newBlankMap(g *rdf.Graph) *blankMap {
	return &blankMap{g: g, labels: make(map[string]rdf.Term)}
}

func (m *blankMap) get(label string) rdf.Term {
	if t, ok := m.labels[label]; ok {
		return t
	}
	t := m.g.NewBlank()
	m.labels[label] = t
	return t
}

func parseError(ruleID string, err error) *rdf.Error {
	return rdf.WrapError(rdf.KindParse, ruleID, err.Error(), err)
}
