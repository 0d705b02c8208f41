// Package lists encodes sequences as triples.
//
// A flat triple model has no native sequence, so four representations are
// supported. All of them hang off a list holder node:
//
//	Linked    rdf:first / rdf:rest cons cells ending in rdf:nil
//	RawBlob   smartapi:rawArray with one JSON literal holding every element
//	Itemized  smartapi:array node with unordered smartapi:entry / rdf:value
//	Indexed   smartapi:indexedArray node with smartapi:entry carrying
//	          smartapi:index and rdf:value
//
// Detect probes the holder in that priority order.
package lists

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"xdao.co/graphwire/rdf"
)

// Encoding names one list representation.
type Encoding uint8

const (
	// Default defers to the serializer's canonical encoding.
	Default Encoding = iota
	Linked
	Indexed
	Itemized
	RawBlob
)

func (e Encoding) String() string {
	switch e {
	case Linked:
		return "linked"
	case Indexed:
		return "indexed"
	case Itemized:
		return "itemized"
	case RawBlob:
		return "raw-blob"
	default:
		return "default"
	}
}

// Ordered reports whether the encoding preserves element order.
func (e Encoding) Ordered() bool { return e != Itemized }

// ParseEncoding resolves a configuration name.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return Default, nil
	case "linked":
		return Linked, nil
	case "indexed":
		return Indexed, nil
	case "itemized":
		return Itemized, nil
	case "raw-blob", "raw", "rawblob":
		return RawBlob, nil
	}
	return Default, fmt.Errorf("unknown list encoding %q", s)
}

func listError(ruleID, format string, args ...any) *rdf.Error {
	return rdf.Errorf(rdf.KindList, ruleID, format, args...)
}

// Encode builds the structure for items and returns the holder node. Only
// Indexed accepts nil items.
func Encode(enc Encoding, items []rdf.Node) (rdf.Node, error) {
	switch enc {
	case Linked:
		var head rdf.Node = rdf.IRI(rdf.RDFNil)
		for i := len(items) - 1; i >= 0; i-- {
			head = rdf.NewResource("").Add(rdf.RDFFirst, items[i]).Add(rdf.RDFRest, head)
		}
		return head, nil
	case Indexed, Default:
		arr := rdf.NewResource("")
		for i, it := range items {
			if it == nil {
				// A nil item leaves its slot empty.
				continue
			}
			arr.Add(rdf.SmartEntry, rdf.NewResource("").
				Add(rdf.SmartIndex, rdf.Literal(strconv.Itoa(i), rdf.XSDInteger)).
				Add(rdf.RDFValue, it))
		}
		return sizedHolder(len(items)).Add(rdf.SmartIndexedArray, arr), nil
	case Itemized:
		arr := rdf.NewResource("")
		for _, it := range items {
			arr.Add(rdf.SmartEntry, rdf.NewResource("").Add(rdf.RDFValue, it))
		}
		return sizedHolder(len(items)).Add(rdf.SmartArray, arr), nil
	case RawBlob:
		blob, err := packBlob(items)
		if err != nil {
			return nil, err
		}
		return sizedHolder(len(items)).Add(rdf.SmartRawArray, rdf.Literal(blob, rdf.XSDString)), nil
	}
	return nil, listError("GW-LIST-001", "unsupported list encoding %d", enc)
}

func sizedHolder(n int) *rdf.Resource {
	return rdf.NewResource("").Add(rdf.SmartSize, rdf.Literal(strconv.Itoa(n), rdf.XSDInteger))
}

type blobItem struct {
	ID    string `json:"@id,omitempty"`
	Value string `json:"@value,omitempty"`
	Type  string `json:"@type,omitempty"`
	Lang  string `json:"@language,omitempty"`
}

func packBlob(items []rdf.Node) (string, error) {
	out := make([]blobItem, 0, len(items))
	for i, it := range items {
		t, ok := it.(rdf.Term)
		if !ok || t.IsBlank() {
			return "", listError("GW-LIST-002", "raw-blob element %d is not a scalar", i)
		}
		if t.IsIRI() {
			out = append(out, blobItem{ID: t.Value})
			continue
		}
		out = append(out, blobItem{Value: t.Value, Type: t.Datatype, Lang: t.Lang})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", rdf.WrapError(rdf.KindList, "GW-LIST-002", "raw-blob encode failed", err)
	}
	return string(b), nil
}

func unpackBlob(lex string) ([]rdf.Term, error) {
	var in []blobItem
	if err := json.Unmarshal([]byte(lex), &in); err != nil {
		return nil, rdf.WrapError(rdf.KindList, "GW-LIST-003", "invalid raw-blob literal", err)
	}
	out := make([]rdf.Term, 0, len(in))
	for _, it := range in {
		switch {
		case it.ID != "":
			out = append(out, rdf.IRI(it.ID))
		case it.Lang != "":
			out = append(out, rdf.LangLiteral(it.Value, it.Lang))
		default:
			out = append(out, rdf.Literal(it.Value, it.Type))
		}
	}
	return out, nil
}

// Detect reports which encoding the holder node uses.
func Detect(g *rdf.Graph, node rdf.Term) (Encoding, bool) {
	switch {
	case node.IsIRI() && node.Value == rdf.RDFNil:
		return Linked, true
	case !node.IsResource():
		return Default, false
	case g.HasPredicate(node, rdf.RDFFirst) && g.HasPredicate(node, rdf.RDFRest):
		return Linked, true
	case g.HasPredicate(node, rdf.SmartRawArray):
		return RawBlob, true
	case g.HasPredicate(node, rdf.SmartArray):
		return Itemized, true
	case g.HasPredicate(node, rdf.SmartIndexedArray):
		return Indexed, true
	}
	return Default, false
}

// IsList reports whether node is a list holder.
func IsList(g *rdf.Graph, node rdf.Term) bool {
	_, ok := Detect(g, node)
	return ok
}

// Decode returns the element terms of the list at node.
//
// For Indexed lists a slot without an entry is returned as the zero Term and
// reported in the diagnostics; the list is still usable. The error is
// non-nil only when node is not a readable list at all.
func Decode(g *rdf.Graph, node rdf.Term) (Encoding, []rdf.Term, rdf.Diagnostics, error) {
	enc, ok := Detect(g, node)
	if !ok {
		return Default, nil, nil, listError("GW-LIST-010", "node %s is not a list", node)
	}
	var diags rdf.Diagnostics
	var items []rdf.Term
	var err error
	switch enc {
	case Linked:
		items, err = decodeLinked(g, node)
	case RawBlob:
		items, err = decodeRaw(g, node, &diags)
	case Itemized:
		items = decodeItemized(g, node)
	case Indexed:
		items = decodeIndexed(g, node, &diags)
	}
	if err != nil {
		return enc, nil, diags, err
	}
	return enc, items, diags, nil
}

func decodeLinked(g *rdf.Graph, node rdf.Term) ([]rdf.Term, error) {
	var out []rdf.Term
	seen := make(map[rdf.Term]bool)
	for cur := node; !(cur.IsIRI() && cur.Value == rdf.RDFNil); {
		if seen[cur] {
			return nil, listError("GW-LIST-011", "cyclic rdf:rest chain at %s", cur)
		}
		seen[cur] = true
		first, ok := g.Object(cur, rdf.RDFFirst)
		if !ok {
			return nil, listError("GW-LIST-012", "cons cell %s has no rdf:first", cur)
		}
		out = append(out, first)
		rest, ok := g.Object(cur, rdf.RDFRest)
		if !ok {
			return nil, listError("GW-LIST-013", "cons cell %s has no rdf:rest", cur)
		}
		cur = rest
	}
	return out, nil
}

func declaredSize(g *rdf.Graph, node rdf.Term, diags *rdf.Diagnostics) (int, bool) {
	t, ok := g.Object(node, rdf.SmartSize)
	if !ok {
		return 0, false
	}
	n, err := rdf.Statement{Graph: g, Triple: rdf.Triple{S: node, P: rdf.IRI(rdf.SmartSize), O: t}}.Int()
	if err != nil || n < 0 {
		diags.Add(listError("GW-LIST-014", "invalid list size %q", t.Value).About(node.Value))
		return 0, false
	}
	return int(n), true
}

func decodeRaw(g *rdf.Graph, node rdf.Term, diags *rdf.Diagnostics) ([]rdf.Term, error) {
	blob, _ := g.Object(node, rdf.SmartRawArray)
	if !blob.IsLiteral() {
		// A raw array node carrying the literal in rdf:value is accepted too.
		v, ok := g.Object(blob, rdf.RDFValue)
		if !ok || !v.IsLiteral() {
			return nil, listError("GW-LIST-015", "raw-blob holder %s has no literal", node)
		}
		blob = v
	}
	items, err := unpackBlob(blob.Value)
	if err != nil {
		return nil, err
	}
	if n, ok := declaredSize(g, node, diags); ok && n != len(items) {
		diags.Add(listError("GW-LIST-016", "raw-blob declares %d elements but holds %d", n, len(items)).About(node.Value))
	}
	return items, nil
}

func decodeItemized(g *rdf.Graph, node rdf.Term) []rdf.Term {
	var out []rdf.Term
	for _, arr := range g.Objects(node, rdf.SmartArray) {
		for _, e := range g.Objects(arr, rdf.SmartEntry) {
			if v, ok := g.Object(e, rdf.RDFValue); ok {
				out = append(out, v)
			}
		}
		// Foreign writers put values straight on the array node.
		out = append(out, g.Objects(arr, rdf.RDFValue)...)
	}
	return out
}

func decodeIndexed(g *rdf.Graph, node rdf.Term, diags *rdf.Diagnostics) []rdf.Term {
	type entry struct {
		index int
		value rdf.Term
	}
	var entries []entry
	for _, arr := range g.Objects(node, rdf.SmartIndexedArray) {
		for _, e := range g.Objects(arr, rdf.SmartEntry) {
			v, ok := g.Object(e, rdf.RDFValue)
			if !ok {
				diags.Add(listError("GW-LIST-017", "indexed entry has no rdf:value").About(e.Value))
				continue
			}
			idx := -1
			if it, ok := g.Object(e, rdf.SmartIndex); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(it.Value)); err == nil && n >= 0 {
					idx = n
				}
			}
			if idx < 0 {
				diags.Add(listError("GW-LIST-018", "indexed entry has no valid index").About(e.Value))
				continue
			}
			entries = append(entries, entry{index: idx, value: v})
		}
	}

	size, ok := declaredSize(g, node, diags)
	if !ok {
		for _, e := range entries {
			if e.index+1 > size {
				size = e.index + 1
			}
		}
	}
	out := make([]rdf.Term, size)
	for _, e := range entries {
		if e.index >= size {
			diags.Add(listError("GW-LIST-019", "index %d outside declared size %d", e.index, size).About(node.Value))
			continue
		}
		out[e.index] = e.value
	}
	for i, t := range out {
		if t.IsZero() {
			diags.Add(listError("GW-LIST-020", "slot %d has no entry", i).About(node.Value))
		}
	}
	return out
}
