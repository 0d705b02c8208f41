// Package variant holds the scalar tagged union carried in triple object
// slots, together with its literal conversions.
package variant

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"xdao.co/graphwire/lists"
)

// Kind tags the active member of a Variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindURI
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindDate
	KindTime
	KindDateTime
	KindDuration
	KindObject
	KindNested
	KindMap
	KindList
	// KindMissing marks a list slot whose entry was absent on the wire.
	KindMissing
)

var kindNames = [...]string{
	KindNull:     "null",
	KindURI:      "uri",
	KindString:   "string",
	KindInteger:  "integer",
	KindFloat:    "float",
	KindBoolean:  "boolean",
	KindDate:     "date",
	KindTime:     "time",
	KindDateTime: "datetime",
	KindDuration: "duration",
	KindObject:   "object",
	KindNested:   "nested",
	KindMap:      "map",
	KindList:     "list",
	KindMissing:  "missing",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Variant is an immutable scalar value. The zero value is Null.
type Variant struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
	d    Duration
	obj  any
	m    map[string]Variant
	list *List
	in   *Variant
}

// List is a sequence value and the encoding it should be written with.
//
// Encoding Default lets the serializer choose. Detected records the encoding
// a parsed list arrived in.
type List struct {
	Encoding lists.Encoding
	Detected lists.Encoding
	Items    []Variant
}

func Null() Variant                 { return Variant{} }
func URI(iri string) Variant        { return Variant{kind: KindURI, s: iri} }
func String(s string) Variant       { return Variant{kind: KindString, s: s} }
func Int(n int64) Variant           { return Variant{kind: KindInteger, i: n} }
func Float(f float64) Variant       { return Variant{kind: KindFloat, f: f} }
func Bool(b bool) Variant           { return Variant{kind: KindBoolean, b: b} }
func OfDuration(d Duration) Variant { return Variant{kind: KindDuration, d: d} }

// Missing returns the placeholder for an absent list slot.
func Missing() Variant { return Variant{kind: KindMissing} }

// Date keeps the calendar day of t in UTC.
func Date(t time.Time) Variant {
	y, m, d := t.UTC().Date()
	return Variant{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// TimeOfDay keeps the clock reading of t, anchored to year 0.
func TimeOfDay(t time.Time) Variant {
	return Variant{kind: KindTime, t: time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())}
}

func DateTime(t time.Time) Variant { return Variant{kind: KindDateTime, t: t} }

// Object wraps a domain object. A nil object yields Null.
func Object(obj any) Variant {
	if obj == nil {
		return Null()
	}
	return Variant{kind: KindObject, obj: obj}
}

// Nested wraps another variant so that it is written as its own node.
func Nested(v Variant) Variant { return Variant{kind: KindNested, in: &v} }

// Map copies m.
func Map(m map[string]Variant) Variant {
	cp := make(map[string]Variant, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Variant{kind: KindMap, m: cp}
}

// ListOf builds a list variant that serializes with the default encoding.
func ListOf(items ...Variant) Variant {
	return FromList(List{Items: items})
}

func FromList(l List) Variant {
	cp := l
	cp.Items = append([]Variant(nil), l.Items...)
	return Variant{kind: KindList, list: &cp}
}

func (v Variant) Kind() Kind      { return v.kind }
func (v Variant) IsNull() bool    { return v.kind == KindNull }
func (v Variant) IsMissing() bool { return v.kind == KindMissing }

// Text returns the string or URI payload.
func (v Variant) Text() (string, bool) {
	if v.kind == KindString || v.kind == KindURI {
		return v.s, true
	}
	return "", false
}

func (v Variant) Int() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) {
			return int64(v.f), true
		}
	}
	return 0, false
}

func (v Variant) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInteger:
		return float64(v.i), true
	}
	return 0, false
}

func (v Variant) Bool() (bool, bool) { return v.b, v.kind == KindBoolean }

// Time returns the payload of date, time and datetime variants.
func (v Variant) Time() (time.Time, bool) {
	switch v.kind {
	case KindDate, KindTime, KindDateTime:
		return v.t, true
	}
	return time.Time{}, false
}

func (v Variant) Duration() (Duration, bool) { return v.d, v.kind == KindDuration }

func (v Variant) Object() (any, bool) { return v.obj, v.kind == KindObject }

func (v Variant) Nested() (Variant, bool) {
	if v.kind != KindNested {
		return Variant{}, false
	}
	return *v.in, true
}

// Map returns a copy of the map payload.
func (v Variant) Map() (map[string]Variant, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Variant, len(v.m))
	for k, x := range v.m {
		cp[k] = x
	}
	return cp, true
}

// Keys returns the map keys in sorted order.
func (v Variant) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Variant) List() (List, bool) {
	if v.kind != KindList {
		return List{}, false
	}
	return *v.list, true
}

// Equal compares kind and payload. Times compare by instant, durations by
// normalized text, objects by identity and itemized lists as multisets.
func (v Variant) Equal(o Variant) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindMissing:
		return true
	case KindURI, KindString:
		return v.s == o.s
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBoolean:
		return v.b == o.b
	case KindDate, KindTime, KindDateTime:
		return v.t.Equal(o.t)
	case KindDuration:
		return v.d.String() == o.d.String()
	case KindObject:
		if !reflect.TypeOf(v.obj).Comparable() {
			return false
		}
		return v.obj == o.obj
	case KindNested:
		return v.in.Equal(*o.in)
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, x := range v.m {
			y, ok := o.m[k]
			if !ok || !x.Equal(y) {
				return false
			}
		}
		return true
	case KindList:
		a, b := v.list.Items, o.list.Items
		if len(a) != len(b) {
			return false
		}
		if v.list.Detected == lists.Itemized || o.list.Detected == lists.Itemized {
			return sameMultiset(a, b)
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func sameMultiset(a, b []Variant) bool {
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && x.Equal(y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func (v Variant) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindMissing:
		return "missing"
	case KindObject:
		return fmt.Sprintf("object(%T)", v.obj)
	case KindNested:
		return "nested(" + v.in.String() + ")"
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.m))
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.list.Items))
	}
	lex, _ := v.lexical()
	return v.kind.String() + "(" + lex + ")"
}
