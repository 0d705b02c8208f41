package rdf

import (
	"strconv"
	"strings"
	"time"
)

// Statement is a typed view over one triple's object slot.
//
// Every getter fails with a KindConversion *Error instead of panicking.
type Statement struct {
	Graph *Graph
	Triple
}

func (s Statement) Subject() Term     { return s.S }
func (s Statement) Predicate() string { return s.P.Value }
func (s Statement) Object() Term      { return s.O }

func (s Statement) conversion(ruleID, want string, cause error) error {
	return (&Error{
		Kind:    KindConversion,
		RuleID:  ruleID,
		Message: "cannot read " + s.O.String() + " as " + want,
		Cause:   cause,
	}).About(s.P.Value)
}

// Text returns the lexical form of a literal or the IRI of a named node.
func (s Statement) Text() (string, error) {
	switch s.O.Kind {
	case TermLiteral, TermIRI:
		return s.O.Value, nil
	default:
		return "", s.conversion("GW-CONV-001", "string", nil)
	}
}

func (s Statement) Int() (int64, error) {
	if !s.O.IsLiteral() {
		return 0, s.conversion("GW-CONV-002", "integer", nil)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s.O.Value), 10, 64)
	if err != nil {
		return 0, s.conversion("GW-CONV-002", "integer", err)
	}
	return v, nil
}

func (s Statement) Float() (float64, error) {
	if !s.O.IsLiteral() {
		return 0, s.conversion("GW-CONV-003", "float", nil)
	}
	v, err := ParseXSDFloat(s.O.Value)
	if err != nil {
		return 0, s.conversion("GW-CONV-003", "float", err)
	}
	return v, nil
}

func (s Statement) Bool() (bool, error) {
	if !s.O.IsLiteral() {
		return false, s.conversion("GW-CONV-004", "boolean", nil)
	}
	switch strings.TrimSpace(s.O.Value) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, s.conversion("GW-CONV-004", "boolean", nil)
}

// Resource returns the object node when it is an IRI or blank node.
func (s Statement) Resource() (Term, error) {
	if !s.O.IsResource() {
		return Term{}, s.conversion("GW-CONV-005", "resource", nil)
	}
	return s.O, nil
}

// Time parses an xsd:dateTime, xsd:date or xsd:time literal.
func (s Statement) Time() (time.Time, error) {
	if !s.O.IsLiteral() {
		return time.Time{}, s.conversion("GW-CONV-006", "time", nil)
	}
	t, err := ParseXSDTime(s.O.Value, s.O.Datatype)
	if err != nil {
		return time.Time{}, s.conversion("GW-CONV-006", "time", err)
	}
	return t, nil
}

// Date and time layouts accepted for the xsd temporal types.
var (
	dateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"}
	dateLayouts     = []string{"2006-01-02", "2006-01-02Z07:00"}
	timeLayouts     = []string{"15:04:05.999999999Z07:00", "15:04:05.999999999", "15:04:05Z07:00", "15:04:05"}
)

// ParseXSDTime parses lexical according to datatype. An unknown datatype
// tries dateTime, then date, then time.
func ParseXSDTime(lexical, datatype string) (time.Time, error) {
	lexical = strings.TrimSpace(lexical)
	var layouts []string
	switch datatype {
	case XSDDateTime:
		layouts = dateTimeLayouts
	case XSDDate:
		layouts = dateLayouts
	case XSDTime:
		layouts = timeLayouts
	default:
		layouts = append(append(append([]string{}, dateTimeLayouts...), dateLayouts...), timeLayouts...)
	}
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.Parse(layout, lexical); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// ParseXSDFloat accepts the xsd:double lexical space including INF and NaN.
func ParseXSDFloat(lexical string) (float64, error) {
	switch v := strings.TrimSpace(lexical); v {
	case "INF", "+INF":
		return strconv.ParseFloat("+Inf", 64)
	case "-INF":
		return strconv.ParseFloat("-Inf", 64)
	case "NaN":
		return strconv.ParseFloat("NaN", 64)
	default:
		return strconv.ParseFloat(v, 64)
	}
}

// InferDatatype picks the datatype a plain literal is read as: integer,
// then double, then boolean, then dateTime, else string.
func InferDatatype(lexical string) string {
	if _, err := strconv.ParseInt(lexical, 10, 64); err == nil {
		return XSDInteger
	}
	if _, err := strconv.ParseFloat(lexical, 64); err == nil {
		return XSDDouble
	}
	if lexical == "true" || lexical == "false" {
		return XSDBoolean
	}
	if _, err := ParseXSDTime(lexical, XSDDateTime); err == nil {
		return XSDDateTime
	}
	return XSDString
}
