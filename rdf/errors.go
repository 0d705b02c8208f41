package rdf

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindParse       Kind = "Parse"
	KindConversion  Kind = "Conversion"
	KindList        Kind = "List"
	KindMissingPart Kind = "MissingPart"
	KindCrypto      Kind = "Crypto"
	KindRegistry    Kind = "Registry"
	KindRender      Kind = "Render"
	KindInternal    Kind = "Internal"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier (e.g., GW-TTL-003, GW-LIST-002, GW-REF-101)
// naming the violated rule. Subject, when set, names the node or part the
// error is about.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Subject string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Subject == "" {
		return e.Message
	}
	return e.Message + " (" + e.Subject + ")"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error without a cause.
func NewError(kind Kind, ruleID, msg string) *Error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Errorf returns a structured error with a formatted message.
func Errorf(kind Kind, ruleID, format string, args ...any) *Error {
	return &Error{Kind: kind, RuleID: ruleID, Message: fmt.Sprintf(format, args...)}
}

// WrapError returns a structured error carrying cause.
func WrapError(kind Kind, ruleID, msg string, cause error) *Error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// About returns a copy of e bound to subject.
func (e *Error) About(subject string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Subject = subject
	return &cp
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// Diagnostics collects recoverable errors raised while a call keeps going.
type Diagnostics []*Error

// Add appends err. Non-structured errors are wrapped as KindInternal.
func (d *Diagnostics) Add(err error) {
	if err == nil {
		return
	}
	var e *Error
	if errors.As(err, &e) {
		*d = append(*d, e)
		return
	}
	*d = append(*d, WrapError(KindInternal, "GW-INT-001", err.Error(), err))
}

// Merge appends every diagnostic of other.
func (d *Diagnostics) Merge(other Diagnostics) {
	*d = append(*d, other...)
}

// Count returns how many diagnostics have the given kind.
func (d Diagnostics) Count(kind Kind) int {
	n := 0
	for _, e := range d {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Err returns nil when empty, the single error when there is one, and a
// combined error otherwise. The first diagnostic stays reachable through
// errors.As.
func (d Diagnostics) Err() error {
	switch len(d) {
	case 0:
		return nil
	case 1:
		return d[0]
	}
	msgs := make([]string, 0, len(d))
	for _, e := range d {
		msgs = append(msgs, e.Error())
	}
	return &Error{
		Kind:    d[0].Kind,
		RuleID:  d[0].RuleID,
		Message: fmt.Sprintf("%d problems: %s", len(d), strings.Join(msgs, "; ")),
		Cause:   d[0],
	}
}
