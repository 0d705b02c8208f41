package rdf

import (
	"testing"
	"time"
)

func stmt(o Term) Statement {
	return Statement{Triple: Triple{S: IRI("http://example.org/s"), P: IRI("http://example.org/p"), O: o}}
}

func TestStatementGetters(t *testing.T) {
	if v, err := stmt(Literal("42", XSDInteger)).Int(); err != nil || v != 42 {
		t.Fatalf("Int: %v %v", v, err)
	}
	if v, err := stmt(Literal("2.5", XSDDouble)).Float(); err != nil || v != 2.5 {
		t.Fatalf("Float: %v %v", v, err)
	}
	if v, err := stmt(Literal("true", XSDBoolean)).Bool(); err != nil || !v {
		t.Fatalf("Bool: %v %v", v, err)
	}
	if v, err := stmt(IRI("http://example.org/o")).Resource(); err != nil || v.Value != "http://example.org/o" {
		t.Fatalf("Resource: %v %v", v, err)
	}
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	if v, err := stmt(Literal("2024-03-01T12:30:00Z", XSDDateTime)).Time(); err != nil || !v.Equal(want) {
		t.Fatalf("Time: %v %v", v, err)
	}
}

func TestStatementConversionErrors(t *testing.T) {
	cases := []struct {
		name string
		call func() error
		rule string
	}{
		{"int", func() error { _, err := stmt(Literal("abc", "")).Int(); return err }, "GW-CONV-002"},
		{"float", func() error { _, err := stmt(IRI("http://x")).Float(); return err }, "GW-CONV-003"},
		{"bool", func() error { _, err := stmt(Literal("maybe", "")).Bool(); return err }, "GW-CONV-004"},
		{"resource", func() error { _, err := stmt(Literal("x", "")).Resource(); return err }, "GW-CONV-005"},
		{"text", func() error { _, err := stmt(Blank("b1")).Text(); return err }, "GW-CONV-001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			if !IsKind(err, KindConversion) {
				t.Fatalf("expected conversion error, got %v", err)
			}
			if RuleID(err) != tc.rule {
				t.Fatalf("RuleID: got %q want %q", RuleID(err), tc.rule)
			}
		})
	}
}

func TestDiagnosticsErr(t *testing.T) {
	var d Diagnostics
	if d.Err() != nil {
		t.Fatalf("empty diagnostics should be nil")
	}
	d.Add(NewError(KindParse, "GW-TTL-001", "bad"))
	d.Add(NewError(KindList, "GW-LIST-003", "worse"))
	err := d.Err()
	if RuleID(err) != "GW-TTL-001" || !IsKind(err, KindParse) {
		t.Fatalf("combined error lost first diagnostic: %v", err)
	}
	if d.Count(KindList) != 1 {
		t.Fatalf("Count: got %d", d.Count(KindList))
	}
}
