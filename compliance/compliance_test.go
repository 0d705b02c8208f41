package compliance

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	for in, want := range map[string]ComplianceMode{"": Permissive, "Permissive": Permissive, " strict ": Strict} {
		got, err := Parse(in)
		if err != nil || got != want {
			t.Fatalf("Parse(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := Parse("lenient"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestApply(t *testing.T) {
	problems := errors.New("bad")
	if err := Strict.Apply(problems); !errors.Is(err, problems) {
		t.Fatalf("strict: got %v", err)
	}
	if err := Permissive.Apply(problems); err != nil {
		t.Fatalf("permissive: got %v", err)
	}
	if Strict.String() != "strict" || Permissive.String() != "permissive" {
		t.Fatalf("unexpected names")
	}
}
