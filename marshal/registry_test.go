package marshal

import (
	"testing"

	"xdao.co/graphwire/rdf"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(tagRecord, func() Object { return &record{} }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(ns+"Other", func() Object { return &Obj{} }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name    string
		tag     string
		factory Factory
		rule    string
	}{
		{name: "empty tag", tag: "", factory: func() Object { return &Obj{} }, rule: "GW-REG-001"},
		{name: "nil factory", tag: ns + "Nil", rule: "GW-REG-002"},
		{name: "duplicate", tag: tagRecord, factory: func() Object { return &record{} }, rule: "GW-REG-003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.tag, tt.factory)
			if !rdf.IsKind(err, rdf.KindRegistry) || rdf.RuleID(err) != tt.rule {
				t.Fatalf("got %v, want %s", err, tt.rule)
			}
		})
	}

	if got := r.Types(); len(got) != 2 || got[0] != tagRecord || got[1] != ns+"Other" {
		t.Fatalf("Types() = %v", got)
	}

	obj, tag := r.Resolve([]string{ns + "Unknown", tagRecord})
	if _, ok := obj.(*record); !ok || tag != tagRecord {
		t.Fatalf("Resolve picked %T / %q", obj, tag)
	}
	obj, tag = r.Resolve([]string{ns + "Unknown"})
	if _, ok := obj.(*Obj); !ok || tag != "" {
		t.Fatalf("fallback = %T / %q", obj, tag)
	}
	a, _ := r.Resolve([]string{tagRecord})
	b, _ := r.Resolve([]string{tagRecord})
	if a == b {
		t.Fatal("Resolve must return fresh instances")
	}

	if tag, ok := r.TagFor(&record{}); !ok || tag != tagRecord {
		t.Fatalf("TagFor = %q %v", tag, ok)
	}
	if _, ok := r.TagFor(&Obj{}); !ok {
		t.Fatal("TagFor(*Obj) should report the tag registered for *Obj")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("MustRegister did not panic on a duplicate")
		}
	}()
	r.MustRegister(tagRecord, func() Object { return &record{} })
}
