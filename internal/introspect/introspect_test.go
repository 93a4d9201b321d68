package introspect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSignatureString(t *testing.T) {
	tests := []struct {
		name string
		sig  Signature
		want string
	}{
		{"empty", Signature{}, "()"},
		{"params", Signature{Params: []Param{{Name: "a", Text: "a"}, {Name: "b", Text: "b=1"}}}, "(a, b=1)"},
		{"results", Signature{Params: []Param{{Name: "s", Text: "s string"}}, Results: "error"}, "(s string) error"},
		{"raw wins", Signature{Params: []Param{{Name: "x", Text: "x"}}, Raw: "(self, y)"}, "(self, y)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sig.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplits(t *testing.T) {
	got := Splits("a.b.C")
	want := []Split{
		{Head: "a.b.C", Tail: []string{}},
		{Head: "a.b", Tail: []string{"C"}},
		{Head: "a", Tail: []string{"b", "C"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Splits mismatch (-want +got):\n%s", diff)
	}
}

func TestValidPath(t *testing.T) {
	for path, want := range map[string]bool{
		"":       false,
		"a":      true,
		"a.b":    true,
		"a..b":   false,
		".a":     false,
		"a.b.C":  true,
		"a.b.C.": false,
	} {
		if got := ValidPath(path); got != want {
			t.Errorf("ValidPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestPythonConventions(t *testing.T) {
	c := Python
	if !c.IsSpecial("__init__") || c.IsPrivate("__init__") {
		t.Error("__init__ should be special, not private")
	}
	if c.IsSpecial("_helper") || !c.IsPrivate("_helper") {
		t.Error("_helper should be private, not special")
	}
	if !c.IsPrivate("__mangled") {
		t.Error("__mangled should be private")
	}
	if c.IsSpecial("add") || c.IsPrivate("add") {
		t.Error("add should be public")
	}
	if c.IsSpecial("____") {
		t.Error("bare underscores are not a dunder name")
	}
	if c.InstanceParam() != "self" {
		t.Errorf("InstanceParam = %q", c.InstanceParam())
	}
}

func TestGoConventions(t *testing.T) {
	c := Go
	if !c.IsSpecial("String") || c.IsPrivate("String") {
		t.Error("String should be special, not private")
	}
	if !c.IsPrivate("helper") {
		t.Error("helper should be private")
	}
	if c.IsSpecial("Split") || c.IsPrivate("Split") {
		t.Error("Split should be public")
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind("Class"); !ok || k != KindClass {
		t.Errorf("ParseKind(Class) = %v, %v", k, ok)
	}
	if k, ok := ParseKind(""); !ok || k != KindModule {
		t.Errorf("ParseKind(\"\") = %v, %v", k, ok)
	}
	if _, ok := ParseKind("function"); ok {
		t.Error("function is not an entity kind")
	}
}
