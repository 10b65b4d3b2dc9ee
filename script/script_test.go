package script

import "testing"

func TestResolveLatin(t *testing.T) {
	samples := []rune("ABCDEFGabcdefg")
	r := Resolve(samples)
	if !r.Resolved || r.Name != "Latin" {
		t.Fatalf("expected Latin, got %+v", r)
	}
	if r.Tag != "Latn" {
		t.Fatalf("expected ISO tag Latn, got %q", r.Tag)
	}
}

func TestResolveBelowThreshold(t *testing.T) {
	samples := []rune("AAAББ") // 3 of 5 Latin = 60%, under Threshold
	r := Resolve(samples)
	if r.Resolved {
		t.Fatalf("expected unresolved mixed-script sample, got %+v", r)
	}
}

func TestResolveEmpty(t *testing.T) {
	if r := Resolve(nil); r.Resolved {
		t.Fatalf("expected unresolved for empty input")
	}
}

func TestCaseSupportingScripts(t *testing.T) {
	if !CaseSupportingScripts["Latin"] {
		t.Fatalf("Latin must support case")
	}
	if CaseSupportingScripts["Han"] {
		t.Fatalf("Han must not support case")
	}
}
