package charcat

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		r    rune
		want Category
	}{
		{'A', Invariant},
		{'a', Invariant},
		{'5', Invariant},
		{'-', Invariant},
		{' ', Invariant},
		{'<', Invariant},
		{'>', Invariant},
		{'_', Invariant},
		{'@', ASCII},
		{'~', ASCII},
		{0x1D, Control},
		{0x7F, Control},
	}
	for _, c := range cases {
		if got := Classify(c.r); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.r, got, c.want)
		}
	}
}

func TestInvariantsLength(t *testing.T) {
	if len(Invariants) != 83 {
		t.Fatalf("len(Invariants) = %d, want 83", len(Invariants))
	}
}

func TestAdditionalASCIILength(t *testing.T) {
	if len(AdditionalASCII) != 11 {
		t.Fatalf("len(AdditionalASCII) = %d, want 11", len(AdditionalASCII))
	}
}

// TestDelimiterCandidateAvailable guards the fatal failure mode the
// bounded AdditionalASCII list exists to prevent: Invariants and
// AdditionalASCII together must not cover every printable ASCII
// character, or segment.ChooseDelimiter could never find one.
func TestDelimiterCandidateAvailable(t *testing.T) {
	used := make(map[rune]bool, len(Invariants)+len(AdditionalASCII))
	for _, r := range Invariants {
		used[r] = true
	}
	for _, r := range AdditionalASCII {
		used[r] = true
	}
	free := false
	for r := rune(0x21); r < 0x7F; r++ {
		if !used[r] {
			free = true
			break
		}
	}
	if !free {
		t.Fatalf("no printable ASCII character is free for a temporary delimiter")
	}
}

func TestCaseConversion(t *testing.T) {
	if ToUpper('a') != 'A' || ToUpper('A') != 'A' {
		t.Fatalf("ToUpper broken")
	}
	if ToLower('A') != 'a' || ToLower('a') != 'a' {
		t.Fatalf("ToLower broken")
	}
	if ToUpper('5') != '5' {
		t.Fatalf("ToUpper must not touch non-letters")
	}
}
