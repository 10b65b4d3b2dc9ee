package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/solidkey/calibration/charcat"
	"github.com/solidkey/calibration/deadkey"
	"github.com/solidkey/calibration/diag"
)

func mustNew(t *testing.T) *Engine {
	t.Helper()
	e, err := New('d', "!", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// buildReported constructs a reported baseline from a per-rune remapping
// function, the way a host layout would, mirroring the payload New
// produces internally.
func buildReported(e *Engine, remap func(r rune) string) string {
	payload, _, _ := e.NextPayload(0)
	// Strip the known-good prefix/suffix so the test only remaps the
	// probe body, matching what a real host layout would leave alone.
	body := strings.TrimPrefix(payload, e.aimPrefix())
	body = strings.TrimSuffix(body, e.suffix)
	var b strings.Builder
	for _, r := range body {
		if r == e.delim {
			b.WriteRune(r)
			continue
		}
		b.WriteString(remap(r))
	}
	return e.aimPrefix() + b.String() + e.suffix
}

func TestEngineCleanBaselineReadsReliably(t *testing.T) {
	e := mustNew(t)
	reported := buildReported(e, func(r rune) string { return string(r) })
	if err := e.Process(reported, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if e.Phase() != PhaseDone {
		t.Fatalf("expected PhaseDone on clean baseline, got %v", e.Phase())
	}
	if len(e.Data().CharacterMap) != 0 {
		t.Fatalf("expected empty CharacterMap, got %v", e.Data().CharacterMap)
	}
	if !e.Stream().Has(diag.ReadsInvariantCharactersReliably) {
		t.Fatalf("expected ReadsInvariantCharactersReliably, got %+v", e.Stream())
	}
}

func TestEngineFrenchAzertyDigitsCharacterMap(t *testing.T) {
	e := mustNew(t)
	azerty := map[rune]string{
		'1': "&", '2': "é", '3': `"`, '4': "'", '5': "(",
		'6': "-", '7': "è", '8': "_", '9': "ç", '0': "à",
	}
	reported := buildReported(e, func(r rune) string {
		if s, ok := azerty[r]; ok {
			return s
		}
		return string(r)
	})
	if err := e.Process(reported, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(e.Data().CharacterMap) != 10 {
		t.Fatalf("expected 10 CharacterMap entries, got %d: %v", len(e.Data().CharacterMap), e.Data().CharacterMap)
	}
	if e.Data().CharacterMap["&"] != "1" {
		t.Fatalf("expected CharacterMap[&]=1, got %q", e.Data().CharacterMap["&"])
	}
}

// TestEngineInvariantAmbiguityOnUnderscore exercises spec.md 8 scenario 6:
// a host layout where both `-` and `_` report the same reported
// character. Since `_` is itself a GS1 invariant character, the
// collision must land in InvariantGs1Ambiguities, not
// NonInvariantAmbiguities.
func TestEngineInvariantAmbiguityOnUnderscore(t *testing.T) {
	e := mustNew(t)
	reported := buildReported(e, func(r rune) string {
		if r == '-' || r == '_' {
			return "x"
		}
		return string(r)
	})
	if err := e.Process(reported, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := e.Data().InvariantGs1Ambiguities["x"]
	if len(got) != 2 {
		t.Fatalf("expected 2 InvariantGs1Ambiguities[x] entries, got %v", got)
	}
	if len(e.Data().NonInvariantAmbiguities["x"]) != 0 {
		t.Fatalf("expected no NonInvariantAmbiguities[x], got %v", e.Data().NonInvariantAmbiguities["x"])
	}
	if !e.Stream().Has(diag.MultipleKeys) {
		t.Fatalf("expected MultipleKeys diagnostic, got %+v", e.Stream())
	}
}

func TestEngineDeadKeyDetectionAndProbe(t *testing.T) {
	e := mustNew(t)
	reported := buildReported(e, func(r rune) string {
		switch r {
		case 'a':
			return "^â"
		case 'e':
			return "^ê"
		default:
			return string(r)
		}
	})
	if err := e.Process(reported, 0); err != nil {
		t.Fatalf("baseline Process: %v", err)
	}
	if e.Phase() != PhaseDeadKey {
		t.Fatalf("expected PhaseDeadKey after discovering ^, got %v", e.Phase())
	}
	if got := e.Data().DeadKeysMap[deadkey.Sequence{Indicator: '^', Follower: 'â'}]; got != "a" {
		t.Fatalf("expected DeadKeysMap entry for ^+â -> a, got %q", got)
	}

	payload, _, err := e.NextPayload(0)
	if err != nil {
		t.Fatalf("NextPayload: %v", err)
	}
	if !strings.Contains(payload, "^") {
		t.Fatalf("expected dead-key probe payload to contain indicator, got %q", payload)
	}

	// A reported slot's first character being the precomposed result (a
	// single rune, no indicator) is the good case (spec.md 4.1.3 case a);
	// an indicator echoed with no composition is the unbound-combination
	// case (spec.md 4.1.3 case b).
	var b strings.Builder
	body := strings.TrimPrefix(payload, e.aimPrefix())
	body = strings.TrimSuffix(body, e.suffix)
	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		if runes[i] == e.delim {
			b.WriteRune(runes[i])
			continue
		}
		if runes[i] == '^' {
			i++
			invariant := runes[i]
			composed, ok := precompose(invariant)
			if ok {
				b.WriteRune(composed)
			} else {
				b.WriteRune('^')
				b.WriteRune(invariant)
			}
		}
	}
	reportedDK := e.aimPrefix() + b.String() + e.suffix
	if err := e.Process(reportedDK, time.Millisecond); err != nil {
		t.Fatalf("dead-key Process: %v", err)
	}
	if e.Phase() != PhaseDone {
		t.Fatalf("expected PhaseDone after the single discovered dead key, got %v", e.Phase())
	}
	if got := e.Data().DeadKeyCharacterMap[deadkey.Sequence{Indicator: '^', Follower: 'â'}]; got != "a" {
		t.Fatalf("expected DeadKeyCharacterMap entry for ^+â -> a, got %q", got)
	}
	if !e.Stream().Has(diag.SomeDeadKeyCombinationsUnrecognisedForInvariants) {
		t.Fatalf("expected SomeDeadKeyCombinationsUnrecognisedForInvariants for invariants with no precomposed form")
	}
}

func precompose(r rune) (rune, bool) {
	switch r {
	case 'a':
		return 'â', true
	case 'e':
		return 'ê', true
	default:
		return 0, false
	}
}

func TestEngineCaseInversionDetected(t *testing.T) {
	e := mustNew(t)
	reported := buildReported(e, func(r rune) string {
		if charcat.IsUpper(r) {
			return string(charcat.ToLower(r))
		}
		if charcat.IsLower(r) {
			return string(charcat.ToUpper(r))
		}
		return string(r)
	})
	if err := e.Process(reported, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !e.Stream().Has(diag.ScannerMayInvertCase) {
		t.Fatalf("expected ScannerMayInvertCase, got %+v", e.Stream())
	}
}
