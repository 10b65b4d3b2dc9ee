package calibration

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/solidkey/calibration/calibdata"
	"github.com/solidkey/calibration/calibkind"
	"github.com/solidkey/calibration/capability"
)

// simulateHost feeds a session's current payload through a per-rune
// remapping function and calls Calibrate, mirroring what a live scanner +
// OS keyboard layout pair would report.
func simulateHost(t *testing.T, tok *Token, remap map[rune]string, capsLock capability.OptBool, platform calibkind.Platform) *Token {
	t.Helper()
	var b strings.Builder
	for _, r := range tok.Payload {
		if mapped, ok := remap[r]; ok {
			b.WriteString(mapped)
			continue
		}
		b.WriteRune(r)
	}
	next, err := tok.Calibrate(b.String(), capsLock, platform, calibkind.SpanWholeEntry, nil)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	return next
}

func TestScenarioCleanUSLayout(t *testing.T) {
	tok, err := NewSession(calibkind.Agnostic)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	tok = simulateHost(t, tok, nil, capability.Unknown, calibkind.PlatformUnknown)
	if len(tok.Data.CharacterMap) != 0 {
		t.Fatalf("expected empty CharacterMap, got %v", tok.Data.CharacterMap)
	}
	if tok.Capabilities.CanReadInvariantsReliably != capability.True {
		t.Fatalf("expected CanReadInvariantsReliably=true, got %v", tok.Capabilities.CanReadInvariantsReliably)
	}
	foundLow := false
	for _, it := range tok.Advice {
		if it.Severity != 0 {
			t.Fatalf("expected no Medium/High advice on clean baseline, got %+v", tok.Advice)
		}
		foundLow = true
	}
	if !foundLow {
		t.Fatalf("expected at least one Low advice item")
	}
}

func TestScenarioFrenchAzertyDigits(t *testing.T) {
	tok, err := NewSession(calibkind.Agnostic)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	azerty := map[rune]string{
		'1': "&", '2': "é", '3': `"`, '4': "'", '5': "(",
		'6': "-", '7': "è", '8': "_", '9': "ç", '0': "à",
	}
	tok = simulateHost(t, tok, azerty, capability.Unknown, calibkind.PlatformUnknown)
	if len(tok.Data.CharacterMap) != 10 {
		t.Fatalf("expected 10 CharacterMap entries, got %d", len(tok.Data.CharacterMap))
	}
	if tok.Capabilities.CanReadInvariantsReliably != capability.True {
		t.Fatalf("expected invariants still readable via the map, got %v", tok.Capabilities.CanReadInvariantsReliably)
	}
}

func TestScenarioCapsLockAccidentallyOnDistinguishesSeverity(t *testing.T) {
	tok1, _ := NewSession(calibkind.Agnostic)
	inverted := map[rune]string{}
	for r := 'A'; r <= 'Z'; r++ {
		inverted[r] = strings.ToLower(string(r))
	}
	for r := 'a'; r <= 'z'; r++ {
		inverted[r] = strings.ToUpper(string(r))
	}
	tok1 = simulateHost(t, tok1, inverted, capability.Unknown, calibkind.PlatformUnknown)
	foundMedium := false
	for _, it := range tok1.Advice {
		if it.Code == 200 { // advice.CapsLockCompensation (probable)
			foundMedium = true
		}
	}
	if !foundMedium {
		t.Fatalf("expected a Medium CapsLock-probable advisory with capsLock unknown, got %+v", tok1.Advice)
	}

	tok2, _ := NewSession(calibkind.Agnostic)
	tok2 = simulateHost(t, tok2, inverted, capability.True, calibkind.PlatformUnknown)
	foundHigh := false
	for _, it := range tok2.Advice {
		if it.Severity.String() == "High" {
			foundHigh = true
		}
	}
	if !foundHigh {
		t.Fatalf("expected a High CapsLock advisory with capsLock=true, got %+v", tok2.Advice)
	}
}

func TestDataJSONRoundTrip(t *testing.T) {
	d := calibdata.NewData()
	d.CharacterMap["&"] = "1"
	d.Prefix = "]C1"
	d.KeyboardScript = "Latin"

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got calibdata.Data
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(d.CharacterMap, got.CharacterMap) {
		t.Fatalf("CharacterMap mismatch after round-trip: %v vs %v", d.CharacterMap, got.CharacterMap)
	}
	if d.Prefix != got.Prefix || d.KeyboardScript != got.KeyboardScript {
		t.Fatalf("scalar field mismatch after round-trip: %+v vs %+v", d, got)
	}
}
