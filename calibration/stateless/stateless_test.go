package stateless

import (
	"strings"
	"testing"

	"github.com/solidkey/calibration/calibkind"
	"github.com/solidkey/calibration/capability"
)

// roundTrip marshals and immediately unmarshals p, simulating a host that
// genuinely has no in-memory state between calls.
func roundTrip(t *testing.T, p Packet) Packet {
	t.Helper()
	b, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return got
}

func TestStatelessCleanBaselineRoundTrips(t *testing.T) {
	p, err := Start(calibkind.Agnostic)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	p = roundTrip(t, p)

	var b strings.Builder
	b.WriteString(p.Payload)

	p, err = Calibrate(p, b.String(), capability.Unknown, calibkind.PlatformUnknown, calibkind.SpanWholeEntry, nil)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	p = roundTrip(t, p)

	if len(p.Data.CharacterMap) != 0 {
		t.Fatalf("expected empty CharacterMap, got %v", p.Data.CharacterMap)
	}
	if p.Capabilities.CanReadInvariantsReliably != capability.True {
		t.Fatalf("expected CanReadInvariantsReliably=true, got %v", p.Capabilities.CanReadInvariantsReliably)
	}
}

func TestStatelessAbandonIsTerminal(t *testing.T) {
	p, err := Start(calibkind.Agnostic)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	p, err = Abandon(p)
	if err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	p = roundTrip(t, p)
	if !p.Abandoned {
		t.Fatalf("expected Abandoned=true after Abandon")
	}
}
