package advice

import (
	"testing"

	"github.com/solidkey/calibration/calibkind"
	"github.com/solidkey/calibration/capability"
)

func TestReasonCleanBaselineIsLow(t *testing.T) {
	c := capability.SystemCapabilities{CanReadInvariantsReliably: capability.True}
	items := Reason(c, calibkind.Agnostic, calibkind.PlatformUnknown)
	if len(items) != 1 || items[0].Code != ReadsInvariantCharactersReliably {
		t.Fatalf("expected single Low ReadsInvariantCharactersReliably item, got %+v", items)
	}
	if items[0].Severity != Low {
		t.Fatalf("expected Low severity, got %v", items[0].Severity)
	}
}

func TestReasonCapsLockOnHighWithoutCompensationSurvivesRule4(t *testing.T) {
	c := capability.SystemCapabilities{CapsLockOn: capability.True}
	items := Reason(c, calibkind.Agnostic, calibkind.PlatformUnknown)
	var sawHigh bool
	for _, it := range items {
		if it.Code == CapsLockOn {
			sawHigh = true
		}
	}
	if !sawHigh {
		t.Fatalf("expected CapsLockOn to survive when no compensation item is present, got %+v", items)
	}
}

func TestReasonCapsLockCompensationDropsCapsLockOn(t *testing.T) {
	c := capability.SystemCapabilities{
		CapsLockOn:                      capability.True,
		ScannerMayCompensateForCapsLock: capability.True,
	}
	items := Reason(c, calibkind.Agnostic, calibkind.PlatformUnknown)
	for _, it := range items {
		if it.Code == CapsLockOn {
			t.Fatalf("expected CapsLockOn to be dropped per rule 4, got %+v", items)
		}
	}
}

func TestReasonGroupSeparatorUnrepresentableIsHigh(t *testing.T) {
	c := capability.SystemCapabilities{
		KeyboardLayoutsCanRepresentGroupSeparator: capability.False,
		CanReadFormat0506Reliably:                 capability.False,
	}
	items := Reason(c, calibkind.Calibration, calibkind.PlatformUnknown)
	found := false
	for _, it := range items {
		if it.Code == HiddenCharactersNotReportedCorrectlyCalibration {
			found = true
			if it.Severity != High {
				t.Fatalf("expected High severity, got %v", it.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected HiddenCharactersNotReportedCorrectlyCalibration item, got %+v", items)
	}
}

func TestReasonHighSuppressesLowOutput(t *testing.T) {
	c := capability.SystemCapabilities{
		CanReadInvariantsReliably: capability.True,
		CanReadBarcodesReliably:   capability.False,
	}
	items := Reason(c, calibkind.Agnostic, calibkind.PlatformUnknown)
	for _, it := range items {
		if it.Severity == Low {
			t.Fatalf("expected no Low items when High is present, got %+v", items)
		}
	}
}

func TestReasonLowWithMediumAppendsNote(t *testing.T) {
	c := capability.SystemCapabilities{
		CanReadInvariantsReliably:                capability.True,
		KeyboardLayoutsCanRepresentGroupSeparator: capability.False,
	}
	// Force a Medium without a High: use a capability shape that only
	// trips a Medium-level rule (MayNotReadFormat0506) while invariants
	// still read reliably.
	c.KeyboardLayoutsCanRepresentGroupSeparator = capability.Unknown
	c.MayNotReadFormat0506 = capability.True
	items := Reason(c, calibkind.Agnostic, calibkind.PlatformUnknown)

	var low *Item
	mediumCount := 0
	for i := range items {
		if items[i].Severity == Low {
			low = &items[i]
		}
		if items[i].Severity == Medium {
			mediumCount++
		}
	}
	if low == nil {
		t.Fatalf("expected a Low item, got %+v", items)
	}
	if mediumCount == 0 {
		t.Fatalf("expected at least one Medium item, got %+v", items)
	}
	if !containsAny(low.Description, "additional issue") {
		t.Fatalf("expected appended additional-issues note, got %q", low.Description)
	}
}

func TestReasonNoDuplicateCodesAcrossBuckets(t *testing.T) {
	c := capability.SystemCapabilities{
		CapsLockOn:                      capability.True,
		ScannerMayCompensateForCapsLock: capability.True,
		ScannerMayInvertCase:            capability.True,
	}
	items := Reason(c, calibkind.Calibration, calibkind.PlatformMacintosh)
	seen := map[Type]bool{}
	for _, it := range items {
		if seen[it.Code] {
			t.Fatalf("code %d appears more than once: %+v", it.Code, items)
		}
		seen[it.Code] = true
	}
}

func containsAny(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
