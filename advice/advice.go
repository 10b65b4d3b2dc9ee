// Package advice converts derived SystemCapabilities into an ordered,
// de-duplicated list of severity-ranked Items (spec.md 4.3). The
// transform runs in three phases: emit candidate items from a decision
// cascade, rewrite away redundant items across severity buckets, then
// order the survivors for output.
package advice

import (
	"github.com/solidkey/calibration/calibkind"
	"github.com/solidkey/calibration/capability"
)

// Type is an advice code. Its numeric value determines Severity via the
// same banding rule diag.Code uses (100-199 Low, 200-299 Medium, 300+
// High), per spec.md 3: "Severity is derived from AdviceType's numeric
// bucket."
type Type int

func (t Type) Severity() Severity {
	switch {
	case t >= 300:
		return High
	case t >= 200:
		return Medium
	default:
		return Low
	}
}

// Severity buckets advice output (spec.md 3).
type Severity int

const (
	Low Severity = iota
	Medium
	High
)

func (s Severity) String() string {
	switch s {
	case Medium:
		return "Medium"
	case High:
		return "High"
	default:
		return "Low"
	}
}

// Advice codes, grouped numerically as spec.md 4.3 describes: 100-series
// positive outcomes, 200-series structural warnings, 300-series fatal
// reading problems.
const (
	ReadsInvariantCharactersReliably Type = 100 + iota
	ReadsNonInvariantCharactersReliably
	ReadsFormat0506Reliably
	TransmitsAimIdentifier
)

const (
	CapsLockCompensation Type = 200 + iota
	MayNotReadFormat0506
	MayNotReadNonInvariantCharacters
	GS1OnlyTestWasRun
	NotTransmittingAim
	CapsLockOnMacintoshPreserved
	TestFailedMedium
)

const (
	CannotReadInvariantsReliably Type = 300 + iota
	CannotReadNonInvariantsReliably
	CannotReadFormat0506Hidden
	CannotReadFormat0506Unreadable
	ScannerMayConvertCase
	ScannerMayInvertCase
	CapsLockOn
	MultipleKeys
	HiddenCharactersNotReportedCorrectlyNoCalibration
	CannotReadAimNoCalibration
	CannotReadBarcodesReliably
	TestFailedHigh
	HiddenCharactersNotReportedCorrectlyCalibration
)

// Item is one emitted piece of advice.
type Item struct {
	Code        Type
	Condition   string
	Description string
	Advice      []string
	Severity    Severity
}

func newItem(code Type, condition, description string, lines ...string) Item {
	return Item{Code: code, Condition: condition, Description: description, Advice: lines, Severity: code.Severity()}
}

// buckets holds the three severity-local lists Phase 1 builds and Phase 2
// rewrites.
type buckets struct {
	low, medium, high []Item
}

func (b *buckets) add(it Item) {
	switch it.Severity {
	case High:
		b.high = appendUnique(b.high, it)
	case Medium:
		b.medium = appendUnique(b.medium, it)
	default:
		b.low = appendUnique(b.low, it)
	}
}

func appendUnique(items []Item, it Item) []Item {
	for _, existing := range items {
		if existing.Code == it.Code {
			return items // duplicate within a bucket is suppressed at emission
		}
	}
	return append(items, it)
}

func removeCode(items []Item, code Type) []Item {
	out := items[:0:0]
	for _, it := range items {
		if it.Code != code {
			out = append(out, it)
		}
	}
	return out
}

func has(items []Item, code Type) bool {
	for _, it := range items {
		if it.Code == code {
			return true
		}
	}
	return false
}

// Reason is a decision cascade over a capability snapshot, matching the
// spec.md design note's preference for pattern-match form: each rule is a
// case in a Go switch over the relevant capability fields rather than a
// pyramid of nested ifs.
func Reason(c capability.SystemCapabilities, assumption calibkind.Assumption, platform calibkind.Platform) []Item {
	b := &buckets{}
	phase1(b, c, assumption, platform)
	phase2(b)
	return phase3(b)
}

// phase1 emits one candidate Item per rule whose predicate holds, each
// severity-local bucket de-duplicated as items land (spec.md 4.3 phase 1).
func phase1(b *buckets, c capability.SystemCapabilities, assumption calibkind.Assumption, platform calibkind.Platform) {
	switch {
	case c.CanReadInvariantsReliably == capability.True:
		b.add(newItem(ReadsInvariantCharactersReliably, "invariants readable",
			"The scanner's reported characters can be reliably mapped to the characters GS1 barcodes require."))
	case c.CanReadInvariantsReliably == capability.False:
		b.add(newItem(CannotReadInvariantsReliably, "invariants unreadable",
			"One or more GS1 invariant characters cannot be read reliably.",
			"Check the scanner's keyboard-wedge layout against the host's."))
	}

	switch {
	case c.CanReadNonInvariantsReliably == capability.True:
		b.add(newItem(ReadsNonInvariantCharactersReliably, "non-invariants readable",
			"Additional ASCII characters outside the GS1 invariant set are read reliably."))
	case c.CanReadNonInvariantsReliably == capability.False:
		b.add(newItem(CannotReadNonInvariantsReliably, "non-invariants unreadable",
			"One or more non-invariant characters cannot be read reliably."))
		b.add(newItem(MayNotReadNonInvariantCharacters, "non-invariants degraded",
			"Barcodes using characters outside the GS1 invariant set may not be read correctly."))
	}

	switch {
	case c.CanReadFormat0506Reliably == capability.True:
		b.add(newItem(ReadsFormat0506Reliably, "format 05/06 readable",
			"ISO/IEC 15434 Format 05/06 envelopes, including EDI data, are read reliably."))
	case c.CanReadFormat0506Reliably == capability.False:
		code := CannotReadFormat0506Hidden
		if c.KeyboardLayoutsCanRepresentGroupSeparator == capability.False {
			code = CannotReadFormat0506Unreadable
		}
		b.add(newItem(code, "format 05/06 unreadable",
			"ISO/IEC 15434 Format 05/06 envelopes cannot be read reliably."))
	}

	if c.KeyboardLayoutsCanRepresentGroupSeparator == capability.False {
		code := HiddenCharactersNotReportedCorrectlyNoCalibration
		if assumption == calibkind.Calibration {
			code = HiddenCharactersNotReportedCorrectlyCalibration
		}
		b.add(newItem(code, "GS unrepresentable",
			"The host keyboard layout cannot represent the Group Separator; hidden characters in structured barcodes are not reported correctly."))
	}

	if c.CanReadInvariantsReliably == capability.True && c.CanReadNonInvariantsReliably != capability.True &&
		c.CanReadNonInvariantsReliably != capability.False {
		b.add(newItem(GS1OnlyTestWasRun, "gs1-only", "Only the GS1 invariant subset was tested; non-invariant reliability is unknown."))
	}

	switch {
	case c.ScannerMayConvertToUpperCase == capability.True, c.ScannerMayConvertToLowerCase == capability.True:
		b.add(newItem(ScannerMayConvertCase, "case conversion",
			"The host keyboard layout converts letters to a single case."))
	case c.ScannerMayInvertCase == capability.True:
		b.add(newItem(ScannerMayInvertCase, "case inversion",
			"The host keyboard layout inverts upper and lower case."))
	}

	switch {
	case c.CapsLockOn == capability.True && c.ScannerMayCompensateForCapsLock == capability.True:
		b.add(newItem(CapsLockCompensation, "capslock compensated",
			"CapsLock is on, but the scanner compensates for it."))
	case c.CapsLockOn == capability.True:
		b.add(newItem(CapsLockOn, "capslock on", "CapsLock is on."))
		if platform == calibkind.PlatformMacintosh {
			b.add(newItem(CapsLockOnMacintoshPreserved, "capslock macintosh",
				"On macOS, letter case may be preserved differently while CapsLock is on; verify case directly rather than relying on this diagnosis alone."))
		}
	case c.CapsLockProbablyOn == capability.True:
		b.add(newItem(CapsLockCompensation, "capslock probable", "CapsLock may be on."))
	}

	if c.MultipleKeysAimFlagCharacter == capability.True || len(c.AmbiguousInvariantCharacters) > 0 {
		b.add(newItem(MultipleKeys, "ambiguous mapping",
			"More than one expected character reported the same key; readings for the affected characters are unreliable."))
	}

	if c.NotTransmittingAim == capability.True {
		b.add(newItem(NotTransmittingAim, "no aim", "The scanner is not configured to transmit the AIM symbology identifier."))
	} else if c.AimIdentifierTransmitted == capability.True {
		b.add(newItem(TransmitsAimIdentifier, "aim transmitted", "The AIM symbology identifier is transmitted and read reliably."))
	}
	if c.AimIdentifierTransmitted == capability.False && assumption == calibkind.NoCalibration {
		b.add(newItem(CannotReadAimNoCalibration, "aim no calibration",
			"Without calibration, the AIM identifier cannot be read reliably on this host."))
	}
	if c.MayNotReadFormat0506 == capability.True && c.CanReadFormat0506Reliably != capability.False {
		b.add(newItem(MayNotReadFormat0506, "format 05/06 degraded",
			"Format 05/06 envelopes may not be read correctly."))
	}

	if c.TestFailed == capability.True || c.NoDataReported == capability.True || c.PartialDataReported == capability.True {
		if assumption == calibkind.Calibration {
			b.add(newItem(TestFailedHigh, "test failed", "Calibration did not complete successfully."))
		} else {
			b.add(newItem(TestFailedMedium, "test failed", "Calibration did not complete successfully."))
		}
	}

	if c.CanReadBarcodesReliably == capability.False {
		b.add(newItem(CannotReadBarcodesReliably, "unreliable", "Barcodes cannot be read reliably in general."))
	}
}
