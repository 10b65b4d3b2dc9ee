package capability

import (
	"sort"

	"github.com/solidkey/calibration/diag"
	"github.com/solidkey/calibration/script"
)

// ambiguousKeys returns m's keys in sorted order, for deterministic
// SystemCapabilities output over a map the engine built with no ordering
// guarantee of its own.
func ambiguousKeys(m map[string][]string) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SystemCapabilities is the derived read model over a session's
// Information/Warning/Error streams (spec.md 3). CapsLock is the one
// field still mutable after derivation, since the host supplies ground
// truth for it only late in the flow.
type SystemCapabilities struct {
	// Reliability.
	CanReadInvariantsReliably    OptBool
	CanReadNonInvariantsReliably OptBool
	CanReadFormat0506Reliably    OptBool
	CanReadBarcodesReliably      OptBool

	// Layout correspondence. Nulled out (Unknown) whenever a case
	// conversion flag below is set, per spec.md 4.2 step 2.
	KeyboardLayoutsCorrespondForInvariants    OptBool
	KeyboardLayoutsCorrespondForNonInvariants OptBool

	// Separator representability (one per named ASCII separator,
	// spec.md 4.1.1 items 4-8).
	KeyboardLayoutsCanRepresentGroupSeparator  OptBool
	KeyboardLayoutsCanRepresentFileSeparator   OptBool
	KeyboardLayoutsCanRepresentRecordSeparator OptBool
	KeyboardLayoutsCanRepresentUnitSeparator   OptBool
	KeyboardLayoutsCanRepresentEndOfTransmission OptBool

	// Case behaviour.
	ScannerMayConvertToUpperCase   OptBool
	ScannerMayConvertToLowerCase   OptBool
	ScannerMayInvertCase           OptBool
	ScannerMayCompensateForCapsLock OptBool
	CapsLockProbablyOn             OptBool
	CapsLockOn                     OptBool
	// KeyboardScriptDoesNotSupportCase is resolved against the closed
	// list in script.CaseSupportingScripts (spec.md 4.2 step 3).
	KeyboardScriptDoesNotSupportCase OptBool

	// AIM identifier.
	AimIdentifierTransmitted OptBool
	NotTransmittingAim       OptBool
	MultipleKeysAimFlagCharacter OptBool

	// Dead keys / ambiguities (mapping lists, spec.md 3
	// "SystemCapabilities ... plus mapping lists").
	SomeDeadKeysUnrecognisedForInvariants    OptBool
	SomeDeadKeysUnrecognisedForNonInvariants OptBool
	AmbiguousInvariantCharacters             []string
	AmbiguousNonInvariantCharacters          []string

	// Format 05/06 (ISO/IEC 15434 envelopes).
	MayNotReadFormat0506 OptBool

	// CapsLock is the one mutable field: the host supplies ground truth
	// after the fact, and flips the meaning of the two ScannerMayConvert*
	// flags when true (spec.md 4.2 step 1).
	CapsLock OptBool

	// TestFailed/NoDataReported mirror the generic failure codes so a
	// caller can distinguish "we know nothing" from "we know it's bad".
	TestFailed      OptBool
	NoDataReported  OptBool
	PartialDataReported OptBool
}

// Derive folds a session's diagnostic stream into SystemCapabilities,
// applying the spec.md 4.2 normalisation steps in order. capsLock is the
// host-supplied ground truth (Unknown if the host doesn't know either);
// invariantAmbiguities/nonInvariantAmbiguities are the engine's raw
// reported->[]expected collision maps (calibdata.Data's
// InvariantGs1Ambiguities/NonInvariantAmbiguities), flattened here into
// the plain key lists SystemCapabilities exposes.
func Derive(stream diag.Stream, capsLock OptBool, keyboardScript string, invariantAmbiguities, nonInvariantAmbiguities map[string][]string) SystemCapabilities {
	var c SystemCapabilities
	c.CapsLock = capsLock
	c.AmbiguousInvariantCharacters = ambiguousKeys(invariantAmbiguities)
	c.AmbiguousNonInvariantCharacters = ambiguousKeys(nonInvariantAmbiguities)

	// Pass 1: map each diagnostic to at most one field, per the
	// deterministic table spec.md 4.2 describes.
	apply := func(code diag.Code, set func()) {
		if stream.Has(code) {
			set()
		}
	}

	apply(diag.ReadsInvariantCharactersReliably, func() { c.CanReadInvariantsReliably = True })
	apply(diag.ReadsNonInvariantCharactersReliably, func() { c.CanReadNonInvariantsReliably = True })
	apply(diag.ReadsFormat0506Reliably, func() { c.CanReadFormat0506Reliably = True })
	apply(diag.CannotReadInvariantsReliably, func() { c.CanReadInvariantsReliably = False })
	apply(diag.CannotReadNonInvariantsReliably, func() { c.CanReadNonInvariantsReliably = False })
	apply(diag.CannotReadFormat0506Reliably, func() { c.CanReadFormat0506Reliably = False })
	apply(diag.CannotReadBarcodesReliably, func() { c.CanReadBarcodesReliably = False })
	apply(diag.HiddenCharactersNotReportedCorrectly, func() {
		c.KeyboardLayoutsCanRepresentGroupSeparator = False
		c.CanReadFormat0506Reliably = False
	})
	apply(diag.ScannerMayConvertToUpperCase, func() { c.ScannerMayConvertToUpperCase = True })
	apply(diag.ScannerMayConvertToLowerCase, func() { c.ScannerMayConvertToLowerCase = True })
	apply(diag.ScannerMayInvertCase, func() { c.ScannerMayInvertCase = True })
	apply(diag.CapsLockProbablyOn, func() { c.CapsLockProbablyOn = True })
	apply(diag.CapsLockOn, func() { c.CapsLockOn = True })
	apply(diag.CapsLockCompensation, func() { c.ScannerMayCompensateForCapsLock = True })
	apply(diag.NotTransmittingAim, func() { c.NotTransmittingAim = True })
	apply(diag.DetectedAimIdentifier, func() { c.AimIdentifierTransmitted = True })
	apply(diag.MultipleKeysAimFlagCharacter, func() { c.MultipleKeysAimFlagCharacter = True })
	apply(diag.MayNotReadFormat0506, func() { c.MayNotReadFormat0506 = True })
	apply(diag.SomeDeadKeyCombinationsUnrecognisedForInvariants, func() {
		c.SomeDeadKeysUnrecognisedForInvariants = True
	})
	apply(diag.SomeDeadKeyCombinationsUnrecognisedForNonInvariants, func() {
		c.SomeDeadKeysUnrecognisedForNonInvariants = True
	})
	apply(diag.CannotReadAimNoCalibration, func() { c.AimIdentifierTransmitted = False })
	apply(diag.TestFailed, func() { c.TestFailed = True })
	apply(diag.NoCalibrationDataReported, func() { c.NoDataReported = True })
	apply(diag.PartialCalibrationDataReported, func() { c.PartialDataReported = True })

	if stream.Has(diag.DeadKeyMultiMapping) || stream.Has(diag.MultipleKeys) {
		c.CanReadInvariantsReliably = False
	}

	// Errors reset broad capability groups to Unknown rather than False
	// (spec.md 4.2: "a partial report does not prove incorrectness, only
	// ignorance"), but only for groups this specific error touches and
	// that pass 1 did not already set to a definite value above.
	if stream.Has(diag.NoCalibrationDataReported) || stream.Has(diag.PartialCalibrationDataReported) {
		if !c.KeyboardLayoutsCorrespondForInvariants.IsKnown() {
			c.KeyboardLayoutsCorrespondForInvariants = Unknown
		}
		if !c.KeyboardLayoutsCorrespondForNonInvariants.IsKnown() {
			c.KeyboardLayoutsCorrespondForNonInvariants = Unknown
		}
	}

	// Normalisation step 1: CapsLock on flips the meaning of the two
	// ScannerMayConvert* flags (spec.md 4.2 step 1).
	if capsLock == True {
		c.ScannerMayConvertToUpperCase, c.ScannerMayConvertToLowerCase =
			c.ScannerMayConvertToLowerCase, c.ScannerMayConvertToUpperCase
	}

	// Normalisation step 2: case conversion nulls out correspondence
	// (spec.md 4.2 step 2).
	if c.ScannerMayConvertToUpperCase.IsTrue() || c.ScannerMayConvertToLowerCase.IsTrue() || c.ScannerMayInvertCase.IsTrue() {
		c.KeyboardLayoutsCorrespondForInvariants = Unknown
		c.KeyboardLayoutsCorrespondForNonInvariants = Unknown
	} else if !stream.HasErrors() {
		// In the absence of any case-mangling and any error, invariant
		// correspondence is whatever the reliability read already told
		// us (a clean baseline implies correspondence).
		if c.CanReadInvariantsReliably == True && !c.KeyboardLayoutsCorrespondForInvariants.IsKnown() {
			c.KeyboardLayoutsCorrespondForInvariants = True
		}
	}

	// spec.md 8 boundary: CapsLock=true + inverted case implies the
	// scanner does *not* compensate (the two facts are mutually
	// exclusive diagnoses of the same symptom).
	if capsLock == True && c.ScannerMayInvertCase.IsTrue() {
		c.ScannerMayCompensateForCapsLock = False
	}

	// Normalisation step 3: resolve script case-support against the
	// closed list (spec.md 4.2 step 3).
	if keyboardScript != "" {
		if script.CaseSupportingScripts[keyboardScript] {
			c.KeyboardScriptDoesNotSupportCase = False
		} else {
			c.KeyboardScriptDoesNotSupportCase = True
		}
	}

	return c
}
