package advice

// phase2 applies the spec.md 4.3 subsumption rules in order. Each rule is
// a named, pure rewrite over the three buckets -- a declarative
// cross-bucket edit, not an algorithmic loop.
func phase2(b *buckets) {
	dropGS1OnlyWhenFormat0506Noted(b)
	dropMayNotReadFormat0506WhenHighFormat0506(b)
	dropDownstreamOfCaseConversion(b)
	dropCapsLockOnWhenCompensated(b)
	dropGenericTestFailedWhenRootCauseKnown(b)
	dropNotTransmittingAimWhenHostCannotCalibrate(b)
}

// Rule 1: a High item reporting mismatched layouts plus an unreadable
// Format05/06 makes the Medium "GS1-only test was run" notice redundant.
func dropGS1OnlyWhenFormat0506Noted(b *buckets) {
	if has(b.high, CannotReadFormat0506Unreadable) || has(b.high, CannotReadFormat0506Hidden) {
		b.medium = removeCode(b.medium, GS1OnlyTestWasRun)
	}
}

// Rule 2: a High "cannot read Format05/06" (either variant) subsumes the
// Medium "may not read Format05/06" item.
func dropMayNotReadFormat0506WhenHighFormat0506(b *buckets) {
	if has(b.high, CannotReadFormat0506Unreadable) || has(b.high, CannotReadFormat0506Hidden) {
		b.medium = removeCode(b.medium, MayNotReadFormat0506)
	}
}

// Rule 3: a High case-conversion item is the root cause of a family of
// downstream Medium items (and the generic High CannotReadBarcodesReliably);
// once it is present, those downstream items are noise.
func dropDownstreamOfCaseConversion(b *buckets) {
	if !has(b.high, ScannerMayConvertCase) && !has(b.high, ScannerMayInvertCase) {
		return
	}
	b.medium = removeCode(b.medium, CapsLockCompensation)
	b.medium = removeCode(b.medium, MayNotReadFormat0506)
	b.medium = removeCode(b.medium, MayNotReadNonInvariantCharacters)
	b.high = removeCode(b.high, CannotReadBarcodesReliably)
}

// Rule 4: CapsLockCompensation fully describes a CapsLockOn situation;
// when both are present the plain CapsLockOn item is redundant.
func dropCapsLockOnWhenCompensated(b *buckets) {
	if has(b.high, CapsLockOn) && has(b.medium, CapsLockCompensation) {
		b.high = removeCode(b.high, CapsLockOn)
	}
}

// Rule 5: any of a family of more specific High failures makes the
// generic TestFailed item (either severity variant) redundant.
func dropGenericTestFailedWhenRootCauseKnown(b *buckets) {
	rootCauseKnown := has(b.high, CannotReadInvariantsReliably) ||
		has(b.high, CannotReadNonInvariantsReliably) ||
		has(b.high, ScannerMayConvertCase) ||
		has(b.high, ScannerMayInvertCase) ||
		has(b.high, MultipleKeys)
	if rootCauseKnown {
		b.high = removeCode(b.high, TestFailedHigh)
		b.medium = removeCode(b.medium, TestFailedMedium)
	}
}

// Rule 6: CannotReadAimNoCalibration already explains why AIM can't be
// read on this host; the plain NotTransmittingAim diagnosis (the scanner
// simply isn't sending it) is a different, weaker claim and is dropped in
// favour of the stronger one.
func dropNotTransmittingAimWhenHostCannotCalibrate(b *buckets) {
	if has(b.high, CannotReadAimNoCalibration) {
		b.medium = removeCode(b.medium, NotTransmittingAim)
	}
}
