package engine

import (
	"strings"

	"github.com/solidkey/calibration/charcat"
	"github.com/solidkey/calibration/deadkey"
	"github.com/solidkey/calibration/diag"
	"github.com/solidkey/calibration/segment"
)

// processDeadKeyProbe implements spec.md 4.1.3: for the dead key currently
// being probed, each reported slot is either (a) a precomposed character
// (good), (b) the indicator followed by a fallback character (unbound
// combination), or (c) the indicator alone, a host-specific quirk fixed up
// via DeadKeyFixUp.
func (e *Engine) processDeadKeyProbe(reported string) error {
	indicator := e.deadKeyQueue[e.deadKeyPos]

	core := e.strip(reported)
	core = e.stripPrefix(core)

	fields, err := segment.Split(core, e.delim)
	if err != nil {
		if alt, ok := segment.LocateDelimiter(core, len(charcat.Invariants)); ok {
			fields, err = segment.Split(core, alt)
		}
		if err != nil {
			e.stream.Add(diag.Item{Code: diag.NoDelimiters, Text: err.Error()})
			return err
		}
	}

	n := len(charcat.Invariants)
	if len(fields) < n {
		e.stream.Add(diag.Item{Code: diag.PartialCalibrationDataReported, Text: "dead-key probe truncated"})
		n = len(fields)
	}

	for i := 0; i < n; i++ {
		e.resolveDeadKeySlot(indicator, charcat.Invariants[i], fields[i])
	}

	e.deadKeyPos++
	if e.deadKeyPos >= len(e.deadKeyQueue) {
		e.seal()
	}
	return nil
}

func (e *Engine) resolveDeadKeySlot(indicator, expected rune, field string) {
	r := []rune(field)
	switch {
	case len(r) == 0:
		e.data.ScannerUnassignedKeys = append(e.data.ScannerUnassignedKeys, string(expected))
		return
	case len(r) == 1 && r[0] == indicator:
		// Case (c): pressing the dead key twice reports just the
		// indicator. Fix up using the indicator's own plain-key mapping,
		// if the baseline already resolved it; otherwise assume identity.
		plain := indicator
		if mapped, ok := e.data.CharacterMap[string(indicator)]; ok {
			plain = []rune(mapped)[0]
		}
		e.deadTable.FixUp(indicator, plain)
		e.data.DeadKeyCharacterMap[deadkey.Sequence{Indicator: indicator, Follower: indicator}] = string(plain)
		return
	case len(r) == 1:
		// Case (a): the slot's first (only) character is the precomposed
		// result of indicator+invariant -- resolved, usable, good.
		follower := r[0]
		res := e.deadTable.Record(indicator, follower, expected)
		if res == deadkey.ResolutionCollision {
			e.stream.Add(diag.Item{Code: diag.DeadKeyMultiMapping, Text: strings.TrimSpace(field)})
			return
		}
		e.data.DeadKeyCharacterMap[deadkey.Sequence{Indicator: indicator, Follower: follower}] = string(expected)
		return
	case r[0] == indicator:
		// Case (b): the dead key echoed itself with no composition --
		// an unbound combination. Not written to DeadKeyCharacterMap;
		// only a good slot (case a above) earns an entry there.
		code := diag.SomeDeadKeyCombinationsUnrecognisedForNonInvariants
		if charcat.IsInvariant(expected) {
			code = diag.SomeDeadKeyCombinationsUnrecognisedForInvariants
		}
		e.stream.Add(diag.Item{Code: code, Text: string(expected)})
		return
	default:
		// The host didn't even echo the indicator: treat the whole field
		// as an unexpected direct report and fold it into CharacterMap as
		// a best-effort recovery rather than discarding the observation.
		e.recordCharacterMapping(string(r[0]), expected)
	}
}
