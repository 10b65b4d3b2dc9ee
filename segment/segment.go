// Package segment builds the baseline probe payload (spec.md 4.1.1) and
// splits the host-reported text for that payload back into its eight
// ordered segments (spec.md 4.1.2 step 1).
package segment

import (
	"errors"
	"strings"

	"github.com/solidkey/calibration/charcat"
)

// ErrNoDelimiters is returned by Split when the chosen delimiter does not
// appear in reported at all, spec.md 4.1.2 step 1.
var ErrNoDelimiters = errors.New("segment: no delimiters found in reported text")

// ErrNoDelimiterCandidate is returned by ChooseDelimiter when every printable
// non-space ASCII character is already used in the probe alphabet, spec.md
// 4.1.1: "If none exists, calibration fails with NoTemporaryDelimiterCandidate."
var ErrNoDelimiterCandidate = errors.New("segment: no temporary delimiter candidate available")

// Index names the eight ordered segments of the baseline probe, in the
// order spec.md 4.1.1 lists them.
type Index int

const (
	SegPrefix Index = iota // 1: optional prefix slot, empty in the payload itself
	SegInvariants
	SegAdditionalASCII
	SegGroupSeparator
	SegFileSeparator
	SegRecordSeparator
	SegUnitSeparator
	SegEndOfTransmission
	segCount
)

// ChooseDelimiter picks the temporary delimiter: the first printable
// non-space ASCII character (by code point, from '!' up to '~') that does
// not appear in the invariant or
// additional-ASCII alphabets and is not one of the named separators. A
// stable, lowest-code-point choice keeps probe payloads deterministic
// across runs with the same alphabet.
func ChooseDelimiter() (rune, error) {
	used := make(map[rune]bool, len(charcat.Invariants)+len(charcat.AdditionalASCII))
	for _, r := range charcat.Invariants {
		used[r] = true
	}
	for _, r := range charcat.AdditionalASCII {
		used[r] = true
	}
	used[rune(charcat.GS)] = true
	used[rune(charcat.FS)] = true
	used[rune(charcat.RS)] = true
	used[rune(charcat.US)] = true
	used[rune(charcat.EOT)] = true

	for r := rune(0x21); r < 0x7F; r++ {
		if !used[r] {
			return r, nil
		}
	}
	return 0, ErrNoDelimiterCandidate
}

// BuildBaseline constructs the baseline probe payload: the eight segments
// joined by delim, bracketed by the AIM identifier prefix and a trailing
// suffix sentinel. includeEOT controls whether segment 8 (spec.md 4.1.1
// item 8, "optional - see FormatSupport flag") is present.
func BuildBaseline(delim rune, aimPrefix, suffix string, includeEOT bool) string {
	var b strings.Builder
	b.WriteString(aimPrefix)

	writeRun := func(runes []rune) {
		for i, r := range runes {
			if i > 0 {
				b.WriteRune(delim)
			}
			b.WriteRune(r)
		}
	}

	writeRun(charcat.Invariants)
	b.WriteRune(delim)
	writeRun(charcat.AdditionalASCII)
	b.WriteRune(delim)
	b.WriteRune('A')
	b.WriteRune(rune(charcat.GS))
	b.WriteRune('B')
	b.WriteRune(delim)
	b.WriteRune('A')
	b.WriteRune(rune(charcat.FS))
	b.WriteRune('B')
	b.WriteRune(delim)
	b.WriteRune('A')
	b.WriteRune(rune(charcat.RS))
	b.WriteRune('B')
	b.WriteRune(delim)
	b.WriteRune('A')
	b.WriteRune(rune(charcat.US))
	b.WriteRune('B')
	if includeEOT {
		b.WriteRune(delim)
		b.WriteRune('A')
		b.WriteRune(rune(charcat.EOT))
		b.WriteRune('B')
	}
	b.WriteString(suffix)
	return b.String()
}

// Split divides reported on delim into its top-level fields. It does not
// itself know how many fields to expect -- the engine compares the
// returned slice's length and content against the canonical baseline to
// detect partial/incorrect reports (spec.md 4.1.6,
// PartialCalibrationDataReported).
func Split(reported string, delim rune) ([]string, error) {
	if !strings.ContainsRune(reported, delim) {
		return nil, ErrNoDelimiters
	}
	return strings.Split(reported, string(delim)), nil
}

// LocateDelimiter implements spec.md 4.1.2 step 1's fallback: when the
// configured delimiter rune itself was remapped by the host layout, find
// whichever rune in reported appears with the expected stride (i.e. once
// between every pair of probe characters) and treat it as the reported
// form of the delimiter. expectedFields is the number of top-level fields
// the canonical baseline payload has for the given includeEOT choice.
func LocateDelimiter(reported string, expectedFields int) (rune, bool) {
	counts := make(map[rune]int)
	for _, r := range reported {
		counts[r]++
	}
	want := expectedFields - 1
	var candidate rune
	found := false
	for r, n := range counts {
		if n == want {
			if found {
				// Ambiguous: more than one rune has the right
				// cardinality. Prefer none over a guess.
				return 0, false
			}
			candidate = r
			found = true
		}
	}
	return candidate, found
}
