// Package remap implements the stateless runtime transform (spec.md 4.4):
// given already-calibrated Data, turn host-reported text back into the
// text the scanner actually intended. It is pure and allocation-light, and
// safe to call concurrently from many goroutines against the same *Data,
// since Data never changes after construction (spec.md 5).
package remap

import (
	"strings"

	"github.com/solidkey/calibration/calibdata"
	"github.com/solidkey/calibration/deadkey"
)

// ExceptionReason classifies why a PreprocessorException was raised.
type ExceptionReason int

const (
	ReasonScannerUnassignedKey ExceptionReason = iota
	ReasonNonInvariantUnrecognised
)

// PreprocessorException is accumulated for characters Remap could not
// confidently resolve (spec.md 4.4 step 3); it does not abort processing.
type PreprocessorException struct {
	Reason ExceptionReason
	Rune   rune
	Offset int // rune offset into the reported string
}

// Process applies data to reported, implementing spec.md 4.4's algorithm
// exactly: strip prefix/suffix/EOL, then scan left-to-right preferring a
// two-character dead-key match, then a longest-match ligature, then a
// direct character-map substitution, else pass the rune through unchanged.
func Process(reported string, data *calibdata.Data) (string, []PreprocessorException) {
	body := strip(reported, data)
	runes := []rune(body)

	var out strings.Builder
	out.Grow(len(body))
	var exceptions []PreprocessorException

	unassigned := stringSet(data.ScannerUnassignedKeys)
	ligaturePrefixes := ligatureFirstChars(data.LigatureMap)

	i := 0
	for i < len(runes) {
		if i+1 < len(runes) {
			if v, ok := lookupDeadKey(data.DeadKeysMap, runes[i], runes[i+1]); ok {
				out.WriteString(v)
				i += 2
				continue
			}
		}
		if ligaturePrefixes[runes[i]] {
			if v, n, ok := longestLigatureMatch(data.LigatureMap, runes[i:]); ok {
				out.WriteString(v)
				i += n
				continue
			}
		}
		if v, ok := data.CharacterMap[string(runes[i])]; ok {
			out.WriteString(v)
			i++
			continue
		}
		if unassigned[runes[i]] {
			exceptions = append(exceptions, PreprocessorException{
				Reason: ReasonScannerUnassignedKey, Rune: runes[i], Offset: i,
			})
		}
		out.WriteRune(runes[i])
		i++
	}
	return out.String(), exceptions
}

func strip(reported string, data *calibdata.Data) string {
	s := reported
	if data.Prefix != "" {
		s = strings.TrimPrefix(s, data.Prefix)
	}
	s = strings.TrimSuffix(s, "\r\n")
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	if data.Suffix != "" {
		s = strings.TrimSuffix(s, data.Suffix)
	}
	return s
}

// lookupDeadKey checks whether (a, b) forms a key in deadKeysMap. The map
// is keyed by deadkey.Sequence internally; the NUL-prefixed string form
// (spec.md 3) exists only at the JSON boundary (package deadkey).
func lookupDeadKey(m deadkey.Map[string], a, b rune) (string, bool) {
	v, ok := m[deadkey.Sequence{Indicator: a, Follower: b}]
	return v, ok
}

func ligatureFirstChars(m map[string]string) map[rune]bool {
	out := make(map[rune]bool, len(m))
	for k := range m {
		r := []rune(k)
		if len(r) > 0 {
			out[r[0]] = true
		}
	}
	return out
}

// longestLigatureMatch finds the longest key in m that is a prefix of
// runes, per spec.md 4.4: "attempt the longest match".
func longestLigatureMatch(m map[string]string, runes []rune) (string, int, bool) {
	best := ""
	bestLen := 0
	for k := range m {
		kr := []rune(k)
		if len(kr) > len(runes) || len(kr) <= bestLen {
			continue
		}
		if string(runes[:len(kr)]) == k {
			best = m[k]
			bestLen = len(kr)
		}
	}
	if bestLen == 0 {
		return "", 0, false
	}
	return best, bestLen, true
}

func stringSet(keys []string) map[rune]bool {
	out := make(map[rune]bool, len(keys))
	for _, k := range keys {
		for _, r := range k {
			out[r] = true
		}
	}
	return out
}
