// Package calibdata defines Data, the serializable calibration artifact
// spec.md 3 and 6 describe, independent of the engine that builds it and
// the remapper that consumes it, so both can depend on it without a cycle.
package calibdata

import (
	"encoding/json"

	"github.com/solidkey/calibration/deadkey"
)

// Performance buckets ScannerKeyboardPerformance (spec.md 3), derived from
// the minimum observed inter-character timing during probes.
type Performance int

const (
	PerformanceUnknown Performance = iota
	PerformanceLow
	PerformanceMedium
	PerformanceHigh
)

func (p Performance) String() string {
	switch p {
	case PerformanceHigh:
		return "High"
	case PerformanceMedium:
		return "Medium"
	case PerformanceLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders the performance as its string name, or omits via
// omitempty at the containing struct when Unknown (the zero value), per
// spec.md 6 "Empty enumerables are omitted" applied to this enum too.
func (p Performance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts the string names MarshalJSON writes; any other
// name decodes as PerformanceUnknown.
func (p *Performance) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, v := range []Performance{PerformanceLow, PerformanceMedium, PerformanceHigh} {
		if v.String() == s {
			*p = v
			return nil
		}
	}
	*p = PerformanceUnknown
	return nil
}

// Data is the calibration artifact spec.md 3 describes: the seed for
// Remapper, and the thing (de)serialized across the wire shape fixed in
// spec.md 6.
type Data struct {
	AimFlagCharacterSequence string `json:"aimFlagCharacterSequence,omitempty"`

	CharacterMap       map[string]string `json:"characterMap,omitempty"`
	DeadKeysMap        deadkey.Map[string] `json:"deadKeysMap,omitempty"`
	DeadKeyCharacterMap deadkey.Map[string] `json:"deadKeyCharacterMap,omitempty"`
	LigatureMap        map[string]string `json:"ligatureMap,omitempty"`
	ScannerDeadKeysMap map[string]string `json:"scannerDeadKeysMap,omitempty"`

	ScannerUnassignedKeys []string `json:"scannerUnassignedKeys,omitempty"`

	Prefix string `json:"prefix,omitempty"`
	Code   string `json:"code,omitempty"`
	Suffix string `json:"suffix,omitempty"`

	ReportedCharacters string `json:"reportedCharacters,omitempty"`

	KeyboardScript string `json:"keyboardScript,omitempty"`
	// KeyboardScriptTag is the expansion's ISO 15924 canonicalization of
	// KeyboardScript (SPEC_FULL.md 3), omitted when not resolvable.
	KeyboardScriptTag string `json:"keyboardScriptTag,omitempty"`

	ScannerKeyboardPerformance Performance `json:"scannerKeyboardPerformance,omitempty"`
	ScannerCharactersPerSecond float64     `json:"scannerCharactersPerSecond,omitempty"`

	LineFeedCharacter string `json:"lineFeedCharacter,omitempty"`

	// InvariantGs1Ambiguities and NonInvariantAmbiguities record reported
	// characters that resolve to more than one expected character
	// (spec.md 4.1.2 step 6), keyed by the reported character.
	InvariantGs1Ambiguities map[string][]string `json:"invariantGs1Ambiguities,omitempty"`
	NonInvariantAmbiguities map[string][]string `json:"nonInvariantAmbiguities,omitempty"`
}

// NewData returns a zero-valued Data with its maps initialized, ready for
// the engine to populate incrementally (spec.md 3 lifecycle: "Data is
// created during the first successful baseline probe, mutated by
// subsequent dead-key probes, sealed when the token reports 0 remaining.").
func NewData() *Data {
	return &Data{
		CharacterMap:            make(map[string]string),
		DeadKeysMap:             make(deadkey.Map[string]),
		DeadKeyCharacterMap:     make(deadkey.Map[string]),
		LigatureMap:             make(map[string]string),
		ScannerDeadKeysMap:      make(map[string]string),
		InvariantGs1Ambiguities: make(map[string][]string),
		NonInvariantAmbiguities: make(map[string][]string),
	}
}

// Clone returns a deep copy, used by Token's value-record clone semantics.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	out := *d
	out.CharacterMap = cloneStringMap(d.CharacterMap)
	out.DeadKeysMap = cloneDeadMap(d.DeadKeysMap)
	out.DeadKeyCharacterMap = cloneDeadMap(d.DeadKeyCharacterMap)
	out.LigatureMap = cloneStringMap(d.LigatureMap)
	out.ScannerDeadKeysMap = cloneStringMap(d.ScannerDeadKeysMap)
	out.ScannerUnassignedKeys = append([]string(nil), d.ScannerUnassignedKeys...)
	out.InvariantGs1Ambiguities = cloneSliceMap(d.InvariantGs1Ambiguities)
	out.NonInvariantAmbiguities = cloneSliceMap(d.NonInvariantAmbiguities)
	return &out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneDeadMap(m deadkey.Map[string]) deadkey.Map[string] {
	if m == nil {
		return nil
	}
	out := make(deadkey.Map[string], len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSliceMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}
