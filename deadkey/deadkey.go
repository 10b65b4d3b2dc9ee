// Package deadkey models the two-character reported sequences a host
// keyboard layout produces for a dead key followed by its base character
// (e.g. French AZERTY "^" + "a" reported as "â"), and the wire-compatible
// map type calibration.Data uses to carry them.
//
// The upstream wire format keys these maps with a string of the form
// "\0" + indicator + follower (a NUL-prefixed two-rune string); this is a
// serialization artifact, not a domain concept (spec.md design note), so
// internally every map is keyed by the explicit Sequence struct below and
// the NUL form is produced only at the JSON boundary.
package deadkey

import (
	"encoding/json"
	"fmt"
)

// Sequence identifies a reported two-character dead-key combination:
// Indicator is the dead key itself as reported by the host, Follower is
// the next reported character.
type Sequence struct {
	Indicator rune
	Follower  rune
}

// String renders the NUL-prefixed wire form used by Map's JSON encoding.
func (s Sequence) String() string {
	return string([]rune{0, s.Indicator, s.Follower})
}

// ParseSequence parses the NUL-prefixed wire form back into a Sequence.
// It returns an error if s is not exactly three runes with a leading NUL.
func ParseSequence(s string) (Sequence, error) {
	r := []rune(s)
	if len(r) != 3 || r[0] != 0 {
		return Sequence{}, fmt.Errorf("deadkey: malformed sequence key %q", s)
	}
	return Sequence{Indicator: r[1], Follower: r[2]}, nil
}

// Map is a reportedSequence -> value map, generic over the value type:
// calibdata.Data's DeadKeysMap and DeadKeyCharacterMap both use string
// values, and Table.CharacterMap produces rune values. It marshals to/from the NUL-prefixed wire shape spec.md 6
// requires, and supports ordinary Go map access for internal use.
type Map[V any] map[Sequence]V

// MarshalJSON implements the NUL-compaction: keys are written without
// their leading NUL, as spec.md 6 requires ("Keys of the two dead-key maps
// are compacted by dropping a leading NUL on serialize").
func (m Map[V]) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		wire := string([]rune{k.Indicator, k.Follower})
		out[wire] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON re-adds the leading NUL on deserialize, per spec.md 6.
func (m *Map[V]) UnmarshalJSON(b []byte) error {
	var in map[string]V
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(Map[V], len(in))
	for wire, v := range in {
		r := []rune(wire)
		if len(r) != 2 {
			return fmt.Errorf("deadkey: malformed wire key %q", wire)
		}
		out[Sequence{Indicator: r[0], Follower: r[1]}] = v
	}
	*m = out
	return nil
}

// FirstChars returns the set of distinct Indicator runes present in m, used
// by calibration.Data's ReportedCharacters invariant (spec.md 3: the union
// of domain(CharacterMap) and all first-chars of DeadKeysMap keys).
func (m Map[V]) FirstChars() map[rune]bool {
	out := make(map[rune]bool)
	for k := range m {
		out[k.Indicator] = true
	}
	return out
}

// Table is the in-progress composition structure the engine builds while
// processing dead-key probes: for each discovered indicator rune, the set
// of (follower -> resolution) entries observed so far, plus bookkeeping to
// detect colliding resolutions (spec.md 4.1.3 "DeadKeyMultiMapping").
type Table struct {
	entries map[rune]map[rune]rune // indicator -> follower -> expected
}

// NewTable returns an empty composition table.
func NewTable() *Table {
	return &Table{entries: make(map[rune]map[rune]rune)}
}

// Indicators returns the distinct indicator runes recorded so far, in the
// order first seen is not guaranteed; callers that need determinism should
// sort the result (the engine does, before emitting dead-key probes).
func (t *Table) Indicators() []rune {
	out := make([]rune, 0, len(t.entries))
	for r := range t.entries {
		out = append(out, r)
	}
	return out
}

// Resolution is the outcome of recording one (indicator, follower)
// observation against the table.
type Resolution int

const (
	// ResolutionNew records a brand-new, unambiguous entry.
	ResolutionNew Resolution = iota
	// ResolutionDuplicate means the same (indicator, follower, expected)
	// triple was already recorded; harmless, no map change.
	ResolutionDuplicate
	// ResolutionCollision means (indicator, follower) was already
	// recorded with a *different* expected value -- spec.md 4.1.3's
	// "DeadKeyMultiMapping", fatal for reliability.
	ResolutionCollision
)

// Record adds or checks one (indicator, follower) -> expected observation.
func (t *Table) Record(indicator, follower, expected rune) Resolution {
	byFollower, ok := t.entries[indicator]
	if !ok {
		byFollower = make(map[rune]rune)
		t.entries[indicator] = byFollower
	}
	if existing, ok := byFollower[follower]; ok {
		if existing == expected {
			return ResolutionDuplicate
		}
		return ResolutionCollision
	}
	byFollower[follower] = expected
	return ResolutionNew
}

// CharacterMap flattens the table into a DeadKeyCharacterMap-shaped Map
// once all dead-key probes have been processed (spec.md 3:
// "DeadKeyCharacterMap: reportedSeq->expected char").
func (t *Table) CharacterMap() Map[rune] {
	out := make(Map[rune])
	for indicator, byFollower := range t.entries {
		for follower, expected := range byFollower {
			out[Sequence{Indicator: indicator, Follower: follower}] = expected
		}
	}
	return out
}

// FixUp handles the host-specific quirk (spec.md 4.1.3 case (c)) where
// pressing the dead key twice reports the indicator itself rather than a
// precomposed character: DeadKeyFixUp records that (indicator, indicator)
// resolves to the indicator's own expected plain-key value, when that
// plain-key value is already known from the baseline CharacterMap (or
// identity, if the host and scanner agree on the indicator key itself).
func (t *Table) FixUp(indicator rune, plainExpected rune) {
	t.Record(indicator, indicator, plainExpected)
}
