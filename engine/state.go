package engine

import (
	"github.com/solidkey/calibration/calibdata"
	"github.com/solidkey/calibration/deadkey"
	"github.com/solidkey/calibration/diag"
)

// State is the serializable snapshot of an Engine's internal progress.
// calibration/stateless round-trips this across calls so no server-side
// session memory is required (spec.md 5 "Statelessness option"); a host
// that runs calibration.NewSession keeps the Engine itself in memory and
// never touches State directly.
type State struct {
	AimFlag    byte   `json:"aimFlag"`
	Suffix     string `json:"suffix"`
	IncludeEOT bool   `json:"includeEOT"`
	Delim      rune   `json:"delim"`
	Phase      Phase  `json:"phase"`

	Data   *calibdata.Data `json:"data"`
	Stream diag.Stream     `json:"stream"`

	DeadKeyTable deadkey.Map[rune] `json:"deadKeyTable,omitempty"`
	DeadKeyQueue []rune            `json:"deadKeyQueue,omitempty"`
	DeadKeyPos   int               `json:"deadKeyPos"`

	MinCharsPerSecond float64 `json:"minCharsPerSecond,omitempty"`
	HaveTiming        bool    `json:"haveTiming,omitempty"`

	UpperReportedLower int `json:"upperReportedLower,omitempty"`
	LowerReportedUpper int `json:"lowerReportedUpper,omitempty"`
	LetterSlots        int `json:"letterSlots,omitempty"`

	PrefixHint string `json:"prefixHint,omitempty"`
	Abandoned  bool   `json:"abandoned,omitempty"`
}

// Snapshot captures e's full internal progress for later Restore.
func (e *Engine) Snapshot() State {
	return State{
		AimFlag:    e.aimFlag,
		Suffix:     e.suffix,
		IncludeEOT: e.includeEOT,
		Delim:      e.delim,
		Phase:      e.phase,

		Data:   e.data.Clone(),
		Stream: e.stream.Clone(),

		DeadKeyTable: e.deadTable.CharacterMap(),
		DeadKeyQueue: append([]rune(nil), e.deadKeyQueue...),
		DeadKeyPos:   e.deadKeyPos,

		MinCharsPerSecond: e.minCharsPerSecond,
		HaveTiming:        e.haveTiming,

		UpperReportedLower: e.upperReportedLower,
		LowerReportedUpper: e.lowerReportedUpper,
		LetterSlots:        e.letterSlots,

		PrefixHint: e.prefixHint,
		Abandoned:  e.abandoned,
	}
}

// Restore rebuilds a live Engine from a previously captured State.
func Restore(s State) *Engine {
	table := deadkey.NewTable()
	for seq, expected := range s.DeadKeyTable {
		table.Record(seq.Indicator, seq.Follower, expected)
	}
	data := s.Data
	if data == nil {
		data = calibdata.NewData()
	}
	return &Engine{
		aimFlag:    s.AimFlag,
		suffix:     s.Suffix,
		includeEOT: s.IncludeEOT,
		delim:      s.Delim,
		phase:      s.Phase,

		data:      data,
		stream:    s.Stream,
		deadTable: table,

		deadKeyQueue: append([]rune(nil), s.DeadKeyQueue...),
		deadKeyPos:   s.DeadKeyPos,

		minCharsPerSecond: s.MinCharsPerSecond,
		haveTiming:        s.HaveTiming,

		upperReportedLower: s.UpperReportedLower,
		lowerReportedUpper: s.LowerReportedUpper,
		letterSlots:        s.LetterSlots,

		prefixHint: s.PrefixHint,
		abandoned:  s.Abandoned,
	}
}
