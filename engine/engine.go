// Package engine implements CalibrationEngine (spec.md 4.1): the state
// machine that sequences a baseline probe followed by one dead-key probe
// per discovered host dead key, and infers CharacterMap, DeadKeysMap,
// DeadKeyCharacterMap, and LigatureMap from the reported text each probe
// produces. It does not detect scanner-side dead keys: ScannerDeadKeysMap
// is left empty.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/solidkey/calibration/calibdata"
	"github.com/solidkey/calibration/charcat"
	"github.com/solidkey/calibration/chunk"
	"github.com/solidkey/calibration/deadkey"
	"github.com/solidkey/calibration/diag"
	"github.com/solidkey/calibration/script"
	"github.com/solidkey/calibration/segment"
)

// Phase is the engine's current stage.
type Phase int

const (
	PhaseBaseline Phase = iota
	PhaseDeadKey
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseBaseline:
		return "Baseline"
	case PhaseDeadKey:
		return "DeadKey"
	default:
		return "Done"
	}
}

// canonical is the flat, ordered sequence of expected characters the
// baseline probe's invariant and additional-ASCII segments cover, used to
// zip against the reported fields (spec.md 4.1.2 step 3).
var canonical = append(append([]rune{}, charcat.Invariants...), charcat.AdditionalASCII...)

// Engine drives one calibration session's probe sequencing and map
// inference. It is not safe for concurrent use; a session is a strictly
// sequential turn-by-turn conversation (spec.md 5).
type Engine struct {
	aimFlag    byte
	suffix     string
	includeEOT bool

	delim rune
	phase Phase

	data      *calibdata.Data
	stream    diag.Stream
	deadTable *deadkey.Table

	deadKeyQueue []rune
	deadKeyPos   int

	minCharsPerSecond float64
	haveTiming        bool

	upperReportedLower int
	lowerReportedUpper int
	letterSlots        int

	format0506OK       bool
	format0506Degraded bool

	prefixHint string

	abandoned bool
}

// SetPrefixHint tells the engine the exact scanner-injected prefix to
// expect, required when that prefix contains two or more consecutive
// spaces (otherwise indistinguishable from the chosen temporary delimiter,
// spec.md 6 "set_reported_prefix").
func (e *Engine) SetPrefixHint(prefix string) { e.prefixHint = prefix }

// New starts a fresh engine. aimFlag is the scanner's configured AIM flag
// character (the second byte of the 3-character `]`+flag+modifier
// identifier, spec.md Glossary); suffix is the caller's chosen suffix
// sentinel; includeEOT controls whether the End-of-Transmission probe slot
// is included (spec.md 4.1.1 item 8).
func New(aimFlag byte, suffix string, includeEOT bool) (*Engine, error) {
	delim, err := segment.ChooseDelimiter()
	if err != nil {
		return nil, err
	}
	return &Engine{
		aimFlag:    aimFlag,
		suffix:     suffix,
		includeEOT: includeEOT,
		delim:      delim,
		data:       calibdata.NewData(),
		deadTable:  deadkey.NewTable(),
	}, nil
}

func (e *Engine) aimPrefix() string { return "]" + string(e.aimFlag) }

// Phase reports the engine's current stage.
func (e *Engine) Phase() Phase { return e.phase }

// Remaining is the number of probes still to be processed (spec.md 3
// "estimated probes remaining").
func (e *Engine) Remaining() int {
	if e.phase == PhaseDone {
		return 0
	}
	n := len(e.deadKeyQueue) - e.deadKeyPos
	if e.phase == PhaseBaseline {
		n++
	}
	return n
}

// Data returns the calibration artifact built so far. It is not sealed
// until Phase() == PhaseDone.
func (e *Engine) Data() *calibdata.Data { return e.data }

// Stream returns the diagnostics accumulated so far.
func (e *Engine) Stream() diag.Stream { return e.stream }

// Abandon marks the session terminated without further output (spec.md 5
// "CalibrationSessionAbandoned").
func (e *Engine) Abandon() { e.abandoned = true; e.phase = PhaseDone }

// Abandoned reports whether Abandon was called.
func (e *Engine) Abandoned() bool { return e.abandoned }

// NextPayload returns the next probe payload the caller should render and
// scan. maxChars, if positive, chunks the payload via BarcodeChunker
// (spec.md 4.1.5); the caller is responsible for displaying each chunk in
// sequence and reassembling the reported halves with chunk.Reassemble
// before calling Process.
func (e *Engine) NextPayload(maxChars int) (string, []chunk.Chunk, error) {
	var payload string
	switch e.phase {
	case PhaseBaseline:
		payload = segment.BuildBaseline(e.delim, e.aimPrefix(), e.suffix, e.includeEOT)
	case PhaseDeadKey:
		if e.deadKeyPos >= len(e.deadKeyQueue) {
			return "", nil, fmt.Errorf("engine: no dead-key probe pending")
		}
		payload = e.buildDeadKeyProbe(e.deadKeyQueue[e.deadKeyPos])
	default:
		e.stream.Add(diag.Item{Code: diag.CalibrationFailed, Text: "no probe pending: calibration already complete"})
		return "", nil, fmt.Errorf("engine: calibration already complete")
	}
	if maxChars <= 0 {
		return payload, nil, nil
	}
	chunks, err := chunk.Split(payload, maxChars, e.delim, e.aimPrefix())
	if err != nil {
		return "", nil, err
	}
	return payload, chunks, nil
}

func (e *Engine) buildDeadKeyProbe(indicator rune) string {
	var b strings.Builder
	b.WriteString(e.aimPrefix())
	for i, r := range charcat.Invariants {
		if i > 0 {
			b.WriteRune(e.delim)
		}
		b.WriteRune(indicator)
		b.WriteRune(r)
	}
	b.WriteString(e.suffix)
	return b.String()
}

// Process consumes the host-reported text for the current probe and
// advances the state machine. elapsed, if nonzero, is the time between
// displaying the probe and the scan being submitted, used to derive
// ScannerCharactersPerSecond (spec.md 4.1.4).
func (e *Engine) Process(reported string, elapsed time.Duration) error {
	if elapsed > 0 {
		cps := float64(len([]rune(reported))) / elapsed.Seconds()
		if !e.haveTiming || cps < e.minCharsPerSecond {
			e.minCharsPerSecond = cps
			e.haveTiming = true
		}
	}

	switch e.phase {
	case PhaseBaseline:
		return e.processBaseline(reported)
	case PhaseDeadKey:
		return e.processDeadKeyProbe(reported)
	default:
		e.stream.Add(diag.Item{Code: diag.CalibrationFailed, Text: "Process called after calibration already completed"})
		return fmt.Errorf("engine: calibration already complete")
	}
}

// strip detaches a trailing CR/LF end-of-line and the configured scanner
// suffix from reported, recording DetectedEndOfLine / DetectedScannerSuffix
// diagnostics. It returns the remaining core text.
func (e *Engine) strip(reported string) string {
	core := reported
	switch {
	case strings.HasSuffix(core, "\r\n"):
		core = strings.TrimSuffix(core, "\r\n")
		e.stream.Add(diag.Item{Code: diag.DetectedEndOfLine, Text: "CRLF"})
	case strings.HasSuffix(core, "\n"):
		core = strings.TrimSuffix(core, "\n")
		e.stream.Add(diag.Item{Code: diag.DetectedEndOfLine, Text: "LF"})
	case strings.HasSuffix(core, "\r"):
		// A lone trailing CR with no paired LF: the host's line
		// discipline is reporting some other character in the LF role
		// (a classic Mac-style CR-only terminator), not the two
		// already-recognised EOL shapes.
		core = strings.TrimSuffix(core, "\r")
		e.data.LineFeedCharacter = "\r"
		e.stream.Add(diag.Item{Code: diag.DetectedLineFeedCharacter, Text: "CR"})
	}

	if e.suffix != "" {
		if idx := strings.LastIndex(core, e.suffix); idx >= 0 {
			noise := core[idx+len(e.suffix):]
			core = core[:idx+len(e.suffix)]
			core = strings.TrimSuffix(core, e.suffix)
			if noise != "" {
				e.data.Suffix = noise
				e.stream.Add(diag.Item{Code: diag.DetectedScannerSuffix, Text: noise})
			}
		}
	}
	return core
}

// stripPrefix detaches scanner-injected text before the AIM identifier, or
// records NotTransmittingAim if the identifier never appears.
func (e *Engine) stripPrefix(core string) string {
	if e.prefixHint != "" && strings.HasPrefix(core, e.prefixHint) {
		e.data.Prefix = e.prefixHint
		e.stream.Add(diag.Item{Code: diag.DetectedScannerPrefix, Text: e.prefixHint})
		core = strings.TrimPrefix(core, e.prefixHint)
	}
	prefix := e.aimPrefix()
	idx := strings.Index(core, prefix)
	if idx < 0 {
		e.stream.Add(diag.Item{Code: diag.NotTransmittingAim, Text: "AIM identifier not found in reported text"})
		return core
	}
	if idx > 0 {
		e.data.Prefix = core[:idx]
		e.stream.Add(diag.Item{Code: diag.DetectedScannerPrefix, Text: e.data.Prefix})
	}
	e.data.Code = prefix
	e.stream.Add(diag.Item{Code: diag.DetectedAimIdentifier, Text: prefix})
	return core[idx+len(prefix):]
}

func (e *Engine) expectedFieldCount() int {
	n := len(charcat.Invariants) + len(charcat.AdditionalASCII) + 4
	if e.includeEOT {
		n++
	}
	return n
}

func (e *Engine) processBaseline(reported string) error {
	core := e.strip(reported)
	core = e.stripPrefix(core)

	fields, err := segment.Split(core, e.delim)
	if err != nil {
		if alt, ok := segment.LocateDelimiter(core, e.expectedFieldCount()); ok {
			fields, err = segment.Split(core, alt)
		}
		if err != nil {
			e.stream.Add(diag.Item{Code: diag.NoDelimiters, Text: err.Error()})
			return err
		}
	}

	want := e.expectedFieldCount()
	if len(fields) < want {
		e.stream.Add(diag.Item{Code: diag.PartialCalibrationDataReported, Text: fmt.Sprintf("expected %d fields, got %d", want, len(fields))})
	}

	n := len(canonical)
	if len(fields) < n {
		n = len(fields)
	}
	for i := 0; i < n; i++ {
		e.alignSlot(canonical[i], fields[i])
	}

	tailIdx := len(canonical)
	gsOK := e.alignSeparator(charcat.GS, fields, tailIdx, diag.HiddenCharactersNotReportedCorrectly)
	tailIdx++
	fsOK := e.alignSeparator(charcat.FS, fields, tailIdx, 0)
	tailIdx++
	rsOK := e.alignSeparator(charcat.RS, fields, tailIdx, 0)
	tailIdx++
	usOK := e.alignSeparator(charcat.US, fields, tailIdx, 0)
	tailIdx++
	if e.includeEOT {
		e.alignSeparator(charcat.EOT, fields, tailIdx, 0)
	}
	// ISO/IEC 15434 Format 05/06 envelopes depend on all four GS1/EDI
	// separators surviving the round trip, not just the Group Separator
	// Format0506Hidden already tracks via HiddenCharactersNotReportedCorrectly.
	e.format0506OK = gsOK && fsOK && rsOK && usOK
	e.format0506Degraded = !e.format0506OK && (gsOK || fsOK || rsOK || usOK)

	e.detectCaseAnomaly()

	if sample := sampleRunes(e.data.CharacterMap); len(sample) > 0 {
		res := script.Resolve(sample)
		e.data.KeyboardScript = res.Name
		e.data.KeyboardScriptTag = res.Tag
		if res.Resolved {
			e.stream.Add(diag.Item{Code: diag.DetectedKeyboardScript, Text: res.Name})
		}
	}

	indicators := e.deadTable.Indicators()
	sort.Slice(indicators, func(i, j int) bool { return indicators[i] < indicators[j] })
	e.deadKeyQueue = indicators
	e.deadKeyPos = 0

	if len(e.deadKeyQueue) == 0 {
		e.seal()
	} else {
		e.phase = PhaseDeadKey
	}
	return nil
}

// alignSlot implements spec.md 4.1.2 steps 3-6 for one invariant or
// additional-ASCII expected character against its reported field.
func (e *Engine) alignSlot(expected rune, field string) {
	r := []rune(field)
	switch {
	case len(r) == 0:
		e.data.ScannerUnassignedKeys = append(e.data.ScannerUnassignedKeys, string(expected))
	case len(r) == 1:
		if r[0] == expected {
			return
		}
		e.recordCharacterMapping(string(r[0]), expected)
	case len(r) == 2:
		// A two-character reported slot for a single expected character is
		// a host dead-key combination: the first reported rune is a dead
		// key that does not resolve on its own, and the pair together
		// precomposes to this expected character (spec.md 4.1.2 step 3,
		// worked example in spec.md 8 scenario 3).
		indicator, follower := r[0], r[1]
		res := e.deadTable.Record(indicator, follower, expected)
		if res != deadkey.ResolutionCollision {
			e.data.DeadKeysMap[deadkey.Sequence{Indicator: indicator, Follower: follower}] = string(expected)
			if res == deadkey.ResolutionNew {
				e.stream.Add(diag.Item{Code: diag.DetectedDeadKey, Text: string(indicator)})
			}
		} else {
			e.stream.Add(diag.Item{Code: diag.DeadKeyMultiMapping, Text: fmt.Sprintf("%c%c", indicator, follower)})
		}
	default:
		// More than two reported characters for one expected slot: always
		// recorded as a ligature. Dead-key indicators are recognised only
		// in the 2-char case above, and no scanner-side dead-key pattern
		// is checked here, so ScannerDeadKeysMap is never populated.
		e.data.LigatureMap[string(r)] = string(expected)
	}
}

// recordCharacterMapping assigns CharacterMap[reported] = expected,
// detecting the ambiguity spec.md 4.1.2 step 6 describes: the same
// reported character already resolves to a different expected character.
func (e *Engine) recordCharacterMapping(reported string, expected rune) {
	if existing, ok := e.data.CharacterMap[reported]; ok && existing != string(expected) {
		prevRune := []rune(existing)[0]
		bucket := e.data.NonInvariantAmbiguities
		if charcat.IsInvariant(expected) && charcat.IsInvariant(prevRune) {
			bucket = e.data.InvariantGs1Ambiguities
		}
		bucket[reported] = appendMissing(bucket[reported], existing, string(expected))
		// An ambiguity landing on the AIM flag character itself gets its
		// own named diagnostic (spec.md 4.1.2 step 6), since it means the
		// scanner's `]`+flag prefix can no longer be distinguished from
		// whichever other key also reports this character.
		if []rune(reported)[0] == rune(e.aimFlag) {
			e.stream.Add(diag.Item{Code: diag.MultipleKeysAimFlagCharacter, Text: reported})
		} else {
			e.stream.Add(diag.Item{Code: diag.MultipleKeys, Text: reported})
		}
		return
	}
	e.data.CharacterMap[reported] = string(expected)
}

func appendMissing(list []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, existing := range list {
			if existing == it {
				found = true
				break
			}
		}
		if !found {
			list = append(list, it)
		}
	}
	return list
}

// alignSeparator handles one of the four named-separator probe slots
// (spec.md 4.1.1 items 4-8), each reported as "A"+separator+"B" flanked by
// sentinel letters. hiddenCode, if nonzero, is raised when the separator
// is not representable at all (used only for the Group Separator, whose
// loss breaks Format 05/06, spec.md 8 scenario 5).
func (e *Engine) alignSeparator(sep charcat.Separator, fields []string, idx int, hiddenCode diag.Code) bool {
	if idx >= len(fields) {
		return false
	}
	field := fields[idx]
	want := "A" + string(rune(sep)) + "B"
	if field == want {
		return true
	}
	if hiddenCode != 0 {
		e.stream.Add(diag.Item{Code: hiddenCode, Text: fmt.Sprintf("separator %#x not represented", sep)})
	}
	return false
}

// detectCaseAnomaly implements spec.md 4.1.2 step 7.
func (e *Engine) detectCaseAnomaly() {
	upperToLower := 0
	lowerToUpper := 0
	letters := 0
	for reported, expected := range e.data.CharacterMap {
		er := []rune(expected)[0]
		rr := []rune(reported)[0]
		switch {
		case charcat.IsUpper(er) && charcat.IsLower(rr) && charcat.ToUpper(rr) == er:
			upperToLower++
			letters++
		case charcat.IsLower(er) && charcat.IsUpper(rr) && charcat.ToLower(rr) == er:
			lowerToUpper++
			letters++
		}
	}
	const totalLetters = 26
	switch {
	case upperToLower == totalLetters && lowerToUpper == totalLetters:
		e.stream.Add(diag.Item{Code: diag.ScannerMayInvertCase, Text: "all letters case-inverted"})
	case upperToLower == totalLetters:
		e.stream.Add(diag.Item{Code: diag.ScannerMayConvertToLowerCase, Text: "all uppercase reported lowercase"})
	case lowerToUpper == totalLetters:
		e.stream.Add(diag.Item{Code: diag.ScannerMayConvertToUpperCase, Text: "all lowercase reported uppercase"})
	}
	e.letterSlots = letters
}

func sampleRunes(m map[string]string) []rune {
	var out []rune
	for reported := range m {
		out = append(out, []rune(reported)...)
	}
	return out
}

func (e *Engine) seal() {
	e.data.ReportedCharacters = buildReportedCharacters(e.data)
	if e.haveTiming {
		e.data.ScannerCharactersPerSecond = e.minCharsPerSecond
		switch {
		case e.minCharsPerSecond >= 60:
			e.data.ScannerKeyboardPerformance = calibdata.PerformanceHigh
		case e.minCharsPerSecond >= 20:
			e.data.ScannerKeyboardPerformance = calibdata.PerformanceMedium
		default:
			e.data.ScannerKeyboardPerformance = calibdata.PerformanceLow
			e.stream.Add(diag.Item{Code: diag.ScannerKeyboardPerformanceWarning, Text: "slow scan submission"})
		}
	}
	e.sealInvariantReliability()
	e.sealNonInvariantReliability()
	e.sealFormat0506Reliability()
	e.phase = PhaseDone
}

// sealInvariantReliability reports on the GS1 invariant set (spec.md
// 4.1.1 item 1): clean when every slot resolved to something usable --
// identity, a CharacterMap substitution, or a dead-key composition --
// with no unassigned keys or unresolved ambiguities along the way, so
// the scanner's reports are reliably interpretable even though they are
// not all identity-mapped (spec.md 8 scenario 2). A hard failure when
// most invariant slots are unreadable, a degraded middle ground
// otherwise.
func (e *Engine) sealInvariantReliability() {
	unassigned := 0
	for _, k := range e.data.ScannerUnassignedKeys {
		if r := []rune(k); len(r) > 0 && charcat.IsInvariant(r[0]) {
			unassigned++
		}
	}
	degraded := unassigned + len(e.data.InvariantGs1Ambiguities)
	switch {
	case degraded == 0:
		if !e.stream.HasErrors() {
			e.stream.Add(diag.Item{Code: diag.ReadsInvariantCharactersReliably})
		}
	case degraded >= len(charcat.Invariants)/2:
		e.stream.Add(diag.Item{Code: diag.CannotReadInvariantsReliably, Text: "most invariant characters unreadable"})
	default:
		e.stream.Add(diag.Item{Code: diag.MayNotReadInvariantCharacters, Text: "some invariant characters degraded"})
	}
}

// sealNonInvariantReliability mirrors the invariant reliability check
// above for the bounded additional-ASCII segment (spec.md 4.1.1 item 3):
// clean when none of those slots went unassigned or ambiguous, a hard
// failure when most did, a degraded middle ground otherwise.
func (e *Engine) sealNonInvariantReliability() {
	unassigned := 0
	for _, k := range e.data.ScannerUnassignedKeys {
		if r := []rune(k); len(r) > 0 && !charcat.IsInvariant(r[0]) {
			unassigned++
		}
	}
	degraded := unassigned + len(e.data.NonInvariantAmbiguities)
	switch {
	case degraded == 0:
		if !e.stream.HasErrors() {
			e.stream.Add(diag.Item{Code: diag.ReadsNonInvariantCharactersReliably})
		}
	case degraded >= len(charcat.AdditionalASCII)/2:
		e.stream.Add(diag.Item{Code: diag.CannotReadNonInvariantsReliably, Text: "most additional-ASCII characters unreadable"})
	default:
		e.stream.Add(diag.Item{Code: diag.MayNotReadNonInvariantCharacters, Text: "some additional-ASCII characters degraded"})
	}
}

// sealFormat0506Reliability determines whether the host's layout can
// carry an ISO/IEC 15434 Format 05/06 envelope, which depends on the
// Group/File/Record/Unit separators all surviving the round trip
// (spec.md 4.1.1 items 4-7).
func (e *Engine) sealFormat0506Reliability() {
	switch {
	case e.format0506OK:
		if !e.stream.HasErrors() {
			e.stream.Add(diag.Item{Code: diag.ReadsFormat0506Reliably})
		}
	case e.format0506Degraded:
		e.stream.Add(diag.Item{Code: diag.MayNotReadFormat0506, Text: "some ISO/IEC 15434 separators not represented"})
	default:
		e.stream.Add(diag.Item{Code: diag.CannotReadFormat0506Reliably, Text: "no ISO/IEC 15434 separators represented"})
	}
}

// buildReportedCharacters computes the regex character class spec.md 3
// describes: the union of domain(CharacterMap) and all first-chars of
// DeadKeysMap keys.
func buildReportedCharacters(d *calibdata.Data) string {
	set := map[rune]bool{}
	for reported := range d.CharacterMap {
		for _, r := range reported {
			set[r] = true
		}
	}
	for r := range d.DeadKeysMap.FirstChars() {
		set[r] = true
	}
	runes := make([]rune, 0, len(set))
	for r := range set {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range runes {
		if r == '\\' || r == ']' || r == '^' || r == '-' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte(']')
	return b.String()
}
