// Package calibration is the root facade tying together CalibrationEngine,
// CapabilityDeriver, AdviceReasoner, and Remapper (spec.md 2): the single
// entry point hosts use to run a calibration session, derive capabilities
// and advice, and later remap live scans.
package calibration

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solidkey/calibration/advice"
	"github.com/solidkey/calibration/calibdata"
	"github.com/solidkey/calibration/calibkind"
	"github.com/solidkey/calibration/capability"
	"github.com/solidkey/calibration/chunk"
	"github.com/solidkey/calibration/diag"
	"github.com/solidkey/calibration/engine"
	"github.com/solidkey/calibration/remap"
	"github.com/solidkey/calibration/segment"
)

// Token is the immutable-by-convention value record threaded through a
// session (spec.md 3): the next probe's payload, how many probes remain,
// the partially-built Data, the derived SystemCapabilities once available,
// the three diagnostic streams, and caller-opaque ExtendedData a stateless
// facade round-trips across calls (spec.md 5).
type Token struct {
	Payload      string
	Chunks       []chunk.Chunk
	Remaining    int
	Phase        engine.Phase
	Data         *calibdata.Data
	Capabilities capability.SystemCapabilities
	Advice       []advice.Item
	Stream       diag.Stream

	// ExtendedData carries the engine's full internal state in opaque
	// form so a stateless caller can round-trip it (spec.md 5). The
	// stateless package is the only consumer of this field's structure.
	ExtendedData interface{}

	// CalibrationSessionAbandoned, once true, is terminal: the engine
	// produces no further output for this session (spec.md 5).
	CalibrationSessionAbandoned bool
}

// Clone returns a deep-enough copy for Token's value-record semantics.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	out := *t
	out.Chunks = append([]chunk.Chunk(nil), t.Chunks...)
	out.Data = t.Data.Clone()
	out.Advice = append([]advice.Item(nil), t.Advice...)
	out.Stream = t.Stream.Clone()
	return &out
}

// session wraps an *engine.Engine with the facade-level bookkeeping (the
// assumption and platform advice needs, and the last CapsLock reading)
// that doesn't belong in the engine itself, since the engine has no
// knowledge of advice (spec.md 4.2/4.3 run after the engine, not as part
// of it).
type session struct {
	eng        *engine.Engine
	assumption calibkind.Assumption
	capsLock   capability.OptBool

	// issuedAt is when the current probe's payload was handed to the
	// caller, so Calibrate can measure elapsed time for
	// engine.Engine.Process without the facade signature needing a
	// caller-supplied duration (spec.md 4.1.4's ScannerCharactersPerSecond
	// is an engine-internal derivation, not something spec.md 6's
	// "calibrate" signature asks the host to measure itself).
	issuedAt time.Time
}

// NewSession starts a fresh calibration session under the given
// assumption (spec.md 6 "new_session(assumption) -> Token").
func NewSession(assumption calibkind.Assumption) (*Token, error) {
	return NewSessionWithPrior(nil, assumption)
}

// NewSessionWithPrior seeds a session with previously-captured Data (e.g.
// a cached calibration the host wants to re-verify), per spec.md 6
// "new_session_with_prior(data, assumption)".
func NewSessionWithPrior(prior *calibdata.Data, assumption calibkind.Assumption) (*Token, error) {
	eng, err := engine.New('d', "!", false)
	if err != nil {
		code := diag.CalibrationFailed
		if errors.Is(err, segment.ErrNoDelimiterCandidate) {
			code = diag.NoTemporaryDelimiterCandidate
		}
		return nil, &CalibrationError{
			Recoverability: RestartSession,
			Code:           code,
			Err:            fmt.Errorf("calibration: starting session: %w", err),
		}
	}
	s := &session{eng: eng, assumption: assumption}
	if prior != nil {
		*eng.Data() = *prior.Clone()
	}
	payload, chunks, err := eng.NextPayload(0)
	if err != nil {
		return nil, err
	}
	s.issuedAt = time.Now()
	tok := &Token{
		Payload:      payload,
		Chunks:       chunks,
		Remaining:    eng.Remaining(),
		Phase:        eng.Phase(),
		Data:         eng.Data(),
		ExtendedData: s,
	}
	log.Debug().Str("phase", tok.Phase.String()).Msg("calibration session started")
	return tok, nil
}

// SetReportedPrefix records a scanner prefix containing two or more
// consecutive spaces, which would otherwise be indistinguishable from the
// probe's temporary delimiter (spec.md 6).
func (t *Token) SetReportedPrefix(prefix string) {
	s, ok := t.ExtendedData.(*session)
	if !ok {
		return
	}
	s.eng.SetPrefixHint(prefix)
}

// NextBarcode returns the current probe's payload, chunked to size if
// positive (spec.md 6 "next_barcode"). It takes no multiplier or
// image-rendering option and renders no image: it returns only the payload
// text and chunk metadata, and the host renders barcodes itself.
func (t *Token) NextBarcode(size int) (*Token, error) {
	s, ok := t.ExtendedData.(*session)
	if !ok {
		return nil, fmt.Errorf("calibration: token has no active session")
	}
	payload, chunks, err := s.eng.NextPayload(size)
	if err != nil {
		return nil, err
	}
	s.issuedAt = time.Now()
	out := t.Clone()
	out.Payload = payload
	out.Chunks = chunks
	return out, nil
}

// Calibrate advances the state machine with the host-reported text for the
// current probe (spec.md 6 "calibrate(reported, token, capsLock?, platform,
// dataEntrySpan, preprocessor?) -> Token"). preprocessor, if non-nil, runs
// first and its exceptions surface as PreProcessorWarning/PreProcessorError
// without contaminating calibration state (spec.md 7).
func (t *Token) Calibrate(reported string, capsLock capability.OptBool, platform calibkind.Platform, span calibkind.DataEntrySpan, pre Preprocessor) (out *Token, err error) {
	// A malformed probe reply (an index past what segment.Split produced,
	// say) should end the session cleanly through the same
	// CalibrationError path as any other unrecoverable failure, not crash
	// the host process the way an unrecovered panic would.
	defer func() {
		if r := recover(); r != nil {
			out = t.Clone()
			out.Stream.Add(diag.Item{Code: diag.CalibrationFailedUnexpectedly, Text: fmt.Sprint(r)})
			err = &CalibrationError{
				Recoverability: RestartSession,
				Code:           diag.CalibrationFailedUnexpectedly,
				Err:            fmt.Errorf("calibration: unexpected failure: %v", r),
			}
		}
	}()

	s, ok := t.ExtendedData.(*session)
	if !ok {
		return nil, fmt.Errorf("calibration: token has no active session")
	}
	s.capsLock = capsLock

	text := reported
	var preWarnings []string
	if pre != nil {
		processed, perr := pre.Process(reported)
		if perr != nil {
			out := t.Clone()
			out.Stream.Add(diag.Item{Code: diag.PreProcessorError, Text: perr.Error()})
			return out, nil
		}
		text = processed
		if warner, ok := pre.(PreprocessorWarner); ok {
			preWarnings = warner.Warnings()
		}
	}
	var elapsed time.Duration
	if !s.issuedAt.IsZero() {
		elapsed = time.Since(s.issuedAt)
	}
	if err := s.eng.Process(text, elapsed); err != nil {
		out := t.Clone()
		out.Stream = s.eng.Stream()
		return out, &CalibrationError{Recoverability: classifyFailure(out.Stream), Err: err}
	}

	out := t.Clone()
	out.Remaining = s.eng.Remaining()
	out.Phase = s.eng.Phase()
	out.Data = s.eng.Data()
	out.Stream = s.eng.Stream()
	for _, w := range preWarnings {
		out.Stream.Add(diag.Item{Code: diag.PreProcessorWarning, Text: w})
	}
	if span == calibkind.SpanPartialEntry {
		out.Stream.Add(diag.Item{Code: diag.PartialCalibrationDataReported, Text: "caller observed only a partial data-entry span"})
	}

	if out.Phase == engine.PhaseDone {
		// Whether an AIM-flag ambiguity is merely a warning or an outright
		// failure depends on whether the host will actually apply the
		// learned CharacterMap at runtime (spec.md 6 Assumption): without
		// calibration in effect, an ambiguous AIM flag can never be
		// resolved, so it escalates from Warning to Error.
		if out.Stream.Has(diag.MultipleKeysAimFlagCharacter) {
			if s.assumption == calibkind.NoCalibration {
				out.Stream.Add(diag.Item{Code: diag.CannotReadAimNoCalibration, Text: "AIM flag character ambiguous and no calibration will be applied"})
			} else {
				out.Stream.Add(diag.Item{Code: diag.MayNotReadAim, Text: "AIM flag character ambiguous"})
			}
		}
		out.Capabilities = capability.Derive(out.Stream, capsLock, out.Data.KeyboardScript, out.Data.InvariantGs1Ambiguities, out.Data.NonInvariantAmbiguities)
		out.Advice = advice.Reason(out.Capabilities, s.assumption, platform)
		if platform != calibkind.PlatformUnknown {
			out.Stream.Add(diag.Item{Code: diag.DetectedPlatform, Text: platform.String()})
		}
	} else {
		payload, chunks, err := s.eng.NextPayload(0)
		if err != nil {
			return nil, err
		}
		s.issuedAt = time.Now()
		out.Payload = payload
		out.Chunks = chunks
	}
	return out, nil
}

// SystemCapabilities re-derives SystemCapabilities against a (possibly
// updated) CapsLock reading, per spec.md 6
// "system_capabilities(capsLock?) -> SystemCapabilities": a host that
// learns the true CapsLock state after the fact can re-run derivation
// without repeating the session.
func (t *Token) SystemCapabilities(capsLock capability.OptBool) capability.SystemCapabilities {
	return capability.Derive(t.Stream, capsLock, t.Data.KeyboardScript, t.Data.InvariantGs1Ambiguities, t.Data.NonInvariantAmbiguities)
}

// ProcessInput is the facade entry point for spec.md 6
// "process_input(reported, data) -> (normalized, exceptions)", a thin pass
// through to Remapper so callers need only import this package.
func ProcessInput(reported string, data *calibdata.Data) (string, []remap.PreprocessorException) {
	return remap.Process(reported, data)
}

// Preprocessor lets a host run arbitrary text normalization (character-set
// conversion, trimming) before calibration sees the reported text
// (spec.md 6 "preprocessor?"), without the engine needing to know about
// any of the host's own framing concerns.
type Preprocessor interface {
	Process(reported string) (string, error)
}

// PreprocessorWarner is an optional Preprocessor extension: a host whose
// preprocessing step succeeded but wants to flag a non-fatal concern (a
// lossy legacy-codepage substitution, say) implements this alongside
// Preprocessor, and Calibrate surfaces each returned string as a
// PreProcessorWarning rather than failing the probe (spec.md 7
// distinguishes PreProcessorWarning from the fatal PreProcessorError).
type PreprocessorWarner interface {
	Warnings() []string
}

// Snapshot exports everything needed to reconstruct this Token's session
// with no shared server-side state, for calibration/stateless's
// round-trip facade (spec.md 5 "Statelessness option"). ok is false if t
// has no active session (e.g. it was never produced by NewSession).
func (t *Token) Snapshot() (st engine.State, assumption calibkind.Assumption, capsLock capability.OptBool, ok bool) {
	s, ok := t.ExtendedData.(*session)
	if !ok {
		return engine.State{}, 0, capability.Unknown, false
	}
	return s.eng.Snapshot(), s.assumption, s.capsLock, true
}

// Restore rebuilds a Token from components a prior Snapshot produced,
// the other half of calibration/stateless's round trip.
func Restore(st engine.State, assumption calibkind.Assumption, capsLock capability.OptBool) *Token {
	eng := engine.Restore(st)
	// issuedAt resets to now: a stateless round trip has no way to carry
	// the real probe-display timestamp across processes, so
	// ScannerCharactersPerSecond is only ever measured from the most
	// recent Restore in that usage mode, not true end-to-end think time.
	s := &session{eng: eng, assumption: assumption, capsLock: capsLock, issuedAt: time.Now()}
	tok := &Token{
		Data:                        eng.Data(),
		Phase:                       eng.Phase(),
		Stream:                      eng.Stream(),
		ExtendedData:                s,
		CalibrationSessionAbandoned: eng.Abandoned(),
	}
	if tok.Phase == engine.PhaseDone {
		// Capabilities/Advice are cheap to recompute and Platform isn't
		// part of the snapshot (it's a per-call argument, not session
		// state, per spec.md 6); a caller that needs them with the
		// correct Platform calls SystemCapabilities/advice.Reason itself.
		tok.Capabilities = capability.Derive(tok.Stream, capsLock, tok.Data.KeyboardScript, tok.Data.InvariantGs1Ambiguities, tok.Data.NonInvariantAmbiguities)
	} else {
		payload, chunks, err := eng.NextPayload(0)
		if err == nil {
			tok.Payload = payload
			tok.Chunks = chunks
		}
	}
	return tok
}

// Abandon marks the session terminal with no further output (spec.md 5).
func (t *Token) Abandon() *Token {
	s, ok := t.ExtendedData.(*session)
	if ok {
		s.eng.Abandon()
	}
	out := t.Clone()
	out.CalibrationSessionAbandoned = true
	return out
}
