// Package diag defines the Information/Warning/Error catalog that streams
// through a calibration Token (spec.md 7). Severity is derived from the
// numeric band a Code falls in (100-199 info, 200-299 warning, 300-399
// error) rather than stored independently, so the two can never
// desynchronize (spec.md 8: "Severity(item) == bucket(item.AdviceType)"
// applies identically to diagnostic codes and to advice codes).
package diag

import "fmt"

// Severity is the derived criticality of a Code.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Information"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Code is a banded diagnostic identifier. Band membership is authoritative
// (spec.md 7: "The band is authoritative; the severity is derived from the
// code.").
type Code int

// Severity derives this code's severity from its numeric band.
func (c Code) Severity() Severity {
	switch {
	case c >= 100 && c < 200:
		return Info
	case c >= 200 && c < 300:
		return Warning
	case c >= 300 && c < 400:
		return Error
	default:
		return Info
	}
}

// Information codes (100-199).
const (
	DetectedAimIdentifier Code = 100 + iota
	DetectedEndOfLine
	DetectedKeyboardScript
	DetectedPlatform
	DetectedScannerPrefix
	DetectedScannerSuffix
	DetectedLineFeedCharacter
	DetectedDeadKey
	ReadsInvariantCharactersReliably
	ReadsNonInvariantCharactersReliably
	ReadsFormat0506Reliably
	NotTransmittingAim
)

// Warning codes (200-299).
const (
	PartialCalibrationDataReported Code = 200 + iota
	IncorrectCalibrationDataReported
	ScannerMayConvertToUpperCase
	ScannerMayConvertToLowerCase
	CapsLockProbablyOn
	MayNotReadAim
	MayNotReadFormat0506
	MayNotReadInvariantCharacters
	MayNotReadNonInvariantCharacters
	SomeDeadKeyCombinationsUnrecognisedForInvariants
	SomeDeadKeyCombinationsUnrecognisedForNonInvariants
	MultipleKeysAimFlagCharacter
	ScannerKeyboardPerformanceWarning
	PreProcessorWarning
	CapsLockCompensation
	GS1OnlyTestWasRun
)

// Error codes (300-399).
const (
	NoCalibrationDataReported Code = 300 + iota
	NoDelimiters
	NoTemporaryDelimiterCandidate
	CalibrationFailed
	CalibrationFailedUnexpectedly
	NoCalibrationTokenProvided
	ScannerMayInvertCase
	CapsLockOn
	DeadKeyMultiMapping
	MultipleKeys
	HiddenCharactersNotReportedCorrectly
	CannotReadInvariantsReliably
	CannotReadNonInvariantsReliably
	CannotReadFormat0506Reliably
	CannotReadAimNoCalibration
	CannotReadBarcodesReliably
	PreProcessorError
	TestFailed
)

// Item is one entry in a session's Information/Warning/Error stream.
type Item struct {
	Code Code
	// Text is a short machine-oriented description, independent of the
	// localized advice text a host application renders from AdviceItem
	// (spec.md 1: localized advice strings are out of scope here).
	Text string
	// Args carries structured parameters (offending characters, counts)
	// for callers that want to build their own message, without this
	// package owning any string-formatting/localization policy.
	Args map[string]string
}

func (it Item) String() string {
	return fmt.Sprintf("%s[%d]: %s", it.Code.Severity(), it.Code, it.Text)
}

// Stream is the three severity-tagged lists a Token carries (spec.md 3).
type Stream struct {
	Information []Item
	Warning     []Item
	Error       []Item
}

// Add appends item to the bucket matching its code's derived severity.
func (s *Stream) Add(item Item) {
	switch item.Code.Severity() {
	case Info:
		s.Information = append(s.Information, item)
	case Warning:
		s.Warning = append(s.Warning, item)
	default:
		s.Error = append(s.Error, item)
	}
}

// HasErrors reports whether any Error-severity item was recorded.
func (s *Stream) HasErrors() bool { return len(s.Error) > 0 }

// Has reports whether code appears anywhere in the stream.
func (s *Stream) Has(code Code) bool {
	for _, it := range s.Error {
		if it.Code == code {
			return true
		}
	}
	for _, it := range s.Warning {
		if it.Code == code {
			return true
		}
	}
	for _, it := range s.Information {
		if it.Code == code {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy for Token's value-record semantics
// (spec.md 3: "Token ... value record, clonable").
func (s Stream) Clone() Stream {
	return Stream{
		Information: append([]Item(nil), s.Information...),
		Warning:     append([]Item(nil), s.Warning...),
		Error:       append([]Item(nil), s.Error...),
	}
}
