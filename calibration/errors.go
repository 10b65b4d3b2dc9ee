package calibration

import (
	"fmt"

	"github.com/solidkey/calibration/diag"
)

// classifyFailure returns RetrySameProbe when the stream carries any of the
// retriable codes anywhere (NoCalibrationTokenProvided,
// IncorrectCalibrationDataReported, PartialCalibrationDataReported), and
// RestartSession otherwise (spec.md 7).
func classifyFailure(stream diag.Stream) Recoverability {
	if stream.Has(diag.NoCalibrationTokenProvided) ||
		stream.Has(diag.IncorrectCalibrationDataReported) ||
		stream.Has(diag.PartialCalibrationDataReported) {
		return RetrySameProbe
	}
	return RestartSession
}

// CalibrationError wraps a fatal failure from the engine with the
// recoverability class spec.md 7 assigns it, so a host can decide whether
// to retry the current probe or restart the whole session without
// inspecting diag codes directly. Code is set when the failure occurred
// before any Token/Stream existed to carry it (e.g. session construction
// itself failing); it is zero-valued when the stream already carries the
// full diagnostic picture.
type CalibrationError struct {
	Recoverability Recoverability
	Code           diag.Code
	Err            error
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("calibration: %s: %v", e.Recoverability, e.Err)
}

func (e *CalibrationError) Unwrap() error { return e.Err }

// Recoverability classifies a CalibrationError per spec.md 7.
type Recoverability int

const (
	// RetrySameProbe means the caller should re-display the same probe
	// and re-scan (spec.md 7: NoCalibrationTokenProvided,
	// IncorrectCalibrationDataReported, PartialCalibrationDataReported).
	RetrySameProbe Recoverability = iota
	// RestartSession means the caller must abandon and start a new
	// session (spec.md 7: CalibrationFailed, CalibrationFailedUnexpectedly,
	// NoDelimiters, NoTemporaryDelimiterCandidate).
	RestartSession
)

func (r Recoverability) String() string {
	if r == RestartSession {
		return "restart session"
	}
	return "retry probe"
}
