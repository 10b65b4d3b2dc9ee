// Package calibkind holds the small enumerations threaded through the
// facade API (spec.md 6): Assumption, Platform, and DataEntrySpan. None of
// them affect the engine's map inference; Assumption and Platform modulate
// which AdviceItems package advice emits, and DataEntrySpan only adds a
// diagnostic at the facade.
package calibkind

// Assumption records whether the host application will apply the learned
// Data at runtime.
type Assumption int

const (
	// Agnostic means the caller's intent is unknown.
	Agnostic Assumption = iota
	// Calibration means the application will apply the returned Data.
	Calibration
	// NoCalibration means it will not.
	NoCalibration
)

func (a Assumption) String() string {
	switch a {
	case Calibration:
		return "Calibration"
	case NoCalibration:
		return "NoCalibration"
	default:
		return "Agnostic"
	}
}

// Platform is the host operating system family. Only Macintosh and
// Windows branch behaviour materially (spec.md 6); the rest exist so
// hosts can report accurate diagnostics without the advice engine needing
// to special-case "other".
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformWindows
	PlatformMacintosh
	PlatformLinux
	PlatformChromeOs
	PlatformUnix
	PlatformAndroid
)

func (p Platform) String() string {
	switch p {
	case PlatformWindows:
		return "Windows"
	case PlatformMacintosh:
		return "Macintosh"
	case PlatformLinux:
		return "Linux"
	case PlatformChromeOs:
		return "ChromeOs"
	case PlatformUnix:
		return "Unix"
	case PlatformAndroid:
		return "Android"
	default:
		return "Unknown"
	}
}

// DataEntrySpan describes how much of the calibration text a caller
// observed for a given turn. The facade's Calibrate adds a
// PartialCalibrationDataReported diagnostic for SpanPartialEntry; the other
// values add nothing.
type DataEntrySpan int

const (
	SpanUnknown DataEntrySpan = iota
	SpanWholeEntry
	SpanPartialEntry
)
