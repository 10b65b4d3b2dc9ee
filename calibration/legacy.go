package calibration

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// legacyCodepages is a small registry of the single-byte codepages older
// POS/kiosk hosts still report, keyed by the name a caller would configure
// alongside Platform (spec.md 6 Platform values mention "several
// historical ones"); grounded on the teacher's own Encoding registry
// pattern (ascii.go/encoding.go: a name -> encoding.Encoding table).
var legacyCodepages = map[string]encoding.Encoding{
	"cp437":       charmap.CodePage437,
	"cp850":       charmap.CodePage850,
	"windows1252": charmap.Windows1252,
	"iso8859-1":   charmap.ISO8859_1,
	"iso8859-15":  charmap.ISO8859_15,
}

// DecodeLegacyBytes converts raw bytes a host reports in a legacy
// single-byte codepage into UTF-8 text before it reaches the engine.
// Hosts on a modern UTF-8 locale never need this; it exists for the
// older kiosk/POS terminals that still report Latin-1-family bytes.
func DecodeLegacyBytes(b []byte, codepage string) (string, error) {
	enc, ok := legacyCodepages[codepage]
	if !ok {
		return "", fmt.Errorf("calibration: unknown legacy codepage %q", codepage)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("calibration: decoding legacy codepage %q: %w", codepage, err)
	}
	return string(out), nil
}

// DecodeLegacyBytesCounting is DecodeLegacyBytes plus the count of input
// bytes that had no mapping in the target codepage and were substituted
// with the Unicode replacement character, for a caller (e.g. a
// PreprocessorWarner) that wants to surface the loss rather than accept
// it silently.
func DecodeLegacyBytesCounting(b []byte, codepage string) (string, int, error) {
	out, err := DecodeLegacyBytes(b, codepage)
	if err != nil {
		return "", 0, err
	}
	return out, strings.Count(out, "�"), nil
}
