// Command calibrate-session is an interactive operator harness: it drives
// a real scanner against a physical keyboard-wedge connection, displaying
// each probe barcode's text (an operator prints or displays it, scans it,
// and the scan arrives on the configured input device) and reporting the
// resulting capabilities and advice once the session completes.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/solidkey/calibration"
	"github.com/solidkey/calibration/advice"
	"github.com/solidkey/calibration/calibkind"
	"github.com/solidkey/calibration/capability"
	"github.com/solidkey/calibration/engine"
)

func main() {
	device := pflag.StringP("device", "d", "", "raw input device to read scans from (default: current terminal)")
	assumptionFlag := pflag.String("assumption", "agnostic", "calibration|no-calibration|agnostic")
	platformFlag := pflag.String("platform", "", "windows|macintosh|linux|chromeos|unix|android")
	profilePath := pflag.StringP("profile", "p", "", "write the sealed calibration profile as JSON to this path")
	chunkSize := pflag.IntP("chunk-size", "c", 0, "split probes into barcodes no longer than this many characters (0 = unchunked)")
	codepage := pflag.String("legacy-codepage", "", "decode reported bytes from a legacy single-byte codepage before calibration (cp437, cp850, windows1252, iso8859-1, iso8859-15)")
	verbose := pflag.BoolP("verbose", "v", false, "debug-level logging")
	pflag.Parse()

	logLevel := zerolog.InfoLevel
	if *verbose {
		logLevel = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(logLevel).With().Timestamp().Logger()

	assumption := parseAssumption(*assumptionFlag)
	platform := parsePlatform(*platformFlag)

	var pre calibration.Preprocessor
	if *codepage != "" {
		pre = &legacyPreprocessor{codepage: *codepage}
	}

	if err := run(*device, *profilePath, *chunkSize, assumption, platform, pre); err != nil {
		log.Error().Err(err).Msg("calibration session failed")
		os.Exit(1)
	}
}

func run(device, profilePath string, chunkSize int, assumption calibkind.Assumption, platform calibkind.Platform, pre calibration.Preprocessor) error {
	reader, restore, err := openInput(device)
	if err != nil {
		return fmt.Errorf("calibrate-session: opening input: %w", err)
	}
	defer restore()

	tok, err := calibration.NewSession(assumption)
	if err != nil {
		return fmt.Errorf("calibrate-session: starting session: %w", err)
	}
	log.Info().Int("width", terminalWidth()).Msg("session started")

	for {
		if chunkSize > 0 {
			tok, err = tok.NextBarcode(chunkSize)
			if err != nil {
				return err
			}
		}
		displayProbe(tok)

		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("calibrate-session: reading scan: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		// This harness has no platform API to read the live CapsLock LED
		// state, so it always asks the engine to infer it from the scan
		// itself (spec.md 6 marks capsLock optional for exactly this case).
		tok, err = tok.Calibrate(line, capability.Unknown, platform, calibkind.SpanWholeEntry, pre)
		if err != nil {
			printDiagnostics(tok)
			var calErr *calibration.CalibrationError
			if asCalibrationError(err, &calErr) && calErr.Recoverability == calibration.RetrySameProbe {
				log.Warn().Err(err).Msg("retrying current probe")
				continue
			}
			return err
		}
		printDiagnostics(tok)

		if tok.Phase == engine.PhaseDone {
			break
		}
	}

	printAdvice(tok.Advice)
	if profilePath != "" {
		if err := writeProfile(profilePath, tok); err != nil {
			return err
		}
		log.Info().Str("path", profilePath).Msg("profile written")
	}
	return nil
}

func asCalibrationError(err error, out **calibration.CalibrationError) bool {
	ce, ok := err.(*calibration.CalibrationError)
	if !ok {
		return false
	}
	*out = ce
	return true
}

// displayProbe prints the current probe's payload (or chunks, if the
// caller requested barcode-size splitting) for the operator to present to
// the scanner.
func displayProbe(tok *calibration.Token) {
	if len(tok.Chunks) > 0 {
		for _, c := range tok.Chunks {
			fmt.Println(c.Payload)
		}
		return
	}
	fmt.Println(tok.Payload)
}

func printDiagnostics(tok *calibration.Token) {
	for _, it := range tok.Stream.Information {
		log.Info().Str("code", fmt.Sprint(it.Code)).Msg(it.Text)
	}
	for _, it := range tok.Stream.Warning {
		log.Warn().Str("code", fmt.Sprint(it.Code)).Msg(it.Text)
	}
	for _, it := range tok.Stream.Error {
		log.Error().Str("code", fmt.Sprint(it.Code)).Msg(it.Text)
	}
}

// printAdvice renders each item with a severity-blended color: green for
// Low, amber for Medium, red for High, the way the teacher blends colors
// toward a palette entry rather than using fixed ANSI codes.
func printAdvice(items []advice.Item) {
	low := colorful.Color{R: 0.2, G: 0.7, B: 0.2}
	high := colorful.Color{R: 0.8, G: 0.1, B: 0.1}
	width := terminalWidth()
	for _, it := range items {
		t := 0.0
		switch it.Severity {
		case advice.Medium:
			t = 0.5
		case advice.High:
			t = 1.0
		}
		shade := low.BlendRgb(high, t)
		fmt.Printf("\x1b[38;2;%d;%d;%dm[%s] %s\x1b[0m\n",
			int(shade.R*255), int(shade.G*255), int(shade.B*255),
			it.Severity.String(), wrap(it.Description, width))
		for _, line := range it.Advice {
			fmt.Println("  -", wrap(line, width-2))
		}
	}
}

// wrap breaks s on word boundaries so no rendered line exceeds width
// display cells, using the teacher's own rune-width measure rather than
// counting bytes or runes.
func wrap(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	var b strings.Builder
	lineWidth := 0
	for i, word := range strings.Fields(s) {
		ww := runewidth.StringWidth(word)
		if i > 0 {
			if lineWidth+1+ww > width {
				b.WriteByte('\n')
				lineWidth = 0
			} else {
				b.WriteByte(' ')
				lineWidth++
			}
		}
		b.WriteString(word)
		lineWidth += ww
	}
	return b.String()
}

func terminalWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 80
	}
	return int(ws.Col)
}

// openInput puts device (or the controlling terminal, if device is empty)
// into raw mode so control characters (GS/RS/FS/US/EOT) a scanner embeds
// in its payload arrive unmangled by the line discipline, and returns a
// restore function the caller must run before exiting.
func openInput(device string) (*bufio.Reader, func(), error) {
	path := device
	if path == "" {
		path = "/dev/tty"
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return bufio.NewReader(os.Stdin), func() {}, nil
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return bufio.NewReader(f), func() { f.Close() }, nil
	}
	saved, err := term.MakeRaw(fd)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	restore := func() {
		_ = term.Restore(fd, saved)
		_ = f.Close()
	}
	return bufio.NewReader(f), restore, nil
}

func parseAssumption(s string) calibkind.Assumption {
	switch strings.ToLower(s) {
	case "calibration":
		return calibkind.Calibration
	case "no-calibration":
		return calibkind.NoCalibration
	default:
		return calibkind.Agnostic
	}
}

func parsePlatform(s string) calibkind.Platform {
	switch strings.ToLower(s) {
	case "windows":
		return calibkind.PlatformWindows
	case "macintosh", "macos", "darwin":
		return calibkind.PlatformMacintosh
	case "linux":
		return calibkind.PlatformLinux
	case "chromeos":
		return calibkind.PlatformChromeOs
	case "unix":
		return calibkind.PlatformUnix
	case "android":
		return calibkind.PlatformAndroid
	default:
		return calibkind.PlatformUnknown
	}
}

// legacyPreprocessor adapts calibration.DecodeLegacyBytesCounting to the
// calibration.Preprocessor/PreprocessorWarner interfaces, for hosts on an
// older POS/kiosk terminal reporting a legacy single-byte codepage rather
// than UTF-8.
type legacyPreprocessor struct {
	codepage     string
	lastUnmapped int
}

func (p *legacyPreprocessor) Process(reported string) (string, error) {
	out, n, err := calibration.DecodeLegacyBytesCounting([]byte(reported), p.codepage)
	p.lastUnmapped = n
	return out, err
}

// Warnings reports bytes the last Process call could not map in the
// configured codepage, surfaced as PreProcessorWarning rather than
// silently accepted.
func (p *legacyPreprocessor) Warnings() []string {
	if p.lastUnmapped == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%d byte(s) had no mapping in codepage %s", p.lastUnmapped, p.codepage)}
}

func writeProfile(path string, tok *calibration.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("calibrate-session: creating profile file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tok.Data)
}
