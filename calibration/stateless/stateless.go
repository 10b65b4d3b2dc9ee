// Package stateless is the round-trip facade spec.md 5 calls the
// "Statelessness option": instead of the host holding a live *Token in
// memory between probes, every call takes and returns a Packet the host
// stores wherever it already persists request state (a cookie, a queue
// message, a database row) and hands back unchanged next turn. No
// process-wide session map exists anywhere in this package.
package stateless

import (
	"encoding/json"
	"fmt"

	"github.com/solidkey/calibration"
	"github.com/solidkey/calibration/advice"
	"github.com/solidkey/calibration/calibdata"
	"github.com/solidkey/calibration/calibkind"
	"github.com/solidkey/calibration/capability"
	"github.com/solidkey/calibration/chunk"
	"github.com/solidkey/calibration/diag"
	"github.com/solidkey/calibration/engine"
)

// Packet is the fully self-contained value a stateless caller carries
// across calls. Every field calibration.Token exposes is present except
// ExtendedData, which is replaced by the exported EngineState/Assumption/
// CapsLock triple Snapshot/Restore operate on.
type Packet struct {
	Payload      string              `json:"payload,omitempty"`
	Chunks       []chunk.Chunk       `json:"chunks,omitempty"`
	Remaining    int                 `json:"remaining"`
	Phase        engine.Phase        `json:"phase"`
	Data         *calibdata.Data     `json:"data,omitempty"`
	Capabilities capability.SystemCapabilities `json:"capabilities"`
	Advice       []advice.Item       `json:"advice,omitempty"`
	Stream       diag.Stream         `json:"stream"`
	Abandoned    bool                `json:"abandoned,omitempty"`

	EngineState engine.State         `json:"engineState"`
	Assumption  calibkind.Assumption `json:"assumption"`
	CapsLock    capability.OptBool   `json:"capsLock"`
}

// fromToken flattens a *calibration.Token into its wire-shaped Packet.
func fromToken(t *calibration.Token) (Packet, error) {
	st, assumption, capsLock, ok := t.Snapshot()
	if !ok {
		return Packet{}, fmt.Errorf("stateless: token has no active session to snapshot")
	}
	return Packet{
		Payload:      t.Payload,
		Chunks:       t.Chunks,
		Remaining:    t.Remaining,
		Phase:        t.Phase,
		Data:         t.Data,
		Capabilities: t.Capabilities,
		Advice:       t.Advice,
		Stream:       t.Stream,
		Abandoned:    t.CalibrationSessionAbandoned,
		EngineState:  st,
		Assumption:   assumption,
		CapsLock:     capsLock,
	}, nil
}

// toToken reconstitutes a live *calibration.Token from p, with no memory
// of any prior call involved.
func toToken(p Packet) *calibration.Token {
	return calibration.Restore(p.EngineState, p.Assumption, p.CapsLock)
}

// Start begins a new session and returns its first Packet (spec.md 6
// "new_session(assumption) -> Token", stateless form).
func Start(assumption calibkind.Assumption) (Packet, error) {
	tok, err := calibration.NewSession(assumption)
	if err != nil {
		return Packet{}, err
	}
	return fromToken(tok)
}

// NextBarcode re-chunks the current probe's payload to size (spec.md 6
// "next_barcode", stateless form).
func NextBarcode(p Packet, size int) (Packet, error) {
	tok, err := toToken(p).NextBarcode(size)
	if err != nil {
		return Packet{}, err
	}
	return fromToken(tok)
}

// Calibrate advances the session with the host-reported text for the
// current probe (spec.md 6 "calibrate", stateless form).
func Calibrate(p Packet, reported string, capsLock capability.OptBool, platform calibkind.Platform, span calibkind.DataEntrySpan, pre calibration.Preprocessor) (Packet, error) {
	next, err := toToken(p).Calibrate(reported, capsLock, platform, span, pre)
	if err != nil {
		if next == nil {
			return Packet{}, err
		}
		out, snapErr := fromToken(next)
		if snapErr != nil {
			return Packet{}, err
		}
		return out, err
	}
	return fromToken(next)
}

// Abandon marks the session terminal (spec.md 5).
func Abandon(p Packet) (Packet, error) {
	return fromToken(toToken(p).Abandon())
}

// Marshal serializes p to the JSON blob form a host with no structured
// storage (a cookie, an opaque form field) can carry verbatim.
func (p Packet) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal parses a JSON blob Marshal previously produced.
func Unmarshal(b []byte) (Packet, error) {
	var p Packet
	if err := json.Unmarshal(b, &p); err != nil {
		return Packet{}, fmt.Errorf("stateless: unmarshaling packet: %w", err)
	}
	return p, nil
}
