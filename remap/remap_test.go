package remap

import (
	"testing"

	"github.com/solidkey/calibration/calibdata"
	"github.com/solidkey/calibration/deadkey"
)

func TestProcessCharacterMap(t *testing.T) {
	data := calibdata.NewData()
	data.CharacterMap["&"] = "1"
	data.CharacterMap["é"] = "2"

	got, exc := Process("&é3", data)
	if got != "123" {
		t.Fatalf("got %q, want %q", got, "123")
	}
	if len(exc) != 0 {
		t.Fatalf("unexpected exceptions: %+v", exc)
	}
}

func TestProcessDeadKey(t *testing.T) {
	data := calibdata.NewData()
	data.DeadKeysMap[deadkey.Sequence{Indicator: '^', Follower: 'â'}] = "a"
	data.DeadKeysMap[deadkey.Sequence{Indicator: '^', Follower: 'ê'}] = "e"

	got, _ := Process("^â^ê", data)
	if got != "ae" {
		t.Fatalf("got %q, want %q", got, "ae")
	}
}

func TestProcessLigatureLongestMatch(t *testing.T) {
	data := calibdata.NewData()
	data.LigatureMap["ab"] = "X"
	data.LigatureMap["a"] = "Y"

	got, _ := Process("ab", data)
	if got != "X" {
		t.Fatalf("got %q, want longest match X", got)
	}
}

func TestProcessUnassignedException(t *testing.T) {
	data := calibdata.NewData()
	data.ScannerUnassignedKeys = []string{"Q"}

	got, exc := Process("Q", data)
	if got != "Q" {
		t.Fatalf("unassigned keys pass through unchanged, got %q", got)
	}
	if len(exc) != 1 || exc[0].Reason != ReasonScannerUnassignedKey {
		t.Fatalf("expected one unassigned-key exception, got %+v", exc)
	}
}

func TestProcessStripsPrefixSuffixEOL(t *testing.T) {
	data := calibdata.NewData()
	data.Prefix = "]C1"
	data.Suffix = "!"

	got, _ := Process("]C1hello!\r\n", data)
	if got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestProcessIdempotentOnCanonicalText(t *testing.T) {
	data := calibdata.NewData()
	data.CharacterMap["&"] = "1"

	once, _ := Process("1", data)
	twice, _ := Process(once, data)
	if once != twice {
		t.Fatalf("remap should be idempotent on already-canonical text: %q vs %q", once, twice)
	}
}
