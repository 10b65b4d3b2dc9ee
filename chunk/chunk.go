// Package chunk implements BarcodeChunker (spec.md 4.1.5): splitting a
// probe payload that exceeds a caller-supplied size cap into a sequence of
// smaller barcodes, each tagged with a small-barcode sequence marker so the
// engine can reassemble the reported halves back into one baseline report.
package chunk

import (
	"fmt"
	"strings"
)

// Chunk is one piece of a chunked payload.
type Chunk struct {
	Index   int    // 0-based position in the sequence
	Count   int    // total number of chunks in the sequence
	Payload string // sequence marker + this slice of the original payload
}

// Split breaks payload into chunks no longer than maxChars (including the
// per-chunk sequence marker), never splitting exactly on boundary (the
// chosen temporary delimiter rune, spec.md 4.1.5: "Chunk splits must never
// fall on the boundary character"). If a candidate split point lands on
// boundary, Split backs off to a shorter chunk and retries, as spec.md
// describes.
//
// prefix is prepended to the marker of every chunk (spec.md: "a fixed
// small-barcode sequence marker (sequenceIndex,sequenceCount,prefix)").
func Split(payload string, maxChars int, boundary rune, prefix string) ([]Chunk, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("chunk: maxChars must be positive, got %d", maxChars)
	}
	runes := []rune(payload)

	// Marker length depends on the final chunk count, so we iterate: try
	// a chunk count, build markers, and check that every resulting chunk
	// (marker + slice) fits within maxChars.
	for count := 1; count <= len(runes)+1; count++ {
		chunks, ok := tryCount(runes, maxChars, boundary, prefix, count)
		if ok {
			return chunks, nil
		}
	}
	return nil, fmt.Errorf("chunk: payload cannot be split within %d chars per chunk", maxChars)
}

func marker(index, count int, prefix string) string {
	return fmt.Sprintf("%d,%d,%s", index, count, prefix)
}

func tryCount(runes []rune, maxChars int, boundary rune, prefix string, count int) ([]Chunk, bool) {
	// Compute an even split of runes across count chunks, backing off the
	// end of any chunk that would land on the boundary rune. Markers are
	// stamped only once the true chunk count is known, since backing off
	// never increases the number of chunks but the nominal "count" may
	// not exactly match sizes we settle on.
	base := len(runes) / count
	if base == 0 {
		base = 1
	}
	var texts []string
	pos := 0
	for i := 0; i < count && pos < len(runes); i++ {
		remaining := len(runes) - pos
		size := base
		if i == count-1 || size > remaining {
			size = remaining
		}
		end := pos + size
		// Never split exactly on the boundary rune: back off by one
		// rune at a time until the slice does not end on boundary,
		// or until we would produce an empty slice (then give up on
		// this count).
		for end > pos && end < len(runes) && runes[end-1] == boundary {
			end--
		}
		if end == pos {
			return nil, false
		}
		texts = append(texts, string(runes[pos:end]))
		pos = end
	}
	if pos != len(runes) {
		return nil, false
	}

	actual := len(texts)
	chunks := make([]Chunk, actual)
	for i, text := range texts {
		full := marker(i, actual, prefix) + text
		if len([]rune(full)) > maxChars {
			return nil, false
		}
		chunks[i] = Chunk{Index: i, Count: actual, Payload: full}
	}
	return chunks, true
}

// Reassemble concatenates the reported text for each chunk, in sequence
// order, stripping the per-chunk marker prefix the caller captured when it
// displayed/scanned the chunk (the engine tracks markers out of band, via
// Token's small-barcode index/count fields, so Reassemble here operates on
// already-stripped payload text).
func Reassemble(parts []string) string {
	return strings.Join(parts, "")
}
