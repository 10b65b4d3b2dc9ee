package advice

import "sort"

// phase3 orders the post-rewrite buckets for output (spec.md 4.3 phase 3,
// spec.md 5 "Ordering guarantees": lexicographic by numeric advice code
// within each severity bucket).
//
// When any High item exists, High is emitted first (sorted), then Medium;
// Low is withheld entirely, since a green/positive notice alongside a
// fatal one would mislead. Otherwise Low is emitted first, then Medium,
// and each Low item gains an appended note about additional issues when
// Medium is non-empty.
func phase3(b *buckets) []Item {
	sortByCode(b.high)
	sortByCode(b.medium)
	sortByCode(b.low)

	if len(b.high) > 0 {
		out := make([]Item, 0, len(b.high)+len(b.medium))
		out = append(out, b.high...)
		out = append(out, b.medium...)
		return out
	}

	low := b.low
	if len(b.medium) > 0 {
		note := additionalIssuesNote(len(b.medium))
		low = make([]Item, len(b.low))
		for i, it := range b.low {
			it.Description = it.Description + " " + note
			low[i] = it
		}
	}
	out := make([]Item, 0, len(low)+len(b.medium))
	out = append(out, low...)
	out = append(out, b.medium...)
	return out
}

func additionalIssuesNote(mediumCount int) string {
	if mediumCount == 1 {
		return "There is also an additional issue."
	}
	return "There are also some additional issues."
}

func sortByCode(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
}
