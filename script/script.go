// Package script resolves the name of a host keyboard's script from the
// reported characters a calibration baseline probe produces, by looking at
// which Unicode block most of the reported upper/lower-case samples fall
// into (spec.md 4 "ScriptResolver").
package script

import (
	"sort"
	"unicode"

	"golang.org/x/text/language"
)

// Threshold is the minimum fraction of samples that must fall in a single
// Unicode script for that script to be reported with confidence, per
// spec.md's "Unicode-block frequency, >=65% threshold".
const Threshold = 0.65

// candidateScripts are the scripts a barcode-scanning host keyboard is
// plausibly configured for. Restricting the search to this list (rather
// than iterating all of unicode.Scripts) keeps the resolver's result
// stable even when a handful of samples are noise from a misconfigured
// probe.
var candidateScripts = []struct {
	name  string
	table *unicode.RangeTable
}{
	{"Latin", unicode.Latin},
	{"Greek", unicode.Greek},
	{"Cyrillic", unicode.Cyrillic},
	{"Coptic", unicode.Coptic},
	{"Armenian", unicode.Armenian},
	{"Adlam", unicode.Adlam},
	{"Warang Citi", unicode.Warang_Citi},
	{"Cherokee", unicode.Cherokee},
	{"Osage", unicode.Osage},
	{"Glagolitic", unicode.Glagolitic},
	{"Deseret", unicode.Deseret},
	{"Hebrew", unicode.Hebrew},
	{"Arabic", unicode.Arabic},
	{"Han", unicode.Han},
	{"Hiragana", unicode.Hiragana},
	{"Katakana", unicode.Katakana},
	{"Hangul", unicode.Hangul},
	{"Thai", unicode.Thai},
	{"Devanagari", unicode.Devanagari},
}

// CaseSupportingScripts is the closed list of scripts known to support an
// upper/lower case distinction, consulted by capability.CapabilityDeriver
// to resolve KeyboardScriptDoesNotSupportCase (spec.md 4.2 step 3).
var CaseSupportingScripts = map[string]bool{
	"Latin":       true,
	"Greek":       true,
	"Cyrillic":    true,
	"Coptic":      true,
	"Armenian":    true,
	"Adlam":       true,
	"Warang Citi": true,
	"Cherokee":    true,
	"Osage":       true,
	"Glagolitic":  true,
	"Deseret":     true,
}

// Result is the outcome of resolving a sample set.
type Result struct {
	// Name is the free-text script name (e.g. "Latin").
	Name string
	// Tag is the canonical ISO 15924 script tag (e.g. "Latn"), when one
	// could be resolved via golang.org/x/text/language; empty otherwise.
	Tag string
	// Confidence is the fraction of samples that matched Name's block.
	Confidence float64
	// Resolved is false when no script reached Threshold.
	Resolved bool
}

// Resolve inspects samples (the reported characters observed for a known
// set of expected upper/lower letters) and returns the best-matching
// script, or Result{Resolved: false} if no script reaches Threshold.
func Resolve(samples []rune) Result {
	if len(samples) == 0 {
		return Result{}
	}
	counts := make(map[string]int, len(candidateScripts))
	for _, r := range samples {
		for _, c := range candidateScripts {
			if unicode.Is(c.table, r) {
				counts[c.name]++
				break
			}
		}
	}

	type scored struct {
		name  string
		count int
	}
	var ranked []scored
	for name, count := range counts {
		ranked = append(ranked, scored{name, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) == 0 {
		return Result{}
	}

	best := ranked[0]
	confidence := float64(best.count) / float64(len(samples))
	if confidence < Threshold {
		return Result{Confidence: confidence}
	}

	return Result{
		Name:       best.name,
		Tag:        canonicalTag(best.name),
		Confidence: confidence,
		Resolved:   true,
	}
}

// iso15924 maps each candidate script's free-text name to its four-letter
// ISO 15924 code, the form golang.org/x/text/language.ParseScript expects.
var iso15924 = map[string]string{
	"Latin":       "Latn",
	"Greek":       "Grek",
	"Cyrillic":    "Cyrl",
	"Coptic":      "Copt",
	"Armenian":    "Armn",
	"Adlam":       "Adlm",
	"Warang Citi": "Wara",
	"Cherokee":    "Cher",
	"Osage":       "Osge",
	"Glagolitic":  "Glag",
	"Deseret":     "Dsrt",
	"Hebrew":      "Hebr",
	"Arabic":      "Arab",
	"Han":         "Hani",
	"Hiragana":    "Hira",
	"Katakana":    "Kana",
	"Hangul":      "Hang",
	"Thai":        "Thai",
	"Devanagari":  "Deva",
}

// canonicalTag maps a resolved script name to its ISO 15924 tag using
// golang.org/x/text/language to validate the code is one the library
// recognises, falling back to the empty string otherwise.
func canonicalTag(name string) string {
	code, ok := iso15924[name]
	if !ok {
		return ""
	}
	scr, err := language.ParseScript(code)
	if err != nil {
		return ""
	}
	return scr.String()
}
