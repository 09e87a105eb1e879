// Package normalize implements the title-comparison text pipeline: NFKC,
// then case-fold, then punctuation strip. Original strings are always
// preserved in emitted names; normalization is only used for comparison.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// Title normalizes s for comparison: NFKC normalization, case-folding,
// then stripping punctuation and collapsing whitespace.
func Title(s string) string {
	s = norm.NFKC.String(s)
	s = foldCaser.String(s)

	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			if !lastWasSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastWasSpace = true
		default:
			b.WriteRune(r)
			lastWasSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// titleCaser is a package-private caser for consistent Latin
// title-casing. Declared with language.Und since
// the corpus mixes scripts and a specific locale would mis-case CJK.
var titleCaser = cases.Title(language.Und)

// CleanTitle mirrors the teacher's ad hoc filename cleanup (dot/underscore
// to space) but routes through NFKC first, so downstream comparisons never
// see unnormalized code points.
func CleanTitle(title string) string {
	title = norm.NFKC.String(title)
	title = strings.ReplaceAll(title, ".", " ")
	title = strings.ReplaceAll(title, "_", " ")
	return strings.TrimSpace(title)
}

// ContainsCJK reports whether s contains any CJK Unified Ideograph,
// Hiragana, Katakana or Hangul code point.
func ContainsCJK(s string) bool {
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r),
			unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r),
			unicode.Is(unicode.Hangul, r):
			return true
		}
	}
	return false
}

// IsPredominantlyLatin reports whether s has more Latin-script letters
// than CJK code points.
func IsPredominantlyLatin(s string) bool {
	latin, cjk := 0, 0
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Hangul, r):
			cjk++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	return latin > cjk
}

// TokenRatio scores similarity of two normalized titles as the Jaccard
// ratio of their whitespace-split token sets, adjusted by a length
// normalization factor so "the matrix" and "the matrix reloaded" do not
// score as near-identical.
func TokenRatio(a, b string) float64 {
	na, nb := Title(a), Title(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	ta := strings.Fields(na)
	tb := strings.Fields(nb)
	setA := make(map[string]bool, len(ta))
	for _, t := range ta {
		setA[t] = true
	}
	setB := make(map[string]bool, len(tb))
	for _, t := range tb {
		setB[t] = true
	}
	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	jaccard := float64(inter) / float64(union)

	shorter, longer := len(na), len(nb)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	lengthFactor := float64(shorter) / float64(longer)
	return jaccard*0.8 + lengthFactor*0.2
}
