// Package match implements the match validator (C4): scoring a
// candidate against a lookup result, classifying match quality, and
// applying the "miss rather than misprocess" policy.
package match

import (
	"sort"

	"github.com/opd-ai/cinetidy/internal/normalize"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// cjkCountries bounds the country-consistency bonus: countries whose
// native script is commonly CJK.
var cjkCountries = map[string]bool{
	"JP": true, "KR": true, "CN": true, "TW": true, "HK": true,
}

// Score is the full scoring breakdown for one candidate/lookup pair.
type Score struct {
	YearPoints        float64
	TitleSimilarity   float64
	IntersectionBonus float64
	CountryBonus      float64
	Total             float64
	Quality           types.MatchQuality
}

// Evaluate scores a candidate against a lookup result. intersectionHit
// reports whether both CJK and Latin searches returned the same
// movie-database id (computed by the caller, which sees both searches).
func Evaluate(c types.CandidateMetadata, r types.LookupRecord, intersectionHit bool) Score {
	var s Score

	s.YearPoints = yearScore(c.Year, r.Year)

	bestSim := 0.0
	if c.TitleCJK != "" {
		bestSim = maxFloat(bestSim, normalize.TokenRatio(c.TitleCJK, r.LocalizedTitle))
	}
	if c.TitleLatin != "" {
		bestSim = maxFloat(bestSim, normalize.TokenRatio(c.TitleLatin, r.OriginalTitle))
	}
	s.TitleSimilarity = bestSim

	if intersectionHit {
		s.IntersectionBonus = 1
	}

	if r.Country != "" {
		wantsCJK := c.TitleCJK != "" && c.TitleLatin == ""
		if wantsCJK == cjkCountries[r.Country] {
			s.CountryBonus = 0.5
		}
	}

	s.Total = s.YearPoints + s.TitleSimilarity + s.IntersectionBonus + s.CountryBonus
	s.Quality = classify(c.Year, r.Year, s.TitleSimilarity)
	return s
}

func yearScore(candidateYear, lookupYear int) float64 {
	if candidateYear == 0 || lookupYear == 0 {
		return 0
	}
	diff := candidateYear - lookupYear
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 2
	case diff == 1:
		return 1
	default:
		return 0
	}
}

// classify implements the quality-class boundaries from spec §4.4.
// Exact requires an identical normalized title and exact year; the open
// question of the Medium/Low boundary is resolved at 0.70 similarity,
// as the spec's own lower bound states (see DESIGN.md).
func classify(candidateYear, lookupYear int, sim float64) types.MatchQuality {
	yearDiff := -1
	if candidateYear != 0 && lookupYear != 0 {
		yearDiff = candidateYear - lookupYear
		if yearDiff < 0 {
			yearDiff = -yearDiff
		}
	}
	exactYear := yearDiff == 0
	within1 := yearDiff >= 0 && yearDiff <= 1

	switch {
	case sim >= 0.999 && exactYear:
		return types.MatchExact
	case sim >= 0.85 && within1:
		return types.MatchHigh
	case sim >= 0.70 || within1:
		return types.MatchMedium
	case sim > 0:
		return types.MatchLow
	default:
		return types.MatchNoMatch
	}
}

// Candidate pairs one lookup result with its score, for tie-breaking.
type Candidate struct {
	Record types.LookupRecord
	Score  Score
}

// Best selects the highest-scoring candidate, breaking ties by higher
// vote count then older release year (preference for canonical releases
// over remakes).
func Best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		if a.Record.VoteCount != b.Record.VoteCount {
			return a.Record.VoteCount > b.Record.VoteCount
		}
		return a.Record.Year < b.Record.Year
	})
	return sorted[0], true
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
