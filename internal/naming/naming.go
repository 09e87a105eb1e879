// Package naming implements the name synthesizer (C5): target
// folder/file names, NFO XML sidecars, and the poster-URL set.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/opd-ai/cinetidy/pkg/types"
)

var spaceRegex = regexp.MustCompile(`\s+`)

var countryNames = map[string]string{
	"US": "UnitedStates", "GB": "UnitedKingdom", "JP": "Japan", "KR": "SouthKorea",
	"CN": "China", "TW": "Taiwan", "HK": "HongKong", "FR": "France", "DE": "Germany",
	"IT": "Italy", "ES": "Spain", "CA": "Canada", "AU": "Australia", "IN": "India",
	"RU": "Russia", "BR": "Brazil", "MX": "Mexico", "SE": "Sweden", "NO": "Norway",
	"DK": "Denmark", "NL": "Netherlands", "TH": "Thailand",
}

// CountryName returns the human-readable country name for an ISO-3166-1
// alpha-2 code, falling back to the code itself if unknown.
func CountryName(code string) string {
	if code == "" {
		return "Unknown"
	}
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}

// SanitizeFilename replaces characters invalid in filenames and trims
// leading/trailing dots and spaces.
func SanitizeFilename(s string) string {
	replacements := map[rune]string{
		'<': "", '>': "", ':': " -", '"': "'", '/': "-", '\\': "-", '|': "-", '?': "", '*': "",
	}
	var b strings.Builder
	for _, r := range s {
		if repl, ok := replacements[r]; ok {
			b.WriteString(repl)
		} else {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	cleaned = strings.Trim(cleaned, ".")
	return spaceRegex.ReplaceAllString(cleaned, " ")
}

// sameOrSimplification reports whether original and localized are
// identical or differ only by Han script simplification (heuristic:
// equal after stripping whitespace, since full simplified/traditional
// mapping is out of scope).
func sameOrSimplification(original, localized string) bool {
	return strings.TrimSpace(original) == strings.TrimSpace(localized)
}

func bracketedTitles(original, localized string) string {
	original = SanitizeFilename(original)
	localized = SanitizeFilename(localized)
	if localized == "" || sameOrSimplification(original, localized) {
		return fmt.Sprintf("[%s]", original)
	}
	return fmt.Sprintf("[%s][%s]", original, localized)
}

// MovieDir builds the movie library directory:
// {COUNTRY}_{COUNTRY_NAME}/[original][localized](year)-tt{imdb}-tmdb{id}
func MovieDir(r types.LookupRecord) string {
	countryDir := fmt.Sprintf("%s_%s", orUnknown(r.Country), CountryName(r.Country))
	titleSeg := bracketedTitles(r.OriginalTitle, r.LocalizedTitle)
	return filepath.Join(countryDir, fmt.Sprintf("%s(%d)-tt%s-tmdb%d", titleSeg, r.Year, trimTT(r.IMDBID), r.TMDBID))
}

// MovieFileName builds the movie file name; missing technical tokens
// produce omitted segments, never an empty "--".
func MovieFileName(r types.LookupRecord, probe types.ProbeMetadata, ext string) string {
	titleSeg := bracketedTitles(r.OriginalTitle, r.LocalizedTitle)
	base := fmt.Sprintf("%s(%d)", titleSeg, r.Year)
	tokens := joinTokens(probe.Resolution, probe.Container, probe.VideoCodec, bitDepthToken(probe.BitDepth), probe.AudioCodec, probe.AudioChannels)
	if tokens != "" {
		base = base + "-" + tokens
	}
	return base + ext
}

// TVShowDir builds the show-level directory.
func TVShowDir(r types.LookupRecord) string {
	countryDir := fmt.Sprintf("%s_%s", orUnknown(r.Country), CountryName(r.Country))
	titleSeg := bracketedTitles(r.OriginalTitle, r.LocalizedTitle)
	return filepath.Join(countryDir, fmt.Sprintf("%s(%d)-tt%s-tmdb%d", titleSeg, r.Year, trimTT(r.IMDBID), r.TMDBID))
}

// SeasonDir builds "Season NN", zero-padded to two digits.
func SeasonDir(season int) string {
	return fmt.Sprintf("Season %02d", season)
}

// EpisodeFileName builds [{show}]-S{NN}E{NNN}-[{episode_title}]-{tokens}.ext
func EpisodeFileName(r types.LookupRecord, probe types.ProbeMetadata, ext string) string {
	show := SanitizeFilename(r.ShowTitle)
	episodeTitle := SanitizeFilename(r.EpisodeTitle)
	base := fmt.Sprintf("[%s]-S%02dE%03d", show, r.Season, r.Episode)
	if episodeTitle != "" {
		base += fmt.Sprintf("-[%s]", episodeTitle)
	}
	tokens := joinTokens(probe.Resolution, probe.Container, probe.VideoCodec, bitDepthToken(probe.BitDepth), probe.AudioCodec, probe.AudioChannels)
	if tokens != "" {
		base += "-" + tokens
	}
	return base + ext
}

func bitDepthToken(bd string) string {
	if bd == "" {
		return ""
	}
	return bd + "bit"
}

func joinTokens(tokens ...string) string {
	nonEmpty := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return strings.Join(nonEmpty, "-")
}

func trimTT(imdb string) string {
	return strings.TrimPrefix(imdb, "tt")
}

func orUnknown(s string) string {
	if s == "" {
		return "XX"
	}
	return s
}

// PosterPlan maps the first 3 poster source URLs, in the order given, to
// their relative destination filenames. URLs are not ranked by
// resolution.
func PosterPlan(urls []string) map[string]string {
	out := make(map[string]string)
	limit := len(urls)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		name := "poster.jpg"
		if i > 0 {
			name = fmt.Sprintf("poster-%d.jpg", i+1)
		}
		out[urls[i]] = name
	}
	return out
}
