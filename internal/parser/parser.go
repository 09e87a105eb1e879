// Package parser implements the name/path parser: pure, deterministic
// extraction of title, year, season/episode and technical tokens from a
// filename, plus classification of ancestor directory roles.
package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opd-ai/cinetidy/internal/normalize"
	"github.com/opd-ai/cinetidy/pkg/types"
)

var (
	organizedMoviePattern = regexp.MustCompile(`\[.+\]\((\d{4})\)-tt(\d+)-tmdb(\d+)`)
	organizedTVPattern    = regexp.MustCompile(`\[.+\]-S(\d{1,2})E(\d{1,3})-\[(.+)\]-`)
	ttIDPattern           = regexp.MustCompile(`tt(\d+)`)
	tmdbIDPattern         = regexp.MustCompile(`tmdb(\d+)`)

	yearToken = regexp.MustCompile(`(?:^|[\[\(._\s])(1[89]\d{2}|20\d{2}|21\d{2})(?:$|[\]\)._\s])`)

	seasonEpisodePattern = regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,3})`)
	altSeasonEpisode     = regexp.MustCompile(`(?i)(\d{1,4})x(\d{1,3})`)
	bareEpisodePattern   = regexp.MustCompile(`(?i)\bE(?:P(?:isode)?)?\s*(\d{1,3})\b`)
	bareNumericEpisode   = regexp.MustCompile(`^(\d{1,3})\b`)

	qualityPattern = regexp.MustCompile(`(?i)\b(4K|8K|2160p|1080p|720p|480p|UHD)\b`)
	sourcePattern  = regexp.MustCompile(`(?i)\b(BluRay|Blu-Ray|BRRip|BDRip|WEB-DL|WEBRip|WEBDL|DVDRip|DVD-Rip|HDTV|PDTV|HDRip)\b`)
	codecPattern   = regexp.MustCompile(`(?i)\b(x264|x265|h264|h265|HEVC|AVC|XviD)\b`)
	bitDepthPattern = regexp.MustCompile(`(?i)\b(8|10|12)bit\b`)
	audioPattern   = regexp.MustCompile(`(?i)\b(DTS(?:-HD)?|TrueHD|Atmos|DDP?5\.1|AAC|FLAC|AC3)\b`)
	editionPattern = regexp.MustCompile(`(?i)\b(directors?[\s.]?cut|extended(?:[\s.]?(?:cut|edition))?|unrated|theatrical)\b`)
	containerPattern = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|m4v|ts)$`)

	seasonDirPattern = regexp.MustCompile(`(?i)^season\s*0*(\d{1,3})$|^specials?$`)
	qualityDirPattern = regexp.MustCompile(`(?i)^(4K|1080p|720p|480p|UHD|remux)$`)

	sampleMarker = regexp.MustCompile(`(?i)sample`)
)

// Fields is everything the parser extracts from a bare filename.
type Fields struct {
	TitleCJK   string
	TitleLatin string
	Year       int
	Season     int // -1 if absent
	Episode    int // -1 if absent
	Probe      types.ProbeMetadata
	IsMinimal  bool
}

// IsSample reports whether name or any ancestor path segment contains
// the literal substring "sample", case-insensitively.
func IsSample(path string) bool {
	return sampleMarker.MatchString(path)
}

// ValidYear reports whether y falls in [1900, current_year+1].
func ValidYear(y int) bool {
	if y < 1900 {
		return false
	}
	return y <= time.Now().Year()+1
}

// OrganizedMovieIDs extracts embedded ids from an organized-marker
// movie path component, if present.
func OrganizedMovieIDs(s string) (imdb string, tmdb int, year int, ok bool) {
	m := organizedMoviePattern.FindStringSubmatch(s)
	if m == nil {
		return "", 0, 0, false
	}
	y, _ := strconv.Atoi(m[1])
	id, _ := strconv.Atoi(m[3])
	return "tt" + m[2], id, y, true
}

// OrganizedTVMarker reports whether s matches the organized TV sibling
// form, returning the embedded season/episode and any show-level imdb/tmdb
// id found in the trailing bracket (either may be absent even when ok is
// true, if the bracket carries no recognizable id).
func OrganizedTVMarker(s string) (season, episode int, imdb string, tmdb int, ok bool) {
	m := organizedTVPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, "", 0, false
	}
	season, _ = strconv.Atoi(m[1])
	episode, _ = strconv.Atoi(m[2])
	idBlob := m[3]
	if tm := ttIDPattern.FindStringSubmatch(idBlob); tm != nil {
		imdb = "tt" + tm[1]
	}
	if tm := tmdbIDPattern.FindStringSubmatch(idBlob); tm != nil {
		tmdb, _ = strconv.Atoi(tm[1])
	}
	return season, episode, imdb, tmdb, true
}

// ParseFilename extracts title, year, season/episode and technical
// tokens from a single filename (not a full path).
func ParseFilename(filename string) Fields {
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)

	f := Fields{Season: -1, Episode: -1}

	// technical tokens, extracted first so they can be excluded from the
	// title candidate
	stripped := name
	if m := qualityPattern.FindString(stripped); m != "" {
		f.Probe.Resolution = strings.ToLower(m)
	}
	if m := sourcePattern.FindString(stripped); m != "" {
		f.Probe.Container = "" // source tag, not container; kept for naming via Probe unused field
	}
	if m := codecPattern.FindString(stripped); m != "" {
		f.Probe.VideoCodec = strings.ToLower(m)
	}
	if m := bitDepthPattern.FindStringSubmatch(stripped); len(m) == 2 {
		f.Probe.BitDepth = m[1]
	}
	if m := audioPattern.FindString(stripped); m != "" {
		f.Probe.AudioCodec = strings.ToLower(m)
	}
	if m := containerPattern.FindStringSubmatch(filename); len(m) == 2 {
		f.Probe.Container = strings.ToLower(m[1])
	}

	// season/episode
	if m := seasonEpisodePattern.FindStringSubmatch(name); len(m) == 3 {
		f.Season, _ = strconv.Atoi(m[1])
		f.Episode, _ = strconv.Atoi(m[2])
	} else if m := altSeasonEpisode.FindStringSubmatch(name); len(m) == 3 {
		f.Season, _ = strconv.Atoi(m[1])
		f.Episode, _ = strconv.Atoi(m[2])
	} else if m := bareEpisodePattern.FindStringSubmatch(name); len(m) == 2 {
		f.Episode, _ = strconv.Atoi(m[1])
	} else if m := bareNumericEpisode.FindStringSubmatch(strings.TrimSpace(name)); len(m) == 2 {
		f.Episode, _ = strconv.Atoi(m[1])
	}

	// year: first 4-digit sequence in range, outside of a resolution token
	titleEnd := len(name)
	if m := yearToken.FindStringSubmatchIndex(name); m != nil {
		y, _ := strconv.Atoi(name[m[2]:m[3]])
		if ValidYear(y) {
			f.Year = y
			titleEnd = m[2] - 1
			if titleEnd < 0 {
				titleEnd = 0
			}
		}
	}

	titleRaw := name
	if titleEnd < len(name) && titleEnd > 0 {
		titleRaw = name[:titleEnd]
	}
	// remove season/episode and technical tokens from the title candidate
	titleRaw = seasonEpisodePattern.ReplaceAllString(titleRaw, "")
	titleRaw = altSeasonEpisode.ReplaceAllString(titleRaw, "")
	titleRaw = editionPattern.ReplaceAllString(titleRaw, "")
	titleRaw = qualityPattern.ReplaceAllString(titleRaw, "")
	titleRaw = sourcePattern.ReplaceAllString(titleRaw, "")
	titleRaw = codecPattern.ReplaceAllString(titleRaw, "")

	clean := normalize.CleanTitle(titleRaw)
	clean = strings.Trim(clean, " -_.")

	if normalize.ContainsCJK(clean) {
		f.TitleCJK = clean
		if !normalize.IsPredominantlyLatin(clean) {
			// leave TitleLatin empty; caller may still attempt extraction
		}
	} else {
		f.TitleLatin = clean
	}

	f.IsMinimal = isMinimalTitle(clean)
	return f
}

// isMinimalTitle implements the minimal-filename rule: fewer than 2
// alphanumeric code points of useful title content.
func isMinimalTitle(title string) bool {
	count := 0
	for _, r := range title {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127 {
			count++
			if count >= 2 {
				return false
			}
		}
	}
	return true
}

// IsTechnicalToken reports whether s, once trimmed, is entirely a
// resolution/source/codec/bitdepth/audio/edition token rather than real
// title content — e.g. a stray "1080p" or "x264" that survived the
// title-candidate strip in ParseFilename.
func IsTechnicalToken(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, re := range []*regexp.Regexp{qualityPattern, sourcePattern, codecPattern, bitDepthPattern, audioPattern, editionPattern} {
		if m := re.FindString(s); m != "" && strings.EqualFold(strings.TrimSpace(m), s) {
			return true
		}
	}
	return false
}

// ClassifyDirectory classifies a single ancestor directory name. It is a
// pure function of the name.
func ClassifyDirectory(name string) types.DirectoryRole {
	if imdb, tmdb, year, ok := OrganizedMovieIDs(name); ok {
		return types.DirectoryRole{Kind: types.RoleOrganizedDir, Name: name, IMDBID: imdb, TMDBID: tmdb, Year: year}
	}
	if m := seasonDirPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(name))); m != nil {
		season := 0
		if m[1] != "" {
			season, _ = strconv.Atoi(m[1])
		}
		return types.DirectoryRole{Kind: types.RoleSeasonDir, Name: name, Season: season}
	}
	if qualityDirPattern.MatchString(strings.TrimSpace(name)) {
		return types.DirectoryRole{Kind: types.RoleQualityDir, Name: name}
	}

	fields := ParseFilename(name)
	if fields.Year != 0 && (fields.TitleLatin != "" || fields.TitleCJK != "") {
		title := fields.TitleLatin
		if title == "" {
			title = fields.TitleCJK
		}
		return types.DirectoryRole{Kind: types.RoleTitleDir, Name: name, Title: title, Year: fields.Year}
	}

	return types.DirectoryRole{Kind: types.RoleUnknown, Name: name}
}

// ClassifyAncestors classifies every directory component of path, nearest
// ancestor first, excluding the final filename segment.
func ClassifyAncestors(path string) []types.DirectoryRole {
	dir := filepath.Dir(path)
	parts := strings.Split(filepath.ToSlash(dir), "/")
	roles := make([]types.DirectoryRole, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == "" || parts[i] == "." {
			continue
		}
		roles = append(roles, ClassifyDirectory(parts[i]))
	}
	return roles
}

// NearestTitleDir returns the nearest non-quality ancestor TitleDir name,
// if any, used to disambiguate minimal filenames.
func NearestTitleDir(roles []types.DirectoryRole) (types.DirectoryRole, bool) {
	for _, r := range roles {
		if r.Kind == types.RoleQualityDir {
			continue
		}
		if r.Kind == types.RoleTitleDir || r.Kind == types.RoleOrganizedDir {
			return r, true
		}
	}
	return types.DirectoryRole{}, false
}
