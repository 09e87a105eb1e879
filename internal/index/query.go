package index

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opd-ai/cinetidy/internal/normalize"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// Query is a set of AND-combined search predicates. A zero-value field
// is not applied.
type Query struct {
	Title     string // case-insensitive substring, matched on normalized forms
	Genre     string
	Country   string
	YearMin   int
	YearMax   int // when zero but YearMin is set, treated as YearMin (single-year match)
	MediaKind types.MediaKind
}

// Search filters idx.Entries by every non-zero field of q, ANDed.
func Search(idx types.CentralIndex, q Query) []types.IndexEntry {
	var out []types.IndexEntry
	for _, e := range idx.Entries {
		if matches(e, q) {
			out = append(out, e)
		}
	}
	return out
}

// SearchResults is Search's output partitioned by media kind, the shape
// a results listing renders.
type SearchResults struct {
	Movies []types.IndexEntry
	TV     []types.IndexEntry
}

// SearchPartitioned runs Search and splits the matches into movies and
// tv shows.
func SearchPartitioned(idx types.CentralIndex, q Query) SearchResults {
	var res SearchResults
	for _, e := range Search(idx, q) {
		if e.MediaKind == types.MediaKindTVShow {
			res.TV = append(res.TV, e)
		} else {
			res.Movies = append(res.Movies, e)
		}
	}
	return res
}

func matches(e types.IndexEntry, q Query) bool {
	r := e.Record
	if q.MediaKind != "" && e.MediaKind != q.MediaKind {
		return false
	}
	if q.Title != "" && !titleContains(r, q.Title) {
		return false
	}
	if q.Genre != "" && !containsFold(r.Genres, q.Genre) {
		return false
	}
	if q.Country != "" && !strings.EqualFold(r.Country, q.Country) {
		return false
	}
	if q.YearMin != 0 {
		max := q.YearMax
		if max == 0 {
			max = q.YearMin
		}
		if r.Year < q.YearMin || r.Year > max {
			return false
		}
	}
	return true
}

func titleContains(r types.LookupRecord, needle string) bool {
	n := normalize.Title(needle)
	return strings.Contains(normalize.Title(r.OriginalTitle), n) ||
		strings.Contains(normalize.Title(r.LocalizedTitle), n) ||
		strings.Contains(normalize.Title(r.ShowTitle), n)
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

// DuplicateGroup is a set of entries sharing the same media kind and
// TMDB id, possibly spread across distinct disks.
type DuplicateGroup struct {
	MediaKind types.MediaKind
	TMDBID    int
	Members   []types.IndexEntry
}

type duplicateKey struct {
	kind types.MediaKind
	tmdb int
}

// Duplicates groups entries by (media_kind, tmdb_id), reporting only
// groups with more than one member. A movie and a tv show that happen to
// share a numeric TMDB id are never conflated, since TMDB assigns ids
// per media kind independently.
func Duplicates(idx types.CentralIndex) []DuplicateGroup {
	byKey := make(map[duplicateKey][]types.IndexEntry)
	for _, e := range idx.Entries {
		if e.Record.TMDBID == 0 {
			continue
		}
		k := duplicateKey{kind: e.MediaKind, tmdb: e.Record.TMDBID}
		byKey[k] = append(byKey[k], e)
	}

	var groups []DuplicateGroup
	for k, members := range byKey {
		if len(members) > 1 {
			groups = append(groups, DuplicateGroup{MediaKind: k.kind, TMDBID: k.tmdb, Members: members})
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].MediaKind != groups[j].MediaKind {
			return groups[i].MediaKind < groups[j].MediaKind
		}
		return groups[i].TMDBID < groups[j].TMDBID
	})
	return groups
}

// VerifyStatus is the outcome of re-checking one entry's backing file.
type VerifyStatus string

const (
	VerifyOK      VerifyStatus = "ok"
	VerifyMissing VerifyStatus = "missing"
	VerifyChanged VerifyStatus = "changed"
)

// VerifyResult pairs an entry with its re-checked status.
type VerifyResult struct {
	Entry  types.IndexEntry
	Status VerifyStatus
}

// Verify cross-checks every entry against the filesystem, reporting
// entries whose backing file is gone or has changed size since it was
// indexed. Used to back a --show-status listing.
func Verify(idx types.CentralIndex, diskBasePaths map[string]string) []VerifyResult {
	results := make([]VerifyResult, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		base, ok := diskBasePaths[e.DiskLabel]
		if !ok {
			results = append(results, VerifyResult{Entry: e, Status: VerifyMissing})
			continue
		}
		info, err := os.Stat(filepath.Join(base, e.RelativePath))
		switch {
		case os.IsNotExist(err):
			results = append(results, VerifyResult{Entry: e, Status: VerifyMissing})
		case err != nil:
			results = append(results, VerifyResult{Entry: e, Status: VerifyMissing})
		case info.Size() != e.Size:
			results = append(results, VerifyResult{Entry: e, Status: VerifyChanged})
		default:
			results = append(results, VerifyResult{Entry: e, Status: VerifyOK})
		}
	}
	return results
}
