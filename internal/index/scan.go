package index

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/opd-ai/cinetidy/internal/naming"
	"github.com/opd-ai/cinetidy/internal/parser"
	"github.com/opd-ai/cinetidy/pkg/types"
)

var videoExts = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".m2ts": true, ".ts": true, ".mov": true, ".wmv": true,
}

// ScanOptions configures one Scan call.
type ScanOptions struct {
	DiskLabel string
	Root      string
	Kind      types.MediaKind
	// Previous indexes the disk's prior entries by relative path, used
	// for the size-only dirty check when Force is false: an entry whose
	// video size is unchanged is reused without re-reading its NFO;
	// modification times are not compared.
	Previous map[string]types.IndexEntry
	Force    bool
}

// Scan walks opts.Root and recognizes organized folders by the same
// markers the planner emits, reading each NFO as authoritative rather
// than re-querying the external lookup.
func Scan(opts ScanOptions) ([]types.IndexEntry, error) {
	switch opts.Kind {
	case types.MediaKindMovie:
		return scanMovies(opts)
	case types.MediaKindTVShow:
		return scanTV(opts)
	default:
		return nil, nil
	}
}

func scanMovies(opts ScanOptions) ([]types.IndexEntry, error) {
	var entries []types.IndexEntry

	err := filepath.WalkDir(opts.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		if _, _, _, ok := parser.OrganizedMovieIDs(d.Name()); !ok {
			return nil
		}

		rel, relErr := filepath.Rel(opts.Root, path)
		if relErr != nil {
			rel = path
		}

		videoSize, hasVideo := largestVideoSize(path)
		if !hasVideo {
			return nil
		}

		if !opts.Force {
			if prev, ok := opts.Previous[rel]; ok && prev.Size == videoSize {
				entries = append(entries, prev)
				return filepath.SkipDir
			}
		}

		nfoData, err := os.ReadFile(filepath.Join(path, "movie.nfo"))
		if err != nil {
			return nil // unreadable NFO: not an organized entry we can index
		}
		record, err := naming.ParseMovieNFO(nfoData)
		if err != nil {
			return nil
		}

		entries = append(entries, types.IndexEntry{
			ID:           uuid.NewString(),
			DiskLabel:    opts.DiskLabel,
			RelativePath: rel,
			MediaKind:    types.MediaKindMovie,
			Record:       record,
			Size:         videoSize,
		})
		return filepath.SkipDir
	})
	return entries, err
}

func scanTV(opts ScanOptions) ([]types.IndexEntry, error) {
	var entries []types.IndexEntry

	showDirs, err := os.ReadDir(opts.Root)
	if err != nil {
		return nil, nil
	}
	for _, countryDir := range showDirs {
		if !countryDir.IsDir() {
			continue
		}
		countryPath := filepath.Join(opts.Root, countryDir.Name())
		shows, err := os.ReadDir(countryPath)
		if err != nil {
			continue
		}
		for _, show := range shows {
			if !show.IsDir() {
				continue
			}
			showPath := filepath.Join(countryPath, show.Name())
			showNFO, err := os.ReadFile(filepath.Join(showPath, "tvshow.nfo"))
			if err != nil {
				continue
			}
			showRecord, err := naming.ParseTVShowNFO(showNFO)
			if err != nil {
				continue
			}
			entries = append(entries, scanSeasons(opts, showPath, showRecord)...)
		}
	}
	return entries, nil
}

func scanSeasons(opts ScanOptions, showPath string, showRecord types.LookupRecord) []types.IndexEntry {
	var entries []types.IndexEntry
	seasons, err := os.ReadDir(showPath)
	if err != nil {
		return nil
	}
	for _, season := range seasons {
		if !season.IsDir() || !strings.HasPrefix(season.Name(), "Season ") {
			continue
		}
		seasonPath := filepath.Join(showPath, season.Name())
		files, err := os.ReadDir(seasonPath)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !videoExts[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			videoPath := filepath.Join(seasonPath, f.Name())
			info, err := f.Info()
			if err != nil {
				continue
			}

			base := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
			episodeNFO, err := os.ReadFile(filepath.Join(seasonPath, base+".nfo"))
			if err != nil {
				continue
			}
			var epNFO naming.EpisodeNFO
			if err := xml.Unmarshal(episodeNFO, &epNFO); err != nil {
				continue
			}

			rel, err := filepath.Rel(opts.Root, videoPath)
			if err != nil {
				rel = videoPath
			}

			record := showRecord
			record.Season = epNFO.Season
			record.Episode = epNFO.Episode
			record.EpisodeTitle = epNFO.Title
			record.Plot = epNFO.Plot
			record.AirDate = epNFO.Aired

			if !opts.Force {
				if prev, ok := opts.Previous[rel]; ok && prev.Size == info.Size() {
					entries = append(entries, prev)
					continue
				}
			}

			entries = append(entries, types.IndexEntry{
				ID:           uuid.NewString(),
				DiskLabel:    opts.DiskLabel,
				RelativePath: rel,
				MediaKind:    types.MediaKindTVShow,
				Record:       record,
				Size:         info.Size(),
			})
		}
	}
	return entries
}

func largestVideoSize(dir string) (int64, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, false
	}
	var best int64
	var found bool
	for _, e := range entries {
		if e.IsDir() || !videoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > best {
			best = info.Size()
			found = true
		}
	}
	return best, found
}
