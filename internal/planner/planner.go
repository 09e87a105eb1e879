// Package planner implements the planner (C6): turning a set of source
// video files into a declarative, auditable Plan. Planning never mutates
// the filesystem; a target-path collision rejects the whole plan, and
// evidence gaps are recorded as unknown items rather than guessed past.
package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/opd-ai/cinetidy/internal/candidate"
	"github.com/opd-ai/cinetidy/internal/match"
	"github.com/opd-ai/cinetidy/internal/naming"
	"github.com/opd-ai/cinetidy/internal/parser"
	"github.com/opd-ai/cinetidy/internal/tmdbapi"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// PlanVersion is the Plan.Version written by this planner.
const PlanVersion = "1.0"

// Lookup is the subset of the external lookup adapter the planner needs.
type Lookup interface {
	SearchMovie(ctx context.Context, title string, year int) (*tmdbapi.SearchMovieResponse, error)
	SearchTV(ctx context.Context, name string, year int) (*tmdbapi.SearchTVResponse, error)
	GetMovieDetails(ctx context.Context, id int) (*tmdbapi.MovieDetails, error)
	GetTVHierarchy(ctx context.Context, id, season int, episode *int) (*tmdbapi.TVDetails, *tmdbapi.SeasonDetails, *tmdbapi.EpisodeDetail, error)
	GetExternalIDs(ctx context.Context, mediaKind string, id int) (*tmdbapi.ExternalIDs, error)
	ToMovieRecord(ctx context.Context, d *tmdbapi.MovieDetails) types.LookupRecord
	ToTVRecord(show *tmdbapi.TVDetails, season *tmdbapi.SeasonDetails, ep *tmdbapi.EpisodeDetail, imdbID string) types.LookupRecord
}

// Prober recovers technical stream information from a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (types.ProbeMetadata, error)
}

// Planner builds Plans for a set of source files.
type Planner struct {
	Candidates  *candidate.Builder
	Lookup      Lookup
	Prober      Prober
	AllowMedium bool
}

// New constructs a Planner.
func New(builder *candidate.Builder, lookup Lookup, prober Prober, allowMedium bool) *Planner {
	return &Planner{Candidates: builder, Lookup: lookup, Prober: prober, AllowMedium: allowMedium}
}

// PlanMovies builds a Plan for a set of movie files.
func (p *Planner) PlanMovies(ctx context.Context, files []types.VideoFile, sourceRoot, targetRoot string) (types.Plan, error) {
	plan := types.Plan{
		Version: PlanVersion, CreatedAt: now(), MediaKind: types.MediaKindMovie,
		SourceRoot: sourceRoot, TargetRoot: targetRoot,
	}
	destSeen := make(map[string]string) // dest path -> source path

	for _, f := range files {
		if f.IsSample || parser.IsSample(f.Path) {
			plan.Samples = append(plan.Samples, types.PlanItem{ID: itemID(f.Path), Status: types.StatusSample, Source: f})
			continue
		}

		item, err := p.planMovieItem(ctx, f, targetRoot)
		if err != nil {
			return types.Plan{}, err
		}
		if item.Status == types.StatusUnknown {
			plan.Unknown = append(plan.Unknown, item)
			continue
		}

		if err := checkCollision(destSeen, item.Target.FilePath, f.Path); err != nil {
			return types.Plan{}, err
		}

		if isZeroOp(item.Operations) {
			continue
		}
		plan.Items = append(plan.Items, item)
	}
	return plan, nil
}

// PlanTVShows builds a Plan for a set of episode files.
func (p *Planner) PlanTVShows(ctx context.Context, files []types.VideoFile, sourceRoot, targetRoot string) (types.Plan, error) {
	plan := types.Plan{
		Version: PlanVersion, CreatedAt: now(), MediaKind: types.MediaKindTVShow,
		SourceRoot: sourceRoot, TargetRoot: targetRoot,
	}
	destSeen := make(map[string]string)
	sharedNFOs := make(map[string]bool) // tvshow.nfo / season.nfo paths already emitted this run

	for _, f := range files {
		if f.IsSample || parser.IsSample(f.Path) {
			plan.Samples = append(plan.Samples, types.PlanItem{ID: itemID(f.Path), Status: types.StatusSample, Source: f})
			continue
		}

		item, err := p.planTVItem(ctx, f, targetRoot, sharedNFOs)
		if err != nil {
			return types.Plan{}, err
		}
		if item.Status == types.StatusUnknown {
			plan.Unknown = append(plan.Unknown, item)
			continue
		}

		if err := checkCollision(destSeen, item.Target.FilePath, f.Path); err != nil {
			return types.Plan{}, err
		}

		if isZeroOp(item.Operations) {
			continue
		}
		plan.Items = append(plan.Items, item)
	}
	return plan, nil
}

func (p *Planner) planMovieItem(ctx context.Context, f types.VideoFile, targetRoot string) (types.PlanItem, error) {
	id := itemID(f.Path)
	c := p.Candidates.Build(ctx, f.Path)

	record, quality, err := p.resolveMovie(ctx, c)
	if err != nil {
		log.Debug().Err(err).Str("path", f.Path).Msg("movie lookup failed")
		return unknownItem(id, f, c, fmt.Sprintf("lookup error: %v", err)), nil
	}
	if record == nil || !quality.Accepted(p.AllowMedium) {
		return unknownItem(id, f, c, fmt.Sprintf("match quality %q not accepted", quality)), nil
	}

	probe := p.probeFile(ctx, f.Path)

	dir := filepath.Join(targetRoot, naming.MovieDir(*record))
	fileName := naming.MovieFileName(*record, probe, filepath.Ext(f.Path))
	filePath := filepath.Join(dir, fileName)

	posterPlan := naming.PosterPlan(record.PosterURLs)
	thumbRel, fanartRel := posterRelsFor(record.PosterURLs, posterPlan)
	nfo, err := naming.GenerateMovieNFO(*record, thumbRel, fanartRel)
	if err != nil {
		return types.PlanItem{}, fmt.Errorf("generate movie nfo for %s: %w", f.Path, err)
	}

	sha, _, err := hashFile(f.Path)
	if err != nil {
		return types.PlanItem{}, fmt.Errorf("hash source %s: %w", f.Path, err)
	}

	ops := []types.Operation{
		{Kind: types.OpMkdir, Path: dir},
		{Kind: types.OpMove, SourcePath: f.Path, DestPath: filePath, ExpectedSHA256: sha},
		{Kind: types.OpWriteFile, DestPath: filepath.Join(dir, "movie.nfo"), Bytes: nfo},
	}
	for url, rel := range posterPlan {
		ops = append(ops, types.Operation{Kind: types.OpDownload, SourceURL: url, DestPath: filepath.Join(dir, rel)})
	}

	return types.PlanItem{
		ID: id, Status: types.StatusReady, Source: f, Candidate: c, Lookup: record, Probe: probe,
		Target:     types.Target{Directory: dir, FilePath: filePath, NFO: nfo, Posters: posterPlan},
		Operations: ops,
	}, nil
}

func (p *Planner) planTVItem(ctx context.Context, f types.VideoFile, targetRoot string, sharedNFOs map[string]bool) (types.PlanItem, error) {
	id := itemID(f.Path)
	c := p.Candidates.Build(ctx, f.Path)

	record, quality, err := p.resolveTV(ctx, f.Path, c)
	if err != nil {
		log.Debug().Err(err).Str("path", f.Path).Msg("tv lookup failed")
		return unknownItem(id, f, c, fmt.Sprintf("lookup error: %v", err)), nil
	}
	if record == nil || !quality.Accepted(p.AllowMedium) {
		return unknownItem(id, f, c, fmt.Sprintf("match quality %q not accepted", quality)), nil
	}

	probe := p.probeFile(ctx, f.Path)

	showDir := filepath.Join(targetRoot, naming.TVShowDir(*record))
	seasonDir := filepath.Join(showDir, naming.SeasonDir(record.Season))
	fileName := naming.EpisodeFileName(*record, probe, filepath.Ext(f.Path))
	filePath := filepath.Join(seasonDir, fileName)

	posterPlan := naming.PosterPlan(record.PosterURLs)
	thumbRel, _ := posterRelsFor(record.PosterURLs, posterPlan)

	sha, _, err := hashFile(f.Path)
	if err != nil {
		return types.PlanItem{}, fmt.Errorf("hash source %s: %w", f.Path, err)
	}

	ops := []types.Operation{
		{Kind: types.OpMkdir, Path: showDir},
		{Kind: types.OpMkdir, Path: seasonDir},
		{Kind: types.OpMove, SourcePath: f.Path, DestPath: filePath, ExpectedSHA256: sha},
	}

	tvshowNFOPath := filepath.Join(showDir, "tvshow.nfo")
	if !sharedNFOs[tvshowNFOPath] {
		nfo, err := naming.GenerateTVShowNFO(*record, thumbRel)
		if err != nil {
			return types.PlanItem{}, fmt.Errorf("generate tvshow nfo for %s: %w", f.Path, err)
		}
		ops = append(ops, types.Operation{Kind: types.OpWriteFile, DestPath: tvshowNFOPath, Bytes: nfo})
		sharedNFOs[tvshowNFOPath] = true
	}

	seasonNFOPath := filepath.Join(seasonDir, "season.nfo")
	if !sharedNFOs[seasonNFOPath] {
		nfo, err := naming.GenerateSeasonNFO(record.Season)
		if err != nil {
			return types.PlanItem{}, fmt.Errorf("generate season nfo for %s: %w", f.Path, err)
		}
		ops = append(ops, types.Operation{Kind: types.OpWriteFile, DestPath: seasonNFOPath, Bytes: nfo})
		sharedNFOs[seasonNFOPath] = true
	}

	episodeNFO, err := naming.GenerateEpisodeNFO(*record)
	if err != nil {
		return types.PlanItem{}, fmt.Errorf("generate episode nfo for %s: %w", f.Path, err)
	}
	episodeNFOPath := filePath[:len(filePath)-len(filepath.Ext(filePath))] + ".nfo"
	ops = append(ops, types.Operation{Kind: types.OpWriteFile, DestPath: episodeNFOPath, Bytes: episodeNFO})

	for url, rel := range posterPlan {
		ops = append(ops, types.Operation{Kind: types.OpDownload, SourceURL: url, DestPath: filepath.Join(showDir, rel)})
	}

	return types.PlanItem{
		ID: id, Status: types.StatusReady, Source: f, Candidate: c, Lookup: record, Probe: probe,
		Target:     types.Target{Directory: seasonDir, FilePath: filePath, NFO: episodeNFO, Posters: posterPlan},
		Operations: ops,
	}, nil
}

// resolveMovie performs the search/score/detail pipeline for one movie
// candidate, returning nil if nothing is eligible.
func (p *Planner) resolveMovie(ctx context.Context, c types.CandidateMetadata) (*types.LookupRecord, types.MatchQuality, error) {
	if c.TMDBID != 0 {
		d, err := p.Lookup.GetMovieDetails(ctx, c.TMDBID)
		if err != nil {
			return nil, types.MatchNoMatch, err
		}
		r := p.Lookup.ToMovieRecord(ctx, d)
		return &r, types.MatchExact, nil
	}

	candidates, err := p.searchMovieCandidates(ctx, c)
	if err != nil {
		return nil, types.MatchNoMatch, err
	}
	winner, ok := match.Best(candidates)
	if !ok {
		return nil, types.MatchNoMatch, nil
	}

	d, err := p.Lookup.GetMovieDetails(ctx, winner.Record.TMDBID)
	if err != nil {
		return nil, types.MatchNoMatch, err
	}
	r := p.Lookup.ToMovieRecord(ctx, d)
	return &r, winner.Score.Quality, nil
}

func (p *Planner) searchMovieCandidates(ctx context.Context, c types.CandidateMetadata) ([]match.Candidate, error) {
	byID := make(map[int]types.LookupRecord)
	cjkIDs, latinIDs := map[int]bool{}, map[int]bool{}

	if c.TitleCJK != "" {
		resp, err := p.Lookup.SearchMovie(ctx, c.TitleCJK, c.Year)
		if err != nil {
			return nil, err
		}
		for _, m := range resp.Results {
			byID[m.ID] = movieResultRecord(m)
			cjkIDs[m.ID] = true
		}
	}
	if c.TitleLatin != "" {
		resp, err := p.Lookup.SearchMovie(ctx, c.TitleLatin, c.Year)
		if err != nil {
			return nil, err
		}
		for _, m := range resp.Results {
			byID[m.ID] = movieResultRecord(m)
			latinIDs[m.ID] = true
		}
	}

	out := make([]match.Candidate, 0, len(byID))
	for id, r := range byID {
		out = append(out, match.Candidate{Record: r, Score: match.Evaluate(c, r, cjkIDs[id] && latinIDs[id])})
	}
	return out, nil
}

func movieResultRecord(m tmdbapi.MovieResult) types.LookupRecord {
	return types.LookupRecord{
		TMDBID: m.ID, OriginalTitle: m.OriginalTitle, LocalizedTitle: m.Title,
		Year: yearFromDate(m.ReleaseDate), VoteCount: m.VoteCount,
	}
}

// resolveTV resolves the show/season/episode record for one episode file,
// preferring an organized-marker id on the file or an ancestor before
// falling back to search.
func (p *Planner) resolveTV(ctx context.Context, path string, c types.CandidateMetadata) (*types.LookupRecord, types.MatchQuality, error) {
	season, episode := c.Season, c.Episode
	if season < 0 {
		season = 0
	}

	if c.TMDBID != 0 {
		show, seasonD, ep, err := p.Lookup.GetTVHierarchy(ctx, c.TMDBID, season, episodePtr(episode))
		if err == nil {
			imdb := c.IMDBID
			r := p.Lookup.ToTVRecord(show, seasonD, ep, imdb)
			return &r, types.MatchExact, nil
		}
		log.Debug().Err(err).Int("tmdb_id", c.TMDBID).Msg("organized tv id not recognized, walking ancestors")
	}

	// parent-id fallback: walk ancestors for a recognized show-level id.
	for _, role := range parser.ClassifyAncestors(path) {
		if role.Kind != types.RoleOrganizedDir {
			continue
		}
		show, seasonD, ep, err := p.Lookup.GetTVHierarchy(ctx, role.TMDBID, season, episodePtr(episode))
		if err != nil {
			continue
		}
		r := p.Lookup.ToTVRecord(show, seasonD, ep, role.IMDBID)
		return &r, types.MatchExact, nil
	}

	if c.TMDBID == 0 {
		candidates, err := p.searchTVCandidates(ctx, c)
		if err != nil {
			return nil, types.MatchNoMatch, err
		}
		winner, ok := match.Best(candidates)
		if !ok {
			return nil, types.MatchNoMatch, nil
		}
		show, seasonD, ep, err := p.Lookup.GetTVHierarchy(ctx, winner.Record.TMDBID, season, episodePtr(episode))
		if err != nil {
			return nil, types.MatchNoMatch, err
		}
		imdb := ""
		if ids, err := p.Lookup.GetExternalIDs(ctx, "tv", winner.Record.TMDBID); err == nil {
			imdb = ids.IMDBID
		}
		r := p.Lookup.ToTVRecord(show, seasonD, ep, imdb)
		return &r, winner.Score.Quality, nil
	}

	return nil, types.MatchNoMatch, nil
}

func (p *Planner) searchTVCandidates(ctx context.Context, c types.CandidateMetadata) ([]match.Candidate, error) {
	byID := make(map[int]types.LookupRecord)
	cjkIDs, latinIDs := map[int]bool{}, map[int]bool{}

	if c.TitleCJK != "" {
		resp, err := p.Lookup.SearchTV(ctx, c.TitleCJK, c.Year)
		if err != nil {
			return nil, err
		}
		for _, t := range resp.Results {
			byID[t.ID] = tvResultRecord(t)
			cjkIDs[t.ID] = true
		}
	}
	if c.TitleLatin != "" {
		resp, err := p.Lookup.SearchTV(ctx, c.TitleLatin, c.Year)
		if err != nil {
			return nil, err
		}
		for _, t := range resp.Results {
			byID[t.ID] = tvResultRecord(t)
			latinIDs[t.ID] = true
		}
	}

	out := make([]match.Candidate, 0, len(byID))
	for id, r := range byID {
		out = append(out, match.Candidate{Record: r, Score: match.Evaluate(c, r, cjkIDs[id] && latinIDs[id])})
	}
	return out, nil
}

func tvResultRecord(t tmdbapi.TVResult) types.LookupRecord {
	return types.LookupRecord{
		TMDBID: t.ID, OriginalTitle: t.OriginalName, LocalizedTitle: t.Name,
		Year: yearFromDate(t.FirstAirDate), VoteCount: t.VoteCount,
	}
}

func (p *Planner) probeFile(ctx context.Context, path string) types.ProbeMetadata {
	fallback := parser.ParseFilename(filepath.Base(path)).Probe
	if p.Prober == nil {
		return fallback
	}
	probed, err := p.Prober.Probe(ctx, path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("probe failed, using filename fallback")
		return fallback
	}
	return probed.Merge(fallback)
}

func unknownItem(id string, f types.VideoFile, c types.CandidateMetadata, reason string) types.PlanItem {
	return types.PlanItem{ID: id, Status: types.StatusUnknown, Source: f, Candidate: c, UnknownReason: reason}
}

// checkCollision records destPath as produced by src, failing the whole
// plan if destPath was already claimed by a different source, or if it
// already exists on disk as something other than src itself (the
// idempotent re-plan case, where destPath == src, is allowed).
func checkCollision(seen map[string]string, destPath, src string) error {
	if prior, ok := seen[destPath]; ok && prior != src {
		return fmt.Errorf("plan rejected: %q and %q both target %q", prior, src, destPath)
	}
	seen[destPath] = src
	if destPath == src {
		return nil
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("plan rejected: target %q already exists on disk", destPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat target %q: %w", destPath, err)
	}
	return nil
}

// isZeroOp reports whether every operation in ops is already satisfied,
// making the item eligible for elision from items[] (idempotent re-plan).
func isZeroOp(ops []types.Operation) bool {
	for _, op := range ops {
		switch op.Kind {
		case types.OpMove:
			if op.SourcePath != op.DestPath {
				return false
			}
		case types.OpMkdir:
			if info, err := os.Stat(op.Path); err != nil || !info.IsDir() {
				return false
			}
		case types.OpWriteFile, types.OpDownload:
			if _, err := os.Stat(op.DestPath); err != nil {
				return false
			}
		}
	}
	return true
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func itemID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:16]
}

// posterRelsFor returns the planned relative filenames for the first
// (thumb) and second (fanart, typically a backdrop) entries of orderedURLs,
// looked up against the URL-keyed plan rather than by map iteration order.
func posterRelsFor(orderedURLs []string, plan map[string]string) (thumbRel, fanartRel string) {
	if len(orderedURLs) > 0 {
		thumbRel = plan[orderedURLs[0]]
	}
	if len(orderedURLs) > 1 {
		fanartRel = plan[orderedURLs[1]]
	}
	return thumbRel, fanartRel
}

func episodePtr(e int) *int {
	if e < 0 {
		return nil
	}
	return &e
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func now() time.Time { return time.Now() }
