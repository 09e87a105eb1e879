// Package candidate implements the metadata candidate builder: merging
// filename, ancestor-directory, and AI-derived evidence into one
// CandidateMetadata per file, calling the AI collaborator only when
// heuristic extraction leaves insufficient evidence.
package candidate

import (
	"context"
	"strings"

	"github.com/opd-ai/cinetidy/internal/normalize"
	"github.com/opd-ai/cinetidy/internal/parser"
	"github.com/opd-ai/cinetidy/pkg/types"
	"github.com/rs/zerolog/log"
)

// AIParser is the contract the candidate builder needs from the AI
// collaborator. Failures are non-fatal: the builder still emits a
// candidate, possibly of low confidence.
type AIParser interface {
	Parse(ctx context.Context, context string) (AIResult, error)
}

// AIResult is the shape returned by the AI inference server.
type AIResult struct {
	TitleCJK   string
	TitleLatin string
	Year       int
	Season     int
	Episode    int
	Confidence float64
}

// Builder merges evidence into CandidateMetadata.
type Builder struct {
	AI AIParser
}

// NewBuilder constructs a Builder. ai may be nil, in which case AI
// augmentation is skipped entirely (degraded mode).
func NewBuilder(ai AIParser) *Builder {
	return &Builder{AI: ai}
}

// Build produces the CandidateMetadata for one file path.
func (b *Builder) Build(ctx context.Context, path string) types.CandidateMetadata {
	filename := baseName(path)

	if imdb, tmdb, year, ok := parser.OrganizedMovieIDs(filename); ok {
		return types.CandidateMetadata{
			IMDBID: imdb, TMDBID: tmdb, Year: year,
			Season: -1, Episode: -1,
			Provenance: types.ProvenanceOrganizedMarker, Confidence: 1.0,
		}
	}
	roles := parser.ClassifyAncestors(path)
	for _, r := range roles {
		if r.Kind == types.RoleOrganizedDir {
			return types.CandidateMetadata{
				IMDBID: r.IMDBID, TMDBID: r.TMDBID, Year: r.Year,
				Season: -1, Episode: -1,
				Provenance: types.ProvenanceOrganizedMarker, Confidence: 1.0,
			}
		}
	}
	if season, episode, imdb, tmdb, ok := parser.OrganizedTVMarker(filename); ok {
		c := types.CandidateMetadata{
			IMDBID: imdb, TMDBID: tmdb,
			Season: season, Episode: episode,
			Provenance: types.ProvenanceOrganizedMarker, Confidence: 1.0,
		}
		if !c.HasExternalID() {
			// the trailing bracket carried no recognizable id; the
			// planner's ancestor walk may still resolve a show-level id,
			// but until then this is ordinary filename evidence, not an
			// organized marker.
			c.Provenance = types.ProvenanceFilename
			c.Confidence = 0.8
		}
		return c
	}

	fields := parser.ParseFilename(filename)
	c := types.CandidateMetadata{
		TitleCJK: fields.TitleCJK, TitleLatin: fields.TitleLatin,
		Year: fields.Year, Season: fields.Season, Episode: fields.Episode,
		Provenance: types.ProvenanceFilename, Confidence: 0.6,
	}

	// CJK-parent augmentation: check if nearest ancestor carries CJK
	// missing from the filename.
	aiContext := filename
	needsAncestorMerge := fields.IsMinimal
	for _, r := range roles {
		if normalize.ContainsCJK(r.Name) && normalize.IsPredominantlyLatin(filename) {
			aiContext = r.Name + " - " + filename
			needsAncestorMerge = true
			break
		}
	}
	if fields.IsMinimal {
		if titleDir, ok := parser.NearestTitleDir(roles); ok {
			aiContext = titleDir.Name + " - " + filename
			if c.Year == 0 {
				c.Year = titleDir.Year
			}
			if c.TitleLatin == "" && c.TitleCJK == "" {
				c.TitleLatin = titleDir.Title
			}
			c.Provenance = types.ProvenanceDirectory
			c.Confidence = 0.7
		}
	}

	if needsAI(c) || needsAncestorMerge {
		c = b.augmentWithAI(ctx, aiContext, c)
	}

	return c
}

// needsAI reports whether neither CJK nor Latin title survives heuristic
// extraction, or the surviving title is itself a technical-token remnant
// (resolution/source/codec/etc.) rather than real title content.
func needsAI(c types.CandidateMetadata) bool {
	cjk := strings.TrimSpace(c.TitleCJK)
	latin := strings.TrimSpace(c.TitleLatin)
	if cjk == "" && latin == "" {
		return true
	}
	return parser.IsTechnicalToken(cjk) || parser.IsTechnicalToken(latin)
}

func (b *Builder) augmentWithAI(ctx context.Context, aiContext string, c types.CandidateMetadata) types.CandidateMetadata {
	if b.AI == nil {
		return c
	}
	result, err := b.AI.Parse(ctx, aiContext)
	if err != nil {
		log.Debug().Err(err).Str("context", aiContext).Msg("ai parse failed, keeping heuristic candidate")
		return c
	}

	conf := result.Confidence
	if conf > 1 {
		conf = conf / 100
	}

	merged := c
	if result.TitleCJK != "" {
		merged.TitleCJK = result.TitleCJK
	}
	if result.TitleLatin != "" {
		merged.TitleLatin = result.TitleLatin
	}
	if result.Year != 0 {
		merged.Year = result.Year
	}
	if result.Season != 0 {
		merged.Season = result.Season
	}
	if result.Episode != 0 {
		merged.Episode = result.Episode
	}
	if c.Provenance == types.ProvenanceFilename || c.Provenance == types.ProvenanceDirectory {
		merged.Provenance = types.ProvenanceMixed
	} else {
		merged.Provenance = types.ProvenanceAI
	}
	merged.Confidence = conf
	return merged
}

func baseName(path string) string {
	i := strings.LastIndexAny(path, `/\`)
	if i < 0 {
		return path
	}
	return path[i+1:]
}
