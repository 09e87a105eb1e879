package candidate

import (
	"context"
	"errors"
	"testing"

	"github.com/opd-ai/cinetidy/pkg/types"
)

type fakeAI struct {
	result AIResult
	err    error
}

func (f fakeAI) Parse(ctx context.Context, context string) (AIResult, error) {
	return f.result, f.err
}

func TestBuildOrganizedMovieMarker(t *testing.T) {
	b := NewBuilder(nil)
	c := b.Build(context.Background(), "/library/[The Matrix](1999)-tt0133093-tmdb603.mkv")

	if c.Provenance != types.ProvenanceOrganizedMarker {
		t.Fatalf("Provenance = %v, want ProvenanceOrganizedMarker", c.Provenance)
	}
	if !c.HasExternalID() {
		t.Error("organized marker candidate has no external id")
	}
	if c.IMDBID != "tt0133093" || c.TMDBID != 603 || c.Year != 1999 {
		t.Errorf("got (imdb=%q, tmdb=%d, year=%d), want (tt0133093, 603, 1999)", c.IMDBID, c.TMDBID, c.Year)
	}
}

func TestBuildOrganizedTVMarkerWithID(t *testing.T) {
	b := NewBuilder(nil)
	c := b.Build(context.Background(), "/library/[Breaking Bad]-S01E02-[tt0903747-tmdb1396]-episode.mkv")

	if c.Provenance != types.ProvenanceOrganizedMarker {
		t.Fatalf("Provenance = %v, want ProvenanceOrganizedMarker", c.Provenance)
	}
	if !c.HasExternalID() {
		t.Error("organized marker candidate has no external id")
	}
	if c.Season != 1 || c.Episode != 2 {
		t.Errorf("got (season=%d, episode=%d), want (1, 2)", c.Season, c.Episode)
	}
}

// TestBuildOrganizedTVMarkerWithoutID is the invariant-enforcement test: a
// sibling TV marker whose trailing bracket carries no recognizable id must
// never be tagged ProvenanceOrganizedMarker, since CandidateMetadata.HasExternalID
// would then be false while Provenance claims an id is present.
func TestBuildOrganizedTVMarkerWithoutID(t *testing.T) {
	b := NewBuilder(nil)
	c := b.Build(context.Background(), "/library/[Breaking Bad]-S01E02-[Extras]-episode.mkv")

	if c.Provenance == types.ProvenanceOrganizedMarker && !c.HasExternalID() {
		t.Fatal("invariant violated: ProvenanceOrganizedMarker with no external id")
	}
	if c.Provenance != types.ProvenanceFilename {
		t.Errorf("Provenance = %v, want ProvenanceFilename (demoted)", c.Provenance)
	}
	if c.Season != 1 || c.Episode != 2 {
		t.Errorf("got (season=%d, episode=%d), want (1, 2)", c.Season, c.Episode)
	}
}

func TestBuildOrganizedDirAncestor(t *testing.T) {
	b := NewBuilder(nil)
	c := b.Build(context.Background(), "/library/[The Matrix](1999)-tt0133093-tmdb603/Season 01/file.mkv")

	if c.Provenance != types.ProvenanceOrganizedMarker {
		t.Fatalf("Provenance = %v, want ProvenanceOrganizedMarker", c.Provenance)
	}
	if c.IMDBID != "tt0133093" || c.TMDBID != 603 {
		t.Errorf("got (imdb=%q, tmdb=%d), want (tt0133093, 603)", c.IMDBID, c.TMDBID)
	}
}

func TestBuildHeuristicFilenameNoAI(t *testing.T) {
	b := NewBuilder(nil)
	c := b.Build(context.Background(), "/downloads/The.Matrix.1999.1080p.BluRay.x264.mkv")

	if c.Provenance != types.ProvenanceFilename {
		t.Fatalf("Provenance = %v, want ProvenanceFilename", c.Provenance)
	}
	if c.TitleLatin != "The Matrix" || c.Year != 1999 {
		t.Errorf("got (title=%q, year=%d), want (The Matrix, 1999)", c.TitleLatin, c.Year)
	}
}

func TestBuildAIAugmentsEmptyTitle(t *testing.T) {
	ai := fakeAI{result: AIResult{TitleLatin: "Recovered Title", Year: 2005, Confidence: 0.9}}
	b := NewBuilder(ai)
	c := b.Build(context.Background(), "/downloads/1080p.mkv")

	if c.TitleLatin != "Recovered Title" {
		t.Errorf("TitleLatin = %q, want %q", c.TitleLatin, "Recovered Title")
	}
	if c.Provenance != types.ProvenanceMixed {
		t.Errorf("Provenance = %v, want ProvenanceMixed", c.Provenance)
	}
}

func TestBuildAIAugmentsTechnicalTokenTitle(t *testing.T) {
	// a filename whose only surviving "title" is itself a stray technical
	// token must still trigger AI augmentation.
	ai := fakeAI{result: AIResult{TitleLatin: "Recovered Title", Confidence: 0.85}}
	b := NewBuilder(ai)
	// bit-depth tokens are not stripped by ParseFilename's title cleanup,
	// so "10bit" survives as the apparent title unless needsAI catches it.
	c := b.Build(context.Background(), "/downloads/10bit.mkv")

	if c.TitleLatin != "Recovered Title" {
		t.Errorf("TitleLatin = %q, want %q (AI augmentation should have run)", c.TitleLatin, "Recovered Title")
	}
	if c.Provenance != types.ProvenanceMixed {
		t.Errorf("Provenance = %v, want ProvenanceMixed", c.Provenance)
	}
}

func TestBuildAIFailureKeepsHeuristicCandidate(t *testing.T) {
	ai := fakeAI{err: errors.New("connection refused")}
	b := NewBuilder(ai)
	c := b.Build(context.Background(), "/downloads/1080p.mkv")

	if c.Provenance != types.ProvenanceFilename {
		t.Errorf("Provenance = %v, want ProvenanceFilename (AI failed, heuristic kept)", c.Provenance)
	}
}

func TestNeedsAI(t *testing.T) {
	tests := []struct {
		name string
		c    types.CandidateMetadata
		want bool
	}{
		{"both titles empty", types.CandidateMetadata{}, true},
		{"real latin title", types.CandidateMetadata{TitleLatin: "The Matrix"}, false},
		{"real cjk title", types.CandidateMetadata{TitleCJK: "千と千尋の神隠し"}, false},
		{"latin title is a bare technical token", types.CandidateMetadata{TitleLatin: "1080p"}, true},
		{"latin title merely contains a technical substring", types.CandidateMetadata{TitleLatin: "1080p Theater"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsAI(tt.c); got != tt.want {
				t.Errorf("needsAI(%+v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestAugmentWithAIConfidenceNormalization(t *testing.T) {
	b := NewBuilder(fakeAI{result: AIResult{TitleLatin: "X", Confidence: 85}})
	c := b.augmentWithAI(context.Background(), "ctx", types.CandidateMetadata{Provenance: types.ProvenanceFilename})
	if c.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85 (percentage normalized)", c.Confidence)
	}
}

func TestAugmentWithAINilCollaboratorIsNoop(t *testing.T) {
	b := NewBuilder(nil)
	in := types.CandidateMetadata{TitleLatin: "Untouched"}
	out := b.augmentWithAI(context.Background(), "ctx", in)
	if out != in {
		t.Errorf("augmentWithAI with nil AI mutated candidate: got %+v, want %+v", out, in)
	}
}
