package naming

import (
	"strings"
	"testing"

	"github.com/opd-ai/cinetidy/pkg/types"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want string
	}{
		{"colon becomes dash", "Colon: The Movie", "Colon - The Movie"},
		{"slash becomes dash", "Fast/Furious", "Fast-Furious"},
		{"quote becomes apostrophe", `Say "hi"`, "Say 'hi'"},
		{"question mark stripped", "What?", "What"},
		{"leading and trailing dots trimmed", "...Title...", "Title"},
		{"repeated whitespace collapsed", "Too   Many   Spaces", "Too Many Spaces"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.s); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"known code", "JP", "Japan"},
		{"unknown code falls back to code itself", "ZZ", "ZZ"},
		{"empty code is unknown", "", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountryName(tt.code); got != tt.want {
				t.Errorf("CountryName(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestMovieDir(t *testing.T) {
	r := types.LookupRecord{
		OriginalTitle: "The Matrix", Year: 1999, Country: "US",
		IMDBID: "tt0133093", TMDBID: 603,
	}
	got := MovieDir(r)
	want := "US_UnitedStates/[The Matrix](1999)-tt0133093-tmdb603"
	if got != want {
		t.Errorf("MovieDir() = %q, want %q", got, want)
	}
}

func TestMovieDirUnknownCountry(t *testing.T) {
	r := types.LookupRecord{OriginalTitle: "Unknown Origin", Year: 2001, TMDBID: 1}
	got := MovieDir(r)
	if !strings.HasPrefix(got, "XX_Unknown/") {
		t.Errorf("MovieDir() = %q, want prefix XX_Unknown/", got)
	}
}

func TestMovieDirLocalizedTitle(t *testing.T) {
	r := types.LookupRecord{
		OriginalTitle: "千と千尋の神隠し", LocalizedTitle: "Spirited Away",
		Year: 2001, Country: "JP", TMDBID: 129,
	}
	got := MovieDir(r)
	if !strings.Contains(got, "[千と千尋の神隠し][Spirited Away]") {
		t.Errorf("MovieDir() = %q, want both bracketed titles present", got)
	}
}

func TestMovieDirSameOriginalAndLocalizedCollapses(t *testing.T) {
	r := types.LookupRecord{
		OriginalTitle: "The Matrix", LocalizedTitle: "The Matrix",
		Year: 1999, Country: "US", TMDBID: 603,
	}
	got := MovieDir(r)
	if strings.Contains(got, "][") {
		t.Errorf("MovieDir() = %q, want single bracket when titles are identical", got)
	}
}

func TestMovieFileNameOmitsMissingTokens(t *testing.T) {
	r := types.LookupRecord{OriginalTitle: "The Matrix", Year: 1999}
	got := MovieFileName(r, types.ProbeMetadata{}, ".mkv")
	want := "[The Matrix](1999).mkv"
	if got != want {
		t.Errorf("MovieFileName() = %q, want %q", got, want)
	}
}

func TestMovieFileNameWithTokens(t *testing.T) {
	r := types.LookupRecord{OriginalTitle: "The Matrix", Year: 1999}
	probe := types.ProbeMetadata{Resolution: "1080p", VideoCodec: "hevc", BitDepth: "10"}
	got := MovieFileName(r, probe, ".mkv")
	want := "[The Matrix](1999)-1080p-hevc-10bit.mkv"
	if got != want {
		t.Errorf("MovieFileName() = %q, want %q", got, want)
	}
}

func TestSeasonDir(t *testing.T) {
	tests := []struct {
		season int
		want   string
	}{
		{1, "Season 01"},
		{10, "Season 10"},
		{0, "Season 00"},
	}
	for _, tt := range tests {
		if got := SeasonDir(tt.season); got != tt.want {
			t.Errorf("SeasonDir(%d) = %q, want %q", tt.season, got, tt.want)
		}
	}
}

func TestEpisodeFileName(t *testing.T) {
	r := types.LookupRecord{ShowTitle: "Breaking Bad", Season: 1, Episode: 2, EpisodeTitle: "Cat's in the Bag..."}
	got := EpisodeFileName(r, types.ProbeMetadata{}, ".mkv")
	if !strings.HasPrefix(got, "[Breaking Bad]-S01E002-[") {
		t.Errorf("EpisodeFileName() = %q, want prefix [Breaking Bad]-S01E002-[", got)
	}
	if !strings.HasSuffix(got, ".mkv") {
		t.Errorf("EpisodeFileName() = %q, want .mkv suffix", got)
	}
}

func TestEpisodeFileNameNoEpisodeTitle(t *testing.T) {
	r := types.LookupRecord{ShowTitle: "Breaking Bad", Season: 1, Episode: 2}
	got := EpisodeFileName(r, types.ProbeMetadata{}, ".mkv")
	want := "[Breaking Bad]-S01E002.mkv"
	if got != want {
		t.Errorf("EpisodeFileName() = %q, want %q", got, want)
	}
}

func TestPosterPlan(t *testing.T) {
	urls := []string{"https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg", "https://a/4.jpg"}
	got := PosterPlan(urls)
	if len(got) != 3 {
		t.Fatalf("len(PosterPlan) = %d, want 3 (capped)", len(got))
	}
	if got["https://a/1.jpg"] != "poster.jpg" {
		t.Errorf("first poster = %q, want poster.jpg", got["https://a/1.jpg"])
	}
	if got["https://a/2.jpg"] != "poster-2.jpg" {
		t.Errorf("second poster = %q, want poster-2.jpg", got["https://a/2.jpg"])
	}
	if _, ok := got["https://a/4.jpg"]; ok {
		t.Error("fourth url should not appear in capped plan")
	}
}
