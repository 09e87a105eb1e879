package tmdbapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestToMovieRecord(t *testing.T) {
	d := &MovieDetails{
		ID: 603, Title: "The Matrix", OriginalTitle: "The Matrix",
		ReleaseDate: "1999-03-31", Overview: "A hacker learns the truth.",
		Runtime: 136, VoteAverage: 8.7, VoteCount: 20000,
		Genres:              []Genre{{Name: "Action"}, {Name: "Science Fiction"}},
		IMDBID:              "tt0133093",
		ProductionCountries: []ProductionCountry{{ISO31661: "US"}},
		PosterPath:          "/poster.jpg",
		BackdropPath:        "/backdrop.jpg",
		Credits: Credits{
			Cast: []CastCredit{{Name: "Keanu Reeves", Character: "Neo", Order: 0}},
			Crew: []CrewCredit{{Name: "Lana Wachowski", Job: "Director"}, {Name: "Someone", Job: "Writer"}},
		},
	}
	c := &Client{details: newDetailCache(), seasons: newSeasonCache()}
	r := c.ToMovieRecord(context.Background(), d)

	if r.TMDBID != 603 || r.IMDBID != "tt0133093" || r.Year != 1999 {
		t.Errorf("got (tmdb=%d, imdb=%q, year=%d), want (603, tt0133093, 1999)", r.TMDBID, r.IMDBID, r.Year)
	}
	if len(r.Genres) != 2 {
		t.Errorf("Genres = %v, want 2 entries", r.Genres)
	}
	if r.Country != "US" {
		t.Errorf("Country = %q, want US", r.Country)
	}
	if len(r.Directors) != 1 || r.Directors[0] != "Lana Wachowski" {
		t.Errorf("Directors = %v, want [Lana Wachowski]", r.Directors)
	}
	if len(r.Writers) != 1 {
		t.Errorf("Writers = %v, want 1 entry", r.Writers)
	}
	if len(r.Cast) != 1 || r.Cast[0].Role != "Neo" {
		t.Errorf("Cast = %+v, want one member with role Neo", r.Cast)
	}
	if len(r.PosterURLs) != 2 {
		t.Fatalf("PosterURLs = %v, want 2 entries", r.PosterURLs)
	}
}

func TestToMovieRecordFetchesCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CollectionDetails{ID: 9, Name: "The Matrix Collection"})
	}))
	defer server.Close()

	c, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.baseURL = server.URL

	d := &MovieDetails{ID: 603, BelongsToCollection: &CollectionRef{ID: 9, Name: "The Matrix Collection"}}
	r := c.ToMovieRecord(context.Background(), d)

	if r.Collection == nil || r.Collection.Name != "The Matrix Collection" {
		t.Errorf("Collection = %+v, want non-nil named The Matrix Collection", r.Collection)
	}
}

func TestToMovieRecordNoCollection(t *testing.T) {
	c := &Client{details: newDetailCache(), seasons: newSeasonCache()}
	r := c.ToMovieRecord(context.Background(), &MovieDetails{ID: 1})
	if r.Collection != nil {
		t.Errorf("Collection = %+v, want nil", r.Collection)
	}
}

func TestToTVRecord(t *testing.T) {
	show := &TVDetails{
		ID: 1396, Name: "Breaking Bad", OriginalName: "Breaking Bad",
		FirstAirDate: "2008-01-20", Genres: []Genre{{Name: "Drama"}},
		OriginCountry: []string{"US"},
		Credits: Credits{
			Crew: []CrewCredit{{Name: "Vince Gilligan", Job: "Creator"}},
		},
	}
	season := &SeasonDetails{SeasonNumber: 1}
	ep := &EpisodeDetail{EpisodeNumber: 1, Name: "Pilot", Overview: "Walter White begins.", AirDate: "2008-01-20"}

	c := &Client{}
	r := c.ToTVRecord(show, season, ep, "tt0903747")

	if r.TMDBID != 1396 || r.IMDBID != "tt0903747" {
		t.Errorf("got (tmdb=%d, imdb=%q), want (1396, tt0903747)", r.TMDBID, r.IMDBID)
	}
	if r.ShowTitle != "Breaking Bad" {
		t.Errorf("ShowTitle = %q, want Breaking Bad", r.ShowTitle)
	}
	if r.Season != 1 || r.Episode != 1 || r.EpisodeTitle != "Pilot" {
		t.Errorf("got (season=%d, episode=%d, title=%q), want (1, 1, Pilot)", r.Season, r.Episode, r.EpisodeTitle)
	}
	if r.Plot != "Walter White begins." {
		t.Errorf("Plot = %q, want episode overview to fill missing show plot", r.Plot)
	}
	if len(r.Directors) != 1 || r.Directors[0] != "Vince Gilligan" {
		t.Errorf("Directors = %v, want [Vince Gilligan] (Creator counts as director)", r.Directors)
	}
}

func TestToTVRecordNilSeasonAndEpisode(t *testing.T) {
	show := &TVDetails{ID: 1396, Name: "Breaking Bad"}
	c := &Client{}
	r := c.ToTVRecord(show, nil, nil, "")
	if r.Season != 0 || r.Episode != 0 {
		t.Errorf("got (season=%d, episode=%d), want zero values when season/episode are nil", r.Season, r.Episode)
	}
}

func TestYearFromDateAdapter(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"1999-03-31", 1999},
		{"", 0},
		{"not-a-date", 0},
	}
	for _, tt := range tests {
		if got := yearFromDate(tt.date); got != tt.want {
			t.Errorf("yearFromDate(%q) = %d, want %d", tt.date, got, tt.want)
		}
	}
}
