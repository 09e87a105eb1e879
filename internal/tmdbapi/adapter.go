package tmdbapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/cinetidy/pkg/types"
)

// ToMovieRecord builds the canonical LookupRecord for a movie, fetching
// external ids and collection membership as needed.
func (c *Client) ToMovieRecord(ctx context.Context, d *MovieDetails) types.LookupRecord {
	r := types.LookupRecord{
		TMDBID:         d.ID,
		IMDBID:         d.IMDBID,
		OriginalTitle:  d.OriginalTitle,
		LocalizedTitle: d.Title,
		Year:           yearFromDate(d.ReleaseDate),
		Genres:         genreNames(d.Genres),
		RuntimeMinutes: d.Runtime,
		Rating:         d.VoteAverage,
		VoteCount:      d.VoteCount,
		Plot:           d.Overview,
		Tagline:        d.Tagline,
	}
	if len(d.ProductionCountries) > 0 {
		r.Country = d.ProductionCountries[0].ISO31661
	}
	for _, co := range d.ProductionCompanies {
		r.Studios = append(r.Studios, co.Name)
	}
	for _, crew := range d.Credits.Crew {
		switch crew.Job {
		case "Director":
			r.Directors = append(r.Directors, crew.Name)
		case "Writer", "Screenplay":
			r.Writers = append(r.Writers, crew.Name)
		}
	}
	for _, cast := range d.Credits.Cast {
		r.Cast = append(r.Cast, types.CastMember{Name: cast.Name, Role: cast.Character, Ordinal: cast.Order})
	}
	if d.PosterPath != "" {
		r.PosterURLs = append(r.PosterURLs, posterURL(d.PosterPath, "w780"))
	}
	if d.BackdropPath != "" {
		r.PosterURLs = append(r.PosterURLs, posterURL(d.BackdropPath, "w1280"))
	}
	if d.BelongsToCollection != nil {
		coll, err := c.GetCollection(ctx, d.BelongsToCollection.ID)
		if err == nil {
			members := make([]int, 0, len(coll.Parts))
			for _, p := range coll.Parts {
				members = append(members, p.ID)
			}
			r.Collection = &types.CollectionDescriptor{
				ID: coll.ID, Name: coll.Name, AllMemberIDs: members,
			}
		}
	}
	return r
}

// ToTVRecord builds the canonical LookupRecord for one episode within a
// show, given the show, season and episode payloads.
func (c *Client) ToTVRecord(show *TVDetails, season *SeasonDetails, ep *EpisodeDetail, imdbID string) types.LookupRecord {
	r := types.LookupRecord{
		TMDBID:         show.ID,
		IMDBID:         imdbID,
		OriginalTitle:  show.OriginalName,
		LocalizedTitle: show.Name,
		ShowTitle:      show.Name,
		Year:           yearFromDate(show.FirstAirDate),
		Genres:         genreNames(show.Genres),
		Rating:         show.VoteAverage,
		VoteCount:      show.VoteCount,
		Plot:           show.Overview,
		Tagline:        show.Tagline,
	}
	if len(show.OriginCountry) > 0 {
		r.Country = show.OriginCountry[0]
	}
	for _, n := range show.Networks {
		r.Studios = append(r.Studios, n.Name)
	}
	for _, crew := range show.Credits.Crew {
		if crew.Job == "Director" || crew.Job == "Creator" {
			r.Directors = append(r.Directors, crew.Name)
		}
	}
	for _, cast := range show.Credits.Cast {
		r.Cast = append(r.Cast, types.CastMember{Name: cast.Name, Role: cast.Character, Ordinal: cast.Order})
	}
	if show.PosterPath != "" {
		r.PosterURLs = append(r.PosterURLs, posterURL(show.PosterPath, "w780"))
	}
	if season != nil {
		r.Season = season.SeasonNumber
	}
	if ep != nil {
		r.Episode = ep.EpisodeNumber
		r.EpisodeTitle = ep.Name
		r.AirDate = ep.AirDate
		if r.Plot == "" {
			r.Plot = ep.Overview
		}
	}
	return r
}

func genreNames(gs []Genre) []string {
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.Name)
	}
	return out
}

func yearFromDate(date string) int {
	parts := strings.SplitN(date, "-", 2)
	if len(parts) == 0 {
		return 0
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	return y
}

func posterURL(path, size string) string {
	return fmt.Sprintf("https://image.tmdb.org/t/p/%s%s", size, path)
}
