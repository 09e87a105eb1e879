package naming

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/opd-ai/cinetidy/pkg/types"
)

// UniqueID is a single external-id element, e.g. <uniqueid type="tmdb" default="true">603</uniqueid>.
type UniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// Actor is one credited cast member, ordinal-ordered.
type Actor struct {
	Name  string `xml:"name"`
	Role  string `xml:"role,omitempty"`
	Order int    `xml:"order"`
}

// Ratings wraps the single default rating value.
type Ratings struct {
	Value float64 `xml:"rating>value"`
	Votes int     `xml:"rating>votes"`
}

// Set is the collection element for movies belonging to a film series.
type Set struct {
	Name string `xml:"name"`
}

// MovieNFO is the <movie> root element.
type MovieNFO struct {
	XMLName       xml.Name   `xml:"movie"`
	Title         string     `xml:"title"`
	OriginalTitle string     `xml:"originaltitle"`
	Year          int        `xml:"year"`
	UniqueIDs     []UniqueID `xml:"uniqueid"`
	Plot          string     `xml:"plot"`
	Tagline       string     `xml:"tagline,omitempty"`
	Runtime       int        `xml:"runtime,omitempty"`
	Genres        []string   `xml:"genre,omitempty"`
	Country       string     `xml:"country,omitempty"`
	Studios       []string   `xml:"studio,omitempty"`
	Directors     []string   `xml:"director,omitempty"`
	Writers       []string   `xml:"credits,omitempty"`
	Actors        []Actor    `xml:"actor,omitempty"`
	Ratings       Ratings    `xml:"ratings"`
	Thumb         string     `xml:"thumb,omitempty"`
	Fanart        string     `xml:"fanart,omitempty"`
	Set           *Set       `xml:"set,omitempty"`
}

// TVShowNFO is the <tvshow> root element.
type TVShowNFO struct {
	XMLName   xml.Name   `xml:"tvshow"`
	Title     string     `xml:"title"`
	OriginalTitle string `xml:"originaltitle"`
	UniqueIDs []UniqueID `xml:"uniqueid"`
	Plot      string     `xml:"plot"`
	Premiered string     `xml:"premiered,omitempty"`
	Genres    []string   `xml:"genre,omitempty"`
	Country   string     `xml:"country,omitempty"`
	Studios   []string   `xml:"studio,omitempty"`
	Directors []string   `xml:"director,omitempty"`
	Actors    []Actor    `xml:"actor,omitempty"`
	Ratings   Ratings    `xml:"ratings"`
	Thumb     string     `xml:"thumb,omitempty"`
}

// EpisodeNFO is the <episodedetails> root element.
type EpisodeNFO struct {
	XMLName xml.Name `xml:"episodedetails"`
	Title   string   `xml:"title"`
	Season  int      `xml:"season"`
	Episode int      `xml:"episode"`
	Plot    string   `xml:"plot,omitempty"`
	Aired   string   `xml:"aired,omitempty"`
}

// SeasonNFO is the <season> root element.
type SeasonNFO struct {
	XMLName      xml.Name `xml:"season"`
	SeasonNumber int      `xml:"seasonnumber"`
}

func uniqueIDs(tmdb int, imdb string) []UniqueID {
	ids := []UniqueID{{Type: "tmdb", Default: true, Value: fmt.Sprintf("%d", tmdb)}}
	if imdb != "" {
		ids = append(ids, UniqueID{Type: "imdb", Value: imdb})
	}
	return ids
}

func castToActors(cast []types.CastMember) []Actor {
	out := make([]Actor, 0, len(cast))
	for _, c := range cast {
		out = append(out, Actor{Name: c.Name, Role: c.Role, Order: c.Ordinal})
	}
	return out
}

// GenerateMovieNFO builds the well-formed movie.nfo XML for r.
func GenerateMovieNFO(r types.LookupRecord, posterRel, fanartRel string) ([]byte, error) {
	nfo := MovieNFO{
		Title:         firstNonEmpty(r.LocalizedTitle, r.OriginalTitle),
		OriginalTitle: r.OriginalTitle,
		Year:          r.Year,
		UniqueIDs:     uniqueIDs(r.TMDBID, r.IMDBID),
		Plot:          r.Plot,
		Tagline:       r.Tagline,
		Runtime:       r.RuntimeMinutes,
		Genres:        r.Genres,
		Country:       r.Country,
		Studios:       r.Studios,
		Directors:     r.Directors,
		Writers:       r.Writers,
		Actors:        castToActors(r.Cast),
		Ratings:       Ratings{Value: r.Rating, Votes: r.VoteCount},
		Thumb:         posterRel,
		Fanart:        fanartRel,
	}
	if r.Collection != nil {
		nfo.Set = &Set{Name: r.Collection.Name}
	}
	return marshalNFO(nfo)
}

// GenerateTVShowNFO builds the well-formed tvshow.nfo XML for a show.
func GenerateTVShowNFO(r types.LookupRecord, posterRel string) ([]byte, error) {
	nfo := TVShowNFO{
		Title:         r.ShowTitle,
		OriginalTitle: r.OriginalTitle,
		UniqueIDs:     uniqueIDs(r.TMDBID, r.IMDBID),
		Plot:          r.Plot,
		Genres:        r.Genres,
		Country:       r.Country,
		Studios:       r.Studios,
		Directors:     r.Directors,
		Actors:        castToActors(r.Cast),
		Ratings:       Ratings{Value: r.Rating, Votes: r.VoteCount},
		Thumb:         posterRel,
	}
	return marshalNFO(nfo)
}

// GenerateEpisodeNFO builds the well-formed episodedetails XML for one episode.
func GenerateEpisodeNFO(r types.LookupRecord) ([]byte, error) {
	nfo := EpisodeNFO{
		Title: r.EpisodeTitle, Season: r.Season, Episode: r.Episode,
		Plot: r.Plot, Aired: r.AirDate,
	}
	return marshalNFO(nfo)
}

// GenerateSeasonNFO builds season.nfo for a season directory.
func GenerateSeasonNFO(season int) ([]byte, error) {
	return marshalNFO(SeasonNFO{SeasonNumber: season})
}

func marshalNFO(v any) ([]byte, error) {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal nfo: %w", err)
	}
	header := []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	return append(header, data...), nil
}

// ParseMovieNFO reconstructs a LookupRecord from a previously written
// movie.nfo. The NFO is authoritative at scan time: no external lookup
// is repeated.
func ParseMovieNFO(data []byte) (types.LookupRecord, error) {
	var nfo MovieNFO
	if err := xml.Unmarshal(data, &nfo); err != nil {
		return types.LookupRecord{}, fmt.Errorf("parse movie nfo: %w", err)
	}
	r := types.LookupRecord{
		OriginalTitle:  nfo.OriginalTitle,
		LocalizedTitle: nfo.Title,
		Year:           nfo.Year,
		Plot:           nfo.Plot,
		Tagline:        nfo.Tagline,
		RuntimeMinutes: nfo.Runtime,
		Genres:         nfo.Genres,
		Country:        nfo.Country,
		Studios:        nfo.Studios,
		Directors:      nfo.Directors,
		Writers:        nfo.Writers,
		Cast:           actorsToCast(nfo.Actors),
		Rating:         nfo.Ratings.Value,
		VoteCount:      nfo.Ratings.Votes,
	}
	r.TMDBID, r.IMDBID = idsFromUnique(nfo.UniqueIDs)
	if nfo.Set != nil {
		r.Collection = &types.CollectionDescriptor{Name: nfo.Set.Name}
	}
	return r, nil
}

// ParseTVShowNFO reconstructs a show-level LookupRecord from tvshow.nfo.
func ParseTVShowNFO(data []byte) (types.LookupRecord, error) {
	var nfo TVShowNFO
	if err := xml.Unmarshal(data, &nfo); err != nil {
		return types.LookupRecord{}, fmt.Errorf("parse tvshow nfo: %w", err)
	}
	r := types.LookupRecord{
		ShowTitle:     nfo.Title,
		OriginalTitle: nfo.OriginalTitle,
		Plot:          nfo.Plot,
		AirDate:       nfo.Premiered,
		Genres:        nfo.Genres,
		Country:       nfo.Country,
		Studios:       nfo.Studios,
		Directors:     nfo.Directors,
		Cast:          actorsToCast(nfo.Actors),
		Rating:        nfo.Ratings.Value,
		VoteCount:     nfo.Ratings.Votes,
	}
	r.TMDBID, r.IMDBID = idsFromUnique(nfo.UniqueIDs)
	return r, nil
}

func actorsToCast(actors []Actor) []types.CastMember {
	out := make([]types.CastMember, 0, len(actors))
	for _, a := range actors {
		out = append(out, types.CastMember{Name: a.Name, Role: a.Role, Ordinal: a.Order})
	}
	return out
}

func idsFromUnique(ids []UniqueID) (tmdb int, imdb string) {
	for _, id := range ids {
		switch id.Type {
		case "tmdb":
			tmdb, _ = strconv.Atoi(id.Value)
		case "imdb":
			imdb = id.Value
		}
	}
	return tmdb, imdb
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
