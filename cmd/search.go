package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opd-ai/cinetidy/internal/index"
	"github.com/opd-ai/cinetidy/pkg/types"
)

var (
	searchTitle   string
	searchGenre   string
	searchCountry string
	searchYear    int
	searchYearMin int
	searchYearMax int
	searchKind    string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the central index by title, genre, country, or year",
	Args:  cobra.NoArgs,
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchTitle, "title", "", "title substring, case-insensitive")
	searchCmd.Flags().StringVar(&searchGenre, "genre", "", "genre name")
	searchCmd.Flags().StringVar(&searchCountry, "country", "", "ISO-3166-1 alpha-2 country code")
	searchCmd.Flags().IntVar(&searchYear, "year", 0, "exact release year")
	searchCmd.Flags().IntVar(&searchYearMin, "year-min", 0, "earliest release year")
	searchCmd.Flags().IntVar(&searchYearMax, "year-max", 0, "latest release year")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "restrict to movie or tvshow")
}

func runSearch(c *cobra.Command, args []string) error {
	idx, err := indexStore().LoadCentral()
	if err != nil {
		return exitErrorf(ExitUserError, "load central index: %v", err)
	}

	q := index.Query{
		Title:   searchTitle,
		Genre:   searchGenre,
		Country: searchCountry,
		YearMin: searchYearMin,
		YearMax: searchYearMax,
	}
	if searchYear != 0 {
		q.YearMin = searchYear
		q.YearMax = searchYear
	}
	switch searchKind {
	case "movie":
		q.MediaKind = types.MediaKindMovie
	case "tvshow":
		q.MediaKind = types.MediaKindTVShow
	case "":
	default:
		return exitErrorf(ExitUserError, "--kind must be movie or tvshow, got %q", searchKind)
	}

	results := index.SearchPartitioned(idx, q)

	if len(results.Movies) == 0 && len(results.TV) == 0 {
		fmt.Println("No matches")
		return nil
	}

	if len(results.Movies) > 0 {
		fmt.Println("Movies:")
		for _, e := range results.Movies {
			printSearchResult(e)
		}
	}
	if len(results.TV) > 0 {
		if len(results.Movies) > 0 {
			fmt.Println()
		}
		fmt.Println("TV shows:")
		for _, e := range results.TV {
			printSearchResult(e)
		}
	}
	return nil
}

func printSearchResult(e types.IndexEntry) {
	r := e.Record
	title := r.LocalizedTitle
	if title == "" {
		title = r.OriginalTitle
	}
	if r.ShowTitle != "" {
		fmt.Printf("  %s (%d) S%02dE%02d %q — %s: %s\n", r.ShowTitle, r.Year, r.Season, r.Episode, r.EpisodeTitle, e.DiskLabel, e.RelativePath)
		return
	}
	fmt.Printf("  %s (%d) — %s: %s\n", title, r.Year, e.DiskLabel, e.RelativePath)
}
