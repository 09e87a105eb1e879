package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/opd-ai/cinetidy/internal/index"
	"github.com/opd-ai/cinetidy/pkg/types"
)

var (
	indexScanLabel     string
	indexScanMoviePath string
	indexScanTVPath    string
	indexScanForce     bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the central index of organized media",
}

var indexScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "(Re-)index one disk's organized movies and/or tv shows",
	Args:  cobra.NoArgs,
	RunE:  runIndexScan,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print aggregate counters for the central index",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every indexed disk",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Cross-check every entry against the filesystem",
	Args:  cobra.NoArgs,
	RunE:  runIndexVerify,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Drop a disk's entries from the central index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

var indexDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List entries sharing the same media kind and TMDB id",
	Args:  cobra.NoArgs,
	RunE:  runIndexDuplicates,
}

var indexCollectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List film-series collections and ownership completeness",
	Args:  cobra.NoArgs,
	RunE:  runIndexCollections,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexScanCmd, indexStatsCmd, indexListCmd, indexVerifyCmd, indexRemoveCmd, indexDuplicatesCmd, indexCollectionsCmd)

	indexScanCmd.Flags().StringVar(&indexScanLabel, "label", "", "disk label (required)")
	indexScanCmd.Flags().StringVar(&indexScanMoviePath, "movies-path", "", "organized movies root on this disk, if any")
	indexScanCmd.Flags().StringVar(&indexScanTVPath, "tv-path", "", "organized tv shows root on this disk, if any")
	indexScanCmd.Flags().BoolVar(&indexScanForce, "force", false, "re-read every NFO instead of trusting unchanged entries")
}

func indexStore() *index.Store {
	return index.New(cfg.Index.ConfigDir)
}

func runIndexScan(c *cobra.Command, args []string) error {
	if indexScanLabel == "" {
		return exitErrorf(ExitUserError, "--label is required")
	}
	if indexScanMoviePath == "" && indexScanTVPath == "" {
		return exitErrorf(ExitUserError, "at least one of --movies-path or --tv-path is required")
	}

	store := indexStore()

	prevDisk, prevEntries, loadErr := store.LoadDisk(indexScanLabel)
	previous := make(map[string]types.IndexEntry, len(prevEntries))
	for _, e := range prevEntries {
		previous[e.RelativePath] = e
	}

	disk := types.DiskRecord{
		Label:         indexScanLabel,
		UUID:          prevDisk.UUID,
		MovieBasePath: indexScanMoviePath,
		TVBasePath:    indexScanTVPath,
		LastIndexed:   time.Now().UTC(),
	}
	if loadErr != nil || disk.UUID == "" {
		disk.UUID = uuid.NewString()
	}

	var entries []types.IndexEntry
	if indexScanMoviePath != "" {
		movieEntries, err := index.Scan(index.ScanOptions{
			DiskLabel: indexScanLabel, Root: indexScanMoviePath, Kind: types.MediaKindMovie,
			Previous: previous, Force: indexScanForce,
		})
		if err != nil {
			return exitErrorf(ExitFatalAbort, "scan movies: %v", err)
		}
		entries = append(entries, movieEntries...)
		disk.MovieCount = len(movieEntries)
	}
	if indexScanTVPath != "" {
		tvEntries, err := index.Scan(index.ScanOptions{
			DiskLabel: indexScanLabel, Root: indexScanTVPath, Kind: types.MediaKindTVShow,
			Previous: previous, Force: indexScanForce,
		})
		if err != nil {
			return exitErrorf(ExitFatalAbort, "scan tv shows: %v", err)
		}
		entries = append(entries, tvEntries...)
		disk.TVCount = len(tvEntries)
	}

	idx, err := store.Update(disk, entries)
	if err != nil {
		return exitErrorf(ExitFatalAbort, "update index: %v", err)
	}

	fmt.Printf("Indexed disk %s: %d movie(s), %d tv entr(ies)\n", indexScanLabel, disk.MovieCount, disk.TVCount)
	fmt.Printf("Central index now holds %d entries across %d disk(s)\n", len(idx.Entries), len(idx.Disks))
	return nil
}

func runIndexStats(c *cobra.Command, args []string) error {
	idx, err := indexStore().LoadCentral()
	if err != nil {
		return exitErrorf(ExitUserError, "load central index: %v", err)
	}

	movies, tv := 0, 0
	for _, e := range idx.Entries {
		if e.MediaKind == types.MediaKindTVShow {
			tv++
		} else {
			movies++
		}
	}

	fmt.Printf("Disks:       %d\n", len(idx.Disks))
	fmt.Printf("Movies:      %d\n", movies)
	fmt.Printf("TV entries:  %d\n", tv)
	fmt.Printf("Total:       %d\n", len(idx.Entries))
	fmt.Printf("Collections: %d\n", len(idx.Collections))
	return nil
}

func runIndexList(c *cobra.Command, args []string) error {
	idx, err := indexStore().LoadCentral()
	if err != nil {
		return exitErrorf(ExitUserError, "load central index: %v", err)
	}

	labels := make([]string, 0, len(idx.Disks))
	for label := range idx.Disks {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tUUID\tMOVIES\tTV\tLAST INDEXED")
	for _, label := range labels {
		d := idx.Disks[label]
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", d.Label, d.UUID, d.MovieCount, d.TVCount, d.LastIndexed.Format(time.RFC3339))
	}
	w.Flush()
	return nil
}

func runIndexVerify(c *cobra.Command, args []string) error {
	idx, err := indexStore().LoadCentral()
	if err != nil {
		return exitErrorf(ExitUserError, "load central index: %v", err)
	}

	moviePaths := make(map[string]string)
	tvPaths := make(map[string]string)
	for label, d := range idx.Disks {
		if d.MovieBasePath != "" {
			moviePaths[label] = d.MovieBasePath
		}
		if d.TVBasePath != "" {
			tvPaths[label] = d.TVBasePath
		}
	}

	movieEntries := types.CentralIndex{}
	tvEntries := types.CentralIndex{}
	for _, e := range idx.Entries {
		if e.MediaKind == types.MediaKindTVShow {
			tvEntries.Entries = append(tvEntries.Entries, e)
		} else {
			movieEntries.Entries = append(movieEntries.Entries, e)
		}
	}

	results := append(index.Verify(movieEntries, moviePaths), index.Verify(tvEntries, tvPaths)...)

	missing, changed := 0, 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tDISK\tPATH")
	for _, r := range results {
		if r.Status == index.VerifyOK {
			continue
		}
		if r.Status == index.VerifyMissing {
			missing++
		} else {
			changed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Status, r.Entry.DiskLabel, r.Entry.RelativePath)
	}
	w.Flush()

	fmt.Printf("\n%d ok, %d missing, %d changed (of %d total)\n", len(results)-missing-changed, missing, changed, len(results))
	if missing > 0 || changed > 0 {
		return &ExitError{Code: ExitPartialSuccess, Err: fmt.Errorf("%d entries need attention", missing+changed)}
	}
	return nil
}

func runIndexRemove(c *cobra.Command, args []string) error {
	label := args[0]
	idx, err := indexStore().Remove(label)
	if err != nil {
		return exitErrorf(ExitFatalAbort, "remove disk %s: %v", label, err)
	}
	fmt.Printf("Removed disk %s. Central index now holds %d entries across %d disk(s)\n", label, len(idx.Entries), len(idx.Disks))
	return nil
}

func runIndexDuplicates(c *cobra.Command, args []string) error {
	idx, err := indexStore().LoadCentral()
	if err != nil {
		return exitErrorf(ExitUserError, "load central index: %v", err)
	}

	groups := index.Duplicates(idx)
	if len(groups) == 0 {
		fmt.Println("No duplicates found")
		return nil
	}

	for _, g := range groups {
		fmt.Printf("[%s] tmdb:%d (%d copies)\n", g.MediaKind, g.TMDBID, len(g.Members))
		for _, m := range g.Members {
			fmt.Printf("  %s: %s\n", m.DiskLabel, m.RelativePath)
		}
	}
	return nil
}

func runIndexCollections(c *cobra.Command, args []string) error {
	idx, err := indexStore().LoadCentral()
	if err != nil {
		return exitErrorf(ExitUserError, "load central index: %v", err)
	}

	if len(idx.Collections) == 0 {
		fmt.Println("No collections found")
		return nil
	}

	ids := make([]int, 0, len(idx.Collections))
	for id := range idx.Collections {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLLECTION\tOWNED\tKNOWN\tCOMPLETE")
	for _, id := range ids {
		roll := idx.Collections[id]
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\n", roll.Name, len(roll.OwnedIDs), roll.TotalKnown, roll.Complete())
	}
	w.Flush()
	return nil
}
