package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opd-ai/cinetidy/internal/fsatomic"
	"github.com/opd-ai/cinetidy/internal/util"
	"github.com/opd-ai/cinetidy/pkg/types"
)

var planDest string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a plan for organizing a source tree",
}

var planMoviesCmd = &cobra.Command{
	Use:   "movies <source-dir>",
	Short: "Plan movie files found under source-dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		return runPlan(c, types.MediaKindMovie, args[0])
	},
}

var planTVCmd = &cobra.Command{
	Use:   "tvshows <source-dir>",
	Short: "Plan tv show files found under source-dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		return runPlan(c, types.MediaKindTVShow, args[0])
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planMoviesCmd)
	planCmd.AddCommand(planTVCmd)

	planCmd.PersistentFlags().StringVar(&planDest, "dest", "", "target root directory (default from config)")
}

func runPlan(c *cobra.Command, kind types.MediaKind, sourceArg string) error {
	sourceRoot, err := filepath.Abs(sourceArg)
	if err != nil {
		return exitErrorf(ExitUserError, "resolve source path: %v", err)
	}

	targetRoot, err := destinationRoot(kind, planDest)
	if err != nil {
		return err
	}

	sc, err := buildScanner()
	if err != nil {
		return err
	}
	scanResult, err := sc.Scan(sourceRoot)
	if err != nil {
		return exitErrorf(ExitPreflightError, "scan %s: %v", sourceRoot, err)
	}
	if len(scanResult.Files) == 0 {
		fmt.Println("No video files found under", sourceRoot)
		return nil
	}
	var totalBytes int64
	for _, f := range scanResult.Files {
		totalBytes += f.Size
	}
	fmt.Printf("Found %d video file(s) under %s (%s)\n", len(scanResult.Files), sourceRoot, util.FormatBytes(totalBytes))

	p, err := buildPlanner()
	if err != nil {
		return err
	}

	stats := util.NewStatistics()
	timer := stats.NewTimer("plan")

	ctx := context.Background()
	var plan types.Plan
	if kind == types.MediaKindTVShow {
		plan, err = p.PlanTVShows(ctx, scanResult.Files, sourceRoot, targetRoot)
	} else {
		plan, err = p.PlanMovies(ctx, scanResult.Files, sourceRoot, targetRoot)
	}
	timer.Stop()
	if err != nil {
		return exitErrorf(ExitFatalAbort, "planning failed: %v", err)
	}

	dir, name, err := newSession()
	if err != nil {
		return exitErrorf(ExitFatalAbort, "%v", err)
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return exitErrorf(ExitFatalAbort, "marshal plan: %v", err)
	}
	if err := fsatomic.WriteFile(filepath.Join(dir, "plan.json"), data, 0o644); err != nil {
		return exitErrorf(ExitFatalAbort, "write plan: %v", err)
	}

	log.Info().Str("session", name).Int("ready", len(plan.Items)).Int("sample", len(plan.Samples)).Int("unknown", len(plan.Unknown)).Msg("Plan written")

	fmt.Println()
	fmt.Println("Plan summary:")
	fmt.Printf("  ready:   %d\n", len(plan.Items))
	fmt.Printf("  sample:  %d\n", len(plan.Samples))
	fmt.Printf("  unknown: %d\n", len(plan.Unknown))
	fmt.Printf("  took:    %s\n", util.FormatDuration(stats.GetTiming("plan")))
	fmt.Println()
	fmt.Printf("Session: %s\n", name)
	fmt.Printf("Run `cinetidy execute %s` to apply it.\n", name)

	if len(plan.Unknown) > 0 {
		return &ExitError{Code: ExitPartialSuccess, Err: fmt.Errorf("%d item(s) could not be matched and were left unknown", len(plan.Unknown))}
	}
	return nil
}
