package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opd-ai/cinetidy/internal/executor"
	"github.com/opd-ai/cinetidy/internal/util"
	"github.com/opd-ai/cinetidy/pkg/types"
)

var executeCmd = &cobra.Command{
	Use:   "execute <session>",
	Short: "Apply a previously planned session to the filesystem",
	Long: `Execute reads the plan written by a prior "cinetidy plan" run and applies
its operations, recording a rollback document as it goes so the run can be
undone with "cinetidy rollback".`,
	Args: cobra.ExactArgs(1),
	RunE: runExecute,
}

func init() {
	rootCmd.AddCommand(executeCmd)
}

func runExecute(c *cobra.Command, args []string) error {
	session := args[0]
	dir := sessionPath(session)
	planPath := filepath.Join(dir, "plan.json")

	raw, err := os.ReadFile(planPath)
	if err != nil {
		return exitErrorf(ExitUserError, "read plan for session %s: %v", session, err)
	}
	var plan types.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return exitErrorf(ExitUserError, "malformed plan for session %s: %v", session, err)
	}

	fmt.Printf("Executing session %s (%d items)...\n", session, len(plan.Items))

	e := executor.New()
	rollbackPath := filepath.Join(dir, "rollback.json")
	stats := util.NewStatistics()
	timer := stats.NewTimer("execute")
	_, summary, err := e.Execute(context.Background(), plan, rollbackPath)
	timer.Stop()

	log.Info().Str("session", session).Int("committed", summary.Committed).Int("failed", summary.Failed).Int("skipped", summary.Skipped).Msg("Execution finished")

	fmt.Println()
	fmt.Printf("Committed: %d\n", summary.Committed)
	if summary.Failed > 0 {
		fmt.Printf("Failed:    %d\n", summary.Failed)
	}
	if summary.Skipped > 0 {
		fmt.Printf("Skipped:   %d\n", summary.Skipped)
	}
	fmt.Printf("Took:      %s\n", util.FormatDuration(stats.GetTiming("execute")))
	if verbose {
		for _, item := range summary.Items {
			if item.State != executor.StateCommitted {
				fmt.Printf("  [%s] %s: %s\n", item.State, item.ID, item.Error)
			}
		}
	}

	if err != nil {
		return &ExitError{Code: ExitFatalAbort, Err: fmt.Errorf("execution aborted: %w", err)}
	}
	if summary.Failed > 0 || summary.Skipped > 0 {
		return &ExitError{Code: ExitPartialSuccess, Err: fmt.Errorf("%d item(s) did not commit", summary.Failed+summary.Skipped)}
	}
	fmt.Printf("\nRollback doc: %s\n", rollbackPath)
	return nil
}
