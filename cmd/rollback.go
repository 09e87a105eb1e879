package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opd-ai/cinetidy/internal/rollback"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <session>",
	Short: "Reverse a completed or partially completed execution",
	Long: `Rollback reads the rollback document a prior "cinetidy execute" run left in
the session directory and reverses its operations in last-applied-first
order, restoring files to their original locations.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(c *cobra.Command, args []string) error {
	session := args[0]
	rollbackPath := filepath.Join(sessionPath(session), "rollback.json")

	doc, err := rollback.Load(rollbackPath)
	if err != nil {
		return exitErrorf(ExitUserError, "load rollback document for session %s: %v", session, err)
	}

	fmt.Printf("Rolling back session %s (%d operation(s))...\n", session, len(doc.Operations))

	engine := rollback.New()
	report := engine.Run(doc)

	log.Info().Str("session", session).Int("restored", len(report.Restored)).Int("conflicted", len(report.Conflicted)).Int("missing", len(report.Missing)).Msg("Rollback finished")

	fmt.Println()
	fmt.Printf("Restored:   %d\n", len(report.Restored))
	if len(report.Conflicted) > 0 {
		fmt.Printf("Conflicted: %d (file changed since execution, left in place)\n", len(report.Conflicted))
	}
	if len(report.Missing) > 0 {
		fmt.Printf("Missing:    %d (destination already gone)\n", len(report.Missing))
	}

	if len(report.Conflicted) > 0 || len(report.Missing) > 0 {
		return &ExitError{Code: ExitPartialSuccess, Err: fmt.Errorf("rollback completed with %d conflict(s) and %d missing operation(s)", len(report.Conflicted), len(report.Missing))}
	}
	return nil
}
