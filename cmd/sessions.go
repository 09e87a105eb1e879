package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opd-ai/cinetidy/pkg/types"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect plan/execute sessions recorded under $CONFIG/sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every recorded session",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session>",
	Short: "Show a session's plan and rollback status",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}

func runSessionsList(c *cobra.Command, args []string) error {
	names, err := listSessions()
	if err != nil {
		return exitErrorf(ExitFatalAbort, "%v", err)
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Println("No sessions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tMEDIA\tREADY\tSAMPLE\tUNKNOWN\tEXECUTED")
	for _, name := range names {
		dir := sessionPath(name)
		plan, hasPlan := loadSessionPlan(dir)
		_, statErr := os.Stat(filepath.Join(dir, "rollback.json"))
		executed := "no"
		if statErr == nil {
			executed = "yes"
		}
		if hasPlan {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", name, plan.MediaKind, len(plan.Items), len(plan.Samples), len(plan.Unknown), executed)
		} else {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%s\n", name, executed)
		}
	}
	w.Flush()
	return nil
}

func runSessionsShow(c *cobra.Command, args []string) error {
	name := args[0]
	dir := sessionPath(name)

	plan, ok := loadSessionPlan(dir)
	if !ok {
		return exitErrorf(ExitUserError, "no plan.json found for session %s", name)
	}

	fmt.Printf("Session:     %s\n", name)
	fmt.Printf("Media kind:  %s\n", plan.MediaKind)
	fmt.Printf("Source root: %s\n", plan.SourceRoot)
	fmt.Printf("Target root: %s\n", plan.TargetRoot)
	fmt.Printf("Created at:  %s\n", plan.CreatedAt)
	fmt.Println()
	fmt.Printf("Ready:   %d\n", len(plan.Items))
	fmt.Printf("Sample:  %d\n", len(plan.Samples))
	fmt.Printf("Unknown: %d\n", len(plan.Unknown))

	if len(plan.Unknown) > 0 && verbose {
		fmt.Println("\nUnknown items:")
		for _, item := range plan.Unknown {
			fmt.Printf("  %s: %s\n", item.Source.Path, item.UnknownReason)
		}
	}

	rollbackPath := filepath.Join(dir, "rollback.json")
	if data, err := os.ReadFile(rollbackPath); err == nil {
		var doc types.RollbackDoc
		if err := json.Unmarshal(data, &doc); err == nil {
			fmt.Printf("\nExecuted:    yes (%s, %d operation(s) recorded)\n", doc.ExecutedAt, len(doc.Operations))
		}
	} else {
		fmt.Println("\nExecuted:    no")
	}

	return nil
}

func loadSessionPlan(dir string) (types.Plan, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "plan.json"))
	if err != nil {
		return types.Plan{}, false
	}
	var plan types.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return types.Plan{}, false
	}
	return plan, true
}
