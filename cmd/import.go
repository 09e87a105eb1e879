package cmd

import (
	"archive/zip"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opd-ai/cinetidy/internal/exportimport"
)

var importMode string

var importCmd = &cobra.Command{
	Use:   "import <archive>",
	Short: "Restore config, indexes, and sessions from an export archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importMode, "mode", "dry-run", "one of dry-run, force, merge, backup-first")
}

func runImport(c *cobra.Command, args []string) error {
	path := args[0]

	mode := exportimport.Mode(importMode)
	switch mode {
	case exportimport.ModeDryRun, exportimport.ModeForce, exportimport.ModeMerge, exportimport.ModeBackupFirst:
	default:
		return exitErrorf(ExitUserError, "--mode must be one of dry-run, force, merge, backup-first, got %q", importMode)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return exitErrorf(ExitUserError, "open archive %s: %v", path, err)
	}
	defer zr.Close()

	diff, err := exportimport.Import(&zr.Reader, exportimport.ImportOptions{
		ConfigDir:  cfg.Index.ConfigDir,
		ConfigFile: cfgFile,
		Mode:       mode,
	})
	if err != nil {
		return exitErrorf(ExitFatalAbort, "import failed: %v", err)
	}

	fmt.Printf("Archive created by %s at %s\n", diff.Manifest.CreatedBy, diff.Manifest.CreatedAt)
	if mode == exportimport.ModeDryRun {
		fmt.Println("Dry run, no changes were made:")
	}
	fmt.Printf("  config replaced: %v\n", diff.ConfigReplaced)
	fmt.Printf("  disks added:     %d %v\n", len(diff.DisksAdded), diff.DisksAdded)
	if len(diff.DisksReplaced) > 0 {
		fmt.Printf("  disks replaced:  %d %v\n", len(diff.DisksReplaced), diff.DisksReplaced)
	}
	if len(diff.DisksKept) > 0 {
		fmt.Printf("  disks kept:      %d %v\n", len(diff.DisksKept), diff.DisksKept)
	}
	fmt.Printf("  sessions added:  %d\n", len(diff.SessionsAdded))
	if len(diff.SessionsSkipped) > 0 {
		fmt.Printf("  sessions skipped: %d\n", len(diff.SessionsSkipped))
	}
	return nil
}
