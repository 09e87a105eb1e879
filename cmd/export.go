package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opd-ai/cinetidy/internal/exportimport"
)

var (
	exportOutput         string
	exportOnly           []string
	exportIncludeSecrets bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Package config, indexes, and sessions into a portable archive",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "cinetidy-export.zip", "archive path to write")
	exportCmd.Flags().StringSliceVar(&exportOnly, "only", nil, "restrict to sections: config,indexes,sessions (default: all)")
	exportCmd.Flags().BoolVar(&exportIncludeSecrets, "include-secrets", false, "embed TMDB credentials in the config section")
}

func runExport(c *cobra.Command, args []string) error {
	f, err := os.Create(exportOutput)
	if err != nil {
		return exitErrorf(ExitUserError, "create archive: %v", err)
	}
	defer f.Close()

	opts := exportimport.ExportOptions{
		ConfigDir:      cfg.Index.ConfigDir,
		ConfigFile:     cfgFile,
		Only:           exportOnly,
		IncludeSecrets: exportIncludeSecrets,
		CreatedBy:      "cinetidy",
	}

	m, err := exportimport.Export(f, opts)
	if err != nil {
		return exitErrorf(ExitFatalAbort, "export failed: %v", err)
	}

	fmt.Printf("Wrote %s\n", exportOutput)
	fmt.Printf("  disks:   %d\n", m.Stats.Disks)
	fmt.Printf("  movies:  %d\n", m.Stats.MovieEntries)
	fmt.Printf("  tv:      %d\n", m.Stats.TVEntries)
	fmt.Printf("  sessions: %d\n", m.Stats.Sessions)
	if m.Contents.SecretsIncluded {
		fmt.Println("  warning: credentials were embedded in this archive")
	}
	return nil
}
