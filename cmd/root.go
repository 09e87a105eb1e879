package cmd

import (
	"os"
	"time"

	"github.com/opd-ai/cinetidy/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cinetidy",
	Short: "Organize a chaotic movie/TV library into a Jellyfin-compatible tree",
	Long: `cinetidy turns a disorganized movie and TV-show source tree into a
Jellyfin-compatible directory structure, enriching filenames with metadata
from a movie database and an AI fallback parser.

Every run is planned first (plan), then applied separately (execute), and
every execution is recorded so it can be undone (rollback). Files are moved,
never deleted.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging
		zerolog.TimeFieldFormat = time.RFC3339
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load config, using defaults")
			cfg = config.DefaultConfig()
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cinetidy/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
