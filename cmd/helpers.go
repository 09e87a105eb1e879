package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/cinetidy/internal/aiclient"
	"github.com/opd-ai/cinetidy/internal/candidate"
	"github.com/opd-ai/cinetidy/internal/config"
	"github.com/opd-ai/cinetidy/internal/planner"
	"github.com/opd-ai/cinetidy/internal/probe"
	"github.com/opd-ai/cinetidy/internal/scanner"
	"github.com/opd-ai/cinetidy/internal/tmdbapi"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// Exit codes, per the documented command-surface contract: 0 success,
// 1 user error, 2 preflight failure, 3 partial success, 4 fatal
// execution abort.
const (
	ExitSuccess        = 0
	ExitUserError      = 1
	ExitPreflightError = 2
	ExitPartialSuccess = 3
	ExitFatalAbort     = 4
)

// ExitError lets a RunE return both a human-facing error and the exit
// code main should use, instead of cobra's default (always 1).
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func exitErrorf(code int, format string, args ...interface{}) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// buildLookup constructs the external lookup client from cfg. It fails
// at preflight if neither credential is configured.
func buildLookup() (*tmdbapi.Client, error) {
	if cfg.TMDB.APIKey == "" && cfg.TMDB.BearerToken == "" {
		return nil, exitErrorf(ExitPreflightError, "no TMDB credentials configured (set tmdb.api_key/bearer_token or TMDB_API_KEY/TMDB_BEARER_TOKEN)")
	}
	spacing := time.Duration(cfg.TMDB.RateLimitMS) * time.Millisecond
	client, err := tmdbapi.NewClient(tmdbapi.Config{
		APIKey:           cfg.TMDB.APIKey,
		BearerToken:      cfg.TMDB.BearerToken,
		RateLimitSpacing: spacing,
	})
	if err != nil {
		return nil, exitErrorf(ExitPreflightError, "tmdb client: %v", err)
	}
	return client, nil
}

// buildProber constructs the media-probe collaborator from cfg.
func buildProber() *probe.Prober {
	timeout := time.Duration(cfg.Probe.TimeoutSeconds) * time.Second
	return probe.NewProber(cfg.Probe.BinaryPath, timeout)
}

// buildCandidateBuilder wires the AI collaborator into the candidate
// builder. AI is always configured: a misbehaving server degrades
// per-item (see candidate.Builder), never aborts planning.
func buildCandidateBuilder() *candidate.Builder {
	ai := aiclient.NewClient(aiclient.Config{
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	})
	return candidate.NewBuilder(ai)
}

// buildPlanner assembles a Planner from the process-wide config.
func buildPlanner() (*planner.Planner, error) {
	lookup, err := buildLookup()
	if err != nil {
		return nil, err
	}
	return planner.New(buildCandidateBuilder(), lookup, buildProber(), cfg.Match.AllowMedium), nil
}

// buildScanner constructs the source-tree scanner from cfg.Filters.
func buildScanner() (*scanner.Scanner, error) {
	minSize, err := config.ParseSize(cfg.Filters.MinFileSize)
	if err != nil {
		return nil, exitErrorf(ExitUserError, "invalid filters.min_file_size %q: %v", cfg.Filters.MinFileSize, err)
	}
	return scanner.NewScanner(cfg.Filters.VideoExtensions, minSize), nil
}

// destinationRoot resolves the target root for kind, preferring an
// explicit --dest flag over the configured destination.
func destinationRoot(kind types.MediaKind, destFlag string) (string, error) {
	if destFlag != "" {
		return destFlag, nil
	}
	var root string
	if kind == types.MediaKindTVShow {
		root = cfg.Destination.TV
	} else {
		root = cfg.Destination.Movies
	}
	if root == "" {
		return "", exitErrorf(ExitUserError, "destination directory required for %s (use --dest or configure destination in config)", kind)
	}
	return root, nil
}

// newSession creates a fresh $CONFIG/sessions/{timestamp}_{id} directory
// and returns its path together with the bare session name.
func newSession() (dir string, name string, err error) {
	name = fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	dir = filepath.Join(cfg.Safety.SessionDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create session directory: %w", err)
	}
	return dir, name, nil
}

// sessionPath resolves the directory for an existing session name.
func sessionPath(name string) string {
	return filepath.Join(cfg.Safety.SessionDir, name)
}

// listSessions enumerates every $CONFIG/sessions entry, newest last.
func listSessions() ([]string, error) {
	entries, err := os.ReadDir(cfg.Safety.SessionDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
