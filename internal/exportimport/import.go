package exportimport

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opd-ai/cinetidy/internal/fsatomic"
	"github.com/opd-ai/cinetidy/internal/index"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// Mode selects an import's conflict policy.
type Mode string

const (
	// ModeDryRun computes a manifest-level diff and mutates nothing.
	ModeDryRun Mode = "dry-run"
	// ModeForce overwrites the destination's config and indexes outright.
	ModeForce Mode = "force"
	// ModeMerge unions per-disk indexes; a label present on both sides
	// keeps whichever side has the newer LastIndexed. Sessions are always
	// appended, never overwritten.
	ModeMerge Mode = "merge"
	// ModeBackupFirst behaves like ModeForce but copies the destination's
	// config tree to a sibling path before making any change.
	ModeBackupFirst Mode = "backup-first"
)

// ImportOptions configures one import run.
type ImportOptions struct {
	ConfigDir  string // destination $CONFIG
	ConfigFile string // destination config file path, used by force/backup-first
	Mode       Mode
}

// ImportDiff summarizes what an import changed (or, for a dry run, would
// change).
type ImportDiff struct {
	Manifest        Manifest
	DisksAdded      []string
	DisksReplaced   []string // archive's copy was newer and replaced the local one
	DisksKept       []string // local copy was newer or equal; archive's copy skipped
	SessionsAdded   []string
	SessionsSkipped []string
	ConfigReplaced  bool
}

// Import applies zr's contents to opts.ConfigDir per opts.Mode.
func Import(zr *zip.Reader, opts ImportOptions) (ImportDiff, error) {
	m, err := readManifest(zr)
	if err != nil {
		return ImportDiff{}, err
	}
	diff := ImportDiff{Manifest: m}

	if opts.Mode == ModeDryRun {
		return dryRunDiff(zr, opts, m)
	}

	if opts.Mode == ModeBackupFirst {
		if err := backupConfigTree(opts.ConfigDir); err != nil {
			return ImportDiff{}, err
		}
	}

	if m.Contents.Config && (opts.Mode == ModeForce || opts.Mode == ModeBackupFirst) {
		if err := importConfig(zr, opts); err != nil {
			return ImportDiff{}, err
		}
		diff.ConfigReplaced = opts.ConfigFile != ""
	}

	if m.Contents.Indexes {
		switch opts.Mode {
		case ModeForce, ModeBackupFirst:
			added, err := importIndexesForce(zr, opts)
			if err != nil {
				return ImportDiff{}, err
			}
			diff.DisksAdded = added
		case ModeMerge:
			added, replaced, kept, err := importIndexesMerge(zr, opts)
			if err != nil {
				return ImportDiff{}, err
			}
			diff.DisksAdded, diff.DisksReplaced, diff.DisksKept = added, replaced, kept
		}
	}

	if m.Contents.Sessions {
		added, skipped, err := importSessions(zr, opts)
		if err != nil {
			return ImportDiff{}, err
		}
		diff.SessionsAdded, diff.SessionsSkipped = added, skipped
	}

	return diff, nil
}

func readManifest(zr *zip.Reader) (Manifest, error) {
	f, err := zr.Open("manifest.json")
	if err != nil {
		return Manifest{}, fmt.Errorf("open manifest.json: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest.json: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest.json: %w", err)
	}
	return m, nil
}

// dryRunDiff reports what an import would do without touching anything
// on disk: which disk labels are new versus already present, and how
// many sessions the archive carries beyond what's local.
func dryRunDiff(zr *zip.Reader, opts ImportOptions, m Manifest) (ImportDiff, error) {
	diff := ImportDiff{Manifest: m, ConfigReplaced: m.Contents.Config}

	if m.Contents.Indexes {
		store := index.New(opts.ConfigDir)
		localLabels, err := store.ListDiskLabels()
		if err != nil {
			return ImportDiff{}, err
		}
		local := make(map[string]bool, len(localLabels))
		for _, l := range localLabels {
			local[l] = true
		}
		for _, name := range zipNames(zr, "indexes/per-disk/") {
			label := strings.TrimSuffix(filepath.Base(name), ".json")
			if local[label] {
				diff.DisksKept = append(diff.DisksKept, label)
			} else {
				diff.DisksAdded = append(diff.DisksAdded, label)
			}
		}
	}

	if m.Contents.Sessions {
		localSessions := map[string]bool{}
		if entries, err := os.ReadDir(filepath.Join(opts.ConfigDir, "sessions")); err == nil {
			for _, e := range entries {
				if e.IsDir() {
					localSessions[e.Name()] = true
				}
			}
		}
		seen := map[string]bool{}
		for _, name := range zipNames(zr, "sessions/") {
			rest := strings.TrimPrefix(name, "sessions/")
			parts := strings.SplitN(rest, "/", 2)
			if len(parts) != 2 || seen[parts[0]] {
				continue
			}
			seen[parts[0]] = true
			if localSessions[parts[0]] {
				diff.SessionsSkipped = append(diff.SessionsSkipped, parts[0])
			} else {
				diff.SessionsAdded = append(diff.SessionsAdded, parts[0])
			}
		}
	}

	return diff, nil
}

func zipNames(zr *zip.Reader, prefix string) []string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && !strings.HasSuffix(f.Name, "/") {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

func backupConfigTree(configDir string) error {
	dest := configDir + ".backup"
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clear prior config backup: %w", err)
	}
	err := filepath.WalkDir(configDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel, relErr := filepath.Rel(configDir, path)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return fsatomic.WriteFile(target, data, 0o644)
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("back up config tree %s: %w", configDir, err)
	}
	return nil
}

func importConfig(zr *zip.Reader, opts ImportOptions) error {
	f, err := zr.Open("config/config.json")
	if err != nil {
		return fmt.Errorf("open config/config.json: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config/config.json: %w", err)
	}
	if opts.ConfigFile == "" {
		return nil
	}
	return fsatomic.WriteFile(opts.ConfigFile, data, 0o644)
}

func importIndexesForce(zr *zip.Reader, opts ImportOptions) ([]string, error) {
	var labels []string
	for _, name := range zipNames(zr, "indexes/per-disk/") {
		label := strings.TrimSuffix(filepath.Base(name), ".json")
		data, err := readZipFile(zr, name)
		if err != nil {
			return nil, err
		}
		dest := filepath.Join(opts.ConfigDir, "disk_indexes", label+".json")
		if err := fsatomic.WriteFile(dest, data, 0o644); err != nil {
			return nil, fmt.Errorf("write disk index %s: %w", label, err)
		}
		labels = append(labels, label)
	}

	if data, err := readZipFile(zr, "indexes/central/central_index.json"); err == nil {
		dest := filepath.Join(opts.ConfigDir, "central_index.json")
		if err := fsatomic.WriteFile(dest, data, 0o644); err != nil {
			return nil, fmt.Errorf("write central index: %w", err)
		}
	}

	store := index.New(opts.ConfigDir)
	idx, err := store.Rebuild()
	if err != nil {
		return nil, err
	}
	if err := store.SaveCentral(idx); err != nil {
		return nil, err
	}
	return labels, nil
}

func importIndexesMerge(zr *zip.Reader, opts ImportOptions) (added, replaced, kept []string, err error) {
	store := index.New(opts.ConfigDir)

	localLabels, err := store.ListDiskLabels()
	if err != nil {
		return nil, nil, nil, err
	}
	local := make(map[string]bool, len(localLabels))
	for _, l := range localLabels {
		local[l] = true
	}

	for _, name := range zipNames(zr, "indexes/per-disk/") {
		label := strings.TrimSuffix(filepath.Base(name), ".json")
		raw, err := readZipFile(zr, name)
		if err != nil {
			return nil, nil, nil, err
		}
		var incoming struct {
			Disk    types.DiskRecord
			Entries []types.IndexEntry
		}
		if err := json.Unmarshal(raw, &incoming); err != nil {
			return nil, nil, nil, fmt.Errorf("parse archived disk index %s: %w", label, err)
		}

		if !local[label] {
			if err := store.SaveDisk(incoming.Disk, incoming.Entries); err != nil {
				return nil, nil, nil, err
			}
			added = append(added, label)
			continue
		}

		localDisk, _, loadErr := store.LoadDisk(label)
		if loadErr != nil {
			return nil, nil, nil, loadErr
		}
		if incoming.Disk.LastIndexed.After(localDisk.LastIndexed) {
			if err := store.SaveDisk(incoming.Disk, incoming.Entries); err != nil {
				return nil, nil, nil, err
			}
			replaced = append(replaced, label)
		} else {
			kept = append(kept, label)
		}
	}

	idx, err := store.Rebuild()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := store.SaveCentral(idx); err != nil {
		return nil, nil, nil, err
	}
	return added, replaced, kept, nil
}

func importSessions(zr *zip.Reader, opts ImportOptions) (added, skipped []string, err error) {
	seen := map[string]bool{}
	var order []string
	for _, name := range zipNames(zr, "sessions/") {
		rest := strings.TrimPrefix(name, "sessions/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			continue
		}
		if !seen[parts[0]] {
			seen[parts[0]] = true
			order = append(order, parts[0])
		}
	}

	for _, sessionName := range order {
		dest := filepath.Join(opts.ConfigDir, "sessions", sessionName)
		if _, statErr := os.Stat(dest); statErr == nil {
			skipped = append(skipped, sessionName)
			continue
		}
		for _, file := range []string{"plan.json", "rollback.json"} {
			data, readErr := readZipFile(zr, "sessions/"+sessionName+"/"+file)
			if readErr != nil {
				continue
			}
			if err := fsatomic.WriteFile(filepath.Join(dest, file), data, 0o644); err != nil {
				return added, skipped, fmt.Errorf("write session %s/%s: %w", sessionName, file, err)
			}
		}
		added = append(added, sessionName)
	}
	return added, skipped, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
