package exportimport

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opd-ai/cinetidy/internal/index"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// Section names accepted by ExportOptions.Only.
const (
	SectionConfig   = "config"
	SectionIndexes  = "indexes"
	SectionSessions = "sessions"
)

// ExportOptions configures one archive build.
type ExportOptions struct {
	ConfigDir string // the $CONFIG directory being packaged

	// ConfigFile is the path to the config file to embed, if SectionConfig
	// is selected. Empty means "skip even if selected".
	ConfigFile string

	// Only restricts the export to these sections. Empty means all.
	Only []string

	IncludeSecrets bool
	CreatedBy      string
}

func (o ExportOptions) wants(section string) bool {
	if len(o.Only) == 0 {
		return true
	}
	for _, s := range o.Only {
		if s == section {
			return true
		}
	}
	return false
}

// Export writes a zip archive to w per opts, returning the manifest that
// was embedded in it.
func Export(w io.Writer, opts ExportOptions) (Manifest, error) {
	zw := zip.NewWriter(w)

	m := Manifest{
		Version:   ManifestVersion,
		CreatedBy: opts.CreatedBy,
		CreatedAt: time.Now().UTC(),
		Contents: ContentFlags{
			SecretsIncluded: opts.IncludeSecrets,
		},
	}

	if opts.wants(SectionConfig) && opts.ConfigFile != "" {
		if err := writeConfigSection(zw, opts, &m); err != nil {
			zw.Close()
			return Manifest{}, err
		}
	}

	if opts.wants(SectionIndexes) {
		if err := writeIndexSection(zw, opts, &m); err != nil {
			zw.Close()
			return Manifest{}, err
		}
	}

	if opts.wants(SectionSessions) {
		if err := writeSessionsSection(zw, opts, &m); err != nil {
			zw.Close()
			return Manifest{}, err
		}
	}

	manifestBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		zw.Close()
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeZipEntry(zw, "manifest.json", manifestBytes); err != nil {
		zw.Close()
		return Manifest{}, err
	}

	if err := zw.Close(); err != nil {
		return Manifest{}, fmt.Errorf("finalize archive: %w", err)
	}
	return m, nil
}

func writeConfigSection(zw *zip.Writer, opts ExportOptions, m *Manifest) error {
	raw, err := os.ReadFile(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
	}
	settings, err := decodeConfig(raw, filepath.Ext(opts.ConfigFile))
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if !opts.IncludeSecrets {
		redactSecrets(settings)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := writeZipEntry(zw, "config/config.json", data); err != nil {
		return err
	}
	m.Contents.Config = true
	return nil
}

func writeIndexSection(zw *zip.Writer, opts ExportOptions, m *Manifest) error {
	store := index.New(opts.ConfigDir)
	labels, err := store.ListDiskLabels()
	if err != nil {
		return fmt.Errorf("list disk indexes: %w", err)
	}

	for _, label := range labels {
		_, entries, err := store.LoadDisk(label)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.MediaKind == types.MediaKindTVShow {
				m.Stats.TVEntries++
			} else {
				m.Stats.MovieEntries++
			}
		}
		path := filepath.Join(opts.ConfigDir, "disk_indexes", label+".json")
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read disk index %s: %w", label, err)
		}
		if err := writeZipEntry(zw, "indexes/per-disk/"+label+".json", raw); err != nil {
			return err
		}
	}
	m.Stats.Disks = len(labels)

	centralPath := filepath.Join(opts.ConfigDir, "central_index.json")
	if raw, err := os.ReadFile(centralPath); err == nil {
		if err := writeZipEntry(zw, "indexes/central/central_index.json", raw); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read central index: %w", err)
	}

	m.Contents.Indexes = true
	return nil
}

func writeSessionsSection(zw *zip.Writer, opts ExportOptions, m *Manifest) error {
	root := filepath.Join(opts.ConfigDir, "sessions")
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		m.Contents.Sessions = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		for _, file := range []string{"plan.json", "rollback.json"} {
			src := filepath.Join(root, name, file)
			raw, err := os.ReadFile(src)
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("read session %s/%s: %w", name, file, err)
			}
			if err := writeZipEntry(zw, "sessions/"+name+"/"+file, raw); err != nil {
				return err
			}
		}
	}
	m.Stats.Sessions = len(names)
	m.Contents.Sessions = true
	return nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	return nil
}

// redactSecrets walks a decoded config tree and zeroes any string value
// whose key looks like a credential, so a plain export never leaks API
// keys. Key names are matched case-insensitively by substring, since the
// config schema evolves independently of this package.
func redactSecrets(v interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if looksLikeSecretKey(k) {
				t[k] = ""
				continue
			}
			redactSecrets(child)
		}
	case []interface{}:
		for _, child := range t {
			redactSecrets(child)
		}
	}
}

func looksLikeSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, needle := range []string{"key", "token", "secret", "password", "bearer"} {
		if strings.Contains(k, needle) {
			return true
		}
	}
	return false
}
