package exportimport

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/cinetidy/internal/index"
	"github.com/opd-ai/cinetidy/pkg/types"
)

func seedConfigDir(t *testing.T, dir string, label string, lastIndexed time.Time) {
	t.Helper()
	store := index.New(dir)
	disk := types.DiskRecord{Label: label, UUID: "uuid-" + label, LastIndexed: lastIndexed}
	entries := []types.IndexEntry{
		{ID: "e1", DiskLabel: label, MediaKind: types.MediaKindMovie, Record: types.LookupRecord{TMDBID: 27205, OriginalTitle: "Matrix"}},
	}
	if _, err := store.Update(disk, entries); err != nil {
		t.Fatalf("seed disk %s: %v", label, err)
	}
}

func writeConfigFile(t *testing.T, path string) {
	t.Helper()
	content := []byte("tmdb:\n  api_key: super-secret\n  bearer_token: also-secret\nsources:\n  - /mnt/m01\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExport_RedactsSecretsByDefault(t *testing.T) {
	configDir := t.TempDir()
	seedConfigDir(t, configDir, "M01", time.Now())
	configFile := filepath.Join(configDir, "config.yaml")
	writeConfigFile(t, configFile)

	var buf bytes.Buffer
	m, err := Export(&buf, ExportOptions{ConfigDir: configDir, ConfigFile: configFile, CreatedBy: "tester"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !m.Contents.Config || !m.Contents.Indexes {
		t.Fatalf("expected config and indexes content flags set: %+v", m.Contents)
	}
	if m.Contents.SecretsIncluded {
		t.Fatal("expected SecretsIncluded false by default")
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	data, err := readZipFile(zr, "config/config.json")
	if err != nil {
		t.Fatalf("read config section: %v", err)
	}
	if bytes.Contains(data, []byte("super-secret")) || bytes.Contains(data, []byte("also-secret")) {
		t.Fatalf("expected secrets redacted from exported config, got: %s", data)
	}
}

func TestExport_IncludeSecretsPreservesValues(t *testing.T) {
	configDir := t.TempDir()
	configFile := filepath.Join(configDir, "config.yaml")
	writeConfigFile(t, configFile)

	var buf bytes.Buffer
	_, err := Export(&buf, ExportOptions{ConfigDir: configDir, ConfigFile: configFile, IncludeSecrets: true, Only: []string{SectionConfig}})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	data, err := readZipFile(zr, "config/config.json")
	if err != nil {
		t.Fatalf("read config section: %v", err)
	}
	if !bytes.Contains(data, []byte("super-secret")) {
		t.Fatalf("expected secret preserved when IncludeSecrets is set, got: %s", data)
	}
}

func TestExport_OnlyIndexesSkipsConfigAndSessions(t *testing.T) {
	configDir := t.TempDir()
	seedConfigDir(t, configDir, "M01", time.Now())

	var buf bytes.Buffer
	m, err := Export(&buf, ExportOptions{ConfigDir: configDir, Only: []string{SectionIndexes}})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if m.Contents.Config || m.Contents.Sessions {
		t.Fatalf("expected only indexes flagged, got %+v", m.Contents)
	}
	if m.Contents.Indexes != true || m.Stats.Disks != 1 {
		t.Fatalf("expected 1 disk indexed, got %+v", m)
	}
}

func TestImportForce_OverwritesDestinationIndexes(t *testing.T) {
	srcDir := t.TempDir()
	seedConfigDir(t, srcDir, "M01", time.Now())

	var buf bytes.Buffer
	if _, err := Export(&buf, ExportOptions{ConfigDir: srcDir, Only: []string{SectionIndexes}}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dstDir := t.TempDir()
	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	diff, err := Import(zr, ImportOptions{ConfigDir: dstDir, Mode: ModeForce})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(diff.DisksAdded) != 1 || diff.DisksAdded[0] != "M01" {
		t.Fatalf("expected M01 added, got %+v", diff)
	}

	store := index.New(dstDir)
	idx, err := store.LoadCentral()
	if err != nil {
		t.Fatalf("LoadCentral after import: %v", err)
	}
	if len(idx.Entries) != 1 {
		t.Fatalf("expected 1 entry after force import, got %d", len(idx.Entries))
	}
}

func TestImportMerge_NewerLastIndexedWins(t *testing.T) {
	srcDir := t.TempDir()
	older := time.Now().Add(-48 * time.Hour)
	newer := time.Now()
	seedConfigDir(t, srcDir, "M01", newer)

	dstDir := t.TempDir()
	seedConfigDir(t, dstDir, "M01", older)
	seedConfigDir(t, dstDir, "M02", newer)

	var buf bytes.Buffer
	if _, err := Export(&buf, ExportOptions{ConfigDir: srcDir, Only: []string{SectionIndexes}}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	diff, err := Import(zr, ImportOptions{ConfigDir: dstDir, Mode: ModeMerge})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(diff.DisksReplaced) != 1 || diff.DisksReplaced[0] != "M01" {
		t.Fatalf("expected M01 replaced by the newer archive copy, got %+v", diff)
	}

	store := index.New(dstDir)
	idx, err := store.LoadCentral()
	if err != nil {
		t.Fatalf("LoadCentral after merge: %v", err)
	}
	if _, ok := idx.Disks["M02"]; !ok {
		t.Fatal("expected untouched disk M02 to survive the merge")
	}
	if idx.Disks["M01"].LastIndexed.Before(older.Add(time.Hour)) {
		t.Fatalf("expected M01's LastIndexed to reflect the newer archive copy, got %v", idx.Disks["M01"].LastIndexed)
	}
}

func TestImportMerge_OlderArchiveCopyIsSkipped(t *testing.T) {
	srcDir := t.TempDir()
	older := time.Now().Add(-48 * time.Hour)
	newer := time.Now()
	seedConfigDir(t, srcDir, "M01", older)

	dstDir := t.TempDir()
	seedConfigDir(t, dstDir, "M01", newer)

	var buf bytes.Buffer
	if _, err := Export(&buf, ExportOptions{ConfigDir: srcDir, Only: []string{SectionIndexes}}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	diff, err := Import(zr, ImportOptions{ConfigDir: dstDir, Mode: ModeMerge})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(diff.DisksKept) != 1 || diff.DisksKept[0] != "M01" {
		t.Fatalf("expected M01 kept (local copy newer), got %+v", diff)
	}
}

func TestImportDryRun_MutatesNothing(t *testing.T) {
	srcDir := t.TempDir()
	seedConfigDir(t, srcDir, "M01", time.Now())

	var buf bytes.Buffer
	if _, err := Export(&buf, ExportOptions{ConfigDir: srcDir, Only: []string{SectionIndexes}}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dstDir := t.TempDir()
	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	diff, err := Import(zr, ImportOptions{ConfigDir: dstDir, Mode: ModeDryRun})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(diff.DisksAdded) != 1 {
		t.Fatalf("expected dry-run diff to report the new disk, got %+v", diff)
	}

	if _, err := os.Stat(filepath.Join(dstDir, "central_index.json")); !os.IsNotExist(err) {
		t.Fatal("dry-run must not write anything to the destination")
	}
}

func TestImportSessions_AppendedNeverOverwritten(t *testing.T) {
	srcDir := t.TempDir()
	sessionDir := filepath.Join(srcDir, "sessions", "20260101_abc")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "plan.json"), []byte(`{"Version":"1.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "rollback.json"), []byte(`{"Version":"1.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := Export(&buf, ExportOptions{ConfigDir: srcDir, Only: []string{SectionSessions}}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dstDir := t.TempDir()
	existingSession := filepath.Join(dstDir, "sessions", "20260101_abc")
	if err := os.MkdirAll(existingSession, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(existingSession, "plan.json"), []byte(`{"Version":"local"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	diff, err := Import(zr, ImportOptions{ConfigDir: dstDir, Mode: ModeForce})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(diff.SessionsSkipped) != 1 || diff.SessionsSkipped[0] != "20260101_abc" {
		t.Fatalf("expected the existing session to be skipped, got %+v", diff)
	}

	data, err := os.ReadFile(filepath.Join(existingSession, "plan.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("local")) {
		t.Fatal("expected the local session file to remain untouched")
	}
}

func TestImportBackupFirst_CopiesConfigTreeBeforeOverwrite(t *testing.T) {
	srcDir := t.TempDir()
	seedConfigDir(t, srcDir, "M01", time.Now())

	var buf bytes.Buffer
	if _, err := Export(&buf, ExportOptions{ConfigDir: srcDir, Only: []string{SectionIndexes}}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dstDir := t.TempDir()
	seedConfigDir(t, dstDir, "M02", time.Now())

	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if _, err := Import(zr, ImportOptions{ConfigDir: dstDir, Mode: ModeBackupFirst}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	backupCentral := filepath.Join(dstDir+".backup", "central_index.json")
	if _, err := os.Stat(backupCentral); err != nil {
		t.Fatalf("expected a pre-import backup of the config tree: %v", err)
	}
}
