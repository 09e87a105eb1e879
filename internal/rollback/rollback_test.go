package rollback

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/cinetidy/pkg/types"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func sha(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func TestRun_MoveRestoresOriginalPath(t *testing.T) {
	tmp := t.TempDir()
	dst := filepath.Join(tmp, "library", "Movie (2023)", "movie.mkv")
	src := filepath.Join(tmp, "incoming", "movie.mkv")
	content := []byte("content")
	writeFile(t, dst, content)

	doc := types.RollbackDoc{
		Operations: []types.ReverseOperation{
			{Seq: 0, Kind: types.OpMove, From: dst, To: src, Checksum: sha(content), Executed: true},
		},
	}

	report := New().Run(doc)
	if len(report.Restored) != 1 {
		t.Fatalf("expected 1 restored, got %+v", report)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected original path to exist: %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("expected moved-from path to be gone")
	}
}

func TestRun_MoveConflictWhenChecksumDrifted(t *testing.T) {
	tmp := t.TempDir()
	dst := filepath.Join(tmp, "library", "movie.mkv")
	src := filepath.Join(tmp, "incoming", "movie.mkv")
	writeFile(t, dst, []byte("changed after execution"))

	doc := types.RollbackDoc{
		Operations: []types.ReverseOperation{
			{Seq: 0, Kind: types.OpMove, From: dst, To: src, Checksum: sha([]byte("original bytes")), Executed: true},
		},
	}

	report := New().Run(doc)
	if len(report.Conflicted) != 1 {
		t.Fatalf("expected 1 conflicted, got %+v", report)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatal("conflicted file should be left in place")
	}
}

func TestRun_MoveMissingWhenDestinationGone(t *testing.T) {
	tmp := t.TempDir()
	doc := types.RollbackDoc{
		Operations: []types.ReverseOperation{
			{Seq: 0, Kind: types.OpMove, From: filepath.Join(tmp, "gone.mkv"), To: filepath.Join(tmp, "back.mkv"), Executed: true},
		},
	}

	report := New().Run(doc)
	if len(report.Missing) != 1 {
		t.Fatalf("expected 1 missing, got %+v", report)
	}
}

func TestRun_DeleteIfUnchangedRemovesMatchingFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "tvshow.nfo")
	content := []byte("<tvshow></tvshow>")
	writeFile(t, path, content)

	doc := types.RollbackDoc{
		Operations: []types.ReverseOperation{
			{Seq: 0, Kind: types.OpDeleteIfUnchanged, To: path, Checksum: sha(content), Executed: true},
		},
	}

	report := New().Run(doc)
	if len(report.Restored) != 1 {
		t.Fatalf("expected 1 restored, got %+v", report)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected file to be removed")
	}
}

func TestRun_DeleteIfUnchangedSkipsModifiedFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "tvshow.nfo")
	writeFile(t, path, []byte("edited by hand"))

	doc := types.RollbackDoc{
		Operations: []types.ReverseOperation{
			{Seq: 0, Kind: types.OpDeleteIfUnchanged, To: path, Checksum: sha([]byte("original nfo bytes")), Executed: true},
		},
	}

	report := New().Run(doc)
	if len(report.Conflicted) != 1 {
		t.Fatalf("expected 1 conflicted, got %+v", report)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("modified file should not be deleted")
	}
}

func TestRun_RmdirRemovesEmptyDirOnly(t *testing.T) {
	tmp := t.TempDir()
	emptyDir := filepath.Join(tmp, "empty")
	nonEmptyDir := filepath.Join(tmp, "nonempty")
	if err := os.MkdirAll(emptyDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(nonEmptyDir, "leftover.txt"), []byte("x"))

	doc := types.RollbackDoc{
		Operations: []types.ReverseOperation{
			{Seq: 0, Kind: types.OpRmdir, To: emptyDir, Executed: true},
			{Seq: 1, Kind: types.OpRmdir, To: nonEmptyDir, Executed: true},
		},
	}

	report := New().Run(doc)
	if len(report.Restored) != 1 || len(report.Conflicted) != 1 {
		t.Fatalf("expected 1 restored + 1 conflicted, got %+v", report)
	}
	if _, err := os.Stat(emptyDir); !os.IsNotExist(err) {
		t.Error("expected empty directory to be removed")
	}
	if _, err := os.Stat(nonEmptyDir); err != nil {
		t.Error("expected non-empty directory to survive")
	}
}

func TestRun_ReversesInReverseOrder(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "a.nfo")
	b := filepath.Join(tmp, "dir", "b.nfo")
	writeFile(t, a, []byte("a"))
	writeFile(t, b, []byte("b"))

	doc := types.RollbackDoc{
		Operations: []types.ReverseOperation{
			{Seq: 0, Kind: types.OpDeleteIfUnchanged, To: a, Checksum: sha([]byte("a")), Executed: true},
			{Seq: 1, Kind: types.OpDeleteIfUnchanged, To: b, Checksum: sha([]byte("b")), Executed: true},
			{Seq: 2, Kind: types.OpRmdir, To: filepath.Dir(b), Executed: true},
		},
	}

	report := New().Run(doc)
	if len(report.Restored) != 3 {
		t.Fatalf("expected all 3 restored (rmdir only succeeds because b.nfo was removed first), got %+v", report)
	}
}

func TestRun_SkipsUnexecutedOperations(t *testing.T) {
	doc := types.RollbackDoc{
		Operations: []types.ReverseOperation{
			{Seq: 0, Kind: types.OpMove, From: "/nonexistent", To: "/also-nonexistent", Executed: false},
		},
	}
	report := New().Run(doc)
	if len(report.Restored)+len(report.Conflicted)+len(report.Missing) != 0 {
		t.Fatalf("expected unexecuted ops to be skipped entirely, got %+v", report)
	}
}
