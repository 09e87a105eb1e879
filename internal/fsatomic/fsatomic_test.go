package fsatomic

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "plan.json")

	if err := WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("contents = %q, want %q", got, "hello")
	}
}

func TestWriteFileOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, []byte("new"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("contents = %q, want %q", got, "new")
	}
}

func TestWriteStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.bin")
	if err := WriteStream(path, bytes.NewReader([]byte("streamed data")), 0o644); err != nil {
		t.Fatalf("WriteStream: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "streamed data" {
		t.Errorf("contents = %q, want %q", got, "streamed data")
	}
}

func TestWriteFileNoOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.json")

	if err := WriteFileNoOverwrite(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFileNoOverwrite (first write): %v", err)
	}

	err := WriteFileNoOverwrite(path, []byte("second"), 0o644)
	if err == nil {
		t.Fatal("WriteFileNoOverwrite (second write) = nil error, want refusal")
	}

	got, _ := os.ReadFile(path)
	if string(got) != "first" {
		t.Errorf("contents = %q, want unchanged %q", got, "first")
	}
}

func TestReplaceWithBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")

	if err := WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ReplaceWithBackup(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("ReplaceWithBackup: %v", err)
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile current: %v", err)
	}
	if string(current) != "v2" {
		t.Errorf("current contents = %q, want %q", current, "v2")
	}

	backup, err := os.ReadFile(path + ".backup")
	if err != nil {
		t.Fatalf("ReadFile backup: %v", err)
	}
	if string(backup) != "v1" {
		t.Errorf("backup contents = %q, want %q", backup, "v1")
	}
}

func TestReplaceWithBackupNoPriorFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fresh.json")

	if err := ReplaceWithBackup(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("ReplaceWithBackup: %v", err)
	}
	if _, err := os.Stat(path + ".backup"); !os.IsNotExist(err) {
		t.Errorf("backup file should not exist when there was no prior file, stat err = %v", err)
	}
}
