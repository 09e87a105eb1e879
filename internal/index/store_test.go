package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/cinetidy/pkg/types"
)

func sampleEntry(id string, tmdb, year int, label string) types.IndexEntry {
	return types.IndexEntry{
		ID:        id,
		DiskLabel: label,
		MediaKind: types.MediaKindMovie,
		Record: types.LookupRecord{
			TMDBID:    tmdb,
			Year:      year,
			Directors: []string{"Jane Director"},
			Genres:    []string{"Action"},
			Country:   "US",
		},
	}
}

func TestStore_UpdateAndRebuild(t *testing.T) {
	tmp := t.TempDir()
	s := New(tmp)

	disk := types.DiskRecord{Label: "M01", UUID: "disk-uuid-1", MovieBasePath: "/mnt/m01"}
	entries := []types.IndexEntry{sampleEntry("e1", 27205, 2010, "M01"), sampleEntry("e2", 603, 1999, "M01")}

	idx, err := s.Update(disk, entries)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(idx.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(idx.Entries))
	}
	if _, ok := idx.Disks["M01"]; !ok {
		t.Error("expected disk M01 to be present in merged index")
	}
	if len(idx.ByYear[2010]) != 1 || len(idx.ByYear[1999]) != 1 {
		t.Errorf("expected secondary year index to contain both entries, got %+v", idx.ByYear)
	}
	if len(idx.ByDirector["Jane Director"]) != 2 {
		t.Errorf("expected director index to have 2 entries, got %d", len(idx.ByDirector["Jane Director"]))
	}

	reloaded, err := s.LoadCentral()
	if err != nil {
		t.Fatalf("LoadCentral failed: %v", err)
	}
	if len(reloaded.Entries) != 2 {
		t.Fatalf("reloaded index has wrong entry count: %d", len(reloaded.Entries))
	}
}

func TestStore_RemoveDropsDiskAndRebuildsMerged(t *testing.T) {
	tmp := t.TempDir()
	s := New(tmp)

	if _, err := s.Update(types.DiskRecord{Label: "M01"}, []types.IndexEntry{sampleEntry("e1", 1, 2001, "M01")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update(types.DiskRecord{Label: "M02"}, []types.IndexEntry{sampleEntry("e2", 2, 2002, "M02")}); err != nil {
		t.Fatal(err)
	}

	idx, err := s.Remove("M01")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := idx.Disks["M01"]; ok {
		t.Error("expected M01 to be removed from merged index")
	}
	if len(idx.Entries) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", len(idx.Entries))
	}
}

func TestStore_SaveCentralBacksUpPriorVersion(t *testing.T) {
	tmp := t.TempDir()
	s := New(tmp)

	if err := s.SaveCentral(types.CentralIndex{Disks: map[string]types.DiskRecord{}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCentral(types.CentralIndex{Disks: map[string]types.DiskRecord{"X": {}}}); err != nil {
		t.Fatal(err)
	}

	backupPath := filepath.Join(tmp, "central_index.json.backup")
	if _, err := s.LoadCentral(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Errorf("expected a .backup file after the second SaveCentral call: %v", err)
	}
}
