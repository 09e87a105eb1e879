// Package index implements the central index (C9): per-disk JSON stores,
// a merged searchable projection with secondary indices, and collection
// roll-up across disks.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/opd-ai/cinetidy/internal/fsatomic"
	"github.com/opd-ai/cinetidy/pkg/types"
)

// Store owns the on-disk layout under a configuration directory:
//
//	$CONFIG/central_index.json
//	$CONFIG/central_index.json.backup
//	$CONFIG/disk_indexes/{label}.json
type Store struct {
	ConfigDir string
}

// New constructs a Store rooted at configDir.
func New(configDir string) *Store {
	return &Store{ConfigDir: configDir}
}

func (s *Store) diskIndexPath(label string) string {
	return filepath.Join(s.ConfigDir, "disk_indexes", label+".json")
}

func (s *Store) centralIndexPath() string {
	return filepath.Join(s.ConfigDir, "central_index.json")
}

// diskIndexFile is the on-disk shape of one disk_indexes/{label}.json.
type diskIndexFile struct {
	Disk    types.DiskRecord
	Entries []types.IndexEntry
}

// SaveDisk writes one disk's index file atomically (step 1-2 of the
// update algorithm: write new per-disk file to temp, rename).
func (s *Store) SaveDisk(disk types.DiskRecord, entries []types.IndexEntry) error {
	data, err := json.MarshalIndent(diskIndexFile{Disk: disk, Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal disk index %s: %w", disk.Label, err)
	}
	if err := fsatomic.WriteFile(s.diskIndexPath(disk.Label), data, 0o644); err != nil {
		return fmt.Errorf("write disk index %s: %w", disk.Label, err)
	}
	return nil
}

// LoadDisk reads one disk's index file.
func (s *Store) LoadDisk(label string) (types.DiskRecord, []types.IndexEntry, error) {
	data, err := os.ReadFile(s.diskIndexPath(label))
	if err != nil {
		return types.DiskRecord{}, nil, fmt.Errorf("read disk index %s: %w", label, err)
	}
	var f diskIndexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return types.DiskRecord{}, nil, fmt.Errorf("parse disk index %s: %w", label, err)
	}
	return f.Disk, f.Entries, nil
}

// RemoveDisk deletes a disk's index file. The caller must call Rebuild
// and SaveCentral afterward to keep the merged projection consistent.
func (s *Store) RemoveDisk(label string) error {
	if err := os.Remove(s.diskIndexPath(label)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove disk index %s: %w", label, err)
	}
	return nil
}

// ListDiskLabels enumerates all persisted disk index files.
func (s *Store) ListDiskLabels() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.ConfigDir, "disk_indexes"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list disk indexes: %w", err)
	}
	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		labels = append(labels, e.Name()[:len(e.Name())-len(".json")])
	}
	sort.Strings(labels)
	return labels, nil
}

// Rebuild reconstructs the merged projection from every persisted
// per-disk file (step 3 of the update algorithm).
func (s *Store) Rebuild() (types.CentralIndex, error) {
	labels, err := s.ListDiskLabels()
	if err != nil {
		return types.CentralIndex{}, err
	}

	idx := types.CentralIndex{
		Disks:       make(map[string]types.DiskRecord, len(labels)),
		ByActor:     make(map[string][]string),
		ByDirector:  make(map[string][]string),
		ByGenre:     make(map[string][]string),
		ByYear:      make(map[int][]string),
		ByCountry:   make(map[string][]string),
		Collections: make(map[int]types.CollectionRollup),
	}

	for _, label := range labels {
		disk, entries, err := s.LoadDisk(label)
		if err != nil {
			return types.CentralIndex{}, err
		}
		idx.Disks[label] = disk
		idx.Entries = append(idx.Entries, entries...)
	}

	for _, e := range idx.Entries {
		indexEntry(&idx, e)
	}

	return idx, nil
}

func indexEntry(idx *types.CentralIndex, e types.IndexEntry) {
	r := e.Record
	for _, d := range r.Directors {
		idx.ByDirector[d] = append(idx.ByDirector[d], e.ID)
	}
	for _, c := range r.Cast {
		idx.ByActor[c.Name] = append(idx.ByActor[c.Name], e.ID)
	}
	for _, g := range r.Genres {
		idx.ByGenre[g] = append(idx.ByGenre[g], e.ID)
	}
	if r.Year != 0 {
		idx.ByYear[r.Year] = append(idx.ByYear[r.Year], e.ID)
	}
	if r.Country != "" {
		idx.ByCountry[r.Country] = append(idx.ByCountry[r.Country], e.ID)
	}
	if r.Collection != nil {
		roll := idx.Collections[r.Collection.ID]
		roll.CollectionID = r.Collection.ID
		roll.Name = r.Collection.Name
		roll.TotalKnown = len(r.Collection.AllMemberIDs)
		roll.OwnedIDs = append(roll.OwnedIDs, r.TMDBID)
		idx.Collections[r.Collection.ID] = roll
	}
}

// SaveCentral persists idx as the merged projection, backing up the
// prior version first (steps 4-6 of the update algorithm, atomic at the
// directory level via fsatomic.ReplaceWithBackup).
func (s *Store) SaveCentral(idx types.CentralIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal central index: %w", err)
	}
	if err := fsatomic.ReplaceWithBackup(s.centralIndexPath(), data, 0o644); err != nil {
		return fmt.Errorf("save central index: %w", err)
	}
	return nil
}

// LoadCentral reads the merged projection directly, without rebuilding
// from per-disk files. Readers should prefer this; it always opens a
// committed snapshot.
func (s *Store) LoadCentral() (types.CentralIndex, error) {
	data, err := os.ReadFile(s.centralIndexPath())
	if err != nil {
		return types.CentralIndex{}, fmt.Errorf("read central index: %w", err)
	}
	var idx types.CentralIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return types.CentralIndex{}, fmt.Errorf("parse central index: %w", err)
	}
	return idx, nil
}

// Update runs the full per-disk-write + rebuild + merged-save sequence
// for one disk's freshly scanned entries.
func (s *Store) Update(disk types.DiskRecord, entries []types.IndexEntry) (types.CentralIndex, error) {
	if err := s.SaveDisk(disk, entries); err != nil {
		return types.CentralIndex{}, err
	}
	idx, err := s.Rebuild()
	if err != nil {
		return types.CentralIndex{}, err
	}
	if err := s.SaveCentral(idx); err != nil {
		return types.CentralIndex{}, err
	}
	return idx, nil
}

// Remove drops a disk's entries entirely and rewrites the merged
// projection, implementing the `index remove` subcommand.
func (s *Store) Remove(label string) (types.CentralIndex, error) {
	if err := s.RemoveDisk(label); err != nil {
		return types.CentralIndex{}, err
	}
	idx, err := s.Rebuild()
	if err != nil {
		return types.CentralIndex{}, err
	}
	if err := s.SaveCentral(idx); err != nil {
		return types.CentralIndex{}, err
	}
	return idx, nil
}
