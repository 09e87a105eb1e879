// Package exportimport implements the archive export/import package
// (C10): a zip bundle of config, indexes, and session history, plus the
// merge/overwrite policies for bringing one machine's state into
// another's.
package exportimport

import "time"

// ManifestVersion is the archive format version written into
// manifest.json. Bump it only on a breaking layout change.
const ManifestVersion = "1.0"

// ContentFlags records which top-level sections an archive carries, so
// Import can tell a partial export (e.g. --only indexes) from a full one
// without inspecting the zip's file list.
type ContentFlags struct {
	Config         bool
	Indexes        bool
	Sessions       bool
	SecretsIncluded bool
}

// Stats is an aggregate snapshot of the exported state, useful for a
// dry-run diff without unpacking every entry.
type Stats struct {
	Disks        int
	MovieEntries int
	TVEntries    int
	Sessions     int
}

// Manifest is the archive's manifest.json.
type Manifest struct {
	Version   string
	CreatedBy string
	CreatedAt time.Time
	Contents  ContentFlags
	Stats     Stats
}
