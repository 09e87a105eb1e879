package types

import "time"

// ReverseOperation is the recorded undo for one forward Operation. Its
// sequence number matches the forward operation it reverses.
type ReverseOperation struct {
	Seq      int
	Kind     OpKind
	Executed bool

	// Move: both paths and the verified checksum.
	From     string
	To       string
	Checksum string

	// Mkdir: the path, to be removed only if still empty.
	// WriteFile/Download: the created path, to be deleted only if
	// unchanged since creation (checksum re-verified against Checksum).
}

// RollbackDoc is produced incrementally during execution and fsync'd
// after each successful operation, so any partially executed plan
// remains fully reversible.
type RollbackDoc struct {
	Version     string
	PlanID      string
	ExecutedAt  time.Time
	Operations  []ReverseOperation
}

// RollbackOutcome is the per-operation disposition after a rollback
// attempt.
type RollbackOutcome string

const (
	RollbackRestored   RollbackOutcome = "restored"
	RollbackConflicted RollbackOutcome = "conflicted"
	RollbackMissing    RollbackOutcome = "missing"
)

// RollbackReport summarizes a completed rollback run.
type RollbackReport struct {
	Restored   []int // sequence numbers
	Conflicted []int
	Missing    []int
}
