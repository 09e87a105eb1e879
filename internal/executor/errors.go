package executor

import (
	"fmt"

	"github.com/opd-ai/cinetidy/pkg/types"
)

// ValidationError is a dry-run or preflight check failure: missing
// source, an already-occupied target, or insufficient free space.
type ValidationError struct {
	Operation types.Operation
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s operation: %s", e.Operation.Kind, e.Reason)
}

// IntegrityError is a checksum mismatch discovered during a Move. A
// destination mismatch (Abort set) takes down the whole plan: after a
// same-device rename it aborts at once, with no re-copy, since the
// source name is gone; after a cross-device copy it aborts once a single
// re-copy has also mismatched. A source that drifted since planning
// fails just that item, since nothing has been written yet.
type IntegrityError struct {
	Operation types.Operation
	Reason    string
	Abort     bool
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s operation: %s", e.Operation.Kind, e.Reason)
}

// ConflictError is a target that already exists where the operation
// contract requires it not to (WriteFile, or a collision the planner
// missed because the filesystem changed between planning and execution).
type ConflictError struct {
	Operation types.Operation
	Reason    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict for %s operation: %s", e.Operation.Kind, e.Reason)
}
