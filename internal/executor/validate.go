package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/opd-ai/cinetidy/pkg/types"
)

// minFreeSpaceBytes is the floor enforced in addition to the 10% buffer
// over an operation's own size requirement.
const minFreeSpaceBytes = 100 * 1024 * 1024

// ValidateDryRun checks every operation in plan without mutating the
// filesystem: source existence, target non-existence where the contract
// forbids overwrite, destination directory writability, free space, and
// a duplicate-target scan across the whole plan. It emits no mutations
// and no RollbackDoc.
func ValidateDryRun(plan types.Plan) []error {
	var errs []error
	seen := make(map[string]string)

	for _, item := range plan.Items {
		for _, op := range item.Operations {
			if err := validateOp(op); err != nil {
				errs = append(errs, err)
			}
			if dest := destOf(op); dest != "" {
				if prior, ok := seen[dest]; ok && prior != item.ID {
					errs = append(errs, &ValidationError{Operation: op, Reason: fmt.Sprintf("target %q is also claimed by item %q", dest, prior)})
				}
				seen[dest] = item.ID
			}
		}
	}
	return errs
}

func destOf(op types.Operation) string {
	switch op.Kind {
	case types.OpMove, types.OpWriteFile, types.OpDownload:
		return op.DestPath
	default:
		return ""
	}
}

func validateOp(op types.Operation) error {
	switch op.Kind {
	case types.OpMkdir:
		return validateMkdir(op)
	case types.OpMove:
		return validateMove(op)
	case types.OpWriteFile, types.OpDownload:
		return validateWrite(op)
	default:
		return &ValidationError{Operation: op, Reason: fmt.Sprintf("unknown operation kind %q", op.Kind)}
	}
}

func validateMkdir(op types.Operation) error {
	if info, err := os.Stat(op.Path); err == nil && !info.IsDir() {
		return &ValidationError{Operation: op, Reason: "target path exists and is not a directory"}
	}
	return checkWritableAncestor(op.Path)
}

func validateMove(op types.Operation) error {
	info, err := os.Stat(op.SourcePath)
	if err != nil {
		return &ValidationError{Operation: op, Reason: fmt.Sprintf("source does not exist: %v", err)}
	}
	if info.IsDir() {
		return &ValidationError{Operation: op, Reason: "source is a directory, not a file"}
	}
	if op.SourcePath == op.DestPath {
		return nil
	}
	if _, err := os.Stat(op.DestPath); err == nil {
		return &ValidationError{Operation: op, Reason: "destination already exists"}
	}
	destDir := filepath.Dir(op.DestPath)
	if err := checkWritableAncestor(destDir); err != nil {
		return err
	}
	return checkDiskSpace(op, destDir, uint64(info.Size()))
}

func validateWrite(op types.Operation) error {
	if _, err := os.Stat(op.DestPath); err == nil {
		return &ValidationError{Operation: op, Reason: "destination already exists"}
	}
	return checkWritableAncestor(filepath.Dir(op.DestPath))
}

// checkWritableAncestor walks up from dir until it finds an existing
// ancestor and confirms the owner-writable bit is set. Unlike the
// teacher's checkWritable, it creates nothing: a dry run emits no
// mutations, so presence of the write bit is the best available signal
// short of actually writing.
func checkWritableAncestor(dir string) error {
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return &ValidationError{Reason: fmt.Sprintf("%q exists and is not a directory", dir)}
			}
			if info.Mode().Perm()&0o200 == 0 {
				return &ValidationError{Reason: fmt.Sprintf("%q is not writable", dir)}
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return &ValidationError{Reason: fmt.Sprintf("cannot stat %q: %v", dir, err)}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return &ValidationError{Reason: fmt.Sprintf("no existing ancestor found for %q", dir)}
		}
		dir = parent
	}
}

// checkDiskSpace mirrors the teacher's syscall.Statfs check: a 10%
// buffer over the operation's own size, floored at minFreeSpaceBytes.
func checkDiskSpace(op types.Operation, dir string, required uint64) error {
	required += required / 10
	if required < minFreeSpaceBytes {
		required = minFreeSpaceBytes
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return nil // best-effort; unsupported on non-Unix targets
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < required {
		return &ValidationError{Operation: op, Reason: fmt.Sprintf("insufficient free space at %q: need %d bytes, have %d", dir, required, available)}
	}
	return nil
}
