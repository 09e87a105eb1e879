// Package rollback implements the rollback engine (C8): reverse-order
// replay of a RollbackDoc with precondition re-checks, continuing past
// conflicts rather than aborting.
package rollback

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/opd-ai/cinetidy/pkg/types"
)

// Engine replays a RollbackDoc.
type Engine struct{}

// New constructs a rollback Engine.
func New() *Engine {
	return &Engine{}
}

// Run replays doc.Operations in reverse order. Each operation's
// precondition is re-checked before it is applied; a failed precondition
// is reported but non-fatal, and the engine continues with the next op.
// Rollback is itself not rollbackable: it emits no new RollbackDoc.
func (e *Engine) Run(doc types.RollbackDoc) types.RollbackReport {
	var report types.RollbackReport

	for i := len(doc.Operations) - 1; i >= 0; i-- {
		op := doc.Operations[i]
		if !op.Executed {
			continue
		}

		outcome := e.applyReverse(op)
		switch outcome {
		case types.RollbackRestored:
			report.Restored = append(report.Restored, op.Seq)
		case types.RollbackConflicted:
			report.Conflicted = append(report.Conflicted, op.Seq)
		case types.RollbackMissing:
			report.Missing = append(report.Missing, op.Seq)
		}
	}

	log.Info().
		Int("restored", len(report.Restored)).
		Int("conflicted", len(report.Conflicted)).
		Int("missing", len(report.Missing)).
		Msg("rollback complete")

	return report
}

func (e *Engine) applyReverse(op types.ReverseOperation) types.RollbackOutcome {
	switch op.Kind {
	case types.OpMove:
		return reverseMove(op)
	case types.OpDeleteIfUnchanged:
		return reverseDeleteIfUnchanged(op)
	case types.OpRmdir:
		return reverseRmdir(op)
	default:
		log.Warn().Int("seq", op.Seq).Str("kind", string(op.Kind)).Msg("unknown reverse operation kind, skipping")
		return types.RollbackConflicted
	}
}

// reverseMove moves op.From back to op.To, requiring op.From to exist and
// hash-match the recorded checksum, and op.To to be unoccupied.
func reverseMove(op types.ReverseOperation) types.RollbackOutcome {
	if _, err := os.Stat(op.From); os.IsNotExist(err) {
		log.Warn().Int("seq", op.Seq).Str("path", op.From).Msg("rollback move: current location missing")
		return types.RollbackMissing
	}

	if op.Checksum != "" {
		actual, err := hashFile(op.From)
		if err != nil || actual != op.Checksum {
			log.Warn().Int("seq", op.Seq).Str("path", op.From).Msg("rollback move: checksum no longer matches")
			return types.RollbackConflicted
		}
	}

	if _, err := os.Stat(op.To); err == nil {
		log.Warn().Int("seq", op.Seq).Str("path", op.To).Msg("rollback move: original location is occupied")
		return types.RollbackConflicted
	}

	if err := os.MkdirAll(filepath.Dir(op.To), 0o755); err != nil {
		log.Error().Err(err).Int("seq", op.Seq).Msg("rollback move: cannot recreate parent directory")
		return types.RollbackConflicted
	}
	if err := os.Rename(op.From, op.To); err != nil {
		log.Error().Err(err).Int("seq", op.Seq).Msg("rollback move: rename failed")
		return types.RollbackConflicted
	}

	return types.RollbackRestored
}

// reverseDeleteIfUnchanged removes op.To only if it still exists and its
// content hash has not drifted from the recorded checksum.
func reverseDeleteIfUnchanged(op types.ReverseOperation) types.RollbackOutcome {
	if _, err := os.Stat(op.To); os.IsNotExist(err) {
		return types.RollbackMissing
	}

	if op.Checksum != "" {
		actual, err := hashFile(op.To)
		if err != nil || actual != op.Checksum {
			log.Warn().Int("seq", op.Seq).Str("path", op.To).Msg("rollback delete: file changed since creation")
			return types.RollbackConflicted
		}
	}

	if err := os.Remove(op.To); err != nil {
		log.Error().Err(err).Int("seq", op.Seq).Msg("rollback delete: remove failed")
		return types.RollbackConflicted
	}
	return types.RollbackRestored
}

// reverseRmdir removes op.To only if it exists and is empty.
func reverseRmdir(op types.ReverseOperation) types.RollbackOutcome {
	info, err := os.Stat(op.To)
	if os.IsNotExist(err) {
		return types.RollbackMissing
	}
	if err != nil || !info.IsDir() {
		return types.RollbackConflicted
	}

	entries, err := os.ReadDir(op.To)
	if err != nil {
		return types.RollbackConflicted
	}
	if len(entries) > 0 {
		log.Warn().Int("seq", op.Seq).Str("dir", op.To).Int("entries", len(entries)).Msg("rollback rmdir: directory not empty")
		return types.RollbackConflicted
	}

	if err := os.Remove(op.To); err != nil {
		return types.RollbackConflicted
	}
	return types.RollbackRestored
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
