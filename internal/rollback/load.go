package rollback

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/opd-ai/cinetidy/pkg/types"
)

// Load reads and parses a RollbackDoc written by the executor.
func Load(path string) (types.RollbackDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RollbackDoc{}, fmt.Errorf("read rollback doc %s: %w", path, err)
	}
	var doc types.RollbackDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return types.RollbackDoc{}, fmt.Errorf("parse rollback doc %s: %w", path, err)
	}
	return doc, nil
}
