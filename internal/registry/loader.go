// Package registry discovers loadable models on disk so that requests can
// name them by a short id instead of a full path.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mlxd/internal/common/fsutil"
	"mlxd/pkg/types"
)

// LoadDir scans a directory for models and builds a registry from names.
// Two layouts are recognized: MLX-style model directories (a directory
// containing a config.json) and standalone *.gguf files. ID is the entry
// name; Path is the absolute location.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		name := e.Name()
		p := filepath.Join(abs, name)
		if e.IsDir() {
			if !fsutil.PathExists(filepath.Join(p, "config.json")) {
				continue
			}
			models = append(models, types.Model{ID: name, Path: p})
			continue
		}
		if strings.HasSuffix(strings.ToLower(name), ".gguf") {
			models = append(models, types.Model{ID: name, Path: p})
		}
	}
	return models, nil
}
