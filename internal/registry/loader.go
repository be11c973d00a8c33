package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inferd/internal/common/fsutil"
	"inferd/pkg/types"
)

// GGUFScanner builds a model registry from *.gguf files in a directory.
type GGUFScanner struct{}

func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan lists *.gguf files (case-insensitive) directly under dir.
// ID and Name are the full file name; Path is absolute.
func (s *GGUFScanner) Scan(dir string) ([]types.Model, error) {
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
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		m := types.Model{ID: name, Name: name, Path: filepath.Join(abs, name)}
		if fi, err := e.Info(); err == nil {
			m.SizeBytes = fi.Size()
		}
		models = append(models, m)
	}
	return models, nil
}

// LoadDir is a convenience wrapper around a one-shot scan.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// Resolve maps a registry id or an absolute path to a model file path.
// Absolute paths are accepted as-is when the file exists.
func Resolve(models []types.Model, idOrPath string) (string, bool) {
	if filepath.IsAbs(idOrPath) {
		if fsutil.FileExists(idOrPath) {
			return idOrPath, true
		}
		return "", false
	}
	for _, m := range models {
		if m.ID == idOrPath {
			return m.Path, true
		}
	}
	return "", false
}
