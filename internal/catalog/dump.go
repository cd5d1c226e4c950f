package catalog

import (
	"fmt"
	"os"
	"path/filepath"
)

// Debug dump file names.
const (
	FailedSearchDump = "debug_failed_search.html"
	ModelsDump       = "debug_models_dump.html"
)

// Dumper saves raw pages for offline diagnosis when navigation comes up empty.
// A Dumper with an empty directory writes nothing.
type Dumper struct {
	dir string
}

// NewDumper creates a Dumper writing into dir.
func NewDumper(dir string) *Dumper {
	return &Dumper{dir: dir}
}

// Dump writes html to name inside the dump directory and returns its path.
func (d *Dumper) Dump(name string, html []byte) (string, error) {
	if d == nil || d.dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create dump directory: %w", err)
	}
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, html, 0o600); err != nil {
		return "", fmt.Errorf("failed to write dump: %w", err)
	}
	return path, nil
}
