package writer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Pruner deletes files in the output directory that no rep produces.
type Pruner struct {
	root string
	// exclude holds path components never descended into, e.g. ".git".
	exclude []string
	dryRun  bool
}

// NewPruner returns a pruner for outputDir. Files and directories whose
// path relative to outputDir has a component in exclude are kept. With
// dryRun, nothing is deleted and Prune only reports.
func NewPruner(outputDir string, exclude []string, dryRun bool) *Pruner {
	return &Pruner{root: outputDir, exclude: slices.Clone(exclude), dryRun: dryRun}
}

// Prune removes every file not in keep, then every directory left empty.
// It returns the removed (or, in dry-run mode, removable) paths, sorted.
func (p *Pruner) Prune(ctx context.Context, keep []string) ([]string, error) {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return nil, nil
	}

	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[filepath.Clean(k)] = true
	}

	var files, dirs []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == p.root {
			return nil
		}
		if p.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if !keepSet[filepath.Clean(path)] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan output directory: %w", err)
	}

	slices.Sort(files)
	if p.dryRun {
		return files, nil
	}

	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return nil, fmt.Errorf("prune %s: %w", f, err)
		}
		slog.Info("pruned", "path", f)
	}

	// Deepest first, so parents empty out before they are checked.
	slices.SortFunc(dirs, func(a, b string) int { return len(b) - len(a) })
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			return nil, fmt.Errorf("prune %s: %w", d, err)
		}
		if len(entries) == 0 {
			if err := os.Remove(d); err != nil {
				return nil, fmt.Errorf("prune %s: %w", d, err)
			}
		}
	}
	return files, nil
}

func (p *Pruner) excluded(path string) bool {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return false
	}
	for _, comp := range strings.Split(filepath.ToSlash(rel), "/") {
		if slices.Contains(p.exclude, comp) {
			return true
		}
	}
	return false
}
