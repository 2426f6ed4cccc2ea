// Package generator builds installer definitions from the build configuration
// and from directories on disk.
package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gersonkurz/msikit/internal/ir"
)

// Harvester adds the files of a directory tree to a definition, one
// component per file.
type Harvester struct {
	WorkDir string // Base for relative sources and excludes

	// Excluded folders (lowercase paths, in relative and absolute form)
	excluded map[string]bool
}

// NewHarvester creates a harvester that skips the given folders. Excludes may
// be absolute or relative to workDir.
func NewHarvester(workDir string, excludes []string) *Harvester {
	h := &Harvester{WorkDir: workDir, excluded: make(map[string]bool)}
	for _, folder := range excludes {
		h.Exclude(folder)
	}
	return h
}

// Exclude adds a folder to skip.
func (h *Harvester) Exclude(folder string) {
	if h.excluded == nil {
		h.excluded = make(map[string]bool)
	}
	folder = filepath.Clean(filepath.FromSlash(strings.ReplaceAll(folder, `\`, "/")))
	h.excluded[strings.ToLower(folder)] = true
	if !filepath.IsAbs(folder) {
		h.excluded[strings.ToLower(filepath.Join(h.base(), folder))] = true
	}
}

// Harvest walks dir in name order and adds every file that is not in an
// excluded folder. Component GUIDs derive from the upgrade code and the file's
// path, so the same tree yields the same GUIDs on every build. It returns the
// number of files added.
func (h *Harvester) Harvest(def *ir.Definition, dir string) (int, error) {
	root := h.resolve(dir)
	info, err := os.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("harvesting %s: %w", dir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("harvesting %s: not a directory", dir)
	}
	return h.walk(def, root, root)
}

func (h *Harvester) walk(def *ir.Definition, basePath, currentPath string) (int, error) {
	if h.isExcluded(currentPath, basePath) {
		return 0, nil
	}

	entries, err := os.ReadDir(currentPath)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", currentPath, err)
	}

	// Sort entries for deterministic output
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	count := 0
	for _, entry := range entries {
		fullPath := filepath.Join(currentPath, entry.Name())
		if entry.IsDir() {
			n, err := h.walk(def, basePath, fullPath)
			if err != nil {
				return count, err
			}
			count += n
			continue
		}
		if h.isExcluded(fullPath, basePath) {
			continue
		}
		if _, err := h.addFile(def, fullPath); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// AddFile adds a single file with a stable component GUID.
func (h *Harvester) AddFile(def *ir.Definition, source string) (ir.File, error) {
	path := h.resolve(source)
	info, err := os.Stat(path)
	if err != nil {
		return ir.File{}, fmt.Errorf("adding %s: %w", source, err)
	}
	if info.IsDir() {
		return ir.File{}, fmt.Errorf("adding %s: is a directory", source)
	}
	return h.addFile(def, path)
}

func (h *Harvester) addFile(def *ir.Definition, path string) (ir.File, error) {
	guid := ir.StableComponentID(def.Product.UpgradeCode, h.relative(path))
	if _, exists := def.Component(guid); exists {
		return ir.File{}, fmt.Errorf("%w: %s was already added", ir.ErrDuplicateID, path)
	}
	return def.AddFile(path, ir.FileOptions{Component: guid})
}

// isExcluded checks if a path should be excluded, matching against both absolute
// and relative forms (relative to basePath or WorkDir).
func (h *Harvester) isExcluded(path, basePath string) bool {
	if h.excluded[strings.ToLower(path)] {
		return true
	}
	if rel, err := filepath.Rel(basePath, path); err == nil && h.excluded[strings.ToLower(rel)] {
		return true
	}
	if rel, err := filepath.Rel(h.base(), path); err == nil && h.excluded[strings.ToLower(rel)] {
		return true
	}
	return false
}

// base returns WorkDir as an absolute path.
func (h *Harvester) base() string {
	abs, err := filepath.Abs(h.WorkDir)
	if err != nil {
		return h.WorkDir
	}
	return abs
}

// resolve returns path as an absolute path, relative ones taken from WorkDir.
func (h *Harvester) resolve(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.base(), path)
	}
	return filepath.Clean(path)
}

// relative returns path relative to WorkDir when it lies below it, so the
// component identity does not depend on where the build tree is checked out.
func (h *Harvester) relative(path string) string {
	rel, err := filepath.Rel(h.base(), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
