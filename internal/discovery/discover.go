package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	prefixFilesystem = "filesystem:"
	prefixClasspath  = "classpath:"
)

// ParseLocation strips the optional "filesystem:" prefix from a script
// location. Class path locations cannot be served and are rejected.
func ParseLocation(location string) (string, error) {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, prefixClasspath):
		return "", fmt.Errorf("unsupported script location %q: classpath locations are not available, use a filesystem path", location)
	case strings.HasPrefix(lower, prefixFilesystem):
		location = location[len(prefixFilesystem):]
	}
	if location == "" {
		return "", fmt.Errorf("empty script location")
	}
	return location, nil
}

// Resolve discovers the scripts behind every location and names them
// relative to the working directory, see ResolveFrom.
func Resolve(locations ...string) ([]DiscoveredFile, error) {
	return ResolveFrom("", locations...)
}

// ResolveFrom discovers the scripts behind every location. A location is a
// directory (searched recursively), a single .sql file or a doublestar glob
// pattern such as "migrations/**/*.sql"; relative locations are resolved
// against the working directory.
//
// RelativePath of every file is its path relative to base (the working
// directory when base is empty), whatever location found it. Files outside
// base are named by their absolute path. The result is ordered, see Sort.
func ResolveFrom(base string, locations ...string) ([]DiscoveredFile, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path of base directory: %w", err)
	}

	var files []DiscoveredFile
	seen := make(map[string]bool)

	for _, location := range locations {
		path, err := ParseLocation(location)
		if err != nil {
			return nil, err
		}

		var found []DiscoveredFile
		if isPattern(path) {
			found, err = DiscoverGlob(path)
		} else {
			found, err = discoverPath(path)
		}
		if err != nil {
			return nil, err
		}

		for _, f := range found {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			f.RelativePath = keyFor(absBase, f.Path)
			files = append(files, f)
		}
	}

	if err := checkKeys(files); err != nil {
		return nil, err
	}
	if err := Sort(files); err != nil {
		return nil, err
	}
	return files, nil
}

// keyFor names path relative to base, or absolute when it lies outside base
func keyFor(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// checkKeys refuses two files that would share a journal row
func checkKeys(files []DiscoveredFile) error {
	owner := make(map[string]string, len(files))
	for _, f := range files {
		if prev, ok := owner[f.RelativePath]; ok {
			return fmt.Errorf("scripts %s and %s both resolve to %s", prev, f.Path, f.RelativePath)
		}
		owner[f.RelativePath] = f.Path
	}
	return nil
}

func discoverPath(path string) ([]DiscoveredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("script location not found: %s", path)
		}
		return nil, fmt.Errorf("failed to access script location: %w", err)
	}

	if info.IsDir() {
		return Discover(path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return []DiscoveredFile{newFile(abs, filepath.Base(abs), info)}, nil
}

// Discover recursively finds all SQL files in the given directory
func Discover(rootPath string) ([]DiscoveredFile, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", absRoot)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absRoot)
	}

	var files []DiscoveredFile

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Skip directories we can't access
			if os.IsPermission(err) {
				return nil
			}
			return err
		}

		if info.IsDir() || !IsSQLFile(path) {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		files = append(files, newFile(path, relPath, info))
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}

// DiscoverGlob finds all SQL files matching a doublestar pattern. Relative
// paths are reported relative to the non-pattern prefix of the pattern.
func DiscoverGlob(pattern string) ([]DiscoveredFile, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	absBase, err := filepath.Abs(filepath.FromSlash(base))
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", pattern, err)
	}

	var files []DiscoveredFile
	for _, m := range matches {
		if !IsSQLFile(m) {
			continue
		}
		abs, err := filepath.Abs(m)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		relPath, err := filepath.Rel(absBase, abs)
		if err != nil {
			relPath = filepath.Base(abs)
		}
		files = append(files, newFile(abs, relPath, info))
	}

	return files, nil
}

// Sort orders files for execution: drop scripts first, then migrations by
// version, then plain scripts by relative path. Two migrations sharing a
// version (1 and 1.0 included) are an error.
func Sort(files []DiscoveredFile) error {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if ra, rb := rank(a.Type), rank(b.Type); ra != rb {
			return ra < rb
		}
		if a.Type == FileTypeMigration {
			if c := a.Version.Compare(b.Version); c != 0 {
				return c < 0
			}
		}
		return a.RelativePath < b.RelativePath
	})

	for i := 1; i < len(files); i++ {
		prev, cur := files[i-1], files[i]
		if cur.Type == FileTypeMigration && prev.Type == FileTypeMigration && cur.Version.Compare(prev.Version) == 0 {
			return fmt.Errorf("duplicate migration version %s: %s and %s", cur.Version, prev.RelativePath, cur.RelativePath)
		}
	}
	return nil
}

// Filter returns the files of the given types, keeping their order
func Filter(files []DiscoveredFile, types ...FileType) []DiscoveredFile {
	var filtered []DiscoveredFile
	for _, f := range files {
		for _, t := range types {
			if f.Type == t {
				filtered = append(filtered, f)
				break
			}
		}
	}
	return filtered
}

func rank(ft FileType) int {
	switch ft {
	case FileTypeDrop:
		return 0
	case FileTypeMigration:
		return 1
	default:
		return 2
	}
}

func newFile(path, relPath string, info os.FileInfo) DiscoveredFile {
	ft, version, name := ClassifyFile(filepath.Base(path))
	return DiscoveredFile{
		Path:         path,
		RelativePath: filepath.ToSlash(relPath),
		Type:         ft,
		Version:      version,
		Name:         name,
		ModTime:      info.ModTime(),
	}
}

func isPattern(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
