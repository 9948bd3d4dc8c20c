package migrations

import (
	"io/fs"
	"os"
	"slices"
	"strings"
)

// Range bounds the schema versions a build of the store knows how to operate.
// Min and Max are inclusive.
type Range struct {
	Min string
	Max string
}

// Contains reports whether version sits inside the range.
func (r Range) Contains(version string) bool {
	return Compare(version, r.Min) >= 0 && Compare(version, r.Max) <= 0
}

// ListVersions scans the root of fsys for migration units. An entry counts
// only when it is a directory whose name parses as a version and which holds
// at least one regular file (the migration payload). Entries that fail the
// probe for any reason are skipped, never fatal. Results come back sorted
// ascending.
func ListVersions(fsys fs.FS) []string {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil
	}

	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() {
			continue
		}
		if _, err := Parse(name); err != nil {
			continue
		}
		if !hasPayload(fsys, name) {
			continue
		}
		versions = append(versions, name)
	}

	slices.SortFunc(versions, Compare)
	return versions
}

// ListDirectoryVersions is the os-path convenience over ListVersions.
func ListDirectoryVersions(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return ListVersions(os.DirFS(path))
}

// Unapplied returns every cataloged version strictly greater than current and
// within rng, ascending: the exact sequence a migration runner applies to move
// a database from current up to rng.Max.
func Unapplied(fsys fs.FS, current string, rng Range) []string {
	out := []string{}
	for _, version := range ListVersions(fsys) {
		if Compare(version, current) <= 0 {
			continue
		}
		if !rng.Contains(version) {
			continue
		}
		out = append(out, version)
	}
	return out
}

// PayloadFiles lists the regular files of one migration unit in lexical order,
// the order the runner executes them in.
func PayloadFiles(fsys fs.FS, version string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, version)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, entry.Name())
	}
	slices.Sort(files)
	return files, nil
}

func hasPayload(fsys fs.FS, dir string) bool {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			return true
		}
	}
	return false
}
