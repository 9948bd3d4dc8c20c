package migrations

import (
	"slices"
	"testing"
	"testing/fstest"
)

func migrationTree(versions ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, version := range versions {
		fsys[version+"/001-schema.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}
	}
	return fsys
}

func TestListVersions_SortedAscending(t *testing.T) {
	fsys := migrationTree("1.0.1", "1.0.0", "1.1.0", "0.9.0")

	got := ListVersions(fsys)
	want := []string{"0.9.0", "1.0.0", "1.0.1", "1.1.0"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestListVersions_SkipsNonUnits(t *testing.T) {
	fsys := migrationTree("1.0.0")
	// loose file at the root
	fsys["README.md"] = &fstest.MapFile{Data: []byte("docs")}
	// directory that does not parse as a version
	fsys["common/001-helpers.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}
	// version directory with no payload
	fsys["2.0.0/nested/001-deep.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}

	got := ListVersions(fsys)
	want := []string{"1.0.0"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestListDirectoryVersions_MissingPath(t *testing.T) {
	if got := ListDirectoryVersions("/does/not/exist"); got != nil {
		t.Fatalf("expected nil for missing path, got %v", got)
	}
	if got := ListDirectoryVersions("  "); got != nil {
		t.Fatalf("expected nil for blank path, got %v", got)
	}
}

func TestRangeContains(t *testing.T) {
	rng := Range{Min: "1.0.0", Max: "1.1.1"}

	for _, version := range []string{"1.0.0", "1.0.5", "1.1.1"} {
		if !rng.Contains(version) {
			t.Fatalf("expected range to contain %s", version)
		}
	}
	for _, version := range []string{"0.9.9", "1.1.2", "2.0.0"} {
		if rng.Contains(version) {
			t.Fatalf("expected range to exclude %s", version)
		}
	}
}

func TestUnapplied_StrictlyGreaterWithinRange(t *testing.T) {
	fsys := migrationTree("1.0.0", "1.0.1", "1.1.0", "1.1.1", "1.1.2")

	got := Unapplied(fsys, "1.0.1", Range{Min: "1.0.1", Max: "1.1.1"})
	want := []string{"1.1.0", "1.1.1"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUnapplied_FreshDatabase(t *testing.T) {
	fsys := migrationTree("1.0.0", "1.0.1")

	got := Unapplied(fsys, "0.0.0", Range{Min: "1.0.0", Max: "1.0.1"})
	want := []string{"1.0.0", "1.0.1"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUnapplied_NothingPending(t *testing.T) {
	fsys := migrationTree("1.0.0", "1.0.1")

	got := Unapplied(fsys, "1.0.1", Range{Min: "1.0.0", Max: "1.0.1"})
	if len(got) != 0 {
		t.Fatalf("expected no pending versions, got %v", got)
	}
}

func TestPayloadFiles_LexicalOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"1.0.0/002-tokens.sql":  &fstest.MapFile{Data: []byte("SELECT 2;")},
		"1.0.0/001-core.sql":    &fstest.MapFile{Data: []byte("SELECT 1;")},
		"1.0.0/010-indexes.sql": &fstest.MapFile{Data: []byte("SELECT 3;")},
		"1.0.0/sub/ignored.sql": &fstest.MapFile{Data: []byte("SELECT 4;")},
	}

	got, err := PayloadFiles(fsys, "1.0.0")
	if err != nil {
		t.Fatalf("payload files: %v", err)
	}
	want := []string{"001-core.sql", "002-tokens.sql", "010-indexes.sql"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPayloadFiles_MissingVersion(t *testing.T) {
	fsys := migrationTree("1.0.0")
	if _, err := PayloadFiles(fsys, "9.9.9"); err == nil {
		t.Fatalf("expected missing version to error")
	}
}
