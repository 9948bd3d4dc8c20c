package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		versions := ListVersions(entry.FS)
		if len(versions) == 0 {
			t.Fatalf("expected %s version units, got none", entry.Dialect)
		}
		if versions[0] != "1.0.0" {
			t.Fatalf("expected %s versions to start at 1.0.0, got %q", entry.Dialect, versions[0])
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestFilesystems_VersionPayloadsSorted(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}

	for _, entry := range filesystems {
		for _, version := range ListVersions(entry.FS) {
			files, payloadErr := PayloadFiles(entry.FS, version)
			if payloadErr != nil {
				t.Fatalf("payload files %s/%s: %v", entry.Dialect, version, payloadErr)
			}
			if len(files) == 0 {
				t.Fatalf("expected %s/%s payload files, got none", entry.Dialect, version)
			}
			for i := 1; i < len(files); i++ {
				if files[i-1] >= files[i] {
					t.Fatalf("expected %s/%s payloads sorted, got %v", entry.Dialect, version, files)
				}
			}
		}
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestRegister_RequiresRegisterFunc(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected missing register function to fail")
	}
}

func TestSQLiteBaselinePayloads_Apply(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-baseline?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer func() { _ = db.Close() }()

	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	var sqliteFS fs.FS
	for _, entry := range filesystems {
		if entry.Dialect == DialectSQLite {
			sqliteFS = entry.FS
		}
	}
	if sqliteFS == nil {
		t.Fatalf("expected sqlite filesystem")
	}

	ctx := context.Background()
	for _, version := range ListVersions(sqliteFS) {
		files, payloadErr := PayloadFiles(sqliteFS, version)
		if payloadErr != nil {
			t.Fatalf("payload files %s: %v", version, payloadErr)
		}
		for _, file := range files {
			content, readErr := fs.ReadFile(sqliteFS, path.Join(version, file))
			if readErr != nil {
				t.Fatalf("read %s/%s: %v", version, file, readErr)
			}
			if _, execErr := db.ExecContext(ctx, string(content)); execErr != nil {
				t.Fatalf("apply %s/%s: %v", version, file, execErr)
			}
		}
	}

	requiredTables := []string{
		"authentications",
		"resources",
		"profiles",
		"scopes",
		"profile_scopes",
		"tokens",
		"token_scopes",
		"ticket_tokens",
		"almanac",
	}
	for _, tableName := range requiredTables {
		var count int
		if err := db.QueryRowContext(
			ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
			tableName,
		).Scan(&count); err != nil {
			t.Fatalf("query sqlite_master for %s: %v", tableName, err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist after applying payloads", tableName)
		}
	}
}
