// Package migrations brings the local database schema up to date from
// SQL scripts embedded at build time. Script files are named
// NNNN_description.sql and applied in ascending version order.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

//go:embed scripts/*.sql
var FS embed.FS

type script struct {
	version int
	name    string
	sql     string
}

// Run applies every script whose version is not yet recorded in the
// _migrations table. Each script runs in its own transaction together
// with the version bookkeeping, so a failed script leaves no trace.
func Run(db *sql.DB) error {
	if err := ensureTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	scripts, err := loadScripts()
	if err != nil {
		return fmt.Errorf("load migration scripts: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("read applied versions: %w", err)
	}

	for _, s := range scripts {
		if applied[s.version] {
			continue
		}
		if err := apply(db, s); err != nil {
			return fmt.Errorf("apply %s: %w", s.name, err)
		}
	}

	return nil
}

// Version returns the highest applied schema version, 0 for a fresh
// database.
func Version(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM _migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func ensureTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM _migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}

	return applied, rows.Err()
}

// loadScripts reads the embedded scripts sorted by version. Files whose
// name does not start with a numeric version are ignored.
func loadScripts() ([]script, error) {
	entries, err := fs.ReadDir(FS, "scripts")
	if err != nil {
		return nil, err
	}

	var scripts []script
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := strconv.Atoi(strings.SplitN(entry.Name(), "_", 2)[0])
		if err != nil {
			continue
		}

		// embed paths are always slash-separated.
		content, err := fs.ReadFile(FS, "scripts/"+entry.Name())
		if err != nil {
			return nil, err
		}

		scripts = append(scripts, script{
			version: version,
			name:    entry.Name(),
			sql:     string(content),
		})
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].version < scripts[j].version
	})
	return scripts, nil
}

func apply(db *sql.DB, s script) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(s.sql); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO _migrations (version) VALUES (?)", s.version); err != nil {
		return err
	}

	return tx.Commit()
}
