package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

// The schema ships inside the binary; skladd runs the pending scripts at
// startup so a fresh database file is usable immediately.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

// MigrateUp applies every *.up.sql script in lexical order.
func MigrateUp(db *sql.DB) error {
	return runSchemaScripts(db, ".up.sql")
}

// MigrateDown rolls the schema back with the *.down.sql scripts.
func MigrateDown(db *sql.DB) error {
	return runSchemaScripts(db, ".down.sql")
}

func runSchemaScripts(db *sql.DB, suffix string) error {
	entries, err := schemaFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("storage: list migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := schemaFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("storage: read %s: %w", name, err)
		}
		if _, err := db.Exec(string(script)); err != nil {
			return fmt.Errorf("storage: apply %s: %w", name, err)
		}
	}
	return nil
}
