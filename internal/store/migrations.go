package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
)

// RunMigrations executes all pending SQL migrations under migrationsPath,
// adapted from the teacher's db.RunMigrations (same tracking-table +
// up.sql-only + per-file transaction approach).
func RunMigrations(db *sql.DB, migrationsPath string, log *logging.Logger) error {
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	files, err := getMigrationFiles(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration files: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file, ".up.sql") {
			continue
		}
		if applied[file] {
			log.Debugf("migration %s already applied, skipping", file)
			continue
		}

		sqlContent, err := os.ReadFile(filepath.Join(migrationsPath, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		log.Infof("applying migration: %s", file)
		if err := applyMigration(db, file, string(sqlContent)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		log.Done("applied migration: %s", file)
	}

	log.Done("all migrations applied")
	return nil
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			version VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getAppliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func getMigrationFiles(migrationsPath string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.sql"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	sort.Strings(names)
	return names, nil
}

func applyMigration(db *sql.DB, version, sqlContent string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sqlContent); err != nil {
		return fmt.Errorf("execute migration SQL: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
