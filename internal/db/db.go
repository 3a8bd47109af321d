// Package db opens the SQLite database behind the repositories and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const defaultPath = "freight.db"

// Open opens (or creates) the database file at path and applies pending migrations.
func Open(path string) (*sql.DB, error) {
	d, err := OpenRaw(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// OpenRaw opens the database with connection options but leaves the schema alone.
func OpenRaw(path string) (*sql.DB, error) {
	if path == "" {
		path = defaultPath
	}
	d, err := sql.Open("sqlite3", withConnOptions(path))
	if err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// withConnOptions appends go-sqlite3 DSN options. PRAGMAs issued through Exec only reach one
// pooled connection, DSN options reach all of them. Write transactions start IMMEDIATE so
// two writers queue on busy_timeout instead of failing on lock upgrade.
func withConnOptions(path string) string {
	opts := []string{"_busy_timeout=5000", "_foreign_keys=on", "_txlock=immediate"}
	if path != ":memory:" && !strings.Contains(path, "mode=memory") {
		opts = append(opts, "_journal_mode=WAL")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(opts, "&")
}

// InTx runs fn inside a transaction and commits when fn returns nil.
func InTx(ctx context.Context, d *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
