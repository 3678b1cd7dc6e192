package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const kvSchemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	PRIMARY KEY (collection, key)
) WITHOUT ROWID;
`

// SQLite is a Backend persisting every collection in one SQLite table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of the per-key primitives.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(kvSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Collection returns a Provider scoped to name.
func (s *SQLite) Collection(name string) (Provider, error) {
	if name == "" {
		return nil, errors.New("storage: empty collection name")
	}
	return &sqliteCollection{conn: s.conn, name: name}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

type sqliteCollection struct {
	conn *sql.DB
	name string
}

func (c *sqliteCollection) Insert(key string, value []byte) error {
	_, err := c.conn.Exec(`
		INSERT INTO kv (collection, key, value) VALUES (?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value
	`, c.name, key, value)
	if err != nil {
		return fmt.Errorf("storage: insert %s/%s: %w", c.name, key, err)
	}
	return nil
}

func (c *sqliteCollection) Get(key string) ([]byte, bool, error) {
	var v []byte
	err := c.conn.QueryRow(`SELECT value FROM kv WHERE collection = ? AND key = ?`, c.name, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: get %s/%s: %w", c.name, key, err)
	}
	return v, true, nil
}

func (c *sqliteCollection) Remove(key string) ([]byte, bool, error) {
	tx, err := c.conn.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var v []byte
	err = tx.QueryRow(`SELECT value FROM kv WHERE collection = ? AND key = ?`, c.name, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: remove %s/%s: %w", c.name, key, err)
	}
	if _, err := tx.Exec(`DELETE FROM kv WHERE collection = ? AND key = ?`, c.name, key); err != nil {
		return nil, false, fmt.Errorf("storage: remove %s/%s: %w", c.name, key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("storage: commit: %w", err)
	}
	return v, true, nil
}

func (c *sqliteCollection) Values() ([][]byte, error) {
	rows, err := c.conn.Query(`SELECT value FROM kv WHERE collection = ? ORDER BY key`, c.name)
	if err != nil {
		return nil, fmt.Errorf("storage: values %s: %w", c.name, err)
	}
	defer rows.Close()

	out := [][]byte{}
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
