// Package storage provides the ordered key-value substrate that backs the
// Goal and Milestone collections.
package storage

import "fmt"

// Provider is a byte-level ordered map holding one collection.
// Each primitive is atomic per key.
type Provider interface {
	// Insert stores value under key, replacing any previous value.
	Insert(key string, value []byte) error
	// Get returns the value stored under key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Remove deletes key and returns the value it held, if any.
	Remove(key string) ([]byte, bool, error)
	// Values returns every stored value in ascending key order.
	Values() ([][]byte, error)
}

// Backend hands out one Provider per named collection.
type Backend interface {
	Collection(name string) (Provider, error)
	Close() error
}

// Drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverFS     = "fs"
)

// Open returns the backend for driver. path is the database file for
// sqlite and the root directory for fs; memory ignores it.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverFS:
		return NewFS(path)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
