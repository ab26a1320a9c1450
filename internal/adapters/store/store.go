// Package store holds the ResultStore implementations: JSON files, SQLite,
// MySQL and an in-memory store for tests and dry runs.
package store

import (
	"io"

	"github.com/mikey/llm-scam-scanner/internal/core"
)

// Store is a ResultStore that owns resources released by Close
type Store interface {
	core.ResultStore
	io.Closer
}
