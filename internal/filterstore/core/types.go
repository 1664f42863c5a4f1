// Package core defines the storage abstraction for filter library documents
// shared by the filterstore drivers.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete filter document backend.
type Driver string

const (
	// DriverFilesystem stores documents under a local directory.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 stores documents in an S3 / MinIO compatible bucket.
	DriverS3     Driver = "s3"
	DriverMemory Driver = "memory" // in-memory (tests)
)

// Info describes a stored document.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store keeps filter library documents by key. Put replaces any existing
// document at the key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete returns (false, nil) when the key is absent.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns documents whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrNotFound is returned when a document key does not exist.
var ErrNotFound = errors.New("filterstore: document not found")
