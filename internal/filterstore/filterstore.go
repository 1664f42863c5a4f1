// Package filterstore persists filter library documents. It wraps the
// driver implementations under internal/infra/filterstore so that callers
// depend only on the Store interface.
package filterstore

import (
	"context"
	"fmt"
	"os"

	"kincore/internal/filterstore/core"
	infraFS "kincore/internal/infra/filterstore/fs"
	infraMemory "kincore/internal/infra/filterstore/memory"
	infraS3 "kincore/internal/infra/filterstore/s3"
)

type (
	Store  = core.Store
	Info   = core.Info
	Driver = core.Driver
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrNotFound is returned when a document key does not exist.
var ErrNotFound = core.ErrNotFound

// S3Config configures the S3 driver.
type S3Config = infraS3.Config

// NewMemory returns an in-memory store.
func NewMemory() Store { return infraMemory.New() }

// NewFilesystem returns a store rooted at dir.
func NewFilesystem(dir string) (Store, error) { return infraFS.New(dir) }

// NewS3 returns an S3-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return infraS3.New(ctx, cfg) }

// Open selects a Store implementation using environment variables.
//
//	KINCORE_FILTERSTORE_DRIVER: fs|s3|memory (default fs)
//	KINCORE_FILTERSTORE_FS_ROOT: directory root when driver=fs (default ./filters)
//	(S3 specific variables documented in internal/infra/filterstore/s3)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("KINCORE_FILTERSTORE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("KINCORE_FILTERSTORE_FS_ROOT"))
	case DriverS3:
		return infraS3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown filterstore driver %s", driver)
	}
}
