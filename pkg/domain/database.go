package domain

import "context"

// Database is the read-only collaborator consumed by the query engine.
// Implementations resolve handles to records; dangling handles simply
// report false.
type Database interface {
	// Get resolves a handle within a namespace.
	Get(ns Namespace, h Handle) (Entity, bool)
	// FindByID resolves a user-visible record ID (for example I0001).
	FindByID(ns Namespace, id string) (Entity, bool)
	// Person resolves a person handle, including its parent-family and
	// own-family link lists.
	Person(h Handle) (Person, bool)
	// Family resolves a family handle, including father, mother and children.
	Family(h Handle) (Family, bool)
	// Handles enumerates all handles of a namespace in a stable order.
	Handles(ns Namespace) []Handle
	// ReferenceCount reports how many records reference h.
	ReferenceCount(h Handle) int
}

// Progress receives incremental progress for long-running scans and lets the
// caller cancel them cooperatively.
type Progress interface {
	Begin(message string, total int)
	Step()
	Cancelled() bool
	End()
}

// NoProgress is a Progress that reports nothing and never cancels.
var NoProgress Progress = noProgress{}

type noProgress struct{}

func (noProgress) Begin(string, int) {}
func (noProgress) Step()             {}
func (noProgress) Cancelled() bool   { return false }
func (noProgress) End()              {}

// OrNoProgress returns p, or NoProgress when p is nil.
func OrNoProgress(p Progress) Progress {
	if p == nil {
		return NoProgress
	}
	return p
}

// ContextProgress wraps p so that it also reports cancellation once ctx is done.
func ContextProgress(ctx context.Context, p Progress) Progress {
	return contextProgress{ctx: ctx, Progress: OrNoProgress(p)}
}

type contextProgress struct {
	ctx context.Context
	Progress
}

func (c contextProgress) Cancelled() bool {
	if c.ctx != nil && c.ctx.Err() != nil {
		return true
	}
	return c.Progress.Cancelled()
}
