package domain

import (
	"context"
	"fmt"
	"strings"
)

// TransactionView provides read-only access to a consistent snapshot for checks.
type TransactionView interface {
	Database
}

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	// Create stores a new record, allocating a handle when none is set.
	Create(e Entity) (Entity, error)
	// Update replaces an existing record.
	Update(e Entity) (Entity, error)
	// Delete removes a record.
	Delete(ns Namespace, h Handle) error
}

// PersistentStore is a minimal abstraction over durable backends. Stores are
// also Databases so the query engine can read from them directly.
type PersistentStore interface {
	Database
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}

// Action indicates the type of modification performed.
type Action string

const (
	// ActionCreate indicates a record was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates a record was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a single mutation captured inside a transaction.
type Change struct {
	Namespace Namespace
	Action    Action
	Handle    Handle
	Before    Entity
	After     Entity
}

// Severity captures check outcomes.
type Severity string

const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn reports a problem but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed integrity check.
type Violation struct {
	Check     string
	Severity  Severity
	Message   string
	Namespace Namespace
	Handle    Handle
}

// Result aggregates violations from the check engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation blocks commit.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// CheckViolationError is returned when blocking violations are present.
type CheckViolationError struct {
	Result Result
}

func (e CheckViolationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	return fmt.Sprintf("integrity check blocked transaction: %s", strings.Join(msgs, "; "))
}

// Check is an integrity evaluation executed within a transaction boundary.
type Check interface {
	Name() string
	Evaluate(ctx context.Context, view TransactionView, changes []Change) (Result, error)
}

// CheckEngine orchestrates check evaluation.
type CheckEngine struct {
	checks []Check
}

// NewCheckEngine constructs an engine instance.
func NewCheckEngine(checks ...Check) *CheckEngine {
	e := &CheckEngine{}
	for _, c := range checks {
		e.Register(c)
	}
	return e
}

// Register appends a check to the engine.
func (e *CheckEngine) Register(check Check) {
	e.checks = append(e.checks, check)
}

// Evaluate executes all registered checks and aggregates their results.
func (e *CheckEngine) Evaluate(ctx context.Context, view TransactionView, changes []Change) (Result, error) {
	var combined Result
	if e == nil {
		return combined, nil
	}
	for _, check := range e.checks {
		res, err := check.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, fmt.Errorf("check %s: %w", check.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}
