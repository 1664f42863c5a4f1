package core

import (
	"context"
	"fmt"

	"kincore/pkg/domain"
)

// Op combines the results of a filter's rules.
type Op string

const (
	// OpAnd requires every rule to match.
	OpAnd Op = "and"
	// OpOr requires at least one rule to match.
	OpOr Op = "or"
	// OpOne requires exactly one rule to match.
	OpOne Op = "one"
)

// ParseOp resolves an op name; the empty string means OpAnd.
func ParseOp(value string) (Op, error) {
	switch Op(value) {
	case "", OpAnd:
		return OpAnd, nil
	case OpOr, OpOne:
		return Op(value), nil
	default:
		return "", fmt.Errorf("unknown filter op %q", value)
	}
}

// Filter is a named list of rules over one namespace.
type Filter struct {
	Name      string
	Namespace domain.Namespace
	Comment   string
	Op        Op
	Invert    bool
	rules     []Rule
}

// NewFilter constructs an and-composed filter.
func NewFilter(ns domain.Namespace, name string, rules ...Rule) (*Filter, error) {
	f := &Filter{Name: name, Namespace: ns, Op: OpAnd}
	for _, r := range rules {
		if err := f.AddRule(r); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AddRule appends a rule of the filter's namespace.
func (f *Filter) AddRule(r Rule) error {
	if r.Namespace() != f.Namespace {
		return fmt.Errorf("%w: %s rule %s in %s filter %q", ErrNamespaceMismatch, r.Namespace(), r.Kind(), f.Namespace, f.Name)
	}
	f.rules = append(f.rules, r)
	return nil
}

// Rules returns the filter's rules in evaluation order.
func (f *Filter) Rules() []Rule {
	return append([]Rule(nil), f.rules...)
}

// RequestPrepare prepares every rule. When one fails, rules prepared so far
// are reset before the error is returned.
func (f *Filter) RequestPrepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error {
	for i, r := range f.rules {
		if err := r.RequestPrepare(ctx, db, progress); err != nil {
			for _, done := range f.rules[:i] {
				done.RequestReset()
			}
			return err
		}
	}
	return nil
}

// RequestReset resets every rule.
func (f *Filter) RequestReset() {
	for _, r := range f.rules {
		r.RequestReset()
	}
}

// Match evaluates the filter against one entity. Rules must be prepared.
func (f *Filter) Match(db FilterDatabase, e domain.Entity) bool {
	return f.combine(db, e) != f.Invert
}

func (f *Filter) combine(db FilterDatabase, e domain.Entity) bool {
	switch f.Op {
	case OpOr:
		if len(f.rules) == 0 {
			return true
		}
		for _, r := range f.rules {
			if r.Apply(db, e) {
				return true
			}
		}
		return false
	case OpOne:
		matched := 0
		for _, r := range f.rules {
			if r.Apply(db, e) {
				matched++
				if matched > 1 {
					return false
				}
			}
		}
		return matched == 1
	default:
		for _, r := range f.rules {
			if !r.Apply(db, e) {
				return false
			}
		}
		return true
	}
}

// Apply prepares the filter, evaluates it against handles and resets it. Nil
// handles means every record of the filter's namespace. Cancellation through
// progress stops the scan and returns the matches found so far.
func (f *Filter) Apply(ctx context.Context, db FilterDatabase, handles []domain.Handle, progress domain.Progress) ([]domain.Handle, error) {
	progress = domain.ContextProgress(ctx, progress)
	if err := f.RequestPrepare(ctx, db, progress); err != nil {
		return nil, err
	}
	defer f.RequestReset()

	if handles == nil {
		handles = db.Handles(f.Namespace)
	}
	progress.Begin(f.Name, len(handles))
	defer progress.End()

	var matches []domain.Handle
	for _, h := range handles {
		if progress.Cancelled() {
			break
		}
		progress.Step()
		e, ok := db.Get(f.Namespace, h)
		if !ok {
			continue
		}
		if f.Match(db, e) {
			matches = append(matches, h)
		}
	}
	return matches, nil
}

// FilterDatabase is a Database that can also resolve named filters, as needed
// by rules that reference other filters.
type FilterDatabase interface {
	domain.Database
	Filter(ns domain.Namespace, name string) (*Filter, bool)
}

// WithLibrary pairs a database with a filter library. A nil library resolves
// no filters.
func WithLibrary(db domain.Database, lib *Library) FilterDatabase {
	if fdb, ok := db.(libraryDatabase); ok {
		db = fdb.Database
	}
	return libraryDatabase{Database: db, lib: lib}
}

type libraryDatabase struct {
	domain.Database
	lib *Library
}

func (l libraryDatabase) Filter(ns domain.Namespace, name string) (*Filter, bool) {
	if l.lib == nil {
		return nil, false
	}
	return l.lib.Get(ns, name)
}
