package core

import (
	"errors"
	"fmt"
	"strings"

	"kincore/pkg/domain"
)

var (
	// ErrUnknownRule is returned when a rule kind is not registered for a namespace.
	ErrUnknownRule = errors.New("unknown rule kind")
	// ErrNamespaceMismatch is returned when a rule is added to a filter of another namespace.
	ErrNamespaceMismatch = errors.New("rule namespace does not match filter")
	// ErrFilterNotFound is returned when a named filter is missing from the library.
	ErrFilterNotFound = errors.New("filter not found")
)

// FilterLoopError reports that preparing a rule nested deeper than LoopCeiling,
// which only happens when filters reference each other in a cycle.
type FilterLoopError struct {
	Kind      string
	Namespace domain.Namespace
	Params    []string
}

func (e *FilterLoopError) Error() string {
	return fmt.Sprintf("the filter definition contains a loop: one rule references another which eventually references the first (%s rule %s%s)",
		e.Namespace, e.Kind, formatParams(e.Params))
}

func formatParams(params []string) string {
	if len(params) == 0 {
		return ""
	}
	return "(" + strings.Join(params, ", ") + ")"
}

// ErrNotFound is returned when a record ID cannot be resolved.
type ErrNotFound struct {
	Namespace domain.Namespace
	ID        string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Namespace, e.ID)
}
