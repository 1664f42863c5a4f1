package core

import (
	"fmt"
	"sort"
	"sync"

	"kincore/pkg/domain"
)

// RuleSpec describes a rule kind for construction and for filter editors.
type RuleSpec struct {
	Kind        string
	Namespace   domain.Namespace
	Name        string
	Description string
	Category    string
	// Labels names each positional parameter; its length is the expected arity.
	Labels     []string
	AllowRegex bool
	// New wraps an initialised base in the concrete rule kind.
	New func(*RuleBase) Rule
}

// Registry maps (namespace, kind) pairs to rule specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[domain.Namespace]map[string]RuleSpec
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[domain.Namespace]map[string]RuleSpec)}
}

// Register adds a rule kind. Registering the same kind twice for a namespace
// is an error.
func (r *Registry) Register(spec RuleSpec) error {
	if spec.Kind == "" || spec.Namespace == "" {
		return fmt.Errorf("rule spec requires kind and namespace")
	}
	if spec.New == nil {
		return fmt.Errorf("rule spec %s/%s has no constructor", spec.Namespace, spec.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byKind, ok := r.specs[spec.Namespace]
	if !ok {
		byKind = make(map[string]RuleSpec)
		r.specs[spec.Namespace] = byKind
	}
	if _, exists := byKind[spec.Kind]; exists {
		return fmt.Errorf("rule %s/%s already registered", spec.Namespace, spec.Kind)
	}
	byKind[spec.Kind] = spec
	return nil
}

// Lookup returns the spec for a rule kind.
func (r *Registry) Lookup(ns domain.Namespace, kind string) (RuleSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[ns][kind]
	return spec, ok
}

// Kinds lists the specs registered for a namespace sorted by kind.
func (r *Registry) Kinds(ns domain.Namespace) []RuleSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RuleSpec, 0, len(r.specs[ns]))
	for _, spec := range r.specs[ns] {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// New constructs a rule of the given kind.
func (r *Registry) New(ns domain.Namespace, kind string, params []string, opts ...RuleOption) (Rule, error) {
	spec, ok := r.Lookup(ns, kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownRule, ns, kind)
	}
	base := newRuleBase(spec, params, opts...)
	rule := spec.New(base)
	base.self = rule
	return rule, nil
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the registry of built-in rule kinds.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg := NewRegistry()
		for _, spec := range builtinRules() {
			if err := reg.Register(spec); err != nil {
				panic(err)
			}
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// NewRule constructs a built-in rule kind.
func NewRule(ns domain.Namespace, kind string, params []string, opts ...RuleOption) (Rule, error) {
	return DefaultRegistry().New(ns, kind, params, opts...)
}

func builtinRules() []RuleSpec {
	var specs []RuleSpec
	specs = append(specs, genericRules()...)
	specs = append(specs, personRules()...)
	specs = append(specs, personGraphRules()...)
	specs = append(specs, familyRules()...)
	specs = append(specs, eventRules()...)
	specs = append(specs, recordRules()...)
	return specs
}
