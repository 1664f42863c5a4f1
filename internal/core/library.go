package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"kincore/internal/filterstore"
	"kincore/pkg/domain"
)

// Library holds named filters per namespace. Filters in a library can
// reference each other through the MatchesFilter rule.
type Library struct {
	mu      sync.RWMutex
	filters map[domain.Namespace]map[string]*Filter

	// eval is held while a Service scans with filters resolved from this
	// library. Filters and rules keep their prepared state in place.
	eval sync.Mutex
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{filters: make(map[domain.Namespace]map[string]*Filter)}
}

// Add stores f, replacing any filter of the same namespace and name.
func (l *Library) Add(f *Filter) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("library filters must be named")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	byName, ok := l.filters[f.Namespace]
	if !ok {
		byName = make(map[string]*Filter)
		l.filters[f.Namespace] = byName
	}
	byName[f.Name] = f
	return nil
}

// Get returns the named filter.
func (l *Library) Get(ns domain.Namespace, name string) (*Filter, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.filters[ns][name]
	return f, ok
}

// Remove deletes the named filter, reporting whether it existed.
func (l *Library) Remove(ns domain.Namespace, name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.filters[ns][name]; !ok {
		return false
	}
	delete(l.filters[ns], name)
	return true
}

// Names lists the filter names of a namespace in sorted order.
func (l *Library) Names(ns domain.Namespace) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.filters[ns]))
	for name := range l.filters[ns] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filters returns every filter ordered by namespace then name.
func (l *Library) Filters() []*Filter {
	var out []*Filter
	for _, ns := range domain.Namespaces() {
		for _, name := range l.Names(ns) {
			f, _ := l.Get(ns, name)
			out = append(out, f)
		}
	}
	return out
}

type libraryDocument struct {
	Filters []filterDocument `yaml:"filters"`
}

type filterDocument struct {
	Namespace string         `yaml:"namespace"`
	Name      string         `yaml:"name"`
	Comment   string         `yaml:"comment,omitempty"`
	Op        string         `yaml:"op,omitempty"`
	Invert    bool           `yaml:"invert,omitempty"`
	Rules     []ruleDocument `yaml:"rules"`
}

type ruleDocument struct {
	Kind          string   `yaml:"kind"`
	Params        []string `yaml:"params,flow,omitempty"`
	UseRegex      bool     `yaml:"use_regex,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty"`
}

// LoadLibrary decodes a YAML library document, constructing rules through
// reg (the default registry when nil).
func LoadLibrary(r io.Reader, reg *Registry) (*Library, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	var doc libraryDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode filter library: %w", err)
	}
	lib := NewLibrary()
	for i, fd := range doc.Filters {
		f, err := fd.build(reg)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, fd.Name, err)
		}
		if err := lib.Add(f); err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return lib, nil
}

func (fd filterDocument) build(reg *Registry) (*Filter, error) {
	ns, ok := domain.ParseNamespace(fd.Namespace)
	if !ok {
		return nil, fmt.Errorf("unknown namespace %q", fd.Namespace)
	}
	op, err := ParseOp(fd.Op)
	if err != nil {
		return nil, err
	}
	f, err := NewFilter(ns, fd.Name)
	if err != nil {
		return nil, err
	}
	f.Comment = fd.Comment
	f.Op = op
	f.Invert = fd.Invert
	for _, rd := range fd.Rules {
		var opts []RuleOption
		if rd.UseRegex {
			opts = append(opts, WithRegex())
		}
		if rd.CaseSensitive {
			opts = append(opts, WithCaseSensitive())
		}
		rule, err := reg.New(ns, rd.Kind, rd.Params, opts...)
		if err != nil {
			return nil, err
		}
		if err := f.AddRule(rule); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Write encodes the library as a YAML document.
func (l *Library) Write(w io.Writer) error {
	doc := libraryDocument{Filters: []filterDocument{}}
	for _, f := range l.Filters() {
		fd := filterDocument{
			Namespace: string(f.Namespace),
			Name:      f.Name,
			Comment:   f.Comment,
			Invert:    f.Invert,
			Rules:     []ruleDocument{},
		}
		if f.Op != OpAnd {
			fd.Op = string(f.Op)
		}
		for _, r := range f.Rules() {
			fd.Rules = append(fd.Rules, ruleDocument{
				Kind:          r.Kind(),
				Params:        r.Params(),
				UseRegex:      r.UsesRegex(),
				CaseSensitive: r.IsCaseSensitive(),
			})
		}
		doc.Filters = append(doc.Filters, fd)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode filter library: %w", err)
	}
	return enc.Close()
}

// SaveLibrary writes lib to the filter store under key.
func SaveLibrary(ctx context.Context, store filterstore.Store, key string, lib *Library) error {
	var buf bytes.Buffer
	if err := lib.Write(&buf); err != nil {
		return err
	}
	if _, err := store.Put(ctx, key, &buf); err != nil {
		return fmt.Errorf("save filter library %s: %w", key, err)
	}
	return nil
}

// OpenLibrary reads the library stored under key. A missing document yields an
// empty library.
func OpenLibrary(ctx context.Context, store filterstore.Store, key string, reg *Registry) (*Library, error) {
	_, rc, err := store.Get(ctx, key)
	if errors.Is(err, filterstore.ErrNotFound) {
		return NewLibrary(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open filter library %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	return LoadLibrary(rc, reg)
}
