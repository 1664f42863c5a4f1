package core

import (
	"context"
	"fmt"

	"kincore/internal/graph"
	"kincore/internal/infra/persistence/memory"
	"kincore/pkg/domain"
)

// Service runs filters and relationship queries against a persistent store
// and its filter library. Every operation is traced, measured, audited and
// logged through the configured collaborators.
//
// A Service is safe for concurrent use. Filter scans (RunFilter,
// EvaluateFilter, DeepRelationshipPath) share the library's Filter and Rule
// instances, so they run one at a time per library; lineage and path queries
// run in parallel. Code that applies library filters directly must not do so
// concurrently with the Service.
type Service struct {
	store   domain.PersistentStore
	library *Library
	checks  *domain.CheckEngine

	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for audit timestamps and durations.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithFilterLibrary sets the library named filters are resolved from.
func WithFilterLibrary(lib *Library) Option {
	return func(s *Service) {
		if lib != nil {
			s.library = lib
		}
	}
}

// WithChecks replaces the integrity checks run by CheckIntegrity.
func WithChecks(checks ...domain.Check) Option {
	return func(s *Service) { s.checks = domain.NewCheckEngine(checks...) }
}

// NewService constructs a service backed by store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		library: NewLibrary(),
		checks:  NewDefaultCheckEngine(),
		logger:  noopLogger{},
		clock:   ClockFunc(nil),
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewInMemoryService creates a service over an empty in-memory store that
// enforces the default integrity checks on every transaction.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(NewDefaultCheckEngine()), opts...)
}

// Store returns the underlying store.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Library returns the filter library.
func (s *Service) Library() *Library { return s.library }

func (s *Service) database() FilterDatabase { return WithLibrary(s.store, s.library) }

func (s *Service) applyFilter(ctx context.Context, f *Filter, handles []domain.Handle, progress domain.Progress) ([]domain.Handle, error) {
	s.library.eval.Lock()
	defer s.library.eval.Unlock()
	return f.Apply(ctx, s.database(), handles, progress)
}

func (s *Service) run(ctx context.Context, op string, ns domain.Namespace, subject string, fn func(context.Context) (int, error)) error {
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	results, err := fn(ctx)
	span.End(err)
	duration := s.clock.Now().Sub(started)
	s.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{
		Operation: op,
		Namespace: string(ns),
		Subject:   subject,
		Status:    AuditStatusSuccess,
		Results:   results,
		StartedAt: started,
		Duration:  duration,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("query failed", "operation", op, "subject", subject, "error", err)
	} else {
		s.logger.Debug("query completed", "operation", op, "subject", subject, "results", results, "duration", duration)
	}
	s.audit.Record(ctx, entry)
	return err
}

func (s *Service) resolvePerson(id string) (domain.Handle, error) {
	e, ok := s.store.FindByID(domain.NamespacePerson, id)
	if !ok {
		return "", ErrNotFound{Namespace: domain.NamespacePerson, ID: id}
	}
	return e.EntityHandle(), nil
}

// Apply runs fn inside a store transaction.
func (s *Service) Apply(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "apply", "", "", func(ctx context.Context) (int, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, fn)
		return len(res.Violations), err
	})
	return res, err
}

// RunFilter applies the named library filter to every record of ns.
func (s *Service) RunFilter(ctx context.Context, ns domain.Namespace, name string, progress domain.Progress) ([]domain.Handle, error) {
	var matches []domain.Handle
	err := s.run(ctx, "run_filter", ns, name, func(ctx context.Context) (int, error) {
		f, ok := s.library.Get(ns, name)
		if !ok {
			return 0, fmt.Errorf("%w: %s %q", ErrFilterNotFound, ns, name)
		}
		var err error
		matches, err = s.applyFilter(ctx, f, nil, progress)
		return len(matches), err
	})
	return matches, err
}

// EvaluateFilter applies an ad-hoc filter to handles, or to every record of
// its namespace when handles is nil.
func (s *Service) EvaluateFilter(ctx context.Context, f *Filter, handles []domain.Handle, progress domain.Progress) ([]domain.Handle, error) {
	var matches []domain.Handle
	err := s.run(ctx, "evaluate_filter", f.Namespace, f.Name, func(ctx context.Context) (int, error) {
		var err error
		matches, err = s.applyFilter(ctx, f, handles, progress)
		return len(matches), err
	})
	return matches, err
}

// Ancestors lists the ancestors of the person with id.
func (s *Service) Ancestors(ctx context.Context, id string, opts ...graph.Option) ([]graph.Visit, error) {
	return s.lineage(ctx, "ancestors", id, graph.Up, opts)
}

// Descendants lists the descendants of the person with id.
func (s *Service) Descendants(ctx context.Context, id string, opts ...graph.Option) ([]graph.Visit, error) {
	return s.lineage(ctx, "descendants", id, graph.Down, opts)
}

func (s *Service) lineage(ctx context.Context, op, id string, dir graph.Direction, opts []graph.Option) ([]graph.Visit, error) {
	var visits []graph.Visit
	err := s.run(ctx, op, domain.NamespacePerson, id, func(ctx context.Context) (int, error) {
		root, err := s.resolvePerson(id)
		if err != nil {
			return 0, err
		}
		all := append([]graph.Option{graph.WithProgress(domain.ContextProgress(ctx, nil))}, opts...)
		visits = graph.Traverse(s.store, []domain.Handle{root}, dir, all...)
		return len(visits), nil
	})
	return visits, err
}

// CommonAncestor reports whether the two people share any ancestor.
func (s *Service) CommonAncestor(ctx context.Context, id1, id2 string) (bool, error) {
	var shared bool
	err := s.run(ctx, "common_ancestor", domain.NamespacePerson, id1+","+id2, func(context.Context) (int, error) {
		a, err := s.resolvePerson(id1)
		if err != nil {
			return 0, err
		}
		b, err := s.resolvePerson(id2)
		if err != nil {
			return 0, err
		}
		shared = graph.HasCommonAncestor(s.store, a, b)
		if shared {
			return 1, nil
		}
		return 0, nil
	})
	return shared, err
}

// RelationshipPath returns the people on the ancestral path between two people.
func (s *Service) RelationshipPath(ctx context.Context, id1, id2 string) ([]domain.Handle, error) {
	var path []domain.Handle
	err := s.run(ctx, "relationship_path", domain.NamespacePerson, id1+","+id2, func(context.Context) (int, error) {
		a, err := s.resolvePerson(id1)
		if err != nil {
			return 0, err
		}
		b, err := s.resolvePerson(id2)
		if err != nil {
			return 0, err
		}
		path = graph.RelationshipPath(s.store, a, b).Sorted()
		return len(path), nil
	})
	return path, err
}

// DeepRelationshipPath returns the people on the shortest links from the
// person with id to everyone matched by the named person filter.
func (s *Service) DeepRelationshipPath(ctx context.Context, id, filterName string, progress domain.Progress) ([]domain.Handle, error) {
	var path []domain.Handle
	err := s.run(ctx, "deep_relationship_path", domain.NamespacePerson, id+","+filterName, func(ctx context.Context) (int, error) {
		root, err := s.resolvePerson(id)
		if err != nil {
			return 0, err
		}
		f, ok := s.library.Get(domain.NamespacePerson, filterName)
		if !ok {
			return 0, fmt.Errorf("%w: %s %q", ErrFilterNotFound, domain.NamespacePerson, filterName)
		}
		targets, err := s.applyFilter(ctx, f, nil, progress)
		if err != nil {
			return 0, err
		}
		path = graph.DeepRelationshipPath(s.store, root, graph.NewHandleSet(targets...), domain.ContextProgress(ctx, progress)).Sorted()
		return len(path), nil
	})
	return path, err
}

// ShortestPath returns the ordered chain of people linking two people, or nil
// when they are not connected.
func (s *Service) ShortestPath(ctx context.Context, id1, id2 string) ([]domain.Handle, error) {
	var path []domain.Handle
	err := s.run(ctx, "shortest_path", domain.NamespacePerson, id1+","+id2, func(context.Context) (int, error) {
		a, err := s.resolvePerson(id1)
		if err != nil {
			return 0, err
		}
		b, err := s.resolvePerson(id2)
		if err != nil {
			return 0, err
		}
		path = graph.ShortestPath(s.store, a, b)
		return len(path), nil
	})
	return path, err
}

// CheckIntegrity evaluates the configured checks over the whole store.
func (s *Service) CheckIntegrity(ctx context.Context) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "check_integrity", "", "", func(ctx context.Context) (int, error) {
		err := s.store.View(ctx, func(view domain.TransactionView) error {
			var err error
			res, err = s.checks.Evaluate(ctx, view, nil)
			return err
		})
		return len(res.Violations), err
	})
	return res, err
}
