// Package memory provides an in-memory implementation of the persistent store
// used for tests, ephemeral environments and as the working set of the SQL
// snapshot stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"kincore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store provides an in-memory transactional store for genealogical records.
// Reads never block on writers for longer than a pointer swap.
type Store struct {
	mu     sync.RWMutex
	state  *memoryState
	engine *domain.CheckEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store that evaluates engine on every
// transaction. A nil engine runs no checks.
func NewStore(engine *domain.CheckEngine) *Store {
	if engine == nil {
		engine = domain.NewCheckEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// CheckEngine exposes the engine evaluated on commit.
func (s *Store) CheckEngine() *domain.CheckEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used to stamp changed records.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the time provider. A nil fn restores the wall clock.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

func (s *Store) current() view {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: s.state}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	return snapshotFromState(s.current().state)
}

// ImportState replaces the store state with the provided snapshot. Checks are
// not evaluated.
func (s *Store) ImportState(snapshot Snapshot) {
	state := stateFromSnapshot(snapshot)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// RunInTransaction applies fn to a private fork of the state, evaluates the
// check engine against the result and commits unless a blocking violation
// was found.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.fork(),
		owned: make(map[domain.Namespace]bool),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	res, err := s.engine.Evaluate(ctx, view{state: tx.state}, tx.changes)
	if err != nil {
		return domain.Result{}, err
	}
	if res.HasBlocking() {
		return res, domain.CheckViolationError{Result: res}
	}
	s.state = tx.state
	return res, nil
}

// View runs fn against the committed state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	return fn(s.current())
}

func (s *Store) Get(ns domain.Namespace, h domain.Handle) (domain.Entity, bool) {
	return s.current().Get(ns, h)
}

func (s *Store) FindByID(ns domain.Namespace, id string) (domain.Entity, bool) {
	return s.current().FindByID(ns, id)
}

func (s *Store) Person(h domain.Handle) (domain.Person, bool) { return s.current().Person(h) }

func (s *Store) Family(h domain.Handle) (domain.Family, bool) { return s.current().Family(h) }

func (s *Store) Handles(ns domain.Namespace) []domain.Handle { return s.current().Handles(ns) }

func (s *Store) ReferenceCount(h domain.Handle) int { return s.current().ReferenceCount(h) }

type transaction struct {
	state   *memoryState
	owned   map[domain.Namespace]bool
	changes []domain.Change
	now     time.Time
}

func (tx *transaction) Snapshot() domain.TransactionView { return view{state: tx.state} }

// writable returns the buckets of ns, copying them on first use.
func (tx *transaction) writable(ns domain.Namespace) (map[domain.Handle]domain.Entity, map[string]domain.Handle, error) {
	records, ok := tx.state.records[ns]
	if !ok {
		return nil, nil, fmt.Errorf("unknown namespace %q", ns)
	}
	if !tx.owned[ns] {
		copied := make(map[domain.Handle]domain.Entity, len(records)+1)
		for h, e := range records {
			copied[h] = e
		}
		ids := make(map[string]domain.Handle, len(tx.state.ids[ns])+1)
		for id, h := range tx.state.ids[ns] {
			ids[id] = h
		}
		tx.state.records[ns] = copied
		tx.state.ids[ns] = ids
		tx.owned[ns] = true
	}
	tx.state.refs = &referenceIndex{}
	return tx.state.records[ns], tx.state.ids[ns], nil
}

func (tx *transaction) nextID(ns domain.Namespace, ids map[string]domain.Handle) string {
	for n := len(ids) + 1; ; n++ {
		id := fmt.Sprintf("%s%04d", idPrefixes[ns], n)
		if _, taken := ids[id]; !taken {
			return id
		}
	}
}

// Create stores a new record, allocating a handle and an ID when unset.
func (tx *transaction) Create(e domain.Entity) (domain.Entity, error) {
	if e == nil {
		return nil, errors.New("create: nil entity")
	}
	ns := e.EntityNamespace()
	records, ids, err := tx.writable(ns)
	if err != nil {
		return nil, err
	}
	rec, err := withBase(e, func(b *domain.Base) {
		if b.Handle == "" {
			b.Handle = domain.Handle(uuid.NewString())
		}
		if b.ID == "" {
			b.ID = tx.nextID(ns, ids)
		}
		b.Changed = tx.now
	})
	if err != nil {
		return nil, err
	}
	h := rec.EntityHandle()
	if _, exists := records[h]; exists {
		return nil, fmt.Errorf("%s %q already exists", ns, h)
	}
	if other, taken := ids[rec.EntityID()]; taken {
		return nil, fmt.Errorf("%s id %q already used by %s", ns, rec.EntityID(), other)
	}
	tx.state.put(rec)
	tx.changes = append(tx.changes, domain.Change{Namespace: ns, Action: domain.ActionCreate, Handle: h, After: cloneEntity(rec)})
	return cloneEntity(rec), nil
}

// Update replaces an existing record. An empty ID keeps the current one.
func (tx *transaction) Update(e domain.Entity) (domain.Entity, error) {
	if e == nil {
		return nil, errors.New("update: nil entity")
	}
	ns := e.EntityNamespace()
	records, ids, err := tx.writable(ns)
	if err != nil {
		return nil, err
	}
	h := e.EntityHandle()
	before, ok := records[h]
	if !ok {
		return nil, fmt.Errorf("%s %q not found", ns, h)
	}
	rec, err := withBase(e, func(b *domain.Base) {
		if b.ID == "" {
			b.ID = before.EntityID()
		}
		b.Changed = tx.now
	})
	if err != nil {
		return nil, err
	}
	if id := rec.EntityID(); id != before.EntityID() {
		if other, taken := ids[id]; taken {
			return nil, fmt.Errorf("%s id %q already used by %s", ns, id, other)
		}
		delete(ids, before.EntityID())
	}
	tx.state.put(rec)
	tx.changes = append(tx.changes, domain.Change{Namespace: ns, Action: domain.ActionUpdate, Handle: h, Before: before, After: cloneEntity(rec)})
	return cloneEntity(rec), nil
}

// Delete removes a record. Dangling references left behind are reported by
// the integrity checks, not here.
func (tx *transaction) Delete(ns domain.Namespace, h domain.Handle) error {
	records, ids, err := tx.writable(ns)
	if err != nil {
		return err
	}
	before, ok := records[h]
	if !ok {
		return fmt.Errorf("%s %q not found", ns, h)
	}
	delete(records, h)
	delete(ids, before.EntityID())
	tx.changes = append(tx.changes, domain.Change{Namespace: ns, Action: domain.ActionDelete, Handle: h, Before: before})
	return nil
}
