package memory

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"kincore/pkg/domain"
)

// idPrefixes maps each namespace to the prefix of generated record IDs.
var idPrefixes = map[domain.Namespace]string{
	domain.NamespacePerson:     "I",
	domain.NamespaceFamily:     "F",
	domain.NamespaceEvent:      "E",
	domain.NamespaceSource:     "S",
	domain.NamespaceCitation:   "C",
	domain.NamespacePlace:      "P",
	domain.NamespaceRepository: "R",
	domain.NamespaceNote:       "N",
	domain.NamespaceMedia:      "O",
	domain.NamespaceTag:        "T",
}

// memoryState is never mutated once committed. Transactions fork it and copy
// a namespace bucket on its first write.
type memoryState struct {
	records map[domain.Namespace]map[domain.Handle]domain.Entity
	ids     map[domain.Namespace]map[string]domain.Handle
	refs    *referenceIndex
}

type referenceIndex struct {
	once   sync.Once
	counts map[domain.Handle]int
}

func newMemoryState() *memoryState {
	s := &memoryState{
		records: make(map[domain.Namespace]map[domain.Handle]domain.Entity, len(idPrefixes)),
		ids:     make(map[domain.Namespace]map[string]domain.Handle, len(idPrefixes)),
		refs:    &referenceIndex{},
	}
	for _, ns := range domain.Namespaces() {
		s.records[ns] = make(map[domain.Handle]domain.Entity)
		s.ids[ns] = make(map[string]domain.Handle)
	}
	return s
}

func (s *memoryState) fork() *memoryState {
	out := &memoryState{
		records: make(map[domain.Namespace]map[domain.Handle]domain.Entity, len(s.records)),
		ids:     make(map[domain.Namespace]map[string]domain.Handle, len(s.ids)),
		refs:    &referenceIndex{},
	}
	for ns, bucket := range s.records {
		out.records[ns] = bucket
	}
	for ns, bucket := range s.ids {
		out.ids[ns] = bucket
	}
	return out
}

// put stores e in a bucket the caller owns.
func (s *memoryState) put(e domain.Entity) {
	ns := e.EntityNamespace()
	s.records[ns][e.EntityHandle()] = cloneEntity(e)
	if id := e.EntityID(); id != "" {
		s.ids[ns][id] = e.EntityHandle()
	}
}

func (s *memoryState) referenceCount(h domain.Handle) int {
	s.refs.once.Do(func() { s.refs.counts = countReferences(s) })
	return s.refs.counts[h]
}

// countReferences counts, for every handle, the distinct records that
// reference it.
func countReferences(s *memoryState) map[domain.Handle]int {
	counts := make(map[domain.Handle]int)
	for _, bucket := range s.records {
		for _, e := range bucket {
			seen := make(map[domain.Handle]struct{})
			for _, target := range references(e) {
				if target == "" || target == e.EntityHandle() {
					continue
				}
				if _, dup := seen[target]; dup {
					continue
				}
				seen[target] = struct{}{}
				counts[target]++
			}
		}
	}
	return counts
}

func references(e domain.Entity) []domain.Handle {
	out := append([]domain.Handle(nil), e.TagHandles()...)
	switch rec := e.(type) {
	case domain.Person:
		out = append(out, rec.BirthRef, rec.DeathRef)
		for _, ref := range rec.Events {
			out = append(out, ref.Event)
		}
		out = append(out, rec.ParentFamilies...)
		out = append(out, rec.Families...)
	case domain.Family:
		out = append(out, rec.Father, rec.Mother)
		out = append(out, rec.Children...)
		for _, ref := range rec.Events {
			out = append(out, ref.Event)
		}
	case domain.Event:
		out = append(out, rec.Place)
	case domain.Citation:
		out = append(out, rec.Source)
	case domain.Place:
		out = append(out, rec.EnclosedBy...)
	}
	return out
}

// view exposes a state as a domain.Database.
type view struct {
	state *memoryState
}

var _ domain.TransactionView = view{}

func (v view) Get(ns domain.Namespace, h domain.Handle) (domain.Entity, bool) {
	e, ok := v.state.records[ns][h]
	if !ok {
		return nil, false
	}
	return cloneEntity(e), true
}

func (v view) FindByID(ns domain.Namespace, id string) (domain.Entity, bool) {
	h, ok := v.state.ids[ns][id]
	if !ok {
		return nil, false
	}
	return v.Get(ns, h)
}

func (v view) Person(h domain.Handle) (domain.Person, bool) {
	e, ok := v.Get(domain.NamespacePerson, h)
	if !ok {
		return domain.Person{}, false
	}
	p, ok := e.(domain.Person)
	return p, ok
}

func (v view) Family(h domain.Handle) (domain.Family, bool) {
	e, ok := v.Get(domain.NamespaceFamily, h)
	if !ok {
		return domain.Family{}, false
	}
	f, ok := e.(domain.Family)
	return f, ok
}

// Handles orders records by ID, then handle.
func (v view) Handles(ns domain.Namespace) []domain.Handle {
	bucket := v.state.records[ns]
	out := make([]domain.Handle, 0, len(bucket))
	for h := range bucket {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := bucket[out[i]].EntityID(), bucket[out[j]].EntityID()
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

func (v view) ReferenceCount(h domain.Handle) int { return v.state.referenceCount(h) }

// withBase applies fn to the Base of a copy of e.
func withBase(e domain.Entity, fn func(*domain.Base)) (domain.Entity, error) {
	switch rec := e.(type) {
	case domain.Person:
		fn(&rec.Base)
		return rec, nil
	case domain.Family:
		fn(&rec.Base)
		return rec, nil
	case domain.Event:
		fn(&rec.Base)
		return rec, nil
	case domain.Source:
		fn(&rec.Base)
		return rec, nil
	case domain.Citation:
		fn(&rec.Base)
		return rec, nil
	case domain.Place:
		fn(&rec.Base)
		return rec, nil
	case domain.Repository:
		fn(&rec.Base)
		return rec, nil
	case domain.Note:
		fn(&rec.Base)
		return rec, nil
	case domain.Media:
		fn(&rec.Base)
		return rec, nil
	case domain.Tag:
		fn(&rec.Base)
		return rec, nil
	default:
		return nil, fmt.Errorf("unsupported entity type %T", e)
	}
}

func cloneEntity(e domain.Entity) domain.Entity {
	switch rec := e.(type) {
	case domain.Person:
		rec.Tags = slices.Clone(rec.Tags)
		rec.AltNames = slices.Clone(rec.AltNames)
		rec.Events = slices.Clone(rec.Events)
		rec.ParentFamilies = slices.Clone(rec.ParentFamilies)
		rec.Families = slices.Clone(rec.Families)
		return rec
	case domain.Family:
		rec.Tags = slices.Clone(rec.Tags)
		rec.Children = slices.Clone(rec.Children)
		rec.Events = slices.Clone(rec.Events)
		return rec
	case domain.Place:
		rec.Tags = slices.Clone(rec.Tags)
		rec.EnclosedBy = slices.Clone(rec.EnclosedBy)
		return rec
	default:
		out, err := withBase(e, func(b *domain.Base) { b.Tags = slices.Clone(b.Tags) })
		if err != nil {
			return e
		}
		return out
	}
}
