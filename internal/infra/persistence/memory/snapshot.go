package memory

import (
	"encoding/json"
	"fmt"

	"kincore/pkg/domain"
)

// Snapshot captures a point-in-time clone of the store state, one map per
// namespace keyed by handle.
type Snapshot struct {
	People       map[domain.Handle]domain.Person     `json:"people,omitempty"`
	Families     map[domain.Handle]domain.Family     `json:"families,omitempty"`
	Events       map[domain.Handle]domain.Event      `json:"events,omitempty"`
	Sources      map[domain.Handle]domain.Source     `json:"sources,omitempty"`
	Citations    map[domain.Handle]domain.Citation   `json:"citations,omitempty"`
	Places       map[domain.Handle]domain.Place      `json:"places,omitempty"`
	Repositories map[domain.Handle]domain.Repository `json:"repositories,omitempty"`
	Notes        map[domain.Handle]domain.Note       `json:"notes,omitempty"`
	Media        map[domain.Handle]domain.Media      `json:"media,omitempty"`
	Tags         map[domain.Handle]domain.Tag        `json:"tags,omitempty"`
}

func (s *Snapshot) buckets() map[domain.Namespace]any {
	return map[domain.Namespace]any{
		domain.NamespacePerson:     &s.People,
		domain.NamespaceFamily:     &s.Families,
		domain.NamespaceEvent:      &s.Events,
		domain.NamespaceSource:     &s.Sources,
		domain.NamespaceCitation:   &s.Citations,
		domain.NamespacePlace:      &s.Places,
		domain.NamespaceRepository: &s.Repositories,
		domain.NamespaceNote:       &s.Notes,
		domain.NamespaceMedia:      &s.Media,
		domain.NamespaceTag:        &s.Tags,
	}
}

// EncodeBuckets renders the snapshot as one JSON document per namespace,
// keyed by namespace name.
func (s Snapshot) EncodeBuckets() (map[string][]byte, error) {
	out := make(map[string][]byte, len(idPrefixes))
	for ns, target := range s.buckets() {
		data, err := json.Marshal(target)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", ns, err)
		}
		out[string(ns)] = data
	}
	return out, nil
}

// DecodeBucket loads one namespace document produced by EncodeBuckets.
// Unknown bucket names are ignored.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	target, ok := s.buckets()[domain.Namespace(bucket)]
	if !ok || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

// Entities lists every record of the snapshot in namespace order, each
// namespace ordered by ID.
func (s Snapshot) Entities() []domain.Entity {
	state := stateFromSnapshot(s)
	v := view{state: state}
	var out []domain.Entity
	for _, ns := range domain.Namespaces() {
		for _, h := range v.Handles(ns) {
			out = append(out, state.records[ns][h])
		}
	}
	return out
}

// Len reports the total number of records.
func (s Snapshot) Len() int {
	return len(s.People) + len(s.Families) + len(s.Events) + len(s.Sources) + len(s.Citations) +
		len(s.Places) + len(s.Repositories) + len(s.Notes) + len(s.Media) + len(s.Tags)
}

func snapshotFromState(state *memoryState) Snapshot {
	return Snapshot{
		People:       exportBucket[domain.Person](state.records[domain.NamespacePerson]),
		Families:     exportBucket[domain.Family](state.records[domain.NamespaceFamily]),
		Events:       exportBucket[domain.Event](state.records[domain.NamespaceEvent]),
		Sources:      exportBucket[domain.Source](state.records[domain.NamespaceSource]),
		Citations:    exportBucket[domain.Citation](state.records[domain.NamespaceCitation]),
		Places:       exportBucket[domain.Place](state.records[domain.NamespacePlace]),
		Repositories: exportBucket[domain.Repository](state.records[domain.NamespaceRepository]),
		Notes:        exportBucket[domain.Note](state.records[domain.NamespaceNote]),
		Media:        exportBucket[domain.Media](state.records[domain.NamespaceMedia]),
		Tags:         exportBucket[domain.Tag](state.records[domain.NamespaceTag]),
	}
}

func stateFromSnapshot(s Snapshot) *memoryState {
	state := newMemoryState()
	importBucket(state, s.People)
	importBucket(state, s.Families)
	importBucket(state, s.Events)
	importBucket(state, s.Sources)
	importBucket(state, s.Citations)
	importBucket(state, s.Places)
	importBucket(state, s.Repositories)
	importBucket(state, s.Notes)
	importBucket(state, s.Media)
	importBucket(state, s.Tags)
	return state
}

func exportBucket[T domain.Entity](records map[domain.Handle]domain.Entity) map[domain.Handle]T {
	out := make(map[domain.Handle]T, len(records))
	for h, e := range records {
		if rec, ok := cloneEntity(e).(T); ok {
			out[h] = rec
		}
	}
	return out
}

// importBucket fills in a missing record handle from its map key.
func importBucket[T domain.Entity](state *memoryState, records map[domain.Handle]T) {
	for h, rec := range records {
		e, err := withBase(rec, func(b *domain.Base) {
			if b.Handle == "" {
				b.Handle = h
			}
		})
		if err != nil {
			continue
		}
		state.put(e)
	}
}
