package core

import (
	"context"
	"sort"
	"testing"

	"kincore/internal/infra/persistence/memory"
	"kincore/pkg/domain"
)

// Three generations:
//
//	John (I0001) + Mary (I0002)       -> Robert (I0003), Alice (I0004)
//	Robert (I0003) + Emma (I0005)     -> Tom (I0006), Lucy (I0007)
//	Alice (I0004) + Peter (I0008)     -> Sam (I0009)
//
// Zed (I0010) is disconnected and private.
func person(h, id, given, surname string, g domain.Gender, parents, families []domain.Handle) domain.Person {
	return domain.Person{
		Base:           domain.Base{Handle: domain.Handle(h), ID: id},
		Name:           domain.Name{Given: given, Surname: surname},
		Gender:         g,
		ParentFamilies: parents,
		Families:       families,
	}
}

func handles(hs ...string) []domain.Handle {
	out := make([]domain.Handle, len(hs))
	for i, h := range hs {
		out[i] = domain.Handle(h)
	}
	return out
}

func fixtureSnapshot() memory.Snapshot {
	people := []domain.Person{
		person("p01", "I0001", "John", "Smith", domain.GenderMale, nil, handles("f01")),
		person("p02", "I0002", "Mary", "Jones", domain.GenderFemale, nil, handles("f01")),
		person("p03", "I0003", "Robert", "Smith", domain.GenderMale, handles("f01"), handles("f02")),
		person("p04", "I0004", "Alice", "Smith", domain.GenderFemale, handles("f01"), handles("f03")),
		person("p05", "I0005", "Emma", "Brown", domain.GenderFemale, nil, handles("f02")),
		person("p06", "I0006", "Tom", "Smith", domain.GenderMale, handles("f02"), nil),
		person("p07", "I0007", "Lucy", "Smith", domain.GenderFemale, handles("f02"), nil),
		person("p08", "I0008", "Peter", "Grey", domain.GenderMale, nil, handles("f03")),
		person("p09", "I0009", "Sam", "Grey", domain.GenderMale, handles("f03"), nil),
		person("p10", "I0010", "Zed", "Loner", domain.GenderUnknown, nil, nil),
	}
	people[5].BirthRef = "e01"
	people[5].Name.Nick = "Tommy"
	people[0].DeathRef = "e02"
	people[6].Tags = handles("t01")
	people[9].Private = true
	people[1].AltNames = []domain.Name{{Given: "Mary", Surname: "Smith"}}

	snap := memory.Snapshot{
		People: map[domain.Handle]domain.Person{},
		Families: map[domain.Handle]domain.Family{
			"f01": {Base: domain.Base{Handle: "f01", ID: "F0001"}, Father: "p01", Mother: "p02", Children: handles("p03", "p04"), RelType: domain.RelMarried},
			"f02": {Base: domain.Base{Handle: "f02", ID: "F0002"}, Father: "p03", Mother: "p05", Children: handles("p06", "p07"), RelType: domain.RelMarried},
			"f03": {Base: domain.Base{Handle: "f03", ID: "F0003"}, Father: "p08", Mother: "p04", Children: handles("p09"), RelType: domain.RelUnmarried},
		},
		Events: map[domain.Handle]domain.Event{
			"e01": {Base: domain.Base{Handle: "e01", ID: "E0001"}, Type: "Birth", Date: domain.Date{Year: 1950, Month: 3, Day: 2}, Place: "pl1", Description: "Home birth"},
			"e02": {Base: domain.Base{Handle: "e02", ID: "E0002"}, Type: "Death", Date: domain.Date{Year: 1990}, Place: "pl2"},
		},
		Places: map[domain.Handle]domain.Place{
			"pl1": {Base: domain.Base{Handle: "pl1", ID: "P0001"}, Title: "Paris, France", Name: "Paris"},
			"pl2": {Base: domain.Base{Handle: "pl2", ID: "P0002"}, Name: "London"},
		},
		Tags: map[domain.Handle]domain.Tag{
			"t01": {Base: domain.Base{Handle: "t01", ID: "T0001"}, Name: "ToDo"},
		},
		Notes: map[domain.Handle]domain.Note{
			"n01": {Base: domain.Base{Handle: "n01", ID: "N0001"}, Text: "Copied from the family bible"},
		},
		Sources: map[domain.Handle]domain.Source{
			"s01": {Base: domain.Base{Handle: "s01", ID: "S0001"}, Title: "Parish register", Author: "St. Mary"},
		},
		Citations: map[domain.Handle]domain.Citation{
			"c01": {Base: domain.Base{Handle: "c01", ID: "C0001"}, Source: "s01", Page: "p. 12"},
		},
		Repositories: map[domain.Handle]domain.Repository{
			"r01": {Base: domain.Base{Handle: "r01", ID: "R0001"}, Name: "County Archive", Type: "Archive"},
		},
		Media: map[domain.Handle]domain.Media{
			"o01": {Base: domain.Base{Handle: "o01", ID: "O0001"}, Path: "scans/wedding.jpg", MIME: "image/jpeg", Description: "Wedding photo"},
		},
	}
	for _, p := range people {
		snap.People[p.Handle] = p
	}
	return snap
}

func newFixtureStore() *memory.Store {
	store := memory.NewStore(NewDefaultCheckEngine())
	store.ImportState(fixtureSnapshot())
	return store
}

// fixtureDB pairs the fixture store with lib.
func fixtureDB(lib *Library) FilterDatabase {
	return WithLibrary(newFixtureStore(), lib)
}

func mustRule(t *testing.T, ns domain.Namespace, kind string, params []string, opts ...RuleOption) Rule {
	t.Helper()
	r, err := NewRule(ns, kind, params, opts...)
	if err != nil {
		t.Fatalf("new rule %s: %v", kind, err)
	}
	return r
}

func mustFilter(t *testing.T, ns domain.Namespace, name string, rules ...Rule) *Filter {
	t.Helper()
	f, err := NewFilter(ns, name, rules...)
	if err != nil {
		t.Fatalf("new filter %s: %v", name, err)
	}
	return f
}

// idsOf applies f to every record and returns the matched record IDs, sorted.
func idsOf(t *testing.T, db FilterDatabase, f *Filter) []string {
	t.Helper()
	matches, err := f.Apply(context.Background(), db, nil, nil)
	if err != nil {
		t.Fatalf("apply %s: %v", f.Name, err)
	}
	return handleIDs(db, f.Namespace, matches)
}

func handleIDs(db domain.Database, ns domain.Namespace, hs []domain.Handle) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		if e, ok := db.Get(ns, h); ok {
			out = append(out, e.EntityID())
		}
	}
	sort.Strings(out)
	return out
}

func sameIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	sort.Strings(want)
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// countingProgress records progress calls and cancels after cancelAfter steps
// when cancelAfter is positive.
type countingProgress struct {
	begins      int
	steps       int
	ends        int
	cancelAfter int
}

func (p *countingProgress) Begin(string, int) { p.begins++ }
func (p *countingProgress) Step()             { p.steps++ }
func (p *countingProgress) End()              { p.ends++ }
func (p *countingProgress) Cancelled() bool {
	return p.cancelAfter > 0 && p.steps >= p.cancelAfter
}
