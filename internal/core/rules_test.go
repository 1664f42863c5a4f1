package core

import (
	"testing"

	"kincore/internal/infra/persistence/memory"
	"kincore/pkg/domain"
)

type ruleCase struct {
	name   string
	ns     domain.Namespace
	kind   string
	params []string
	opts   []RuleOption
	want   []string
}

func runRuleCases(t *testing.T, db FilterDatabase, cases []ruleCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := mustRule(t, tc.ns, tc.kind, tc.params, tc.opts...)
			got := idsOf(t, db, mustFilter(t, tc.ns, tc.name, r))
			if !sameIDs(got, tc.want...) {
				t.Fatalf("%s%q: expected %v, got %v", tc.kind, tc.params, tc.want, got)
			}
			if r.Prepared() != 0 {
				t.Fatalf("rule left prepared")
			}
		})
	}
}

// fixtureLibrary holds single-person filters referenced by graph rules.
func fixtureLibrary(t *testing.T) *Library {
	t.Helper()
	lib := NewLibrary()
	for name, id := range map[string]string{"tom": "I0006", "robert": "I0003", "peter": "I0008", "sam": "I0009"} {
		if err := lib.Add(mustFilter(t, domain.NamespacePerson, name, mustRule(t, domain.NamespacePerson, "HasIDOf", []string{id}))); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	_ = lib.Add(mustFilter(t, domain.NamespacePerson, "males", mustRule(t, domain.NamespacePerson, "IsMale", nil)))
	return lib
}

func TestGenericRules(t *testing.T) {
	db := fixtureDB(fixtureLibrary(t))
	person := domain.NamespacePerson
	runRuleCases(t, db, []ruleCase{
		{name: "id", ns: person, kind: "HasIDOf", params: []string{"I0003"}, want: []string{"I0003"}},
		{name: "id regex", ns: person, kind: "HasIDOf", params: []string{"I000[12]"}, opts: []RuleOption{WithRegex()}, want: []string{"I0001", "I0002"}},
		{name: "id literal", ns: person, kind: "HasIDOf", params: []string{"I000[12]"}},
		{name: "tag", ns: person, kind: "HasTag", params: []string{"ToDo"}, want: []string{"I0007"}},
		{name: "unknown tag", ns: person, kind: "HasTag", params: []string{"Missing"}},
		{name: "refs greater", ns: person, kind: "HasReferenceCountOf", params: []string{"greater than", "1"}, want: []string{"I0003", "I0004"}},
		{name: "refs equal", ns: person, kind: "HasReferenceCountOf", params: []string{"", "0"}, want: []string{"I0010"}},
		{name: "refs less", ns: person, kind: "HasReferenceCountOf", params: []string{"less than", "1"}, want: []string{"I0010"}},
		{name: "tag refs", ns: domain.NamespaceTag, kind: "HasReferenceCountOf", params: []string{"", "1"}, want: []string{"T0001"}},
		{name: "private", ns: person, kind: "PrivateRecord", want: []string{"I0010"}},
		{name: "matches filter", ns: person, kind: "MatchesFilter", params: []string{"males"}, want: []string{"I0001", "I0003", "I0006", "I0008", "I0009"}},
		{name: "missing filter", ns: person, kind: "MatchesFilter", params: []string{"nope"}},
		{name: "everything notes", ns: domain.NamespaceNote, kind: "Everything", want: []string{"N0001"}},
		{name: "event id", ns: domain.NamespaceEvent, kind: "HasIDOf", params: []string{"E0002"}, want: []string{"E0002"}},
	})
}

func TestPersonRules(t *testing.T) {
	db := fixtureDB(nil)
	person := domain.NamespacePerson
	runRuleCases(t, db, []ruleCase{
		{name: "surname", ns: person, kind: "HasNameOf", params: []string{"", "smith", "", ""}, want: []string{"I0001", "I0002", "I0003", "I0004", "I0006", "I0007"}},
		{name: "surname case", ns: person, kind: "HasNameOf", params: []string{"", "smith", "", ""}, opts: []RuleOption{WithCaseSensitive()}},
		{name: "given regex", ns: person, kind: "HasNameOf", params: []string{"^(Tom|Sam)$", "", "", ""}, opts: []RuleOption{WithRegex()}, want: []string{"I0006", "I0009"}},
		{name: "nick", ns: person, kind: "HasNameOf", params: []string{"", "", "", "Tommy"}, want: []string{"I0006"}},
		{name: "male", ns: person, kind: "IsMale", want: []string{"I0001", "I0003", "I0006", "I0008", "I0009"}},
		{name: "female", ns: person, kind: "IsFemale", want: []string{"I0002", "I0004", "I0005", "I0007"}},
		{name: "unknown gender", ns: person, kind: "HasUnknownGender", want: []string{"I0010"}},
		{name: "disconnected", ns: person, kind: "Disconnected", want: []string{"I0010"}},
		{name: "birth", ns: person, kind: "HasBirth", params: []string{"1950", "Paris", ""}, want: []string{"I0006"}},
		{name: "birth before", ns: person, kind: "HasBirth", params: []string{"before 1900", "", ""}},
		{name: "birth elsewhere", ns: person, kind: "HasBirth", params: []string{"", "London", ""}},
		{name: "birth bad date", ns: person, kind: "HasBirth", params: []string{"someday", "", ""}, want: []string{"I0006"}},
		{name: "birth description", ns: person, kind: "HasBirth", params: []string{"", "", "home"}, want: []string{"I0006"}},
		{name: "death place", ns: person, kind: "HasDeath", params: []string{"", "London", ""}, want: []string{"I0001"}},
		{name: "death range", ns: person, kind: "HasDeath", params: []string{"between 1980 and 2000", "", ""}, want: []string{"I0001"}},
	})
}

func TestPersonGraphRules(t *testing.T) {
	db := fixtureDB(fixtureLibrary(t))
	person := domain.NamespacePerson
	runRuleCases(t, db, []ruleCase{
		{name: "ancestors", ns: person, kind: "IsAncestorOf", params: []string{"I0006", "1"}, want: []string{"I0006", "I0003", "I0005", "I0001", "I0002"}},
		{name: "ancestors exclusive", ns: person, kind: "IsAncestorOf", params: []string{"I0006", "0"}, want: []string{"I0003", "I0005", "I0001", "I0002"}},
		{name: "ancestors unknown", ns: person, kind: "IsAncestorOf", params: []string{"I9999", "1"}},
		{name: "ancestors default exclusive", ns: person, kind: "IsAncestorOf", params: []string{"I0006"}, want: []string{"I0003", "I0005", "I0001", "I0002"}},
		{name: "descendants", ns: person, kind: "IsDescendantOf", params: []string{"I0001", ""}, want: []string{"I0003", "I0004", "I0006", "I0007", "I0009"}},
		{name: "descendants inclusive", ns: person, kind: "IsDescendantOf", params: []string{"I0001", "1"}, want: []string{"I0001", "I0003", "I0004", "I0006", "I0007", "I0009"}},
		{name: "near ancestors", ns: person, kind: "IsLessThanNthGenerationAncestorOf", params: []string{"I0006", "2"}, want: []string{"I0006", "I0003", "I0005"}},
		{name: "far ancestors", ns: person, kind: "IsMoreThanNthGenerationAncestorOf", params: []string{"I0006", "3"}, want: []string{"I0001", "I0002"}},
		{name: "near descendants", ns: person, kind: "IsLessThanNthGenerationDescendantOf", params: []string{"I0001", "2"}, want: []string{"I0001", "I0003", "I0004"}},
		{name: "far descendants", ns: person, kind: "IsMoreThanNthGenerationDescendantOf", params: []string{"I0001", "3"}, want: []string{"I0006", "I0007", "I0009"}},
		{name: "bad generations", ns: person, kind: "IsLessThanNthGenerationAncestorOf", params: []string{"I0006", "x"}},
		{name: "ancestors of match", ns: person, kind: "IsAncestorOfFilterMatch", params: []string{"tom", "0"}, want: []string{"I0003", "I0005", "I0001", "I0002"}},
		{name: "descendants of match", ns: person, kind: "IsDescendantOfFilterMatch", params: []string{"robert", "1"}, want: []string{"I0003", "I0006", "I0007"}},
		{name: "common ancestor", ns: person, kind: "HasCommonAncestorWith", params: []string{"I0006"}, want: []string{"I0001", "I0002", "I0003", "I0004", "I0005", "I0006", "I0007", "I0009"}},
		{name: "common ancestor match", ns: person, kind: "HasCommonAncestorWithFilterMatch", params: []string{"peter"}, want: []string{"I0008", "I0009"}},
		{name: "relationship path", ns: person, kind: "RelationshipPathBetween", params: []string{"I0006", "I0009"}, want: []string{"I0001", "I0002", "I0003", "I0004", "I0006", "I0009"}},
		{name: "deep path", ns: person, kind: "DeepRelationshipPathBetween", params: []string{"I0006", "sam"}, want: []string{"I0006", "I0003", "I0004", "I0009"}},
		{name: "parents", ns: person, kind: "IsParentOfFilterMatch", params: []string{"tom"}, want: []string{"I0003", "I0005"}},
		{name: "children", ns: person, kind: "IsChildOfFilterMatch", params: []string{"robert"}, want: []string{"I0006", "I0007"}},
		{name: "spouses", ns: person, kind: "IsSpouseOfFilterMatch", params: []string{"robert"}, want: []string{"I0005"}},
		{name: "siblings", ns: person, kind: "IsSiblingOfFilterMatch", params: []string{"tom"}, want: []string{"I0007"}},
		{name: "siblings missing filter", ns: person, kind: "IsSiblingOfFilterMatch", params: []string{"nobody"}},
	})
}

func TestCommonAncestorThroughUnknownParents(t *testing.T) {
	store := memory.NewStore(nil)
	store.ImportState(memory.Snapshot{
		People: map[domain.Handle]domain.Person{
			"a": {Base: domain.Base{Handle: "a", ID: "I0001"}, ParentFamilies: handles("fx")},
			"b": {Base: domain.Base{Handle: "b", ID: "I0002"}, ParentFamilies: handles("fx")},
			"c": {Base: domain.Base{Handle: "c", ID: "I0003"}},
		},
		Families: map[domain.Handle]domain.Family{
			"fx": {Base: domain.Base{Handle: "fx", ID: "F0001"}, Children: handles("a", "b")},
		},
	})
	runRuleCases(t, WithLibrary(store, nil), []ruleCase{
		{name: "placeholder", ns: domain.NamespacePerson, kind: "HasCommonAncestorWith", params: []string{"I0001"}, want: []string{"I0001", "I0002"}},
	})
}

func TestFamilyRules(t *testing.T) {
	db := fixtureDB(nil)
	family := domain.NamespaceFamily
	runRuleCases(t, db, []ruleCase{
		{name: "married", ns: family, kind: "HasRelType", params: []string{"Married"}, want: []string{"F0001", "F0002"}},
		{name: "any rel", ns: family, kind: "HasRelType", params: []string{""}, want: []string{"F0001", "F0002", "F0003"}},
		{name: "father", ns: family, kind: "FatherHasNameOf", params: []string{"Peter"}, want: []string{"F0003"}},
		{name: "father regex", ns: family, kind: "FatherHasNameOf", params: []string{"^Robert"}, opts: []RuleOption{WithRegex()}, want: []string{"F0002"}},
		{name: "mother", ns: family, kind: "MotherHasNameOf", params: []string{"Smith"}, want: []string{"F0001", "F0003"}},
		{name: "child", ns: family, kind: "ChildHasNameOf", params: []string{"sam"}, want: []string{"F0003"}},
		{name: "family tag", ns: family, kind: "HasTag", params: []string{"ToDo"}},
	})
}

func TestEventRules(t *testing.T) {
	db := fixtureDB(nil)
	event := domain.NamespaceEvent
	runRuleCases(t, db, []ruleCase{
		{name: "type", ns: event, kind: "HasType", params: []string{"birth"}, want: []string{"E0001"}},
		{name: "data", ns: event, kind: "HasData", params: []string{"Death", "1990", "London", ""}, want: []string{"E0002"}},
		{name: "data place", ns: event, kind: "HasData", params: []string{"", "", "Paris", "home"}, want: []string{"E0001"}},
		{name: "data after", ns: event, kind: "HasData", params: []string{"", "after 2000", "", ""}},
		{name: "data about", ns: event, kind: "HasData", params: []string{"", "about 1960", "", ""}, want: []string{"E0001", "E0002"}},
	})
}

func TestRecordRules(t *testing.T) {
	db := fixtureDB(nil)
	runRuleCases(t, db, []ruleCase{
		{name: "source", ns: domain.NamespaceSource, kind: "HasSource", params: []string{"parish", "", "", ""}, want: []string{"S0001"}},
		{name: "source author", ns: domain.NamespaceSource, kind: "HasSource", params: []string{"", "Church", "", ""}},
		{name: "citation", ns: domain.NamespaceCitation, kind: "HasCitation", params: []string{"p. 12"}, want: []string{"C0001"}},
		{name: "place", ns: domain.NamespacePlace, kind: "HasTitle", params: []string{"Paris"}, want: []string{"P0001"}},
		{name: "note", ns: domain.NamespaceNote, kind: "HasText", params: []string{"bible"}, want: []string{"N0001"}},
		{name: "repository", ns: domain.NamespaceRepository, kind: "HasRepo", params: []string{"", "archive"}, want: []string{"R0001"}},
		{name: "media", ns: domain.NamespaceMedia, kind: "HasMedia", params: []string{"", "image/", ""}, want: []string{"O0001"}},
		{name: "media regex", ns: domain.NamespaceMedia, kind: "HasMedia", params: []string{`\.jpg$`, "", ""}, opts: []RuleOption{WithRegex()}, want: []string{"O0001"}},
	})
}
