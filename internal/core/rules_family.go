package core

import (
	"strings"

	"kincore/pkg/domain"
)

func familyRules() []RuleSpec {
	ns := domain.NamespaceFamily
	return []RuleSpec{
		{
			Kind: "HasRelType", Namespace: ns, Name: "Families with the relationship type",
			Description: "Matches families with the relationship type of a particular value",
			Category:    "General filters", Labels: []string{"Relationship type:"},
			New: func(b *RuleBase) Rule { return &hasRelType{b} },
		},
		{
			Kind: "FatherHasNameOf", Namespace: ns, Name: "Families with father with the <name>",
			Description: "Matches families whose father has a specified (partial) name",
			Category:    "Father filters", Labels: []string{"Name:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule { return &memberHasNameOf{b, fathers} },
		},
		{
			Kind: "MotherHasNameOf", Namespace: ns, Name: "Families with mother with the <name>",
			Description: "Matches families whose mother has a specified (partial) name",
			Category:    "Mother filters", Labels: []string{"Name:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule { return &memberHasNameOf{b, mothers} },
		},
		{
			Kind: "ChildHasNameOf", Namespace: ns, Name: "Families with child with the <name>",
			Description: "Matches families where child has a specified (partial) name",
			Category:    "Child filters", Labels: []string{"Name:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule { return &memberHasNameOf{b, children} },
		},
	}
}

type hasRelType struct{ *RuleBase }

func (r *hasRelType) Apply(_ FilterDatabase, e domain.Entity) bool {
	f, ok := e.(domain.Family)
	if !ok {
		return false
	}
	want := strings.TrimSpace(r.Param(0))
	return want == "" || strings.EqualFold(string(f.RelType), want)
}

func fathers(f domain.Family) []domain.Handle  { return []domain.Handle{f.Father} }
func mothers(f domain.Family) []domain.Handle  { return []domain.Handle{f.Mother} }
func children(f domain.Family) []domain.Handle { return f.Children }

// memberHasNameOf matches families where one of the selected members has a
// name containing the parameter.
type memberHasNameOf struct {
	*RuleBase
	members func(domain.Family) []domain.Handle
}

func (r *memberHasNameOf) Apply(db FilterDatabase, e domain.Entity) bool {
	f, ok := e.(domain.Family)
	if !ok {
		return false
	}
	for _, h := range r.members(f) {
		p, ok := personOf(db, h)
		if !ok {
			continue
		}
		for _, name := range p.AllNames() {
			if r.Match(0, name.Full()) {
				return true
			}
		}
	}
	return false
}
