package core

import (
	"context"
	"strings"

	"kincore/pkg/domain"
)

func personRules() []RuleSpec {
	ns := domain.NamespacePerson
	return []RuleSpec{
		{
			Kind: "HasNameOf", Namespace: ns, Name: "People with the <name>",
			Description: "Matches people with a specified (partial) name", Category: "General filters",
			Labels: []string{"Given name:", "Surname:", "Suffix:", "Nickname:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule { return &hasNameOf{b} },
		},
		{
			Kind: "IsMale", Namespace: ns, Name: "Males", Description: "Matches all males",
			Category: "General filters",
			New:      func(b *RuleBase) Rule { return &hasGender{b, domain.GenderMale} },
		},
		{
			Kind: "IsFemale", Namespace: ns, Name: "Females", Description: "Matches all females",
			Category: "General filters",
			New:      func(b *RuleBase) Rule { return &hasGender{b, domain.GenderFemale} },
		},
		{
			Kind: "HasUnknownGender", Namespace: ns, Name: "People with unknown gender",
			Description: "Matches all people with unknown gender", Category: "General filters",
			New: func(b *RuleBase) Rule { return &hasGender{b, domain.GenderUnknown} },
		},
		{
			Kind: "Disconnected", Namespace: ns, Name: "Disconnected people",
			Description: "Matches people that have no family relationships to any other person",
			Category:    "General filters",
			New:         func(b *RuleBase) Rule { return &disconnected{b} },
		},
		{
			Kind: "HasBirth", Namespace: ns, Name: "People with the <birth data>",
			Description: "Matches people with birth data of a particular value", Category: "Event filters",
			Labels: []string{"Date:", "Place:", "Description:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule { return &hasVitalEvent{RuleBase: b, eventType: "Birth", vital: birthRef} },
		},
		{
			Kind: "HasDeath", Namespace: ns, Name: "People with the <death data>",
			Description: "Matches people with death data of a particular value", Category: "Event filters",
			Labels: []string{"Date:", "Place:", "Description:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule { return &hasVitalEvent{RuleBase: b, eventType: "Death", vital: deathRef} },
		},
	}
}

type hasNameOf struct{ *RuleBase }

func (r *hasNameOf) Apply(_ FilterDatabase, e domain.Entity) bool {
	p, ok := e.(domain.Person)
	if !ok {
		return false
	}
	for _, name := range p.AllNames() {
		if r.Match(0, name.Given) && r.Match(1, name.Surname) && r.Match(2, name.Suffix) && r.Match(3, name.Nick) {
			return true
		}
	}
	return false
}

type hasGender struct {
	*RuleBase
	gender domain.Gender
}

func (r *hasGender) Apply(_ FilterDatabase, e domain.Entity) bool {
	p, ok := e.(domain.Person)
	if !ok {
		return false
	}
	if r.gender == domain.GenderUnknown {
		return p.Gender != domain.GenderMale && p.Gender != domain.GenderFemale
	}
	return p.Gender == r.gender
}

type disconnected struct{ *RuleBase }

func (*disconnected) Apply(_ FilterDatabase, e domain.Entity) bool {
	p, ok := e.(domain.Person)
	return ok && len(p.ParentFamilies) == 0 && len(p.Families) == 0
}

func birthRef(p domain.Person) domain.Handle { return p.BirthRef }
func deathRef(p domain.Person) domain.Handle { return p.DeathRef }

// hasVitalEvent matches people with a primary event of eventType whose date,
// place title and description satisfy the parameters.
type hasVitalEvent struct {
	*RuleBase
	eventType string
	vital     func(domain.Person) domain.Handle
	date      domain.Date
}

func (r *hasVitalEvent) prepare(context.Context, FilterDatabase, domain.Progress) error {
	r.date = r.ParamDate(0)
	return nil
}

func (r *hasVitalEvent) Apply(db FilterDatabase, e domain.Entity) bool {
	p, ok := e.(domain.Person)
	if !ok {
		return false
	}
	candidates := make([]domain.Handle, 0, len(p.Events)+1)
	if h := r.vital(p); h != "" {
		candidates = append(candidates, h)
	}
	for _, ref := range p.Events {
		if ref.Role == "" || ref.Role == domain.RolePrimary {
			candidates = append(candidates, ref.Event)
		}
	}
	for _, h := range candidates {
		ev, ok := eventOf(db, h)
		if !ok || !strings.EqualFold(ev.Type, r.eventType) {
			continue
		}
		if !r.date.IsEmpty() && !ev.Date.Matches(r.date) {
			continue
		}
		if r.Param(1) != "" && !r.Match(1, placeTitle(db, ev.Place)) {
			continue
		}
		if !r.Match(2, ev.Description) {
			continue
		}
		return true
	}
	return false
}

func eventOf(db domain.Database, h domain.Handle) (domain.Event, bool) {
	if h == "" {
		return domain.Event{}, false
	}
	e, ok := db.Get(domain.NamespaceEvent, h)
	if !ok {
		return domain.Event{}, false
	}
	ev, ok := e.(domain.Event)
	return ev, ok
}

func placeTitle(db domain.Database, h domain.Handle) string {
	if h == "" {
		return ""
	}
	e, ok := db.Get(domain.NamespacePlace, h)
	if !ok {
		return ""
	}
	if place, ok := e.(domain.Place); ok {
		if place.Title != "" {
			return place.Title
		}
		return place.Name
	}
	return ""
}

func personOf(db domain.Database, h domain.Handle) (domain.Person, bool) {
	if h == "" {
		return domain.Person{}, false
	}
	return db.Person(h)
}
