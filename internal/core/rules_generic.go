package core

import (
	"context"
	"strings"

	"kincore/pkg/domain"
)

// genericRules registers the rule kinds that apply to every namespace.
func genericRules() []RuleSpec {
	var specs []RuleSpec
	for _, ns := range domain.Namespaces() {
		specs = append(specs,
			RuleSpec{
				Kind: "Everything", Namespace: ns, Name: "Every record",
				Description: "Matches every record", Category: "General filters",
				New: func(b *RuleBase) Rule { return &everything{b} },
			},
			RuleSpec{
				Kind: "HasIDOf", Namespace: ns, Name: "Record with <Id>",
				Description: "Matches the record with a specified ID", Category: "General filters",
				Labels: []string{"ID:"}, AllowRegex: true,
				New: func(b *RuleBase) Rule { return &hasIDOf{b} },
			},
			RuleSpec{
				Kind: "HasTag", Namespace: ns, Name: "Records with the <tag>",
				Description: "Matches records with the particular tag", Category: "General filters",
				Labels: []string{"Tag:"},
				New:    func(b *RuleBase) Rule { return &hasTag{RuleBase: b} },
			},
			RuleSpec{
				Kind: "HasReferenceCountOf", Namespace: ns, Name: "Records with a reference count of <count>",
				Description: "Matches records with a certain reference count", Category: "General filters",
				Labels: []string{"Reference count must be:", "Reference count:"},
				New:    func(b *RuleBase) Rule { return &hasReferenceCountOf{RuleBase: b} },
			},
			RuleSpec{
				Kind: "MatchesFilter", Namespace: ns, Name: "Records matching the <filter>",
				Description: "Matches records matched by the specified filter name", Category: "General filters",
				Labels: []string{"Filter name:"},
				New:    func(b *RuleBase) Rule { return &matchesFilter{RuleBase: b} },
			},
			RuleSpec{
				Kind: "PrivateRecord", Namespace: ns, Name: "Records marked private",
				Description: "Matches records that are indicated as private", Category: "General filters",
				New: func(b *RuleBase) Rule { return &privateRecord{b} },
			},
		)
	}
	return specs
}

type everything struct{ *RuleBase }

func (*everything) Apply(FilterDatabase, domain.Entity) bool { return true }

type hasIDOf struct{ *RuleBase }

func (r *hasIDOf) Apply(_ FilterDatabase, e domain.Entity) bool {
	if r.UsesRegex() {
		return r.Match(0, e.EntityID())
	}
	return e.EntityID() == r.Param(0)
}

type privateRecord struct{ *RuleBase }

func (*privateRecord) Apply(_ FilterDatabase, e domain.Entity) bool { return e.IsPrivate() }

type hasTag struct {
	*RuleBase
	tag domain.Handle
}

func (r *hasTag) prepare(_ context.Context, db FilterDatabase, _ domain.Progress) error {
	r.tag = ""
	for _, h := range db.Handles(domain.NamespaceTag) {
		e, ok := db.Get(domain.NamespaceTag, h)
		if !ok {
			continue
		}
		if tag, ok := e.(domain.Tag); ok && tag.Name == r.Param(0) {
			r.tag = h
			return nil
		}
	}
	logger().Debug("tag not found", "tag", r.Param(0))
	return nil
}

func (r *hasTag) reset() { r.tag = "" }

func (r *hasTag) Apply(_ FilterDatabase, e domain.Entity) bool {
	if r.tag == "" {
		return false
	}
	for _, h := range e.TagHandles() {
		if h == r.tag {
			return true
		}
	}
	return false
}

type countComparison int

const (
	countEqual countComparison = iota
	countLess
	countGreater
)

type hasReferenceCountOf struct {
	*RuleBase
	comparison countComparison
	count      int
}

func (r *hasReferenceCountOf) prepare(context.Context, FilterDatabase, domain.Progress) error {
	switch strings.ToLower(strings.TrimSpace(r.Param(0))) {
	case "less than", "lesser than":
		r.comparison = countLess
	case "greater than":
		r.comparison = countGreater
	default:
		r.comparison = countEqual
	}
	r.count, _ = r.ParamInt(1)
	return nil
}

func (r *hasReferenceCountOf) Apply(db FilterDatabase, e domain.Entity) bool {
	n := db.ReferenceCount(e.EntityHandle())
	switch r.comparison {
	case countLess:
		return n < r.count
	case countGreater:
		return n > r.count
	default:
		return n == r.count
	}
}

// matchesFilter delegates to a named filter from the library. Preparing it
// prepares the referenced filter, which is how filter cycles are detected.
type matchesFilter struct {
	*RuleBase
	filter *Filter
}

func (r *matchesFilter) prepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error {
	f, ok := db.Filter(r.Namespace(), r.Param(0))
	if !ok {
		logger().Warn("referenced filter not found", "namespace", r.Namespace(), "filter", r.Param(0))
		return nil
	}
	if err := f.RequestPrepare(ctx, db, progress); err != nil {
		return err
	}
	r.filter = f
	return nil
}

func (r *matchesFilter) reset() {
	if r.filter != nil {
		r.filter.RequestReset()
		r.filter = nil
	}
}

func (r *matchesFilter) Apply(db FilterDatabase, e domain.Entity) bool {
	return r.filter != nil && r.filter.Match(db, e)
}
