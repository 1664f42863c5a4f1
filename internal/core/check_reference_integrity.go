package core

import (
	"context"
	"fmt"

	"kincore/pkg/domain"
)

const referenceCheckName = "reference_integrity"

// ReferenceIntegrityCheck warns about event, place, source and tag handles
// that no longer resolve. Rules treat such handles as absent, so commits
// are not blocked.
func ReferenceIntegrityCheck() domain.Check {
	return referenceIntegrityCheck{}
}

// NewDefaultCheckEngine returns the engine stores and services use unless
// configured otherwise.
func NewDefaultCheckEngine() *domain.CheckEngine {
	return domain.NewCheckEngine(LineageIntegrityCheck(), ReferenceIntegrityCheck())
}

type referenceIntegrityCheck struct{}

func (referenceIntegrityCheck) Name() string { return referenceCheckName }

func (referenceIntegrityCheck) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	warn := func(e domain.Entity, what string, target domain.Handle) {
		res.Violations = append(res.Violations, domain.Violation{
			Check:     referenceCheckName,
			Severity:  domain.SeverityWarn,
			Message:   fmt.Sprintf("%s %s references missing %s %s", e.EntityNamespace(), entityLabel(e), what, target),
			Namespace: e.EntityNamespace(),
			Handle:    e.EntityHandle(),
		})
	}
	resolves := func(ns domain.Namespace, h domain.Handle) bool {
		if h == "" {
			return true
		}
		_, ok := view.Get(ns, h)
		return ok
	}

	for _, ns := range domain.Namespaces() {
		for _, h := range view.Handles(ns) {
			e, ok := view.Get(ns, h)
			if !ok {
				continue
			}
			for _, tag := range e.TagHandles() {
				if !resolves(domain.NamespaceTag, tag) {
					warn(e, "tag", tag)
				}
			}
			for _, ref := range eventRefs(e) {
				if !resolves(domain.NamespaceEvent, ref) {
					warn(e, "event", ref)
				}
			}
			switch rec := e.(type) {
			case domain.Event:
				if !resolves(domain.NamespacePlace, rec.Place) {
					warn(e, "place", rec.Place)
				}
			case domain.Citation:
				if !resolves(domain.NamespaceSource, rec.Source) {
					warn(e, "source", rec.Source)
				}
			case domain.Place:
				for _, enclosing := range rec.EnclosedBy {
					if !resolves(domain.NamespacePlace, enclosing) {
						warn(e, "place", enclosing)
					}
				}
			}
		}
	}
	return res, nil
}

func eventRefs(e domain.Entity) []domain.Handle {
	var refs []domain.EventRef
	var out []domain.Handle
	switch rec := e.(type) {
	case domain.Person:
		refs = rec.Events
		out = append(out, rec.BirthRef, rec.DeathRef)
	case domain.Family:
		refs = rec.Events
	}
	for _, ref := range refs {
		out = append(out, ref.Event)
	}
	return out
}

func entityLabel(e domain.Entity) string {
	if id := e.EntityID(); id != "" {
		return id
	}
	return string(e.EntityHandle())
}
