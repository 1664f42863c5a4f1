package core

import (
	"context"
	"fmt"

	"kincore/internal/graph"
	"kincore/pkg/domain"
)

const lineageCheckName = "lineage_integrity"

// LineageIntegrityCheck enforces consistent person/family links. Structural
// problems block commit; a person appearing among their own ancestors is only
// reported, since the traversals stay cycle-safe regardless.
func LineageIntegrityCheck() domain.Check {
	return lineageIntegrityCheck{}
}

type lineageIntegrityCheck struct{}

func (lineageIntegrityCheck) Name() string { return lineageCheckName }

func (lineageIntegrityCheck) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, fh := range view.Handles(domain.NamespaceFamily) {
		family, ok := view.Family(fh)
		if !ok {
			continue
		}
		evaluateFamily(&res, view, family)
	}

	for _, ph := range view.Handles(domain.NamespacePerson) {
		person, ok := view.Person(ph)
		if !ok {
			continue
		}
		evaluatePersonLinks(&res, view, person)
	}

	for _, ph := range ancestryCandidates(view, changes) {
		person, ok := view.Person(ph)
		if !ok {
			continue
		}
		parents := graph.NewHandleSet()
		for _, fh := range person.ParentFamilies {
			if family, ok := view.Family(fh); ok {
				for _, parent := range family.Parents() {
					parents.Add(parent)
				}
			}
		}
		if parents.Len() == 0 {
			continue
		}
		ancestors := graph.FindAncestors(view, parents.Sorted(), graph.Inclusive(), graph.AllLinks())
		if ancestors.Has(ph) {
			res.Violations = append(res.Violations, domain.Violation{
				Check:     lineageCheckName,
				Severity:  domain.SeverityWarn,
				Message:   fmt.Sprintf("person %s is their own ancestor", recordLabel(person.Base)),
				Namespace: domain.NamespacePerson,
				Handle:    ph,
			})
		}
	}

	return res, nil
}

// ancestryCandidates limits the ancestry walk to people touched by changes.
// A full check (no changes) walks everyone.
func ancestryCandidates(view domain.TransactionView, changes []domain.Change) []domain.Handle {
	if changes == nil {
		return view.Handles(domain.NamespacePerson)
	}
	touched := graph.NewHandleSet()
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		switch after := change.After.(type) {
		case domain.Person:
			touched.Add(after.Handle)
		case domain.Family:
			for _, h := range after.Parents() {
				touched.Add(h)
			}
			for _, h := range after.Children {
				touched.Add(h)
			}
		}
	}
	return touched.Sorted()
}

func evaluateFamily(res *domain.Result, view domain.TransactionView, family domain.Family) {
	block := func(format string, args ...any) {
		res.Violations = append(res.Violations, lineageViolation(domain.NamespaceFamily, family.Handle, fmt.Sprintf(format, args...)))
	}
	id := recordLabel(family.Base)

	if family.Father != "" && family.Father == family.Mother {
		block("family %s lists %s as both father and mother", id, family.Father)
	}
	for _, parent := range family.Parents() {
		person, ok := view.Person(parent)
		if !ok {
			block("family %s references missing parent %s", id, parent)
			continue
		}
		if !containsHandle(person.Families, family.Handle) {
			block("family %s lists parent %s who does not link back to it", id, parent)
		}
	}

	seen := make(map[domain.Handle]struct{}, len(family.Children))
	for _, child := range family.Children {
		if child == "" {
			continue
		}
		if _, dup := seen[child]; dup {
			block("family %s lists child %s multiple times", id, child)
			continue
		}
		seen[child] = struct{}{}
		if child == family.Father || child == family.Mother {
			block("family %s lists %s as both parent and child", id, child)
			continue
		}
		person, ok := view.Person(child)
		if !ok {
			block("family %s references missing child %s", id, child)
			continue
		}
		if !containsHandle(person.ParentFamilies, family.Handle) {
			block("family %s lists child %s who does not link back to it", id, child)
		}
	}
}

func evaluatePersonLinks(res *domain.Result, view domain.TransactionView, person domain.Person) {
	block := func(format string, args ...any) {
		res.Violations = append(res.Violations, lineageViolation(domain.NamespacePerson, person.Handle, fmt.Sprintf(format, args...)))
	}
	id := recordLabel(person.Base)

	for _, fh := range person.ParentFamilies {
		family, ok := view.Family(fh)
		if !ok {
			block("person %s references missing parent family %s", id, fh)
			continue
		}
		if !containsHandle(family.Children, person.Handle) {
			block("person %s claims parent family %s which does not list them as a child", id, fh)
		}
	}
	for _, fh := range person.Families {
		family, ok := view.Family(fh)
		if !ok {
			block("person %s references missing family %s", id, fh)
			continue
		}
		if family.Father != person.Handle && family.Mother != person.Handle {
			block("person %s claims family %s which does not list them as a parent", id, fh)
		}
	}
}

func lineageViolation(ns domain.Namespace, h domain.Handle, message string) domain.Violation {
	return domain.Violation{
		Check:     lineageCheckName,
		Severity:  domain.SeverityBlock,
		Message:   message,
		Namespace: ns,
		Handle:    h,
	}
}

func containsHandle(list []domain.Handle, h domain.Handle) bool {
	for _, candidate := range list {
		if candidate == h {
			return true
		}
	}
	return false
}

// recordLabel prefers the user-visible ID in messages.
func recordLabel(b domain.Base) string {
	if b.ID != "" {
		return b.ID
	}
	return string(b.Handle)
}
