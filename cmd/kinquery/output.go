package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"kincore/internal/graph"
	"kincore/pkg/domain"
)

type recordView struct {
	Handle     domain.Handle `json:"handle"`
	ID         string        `json:"id"`
	Label      string        `json:"label"`
	Generation *int          `json:"generation,omitempty"`
}

func (a *app) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(a.out, format, args...)
	return err
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRecords prints one line per handle; generations is parallel to
// handles when set.
func (a *app) printRecords(ns domain.Namespace, handles []domain.Handle, generations []int) error {
	views := make([]recordView, 0, len(handles))
	for i, h := range handles {
		v := recordView{Handle: h}
		if e, ok := a.store.Get(ns, h); ok {
			v.ID = e.EntityID()
			v.Label = describe(a.store, e)
		}
		if generations != nil {
			g := generations[i]
			v.Generation = &g
		}
		views = append(views, v)
	}
	if a.format == "json" {
		return a.printJSON(views)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, v := range views {
		if v.Generation != nil {
			fmt.Fprintf(tw, "%d\t", *v.Generation)
		}
		fmt.Fprintf(tw, "%s\t%s\n", v.ID, v.Label)
	}
	return tw.Flush()
}

func (a *app) printVisits(visits []graph.Visit) error {
	handles := make([]domain.Handle, len(visits))
	gens := make([]int, len(visits))
	for i, v := range visits {
		handles[i] = v.Handle
		gens[i] = v.Generation
	}
	return a.printRecords(domain.NamespacePerson, handles, gens)
}

func (a *app) printViolations(violations []domain.Violation) error {
	if a.format == "json" {
		if violations == nil {
			violations = []domain.Violation{}
		}
		return a.printJSON(violations)
	}
	for _, v := range violations {
		if err := a.printf("%s\t%s\t%s\n", v.Severity, v.Check, v.Message); err != nil {
			return err
		}
	}
	return nil
}

// describe renders a short human label for a record.
func describe(db domain.Database, e domain.Entity) string {
	switch rec := e.(type) {
	case domain.Person:
		return rec.Name.Full()
	case domain.Family:
		var parents []string
		for _, h := range rec.Parents() {
			if p, ok := db.Person(h); ok {
				parents = append(parents, p.Name.Full())
			}
		}
		return strings.Join(parents, " & ")
	case domain.Event:
		if rec.Date.IsEmpty() {
			return rec.Type
		}
		return rec.Type + " " + rec.Date.String()
	case domain.Source:
		return rec.Title
	case domain.Citation:
		return rec.Page
	case domain.Place:
		if rec.Title != "" {
			return rec.Title
		}
		return rec.Name
	case domain.Repository:
		return rec.Name
	case domain.Note:
		return rec.Text
	case domain.Media:
		return rec.Path
	case domain.Tag:
		return rec.Name
	default:
		return ""
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
