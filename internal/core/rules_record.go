package core

import "kincore/pkg/domain"

// recordRules covers the namespaces whose rules only inspect text fields.
func recordRules() []RuleSpec {
	return []RuleSpec{
		{
			Kind: "HasSource", Namespace: domain.NamespaceSource, Name: "Sources matching parameters",
			Description: "Matches sources with particular parameters", Category: "General filters",
			Labels: []string{"Title:", "Author:", "Abbreviation:", "Publication:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule {
				return &textFields{b, func(e domain.Entity) ([]string, bool) {
					s, ok := e.(domain.Source)
					return []string{s.Title, s.Author, s.Abbrev, s.PubInfo}, ok
				}}
			},
		},
		{
			Kind: "HasCitation", Namespace: domain.NamespaceCitation, Name: "Citations matching parameters",
			Description: "Matches citations with particular parameters", Category: "General filters",
			Labels: []string{"Volume/Page:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule {
				return &textFields{b, func(e domain.Entity) ([]string, bool) {
					c, ok := e.(domain.Citation)
					return []string{c.Page}, ok
				}}
			},
		},
		{
			Kind: "HasTitle", Namespace: domain.NamespacePlace, Name: "Places matching a title",
			Description: "Matches places with a particular title", Category: "General filters",
			Labels: []string{"Title:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule {
				return &textFields{b, func(e domain.Entity) ([]string, bool) {
					p, ok := e.(domain.Place)
					return []string{p.Title}, ok
				}}
			},
		},
		{
			Kind: "HasText", Namespace: domain.NamespaceNote, Name: "Notes containing <text>",
			Description: "Matches notes that contain a substring or match a regular expression",
			Category:    "General filters", Labels: []string{"Text:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule {
				return &textFields{b, func(e domain.Entity) ([]string, bool) {
					n, ok := e.(domain.Note)
					return []string{n.Text}, ok
				}}
			},
		},
		{
			Kind: "HasRepo", Namespace: domain.NamespaceRepository, Name: "Repositories matching parameters",
			Description: "Matches Repositories with particular parameters", Category: "General filters",
			Labels: []string{"Name:", "Type:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule {
				return &textFields{b, func(e domain.Entity) ([]string, bool) {
					r, ok := e.(domain.Repository)
					return []string{r.Name, r.Type}, ok
				}}
			},
		},
		{
			Kind: "HasMedia", Namespace: domain.NamespaceMedia, Name: "Media objects matching parameters",
			Description: "Matches media objects with particular parameters", Category: "General filters",
			Labels: []string{"Path:", "Media type:", "Description:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule {
				return &textFields{b, func(e domain.Entity) ([]string, bool) {
					m, ok := e.(domain.Media)
					return []string{m.Path, m.MIME, m.Description}, ok
				}}
			},
		},
	}
}

// textFields matches when every parameter matches the field at its position.
type textFields struct {
	*RuleBase
	fields func(domain.Entity) ([]string, bool)
}

func (r *textFields) Apply(_ FilterDatabase, e domain.Entity) bool {
	values, ok := r.fields(e)
	if !ok {
		return false
	}
	for i, v := range values {
		if !r.Match(i, v) {
			return false
		}
	}
	return true
}
