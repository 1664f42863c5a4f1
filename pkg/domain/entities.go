// Package domain defines the genealogical entities, value types, and
// collaborator contracts shared by the kincore query engine and its stores.
package domain

import (
	"strings"
	"time"
)

// Handle is the opaque, stable identifier of one stored entity. Handles are
// never reused and compare by value.
type Handle string

// Namespace identifies the kind of record a rule, filter, or handle refers to.
type Namespace string

// Supported namespaces used by filters, persistence buckets and Change records.
const (
	// NamespacePerson identifies person records.
	NamespacePerson Namespace = "person"
	// NamespaceFamily identifies family records.
	NamespaceFamily Namespace = "family"
	// NamespaceEvent identifies event records.
	NamespaceEvent Namespace = "event"
	// NamespaceSource identifies source records.
	NamespaceSource Namespace = "source"
	// NamespaceCitation identifies citation records.
	NamespaceCitation Namespace = "citation"
	// NamespacePlace identifies place records.
	NamespacePlace Namespace = "place"
	// NamespaceRepository identifies repository records.
	NamespaceRepository Namespace = "repository"
	// NamespaceNote identifies note records.
	NamespaceNote  Namespace = "note"
	NamespaceMedia Namespace = "media"
	NamespaceTag   Namespace = "tag"
)

// Namespaces lists every supported namespace in a stable order.
func Namespaces() []Namespace {
	return []Namespace{
		NamespacePerson,
		NamespaceFamily,
		NamespaceEvent,
		NamespaceSource,
		NamespaceCitation,
		NamespacePlace,
		NamespaceRepository,
		NamespaceNote,
		NamespaceMedia,
		NamespaceTag,
	}
}

// ParseNamespace resolves a case-insensitive namespace name.
func ParseNamespace(value string) (Namespace, bool) {
	candidate := Namespace(strings.ToLower(strings.TrimSpace(value)))
	for _, ns := range Namespaces() {
		if ns == candidate {
			return ns, true
		}
	}
	return "", false
}

// Entity is implemented by every stored record.
type Entity interface {
	EntityHandle() Handle
	EntityNamespace() Namespace
	EntityID() string
	TagHandles() []Handle
	IsPrivate() bool
}

// Base carries the fields shared by every record.
type Base struct {
	Handle  Handle    `json:"handle"`
	ID      string    `json:"id"`
	Tags    []Handle  `json:"tags,omitempty"`
	Private bool      `json:"private,omitempty"`
	Changed time.Time `json:"changed"`
}

// EntityHandle returns the record handle.
func (b Base) EntityHandle() Handle { return b.Handle }

// EntityID returns the user-visible record identifier (for example I0001).
func (b Base) EntityID() string { return b.ID }

// TagHandles returns the handles of tags attached to the record.
func (b Base) TagHandles() []Handle { return b.Tags }

// IsPrivate reports whether the record is marked private.
func (b Base) IsPrivate() bool { return b.Private }

// Gender captures the recorded sex of a person.
type Gender string

// Canonical gender values.
const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Name is one recorded name of a person.
type Name struct {
	Given   string `json:"given,omitempty"`
	Surname string `json:"surname,omitempty"`
	Suffix  string `json:"suffix,omitempty"`
	Nick    string `json:"nick,omitempty"`
}

// Full renders the name as "Given Surname Suffix".
func (n Name) Full() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.Given, n.Surname, n.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// EventRole describes how a person or family participated in an event.
type EventRole string

// Common event roles.
const (
	RolePrimary EventRole = "primary"
	RoleWitness EventRole = "witness"
	RoleFamily  EventRole = "family"
)

// EventRef links a person or family to an event.
type EventRef struct {
	Event Handle    `json:"event"`
	Role  EventRole `json:"role,omitempty"`
}

// Person is an individual in the family graph.
type Person struct {
	Base
	Name     Name       `json:"name"`
	AltNames []Name     `json:"alt_names,omitempty"`
	Gender   Gender     `json:"gender"`
	BirthRef Handle     `json:"birth_ref,omitempty"`
	DeathRef Handle     `json:"death_ref,omitempty"`
	Events   []EventRef `json:"events,omitempty"`
	// ParentFamilies lists families in which the person is a child. The first
	// entry is the main parent family.
	ParentFamilies []Handle `json:"parent_families,omitempty"`
	// Families lists families in which the person is a parent/spouse.
	Families []Handle `json:"families,omitempty"`
}

// EntityNamespace implements Entity.
func (Person) EntityNamespace() Namespace { return NamespacePerson }

// MainParentFamily returns the first parent family, if any.
func (p Person) MainParentFamily() (Handle, bool) {
	if len(p.ParentFamilies) == 0 || p.ParentFamilies[0] == "" {
		return "", false
	}
	return p.ParentFamilies[0], true
}

// AllNames returns the primary name followed by alternate names.
func (p Person) AllNames() []Name {
	out := make([]Name, 0, 1+len(p.AltNames))
	out = append(out, p.Name)
	return append(out, p.AltNames...)
}

// FamilyRelType classifies the relationship between the parents of a family.
type FamilyRelType string

// Canonical family relationship types.
const (
	RelMarried    FamilyRelType = "married"
	RelUnmarried  FamilyRelType = "unmarried"
	RelCivilUnion FamilyRelType = "civil_union"
	RelUnknown    FamilyRelType = "unknown"
)

// Family links at most two parents with zero or more children.
type Family struct {
	Base
	Father   Handle        `json:"father,omitempty"`
	Mother   Handle        `json:"mother,omitempty"`
	Children []Handle      `json:"children,omitempty"`
	RelType  FamilyRelType `json:"rel_type,omitempty"`
	Events   []EventRef    `json:"events,omitempty"`
}

// EntityNamespace implements Entity.
func (Family) EntityNamespace() Namespace { return NamespaceFamily }

// Parents returns the non-empty parent handles, father first.
func (f Family) Parents() []Handle {
	out := make([]Handle, 0, 2)
	if f.Father != "" {
		out = append(out, f.Father)
	}
	if f.Mother != "" {
		out = append(out, f.Mother)
	}
	return out
}

// Event records something that happened at a date and place.
type Event struct {
	Base
	Type        string `json:"type"`
	Date        Date   `json:"date"`
	Place       Handle `json:"place,omitempty"`
	Description string `json:"description,omitempty"`
}

// EntityNamespace implements Entity.
func (Event) EntityNamespace() Namespace { return NamespaceEvent }

// Source is a documentary source.
type Source struct {
	Base
	Title   string `json:"title"`
	Author  string `json:"author,omitempty"`
	PubInfo string `json:"pub_info,omitempty"`
	Abbrev  string `json:"abbrev,omitempty"`
}

// EntityNamespace implements Entity.
func (Source) EntityNamespace() Namespace { return NamespaceSource }

// Citation points at a location within a source.
type Citation struct {
	Base
	Source     Handle `json:"source"`
	Page       string `json:"page,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	Date       Date   `json:"date"`
}

// EntityNamespace implements Entity.
func (Citation) EntityNamespace() Namespace { return NamespaceCitation }

// Place is a geographic location, optionally enclosed by other places.
type Place struct {
	Base
	Title      string   `json:"title"`
	Name       string   `json:"name,omitempty"`
	Type       string   `json:"type,omitempty"`
	EnclosedBy []Handle `json:"enclosed_by,omitempty"`
}

// EntityNamespace implements Entity.
func (Place) EntityNamespace() Namespace { return NamespacePlace }

// Repository holds sources (archive, library, ...).
type Repository struct {
	Base
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// EntityNamespace implements Entity.
func (Repository) EntityNamespace() Namespace { return NamespaceRepository }

// Note is free text attached to other records.
type Note struct {
	Base
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// EntityNamespace implements Entity.
func (Note) EntityNamespace() Namespace { return NamespaceNote }

// Media references an external file.
type Media struct {
	Base
	Path        string `json:"path"`
	MIME        string `json:"mime,omitempty"`
	Description string `json:"description,omitempty"`
	Date        Date   `json:"date"`
}

// EntityNamespace implements Entity.
func (Media) EntityNamespace() Namespace { return NamespaceMedia }

// Tag is a user-defined label attached to records.
type Tag struct {
	Base
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// EntityNamespace implements Entity.
func (Tag) EntityNamespace() Namespace { return NamespaceTag }
