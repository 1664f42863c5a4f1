package core

import (
	"context"
	"strings"

	"kincore/pkg/domain"
)

func eventRules() []RuleSpec {
	ns := domain.NamespaceEvent
	return []RuleSpec{
		{
			Kind: "HasType", Namespace: ns, Name: "Events with the particular type",
			Description: "Matches events with the particular type", Category: "General filters",
			Labels: []string{"Event type:"},
			New:    func(b *RuleBase) Rule { return &hasEventType{b} },
		},
		{
			Kind: "HasData", Namespace: ns, Name: "Events with <data>",
			Description: "Matches events with data of a particular value", Category: "General filters",
			Labels: []string{"Event type:", "Date:", "Place:", "Description:"}, AllowRegex: true,
			New: func(b *RuleBase) Rule { return &hasEventData{RuleBase: b} },
		},
	}
}

type hasEventType struct{ *RuleBase }

func (r *hasEventType) Apply(_ FilterDatabase, e domain.Entity) bool {
	ev, ok := e.(domain.Event)
	if !ok {
		return false
	}
	want := strings.TrimSpace(r.Param(0))
	return want == "" || strings.EqualFold(ev.Type, want)
}

// hasEventData matches on type, date, place title and description. An
// unparsable date disables only the date condition.
type hasEventData struct {
	*RuleBase
	date domain.Date
}

func (r *hasEventData) prepare(context.Context, FilterDatabase, domain.Progress) error {
	r.date = r.ParamDate(1)
	return nil
}

func (r *hasEventData) Apply(db FilterDatabase, e domain.Entity) bool {
	ev, ok := e.(domain.Event)
	if !ok {
		return false
	}
	if t := strings.TrimSpace(r.Param(0)); t != "" && !strings.EqualFold(ev.Type, t) {
		return false
	}
	if !r.date.IsEmpty() && !ev.Date.Matches(r.date) {
		return false
	}
	if r.Param(2) != "" && !r.Match(2, placeTitle(db, ev.Place)) {
		return false
	}
	return r.Match(3, ev.Description)
}
