package core

import (
	"context"
	"strconv"
	"strings"

	"kincore/pkg/domain"
)

// LoopCeiling is the deepest a single rule may be prepared before the engine
// assumes the filter definitions reference each other in a cycle.
const LoopCeiling = 20

// Rule is one predicate inside a filter. Rules are prepared before a scan,
// applied to each candidate, and reset afterwards. Prepare and reset calls are
// reference counted so a rule shared by several filters builds its caches once
// and releases them once.
type Rule interface {
	Kind() string
	Namespace() domain.Namespace
	Params() []string
	UsesRegex() bool
	IsCaseSensitive() bool
	// Prepared reports the current prepare count.
	Prepared() int
	RequestPrepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error
	RequestReset()
	// Apply reports whether the entity satisfies the rule. It must only be
	// called between RequestPrepare and RequestReset.
	Apply(db FilterDatabase, e domain.Entity) bool
}

// preparer is implemented by rule kinds that build state before a scan.
type preparer interface {
	prepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error
}

// resetter is implemented by rule kinds that release state after a scan.
type resetter interface {
	reset()
}

// RuleOption customises a rule at construction.
type RuleOption func(*RuleBase)

// WithRegex interprets text parameters as regular expressions when the rule
// kind supports it.
func WithRegex() RuleOption {
	return func(b *RuleBase) { b.useRegex = true }
}

// WithCaseSensitive disables case folding for text parameters.
func WithCaseSensitive() RuleOption {
	return func(b *RuleBase) { b.caseSensitive = true }
}

// RuleBase carries the state shared by every rule kind: parameters, the
// matching strategy and the prepare counter. Rule kinds embed *RuleBase and
// implement Apply plus the optional prepare/reset hooks.
type RuleBase struct {
	spec          RuleSpec
	params        []string
	useRegex      bool
	caseSensitive bool

	nrprepare int
	// preparing counts active prepare hooks; non-zero on entry means the rule
	// reached itself through a filter reference.
	preparing int
	matcher   Matcher
	self      Rule
}

func newRuleBase(spec RuleSpec, params []string, opts ...RuleOption) *RuleBase {
	b := &RuleBase{spec: spec, params: append([]string(nil), params...)}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.checkArity()
	b.matcher = substringMatcher{params: b.params, caseSensitive: b.caseSensitive}
	return b
}

func (b *RuleBase) checkArity() {
	if len(b.spec.Labels) == len(b.params) {
		return
	}
	logger().Warn("rule parameter count mismatch",
		"namespace", b.spec.Namespace, "kind", b.spec.Kind,
		"expected", len(b.spec.Labels), "got", len(b.params))
	if len(b.params) < len(b.spec.Labels) {
		padded := make([]string, len(b.spec.Labels))
		copy(padded, b.params)
		b.params = padded
	}
}

func (b *RuleBase) Kind() string                { return b.spec.Kind }
func (b *RuleBase) Namespace() domain.Namespace { return b.spec.Namespace }
func (b *RuleBase) Params() []string            { return append([]string(nil), b.params...) }
func (b *RuleBase) UsesRegex() bool             { return b.useRegex }
func (b *RuleBase) IsCaseSensitive() bool       { return b.caseSensitive }
func (b *RuleBase) Prepared() int               { return b.nrprepare }

// Spec returns the registration the rule was built from.
func (b *RuleBase) Spec() RuleSpec { return b.spec }

// RequestPrepare increments the prepare counter and, on the first request,
// selects the matcher and runs the rule's prepare hook. Exceeding LoopCeiling
// yields a *FilterLoopError. A failed prepare leaves the counter unchanged.
func (b *RuleBase) RequestPrepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error {
	first := b.nrprepare == 0
	reentered := b.preparing > 0
	b.nrprepare++
	if b.nrprepare > LoopCeiling {
		b.nrprepare--
		return &FilterLoopError{Kind: b.spec.Kind, Namespace: b.spec.Namespace, Params: b.Params()}
	}
	if !first && !reentered {
		return nil
	}
	if first {
		b.matcher = b.selectMatcher()
	}
	p, ok := b.self.(preparer)
	if !ok {
		return nil
	}
	b.preparing++
	err := p.prepare(ctx, db, domain.OrNoProgress(progress))
	b.preparing--
	if err != nil {
		b.nrprepare--
		if b.nrprepare == 0 {
			b.release()
		}
		return err
	}
	return nil
}

// RequestReset decrements the prepare counter and releases the rule's state
// when it reaches zero. Unbalanced resets are logged and ignored.
func (b *RuleBase) RequestReset() {
	if b.nrprepare == 0 {
		logger().Warn("reset requested on unprepared rule", "namespace", b.spec.Namespace, "kind", b.spec.Kind)
		return
	}
	b.nrprepare--
	if b.nrprepare == 0 {
		b.release()
	}
}

func (b *RuleBase) release() {
	if r, ok := b.self.(resetter); ok {
		r.reset()
	}
	b.matcher = substringMatcher{params: b.params, caseSensitive: b.caseSensitive}
}

func (b *RuleBase) selectMatcher() Matcher {
	if b.useRegex && b.spec.AllowRegex {
		return newRegexMatcher(b.spec.Kind, b.params, b.caseSensitive)
	}
	return substringMatcher{params: b.params, caseSensitive: b.caseSensitive}
}

// Param returns parameter i, or "" when absent.
func (b *RuleBase) Param(i int) string { return paramAt(b.params, i) }

// Match tests text against parameter i with the selected matcher.
func (b *RuleBase) Match(i int, text string) bool { return b.matcher.Match(i, text) }

// ParamFlag interprets parameter i as a boolean ("1", "true", "yes"),
// returning def when it is empty.
func (b *RuleBase) ParamFlag(i int, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(b.Param(i))) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// ParamInt interprets parameter i as an integer. Invalid values are logged and
// reported as false.
func (b *RuleBase) ParamInt(i int) (int, bool) {
	raw := strings.TrimSpace(b.Param(i))
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger().Warn("rule parameter is not a number", "kind", b.spec.Kind, "label", b.label(i), "value", raw)
		return 0, false
	}
	return n, true
}

// ParamDate parses parameter i as a date. An invalid date is logged and
// reported as an empty date, which disables the condition.
func (b *RuleBase) ParamDate(i int) domain.Date {
	d, err := domain.ParseDate(b.Param(i))
	if err != nil {
		logger().Warn("rule date parameter ignored", "kind", b.spec.Kind, "label", b.label(i), "error", err)
		return domain.Date{}
	}
	return d
}

func (b *RuleBase) label(i int) string {
	if i >= 0 && i < len(b.spec.Labels) {
		return b.spec.Labels[i]
	}
	return strconv.Itoa(i)
}
