package core

import "testing"

func TestSubstringMatcherFoldsCase(t *testing.T) {
	m := substringMatcher{params: []string{"smi", ""}}
	if !m.Match(0, "John SMITH") {
		t.Fatalf("expected case-insensitive substring match")
	}
	if m.Match(0, "Jones") {
		t.Fatalf("unexpected match")
	}
	if !m.Match(1, "anything") {
		t.Fatalf("empty parameter must match")
	}
	if !m.Match(5, "anything") {
		t.Fatalf("missing parameter must match")
	}
}

func TestSubstringMatcherCaseSensitive(t *testing.T) {
	m := substringMatcher{params: []string{"Smith"}, caseSensitive: true}
	if !m.Match(0, "John Smith") {
		t.Fatalf("expected exact-case match")
	}
	if m.Match(0, "john smith") {
		t.Fatalf("expected case-sensitive mismatch")
	}
}

func TestRegexMatcher(t *testing.T) {
	m := newRegexMatcher("HasNameOf", []string{"^jo(hn|e)$", "", `\d{4}`}, false)
	if !m.Match(0, "JOHN") {
		t.Fatalf("expected case-insensitive regex match")
	}
	if m.Match(0, "Johnny") {
		t.Fatalf("anchored pattern must not match")
	}
	if !m.Match(1, "whatever") {
		t.Fatalf("empty pattern must match")
	}
	if !m.Match(2, "born 1850") {
		t.Fatalf("expected digit match")
	}

	cs := newRegexMatcher("HasNameOf", []string{"^John$"}, true)
	if cs.Match(0, "john") {
		t.Fatalf("expected case-sensitive regex mismatch")
	}
}

func TestRegexMatcherSupportsLookaround(t *testing.T) {
	m := newRegexMatcher("HasText", []string{`^(?!draft).*note`}, false)
	if !m.Match(0, "final note") {
		t.Fatalf("expected lookahead match")
	}
	if m.Match(0, "draft note") {
		t.Fatalf("negative lookahead must exclude draft")
	}
}

func TestRegexMatcherInvalidPatternMatchesAll(t *testing.T) {
	logs := captureEngineLogs(t)
	m := newRegexMatcher("HasText", []string{"(unclosed"}, false)
	if !m.Match(0, "anything") {
		t.Fatalf("invalid pattern must degrade to match-all")
	}
	if !logs.has("warn", "invalid rule pattern, condition ignored") {
		t.Fatalf("expected warning for invalid pattern, got %+v", logs.entries)
	}
}

func TestRuleSelectsRegexMatcherOnlyWhenAllowed(t *testing.T) {
	db := fixtureDB(nil)
	// HasTag does not allow regex: "To.o" is matched as a literal tag name.
	tag := mustRule(t, "person", "HasTag", []string{"To.o"}, WithRegex())
	if got := idsOf(t, db, mustFilter(t, "person", "tag", tag)); len(got) != 0 {
		t.Fatalf("expected no match for literal tag name, got %v", got)
	}
	id := mustRule(t, "person", "HasIDOf", []string{"I000[12]"}, WithRegex())
	if got := idsOf(t, db, mustFilter(t, "person", "ids", id)); !sameIDs(got, "I0001", "I0002") {
		t.Fatalf("unexpected regex id matches %v", got)
	}
}
