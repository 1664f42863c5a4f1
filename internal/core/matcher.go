package core

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// regexTimeout bounds a single regex evaluation against one record.
const regexTimeout = 250 * time.Millisecond

// Matcher tests a rule parameter against a text value. An empty parameter
// always matches, so unset conditions do not restrict a rule.
type Matcher interface {
	Match(index int, text string) bool
}

type substringMatcher struct {
	params        []string
	caseSensitive bool
}

func (m substringMatcher) Match(index int, text string) bool {
	param := paramAt(m.params, index)
	if param == "" {
		return true
	}
	if m.caseSensitive {
		return strings.Contains(text, param)
	}
	return strings.Contains(strings.ToUpper(text), strings.ToUpper(param))
}

type regexMatcher struct {
	params   []string
	compiled []*regexp2.Regexp
}

// newRegexMatcher compiles every parameter once. A pattern that fails to
// compile is replaced with the empty pattern, which matches any text.
func newRegexMatcher(kind string, params []string, caseSensitive bool) regexMatcher {
	opts := regexp2.None
	if !caseSensitive {
		opts = regexp2.IgnoreCase
	}
	m := regexMatcher{params: params, compiled: make([]*regexp2.Regexp, len(params))}
	for i, p := range params {
		if p == "" {
			continue
		}
		re, err := regexp2.Compile(p, opts)
		if err != nil {
			logger().Warn("invalid rule pattern, condition ignored", "kind", kind, "index", i, "pattern", p, "error", err)
			re = regexp2.MustCompile("", opts)
		}
		re.MatchTimeout = regexTimeout
		m.compiled[i] = re
	}
	return m
}

func (m regexMatcher) Match(index int, text string) bool {
	if paramAt(m.params, index) == "" {
		return true
	}
	ok, err := m.compiled[index].MatchString(text)
	if err != nil {
		logger().Warn("rule pattern evaluation failed", "pattern", m.params[index], "error", err)
		return false
	}
	return ok
}

func paramAt(params []string, index int) string {
	if index < 0 || index >= len(params) {
		return ""
	}
	return params[index]
}
