package inventory

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// rule fills one filter field. Patterns are tried in order and the first
// match wins. A capture rule takes submatch 1; a keyword rule assigns the
// value paired with the matching pattern, which makes the list an
// if/elif chain in priority order.
type rule struct {
	field    string
	patterns []*regexp.Regexp
	values   []string // nil for capture rules

	// auxiliary fields do not count as a structured match, so they do not
	// suppress the search fallback.
	auxiliary bool

	// valid, when set, rejects a captured value; the rule then behaves as
	// if that pattern had not matched.
	valid func(string) bool
}

func compile(p string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + p)
}

// capture builds a rule taking submatch 1 of the first matching pattern.
func capture(field string, patterns ...string) rule {
	r := rule{field: field}
	for _, p := range patterns {
		r.patterns = append(r.patterns, compile(p))
	}
	return r
}

// keywords builds an ordered keyword chain from (pattern, value) pairs.
func keywords(field string, pairs ...string) rule {
	if len(pairs)%2 != 0 {
		panic("keywords: odd number of pattern/value arguments for " + field)
	}
	r := rule{field: field, values: []string{}}
	for i := 0; i < len(pairs); i += 2 {
		r.patterns = append(r.patterns, compile(pairs[i]))
		r.values = append(r.values, pairs[i+1])
	}
	return r
}

func (r rule) aux() rule {
	r.auxiliary = true
	return r
}

// between accepts only whole numbers in [lo, hi].
func (r rule) between(lo, hi int) rule {
	r.valid = func(v string) bool {
		n, err := strconv.Atoi(v)
		return err == nil && n >= lo && n <= hi
	}
	return r
}

// named rejects purely numeric values.
func (r rule) named() rule {
	r.valid = func(v string) bool { return !isDigits(v) }
	return r
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func (r rule) apply(text string) (string, bool) {
	for i, re := range r.patterns {
		if r.values != nil {
			if re.MatchString(text) {
				return r.values[i], true
			}
			continue
		}
		m := re.FindStringSubmatch(text)
		if len(m) < 2 || m[1] == "" {
			continue
		}
		if r.valid != nil && !r.valid(m[1]) {
			continue
		}
		return m[1], true
	}
	return "", false
}

// String documents the rule, e.g. "role: firewall -> net-firewall | router -> router".
func (r rule) String() string {
	parts := make([]string, len(r.patterns))
	for i, re := range r.patterns {
		src := strings.TrimPrefix(re.String(), "(?i)")
		if r.values != nil {
			parts[i] = src + " -> " + r.values[i]
		} else {
			parts[i] = src
		}
	}
	return r.field + ": " + strings.Join(parts, " | ")
}

var limitPattern = compile(`(?:limit|top|first)\s+(\d+)`)

// ruleSet is the ordered rule list for one entity type.
type ruleSet struct {
	rules []rule
}

func newRuleSet(rules ...rule) *ruleSet {
	return &ruleSet{rules: rules}
}

// extraction is the raw result of applying a rule set to a query.
type extraction struct {
	fields map[string]string
	search string
	limit  int
	// clamped is set when the limit written in the query was out of range.
	clamped bool
}

func (e extraction) get(field string) string {
	return e.fields[field]
}

// number returns field as an int, or 0 when it is unset or does not fit.
func (e extraction) number(field string) int {
	n, err := strconv.Atoi(e.fields[field])
	if err != nil {
		return 0
	}
	return n
}

func (rs *ruleSet) apply(text string) extraction {
	ex := extraction{fields: map[string]string{}, limit: DefaultLimit}
	structured := false

	for _, r := range rs.rules {
		if v, ok := r.apply(text); ok {
			ex.fields[r.field] = v
			if !r.auxiliary {
				structured = true
			}
		}
	}

	ex.limit, ex.clamped, _ = extractLimit(text)

	if !structured {
		ex.search = text
	}
	return ex
}

// extractLimit reads "first N", "top N" or "limit N", clamped to
// [1, MaxLimit]. requested is N as written.
func extractLimit(text string) (limit int, clamped bool, requested string) {
	m := limitPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultLimit, false, ""
	}
	requested = m[1]
	n, err := strconv.Atoi(requested)
	switch {
	case errors.Is(err, strconv.ErrRange):
		// too many digits for an int; the pattern only admits non-negative numbers
		return MaxLimit, true, requested
	case err != nil:
		return DefaultLimit, false, ""
	case n < 1:
		return 1, true, requested
	case n > MaxLimit:
		return MaxLimit, true, requested
	}
	return n, false, requested
}

// LimitNote explains a clamped limit in text, or returns "" when the
// requested limit was used as written.
func LimitNote(text string) string {
	limit, clamped, requested := extractLimit(text)
	if !clamped {
		return ""
	}
	return fmt.Sprintf("requested limit %s is outside 1-%d; using %d", requested, MaxLimit, limit)
}

// Vocabulary documents a rule set in priority order.
func (rs *ruleSet) Vocabulary() []string {
	out := make([]string, 0, len(rs.rules)+1)
	for _, r := range rs.rules {
		out = append(out, r.String())
	}
	return append(out, "limit: "+strings.TrimPrefix(limitPattern.String(), "(?i)"))
}
