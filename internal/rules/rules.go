package rules

import (
	"regexp"
	"sort"
	"strings"
)

// Match kinds for rule patterns.
const (
	MatchSubstring = "substring"
	MatchRegex     = "regex"
)

// OtherCategory is returned when no rule matches.
const OtherCategory = "Other"

// IdleCategory labels synthetic sessions covering idle gaps.
const IdleCategory = "Idle"

// DefaultCategories is the built-in category set offered by the rule editor.
var DefaultCategories = []string{
	"Work",
	"Social",
	"Video",
	"Gaming",
	"Reading",
	"Communication",
	"Idle",
	"Other",
}

// Rule maps an observed application to a category. Patterns are optional;
// a rule with neither pattern matches every context while enabled.
type Rule struct {
	ID             int64
	Enabled        bool
	MatchType      string // MatchSubstring or MatchRegex
	ProcessPattern string
	TitlePattern   string
	Category       string
	Priority       int // lower evaluates first, ties broken by ID
}

// AppContext is a single foreground observation. Never persisted.
type AppContext struct {
	ProcessName string
	WindowTitle string
}

// Match reports whether the rule applies to the context. A disabled rule
// never matches. When both patterns are set, both must match.
func Match(r Rule, ctx AppContext) bool {
	if !r.Enabled {
		return false
	}
	if r.ProcessPattern != "" && !matchValue(r.MatchType, r.ProcessPattern, ctx.ProcessName) {
		return false
	}
	if r.TitlePattern != "" && !matchValue(r.MatchType, r.TitlePattern, ctx.WindowTitle) {
		return false
	}
	return true
}

// Apply returns the category of the first matching rule in
// (priority ASC, id ASC) order, or OtherCategory if none match.
func Apply(rs []Rule, ctx AppContext) string {
	ordered := make([]Rule, len(rs))
	copy(ordered, rs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})
	for _, r := range ordered {
		if Match(r, ctx) {
			return r.Category
		}
	}
	return OtherCategory
}

// matchValue performs a case-insensitive match of pattern against value.
// A malformed regex is a non-match, never an error.
func matchValue(matchType, pattern, value string) bool {
	if matchType == MatchRegex {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}
