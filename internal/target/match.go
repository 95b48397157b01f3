package target

import (
	"fmt"
	"regexp"
)

// TypePage is the listing type of a top-level page.
const TypePage = "page"

// MatchRule selects the application's foreground page. A nil URLPattern
// matches every URL; a nil ExcludePattern excludes nothing.
type MatchRule struct {
	URLPattern     *regexp.Regexp
	ExcludePattern *regexp.Regexp
}

// CompileRule builds a MatchRule from regular expression sources. Empty
// sources leave the corresponding pattern nil.
func CompileRule(include, exclude string) (MatchRule, error) {
	var rule MatchRule
	if include != "" {
		re, err := regexp.Compile(include)
		if err != nil {
			return MatchRule{}, fmt.Errorf("invalid url pattern: %w", err)
		}
		rule.URLPattern = re
	}
	if exclude != "" {
		re, err := regexp.Compile(exclude)
		if err != nil {
			return MatchRule{}, fmt.Errorf("invalid exclude pattern: %w", err)
		}
		rule.ExcludePattern = re
	}
	return rule, nil
}

// Matches reports whether t is an attachable page accepted by the rule.
// Listings without a type are treated as pages.
func (r MatchRule) Matches(t Target) bool {
	if (t.Type != "" && t.Type != TypePage) || t.SocketEndpoint == "" {
		return false
	}
	if r.URLPattern != nil && !r.URLPattern.MatchString(t.DisplayURL) {
		return false
	}
	if r.ExcludePattern != nil && r.ExcludePattern.MatchString(t.DisplayURL) {
		return false
	}
	return true
}

// SelectPrimary returns the first target accepted by rule. ok is false when
// the application is not running or not attachable.
func SelectPrimary(targets []Target, rule MatchRule) (t Target, ok bool) {
	for _, candidate := range targets {
		if rule.Matches(candidate) {
			return candidate, true
		}
	}
	return Target{}, false
}
