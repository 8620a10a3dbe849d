package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/guruthechosen/openclaw-harness/internal/event"
)

// CompiledRule is a Rule with its match machinery prepared: regex rules
// hold one compiled pattern, template rules hold the expanded pattern
// list, keyword rules hold compiled globs. Compilation happens once per
// provider refresh, never per tool call.
type CompiledRule struct {
	Rule

	regexes []*regexp.Regexp
	globs   []glob.Glob
}

// Compile prepares a rule for matching. Regex compilation is RE2, so a
// compiled rule can never backtrack pathologically at match time.
func Compile(r Rule) (*CompiledRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	cr := &CompiledRule{Rule: r}

	switch r.GetMatchType() {
	case MatchRegex:
		re, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		cr.regexes = []*regexp.Regexp{re}

	case MatchKeyword:
		for _, g := range r.Keyword.Glob {
			compiled, err := glob.Compile(strings.ToLower(g))
			if err != nil {
				return nil, fmt.Errorf("rule %q: bad glob %q: %w", r.Name, g, err)
			}
			cr.globs = append(cr.globs, compiled)
		}

	case MatchTemplate:
		patterns, err := ExpandTemplate(r.Template, r.Params)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		for _, p := range patterns {
			re, err := compilePattern(p)
			if err != nil {
				return nil, fmt.Errorf("rule %q: template %q expanded to bad pattern: %w", r.Name, r.Template, err)
			}
			cr.regexes = append(cr.regexes, re)
		}
	}

	return cr, nil
}

// compilePattern compiles a pattern case-insensitively unless the author
// already set inline flags.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "(?") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// Matches reports whether the rule matches the event. The event's
// candidate and paths are expected to be normalized already. Matching is
// pure: no I/O, no mutation, safe from any goroutine.
func (cr *CompiledRule) Matches(ev event.ToolCallEvent) bool {
	if !cr.IsEnabled() || !cr.AppliesToKind(ev.Kind) {
		return false
	}
	if ev.Candidate == "" {
		return false
	}

	switch cr.GetMatchType() {
	case MatchRegex, MatchTemplate:
		for _, re := range cr.regexes {
			if re.MatchString(ev.Candidate) {
				return true
			}
			// Path-targeting patterns also get a shot at each harvested
			// path, so a template written against commands still catches
			// direct file tools touching the same location.
			for _, p := range ev.Paths {
				if re.MatchString(p) {
					return true
				}
			}
		}
		return false

	case MatchKeyword:
		return cr.matchKeyword(ev.Candidate)
	}

	return false
}

// matchKeyword applies the keyword operators to the candidate. Operators
// are conjunctive across kinds; any_of, starts_with, ends_with, and glob
// are disjunctive within their own list. Comparison is case-folded.
func (cr *CompiledRule) matchKeyword(candidate string) bool {
	k := cr.Keyword
	if k.Empty() {
		return false
	}
	c := strings.ToLower(candidate)

	for _, want := range k.Contains {
		if !strings.Contains(c, strings.ToLower(want)) {
			return false
		}
	}

	if len(k.AnyOf) > 0 && !anyFold(k.AnyOf, func(s string) bool { return strings.Contains(c, s) }) {
		return false
	}
	if len(k.StartsWith) > 0 && !anyFold(k.StartsWith, func(s string) bool { return strings.HasPrefix(c, s) }) {
		return false
	}
	if len(k.EndsWith) > 0 && !anyFold(k.EndsWith, func(s string) bool { return strings.HasSuffix(c, s) }) {
		return false
	}

	if len(cr.globs) > 0 {
		hit := false
		for _, g := range cr.globs {
			if g.Match(c) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	return true
}

func anyFold(needles []string, pred func(string) bool) bool {
	for _, n := range needles {
		if pred(strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// CompileSet compiles a batch of rules, dropping the ones that fail and
// logging each failure once. A malformed rule never takes down the set.
func CompileSet(list []Rule) []*CompiledRule {
	compiled := make([]*CompiledRule, 0, len(list))
	for _, r := range list {
		cr, err := Compile(r)
		if err != nil {
			log.Warn("skipping rule: %v", err)
			continue
		}
		compiled = append(compiled, cr)
	}
	return compiled
}
