// Package rules implements the rule data model, compilation, and matching
// for the harness: regex, keyword, and template rules, the compiled-in
// self-protection set, and the built-in fallback set used when the control
// plane is unreachable with no cache.
package rules

import (
	"errors"
	"fmt"

	"github.com/guruthechosen/openclaw-harness/internal/event"
	"github.com/guruthechosen/openclaw-harness/internal/logger"
)

var log = logger.New("rules")

// RiskLevel is an ordered severity classification for a rule.
type RiskLevel string

const (
	RiskInfo     RiskLevel = "info"
	RiskWarning  RiskLevel = "warning"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskInfo:     0,
	RiskWarning:  1,
	RiskCritical: 2,
}

// Valid returns true for a known risk level.
func (r RiskLevel) Valid() bool {
	_, ok := riskRank[r]
	return ok
}

// AtLeast reports whether r is at least as severe as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[r] >= riskRank[other]
}

// MaxRisk returns the more severe of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

// Action is what happens when a rule matches. The ordering is severity,
// not evaluation priority.
type Action string

const (
	ActionLogOnly       Action = "log_only"
	ActionAlert         Action = "alert"
	ActionPauseAndAsk   Action = "pause_and_ask"
	ActionBlock         Action = "block"
	ActionCriticalAlert Action = "critical_alert"
)

var actionRank = map[Action]int{
	ActionLogOnly:       0,
	ActionAlert:         1,
	ActionPauseAndAsk:   2,
	ActionBlock:         3,
	ActionCriticalAlert: 4,
}

// Valid returns true for a known action.
func (a Action) Valid() bool {
	_, ok := actionRank[a]
	return ok
}

// Blocking reports whether a matched rule with this action blocks the tool
// call. pause_and_ask blocks at the hook boundary: the host has no pause
// channel, so withholding approval means refusing the call.
func (a Action) Blocking() bool {
	return a == ActionPauseAndAsk || a == ActionBlock || a == ActionCriticalAlert
}

// MatchKind selects which of the three match variants a rule uses.
type MatchKind string

const (
	MatchRegex    MatchKind = "regex"
	MatchKeyword  MatchKind = "keyword"
	MatchTemplate MatchKind = "template"
)

// KeywordSpec holds the keyword operators. All present operators must pass
// (conjunction across operator kinds); within starts_with, ends_with, glob,
// and any_of, one hit suffices.
type KeywordSpec struct {
	Contains   []string `yaml:"contains,omitempty" json:"contains,omitempty"`
	AnyOf      []string `yaml:"any_of,omitempty" json:"any_of,omitempty"`
	StartsWith []string `yaml:"starts_with,omitempty" json:"starts_with,omitempty"`
	EndsWith   []string `yaml:"ends_with,omitempty" json:"ends_with,omitempty"`
	Glob       []string `yaml:"glob,omitempty" json:"glob,omitempty"`
}

// Empty returns true if no operator is specified. An empty keyword spec
// never matches.
func (k *KeywordSpec) Empty() bool {
	return k == nil ||
		(len(k.Contains) == 0 && len(k.AnyOf) == 0 && len(k.StartsWith) == 0 &&
			len(k.EndsWith) == 0 && len(k.Glob) == 0)
}

// TemplateParams parameterize a template rule.
type TemplateParams struct {
	Path       string   `yaml:"path,omitempty" json:"path,omitempty"`
	Paths      []string `yaml:"paths,omitempty" json:"paths,omitempty"`
	Operations []string `yaml:"operations,omitempty" json:"operations,omitempty"`
	Commands   []string `yaml:"commands,omitempty" json:"commands,omitempty"`
	Patterns   []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// AllPaths returns Paths plus the singular Path when set.
func (p *TemplateParams) AllPaths() []string {
	if p == nil {
		return nil
	}
	paths := make([]string, 0, len(p.Paths)+1)
	paths = append(paths, p.Paths...)
	if p.Path != "" {
		paths = append(paths, p.Path)
	}
	return paths
}

// Rule is a single matchable policy statement.
type Rule struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	MatchType   MatchKind `yaml:"match_type,omitempty" json:"match_type,omitempty"`

	// Exactly one of the following variants is populated, selected by
	// MatchType (default regex, matching the wire format).
	Pattern  string          `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Keyword  *KeywordSpec    `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	Template string          `yaml:"template,omitempty" json:"template,omitempty"`
	Params   *TemplateParams `yaml:"params,omitempty" json:"params,omitempty"`

	AppliesTo []event.ToolKind `yaml:"applies_to,omitempty" json:"applies_to,omitempty"`
	RiskLevel RiskLevel        `yaml:"risk_level,omitempty" json:"risk_level,omitempty"`
	Action    Action           `yaml:"action,omitempty" json:"action,omitempty"`
	Enabled   *bool            `yaml:"enabled,omitempty" json:"enabled,omitempty"` // default true

	// Protected marks self-protection rules. It is set only by the
	// compiled-in constructors in this package and stripped from anything
	// arriving over the wire, so no mutation path can mint one.
	Protected bool `yaml:"-" json:"protected,omitempty"`
}

// IsEnabled returns whether the rule is enabled (default true).
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// GetRiskLevel returns the risk level, defaulting to warning like the
// control plane does for unset fields.
func (r *Rule) GetRiskLevel() RiskLevel {
	if !r.RiskLevel.Valid() {
		return RiskWarning
	}
	return r.RiskLevel
}

// GetAction returns the action, defaulting to alert.
func (r *Rule) GetAction() Action {
	if !r.Action.Valid() {
		return ActionAlert
	}
	return r.Action
}

// GetMatchType returns the match kind, defaulting to regex.
func (r *Rule) GetMatchType() MatchKind {
	if r.MatchType == "" {
		return MatchRegex
	}
	return r.MatchType
}

// AppliesToKind reports whether this rule is evaluated for the given tool
// kind. An empty applies_to list means the rule applies to all kinds.
func (r *Rule) AppliesToKind(kind event.ToolKind) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, k := range r.AppliesTo {
		if k == kind {
			return true
		}
	}
	return false
}

// Validate checks structural well-formedness: a name and exactly one
// populated match variant. Pattern compilation is Compile's job.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return errors.New("rule name is required")
	}

	switch r.GetMatchType() {
	case MatchRegex:
		if r.Pattern == "" {
			return fmt.Errorf("rule %q: regex rule requires a pattern", r.Name)
		}
	case MatchKeyword:
		if r.Keyword.Empty() {
			return fmt.Errorf("rule %q: keyword rule requires at least one operator", r.Name)
		}
	case MatchTemplate:
		if r.Template == "" {
			return fmt.Errorf("rule %q: template rule requires a template name", r.Name)
		}
	default:
		return fmt.Errorf("rule %q: unknown match_type %q", r.Name, r.MatchType)
	}

	for _, k := range r.AppliesTo {
		if !k.Recognized() {
			return fmt.Errorf("rule %q: unknown tool kind %q in applies_to", r.Name, k)
		}
	}

	return nil
}
