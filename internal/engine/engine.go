// Package engine turns an intercepted tool call into an allow or block
// verdict. Evaluation order is fixed: normalize, self-protection pass,
// then the provider's effective rules. Unrecognized tools and empty
// candidates are allowed without evaluation, and a degraded rule tier
// changes reporting, never the decision logic.
package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/guruthechosen/openclaw-harness/internal/event"
	"github.com/guruthechosen/openclaw-harness/internal/logger"
	"github.com/guruthechosen/openclaw-harness/internal/provider"
	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

var log = logger.New("engine")

// Decision is the engine's final word on a tool call.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionBlock Decision = "block"
)

// Match records one rule hit for the verdict.
type Match struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	RiskLevel   rules.RiskLevel `json:"risk_level"`
	Action      rules.Action    `json:"action"`
	Protected   bool            `json:"protected,omitempty"`
}

// Verdict is the outcome of evaluating one tool call. All matches are
// collected, not just the deciding one, so alerting sees the full
// picture.
type Verdict struct {
	Decision Decision `json:"decision"`
	// Rule names the match that decided a block.
	Rule     string        `json:"rule,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Matches  []Match       `json:"matches,omitempty"`
	Tier     provider.Tier `json:"tier"`
	Degraded bool          `json:"degraded"`
}

// Blocked reports whether the verdict refuses the call.
func (v Verdict) Blocked() bool {
	return v.Decision == DecisionBlock
}

// RuleSource supplies the effective rule set. Satisfied by
// *provider.Provider.
type RuleSource interface {
	Effective(ctx context.Context) (*rules.Set, provider.Tier)
}

// Engine evaluates tool calls against self-protection and provided rules.
type Engine struct {
	source      RuleSource
	norm        *rules.Normalizer
	selfProtect []*rules.CompiledRule
	protected   []string
	mentions    []string
	monitorOnly bool
}

// Option configures an Engine.
type Option func(*Engine)

// MonitorOnly downgrades blocking verdicts from provided rules to
// allow-with-matches, for observing a rule set before enforcing it.
// Self-protection is exempt and always blocks.
func MonitorOnly() Option {
	return func(e *Engine) { e.monitorOnly = true }
}

// New creates an Engine. The self-protection rules are compiled once
// here, not per call.
func New(source RuleSource, opts ...Option) *Engine {
	home, _ := os.UserHomeDir()
	e := &Engine{
		source:      source,
		norm:        rules.NewNormalizer(home),
		selfProtect: rules.CompiledSelfProtection(),
		protected:   rules.ProtectedPaths(),
		mentions:    rules.GuardMentions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate decides one tool call. It never returns an error: anything
// that cannot be evaluated is allowed, and anything touching the guard
// itself is blocked before provided rules are consulted.
func (e *Engine) Evaluate(ctx context.Context, ev event.ToolCallEvent) Verdict {
	ev = e.normalize(ev)

	// Self-protection runs before the unknown-kind shortcut: a hostile
	// payload under an unrecognized tool name still cannot touch the
	// guard if it carried a usable candidate.
	if v, hit := e.selfProtectionPass(ev); hit {
		log.Warn("self-protection block: %s (%s)", v.Reason, ev.Kind)
		return v
	}

	if !ev.Kind.Recognized() || ev.Candidate == "" {
		return Verdict{Decision: DecisionAllow, Tier: TierUnknownSafe}
	}

	set, tier := e.source.Effective(ctx)

	var matches []Match
	var blocking Match
	var haveBlocking bool
	for _, cr := range set.Rules() {
		if cr.Protected {
			// Already evaluated in the self-protection pass.
			continue
		}
		if !safeMatches(cr, ev) {
			continue
		}
		m := toMatch(cr)
		matches = append(matches, m)
		if m.Action.Blocking() && (!haveBlocking || m.RiskLevel.AtLeast(blocking.RiskLevel)) {
			blocking = m
			haveBlocking = true
		}
	}

	v := Verdict{
		Decision: DecisionAllow,
		Matches:  matches,
		Tier:     tier,
		Degraded: tier.Degraded(),
	}
	if haveBlocking {
		v.Rule = blocking.Name
		v.Reason = blockReason(blocking)
		if e.monitorOnly {
			log.Warn("monitor mode: would block %s call, rule %q", ev.Kind, blocking.Name)
		} else {
			v.Decision = DecisionBlock
			log.Info("blocked %s call: rule %q", ev.Kind, blocking.Name)
		}
	} else if len(matches) > 0 {
		log.Info("allowed %s call with %d rule match(es)", ev.Kind, len(matches))
	}
	return v
}

// TierUnknownSafe marks verdicts decided without consulting the
// provider. The tier slot must carry something truthful for the status
// payload, and "fresh" would claim a fetch that never happened.
const TierUnknownSafe = provider.Tier("not_evaluated")

// normalize canonicalizes the event's candidate and paths once, so every
// rule and check sees the same strings.
func (e *Engine) normalize(ev event.ToolCallEvent) event.ToolCallEvent {
	if ev.Kind.PathBearing() {
		ev.Candidate = e.norm.NormalizePath(ev.Candidate)
	} else {
		ev.Candidate = e.norm.NormalizeCommand(ev.Candidate)
	}
	ev.Paths = e.norm.NormalizeAllPaths(ev.Paths)
	return ev
}

// selfProtectionPass checks the call against the compiled-in protected
// rules plus two structural checks the rules cannot express: path
// containment inside protected locations, and edits that strip guard
// wiring out of arbitrary files. Any hit is a forced block.
func (e *Engine) selfProtectionPass(ev event.ToolCallEvent) (Verdict, bool) {
	for _, cr := range e.selfProtect {
		if safeMatches(cr, ev) {
			m := toMatch(cr)
			return Verdict{
				Decision: DecisionBlock,
				Rule:     m.Name,
				Reason:   blockReason(m),
				Matches:  []Match{m},
				Tier:     TierUnknownSafe,
			}, true
		}
	}

	if ev.Kind == event.KindFileWrite || ev.Kind == event.KindFileEdit {
		for _, p := range ev.Paths {
			for _, guarded := range e.protected {
				if e.norm.Contains(guarded, p) || strings.EqualFold(lastSegment(p), guarded) {
					return e.structuralBlock(fmt.Sprintf(
						"writes to %q are refused: the path belongs to the harness", p)), true
				}
			}
		}
		// Content touching the guard's identifiers is a tamper signal in
		// either direction: removing a mention unhooks the guard from a
		// settings file, and writing one plants an override that
		// disables it.
		old := strings.ToLower(ev.OldContent)
		fresh := strings.ToLower(ev.NewContent)
		for _, mention := range e.mentions {
			m := strings.ToLower(mention)
			if (old != "" && strings.Contains(old, m)) ||
				(fresh != "" && strings.Contains(fresh, m)) {
				return e.structuralBlock(fmt.Sprintf(
					"writes or edits touching %q references are refused", mention)), true
			}
		}
	}

	return Verdict{}, false
}

func (e *Engine) structuralBlock(reason string) Verdict {
	return Verdict{
		Decision: DecisionBlock,
		Rule:     "harness-self-protection",
		Reason:   reason,
		Matches: []Match{{
			Name:      "harness-self-protection",
			RiskLevel: rules.RiskCritical,
			Action:    rules.ActionBlock,
			Protected: true,
		}},
		Tier: TierUnknownSafe,
	}
}

// safeMatches contains a panicking matcher to one rule. A bug in a single
// rule's machinery must not take down enforcement for the call.
func safeMatches(cr *rules.CompiledRule, ev event.ToolCallEvent) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("rule %q panicked during match: %v", cr.Name, r)
			matched = false
		}
	}()
	return cr.Matches(ev)
}

func toMatch(cr *rules.CompiledRule) Match {
	return Match{
		Name:        cr.Name,
		Description: cr.Description,
		RiskLevel:   cr.GetRiskLevel(),
		Action:      cr.GetAction(),
		Protected:   cr.Protected,
	}
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func blockReason(m Match) string {
	if m.Description != "" {
		return fmt.Sprintf("blocked by rule %q: %s", m.Name, m.Description)
	}
	return fmt.Sprintf("blocked by rule %q", m.Name)
}
