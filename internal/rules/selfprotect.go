package rules

// Self-protection rules are compiled into the binary and evaluated before
// any provider-supplied rule. They cannot be disabled, shadowed, or
// replaced over the wire: merging strips the Protected flag from anything
// remote and drops remote rules that reuse a protected name.

// GuardName is the identifier the harness protects. It appears in config
// paths, the installed plugin, and the management API.
const GuardName = "openclaw-harness"

// ProtectedPaths are locations an agent must not write, edit, or delete.
// Relative entries match anywhere inside an absolute path.
func ProtectedPaths() []string {
	return []string{
		".openclaw-harness",
		"harness-guard",
		"bash-tools.exec.js",
		"bash-tools.exec.js.orig",
	}
}

// GuardMentions are substrings whose appearance in written or edited file
// content signals an attempt to tamper with the guard from the inside,
// for example editing a settings file to drop the hook.
func GuardMentions() []string {
	return []string{
		"openclaw-harness",
		"harness-guard",
		".openclaw-harness",
	}
}

// SelfProtectionSet returns the compiled-in protected rules. Every rule
// carries Protected=true and a blocking action; the engine additionally
// forces a block on any self-protection match regardless of the action
// recorded here.
func SelfProtectionSet() []Rule {
	return []Rule{
		{
			Name:        "harness-protect-config",
			Description: "Prevents modification or deletion of harness configuration files",
			MatchType:   MatchTemplate,
			Template:    "protect_path",
			Params: &TemplateParams{
				Paths: []string{
					".openclaw-harness/config.yaml",
					".openclaw-harness/rules.yaml",
					".openclaw-harness/alerts.json",
					".openclaw-harness",
				},
				Operations: []string{"rm", "rmdir", "mv", "shred", "truncate", "chmod", "chown", "sed", "tee"},
			},
			RiskLevel: RiskCritical,
			Action:    ActionBlock,
			Protected: true,
		},
		{
			Name:        "harness-protect-guard-plugin",
			Description: "Prevents removal or modification of the installed guard plugin",
			MatchType:   MatchTemplate,
			Template:    "protect_path",
			Params: &TemplateParams{
				Paths:      []string{"harness-guard", "*/plugins/harness-guard*"},
				Operations: []string{"rm", "rmdir", "mv", "shred", "truncate", "sed", "tee"},
			},
			RiskLevel: RiskCritical,
			Action:    ActionBlock,
			Protected: true,
		},
		{
			Name:        "harness-protect-binary",
			Description: "Prevents deletion or replacement of the harness binary",
			MatchType:   MatchTemplate,
			Template:    "prevent_delete",
			Params: &TemplateParams{
				Paths: []string{"*/openclaw-harness", "*/bin/openclaw-harness"},
			},
			RiskLevel: RiskCritical,
			Action:    ActionBlock,
			Protected: true,
		},
		{
			Name:        "harness-block-kill",
			Description: "Prevents killing the harness process",
			Pattern:     `\b(kill|pkill|killall)\s+[^;&|]*(openclaw|harness)`,
			RiskLevel:   RiskCritical,
			Action:      ActionBlock,
			Protected:   true,
		},
		{
			Name:        "harness-block-stop",
			Description: "Prevents stopping or uninstalling the harness service",
			Pattern:     `\b(openclaw-harness\s+(stop|disable|uninstall)|(systemctl|service|launchctl)\s+(stop|disable|unload)\s+[^;&|]*harness)`,
			RiskLevel:   RiskCritical,
			Action:      ActionBlock,
			Protected:   true,
		},
		{
			Name:        "harness-block-api-tamper",
			Description: "Prevents tampering with the harness management API",
			Pattern:     `\b(curl|wget|http)\b[^;&|]*(localhost|127\.0\.0\.1|\[::1\]):8380/api/(rules|config|hook)[^;&|]*`,
			RiskLevel:   RiskCritical,
			Action:      ActionBlock,
			Protected:   true,
		},
		{
			Name:        "harness-block-hook-revert",
			Description: "Prevents restoring the pre-patch tool executor to bypass interception",
			Pattern:     `\b(mv|cp|install)\s+[^;&|]*bash-tools\.exec\.js\.orig`,
			RiskLevel:   RiskCritical,
			Action:      ActionBlock,
			Protected:   true,
		},
		{
			Name:        "harness-block-env-bypass",
			Description: "Prevents disabling the guard through its environment switches",
			MatchType:   MatchKeyword,
			Keyword: &KeywordSpec{
				AnyOf: []string{
					"HARNESS_DISABLED=1",
					"HARNESS_ENFORCE=0",
					"unset HARNESS_",
				},
			},
			RiskLevel: RiskCritical,
			Action:    ActionBlock,
			Protected: true,
		},
	}
}

// CompiledSelfProtection compiles the self-protection set. The rules are
// authored in this package, so compilation failures here are programmer
// errors; they are logged and the affected rule is dropped like any other.
func CompiledSelfProtection() []*CompiledRule {
	return CompileSet(SelfProtectionSet())
}
