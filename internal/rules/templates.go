package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Templates are named pattern generators: a template rule names one and
// supplies params, and expansion happens once at compile time so template
// matching costs the same as plain regex matching.

const defaultDestructiveOps = `rm|rmdir|mv|shred|unlink|truncate`

// ExpandTemplate expands a named template with the given params into a
// list of regex pattern strings. Unknown template names are an error so
// CompileSet can drop the rule instead of silently never matching.
func ExpandTemplate(name string, params *TemplateParams) ([]string, error) {
	fn, ok := templateCatalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	patterns, err := fn(params)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("template %q expanded to no patterns", name)
	}
	return patterns, nil
}

// TemplateNames returns the catalog's template names, for validation
// messages and the rules listing endpoint.
func TemplateNames() []string {
	names := make([]string, 0, len(templateCatalog))
	for name := range templateCatalog {
		names = append(names, name)
	}
	return names
}

var templateCatalog = map[string]func(*TemplateParams) ([]string, error){
	"protect_path":          expandProtectPath,
	"prevent_delete":        expandPreventDelete,
	"prevent_overwrite":     expandPreventOverwrite,
	"block_hidden_files":    expandBlockHiddenFiles,
	"block_command":         expandBlockCommand,
	"block_sudo":            expandBlockSudo,
	"block_package_install": expandBlockPackageInstall,
	"prevent_exfiltration":  expandPreventExfiltration,
	"protect_secrets":       expandProtectSecrets,
	"protect_database":      expandProtectDatabase,
	"protect_git":           expandProtectGit,
	"protect_system_config": expandProtectSystemConfig,
	"block_kill_process":    expandBlockKillProcess,
	"block_network_tools":   expandBlockNetworkTools,
}

// pathToRegex converts a literal path with optional "*" wildcards into a
// regex fragment. Everything except "*" is quoted, so paths containing
// regex metacharacters stay literal.
func pathToRegex(p string) string {
	quoted := regexp.QuoteMeta(strings.ReplaceAll(p, "\\", "/"))
	return strings.ReplaceAll(quoted, `\*`, `[^\s]*`)
}

func requirePaths(params *TemplateParams) ([]string, error) {
	paths := params.AllPaths()
	if len(paths) == 0 {
		return nil, fmt.Errorf("requires path or paths")
	}
	return paths, nil
}

// expandProtectPath blocks destructive commands targeting the given
// paths. Operations default to the destructive set and may be overridden.
func expandProtectPath(params *TemplateParams) ([]string, error) {
	if params == nil {
		return nil, fmt.Errorf("requires params")
	}
	paths, err := requirePaths(params)
	if err != nil {
		return nil, err
	}

	ops := defaultDestructiveOps
	if len(params.Operations) > 0 {
		quoted := make([]string, len(params.Operations))
		for i, op := range params.Operations {
			quoted[i] = regexp.QuoteMeta(op)
		}
		ops = strings.Join(quoted, "|")
	}

	patterns := make([]string, 0, len(paths))
	for _, p := range paths {
		patterns = append(patterns,
			`(^|[;&|]\s*)(`+ops+`)\s+[^;&|]*`+pathToRegex(p))
	}
	return patterns, nil
}

func expandPreventDelete(params *TemplateParams) ([]string, error) {
	if params == nil {
		return nil, fmt.Errorf("requires params")
	}
	paths, err := requirePaths(params)
	if err != nil {
		return nil, err
	}
	patterns := make([]string, 0, len(paths))
	for _, p := range paths {
		patterns = append(patterns,
			`(rm|rmdir|shred|unlink)\s+(-[a-zA-Z-]+\s+)*[^;&|]*`+pathToRegex(p))
	}
	return patterns, nil
}

func expandPreventOverwrite(params *TemplateParams) ([]string, error) {
	if params == nil {
		return nil, fmt.Errorf("requires params")
	}
	paths, err := requirePaths(params)
	if err != nil {
		return nil, err
	}
	var patterns []string
	for _, p := range paths {
		re := pathToRegex(p)
		patterns = append(patterns,
			`>+\s*`+re,
			`\btee\s+(-[a-zA-Z]+\s+)*`+re,
			`\b(cp|mv|dd|install)\s+[^;&|]*\s`+re)
	}
	return patterns, nil
}

// expandBlockHiddenFiles blocks destructive operations on dotfiles.
func expandBlockHiddenFiles(params *TemplateParams) ([]string, error) {
	ops := defaultDestructiveOps
	if params != nil && len(params.Operations) > 0 {
		quoted := make([]string, len(params.Operations))
		for i, op := range params.Operations {
			quoted[i] = regexp.QuoteMeta(op)
		}
		ops = strings.Join(quoted, "|")
	}
	return []string{
		`(^|[;&|]\s*)(` + ops + `)\s+(-[a-zA-Z-]+\s+)*[^\s;&|]*/?\.[^/\s]+`,
	}, nil
}

func expandBlockCommand(params *TemplateParams) ([]string, error) {
	if params == nil || len(params.Commands) == 0 {
		return nil, fmt.Errorf("requires commands")
	}
	patterns := make([]string, 0, len(params.Commands))
	for _, c := range params.Commands {
		patterns = append(patterns,
			`(^|[\s;&|])`+regexp.QuoteMeta(c)+`([\s;&|]|$)`)
	}
	return patterns, nil
}

func expandBlockSudo(*TemplateParams) ([]string, error) {
	return []string{`(^|[\s;&|])(sudo|doas)\s+`}, nil
}

func expandBlockPackageInstall(*TemplateParams) ([]string, error) {
	return []string{
		`\b(npm|pnpm|yarn|bun)\s+(install|add|i)\b`,
		`\b(pip|pip3|pipx|uv)\s+install\b`,
		`\b(cargo|gem|go)\s+(install|add|get)\b`,
		`\b(apt|apt-get|dnf|yum|pacman|brew|apk)\s+(install|add|-S)\b`,
	}, nil
}

func expandPreventExfiltration(*TemplateParams) ([]string, error) {
	return []string{
		`\b(curl|wget)\b[^;&|]*\s(-d|--data(-raw|-binary|-urlencode)?|--upload-file|-T|-F|--form)\b`,
		`\b(nc|ncat|netcat|socat)\s+[^;&|]*\d`,
		`\b(scp|rsync|sftp)\s+[^;&|]*\s[^\s;&|]+@`,
	}, nil
}

func expandProtectSecrets(params *TemplateParams) ([]string, error) {
	patterns := []string{
		`\.env(\.[a-z]+)?\b`,
		`\.aws/credentials`,
		`\.ssh/`,
		`id_(rsa|ed25519|ecdsa|dsa)`,
		`\.(pem|pfx|p12|keystore)\b`,
		`(secrets?|credentials?)\.(json|ya?ml|toml)\b`,
		`\.(npmrc|netrc|pgpass|git-credentials)\b`,
	}
	if params != nil {
		for _, p := range params.AllPaths() {
			patterns = append(patterns, pathToRegex(p))
		}
	}
	return patterns, nil
}

func expandProtectDatabase(params *TemplateParams) ([]string, error) {
	patterns := []string{
		`\b(drop\s+(table|database|schema)|truncate\s+table|delete\s+from)\b`,
		`\b(` + defaultDestructiveOps + `)\s+[^;&|]*\.(db|sqlite3?|sql)\b`,
	}
	if params != nil {
		for _, p := range params.AllPaths() {
			patterns = append(patterns,
				`\b(`+defaultDestructiveOps+`)\s+[^;&|]*`+pathToRegex(p))
		}
	}
	return patterns, nil
}

func expandProtectGit(*TemplateParams) ([]string, error) {
	return []string{
		`\bgit\s+push\s+[^;&|]*(--force\b|-f\b)`,
		`\bgit\s+reset\s+--hard\b`,
		`\bgit\s+clean\s+-[a-zA-Z]*f`,
		`\bgit\s+(branch|tag)\s+(-D|-d)\b`,
		`\b(` + defaultDestructiveOps + `)\s+[^;&|]*\.git(/|\b)`,
	}, nil
}

func expandProtectSystemConfig(*TemplateParams) ([]string, error) {
	return []string{
		`\b(` + defaultDestructiveOps + `|chmod|chown|tee)\s+[^;&|]*/(etc|boot|usr/lib|usr/local/etc|var/lib)/`,
		`>+\s*/(etc|boot)/`,
	}, nil
}

func expandBlockKillProcess(params *TemplateParams) ([]string, error) {
	targets := `.*`
	if params != nil && len(params.Patterns) > 0 {
		quoted := make([]string, len(params.Patterns))
		for i, p := range params.Patterns {
			quoted[i] = regexp.QuoteMeta(p)
		}
		targets = `[^;&|]*(` + strings.Join(quoted, "|") + `)`
	}
	return []string{
		`\b(kill|pkill|killall)\s+` + targets,
	}, nil
}

func expandBlockNetworkTools(*TemplateParams) ([]string, error) {
	return []string{
		`\b(nmap|masscan|zmap|nikto|hydra|medusa|sqlmap|tcpdump|ettercap|aircrack-ng)\b`,
	}, nil
}
