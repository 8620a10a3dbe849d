package event

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// CommandPaths harvests file paths referenced by a shell command line so
// path-scoped rules can see them without executing anything. Parsing is
// static: command substitution and expansions are not evaluated, only
// literal words and redirect targets are collected.
func CommandPaths(command string) []string {
	if strings.TrimSpace(command) == "" {
		return nil
	}

	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		// Unparseable shell still gets matched as a raw string by the
		// engine; we just cannot harvest paths from it.
		return nil
	}
	syntax.Simplify(file)

	var paths []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || !looksLikePath(s) || seen[s] {
			return
		}
		seen[s] = true
		paths = append(paths, s)
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.CallExpr:
			// Skip argv[0]: the program name is matched by command
			// rules, not path rules.
			for i, word := range n.Args {
				if i == 0 {
					continue
				}
				add(wordLiteral(word))
			}
		case *syntax.Redirect:
			if n.Word != nil {
				add(wordLiteral(n.Word))
			}
		}
		return true
	})

	return paths
}

// wordLiteral flattens a word made only of literal parts. Words containing
// expansions or substitutions return "" — their value is unknowable
// statically.
func wordLiteral(w *syntax.Word) string {
	if w == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return ""
				}
				sb.WriteString(lit.Value)
			}
		default:
			return ""
		}
	}
	return sb.String()
}

// looksLikePath filters harvested words down to plausible file paths:
// anything with a separator, a home or relative prefix, or a leading dot
// (dotfiles are the usual target of secret-access rules).
func looksLikePath(s string) bool {
	if strings.HasPrefix(s, "-") {
		return false // flag
	}
	return strings.Contains(s, "/") || strings.Contains(s, "\\") ||
		strings.HasPrefix(s, "~") || strings.HasPrefix(s, ".")
}
