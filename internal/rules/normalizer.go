package rules

import (
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes candidate strings and paths before matching.
// Commands get Unicode cleanup; paths additionally get separator
// unification, tilde expansion, and lexical cleaning so containment tests
// are separator- and encoding-agnostic.
type Normalizer struct {
	homeDir string
}

// NewNormalizer creates a Normalizer rooted at the given home directory.
// An empty homeDir disables tilde expansion.
func NewNormalizer(homeDir string) *Normalizer {
	return &Normalizer{homeDir: filepath.ToSlash(homeDir)}
}

// NormalizeCommand canonicalizes an exec candidate: strips null bytes and
// invisible runes, folds fullwidth/compatibility forms via NFKC, and maps
// cross-script confusables to ASCII. Case folding happens at match time,
// not here, so the original casing survives into alerts.
func (n *Normalizer) NormalizeCommand(s string) string {
	if s == "" {
		return ""
	}
	// Null bytes truncate at the syscall layer, so "rm\x00x -rf /" would
	// execute differently than it matches. Strip them first.
	s = strings.ReplaceAll(s, "\x00", "")
	// Invalid UTF-8 can corrupt NFKC handling of subsequent valid runes.
	s = strings.ToValidUTF8(s, "�")
	s = norm.NFKC.String(s)
	s = stripInvisible(s)
	s = stripConfusables(s)
	// Confusable replacement can create new composition pairs.
	s = norm.NFKC.String(s)
	return s
}

// NormalizePath canonicalizes a path for containment and glob tests:
// command-level cleanup plus separator unification, tilde expansion, and
// lexical cleaning of "..", "." and duplicate slashes.
func (n *Normalizer) NormalizePath(p string) string {
	p = strings.TrimSpace(n.NormalizeCommand(p))
	if p == "" {
		return ""
	}

	// Backslash and forward slash are equivalent separators for matching.
	p = strings.ReplaceAll(p, "\\", "/")

	if n.homeDir != "" {
		if p == "~" {
			p = n.homeDir
		} else if strings.HasPrefix(p, "~/") {
			p = n.homeDir + p[1:]
		}
	}

	cleaned := path.Clean(p)
	if strings.HasPrefix(p, "/") && !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}

// NormalizeAllPaths normalizes a slice of paths.
func (n *Normalizer) NormalizeAllPaths(paths []string) []string {
	if paths == nil {
		return nil
	}
	result := make([]string, len(paths))
	for i, p := range paths {
		result[i] = n.NormalizePath(p)
	}
	return result
}

// Contains reports whether candidate is dir itself or inside dir, after
// both sides are normalized. Works for candidates using either separator.
func (n *Normalizer) Contains(dir, candidate string) bool {
	d := strings.TrimSuffix(n.NormalizePath(dir), "/")
	c := n.NormalizePath(candidate)
	if d == "" || c == "" {
		return false
	}
	if strings.EqualFold(d, c) || hasFoldedPrefix(c, d+"/") {
		return true
	}
	// A relative protected dir like ".openclaw-harness" also matches
	// anywhere inside an absolute candidate path.
	if !strings.HasPrefix(d, "/") {
		return containsFold(c, "/"+d+"/") || hasFoldedSuffix(c, "/"+d)
	}
	return false
}

func hasFoldedPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hasFoldedSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// confusableMap maps common cross-script homoglyphs to ASCII. Covers the
// Cyrillic and Greek lookalikes plus Latin small capitals, all of which
// survive NFKC.
var confusableMap = map[rune]rune{
	// Cyrillic → Latin
	'\u0430': 'a', // а
	'\u0435': 'e', // е
	'\u0456': 'i', // і (Ukrainian)
	'\u043e': 'o', // о
	'\u0440': 'p', // р
	'\u0441': 'c', // с
	'\u0443': 'y', // у
	'\u0445': 'x', // х
	'\u0410': 'A', // А
	'\u0412': 'B', // В
	'\u0415': 'E', // Е
	'\u041a': 'K', // К
	'\u041c': 'M', // М
	'\u041d': 'H', // Н
	'\u041e': 'O', // О
	'\u0420': 'P', // Р
	'\u0421': 'C', // С
	'\u0422': 'T', // Т
	'\u0425': 'X', // Х
	// Greek → Latin
	'\u03b1': 'a', // α
	'\u03b5': 'e', // ε
	'\u03b9': 'i', // ι
	'\u03bf': 'o', // ο
	'\u03c1': 'p', // ρ
	'\u03c4': 't', // τ
	'\u0391': 'A', // Α
	'\u0392': 'B', // Β
	'\u0395': 'E', // Ε
	'\u0397': 'H', // Η
	'\u0399': 'I', // Ι
	'\u039a': 'K', // Κ
	'\u039c': 'M', // Μ
	'\u039d': 'N', // Ν
	'\u039f': 'O', // Ο
	'\u03a1': 'P', // Ρ
	'\u03a4': 'T', // Τ
	'\u03a5': 'Y', // Υ
	'\u03a7': 'X', // Χ
	'\u0396': 'Z', // Ζ
	// Latin small capitals (U+1D00 block) survive NFKC
	'\u1d00': 'a', // ᴀ
	'\u1d04': 'c', // ᴄ
	'\u1d07': 'e', // ᴇ
	'\u026a': 'i', // ɪ
	'\u1d0f': 'o', // ᴏ
	'\u1d18': 'p', // ᴘ
	'\u0280': 'r', // ʀ
	'\ua731': 's', // ꜱ
	'\u1d1b': 't', // ᴛ
	'\u1d1c': 'u', // ᴜ
}

// invisibleRunes are zero-width and directional formatting characters that
// are invisible to a human reading the command but defeat substring and
// glob matching: ".e<ZWJ>nv" looks like ".env" but matches nothing.
var invisibleRunes = map[rune]bool{
	'\u200b': true, // zero-width space
	'\u200c': true, // zero-width non-joiner
	'\u200d': true, // zero-width joiner
	'\ufeff': true, // zero-width no-break space (BOM)
	'\u00ad': true, // soft hyphen
	'\u034f': true, // combining grapheme joiner
	'\u061c': true, // arabic letter mark
	'\u2060': true, // word joiner
	'\u2061': true, // function application
	'\u2062': true, // invisible times
	'\u2063': true, // invisible separator
	'\u2064': true, // invisible plus
	'\u200e': true, // left-to-right mark
	'\u200f': true, // right-to-left mark
	'\u202a': true, // left-to-right embedding
	'\u202b': true, // right-to-left embedding
	'\u202c': true, // pop directional formatting
	'\u202d': true, // left-to-right override
	'\u202e': true, // right-to-left override
}

func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if invisibleRunes[r] {
			return -1
		}
		return r
	}, s)
}

func stripConfusables(s string) string {
	return strings.Map(func(r rune) rune {
		if ascii, ok := confusableMap[r]; ok {
			return ascii
		}
		return r
	}, s)
}
