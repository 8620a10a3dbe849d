package rules

// Set is an immutable, compiled collection of rules in evaluation order:
// self-protection first, then remote rules, then the local overlay.
// Provider refreshes build a new Set and swap it in wholesale; a Set is
// never mutated after construction.
type Set struct {
	compiled []*CompiledRule
}

// NewSet builds a Set from remote and overlay rules, always prepending
// the compiled-in self-protection rules. Wire rules that reuse a
// protected name are dropped, so a remote rule can never weaken or
// replace a protected one. Later same-named rules otherwise win: an
// overlay rule overrides a remote rule of the same name.
func NewSet(remote, overlay []Rule) *Set {
	protected := SelfProtectionSet()

	reserved := make(map[string]bool, len(protected))
	for _, r := range protected {
		reserved[r.Name] = true
	}

	merged := make(map[string]Rule)
	var order []string
	for _, r := range append(append([]Rule{}, remote...), overlay...) {
		// Wire rules never carry protection, whatever they claim.
		r.Protected = false
		if reserved[r.Name] {
			log.Warn("dropping rule %q: name is reserved for a protected rule", r.Name)
			continue
		}
		if _, ok := merged[r.Name]; !ok {
			order = append(order, r.Name)
		}
		merged[r.Name] = r
	}

	all := make([]Rule, 0, len(protected)+len(order))
	all = append(all, protected...)
	for _, name := range order {
		all = append(all, merged[name])
	}

	return &Set{compiled: CompileSet(all)}
}

// FallbackRuleSet builds the Set used when nothing has ever been fetched:
// self-protection plus the built-in baseline.
func FallbackRuleSet() *Set {
	return NewSet(FallbackSet(), nil)
}

// Rules returns the compiled rules in evaluation order. Callers must not
// mutate the returned slice.
func (s *Set) Rules() []*CompiledRule {
	if s == nil {
		return nil
	}
	return s.compiled
}

// Len returns the number of compiled rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.compiled)
}

// Names returns the rule names in evaluation order.
func (s *Set) Names() []string {
	names := make([]string, 0, s.Len())
	for _, cr := range s.Rules() {
		names = append(names, cr.Name)
	}
	return names
}
