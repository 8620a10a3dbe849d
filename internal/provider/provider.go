// Package provider supplies the current effective rule set to the
// decision engine. It caches fetched rules with a TTL, bounds fetch
// latency, collapses concurrent refreshes, and degrades through three
// tiers when the control plane misbehaves: fresh, stale cache, built-in
// fallback. Evaluation never waits on the network beyond the fetch
// budget and never proceeds with zero rules.
package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guruthechosen/openclaw-harness/internal/logger"
	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

var log = logger.New("provider")

// Tier is the freshness tier of an effective rule set.
type Tier string

const (
	// TierFresh means the set was fetched within the TTL.
	TierFresh Tier = "fresh"
	// TierStale means the fetch failed but a previously fetched set is
	// still being applied.
	TierStale Tier = "stale"
	// TierFallback means nothing was ever fetched and the built-in
	// baseline is in force.
	TierFallback Tier = "fallback"
)

// Degraded reports whether the tier indicates the control plane could
// not be reached in time.
func (t Tier) Degraded() bool {
	return t != TierFresh
}

const (
	// DefaultTTL is how long a fetched rule set stays fresh.
	DefaultTTL = 30 * time.Second
	// DefaultFetchBudget bounds how long a tool call may wait on a rule
	// fetch before degrading.
	DefaultFetchBudget = 2 * time.Second
)

// Fetcher retrieves the remote rule list. Implementations must honor
// context cancellation.
type Fetcher interface {
	FetchRules(ctx context.Context) ([]rules.Rule, error)
}

// Option configures a Provider.
type Option func(*Provider)

// WithTTL overrides the cache TTL. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithFetchBudget overrides the per-call fetch budget.
func WithFetchBudget(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.fetchBudget = d
		}
	}
}

// Provider caches and serves the effective rule set.
type Provider struct {
	fetcher     Fetcher
	ttl         time.Duration
	fetchBudget time.Duration

	group singleflight.Group

	// mu guards the snapshot fields below. It is held only for reads and
	// swaps, never across a fetch.
	mu        sync.RWMutex
	remote    []rules.Rule
	overlay   []rules.Rule
	set       *rules.Set
	fetchedAt time.Time
	hasRemote bool
}

// New creates a Provider. Until the first successful fetch it serves the
// built-in fallback set.
func New(fetcher Fetcher, opts ...Option) *Provider {
	p := &Provider{
		fetcher:     fetcher,
		ttl:         DefaultTTL,
		fetchBudget: DefaultFetchBudget,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.set = rules.NewSet(rules.FallbackSet(), nil)
	return p
}

// Effective returns the rule set to evaluate against and its tier. A
// fresh cache is returned without I/O. Otherwise one fetch runs, shared
// across concurrent callers, and each caller waits at most its own
// budget: min(fetch budget, remaining context). On failure the last good
// set is served stale, or the fallback if nothing was ever fetched.
func (p *Provider) Effective(ctx context.Context) (*rules.Set, Tier) {
	p.mu.RLock()
	if p.hasRemote && time.Since(p.fetchedAt) < p.ttl {
		set := p.set
		p.mu.RUnlock()
		return set, TierFresh
	}
	p.mu.RUnlock()

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchBudget)
	defer cancel()

	// DoChan instead of Do: a caller whose budget expires abandons the
	// flight without cancelling it for everyone else, and the result
	// still lands in the cache for the next call.
	ch := p.group.DoChan("fetch", func() (any, error) {
		return p.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(*rules.Set), TierFresh
		}
		log.Warn("rule fetch failed: %v", res.Err)
	case <-fetchCtx.Done():
		log.Warn("rule fetch exceeded budget: %v", fetchCtx.Err())
	}

	return p.degraded()
}

// refresh fetches, rebuilds, and swaps in a new set. Only one refresh
// runs at a time (singleflight), so the fetch happens outside the lock.
func (p *Provider) refresh(ctx context.Context) (*rules.Set, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchBudget)
	defer cancel()

	remote, err := p.fetcher.FetchRules(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.remote = remote
	p.set = rules.NewSet(p.remote, p.overlay)
	p.fetchedAt = time.Now()
	p.hasRemote = true
	set := p.set
	p.mu.Unlock()

	log.Debug("refreshed rule set: %d rules", set.Len())
	return set, nil
}

// degraded returns the stale cache when one exists, else the fallback.
func (p *Provider) degraded() (*rules.Set, Tier) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.hasRemote {
		return p.set, TierStale
	}
	return p.set, TierFallback
}

// SetOverlay replaces the local overlay rules and rebuilds the effective
// set from whatever remote rules are cached. The freshness clock is not
// touched: overlay edits are local and do not make a stale cache fresh.
func (p *Provider) SetOverlay(overlay []rules.Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay = overlay
	if p.hasRemote {
		p.set = rules.NewSet(p.remote, p.overlay)
	} else {
		p.set = rules.NewSet(rules.FallbackSet(), p.overlay)
	}
	log.Info("applied rules overlay: %d rules", len(overlay))
}

// Invalidate expires the cache so the next Effective call refetches.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchedAt = time.Time{}
}

// Status describes the provider's cache for the status endpoint.
type Status struct {
	Tier      Tier      `json:"tier"`
	RuleCount int       `json:"rule_count"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// CurrentStatus reports the cache state without triggering a fetch.
func (p *Provider) CurrentStatus() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tier := TierFallback
	if p.hasRemote {
		if time.Since(p.fetchedAt) < p.ttl {
			tier = TierFresh
		} else {
			tier = TierStale
		}
	}
	return Status{Tier: tier, RuleCount: p.set.Len(), FetchedAt: p.fetchedAt}
}
