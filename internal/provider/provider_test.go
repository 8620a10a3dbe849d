package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	rules []rules.Rule
	err   error
	delay time.Duration
}

func (s *stubFetcher) FetchRules(ctx context.Context) ([]rules.Rule, error) {
	s.mu.Lock()
	s.calls++
	rs, err, delay := s.rules, s.err, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rs, err
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubFetcher) set(rs []rules.Rule, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules, s.err = rs, err
}

func remoteRule(name string) rules.Rule {
	return rules.Rule{Name: name, Pattern: "zz_" + name, Action: rules.ActionBlock}
}

func hasRule(set *rules.Set, name string) bool {
	for _, cr := range set.Rules() {
		if cr.Name == name {
			return true
		}
	}
	return false
}

func TestEffectiveCachesWithinTTL(t *testing.T) {
	stub := &stubFetcher{rules: []rules.Rule{remoteRule("r1")}}
	p := New(stub, WithTTL(time.Minute))

	set, tier := p.Effective(context.Background())
	if tier != TierFresh {
		t.Fatalf("tier = %q, want fresh", tier)
	}
	if !hasRule(set, "r1") {
		t.Fatal("fetched rule missing from set")
	}

	for i := 0; i < 5; i++ {
		if _, tier := p.Effective(context.Background()); tier != TierFresh {
			t.Fatalf("tier = %q on cache hit", tier)
		}
	}
	if got := stub.callCount(); got != 1 {
		t.Errorf("fetch called %d times, want 1", got)
	}
}

func TestEffectiveServesStaleOnFetchFailure(t *testing.T) {
	stub := &stubFetcher{rules: []rules.Rule{remoteRule("r1")}}
	p := New(stub, WithTTL(20*time.Millisecond))

	if _, tier := p.Effective(context.Background()); tier != TierFresh {
		t.Fatalf("initial tier = %q", tier)
	}

	stub.set(nil, errors.New("control plane down"))
	time.Sleep(30 * time.Millisecond)

	set, tier := p.Effective(context.Background())
	if tier != TierStale {
		t.Fatalf("tier = %q, want stale", tier)
	}
	if !hasRule(set, "r1") {
		t.Error("stale set lost previously fetched rule")
	}
}

func TestEffectiveFallsBackWhenNeverFetched(t *testing.T) {
	stub := &stubFetcher{err: errors.New("unreachable")}
	p := New(stub)

	set, tier := p.Effective(context.Background())
	if tier != TierFallback {
		t.Fatalf("tier = %q, want fallback", tier)
	}
	if !hasRule(set, "dangerous_rm") {
		t.Error("fallback set missing baseline rule")
	}
	if !hasRule(set, "harness-block-kill") {
		t.Error("fallback set missing self-protection rule")
	}
	if !tier.Degraded() {
		t.Error("fallback tier not reported as degraded")
	}
}

func TestEffectiveCollapsesConcurrentFetches(t *testing.T) {
	stub := &stubFetcher{rules: []rules.Rule{remoteRule("r1")}, delay: 50 * time.Millisecond}
	p := New(stub, WithTTL(time.Minute))

	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, tier := p.Effective(context.Background()); tier == TierFresh {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := stub.callCount(); got != 1 {
		t.Errorf("fetch called %d times for concurrent callers, want 1", got)
	}
	if fresh.Load() != 10 {
		t.Errorf("%d of 10 callers got the fresh set", fresh.Load())
	}
}

func TestEffectiveHonorsFetchBudget(t *testing.T) {
	stub := &stubFetcher{rules: []rules.Rule{remoteRule("r1")}, delay: 2 * time.Second}
	p := New(stub, WithFetchBudget(30*time.Millisecond))

	start := time.Now()
	_, tier := p.Effective(context.Background())
	elapsed := time.Since(start)

	if tier != TierFallback {
		t.Errorf("tier = %q, want fallback", tier)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Effective took %v, budget was 30ms", elapsed)
	}
}

func TestSetOverlay(t *testing.T) {
	stub := &stubFetcher{rules: []rules.Rule{remoteRule("r1")}}
	p := New(stub, WithTTL(time.Minute))
	p.Effective(context.Background())

	p.SetOverlay([]rules.Rule{{Name: "local", Pattern: "local_x"}})

	set, tier := p.Effective(context.Background())
	if tier != TierFresh {
		t.Fatalf("overlay change altered freshness: tier = %q", tier)
	}
	if !hasRule(set, "local") || !hasRule(set, "r1") {
		t.Error("rebuilt set missing overlay or remote rule")
	}
	if got := stub.callCount(); got != 1 {
		t.Errorf("overlay change triggered %d fetches, want 1", got)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	stub := &stubFetcher{rules: []rules.Rule{remoteRule("r1")}}
	p := New(stub, WithTTL(time.Hour))

	p.Effective(context.Background())
	p.Invalidate()
	p.Effective(context.Background())

	if got := stub.callCount(); got != 2 {
		t.Errorf("fetch called %d times after invalidate, want 2", got)
	}
}

func TestCurrentStatusDoesNotFetch(t *testing.T) {
	stub := &stubFetcher{rules: []rules.Rule{remoteRule("r1")}}
	p := New(stub)

	st := p.CurrentStatus()
	if st.Tier != TierFallback {
		t.Errorf("tier = %q before any fetch", st.Tier)
	}
	if st.RuleCount == 0 {
		t.Error("status reports zero rules despite fallback set")
	}
	if stub.callCount() != 0 {
		t.Error("CurrentStatus triggered a fetch")
	}
}
