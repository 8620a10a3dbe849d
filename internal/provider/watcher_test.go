package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatchOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	stub := &stubFetcher{err: errors.New("offline")}
	p := New(stub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.WatchOverlay(ctx, path); err != nil {
		t.Fatalf("WatchOverlay: %v", err)
	}

	overlayApplied := func(name string) func() bool {
		return func() bool {
			set, _ := p.Effective(context.Background())
			return hasRule(set, name)
		}
	}

	writeFile(t, path, `
rules:
  - name: local-one
    pattern: 'first'
`)
	waitFor(t, "initial overlay", overlayApplied("local-one"))

	// A broken overlay must not displace the last good one.
	writeFile(t, path, `rules: [{name: "broken", match_type: keyword}]`)
	time.Sleep(2 * overlayDebounce)
	if !overlayApplied("local-one")() {
		t.Fatal("broken overlay displaced the last good overlay")
	}

	writeFile(t, path, `
rules:
  - name: local-two
    pattern: 'second'
`)
	waitFor(t, "replacement overlay", overlayApplied("local-two"))
	if overlayApplied("local-one")() {
		t.Error("stale overlay rule survived replacement")
	}
}

func TestWatchOverlayMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	p := New(&stubFetcher{err: errors.New("offline")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.WatchOverlay(ctx, path); err != nil {
		t.Fatalf("WatchOverlay with missing file: %v", err)
	}
	set, tier := p.Effective(context.Background())
	if tier != TierFallback {
		t.Errorf("tier = %q", tier)
	}
	if !hasRule(set, "dangerous_rm") {
		t.Error("fallback rules missing with empty overlay")
	}
}

func TestWatchOverlayEmptyPathDisabled(t *testing.T) {
	p := New(&stubFetcher{err: errors.New("offline")})
	if err := p.WatchOverlay(context.Background(), ""); err != nil {
		t.Fatalf("empty path should disable watching, got %v", err)
	}
}
