package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

type recordingSink struct {
	name  string
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Send(ctx context.Context, n Notification) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.calls.Add(1)
	return r.err
}

func sampleNotification() Notification {
	return Notification{
		RuleName:  "dangerous_rm",
		RiskLevel: rules.RiskCritical,
		Action:    rules.ActionBlock,
		ToolKind:  "exec",
		Candidate: "rm -rf /",
		Blocked:   true,
		Timestamp: time.Now(),
	}
}

func TestDispatchFansOutToAllSinks(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := NewDispatcher([]Sink{a, b}, time.Second)

	d.Dispatch(context.Background(), sampleNotification())

	if a.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Errorf("calls = %d, %d; want 1, 1", a.calls.Load(), b.calls.Load())
	}
}

func TestDispatchSurvivesSinkFailure(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("boom")}
	good := &recordingSink{name: "good"}
	d := NewDispatcher([]Sink{bad, good}, time.Second)

	d.Dispatch(context.Background(), sampleNotification())

	if good.calls.Load() != 1 {
		t.Error("healthy sink was not called after another failed")
	}
}

func TestDispatchBoundedByTimeout(t *testing.T) {
	slow := &recordingSink{name: "slow", delay: 5 * time.Second}
	d := NewDispatcher([]Sink{slow}, 50*time.Millisecond)

	start := time.Now()
	d.Dispatch(context.Background(), sampleNotification())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Dispatch took %v with a 50ms timeout", elapsed)
	}
}

func TestDispatchNoSinks(t *testing.T) {
	d := NewDispatcher(nil, time.Second)
	d.Dispatch(context.Background(), sampleNotification()) // must not panic
}

func TestNotificationText(t *testing.T) {
	n := sampleNotification()
	n.Degraded = true
	text := n.Text()

	for _, want := range []string{"BLOCKED", "dangerous_rm", "critical", "rm -rf /", "degraded"} {
		if !strings.Contains(text, want) {
			t.Errorf("notification text missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramSinkPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
	}))
	defer srv.Close()

	sink, err := newWebhookSink(ChannelConfig{
		Type: "telegram", Token: "bot-token", ChatID: "42", URL: srv.URL,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Send(context.Background(), sampleNotification()); err != nil {
		t.Fatal(err)
	}

	if got["chat_id"] != "42" {
		t.Errorf("chat_id = %q", got["chat_id"])
	}
	if !strings.Contains(got["text"], "dangerous_rm") {
		t.Errorf("text = %q", got["text"])
	}
}

func TestWebhookSinkReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	sink, err := newWebhookSink(ChannelConfig{Type: "slack", URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Send(context.Background(), sampleNotification()); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestBuildSinks(t *testing.T) {
	off := false
	sinks := BuildSinks([]ChannelConfig{
		{Type: "slack", URL: "https://hooks.slack.example/x"},
		{Type: "slack", URL: "https://hooks.slack.example/y", Enabled: &off},
		{Type: "telegram"}, // missing credentials
		{Type: "carrier-pigeon", URL: "https://x"},
		{Type: "generic", URL: "https://alerts.example/ingest"},
	})
	if len(sinks) != 2 {
		t.Fatalf("built %d sinks, want 2", len(sinks))
	}
}
