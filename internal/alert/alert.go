// Package alert delivers rule-match notifications to configured
// channels. Delivery is fire-and-forget with a bounded timeout: the hook
// response never waits on a webhook.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/guruthechosen/openclaw-harness/internal/logger"
	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

var log = logger.New("alert")

// Notification is one rule-match alert.
type Notification struct {
	RuleName    string          `json:"rule_name"`
	Description string          `json:"description,omitempty"`
	RiskLevel   rules.RiskLevel `json:"risk_level"`
	Action      rules.Action    `json:"action"`
	ToolKind    string          `json:"tool_kind"`
	Candidate   string          `json:"candidate"`
	Blocked     bool            `json:"blocked"`
	Degraded    bool            `json:"degraded,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Text renders the notification as a human-readable message.
func (n Notification) Text() string {
	verb := "flagged"
	if n.Blocked {
		verb = "BLOCKED"
	}
	msg := fmt.Sprintf("⚠️ Harness %s a %s call\nRule: %s\nRisk: %s\nAction: %s\nCandidate: %s",
		verb, n.ToolKind, n.RuleName, n.RiskLevel, n.Action, Truncate(n.Candidate, maxCandidateLen))
	if n.Degraded {
		msg += "\n(rule set degraded: control plane unreachable)"
	}
	return msg
}

// Sink is a notification destination.
type Sink interface {
	// Send delivers one notification. It must honor ctx and return
	// promptly on cancellation.
	Send(ctx context.Context, n Notification) error
	// Name identifies the sink in logs.
	Name() string
}

// Dispatcher fans notifications out to all configured sinks
// concurrently. Failures are logged, never propagated: alerting must not
// affect enforcement.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
}

// NewDispatcher creates a Dispatcher over the given sinks.
func NewDispatcher(sinks []Sink, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

// Dispatch sends the notification to every sink and waits for all of
// them or the timeout, whichever comes first. Callers run it on a
// background goroutine with a context detached from the hook request.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	if len(d.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, sink := range d.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			if err := s.Send(ctx, n); err != nil {
				log.Warn("alert via %s failed: %v", s.Name(), err)
			} else {
				log.Debug("alert delivered via %s: rule %s", s.Name(), n.RuleName)
			}
		}(sink)
	}
	wg.Wait()
}

// SinkCount returns how many sinks are configured.
func (d *Dispatcher) SinkCount() int {
	return len(d.sinks)
}
