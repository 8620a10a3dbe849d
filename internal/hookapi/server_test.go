package hookapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/guruthechosen/openclaw-harness/internal/alert"
	"github.com/guruthechosen/openclaw-harness/internal/api"
	"github.com/guruthechosen/openclaw-harness/internal/engine"
	"github.com/guruthechosen/openclaw-harness/internal/provider"
	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

func newTestServer(t *testing.T, remote []rules.Rule) *Server {
	t.Helper()
	fetcher := provider.FetcherFunc(func(ctx context.Context) ([]rules.Rule, error) {
		if remote == nil {
			return nil, errors.New("offline")
		}
		return remote, nil
	})
	prov := provider.New(fetcher)
	eng := engine.New(prov)
	dispatcher := alert.NewDispatcher(nil, 0)
	return New("127.0.0.1:0", eng, prov, dispatcher)
}

func postHook(t *testing.T, s *Server, payload string) hookResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/hook/tool-call", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:55555"
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp hookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding hook response: %v", err)
	}
	return resp
}

func TestToolCallBlocked(t *testing.T) {
	s := newTestServer(t, []rules.Rule{
		{Name: "no-sudo", Pattern: `^sudo\s`, Action: rules.ActionBlock},
	})

	resp := postHook(t, s, `{"tool_name": "exec", "params": {"command": "sudo rm /etc"}}`)
	if !resp.Block {
		t.Fatal("expected block")
	}
	if resp.BlockReason == "" {
		t.Error("block without reason")
	}
	if len(resp.MatchedRules) != 1 || resp.MatchedRules[0].Name != "no-sudo" {
		t.Errorf("matched = %+v", resp.MatchedRules)
	}
}

func TestToolCallAllowed(t *testing.T) {
	s := newTestServer(t, []rules.Rule{
		{Name: "no-sudo", Pattern: `^sudo\s`, Action: rules.ActionBlock},
	})

	resp := postHook(t, s, `{"tool_name": "exec", "params": {"command": "ls -la"}}`)
	if resp.Block {
		t.Fatalf("expected allow, got block: %s", resp.BlockReason)
	}
}

func TestToolCallSelfProtectionOffline(t *testing.T) {
	s := newTestServer(t, nil) // provider always fails, fallback tier

	resp := postHook(t, s, `{"tool_name": "exec", "params": {"command": "pkill -f openclaw-harness"}}`)
	if !resp.Block {
		t.Fatal("self-protection did not block while offline")
	}
}

func TestToolCallDegradedFlag(t *testing.T) {
	s := newTestServer(t, nil)

	resp := postHook(t, s, `{"tool_name": "exec", "params": {"command": "rm -rf ~/"}}`)
	if !resp.Block {
		t.Fatal("fallback rule did not block")
	}
	if !resp.Degraded {
		t.Error("degraded flag not set on fallback tier")
	}
}

func TestUndecodablePayloadAllows(t *testing.T) {
	s := newTestServer(t, nil)

	resp := postHook(t, s, `{"tool_name": `)
	if resp.Block {
		t.Error("undecodable payload was blocked instead of allowed")
	}
}

func TestUnknownToolAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	resp := postHook(t, s, `{"tool_name": "teleport", "params": {"x": 1}}`)
	if resp.Block {
		t.Error("unknown tool was blocked")
	}
}

func TestNonLoopbackRejected(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/hook/tool-call", bytes.NewBufferString(`{}`))
	req.RemoteAddr = "10.0.0.5:41000"
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/api/health", "/api/status", "/api/rules"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:55555"
		w := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, w.Code)
		}
		var envelope api.Response
		if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil || !envelope.Success {
			t.Errorf("GET %s returned bad envelope: %s", path, w.Body.String())
		}
	}
}
