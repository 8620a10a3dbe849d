// Package hookapi serves the local endpoint the patched tool executor
// calls before running any tool. The contract is strict: the executor
// sends {tool_name, params} and gets back {block, block_reason}; any
// transport or handler failure must fail open on the executor side, so
// this server's only job is to answer fast and truthfully.
package hookapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guruthechosen/openclaw-harness/internal/alert"
	"github.com/guruthechosen/openclaw-harness/internal/api"
	"github.com/guruthechosen/openclaw-harness/internal/engine"
	"github.com/guruthechosen/openclaw-harness/internal/event"
	"github.com/guruthechosen/openclaw-harness/internal/logger"
	"github.com/guruthechosen/openclaw-harness/internal/provider"
	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

var log = logger.New("hookapi")

const maxHookBody = 1 << 20

// Server is the local hook API.
type Server struct {
	engine     *engine.Engine
	provider   *provider.Provider
	dispatcher *alert.Dispatcher

	httpServer *http.Server
}

// New creates a Server bound to the given address.
func New(addr string, eng *engine.Engine, prov *provider.Provider, dispatcher *alert.Dispatcher) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:     eng,
		provider:   prov,
		dispatcher: dispatcher,
	}

	router := gin.New()
	router.Use(gin.Recovery(), api.SecurityHeaders(), api.LoopbackOnly(), api.BodySizeLimit(maxHookBody))

	router.GET("/api/health", s.handleHealth)
	router.GET("/api/status", s.handleStatus)
	router.GET("/api/rules", s.handleRules)
	router.POST("/api/hook/tool-call", s.handleToolCall)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("hook API listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// hookRequest is the executor's pre-call payload.
type hookRequest struct {
	ToolName string          `json:"tool_name"`
	Params   json.RawMessage `json:"params"`
}

// hookResponse tells the executor whether to run the tool.
type hookResponse struct {
	Block        bool           `json:"block"`
	BlockReason  string         `json:"block_reason,omitempty"`
	MatchedRules []engine.Match `json:"matched_rules,omitempty"`
	Degraded     bool           `json:"degraded,omitempty"`
}

func (s *Server) handleToolCall(c *gin.Context) {
	var req hookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// A payload this server cannot read is still a decision it must
		// make; answering 4xx would push the choice onto the executor's
		// fail-open path. Allow explicitly instead.
		log.Warn("undecodable hook payload: %v", err)
		c.JSON(http.StatusOK, hookResponse{Block: false})
		return
	}

	ev := event.Extract(req.ToolName, req.Params)
	verdict := s.engine.Evaluate(c.Request.Context(), ev)

	if len(verdict.Matches) > 0 && s.dispatcher != nil {
		s.notify(ev, verdict)
	}

	// The hook response is deliberately not enveloped: the injected
	// executor reads {block, block_reason} verbatim.
	c.JSON(http.StatusOK, hookResponse{
		Block:        verdict.Blocked(),
		BlockReason:  verdict.Reason,
		MatchedRules: verdict.Matches,
		Degraded:     verdict.Degraded,
	})
}

// notify dispatches alerts for the verdict's matches on a background
// goroutine. The context is detached: the hook response does not wait
// for webhooks, and closing the request must not cancel delivery.
func (s *Server) notify(ev event.ToolCallEvent, verdict engine.Verdict) {
	now := time.Now()
	notifications := make([]alert.Notification, 0, len(verdict.Matches))
	for _, m := range verdict.Matches {
		if m.Action == rules.ActionLogOnly {
			continue
		}
		notifications = append(notifications, alert.Notification{
			RuleName:    m.Name,
			Description: m.Description,
			RiskLevel:   m.RiskLevel,
			Action:      m.Action,
			ToolKind:    string(ev.Kind),
			Candidate:   ev.Candidate,
			Blocked:     verdict.Blocked(),
			Degraded:    verdict.Degraded,
			Timestamp:   now,
		})
	}
	if len(notifications) == 0 {
		return
	}
	go func() {
		ctx := context.Background()
		for _, n := range notifications {
			s.dispatcher.Dispatch(ctx, n)
		}
	}()
}

func (s *Server) handleHealth(c *gin.Context) {
	api.Success(c, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	api.Success(c, gin.H{
		"provider": s.provider.CurrentStatus(),
		"alerts":   s.dispatcher.SinkCount(),
	})
}

// handleRules lists the currently effective rules without forcing a
// fetch past the caller's patience: the standard budget applies.
func (s *Server) handleRules(c *gin.Context) {
	set, tier := s.provider.Effective(c.Request.Context())

	type ruleInfo struct {
		Name      string          `json:"name"`
		MatchType rules.MatchKind `json:"match_type"`
		RiskLevel rules.RiskLevel `json:"risk_level"`
		Action    rules.Action    `json:"action"`
		Protected bool            `json:"protected,omitempty"`
		Enabled   bool            `json:"enabled"`
	}
	list := make([]ruleInfo, 0, set.Len())
	for _, cr := range set.Rules() {
		list = append(list, ruleInfo{
			Name:      cr.Name,
			MatchType: cr.GetMatchType(),
			RiskLevel: cr.GetRiskLevel(),
			Action:    cr.GetAction(),
			Protected: cr.Protected,
			Enabled:   cr.IsEnabled(),
		})
	}
	api.Success(c, gin.H{"tier": tier, "rules": list})
}
