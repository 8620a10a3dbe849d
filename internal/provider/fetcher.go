package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]rules.Rule, error)

// FetchRules implements Fetcher.
func (f FetcherFunc) FetchRules(ctx context.Context) ([]rules.Rule, error) {
	return f(ctx)
}

// maxRulesPayload caps the rules response body. A control plane bug or a
// spoofed endpoint must not balloon memory.
const maxRulesPayload = 4 << 20

// HTTPFetcher retrieves rules from the control plane's rules endpoint.
type HTTPFetcher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher for the given control plane base URL.
// The token, when set, is sent as a bearer credential.
func NewHTTPFetcher(baseURL, token string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchBudget
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchRules performs one GET against {base}/api/rules and decodes the
// payload. Context cancellation aborts the request.
func (f *HTTPFetcher) FetchRules(ctx context.Context) ([]rules.Rule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/rules", nil)
	if err != nil {
		return nil, fmt.Errorf("building rules request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rules: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rules endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRulesPayload))
	if err != nil {
		return nil, fmt.Errorf("reading rules payload: %w", err)
	}

	return rules.ParseRemote(body)
}
