package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pders01/scrp/internal/debuglog"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; scrp/1.0)"
	defaultTimeout   = 60 * time.Second
)

// Options tune the solver client. Zero values fall back to defaults.
type Options struct {
	Timeout    time.Duration // solve budget passed to the gateway
	MaxRetries int           // retries after the first attempt
	UserAgent  string
}

// Solver fetches listing pages through a FlareSolverr gateway, which
// drives a real browser to clear anti-bot challenges and hands back
// the rendered HTML.
type Solver struct {
	endpoint   string
	client     *http.Client
	timeout    time.Duration
	maxRetries uint64
	userAgent  string
}

func NewSolver(endpoint string, opts Options) *Solver {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Solver{
		endpoint: endpoint,
		client: &http.Client{
			// The gateway needs headroom beyond the solve budget
			Timeout: timeout + 15*time.Second,
		},
		timeout:    timeout,
		maxRetries: uint64(retries),
		userAgent:  userAgent,
	}
}

type solverRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int    `json:"maxTimeout"`
}

type solverResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Solution solverSolution `json:"solution"`
}

type solverSolution struct {
	URL      string `json:"url"`
	Status   int    `json:"status"`
	Response string `json:"response"`
}

// FetchHTML retrieves the rendered HTML for pageURL. Failed attempts
// retry with Fibonacci backoff up to the configured limit.
func (s *Solver) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	payload, err := json.Marshal(solverRequest{
		Cmd:        "request.get",
		URL:        pageURL,
		MaxTimeout: int(s.timeout.Milliseconds()),
	})
	if err != nil {
		return "", fmt.Errorf("encoding solver request: %w", err)
	}

	var html string
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewFibonacci(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		page, err := s.solve(ctx, payload)
		if err != nil {
			debuglog.Warnf("solver attempt for %s failed: %v", pageURL, err)
			return retry.RetryableError(err)
		}
		html = page
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fetching %s through solver: %w", pageURL, err)
	}

	return html, nil
}

func (s *Solver) solve(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling solver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading solver response: %w", err)
	}

	var parsed solverResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding solver response: %w", err)
	}

	if parsed.Status != "ok" {
		return "", fmt.Errorf("solver returned status %q: %s", parsed.Status, parsed.Message)
	}
	if parsed.Solution.Status >= 400 {
		return "", fmt.Errorf("target returned HTTP %d", parsed.Solution.Status)
	}
	if parsed.Solution.Response == "" {
		return "", fmt.Errorf("solver returned an empty document")
	}

	return parsed.Solution.Response, nil
}
