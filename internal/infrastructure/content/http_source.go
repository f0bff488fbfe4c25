package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	domain "github.com/hampton/progress-tracker/internal/domain/content"
	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/pkg/circuitbreaker"
	"github.com/hampton/progress-tracker/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// HTTPSourceConfig configures the remote content client.
type HTTPSourceConfig struct {
	// BaseURL is the content host, e.g. https://content.example.com/api.
	BaseURL string

	// Timeout bounds a single request.
	Timeout time.Duration

	// RequestsPerSecond and Burst throttle outgoing requests.
	RequestsPerSecond float64
	Burst             int

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// DefaultHTTPSourceConfig returns sensible defaults.
func DefaultHTTPSourceConfig(baseURL string) HTTPSourceConfig {
	return HTTPSourceConfig{
		BaseURL:           baseURL,
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// HTTPSource fetches material from a remote host:
//
//	GET {base}/days/{n}?project={project}
//	GET {base}/weeks/{n}?project={project}
//
// Requests are throttled, retried on transient failures and short-circuited
// after repeated failures.
type HTTPSource struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
	retrier *retry.Retrier
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewHTTPSource creates a remote source.
func NewHTTPSource(cfg HTTPSourceConfig) (*HTTPSource, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("content base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse content base url: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	logger := cfg.Logger
	s := &HTTPSource{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	s.retrier = retry.ContentRetrier(func(attempt int, err error, delay time.Duration) {
		logger.Debug("retrying content request", "attempt", attempt, "delay", delay, "error", err)
	})
	s.breaker = circuitbreaker.ForContent(func(name string, from, to circuitbreaker.State) {
		logger.Warn("content circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
	})
	return s, nil
}

// Breaker exposes the circuit breaker state for health reporting.
func (s *HTTPSource) Breaker() *circuitbreaker.Breaker {
	return s.breaker
}

// FetchDay implements content.Provider.
func (s *HTTPSource) FetchDay(ctx context.Context, day int, project progress.Project) (domain.Day, error) {
	var d domain.Day
	if err := s.get(ctx, fmt.Sprintf("/days/%d", day), project, &d); err != nil {
		return domain.Day{}, err
	}
	return d, nil
}

// FetchWeek implements content.Provider.
func (s *HTTPSource) FetchWeek(ctx context.Context, week int, project progress.Project) (domain.Week, error) {
	var w domain.Week
	if err := s.get(ctx, fmt.Sprintf("/weeks/%d", week), project, &w); err != nil {
		return domain.Week{}, err
	}
	return w, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, project progress.Project, out any) error {
	endpoint := s.base + path
	if project.IsSet() {
		endpoint += "?project=" + url.QueryEscape(string(project))
	}

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			if err := s.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
			return s.do(ctx, endpoint, out)
		})
	})
	if err == nil {
		return nil
	}
	if shared.IsValidation(err) {
		return err
	}
	return shared.WrapError("content", "HTTPSource.Get", shared.ErrContentUnavailable, endpoint, err)
}

// do performs one request. Transient failures come back as retry.Retryable.
func (s *HTTPSource) do(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(err)
		}
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfter(resp.Header.Get("Retry-After"))
		s.logger.Warn("content host is rate limiting", "retry_after", wait)
		return retry.Retryable(fmt.Errorf("status %d: %w", resp.StatusCode, shared.ErrRateLimited))
	case resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return retry.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(shared.WrapError("content", "HTTPSource.Decode", shared.ErrContentInvalid, endpoint, err))
	}
	return nil
}

func retryAfter(header string) time.Duration {
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
