package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"marquee/internal/config"
	"marquee/internal/logging"
)

// API is the subset of TMDB the catalog pipeline calls.
type API interface {
	Discover(ctx context.Context, q DiscoverQuery) (*DiscoverResponse, error)
	MovieDetails(ctx context.Context, movieID int64) (*Details, error)
}

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("tmdb api key required")
	// ErrNotFound reports a 404 for the requested resource.
	ErrNotFound = errors.New("tmdb resource not found")
	// ErrUnavailable reports that the circuit breaker is rejecting calls.
	ErrUnavailable = errors.New("tmdb temporarily unavailable")
)

// StatusError is a non-200 response.
type StatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

const (
	maxRetryAfter    = 30 * time.Second
	maxErrorBodySize = 512
	maxBodySize      = 4 << 20
)

// Client provides rate-limited, retried access to TMDB.
type Client struct {
	apiKey      string
	baseURL     string
	language    string
	region      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]byte]
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	requests    atomic.Int64

	breakerThreshold uint32
	breakerTimeout   time.Duration
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLanguage sets the language and region parameters.
func WithLanguage(language, region string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
		c.region = strings.TrimSpace(region)
	}
}

// WithRateLimit sets the request rate. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetries sets the total attempt count and the initial backoff.
func WithRetries(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(consecutiveFailures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		if consecutiveFailures > 0 {
			c.breakerThreshold = consecutiveFailures
		}
		if openFor > 0 {
			c.breakerTimeout = openFor
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "tmdb")
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	c := &Client{
		apiKey:           apiKey,
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       &http.Client{Timeout: 15 * time.Second},
		limiter:          rate.NewLimiter(rate.Limit(4), 4),
		maxAttempts:      3,
		backoff:          time.Second,
		logger:           logging.NewNop(),
		breakerThreshold: 5,
		breakerTimeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "tmdb",
		Timeout: c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerThreshold
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return !se.retryable()
			}
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info("circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	})
	return c, nil
}

// NewFromConfig builds a client from the [tmdb] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	t := cfg.TMDB
	return New(t.APIKey, t.BaseURL,
		WithLanguage(t.Language, t.Region),
		WithRateLimit(t.RequestsPerSecond, t.Burst),
		WithRetries(t.MaxRetries, time.Second),
		WithHTTPClient(&http.Client{Timeout: time.Duration(t.TimeoutSeconds) * time.Second}),
		WithLogger(logger),
	)
}

// Requests returns the number of HTTP requests issued so far.
func (c *Client) Requests() int64 {
	return c.requests.Load()
}

// Discover fetches one page of movies for a genre.
func (c *Client) Discover(ctx context.Context, q DiscoverQuery) (*DiscoverResponse, error) {
	params := url.Values{}
	params.Set("include_adult", "false")
	if q.GenreID > 0 {
		params.Set("with_genres", strconv.Itoa(q.GenreID))
	}
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	if q.MinVotes > 0 {
		params.Set("vote_count.gte", strconv.FormatInt(q.MinVotes, 10))
	}
	if q.MinRating > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(q.MinRating, 'f', -1, 64))
	}
	if q.ReleaseDateGTE != "" {
		params.Set("primary_release_date.gte", q.ReleaseDateGTE)
	}
	if q.ReleaseDateLTE != "" {
		params.Set("primary_release_date.lte", q.ReleaseDateLTE)
	}

	body, err := c.get(ctx, "/discover/movie", params)
	if err != nil {
		return nil, fmt.Errorf("discover genre %d page %d: %w", q.GenreID, page, err)
	}
	var payload DiscoverResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode discover response: %w", err)
	}
	return &payload, nil
}

// MovieDetails fetches details and credits for one movie.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (*Details, error) {
	if movieID <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	params := url.Values{}
	params.Set("append_to_response", "credits")
	body, err := c.get(ctx, fmt.Sprintf("/movie/%d", movieID), params)
	if err != nil {
		return nil, fmt.Errorf("movie details %d: %w", movieID, err)
	}
	var payload Details
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode movie details: %w", err)
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	if c.region != "" {
		params.Set("region", c.region)
	}
	endpoint.RawQuery = params.Encode()
	target := endpoint.String()

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		body, err := c.breaker.Execute(func() ([]byte, error) {
			return c.do(ctx, target)
		})
		if err == nil {
			return body, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		lastErr = err

		delay := c.backoff << attempt
		var se *StatusError
		if errors.As(err, &se) {
			if !se.retryable() {
				return nil, err
			}
			if se.RetryAfter > 0 {
				delay = se.RetryAfter
			}
		}
		if attempt == c.maxAttempts-1 {
			break
		}
		c.logger.Debug("retrying tmdb request",
			logging.String("path", path),
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("tmdb request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.requests.Add(1)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	}
	snippet := string(body)
	if len(snippet) > maxErrorBodySize {
		snippet = snippet[:maxErrorBodySize]
	}
	return nil, &StatusError{
		Code:       resp.StatusCode,
		Body:       snippet,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	delay := time.Duration(seconds) * time.Second
	if delay > maxRetryAfter {
		delay = maxRetryAfter
	}
	return delay
}
