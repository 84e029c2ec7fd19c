package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/gurubamal/iimcat-sub002/internal/service/metrics"
	"github.com/gurubamal/iimcat-sub002/internal/service/ratelimit"
	xhttp "github.com/gurubamal/iimcat-sub002/pkg/http"
)

// ErrNotConfigured is returned when no AI bridge URL is set.
var ErrNotConfigured = errors.New("analytics http client not initialized")

type BaseOption func(*HTTPServiceBase)

func WithTimeout(d time.Duration) BaseOption {
	return func(b *HTTPServiceBase) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithRetries sets the total number of attempts per call.
func WithRetries(attempts int, backoff time.Duration) BaseOption {
	return func(b *HTTPServiceBase) {
		if attempts > 0 {
			b.attempts = attempts
		}
		if backoff > 0 {
			b.backoff = backoff
		}
	}
}

type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold uint32
}

func WithBreaker(s BreakerSettings) BaseOption {
	return func(b *HTTPServiceBase) { b.breakerSettings = s }
}

// WithLimiter shares an outbound limiter keyed by collaborator host.
func WithLimiter(l *ratelimit.Limiter) BaseOption {
	return func(b *HTTPServiceBase) { b.limiter = l }
}

func WithHTTPClient(c *xhttp.Client) BaseOption {
	return func(b *HTTPServiceBase) { b.client = c }
}

// HTTPServiceBase is the shared transport of the AI bridge clients.
// Calls are rate limited, retried on temporary failures and wrapped in a
// circuit breaker that trips after consecutive temporary failures.
type HTTPServiceBase struct {
	baseURL  string
	host     string
	timeout  time.Duration
	attempts int
	backoff  time.Duration

	breakerSettings BreakerSettings
	client          *xhttp.Client
	breaker         *gobreaker.CircuitBreaker
	limiter         *ratelimit.Limiter
}

func NewHTTPServiceBase(name, baseURL string, opts ...BaseOption) *HTTPServiceBase {
	b := &HTTPServiceBase{
		baseURL:  baseURL,
		timeout:  3 * time.Second,
		attempts: 3,
		backoff:  50 * time.Millisecond,
		breakerSettings: BreakerSettings{
			MaxRequests:      1,
			Interval:         time.Minute,
			OpenTimeout:      30 * time.Second,
			FailureThreshold: 5,
		},
	}
	for _, o := range opts {
		o(b)
	}
	if u, err := url.Parse(baseURL); err == nil {
		b.host = u.Host
	}
	if b.client == nil {
		b.client = xhttp.NewClient(xhttp.WithTimeout(b.timeout))
	}
	if b.limiter == nil {
		b.limiter = ratelimit.New(0, 1)
	}
	threshold := b.breakerSettings.FailureThreshold
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: b.breakerSettings.MaxRequests,
		Interval:    b.breakerSettings.Interval,
		Timeout:     b.breakerSettings.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return threshold > 0 && c.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !xhttp.IsTemporary(err)
		},
		OnStateChange: metrics.ObserveBreaker,
	})
	return b
}

// State exposes the breaker state for health reporting.
func (b *HTTPServiceBase) State() gobreaker.State { return b.breaker.State() }

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return ErrNotConfigured
	}
	start := time.Now()
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: "POST",
		URL:    b.baseURL + path,
		Body:   payload,
	}, dest)
	metrics.CollaboratorLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues(path).Inc()
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry runs PostJSON through the limiter and breaker, retrying
// temporary errors with linear backoff. The whole retry loop counts as one
// breaker call.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.baseURL == "" {
		return ErrNotConfigured
	}
	_, err := b.breaker.Execute(func() (interface{}, error) {
		var err error
		for i := 1; i <= b.attempts; i++ {
			if err = b.limiter.Wait(ctx, b.host); err != nil {
				return nil, err
			}
			err = b.PostJSON(ctx, path, payload, dest)
			if err == nil || !xhttp.IsTemporary(err) || i == b.attempts {
				break
			}
			select {
			case <-time.After(time.Duration(i) * b.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return nil, err
	})
	return err
}
