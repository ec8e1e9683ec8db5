package mixer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/zapdos26/client-node/internal/constants"
)

// Rate limit headers returned by the Mixer API.
const (
	HeaderRateLimitRemaining = "X-Ratelimit-Remaining"
	HeaderRateLimitReset     = "X-Ratelimit-Reset"
)

const metadataStartTime = "start_time"

// Request is one HTTP attempt made by the default runner. Request
// interceptors may change Headers before it is sent.
type Request struct {
	Method   string
	URL      string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// InterceptedResponse is the outcome of an attempt. Error is set for
// transport failures, in which case StatusCode is zero.
type InterceptedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor runs before an attempt. An error aborts it.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor runs after an attempt, successful or not.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *InterceptedResponse) error

// InterceptorChain runs interceptors in registration order. A nil chain runs
// nothing.
type InterceptorChain struct {
	request  []RequestInterceptor
	response []ResponseInterceptor
}

func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) *InterceptorChain {
	c.request = append(c.request, interceptor)

	return c
}

func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) *InterceptorChain {
	c.response = append(c.response, interceptor)

	return c
}

// ExecuteRequestInterceptors stops at the first failing interceptor.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	if c == nil {
		return nil
	}

	for _, interceptor := range c.request {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors stops at the first failing interceptor.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *InterceptedResponse) error {
	if c == nil {
		return nil
	}

	for _, interceptor := range c.response {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// HeaderInterceptor sets fixed headers on every attempt.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header, len(headers))
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// Metrics aggregates the attempts made against one endpoint.
type Metrics struct {
	Requests     int64
	Errors       int64
	TotalLatency time.Duration
	LastStatus   int
	LastRequest  time.Time
	// RateLimitRemaining is the last X-Ratelimit-Remaining value, -1 until
	// the API reports one.
	RateLimitRemaining int
	// RateLimitReset is when the API said the bucket refills.
	RateLimitReset time.Time
}

// AverageLatency is TotalLatency spread over Requests.
func (m Metrics) AverageLatency() time.Duration {
	if m.Requests == 0 {
		return 0
	}

	return m.TotalLatency / time.Duration(m.Requests)
}

// MetricsCollector keys metrics by "METHOD /path", ignoring host and query.
type MetricsCollector struct {
	mu        sync.Mutex
	endpoints map[string]*Metrics
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{endpoints: make(map[string]*Metrics)}
}

// GetMetrics returns a snapshot for endpoint, or nil when it was never hit.
func (m *MetricsCollector) GetMetrics(endpoint string) *Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics, ok := m.endpoints[endpoint]
	if !ok {
		return nil
	}

	snapshot := *metrics

	return &snapshot
}

// Endpoints lists the endpoints seen so far, sorted.
func (m *MetricsCollector) Endpoints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.endpoints))
	for key := range m.endpoints {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

func (m *MetricsCollector) record(req *Request, resp *InterceptedResponse) {
	key := EndpointKey(req.Method, req.URL)

	m.mu.Lock()
	defer m.mu.Unlock()

	metrics, ok := m.endpoints[key]
	if !ok {
		metrics = &Metrics{RateLimitRemaining: -1}
		m.endpoints[key] = metrics
	}

	metrics.Requests++
	metrics.LastStatus = resp.StatusCode
	metrics.LastRequest = time.Now()

	if started, ok := req.Metadata[metadataStartTime].(time.Time); ok {
		metrics.TotalLatency += time.Since(started)
	}

	if resp.Error != nil || resp.StatusCode >= http.StatusBadRequest {
		metrics.Errors++
	}

	if remaining, err := strconv.Atoi(resp.Headers.Get(HeaderRateLimitRemaining)); err == nil {
		metrics.RateLimitRemaining = remaining
	}

	// Mixer reports the reset as a unix timestamp in milliseconds.
	if reset, err := strconv.ParseInt(resp.Headers.Get(HeaderRateLimitReset), 10, 64); err == nil {
		metrics.RateLimitReset = time.UnixMilli(reset)
	}
}

// EndpointKey returns the metrics key for an attempt.
func EndpointKey(method, rawURL string) string {
	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		path = parsed.Path
	}

	return method + " " + path
}

// MetricsRequestInterceptor stamps the attempt start time.
func MetricsRequestInterceptor(_ *MetricsCollector) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metadataStartTime] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor records the attempt in collector.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(_ context.Context, req *Request, resp *InterceptedResponse) error {
		collector.record(req, resp)

		return nil
	}
}

// BreakerState is the state of a CircuitBreaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Timeout is how long the breaker stays open before a trial attempt.
	Timeout time.Duration
	// SuccessThreshold is the number of trial successes that closes it again.
	SuccessThreshold int
}

// CircuitBreaker stops attempts while the API keeps failing. Transport
// errors, 5xx and 429 responses count as failures.
type CircuitBreaker struct {
	mu          sync.Mutex
	config      CircuitBreakerConfig
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker creates a closed breaker. Nil config selects defaults.
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	cfg := CircuitBreakerConfig{
		Threshold:        constants.CircuitBreakerThreshold,
		Timeout:          constants.CircuitBreakerTimeout,
		SuccessThreshold: constants.CircuitBreakerSuccessThreshold,
	}

	if config != nil {
		cfg = *config
	}

	return &CircuitBreaker{config: cfg, state: BreakerClosed}
}

func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Allow reports ErrCircuitBreakerOpen while the breaker is open, and moves it
// to half-open once the timeout has passed.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return nil
	}

	if time.Since(b.lastFailure) <= b.config.Timeout {
		return ErrCircuitBreakerOpen
	}

	b.state = BreakerHalfOpen
	b.successes = 0

	return nil
}

// Record feeds the outcome of an attempt into the breaker.
func (b *CircuitBreaker) Record(statusCode int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil || statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests {
		b.failures++
		b.lastFailure = time.Now()

		if b.failures >= b.config.Threshold || b.state == BreakerHalfOpen {
			b.state = BreakerOpen
		}

		return
	}

	switch b.state {
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = BreakerClosed
			b.failures = 0
		}
	case BreakerClosed:
		b.failures = 0
	case BreakerOpen:
	}
}

func CircuitBreakerRequestInterceptor(breaker *CircuitBreaker) RequestInterceptor {
	return func(context.Context, *Request) error {
		return breaker.Allow()
	}
}

func CircuitBreakerResponseInterceptor(breaker *CircuitBreaker) ResponseInterceptor {
	return func(_ context.Context, _ *Request, resp *InterceptedResponse) error {
		breaker.Record(resp.StatusCode, resp.Error)

		return nil
	}
}
