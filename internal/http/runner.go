// Package http implements the default mixer.RequestRunner on top of a
// retrying HTTP client.
package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/zapdos26/client-node/internal/constants"
	"github.com/zapdos26/client-node/pkg/mixer"
)

const tracerName = "github.com/zapdos26/client-node/internal/http"

// RequestIDHeader carries a unique id per logical request.
const RequestIDHeader = "X-Request-Id"

// Runner sends composed requests over HTTP. It retries transient failures,
// optionally throttles, caches GET responses and runs interceptors around
// every request.
type Runner struct {
	httpClient   *retryablehttp.Client
	logger       mixer.Logger
	debug        bool
	limiter      *rate.Limiter
	cache        *mixer.CacheManager
	interceptors *mixer.InterceptorChain
	tracer       trace.Tracer
	propagator   propagation.TextMapPropagator
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger mixer.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithDebug enables request and retry logging.
func WithDebug(debug bool) Option {
	return func(r *Runner) {
		r.debug = debug
	}
}

// WithRetryConfig sets retry configuration.
func WithRetryConfig(retryMax int, retryWaitMin, retryWaitMax time.Duration) Option {
	return func(r *Runner) {
		r.httpClient.RetryMax = retryMax
		r.httpClient.RetryWaitMin = retryWaitMin
		r.httpClient.RetryWaitMax = retryWaitMax
	}
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		r.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.httpClient.HTTPClient = client
	}
}

// WithThrottle limits the runner to limit requests per second.
func WithThrottle(limit float64, burst int) Option {
	return func(r *Runner) {
		if limit <= 0 {
			r.limiter = nil

			return
		}

		if burst <= 0 {
			burst = 1
		}

		r.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithCache caches responses allowed by the options' policy in cache.
func WithCache(cache mixer.Cache, options *mixer.CacheOptions) Option {
	return func(r *Runner) {
		r.cache = mixer.NewCacheManager(cache, options)
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *mixer.InterceptorChain) Option {
	return func(r *Runner) {
		r.interceptors = chain
	}
}

// WithTracerProvider selects the tracer provider and propagator. By default
// the global ones are used.
func WithTracerProvider(provider trace.TracerProvider, propagator propagation.TextMapPropagator) Option {
	return func(r *Runner) {
		r.tracer = provider.Tracer(tracerName)
		r.propagator = propagator
	}
}

// NewRunner creates a runner with default retry and timeout settings.
func NewRunner(opts ...Option) *Runner {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	// Hand the last response back instead of a generic "giving up" error so it
	// can be turned into a StatusCodeError.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	runner := &Runner{
		httpClient: retryClient,
		logger:     mixer.NopLogger{},
		tracer:     otel.Tracer(tracerName),
		propagator: otel.GetTextMapPropagator(),
	}

	for _, opt := range opts {
		opt(runner)
	}

	if runner.debug {
		retryClient.Logger = &leveledLogger{logger: runner.logger}
	}

	return runner
}

// Cache returns the cache manager, or nil when caching is off.
func (r *Runner) Cache() *mixer.CacheManager {
	return r.cache
}

// Run implements mixer.RequestRunner.
func (r *Runner) Run(ctx context.Context, req *mixer.RequestOptions) (*mixer.Response, error) {
	if r.limiter != nil {
		err := r.limiter.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := joinQuery(req.URL, mixer.EncodeQuery(req.Query))

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header, len(req.Headers)+3)
	for _, key := range slices.Sorted(maps.Keys(req.Headers)) {
		headers.Set(key, req.Headers[key])
	}

	if contentType != "" && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", contentType)
	}

	if req.IsJSON() && headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}

	if headers.Get(RequestIDHeader) == "" {
		headers.Set(RequestIDHeader, uuid.NewString())
	}

	cacheKey := ""
	if r.cache != nil && method == http.MethodGet {
		cacheKey = r.cacheKey(method, target, headers)

		entry, err := r.cache.GetEntry(ctx, cacheKey)
		if err == nil {
			return &mixer.Response{
				StatusCode: entry.StatusCode,
				Headers:    entry.Headers,
				Body:       entry.Data,
				Request:    req,
			}, nil
		}
	}

	intercepted := &mixer.Request{
		Method:  method,
		URL:     target,
		Headers: headers,
		Body:    body,
	}

	err = r.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	statusCode, respHeaders, respBody, err := r.send(ctx, intercepted)

	interceptErr := r.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &mixer.InterceptedResponse{
		StatusCode: statusCode,
		Headers:    respHeaders,
		Body:       respBody,
		Error:      err,
	})

	if err != nil {
		return nil, err
	}

	if interceptErr != nil {
		return nil, interceptErr
	}

	if statusCode >= http.StatusBadRequest {
		return nil, mixer.NewStatusCodeError(statusCode, respHeaders, respBody, req)
	}

	if cacheKey != "" && r.cache.ShouldCache(method, pathOf(target), statusCode) {
		_ = r.cache.SetEntry(ctx, cacheKey, &mixer.CacheEntry{
			Data:       respBody,
			StatusCode: statusCode,
			Headers:    respHeaders,
			ETag:       respHeaders.Get("ETag"),
		})
	}

	return &mixer.Response{
		StatusCode: statusCode,
		Headers:    respHeaders,
		Body:       respBody,
		Request:    req,
	}, nil
}

func (r *Runner) send(ctx context.Context, req *mixer.Request) (int, http.Header, []byte, error) {
	ctx, span := r.tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL),
		),
	)
	defer span.End()

	var rawBody interface{}
	if req.Body != nil {
		rawBody = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, rawBody)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "building request")

		return 0, nil, nil, fmt.Errorf("creating request: %w", err)
	}

	for key, values := range req.Headers {
		httpReq.Header[key] = values
	}

	r.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	if r.debug {
		r.logger.Debug("HTTP Request", map[string]interface{}{
			"method":     req.Method,
			"url":        req.URL,
			"request_id": req.Headers.Get(RequestIDHeader),
		})
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")

		return 0, nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)

		return resp.StatusCode, resp.Header, nil, fmt.Errorf("reading response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	if r.debug {
		r.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      req.Method,
			"url":         req.URL,
			"status_code": resp.StatusCode,
			"bytes":       len(body),
		})
	}

	return resp.StatusCode, resp.Header, body, nil
}

// cacheKey scopes cached responses to the credentials that fetched them.
func (r *Runner) cacheKey(method, target string, headers http.Header) string {
	auth := headers.Get("Authorization")
	if auth == "" {
		return r.cache.GetCacheKey(method, target, nil)
	}

	sum := sha256.Sum256([]byte(auth))

	return r.cache.GetCacheKey(method, target, map[string]string{
		"auth": hex.EncodeToString(sum[:8]),
	})
}

func joinQuery(target, query string) string {
	if query == "" {
		return target
	}

	if strings.Contains(target, "?") {
		return target + "&" + query
	}

	return target + "?" + query
}

func pathOf(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}

	return parsed.Path
}

// encodeBody serialises the request payload. Form wins over Body. JSON
// requests encode any Body except raw bytes and readers.
func encodeBody(req *mixer.RequestOptions) ([]byte, string, error) {
	if req.Form != nil {
		values := make(url.Values, len(req.Form))
		for key, value := range req.Form {
			values.Set(key, value)
		}

		return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
	}

	switch body := req.Body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return body, "", nil
	case io.Reader:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, "", fmt.Errorf("reading request body: %w", err)
		}

		return data, "", nil
	case string:
		if !req.IsJSON() {
			return []byte(body), "", nil
		}
	}

	if !req.IsJSON() {
		return nil, "", fmt.Errorf("%w: %T", mixer.ErrUnsupportedBodyType, req.Body)
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encoding request body: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), "application/json", nil
}

// leveledLogger adapts mixer.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger mixer.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues))
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return out
}
