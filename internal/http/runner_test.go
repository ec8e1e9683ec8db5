package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mixerhttp "github.com/zapdos26/client-node/internal/http"
	"github.com/zapdos26/client-node/pkg/mixer"
)

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

func (l *MockLogger) messages() []string {
	out := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		out = append(out, entry["msg"].(string))
	}

	return out
}

func fastRetries() mixerhttp.Option {
	return mixerhttp.WithRetryConfig(3, time.Millisecond, 10*time.Millisecond)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestRunner_Run(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/v1/channels/shroud", request.URL.Path)
			assert.Equal(t, http.MethodGet, request.Method)
			assert.Equal(t, "MixerClient/test", request.Header.Get("User-Agent"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.NotEmpty(t, request.Header.Get(mixerhttp.RequestIDHeader))

			_ = json.NewEncoder(writer).Encode(map[string]any{"id": 42, "token": "shroud"})
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner()

		resp, err := runner.Run(context.Background(), &mixer.RequestOptions{
			Method:  "get",
			URL:     server.URL + "/api/v1/channels/shroud",
			Headers: map[string]string{"User-Agent": "MixerClient/test"},
			JSON:    mixer.Bool(true),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]any

		require.NoError(t, resp.Decode(&result))
		assert.Equal(t, "shroud", result["token"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "fields=id&limit=10&where=online%3Aeq%3Atrue", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner()

		_, err := runner.Run(context.Background(), &mixer.RequestOptions{
			Method: http.MethodGet,
			URL:    server.URL + "/channels",
			Query:  map[string]any{"where": "online:eq:true", "limit": json.Number("10"), "fields": "id"},
		})
		require.NoError(t, err)
	})

	t.Run("request with JSON body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "hello", body["message"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner()

		resp, err := runner.Run(context.Background(), &mixer.RequestOptions{
			Method: http.MethodPost,
			URL:    server.URL + "/chats/1/message",
			Body:   map[string]string{"message": "hello"},
			JSON:   mixer.Bool(true),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("form body wins over body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "application/x-www-form-urlencoded", request.Header.Get("Content-Type"))
			assert.NoError(t, request.ParseForm())
			assert.Equal(t, "refresh_token", request.PostForm.Get("grant_type"))

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner()

		_, err := runner.Run(context.Background(), &mixer.RequestOptions{
			Method: http.MethodPost,
			URL:    server.URL + "/oauth/token",
			Form:   map[string]string{"grant_type": "refresh_token"},
			Body:   map[string]string{"ignored": "yes"},
		})
		require.NoError(t, err)
	})

	t.Run("raw string body without JSON", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			data, _ := io.ReadAll(request.Body)
			assert.Equal(t, "plain text", string(data))

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner()

		_, err := runner.Run(context.Background(), &mixer.RequestOptions{
			Method: http.MethodPut,
			URL:    server.URL,
			Body:   "plain text",
		})
		require.NoError(t, err)
	})

	t.Run("unsupported body type", func(t *testing.T) {
		t.Parallel()

		runner := mixerhttp.NewRunner()

		_, err := runner.Run(context.Background(), &mixer.RequestOptions{
			Method: http.MethodPost,
			URL:    "http://127.0.0.1:1",
			Body:   map[string]string{"a": "b"},
		})
		require.ErrorIs(t, err, mixer.ErrUnsupportedBodyType)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(writer).Encode(mixer.APIError{
				StatusCode: http.StatusNotFound,
				Err:        "Not Found",
				Message:    "Channel not found.",
			})
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner()

		resp, err := runner.Run(context.Background(), &mixer.RequestOptions{
			Method: http.MethodGet,
			URL:    server.URL + "/channels/missing",
		})
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.True(t, mixer.IsNotFound(err))

		var statusErr *mixer.StatusCodeError

		require.ErrorAs(t, err, &statusErr)
		require.NotNil(t, statusErr.API)
		assert.Equal(t, "Channel not found.", statusErr.API.Message)
		assert.Equal(t, server.URL+"/channels/missing", statusErr.Request.URL)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		runner := mixerhttp.NewRunner(mixerhttp.WithLogger(logger), mixerhttp.WithDebug(true))

		_, err := runner.Run(context.Background(), &mixer.RequestOptions{Method: http.MethodGet, URL: server.URL})
		require.NoError(t, err)

		assert.Contains(t, logger.messages(), "HTTP Request")
		assert.Contains(t, logger.messages(), "HTTP Response")
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestRunner_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner(fastRetries())

		resp, err := runner.Run(context.Background(), &mixer.RequestOptions{Method: http.MethodGet, URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner(fastRetries())

		resp, err := runner.Run(context.Background(), &mixer.RequestOptions{Method: http.MethodGet, URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("gives up with the last status", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner(fastRetries())

		_, err := runner.Run(context.Background(), &mixer.RequestOptions{Method: http.MethodGet, URL: server.URL})
		require.Error(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, mixer.StatusCode(err))
		assert.Equal(t, int32(4), attempts.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		runner := mixerhttp.NewRunner(fastRetries())

		_, err := runner.Run(context.Background(), &mixer.RequestOptions{Method: http.MethodGet, URL: server.URL})
		require.Error(t, err)
		assert.True(t, mixer.IsUnauthorized(err))
		assert.Equal(t, int32(1), attempts.Load())
	})
}

func TestRunner_Cache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits.Add(1)
		writer.Header().Set("ETag", `"v1"`)
		_, _ = writer.Write([]byte(`{"online":true}`))
	}))
	defer server.Close()

	runner := mixerhttp.NewRunner(mixerhttp.WithCache(mixer.NewMemoryCache(10), nil))
	ctx := context.Background()

	for range 3 {
		resp, err := runner.Run(ctx, &mixer.RequestOptions{Method: http.MethodGet, URL: server.URL + "/channels/1"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"online":true}`, string(resp.Body))
	}

	assert.Equal(t, int32(1), hits.Load())

	// A different bearer token does not share cached entries.
	_, err := runner.Run(ctx, &mixer.RequestOptions{
		Method:  http.MethodGet,
		URL:     server.URL + "/channels/1",
		Headers: map[string]string{"Authorization": "Bearer other"},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	// Writes are never cached.
	for range 2 {
		_, err = runner.Run(ctx, &mixer.RequestOptions{Method: http.MethodDelete, URL: server.URL + "/channels/1"})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(4), hits.Load())

	stats := runner.Cache().GetStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Sets)
}

func TestRunner_Interceptors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "yes", request.Header.Get("X-Intercepted"))
		writer.Header().Set(mixer.HeaderRateLimitRemaining, "99")
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	collector := mixer.NewMetricsCollector()
	chain := mixer.NewInterceptorChain().
		AddRequestInterceptor(mixer.HeaderInterceptor(map[string]string{"X-Intercepted": "yes"})).
		AddRequestInterceptor(mixer.MetricsRequestInterceptor(collector)).
		AddResponseInterceptor(mixer.MetricsResponseInterceptor(collector))

	runner := mixerhttp.NewRunner(mixerhttp.WithInterceptors(chain))

	_, err := runner.Run(context.Background(), &mixer.RequestOptions{
		Method: http.MethodGet,
		URL:    server.URL + "/api/v1/channels",
		Query:  map[string]any{"limit": 5},
	})
	require.NoError(t, err)

	metrics := collector.GetMetrics("GET /api/v1/channels")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(1), metrics.Requests)
	assert.Equal(t, int64(0), metrics.Errors)
	assert.Equal(t, 99, metrics.RateLimitRemaining)
}

func TestRunner_InterceptorAbortsRequest(t *testing.T) {
	t.Parallel()

	errBlocked := errors.New("blocked")
	chain := mixer.NewInterceptorChain().AddRequestInterceptor(func(context.Context, *mixer.Request) error {
		return errBlocked
	})

	runner := mixerhttp.NewRunner(mixerhttp.WithInterceptors(chain))

	_, err := runner.Run(context.Background(), &mixer.RequestOptions{Method: http.MethodGet, URL: "http://127.0.0.1:1"})
	require.ErrorIs(t, err, errBlocked)
}

func TestRunner_ThrottleHonoursContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	runner := mixerhttp.NewRunner(mixerhttp.WithThrottle(0.001, 1))

	_, err := runner.Run(context.Background(), &mixer.RequestOptions{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = runner.Run(ctx, &mixer.RequestOptions{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
