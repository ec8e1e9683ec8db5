// Package client implements mixer.Client: URL resolution, request
// composition and provider recovery around a pluggable request runner.
package client

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/zapdos26/client-node/internal/auth"
	"github.com/zapdos26/client-node/internal/constants"
	"github.com/zapdos26/client-node/internal/http"
	"github.com/zapdos26/client-node/pkg/chatsocket"
	"github.com/zapdos26/client-node/pkg/mixer"
)

// Static errors for err113 compliance.
var (
	errUnsupportedSource = errors.New("unsupported request options source")
)

// Client implements the mixer.Client interface.
type Client struct {
	mu       sync.RWMutex
	urls     mixer.URLRegistry
	provider mixer.Provider

	runner    mixer.RequestRunner
	userAgent string
}

var _ mixer.Client = (*Client)(nil)

// New creates a client from config. A nil config yields an unauthenticated
// client against the default URLs.
func New(config *mixer.Config) (*Client, error) {
	if config == nil {
		config = &mixer.Config{}
	}

	err := config.Validate()
	if err != nil {
		return nil, err
	}

	runner := config.Runner
	if runner == nil {
		opts, err := createRunnerOptions(config)
		if err != nil {
			return nil, err
		}

		runner = http.NewRunner(opts...)
	}

	client := NewWithRunner(runner)

	if config.APIURL != "" {
		client.urls.API["v1"] = config.APIURL
	}

	if config.APIv2URL != "" {
		client.urls.API["v2"] = config.APIv2URL
	}

	if config.PublicURL != "" {
		client.urls.Public = config.PublicURL
	}

	provider, err := createProvider(config, runner)
	if err != nil {
		return nil, err
	}

	if provider != nil {
		client.Use(provider)
	}

	return client, nil
}

// NewWithRunner creates an unauthenticated client that dispatches through
// runner.
func NewWithRunner(runner mixer.RequestRunner) *Client {
	if runner == nil {
		runner = http.NewRunner()
	}

	return &Client{
		urls: mixer.URLRegistry{
			API: map[string]string{
				"v1": constants.DefaultAPIv1URL,
				"v2": constants.DefaultAPIv2URL,
			},
			Public: constants.DefaultPublicURL,
		},
		runner:    runner,
		userAgent: buildUserAgent(),
	}
}

// createProvider picks a provider from the credentials in config.
func createProvider(config *mixer.Config, runner mixer.RequestRunner) (mixer.Provider, error) {
	if config.Provider != nil {
		return config.Provider, nil
	}

	if config.ClientID != "" {
		provider, err := auth.NewOAuthProvider(&auth.OAuthConfig{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
			AuthURL:      config.AuthURL,
			TokenURL:     config.TokenURL,
			Tokens: mixer.Tokens{
				AccessToken:  config.AccessToken,
				RefreshToken: config.RefreshToken,
				ExpiresAt:    config.TokenExpiresAt,
			},
			Persister: config.TokenPersister,
			Logger:    config.Logger,
		}, runner)
		if err != nil {
			return nil, fmt.Errorf("creating OAuth provider: %w", err)
		}

		return provider, nil
	}

	if config.AccessToken != "" {
		return auth.NewStaticTokenProvider(config.AccessToken), nil
	}

	return nil, nil //nolint:nilnil // no credentials means no provider
}

// createRunnerOptions builds HTTP runner options from config.
func createRunnerOptions(config *mixer.Config) ([]http.Option, error) {
	var opts []http.Option

	if config.Logger != nil {
		opts = append(opts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		opts = append(opts, http.WithDebug(true))
	}

	if config.HTTPTimeout > 0 {
		opts = append(opts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 || config.RetryWaitMin > 0 || config.RetryWaitMax > 0 {
		retryMax := constants.DefaultRetryMax
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryMax > 0 {
			retryMax = config.RetryMax
		}

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		opts = append(opts, http.WithRetryConfig(retryMax, retryWaitMin, retryWaitMax))
	}

	if config.RateLimit > 0 {
		opts = append(opts, http.WithThrottle(config.RateLimit, config.RateBurst))
	}

	if config.Cache != nil {
		cache, err := mixer.NewCacheFromConfig(config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating response cache: %w", err)
		}

		// CacheTypeNone leaves the runner uncached.
		if cache != nil {
			options := mixer.DefaultCacheOptions()
			if config.Cache.Options != nil {
				copied := *config.Cache.Options
				options = &copied
			}

			if config.CacheTTL > 0 {
				options.DefaultTTL = config.CacheTTL
			}

			opts = append(opts, http.WithCache(cache, options))
		}
	}

	if config.Interceptors != nil {
		opts = append(opts, http.WithInterceptors(config.Interceptors))
	}

	return opts, nil
}

// SetURL overrides a base URL. API URLs are stored under the lower-cased
// version, "v1" when none is given. Unknown kinds are ignored.
func (c *Client) SetURL(kind mixer.URLKind, url string, apiVersion ...string) mixer.Client {
	version := constants.DefaultAPIVersion
	if len(apiVersion) > 0 && apiVersion[0] != "" {
		version = strings.ToLower(apiVersion[0])
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case mixer.URLKindAPI:
		c.urls.API[version] = url
	case mixer.URLKindPublic:
		c.urls.Public = url
	}

	return c
}

// URLs returns a snapshot of the URL registry.
func (c *Client) URLs() mixer.URLRegistry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return mixer.URLRegistry{
		API:    maps.Clone(c.urls.API),
		Public: c.urls.Public,
	}
}

// BuildAddress joins a base URL, a path and an optional query.
func (c *Client) BuildAddress(base, path string, query any) string {
	return mixer.BuildAddress(base, path, query)
}

// Use installs provider, replacing the previous one, and returns it.
func (c *Client) Use(provider mixer.Provider) mixer.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.provider = provider

	return provider
}

// Provider returns the installed provider, or nil.
func (c *Client) Provider() mixer.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.provider
}

// Runner returns the request runner.
func (c *Client) Runner() mixer.RequestRunner {
	return c.runner
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// apiBase resolves apiVersion case-insensitively, falling back to the
// current v1 URL for unknown versions. Callers hold c.mu.
func (c *Client) apiBase(apiVersion string) string {
	if apiVersion == "" {
		apiVersion = constants.DefaultAPIVersion
	}

	base, ok := c.urls.API[strings.ToLower(apiVersion)]
	if !ok || base == "" {
		base = c.urls.API[constants.DefaultAPIVersion]
	}

	return base
}

// Request composes a request from the provider defaults, the computed
// method, URL, User-Agent and JSON flag, and data, in that order of
// increasing precedence, then runs it. A failure is handed to the provider,
// if any, whose outcome is returned; without a provider it is returned as is.
func (c *Client) Request(ctx context.Context, method, path string, data *mixer.RequestOptions, apiVersion string) (*mixer.Response, error) {
	c.mu.RLock()
	provider := c.provider
	base := c.apiBase(apiVersion)
	c.mu.RUnlock()

	var defaults *mixer.RequestOptions
	if provider != nil {
		defaults = provider.RequestDefaults()
	}

	req, err := mergeRequestOptions(defaults, map[string]any{
		"method": method,
		"url":    mixer.BuildAddress(base, path, nil),
		"headers": map[string]any{
			"User-Agent": c.userAgent,
		},
		"json": true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("composing %s %s: %w", method, path, err)
	}

	resp, err := c.runner.Run(ctx, req)
	if err == nil {
		return resp, nil
	}

	if provider != nil {
		return provider.HandleResponseError(ctx, err, req)
	}

	return nil, err
}

// CreateChatSocket builds a chat socket without connecting it. The client id
// of an OAuth provider is injected unless opts already carries one.
func (c *Client) CreateChatSocket(transport chatsocket.Transport, endpoints []string, opts chatsocket.Options) *chatsocket.Socket {
	if opts.ClientID == nil {
		opts.ClientID = mixer.ClientIDOf(c.Provider())
	}

	if opts.UserAgent == "" {
		opts.UserAgent = c.userAgent
	}

	return chatsocket.New(transport, endpoints, opts)
}
