package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/zapdos26/client-node/internal/constants"
	"github.com/zapdos26/client-node/pkg/mixer"
)

// ErrClientIDRequired is returned when an OAuth provider is built without a
// client id.
var ErrClientIDRequired = errors.New("OAuth client id is required")

// OAuthConfig configures an OAuthProvider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string

	// Tokens seeds the provider, e.g. from a config file.
	Tokens mixer.Tokens
	// Persister is told about every token set the provider obtains.
	Persister mixer.TokenPersister
	// HTTPClient is used for token endpoint calls.
	HTTPClient *http.Client
	Logger     mixer.Logger
}

// OAuthProvider authenticates requests with OAuth bearer tokens, sends the
// Client-ID header and refreshes the access token when the API answers 401.
type OAuthProvider struct {
	oauth      *oauth2.Config
	persister  mixer.TokenPersister
	httpClient *http.Client
	logger     mixer.Logger

	mu     sync.RWMutex
	tokens mixer.Tokens
	runner mixer.RequestRunner

	refreshMu sync.Mutex
}

// NewOAuthProvider creates a provider. runner re-sends requests after a
// refresh and may be set later with SetRunner.
func NewOAuthProvider(config *OAuthConfig, runner mixer.RequestRunner) (*OAuthProvider, error) {
	if config == nil || config.ClientID == "" {
		return nil, ErrClientIDRequired
	}

	authURL := config.AuthURL
	if authURL == "" {
		authURL = constants.DefaultAuthorizeURL
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = constants.DefaultTokenURL
	}

	logger := config.Logger
	if logger == nil {
		logger = mixer.NopLogger{}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.ShortHTTPTimeout}
	}

	return &OAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		persister:  config.Persister,
		httpClient: httpClient,
		logger:     logger,
		tokens:     config.Tokens,
		runner:     runner,
	}, nil
}

// SetRunner sets the runner used to re-send requests after a refresh.
func (p *OAuthProvider) SetRunner(runner mixer.RequestRunner) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runner = runner
}

// ClientID returns the OAuth client id.
func (p *OAuthProvider) ClientID() string {
	return p.oauth.ClientID
}

// AuthCodeURL returns the URL to send the user to for authorization.
func (p *OAuthProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauth.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for tokens and installs them.
func (p *OAuthProvider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (mixer.Tokens, error) {
	token, err := p.oauth.Exchange(p.tokenContext(ctx), code, opts...)
	if err != nil {
		return mixer.Tokens{}, fmt.Errorf("exchanging authorization code: %w", err)
	}

	return p.store(token), nil
}

// Refresh obtains a new access token with the refresh token.
func (p *OAuthProvider) Refresh(ctx context.Context) (mixer.Tokens, error) {
	p.mu.RLock()
	refreshToken := p.tokens.RefreshToken
	p.mu.RUnlock()

	if refreshToken == "" {
		return mixer.Tokens{}, mixer.ErrNoRefreshToken
	}

	source := p.oauth.TokenSource(p.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return mixer.Tokens{}, fmt.Errorf("refreshing access token: %w", err)
	}

	return p.store(token), nil
}

// IsAuthenticated reports whether a usable access token is held.
func (p *OAuthProvider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.tokens.Valid()
}

// Tokens returns the current token set.
func (p *OAuthProvider) Tokens() mixer.Tokens {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.tokens
}

// SetTokens replaces the token set without persisting it.
func (p *OAuthProvider) SetTokens(tokens mixer.Tokens) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tokens = tokens
}

// RequestDefaults implements mixer.Provider.
func (p *OAuthProvider) RequestDefaults() *mixer.RequestOptions {
	headers := map[string]string{"Client-ID": p.oauth.ClientID}

	p.mu.RLock()
	if p.tokens.AccessToken != "" {
		headers["Authorization"] = "Bearer " + p.tokens.AccessToken
	}
	p.mu.RUnlock()

	return &mixer.RequestOptions{Headers: headers}
}

// HandleResponseError implements mixer.Provider. A 401 is recovered by
// refreshing the access token and re-sending req once; every other failure,
// and a 401 whose body was a stream, is returned unchanged.
func (p *OAuthProvider) HandleResponseError(ctx context.Context, err error, req *mixer.RequestOptions) (*mixer.Response, error) {
	if !mixer.IsUnauthorized(err) || req == nil {
		return nil, err
	}

	// A streamed body was consumed by the first attempt.
	if _, streamed := req.Body.(io.Reader); streamed {
		return nil, err
	}

	p.mu.RLock()
	runner, hasRefresh := p.runner, p.tokens.RefreshToken != ""
	p.mu.RUnlock()

	if runner == nil || !hasRefresh {
		return nil, err
	}

	accessToken, refreshErr := p.refreshOnce(ctx, bearer(req))
	if refreshErr != nil {
		return nil, errors.Join(err, refreshErr)
	}

	retry := req.Clone()
	if retry.Headers == nil {
		retry.Headers = make(map[string]string, 1)
	}

	retry.Headers["Authorization"] = "Bearer " + accessToken

	p.logger.Debug("retrying request with refreshed token", map[string]interface{}{
		"method": retry.Method,
		"url":    retry.URL,
	})

	return runner.Run(ctx, retry)
}

// refreshOnce refreshes unless another request already replaced the token
// that failed, and returns the access token to retry with.
func (p *OAuthProvider) refreshOnce(ctx context.Context, failed string) (string, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	p.mu.RLock()
	current := p.tokens.AccessToken
	p.mu.RUnlock()

	if current != "" && current != failed {
		return current, nil
	}

	tokens, err := p.Refresh(ctx)
	if err != nil {
		return "", err
	}

	return tokens.AccessToken, nil
}

func (p *OAuthProvider) store(token *oauth2.Token) mixer.Tokens {
	p.mu.Lock()

	tokens := mixer.Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	// Servers may omit the refresh token when it does not rotate.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = p.tokens.RefreshToken
	}

	p.tokens = tokens
	p.mu.Unlock()

	if p.persister != nil {
		err := p.persister.UpdateTokens(p.oauth.ClientID, tokens)
		if err != nil {
			p.logger.Warn("failed to persist tokens", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return tokens
}

func (p *OAuthProvider) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func bearer(req *mixer.RequestOptions) string {
	for key, value := range req.Headers {
		if strings.EqualFold(key, "Authorization") {
			return strings.TrimPrefix(value, "Bearer ")
		}
	}

	return ""
}
