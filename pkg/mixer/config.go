package mixer

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zapdos26/client-node/internal/constants"
)

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents client configuration for building a Client.
//
// # Authentication precedence
//
// The following precedence is applied by the concrete client implementation
// (see pkg/mixerclient and internal/client):
//  1. Provider: if set, it is installed as is.
//  2. ClientID: an OAuth provider is created. AccessToken, RefreshToken and
//     TokenExpiresAt seed it, and a 401 triggers a refresh and one retry
//     when a refresh token is known.
//  3. AccessToken: used directly as a static Bearer token.
//  4. No credentials: requests are sent without authentication.
//
// # Transport
//
// Runner replaces the default HTTP runner entirely; the retry, rate limit,
// cache and interceptor settings only apply to the default runner.
type Config struct {
	// APIURL overrides the v1 API base URL.
	APIURL string `validate:"omitempty,url"`
	// APIv2URL overrides the v2 API base URL.
	APIv2URL string `validate:"omitempty,url"`
	// PublicURL overrides the public website base URL.
	PublicURL string `validate:"omitempty,url"`

	// AccessToken: bearer token used directly, or the initial OAuth token
	// when ClientID is set.
	AccessToken string
	// RefreshToken: OAuth refresh token used to renew access tokens.
	RefreshToken string
	// TokenExpiresAt: expiry of AccessToken, zero when unknown.
	TokenExpiresAt time.Time
	// ClientID: OAuth client identifier. Also exposed to the chat socket.
	ClientID string `validate:"required_with=ClientSecret"`
	// ClientSecret: OAuth client secret, optional for public clients.
	ClientSecret string
	// RedirectURL: OAuth redirect URI registered for the client.
	RedirectURL string `validate:"omitempty,url"`
	// Scopes requested during authorization.
	Scopes []string
	// AuthURL overrides the OAuth authorization endpoint.
	AuthURL string `validate:"omitempty,url"`
	// TokenURL overrides the OAuth token endpoint.
	TokenURL string `validate:"omitempty,url"`
	// TokenPersister, if set, is told about every token the OAuth provider
	// obtains.
	TokenPersister TokenPersister `validate:"-"`

	// HTTPTimeout bounds a single HTTP attempt. Defaults to 30s.
	HTTPTimeout time.Duration `validate:"gte=0"`
	// RetryMax: maximum number of retries for transient failures (>=500, 429,
	// and connection errors). Zero keeps the default.
	RetryMax int `validate:"gte=0"`
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration `validate:"gte=0"`
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration `validate:"gte=0"`
	// RateLimit: requests per second allowed by the client. Zero disables
	// client-side throttling.
	RateLimit float64 `validate:"gte=0"`
	// RateBurst: token bucket size used with RateLimit. Defaults to 1.
	RateBurst int `validate:"gte=0"`
	// Cache enables caching of successful GET responses.
	Cache *CacheConfig `validate:"-"`
	// CacheTTL: how long cached responses stay fresh. Defaults to 5m.
	CacheTTL time.Duration `validate:"gte=0"`
	// Interceptors run around every HTTP attempt made by the default runner.
	Interceptors *InterceptorChain `validate:"-"`

	// Debug enables verbose request logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger `validate:"-"`

	// Runner replaces the default HTTP request runner.
	Runner RequestRunner `validate:"-"`
	// Provider is installed instead of one built from the credentials above.
	Provider Provider `validate:"-"`
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Tokens is the OAuth token set held by a provider.
type Tokens struct {
	AccessToken  string    `json:"access_token"            yaml:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"    yaml:"expires_at,omitempty"`
}

// Valid reports whether the access token is usable. Tokens expiring within
// the expiration buffer are considered invalid.
func (t *Tokens) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(constants.TokenExpirationBuffer).Before(t.ExpiresAt)
}

// TokenPersister stores tokens obtained by a provider, e.g. in a config file.
type TokenPersister interface {
	UpdateTokens(clientID string, tokens Tokens) error
}
