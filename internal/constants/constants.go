package constants

import "time"

// Client identification.
const (
	// ClientName is the product token sent in the User-Agent header.
	ClientName = "MixerClient"

	// ClientVersion is the SDK version. Updated by the release script.
	ClientVersion = "0.13.0"
)

// Default platform endpoints.
const (
	// DefaultAPIv1URL is the base URL of version 1 of the REST API.
	DefaultAPIv1URL = "https://mixer.com/api/v1"

	// DefaultAPIv2URL is the base URL of version 2 of the REST API.
	DefaultAPIv2URL = "https://mixer.com/api/v2"

	// DefaultPublicURL is the public website base URL.
	DefaultPublicURL = "https://mixer.com"

	// DefaultAuthorizeURL is the OAuth authorization endpoint.
	DefaultAuthorizeURL = "https://mixer.com/oauth/authorize"

	// DefaultTokenURL is the OAuth token endpoint.
	DefaultTokenURL = "https://mixer.com/api/v1/oauth/token"

	// DefaultAPIVersion is the API version used when none is requested.
	DefaultAPIVersion = "v1"
)

// CLI settings.
const (
	// ConfigDirName is the directory under the user's home holding the CLI config.
	ConfigDirName = ".mixer"

	// ConfigFileName is the CLI config file name.
	ConfigFileName = "config.yml"

	// EnvPrefix prefixes environment variables read by the CLI.
	EnvPrefix = "MIXER"

	// FormatJSON is the JSON output format.
	FormatJSON = "json"

	// FormatYAML is the YAML output format.
	FormatYAML = "yaml"

	// FormatTable is the table output format.
	FormatTable = "table"

	// BooleanTrue is the accepted spelling of true in config values.
	BooleanTrue = "true"

	// MinimumArgumentCount is the argument count of key/value commands.
	MinimumArgumentCount = 2
)

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as token exchange.
	ShortHTTPTimeout = 10 * time.Second

	// DefaultHandshakeTimeout bounds the chat socket WebSocket handshake.
	DefaultHandshakeTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used for operations that need longer waits.
	ExtendedRetryWaitMax = 30 * time.Second
)

// Token handling.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// Caching.
const (
	// DefaultCacheSize is the default number of entries kept by the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is how long cached GET responses stay fresh.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultNATSBucket is the JetStream key-value bucket used for caching.
	DefaultNATSBucket = "mixer-client-cache"
)

// Circuit breaker.
const (
	// CircuitBreakerThreshold is the failure count that opens the breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerTimeout is how long the breaker stays open.
	CircuitBreakerTimeout = 30 * time.Second

	// CircuitBreakerSuccessThreshold is the success count that closes a half-open breaker.
	CircuitBreakerSuccessThreshold = 2
)
