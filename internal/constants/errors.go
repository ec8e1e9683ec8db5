package constants

import "errors"

// Configuration errors.
var (
	ErrNoConfigFile        = errors.New("no configuration file in use")
	ErrNoClientIDForConfig = errors.New("no OAuth client ID configured, use 'mixer config set client_id <id>'")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
	ErrInvalidConfigValue  = errors.New("invalid configuration value")
	ErrTokenFieldsReadOnly = errors.New("token fields cannot be set via config command, use 'mixer login'")
)

// Authentication errors.
var (
	ErrNotAuthenticated    = errors.New("not authenticated, use 'mixer login' first")
	ErrNoRefreshToken      = errors.New("no refresh token available, please run 'mixer login' again")
	ErrAuthCodeRequired    = errors.New("authorization code is required")
	ErrLoginMethodRequired = errors.New("one of --token, --code or --client-id is required")
)

// Request command errors.
var (
	ErrInvalidHeaderFormat = errors.New("invalid header format, expected key:value")
	ErrInvalidQueryFormat  = errors.New("invalid query format, expected key=value")
	ErrInvalidDataJSON     = errors.New("request data must be valid JSON")
	ErrEndpointRequired    = errors.New("at least one --endpoint is required")
)
