package mixer

import (
	"github.com/zapdos26/client-node/pkg/chatsocket"
)

// URLKind selects which entry of the URL registry SetURL changes.
type URLKind string

const (
	// URLKindAPI targets the versioned REST API base URLs.
	URLKindAPI URLKind = "api"
	// URLKindPublic targets the public website base URL.
	URLKindPublic URLKind = "public"
)

// URLRegistry holds the base URLs a client resolves requests against.
type URLRegistry struct {
	// API maps a lower-case API version ("v1", "v2") to its base URL.
	API    map[string]string `json:"api"    yaml:"api"`
	Public string            `json:"public" yaml:"public"`
}

// Client is the entry point for talking to the Mixer API.
type Client interface {
	Requester

	// SetURL overrides a base URL. apiVersion defaults to "v1" and is only
	// used for URLKindAPI.
	SetURL(kind URLKind, url string, apiVersion ...string) Client
	// URLs returns a snapshot of the URL registry.
	URLs() URLRegistry
	// BuildAddress joins a base URL, a path and an optional query.
	BuildAddress(base, path string, query any) string

	// Use installs p as the current provider, replacing any previous one,
	// and returns p.
	Use(p Provider) Provider
	// Provider returns the installed provider, or nil.
	Provider() Provider

	// Runner returns the request runner used to dispatch requests.
	Runner() RequestRunner
	// UserAgent returns the User-Agent computed at construction.
	UserAgent() string

	// CreateChatSocket builds a chat socket bound to transport and endpoints
	// without connecting it.
	CreateChatSocket(transport chatsocket.Transport, endpoints []string, opts chatsocket.Options) *chatsocket.Socket
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}
