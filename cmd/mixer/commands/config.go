package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zapdos26/client-node/internal/constants"
)

const (
	keyOutput         = "output"
	keyNoColor        = "no_color"
	keyLogLevel       = "log_level"
	keyAPIURL         = "api_url"
	keyAPIv2URL       = "api_v2_url"
	keyPublicURL      = "public_url"
	keyClientID       = "client_id"
	keyClientSecret   = "client_secret"
	keyRedirectURL    = "redirect_url"
	keyScopes         = "scopes"
	keyCache          = "cache"
	keyNATSURL        = "nats_url"
	keyRateLimit      = "rate_limit"
	keyToken          = "token"
	keyRefreshToken   = "refresh_token"
	keyTokenExpiresAt = "token_expires_at"
)

// Config represents the CLI configuration.
type Config struct {
	// Global settings
	Output   string `json:"output"              yaml:"output"`
	NoColor  bool   `json:"no_color"            yaml:"no_color"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Endpoints, empty for the platform defaults
	APIURL    string `json:"api_url,omitempty"    yaml:"api_url,omitempty"`
	APIv2URL  string `json:"api_v2_url,omitempty" yaml:"api_v2_url,omitempty"`
	PublicURL string `json:"public_url,omitempty" yaml:"public_url,omitempty"`

	// OAuth client
	ClientID     string   `json:"client_id,omitempty"     yaml:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	RedirectURL  string   `json:"redirect_url,omitempty"  yaml:"redirect_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty"        yaml:"scopes,omitempty"`

	// Transport
	Cache     string  `json:"cache,omitempty"      yaml:"cache,omitempty"`
	NATSURL   string  `json:"nats_url,omitempty"   yaml:"nats_url,omitempty"`
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// Tokens, written by login and by token refreshes
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"    yaml:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage Mixer CLI configuration including endpoints, OAuth client and output settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskSecrets(loadConfig())

			switch viper.GetString("output") {
			case constants.FormatJSON, constants.FormatYAML:
				return writeStructured(cmd.OutOrStdout(), viper.GetString("output"), config)
			default:
				return displayConfigTable(cmd.OutOrStdout(), config)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a specific configuration value. Token fields are managed by 'mixer login'.",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			config := loadConfig()

			err := setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Set", key, value)
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a specific configuration value, restoring its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			err := unsetConfigValue(config, key)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Unset", key, "")
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file and all stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			return outputConfigUpdateResult(cmd.OutOrStdout(), "Cleared", "all configuration", "")
		},
	}
}

// loadConfig reads the configuration from viper, which merges the config
// file, MIXER_* environment variables and flags.
func loadConfig() *Config {
	config := &Config{
		Output:       viper.GetString(keyOutput),
		NoColor:      viper.GetBool(keyNoColor),
		LogLevel:     viper.GetString(keyLogLevel),
		APIURL:       viper.GetString(keyAPIURL),
		APIv2URL:     viper.GetString(keyAPIv2URL),
		PublicURL:    viper.GetString(keyPublicURL),
		ClientID:     viper.GetString(keyClientID),
		ClientSecret: viper.GetString(keyClientSecret),
		RedirectURL:  viper.GetString(keyRedirectURL),
		Scopes:       viper.GetStringSlice(keyScopes),
		Cache:        viper.GetString(keyCache),
		NATSURL:      viper.GetString(keyNATSURL),
		RateLimit:    viper.GetFloat64(keyRateLimit),
		Token:        viper.GetString(keyToken),
		RefreshToken: viper.GetString(keyRefreshToken),
	}

	if expiresAt := viper.GetTime(keyTokenExpiresAt); !expiresAt.IsZero() {
		config.TokenExpiresAt = &expiresAt
	}

	return config
}

// configFilePath returns the config file in use, or ~/.mixer/config.yml.
func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName), nil
}

// saveConfigStruct writes config to the config file and updates viper so
// later reads in the same process see the new values.
func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

// getConfigHandler returns a setter for a settable key.
func getConfigHandler(key string) (func(*Config, string), bool) {
	handlers := map[string]func(*Config, string){
		keyOutput:       func(c *Config, v string) { c.Output = v },
		keyNoColor:      func(c *Config, v string) { c.NoColor = parseBoolValue(v) },
		keyLogLevel:     func(c *Config, v string) { c.LogLevel = v },
		keyAPIURL:       func(c *Config, v string) { c.APIURL = v },
		keyAPIv2URL:     func(c *Config, v string) { c.APIv2URL = v },
		keyPublicURL:    func(c *Config, v string) { c.PublicURL = v },
		keyClientID:     func(c *Config, v string) { c.ClientID = v },
		keyClientSecret: func(c *Config, v string) { c.ClientSecret = v },
		keyRedirectURL:  func(c *Config, v string) { c.RedirectURL = v },
		keyScopes:       func(c *Config, v string) { c.Scopes = splitList(v) },
		keyCache:        func(c *Config, v string) { c.Cache = v },
		keyNATSURL:      func(c *Config, v string) { c.NATSURL = v },
	}
	handler, exists := handlers[key]

	return handler, exists
}

func setConfigValue(config *Config, key, value string) error {
	if isTokenKey(key) {
		return constants.ErrTokenFieldsReadOnly
	}

	if key == keyRateLimit {
		var limit float64

		_, err := fmt.Sscan(value, &limit)
		if err != nil || limit < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", constants.ErrInvalidConfigValue, key)
		}

		config.RateLimit = limit

		return nil
	}

	handler, exists := getConfigHandler(key)
	if !exists {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	handler(config, value)

	return nil
}

func unsetConfigValue(config *Config, key string) error {
	switch key {
	case keyOutput:
		config.Output = constants.FormatTable
	case keyRateLimit:
		config.RateLimit = 0
	case keyToken, keyRefreshToken, keyTokenExpiresAt:
		return constants.ErrTokenFieldsReadOnly
	default:
		handler, exists := getConfigHandler(key)
		if !exists {
			return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
		}

		handler(config, "")
	}

	return nil
}

func isTokenKey(key string) bool {
	return key == keyToken || key == keyRefreshToken || key == keyTokenExpiresAt
}

// parseBoolValue parses a boolean value from string.
func parseBoolValue(value string) bool {
	return value == constants.BooleanTrue || value == "1"
}

func splitList(value string) []string {
	var out []string

	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}

	return out
}

func maskSecrets(config *Config) *Config {
	masked := *config
	masked.ClientSecret = formatSecret(config.ClientSecret)
	masked.Token = formatSecret(config.Token)
	masked.RefreshToken = formatSecret(config.RefreshToken)

	return &masked
}

func formatSecret(value string) string {
	if value == "" {
		return ""
	}

	return "[set]"
}

func formatConfigValue(value string) string {
	if value == "" {
		return "(not set)"
	}

	return value
}

func displayConfigTable(out io.Writer, config *Config) error {
	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")

	expiresAt := ""
	if config.TokenExpiresAt != nil {
		expiresAt = config.TokenExpiresAt.Format(time.RFC3339)
	}

	rows := [][]string{
		{"Output", formatConfigValue(config.Output)},
		{"No Color", fmt.Sprintf("%t", config.NoColor)},
		{"Log Level", formatConfigValue(config.LogLevel)},
		{"API URL", formatConfigValue(config.APIURL)},
		{"API v2 URL", formatConfigValue(config.APIv2URL)},
		{"Public URL", formatConfigValue(config.PublicURL)},
		{"Client ID", formatConfigValue(config.ClientID)},
		{"Client Secret", formatConfigValue(config.ClientSecret)},
		{"Redirect URL", formatConfigValue(config.RedirectURL)},
		{"Scopes", formatConfigValue(strings.Join(config.Scopes, ","))},
		{"Cache", formatConfigValue(config.Cache)},
		{"NATS URL", formatConfigValue(config.NATSURL)},
		{"Rate Limit", fmt.Sprintf("%g", config.RateLimit)},
		{"Token", formatConfigValue(config.Token)},
		{"Refresh Token", formatConfigValue(config.RefreshToken)},
		{"Token Expires At", formatConfigValue(expiresAt)},
	}

	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append config row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render config table: %w", err)
	}

	return nil
}

// outputConfigUpdateResult outputs configuration update results in the requested format.
func outputConfigUpdateResult(out io.Writer, action, key, value string) error {
	if key == keyClientSecret {
		value = formatSecret(value)
	}

	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	switch viper.GetString("output") {
	case constants.FormatJSON, constants.FormatYAML:
		return writeStructured(out, viper.GetString("output"), result)
	}

	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")

	err := table.Append([]string{"Action", action})
	if err != nil {
		return fmt.Errorf("failed to append action to table: %w", err)
	}

	err = table.Append([]string{"Key", key})
	if err != nil {
		return fmt.Errorf("failed to append key to table: %w", err)
	}

	if value != "" {
		err = table.Append([]string{"Value", value})
		if err != nil {
			return fmt.Errorf("failed to append value to table: %w", err)
		}
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render update results table: %w", err)
	}

	return nil
}
