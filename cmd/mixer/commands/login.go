package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zapdos26/client-node/internal/constants"
	"github.com/zapdos26/client-node/pkg/mixer"
)

// currentUser is the subset of users/current shown after login.
type currentUser struct {
	ID       int    `json:"id"       yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Channel  struct {
		ID    int    `json:"id"    yaml:"id"`
		Token string `json:"token" yaml:"token"`
	} `json:"channel" yaml:"channel"`
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		token        string
		code         string
		clientID     string
		clientSecret string
		redirectURL  string
		scopes       []string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to Mixer",
		Long: `Authenticate with the Mixer API.

Use --token to store an existing bearer token, or --client-id to run the
OAuth authorization code flow. Without --code the authorization URL is printed
and the code is read from the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			config := loadConfig()

			switch {
			case token != "":
				if token == "-" {
					secret, err := readSecret(cmd, "Token: ")
					if err != nil {
						return err
					}

					token = secret
				}

				return loginWithToken(ctx, cmd.OutOrStdout(), config, token)
			case clientID != "" || config.ClientID != "":
				if clientID != "" {
					config.ClientID = clientID
				}

				if clientSecret != "" {
					config.ClientSecret = clientSecret
				}

				if redirectURL != "" {
					config.RedirectURL = redirectURL
				}

				if len(scopes) > 0 {
					config.Scopes = scopes
				}

				return loginWithCode(ctx, cmd, config, code)
			default:
				return constants.ErrLoginMethodRequired
			}
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "bearer token to store, '-' to read it from the terminal")
	cmd.Flags().StringVar(&code, "code", "", "OAuth authorization code")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret")
	cmd.Flags().StringVar(&redirectURL, "redirect-url", "", "OAuth redirect URL registered for the client")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "OAuth scopes to request")

	return cmd
}

func loginWithToken(ctx context.Context, out io.Writer, config *Config, token string) error {
	config.Token = token
	config.RefreshToken = ""
	config.TokenExpiresAt = nil

	clientConfig := buildClientConfig(config)
	clientConfig.ClientID = ""
	clientConfig.ClientSecret = ""

	user, err := fetchCurrentUser(ctx, clientConfig)
	if err != nil {
		return err
	}

	err = saveConfigStruct(config)
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Successfully logged in as %s\n", user.Username)

	return nil
}

func loginWithCode(ctx context.Context, cmd *cobra.Command, config *Config, code string) error {
	// Save the client first so tokens persisted during the exchange land
	// next to it.
	config.Token = ""
	config.RefreshToken = ""
	config.TokenExpiresAt = nil

	err := saveConfigStruct(config)
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	client, err := CreateClient()
	if err != nil {
		return err
	}

	provider, ok := oauthProvider(client)
	if !ok {
		return constants.ErrNoClientIDForConfig
	}

	if code == "" {
		state := uuid.NewString()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open the following URL in your browser and authorize the application:\n\n  %s\n\n", provider.AuthCodeURL(state))

		code, err = readSecret(cmd, "Authorization code: ")
		if err != nil {
			return err
		}
	}

	if code == "" {
		return constants.ErrAuthCodeRequired
	}

	_, err = provider.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to complete login: %w", err)
	}

	user, err := mixer.Do[currentUser](ctx, client, "GET", "users/current", nil, "")
	if err != nil {
		return fmt.Errorf("failed to fetch current user: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully logged in as %s\n", user.Data.Username)

	return nil
}

func fetchCurrentUser(ctx context.Context, clientConfig *mixer.Config) (*currentUser, error) {
	client, err := newClient(clientConfig)
	if err != nil {
		return nil, err
	}

	res, err := mixer.Do[currentUser](ctx, client, "GET", "users/current", nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	return &res.Data, nil
}

// readSecret prompts on stderr and reads a line without echo when stdin is
// a terminal.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt)

	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)

		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from Mixer",
		Long:  "Clear stored tokens. The OAuth client configuration is kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			config.Token = ""
			config.RefreshToken = ""
			config.TokenExpiresAt = nil

			err := saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")

			return nil
		},
	}
}
