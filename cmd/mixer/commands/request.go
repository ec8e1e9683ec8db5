package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zapdos26/client-node/internal/constants"
	"github.com/zapdos26/client-node/pkg/mixer"
)

// NewRequestCommand creates the request command.
func NewRequestCommand() *cobra.Command {
	var (
		data       string
		headers    []string
		query      []string
		apiVersion string
		raw        bool
	)

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an API request",
		Long: `Send a request to the Mixer API and print the response.

PATH is relative to the API base URL of the selected version, for example
"channels/shroud" or "users/current".`,
		Example: `  mixer request GET channels/shroud
  mixer request GET channels --query where=online:eq:true --query limit=5
  mixer request PUT channels/1234 --data '{"name":"Speedrun night"}'
  mixer request GET chats/1234 --api-version v2`,
		Args: cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := buildRequestOptions(data, headers, query)
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			res, err := client.Request(cmd.Context(), strings.ToUpper(args[0]), args[1], options, apiVersion)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}

			if raw {
				_, err = cmd.OutOrStdout().Write(res.Body)

				return err //nolint:wrapcheck // passthrough of the command's writer
			}

			return writeBody(cmd.OutOrStdout(), viper.GetString("output"), res.Body)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header as key:value (repeatable)")
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&apiVersion, "api-version", constants.DefaultAPIVersion, "API version")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the response body unformatted")

	return cmd
}

// buildRequestOptions parses the request flags. Repeated query keys become
// lists.
func buildRequestOptions(data string, headers, query []string) (*mixer.RequestOptions, error) {
	options := &mixer.RequestOptions{}

	if data != "" {
		var body any

		err := json.Unmarshal([]byte(data), &body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", constants.ErrInvalidDataJSON, err)
		}

		options.Body = body
	}

	for _, header := range headers {
		key, value, ok := strings.Cut(header, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: %s", constants.ErrInvalidHeaderFormat, header)
		}

		if options.Headers == nil {
			options.Headers = make(map[string]string)
		}

		options.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	for _, param := range query {
		key, value, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %s", constants.ErrInvalidQueryFormat, param)
		}

		if options.Query == nil {
			options.Query = make(map[string]any)
		}

		switch existing := options.Query[key].(type) {
		case nil:
			options.Query[key] = value
		case string:
			options.Query[key] = []string{existing, value}
		case []string:
			options.Query[key] = append(existing, value)
		}
	}

	return options, nil
}
