package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zapdos26/client-node/internal/constants"
	"github.com/zapdos26/client-node/pkg/chatsocket"
	"github.com/zapdos26/client-node/pkg/mixer"
)

// channelRef is the subset of a channel needed to join its chat.
type channelRef struct {
	ID int `json:"id"`
}

// chatDetails is the body of GET chats/{channelId}.
type chatDetails struct {
	Endpoints   []string `json:"endpoints"`
	AuthKey     string   `json:"authkey"`
	Permissions []string `json:"permissions"`
}

// chatMethod is a method frame sent to the chat server.
type chatMethod struct {
	Type      string `json:"type"`
	Method    string `json:"method"`
	Arguments []any  `json:"arguments"`
	ID        int    `json:"id"`
}

// chatFrame is an event or reply received from the chat server.
type chatFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	ID    *int            `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

// chatMessage is the data of a ChatMessage event.
type chatMessage struct {
	UserName string `json:"user_name"`
	Message  struct {
		Message []struct {
			Text string `json:"text"`
		} `json:"message"`
	} `json:"message"`
}

// NewChatCommand creates the chat command.
func NewChatCommand() *cobra.Command {
	var (
		endpoints []string
		message   string
		count     int
	)

	cmd := &cobra.Command{
		Use:   "chat CHANNEL",
		Short: "Join a channel's chat",
		Long: `Connect to the chat of a channel, given by id or token, and print events
until interrupted. When logged in the connection is authenticated and --message
sends a chat message once joined.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := CreateClient()
			if err != nil {
				return err
			}

			socket, err := joinChat(ctx, client, args[0], endpoints)
			if err != nil {
				return err
			}

			defer func() { _ = socket.Close() }()

			if message != "" {
				err = socket.Send(chatMethod{Type: "method", Method: "msg", Arguments: []any{message}, ID: 1})
				if err != nil {
					return fmt.Errorf("failed to send message: %w", err)
				}
			}

			return streamChat(ctx, cmd.OutOrStdout(), socket, viper.GetString("output"), count)
		},
	}

	cmd.Flags().StringArrayVar(&endpoints, "endpoint", nil, "chat server endpoint, overrides the ones returned by the API (repeatable)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to send after joining")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many frames, 0 for no limit")

	return cmd
}

// joinChat resolves the channel, connects to one of its chat endpoints and
// sends the auth method.
func joinChat(ctx context.Context, client mixer.Client, channel string, endpoints []string) (*chatsocket.Socket, error) {
	ch, err := mixer.Do[channelRef](ctx, client, "GET", "channels/"+channel, &mixer.RequestOptions{Query: map[string]any{"fields": "id"}}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel %s: %w", channel, err)
	}

	details, err := mixer.Do[chatDetails](ctx, client, "GET", fmt.Sprintf("chats/%d", ch.Data.ID), nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get chat details: %w", err)
	}

	if len(endpoints) == 0 {
		endpoints = details.Data.Endpoints
	}

	if len(endpoints) == 0 {
		return nil, constants.ErrEndpointRequired
	}

	socket := client.CreateChatSocket(nil, endpoints, chatsocket.Options{})

	err = socket.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chat: %w", err)
	}

	arguments := []any{ch.Data.ID}

	if details.Data.AuthKey != "" {
		user, err := mixer.Do[currentUser](ctx, client, "GET", "users/current", nil, "")
		if err == nil {
			arguments = append(arguments, user.Data.ID, details.Data.AuthKey)
		}
	}

	err = socket.Send(chatMethod{Type: "method", Method: "auth", Arguments: arguments, ID: 0})
	if err != nil {
		_ = socket.Close()

		return nil, fmt.Errorf("failed to authenticate to chat: %w", err)
	}

	return socket, nil
}

// streamChat prints frames until ctx ends, the connection fails or limit
// frames were printed.
func streamChat(ctx context.Context, out io.Writer, socket *chatsocket.Socket, format string, limit int) error {
	stop := context.AfterFunc(ctx, func() { _ = socket.Close() })
	defer stop()

	for received := 0; limit <= 0 || received < limit; received++ {
		frame, err := socket.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("chat connection closed: %w", err)
		}

		err = printFrame(out, format, frame)
		if err != nil {
			return err
		}
	}

	return nil
}

func printFrame(out io.Writer, format string, raw json.RawMessage) error {
	if format == constants.FormatJSON {
		_, err := fmt.Fprintln(out, string(raw))

		return err //nolint:wrapcheck // passthrough of the command's writer
	}

	var frame chatFrame

	err := json.Unmarshal(raw, &frame)
	if err != nil {
		_, err = fmt.Fprintln(out, string(raw))

		return err //nolint:wrapcheck // passthrough of the command's writer
	}

	_, err = fmt.Fprintln(out, formatFrame(frame))

	return err //nolint:wrapcheck // passthrough of the command's writer
}

func formatFrame(frame chatFrame) string {
	switch {
	case frame.Type == "event" && frame.Event == "ChatMessage":
		var msg chatMessage

		err := json.Unmarshal(frame.Data, &msg)
		if err == nil {
			var text strings.Builder
			for _, part := range msg.Message.Message {
				text.WriteString(part.Text)
			}

			return fmt.Sprintf("%s: %s", msg.UserName, text.String())
		}
	case frame.Type == "reply" && len(frame.Error) > 0 && string(frame.Error) != "null":
		return fmt.Sprintf("[error] %s", frame.Error)
	case frame.Type == "event":
		return fmt.Sprintf("[%s] %s", frame.Event, frame.Data)
	case frame.Type == "reply":
		return fmt.Sprintf("[reply] %s", frame.Data)
	}

	return fmt.Sprintf("[%s] %s", frame.Type, frame.Data)
}
