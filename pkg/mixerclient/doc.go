// Package mixerclient provides the primary entry point for constructing a
// Mixer API client that implements the mixer.Client interface.
//
// It layers configuration, the HTTP runner and authentication on top of the
// types defined in the mixer package. Most applications import mixerclient
// to build a client, then use the returned mixer.Client to issue requests
// and open chat sockets.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/zapdos26/client-node/pkg/mixer"
//	  "github.com/zapdos26/client-node/pkg/mixerclient"
//	)
//
//	type channel struct {
//	  ID     int    `json:"id"`
//	  Token  string `json:"token"`
//	  Online bool   `json:"online"`
//	}
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Anonymous access to public endpoints.
//	  cli, err := mixerclient.New(&mixer.Config{})
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with an OAuth client and tokens you already have. A 401 triggers
//	  // a refresh and the request is retried once.
//	  cli, err = mixerclient.New(&mixer.Config{
//	    ClientID:     "client-id",
//	    AccessToken:  "access",
//	    RefreshToken: "refresh",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  res, err := mixer.Do[channel](ctx, cli, "GET", "channels/shroud", nil, "")
//	  if err != nil { log.Fatal(err) }
//	  log.Println(res.Data.ID, res.Data.Online)
//
//	  // API version 2 lives under its own base URL.
//	  _, err = cli.Request(ctx, "GET", "chats/1234", nil, "v2")
//	}
//
// # Chat
//
// CreateChatSocket returns an unconnected chat socket. The OAuth client id,
// when the installed provider has one, is sent with the handshake.
//
//	sock := cli.CreateChatSocket(nil, []string{"wss://chat.mixer.com"}, chatsocket.Options{})
//	err = sock.Connect(ctx)
//
// # Helpers
//
// The package also provides convenience constructors NewWithEndpoint,
// NewWithToken, NewWithOAuth and NewWithRunner.
package mixerclient
