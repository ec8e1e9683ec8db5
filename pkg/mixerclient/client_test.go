package mixerclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdos26/client-node/pkg/mixer"
	"github.com/zapdos26/client-node/pkg/mixerclient"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		client, err := mixerclient.New(nil)
		require.ErrorIs(t, err, mixer.ErrConfigRequired)
		assert.Nil(t, client)
	})

	t.Run("creates client with config", func(t *testing.T) {
		t.Parallel()

		client, err := mixerclient.New(&mixer.Config{})
		require.NoError(t, err)
		assert.Nil(t, client.Provider())
		assert.Equal(t, "https://mixer.com/api/v1", client.URLs().API["v1"])
	})

	t.Run("normalizes endpoints", func(t *testing.T) {
		t.Parallel()

		client, err := mixerclient.New(&mixer.Config{
			APIURL:    "api.example.com/v1/",
			PublicURL: "http://example.com//",
		})
		require.NoError(t, err)

		urls := client.URLs()
		assert.Equal(t, "https://api.example.com/v1", urls.API["v1"])
		assert.Equal(t, "http://example.com", urls.Public)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		_, err := mixerclient.New(&mixer.Config{ClientSecret: "secret"})
		require.ErrorIs(t, err, mixer.ErrInvalidConfig)
	})
}

func TestNewWithToken(t *testing.T) {
	t.Parallel()

	client, err := mixerclient.NewWithToken("test-token")
	require.NoError(t, err)
	require.NotNil(t, client.Provider())
	assert.Equal(t, "Bearer test-token", client.Provider().RequestDefaults().Headers["Authorization"])
}

func TestNewWithOAuth(t *testing.T) {
	t.Parallel()

	client, err := mixerclient.NewWithOAuth("client-id", "", mixer.Tokens{AccessToken: "access"})
	require.NoError(t, err)

	clientID := mixer.ClientIDOf(client.Provider())
	require.NotNil(t, clientID)
	assert.Equal(t, "client-id", *clientID)
}

func TestNewWithRunner(t *testing.T) {
	t.Parallel()

	var got *mixer.RequestOptions

	client := mixerclient.NewWithRunner(mixer.RunnerFunc(func(_ context.Context, req *mixer.RequestOptions) (*mixer.Response, error) {
		got = req

		return &mixer.Response{StatusCode: http.StatusOK}, nil
	}))

	_, err := client.Request(context.Background(), "GET", "users/current", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "https://mixer.com/api/v1/users/current", got.URL)
}

func TestClientIntegration(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/api/v1/channels/shroud":
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			writer.Header().Set("Content-Type", "application/json")
			_, _ = writer.Write([]byte(`{"id":1234,"token":"shroud","online":true}`))
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := mixerclient.New(&mixer.Config{
		APIURL:      server.URL + "/api/v1",
		AccessToken: "test-token",
		RetryMax:    1,
	})
	require.NoError(t, err)

	type channel struct {
		ID     int    `json:"id"`
		Token  string `json:"token"`
		Online bool   `json:"online"`
	}

	res, err := mixer.Do[channel](context.Background(), client, "GET", "channels/shroud", nil, "")
	require.NoError(t, err)
	assert.Equal(t, channel{ID: 1234, Token: "shroud", Online: true}, res.Data)

	_, err = client.Request(context.Background(), "GET", "channels/missing", nil, "")
	require.Error(t, err)
	assert.True(t, mixer.IsNotFound(err))
}
