package discordapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(&Config{BaseURL: server.URL + "/api/"})
	require.NoError(t, err)
	return client
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "bot@example.com", creds["email"])
		assert.Equal(t, "hunter2", creds["password"])

		w.Write([]byte(`{"token":"abc"}`))
	})

	out, err := client.Login(context.Background(), &LoginInput{Email: "bot@example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Token)
}

func TestLoginThrottled(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"You are being rate limited.","retry_after":0.5,"global":false}`))
	})

	_, err := client.Login(context.Background(), &LoginInput{Email: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, IsThrottled(err))
	assert.False(t, IsForbidden(err))
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))

	var rateErr *discordgo.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "You are being rate limited.", rateErr.Message)
	assert.Equal(t, 500*time.Millisecond, rateErr.RetryAfter)

	// the session must not sleep and retry on its own
	assert.Equal(t, int32(1), calls.Load())
}

func TestBadGatewayIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetGateway(context.Background(), &GetGatewayInput{Token: "abc"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoginMissingToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.Login(context.Background(), &LoginInput{Email: "a", Password: "b"})
	assert.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
}

func TestGetGateway(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/gateway", r.URL.Path)
		assert.Equal(t, "abc", r.Header.Get("Authorization"))

		w.Write([]byte(`{"url":"wss://gateway.example"}`))
	})

	out, err := client.GetGateway(context.Background(), &GetGatewayInput{Token: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "wss://gateway.example", out.URL)
}

func TestCreateMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/channels/c1/messages", r.URL.Path)
		assert.Equal(t, "abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body map[string]string
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "hello", body["content"])

		w.Write([]byte(`{"id":"m1"}`))
	})

	err := client.CreateMessage(context.Background(), &CreateMessageInput{Token: "abc", ChannelID: "c1", Content: "hello"})
	assert.NoError(t, err)
}

func TestCreateMessageForbidden(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := client.CreateMessage(context.Background(), &CreateMessageInput{Token: "abc", ChannelID: "c1", Content: "hello"})
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
}

func TestCustomHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "applebot-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"url":"wss://gateway.example"}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(&Config{
		BaseURL:    server.URL + "/api",
		HTTPClient: server.Client(),
		UserAgent:  "applebot-test",
	})
	require.NoError(t, err)

	out, err := client.GetGateway(context.Background(), &GetGatewayInput{Token: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "wss://gateway.example", out.URL)
}

func TestRequestHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"abc"}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Login(ctx, &LoginInput{Email: "a", Password: "b"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInputValidation(t *testing.T) {
	client, err := New(&Config{})
	require.NoError(t, err)

	_, err = client.Login(context.Background(), &LoginInput{})
	assert.Error(t, err)

	_, err = client.GetGateway(context.Background(), nil)
	assert.Error(t, err)

	assert.Error(t, client.CreateMessage(context.Background(), &CreateMessageInput{Token: "abc"}))

	_, err = New(nil)
	assert.Error(t, err)
}
