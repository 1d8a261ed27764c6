package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/faucet-intake/internal/circuitbreaker"
	"github.com/faucet-intake/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTweet = "Requesting faucet funds into 0x8db6B632D743aef641146DC943acb64957155388 on the #Rinkeby #Ethereum @leapdao test network."

func newTestClient(t *testing.T, handler http.HandlerFunc) *TwitterClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewTwitterClient(&config.TwitterConfig{
		BaseURL:     server.URL + "/",
		BearerToken: "test-token",
		Timeout:     2 * time.Second,
	})
}

func TestTwitterClient_GetPost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/1008271083080994817", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"1008271083080994817","text":"` + validTweet + `"}}`))
	})

	post, err := client.GetPost(context.Background(), "1008271083080994817")
	require.NoError(t, err)
	assert.Equal(t, "1008271083080994817", post.ID)
	assert.Equal(t, validTweet, post.Text)
}

func TestTwitterClient_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http 404", http.StatusNotFound, `{"title":"Not Found"}`},
		{"errors array", http.StatusOK, `{"errors":[{"title":"Not Found Error","detail":"Could not find tweet with id: [1].","type":"https://api.twitter.com/2/problems/resource-not-found"}]}`},
		{"empty body", http.StatusOK, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetPost(context.Background(), "1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPostNotFound))
		})
	}
}

func TestTwitterClient_ServerErrorKeepsMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"title":"Unauthorized"}`))
	})

	_, err := client.GetPost(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestTwitterClient_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.GetPost(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestTwitterClient_BreakerOpensOnRepeatedFailures(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, err := client.GetPost(context.Background(), "1")
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, client.BreakerState())

	_, err := client.GetPost(context.Background(), "1")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 5, calls)
}

func TestTwitterClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 10; i++ {
		_, _ = client.GetPost(context.Background(), "1")
	}
	assert.Equal(t, circuitbreaker.StateClosed, client.BreakerState())
}

func TestTwitterClient_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetPost(ctx, "1")
	assert.Error(t, err)
}
