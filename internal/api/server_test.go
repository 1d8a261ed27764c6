package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	faucetErrors "github.com/faucet-intake/internal/errors"
	"github.com/faucet-intake/internal/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x8db6B632D743aef641146DC943acb64957155388"

// Mock claim service recording its inputs
type mockClaimService struct {
	directFunc func(ctx context.Context, address string, color uint64) (*types.ClaimRequest, error)
	tweetFunc  func(ctx context.Context, postURL string, color uint64) (*types.ClaimRequest, error)

	lastAddress string
	lastURL     string
	lastColor   uint64
}

func (m *mockClaimService) HandleDirect(ctx context.Context, address string, color uint64) (*types.ClaimRequest, error) {
	m.lastAddress, m.lastColor = address, color
	if m.directFunc != nil {
		return m.directFunc(ctx, address, color)
	}
	return &types.ClaimRequest{Address: address, Color: color}, nil
}

func (m *mockClaimService) HandleSocialMention(ctx context.Context, postURL string, color uint64) (*types.ClaimRequest, error) {
	m.lastURL, m.lastColor = postURL, color
	if m.tweetFunc != nil {
		return m.tweetFunc(ctx, postURL, color)
	}
	return &types.ClaimRequest{Address: testAddress, Color: color}, nil
}

func createTestServer(svc ClaimServiceInterface) *Server {
	return NewServer(&ServerConfig{
		Host:         "localhost",
		Port:         "0",
		DefaultColor: 7,
	}, svc)
}

func postJSON(t *testing.T, server *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ServiceError {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(&mockClaimService{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"faucet-intake"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestDirectClaim_Success(t *testing.T) {
	svc := &mockClaimService{}
	server := createTestServer(svc)

	w := postJSON(t, server, "/api/claims", `{"address":"`+testAddress+`","color":"2"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"address":"`+testAddress+`","color":2}`, w.Body.String())
	assert.Equal(t, testAddress, svc.lastAddress)
	assert.Equal(t, uint64(2), svc.lastColor)
}

func TestDirectClaim_ColorParsing(t *testing.T) {
	tests := []struct {
		name  string
		color string
		want  uint64
	}{
		{"absent", ``, 0},
		{"number", `,"color":3`, 3},
		{"numeric string", `,"color":"12"`, 12},
		{"padded string", `,"color":" 4 "`, 4},
		{"null", `,"color":null`, 0},
		{"negative", `,"color":-1`, 0},
		{"fraction", `,"color":1.5`, 0},
		{"garbage string", `,"color":"blue"`, 0},
		{"bool", `,"color":true`, 0},
		{"large integer", `,"color":18446744073709551615`, 18446744073709551615},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockClaimService{}
			server := createTestServer(svc)

			w := postJSON(t, server, "/api/claims", `{"address":"`+testAddress+`"`+tt.color+`}`)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, svc.lastColor)
		})
	}
}

func TestDirectClaim_Rejected(t *testing.T) {
	svc := &mockClaimService{
		directFunc: func(ctx context.Context, address string, color uint64) (*types.ClaimRequest, error) {
			return nil, faucetErrors.NewRateLimitedError(address, "2026-03-02T12:00:00Z")
		},
	}
	server := createTestServer(svc)

	w := postJSON(t, server, "/api/claims", `{"address":"`+testAddress+`"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "RATE_LIMITED", body.Code)
	assert.Equal(t, "not enough time passed since the last claim", body.Message)
	assert.Equal(t, "2026-03-02T12:00:00Z", body.Details["nextClaimAt"])
}

func TestDirectClaim_MalformedBody(t *testing.T) {
	svc := &mockClaimService{}
	server := createTestServer(svc)

	w := postJSON(t, server, "/api/claims", `{"address":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeInvalidInput, decodeError(t, w).Code)
	assert.Empty(t, svc.lastAddress)
}

func TestTweetClaim(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		err       error
		wantCode  int
		wantKind  string
		wantColor uint64
	}{
		{
			name:      "accepted with default color",
			body:      `{"url":"https://twitter.com/u/status/1"}`,
			wantCode:  http.StatusOK,
			wantColor: 7,
		},
		{
			name:      "accepted with color id",
			body:      `{"url":"https://twitter.com/u/status/1","colorId":3}`,
			wantCode:  http.StatusOK,
			wantColor: 3,
		},
		{
			name:      "no mention",
			body:      `{"url":"https://twitter.com/u/status/1"}`,
			err:       faucetErrors.NewNoMentionError("leapdao"),
			wantCode:  http.StatusBadRequest,
			wantKind:  "NO_MENTION",
			wantColor: 7,
		},
		{
			name:      "unparsable id",
			body:      `{"url":"https://twitter.com/u/status/abc"}`,
			err:       faucetErrors.NewUnparsablePostIDError("https://twitter.com/u/status/abc", "abc"),
			wantCode:  http.StatusBadRequest,
			wantKind:  "UNPARSABLE_POST_ID",
			wantColor: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockClaimService{
				tweetFunc: func(ctx context.Context, postURL string, color uint64) (*types.ClaimRequest, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &types.ClaimRequest{Address: testAddress, Color: color}, nil
				},
			}
			server := createTestServer(svc)

			w := postJSON(t, server, "/api/claims/tweet", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantColor, svc.lastColor)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, decodeError(t, w).Code)
			}
		})
	}
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	svc := &mockClaimService{
		directFunc: func(ctx context.Context, address string, color uint64) (*types.ClaimRequest, error) {
			return nil, assert.AnError
		},
	}
	server := createTestServer(svc)

	w := postJSON(t, server, "/api/claims", `{"address":"`+testAddress+`"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ErrCodeInternalError, decodeError(t, w).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	svc := &mockClaimService{
		directFunc: func(ctx context.Context, address string, color uint64) (*types.ClaimRequest, error) {
			panic("boom")
		},
	}
	server := createTestServer(svc)

	w := postJSON(t, server, "/api/claims", `{"address":"`+testAddress+`"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	server := createTestServer(&mockClaimService{})

	req := httptest.NewRequest("OPTIONS", "/api/claims", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagated(t *testing.T) {
	server := createTestServer(&mockClaimService{})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestClientThrottle(t *testing.T) {
	server := NewServer(&ServerConfig{ClientRPS: 1, ClientBurst: 2}, &mockClaimService{})
	body := `{"address":"` + testAddress + `"}`

	send := func(ip string) int {
		req := httptest.NewRequest("POST", "/api/claims", strings.NewReader(body))
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))

	// Other clients have their own bucket
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))

	// Health checks are not throttled
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(server.metrics.throttledTotal))
}

func TestClaimMetrics(t *testing.T) {
	svc := &mockClaimService{
		tweetFunc: func(ctx context.Context, postURL string, color uint64) (*types.ClaimRequest, error) {
			return nil, faucetErrors.NewNoMentionError("leapdao")
		},
	}
	server := createTestServer(svc)

	postJSON(t, server, "/api/claims", `{"address":"`+testAddress+`"}`)
	postJSON(t, server, "/api/claims/tweet", `{"url":"https://twitter.com/u/status/1"}`)
	postJSON(t, server, "/api/claims/tweet", `{"url":"https://twitter.com/u/status/1"}`)

	assert.Equal(t, float64(1), testutil.ToFloat64(server.metrics.claimsTotal.WithLabelValues("direct", "accepted")))
	assert.Equal(t, float64(2), testutil.ToFloat64(server.metrics.claimsTotal.WithLabelValues("tweet", "NO_MENTION")))
	assert.Equal(t, float64(1), testutil.ToFloat64(server.metrics.requestsTotal.WithLabelValues("POST", "/api/claims", "200")))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `faucet_claims_total{outcome="NO_MENTION",path="tweet"} 2`)
}
