package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testClient(url string) *Client {
	return &Client{
		BaseURL:    url,
		Endpoint:   "/api/auth",
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth", r.URL.Path)
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ivanov", req["username"])
		assert.Equal(t, "secret", req["password"])
		json.NewEncoder(w).Encode(map[string]string{"token": "token-123"})
	}))
	defer server.Close()

	token, err := testClient(server.URL).Authenticate(context.Background(), "ivanov", "secret")
	assert.NoError(t, err)
	assert.Equal(t, "token-123", token)
}

func TestAuthenticateInvalidCredentialsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Authenticate(context.Background(), "ivanov", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAuthenticateRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "token-456"})
	}))
	defer server.Close()

	token, err := testClient(server.URL).Authenticate(context.Background(), "ivanov", "secret")
	assert.NoError(t, err)
	assert.Equal(t, "token-456", token)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAuthenticateGivesUpAfterThreeTries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Authenticate(context.Background(), "ivanov", "secret")
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAuthenticateEmptyTokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": ""})
	}))
	defer server.Close()

	_, err := testClient(server.URL).Authenticate(context.Background(), "ivanov", "secret")
	assert.Error(t, err)
}
