// Package auth talks to the upstream authentication API that validates
// directory credentials and issues session tokens.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"balancebot/m/v2/app/config"

	"github.com/sirupsen/logrus"
	backoff "gopkg.in/cenkalti/backoff.v1"
)

// ErrInvalidCredentials means the upstream rejected the login/password pair.
// Not retried, the user has to type the password again.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Client struct {
	BaseURL    string
	Endpoint   string
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL:  config.CONFIG.AuthAPIURL,
		Endpoint: config.CONFIG.AuthEndpoint,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks that the upstream API answers at all. Any HTTP response
// counts, only transport failures mean unavailable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return fmt.Errorf("Ping: failed to build request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ping: auth API unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges credentials for a session token. Transient upstream
// failures (network, 5xx) are retried with exponential backoff up to 3 tries;
// a credential rejection aborts immediately.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	var token string
	operation := func() error {
		var err error
		token, err = c.authenticateOnce(ctx, username, password)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = time.Minute
	// WithMaxTries counts retries after the first attempt: 2 retries = 3 tries
	err := backoff.Retry(operation, backoff.WithMaxTries(b, 2))
	if err != nil {
		return "", err
	}
	return token, nil
}

func (c *Client) authenticateOnce(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(authRequest{Username: username, Password: password})
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("authenticateOnce: failed to marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("authenticateOnce: failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logrus.WithError(err).Warn("auth request failed, will retry")
		return "", fmt.Errorf("authenticateOnce: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", backoff.Permanent(ErrInvalidCredentials)
	case resp.StatusCode != http.StatusOK:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logrus.WithField("status", resp.StatusCode).Warn("auth API error, will retry")
		return "", fmt.Errorf("authenticateOnce: unexpected status %d: %s", resp.StatusCode, payload)
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("authenticateOnce: failed to decode response: %w", err))
	}
	if parsed.Token == "" {
		return "", backoff.Permanent(errors.New("authenticateOnce: upstream returned empty token"))
	}
	return parsed.Token, nil
}
