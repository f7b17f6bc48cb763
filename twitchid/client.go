// Package twitchid is a client for the Twitch identity provider: device
// authorization, device-code polling, token refresh and token validation.
package twitchid

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/endpoints"
)

const (
	deviceURL   = "https://id.twitch.tv/oauth2/device"
	validateURL = "https://id.twitch.tv/oauth2/validate"

	defaultTimeout = 10 * time.Second
)

// Client calls the fixed Twitch OAuth2 endpoints on behalf of one public
// client identity.
type Client struct {
	clientID   string
	scopes     []string
	httpClient *http.Client

	deviceURL   string
	tokenURL    string
	validateURL string
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for all calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL points every endpoint at base instead of id.twitch.tv
// (primarily for testing).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSuffix(base, "/")
		c.deviceURL = base + "/oauth2/device"
		c.tokenURL = base + "/oauth2/token"
		c.validateURL = base + "/oauth2/validate"
	}
}

// New creates a Client for the given public client ID and scope set.
func New(clientID string, scopes []string, options ...Option) (*Client, error) {
	if clientID == "" {
		return nil, errors.New("[twitchid.New] clientID is required")
	}
	client := &Client{
		clientID:    clientID,
		scopes:      scopes,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		deviceURL:   deviceURL,
		tokenURL:    endpoints.Twitch.TokenURL,
		validateURL: validateURL,
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// postForm issues a form-urlencoded POST and returns the response body and
// status code. Transport-level failures are wrapped; HTTP error statuses are
// the caller's business.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, errors.Wrap(err, "[Client.postForm] new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "[Client.postForm] do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "[Client.postForm] read body")
	}
	return resp.StatusCode, body, nil
}
