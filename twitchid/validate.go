package twitchid

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
)

// Validation is the identity provider's introspection result for a live
// access token.
type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	ExpiresIn int      `json:"expires_in"`
}

// Validate checks the access token's liveness against the validation
// endpoint and extracts the identity it belongs to.
//
// A 401 means the token is invalid or expired and returns ErrTokenInvalid;
// that is a signal to refresh, not a terminal failure. Any other non-success
// status or transport error is surfaced as-is and must not trigger a
// refresh.
func (c *Client) Validate(ctx context.Context, accessToken string) (*Validation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.validateURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Validate] new request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Validate] do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apperrors.ErrTokenInvalid
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("[Client.Validate] status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Validate] read body")
	}

	var validation Validation
	if err := json.Unmarshal(body, &validation); err != nil {
		return nil, errors.Wrap(err, "[Client.Validate] decode response")
	}
	return &validation, nil
}
