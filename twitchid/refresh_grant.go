package twitchid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
)

const refreshTokenGrant = "refresh_token"

// RefreshToken exchanges a refresh token for a new token pair. It performs
// the bare HTTP exchange only; the refresh manager owns the busy
// notifications, minimum-delay floor and fail-closed storage invalidation
// that sit around it.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"grant_type":    {refreshTokenGrant},
		"refresh_token": {refreshToken},
	}

	status, body, err := c.postForm(ctx, c.tokenURL, form)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrAuthService, err.Error())
	}
	if status != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, errors.Wrapf(apperrors.ErrAuthService, "[RefreshToken] status %d %s", status, errResp.reason())
	}

	var tokens TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, errors.Wrap(apperrors.ErrAuthService, "[RefreshToken] decode response")
	}
	return &tokens, nil
}
