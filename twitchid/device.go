package twitchid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
)

// deviceCodeGrant is the grant_type for the device authorization flow
// (RFC 8628).
const deviceCodeGrant = "urn:ietf:params:oauth:grant-type:device_code"

// DeviceSession is the ephemeral state of one device authorization attempt.
// It lives in memory for the duration of polling and is never persisted; a
// crash mid-flow restarts authorization from scratch.
type DeviceSession struct {
	// DeviceCode is the opaque handle presented when polling.
	DeviceCode string `json:"device_code"`

	// UserCode is the short code the user types in at the verification URI.
	UserCode string `json:"user_code"`

	// VerificationURI is the URL the user must visit out-of-band.
	VerificationURI string `json:"verification_uri"`

	// ExpiresIn is the total session lifetime in seconds. Polling past it
	// must stop.
	ExpiresIn int `json:"expires_in"`

	// Interval is the minimum spacing between poll attempts in seconds.
	Interval int `json:"interval"`
}

// StartDeviceAuth requests a device code for the configured client identity
// and scope set. A non-success status fails the whole flow attempt; the
// caller must not proceed to polling.
func (c *Client) StartDeviceAuth(ctx context.Context) (*DeviceSession, error) {
	form := url.Values{
		"client_id": {c.clientID},
		"scopes":    {strings.Join(c.scopes, " ")},
	}

	status, body, err := c.postForm(ctx, c.deviceURL, form)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrAuthService, err.Error())
	}
	if status != http.StatusOK {
		return nil, errors.Wrapf(apperrors.ErrAuthService, "[StartDeviceAuth] status %d", status)
	}

	var session DeviceSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, errors.Wrap(apperrors.ErrAuthService, "[StartDeviceAuth] decode response")
	}
	if session.DeviceCode == "" || session.UserCode == "" || session.VerificationURI == "" {
		return nil, errors.Wrap(apperrors.ErrAuthService, "[StartDeviceAuth] incomplete session")
	}
	return &session, nil
}

// PollDeviceAuth performs one poll against the token endpoint for the given
// session. Outcomes:
//
//   - authorization still pending: ErrAuthorizationPending (expected, keep
//     polling at the session interval)
//   - granted: the token response, without a resolved login
//   - anything else (denied, expired session, network failure): a terminal
//     ErrAuthService; polling must stop
//
// Only the authorization_pending payload on a 400 is non-fatal. Every other
// 400 body and every other error status is a hard failure.
func (c *Client) PollDeviceAuth(ctx context.Context, session *DeviceSession) (*TokenResponse, error) {
	form := url.Values{
		"client_id":   {c.clientID},
		"device_code": {session.DeviceCode},
		"scopes":      {strings.Join(c.scopes, " ")},
		"grant_type":  {deviceCodeGrant},
	}

	status, body, err := c.postForm(ctx, c.tokenURL, form)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrAuthService, err.Error())
	}

	if status == http.StatusBadRequest {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.pending() {
			return nil, apperrors.ErrAuthorizationPending
		}
		return nil, errors.Wrapf(apperrors.ErrAuthService, "[PollDeviceAuth] %s", errResp.reason())
	}
	if status != http.StatusOK {
		return nil, errors.Wrapf(apperrors.ErrAuthService, "[PollDeviceAuth] status %d", status)
	}

	var tokens TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, errors.Wrap(apperrors.ErrAuthService, "[PollDeviceAuth] decode response")
	}
	return &tokens, nil
}
