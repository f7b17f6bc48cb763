package twitchid

import (
	"github.com/legumeabi/twitch-cw-command/internal/utils"
	"github.com/legumeabi/twitch-cw-command/token"
)

// TokenResponse represents the response from a Twitch OAuth2 token request.
// This is the standard token endpoint shape defined in RFC 6749, returned
// for both the device-code and refresh-token grants.
type TokenResponse struct {
	// AccessToken is the bearer credential for chat and API calls.
	// Usage: "Authorization: Bearer <access_token>"
	AccessToken *string `json:"access_token,omitempty"`

	// RefreshToken is an opaque credential used to obtain a new token pair.
	// Lifespan: long-lived; rotates on each refresh.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope lists the granted permissions. Twitch returns these as a JSON
	// array, not the space-separated string other providers use.
	Scope []string `json:"scope,omitempty"`

	// TokenType indicates how to use the access token (always "bearer").
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds as of issuance.
	ExpiresIn int `json:"expires_in,omitempty"`
}

// Record converts the response into a storable token record for the given
// identity. StoredAt is left zero; the token store stamps it on save.
func (tr *TokenResponse) Record(login string) *token.Record {
	return &token.Record{
		AccessToken:  utils.Value(tr.AccessToken),
		RefreshToken: utils.Value(tr.RefreshToken),
		Scope:        tr.Scope,
		TokenType:    tr.TokenType,
		ExpiresIn:    tr.ExpiresIn,
		Login:        login,
	}
}

// errorResponse is the body Twitch returns on token endpoint failures.
// During device polling the not-yet-authorized condition arrives as an HTTP
// 400 whose message is "authorization_pending"; some API revisions use the
// error field instead, so both are checked.
type errorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
}

const pendingMessage = "authorization_pending"

func (er *errorResponse) pending() bool {
	return er.Message == pendingMessage || er.Error == pendingMessage
}

func (er *errorResponse) reason() string {
	if er.Message != "" {
		return er.Message
	}
	return er.Error
}
