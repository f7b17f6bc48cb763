package twitchid_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
)

func TestValidate(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/validate", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{
			"client_id": "test-client-id",
			"login": "streamer",
			"scopes": ["chat:read", "chat:edit"],
			"user_id": "12345",
			"expires_in": 5000
		}`))
	})
	client, _ := newTestClient(t, mux)

	validation, err := client.Validate(context.Background(), "access-123")
	require.NoError(t, err)
	require.Equal(t, "Bearer access-123", gotAuth)
	require.Equal(t, "streamer", validation.Login)
	require.Equal(t, "12345", validation.UserID)
	require.Equal(t, 5000, validation.ExpiresIn)
}

func TestValidateUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/validate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status": 401, "message": "invalid access token"}`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.Validate(context.Background(), "stale-token")
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestValidateServerErrorIsNotInvalid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/validate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.Validate(context.Background(), "access-123")
	require.Error(t, err)
	require.NotErrorIs(t, err, apperrors.ErrTokenInvalid)
}
