package twitchid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/legumeabi/twitch-cw-command/internal/errors"
	"github.com/legumeabi/twitch-cw-command/internal/utils"
	"github.com/legumeabi/twitch-cw-command/twitchid"
)

const testClientID = "test-client-id"

var testScopes = []string{"chat:read", "chat:edit"}

func newTestClient(t *testing.T, handler http.Handler) (*twitchid.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := twitchid.New(testClientID, testScopes, twitchid.WithBaseURL(server.URL))
	require.NoError(t, err)
	return client, server
}

func TestNewRequiresClientID(t *testing.T) {
	_, err := twitchid.New("", testScopes)
	require.Error(t, err)
}

func TestStartDeviceAuth(t *testing.T) {
	var gotForm map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/device", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"client_id": r.PostFormValue("client_id"),
			"scopes":    r.PostFormValue("scopes"),
		}
		w.Write([]byte(`{
			"device_code": "dev-code",
			"user_code": "ABCD-EFGH",
			"verification_uri": "https://www.twitch.tv/activate",
			"expires_in": 1800,
			"interval": 5
		}`))
	})
	client, _ := newTestClient(t, mux)

	session, err := client.StartDeviceAuth(context.Background())
	require.NoError(t, err)
	require.Equal(t, "dev-code", session.DeviceCode)
	require.Equal(t, "ABCD-EFGH", session.UserCode)
	require.Equal(t, "https://www.twitch.tv/activate", session.VerificationURI)
	require.Equal(t, 1800, session.ExpiresIn)
	require.Equal(t, 5, session.Interval)

	require.Equal(t, testClientID, gotForm["client_id"])
	require.Equal(t, "chat:read chat:edit", gotForm["scopes"])
}

func TestStartDeviceAuthServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/device", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.StartDeviceAuth(context.Background())
	require.ErrorIs(t, err, apperrors.ErrAuthService)
}

func TestStartDeviceAuthIncompleteSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/device", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"device_code": "dev-code"}`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.StartDeviceAuth(context.Background())
	require.ErrorIs(t, err, apperrors.ErrAuthService)
}

func testSession() *twitchid.DeviceSession {
	return &twitchid.DeviceSession{
		DeviceCode:      "dev-code",
		UserCode:        "ABCD-EFGH",
		VerificationURI: "https://www.twitch.tv/activate",
		ExpiresIn:       1800,
		Interval:        5,
	}
}

func TestPollDeviceAuthPending(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": 400, "message": "authorization_pending"}`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.PollDeviceAuth(context.Background(), testSession())
	require.ErrorIs(t, err, apperrors.ErrAuthorizationPending)
}

func TestPollDeviceAuthPendingViaErrorField(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "authorization_pending"}`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.PollDeviceAuth(context.Background(), testSession())
	require.ErrorIs(t, err, apperrors.ErrAuthorizationPending)
}

func TestPollDeviceAuthDenied(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": 400, "message": "access_denied"}`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.PollDeviceAuth(context.Background(), testSession())
	require.ErrorIs(t, err, apperrors.ErrAuthService)
	require.NotErrorIs(t, err, apperrors.ErrAuthorizationPending)
	require.Contains(t, err.Error(), "access_denied")
}

func TestPollDeviceAuthServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.PollDeviceAuth(context.Background(), testSession())
	require.ErrorIs(t, err, apperrors.ErrAuthService)
}

func TestPollDeviceAuthGranted(t *testing.T) {
	var gotGrantType string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrantType = r.PostFormValue("grant_type")
		require.Equal(t, "dev-code", r.PostFormValue("device_code"))
		w.Write([]byte(`{
			"access_token": "access-123",
			"refresh_token": "refresh-456",
			"scope": ["chat:read", "chat:edit"],
			"token_type": "bearer",
			"expires_in": 14400
		}`))
	})
	client, _ := newTestClient(t, mux)

	tokens, err := client.PollDeviceAuth(context.Background(), testSession())
	require.NoError(t, err)
	require.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", gotGrantType)
	require.Equal(t, "access-123", utils.Value(tokens.AccessToken))
	require.Equal(t, "refresh-456", utils.Value(tokens.RefreshToken))
	require.Equal(t, []string{"chat:read", "chat:edit"}, tokens.Scope)
	require.Equal(t, "bearer", tokens.TokenType)
	require.Equal(t, 14400, tokens.ExpiresIn)
}

func TestRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		require.Equal(t, "refresh-456", r.PostFormValue("refresh_token"))
		w.Write([]byte(`{
			"access_token": "access-789",
			"refresh_token": "refresh-790",
			"scope": ["chat:read", "chat:edit"],
			"token_type": "bearer",
			"expires_in": 14400
		}`))
	})
	client, _ := newTestClient(t, mux)

	tokens, err := client.RefreshToken(context.Background(), "refresh-456")
	require.NoError(t, err)
	require.Equal(t, "access-789", utils.Value(tokens.AccessToken))
	require.Equal(t, "refresh-790", utils.Value(tokens.RefreshToken))
}

func TestRefreshTokenRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": 400, "message": "Invalid refresh token"}`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.RefreshToken(context.Background(), "refresh-456")
	require.ErrorIs(t, err, apperrors.ErrAuthService)
	require.Contains(t, err.Error(), "Invalid refresh token")
}
