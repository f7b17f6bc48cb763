package twitchid_test

import (
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/legumeabi/twitch-cw-command/twitchid"
)

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestDecodeIdentityPreferredUsername(t *testing.T) {
	accessToken := signedToken(t, jwtlib.MapClaims{
		"preferred_username": "streamer",
		"sub":                "12345",
	})

	identity := twitchid.DecodeIdentity(accessToken)
	require.NotNil(t, identity)
	require.Equal(t, "streamer", identity.Login)
}

func TestDecodeIdentitySubjectFallback(t *testing.T) {
	accessToken := signedToken(t, jwtlib.MapClaims{"sub": "12345"})

	identity := twitchid.DecodeIdentity(accessToken)
	require.NotNil(t, identity)
	require.Equal(t, "12345", identity.Login)
}

func TestDecodeIdentityMalformedInput(t *testing.T) {
	for _, accessToken := range []string{
		"",
		"not-a-jwt",
		"only.two",
		"!!!.###.$$$",
	} {
		require.Nil(t, twitchid.DecodeIdentity(accessToken), "input %q", accessToken)
	}
}

func TestDecodeIdentityNoUsableClaim(t *testing.T) {
	accessToken := signedToken(t, jwtlib.MapClaims{"aud": "something"})
	require.Nil(t, twitchid.DecodeIdentity(accessToken))
}
