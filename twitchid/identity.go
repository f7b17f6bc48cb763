package twitchid

import (
	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Identity is the login extracted from a token's own payload segment.
type Identity struct {
	Login string
}

// DecodeIdentity extracts the login claim from the access token's
// self-contained payload without a network round trip. It is a best-effort
// fallback for when a cached validation result is acceptable: malformed
// input of any kind yields nil rather than an error.
func DecodeIdentity(accessToken string) *Identity {
	unverified, _, err := jwtlib.NewParser().ParseUnverified(accessToken, jwtlib.MapClaims{})
	if err != nil {
		return nil
	}

	claims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil
	}

	login, _ := claims["preferred_username"].(string)
	if login == "" {
		login, _ = claims["sub"].(string)
	}
	if login == "" {
		return nil
	}
	return &Identity{Login: login}
}
