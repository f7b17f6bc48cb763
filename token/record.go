package token

import "time"

// Record is the durable credential set for the authenticated broadcaster.
// A record is either fully present in storage or absent; the store never
// yields a partially populated one.
type Record struct {
	// AccessToken is the bearer credential used for chat and API calls.
	AccessToken string `json:"access_token"`

	// RefreshToken mints a new record once the access token expires or is
	// rejected by the identity provider.
	RefreshToken string `json:"refresh_token"`

	// Scope holds the granted permission scopes in the order the provider
	// returned them.
	Scope []string `json:"scope"`

	// TokenType is the credential scheme, expected to be "bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the validity duration in seconds as of issuance, not an
	// absolute timestamp.
	ExpiresIn int `json:"expires_in"`

	// StoredAt is the wall-clock time the record was persisted. Expiry is
	// always computed against this, not the provider's issue time.
	StoredAt time.Time `json:"stored_at"`

	// Login is the broadcaster identity the token belongs to. Required
	// before a chat connection can be established.
	Login string `json:"login"`
}

// ExpiresAt returns the absolute expiry instant, StoredAt + ExpiresIn.
func (r *Record) ExpiresAt() time.Time {
	return r.StoredAt.Add(time.Duration(r.ExpiresIn) * time.Second)
}

// Expired reports whether the access token has expired as of now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt())
}

// Complete reports whether every required field of the record is populated
// and internally consistent.
func (r *Record) Complete() bool {
	return r.AccessToken != "" &&
		r.RefreshToken != "" &&
		r.TokenType != "" &&
		r.Scope != nil &&
		r.ExpiresIn >= 0
}
