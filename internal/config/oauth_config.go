package config

const (
	clientIDVar = "TWITCH_CLIENT_ID"

	// Public client identifier of the registered Twitch application.
	// Device-grant clients carry no secret, so shipping this is fine.
	defaultClientID = "ghcwo4id7lg4bagl4nq20lbveffzyq"
)

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetClientID() string {
	return GetEnv(clientIDVar, defaultClientID)
}

func (OAuth) GetScopes() []string {
	return []string{"chat:read", "chat:edit"}
}
