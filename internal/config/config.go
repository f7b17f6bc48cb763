package config

type Config interface {
	EnvConfig
	ChatConfig
	OAuthConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type ChatConfig interface {
	GetChannel() string
	GetCooldownSeconds() int
	GetCWServiceURL() string
}

type OAuthConfig interface {
	GetClientID() string
	GetScopes() []string
}

type mainConfig struct {
	EnvVars
	Chat
	OAuth
}

func New() Config {
	return mainConfig{}
}
