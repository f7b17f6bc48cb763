package config

import "strconv"

const (
	channelVar      = "TWITCH_CHANNEL"
	cooldownVar     = "COOLDOWN_SECONDS"
	cwServiceURLVar = "CW_SERVICE_URL"

	defaultCooldownSeconds = 60
	defaultCWServiceURL    = "https://heroic-deploy-kna60f.ampt.app/cw-details"
)

type Chat struct{}

var _ ChatConfig = Chat{}

func (Chat) GetChannel() string {
	return GetEnv(channelVar, "")
}

// GetCooldownSeconds returns the minimum interval between answered !cw
// commands. Non-numeric or non-positive values fall back to the default.
func (Chat) GetCooldownSeconds() int {
	seconds, err := strconv.Atoi(GetEnv(cooldownVar, ""))
	if err != nil || seconds <= 0 {
		return defaultCooldownSeconds
	}
	return seconds
}

func (Chat) GetCWServiceURL() string {
	return GetEnv(cwServiceURLVar, defaultCWServiceURL)
}
