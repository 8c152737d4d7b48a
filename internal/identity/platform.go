package identity

import "fmt"

// Platform identifies a messaging surface users interact through.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformDiscord  Platform = "discord"
)

// Other returns the opposite platform, used for cross-platform fallback.
func (p Platform) Other() Platform {
	if p == PlatformTelegram {
		return PlatformDiscord
	}
	return PlatformTelegram
}

// Short returns the two-letter alias accepted in target expressions.
func (p Platform) Short() string {
	if p == PlatformTelegram {
		return "tg"
	}
	return "dc"
}

// ParsePlatform accepts a full platform name or its two-letter alias.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "telegram", "tg":
		return PlatformTelegram, nil
	case "discord", "dc":
		return PlatformDiscord, nil
	default:
		return "", fmt.Errorf("%w: unknown platform %q", ErrInvalidTarget, s)
	}
}
