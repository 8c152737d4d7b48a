package identity

import "time"

// User represents one human identity. A user exists only while at least one
// platform handle is linked; the merge coordinator is the only writer that
// moves handles between rows.
type User struct {
	ID             int64
	TelegramHandle string
	DiscordHandle  string
	CreatedAt      time.Time
}

// Handle returns the linked handle for the given platform, empty if none.
func (u User) Handle(p Platform) string {
	if p == PlatformTelegram {
		return u.TelegramHandle
	}
	return u.DiscordHandle
}
