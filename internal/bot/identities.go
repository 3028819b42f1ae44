package bot

import (
	"fmt"
	"strings"
)

// idPrefix marks synthetic user ids that belong to bots.
const idPrefix = "bot-"

type BotIdentity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

var displayNames = []string{"Bot Alicia", "Bot Bruno", "Bot Carmen", "Bot Diego"}

// GetBotIdentity returns an identity for a bot by index (mod name pool size).
func GetBotIdentity(index int) BotIdentity {
	return BotIdentity{
		UserID:      fmt.Sprintf("%s%d", idPrefix, index),
		DisplayName: displayNames[index%len(displayNames)],
	}
}

// IsBot reports whether the given user ID belongs to a bot.
func IsBot(userID string) bool {
	return strings.HasPrefix(userID, idPrefix)
}
