package matcher

import (
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// IsSuperuser admits only senders listed in the bot's superuser config.
func IsSuperuser() Rule[onebot.MessageEvent] {
	return func(e *onebot.MessageEvent, cfg config.BotConfig) bool {
		return cfg.IsSuperuser(e.UserID.String())
	}
}

// IsPrivate admits only private messages.
func IsPrivate() Rule[onebot.MessageEvent] {
	return func(e *onebot.MessageEvent, cfg config.BotConfig) bool {
		return e.IsPrivate()
	}
}

// IsGroup admits only group messages.
func IsGroup() Rule[onebot.MessageEvent] {
	return func(e *onebot.MessageEvent, cfg config.BotConfig) bool {
		return e.IsGroup()
	}
}

// InGroup admits messages from one specific group.
func InGroup(groupID string) Rule[onebot.MessageEvent] {
	return func(e *onebot.MessageEvent, cfg config.BotConfig) bool {
		return e.GroupID.String() == groupID
	}
}

// FromUser admits messages from one specific sender.
func FromUser(userID string) Rule[onebot.MessageEvent] {
	return func(e *onebot.MessageEvent, cfg config.BotConfig) bool {
		return e.UserID.String() == userID
	}
}
