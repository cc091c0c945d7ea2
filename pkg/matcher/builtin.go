package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/grvsrs/onebus/pkg/onebot"
)

// Echo builds the builtin echo matcher: addressed "/echo <text>" commands
// are repeated back to wherever they came from.
func Echo() *Matcher[onebot.MessageEvent] {
	return OnHandle("echo", func(ctx context.Context, e *onebot.MessageEvent, m *Matcher[onebot.MessageEvent]) {
		m.SendText(ctx, e.PlainText())
	}).
		AddPreMatcher(ToMe()).
		AddPreMatcher(CommandStart()).
		AddPreMatcher(OnCommand("echo"))
}

// BotStatus builds the builtin status matcher: superusers asking "/status"
// get a connection report assembled from response-expecting calls.
func BotStatus() *Matcher[onebot.MessageEvent] {
	return OnHandle("bot_status", func(ctx context.Context, e *onebot.MessageEvent, m *Matcher[onebot.MessageEvent]) {
		m.SendText(ctx, buildStatus(ctx, m))
	}).
		AddPreMatcher(CommandStart()).
		AddPreMatcher(OnCommand("status")).
		AddRule(IsSuperuser())
}

func buildStatus(ctx context.Context, m *Matcher[onebot.MessageEvent]) string {
	b := m.Bot()

	friends := 0
	if list, err := b.GetFriendList(ctx); err == nil {
		friends = len(list)
	}
	groups := 0
	if list, err := b.GetGroupList(ctx); err == nil {
		groups = len(list)
	}
	connected := time.Since(time.Unix(b.ConnectTime, 0)).Round(time.Second)

	return fmt.Sprintf("bot: %s\nconnected: %s\nfriends: %d\ngroups: %d",
		b.ID, connected, friends, groups)
}
