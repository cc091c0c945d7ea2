// Package bottle implements a drifting-bottle game: "/throw <text>" files a
// message away and "/pick" fishes a random one back out, possibly on a
// different bot or in a different chat than it was thrown from.
package bottle

import (
	"context"
	"fmt"
	"strings"

	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/matcher"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// DefaultDir is where bottles land when no directory is configured.
const DefaultDir = "bottles"

// Matchers returns the throw/pick pair backed by one shared store. The store
// is loaded eagerly so the first pick can already see bottles from a
// previous run.
func Matchers(dir string) []*matcher.Matcher[onebot.MessageEvent] {
	if dir == "" {
		dir = DefaultDir
	}
	store := NewStore(dir)
	if err := store.Load(); err != nil {
		logger.WarnCF("bottle", "load failed", map[string]interface{}{"error": err.Error()})
	}
	return []*matcher.Matcher[onebot.MessageEvent]{
		throwMatcher(store),
		pickMatcher(store),
	}
}

func throwMatcher(store *Store) *matcher.Matcher[onebot.MessageEvent] {
	return matcher.OnHandle("bottle_throw", func(ctx context.Context, e *onebot.MessageEvent, m *matcher.Matcher[onebot.MessageEvent]) {
		text := strings.TrimSpace(e.PlainText())
		if text == "" {
			m.SendText(ctx, "an empty bottle sinks; give it a message")
			return
		}
		if _, err := store.Throw(e.UserID.String(), e.SelfID(), text); err != nil {
			logger.ErrorCF("bottle", "throw failed", map[string]interface{}{"error": err.Error()})
			m.SendText(ctx, "the bottle slipped out of your hands")
			return
		}
		m.SendText(ctx, fmt.Sprintf("bottle thrown, %d adrift", store.Count()))
	}).
		AddPreMatcher(matcher.CommandStart()).
		AddPreMatcher(matcher.OnCommand("throw"))
}

func pickMatcher(store *Store) *matcher.Matcher[onebot.MessageEvent] {
	return matcher.OnHandle("bottle_pick", func(ctx context.Context, e *onebot.MessageEvent, m *matcher.Matcher[onebot.MessageEvent]) {
		b := store.Pick()
		if b == nil {
			m.SendText(ctx, "the sea is empty")
			return
		}
		m.SendText(ctx, fmt.Sprintf("a bottle from %s (%s):\n%s",
			b.Sender, b.ThrewAt.Format("2006-01-02"), b.Text))
	}).
		AddPreMatcher(matcher.CommandStart()).
		AddPreMatcher(matcher.OnCommand("pick"))
}
