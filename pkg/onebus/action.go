package onebus

import (
	"context"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/logger"
)

// handleActions is the single consumer of the control plane. Actions are
// applied to the registry strictly in arrival order, one at a time, for
// the whole process lifetime.
func (nb *Onebus) handleActions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-nb.actions:
			logger.DebugCF("action", "received", map[string]interface{}{
				"kind": a.Kind.String(), "bot_id": a.BotID,
			})
			nb.apply(a)
		}
	}
}

func (nb *Onebus) apply(a bot.Action) {
	switch a.Kind {
	case bot.ActionAddBot:
		b := bot.New(a.BotID, nb.Config.BotConfig(a.BotID), a.API, a.Pending)
		nb.bots[a.BotID] = b
		nb.republish()
		nb.events.Publish(&bot.LifecycleEvent{Kind: bot.Connected, Bot: b})
		logger.InfoCF("action", "bot added", map[string]interface{}{"bot_id": a.BotID})

	case bot.ActionRemoveBot:
		b, ok := nb.bots[a.BotID]
		if !ok {
			logger.WarnCF("action", "removing unknown bot", map[string]interface{}{"bot_id": a.BotID})
			return
		}
		// A removal from a superseded connection refers to an earlier
		// registration; the live replacement must stay.
		if a.Pending != nil && b.Pending() != a.Pending {
			logger.WarnCF("action", "ignoring stale removal", map[string]interface{}{"bot_id": a.BotID})
			return
		}
		delete(nb.bots, a.BotID)
		nb.republish()
		nb.events.Publish(&bot.LifecycleEvent{Kind: bot.Disconnected, Bot: b})
		logger.InfoCF("action", "bot removed", map[string]interface{}{"bot_id": a.BotID})

	case bot.ActionChangeBotConfig:
		b, ok := nb.bots[a.BotID]
		if !ok {
			logger.WarnCF("action", "config change for unknown bot", map[string]interface{}{"bot_id": a.BotID})
			return
		}
		// In-place swap: no republish, no lifecycle event.
		b.SetConfig(a.Config)
		logger.DebugCF("action", "bot config changed", map[string]interface{}{"bot_id": a.BotID})
	}
}

// republish installs a fresh immutable snapshot of the working map.
func (nb *Onebus) republish() {
	snap := make(map[string]*bot.Bot, len(nb.bots))
	for id, b := range nb.bots {
		snap[id] = b
	}
	nb.registry.Publish(snap)
}
