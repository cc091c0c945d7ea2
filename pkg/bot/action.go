package bot

import (
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// ActionKind discriminates the control-plane commands.
type ActionKind int

const (
	// ActionAddBot inserts (or replaces) a registry entry.
	ActionAddBot ActionKind = iota
	// ActionRemoveBot deletes a registry entry.
	ActionRemoveBot
	// ActionChangeBotConfig swaps a bot's runtime config in place.
	ActionChangeBotConfig
)

func (k ActionKind) String() string {
	switch k {
	case ActionAddBot:
		return "add_bot"
	case ActionRemoveBot:
		return "remove_bot"
	case ActionChangeBotConfig:
		return "change_bot_config"
	}
	return "unknown"
}

// Action is an immutable registry-mutating command. Actions are submitted
// by connections (and administrative plugins) and consumed exactly once,
// strictly in arrival order, by the host's single action loop.
type Action struct {
	Kind  ActionKind
	BotID string

	// AddBot payload: the connection's outbound queue and correlation
	// table, bound to the just-learned identity. For RemoveBot, Pending
	// identifies which registration the removal belongs to.
	API     chan<- onebot.Payload
	Pending *Pending

	// ChangeBotConfig payload.
	Config config.BotConfig
}

// AddBot builds the action registering a freshly handshaken connection.
func AddBot(botID string, api chan<- onebot.Payload, pending *Pending) Action {
	return Action{Kind: ActionAddBot, BotID: botID, API: api, Pending: pending}
}

// RemoveBot builds the action deleting a dead or dismissed identity.
// pending names the registration being torn down: when a peer reconnects
// under the same identity before its old socket dies, the old handler's
// removal must not deregister the live replacement. A nil pending removes
// unconditionally (operator-forced removal).
func RemoveBot(botID string, pending *Pending) Action {
	return Action{Kind: ActionRemoveBot, BotID: botID, Pending: pending}
}

// ChangeBotConfig builds the action swapping a bot's runtime config.
func ChangeBotConfig(botID string, cfg config.BotConfig) Action {
	return Action{Kind: ActionChangeBotConfig, BotID: botID, Config: cfg}
}
