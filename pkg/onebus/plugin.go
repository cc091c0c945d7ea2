package onebus

import (
	"github.com/google/uuid"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// PluginInfo identifies a registered plugin.
type PluginInfo struct {
	Name    string
	Author  string
	Version string
	Desc    string
	ID      uuid.UUID
}

// Plugin is a long-running consumer of the event broadcast. The host calls
// Init once, then Load once at boot after connections begin dialing,
// handing the plugin its own tap on the event stream and a read view of
// the bot registry. Load must not block: it starts the plugin's background
// task and returns a channel that closes when the task ends. The host
// supervises the returned channels without restarting failed tasks.
type Plugin interface {
	// Init performs one-time setup. An error is logged, not fatal.
	Init() error
	// Load starts the plugin's background task.
	Load(events <-chan onebot.Event, bots *bot.Registry) <-chan struct{}
	// Info identifies the plugin; ID must be unique across the host.
	Info() PluginInfo
}
