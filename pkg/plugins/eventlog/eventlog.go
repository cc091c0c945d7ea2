// Package eventlog is the builtin traffic logger: a plugin that tails the
// event broadcast and logs message and heartbeat activity.
package eventlog

import (
	"github.com/google/uuid"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
	"github.com/grvsrs/onebus/pkg/onebus"
)

var pluginID = uuid.MustParse("c0a8c3f1-7b42-49d0-90fb-6a1d1a35e0a4")

// Logger logs inbound traffic.
type Logger struct{}

// Init implements onebus.Plugin.
func (Logger) Init() error { return nil }

// Info implements onebus.Plugin.
func (Logger) Info() onebus.PluginInfo {
	return onebus.PluginInfo{
		Name:    "eventlog",
		Author:  "onebus",
		Version: "v0.1.0",
		Desc:    "inbound traffic logger",
		ID:      pluginID,
	}
}

// Load implements onebus.Plugin.
func (Logger) Load(events <-chan onebot.Event, _ *bot.Registry) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			log(ev)
		}
	}()
	return done
}

func log(ev onebot.Event) {
	switch e := ev.(type) {
	case *onebot.MessageEvent:
		target := e.UserID.String()
		if e.IsGroup() {
			target = e.GroupID.String()
		}
		logger.InfoCF("traffic", e.RawMessage, map[string]interface{}{
			"bot_id": e.SelfID(),
			"from":   target,
			"sender": e.Sender.Nickname,
		})
	case *onebot.MetaEvent:
		if e.IsHeartbeat() {
			logger.TraceC("traffic", "heartbeat")
		}
	}
}
