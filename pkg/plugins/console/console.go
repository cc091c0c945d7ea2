// Package console is an interactive operator shell: list connected bots,
// send messages through their handles and remove them via the action
// plane, straight from the terminal the framework runs in.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
	"github.com/grvsrs/onebus/pkg/onebus"
)

var pluginID = uuid.MustParse("e3b51c9a-2f64-4d4e-b0a7-5593cf28d7c0")

// Console is the REPL plugin. It is the one registered consumer that does
// not read the event stream; it drives the control plane instead.
type Console struct {
	actions chan<- bot.Action
}

// New creates a console bound to the host's action intake.
func New(actions chan<- bot.Action) *Console {
	return &Console{actions: actions}
}

// Init implements onebus.Plugin.
func (c *Console) Init() error { return nil }

// Info implements onebus.Plugin.
func (c *Console) Info() onebus.PluginInfo {
	return onebus.PluginInfo{
		Name:    "console",
		Author:  "onebus",
		Version: "v0.1.0",
		Desc:    "operator shell",
		ID:      pluginID,
	}
}

// Load implements onebus.Plugin.
func (c *Console) Load(events <-chan onebot.Event, bots *bot.Registry) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain the tap so the bus never sees this consumer as lagging.
		go func() {
			for range events {
			}
		}()
		c.repl(bots)
	}()
	return done
}

func (c *Console) repl(bots *bot.Registry) {
	rl, err := readline.New("onebus> ")
	if err != nil {
		logger.ErrorCF("console", "readline unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}
		if quit := c.exec(rl, bots, strings.TrimSpace(line)); quit {
			return
		}
	}
}

func (c *Console) exec(rl *readline.Instance, bots *bot.Registry, line string) bool {
	if line == "" {
		return false
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "help":
		fmt.Fprintln(rl, "commands: bots | send <bot_id> <user_id> <text> | remove <bot_id> | quit")

	case "bots":
		snap := bots.Snapshot()
		if len(snap) == 0 {
			fmt.Fprintln(rl, "no bots connected")
			return false
		}
		for id, b := range snap {
			fmt.Fprintf(rl, "%s (connected %s)\n", id, time.Unix(b.ConnectTime, 0).Format(time.DateTime))
		}

	case "send":
		if len(fields) < 4 {
			fmt.Fprintln(rl, "usage: send <bot_id> <user_id> <text>")
			return false
		}
		b, ok := bots.Lookup(fields[1])
		if !ok {
			fmt.Fprintf(rl, "unknown bot %s\n", fields[1])
			return false
		}
		text := strings.Join(fields[3:], " ")
		ctx, cancel := context.WithTimeout(context.Background(), bot.CallTimeout)
		defer cancel()
		if _, err := b.SendPrivateMsg(ctx, fields[2], []onebot.Segment{onebot.Text(text)}); err != nil {
			fmt.Fprintf(rl, "send failed: %v\n", err)
		}

	case "remove":
		if len(fields) != 2 {
			fmt.Fprintln(rl, "usage: remove <bot_id>")
			return false
		}
		c.actions <- bot.RemoveBot(fields[1], nil)

	case "quit", "exit":
		return true

	default:
		fmt.Fprintf(rl, "unknown command %q (try help)\n", fields[0])
	}
	return false
}
