// Command onebus runs the framework with its builtin plugins: the matcher
// engine, event logging and whatever the config file switches on.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/matcher"
	"github.com/grvsrs/onebus/pkg/onebus"
	"github.com/grvsrs/onebus/pkg/plugins/bottle"
	"github.com/grvsrs/onebus/pkg/plugins/console"
	"github.com/grvsrs/onebus/pkg/plugins/eventlog"
	"github.com/grvsrs/onebus/pkg/plugins/imgfetch"
	"github.com/grvsrs/onebus/pkg/plugins/msgstore"
	"github.com/grvsrs/onebus/pkg/plugins/reply"
	"github.com/grvsrs/onebus/pkg/scheduler"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the config file")
	debug := flag.Bool("debug", false, "force debug logging on")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.Global.Debug || *debug, cfg.Global.Trace)

	nb := onebus.New(cfg)
	nb.AddPlugin(buildMatchers(cfg))
	nb.AddPlugin(eventlog.Logger{})

	if cfg.Plugins.MsgStore.Enabled {
		nb.AddPlugin(msgstore.NewSaver(cfg.Plugins.MsgStore.Path))
	}
	if cfg.Plugins.Reply.Enabled {
		nb.AddPlugin(reply.New(cfg.Plugins.Reply))
	}
	if cfg.Plugins.Console.Enabled {
		nb.AddPlugin(console.New(nb.Actions()))
	}
	if len(cfg.Plugins.Jobs) > 0 {
		nb.AddPlugin(buildScheduler(cfg.Plugins.Jobs))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoC("onebus", "starting")
	if err := nb.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorCF("onebus", "run failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.InfoC("onebus", "shut down")
}

func buildMatchers(cfg *config.Config) *matcher.Matchers {
	ms := matcher.NewMatchers()
	ms.OnMessage(matcher.Echo())
	ms.OnMessage(matcher.BotStatus())
	for _, m := range bottle.Matchers(bottle.DefaultDir) {
		ms.OnMessage(m)
	}
	if img := cfg.Plugins.Image; img.Enabled && img.API != "" {
		ms.OnMessage(imgfetch.Matcher(img))
	}
	return ms
}

// buildScheduler registers the configured cron jobs. The only job body
// shipped is a bot-count heartbeat; the cron expressions come from config
// so deployments can tune the cadence without a rebuild.
func buildScheduler(jobs map[string]string) *scheduler.Scheduler {
	s := scheduler.New()
	for name, expr := range jobs {
		n := name
		if err := s.AddJob(n, expr, func(bots *bot.Registry) {
			logger.InfoCF("scheduler", "tick", map[string]interface{}{
				"job": n, "bots": bots.Len(),
			})
		}); err != nil {
			logger.WarnCF("scheduler", "job rejected", map[string]interface{}{
				"job": n, "error": err.Error(),
			})
		}
	}
	return s
}
