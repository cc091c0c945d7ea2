// Package onebus hosts the framework core: it owns the event broadcast,
// the bot registry, the action control plane and the set of registered
// plugins, and drives startup ordering.
package onebus

import (
	"context"

	"github.com/google/uuid"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/bus"
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/connection"
	"github.com/grvsrs/onebus/pkg/logger"
)

const actionBuffer = 32

// Onebus is the process-wide orchestrator.
type Onebus struct {
	Config *config.Config

	events   *bus.EventBus
	actions  chan bot.Action
	registry *bot.Registry

	// bots is the writer-side working map; the registry republishes an
	// immutable snapshot of it after every mutation.
	bots map[string]*bot.Bot

	plugins []Plugin
	seen    map[uuid.UUID]bool
}

// New creates a host around a loaded config.
func New(cfg *config.Config) *Onebus {
	return &Onebus{
		Config:   cfg,
		events:   bus.NewEventBus(),
		actions:  make(chan bot.Action, actionBuffer),
		registry: bot.NewRegistry(),
		bots:     map[string]*bot.Bot{},
		seen:     map[uuid.UUID]bool{},
	}
}

// Events exposes the broadcast source, mainly so auxiliary consumers can
// subscribe before Run.
func (nb *Onebus) Events() *bus.EventBus { return nb.events }

// Registry exposes the read view of connected bots.
func (nb *Onebus) Registry() *bot.Registry { return nb.registry }

// Actions exposes the control-plane intake for administrative plugins.
func (nb *Onebus) Actions() chan<- bot.Action { return nb.actions }

// AddPlugin registers a plugin. Re-registering the same plugin ID is a
// logged no-op.
func (nb *Onebus) AddPlugin(p Plugin) *Onebus {
	info := p.Info()
	if nb.seen[info.ID] {
		logger.WarnCF("onebus", "plugin already registered", map[string]interface{}{"name": info.Name})
		return nb
	}
	nb.seen[info.ID] = true
	nb.plugins = append(nb.plugins, p)
	return nb
}

// Run starts connections, the action loop and all plugins, then blocks
// until every plugin task has ended or ctx is cancelled.
func (nb *Onebus) Run(ctx context.Context) error {
	go nb.handleActions(ctx)
	nb.startConnections(ctx)
	tasks := nb.loadPlugins()

	for _, task := range tasks {
		select {
		case <-task:
		case <-ctx.Done():
			nb.events.Close()
			return ctx.Err()
		}
	}
	nb.events.Close()
	return nil
}

func (nb *Onebus) startConnections(ctx context.Context) {
	token := nb.Config.AccessToken()

	if srvCfg := nb.Config.WSServer; srvCfg != nil {
		srv := connection.NewServer(srvCfg, token, nb.events, nb.actions)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.ErrorCF("onebus", "reverse-ws server failed", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	for id, bc := range nb.Config.Bots {
		if bc.WSServer == "" {
			continue
		}
		go connection.RunClient(ctx, bc.WSServer, id, token, nb.events, nb.actions)
	}
}

func (nb *Onebus) loadPlugins() []<-chan struct{} {
	var tasks []<-chan struct{}
	for _, p := range nb.plugins {
		info := p.Info()
		if err := p.Init(); err != nil {
			logger.ErrorCF("onebus", "plugin init failed", map[string]interface{}{
				"name": info.Name, "error": err.Error(),
			})
		}
		sub := nb.events.Subscribe(info.Name)
		tasks = append(tasks, p.Load(sub, nb.registry))
		logger.InfoCF("onebus", "plugin loaded", map[string]interface{}{
			"name": info.Name, "version": info.Version,
		})
	}
	return tasks
}
