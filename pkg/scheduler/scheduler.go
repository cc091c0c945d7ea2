// Package scheduler runs named cron jobs against the live bot registry.
// Jobs fire on minute boundaries whenever their cron expression is due.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
	"github.com/grvsrs/onebus/pkg/onebus"
)

var pluginID = uuid.MustParse("9b7de2c4-4f11-4a38-8c55-ef20dd0f5a21")

// JobFunc is a job body. It receives the current registry view so it can
// address any connected bot.
type JobFunc func(bots *bot.Registry)

type job struct {
	name string
	expr string
	fn   JobFunc
}

// Scheduler is the cron plugin.
type Scheduler struct {
	mu   sync.Mutex
	jobs []job
	gron *gronx.Gronx
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{gron: gronx.New()}
}

// AddJob registers a named job. The cron expression is validated up front.
func (s *Scheduler) AddJob(name, expr string, fn JobFunc) error {
	if !s.gron.IsValid(expr) {
		return fmt.Errorf("scheduler: invalid cron expression %q for job %s", expr, name)
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, job{name: name, expr: expr, fn: fn})
	s.mu.Unlock()
	return nil
}

// Init implements onebus.Plugin.
func (s *Scheduler) Init() error { return nil }

// Info implements onebus.Plugin.
func (s *Scheduler) Info() onebus.PluginInfo {
	return onebus.PluginInfo{
		Name:    "scheduler",
		Author:  "onebus",
		Version: "v0.1.0",
		Desc:    "cron jobs over the bot registry",
		ID:      pluginID,
	}
}

// Load implements onebus.Plugin: ticks once a minute and fires every due
// job in its own goroutine.
func (s *Scheduler) Load(events <-chan onebot.Event, bots *bot.Registry) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		// The event tap only signals shutdown: the bus closes it when the
		// host stops.
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				s.runDue(now, bots)
			case _, ok := <-events:
				if !ok {
					return
				}
			}
		}
	}()
	return done
}

func (s *Scheduler) runDue(now time.Time, bots *bot.Registry) {
	s.mu.Lock()
	due := make([]job, 0, len(s.jobs))
	for _, j := range s.jobs {
		ok, err := s.gron.IsDue(j.expr, now)
		if err != nil {
			logger.ErrorCF("scheduler", "cron evaluation failed", map[string]interface{}{
				"job": j.name, "error": err.Error(),
			})
			continue
		}
		if ok {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		logger.DebugCF("scheduler", "job due", map[string]interface{}{"job": j.name})
		go func(j job) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorCF("scheduler", "job panicked", map[string]interface{}{
						"job": j.name, "panic": r,
					})
				}
			}()
			j.fn(bots)
		}(j)
	}
}
