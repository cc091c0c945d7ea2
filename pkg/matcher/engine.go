package matcher

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
	"github.com/grvsrs/onebus/pkg/onebus"
)

var pluginID = uuid.MustParse("5f1c2a58-9d3e-4b07-a6c1-2de07c14f2b9")

// tier holds the uniquely named matchers sharing one priority value.
type tier[E any] map[string]*Matcher[E]

// matcherMap is one event category's ordered sequence of priority tiers.
type matcherMap[E any] struct {
	tiers map[int]tier[E]
}

func newMatcherMap[E any]() *matcherMap[E] {
	return &matcherMap[E]{tiers: map[int]tier[E]{}}
}

func (mm *matcherMap[E]) add(m *Matcher[E]) {
	t, ok := mm.tiers[m.Priority]
	if !ok {
		t = tier[E]{}
		mm.tiers[m.Priority] = t
	}
	if _, dup := t[m.Name]; dup {
		logger.WarnCF("matcher", "replacing matcher with duplicate name", map[string]interface{}{
			"name": m.Name, "priority": m.Priority,
		})
	}
	t[m.Name] = m
}

func (mm *matcherMap[E]) remove(name string) bool {
	for p, t := range mm.tiers {
		if _, ok := t[name]; ok {
			delete(t, name)
			if len(t) == 0 {
				delete(mm.tiers, p)
			}
			return true
		}
	}
	return false
}

func (mm *matcherMap[E]) priorities() []int {
	ps := make([]int, 0, len(mm.tiers))
	for p := range mm.tiers {
		ps = append(ps, p)
	}
	sort.Ints(ps)
	return ps
}

// dispatch walks the category's tiers in ascending priority, running every
// matcher in a tier against its own copy of the event. A matched blocking
// matcher stops processing after its tier; matched temp matchers are
// removed once their handler body has been scheduled.
func dispatch[E any](mm *matcherMap[E], e E, b *bot.Bot) {
	for _, p := range mm.priorities() {
		t := mm.tiers[p]
		blocked := false
		var spent []string
		for name, m := range t {
			if !m.run(e, b) {
				continue
			}
			logger.InfoCF("matcher", "matched", map[string]interface{}{"name": name})
			if m.Block {
				blocked = true
			}
			if m.Temp {
				spent = append(spent, name)
			}
		}
		for _, name := range spent {
			logger.DebugCF("matcher", "removing spent temp matcher", map[string]interface{}{"name": name})
			delete(t, name)
		}
		if len(t) == 0 {
			delete(mm.tiers, p)
		}
		if blocked {
			return
		}
	}
}

// Matchers is the engine: four independent priority-ordered collections,
// one per event category, dispatched from a single event-loop task.
type Matchers struct {
	mu      sync.Mutex
	message *matcherMap[onebot.MessageEvent]
	notice  *matcherMap[onebot.NoticeEvent]
	request *matcherMap[onebot.RequestEvent]
	meta    *matcherMap[onebot.MetaEvent]
}

// NewMatchers creates an empty engine.
func NewMatchers() *Matchers {
	return &Matchers{
		message: newMatcherMap[onebot.MessageEvent](),
		notice:  newMatcherMap[onebot.NoticeEvent](),
		request: newMatcherMap[onebot.RequestEvent](),
		meta:    newMatcherMap[onebot.MetaEvent](),
	}
}

// OnMessage registers a message matcher. Safe to call at any time,
// including from a running handler inserting a session-continuation temp
// matcher.
func (ms *Matchers) OnMessage(m *Matcher[onebot.MessageEvent]) *Matchers {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.message.add(m)
	return ms
}

// OnNotice registers a notice matcher.
func (ms *Matchers) OnNotice(m *Matcher[onebot.NoticeEvent]) *Matchers {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.notice.add(m)
	return ms
}

// OnRequest registers a request matcher.
func (ms *Matchers) OnRequest(m *Matcher[onebot.RequestEvent]) *Matchers {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.request.add(m)
	return ms
}

// OnMeta registers a meta matcher.
func (ms *Matchers) OnMeta(m *Matcher[onebot.MetaEvent]) *Matchers {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.meta.add(m)
	return ms
}

// Remove deletes a matcher by name from whichever category holds it.
func (ms *Matchers) Remove(name string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.message.remove(name) || ms.notice.remove(name) ||
		ms.request.remove(name) || ms.meta.remove(name)
}

// --- Plugin implementation ---

// Init implements onebus.Plugin.
func (ms *Matchers) Init() error { return nil }

// Info implements onebus.Plugin.
func (ms *Matchers) Info() onebus.PluginInfo {
	return onebus.PluginInfo{
		Name:    "matcher",
		Author:  "onebus",
		Version: "v0.1.0",
		Desc:    "priority-tiered event dispatch",
		ID:      pluginID,
	}
}

// Load implements onebus.Plugin: it starts the engine's event loop.
func (ms *Matchers) Load(events <-chan onebot.Event, bots *bot.Registry) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ms.loop(events, bots)
	}()
	return done
}

func (ms *Matchers) loop(events <-chan onebot.Event, bots *bot.Registry) {
	for ev := range events {
		if lc, ok := ev.(*bot.LifecycleEvent); ok {
			ms.handleLifecycle(lc)
			continue
		}
		b, ok := bots.Lookup(ev.SelfID())
		if !ok {
			logger.DebugCF("matcher", "event for unregistered bot", map[string]interface{}{
				"bot_id": ev.SelfID(), "category": ev.Category(),
			})
			continue
		}
		ms.dispatchEvent(ev, b)
	}
}

func (ms *Matchers) dispatchEvent(ev onebot.Event, b *bot.Bot) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	switch e := ev.(type) {
	case *onebot.MessageEvent:
		dispatch(ms.message, *e, b)
	case *onebot.NoticeEvent:
		dispatch(ms.notice, *e, b)
	case *onebot.RequestEvent:
		dispatch(ms.request, *e, b)
	case *onebot.MetaEvent:
		dispatch(ms.meta, *e, b)
	}
}

// handleLifecycle bypasses normal matching: connects reinitialize matcher
// state and run on-connect hooks, disconnects run on-disconnect hooks.
func (ms *Matchers) handleLifecycle(lc *bot.LifecycleEvent) {
	handlers := ms.allHandlers()
	ctx := context.Background()
	switch lc.Kind {
	case bot.Connected:
		for _, nh := range handlers {
			if si, ok := nh.h.(StateInitializer); ok {
				if err := si.InitState(); err != nil {
					logger.ErrorCF("matcher", "state init failed", map[string]interface{}{
						"matcher": nh.name, "error": err.Error(),
					})
				}
			}
			if hook, ok := nh.h.(ConnectHook); ok {
				go hook.OnConnect(ctx, lc.Bot)
			}
		}
	case bot.Disconnected:
		for _, nh := range handlers {
			if hook, ok := nh.h.(DisconnectHook); ok {
				go hook.OnDisconnect(ctx, lc.Bot)
			}
		}
	}
}

type namedHandler struct {
	name string
	h    interface{}
}

func collectHandlers[E any](mm *matcherMap[E], out *[]namedHandler) {
	for _, t := range mm.tiers {
		for name, m := range t {
			*out = append(*out, namedHandler{name: name, h: m.handler})
		}
	}
}

func (ms *Matchers) allHandlers() []namedHandler {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []namedHandler
	collectHandlers(ms.message, &out)
	collectHandlers(ms.notice, &out)
	collectHandlers(ms.request, &out)
	collectHandlers(ms.meta, &out)
	return out
}
