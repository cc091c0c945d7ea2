// Package matcher implements the priority-tiered event dispatch engine:
// named handlers registered per event category, filtered by prematchers
// and permission rules, with block and one-shot semantics across priority
// tiers. The engine itself is a plugin on the host's event broadcast.
package matcher

import (
	"context"
	"errors"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// ErrUnbound reports a call issued through a matcher that has not been
// bound to a bot by the dispatch path.
var ErrUnbound = errors.New("matcher: not bound to a bot")

// PreMatcher inspects an event before the rule stage. It may reject the
// event (return false) or rewrite its copy in place, e.g. to strip a
// command prefix.
type PreMatcher[E any] func(event *E, cfg config.BotConfig) bool

// Rule is a permission predicate. Rejection suppresses firing.
type Rule[E any] func(event *E, cfg config.BotConfig) bool

// Handler is a matcher body, invoked once per matched event with a bound
// matcher that exposes the owning bot's call surface.
type Handler[E any] interface {
	Handle(ctx context.Context, event *E, m *Matcher[E])
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc[E any] func(ctx context.Context, event *E, m *Matcher[E])

func (f HandlerFunc[E]) Handle(ctx context.Context, event *E, m *Matcher[E]) { f(ctx, event, m) }

// ConnectHook is implemented by handlers that want a callback when a bot
// connects. Hooks bypass priority and blocking rules.
type ConnectHook interface {
	OnConnect(ctx context.Context, b *bot.Bot)
}

// DisconnectHook mirrors ConnectHook for disconnects.
type DisconnectHook interface {
	OnDisconnect(ctx context.Context, b *bot.Bot)
}

// StateInitializer is implemented by handlers carrying persistent state
// that must be (re)initialized when a bot connects.
type StateInitializer interface {
	InitState() error
}

// Matcher is one registered handler: a name (unique within its
// category/priority tier), an ordered prematcher list, a permission rule
// set, the handler body and the block/temp flags.
type Matcher[E any] struct {
	Name     string
	Priority int
	// Block suppresses lower-priority tiers once this matcher fires.
	Block bool
	// Temp removes the matcher from its tier after its first match.
	Temp bool

	handler     Handler[E]
	preMatchers []PreMatcher[E]
	rules       []Rule[E]

	// Bound at dispatch time.
	bot   *bot.Bot
	event *E
}

// New creates a matcher with default priority 1 and no filters.
func New[E any](name string, h Handler[E]) *Matcher[E] {
	return &Matcher[E]{Name: name, Priority: 1, handler: h}
}

// OnHandle creates a matcher around a bare function body.
func OnHandle[E any](name string, f HandlerFunc[E]) *Matcher[E] {
	return New[E](name, f)
}

// WithPriority sets the tier; lower runs first.
func (m *Matcher[E]) WithPriority(p int) *Matcher[E] { m.Priority = p; return m }

// WithBlock marks the matcher as tier-blocking.
func (m *Matcher[E]) WithBlock() *Matcher[E] { m.Block = true; return m }

// WithTemp marks the matcher as one-shot.
func (m *Matcher[E]) WithTemp() *Matcher[E] { m.Temp = true; return m }

// AddPreMatcher appends a prematcher; they run in registration order.
func (m *Matcher[E]) AddPreMatcher(pm PreMatcher[E]) *Matcher[E] {
	m.preMatchers = append(m.preMatchers, pm)
	return m
}

// AddRule appends a permission rule.
func (m *Matcher[E]) AddRule(r Rule[E]) *Matcher[E] {
	m.rules = append(m.rules, r)
	return m
}

// Bot returns the handle bound at dispatch, nil before that.
func (m *Matcher[E]) Bot() *bot.Bot { return m.bot }

// Event returns the (possibly prematcher-rewritten) event copy this
// invocation fired on.
func (m *Matcher[E]) Event() *E { return m.event }

// bind produces the per-invocation view handed to the handler body.
func (m *Matcher[E]) bind(b *bot.Bot, e *E) *Matcher[E] {
	bound := *m
	bound.bot = b
	bound.event = e
	return &bound
}

// run matches one event copy against this matcher and, when both filter
// stages pass, schedules the handler body. A handler that panics is
// reported and swallowed; it never aborts sibling matchers or the
// dispatch loop.
func (m *Matcher[E]) run(e E, b *bot.Bot) bool {
	cfg := b.Config()
	for _, pm := range m.preMatchers {
		if !pm(&e, cfg) {
			return false
		}
	}
	for _, r := range m.rules {
		if !r(&e, cfg) {
			return false
		}
	}

	bound := m.bind(b, &e)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorCF("matcher", "handler panicked", map[string]interface{}{
					"matcher": m.Name, "panic": r,
				})
			}
		}()
		m.handler.Handle(context.Background(), &e, bound)
	}()
	return true
}

// --- call surface for handler bodies ---

// Call issues a fire-and-forget command through the bound bot.
func (m *Matcher[E]) Call(c onebot.Call) error {
	if m.bot == nil {
		logger.ErrorCF("matcher", "call on unbound matcher", map[string]interface{}{"matcher": m.Name})
		return ErrUnbound
	}
	return m.bot.Call(c)
}

// CallResp issues a response-expecting command through the bound bot.
func (m *Matcher[E]) CallResp(ctx context.Context, c onebot.Call) (*onebot.Resp, error) {
	if m.bot == nil {
		logger.ErrorCF("matcher", "call on unbound matcher", map[string]interface{}{"matcher": m.Name})
		return nil, ErrUnbound
	}
	return m.bot.CallResp(ctx, c)
}

// Send replies to the message event this matcher fired on.
func (m *Matcher[E]) Send(ctx context.Context, msg []onebot.Segment) (*onebot.Resp, error) {
	ev, ok := any(m.event).(*onebot.MessageEvent)
	if !ok || m.bot == nil {
		logger.ErrorCF("matcher", "send without a bound message event", map[string]interface{}{"matcher": m.Name})
		return nil, ErrUnbound
	}
	return m.bot.SendByMessageEvent(ctx, ev, msg)
}

// SendText replies with a single text segment.
func (m *Matcher[E]) SendText(ctx context.Context, text string) (*onebot.Resp, error) {
	return m.Send(ctx, []onebot.Segment{onebot.Text(text)})
}
