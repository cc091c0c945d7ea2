package bot

import (
	"sync"

	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// Pending correlates outbound calls with their responses. Each
// response-expecting call registers its token before transmission; the
// connection's read loop resolves exactly the one waiter whose token
// matches. At most one waiter exists per token.
type Pending struct {
	mu      sync.Mutex
	waiters map[string]chan onebot.Resp
}

// NewPending creates an empty correlation table.
func NewPending() *Pending {
	return &Pending{waiters: make(map[string]chan onebot.Resp)}
}

// Register adds a waiter for token and returns the channel its response
// will arrive on. The channel is buffered so the resolver never blocks.
func (p *Pending) Register(token string) <-chan onebot.Resp {
	ch := make(chan onebot.Resp, 1)
	p.mu.Lock()
	p.waiters[token] = ch
	p.mu.Unlock()
	return ch
}

// Cancel removes a waiter whose call timed out or was abandoned. A
// response arriving afterwards is treated as unknown and dropped.
func (p *Pending) Cancel(token string) {
	p.mu.Lock()
	delete(p.waiters, token)
	p.mu.Unlock()
}

// Resolve delivers a response to the waiter registered for its echo token.
// Responses for unknown or already-resolved tokens are dropped with a
// diagnostic and false is returned.
func (p *Pending) Resolve(resp onebot.Resp) bool {
	p.mu.Lock()
	ch, ok := p.waiters[resp.Echo]
	if ok {
		delete(p.waiters, resp.Echo)
	}
	p.mu.Unlock()

	if !ok {
		logger.DebugCF("bot", "dropping response for unknown token", map[string]interface{}{"echo": resp.Echo})
		return false
	}
	ch <- resp
	close(ch)
	return true
}
