package bot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/onebot"
)

func testBot(api chan onebot.Payload) *Bot {
	return New("123", config.BotConfig{BotID: "123"}, api, NewPending())
}

// respondTo answers queued payloads by echoing their tokens back through
// the correlation table, standing in for a connection's read loop.
func respondTo(t *testing.T, b *Bot, api <-chan onebot.Payload, data string) {
	t.Helper()
	p := <-api
	ok := b.Pending().Resolve(onebot.Resp{
		Status:  "ok",
		RetCode: 0,
		Data:    json.RawMessage(data),
		Echo:    p.Echo,
	})
	if !ok {
		t.Error("Resolve found no waiter for submitted payload")
	}
}

// TestCallRespCorrelation verifies a response tagged with the call's token
// resolves exactly that call.
func TestCallRespCorrelation(t *testing.T) {
	api := make(chan onebot.Payload, 1)
	b := testBot(api)

	go respondTo(t, b, api, `{"message_id":42}`)

	resp, err := b.SendPrivateMsg(context.Background(), "456", []onebot.Segment{onebot.Text("hi")})
	if err != nil {
		t.Fatalf("SendPrivateMsg: %v", err)
	}
	d, err := resp.AsMessageID()
	if err != nil {
		t.Fatalf("AsMessageID: %v", err)
	}
	if d.MessageID.Int() != 42 {
		t.Errorf("message id = %s, want 42", d.MessageID)
	}
}

// TestCallRespOutOfOrder verifies two concurrent calls each receive their
// own response even when the responses arrive in reverse order.
func TestCallRespOutOfOrder(t *testing.T) {
	api := make(chan onebot.Payload, 2)
	b := testBot(api)

	// Collect both payloads first, then answer in reverse submit order.
	go func() {
		p1 := <-api
		p2 := <-api
		b.Pending().Resolve(onebot.Resp{Status: "ok", Data: json.RawMessage(`{"message_id":2}`), Echo: p2.Echo})
		b.Pending().Resolve(onebot.Resp{Status: "ok", Data: json.RawMessage(`{"message_id":1}`), Echo: p1.Echo})
	}()

	var wg sync.WaitGroup
	results := make([]int64, 2)
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			// Order the submissions so payload i carries message_id i+1.
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			resp, err := b.CallResp(context.Background(), onebot.GetMsg{MessageID: int64(i)})
			if err != nil {
				errs[i] = err
				return
			}
			var body struct {
				MessageID int64 `json:"message_id"`
			}
			errs[i] = json.Unmarshal(resp.Data, &body)
			results[i] = body.MessageID
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if results[i] != int64(i+1) {
			t.Errorf("call %d got message_id %d, want %d", i, results[i], i+1)
		}
	}
}

// TestCallRespTimeout verifies an unanswered call resolves with
// ErrCallTimeout and leaves no waiter behind.
func TestCallRespTimeout(t *testing.T) {
	api := make(chan onebot.Payload, 1)
	b := testBot(api)
	b.callTimeout = 50 * time.Millisecond

	_, err := b.CallResp(context.Background(), onebot.GetLoginInfo{})
	if !errors.Is(err, ErrCallTimeout) {
		t.Fatalf("error = %v, want ErrCallTimeout", err)
	}

	// The late response must be dropped, not delivered.
	p := <-api
	if b.Pending().Resolve(onebot.Resp{Status: "ok", Echo: p.Echo}) {
		t.Error("late response resolved a cancelled waiter")
	}
}

// TestCallRespContextCancel verifies ctx cancellation unblocks the caller.
func TestCallRespContextCancel(t *testing.T) {
	api := make(chan onebot.Payload, 1)
	b := testBot(api)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := b.CallResp(ctx, onebot.GetLoginInfo{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

// TestCallQueueFull verifies a saturated outbound queue rejects instead of
// blocking the handler body.
func TestCallQueueFull(t *testing.T) {
	api := make(chan onebot.Payload) // unbuffered, nobody reading
	b := testBot(api)

	if err := b.Call(onebot.DeleteMsg{MessageID: 1}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Call error = %v, want ErrQueueFull", err)
	}
	if _, err := b.CallResp(context.Background(), onebot.GetLoginInfo{}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("CallResp error = %v, want ErrQueueFull", err)
	}
}

// TestResolveUnknownToken verifies responses with unknown echo tokens are
// reported dropped.
func TestResolveUnknownToken(t *testing.T) {
	p := NewPending()
	if p.Resolve(onebot.Resp{Status: "ok", Echo: "never-registered"}) {
		t.Error("Resolve returned true for unknown token")
	}
}

// TestSetConfigPreservesIdentity verifies a config swap keeps the handle
// and its connection state intact.
func TestSetConfigPreservesIdentity(t *testing.T) {
	api := make(chan onebot.Payload, 1)
	b := testBot(api)
	before := b.ConnectTime

	b.SetConfig(config.BotConfig{BotID: "123", Superusers: []string{"9"}})

	if b.ConnectTime != before {
		t.Error("ConnectTime changed on config swap")
	}
	if got := b.Config().Superusers; len(got) != 1 || got[0] != "9" {
		t.Errorf("Superusers = %v, want [9]", got)
	}
}

// TestRegistrySnapshots verifies published maps are visible atomically and
// lookups miss after a delete-and-republish.
func TestRegistrySnapshots(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("new registry Len = %d, want 0", r.Len())
	}

	api := make(chan onebot.Payload, 1)
	b := testBot(api)
	r.Publish(map[string]*Bot{"123": b})

	got, ok := r.Lookup("123")
	if !ok || got != b {
		t.Fatal("Lookup missed a published bot")
	}

	old := r.Snapshot()
	r.Publish(map[string]*Bot{})
	if _, ok := r.Lookup("123"); ok {
		t.Error("Lookup hit after removal was published")
	}
	// The old snapshot is immutable and still readable.
	if _, ok := old["123"]; !ok {
		t.Error("earlier snapshot lost its entry")
	}
}
