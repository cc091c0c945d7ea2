package connection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/bus"
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/onebot"
)

const waitShort = 2 * time.Second

const handshakeFrame = `{"post_type":"meta_event","meta_event_type":"lifecycle","sub_type":"connect","self_id":99,"time":1700000000}`

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func expectAction(t *testing.T, actions <-chan bot.Action, kind bot.ActionKind) bot.Action {
	t.Helper()
	select {
	case a := <-actions:
		if a.Kind != kind {
			t.Fatalf("action kind = %s, want %s", a.Kind, kind)
		}
		return a
	case <-time.After(waitShort):
		t.Fatalf("no %s action arrived", kind)
		return bot.Action{}
	}
}

// gateway is a scripted peer: it upgrades, optionally sends a first frame,
// then hands the socket to the per-connection script.
func gateway(t *testing.T, firstFrame string, script func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if firstFrame != "" {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(firstFrame)); err != nil {
				return
			}
		}
		if script != nil {
			script(conn)
		}
	}))
}

// TestClientHandshakeAndCorrelation verifies the full outbound cycle: the
// identity is learned from the first frame, the handle is registered, and
// a call issued through it comes back resolved by its echo token.
func TestClientHandshakeAndCorrelation(t *testing.T) {
	srv := gateway(t, handshakeFrame, func(conn *websocket.Conn) {
		// Answer exactly one call by echoing its token.
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var p struct {
			Action string `json:"action"`
			Echo   string `json:"echo"`
		}
		if err := json.Unmarshal(frame, &p); err != nil {
			t.Errorf("gateway got malformed payload: %v", err)
			return
		}
		if p.Action != "get_login_info" {
			t.Errorf("gateway got action %q, want get_login_info", p.Action)
		}
		resp := `{"status":"ok","retcode":0,"data":{"user_id":99,"nickname":"n"},"echo":"` + p.Echo + `"}`
		conn.WriteMessage(websocket.TextMessage, []byte(resp))
		// Hold the socket open until the test finishes.
		conn.ReadMessage()
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := bus.NewEventBus()
	actions := make(chan bot.Action, 4)
	go RunClient(ctx, wsURL(srv), "99", config.AccessToken{}, events, actions)

	a := expectAction(t, actions, bot.ActionAddBot)
	if a.BotID != "99" {
		t.Fatalf("registered identity = %q, want 99", a.BotID)
	}

	b := bot.New(a.BotID, config.BotConfig{BotID: a.BotID}, a.API, a.Pending)
	info, err := b.GetLoginInfo(ctx)
	if err != nil {
		t.Fatalf("GetLoginInfo: %v", err)
	}
	if info.UserID.String() != "99" {
		t.Errorf("login info user = %s, want 99", info.UserID)
	}
}

// TestClientReconnect verifies a dropped socket leads to removal and a
// fresh registration after the retry delay.
func TestClientReconnect(t *testing.T) {
	prev := retryDelay
	retryDelay = 20 * time.Millisecond
	defer func() { retryDelay = prev }()

	srv := gateway(t, handshakeFrame, nil) // closes immediately after handshake
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := bus.NewEventBus()
	actions := make(chan bot.Action, 8)
	go RunClient(ctx, wsURL(srv), "99", config.AccessToken{}, events, actions)

	expectAction(t, actions, bot.ActionAddBot)
	expectAction(t, actions, bot.ActionRemoveBot)
	expectAction(t, actions, bot.ActionAddBot)
}

// TestClientRejectsBadFirstFrame verifies a peer whose first frame carries
// no identity is never registered.
func TestClientRejectsBadFirstFrame(t *testing.T) {
	prev := retryDelay
	retryDelay = time.Hour // a single attempt is enough
	defer func() { retryDelay = prev }()

	srv := gateway(t, `{"hello":"world"}`, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := bus.NewEventBus()
	actions := make(chan bot.Action, 4)
	go RunClient(ctx, wsURL(srv), "99", config.AccessToken{}, events, actions)

	select {
	case a := <-actions:
		t.Fatalf("unexpected %s action for unidentified peer", a.Kind)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestStreamSendsPings verifies the write loop keeps the connection alive
// with periodic pings.
func TestStreamSendsPings(t *testing.T) {
	prevPing, prevPong := pingPeriod, pongWait
	pingPeriod, pongWait = 20*time.Millisecond, time.Second
	defer func() { pingPeriod, pongWait = prevPing, prevPong }()

	pinged := make(chan struct{})
	var once sync.Once
	srv := gateway(t, handshakeFrame, func(conn *websocket.Conn) {
		conn.SetPingHandler(func(string) error {
			once.Do(func() { close(pinged) })
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	actions := make(chan bot.Action, 4)
	go RunClient(ctx, wsURL(srv), "99", config.AccessToken{}, bus.NewEventBus(), actions)

	expectAction(t, actions, bot.ActionAddBot)
	select {
	case <-pinged:
	case <-time.After(waitShort):
		t.Fatal("no ping arrived within the keepalive period")
	}
}

// TestStreamDropsSilentPeer verifies a peer that stops answering is torn
// down by the read deadline instead of lingering half-open.
func TestStreamDropsSilentPeer(t *testing.T) {
	prevPing, prevPong, prevRetry := pingPeriod, pongWait, retryDelay
	pingPeriod, pongWait, retryDelay = 25*time.Millisecond, 60*time.Millisecond, time.Hour
	defer func() { pingPeriod, pongWait, retryDelay = prevPing, prevPong, prevRetry }()

	srv := gateway(t, handshakeFrame, func(conn *websocket.Conn) {
		// Go silent: no reads, no pongs, socket held open.
		time.Sleep(500 * time.Millisecond)
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	actions := make(chan bot.Action, 4)
	go RunClient(ctx, wsURL(srv), "99", config.AccessToken{}, bus.NewEventBus(), actions)

	expectAction(t, actions, bot.ActionAddBot)
	expectAction(t, actions, bot.ActionRemoveBot)
}

// TestServerHandshake verifies the reverse-WS admission rules and the
// registration/removal bracket around an admitted peer.
func TestServerHandshake(t *testing.T) {
	events := bus.NewEventBus()
	sub := events.Subscribe("test")
	actions := make(chan bot.Action, 8)

	s := NewServer(
		&config.ServerConfig{Host: "127.0.0.1", Port: 0, AccessToken: "secret"},
		config.AccessToken{Global: "secret"},
		events, actions,
	)
	httpSrv := httptest.NewServer(s)
	defer httpSrv.Close()

	t.Run("missing identity rejected", func(t *testing.T) {
		resp, err := http.Get(httpSrv.URL)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("bad token rejected", func(t *testing.T) {
		header := http.Header{}
		header.Set("X-Self-ID", "99")
		header.Set("Authorization", "Bearer wrong")
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(httpSrv), header)
		if err == nil {
			t.Fatal("dial succeeded with a bad token")
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403 rejection, got %+v", resp)
		}
	})

	t.Run("admitted peer streams events", func(t *testing.T) {
		header := http.Header{}
		header.Set("X-Self-ID", "99")
		header.Set("Authorization", "Bearer secret")
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(httpSrv), header)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}

		expectAction(t, actions, bot.ActionAddBot)

		frame := `{"post_type":"message","message_type":"private","self_id":99,"user_id":5,"message_id":1,"message":[{"type":"text","data":{"text":"hi"}}],"raw_message":"hi","time":1700000000,"sender":{"user_id":5,"nickname":"u"}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write: %v", err)
		}

		select {
		case ev := <-sub:
			if ev.Category() != onebot.CategoryMessage || ev.SelfID() != "99" {
				t.Errorf("published event category=%s self=%s", ev.Category(), ev.SelfID())
			}
		case <-time.After(waitShort):
			t.Fatal("inbound frame never reached the broadcast")
		}

		conn.Close()
		expectAction(t, actions, bot.ActionRemoveBot)
	})

	t.Run("stale teardown names its own registration", func(t *testing.T) {
		header := http.Header{}
		header.Set("X-Self-ID", "99")
		header.Set("Authorization", "Bearer secret")

		first, _, err := websocket.DefaultDialer.Dial(wsURL(httpSrv), header)
		if err != nil {
			t.Fatalf("first dial: %v", err)
		}
		a1 := expectAction(t, actions, bot.ActionAddBot)

		// Reconnect under the same identity while the old socket lives.
		second, _, err := websocket.DefaultDialer.Dial(wsURL(httpSrv), header)
		if err != nil {
			t.Fatalf("second dial: %v", err)
		}
		defer second.Close()
		a2 := expectAction(t, actions, bot.ActionAddBot)

		first.Close()
		r := expectAction(t, actions, bot.ActionRemoveBot)
		if r.Pending != a1.Pending {
			t.Error("removal does not name the first registration")
		}
		if r.Pending == a2.Pending {
			t.Error("stale handler's removal names the live replacement")
		}
	})
}
