package connection

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/bus"
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// retryDelay is the fixed pause between reconnect attempts.
var retryDelay = 5 * time.Second

// RunClient dials a gateway at url and keeps it connected for the life of
// ctx. The connection never gives up: any failure falls back to a retry
// after the fixed delay. botID selects the access token for the
// Authorization header; the actual identity is learned from the first
// inbound frame.
func RunClient(ctx context.Context, url, botID string, token config.AccessToken, events *bus.EventBus, actions chan<- bot.Action) {
	for {
		if registered, pending := dialOnce(ctx, url, botID, token, events, actions); registered != "" {
			actions <- bot.RemoveBot(registered, pending)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

// dialOnce runs one full connection cycle and returns the identity it
// registered along with the registration's correlation table, or "" when
// the attempt died before registration.
func dialOnce(ctx context.Context, url, botID string, token config.AccessToken, events *bus.EventBus, actions chan<- bot.Action) (string, *bot.Pending) {
	header := http.Header{}
	header.Set("Authorization", token.Header(botID))
	header.Set("User-Agent", userAgent)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		logger.WarnCF(component, "dial failed", map[string]interface{}{
			"url": url, "error": err.Error(),
		})
		return "", nil
	}

	// The first frame must decode to an event carrying the bot's own
	// identity; anything else aborts the attempt.
	_, frame, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		logger.WarnCF(component, "no handshake frame", map[string]interface{}{
			"url": url, "error": err.Error(),
		})
		return "", nil
	}
	ev, err := onebot.DecodeEvent(frame)
	if err != nil {
		conn.Close()
		logger.WarnCF(component, "handshake frame did not resolve an identity", map[string]interface{}{
			"url": url, "error": err.Error(),
		})
		return "", nil
	}
	selfID := ev.SelfID()

	api := make(chan onebot.Payload, outboundBuffer)
	pending := bot.NewPending()
	actions <- bot.AddBot(selfID, api, pending)
	logger.InfoCF(component, "connected to bot server", map[string]interface{}{
		"bot_id": selfID, "url": url,
	})

	s := &stream{conn: conn, selfID: selfID, events: events, api: api, pending: pending}
	s.run(ctx)
	return selfID, pending
}
