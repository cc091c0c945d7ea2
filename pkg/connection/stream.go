// Package connection owns the physical sockets to gateway peers: the
// outbound client that dials a gateway, the reverse-WS server that accepts
// gateways dialing in, and the shared streaming loops that turn frames
// into events and calls into frames.
package connection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/bus"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
)

const component = "ws"

// outboundBuffer bounds the per-connection call queue.
const outboundBuffer = 32

// Keepalive parameters. A peer that answers neither pings nor sends any
// frame within pongWait is considered gone and the stream tears down,
// instead of lingering half-open until TCP gives up.
var (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// userAgent is sent on outbound handshakes.
const userAgent = "OneBot/11 onebus/0.1.0"

// stream pumps one registered socket in both directions: inbound frames
// become events (published to the broadcast) or call responses (resolved
// against the correlation table); outbound payloads are drained from the
// bot handle's queue and written to the socket.
type stream struct {
	conn    *websocket.Conn
	selfID  string
	events  *bus.EventBus
	api     <-chan onebot.Payload
	pending *bot.Pending
}

// run blocks until either direction fails or ctx is cancelled, then tears
// the socket down. It does not touch the registry; removal belongs to the
// caller that owns disconnect detection.
func (s *stream) run(ctx context.Context) {
	errc := make(chan error, 2)
	done := make(chan struct{})

	go s.readLoop(errc)
	go s.writeLoop(done, errc)

	select {
	case err := <-errc:
		logger.InfoCF(component, "stream ended", map[string]interface{}{
			"bot_id": s.selfID, "reason": err.Error(),
		})
	case <-ctx.Done():
	}
	s.conn.Close()
	close(done)
}

func (s *stream) readLoop(errc chan<- error) {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		// Any frame proves liveness, not just pongs.
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		if onebot.IsAPIResp(frame) {
			resp, err := onebot.DecodeResp(frame)
			if err != nil {
				logger.DebugCF(component, "dropping malformed response frame", map[string]interface{}{
					"bot_id": s.selfID, "error": err.Error(),
				})
				continue
			}
			s.pending.Resolve(*resp)
			continue
		}

		ev, err := onebot.DecodeEvent(frame)
		if err != nil {
			logger.DebugCF(component, "dropping unclassifiable frame", map[string]interface{}{
				"bot_id": s.selfID, "error": err.Error(),
			})
			continue
		}
		s.events.Publish(ev)
	}
}

func (s *stream) writeLoop(done <-chan struct{}, errc chan<- error) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				errc <- err
				return
			}
		case p := <-s.api:
			data, err := json.Marshal(p)
			if err != nil {
				logger.ErrorCF(component, "could not encode call", map[string]interface{}{
					"bot_id": s.selfID, "action": p.Action, "error": err.Error(),
				})
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				errc <- err
				return
			}
		}
	}
}
