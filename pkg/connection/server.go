package connection

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grvsrs/onebus/pkg/bot"
	"github.com/grvsrs/onebus/pkg/bus"
	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
)

// Server accepts reverse-WS gateways. Each admitted peer becomes an
// independent stream sharing only the event broadcast and the action
// channel with its siblings.
type Server struct {
	addr     string
	token    config.AccessToken
	events   *bus.EventBus
	actions  chan<- bot.Action
	upgrader websocket.Upgrader

	ctx context.Context
}

// NewServer builds a listener for the configured reverse-WS block.
func NewServer(cfg *config.ServerConfig, token config.AccessToken, events *bus.EventBus, actions chan<- bot.Action) *Server {
	return &Server{
		addr:    cfg.Addr(),
		token:   token,
		events:  events,
		actions: actions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Gateways are server-side peers, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx: context.Background(),
	}
}

// Run listens until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx
	srv := &http.Server{Addr: s.addr, Handler: s}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.InfoCF(component, "reverse-ws server listening", map[string]interface{}{"addr": s.addr})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP performs the mirrored handshake: the peer presents its
// identity in X-Self-ID and its token in Authorization. Auth failures are
// rejected with an explicit response and the connection is discarded; the
// framework never retries an inbound peer.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	selfID := r.Header.Get("X-Self-ID")
	if selfID == "" {
		logger.WarnC(component, "peer presented no X-Self-ID")
		http.Error(w, "missing X-Self-ID", http.StatusBadRequest)
		return
	}
	if !s.token.Check(selfID, r.Header.Get("Authorization")) {
		http.Error(w, "authorization failed", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCF(component, "upgrade failed", map[string]interface{}{
			"bot_id": selfID, "error": err.Error(),
		})
		return
	}

	api := make(chan onebot.Payload, outboundBuffer)
	pending := bot.NewPending()
	s.actions <- bot.AddBot(selfID, api, pending)
	logger.InfoCF(component, "bot connected", map[string]interface{}{
		"bot_id": selfID, "remote": r.RemoteAddr,
	})

	st := &stream{conn: conn, selfID: selfID, events: s.events, api: api, pending: pending}
	st.run(s.ctx)

	s.actions <- bot.RemoveBot(selfID, pending)
}
