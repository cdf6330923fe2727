package httpserver

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/flow"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
)

// StreamHandler pushes flow views over a websocket, one JSON text frame
// per change. The first frame is the current view.
type StreamHandler struct {
	flows        *FlowHandler
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	ctx          context.Context
	logger       *zap.Logger
}

// NewStreamHandler creates a stream handler. Streams end when ctx is done.
func NewStreamHandler(ctx context.Context, flows *FlowHandler, pingInterval time.Duration, logger *zap.Logger) *StreamHandler {
	if pingInterval <= 0 || pingInterval >= streamPongWait {
		pingInterval = streamPongWait * 9 / 10
	}

	return &StreamHandler{
		flows: flows,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The API serves a browser UI on another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		ctx:          ctx,
		logger:       logger,
	}
}

// HandleStream handles GET /ws/flows/{kind}.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	m, ok := h.flows.machine(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("stream-upgrade-failed", zap.Error(err))
		return
	}
	defer conn.Close()

	views, cancel := m.Subscribe()
	defer cancel()

	StreamClientsActive.Inc()
	defer StreamClientsActive.Dec()

	h.logger.Info("stream-client-connected", zap.String("remote-addr", r.RemoteAddr))

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-closed:
			h.logger.Info("stream-client-disconnected", zap.String("remote-addr", r.RemoteAddr))
			return
		case <-ticker.C:
			err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait))
			if err != nil {
				h.logger.Debug("stream-ping-failed", zap.Error(err))
				return
			}
		case view, ok := <-views:
			if !ok {
				return
			}
			err = h.writeView(conn, view)
			if err != nil {
				h.logger.Debug("stream-write-failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *StreamHandler) writeView(conn *websocket.Conn, view flow.View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	err = conn.WriteMessage(websocket.TextMessage, data)
	if err != nil {
		return err
	}

	StreamMessagesTotal.Inc()
	return nil
}

// readLoop discards client frames and keeps the pong deadline fresh. It
// closes done when the connection fails.
func (h *StreamHandler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
