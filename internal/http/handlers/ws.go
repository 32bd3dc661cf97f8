package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"service-courier-match/internal/events"
	"service-courier-match/internal/logx"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = wsPongWait * 9 / 10
	wsReadLimit    = 512
)

// WSHandler streams match events of one order over a websocket.
type WSHandler struct {
	subscriber   events.Subscriber
	entries      entryReader
	logger       logx.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(logger logx.Logger, sub events.Subscriber, entries entryReader) *WSHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &WSHandler{
		subscriber: sub,
		entries:    entries,
		logger:     logger.With(logx.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingInterval: wsPingInterval,
	}
}

// Matches handles GET /ws/matches?order_id=. Only the owner of the order may
// subscribe. The current state is sent first, then every newer one.
func (h *WSHandler) Matches(w http.ResponseWriter, r *http.Request) {
	party, ok := partyOf(h.logger, w, r)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if orderID == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "order_id is required")
		return
	}

	entry, err := h.entries.GetEntry(r.Context(), orderID)
	switch {
	case err != nil:
		writeServiceError(h.logger, w, r, err)
		return
	case entry == nil:
		writeError(h.logger, w, r, http.StatusNotFound, "order not found")
		return
	case entry.OwnerID != party:
		writeError(h.logger, w, r, http.StatusForbidden, "not the owner of this order")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.Info("websocket upgrade failed", logx.Err(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.subscriber.Subscribe(ctx, orderID)
	if err != nil {
		h.logger.Error("subscribe failed", logx.OrderID(orderID), logx.Err(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(wsWriteTimeout))
		return
	}
	defer sub.Close()

	log := h.logger.With(logx.OrderID(orderID), logx.PartyID(party))
	log.Debug("websocket subscribed")
	go readPump(conn, cancel)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				log.Debug("websocket write failed", logx.Err(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed and
// cancels once the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
