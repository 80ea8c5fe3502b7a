/*
countdown.go - Websocket feed of due-time countdowns

PURPOSE:
  Replaces the dashboard's one-second polling. After the upgrade the
  server pushes a CountdownMessageDTO on every tick until the client
  goes away.

READ-ONLY:
  Each tick reads the stored records and projects them at the current
  time. Late fees in the frames are live values; nothing is written back.
  The accrual scheduler owns persistence.

CONNECTION HANDLING:
  - readPump drains client frames so close and pong control frames are
    processed, and cancels the feed when the peer disconnects
  - the write loop sends one frame per tick plus periodic pings
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/warp/sports-checkout/checkout"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware already restricts browser origins
	},
}

// CountdownFeed upgrades the request and streams countdowns.
func (h *Handler) CountdownFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go readPump(conn, cancel)

	interval := h.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// First frame goes out immediately so clients do not wait a full tick.
	if err := h.sendCountdowns(ctx, conn); err != nil {
		h.Logger.Debug("countdown feed closed", zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-tick.C:
			if err := h.sendCountdowns(ctx, conn); err != nil {
				h.Logger.Debug("countdown feed closed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) sendCountdowns(ctx context.Context, conn *websocket.Conn) error {
	records, err := h.Engine.Records(ctx)
	if err != nil {
		return err
	}

	now := h.Engine.Clock.Now()
	msg := CountdownMessageDTO{
		At:     checkout.NewTimestamp(now),
		Issues: h.Engine.Policy.Countdowns(records, now),
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
