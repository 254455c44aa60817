package events

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
)

const pingInterval = 30 * time.Second

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and streams broker events over them. Incoming messages are
// read and discarded; the socket is push-only.
func HandleWebSocket(broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // household LAN, any origin
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		ch := broker.Subscribe()
		defer broker.Unsubscribe(ch)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go func() {
			defer cancel()
			// Read pump: detect close, discard input.
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case payload, open := <-ch:
				if !open {
					return
				}
				if err := conn.Write(ctx, ws.MessageText, payload); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.Ping(ctx); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}
