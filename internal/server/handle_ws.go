package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ecoquest/ecoquest/internal/quest"
)

// wsMessage wraps everything sent over the hunt socket.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleHuntWS pushes a hunt snapshot followed by its events over a
// WebSocket. Client messages are ignored.
func handleHuntWS(svc *quest.Service, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID := chi.URLParam(r, "huntId")
		h, err := svc.GetHunt(r.Context(), huntID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch := broker.Subscribe(huntID)
		defer broker.Unsubscribe(huntID, ch)

		ctx, cancel := context.WithTimeout(r.Context(), time.Hour)
		defer cancel()
		ctx = conn.CloseRead(ctx)

		if err := wsjson.Write(ctx, conn, wsMessage{Type: "snapshot", Data: h}); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case e := <-ch:
				if err := wsjson.Write(ctx, conn, wsMessage{Type: e.Type, Data: e}); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				if err := conn.Ping(ctx); err != nil {
					logger.Debug("websocket ping failed", "error", err)
					return
				}
			}
		}
	}
}
