package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// handleWatch streams the plan's views over a websocket. The current views
// are sent immediately, then again on every change.
func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")

	// Subscribe before reading so a change landing in between is still pushed.
	sub := h.hub.Subscribe(planID)
	defer sub.Close()

	views, err := h.svc.Views(r.Context(), planID, time.Time{})
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Streams outlive the server's per-request deadlines.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "plan_id", planID, "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	if err := writeViews(ctx, conn, views); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			if err := writeViews(ctx, conn, v); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Debug("websocket write failed", "plan_id", planID, "error", err)
				}
				return
			}
		}
	}
}

func writeViews(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
