package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"routelink/internal/broadcast"
	"routelink/internal/events"
	"routelink/internal/middleware"
)

const writeWait = 10 * time.Second

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // observers are read-only; any origin may watch
	},
}

// wantsEvent filters by ?date= when the observer asked for one. Route
// updates and deletes carry no date and always pass.
func wantsEvent(date string, e events.Event) bool {
	return date == "" || e.Date == "" || e.Date == date
}

// HandleEventsWebSocket streams committed route and link mutations to the
// client as JSON events until either side closes.
func (h *Handler) HandleEventsWebSocket(c *gin.Context) {
	date := c.Query("date")
	id := middleware.IdentityFrom(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	fields := logrus.Fields{
		"subscriber_id": sub.ID,
		"user_id":       id.UserID,
		"date":          date,
	}
	logrus.WithFields(fields).Info("Observer WebSocket connection established.")

	var wg conc.WaitGroup
	wg.Go(func() { writeEvents(conn, sub, date) })

	// Observers never send anything meaningful; reading only detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).WithFields(fields).Debug("Observer read ended.")
			}
			break
		}
	}

	h.hub.Unsubscribe(sub)
	wg.Wait()
	logrus.WithFields(fields).Info("Observer WebSocket connection closed.")
}

func writeEvents(conn *websocket.Conn, sub *broadcast.Subscription, date string) {
	for e := range sub.C {
		if !wantsEvent(date, e) {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(e); err != nil {
			logrus.WithError(err).WithField("subscriber_id", sub.ID).Warn("Failed to send event to observer.")
			// closing unblocks the read loop, which unsubscribes
			conn.Close()
			break
		}
	}
	// drain so the hub never sees this buffer as full while unsubscribing
	for range sub.C {
	}
	// the hub may have stopped first; make sure the read loop returns
	conn.Close()
}
