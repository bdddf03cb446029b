package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/expothearchive/archive-backend/internal/archive"
	"github.com/expothearchive/archive-backend/internal/feed"
	"github.com/expothearchive/archive-backend/pkg/logger"
	"github.com/expothearchive/archive-backend/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS policy is handled at the HTTP layer; the dev setup allows all
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// LiveFeedHandler streams full feed snapshots over a websocket. Each
// connection holds exactly one store subscription, cancelled when the peer
// goes away — no stale live connections accumulate.
func LiveFeedHandler(store *feed.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warnf("live feed upgrade failed: %v", err)
			return
		}
		sub := store.Subscribe()
		metrics.LiveSubscribers.Inc()
		defer func() {
			sub.Cancel()
			metrics.LiveSubscribers.Dec()
			conn.Close()
		}()

		// reader goroutine: we never expect client frames, but reading is
		// how websocket close/error is observed
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case snap, ok := <-sub.C:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(liveMessage{Type: "snapshot", Entries: snap, Total: len(snap)}); err != nil {
					return
				}
			}
		}
	}
}

type liveMessage struct {
	Type    string           `json:"type"`
	Entries []*archive.Entry `json:"entries"`
	Total   int              `json:"total"`
}
