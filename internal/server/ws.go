package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin is already handled by the CORS middleware; the browser
	// client connects from a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscribeHandler is the subscribe-with-filter primitive: the filter is
// the authenticated user id. The current collection snapshot is pushed
// immediately, then again after every committed write, until the client
// disconnects or the user signs out.
func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading subscription for user %s: %v", userID, err)
		return
	}

	sub := s.hub.Subscribe(userID)
	defer s.hub.Unsubscribe(sub)

	// Initial snapshot so the client renders without waiting for a write.
	snapshot, err := s.todos.Snapshot(r.Context(), userID)
	if err != nil {
		// A snapshot failure on a scoped read is treated as an
		// authorization problem: close rather than serve stale or
		// wrong-scoped data.
		log.Printf("Error deriving initial snapshot for user %s: %v", userID, err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscription unauthorized"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
		conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
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
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case payload, ok := <-sub.Messages():
			if !ok {
				// Dropped by the hub: signed out or too slow.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "subscription closed"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
