package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/singlnews/singl/internal/broadcast"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is public; the story stream carries nothing origin-sensitive.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStorySocket streams story updates over a WebSocket. The client
// receives the current version (or a null story) immediately, then one
// update message per newly published version.
func (s *Server) handleStorySocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	latest, err := s.db.LatestStory()
	if err != nil {
		log.Printf("Loading initial story for socket failed: %v", err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, broadcast.StoryMessage("initial", latest)); err != nil {
		return
	}

	if s.hub == nil {
		return
	}

	id, updates := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)
	log.Printf("WebSocket connected. Total connections: %d", s.hub.SubscriberCount())

	// Clients never send anything meaningful; the read loop only detects
	// disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Printf("WebSocket disconnected. Total connections: %d", s.hub.SubscriberCount()-1)
			return
		case message, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		}
	}
}
