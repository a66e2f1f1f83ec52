package daemon

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// registerEvents exposes the controller event stream as a websocket.
// Each event is sent as one JSON text message.
func (s *Server) registerEvents(api fiber.Router) {
	api.Use("/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	api.Get("/events", websocket.New(func(conn *websocket.Conn) {
		sub := s.events.Subscribe()
		if sub == nil {
			_ = conn.Close()
			return
		}
		defer s.events.Unsubscribe(sub.ID)

		// Reader goroutine exists only to detect the peer closing.
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
			case event, ok := <-sub.Events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					s.logger.Warn("event marshal failed", "error", err)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}))
}
