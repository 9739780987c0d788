package web

import (
	"github.com/gofiber/websocket/v2"
)

// handleTranscriptionWS streams transcript snapshots to an observer.
// Observers are read-only: inbound messages are drained purely to
// detect disconnects.
func (s *Server) handleTranscriptionWS(c *websocket.Conn) {
	sub := s.hub.Subscribe()
	s.logger.Info("transcript observer connected", "remote", c.RemoteAddr().String())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		var failed bool
		for payload := range sub.Out() {
			if failed {
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				// Unsubscribing closes Out, which ends this loop once
				// the remaining buffered payloads drain.
				failed = true
				s.hub.Unsubscribe(sub)
				c.Close()
			}
		}
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unsubscribe(sub)
	<-writerDone
	c.Close()
	s.logger.Info("transcript observer disconnected")
}
