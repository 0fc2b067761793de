package server

import "time"

// broadcastMessage queues a message to every connected client. Clients
// with a full send buffer are skipped rather than blocking the caller.
func (s *Server) broadcastMessage(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- msg:
		default:
			s.logger.Debugw("Client send buffer full, skipping",
				"client_id", client.id,
			)
		}
	}
}

// NotifyRefresh tells connected renderers that backend data changed and
// cached views should be reloaded. source names the backend that
// triggered the refresh.
func (s *Server) NotifyRefresh(source string) {
	s.broadcastMessage(map[string]any{
		"type":      "refresh",
		"source":    source,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
