package hub

// sendBuffer is the per-subscriber queue depth. A subscriber that falls
// this far behind is dropped rather than blocking the hub.
const sendBuffer = 64

// Subscriber is one observer connection handle. Handles are one-way:
// once unsubscribed, a handle cannot be re-registered.
type Subscriber struct {
	hub  *Hub
	send chan []byte
}

// Out returns the channel of serialized transcript snapshots. The
// channel is closed when the subscriber is removed from the hub.
func (s *Subscriber) Out() <-chan []byte {
	return s.send
}

// Close unsubscribes the handle from its hub.
func (s *Subscriber) Close() {
	s.hub.Unsubscribe(s)
}
