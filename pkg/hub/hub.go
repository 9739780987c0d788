// Package hub provides the process-wide transcript broadcast hub.
//
// The hub owns the ordered transcript entry sequence and the set of
// observer subscriptions. Every append fans the full serialized sequence
// out to all current subscribers; each snapshot is a complete resend, so
// a subscriber that misses one update self-corrects on the next append.
//
// The transcript is a live-session view, not durable storage: when the
// last subscriber disconnects the entry sequence is cleared.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Speaker roles recorded in the transcript.
const (
	SpeakerUser = "user"
	SpeakerBot  = "bot"
)

// Entry is one finalized utterance in the transcript. Field names match
// the wire format observers receive.
type Entry struct {
	Speaker string `json:"type"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// Hub is the shared transcript store and broadcaster. A single instance
// lives for the process and is injected into every session and observer
// handler.
type Hub struct {
	mu      sync.Mutex
	entries []Entry
	subs    map[*Subscriber]bool

	logger *slog.Logger
	now    func() time.Time
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		subs:   make(map[*Subscriber]bool),
		logger: slog.Default().With("component", "hub"),
		now:    time.Now,
	}
}

// Add appends one utterance and delivers the full entry sequence to
// every current subscriber. A subscriber whose queue is saturated is
// removed; delivery to the others continues.
func (h *Hub) Add(speaker, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Entry{
		Speaker: speaker,
		Message: text,
		Time:    h.now().Format("2006-01-02 15:04:05"),
	})

	if len(h.subs) == 0 {
		return
	}
	h.broadcastLocked()
}

// broadcastLocked queues the current serialized sequence on every
// subscriber. Queueing is non-blocking; the per-subscriber writer
// goroutines deliver concurrently outside the lock.
func (h *Hub) broadcastLocked() {
	payload, err := json.Marshal(h.entries)
	if err != nil {
		h.logger.Error("marshal transcript", "error", err)
		return
	}

	for s := range h.subs {
		select {
		case s.send <- payload:
		default:
			// Subscriber can't keep up; drop it.
			h.logger.Warn("dropping slow transcript subscriber")
			h.removeLocked(s)
		}
	}
}

// Snapshot returns a copy of the current entry sequence.
func (h *Hub) Snapshot() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Subscribe registers a new observer. If entries already exist, the full
// current sequence is queued for the new subscriber before any further
// updates.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{hub: h, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = true
	h.logger.Info("transcript subscriber connected", "subscribers", len(h.subs))

	if len(h.entries) > 0 {
		if payload, err := json.Marshal(h.entries); err == nil {
			s.send <- payload
		}
	}
	return s
}

// Unsubscribe removes an observer. Removing the last subscriber clears
// the entire entry sequence. Safe to call more than once.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.subs[s] {
		return
	}
	h.removeLocked(s)
	h.logger.Info("transcript subscriber disconnected", "subscribers", len(h.subs))
}

// removeLocked deletes the subscriber and applies the reset-on-idle
// policy. The send channel is closed under the lock, so no queueing can
// race the close.
func (h *Hub) removeLocked(s *Subscriber) {
	delete(h.subs, s)
	close(s.send)
	if len(h.subs) == 0 {
		h.entries = nil
	}
}

// SubscriberCount returns the number of connected observers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
