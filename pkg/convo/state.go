package convo

import (
	"context"
	"encoding/json"

	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/pipeline"
)

// State is the conversation's coarse activity state as shown to clients.
type State string

const (
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateResponding State = "responding"
)

// StateTracker observes lifecycle frames and pushes a state notification
// downstream whenever the conversation state changes. The first mapped
// state is always emitted; an immediate repeat of the same state emits
// nothing. This stage never errors.
type StateTracker struct {
	state State // "" until the first mapped lifecycle frame
}

// NewStateTracker creates a tracker with undefined initial state.
func NewStateTracker() *StateTracker {
	return &StateTracker{}
}

// Name implements pipeline.Stage.
func (t *StateTracker) Name() string { return "state-tracker" }

// Process implements pipeline.Stage.
func (t *StateTracker) Process(_ context.Context, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	lc, ok := f.(frame.Lifecycle)
	if !ok {
		return pipeline.Forward(f, dir), nil
	}

	var next State
	switch lc.Kind {
	case frame.SessionStart, frame.UserStarted:
		// User-side transitions only count on the inbound path.
		if dir == frame.Downstream {
			next = StateListening
		}
	case frame.UserStopped:
		if dir == frame.Downstream {
			next = StateProcessing
		}
	case frame.BotStarted:
		// Bot transitions originate mid-pipeline and may arrive from
		// either direction.
		next = StateResponding
	case frame.BotStopped:
		next = StateListening
	}

	if next == "" || next == t.state {
		return pipeline.Forward(f, dir), nil
	}
	t.state = next

	payload, _ := json.Marshal(struct {
		Type  string `json:"type"`
		Value State  `json:"value"`
	}{Type: "state", Value: next})

	return []pipeline.Emit{
		{Frame: frame.TransportMessage{Payload: payload}, Direction: frame.Downstream},
		{Frame: f, Direction: dir},
	}, nil
}
