package convo

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/hub"
	"github.com/voxstore/voxstore/pkg/pipeline"
)

// Recorder forwards a speaker's finalized utterances to the transcript
// hub.
//
// The user role records each text frame immediately (speech-to-text
// already produces one finalized result per turn) and pushes a full
// transcript snapshot downstream for the session's own client. The bot
// role buffers streamed chunks and flushes one combined utterance when
// the bot stops speaking.
type Recorder struct {
	role string
	hub  *hub.Hub

	buffer strings.Builder
}

// NewRecorder creates a recorder for hub.SpeakerUser or hub.SpeakerBot.
func NewRecorder(role string, h *hub.Hub) *Recorder {
	return &Recorder{role: role, hub: h}
}

// Name implements pipeline.Stage.
func (r *Recorder) Name() string { return "transcript-" + r.role }

// Process implements pipeline.Stage.
func (r *Recorder) Process(_ context.Context, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	switch fr := f.(type) {
	case frame.Text:
		if dir != frame.Downstream {
			break
		}
		if r.role == hub.SpeakerBot {
			// LLM responses stream chunk by chunk; buffer until the
			// bot finishes so the transcript shows one message.
			r.buffer.WriteString(fr.Text)
			break
		}

		r.hub.Add(hub.SpeakerUser, fr.Text)
		payload, err := json.Marshal(r.hub.Snapshot())
		if err != nil {
			break
		}
		return []pipeline.Emit{
			{Frame: frame.TransportMessage{Payload: payload}, Direction: frame.Downstream},
			{Frame: f, Direction: dir},
		}, nil

	case frame.Lifecycle:
		if fr.Kind == frame.BotStopped && r.role == hub.SpeakerBot {
			if text := strings.TrimSpace(r.buffer.String()); text != "" {
				r.hub.Add(hub.SpeakerBot, text)
			}
			r.buffer.Reset()
		}
	}

	return pipeline.Forward(f, dir), nil
}
