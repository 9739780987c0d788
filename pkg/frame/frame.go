// Package frame defines the units of data that flow through a voice
// pipeline: audio chunks, text chunks, lifecycle events, and transport
// messages bound for the client.
//
// Frame is a closed tagged variant; stages switch on the concrete type
// and forward anything they do not handle verbatim. A stage that is not
// the origin of a frame never drops it silently.
package frame

import "encoding/json"

// Direction indicates which way a frame is traveling through the pipeline.
type Direction int

const (
	// Downstream flows toward the session output (speaker).
	Downstream Direction = iota
	// Upstream flows toward the session input (microphone).
	Upstream
)

// String returns a short name for logging.
func (d Direction) String() string {
	if d == Upstream {
		return "upstream"
	}
	return "downstream"
}

// Frame is one unit of pipeline data. The set of implementations is
// closed: Audio, Text, Lifecycle, and TransportMessage.
type Frame interface {
	frame()
}

// Audio carries raw PCM16 audio.
type Audio struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Text carries a transcribed or generated text chunk.
type Text struct {
	Text string
}

// LifecycleKind identifies a conversation lifecycle transition.
type LifecycleKind int

const (
	SessionStart LifecycleKind = iota
	UserStarted
	UserStopped
	BotStarted
	BotStopped
)

// String returns the wire name of the lifecycle kind.
func (k LifecycleKind) String() string {
	switch k {
	case SessionStart:
		return "session_start"
	case UserStarted:
		return "user_started"
	case UserStopped:
		return "user_stopped"
	case BotStarted:
		return "bot_started"
	case BotStopped:
		return "bot_stopped"
	}
	return "unknown"
}

// Lifecycle marks a conversation lifecycle transition. These frames flow
// alongside the audio/text path and drive the state tracker and the
// transcript recorder.
type Lifecycle struct {
	Kind LifecycleKind
}

// TransportMessage carries an opaque JSON payload destined for (or
// received from) the session transport.
type TransportMessage struct {
	Payload json.RawMessage
}

func (Audio) frame()            {}
func (Text) frame()             {}
func (Lifecycle) frame()        {}
func (TransportMessage) frame() {}
