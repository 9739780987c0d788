// Package protocol defines the JSON websocket wire format between
// browser clients and a voice session.
//
// Every message is a JSON object with a "type" discriminator:
//
//   - "audio":   base64 PCM chunk with sample_rate and channels
//   - "event":   client-side speech marks (user_started, user_stopped)
//   - "message": an opaque JSON payload (state updates, transcripts,
//     errors on the outbound side)
//
// Audio and message types flow both ways; events are inbound only.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/voxstore/voxstore/pkg/frame"
)

// Wire message types.
const (
	TypeAudio   = "audio"
	TypeEvent   = "event"
	TypeMessage = "message"
)

// Defaults applied to inbound audio when the client omits format fields.
const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

// ErrUnknownType is returned for messages with a missing or unsupported
// type discriminator.
var ErrUnknownType = errors.New("protocol: unknown message type")

type envelope struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	SampleRate int             `json:"sample_rate,omitempty"`
	Channels   int             `json:"channels,omitempty"`
	Value      string          `json:"value,omitempty"`
}

// Unmarshal decodes one inbound wire message into a frame.
func Unmarshal(data []byte) (frame.Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}

	switch env.Type {
	case TypeAudio:
		var encoded string
		if err := json.Unmarshal(env.Data, &encoded); err != nil {
			return nil, fmt.Errorf("protocol: audio data: %w", err)
		}
		pcm, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("protocol: audio data: %w", err)
		}
		sampleRate := env.SampleRate
		if sampleRate == 0 {
			sampleRate = DefaultSampleRate
		}
		channels := env.Channels
		if channels == 0 {
			channels = DefaultChannels
		}
		return frame.Audio{Data: pcm, SampleRate: sampleRate, Channels: channels}, nil

	case TypeEvent:
		switch env.Value {
		case "user_started":
			return frame.Lifecycle{Kind: frame.UserStarted}, nil
		case "user_stopped":
			return frame.Lifecycle{Kind: frame.UserStopped}, nil
		}
		return nil, fmt.Errorf("protocol: unknown event %q", env.Value)

	case TypeMessage:
		return frame.TransportMessage{Payload: env.Data}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}

// Marshal encodes an outbound frame into a wire message. Frame kinds
// that never cross the transport (text, lifecycle) return ok=false.
func Marshal(f frame.Frame) (data []byte, ok bool) {
	switch fr := f.(type) {
	case frame.Audio:
		data, err := json.Marshal(struct {
			Type       string `json:"type"`
			Data       string `json:"data"`
			SampleRate int    `json:"sample_rate"`
			Channels   int    `json:"channels"`
		}{
			Type:       TypeAudio,
			Data:       base64.StdEncoding.EncodeToString(fr.Data),
			SampleRate: fr.SampleRate,
			Channels:   fr.Channels,
		})
		return data, err == nil

	case frame.TransportMessage:
		data, err := json.Marshal(struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}{Type: TypeMessage, Data: fr.Payload})
		return data, err == nil
	}

	return nil, false
}
