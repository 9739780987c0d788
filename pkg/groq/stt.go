package groq

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/pipeline"
)

// STT transcribes buffered user audio. Audio frames are absorbed into a
// per-utterance buffer; when the user stops speaking the buffer is sent
// to the transcription endpoint and the result continues downstream as a
// text frame.
type STT struct {
	client *openai.Client
	model  string
	logger *slog.Logger

	buf        bytes.Buffer
	sampleRate int
	channels   int
}

// NewSTT creates the speech-to-text stage.
func NewSTT(cfg Config) *STT {
	return &STT{
		client: cfg.client(),
		model:  cfg.STTModel,
		logger: cfg.logger("groq.stt"),
	}
}

// Name implements pipeline.Stage.
func (s *STT) Name() string { return "groq-stt" }

// Process implements pipeline.Stage.
func (s *STT) Process(ctx context.Context, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	if dir != frame.Downstream {
		return pipeline.Forward(f, dir), nil
	}

	switch fr := f.(type) {
	case frame.Audio:
		s.buf.Write(fr.Data)
		s.sampleRate = fr.SampleRate
		s.channels = fr.Channels
		// Raw audio terminates here; only its transcript continues.
		return nil, nil

	case frame.Lifecycle:
		if fr.Kind != frame.UserStopped || s.buf.Len() == 0 {
			return pipeline.Forward(f, dir), nil
		}
		return s.transcribe(ctx, f, dir)
	}

	return pipeline.Forward(f, dir), nil
}

func (s *STT) transcribe(ctx context.Context, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	wav := encodeWAV(s.buf.Bytes(), s.sampleRate, s.channels)
	s.buf.Reset()

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(wav),
		Language: "en",
	})
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		return []pipeline.Emit{
			{Frame: errorMessage(apology), Direction: frame.Downstream},
			{Frame: f, Direction: dir},
		}, nil
	}

	text := strings.TrimSpace(resp.Text)
	s.logger.Info("transcription received", "text", text)

	emits := pipeline.Forward(f, dir)
	if text != "" {
		emits = append(emits, pipeline.Emit{Frame: frame.Text{Text: text}, Direction: frame.Downstream})
	}
	return emits, nil
}
