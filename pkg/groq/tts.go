package groq

import (
	"context"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/pipeline"
)

// TTS synthesizes the bot's buffered response text into audio. Text
// chunks are buffered as they stream past; when the bot finishes
// speaking the whole utterance is synthesized in one call and the audio
// continues downstream ahead of the closing lifecycle frame.
type TTS struct {
	client *openai.Client
	model  string
	voice  string
	logger *slog.Logger

	buf strings.Builder
}

// NewTTS creates the text-to-speech stage.
func NewTTS(cfg Config) *TTS {
	return &TTS{
		client: cfg.client(),
		model:  cfg.TTSModel,
		voice:  cfg.TTSVoice,
		logger: cfg.logger("groq.tts"),
	}
}

// Name implements pipeline.Stage.
func (t *TTS) Name() string { return "groq-tts" }

// Process implements pipeline.Stage.
func (t *TTS) Process(ctx context.Context, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	if dir != frame.Downstream {
		return pipeline.Forward(f, dir), nil
	}

	switch fr := f.(type) {
	case frame.Text:
		t.buf.WriteString(fr.Text)
		return pipeline.Forward(f, dir), nil

	case frame.Lifecycle:
		if fr.Kind != frame.BotStopped {
			return pipeline.Forward(f, dir), nil
		}
		text := strings.TrimSpace(t.buf.String())
		t.buf.Reset()
		if text == "" {
			return pipeline.Forward(f, dir), nil
		}
		return t.synthesize(ctx, text, f, dir)
	}

	return pipeline.Forward(f, dir), nil
}

func (t *TTS) synthesize(ctx context.Context, text string, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	resp, err := t.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(t.model),
		Input:          text,
		Voice:          openai.SpeechVoice(t.voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		t.logger.Error("speech synthesis failed", "error", err)
		return []pipeline.Emit{
			{Frame: errorMessage(apology), Direction: frame.Downstream},
			{Frame: f, Direction: dir},
		}, nil
	}
	defer resp.Close()

	wav, err := io.ReadAll(resp)
	if err != nil {
		t.logger.Error("speech read failed", "error", err)
		return []pipeline.Emit{
			{Frame: errorMessage(apology), Direction: frame.Downstream},
			{Frame: f, Direction: dir},
		}, nil
	}

	pcm, sampleRate, channels, err := decodeWAV(wav)
	if err != nil {
		t.logger.Error("speech decode failed", "error", err)
		return []pipeline.Emit{
			{Frame: errorMessage(apology), Direction: frame.Downstream},
			{Frame: f, Direction: dir},
		}, nil
	}

	t.logger.Info("speech synthesized", "chars", len(text), "bytes", len(pcm), "sample_rate", sampleRate)
	return []pipeline.Emit{
		{Frame: frame.Audio{Data: pcm, SampleRate: sampleRate, Channels: channels}, Direction: frame.Downstream},
		{Frame: f, Direction: dir},
	}, nil
}
