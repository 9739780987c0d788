package web

import (
	"context"
	"log/slog"

	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/pipeline"
)

// audioLogStage counts inbound audio so operators can tell the client
// is actually sending sound. Logs every 50th chunk to avoid spam.
type audioLogStage struct {
	logger *slog.Logger

	chunks     int
	totalBytes int64
}

func (a *audioLogStage) Name() string { return "audio-log" }

func (a *audioLogStage) Process(_ context.Context, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	if audio, isAudio := f.(frame.Audio); isAudio && dir == frame.Downstream {
		a.chunks++
		a.totalBytes += int64(len(audio.Data))
		if a.chunks%50 == 1 {
			a.logger.Debug("receiving audio",
				"chunk", a.chunks,
				"size", len(audio.Data),
				"sample_rate", audio.SampleRate,
				"total_kb", float64(a.totalBytes)/1024)
		}
	}
	return pipeline.Forward(f, dir), nil
}
