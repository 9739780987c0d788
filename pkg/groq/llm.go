package groq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voxstore/voxstore/pkg/convo"
	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/pipeline"
)

// LLM turns a finalized user text frame into a streamed assistant
// response. The user turn is absorbed (it has already been recorded and
// used for knowledge injection upstream of this stage); the response is
// emitted as bot lifecycle frames bracketing one text frame per streamed
// delta. Bot lifecycle frames travel in both directions so the state
// tracker at the front of the pipeline observes them.
type LLM struct {
	client  *openai.Client
	model   string
	context *convo.Context
	logger  *slog.Logger
}

// NewLLM creates the language-model stage sharing the session context.
func NewLLM(cfg Config, ctx *convo.Context) *LLM {
	return &LLM{
		client:  cfg.client(),
		model:   cfg.LLMModel,
		context: ctx,
		logger:  cfg.logger("groq.llm"),
	}
}

// Name implements pipeline.Stage.
func (l *LLM) Name() string { return "groq-llm" }

// Process implements pipeline.Stage.
func (l *LLM) Process(ctx context.Context, f frame.Frame, dir frame.Direction) ([]pipeline.Emit, error) {
	txt, ok := f.(frame.Text)
	if !ok || dir != frame.Downstream {
		return pipeline.Forward(f, dir), nil
	}

	l.context.Append(convo.RoleUser, txt.Text)

	stream, err := l.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    l.model,
		Messages: l.requestMessages(),
		Stream:   true,
	})
	if err != nil {
		l.logger.Error("chat completion failed", "error", err)
		return []pipeline.Emit{{Frame: errorMessage(apology), Direction: frame.Downstream}}, nil
	}
	defer stream.Close()

	emits := []pipeline.Emit{
		{Frame: frame.Lifecycle{Kind: frame.BotStarted}, Direction: frame.Upstream},
		{Frame: frame.Lifecycle{Kind: frame.BotStarted}, Direction: frame.Downstream},
	}

	var response strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			l.logger.Error("chat stream failed", "error", err)
			emits = append(emits, pipeline.Emit{Frame: errorMessage(apology), Direction: frame.Downstream})
			break
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		response.WriteString(delta)
		emits = append(emits, pipeline.Emit{Frame: frame.Text{Text: delta}, Direction: frame.Downstream})
	}

	if response.Len() > 0 {
		l.context.Append(convo.RoleAssistant, response.String())
	}

	emits = append(emits,
		pipeline.Emit{Frame: frame.Lifecycle{Kind: frame.BotStopped}, Direction: frame.Downstream},
		pipeline.Emit{Frame: frame.Lifecycle{Kind: frame.BotStopped}, Direction: frame.Upstream},
	)
	return emits, nil
}

func (l *LLM) requestMessages() []openai.ChatCompletionMessage {
	history := l.context.Messages()
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return messages
}
