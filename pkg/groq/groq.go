// Package groq implements the speech-to-text, language-model, and
// text-to-speech pipeline stages on Groq's OpenAI-compatible API.
//
// Each stage treats the backend as an opaque collaborator: the stage
// suspends its own session while a request is in flight and never blocks
// other sessions. Backend failures surface as a visible error message on
// the session transport instead of tearing the session down.
package groq

import (
	"encoding/json"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voxstore/voxstore/internal/httpc"
	"github.com/voxstore/voxstore/pkg/frame"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Config holds the shared backend settings for the three stages.
type Config struct {
	APIKey  string
	BaseURL string // defaults to DefaultBaseURL

	STTModel string
	LLMModel string
	TTSModel string
	TTSVoice string

	HTTPClient *http.Client // defaults to httpc.Client
	Logger     *slog.Logger // defaults to slog.Default()
}

func (c Config) client() *openai.Client {
	cfg := openai.DefaultConfig(c.APIKey)
	cfg.BaseURL = c.BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	// cfg.HTTPClient is an interface; assigning a nil *http.Client would
	// make it non-nil and skip the fallback, so only assign when set.
	cfg.HTTPClient = httpc.Client
	if c.HTTPClient != nil {
		cfg.HTTPClient = c.HTTPClient
	}
	return openai.NewClientWithConfig(cfg)
}

func (c Config) logger(component string) *slog.Logger {
	l := c.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", component)
}

// errorMessage builds the transport message shown to the user when a
// backend call fails. The error is reported, never swallowed.
func errorMessage(detail string) frame.TransportMessage {
	payload, _ := json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{Type: "error", Message: detail})
	return frame.TransportMessage{Payload: payload}
}

// apology is the user-facing text for backend failures.
const apology = "Sorry, something went wrong on my end. Please try that again."
