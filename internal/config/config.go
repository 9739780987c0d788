// Package config provides environment-driven configuration for voxstore.
package config

import (
	"errors"
	"os"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultAddr     = ":8000"
	DefaultDataPath = "data/store.json"
	DefaultLogLevel = "info"

	DefaultSTTModel = "whisper-large-v3-turbo"
	DefaultLLMModel = "llama-3.3-70b-versatile"
	DefaultTTSModel = "playai-tts"
	DefaultTTSVoice = "Celeste-PlayAI"
)

// ErrMissingAPIKey is returned when a session requires a Groq API key
// and none is configured.
var ErrMissingAPIKey = errors.New("config: GROQ_API_KEY not set")

// Config holds all service settings.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string

	// DataPath is the location of the static store snapshot.
	DataPath string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// GroqAPIKey authorizes the STT/LLM/TTS backends. May be empty;
	// voice sessions are refused until it is set, but the health and
	// transcript endpoints keep working.
	GroqAPIKey string

	// GroqBaseURL overrides the backend endpoint. Empty means the
	// public Groq API.
	GroqBaseURL string

	// Backend model selection.
	STTModel string
	LLMModel string
	TTSModel string
	TTSVoice string
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() Config {
	return Config{
		Addr:        envOr("ADDR", DefaultAddr),
		DataPath:    envOr("DATA_PATH", DefaultDataPath),
		LogLevel:    envOr("LOG_LEVEL", DefaultLogLevel),
		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		GroqBaseURL: os.Getenv("GROQ_BASE_URL"),
		STTModel:    envOr("GROQ_STT_MODEL", DefaultSTTModel),
		LLMModel:    envOr("GROQ_LLM_MODEL", DefaultLLMModel),
		TTSModel:    envOr("GROQ_TTS_MODEL", DefaultTTSModel),
		TTSVoice:    envOr("GROQ_TTS_VOICE", DefaultTTSVoice),
	}
}

// RequireAPIKey reports whether voice sessions can be served.
func (c Config) RequireAPIKey() error {
	if c.GroqAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
