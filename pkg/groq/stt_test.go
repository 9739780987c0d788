package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxstore/voxstore/pkg/frame"
)

func testConfig(baseURL string) Config {
	return Config{
		APIKey:   "gsk-test",
		BaseURL:  baseURL,
		STTModel: "whisper-large-v3-turbo",
		LLMModel: "llama-3.3-70b-versatile",
		TTSModel: "playai-tts",
		TTSVoice: "Celeste-PlayAI",
	}
}

// isErrorMessage reports whether f is the user-visible backend error message.
func isErrorMessage(t *testing.T, f frame.Frame) bool {
	t.Helper()
	tm, ok := f.(frame.TransportMessage)
	if !ok {
		return false
	}
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(tm.Payload, &msg); err != nil {
		t.Fatalf("unmarshal transport message: %v", err)
	}
	return msg.Type == "error"
}

func TestSTTAbsorbsAudioAndEmitsTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %s, want /audio/transcriptions", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": " what's my order status "})
	}))
	defer srv.Close()

	stt := NewSTT(testConfig(srv.URL))

	// Audio frames are absorbed into the utterance buffer.
	for i := 0; i < 3; i++ {
		emits, err := stt.Process(context.Background(), frame.Audio{
			Data: []byte{1, 2, 3, 4}, SampleRate: 16000, Channels: 1,
		}, frame.Downstream)
		if err != nil {
			t.Fatalf("Process(audio) error = %v", err)
		}
		if len(emits) != 0 {
			t.Fatalf("audio frame emitted %d frames, want 0", len(emits))
		}
	}

	emits, err := stt.Process(context.Background(), frame.Lifecycle{Kind: frame.UserStopped}, frame.Downstream)
	if err != nil {
		t.Fatalf("Process(user stopped) error = %v", err)
	}
	if len(emits) != 2 {
		t.Fatalf("emitted %d frames, want lifecycle + transcript", len(emits))
	}
	if lc, ok := emits[0].Frame.(frame.Lifecycle); !ok || lc.Kind != frame.UserStopped {
		t.Errorf("first emission = %#v, want forwarded UserStopped", emits[0].Frame)
	}
	txt, ok := emits[1].Frame.(frame.Text)
	if !ok {
		t.Fatalf("second emission = %#v, want Text", emits[1].Frame)
	}
	if txt.Text != "what's my order status" {
		t.Errorf("transcript = %q, want trimmed text", txt.Text)
	}
}

func TestSTTUserStoppedWithoutAudioForwards(t *testing.T) {
	stt := NewSTT(testConfig("http://unreachable.invalid"))

	emits, err := stt.Process(context.Background(), frame.Lifecycle{Kind: frame.UserStopped}, frame.Downstream)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(emits) != 1 {
		t.Errorf("emitted %d frames, want forward only", len(emits))
	}
}

func TestSTTBackendErrorIsVisibleNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	stt := NewSTT(testConfig(srv.URL))
	stt.Process(context.Background(), frame.Audio{Data: []byte{1, 2}, SampleRate: 16000, Channels: 1}, frame.Downstream)

	emits, err := stt.Process(context.Background(), frame.Lifecycle{Kind: frame.UserStopped}, frame.Downstream)
	if err != nil {
		t.Fatalf("Process() error = %v, backend failures must not terminate the session", err)
	}
	if len(emits) != 2 {
		t.Fatalf("emitted %d frames, want error message + lifecycle", len(emits))
	}
	if !isErrorMessage(t, emits[0].Frame) {
		t.Errorf("first emission = %#v, want error transport message", emits[0].Frame)
	}
	if _, ok := emits[1].Frame.(frame.Lifecycle); !ok {
		t.Errorf("lifecycle frame not forwarded after backend error")
	}
}

func TestSTTForwardsUpstreamFrames(t *testing.T) {
	stt := NewSTT(testConfig("http://unreachable.invalid"))

	in := frame.Lifecycle{Kind: frame.BotStarted}
	emits, err := stt.Process(context.Background(), in, frame.Upstream)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(emits) != 1 || emits[0].Frame != frame.Frame(in) || emits[0].Direction != frame.Upstream {
		t.Errorf("upstream frame not forwarded verbatim: %#v", emits)
	}
}
