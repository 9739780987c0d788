package web

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/voxstore/voxstore/internal/config"
	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/hub"
	"github.com/voxstore/voxstore/pkg/store"
)

// wavFixture builds a minimal RIFF/WAVE container around raw PCM16.
func wavFixture(pcm []byte, sampleRate, channels int) []byte {
	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// fakeBackend emulates the three Groq endpoints for one user turn.
type fakeBackend struct {
	mu         sync.Mutex
	transcript string
	reply      string
	pcm        []byte

	llmMessages [][]struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
}

func (b *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/transcriptions":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"text": b.transcript})
		case "/chat/completions":
			var req struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			b.mu.Lock()
			b.llmMessages = append(b.llmMessages, req.Messages)
			b.mu.Unlock()

			w.Header().Set("Content-Type", "text/event-stream")
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion.chunk",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": b.reply}}},
			})
			fmt.Fprintf(w, "data: %s\n\ndata: [DONE]\n\n", chunk)
		case "/audio/speech":
			w.Header().Set("Content-Type", "audio/wav")
			w.Write(wavFixture(b.pcm, 24000, 1))
		default:
			http.NotFound(w, r)
		}
	}
}

// drainOut collects everything the pipeline has queued for the client.
// Pushes are synchronous, so after the last Push the queue is complete.
func drainOut(sess *session) []frame.Frame {
	var frames []frame.Frame
	for {
		select {
		case f := <-sess.out:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

// stateValues extracts the conversational state notifications in order.
func stateValues(t *testing.T, frames []frame.Frame) []string {
	t.Helper()
	var states []string
	for _, f := range frames {
		tm, ok := f.(frame.TransportMessage)
		if !ok {
			continue
		}
		var msg struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(tm.Payload, &msg); err != nil {
			t.Fatalf("unmarshal transport message: %v", err)
		}
		if msg.Type == "state" {
			states = append(states, msg.Value)
		}
	}
	return states
}

func TestVoiceSessionFullTurn(t *testing.T) {
	backend := &fakeBackend{
		transcript: "What is the status of order number 1003?",
		reply:      "Your order has shipped and is on its way.",
		pcm:        []byte{10, 20, 30, 40, 50, 60},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	st, err := store.Load("testdata/store.json")
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	h := hub.New()

	cfg := config.Config{
		GroqAPIKey:  "gsk-test",
		GroqBaseURL: srv.URL,
		STTModel:    config.DefaultSTTModel,
		LLMModel:    config.DefaultLLMModel,
		TTSModel:    config.DefaultTTSModel,
		TTSVoice:    config.DefaultTTSVoice,
	}
	sess := newSession(cfg, st, h)

	ctx := context.Background()
	pushes := []frame.Frame{
		frame.Lifecycle{Kind: frame.SessionStart},
		frame.Audio{Data: []byte{1, 2, 3, 4}, SampleRate: 16000, Channels: 1},
		frame.Lifecycle{Kind: frame.UserStarted},
		frame.Lifecycle{Kind: frame.UserStopped},
	}
	for _, f := range pushes {
		if err := sess.task.Push(ctx, f, frame.Downstream); err != nil {
			t.Fatalf("Push(%#v) error = %v", f, err)
		}
	}

	frames := drainOut(sess)

	// State walks the full turn: session start, utterance end, bot
	// response, back to listening.
	wantStates := []string{"listening", "processing", "responding", "listening"}
	gotStates := stateValues(t, frames)
	if len(gotStates) != len(wantStates) {
		t.Fatalf("states = %v, want %v", gotStates, wantStates)
	}
	for i := range wantStates {
		if gotStates[i] != wantStates[i] {
			t.Fatalf("states = %v, want %v", gotStates, wantStates)
		}
	}

	// Synthesized speech reaches the client with the backend's format.
	var audio []frame.Audio
	for _, f := range frames {
		if a, ok := f.(frame.Audio); ok {
			audio = append(audio, a)
		}
	}
	if len(audio) != 1 {
		t.Fatalf("got %d audio frames, want 1", len(audio))
	}
	if !bytes.Equal(audio[0].Data, backend.pcm) || audio[0].SampleRate != 24000 || audio[0].Channels != 1 {
		t.Errorf("audio = %d bytes @ %dHz/%dch", len(audio[0].Data), audio[0].SampleRate, audio[0].Channels)
	}

	// Both speakers land in the shared transcript.
	snapshot := h.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("transcript has %d entries, want 2: %+v", len(snapshot), snapshot)
	}
	if snapshot[0].Speaker != hub.SpeakerUser || snapshot[0].Message != backend.transcript {
		t.Errorf("user entry = %+v", snapshot[0])
	}
	if snapshot[1].Speaker != hub.SpeakerBot || snapshot[1].Message != backend.reply {
		t.Errorf("bot entry = %+v", snapshot[1])
	}

	// The order lookup was injected before the model request.
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.llmMessages) != 1 {
		t.Fatalf("llm called %d times, want 1", len(backend.llmMessages))
	}
	var foundFact bool
	for _, m := range backend.llmMessages[0] {
		if m.Role == "system" && strings.Contains(m.Content, "Order lookup result for order number 1003") {
			foundFact = true
			if !strings.Contains(m.Content, "Status: shipped") {
				t.Errorf("lookup fact missing order status: %q", m.Content)
			}
		}
	}
	if !foundFact {
		t.Error("no order lookup fact in model request")
	}
}

func TestVoiceSessionBackendFailureKeepsPipelineAlive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	st, _ := store.Load("testdata/store.json")
	cfg := config.Config{GroqAPIKey: "gsk-test", GroqBaseURL: srv.URL}
	sess := newSession(cfg, st, hub.New())

	ctx := context.Background()
	sess.task.Push(ctx, frame.Audio{Data: []byte{1, 2}, SampleRate: 16000, Channels: 1}, frame.Downstream)
	if err := sess.task.Push(ctx, frame.Lifecycle{Kind: frame.UserStopped}, frame.Downstream); err != nil {
		t.Fatalf("Push() error = %v, backend failure must not terminate the session", err)
	}

	select {
	case <-sess.task.Done():
		t.Fatal("pipeline terminated on backend failure")
	default:
	}

	var sawError bool
	for _, f := range drainOut(sess) {
		tm, ok := f.(frame.TransportMessage)
		if !ok {
			continue
		}
		var msg struct {
			Type string `json:"type"`
		}
		json.Unmarshal(tm.Payload, &msg)
		if msg.Type == "error" {
			sawError = true
		}
	}
	if !sawError {
		t.Error("no error message queued for the client")
	}
}
