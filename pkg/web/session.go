package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/voxstore/voxstore/internal/config"
	"github.com/voxstore/voxstore/internal/log"
	"github.com/voxstore/voxstore/pkg/convo"
	"github.com/voxstore/voxstore/pkg/frame"
	"github.com/voxstore/voxstore/pkg/groq"
	"github.com/voxstore/voxstore/pkg/hub"
	"github.com/voxstore/voxstore/pkg/pipeline"
	"github.com/voxstore/voxstore/pkg/protocol"
	"github.com/voxstore/voxstore/pkg/store"
)

// knowledgeBase is the system prompt for every session.
const knowledgeBase = "You are a helpful voice assistant for an online store. Keep responses concise and conversational.\n" +
	"Knowledge Base:\n" +
	"- Customers ask about their orders, products, or account details.\n" +
	"- When a customer asks for an order status, make sure you have an order number.\n" +
	"- If no order number is available, politely ask for it.\n" +
	"- When order details are provided, summarize the status and delivery expectation using the supplied data.\n" +
	"- Be empathetic, efficient, and avoid exposing internal system details."

// outBuffer sizes the outbound frame queue. Audio frames are large but
// few; the writer normally keeps up.
const outBuffer = 256

// handleVoiceWS runs one voice session per connection.
func (s *Server) handleVoiceWS(c *websocket.Conn) {
	if err := s.cfg.RequireAPIKey(); err != nil {
		s.logger.Error("refusing voice session", "error", err)
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "server not configured"))
		c.Close()
		return
	}

	sess := newSession(s.cfg, s.store, s.hub)
	sess.run(c)
}

// session owns one connection's pipeline and its outbound queue.
type session struct {
	id     string
	task   *pipeline.Task
	out    chan frame.Frame
	logger *slog.Logger
}

// newSession assembles the pipeline for a fresh connection. Each session
// gets its own conversation context and transcript hub recorders share
// the server-wide hub.
func newSession(cfg config.Config, st *store.Store, h *hub.Hub) *session {
	sess := &session{
		id:  uuid.NewString(),
		out: make(chan frame.Frame, outBuffer),
	}
	sess.logger = log.With("component", "session", "session_id", sess.id)

	cc := convo.NewContext(knowledgeBase)
	engine := pipeline.New(buildStages(cfg, st, h, cc), func(f frame.Frame) {
		select {
		case sess.out <- f:
		default:
			sess.logger.Warn("outbound queue full, dropping frame")
		}
	})
	sess.task = pipeline.NewTask(engine)
	return sess
}

// buildStages wires the processing chain in speech order: audio logging,
// conversation state, transcription, order knowledge, user transcript,
// language model, bot transcript, speech synthesis.
func buildStages(cfg config.Config, st *store.Store, h *hub.Hub, cc *convo.Context) []pipeline.Stage {
	backend := groq.Config{
		APIKey:   cfg.GroqAPIKey,
		BaseURL:  cfg.GroqBaseURL,
		STTModel: cfg.STTModel,
		LLMModel: cfg.LLMModel,
		TTSModel: cfg.TTSModel,
		TTSVoice: cfg.TTSVoice,
		Logger:   log.L(),
	}

	return []pipeline.Stage{
		&audioLogStage{logger: log.With("component", "audio")},
		convo.NewStateTracker(),
		groq.NewSTT(backend),
		convo.NewKnowledgeInjector(st, cc),
		convo.NewRecorder(hub.SpeakerUser, h),
		groq.NewLLM(backend, cc),
		convo.NewRecorder(hub.SpeakerBot, h),
		groq.NewTTS(backend),
	}
}

// run pumps the socket until the client disconnects or the pipeline
// terminates. It tears down the writer and the socket on every exit
// path.
func (s *session) run(c *websocket.Conn) {
	s.logger.Info("voice session started", "remote", c.RemoteAddr().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for f := range s.out {
			payload, ok := protocol.Marshal(f)
			if !ok {
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("write failed", "error", err)
				cancel()
				return
			}
		}
	}()

	if err := s.task.Push(ctx, frame.Lifecycle{Kind: frame.SessionStart}, frame.Downstream); err != nil {
		s.logger.Error("pipeline failed at start", "error", err)
	} else {
		s.readLoop(ctx, c)
	}

	// The read loop is the only producer, so the queue can be closed
	// safely here to flush and stop the writer.
	close(s.out)
	<-writerDone
	c.Close()
	s.logger.Info("voice session closed")
}

// readLoop decodes inbound messages and pushes them downstream.
// Malformed payloads are logged and skipped; the session only ends on
// socket errors or pipeline termination.
func (s *session) readLoop(ctx context.Context, c *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.task.Done():
			s.logger.Error("pipeline terminated", "error", s.task.Err())
			return
		default:
		}

		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("read failed", "error", err)
			}
			return
		}

		f, err := protocol.Unmarshal(data)
		if err != nil {
			s.logger.Warn("skipping malformed message", "error", err)
			continue
		}

		if err := s.task.Push(ctx, f, frame.Downstream); err != nil {
			s.logger.Error("pipeline terminated", "error", err)
			return
		}
	}
}
