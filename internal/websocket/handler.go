package websocket

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ai-voicebot-be/internal/dto"
	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/internal/pkg/worker"
	"ai-voicebot-be/pkg/knowledge"
	"ai-voicebot-be/pkg/rag"
	"ai-voicebot-be/pkg/speech"

	"github.com/gofiber/websocket/v2"
)

// GreetingText opens every conversation once the handshake succeeds.
const GreetingText = "Hello! I am Voice, your assistant. How can I help you today?"

// closeCodePolicyViolation is the RFC 6455 close code sent when a client
// connects for a tenant with no ingested documents.
const closeCodePolicyViolation = 1008

// ConversationEngine is the slice of the generation engine the handler needs.
type ConversationEngine interface {
	BuildPipeline(tenantID string) (*rag.Pipeline, error)
	RunTurn(ctx context.Context, pipeline *rag.Pipeline, query string, view rag.SessionView) string
}

// AudioStore persists synthesized audio and hands back a servable URL path.
type AudioStore interface {
	Save(audio []byte) (string, error)
}

// Handler owns the websocket conversation protocol: handshake, message loop,
// and cleanup. One ServeChat call per connection, on the connection goroutine.
type Handler struct {
	engine   ConversationEngine
	codec    speech.Codec
	files    AudioStore
	pool     *worker.Pool
	registry *Registry
	logger   logger.ILogger
}

func NewHandler(
	engine ConversationEngine,
	codec speech.Codec,
	files AudioStore,
	pool *worker.Pool,
	registry *Registry,
	log logger.ILogger,
) *Handler {
	return &Handler{
		engine:   engine,
		codec:    codec,
		files:    files,
		pool:     pool,
		registry: registry,
		logger:   log,
	}
}

// ServeChat runs the full lifetime of one connection. It returns only after
// the connection is closed and the session is removed from the registry.
func (h *Handler) ServeChat(conn Conn, tenantID string) {
	cl := newClient(conn)

	pipeline, err := h.engine.BuildPipeline(tenantID)
	if err != nil {
		h.rejectHandshake(cl, tenantID, err)
		return
	}

	session := NewSession(tenantID, pipeline)
	session.client = cl
	h.registry.Add(session)

	ctx, cancel := context.WithCancel(context.Background())

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("ChatHandler", "Recovered from panic", map[string]interface{}{
				"conn_id":   session.ConnID,
				"tenant_id": tenantID,
				"panic":     fmt.Sprintf("%v", r),
			})
		}
		cancel()
		h.registry.Remove(session.ConnID)
		cl.shutdown()
	}()

	greeting := h.synthesize(ctx, session, GreetingText, session.Language())
	if err := cl.sendJSON(dto.NewResponseMessage(GreetingText, greeting.Bytes, h.persistAudio(session, greeting))); err != nil {
		return
	}

	h.readLoop(ctx, session)
}

// rejectHandshake tells the client why the session cannot start, then closes
// with a policy violation so well-behaved clients do not reconnect blindly.
func (h *Handler) rejectHandshake(cl *client, tenantID string, err error) {
	message := "Failed to initialize assistant."
	if errors.Is(err, knowledge.ErrTenantNotIngested) {
		message = fmt.Sprintf("No documents have been ingested for tenant '%s'. Please ingest documents first.", tenantID)
	}
	h.logger.Warn("ChatHandler", "Handshake rejected", map[string]interface{}{
		"tenant_id": tenantID,
		"error":     err.Error(),
	})
	_ = cl.sendJSON(dto.NewErrorMessage(message))
	_ = cl.sendControl(websocket.CloseMessage, closePayload(closeCodePolicyViolation, "tenant not ingested"))
	cl.shutdown()
}

// closePayload builds a close frame body: 2-byte big-endian status code
// followed by the UTF-8 reason.
func closePayload(code int, reason string) []byte {
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, uint16(code))
	copy(payload[2:], reason)
	return payload
}

func (h *Handler) readLoop(ctx context.Context, session *Session) {
	for {
		_, raw, err := session.client.conn.ReadMessage()
		if err != nil {
			h.logger.Info("ChatHandler", "Connection closed", map[string]interface{}{
				"conn_id":   session.ConnID,
				"tenant_id": session.TenantID,
			})
			return
		}

		message, err := dto.DecodeInbound(raw)
		if err != nil {
			// A bad message never tears down the connection.
			h.logger.Warn("ChatHandler", "Dropping invalid message", map[string]interface{}{
				"conn_id": session.ConnID,
				"error":   err.Error(),
			})
			if sendErr := session.client.sendJSON(dto.NewErrorMessage(err.Error())); sendErr != nil {
				return
			}
			continue
		}

		if !h.dispatch(ctx, session, message) {
			return
		}
	}
}

// dispatch handles one decoded message. Reports false when the connection
// should terminate.
func (h *Handler) dispatch(ctx context.Context, session *Session, message dto.InboundMessage) bool {
	switch m := message.(type) {
	case dto.LanguageSwitch:
		session.SetLanguage(m.Language)
		return session.client.sendJSON(dto.NewStatusMessage("Language switched to "+m.Language)) == nil

	case dto.TextQuery:
		if m.Text == "" {
			return session.client.sendJSON(dto.NewErrorMessage("Empty query.")) == nil
		}
		return h.processTurn(ctx, session, m.Text)

	case dto.AudioQuery:
		text, ok := h.transcribe(ctx, session, m.Audio)
		if !ok {
			return session.client.sendJSON(dto.NewErrorMessage("Could not understand the audio. Please try again.")) == nil
		}
		// Echo the transcription so the user sees what was understood.
		if err := session.client.sendJSON(dto.NewUserMessage(text)); err != nil {
			return false
		}
		return h.processTurn(ctx, session, text)

	default:
		return session.client.sendJSON(dto.NewErrorMessage("Unsupported message type.")) == nil
	}
}

// transcribe writes the audio to a scratch file, runs speech-to-text on the
// worker pool, and removes the file regardless of outcome.
func (h *Handler) transcribe(ctx context.Context, session *Session, audio []byte) (string, bool) {
	scratch := filepath.Join(os.TempDir(), fmt.Sprintf("temp_audio_%s.wav", session.ConnID))
	if err := os.WriteFile(scratch, audio, 0644); err != nil {
		h.logger.Error("ChatHandler", "Failed to write scratch audio", map[string]interface{}{
			"conn_id": session.ConnID,
			"error":   err.Error(),
		})
		return "", false
	}
	defer func() {
		if err := os.Remove(scratch); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("ChatHandler", "Failed to remove scratch audio", map[string]interface{}{
				"file":  scratch,
				"error": err.Error(),
			})
		}
	}()

	var text string
	err := h.pool.Do(ctx, func() error {
		var transcribeErr error
		text, transcribeErr = h.codec.Transcribe(ctx, scratch)
		return transcribeErr
	})
	if err != nil {
		h.logger.Error("ChatHandler", "Transcription failed", map[string]interface{}{
			"conn_id": session.ConnID,
			"error":   err.Error(),
		})
		return "", false
	}
	if text == "" {
		return "", false
	}
	return text, true
}

// processTurn runs one conversational exchange: name capture, generation,
// synthesis, delivery, and history append. Reports false when the connection
// should terminate.
func (h *Handler) processTurn(ctx context.Context, session *Session, query string) bool {
	if name := DetectUserName(query); name != "" {
		if session.SetUserNameOnce(name) {
			h.logger.Info("ChatHandler", "Captured user name", map[string]interface{}{
				"conn_id": session.ConnID,
				"name":    name,
			})
		}
	}

	view := session.View()

	var reply string
	err := h.pool.Do(ctx, func() error {
		reply = h.engine.RunTurn(ctx, session.Pipeline, query, view)
		return nil
	})
	if err != nil {
		// Cancelled while queued; the connection is going away.
		return false
	}

	audio := h.synthesize(ctx, session, reply, view.Language)

	if err := session.client.sendJSON(dto.NewResponseMessage(reply, audio.Bytes, h.persistAudio(session, audio))); err != nil {
		return false
	}

	session.AppendTurn(query, reply)
	return true
}

// persistAudio writes synthesized bytes into the servable audio store and
// returns their URL path. Persistence failures degrade to inline-only audio.
func (h *Handler) persistAudio(session *Session, audio speech.Audio) string {
	if audio.URL != "" {
		return audio.URL
	}
	if len(audio.Bytes) == 0 || h.files == nil {
		return ""
	}
	url, err := h.files.Save(audio.Bytes)
	if err != nil {
		h.logger.Warn("ChatHandler", "Failed to persist audio", map[string]interface{}{
			"conn_id": session.ConnID,
			"error":   err.Error(),
		})
		return ""
	}
	return url
}

// synthesize produces speech for the reply on the worker pool. Failure yields
// zero audio; the text response still goes out.
func (h *Handler) synthesize(ctx context.Context, session *Session, text, language string) speech.Audio {
	if h.codec == nil {
		return speech.Audio{}
	}
	var audio speech.Audio
	err := h.pool.Do(ctx, func() error {
		var synthErr error
		audio, synthErr = h.codec.Synthesize(ctx, text, language)
		return synthErr
	})
	if err != nil {
		h.logger.Warn("ChatHandler", "Synthesis failed", map[string]interface{}{
			"conn_id": session.ConnID,
			"error":   err.Error(),
		})
		return speech.Audio{}
	}
	return audio
}
