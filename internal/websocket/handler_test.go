package websocket

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"ai-voicebot-be/internal/dto"
	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/internal/pkg/worker"
	"ai-voicebot-be/pkg/knowledge"
	"ai-voicebot-be/pkg/rag"
	"ai-voicebot-be/pkg/speech"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn scripts inbound frames and records everything written. ReadMessage
// returns io.EOF once the script is exhausted, ending the message loop.
type fakeConn struct {
	mu       sync.Mutex
	inbound  [][]byte
	written  []interface{}
	controls [][]byte
	closed   bool
}

func newFakeConn(frames ...[]byte) *fakeConn {
	return &fakeConn{inbound: frames}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return 0, nil, io.EOF
	}
	frame := c.inbound[0]
	c.inbound = c.inbound[1:]
	return 1, frame, nil
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeEngine struct {
	buildErr error
	reply    string
	queries  []string
	views    []rag.SessionView
}

func (e *fakeEngine) BuildPipeline(tenantID string) (*rag.Pipeline, error) {
	if e.buildErr != nil {
		return nil, e.buildErr
	}
	return &rag.Pipeline{TenantID: tenantID}, nil
}

func (e *fakeEngine) RunTurn(_ context.Context, _ *rag.Pipeline, query string, view rag.SessionView) string {
	e.queries = append(e.queries, query)
	e.views = append(e.views, view)
	return e.reply
}

type fakeCodec struct {
	transcript    string
	transcribeErr error
	audio         []byte
	synthErr      error
}

func (c *fakeCodec) Transcribe(_ context.Context, _ string) (string, error) {
	return c.transcript, c.transcribeErr
}

func (c *fakeCodec) Synthesize(_ context.Context, _, _ string) (speech.Audio, error) {
	if c.synthErr != nil {
		return speech.Audio{}, c.synthErr
	}
	return speech.Audio{Bytes: c.audio}, nil
}

type fakeAudioStore struct {
	saved [][]byte
}

func (s *fakeAudioStore) Save(audio []byte) (string, error) {
	s.saved = append(s.saved, audio)
	return "/static_audio/fake.mp3", nil
}

func newTestHandler(engine *fakeEngine, codec *fakeCodec) (*Handler, *Registry, *fakeAudioStore) {
	registry := NewRegistry(logger.NewNopLogger())
	files := &fakeAudioStore{}
	handler := NewHandler(engine, codec, files, worker.NewPool(2), registry, logger.NewNopLogger())
	return handler, registry, files
}

func textFrame(text string) []byte {
	return []byte(fmt.Sprintf(`{"type":"text_query","text":%q}`, text))
}

func TestServeChatRejectsUningestedTenant(t *testing.T) {
	engine := &fakeEngine{buildErr: fmt.Errorf("build: %w", knowledge.ErrTenantNotIngested)}
	handler, registry, _ := newTestHandler(engine, &fakeCodec{})
	conn := newFakeConn()

	handler.ServeChat(conn, "ghost-tenant")

	require.Len(t, conn.written, 1)
	errMsg, ok := conn.written[0].(dto.ErrorMessage)
	require.True(t, ok)
	assert.Contains(t, errMsg.Message, "ghost-tenant")

	// Close frame carries the policy violation code.
	require.Len(t, conn.controls, 1)
	assert.Equal(t, uint16(1008), binary.BigEndian.Uint16(conn.controls[0][:2]))

	assert.True(t, conn.closed)
	assert.Equal(t, 0, registry.Len())
}

func TestServeChatSendsGreeting(t *testing.T) {
	engine := &fakeEngine{reply: "irrelevant"}
	handler, registry, _ := newTestHandler(engine, &fakeCodec{})
	conn := newFakeConn()

	handler.ServeChat(conn, "tenant-a")

	require.NotEmpty(t, conn.written)
	greeting, ok := conn.written[0].(dto.ResponseMessage)
	require.True(t, ok)
	assert.Equal(t, GreetingText, greeting.Text)
	assert.Equal(t, "bot", greeting.Sender)

	// Session is gone once the loop ends.
	assert.Equal(t, 0, registry.Len())
	assert.True(t, conn.closed)
}

func TestServeChatTextTurn(t *testing.T) {
	engine := &fakeEngine{reply: "We have two flats available."}
	codec := &fakeCodec{audio: []byte("mp3-bytes")}
	handler, _, files := newTestHandler(engine, codec)
	conn := newFakeConn(textFrame("What flats do you have?"))

	handler.ServeChat(conn, "tenant-a")

	require.Len(t, conn.written, 2)
	response, ok := conn.written[1].(dto.ResponseMessage)
	require.True(t, ok)
	assert.Equal(t, "We have two flats available.", response.Text)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3-bytes")), response.AudioBase64)
	assert.Equal(t, "/static_audio/fake.mp3", response.AudioURL)

	require.Len(t, engine.queries, 1)
	assert.Equal(t, "What flats do you have?", engine.queries[0])
	// Greeting audio and the turn's audio are both persisted.
	require.Len(t, files.saved, 2)
}

func TestServeChatCapturesNameOnce(t *testing.T) {
	engine := &fakeEngine{reply: "Nice to meet you."}
	handler, _, _ := newTestHandler(engine, &fakeCodec{})
	conn := newFakeConn(
		textFrame("Hello, my name is alice"),
		textFrame("Actually, my name is bob"),
	)

	handler.ServeChat(conn, "tenant-a")

	require.Len(t, engine.views, 2)
	// Detection runs before the view snapshot, so the introducing turn
	// already sees the name.
	assert.Equal(t, "Alice", engine.views[0].UserName)
	// Second introduction must not overwrite the first.
	assert.Equal(t, "Alice", engine.views[1].UserName)
}

func TestServeChatHistoryAccumulates(t *testing.T) {
	engine := &fakeEngine{reply: "answer"}
	handler, _, _ := newTestHandler(engine, &fakeCodec{})
	conn := newFakeConn(textFrame("first"), textFrame("second"))

	handler.ServeChat(conn, "tenant-a")

	require.Len(t, engine.views, 2)
	assert.Len(t, engine.views[0].History, 0)
	require.Len(t, engine.views[1].History, 2)
	assert.Equal(t, "first", engine.views[1].History[0].Content)
	assert.Equal(t, "answer", engine.views[1].History[1].Content)
}

func TestServeChatSurvivesBadMessages(t *testing.T) {
	engine := &fakeEngine{reply: "still here"}
	handler, _, _ := newTestHandler(engine, &fakeCodec{})
	conn := newFakeConn(
		[]byte(`{"type":"mystery"}`),
		[]byte(`not even json`),
		textFrame("real question"),
	)

	handler.ServeChat(conn, "tenant-a")

	// Greeting, two error notices, then the real response.
	require.Len(t, conn.written, 4)
	_, isErr1 := conn.written[1].(dto.ErrorMessage)
	_, isErr2 := conn.written[2].(dto.ErrorMessage)
	response, isResponse := conn.written[3].(dto.ResponseMessage)
	assert.True(t, isErr1)
	assert.True(t, isErr2)
	require.True(t, isResponse)
	assert.Equal(t, "still here", response.Text)
}

func TestServeChatEmptyTextQuery(t *testing.T) {
	engine := &fakeEngine{reply: "unused"}
	handler, _, _ := newTestHandler(engine, &fakeCodec{})
	conn := newFakeConn(textFrame("   "))

	handler.ServeChat(conn, "tenant-a")

	require.Len(t, conn.written, 2)
	_, isErr := conn.written[1].(dto.ErrorMessage)
	assert.True(t, isErr)
	assert.Empty(t, engine.queries)
}

func TestServeChatLanguageSwitch(t *testing.T) {
	engine := &fakeEngine{reply: "uttar"}
	handler, _, _ := newTestHandler(engine, &fakeCodec{})
	conn := newFakeConn(
		[]byte(`{"type":"language_switch","language":"hi"}`),
		textFrame("namaste"),
	)

	handler.ServeChat(conn, "tenant-a")

	require.Len(t, conn.written, 3)
	status, ok := conn.written[1].(dto.StatusMessage)
	require.True(t, ok)
	assert.Contains(t, status.Message, "hi")

	require.Len(t, engine.views, 1)
	assert.Equal(t, "hi", engine.views[0].Language)
}

func TestServeChatAudioTurn(t *testing.T) {
	engine := &fakeEngine{reply: "spoken answer"}
	codec := &fakeCodec{transcript: "what is the price", audio: []byte("reply-audio")}
	handler, _, _ := newTestHandler(engine, codec)

	audioData := base64.StdEncoding.EncodeToString([]byte("fake-wav-bytes"))
	conn := newFakeConn([]byte(fmt.Sprintf(`{"type":"audio_query","audio_data":%q}`, audioData)))

	handler.ServeChat(conn, "tenant-a")

	// Greeting, transcription echo, response.
	require.Len(t, conn.written, 3)
	echo, ok := conn.written[1].(dto.UserMessage)
	require.True(t, ok)
	assert.Equal(t, "what is the price", echo.Text)
	assert.Equal(t, "user", echo.Sender)

	response, ok := conn.written[2].(dto.ResponseMessage)
	require.True(t, ok)
	assert.Equal(t, "spoken answer", response.Text)

	require.Len(t, engine.queries, 1)
	assert.Equal(t, "what is the price", engine.queries[0])
}

func TestServeChatAudioTranscriptionFailure(t *testing.T) {
	engine := &fakeEngine{reply: "unused"}
	codec := &fakeCodec{transcribeErr: errors.New("whisper offline")}
	handler, _, _ := newTestHandler(engine, codec)

	audioData := base64.StdEncoding.EncodeToString([]byte("fake-wav-bytes"))
	conn := newFakeConn([]byte(fmt.Sprintf(`{"type":"audio_query","audio_data":%q}`, audioData)))

	handler.ServeChat(conn, "tenant-a")

	require.Len(t, conn.written, 2)
	_, isErr := conn.written[1].(dto.ErrorMessage)
	assert.True(t, isErr)
	assert.Empty(t, engine.queries)
}

type panickyEngine struct{}

func (panickyEngine) BuildPipeline(tenantID string) (*rag.Pipeline, error) {
	return &rag.Pipeline{TenantID: tenantID}, nil
}

func (panickyEngine) RunTurn(context.Context, *rag.Pipeline, string, rag.SessionView) string {
	panic("engine blew up")
}

func TestServeChatCleansUpAfterPanic(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())
	handler := NewHandler(panickyEngine{}, &fakeCodec{}, &fakeAudioStore{}, worker.NewPool(2), registry, logger.NewNopLogger())
	conn := newFakeConn(textFrame("trigger"))

	assert.NotPanics(t, func() {
		handler.ServeChat(conn, "tenant-a")
	})

	assert.Equal(t, 0, registry.Len())
	assert.True(t, conn.closed)
}

func TestServeChatSynthesisFailureStillSendsText(t *testing.T) {
	engine := &fakeEngine{reply: "text only"}
	codec := &fakeCodec{synthErr: errors.New("tts down")}
	handler, _, files := newTestHandler(engine, codec)
	conn := newFakeConn(textFrame("hello"))

	handler.ServeChat(conn, "tenant-a")

	require.Len(t, conn.written, 2)
	response, ok := conn.written[1].(dto.ResponseMessage)
	require.True(t, ok)
	assert.Equal(t, "text only", response.Text)
	assert.Empty(t, response.AudioBase64)
	assert.Empty(t, response.AudioURL)
	assert.Empty(t, files.saved)
}
