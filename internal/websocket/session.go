package websocket

import (
	"sync"

	"ai-voicebot-be/pkg/llm"
	"ai-voicebot-be/pkg/rag"

	"github.com/google/uuid"
)

// historyLimit caps conversational memory at the 5 most recent exchanges.
const historyLimit = 10

// Session is the mutable state of one live connection. It is owned by that
// connection's goroutine; the mutex exists only for reads from the ingest
// notifier and the tests.
type Session struct {
	ConnID   uuid.UUID
	TenantID string

	mu       sync.Mutex
	userName string
	language string
	history  []llm.Message

	// Pipeline is built once at handshake and reused for every turn; the
	// retriever/model setup behind it is too expensive to rebuild per message.
	Pipeline *rag.Pipeline

	client *client
}

func NewSession(tenantID string, pipeline *rag.Pipeline) *Session {
	return &Session{
		ConnID:   uuid.New(),
		TenantID: tenantID,
		language: "en",
		Pipeline: pipeline,
	}
}

// SetUserNameOnce records a detected name. First write wins; later detections
// are ignored so an introduction cannot be overwritten mid-conversation.
func (s *Session) SetUserNameOnce(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userName != "" || name == "" {
		return false
	}
	s.userName = name
	return true
}

func (s *Session) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userName
}

func (s *Session) SetLanguage(language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// AppendTurn records one completed exchange and trims memory to the bound.
func (s *Session) AppendTurn(query, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		llm.Message{Role: llm.RoleUser, Content: query},
		llm.Message{Role: llm.RoleAssistant, Content: response},
	)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// HistoryLen reports the current history length.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// View snapshots the state a turn needs, oldest history first.
func (s *Session) View() rag.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]llm.Message, len(s.history))
	copy(history, s.history)
	return rag.SessionView{
		UserName: s.userName,
		Language: s.language,
		History:  history,
	}
}
