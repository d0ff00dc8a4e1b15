package websocket

import (
	"sync"

	"ai-voicebot-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Registry is the process-wide map of live sessions, keyed by connection id.
// Connections insert themselves on handshake success and remove themselves in
// their deferred cleanup, so no entry outlives its connection. Connection
// goroutines run in parallel, hence the guard.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	logger   logger.ILogger
}

func NewRegistry(log logger.ILogger) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		logger:   log,
	}
}

func (r *Registry) Add(session *Session) {
	r.mu.Lock()
	r.sessions[session.ConnID] = session
	r.mu.Unlock()
	r.logger.Info("Registry", "Session registered", map[string]interface{}{
		"conn_id":   session.ConnID,
		"tenant_id": session.TenantID,
	})
}

// Remove deletes the session. Reports whether an entry was actually removed,
// so a double removal is visible to callers and tests.
func (r *Registry) Remove(connID uuid.UUID) bool {
	r.mu.Lock()
	_, found := r.sessions[connID]
	delete(r.sessions, connID)
	r.mu.Unlock()
	if found {
		r.logger.Info("Registry", "Session removed", map[string]interface{}{
			"conn_id": connID,
		})
	}
	return found
}

func (r *Registry) Get(connID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, found := r.sessions[connID]
	return session, found
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// NotifyTenant pushes a message to every live session of the tenant. Send
// failures are ignored; a connection mid-close simply misses the notice.
func (r *Registry) NotifyTenant(tenantID string, message interface{}) {
	r.mu.RLock()
	targets := make([]*Session, 0)
	for _, session := range r.sessions {
		if session.TenantID == tenantID {
			targets = append(targets, session)
		}
	}
	r.mu.RUnlock()

	for _, session := range targets {
		if session.client != nil {
			_ = session.client.sendJSON(message)
		}
	}
}
