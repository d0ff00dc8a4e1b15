package websocket

import (
	"testing"

	"ai-voicebot-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRegistryAddGetRemove(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())
	session := NewSession("tenant-a", nil)

	registry.Add(session)
	assert.Equal(t, 1, registry.Len())

	got, found := registry.Get(session.ConnID)
	assert.True(t, found)
	assert.Same(t, session, got)

	assert.True(t, registry.Remove(session.ConnID))
	assert.Equal(t, 0, registry.Len())

	_, found = registry.Get(session.ConnID)
	assert.False(t, found)

	// Second removal reports nothing was there.
	assert.False(t, registry.Remove(session.ConnID))
}

func TestRegistryRemoveUnknown(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())
	assert.False(t, registry.Remove(uuid.New()))
}

func TestRegistryNotifyTenantTargetsOnlyThatTenant(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())

	connA := newFakeConn()
	sessionA := NewSession("tenant-a", nil)
	sessionA.client = newClient(connA)

	connB := newFakeConn()
	sessionB := NewSession("tenant-b", nil)
	sessionB.client = newClient(connB)

	registry.Add(sessionA)
	registry.Add(sessionB)

	registry.NotifyTenant("tenant-a", map[string]string{"type": "status"})

	assert.Len(t, connA.written, 1)
	assert.Len(t, connB.written, 0)
}

func TestRegistryNotifyTenantSkipsClosedClients(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())

	conn := newFakeConn()
	session := NewSession("tenant-a", nil)
	session.client = newClient(conn)
	session.client.shutdown()

	registry.Add(session)

	// Must not panic or write to the closed connection.
	registry.NotifyTenant("tenant-a", map[string]string{"type": "status"})
	assert.Len(t, conn.written, 0)
}
