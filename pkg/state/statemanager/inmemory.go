package statemanager

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/careerbox/presenced/pkg/state"
	"github.com/careerbox/presenced/pkg/transport"
	"github.com/google/uuid"
)

// InMemoryManager keeps the full connection/identity/room registry in
// process memory behind a single RWMutex.
type InMemoryManager struct {
	conns      map[uuid.UUID]*state.Connection
	identities map[string]*state.Identity
	rooms      map[string]*state.Room

	mu sync.RWMutex

	logger *slog.Logger
}

var _ state.Manager = (*InMemoryManager)(nil)

func NewInMemoryManager(logger *slog.Logger) *InMemoryManager {
	return &InMemoryManager{
		conns:      make(map[uuid.UUID]*state.Connection),
		identities: make(map[string]*state.Identity),
		rooms:      make(map[string]*state.Room),
		logger:     logger.With(slog.String("component", "state_manager")),
	}
}

func (m *InMemoryManager) RegisterConnection(conn *transport.Connection, ip, userAgent string) (*state.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	connID := conn.ID()
	if _, exists := m.conns[connID]; exists {
		return nil, errors.New("connection is already registered")
	}
	sc := &state.Connection{
		ID:        connID,
		IPAddress: ip,
		UserAgent: userAgent,
		Transport: conn,
		CreatedAt: time.Now(),
	}
	m.conns[connID] = sc
	m.logger.Debug("connection registered", slog.String("connID", connID.String()))
	return sc, nil
}

func (m *InMemoryManager) DeregisterConnection(connID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return false, nil // already deregistered
	}
	delete(m.conns, connID)

	last := false
	if ident := conn.Identity; ident != nil {
		delete(ident.Connections, connID)
		if len(ident.Connections) == 0 {
			// Last connection gone: drop the identity and its
			// memberships. Rooms are re-derived on reconnect.
			last = true
			for name, room := range ident.Rooms {
				delete(room.Members, ident.ID)
				if len(room.Members) == 0 {
					delete(m.rooms, name)
				}
			}
			delete(m.identities, ident.ID)
			m.logger.Debug("identity removed with last connection", slog.String("identityID", ident.ID))
		}
	}
	m.logger.Debug("connection deregistered", slog.String("connID", connID.String()))
	return last, nil
}

func (m *InMemoryManager) GetConnection(connID uuid.UUID) (*state.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[connID]
	return conn, ok
}

func (m *InMemoryManager) FindOldestConnection(identityID string) (*state.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ident, ok := m.identities[identityID]
	if !ok {
		return nil, false
	}
	var oldest *state.Connection
	for _, conn := range ident.Connections {
		if oldest == nil || conn.CreatedAt.Before(oldest.CreatedAt) {
			oldest = conn
		}
	}
	return oldest, oldest != nil
}

func (m *InMemoryManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

func (m *InMemoryManager) Attach(connID uuid.UUID, identityID string, role state.Role, caps state.Capability, sessionRef string) (*state.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return nil, errors.New("cannot attach identity to unknown connection")
	}

	ident, exists := m.identities[identityID]
	if !exists {
		ident = &state.Identity{
			ID:          identityID,
			Connections: make(map[uuid.UUID]*state.Connection),
			Rooms:       make(map[string]*state.Room),
		}
		m.identities[identityID] = ident
	}
	ident.Role = role
	ident.Capabilities = caps
	ident.SessionRef = sessionRef
	conn.Identity = ident
	ident.Connections[connID] = conn

	m.logger.Debug("identity attached",
		slog.String("connID", connID.String()),
		slog.String("identityID", identityID),
		slog.String("role", string(role)),
	)
	return ident, nil
}

func (m *InMemoryManager) FindIdentity(identityID string) (*state.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ident, ok := m.identities[identityID]
	return ident, ok
}

func (m *InMemoryManager) IdentityConnections(identityID string) []*transport.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ident, ok := m.identities[identityID]
	if !ok {
		return nil
	}
	conns := make([]*transport.Connection, 0, len(ident.Connections))
	for _, c := range ident.Connections {
		conns = append(conns, c.Transport)
	}
	return conns
}

func (m *InMemoryManager) IdentityConnectionCount(identityID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ident, ok := m.identities[identityID]
	if !ok {
		return 0
	}
	return len(ident.Connections)
}

func (m *InMemoryManager) AllIdentities() []*state.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*state.Identity, 0, len(m.identities))
	for _, ident := range m.identities {
		all = append(all, ident)
	}
	return all
}

func (m *InMemoryManager) Join(identityID, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ident, ok := m.identities[identityID]
	if !ok {
		return errors.New("cannot join room: identity not found")
	}
	if _, member := ident.Rooms[room]; member {
		return nil // idempotent
	}

	r, exists := m.rooms[room]
	if !exists {
		r = &state.Room{Name: room, Members: make(map[string]*state.Identity)}
		m.rooms[room] = r
	}
	ident.Rooms[room] = r
	r.Members[identityID] = ident

	m.logger.Debug("joined room", slog.String("identityID", identityID), slog.String("room", room))
	return nil
}

func (m *InMemoryManager) Leave(identityID, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ident, ok := m.identities[identityID]
	if !ok {
		return nil // nothing to leave
	}
	r, ok := m.rooms[room]
	if !ok {
		return nil
	}

	delete(ident.Rooms, room)
	delete(r.Members, identityID)
	if len(r.Members) == 0 {
		delete(m.rooms, room)
		m.logger.Debug("removed empty room", slog.String("room", room))
	}
	m.logger.Debug("left room", slog.String("identityID", identityID), slog.String("room", room))
	return nil
}

func (m *InMemoryManager) RoomsOf(identityID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ident, ok := m.identities[identityID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(ident.Rooms))
	for name := range ident.Rooms {
		rooms = append(rooms, name)
	}
	sort.Strings(rooms)
	return rooms
}

func (m *InMemoryManager) RoomMembers(room string) []*state.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[room]
	if !ok {
		return nil
	}
	members := make([]*state.Identity, 0, len(r.Members))
	for _, ident := range r.Members {
		members = append(members, ident)
	}
	return members
}

func (m *InMemoryManager) RoomTransports(room string) []*transport.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[room]
	if !ok {
		return nil
	}
	var conns []*transport.Connection
	for _, ident := range r.Members {
		for _, c := range ident.Connections {
			conns = append(conns, c.Transport)
		}
	}
	return conns
}

func (m *InMemoryManager) FindRoom(room string) (*state.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[room]
	return r, ok
}
