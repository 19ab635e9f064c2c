package state

import (
	"github.com/careerbox/presenced/pkg/transport"
	"github.com/google/uuid"
)

// Manager owns the live connection/identity/room registry for this
// process. Room membership is never persisted: it is re-derived from
// (identity, role) on every connect, so a multi-instance deployment
// shares broadcast reach through the pub/sub bridge, not this state.
type Manager interface {
	// --- Connection lifecycle ---
	RegisterConnection(conn *transport.Connection, ip, userAgent string) (*Connection, error)
	// DeregisterConnection removes the connection and reports whether
	// it was its identity's final one. The decision is made in the
	// same critical section that removes the connection, so exactly
	// one of several concurrently closing connections observes last.
	DeregisterConnection(connID uuid.UUID) (last bool, err error)
	GetConnection(connID uuid.UUID) (*Connection, bool)
	FindOldestConnection(identityID string) (*Connection, bool)
	ConnectionCount() int

	// --- Identity management ---
	// Attach links a connection to its authenticated identity,
	// creating the identity entry on first connection.
	Attach(connID uuid.UUID, identityID string, role Role, caps Capability, sessionRef string) (*Identity, error)
	FindIdentity(identityID string) (*Identity, bool)
	IdentityConnections(identityID string) []*transport.Connection
	IdentityConnectionCount(identityID string) int
	AllIdentities() []*Identity

	// --- Room membership ---
	Join(identityID, room string) error
	Leave(identityID, room string) error
	RoomsOf(identityID string) []string
	RoomMembers(room string) []*Identity
	// RoomTransports returns the live transports of every member of a
	// room, the unit the dispatcher fans frames out to.
	RoomTransports(room string) []*transport.Connection
	FindRoom(room string) (*Room, bool)
}
