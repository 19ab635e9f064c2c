package state

import (
	"time"

	"github.com/careerbox/presenced/pkg/transport"
	"github.com/google/uuid"
)

// representation of a single transport-layer connection.
type Connection struct {
	ID        uuid.UUID
	IPAddress string
	UserAgent string
	Transport *transport.Connection // the actual connection for sending frames
	Identity  *Identity             // owning identity (nil until attached)
	CreatedAt time.Time
}

// canonical representation of an authenticated principal, aggregating
// all of their live connections.
type Identity struct {
	ID           string
	Role         Role
	Capabilities Capability
	SessionRef   string
	Connections  map[uuid.UUID]*Connection
	Rooms        map[string]*Room // membership, keyed by room name
}

func (i *Identity) Can(flag Capability) bool {
	return i.Capabilities.Has(flag)
}

// canonical representation of a broadcast channel.
type Room struct {
	Name    string
	Members map[string]*Identity // keyed by identity ID
}
