// Package gateway is the outbound fan-out surface: it delivers encoded
// frames to rooms or to every live connection, and holds the
// process-wide gateway slot other subsystems push through.
package gateway

import (
	"log/slog"

	"github.com/careerbox/presenced/pkg/state"
)

// Broadcaster delivers already-encoded frames. Implementations must
// never block the caller on a slow recipient.
type Broadcaster interface {
	ToRoom(room string, frame []byte) error
	ToAll(frame []byte) error
}

// Local fans frames out to connections registered in this process.
type Local struct {
	states state.Manager
	logger *slog.Logger
}

var _ Broadcaster = (*Local)(nil)

func NewLocal(states state.Manager, logger *slog.Logger) *Local {
	return &Local{
		states: states,
		logger: logger.With(slog.String("component", "gateway")),
	}
}

func (l *Local) ToRoom(room string, frame []byte) error {
	conns := l.states.RoomTransports(room)
	for _, conn := range conns {
		if conn.Alive() {
			conn.Send(frame)
		}
	}
	l.logger.Debug("fanned out to room",
		slog.String("room", room),
		slog.Int("connections", len(conns)),
	)
	return nil
}

func (l *Local) ToAll(frame []byte) error {
	for _, ident := range l.states.AllIdentities() {
		for _, conn := range ident.Connections {
			if conn.Transport.Alive() {
				conn.Transport.Send(frame)
			}
		}
	}
	return nil
}
