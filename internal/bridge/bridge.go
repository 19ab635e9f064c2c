// Package bridge shares room broadcasts across fabric instances
// through NATS. Each instance publishes its outbound frames and
// replays frames published by its peers, so a notification reaches an
// identity no matter which instance holds its connection.
package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/careerbox/presenced/internal/gateway"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	roomSubject = "presenced.room"
	allSubject  = "presenced.all"
)

// envelope wraps a frame with its origin so instances can skip their
// own publications.
type envelope struct {
	Origin string `json:"origin"`
	Room   string `json:"room,omitempty"`
	Frame  []byte `json:"frame"`
}

type Bridge struct {
	conn       *nats.Conn
	local      gateway.Broadcaster
	instanceID string
	logger     *slog.Logger
	subs       []*nats.Subscription
}

var _ gateway.Broadcaster = (*Bridge)(nil)

// Connect dials NATS and starts replaying peer broadcasts into the
// local gateway.
func Connect(url string, local gateway.Broadcaster, logger *slog.Logger) (*Bridge, error) {
	conn, err := nats.Connect(url,
		nats.Name("presenced"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("bridge connect: %w", err)
	}
	b := &Bridge{
		conn:       conn,
		local:      local,
		instanceID: uuid.NewString(),
		logger:     logger.With(slog.String("component", "bridge")),
	}

	roomSub, err := conn.Subscribe(roomSubject, b.onRoomFrame)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bridge subscribe: %w", err)
	}
	allSub, err := conn.Subscribe(allSubject, b.onAllFrame)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bridge subscribe: %w", err)
	}
	b.subs = []*nats.Subscription{roomSub, allSub}

	b.logger.Info("cross-instance bridge connected", slog.String("url", url))
	return b, nil
}

func (b *Bridge) onRoomFrame(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.logger.Warn("dropping malformed bridge frame", slog.Any("error", err))
		return
	}
	if env.Origin == b.instanceID {
		return
	}
	b.local.ToRoom(env.Room, env.Frame)
}

func (b *Bridge) onAllFrame(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.logger.Warn("dropping malformed bridge frame", slog.Any("error", err))
		return
	}
	if env.Origin == b.instanceID {
		return
	}
	b.local.ToAll(env.Frame)
}

// ToRoom delivers locally and publishes to peers. Local delivery is
// never gated on the publish succeeding.
func (b *Bridge) ToRoom(room string, frame []byte) error {
	localErr := b.local.ToRoom(room, frame)
	if err := b.publish(roomSubject, envelope{Origin: b.instanceID, Room: room, Frame: frame}); err != nil {
		b.logger.Warn("bridge publish failed", slog.String("room", room), slog.Any("error", err))
	}
	return localErr
}

func (b *Bridge) ToAll(frame []byte) error {
	localErr := b.local.ToAll(frame)
	if err := b.publish(allSubject, envelope{Origin: b.instanceID, Frame: frame}); err != nil {
		b.logger.Warn("bridge publish failed", slog.Any("error", err))
	}
	return localErr
}

func (b *Bridge) publish(subject string, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.conn.Publish(subject, data)
}

// Close drains the subscriptions and the connection.
func (b *Bridge) Close() {
	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.conn.Drain()
}
