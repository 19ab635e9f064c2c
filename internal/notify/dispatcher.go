// Package notify targets events at identities, roles and operator
// rooms. Sends are fire-and-forget from the caller's perspective:
// failures are logged, surfaced only to the direct caller, and never
// abort delivery to the remaining recipients.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/careerbox/presenced/internal/gateway"
	"github.com/careerbox/presenced/internal/metrics"
	"github.com/careerbox/presenced/internal/rooms"
	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
	"github.com/careerbox/presenced/pkg/state"
	"github.com/google/uuid"
)

type Dispatcher struct {
	bcast  gateway.Broadcaster
	alerts store.AlertLog
	logger *slog.Logger
	now    func() time.Time
}

func NewDispatcher(bcast gateway.Broadcaster, alerts store.AlertLog, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		bcast:  bcast,
		alerts: alerts,
		logger: logger.With(slog.String("component", "dispatcher")),
		now:    time.Now,
	}
}

// stamp assigns the server-side idempotency key and timestamp when the
// caller omitted them.
func (d *Dispatcher) stamp(n *protocol.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = d.now().UTC()
	}
}

// Notify delivers a notification to every live connection of one
// identity.
func (d *Dispatcher) Notify(identityID string, n protocol.Notification) error {
	d.stamp(&n)
	frame, err := protocol.Encode(protocol.EventNotification, "", n)
	if err != nil {
		return err
	}
	if err := d.bcast.ToRoom(rooms.UserRoom(identityID), frame); err != nil {
		d.logger.Warn("notification delivery failed",
			slog.String("identityID", identityID),
			slog.Any("error", err),
		)
		return err
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Category)).Inc()
	return nil
}

// NotifyMany delivers to each identity's user room. One recipient
// failing does not stop the rest; the first error is returned after
// all deliveries were attempted.
func (d *Dispatcher) NotifyMany(identityIDs []string, n protocol.Notification) error {
	d.stamp(&n)
	var firstErr error
	for _, id := range identityIDs {
		if err := d.Notify(id, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NotifyRole delivers to every identity currently holding a role.
func (d *Dispatcher) NotifyRole(role state.Role, n protocol.Notification) error {
	d.stamp(&n)
	frame, err := protocol.Encode(protocol.EventNotification, "", n)
	if err != nil {
		return err
	}
	return d.bcast.ToRoom(rooms.RoleRoom(role), frame)
}

// AlertOperators pushes an alert into the operator room and appends it
// to the alert log. Log failures are swallowed: an unreachable log
// must not suppress the live alert.
func (d *Dispatcher) AlertOperators(ctx context.Context, alert protocol.Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = d.now().UTC()
	}
	frame, err := protocol.Encode(protocol.EventAdminAlert, "", alert)
	if err != nil {
		return err
	}
	sendErr := d.bcast.ToRoom(rooms.OperatorRoom, frame)
	if d.alerts != nil {
		if err := d.alerts.Append(ctx, alert); err != nil {
			d.logger.Warn("failed to append alert log", slog.Any("error", err))
		}
	}
	return sendErr
}

// BroadcastSystemUpdate pushes an update to every live connection.
func (d *Dispatcher) BroadcastSystemUpdate(update protocol.SystemUpdate) error {
	if update.Timestamp.IsZero() {
		update.Timestamp = d.now().UTC()
	}
	frame, err := protocol.Encode(protocol.EventSystemUpdate, "", update)
	if err != nil {
		return err
	}
	return d.bcast.ToAll(frame)
}
