// Package presence maintains each identity's online/away/busy/offline
// status and last-activity timestamp, mirrored into the external
// identity store.
package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/careerbox/presenced/internal/gateway"
	"github.com/careerbox/presenced/internal/rooms"
	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
	"github.com/careerbox/presenced/pkg/state"
)

type Tracker struct {
	identities store.IdentityStore
	bcast      gateway.Broadcaster
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewTracker(identities store.IdentityStore, bcast gateway.Broadcaster, staleAfter time.Duration, logger *slog.Logger) *Tracker {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &Tracker{
		identities: identities,
		bcast:      bcast,
		staleAfter: staleAfter,
		logger:     logger.With(slog.String("component", "presence")),
		now:        time.Now,
	}
}

// SetStatus is the only path that changes persisted status. It writes
// status plus lastActivity=now and broadcasts the transition:
// online/offline go to every connection, the finer-grained states go
// to the identity's own status room.
func (t *Tracker) SetStatus(ctx context.Context, identityID string, status state.Status) error {
	now := t.now().UTC()
	if err := t.identities.SetPresence(ctx, identityID, status, now); err != nil {
		return err
	}
	t.broadcast(identityID, status, now)
	return nil
}

func (t *Tracker) broadcast(identityID string, status state.Status, at time.Time) {
	switch status {
	case state.StatusOnline:
		frame, err := protocol.Encode(protocol.EventUserOnline, "", identityID)
		if err == nil {
			t.bcast.ToAll(frame)
		}
	case state.StatusOffline:
		frame, err := protocol.Encode(protocol.EventUserOffline, "", identityID)
		if err == nil {
			t.bcast.ToAll(frame)
		}
	default:
		frame, err := protocol.Encode(protocol.EventUserStatusUpdate, "", protocol.StatusUpdate{
			UserID:    identityID,
			Status:    string(status),
			Timestamp: at,
		})
		if err == nil {
			t.bcast.ToRoom(rooms.StatusRoom(identityID), frame)
		}
	}
}

// TouchActivity refreshes the last-activity timestamp without touching
// status. Heartbeats land here.
func (t *Tracker) TouchActivity(ctx context.Context, identityID string) error {
	return t.identities.TouchActivity(ctx, identityID, t.now().UTC())
}

// GetStatus reads the stored status with lazy expiry: a stored
// "online" older than the staleness window is demoted to offline,
// written back, and broadcast, before being returned. Repeated reads
// are idempotent because the first read persists the demotion.
func (t *Tracker) GetStatus(ctx context.Context, identityID string) (state.Status, error) {
	rec, err := t.identities.GetPresence(ctx, identityID)
	if err != nil {
		return "", err
	}
	if rec.Status == state.StatusOnline && t.now().Sub(rec.LastActiveAt) > t.staleAfter {
		if err := t.identities.SetPresence(ctx, identityID, state.StatusOffline, rec.LastActiveAt); err != nil {
			// Demotion write failed; still report offline to the
			// caller, the next read will retry the write-back.
			t.logger.Warn("stale-presence demotion failed",
				slog.String("identityID", identityID),
				slog.Any("error", err),
			)
		} else {
			t.broadcast(identityID, state.StatusOffline, rec.LastActiveAt)
		}
		return state.StatusOffline, nil
	}
	return rec.Status, nil
}

// ListOnline returns identities the store currently marks online.
// Entries can be stale until each one is individually read through
// GetStatus; this is the documented lazy-expiry trade-off, chosen over
// a background sweep.
func (t *Tracker) ListOnline(ctx context.Context) ([]string, error) {
	return t.identities.ListOnline(ctx)
}

// Connected marks an identity online when its first connection lands.
func (t *Tracker) Connected(ctx context.Context, identityID string) error {
	return t.SetStatus(ctx, identityID, state.StatusOnline)
}

// Disconnected unconditionally marks an identity offline, whatever the
// reason for the disconnect.
func (t *Tracker) Disconnected(ctx context.Context, identityID string) {
	if err := t.SetStatus(ctx, identityID, state.StatusOffline); err != nil {
		t.logger.Warn("failed to mark identity offline",
			slog.String("identityID", identityID),
			slog.Any("error", err),
		)
	}
}
