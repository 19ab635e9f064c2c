package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/careerbox/presenced/pkg/protocol"
	"github.com/careerbox/presenced/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// fakeBroadcaster records room sends and can fail selected rooms.
type fakeBroadcaster struct {
	rooms     []string
	frames    [][]byte
	allFrames [][]byte
	failRooms map[string]bool
}

func (b *fakeBroadcaster) ToRoom(room string, frame []byte) error {
	if b.failRooms[room] {
		return errors.New("no such room")
	}
	b.rooms = append(b.rooms, room)
	b.frames = append(b.frames, frame)
	return nil
}

func (b *fakeBroadcaster) ToAll(frame []byte) error {
	b.allFrames = append(b.allFrames, frame)
	return nil
}

type fakeAlertLog struct {
	alerts []protocol.Alert
	fail   bool
}

func (l *fakeAlertLog) Append(ctx context.Context, alert protocol.Alert) error {
	if l.fail {
		return errors.New("log unreachable")
	}
	l.alerts = append(l.alerts, alert)
	return nil
}

func decodeNotification(t *testing.T, raw []byte) (protocol.Frame, protocol.Notification) {
	t.Helper()
	var frame protocol.Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	var n protocol.Notification
	require.NoError(t, json.Unmarshal(frame.Payload, &n))
	return frame, n
}

func TestNotifyStampsAndTargetsUserRoom(t *testing.T) {
	bcast := &fakeBroadcaster{}
	d := NewDispatcher(bcast, nil, newTestLogger())

	err := d.Notify("u1", protocol.Notification{
		Kind:     protocol.KindInfo,
		Category: protocol.CategorySocial,
		Title:    "New follower",
	})
	require.NoError(t, err)
	require.Len(t, bcast.frames, 1)
	assert.Equal(t, []string{"user:u1"}, bcast.rooms)

	frame, n := decodeNotification(t, bcast.frames[0])
	assert.Equal(t, protocol.EventNotification, frame.Event)
	assert.NotEmpty(t, n.ID, "server assigns the idempotency key")
	assert.False(t, n.Timestamp.IsZero())
}

func TestNotifyPreservesCallerID(t *testing.T) {
	bcast := &fakeBroadcaster{}
	d := NewDispatcher(bcast, nil, newTestLogger())

	require.NoError(t, d.Notify("u1", protocol.Notification{ID: "job-123", Title: "x"}))
	_, n := decodeNotification(t, bcast.frames[0])
	assert.Equal(t, "job-123", n.ID)
}

func TestNotifyManyContinuesPastFailure(t *testing.T) {
	bcast := &fakeBroadcaster{failRooms: map[string]bool{"user:b": true}}
	d := NewDispatcher(bcast, nil, newTestLogger())

	err := d.NotifyMany([]string{"a", "b", "c"}, protocol.Notification{Title: "x"})
	assert.Error(t, err, "first failure is reported")
	assert.Equal(t, []string{"user:a", "user:c"}, bcast.rooms, "remaining recipients still get delivery")

	// every recipient shares one stamped ID
	_, na := decodeNotification(t, bcast.frames[0])
	_, nc := decodeNotification(t, bcast.frames[1])
	assert.Equal(t, na.ID, nc.ID)
}

func TestNotifyRole(t *testing.T) {
	bcast := &fakeBroadcaster{}
	d := NewDispatcher(bcast, nil, newTestLogger())

	require.NoError(t, d.NotifyRole(state.RoleBusiness, protocol.Notification{Title: "x"}))
	assert.Equal(t, []string{"role:business"}, bcast.rooms)
}

func TestAlertOperatorsSwallowsLogFailure(t *testing.T) {
	bcast := &fakeBroadcaster{}
	log := &fakeAlertLog{fail: true}
	d := NewDispatcher(bcast, log, newTestLogger())

	err := d.AlertOperators(context.Background(), protocol.Alert{
		Type:     "datastore",
		Message:  "redis unreachable",
		Severity: "critical",
	})
	require.NoError(t, err, "an unreachable log must not suppress the live alert")
	assert.Equal(t, []string{"operator"}, bcast.rooms)
}

func TestAlertOperatorsAppendsToLog(t *testing.T) {
	bcast := &fakeBroadcaster{}
	log := &fakeAlertLog{}
	d := NewDispatcher(bcast, log, newTestLogger())

	require.NoError(t, d.AlertOperators(context.Background(), protocol.Alert{Type: "test", Message: "m"}))
	require.Len(t, log.alerts, 1)
	assert.False(t, log.alerts[0].Timestamp.IsZero())
}

func TestProductConstructors(t *testing.T) {
	n := ApplicationSubmitted("Go Engineer", "app-1")
	assert.Equal(t, protocol.KindSuccess, n.Kind)
	assert.Equal(t, protocol.CategoryApplication, n.Category)
	assert.Equal(t, "/applications/app-1", n.ActionRef)

	n = PaymentFailed("$50", "pay-9")
	assert.Equal(t, protocol.KindError, n.Kind)
	assert.Equal(t, protocol.CategorySystem, n.Category)

	n = ConnectionRequestReceived("Jane", "u2")
	assert.Equal(t, protocol.KindInfo, n.Kind)
	assert.Equal(t, protocol.CategorySocial, n.Category)
	assert.Contains(t, n.Body, "Jane")
}

func TestBroadcastSystemUpdate(t *testing.T) {
	bcast := &fakeBroadcaster{}
	d := NewDispatcher(bcast, nil, newTestLogger())

	require.NoError(t, d.BroadcastSystemUpdate(protocol.SystemUpdate{Type: "maintenance", Message: "soon"}))
	require.Len(t, bcast.allFrames, 1)

	var frame protocol.Frame
	require.NoError(t, json.Unmarshal(bcast.allFrames[0], &frame))
	assert.Equal(t, protocol.EventSystemUpdate, frame.Event)

	var update protocol.SystemUpdate
	require.NoError(t, json.Unmarshal(frame.Payload, &update))
	assert.Equal(t, "maintenance", update.Type)
	assert.WithinDuration(t, time.Now(), update.Timestamp, time.Minute)
}
