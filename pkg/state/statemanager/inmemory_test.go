package statemanager_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/careerbox/presenced/pkg/state"
	"github.com/careerbox/presenced/pkg/state/statemanager"
	"github.com/careerbox/presenced/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func newTestManager() *statemanager.InMemoryManager {
	return statemanager.NewInMemoryManager(newTestLogger())
}

func newTransportConn() *transport.Connection {
	var wg sync.WaitGroup
	return transport.NewConnection(context.Background(), &wg, nil, transport.Config{}, newTestLogger())
}

func TestConnectionLifecycle(t *testing.T) {
	m := newTestManager()
	conn := newTransportConn()

	sc, err := m.RegisterConnection(conn, "127.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, conn.ID(), sc.ID)
	assert.Equal(t, "test-agent", sc.UserAgent)

	_, err = m.RegisterConnection(conn, "127.0.0.1", "test-agent")
	assert.Error(t, err, "double registration must fail")

	got, found := m.GetConnection(conn.ID())
	require.True(t, found)
	assert.Equal(t, conn.ID(), got.ID)

	last, err := m.DeregisterConnection(conn.ID())
	require.NoError(t, err)
	assert.False(t, last, "unattached connections have no identity to finish")
	_, found = m.GetConnection(conn.ID())
	assert.False(t, found)

	// deregistering again is a no-op
	last, err = m.DeregisterConnection(conn.ID())
	assert.NoError(t, err)
	assert.False(t, last)
}

func TestAttachAndConnectionCounts(t *testing.T) {
	m := newTestManager()
	conn1 := newTransportConn()
	conn2 := newTransportConn()
	m.RegisterConnection(conn1, "1.1.1.1", "")
	m.RegisterConnection(conn2, "2.2.2.2", "")

	ident, err := m.Attach(conn1.ID(), "u1", state.RoleStandard, 0, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.ID)
	assert.Equal(t, state.RoleStandard, ident.Role)
	assert.Equal(t, 1, m.IdentityConnectionCount("u1"))

	_, err = m.Attach(conn2.ID(), "u1", state.RoleStandard, 0, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, m.IdentityConnectionCount("u1"))
	assert.Equal(t, 2, m.ConnectionCount())

	last, err := m.DeregisterConnection(conn1.ID())
	require.NoError(t, err)
	assert.False(t, last, "a sibling connection is still attached")
	assert.Equal(t, 1, m.IdentityConnectionCount("u1"))

	_, err = m.Attach(conn1.ID(), "u2", state.RoleStandard, 0, "sess-2")
	assert.Error(t, err, "attach to deregistered connection must fail")
}

func TestAttachUnknownConnection(t *testing.T) {
	m := newTestManager()
	conn := newTransportConn()
	_, err := m.Attach(conn.ID(), "u1", state.RoleStandard, 0, "")
	assert.Error(t, err)
}

func TestFindOldestConnection(t *testing.T) {
	m := newTestManager()
	conn1 := newTransportConn()
	m.RegisterConnection(conn1, "1.1.1.1", "")
	time.Sleep(5 * time.Millisecond)
	conn2 := newTransportConn()
	m.RegisterConnection(conn2, "2.2.2.2", "")

	m.Attach(conn1.ID(), "u1", state.RoleStandard, 0, "")
	m.Attach(conn2.ID(), "u1", state.RoleStandard, 0, "")

	oldest, found := m.FindOldestConnection("u1")
	require.True(t, found)
	assert.Equal(t, conn1.ID(), oldest.ID)

	_, found = m.FindOldestConnection("nobody")
	assert.False(t, found)
}

func TestRoomMembership(t *testing.T) {
	m := newTestManager()
	conn := newTransportConn()
	m.RegisterConnection(conn, "1.1.1.1", "")
	m.Attach(conn.ID(), "u1", state.RoleStandard, 0, "")

	require.NoError(t, m.Join("u1", "user:u1"))
	require.NoError(t, m.Join("u1", "role:standard"))
	// joining twice is idempotent
	require.NoError(t, m.Join("u1", "user:u1"))

	assert.Equal(t, []string{"role:standard", "user:u1"}, m.RoomsOf("u1"))

	members := m.RoomMembers("user:u1")
	require.Len(t, members, 1)
	assert.Equal(t, "u1", members[0].ID)

	transports := m.RoomTransports("user:u1")
	require.Len(t, transports, 1)
	assert.Equal(t, conn.ID(), transports[0].ID())

	require.NoError(t, m.Leave("u1", "user:u1"))
	_, found := m.FindRoom("user:u1")
	assert.False(t, found, "empty room should be removed")

	// leaving a room you are not in is a no-op
	assert.NoError(t, m.Leave("u1", "user:u1"))

	assert.Error(t, m.Join("nobody", "room"))
}

func TestDeregisterLastConnectionCleansRooms(t *testing.T) {
	m := newTestManager()
	conn := newTransportConn()
	m.RegisterConnection(conn, "1.1.1.1", "")
	m.Attach(conn.ID(), "u1", state.RoleStandard, 0, "")
	m.Join("u1", "role:standard")

	last, err := m.DeregisterConnection(conn.ID())
	require.NoError(t, err)
	assert.True(t, last, "the identity's only connection is its last")

	_, found := m.FindIdentity("u1")
	assert.False(t, found, "identity should go with its last connection")
	_, found = m.FindRoom("role:standard")
	assert.False(t, found)
}

func TestConcurrentDeregisterElectsOneLast(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := newTestManager()
		conn1 := newTransportConn()
		conn2 := newTransportConn()
		m.RegisterConnection(conn1, "1.1.1.1", "")
		m.RegisterConnection(conn2, "2.2.2.2", "")
		m.Attach(conn1.ID(), "u1", state.RoleStandard, 0, "")
		m.Attach(conn2.ID(), "u1", state.RoleStandard, 0, "")

		var (
			start sync.WaitGroup
			done  sync.WaitGroup
			mu    sync.Mutex
			lasts int
		)
		start.Add(1)
		for _, c := range []*transport.Connection{conn1, conn2} {
			done.Add(1)
			go func(c *transport.Connection) {
				defer done.Done()
				start.Wait()
				last, err := m.DeregisterConnection(c.ID())
				assert.NoError(t, err)
				if last {
					mu.Lock()
					lasts++
					mu.Unlock()
				}
			}(c)
		}
		start.Done()
		done.Wait()

		assert.Equal(t, 1, lasts, "exactly one closer must observe the final connection")
		_, found := m.FindIdentity("u1")
		assert.False(t, found)
	}
}

func TestConcurrentJoins(t *testing.T) {
	m := newTestManager()
	conn := newTransportConn()
	m.RegisterConnection(conn, "1.1.1.1", "")
	m.Attach(conn.ID(), "u1", state.RoleStandard, 0, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Join("u1", "shared")
			m.RoomMembers("shared")
		}()
	}
	wg.Wait()

	members := m.RoomMembers("shared")
	require.Len(t, members, 1)
}
