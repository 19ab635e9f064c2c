// Package rooms derives and maintains the broadcast channels a
// connected identity belongs to. Membership is always recomputed from
// (identity, role) at connect time, never persisted.
package rooms

import (
	"log/slog"
	"regexp"

	"github.com/careerbox/presenced/internal/fault"
	"github.com/careerbox/presenced/pkg/state"
)

// Room name namespaces.
const (
	OperatorRoom           = "operator"
	OperatorMonitoringRoom = "operator:monitoring"
)

func UserRoom(identityID string) string   { return "user:" + identityID }
func StatusRoom(identityID string) string { return "status:" + identityID }
func RoleRoom(role state.Role) string     { return "role:" + string(role) }

// EntityRoom scopes business/institute identities to their entity.
func EntityRoom(role state.Role, identityID string) string {
	return string(role) + ":" + identityID
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9:_-]{1,100}$`)

// ValidateName gates explicit join/leave requests so clients cannot
// claim arbitrary namespaces.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fault.Newf(fault.Validation, "invalid room name %q", name)
	}
	return nil
}

// InitialRooms is the deterministic membership set for an identity:
// every connection gets its own user: and status: rooms plus its
// role: room; operators add the two operator rooms; business and
// institute identities add their role-scoped entity room.
func InitialRooms(identityID string, role state.Role) []string {
	out := []string{
		UserRoom(identityID),
		StatusRoom(identityID),
		RoleRoom(role),
	}
	switch role {
	case state.RoleOperator:
		out = append(out, OperatorRoom, OperatorMonitoringRoom)
	case state.RoleBusiness, state.RoleInstitute:
		out = append(out, EntityRoom(role, identityID))
	}
	return out
}

// Manager joins and leaves rooms on behalf of connections.
type Manager struct {
	states state.Manager
	logger *slog.Logger
}

func NewManager(states state.Manager, logger *slog.Logger) *Manager {
	return &Manager{
		states: states,
		logger: logger.With(slog.String("component", "rooms")),
	}
}

// JoinInitial places an identity into its derived room set and returns
// the rooms joined.
func (m *Manager) JoinInitial(identityID string, role state.Role) ([]string, error) {
	joined := InitialRooms(identityID, role)
	for _, name := range joined {
		if err := m.states.Join(identityID, name); err != nil {
			return nil, err
		}
	}
	m.logger.Debug("joined initial rooms",
		slog.String("identityID", identityID),
		slog.Any("rooms", joined),
	)
	return joined, nil
}

// Join validates the room name before touching membership state.
func (m *Manager) Join(identityID, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return m.states.Join(identityID, name)
}

func (m *Manager) Leave(identityID, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return m.states.Leave(identityID, name)
}

// LeaveAll removes an identity from every room it is in. Idempotent
// and best-effort: a failing leave is logged and the rest continue, so
// disconnect cleanup always runs to completion.
func (m *Manager) LeaveAll(identityID string) {
	for _, name := range m.states.RoomsOf(identityID) {
		if err := m.states.Leave(identityID, name); err != nil {
			m.logger.Warn("failed to leave room during cleanup",
				slog.String("identityID", identityID),
				slog.String("room", name),
				slog.Any("error", err),
			)
		}
	}
}

// List returns the identity's current memberships.
func (m *Manager) List(identityID string) []string {
	return m.states.RoomsOf(identityID)
}
