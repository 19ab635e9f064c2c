// Package store declares the external-collaborator interfaces the
// fabric depends on. The fabric never owns this data; it reads and
// mirrors into stores operated by the rest of the platform.
package store

import (
	"context"
	"time"

	"github.com/careerbox/presenced/pkg/protocol"
	"github.com/careerbox/presenced/pkg/state"
)

// Session is the external session record bound to a connection's
// token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore resolves session tokens. ErrSessionNotFound covers
// missing and expired sessions alike.
type SessionStore interface {
	Get(ctx context.Context, token string) (*Session, error)
}

// PresenceRecord mirrors the status fields carried on the external
// identity record.
type PresenceRecord struct {
	Status       state.Status `json:"status"`
	LastActiveAt time.Time    `json:"lastActiveAt"`
}

// IdentityStore persists presence state on identity records.
type IdentityStore interface {
	GetPresence(ctx context.Context, identityID string) (*PresenceRecord, error)
	SetPresence(ctx context.Context, identityID string, status state.Status, lastActive time.Time) error
	// TouchActivity updates only the last-activity timestamp.
	TouchActivity(ctx context.Context, identityID string, at time.Time) error
	ListOnline(ctx context.Context) ([]string, error)
}

// EntityType names the directory collections search fans out to.
type EntityType string

const (
	EntityPerson    EntityType = "person"
	EntityBusiness  EntityType = "business"
	EntityInstitute EntityType = "institute"
	EntitySkill     EntityType = "skill"
	EntityJob       EntityType = "job"
	EntityCourse    EntityType = "course"
)

// SearchTypes is the fan-out order for suggestion queries.
var SearchTypes = []EntityType{
	EntityPerson, EntityBusiness, EntityInstitute,
	EntitySkill, EntityJob, EntityCourse,
}

// ProfileIDCollections are the collections that may hold a public
// profile identifier and must be probed for uniqueness.
var ProfileIDCollections = []EntityType{EntityPerson, EntityBusiness, EntityInstitute}

// DirectoryStore serves entity search and profile-id uniqueness
// probes.
type DirectoryStore interface {
	// ProfileIDOwner returns the owning identity ID when profileID is
	// taken in the collection, or "" when free.
	ProfileIDOwner(ctx context.Context, collection EntityType, profileID string) (string, error)
	Search(ctx context.Context, entity EntityType, query string, limit int) ([]protocol.Suggestion, error)
}

// ActivityEntry is one row of the client activity log.
type ActivityEntry struct {
	UserID    string         `json:"userId"`
	Action    string         `json:"action"`
	Target    string         `json:"target,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type ActivityLog interface {
	Append(ctx context.Context, entry ActivityEntry) error
}

type HealthLog interface {
	Append(ctx context.Context, snapshot protocol.HealthSnapshot) error
}

type AlertLog interface {
	Append(ctx context.Context, alert protocol.Alert) error
}

// TrendingLog records search queries for trending analytics. Callers
// treat it as fire-and-forget.
type TrendingLog interface {
	RecordQuery(ctx context.Context, query string) error
}

// Pinger measures datastore reachability for health sampling.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}
