// Package redisstore backs the session, presence and log collaborator
// interfaces with Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
	"github.com/careerbox/presenced/pkg/state"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix  = "session:"
	presencePrefix = "presence:"
	onlineSetKey   = "presence:online"
	activityKey    = "log:activity"
	healthKey      = "log:health"
	alertKey       = "log:alerts"
	trendingKey    = "search:trending"

	// Log lists are capped so an unattended instance cannot grow them
	// unbounded.
	logCap = 10000
)

type Store struct {
	client *redis.Client
}

var (
	_ store.SessionStore  = (*Store)(nil)
	_ store.IdentityStore = (*Store)(nil)
	_ store.ActivityLog   = (*Store)(nil)
	_ store.TrendingLog   = (*Store)(nil)
	_ store.Pinger        = (*Store)(nil)
	_ store.HealthLog     = healthLog{}
	_ store.AlertLog      = alertLog{}
)

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// --- SessionStore ---

func (s *Store) Get(ctx context.Context, token string) (*store.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+token).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	var sess store.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		return nil, store.ErrSessionNotFound
	}
	return &sess, nil
}

// --- IdentityStore ---

func (s *Store) GetPresence(ctx context.Context, identityID string) (*store.PresenceRecord, error) {
	fields, err := s.client.HGetAll(ctx, presencePrefix+identityID).Result()
	if err != nil {
		return nil, fmt.Errorf("presence read: %w", err)
	}
	if len(fields) == 0 {
		return nil, store.ErrIdentityNotFound
	}
	rec := &store.PresenceRecord{Status: state.Status(fields["status"])}
	if raw, ok := fields["lastActiveAt"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.LastActiveAt = t
		}
	}
	return rec, nil
}

func (s *Store) SetPresence(ctx context.Context, identityID string, status state.Status, lastActive time.Time) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, presencePrefix+identityID,
		"status", string(status),
		"lastActiveAt", lastActive.UTC().Format(time.RFC3339Nano),
	)
	if status == state.StatusOffline {
		pipe.SRem(ctx, onlineSetKey, identityID)
	} else {
		pipe.SAdd(ctx, onlineSetKey, identityID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence write: %w", err)
	}
	return nil
}

func (s *Store) TouchActivity(ctx context.Context, identityID string, at time.Time) error {
	err := s.client.HSet(ctx, presencePrefix+identityID,
		"lastActiveAt", at.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("activity touch: %w", err)
	}
	return nil
}

func (s *Store) ListOnline(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("online list: %w", err)
	}
	return ids, nil
}

// --- Logs ---

func (s *Store) Append(ctx context.Context, entry store.ActivityEntry) error {
	return s.push(ctx, activityKey, entry)
}

func (s *Store) appendSnapshot(ctx context.Context, key string, v any) error {
	return s.push(ctx, key, v)
}

func (s *Store) push(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("log encode: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, logCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("log append: %w", err)
	}
	return nil
}

// HealthLog and AlertLog share the list-append shape but live under
// separate keys; wrap the store so both interfaces can be satisfied
// despite the identical method name.
type healthLog struct{ s *Store }
type alertLog struct{ s *Store }

func (s *Store) HealthLog() store.HealthLog { return healthLog{s} }
func (s *Store) AlertLog() store.AlertLog   { return alertLog{s} }

func (h healthLog) Append(ctx context.Context, snapshot protocol.HealthSnapshot) error {
	logged := struct {
		protocol.HealthSnapshot
		LoggedAt time.Time `json:"loggedAt"`
	}{snapshot, time.Now().UTC()}
	return h.s.appendSnapshot(ctx, healthKey, logged)
}

func (a alertLog) Append(ctx context.Context, alert protocol.Alert) error {
	return a.s.appendSnapshot(ctx, alertKey, alert)
}

// --- TrendingLog ---

func (s *Store) RecordQuery(ctx context.Context, query string) error {
	if err := s.client.ZIncrBy(ctx, trendingKey, 1, query).Err(); err != nil {
		return fmt.Errorf("trending record: %w", err)
	}
	return nil
}

// --- Pinger ---

func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("redis ping: %w", err)
	}
	return time.Since(start), nil
}
