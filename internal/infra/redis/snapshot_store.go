package redis

import (
	"context"
	"encoding/json"
	"time"

	"brainring-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotStore persists session snapshots as JSON blobs with TTL so a
// restarted node can rehydrate paused sessions.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(snap.ID), data, s.ttl).Err()
}

func (s *SnapshotStore) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, bool, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return domain.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *SnapshotStore) key(sessionID string) string {
	return "session:snapshot:" + sessionID
}
