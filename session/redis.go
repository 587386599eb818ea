package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const editLockTTL = 2 * time.Minute

type redisStore struct {
	client *redis.Client
}

// NewRedisSessionStore returns a session store backed by redis, so research
// sessions survive process restarts and can be shared between replicas. Plan
// snapshots live under session:<id>:plan; edit serialization uses a SETNX
// lock under session:<id>:edit.
func NewRedisSessionStore(opts RedisOptions) Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &redisStore{client: rdb}
}

func planKey(id string) string { return fmt.Sprintf("session:%s:plan", id) }
func metaKey(id string) string { return fmt.Sprintf("session:%s:meta", id) }
func editKey(id string) string { return fmt.Sprintf("session:%s:edit", id) }

func (store *redisStore) EnsureSession(id string, ttl time.Duration) (Session, error) {
	ctx := context.Background()
	if id != "" {
		exists, err := store.client.Exists(ctx, metaKey(id)).Result()
		if err == nil && exists == 1 {
			_ = store.client.Expire(ctx, metaKey(id), ttl).Err()
			_ = store.client.Expire(ctx, planKey(id), ttl).Err()
			return &redisSession{client: store.client, id: id, ttl: ttl}, nil
		}
	}

	newID := uuid.NewString()
	if err := store.client.Set(ctx, metaKey(newID), "{}", ttl).Err(); err != nil {
		return nil, err
	}
	return &redisSession{client: store.client, id: newID, ttl: ttl}, nil
}

func (store *redisStore) GetSession(id string) (Session, error) {
	ctx := context.Background()
	exists, err := store.client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}
	return &redisSession{client: store.client, id: id}, nil
}

type redisSession struct {
	client *redis.Client
	id     string
	ttl    time.Duration
}

func (s *redisSession) ID() string { return s.id }

func (s *redisSession) Expire(ttl time.Duration) {
	ctx := context.Background()
	s.ttl = ttl
	_ = s.client.Expire(ctx, metaKey(s.id), ttl).Err()
	_ = s.client.Expire(ctx, planKey(s.id), ttl).Err()
}

func (s *redisSession) Current() (Snapshot, bool) {
	ctx := context.Background()
	val, err := s.client.Get(ctx, planKey(s.id)).Result()
	if err != nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

func (s *redisSession) Replace(snap Snapshot) error {
	ctx := context.Background()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl <= 0 {
		ttl = s.client.TTL(ctx, metaKey(s.id)).Val()
	}
	return s.client.Set(ctx, planKey(s.id), data, ttl).Err()
}

func (s *redisSession) BeginEdit() error {
	ctx := context.Background()
	ok, err := s.client.SetNX(ctx, editKey(s.id), "1", editLockTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrEditInFlight
	}
	return nil
}

func (s *redisSession) EndEdit() {
	ctx := context.Background()
	_ = s.client.Del(ctx, editKey(s.id)).Err()
}

// Ping verifies connectivity the way the repository layer does on startup.
func (store *redisStore) Ping(ctx context.Context) error {
	pong, err := store.client.Ping(ctx).Result()
	if err != nil {
		return err
	}
	if pong != "PONG" {
		return errors.New("unexpected redis ping reply: " + pong)
	}
	return nil
}
