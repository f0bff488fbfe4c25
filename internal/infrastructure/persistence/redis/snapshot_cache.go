package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/pkg/digest"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT CACHE
// Готовое JSON-представление состояния вместе с ревизией и ETag. HTTP-адаптер
// отдаёт его без повторной сериализации, пока ревизия не изменилась.
// ══════════════════════════════════════════════════════════════════════════════

// TTLSnapshot is how long a rendered snapshot stays cached.
const TTLSnapshot = 10 * time.Minute

// KV is the byte store behind SnapshotCache. *Client implements it.
type KV interface {
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// CachedSnapshot is a rendered progress document.
type CachedSnapshot struct {
	UserID   string          `json:"user_id"`
	Revision int64           `json:"revision"`
	ETag     string          `json:"etag"`
	Body     json.RawMessage `json:"body"`
}

// SnapshotCache stores one rendered snapshot per user.
type SnapshotCache struct {
	kv  KV
	ttl time.Duration
}

// NewSnapshotCache creates a cache; ttl <= 0 means TTLSnapshot.
func NewSnapshotCache(kv KV, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = TTLSnapshot
	}
	return &SnapshotCache{kv: kv, ttl: ttl}
}

// SnapshotKey generates the cache key for a user's snapshot.
func SnapshotKey(userID string) string {
	return KeyPrefix + "snapshot:" + userID
}

// Render serializes the state and caches it under the given revision.
func (c *SnapshotCache) Render(ctx context.Context, s *progress.State, revision int64) (CachedSnapshot, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return CachedSnapshot{}, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	snap := CachedSnapshot{
		UserID:   s.UserID,
		Revision: revision,
		ETag:     digest.ETag(body),
		Body:     body,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return CachedSnapshot{}, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	if err := c.kv.SetBytes(ctx, SnapshotKey(s.UserID), data, c.ttl); err != nil {
		return snap, err
	}
	return snap, nil
}

// Get returns the cached snapshot if it was rendered at the given revision.
func (c *SnapshotCache) Get(ctx context.Context, userID string, revision int64) (CachedSnapshot, error) {
	data, err := c.kv.GetBytes(ctx, SnapshotKey(userID))
	if err != nil {
		return CachedSnapshot{}, err
	}

	var snap CachedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return CachedSnapshot{}, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	if snap.Revision != revision {
		return CachedSnapshot{}, ErrCacheMiss
	}
	return snap, nil
}

// Fetch returns the cached snapshot or renders a fresh one. A failing cache
// never fails the read.
func (c *SnapshotCache) Fetch(ctx context.Context, s *progress.State, revision int64) (CachedSnapshot, error) {
	snap, err := c.Get(ctx, s.UserID, revision)
	if err == nil {
		return snap, nil
	}
	snap, err = c.Render(ctx, s, revision)
	if snap.Body != nil {
		return snap, nil
	}
	return snap, err
}

// Invalidate drops a user's snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context, userID string) error {
	err := c.kv.Delete(ctx, SnapshotKey(userID))
	if errors.Is(err, ErrCacheMiss) {
		return nil
	}
	return err
}
