package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgredis "github.com/quillmark/core/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
)

const (
	entryKeyPrefix = "qm:sched:entry:"
	entryIndexKey  = "qm:sched:due" // sorted set: score=due unix ms, member=post_id
	entryTTL       = 30 * 24 * time.Hour
)

// EntryStore persists pending entries in Redis so the gateway can re-arm
// them after a restart.
type EntryStore struct {
	rc *pkgredis.Client
}

func NewEntryStore(rc *pkgredis.Client) *EntryStore {
	return &EntryStore{rc: rc}
}

func (s *EntryStore) entryKey(postID string) string { return entryKeyPrefix + postID }

// Put upserts the entry. Writing the same post twice replaces the prior
// entry; there is never more than one per post.
func (s *EntryStore) Put(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, s.entryKey(e.PostID), data, entryTTL)
	pipe.ZAdd(ctx, entryIndexKey, redis.Z{
		Score:  float64(e.DueAt.UnixMilli()),
		Member: e.PostID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// Remove deletes the entry for a post, if any.
func (s *EntryStore) Remove(ctx context.Context, postID string) error {
	pipe := s.rc.Raw().TxPipeline()
	pipe.Del(ctx, s.entryKey(postID))
	pipe.ZRem(ctx, entryIndexKey, postID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns all persisted entries ordered by due instant.
func (s *EntryStore) List(ctx context.Context) ([]Entry, error) {
	ids, err := s.rc.Raw().ZRange(ctx, entryIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		data, err := s.rc.Raw().Get(ctx, s.entryKey(id)).Bytes()
		if err == redis.Nil {
			// Index member outlived its entry; drop it.
			s.rc.Raw().ZRem(ctx, entryIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry %s: %w", id, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
