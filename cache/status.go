package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sheetTranslator/models"
)

const statusKeyPrefix = "task:status:"

type Setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// StatusCache mirrors task snapshots into redis for readers outside this
// process. The in-memory registry stays authoritative; nothing is read back.
type StatusCache struct {
	cache Setter
	ttl   time.Duration
}

func NewStatusCache(cache Setter, ttl time.Duration) *StatusCache {
	return &StatusCache{cache: cache, ttl: ttl}
}

func Key(taskID string) string {
	return fmt.Sprintf("%s%s", statusKeyPrefix, taskID)
}

func (sc *StatusCache) Report(ctx context.Context, task models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, Key(task.ID), data, sc.ttl)
}
