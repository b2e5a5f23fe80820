package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"authwatch/pkg/loginpattern"
)

// PatternCache keeps learned baselines in Redis so consecutive scoring calls
// for the same user skip re-learning. A nil client disables caching; every
// method degrades to a miss or a no-op.
type PatternCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPatternCache(rdb *redis.Client, ttl time.Duration) *PatternCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PatternCache{rdb: rdb, ttl: ttl}
}

func patternKey(userID string) string {
	return fmt.Sprintf("loginrisk:pattern:%s", userID)
}

func (c *PatternCache) Get(ctx context.Context, userID string) (loginpattern.UserPattern, bool) {
	if c == nil || c.rdb == nil {
		return loginpattern.UserPattern{}, false
	}
	data, err := c.rdb.Get(ctx, patternKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Pattern cache read failed for %s: %v", userID, err)
		}
		return loginpattern.UserPattern{}, false
	}
	var p loginpattern.UserPattern
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("Pattern cache entry for %s is corrupt: %v", userID, err)
		return loginpattern.UserPattern{}, false
	}
	return p, true
}

func (c *PatternCache) Put(ctx context.Context, userID string, p loginpattern.UserPattern) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, patternKey(userID), data, c.ttl).Err(); err != nil {
		log.Printf("Pattern cache write failed for %s: %v", userID, err)
	}
}

func (c *PatternCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, patternKey(userID)).Err(); err != nil {
		log.Printf("Pattern cache invalidation failed for %s: %v", userID, err)
	}
}
