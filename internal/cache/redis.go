package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	entryPrefix = "pageguard:perm:"
	genPrefix   = "pageguard:perm:gen:"
	// genTTL outlives any entry so a generation never resets while a snapshot under it is live.
	genTTL = 24 * time.Hour
)

type redisEntry struct {
	Gen    uint64 `json:"gen"`
	Grants Grants `json:"grants"`
}

// Redis is a PermissionCache shared by every API instance.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func entryKey(userID string) string { return entryPrefix + userID }
func genKey(userID string) string   { return genPrefix + userID }

func parseGen(v interface{}) (uint64, error) {
	switch s := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseUint(s, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected generation value %T", v)
	}
}

func (r *Redis) Generation(ctx context.Context, userID string) (uint64, error) {
	v, err := r.client.Get(ctx, genKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read permission generation: %w", err)
	}
	return strconv.ParseUint(v, 10, 64)
}

func (r *Redis) Get(ctx context.Context, userID string) (Grants, bool, error) {
	vals, err := r.client.MGet(ctx, entryKey(userID), genKey(userID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read permission cache: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, false, nil
	}
	gen, err := parseGen(vals[1])
	if err != nil {
		return nil, false, err
	}

	var e redisEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, false, fmt.Errorf("decode permission cache entry: %w", err)
	}
	if e.Gen != gen {
		return nil, false, nil
	}
	if e.Grants == nil {
		e.Grants = Grants{}
	}
	return e.Grants, true, nil
}

func (r *Redis) Set(ctx context.Context, userID string, gen uint64, grants Grants) error {
	data, err := json.Marshal(redisEntry{Gen: gen, Grants: grants})
	if err != nil {
		return err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		v, err := tx.Get(ctx, genKey(userID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		current, err := parseGen(nilIfMissing(v, err))
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entryKey(userID), data, r.ttl)
			return nil
		})
		return err
	}, genKey(userID))

	// Losing the WATCH race means the generation moved; the snapshot is stale anyway.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (r *Redis) Invalidate(ctx context.Context, userID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Expire(ctx, genKey(userID), genTTL)
		pipe.Del(ctx, entryKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate permission cache: %w", err)
	}
	return nil
}

func nilIfMissing(v string, err error) interface{} {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return v
}
