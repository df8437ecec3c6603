package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Redis Key设计
const (
	// {prefix}snapshot:{port} -> Snapshot JSON
	keySnapshotPrefix = "snapshot:"

	// {prefix}ports -> Set[port]
	keyPorts = "ports"
)

// RedisStore Redis版本的快照存储，守护进程重启后仍可恢复离线默认值
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore 创建Redis快照存储
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) snapshotKey(port string) string {
	return r.prefix + keySnapshotPrefix + port
}

func (r *RedisStore) Load(ctx context.Context, port string) (Snapshot, error) {
	raw, err := r.client.Get(ctx, r.snapshotKey(port)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis get snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.snapshotKey(s.Port), raw, 0)
	pipe.SAdd(ctx, r.prefix+keyPorts, s.Port)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save snapshot: %w", err)
	}
	return nil
}

func (r *RedisStore) Ports(ctx context.Context) ([]string, error) {
	ports, err := r.client.SMembers(ctx, r.prefix+keyPorts).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
