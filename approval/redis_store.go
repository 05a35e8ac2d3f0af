package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

const (
	redisSeqKey   = "approval:seq"
	redisIndexKey = "approval:index"
)

// RedisStore shares approvals between PDP replicas.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(id string) string { return "approval:rec:" + id }

func liveKey(lookupKey string) string { return "approval:live:" + lookupKey }

func (s *RedisStore) NextSequence(ctx context.Context) (int64, error) {
	seq, err := s.client.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate approval id: %w", err)
	}
	return seq, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *model.PendingApproval) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal approval: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(rec.ApprovalID), data, 0)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(rec.Sequence), Member: rec.ApprovalID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save approval %s: %w", rec.ApprovalID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.PendingApproval, error) {
	data, err := s.client.Get(ctx, recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gw_errors.ErrApprovalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval %s: %w", id, err)
	}
	return decodeRecord(data)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey(id))
		pipe.ZRem(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete approval %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*model.PendingApproval, error) {
	ids, err := s.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load approvals: %w", err)
	}
	out := make([]*model.PendingApproval, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decodeRecord([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) LiveID(ctx context.Context, lookupKey string) (string, error) {
	id, err := s.client.Get(ctx, liveKey(lookupKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read live approval: %w", err)
	}
	return id, nil
}

func (s *RedisStore) SetLive(ctx context.Context, lookupKey, id string) error {
	if err := s.client.Set(ctx, liveKey(lookupKey), id, 0).Err(); err != nil {
		return fmt.Errorf("failed to index approval %s: %w", id, err)
	}
	return nil
}

// clearLiveScript drops the live index only while it still points at id.
var clearLiveScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisStore) ClearLive(ctx context.Context, lookupKey, id string) error {
	if err := clearLiveScript.Run(ctx, s.client, []string{liveKey(lookupKey)}, id).Err(); err != nil {
		return fmt.Errorf("failed to clear live approval: %w", err)
	}
	return nil
}
