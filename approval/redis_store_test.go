package approval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
)

func newRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	_, client := newRedisClient(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seq, err := store.NextSequence(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, &model.PendingApproval{
			ApprovalID: fmt.Sprintf("APR-%d", seq),
			Sequence:   seq,
			LookupKey:  "k",
			Status:     model.ApprovalPending,
		}))
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "APR-1", all[0].ApprovalID)
	assert.Equal(t, "APR-3", all[2].ApprovalID)

	require.NoError(t, store.SetLive(ctx, "k", "APR-3"))
	id, err := store.LiveID(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "APR-3", id)

	require.NoError(t, store.ClearLive(ctx, "k", "APR-1"))
	id, _ = store.LiveID(ctx, "k")
	assert.Equal(t, "APR-3", id, "clearing a stale id keeps the live one")

	require.NoError(t, store.ClearLive(ctx, "k", "APR-3"))
	id, _ = store.LiveID(ctx, "k")
	assert.Empty(t, id)

	require.NoError(t, store.Delete(ctx, "APR-2"))
	_, err = store.Get(ctx, "APR-2")
	assert.True(t, errors.Is(err, gw_errors.ErrApprovalNotFound))
	all, _ = store.List(ctx)
	assert.Len(t, all, 2)
}

func TestEngineOnRedis(t *testing.T) {
	_, client := newRedisClient(t)
	e := NewEngine(NewRedisStore(client), NewRedisLocker(client, time.Second), nil, Options{})
	ctx := context.Background()
	req := sendRequest("redis")

	resp, err := e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "APR-1", resp.ApprovalID)

	_, err = e.Approve(ctx, "APR-1", "carol")
	require.NoError(t, err)

	resp, err = e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomeAllow, resp.Outcome)

	resp, err = e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "APR-2", resp.ApprovalID)
}

func TestRedisLockerExcludes(t *testing.T) {
	_, client := newRedisClient(t)
	l := NewRedisLocker(client, time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.True(t, errors.Is(err, gw_errors.ErrLockNotAcquired))

	unlock()
	unlock2, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()
}
