package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryQuery(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(0)
	svc := NewService(repo, time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, svc.LogDecision(ctx, DecisionLog{Timestamp: base, CallerIdentity: "alice", ServiceName: "mail", Decision: "allow"}))
	require.NoError(t, svc.LogDecision(ctx, DecisionLog{Timestamp: base.Add(time.Minute), CallerIdentity: "bob", ServiceName: "mail", Decision: "deny"}))
	require.NoError(t, svc.LogDecision(ctx, DecisionLog{Timestamp: base.Add(2 * time.Minute), CallerIdentity: "alice", ServiceName: "search", Decision: "allow"}))

	all, err := svc.QueryLogs(ctx, base, base.Add(time.Hour), "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "search", all[0].ServiceName, "newest first")
	for _, l := range all {
		assert.NotEmpty(t, l.ID)
	}

	byCaller, err := svc.QueryLogs(ctx, base, base.Add(time.Hour), "alice", "")
	require.NoError(t, err)
	assert.Len(t, byCaller, 2)

	byService, err := svc.QueryLogs(ctx, base, base.Add(time.Hour), "", "mail")
	require.NoError(t, err)
	assert.Len(t, byService, 2)

	window, err := svc.QueryLogs(ctx, base.Add(30*time.Second), base.Add(90*time.Second), "", "")
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "bob", window[0].CallerIdentity)
}

func TestMemoryRepositoryCapacity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(2)
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.LogDecision(ctx, DecisionLog{Timestamp: base.Add(time.Duration(i) * time.Second), Reason: string(rune('a' + i))}))
	}
	logs, err := repo.QueryLogs(ctx, base.Add(-time.Minute), base.Add(time.Minute), "", "")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c", logs[0].Reason)
	assert.Equal(t, "b", logs[1].Reason)
}

func TestLogDecisionAsync(t *testing.T) {
	repo := NewMemoryRepository(0)
	svc := NewService(repo, time.Second)
	svc.LogDecisionAsync(DecisionLog{CallerIdentity: "alice", Decision: "allow"})

	assert.Eventually(t, func() bool {
		logs, _ := repo.QueryLogs(context.Background(), time.Now().Add(-time.Minute), time.Now().Add(time.Minute), "alice", "")
		return len(logs) == 1
	}, time.Second, 10*time.Millisecond)
}
