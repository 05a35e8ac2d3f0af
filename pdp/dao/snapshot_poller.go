package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/metrics"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/snapshot"
)

// SnapshotPoller keeps a local copy of a remote distributor's snapshot using
// conditional GETs. On failure the last good snapshot stays in place and its
// sync time stops advancing, which the decision point's staleness check sees.
type SnapshotPoller struct {
	url      string
	client   *http.Client
	interval time.Duration
	now      func() time.Time
	token    string

	current  atomic.Pointer[model.PolicySnapshot]
	syncedAt atomic.Int64
}

func NewSnapshotPoller(url string, interval, timeout time.Duration) *SnapshotPoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SnapshotPoller{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		interval: interval,
		now:      time.Now,
	}
}

// WithBearerToken authenticates requests to a distributor behind auth.
func (p *SnapshotPoller) WithBearerToken(token string) *SnapshotPoller {
	p.token = token
	return p
}

// Current returns the last good snapshot and the time of the last successful sync.
func (p *SnapshotPoller) Current() (*model.PolicySnapshot, time.Time) {
	snap := p.current.Load()
	if snap == nil {
		return nil, time.Time{}
	}
	return snap, time.Unix(0, p.syncedAt.Load())
}

// Sync fetches the remote snapshot once. It reports whether a new revision was adopted.
func (p *SnapshotPoller) Sync(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", gw_errors.ErrSnapshotStale, err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	if cur := p.current.Load(); cur != nil {
		req.Header.Set("If-None-Match", `"`+cur.Revision+`"`)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", gw_errors.ErrSnapshotStale, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		p.markSynced()
		return false, nil
	case http.StatusOK:
	default:
		return false, fmt.Errorf("%w: distributor returned status %d", gw_errors.ErrSnapshotStale, resp.StatusCode)
	}

	var snap model.PolicySnapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&snap); err != nil {
		return false, fmt.Errorf("%w: invalid snapshot body: %v", gw_errors.ErrSnapshotStale, err)
	}
	snapshot.Restore(&snap)

	revision, err := snapshot.Revision(&snap)
	if err != nil {
		return false, fmt.Errorf("%w: %v", gw_errors.ErrSnapshotStale, err)
	}
	if revision != snap.Revision {
		return false, fmt.Errorf("%w: revision mismatch, got %s computed %s", gw_errors.ErrSnapshotStale, snap.Revision, revision)
	}

	prev := p.current.Load()
	p.current.Store(&snap)
	p.markSynced()
	changed := prev == nil || prev.Revision != snap.Revision
	if changed {
		logger.Info("Adopted remote policy snapshot", zap.String("revision", snap.Revision))
	}
	return changed, nil
}

func (p *SnapshotPoller) markSynced() {
	now := p.now()
	p.syncedAt.Store(now.UnixNano())
	metrics.MarkSnapshotSync(now)
}

// Run polls until ctx is done.
func (p *SnapshotPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if _, err := p.Sync(ctx); err != nil {
			snap, synced := p.Current()
			fields := []zap.Field{zap.Error(err), zap.String("url", p.url)}
			if snap != nil {
				fields = append(fields, zap.String("revision", snap.Revision), zap.Time("lastSync", synced))
			}
			logger.Warn("Snapshot sync failed, keeping last good snapshot", fields...)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
