package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/metrics"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

const (
	DefaultDebounce          = 250 * time.Millisecond
	DefaultReconcileInterval = 30 * time.Second
	defaultLoadTimeout       = 10 * time.Second
)

type Options struct {
	Debounce          time.Duration
	ReconcileInterval time.Duration
	Now               func() time.Time
}

// Distributor turns policy store state into published snapshots. Readers get
// a consistent snapshot without locking; rebuilds are serialized.
type Distributor struct {
	store      Loader
	opts       Options
	current    atomic.Pointer[model.PolicySnapshot]
	verifiedAt atomic.Int64
	notify     chan struct{}
	buildMu    sync.Mutex
}

func NewDistributor(store Loader, opts Options) *Distributor {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.ReconcileInterval <= 0 {
		opts.ReconcileInterval = DefaultReconcileInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Distributor{
		store:  store,
		opts:   opts,
		notify: make(chan struct{}, 1),
	}
}

// Current returns the published snapshot and when its content was last
// confirmed against the store. The snapshot is nil before the first build.
func (d *Distributor) Current() (*model.PolicySnapshot, time.Time) {
	snap := d.current.Load()
	if snap == nil {
		return nil, time.Time{}
	}
	return snap, time.Unix(0, d.verifiedAt.Load())
}

// Get returns the current snapshot and whether it differs from lastRevision.
func (d *Distributor) Get(lastRevision string) (*model.PolicySnapshot, bool) {
	snap := d.current.Load()
	if snap == nil {
		return nil, false
	}
	return snap, snap.Revision != lastRevision
}

// Notify schedules a debounced rebuild. It never blocks.
func (d *Distributor) Notify() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// HandlePolicyChanged is an EventBus handler for util.EventPolicyChanged.
func (d *Distributor) HandlePolicyChanged(_ context.Context, _ util.Event) error {
	d.Notify()
	return nil
}

// Rebuild loads the store and publishes a new snapshot when the content
// changed. It reports whether a new revision was published.
func (d *Distributor) Rebuild(ctx context.Context) (*model.PolicySnapshot, bool, error) {
	d.buildMu.Lock()
	defer d.buildMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultLoadTimeout)
	defer cancel()

	state, err := d.store.Load(ctx)
	if err != nil {
		metrics.SnapshotRebuilds.WithLabelValues("failed").Inc()
		return d.current.Load(), false, fmt.Errorf("failed to load policy state: %w", err)
	}

	now := d.opts.Now()
	next, err := Build(state, now)
	if err != nil {
		metrics.SnapshotRebuilds.WithLabelValues("failed").Inc()
		return d.current.Load(), false, err
	}

	prev := d.current.Load()
	if prev != nil && prev.Revision == next.Revision {
		d.verifiedAt.Store(now.UnixNano())
		metrics.SnapshotRebuilds.WithLabelValues("unchanged").Inc()
		metrics.MarkSnapshotSync(now)
		return prev, false, nil
	}

	d.verifiedAt.Store(now.UnixNano())
	d.current.Store(next)
	metrics.SnapshotRebuilds.WithLabelValues("published").Inc()
	metrics.MarkSnapshotSync(now)
	logger.Info("Policy snapshot published",
		zap.String("revision", next.Revision),
		zap.Int("services", len(next.Catalog)),
		zap.Int("rules", len(next.AccessRules)),
		zap.Int("revocations", len(next.Revocations)))
	return next, true, nil
}

// Run builds the first snapshot and then rebuilds on notifications and on the
// reconciliation ticker until ctx is done.
func (d *Distributor) Run(ctx context.Context) {
	if _, _, err := d.Rebuild(ctx); err != nil {
		logger.Error("Initial snapshot build failed", zap.Error(err))
	}

	ticker := time.NewTicker(d.opts.ReconcileInterval)
	defer ticker.Stop()

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.notify:
			// The first notification opens the window; later ones fold into it.
			if fire == nil {
				debounce = time.NewTimer(d.opts.Debounce)
				fire = debounce.C
			}
		case <-fire:
			debounce, fire = nil, nil
			d.rebuildAndLog(ctx, "change")
		case <-ticker.C:
			d.rebuildAndLog(ctx, "reconcile")
		}
	}
}

func (d *Distributor) rebuildAndLog(ctx context.Context, trigger string) {
	if _, _, err := d.Rebuild(ctx); err != nil {
		logger.Error("Snapshot rebuild failed, keeping last good snapshot",
			zap.String("trigger", trigger),
			zap.Error(err))
	}
}
