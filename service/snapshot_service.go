// service/snapshot_service.go
package service

import (
	"time"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// ISnapshotService serves the current policy snapshot.
type ISnapshotService interface {
	// Get returns the current snapshot and whether it differs from lastRevision.
	Get(lastRevision string) (*model.PolicySnapshot, bool)
	Current() (*model.PolicySnapshot, time.Time)
}

// SnapshotSource is a distributor or a remote poller.
type SnapshotSource interface {
	Current() (*model.PolicySnapshot, time.Time)
}

// SnapshotService serves whatever snapshot the local source holds, so an
// instance consuming a remote distributor can relay it.
type SnapshotService struct {
	source SnapshotSource
}

var _ ISnapshotService = &SnapshotService{}

func NewSnapshotService(source SnapshotSource) *SnapshotService {
	return &SnapshotService{source: source}
}

func (s *SnapshotService) Current() (*model.PolicySnapshot, time.Time) {
	return s.source.Current()
}

func (s *SnapshotService) Get(lastRevision string) (*model.PolicySnapshot, bool) {
	snap, _ := s.source.Current()
	if snap == nil {
		return nil, false
	}
	return snap, snap.Revision != lastRevision
}

