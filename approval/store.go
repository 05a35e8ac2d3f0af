package approval

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// Store persists approval records and the live index that maps a lookup key
// to its single unconsumed record. Callers serialize writes per lookup key.
type Store interface {
	NextSequence(ctx context.Context) (int64, error)
	Save(ctx context.Context, rec *model.PendingApproval) error
	Get(ctx context.Context, id string) (*model.PendingApproval, error)
	Delete(ctx context.Context, id string) error
	// List returns every record ordered by sequence.
	List(ctx context.Context) ([]*model.PendingApproval, error)
	LiveID(ctx context.Context, lookupKey string) (string, error)
	SetLive(ctx context.Context, lookupKey, id string) error
	ClearLive(ctx context.Context, lookupKey, id string) error
}

// MemoryStore keeps approvals in process. Records are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	records map[string][]byte
	live    map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		live:    make(map[string]string),
	}
}

func (s *MemoryStore) NextSequence(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *MemoryStore) Save(_ context.Context, rec *model.PendingApproval) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ApprovalID] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.PendingApproval, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, gw_errors.ErrApprovalNotFound
	}
	return decodeRecord(data)
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*model.PendingApproval, error) {
	s.mu.RLock()
	out := make([]*model.PendingApproval, 0, len(s.records))
	for _, data := range s.records {
		rec, err := decodeRecord(data)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *MemoryStore) LiveID(_ context.Context, lookupKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live[lookupKey], nil
}

func (s *MemoryStore) SetLive(_ context.Context, lookupKey, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[lookupKey] = id
	return nil
}

func (s *MemoryStore) ClearLive(_ context.Context, lookupKey, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live[lookupKey] == id {
		delete(s.live, lookupKey)
	}
	return nil
}

func decodeRecord(data []byte) (*model.PendingApproval, error) {
	var rec model.PendingApproval
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
